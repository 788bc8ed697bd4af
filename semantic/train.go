package semantic

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"sort"

	"github.com/poiesic/gamerec/core"
	"github.com/viterin/vek/vek32"
)

const (
	maxExp = 6.0
)

// TrainConfig holds word2vec hyperparameters.
type TrainConfig struct {
	Dimension       int     `yaml:"dimension"`
	Window          int     `yaml:"window"`
	MinCount        int     `yaml:"min_count"`
	Epochs          int     `yaml:"epochs"`
	Negative        int     `yaml:"negative"`
	LearningRate    float64 `yaml:"learning_rate"`
	MinLearningRate float64 `yaml:"min_learning_rate"`
	SkipGram        bool    `yaml:"skip_gram"`
	Seed            uint64  `yaml:"seed"`
}

// DefaultTrainConfig returns skip-gram settings: 100 dimensions, window
// 4, min count 15, 100 epochs.
func DefaultTrainConfig() TrainConfig {
	return TrainConfig{
		Dimension:       100,
		Window:          4,
		MinCount:        15,
		Epochs:          100,
		Negative:        5,
		LearningRate:    0.025,
		MinLearningRate: 0.0001,
		SkipGram:        true,
		Seed:            1,
	}
}

// Validate checks that every parameter is usable.
func (c TrainConfig) Validate() error {
	switch {
	case c.Dimension <= 0:
		return fmt.Errorf("%w: dimension must be positive, got %d", ErrInvalidConfig, c.Dimension)
	case c.Window <= 0:
		return fmt.Errorf("%w: window must be positive, got %d", ErrInvalidConfig, c.Window)
	case c.MinCount <= 0:
		return fmt.Errorf("%w: min count must be positive, got %d", ErrInvalidConfig, c.MinCount)
	case c.Epochs <= 0:
		return fmt.Errorf("%w: epochs must be positive, got %d", ErrInvalidConfig, c.Epochs)
	case c.Negative <= 0:
		return fmt.Errorf("%w: negative samples must be positive, got %d", ErrInvalidConfig, c.Negative)
	case c.LearningRate <= 0:
		return fmt.Errorf("%w: learning rate must be positive, got %g", ErrInvalidConfig, c.LearningRate)
	case c.MinLearningRate < 0 || c.MinLearningRate > c.LearningRate:
		return fmt.Errorf("%w: min learning rate %g outside [0, %g]", ErrInvalidConfig, c.MinLearningRate, c.LearningRate)
	}
	return nil
}

type wordCount struct {
	word  string
	count int
}

// BuildVocabulary counts tokens and keeps those seen at least minCount
// times, ordered by descending count then word.
func BuildVocabulary(docs [][]string, minCount int) ([]string, []int) {
	counts := make(map[string]int)
	for _, doc := range docs {
		for _, t := range doc {
			if t != "" {
				counts[t]++
			}
		}
	}
	kept := make([]wordCount, 0, len(counts))
	for w, c := range counts {
		if c >= minCount {
			kept = append(kept, wordCount{word: w, count: c})
		}
	}
	slices.SortFunc(kept, func(a, b wordCount) int {
		if c := cmp.Compare(b.count, a.count); c != 0 {
			return c
		}
		return cmp.Compare(a.word, b.word)
	})
	words := make([]string, len(kept))
	freq := make([]int, len(kept))
	for i, wc := range kept {
		words[i] = wc.word
		freq[i] = wc.count
	}
	return words, freq
}

type trainer struct {
	cfg   TrainConfig
	dim   int
	rng   *rand.Rand
	syn0  []float32
	syn1  []float32
	noise []float64
	neu1  []float32
	neu1e []float32
}

// Train learns word vectors from docs with negative sampling. Training
// is single threaded and driven by a PCG source seeded from cfg.Seed,
// so identical input and config reproduce identical vectors.
func Train(ctx context.Context, docs [][]string, cfg TrainConfig) (*Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	words, freq := BuildVocabulary(docs, cfg.MinCount)
	if len(words) == 0 {
		return nil, fmt.Errorf("%w: %w", core.ErrModelBuild, ErrEmptyVocabulary)
	}
	index := make(map[string]int, len(words))
	for i, w := range words {
		index[w] = i
	}

	sentences := make([][]int, 0, len(docs))
	totalWords := 0
	for _, doc := range docs {
		s := make([]int, 0, len(doc))
		for _, t := range doc {
			if i, ok := index[t]; ok {
				s = append(s, i)
			}
		}
		if len(s) > 1 {
			sentences = append(sentences, s)
			totalWords += len(s)
		}
	}

	t := newTrainer(cfg, len(words), freq)
	total := float64(totalWords * cfg.Epochs)
	processed := 0
	for epoch := 0; epoch < cfg.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, s := range sentences {
			alpha := cfg.LearningRate * (1 - float64(processed)/(total+1))
			alpha = math.Max(alpha, cfg.MinLearningRate)
			t.sentence(s, float32(alpha))
			processed += len(s)
		}
	}

	vectors := make([][]float32, len(words))
	for i := range words {
		vectors[i] = t.syn0[i*t.dim : (i+1)*t.dim]
	}
	return NewModel(words, vectors)
}

func newTrainer(cfg TrainConfig, vocab int, freq []int) *trainer {
	t := &trainer{
		cfg:   cfg,
		dim:   cfg.Dimension,
		rng:   rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
		syn0:  make([]float32, vocab*cfg.Dimension),
		syn1:  make([]float32, vocab*cfg.Dimension),
		neu1:  make([]float32, cfg.Dimension),
		neu1e: make([]float32, cfg.Dimension),
	}
	for i := range t.syn0 {
		t.syn0[i] = (t.rng.Float32() - 0.5) / float32(cfg.Dimension)
	}

	// cumulative unigram^0.75 distribution
	t.noise = make([]float64, vocab)
	var acc float64
	for i, c := range freq {
		acc += math.Pow(float64(c), 0.75)
		t.noise[i] = acc
	}
	for i := range t.noise {
		t.noise[i] /= acc
	}
	return t
}

func (t *trainer) negativeSample() int {
	i := sort.SearchFloat64s(t.noise, t.rng.Float64())
	if i >= len(t.noise) {
		i = len(t.noise) - 1
	}
	return i
}

func (t *trainer) in(i int) []float32 {
	return t.syn0[i*t.dim : (i+1)*t.dim]
}

func (t *trainer) out(i int) []float32 {
	return t.syn1[i*t.dim : (i+1)*t.dim]
}

func (t *trainer) sentence(s []int, alpha float32) {
	for pos, word := range s {
		span := t.cfg.Window - t.rng.IntN(t.cfg.Window)
		lo, hi := max(pos-span, 0), min(pos+span, len(s)-1)
		if t.cfg.SkipGram {
			for c := lo; c <= hi; c++ {
				if c == pos {
					continue
				}
				clear(t.neu1e)
				t.update(t.in(s[c]), word, alpha)
				vek32.Add_Inplace(t.in(s[c]), t.neu1e)
			}
			continue
		}

		clear(t.neu1)
		n := 0
		for c := lo; c <= hi; c++ {
			if c != pos {
				vek32.Add_Inplace(t.neu1, t.in(s[c]))
				n++
			}
		}
		if n == 0 {
			continue
		}
		vek32.MulNumber_Inplace(t.neu1, 1/float32(n))
		clear(t.neu1e)
		t.update(t.neu1, word, alpha)
		for c := lo; c <= hi; c++ {
			if c != pos {
				vek32.Add_Inplace(t.in(s[c]), t.neu1e)
			}
		}
	}
}

// update runs one positive and cfg.Negative negative logistic steps for
// hidden against target, accumulating the hidden gradient into neu1e.
func (t *trainer) update(hidden []float32, target int, alpha float32) {
	for d := 0; d <= t.cfg.Negative; d++ {
		label := float32(1)
		out := target
		if d > 0 {
			out = t.negativeSample()
			if out == target {
				continue
			}
			label = 0
		}
		w := t.out(out)
		f := vek32.Dot(hidden, w)
		var g float32
		switch {
		case f > maxExp:
			g = (label - 1) * alpha
		case f < -maxExp:
			g = label * alpha
		default:
			g = (label - sigmoid(f)) * alpha
		}
		axpy(t.neu1e, w, g)
		axpy(w, hidden, g)
	}
}

func sigmoid(x float32) float32 {
	return float32(1 / (1 + math.Exp(-float64(x))))
}

// axpy computes dst += a*x.
func axpy(dst, x []float32, a float32) {
	for i := range dst {
		dst[i] += a * x[i]
	}
}
