package search

import (
	"cmp"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/poiesic/gamerec/core"
	"github.com/poiesic/gamerec/lexical"
	"github.com/poiesic/gamerec/metrics"
	"github.com/poiesic/gamerec/semantic"
	"github.com/poiesic/gamerec/tokenize"
	"gonum.org/v1/gonum/stat/sampleuv"
)

const (
	DefaultAlpha      = 0.5
	DefaultTopK       = 10
	DefaultSampleSize = 5
)

// Ranking is the ordered candidate list of one query, before sampling.
type Ranking struct {
	Query      core.Query
	Candidates []core.Scored
	Reason     core.Reason
	Detail     core.Detail
}

// Recommender fuses lexical and semantic similarity into ranked,
// diversified recommendations. It is read-only after construction and
// safe for concurrent use.
type Recommender struct {
	entries    []core.CorpusEntry
	lex        *lexical.Space
	sem        *semantic.Model
	resolver   *Resolver
	tokenizer  *tokenize.Tokenizer
	alpha      float64
	topK       int
	sampleSize int
	weighted   bool
	rng        *lockedSource
	metrics    *metrics.Collector
	logger     *slog.Logger
}

// Option configures a Recommender.
type Option func(*Recommender) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Recommender) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// WithAlpha sets the lexical weight of the fused score. The semantic
// weight is 1-alpha. Default is 0.5.
func WithAlpha(alpha float64) Option {
	return func(r *Recommender) error {
		if alpha < 0 || alpha > 1 {
			return fmt.Errorf("%w: alpha %g outside [0, 1]", ErrInvalidOption, alpha)
		}
		r.alpha = alpha
		return nil
	}
}

// WithTopK sets how many ranked candidates are eligible for sampling.
// Default is 10.
func WithTopK(k int) Option {
	return func(r *Recommender) error {
		if k < 1 {
			return fmt.Errorf("%w: top k must be positive, got %d", ErrInvalidOption, k)
		}
		r.topK = k
		return nil
	}
}

// WithSampleSize sets how many titles a recommendation returns.
// Default is 5.
func WithSampleSize(n int) Option {
	return func(r *Recommender) error {
		if n < 1 {
			return fmt.Errorf("%w: sample size must be positive, got %d", ErrInvalidOption, n)
		}
		r.sampleSize = n
		return nil
	}
}

// WithRandSource sets the randomness used for sampling. Access is
// serialized internally, so the source need not be goroutine safe.
// A source shared by several recommenders must come from
// NewLockedSource.
func WithRandSource(src rand.Source) Option {
	return func(r *Recommender) error {
		if src == nil {
			return fmt.Errorf("%w: nil random source", ErrInvalidOption)
		}
		if ls, ok := src.(*lockedSource); ok {
			r.rng = ls
			return nil
		}
		r.rng = &lockedSource{src: src}
		return nil
	}
}

// WithTokenizer sets the tokenizer used for keyword queries. It should
// match the one used to build the corpus.
func WithTokenizer(t *tokenize.Tokenizer) Option {
	return func(r *Recommender) error {
		if t == nil {
			return fmt.Errorf("%w: nil tokenizer", ErrInvalidOption)
		}
		r.tokenizer = t
		return nil
	}
}

// WithMetrics records every query on c.
func WithMetrics(c *metrics.Collector) Option {
	return func(r *Recommender) error {
		r.metrics = c
		return nil
	}
}

// WithWeightedSentences switches sentence vectors from a plain mean to
// an idf-weighted mean.
func WithWeightedSentences(enabled bool) Option {
	return func(r *Recommender) error {
		r.weighted = enabled
		return nil
	}
}

// NewRecommender creates a recommender over entries and their vector
// spaces. Any of them may be missing, in which case every query reports
// core.ReasonModelsNotReady.
func NewRecommender(entries []core.CorpusEntry, lex *lexical.Space, sem *semantic.Model, opts ...Option) (*Recommender, error) {
	if lex != nil && len(entries) > 0 && lex.Len() != len(entries) {
		return nil, fmt.Errorf("%w: %d entries, %d lexical rows", ErrMisaligned, len(entries), lex.Len())
	}

	r := &Recommender{
		entries:    entries,
		lex:        lex,
		sem:        sem,
		resolver:   NewResolver(entries),
		tokenizer:  tokenize.New(),
		alpha:      DefaultAlpha,
		topK:       DefaultTopK,
		sampleSize: DefaultSampleSize,
		rng:        &lockedSource{src: rand.NewPCG(rand.Uint64(), rand.Uint64())},
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	r.logger = r.logger.With("component", "recommender")

	return r, nil
}

// Ready reports whether the corpus and both vector spaces are loaded.
func (r *Recommender) Ready() bool {
	return len(r.entries) > 0 && r.lex != nil && r.sem != nil
}

// Titles returns the corpus titles in index order.
func (r *Recommender) Titles() []string {
	titles := make([]string, len(r.entries))
	for i, e := range r.entries {
		titles[i] = e.Title
	}
	return titles
}

// Resolve maps raw input onto a query without running it.
func (r *Recommender) Resolve(input string) core.Query {
	return r.resolver.Resolve(input)
}

// Recommend resolves input and answers it.
func (r *Recommender) Recommend(input string) core.Recommendation {
	return r.RecommendWithMonitor(input, nil)
}

// RecommendWithMonitor resolves input and answers it, reporting each
// stage to monitor.
func (r *Recommender) RecommendWithMonitor(input string, monitor SearchMonitor) core.Recommendation {
	return r.run(r.resolver.Resolve(input), monitor)
}

// ByIndex recommends items similar to corpus entry i.
func (r *Recommender) ByIndex(i int) core.Recommendation {
	return r.run(core.Query{Kind: core.QueryByTitle, Index: i}, nil)
}

// ByTitle recommends items similar to the entry with exactly this title
// (after normalization). Unknown titles report ReasonInvalidReference
// and blank titles ReasonEmptyQuery.
func (r *Recommender) ByTitle(title string) core.Recommendation {
	if strings.TrimSpace(title) == "" {
		return r.run(core.Query{Kind: core.QueryByKeyword, Index: -1, Text: title}, nil)
	}
	i, ok := r.resolver.Lookup(title)
	if !ok {
		i = -1
	}
	return r.run(core.Query{Kind: core.QueryByTitle, Index: i, Text: title}, nil)
}

// ByKeyword recommends items lexically similar to free text.
func (r *Recommender) ByKeyword(text string) core.Recommendation {
	return r.run(core.Query{Kind: core.QueryByKeyword, Index: -1, Text: text}, nil)
}

// Rank returns every candidate for entry i, best first, before top-K
// truncation and sampling.
func (r *Recommender) Rank(i int) Ranking {
	return r.rank(i, &noopMonitor{})
}

// RankKeyword returns every item with positive similarity to text,
// best first, before top-K truncation and sampling.
func (r *Recommender) RankKeyword(text string) Ranking {
	return r.rankKeyword(text, &noopMonitor{})
}

func (r *Recommender) run(q core.Query, monitor SearchMonitor) core.Recommendation {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	start := time.Now()
	monitor.Start(q)

	var ranking Ranking
	switch q.Kind {
	case core.QueryByTitle:
		ranking = r.rank(q.Index, monitor)
	default:
		ranking = r.rankKeyword(q.Text, monitor)
	}
	ranking.Query = q

	rec := r.pick(ranking)
	monitor.Finish(rec)

	elapsed := time.Since(start)
	r.metrics.ObserveRecommendation(q.Kind, rec.Reason, elapsed)
	r.logger.Debug("recommendation",
		"kind", q.Kind.String(),
		"index", q.Index,
		"reason", rec.Reason.String(),
		"detail", rec.Detail.String(),
		"candidates", len(ranking.Candidates),
		"returned", len(rec.Titles),
		"elapsed", elapsed)
	return rec
}

func (r *Recommender) rank(i int, monitor SearchMonitor) Ranking {
	out := Ranking{Query: core.Query{Kind: core.QueryByTitle, Index: i}}
	if !r.Ready() {
		out.Reason = core.ReasonModelsNotReady
		return out
	}
	if i < 0 || i >= len(r.entries) {
		out.Reason = core.ReasonInvalidReference
		return out
	}

	ref := r.lex.Row(i)
	if ref.IsZero() {
		out.Reason, out.Detail = core.ReasonNoCandidates, core.DetailDegenerateLexical
		return out
	}
	sentences := r.sentenceVectors()
	if semantic.IsZero(sentences[i]) {
		out.Reason, out.Detail = core.ReasonNoCandidates, core.DetailDegenerateSemantic
		return out
	}

	lexSims := r.lex.Similarities(ref)
	monitor.AfterLexicalScoring(lexSims)

	semSims := make([]float64, len(sentences))
	for j, v := range sentences {
		semSims[j] = semantic.Cosine(sentences[i], v)
	}
	monitor.AfterSemanticScoring(semSims)

	candidates := make([]int, 0, len(r.entries))
	for j := range r.entries {
		if j == i || r.lex.Row(j).IsZero() || semantic.IsZero(sentences[j]) {
			continue
		}
		candidates = append(candidates, j)
	}
	monitor.AfterCandidateFilter(candidates)

	scored := make([]core.Scored, len(candidates))
	for k, j := range candidates {
		scored[k] = core.Scored{Index: j, Score: r.alpha*lexSims[j] + (1-r.alpha)*semSims[j]}
	}
	sortScored(scored)
	monitor.Ranked(scored)

	out.Candidates = scored
	if len(scored) == 0 {
		out.Reason = core.ReasonNoCandidates
	}
	return out
}

func (r *Recommender) rankKeyword(text string, monitor SearchMonitor) Ranking {
	out := Ranking{Query: core.Query{Kind: core.QueryByKeyword, Index: -1, Text: text}}
	if strings.TrimSpace(text) == "" {
		out.Reason = core.ReasonEmptyQuery
		return out
	}
	if !r.Ready() {
		out.Reason = core.ReasonModelsNotReady
		return out
	}

	v := r.lex.Model().Transform(r.tokenizer.Tokens(text))
	sims := r.lex.Similarities(v)
	monitor.AfterLexicalScoring(sims)

	candidates := make([]int, 0)
	for j, s := range sims {
		if s > 0 {
			candidates = append(candidates, j)
		}
	}
	monitor.AfterCandidateFilter(candidates)

	scored := make([]core.Scored, len(candidates))
	for k, j := range candidates {
		scored[k] = core.Scored{Index: j, Score: sims[j]}
	}
	sortScored(scored)
	monitor.Ranked(scored)

	out.Candidates = scored
	if len(scored) == 0 {
		out.Reason, out.Detail = core.ReasonNoCandidates, core.DetailNoOverlap
	}
	return out
}

// pick truncates a ranking to the top K and draws the final titles.
// Fewer than sampleSize survivors are returned whole, in rank order.
func (r *Recommender) pick(ranking Ranking) core.Recommendation {
	rec := core.Recommendation{Query: ranking.Query, Reason: ranking.Reason, Detail: ranking.Detail}
	if ranking.Reason != core.ReasonOK {
		return rec
	}

	top := ranking.Candidates[:min(r.topK, len(ranking.Candidates))]
	if len(top) < r.sampleSize {
		rec.Titles = make([]string, len(top))
		for k, s := range top {
			rec.Titles[k] = r.entries[s.Index].Title
		}
		return rec
	}

	picks := make([]int, r.sampleSize)
	sampleuv.WithoutReplacement(picks, len(top), r.rng)
	rec.Titles = make([]string, len(picks))
	for k, p := range picks {
		rec.Titles[k] = r.entries[top[p].Index].Title
	}
	return rec
}

func (r *Recommender) sentenceVectors() [][]float32 {
	out := make([][]float32, len(r.entries))
	weight := r.lex.Model().TermIDF
	for i, e := range r.entries {
		if r.weighted {
			out[i] = r.sem.WeightedSentenceVector(e.Tokens, weight)
		} else {
			out[i] = r.sem.SentenceVector(e.Tokens)
		}
	}
	return out
}

// sortScored orders by descending score, then ascending index.
func sortScored(scored []core.Scored) {
	slices.SortFunc(scored, func(a, b core.Scored) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.Index, b.Index)
	})
}

// NewLockedSource wraps src so that every recommender given the result
// shares one lock around it.
func NewLockedSource(src rand.Source) rand.Source {
	if ls, ok := src.(*lockedSource); ok {
		return ls
	}
	return &lockedSource{src: src}
}

// lockedSource serializes access to a rand.Source.
type lockedSource struct {
	mu  sync.Mutex
	src rand.Source
}

func (s *lockedSource) Uint64() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.Uint64()
}
