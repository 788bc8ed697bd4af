// Package lexical builds the term-weighted (TF-IDF) vector space.
//
// Weighting follows the conventional smoothed scheme:
//
//	tf(t, d)  = 1 + ln(count(t, d))        (sublinear, default)
//	idf(t)    = ln((1 + n) / (1 + df(t))) + 1
//	w(t, d)   = tf(t, d) * idf(t), then each row is L2-normalized
//
// The vocabulary is sorted, so fitting the same documents in the same
// order always reproduces identical vectors.
package lexical

import (
	"fmt"
	"math"
	"slices"

	"github.com/poiesic/gamerec/core"
)

// Model is a fitted term-weighting model. It is immutable after Fit and
// safe for concurrent use.
type Model struct {
	terms       []string
	vocabulary  map[string]int
	idf         []float64
	sublinearTF bool
}

// NewModel reassembles a model from its persisted parts. terms must be
// sorted and unique, and idf must have one weight per term.
func NewModel(terms []string, idf []float64, sublinearTF bool) (*Model, error) {
	if len(terms) != len(idf) {
		return nil, fmt.Errorf("%w: %d terms, %d idf weights", ErrMisaligned, len(terms), len(idf))
	}
	vocabulary := make(map[string]int, len(terms))
	for i, term := range terms {
		if i > 0 && terms[i-1] >= term {
			return nil, fmt.Errorf("%w: vocabulary not sorted at %d", ErrMisaligned, i)
		}
		vocabulary[term] = i
	}
	return &Model{
		terms:       slices.Clone(terms),
		vocabulary:  vocabulary,
		idf:         slices.Clone(idf),
		sublinearTF: sublinearTF,
	}, nil
}

// Terms returns the vocabulary in index order.
func (m *Model) Terms() []string {
	return slices.Clone(m.terms)
}

// IDF returns the inverse document frequency weights in index order.
func (m *Model) IDF() []float64 {
	return slices.Clone(m.idf)
}

// SublinearTF reports whether term counts are log-scaled.
func (m *Model) SublinearTF() bool {
	return m.sublinearTF
}

// Size returns the vocabulary size.
func (m *Model) Size() int {
	return len(m.terms)
}

// Index returns the vocabulary position of term.
func (m *Model) Index(term string) (int, bool) {
	i, ok := m.vocabulary[term]
	return i, ok
}

// TermIDF returns the idf weight of term, if it is in the vocabulary.
func (m *Model) TermIDF(term string) (float64, bool) {
	i, ok := m.vocabulary[term]
	if !ok {
		return 0, false
	}
	return m.idf[i], true
}

// Transform maps a token sequence onto a normalized sparse vector.
// Tokens outside the vocabulary are ignored; if none remain the result
// is the zero vector.
func (m *Model) Transform(tokens []string) Vector {
	counts := make(map[int]int, len(tokens))
	for _, token := range tokens {
		if i, ok := m.vocabulary[token]; ok {
			counts[i]++
		}
	}
	if len(counts) == 0 {
		return Vector{}
	}

	indices := make([]int, 0, len(counts))
	for i := range counts {
		indices = append(indices, i)
	}
	slices.Sort(indices)

	values := make([]float64, len(indices))
	for k, i := range indices {
		tf := float64(counts[i])
		if m.sublinearTF {
			tf = 1 + math.Log(tf)
		}
		values[k] = tf * m.idf[i]
	}
	v := Vector{Indices: indices, Values: values}
	v.normalize()
	return v
}

type fitOptions struct {
	sublinearTF bool
}

// FitOption configures Fit.
type FitOption func(*fitOptions)

// WithSublinearTF toggles log scaling of term counts. Default is true.
func WithSublinearTF(enabled bool) FitOption {
	return func(o *fitOptions) {
		o.sublinearTF = enabled
	}
}

// Fit learns the vocabulary and idf weights from docs and returns the
// model together with one row per document, in input order. A document
// with no tokens gets an explicit zero row.
func Fit(docs [][]string, opts ...FitOption) (*Space, error) {
	options := &fitOptions{sublinearTF: true}
	for _, opt := range opts {
		opt(options)
	}

	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: %w", core.ErrModelBuild, ErrEmptyCorpus)
	}

	df := make(map[string]int)
	for _, doc := range docs {
		seen := make(map[string]bool, len(doc))
		for _, token := range doc {
			if token == "" || seen[token] {
				continue
			}
			seen[token] = true
			df[token]++
		}
	}
	if len(df) == 0 {
		return nil, fmt.Errorf("%w: %w", core.ErrModelBuild, ErrEmptyVocabulary)
	}

	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	slices.Sort(terms)

	n := float64(len(docs))
	idf := make([]float64, len(terms))
	for i, term := range terms {
		idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}

	model, err := NewModel(terms, idf, options.sublinearTF)
	if err != nil {
		return nil, err
	}

	rows := make([]Vector, len(docs))
	for i, doc := range docs {
		rows[i] = model.Transform(doc)
	}
	return &Space{model: model, rows: rows}, nil
}
