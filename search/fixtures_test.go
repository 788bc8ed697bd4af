package search

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/poiesic/gamerec/core"
	"github.com/poiesic/gamerec/lexical"
	"github.com/poiesic/gamerec/semantic"
	"github.com/stretchr/testify/require"
)

// racingCorpus is the three item example plus a stop-word-only item and
// an item whose only token has no word vector.
func racingCorpus() []core.CorpusEntry {
	return []core.CorpusEntry{
		{Title: "a", Tokens: []string{"fast", "racing", "cars"}},
		{Title: "b", Tokens: []string{"racing", "simulator", "cars"}},
		{Title: "c", Tokens: []string{"cooking", "recipes"}},
		{Title: "filler", Tokens: []string{}},
		{Title: "orbit", Tokens: []string{"spaceship"}},
	}
}

func racingVectors(t *testing.T) *semantic.Model {
	t.Helper()
	m, err := semantic.NewModel(
		[]string{"fast", "racing", "cars", "simulator", "cooking", "recipes"},
		[][]float32{{1, 0}, {1, 0.1}, {0.9, 0.2}, {0.8, 0.3}, {0, 1}, {0.1, 1}},
	)
	require.NoError(t, err)
	return m
}

func newRacingRecommender(t *testing.T, opts ...Option) *Recommender {
	t.Helper()
	entries := racingCorpus()
	lex, err := lexical.Fit(core.TokenDocuments(entries))
	require.NoError(t, err)
	r, err := NewRecommender(entries, lex, racingVectors(t), opts...)
	require.NoError(t, err)
	return r
}

// wideCorpus builds n items that all share "racing" plus one token of
// their own, so every item is a candidate for every other.
func wideCorpus(t *testing.T, n int) ([]core.CorpusEntry, *lexical.Space, *semantic.Model) {
	t.Helper()
	entries := make([]core.CorpusEntry, n)
	words := []string{"racing"}
	vectors := [][]float32{{1, 0}}
	for i := range entries {
		own := fmt.Sprintf("word%03d", i)
		entries[i] = core.CorpusEntry{Title: fmt.Sprintf("game %d", i), Tokens: []string{"racing", own}}
		words = append(words, own)
		vectors = append(vectors, []float32{float32(i%7) / 7, 1 - float32(i%5)/5})
	}
	lex, err := lexical.Fit(core.TokenDocuments(entries))
	require.NoError(t, err)
	sem, err := semantic.NewModel(words, vectors)
	require.NoError(t, err)
	return entries, lex, sem
}

func newWideRecommender(t *testing.T, n int, seed uint64, opts ...Option) *Recommender {
	t.Helper()
	entries, lex, sem := wideCorpus(t, n)
	opts = append([]Option{WithRandSource(rand.NewPCG(seed, seed+1))}, opts...)
	r, err := NewRecommender(entries, lex, sem, opts...)
	require.NoError(t, err)
	return r
}

func titlesOf(r *Recommender, scored []core.Scored) []string {
	titles := make([]string, len(scored))
	for i, s := range scored {
		titles[i] = r.entries[s.Index].Title
	}
	return titles
}

// recordingMonitor captures every hook call.
type recordingMonitor struct {
	started    bool
	query      core.Query
	lexical    []float64
	semantic   []float64
	candidates []int
	ranked     []core.Scored
	finished   bool
	result     core.Recommendation
	stages     []string
}

func (m *recordingMonitor) Start(query core.Query) {
	m.started = true
	m.query = query
	m.stages = append(m.stages, "start")
}

func (m *recordingMonitor) AfterLexicalScoring(sims []float64) {
	m.lexical = sims
	m.stages = append(m.stages, "lexical")
}

func (m *recordingMonitor) AfterSemanticScoring(sims []float64) {
	m.semantic = sims
	m.stages = append(m.stages, "semantic")
}

func (m *recordingMonitor) AfterCandidateFilter(candidates []int) {
	m.candidates = candidates
	m.stages = append(m.stages, "filter")
}

func (m *recordingMonitor) Ranked(ranked []core.Scored) {
	m.ranked = ranked
	m.stages = append(m.stages, "ranked")
}

func (m *recordingMonitor) Finish(rec core.Recommendation) {
	m.finished = true
	m.result = rec
	m.stages = append(m.stages, "finish")
}
