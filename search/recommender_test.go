package search

import (
	"log/slog"
	"math/rand/v2"
	"slices"
	"sync"
	"testing"

	"github.com/poiesic/gamerec/core"
	"github.com/poiesic/gamerec/lexical"
	"github.com/poiesic/gamerec/metrics"
	"github.com/poiesic/gamerec/semantic"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRecommender(t *testing.T) {
	entries := racingCorpus()
	lex, err := lexical.Fit(core.TokenDocuments(entries))
	require.NoError(t, err)
	sem := racingVectors(t)

	t.Run("defaults", func(t *testing.T) {
		r, err := NewRecommender(entries, lex, sem)
		require.NoError(t, err)
		assert.True(t, r.Ready())
		assert.Equal(t, DefaultAlpha, r.alpha)
		assert.Equal(t, DefaultTopK, r.topK)
		assert.Equal(t, DefaultSampleSize, r.sampleSize)
		assert.Equal(t, []string{"a", "b", "c", "filler", "orbit"}, r.Titles())
	})

	t.Run("with nil logger falls back to default", func(t *testing.T) {
		r, err := NewRecommender(entries, lex, sem, WithLogger(nil))
		require.NoError(t, err)
		assert.NotNil(t, r.logger)
	})

	t.Run("misaligned", func(t *testing.T) {
		_, err := NewRecommender(entries[:2], lex, sem)
		assert.ErrorIs(t, err, ErrMisaligned)
	})

	invalid := []struct {
		name string
		opt  Option
	}{
		{"alpha above one", WithAlpha(1.5)},
		{"negative alpha", WithAlpha(-0.1)},
		{"zero top k", WithTopK(0)},
		{"zero sample size", WithSampleSize(0)},
		{"nil rand source", WithRandSource(nil)},
		{"nil tokenizer", WithTokenizer(nil)},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRecommender(entries, lex, sem, tt.opt)
			assert.ErrorIs(t, err, ErrInvalidOption)
		})
	}
}

func TestModelsNotReady(t *testing.T) {
	entries := racingCorpus()
	lex, err := lexical.Fit(core.TokenDocuments(entries))
	require.NoError(t, err)

	tests := []struct {
		name    string
		entries []core.CorpusEntry
		lex     *lexical.Space
		sem     *semantic.Model
	}{
		{"nothing loaded", nil, nil, nil},
		{"no semantic model", entries, lex, nil},
		{"no lexical space", entries, nil, racingVectors(t)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewRecommender(tt.entries, tt.lex, tt.sem)
			require.NoError(t, err)
			assert.False(t, r.Ready())

			for _, rec := range []core.Recommendation{r.ByIndex(0), r.ByKeyword("cooking"), r.Recommend("a")} {
				assert.Equal(t, core.ReasonModelsNotReady, rec.Reason)
				assert.True(t, rec.Empty())
			}
		})
	}
}

func TestTitleScenario(t *testing.T) {
	r := newRacingRecommender(t)

	t.Run("shared vocabulary ranks first", func(t *testing.T) {
		rec := r.ByIndex(0)
		require.Equal(t, core.ReasonOK, rec.Reason)
		assert.Equal(t, []string{"b", "c"}, rec.Titles)
	})

	t.Run("resolved by title", func(t *testing.T) {
		rec := r.Recommend("A")
		require.Equal(t, core.ReasonOK, rec.Reason)
		assert.Equal(t, core.QueryByTitle, rec.Query.Kind)
		assert.Equal(t, 0, rec.Query.Index)
		assert.Equal(t, []string{"b", "c"}, rec.Titles)
	})

	t.Run("by exact title", func(t *testing.T) {
		rec := r.ByTitle("  A ")
		require.Equal(t, core.ReasonOK, rec.Reason)
		assert.Equal(t, []string{"b", "c"}, rec.Titles)
	})

	t.Run("scores fuse both spaces", func(t *testing.T) {
		ranking := r.Rank(0)
		require.Len(t, ranking.Candidates, 2)
		b, c := ranking.Candidates[0], ranking.Candidates[1]
		assert.Equal(t, 1, b.Index)
		assert.Equal(t, 2, c.Index)

		lexSims := r.lex.Similarities(r.lex.Row(0))
		sentences := r.sentenceVectors()
		want := 0.5*lexSims[1] + 0.5*semantic.Cosine(sentences[0], sentences[1])
		assert.InDelta(t, want, b.Score, 1e-9)
		assert.Greater(t, b.Score, c.Score)
	})
}

func TestDegenerateItems(t *testing.T) {
	r := newRacingRecommender(t)

	t.Run("stop-word-only reference", func(t *testing.T) {
		rec := r.ByIndex(3)
		assert.Equal(t, core.ReasonNoCandidates, rec.Reason)
		assert.Equal(t, core.DetailDegenerateLexical, rec.Detail)
		assert.True(t, rec.Empty())
	})

	t.Run("reference without word vectors", func(t *testing.T) {
		rec := r.ByIndex(4)
		assert.Equal(t, core.ReasonNoCandidates, rec.Reason)
		assert.Equal(t, core.DetailDegenerateSemantic, rec.Detail)
		assert.True(t, rec.Empty())
	})

	t.Run("degenerate items never become candidates", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			for _, s := range r.Rank(i).Candidates {
				assert.NotEqual(t, 3, s.Index)
				assert.NotEqual(t, 4, s.Index)
			}
		}
	})

	t.Run("only candidate is degenerate", func(t *testing.T) {
		entries := []core.CorpusEntry{
			{Title: "x", Tokens: []string{"racing"}},
			{Title: "y", Tokens: []string{"spaceship"}},
		}
		lex, err := lexical.Fit(core.TokenDocuments(entries))
		require.NoError(t, err)
		rr, err := NewRecommender(entries, lex, racingVectors(t))
		require.NoError(t, err)

		rec := rr.ByIndex(0)
		assert.Equal(t, core.ReasonNoCandidates, rec.Reason)
		assert.Equal(t, core.DetailNone, rec.Detail)
	})
}

func TestInvalidReference(t *testing.T) {
	r := newRacingRecommender(t)

	for _, i := range []int{-1, 5, 100} {
		rec := r.ByIndex(i)
		assert.Equal(t, core.ReasonInvalidReference, rec.Reason, i)
		assert.True(t, rec.Empty())
	}

	rec := r.ByTitle("no such game")
	assert.Equal(t, core.ReasonInvalidReference, rec.Reason)
}

func TestKeywordScenario(t *testing.T) {
	r := newRacingRecommender(t)

	t.Run("only matching item", func(t *testing.T) {
		rec := r.ByKeyword("cooking")
		require.Equal(t, core.ReasonOK, rec.Reason)
		assert.Equal(t, []string{"c"}, rec.Titles)
	})

	t.Run("unmatched input falls through to keyword", func(t *testing.T) {
		rec := r.Recommend("Cooking")
		assert.Equal(t, core.QueryByKeyword, rec.Query.Kind)
		assert.Equal(t, []string{"c"}, rec.Titles)
	})

	t.Run("exact description beats unrelated item", func(t *testing.T) {
		ranking := r.RankKeyword("racing simulator cars")
		require.NotEmpty(t, ranking.Candidates)
		assert.Equal(t, 1, ranking.Candidates[0].Index)
		for _, s := range ranking.Candidates {
			assert.NotEqual(t, 2, s.Index)
		}
	})

	t.Run("lexical only", func(t *testing.T) {
		m := &recordingMonitor{}
		r.RecommendWithMonitor("cooking", m)
		assert.Nil(t, m.semantic)
		assert.Equal(t, []string{"start", "lexical", "filter", "ranked", "finish"}, m.stages)
	})

	t.Run("no overlap", func(t *testing.T) {
		rec := r.ByKeyword("spreadsheet")
		assert.Equal(t, core.ReasonNoCandidates, rec.Reason)
		assert.Equal(t, core.DetailNoOverlap, rec.Detail)
	})

	t.Run("only stop words", func(t *testing.T) {
		rec := r.ByKeyword("the game")
		assert.Equal(t, core.ReasonNoCandidates, rec.Reason)
	})

	t.Run("blank", func(t *testing.T) {
		for _, input := range []string{"", "   ", "\t\n"} {
			assert.Equal(t, core.ReasonEmptyQuery, r.Recommend(input).Reason)
			assert.Equal(t, core.ReasonEmptyQuery, r.ByKeyword(input).Reason)
			assert.Equal(t, core.ReasonEmptyQuery, r.ByTitle(input).Reason)
		}
	})
}

func TestSampling(t *testing.T) {
	t.Run("subset of top k for any seed", func(t *testing.T) {
		for seed := uint64(0); seed < 50; seed++ {
			r := newWideRecommender(t, 20, seed)
			top := titlesOf(r, r.Rank(0).Candidates[:DefaultTopK])

			rec := r.ByIndex(0)
			require.Equal(t, core.ReasonOK, rec.Reason)
			require.Len(t, rec.Titles, DefaultSampleSize)
			seen := make(map[string]bool)
			for _, title := range rec.Titles {
				assert.Contains(t, top, title)
				assert.False(t, seen[title], "duplicate %q", title)
				assert.NotEqual(t, "game 0", title)
				seen[title] = true
			}
		}
	})

	t.Run("same seed same sample", func(t *testing.T) {
		first := newWideRecommender(t, 20, 42).ByIndex(3)
		second := newWideRecommender(t, 20, 42).ByIndex(3)
		assert.Equal(t, first.Titles, second.Titles)
	})

	t.Run("keyword subset of top k", func(t *testing.T) {
		for seed := uint64(0); seed < 20; seed++ {
			r := newWideRecommender(t, 20, seed)
			ranking := r.RankKeyword("racing")
			require.Len(t, ranking.Candidates, 20)
			top := titlesOf(r, ranking.Candidates[:DefaultTopK])

			rec := r.ByKeyword("racing")
			require.Len(t, rec.Titles, DefaultSampleSize)
			for _, title := range rec.Titles {
				assert.Contains(t, top, title)
			}
		}
	})

	t.Run("fewer candidates than sample size returns all in order", func(t *testing.T) {
		r := newWideRecommender(t, 4, 1)
		ranking := r.Rank(0)
		require.Len(t, ranking.Candidates, 3)
		assert.Equal(t, titlesOf(r, ranking.Candidates), r.ByIndex(0).Titles)
	})

	t.Run("exactly sample size candidates", func(t *testing.T) {
		r := newWideRecommender(t, 6, 1)
		rec := r.ByIndex(0)
		require.Len(t, rec.Titles, 5)
		assert.ElementsMatch(t, titlesOf(r, r.Rank(0).Candidates), rec.Titles)
	})

	t.Run("configured top k and sample size", func(t *testing.T) {
		r := newWideRecommender(t, 20, 9, WithTopK(3), WithSampleSize(2))
		top := titlesOf(r, r.Rank(0).Candidates[:3])
		rec := r.ByIndex(0)
		require.Len(t, rec.Titles, 2)
		for _, title := range rec.Titles {
			assert.Contains(t, top, title)
		}
	})
}

func TestRankingDeterminism(t *testing.T) {
	a := newWideRecommender(t, 20, 1)
	b := newWideRecommender(t, 20, 99)

	for i := 0; i < 20; i++ {
		first := a.Rank(i)
		assert.Equal(t, first, a.Rank(i))
		assert.Equal(t, first, b.Rank(i))
		for _, s := range first.Candidates {
			assert.NotEqual(t, i, s.Index)
		}
	}
	assert.Equal(t, a.RankKeyword("racing"), b.RankKeyword("racing"))
}

func TestTiesBrokenByIndex(t *testing.T) {
	entries := []core.CorpusEntry{
		{Title: "ref", Tokens: []string{"racing", "cars"}},
		{Title: "z", Tokens: []string{"racing", "fast"}},
		{Title: "y", Tokens: []string{"racing", "fast"}},
		{Title: "x", Tokens: []string{"racing", "fast"}},
	}
	lex, err := lexical.Fit(core.TokenDocuments(entries))
	require.NoError(t, err)
	r, err := NewRecommender(entries, lex, racingVectors(t))
	require.NoError(t, err)

	ranking := r.Rank(0)
	require.Len(t, ranking.Candidates, 3)
	indices := []int{ranking.Candidates[0].Index, ranking.Candidates[1].Index, ranking.Candidates[2].Index}
	assert.Equal(t, []int{1, 2, 3}, indices)
	assert.Equal(t, []string{"z", "y", "x"}, r.ByIndex(0).Titles)
}

func TestAlpha(t *testing.T) {
	lexOnly := newWideRecommender(t, 12, 1, WithAlpha(1))
	semOnly := newWideRecommender(t, 12, 1, WithAlpha(0))

	lexSims := lexOnly.lex.Similarities(lexOnly.lex.Row(0))
	for _, s := range lexOnly.Rank(0).Candidates {
		assert.InDelta(t, lexSims[s.Index], s.Score, 1e-12)
	}

	sentences := semOnly.sentenceVectors()
	for _, s := range semOnly.Rank(0).Candidates {
		assert.InDelta(t, semantic.Cosine(sentences[0], sentences[s.Index]), s.Score, 1e-12)
	}
}

func TestWeightedSentences(t *testing.T) {
	plain := newRacingRecommender(t)
	weighted := newRacingRecommender(t, WithWeightedSentences(true))

	assert.Equal(t, []string{"b", "c"}, weighted.ByIndex(0).Titles)
	assert.NotEqual(t, plain.sentenceVectors()[0], weighted.sentenceVectors()[0])
}

func TestMonitorStages(t *testing.T) {
	r := newRacingRecommender(t)

	t.Run("title query", func(t *testing.T) {
		m := &recordingMonitor{}
		rec := r.RecommendWithMonitor("a", m)

		assert.True(t, m.started)
		assert.True(t, m.finished)
		assert.Equal(t, core.QueryByTitle, m.query.Kind)
		assert.Equal(t, []string{"start", "lexical", "semantic", "filter", "ranked", "finish"}, m.stages)
		assert.Len(t, m.lexical, 5)
		assert.Len(t, m.semantic, 5)
		assert.Equal(t, []int{1, 2}, m.candidates)
		assert.Len(t, m.ranked, 2)
		assert.Equal(t, rec, m.result)
	})

	t.Run("early exit skips scoring hooks", func(t *testing.T) {
		m := &recordingMonitor{}
		r.RecommendWithMonitor("filler", m)
		assert.Equal(t, []string{"start", "finish"}, m.stages)
		assert.Equal(t, core.ReasonNoCandidates, m.result.Reason)
	})
}

func TestRecommenderMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := metrics.New(reg)
	require.NoError(t, err)
	r := newRacingRecommender(t, WithMetrics(collector), WithLogger(slog.New(slog.DiscardHandler)))

	r.ByIndex(0)
	r.ByKeyword("cooking")
	r.ByIndex(3)

	count, err := testutil.GatherAndCount(reg, "gamerec_recommendations_total")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestConcurrentQueries(t *testing.T) {
	r := newWideRecommender(t, 30, 5)
	top := make([][]string, 30)
	for i := range top {
		top[i] = titlesOf(r, r.Rank(i).Candidates[:DefaultTopK])
	}

	var wg sync.WaitGroup
	errs := make(chan string, 30*20*DefaultSampleSize)
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for n := 0; n < 20; n++ {
				rec := r.ByIndex(i)
				for _, title := range rec.Titles {
					if !slices.Contains(top[i], title) {
						errs <- title
					}
				}
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	assert.Empty(t, errs)
}

func TestLockedSource(t *testing.T) {
	a := &lockedSource{src: rand.NewPCG(1, 2)}
	b := rand.NewPCG(1, 2)
	for i := 0; i < 10; i++ {
		assert.Equal(t, b.Uint64(), a.Uint64())
	}
}

func TestNewLockedSource_Shared(t *testing.T) {
	shared := NewLockedSource(rand.NewPCG(1, 2))
	assert.Same(t, shared, NewLockedSource(shared))

	a := newRacingRecommender(t, WithRandSource(shared))
	b := newRacingRecommender(t, WithRandSource(shared))
	assert.Same(t, a.rng, b.rng)
}
