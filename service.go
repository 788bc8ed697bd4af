// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package gamerec recommends similar games from a catalog by fusing
// TF-IDF and word vector similarity.
//
// A Service opens the artifacts written by an offline build, checks that
// they describe the same corpus, and answers title and keyword queries.
// Queries never fail: problems are reported through the Reason of the
// returned core.Recommendation.
package gamerec

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"sync"

	"github.com/poiesic/gamerec/build"
	"github.com/poiesic/gamerec/config"
	"github.com/poiesic/gamerec/core"
	"github.com/poiesic/gamerec/lexical"
	"github.com/poiesic/gamerec/metrics"
	"github.com/poiesic/gamerec/search"
	"github.com/poiesic/gamerec/semantic"
	"github.com/poiesic/gamerec/storage"
	"github.com/poiesic/gamerec/storage/badger"
)

// Service answers recommendation queries over persisted artifacts.
type Service struct {
	repository  storage.ArtifactRepository
	ownsRepo    bool
	cfg         *config.Config
	metrics     *metrics.Collector
	randSource  rand.Source
	logger      *slog.Logger
	mu          sync.RWMutex
	recommender *search.Recommender
	dispatcher  *search.Dispatcher
	manifest    core.Manifest
	loadErr     error
}

// Option configures a Service.
type Option func(*Service) error

// WithConfig sets the configuration. Default is config.Default().
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) error {
		if cfg == nil {
			return fmt.Errorf("%w: nil config", config.ErrInvalidConfig)
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		s.cfg = cfg
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithMetrics records queries and builds on c.
func WithMetrics(c *metrics.Collector) Option {
	return func(s *Service) error {
		s.metrics = c
		return nil
	}
}

// WithRandSource fixes the randomness used for sampling.
func WithRandSource(src rand.Source) Option {
	return func(s *Service) error {
		if src != nil {
			src = search.NewLockedSource(src)
		}
		s.randSource = src
		return nil
	}
}

func newService(opts []Option) (*Service, error) {
	s := &Service{
		cfg:    config.Default(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "service")
	return s, nil
}

// Open opens the artifact database at path and loads it. A database
// without a completed build opens successfully but is not ready.
func Open(ctx context.Context, path string, opts ...Option) (*Service, error) {
	s, err := newService(opts)
	if err != nil {
		return nil, err
	}
	repo, err := badger.NewRepository(path, badger.WithLogger(s.logger))
	if err != nil {
		return nil, err
	}
	s.repository = repo
	s.ownsRepo = true
	if err := s.Reload(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// New creates a Service over an existing repository. The repository is
// not closed by Close.
func New(ctx context.Context, repository storage.ArtifactRepository, opts ...Option) (*Service, error) {
	if repository == nil {
		return nil, build.ErrRepositoryRequired
	}
	s, err := newService(opts)
	if err != nil {
		return nil, err
	}
	s.repository = repository
	if err := s.Reload(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Reload reads every artifact again. Missing or misaligned artifacts
// leave the service not ready; only context cancellation and invalid
// configuration are returned as errors.
func (s *Service) Reload(ctx context.Context) error {
	entries, lex, sem, manifest, loadErr := s.load(ctx)
	if loadErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		s.logger.Warn("models not ready", "err", loadErr)
		entries, lex, sem = nil, nil, nil
	}

	recommender, err := search.NewRecommender(entries, lex, sem, s.recommenderOptions()...)
	if err != nil {
		return err
	}
	dispatcherOpts := []search.DispatcherOption{search.WithDispatcherLogger(s.logger)}
	if s.cfg.Workers.Query > 0 {
		dispatcherOpts = append(dispatcherOpts, search.WithPoolSize(s.cfg.Workers.Query))
	}
	dispatcher, err := search.NewDispatcher(recommender, dispatcherOpts...)
	if err != nil {
		return err
	}

	s.mu.Lock()
	old := s.dispatcher
	s.recommender = recommender
	s.dispatcher = dispatcher
	s.manifest = manifest
	s.loadErr = loadErr
	s.mu.Unlock()

	if old != nil {
		old.Release()
	}
	if loadErr == nil {
		s.logger.Info("models loaded",
			"entries", manifest.Entries,
			"terms", manifest.LexicalTerms,
			"words", manifest.SemanticWords)
	}
	return nil
}

func (s *Service) load(ctx context.Context) ([]core.CorpusEntry, *lexical.Space, *semantic.Model, core.Manifest, error) {
	manifest, err := s.repository.LoadManifest(ctx)
	if err != nil {
		return nil, nil, nil, core.Manifest{}, fmt.Errorf("%w: manifest: %w", core.ErrModelsNotReady, err)
	}
	entries, err := s.repository.LoadCorpus(ctx)
	if err != nil {
		return nil, nil, nil, manifest, fmt.Errorf("%w: corpus: %w", core.ErrModelsNotReady, err)
	}
	lex, err := s.repository.LoadLexical(ctx)
	if err != nil {
		return nil, nil, nil, manifest, fmt.Errorf("%w: lexical space: %w", core.ErrModelsNotReady, err)
	}
	sem, err := s.repository.LoadSemantic(ctx)
	if err != nil {
		return nil, nil, nil, manifest, fmt.Errorf("%w: word vectors: %w", core.ErrModelsNotReady, err)
	}
	if err := checkAlignment(manifest, entries, lex, sem); err != nil {
		return nil, nil, nil, manifest, err
	}
	return entries, lex, sem, manifest, nil
}

// checkAlignment verifies that every artifact was produced by the build
// the manifest describes.
func checkAlignment(m core.Manifest, entries []core.CorpusEntry, lex *lexical.Space, sem *semantic.Model) error {
	misaligned := func(format string, args ...any) error {
		return fmt.Errorf("%w: %w: %s", core.ErrModelsNotReady, search.ErrMisaligned, fmt.Sprintf(format, args...))
	}
	switch {
	case core.FingerprintCorpus(entries) != m.Fingerprint:
		return misaligned("corpus fingerprint %016x, manifest %016x", uint64(core.FingerprintCorpus(entries)), uint64(m.Fingerprint))
	case len(entries) != m.Entries:
		return misaligned("%d entries, manifest %d", len(entries), m.Entries)
	case lex.Len() != len(entries):
		return misaligned("%d lexical rows for %d entries", lex.Len(), len(entries))
	case lex.Model().Size() != m.LexicalTerms:
		return misaligned("%d lexical terms, manifest %d", lex.Model().Size(), m.LexicalTerms)
	case sem.Len() != m.SemanticWords:
		return misaligned("%d word vectors, manifest %d", sem.Len(), m.SemanticWords)
	case sem.Dimension() != m.Dimension:
		return misaligned("dimension %d, manifest %d", sem.Dimension(), m.Dimension)
	}
	return nil
}

func (s *Service) recommenderOptions() []search.Option {
	opts := []search.Option{
		search.WithLogger(s.logger),
		search.WithAlpha(s.cfg.Ranking.Alpha),
		search.WithTopK(s.cfg.Ranking.TopK),
		search.WithSampleSize(s.cfg.Ranking.SampleSize),
		search.WithTokenizer(s.cfg.Tokenizer()),
		search.WithWeightedSentences(s.cfg.Ranking.WeightedSentences),
		search.WithMetrics(s.metrics),
	}
	if s.randSource != nil {
		opts = append(opts, search.WithRandSource(s.randSource))
	}
	return opts
}

// Build runs the offline build from a CSV table into the service's
// repository and reloads the result.
func (s *Service) Build(ctx context.Context, table io.Reader, opts ...build.Option) (core.Manifest, error) {
	pipelineOpts := []build.Option{
		build.WithLogger(s.logger),
		build.WithCorpusBuilder(s.cfg.CorpusBuilder(s.logger)),
		build.WithTrainConfig(s.cfg.Semantic),
		build.WithSublinearTF(s.cfg.Lexical.SublinearTF),
		build.WithMetrics(s.metrics),
	}
	if s.cfg.Workers.Build > 0 {
		pipelineOpts = append(pipelineOpts, build.WithPoolSize(s.cfg.Workers.Build))
	}
	pipeline, err := build.NewPipeline(s.repository, append(pipelineOpts, opts...)...)
	if err != nil {
		return core.Manifest{}, err
	}
	defer pipeline.Release()

	res, err := pipeline.Run(ctx, table)
	if err != nil {
		return core.Manifest{}, err
	}
	if err := s.Reload(ctx); err != nil {
		return core.Manifest{}, err
	}
	return res.Manifest, nil
}

func (s *Service) current() *search.Recommender {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.recommender
}

// Ready reports whether queries can be answered.
func (s *Service) Ready() bool {
	return s.current().Ready()
}

// Err returns why the service is not ready, or nil.
func (s *Service) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadErr
}

// Manifest returns the manifest of the loaded build.
func (s *Service) Manifest() (core.Manifest, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.manifest, s.loadErr == nil
}

// Titles returns the catalog titles in corpus order.
func (s *Service) Titles() []string {
	return s.current().Titles()
}

// Recommend resolves input as a title or keyword and answers it.
func (s *Service) Recommend(input string) core.Recommendation {
	return s.current().Recommend(input)
}

// RecommendByTitle recommends games similar to an exact catalog title.
func (s *Service) RecommendByTitle(title string) core.Recommendation {
	return s.current().ByTitle(title)
}

// RecommendByIndex recommends games similar to the entry at index i.
func (s *Service) RecommendByIndex(i int) core.Recommendation {
	return s.current().ByIndex(i)
}

// RecommendByKeyword recommends games lexically matching text.
func (s *Service) RecommendByKeyword(text string) core.Recommendation {
	return s.current().ByKeyword(text)
}

func (s *Service) currentDispatcher() *search.Dispatcher {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dispatcher
}

// Submit answers input on the query pool. The returned channel receives
// exactly one result. Submit may block while the pool is saturated; it
// never holds the service lock while doing so.
func (s *Service) Submit(input string) (<-chan core.Recommendation, error) {
	for {
		d := s.currentDispatcher()
		if d == nil {
			return nil, search.ErrDispatcherClosed
		}
		ch, err := d.Submit(input)
		if errors.Is(err, search.ErrDispatcherClosed) && s.currentDispatcher() != d {
			// Reload swapped the pool; retry on the new one.
			continue
		}
		return ch, err
	}
}

// Close stops the query pool and closes the repository if Open created it.
func (s *Service) Close() error {
	s.mu.Lock()
	dispatcher := s.dispatcher
	s.dispatcher = nil
	s.mu.Unlock()

	if dispatcher != nil {
		dispatcher.Release()
	}
	if s.ownsRepo && s.repository != nil {
		if err := s.repository.Close(); err != nil {
			s.logger.Error("error closing repository", "err", err)
			return err
		}
	}
	return nil
}
