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

package build

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/gamerec/core"
	"github.com/poiesic/gamerec/corpus"
	"github.com/poiesic/gamerec/lexical"
	"github.com/poiesic/gamerec/metrics"
	"github.com/poiesic/gamerec/semantic"
	"github.com/poiesic/gamerec/storage"
)

// Result holds everything one build produced.
type Result struct {
	Entries  []core.CorpusEntry
	Lexical  *lexical.Space
	Semantic *semantic.Model
	Manifest core.Manifest
}

// Pipeline turns a catalog table into persisted vector spaces.
type Pipeline struct {
	repository  storage.ArtifactRepository
	builder     *corpus.Builder
	pool        *ants.Pool
	train       semantic.TrainConfig
	sublinearTF bool
	metrics     *metrics.Collector
	reporter    *stageReporter
	now         func() time.Time
	logger      *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the tokenization worker pool size.
// Default is runtime.NumCPU().
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}
		if p.pool != nil {
			p.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithCorpusBuilder sets the builder that tokenizes table rows.
// Default is corpus.NewBuilder().
func WithCorpusBuilder(builder *corpus.Builder) Option {
	return func(p *Pipeline) error {
		if builder != nil {
			p.builder = builder
		}
		return nil
	}
}

// WithTrainConfig sets the word vector training hyperparameters.
// Default is semantic.DefaultTrainConfig().
func WithTrainConfig(cfg semantic.TrainConfig) Option {
	return func(p *Pipeline) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		p.train = cfg
		return nil
	}
}

// WithSublinearTF controls term frequency damping in the lexical space.
// Default is true.
func WithSublinearTF(enabled bool) Option {
	return func(p *Pipeline) error {
		p.sublinearTF = enabled
		return nil
	}
}

// WithMetrics records per-stage durations.
func WithMetrics(c *metrics.Collector) Option {
	return func(p *Pipeline) error {
		p.metrics = c
		return nil
	}
}

// WithProgress writes one status line per stage to w. The tokenize
// line is refreshed every interval entries.
func WithProgress(w io.Writer, interval int) Option {
	return func(p *Pipeline) error {
		p.reporter = newStageReporter(w, interval)
		return nil
	}
}

// WithClock overrides the time source used for the manifest timestamp.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) error {
		if now != nil {
			p.now = now
		}
		return nil
	}
}

// NewPipeline creates a build pipeline that persists into repository.
func NewPipeline(repository storage.ArtifactRepository, opts ...Option) (*Pipeline, error) {
	if repository == nil {
		return nil, ErrRepositoryRequired
	}

	pool, err := ants.NewPool(runtime.NumCPU())
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		repository:  repository,
		builder:     corpus.NewBuilder(),
		pool:        pool,
		train:       semantic.DefaultTrainConfig(),
		sublinearTF: true,
		now:         time.Now,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}
	p.logger = p.logger.With("component", "build")
	return p, nil
}

// Release stops the worker pool.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}

// Run builds every artifact from a CSV table. The manifest is written
// only after all other artifacts have been saved.
func (p *Pipeline) Run(ctx context.Context, table io.Reader) (*Result, error) {
	if table == nil {
		return nil, stageError(StageLoad, ErrTableRequired)
	}

	var rows []corpus.Row
	err := p.stage(ctx, StageLoad, 0, func() error {
		raw, err := corpus.ReadCSV(table)
		if err != nil {
			return err
		}
		rows = corpus.Normalize(raw)
		if len(rows) == 0 {
			return ErrEmptyTable
		}
		p.logger.Info("table loaded", "rows", len(raw), "entries", len(rows))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p.RunRows(ctx, rows)
}

// RunRows builds every artifact from rows that have already been
// normalized.
func (p *Pipeline) RunRows(ctx context.Context, rows []corpus.Row) (*Result, error) {
	if len(rows) == 0 {
		return nil, stageError(StageLoad, ErrEmptyTable)
	}

	res := &Result{}
	err := p.stage(ctx, StageTokenize, len(rows), func() error {
		entries, err := p.tokenize(ctx, rows)
		if err != nil {
			return err
		}
		if err := core.ValidateCorpus(entries); err != nil {
			return err
		}
		res.Entries = entries
		return nil
	})
	if err != nil {
		return nil, err
	}

	docs := core.TokenDocuments(res.Entries)

	err = p.stage(ctx, StageLexical, 0, func() error {
		space, err := lexical.Fit(docs, lexical.WithSublinearTF(p.sublinearTF))
		if err != nil {
			return err
		}
		res.Lexical = space
		p.logger.Info("lexical space fitted", "terms", space.Model().Size(), "rows", space.Len())
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = p.stage(ctx, StageSemantic, 0, func() error {
		model, err := semantic.Train(ctx, docs, p.train)
		if err != nil {
			return err
		}
		res.Semantic = model
		p.logger.Info("word vectors trained", "words", model.Len(), "dimension", model.Dimension())
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = p.stage(ctx, StagePersist, 0, func() error {
		manifest, err := p.persist(ctx, res)
		if err != nil {
			return err
		}
		res.Manifest = manifest
		return nil
	})
	if err != nil {
		return nil, err
	}

	p.logger.Info("build complete",
		"entries", res.Manifest.Entries,
		"fingerprint", fmt.Sprintf("%016x", uint64(res.Manifest.Fingerprint)))
	return res, nil
}

// stage runs fn, times it and tags any failure with the stage name.
// total is the entry count the stage reports progress against.
func (p *Pipeline) stage(ctx context.Context, stage Stage, total int, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return stageError(stage, err)
	}
	start := time.Now()
	p.logger.Debug("stage started", "stage", stage)
	p.reporter.begin(stage, total)
	err := fn()
	elapsed := time.Since(start)
	p.reporter.end(elapsed, err)
	p.metrics.ObserveBuildStage(string(stage), elapsed)
	if err != nil {
		p.logger.Error("stage failed", "stage", stage, "err", err)
		return stageError(stage, err)
	}
	p.logger.Debug("stage finished", "stage", stage, "elapsed", elapsed)
	return nil
}

// tokenize fans rows out over the pool. Each worker writes only its own
// slot, so entry order follows row order.
func (p *Pipeline) tokenize(ctx context.Context, rows []corpus.Row) ([]core.CorpusEntry, error) {
	entries := make([]core.CorpusEntry, len(rows))

	var wg sync.WaitGroup
	for i := range rows {
		if err := ctx.Err(); err != nil {
			wg.Wait()
			return nil, err
		}
		wg.Add(1)
		err := p.pool.Submit(func() {
			defer wg.Done()
			entries[i] = p.builder.Entry(rows[i])
			p.reporter.advance()
		})
		if err != nil {
			wg.Done()
			wg.Wait()
			return nil, fmt.Errorf("submit row %d: %w", i, err)
		}
	}
	wg.Wait()

	p.logger.Info("corpus tokenized", "entries", len(entries))
	return entries, nil
}

func (p *Pipeline) persist(ctx context.Context, res *Result) (core.Manifest, error) {
	if err := p.repository.SaveCorpus(ctx, res.Entries); err != nil {
		return core.Manifest{}, fmt.Errorf("save corpus: %w", err)
	}
	if err := p.repository.SaveLexical(ctx, res.Lexical); err != nil {
		return core.Manifest{}, fmt.Errorf("save lexical space: %w", err)
	}
	if err := p.repository.SaveSemantic(ctx, res.Semantic); err != nil {
		return core.Manifest{}, fmt.Errorf("save word vectors: %w", err)
	}

	manifest := core.Manifest{
		Fingerprint:   core.FingerprintCorpus(res.Entries),
		Entries:       len(res.Entries),
		LexicalTerms:  res.Lexical.Model().Size(),
		SemanticWords: res.Semantic.Len(),
		Dimension:     res.Semantic.Dimension(),
		BuiltAt:       p.now().UTC().Truncate(time.Microsecond),
	}
	if err := p.repository.SaveManifest(ctx, manifest); err != nil {
		return core.Manifest{}, fmt.Errorf("save manifest: %w", err)
	}
	return manifest, nil
}
