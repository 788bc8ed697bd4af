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

// Package config holds the hyperparameters and runtime settings of the
// recommender. Settings come from Default, optionally overlaid with a
// YAML file and functional options.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/poiesic/gamerec/corpus"
	"github.com/poiesic/gamerec/semantic"
	"github.com/poiesic/gamerec/tokenize"
	"gopkg.in/yaml.v3"
)

// Config is the complete recommender configuration.
type Config struct {
	Ranking  RankingConfig        `yaml:"ranking"`
	Lexical  LexicalConfig        `yaml:"lexical"`
	Semantic semantic.TrainConfig `yaml:"semantic"`
	Corpus   CorpusConfig         `yaml:"corpus"`
	Workers  WorkersConfig        `yaml:"workers"`
	Logging  LoggingConfig        `yaml:"logging"`
}

// RankingConfig controls score fusion and sampling.
type RankingConfig struct {
	// Alpha weights the lexical score; 1-Alpha weights the semantic score.
	// Default: 0.5
	Alpha float64 `yaml:"alpha"`

	// TopK is the size of the ranked list results are sampled from.
	// Default: 10
	TopK int `yaml:"top_k"`

	// SampleSize is the number of titles returned per query.
	// Default: 5
	SampleSize int `yaml:"sample_size"`

	// WeightedSentences averages word vectors by IDF instead of uniformly.
	WeightedSentences bool `yaml:"weighted_sentences"`
}

// LexicalConfig controls TF-IDF fitting.
type LexicalConfig struct {
	SublinearTF bool `yaml:"sublinear_tf"`
}

// CorpusConfig controls tokenization of the catalog.
type CorpusConfig struct {
	MinEnglishLength int      `yaml:"min_english_length"`
	MinKoreanLength  int      `yaml:"min_korean_length"`
	Korean           bool     `yaml:"korean"`
	StopWords        []string `yaml:"stop_words"`
	TitleInText      bool     `yaml:"title_in_text"`
	TitleFallback    bool     `yaml:"title_fallback"`
}

// WorkersConfig sizes the worker pools. Zero means runtime.NumCPU().
type WorkersConfig struct {
	Build int `yaml:"build"`
	Query int `yaml:"query"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// Option is a functional option for configuring a Config.
type Option func(*Config)

// WithAlpha sets the lexical weight of the fused score.
func WithAlpha(alpha float64) Option {
	return func(c *Config) {
		c.Ranking.Alpha = alpha
	}
}

// WithTopK sets the ranked list length.
func WithTopK(k int) Option {
	return func(c *Config) {
		c.Ranking.TopK = k
	}
}

// WithSampleSize sets the number of titles returned per query.
func WithSampleSize(n int) Option {
	return func(c *Config) {
		c.Ranking.SampleSize = n
	}
}

// WithWeightedSentences enables IDF weighted sentence vectors.
func WithWeightedSentences(enabled bool) Option {
	return func(c *Config) {
		c.Ranking.WeightedSentences = enabled
	}
}

// WithTrainConfig replaces the word vector training settings.
func WithTrainConfig(cfg semantic.TrainConfig) Option {
	return func(c *Config) {
		c.Semantic = cfg
	}
}

// WithTitleFallback enables relaxed title tokens for items whose text
// yields no tokens.
func WithTitleFallback(enabled bool) Option {
	return func(c *Config) {
		c.Corpus.TitleFallback = enabled
	}
}

// WithPoolSizes sets the build and query worker pool sizes.
func WithPoolSizes(build, query int) Option {
	return func(c *Config) {
		c.Workers.Build = build
		c.Workers.Query = query
	}
}

// WithLogLevel sets the log level name.
func WithLogLevel(level string) Option {
	return func(c *Config) {
		c.Logging.Level = level
	}
}

// Default returns the interactive defaults: equal lexical and semantic
// weight, five titles sampled from the top ten.
func Default() *Config {
	return &Config{
		Ranking: RankingConfig{
			Alpha:      0.5,
			TopK:       10,
			SampleSize: 5,
		},
		Lexical: LexicalConfig{
			SublinearTF: true,
		},
		Semantic: semantic.DefaultTrainConfig(),
		Corpus: CorpusConfig{
			MinEnglishLength: 3,
			MinKoreanLength:  2,
			Korean:           true,
			TitleInText:      true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// New creates a Config with the default values and applies opts.
func New(opts ...Option) *Config {
	cfg := Default()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Load reads a YAML file over the defaults, applies opts and validates
// the result. Keys missing from the file keep their default values.
func Load(path string, opts ...Option) (*Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadConfig, err)
	}
	return Parse(data, opts...)
}

// Parse decodes YAML over the defaults, applies opts and validates the
// result.
func Parse(data []byte, opts ...Option) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadConfig, err)
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	r := c.Ranking
	switch {
	case r.Alpha < 0 || r.Alpha > 1:
		return fmt.Errorf("%w: ranking.alpha must be in [0, 1], got %g", ErrInvalidConfig, r.Alpha)
	case r.TopK < 1:
		return fmt.Errorf("%w: ranking.top_k must be positive, got %d", ErrInvalidConfig, r.TopK)
	case r.SampleSize < 1:
		return fmt.Errorf("%w: ranking.sample_size must be positive, got %d", ErrInvalidConfig, r.SampleSize)
	case r.SampleSize > r.TopK:
		return fmt.Errorf("%w: ranking.sample_size %d exceeds top_k %d", ErrInvalidConfig, r.SampleSize, r.TopK)
	case c.Corpus.MinEnglishLength < 1:
		return fmt.Errorf("%w: corpus.min_english_length must be positive", ErrInvalidConfig)
	case c.Corpus.MinKoreanLength < 1:
		return fmt.Errorf("%w: corpus.min_korean_length must be positive", ErrInvalidConfig)
	case c.Workers.Build < 0 || c.Workers.Query < 0:
		return fmt.Errorf("%w: worker pool sizes cannot be negative", ErrInvalidConfig)
	}
	if err := c.Semantic.Validate(); err != nil {
		return fmt.Errorf("%w: semantic: %w", ErrInvalidConfig, err)
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	return nil
}

// LogLevel parses Logging.Level. An empty level means info.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if c.Logging.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(c.Logging.Level)); err != nil {
		return 0, fmt.Errorf("%w: logging.level: %w", ErrInvalidConfig, err)
	}
	return level, nil
}

// Tokenizer builds the tokenizer described by Corpus.
func (c *Config) Tokenizer() *tokenize.Tokenizer {
	opts := []tokenize.Option{
		tokenize.WithMinEnglishLength(c.Corpus.MinEnglishLength),
		tokenize.WithMinKoreanLength(c.Corpus.MinKoreanLength),
	}
	if len(c.Corpus.StopWords) > 0 {
		opts = append(opts, tokenize.WithStopWords(c.Corpus.StopWords...))
	}
	if !c.Corpus.Korean {
		opts = append(opts, tokenize.WithoutKorean())
	}
	return tokenize.New(opts...)
}

// CorpusBuilder builds the corpus builder described by Corpus.
func (c *Config) CorpusBuilder(logger *slog.Logger) *corpus.Builder {
	return corpus.NewBuilder(
		corpus.WithTokenizer(c.Tokenizer()),
		corpus.WithTitleInText(c.Corpus.TitleInText),
		corpus.WithTitleFallback(c.Corpus.TitleFallback),
		corpus.WithLogger(logger),
	)
}
