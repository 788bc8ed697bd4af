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

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"

	"github.com/poiesic/gamerec"
	"github.com/poiesic/gamerec/build"
	"github.com/poiesic/gamerec/config"
	"github.com/poiesic/gamerec/core"
	"github.com/poiesic/gamerec/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"
)

// logLevel backs the default logger so a config file can still change
// the level after setupLogger has run.
var logLevel = new(slog.LevelVar)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func dbFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "db",
		Aliases:  []string{"d"},
		Usage:    "Path to BadgerDB database directory",
		Required: true,
	}
}

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to YAML configuration file",
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "gamerec",
		Usage: "Hybrid lexical and semantic game recommender",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "build",
				Usage:  "Build vector spaces from a catalog table",
				Action: buildCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "table",
						Aliases:  []string{"t"},
						Usage:    "CSV file with Title and Description columns",
						Required: true,
					},
					dbFlag(),
					configFlag(),
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report tokenization progress every N entries",
						Value: 100,
					},
					&cli.StringFlag{
						Name:  "metrics-file",
						Usage: "Write build stage metrics in Prometheus text format to this file",
					},
				},
			},
			{
				Name:      "recommend",
				Usage:     "Recommend games similar to a title or keywords",
				ArgsUsage: "<title or keywords...>",
				Action:    recommendCommand,
				Flags: []cli.Flag{
					dbFlag(),
					configFlag(),
					&cli.StringFlag{
						Name:  "mode",
						Usage: "How to read the input (auto, title, keyword)",
						Value: "auto",
					},
					&cli.Uint64Flag{
						Name:  "seed",
						Usage: "Seed for sampling; 0 picks a random seed",
					},
				},
			},
			{
				Name:   "titles",
				Usage:  "List catalog titles in corpus order",
				Action: titlesCommand,
				Flags: []cli.Flag{
					dbFlag(),
				},
			},
		},
	}
}

// loadConfig reads --config when given. Its logging.level applies unless
// --log-level was set on the command line.
func loadConfig(c *cli.Context) (*config.Config, error) {
	path := c.String("config")
	if path == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if !c.IsSet("log-level") {
		level, err := cfg.LogLevel()
		if err != nil {
			return nil, err
		}
		logLevel.Set(level)
	}
	return cfg, nil
}

func buildCommand(c *cli.Context) error {
	ctx := context.Background()

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	table, err := os.Open(filepath.Clean(c.String("table")))
	if err != nil {
		return fmt.Errorf("failed to open table: %w", err)
	}
	defer table.Close()

	registry := prometheus.NewRegistry()
	collector, err := metrics.New(registry)
	if err != nil {
		return err
	}

	svc, err := gamerec.Open(ctx, c.String("db"),
		gamerec.WithConfig(cfg),
		gamerec.WithMetrics(collector))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer svc.Close()

	manifest, err := svc.Build(ctx, table, build.WithProgress(c.App.ErrWriter, c.Int("report-interval")))
	if err != nil {
		var stageErr *build.StageError
		if errors.As(err, &stageErr) {
			return fmt.Errorf("build failed during %s: %w", stageErr.Stage, stageErr.Err)
		}
		return err
	}

	if path := c.String("metrics-file"); path != "" {
		if err := prometheus.WriteToTextfile(path, registry); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
	}

	fmt.Fprintf(c.App.Writer, "Built %d entries: %d terms, %d words x %d dimensions (fingerprint %016x)\n",
		manifest.Entries, manifest.LexicalTerms, manifest.SemanticWords, manifest.Dimension,
		uint64(manifest.Fingerprint))
	return nil
}

func recommendCommand(c *cli.Context) error {
	ctx := context.Background()

	input := strings.Join(c.Args().Slice(), " ")

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	opts := []gamerec.Option{gamerec.WithConfig(cfg)}
	if seed := c.Uint64("seed"); seed != 0 {
		opts = append(opts, gamerec.WithRandSource(rand.NewPCG(seed, seed)))
	}
	svc, err := gamerec.Open(ctx, c.String("db"), opts...)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer svc.Close()

	var rec core.Recommendation
	switch mode := c.String("mode"); mode {
	case "auto":
		rec = svc.Recommend(input)
	case "title":
		rec = svc.RecommendByTitle(input)
	case "keyword":
		rec = svc.RecommendByKeyword(input)
	default:
		return fmt.Errorf("invalid mode %q: must be one of auto, title, keyword", mode)
	}

	if rec.Reason == core.ReasonModelsNotReady {
		return fmt.Errorf("%w: run gamerec build first (%v)", core.ErrModelsNotReady, svc.Err())
	}
	if rec.Empty() {
		fmt.Fprintf(c.App.Writer, "No recommendations (%s", rec.Reason)
		if rec.Detail != core.DetailNone {
			fmt.Fprintf(c.App.Writer, ", %s", rec.Detail)
		}
		fmt.Fprintln(c.App.Writer, ")")
		return nil
	}
	for _, title := range rec.Titles {
		fmt.Fprintln(c.App.Writer, title)
	}
	return nil
}

func titlesCommand(c *cli.Context) error {
	svc, err := gamerec.Open(context.Background(), c.String("db"))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer svc.Close()

	if !svc.Ready() {
		return svc.Err()
	}
	for i, title := range svc.Titles() {
		fmt.Fprintf(c.App.Writer, "%d\t%s\n", i, title)
	}
	return nil
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logLevel.Set(level)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	return nil
}
