package main

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/poiesic/gamerec/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

const testTable = `Title,Description
Speed Demon,fast racing cars on a track
Track Master,racing simulator with fast cars
Chef Life,cooking recipes in the kitchen
Kitchen Rush,busy kitchen cooking under pressure
`

const testConfig = `
semantic:
  dimension: 8
  window: 2
  min_count: 1
  epochs: 5
  negative: 2
workers:
  build: 2
  query: 1
`

// run executes the app and returns what it wrote to stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = io.Discard
	err := app.Run(append([]string{"gamerec", "--log-level", "error"}, args...))
	return out.String(), err
}

type fixture struct {
	dir    string
	db     string
	table  string
	config string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	f := fixture{
		dir:    dir,
		db:     filepath.Join(dir, "model"),
		table:  filepath.Join(dir, "games.csv"),
		config: filepath.Join(dir, "gamerec.yaml"),
	}
	require.NoError(t, os.WriteFile(f.table, []byte(testTable), 0o600))
	require.NoError(t, os.WriteFile(f.config, []byte(testConfig), 0o600))
	return f
}

func (f fixture) build(t *testing.T) {
	t.Helper()
	out, err := run(t, "build", "--table", f.table, "--db", f.db, "--config", f.config)
	require.NoError(t, err)
	assert.Contains(t, out, "Built 4 entries")
}

func TestCommandFlags(t *testing.T) {
	t.Run("build requires table", func(t *testing.T) {
		_, err := run(t, "build", "--db", t.TempDir())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "table")
	})

	t.Run("recommend requires db", func(t *testing.T) {
		_, err := run(t, "recommend", "racing")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "db")
	})

	t.Run("mode defaults to auto", func(t *testing.T) {
		cmd := newApp().Command("recommend")
		require.NotNil(t, cmd)
		var modeFlag *cli.StringFlag
		for _, flag := range cmd.Flags {
			if f, ok := flag.(*cli.StringFlag); ok && f.Name == "mode" {
				modeFlag = f
			}
		}
		require.NotNil(t, modeFlag)
		assert.Equal(t, "auto", modeFlag.Value)
	})
}

func TestBuildAndRecommend(t *testing.T) {
	f := newFixture(t)
	f.build(t)

	t.Run("titles", func(t *testing.T) {
		out, err := run(t, "titles", "--db", f.db)
		require.NoError(t, err)
		assert.Equal(t, "0\tspeed demon\n1\ttrack master\n2\tchef life\n3\tkitchen rush\n", out)
	})

	t.Run("keyword", func(t *testing.T) {
		out, err := run(t, "recommend", "--db", f.db, "--config", f.config, "--mode", "keyword", "simulator")
		require.NoError(t, err)
		assert.Equal(t, "track master\n", out)
	})

	t.Run("title", func(t *testing.T) {
		out, err := run(t, "recommend", "--db", f.db, "--config", f.config, "--seed", "42", "--mode", "title", "Speed", "Demon")
		require.NoError(t, err)
		lines := strings.Split(strings.TrimSpace(out), "\n")
		assert.ElementsMatch(t, []string{"track master", "chef life", "kitchen rush"}, lines)
	})

	t.Run("no overlap", func(t *testing.T) {
		out, err := run(t, "recommend", "--db", f.db, "spreadsheet")
		require.NoError(t, err)
		assert.Equal(t, "No recommendations (no_candidates, no_overlap)\n", out)
	})

	t.Run("blank input", func(t *testing.T) {
		out, err := run(t, "recommend", "--db", f.db)
		require.NoError(t, err)
		assert.Equal(t, "No recommendations (empty_query)\n", out)
	})

	t.Run("invalid mode", func(t *testing.T) {
		_, err := run(t, "recommend", "--db", f.db, "--mode", "fuzzy", "racing")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid mode")
	})
}

func TestBuildMetricsFile(t *testing.T) {
	f := newFixture(t)
	metricsPath := filepath.Join(f.dir, "build.prom")

	_, err := run(t, "build", "--table", f.table, "--db", f.db, "--config", f.config, "--metrics-file", metricsPath)
	require.NoError(t, err)

	data, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "gamerec_build_stage_duration_seconds")
	assert.Contains(t, string(data), `stage="persist"`)
}

func TestBuildFailures(t *testing.T) {
	f := newFixture(t)

	t.Run("missing table file", func(t *testing.T) {
		_, err := run(t, "build", "--table", filepath.Join(f.dir, "nope.csv"), "--db", f.db)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to open table")
	})

	t.Run("bad schema names the stage", func(t *testing.T) {
		bad := filepath.Join(f.dir, "bad.csv")
		require.NoError(t, os.WriteFile(bad, []byte("Name,Blurb\nx,y\n"), 0o600))
		_, err := run(t, "build", "--table", bad, "--db", f.db, "--config", f.config)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "build failed during load")
		assert.ErrorIs(t, err, core.ErrMissingColumn)
	})

	t.Run("invalid config", func(t *testing.T) {
		cfg := filepath.Join(f.dir, "bad.yaml")
		require.NoError(t, os.WriteFile(cfg, []byte("ranking:\n  alpha: 4\n"), 0o600))
		_, err := run(t, "build", "--table", f.table, "--db", f.db, "--config", cfg)
		require.Error(t, err)
	})
}

func TestRecommendBeforeBuild(t *testing.T) {
	db := filepath.Join(t.TempDir(), "empty")

	_, err := run(t, "recommend", "--db", db, "racing")
	assert.ErrorIs(t, err, core.ErrModelsNotReady)

	_, err = run(t, "titles", "--db", db)
	assert.ErrorIs(t, err, core.ErrModelsNotReady)
}

func TestSetupLogger(t *testing.T) {
	for _, level := range []string{"debug", "INFO", "WaRn", "error"} {
		t.Run(level, func(t *testing.T) {
			app := &cli.App{
				Name:   "test",
				Flags:  []cli.Flag{&cli.StringFlag{Name: "log-level", Value: "info"}},
				Before: setupLogger,
				Action: func(c *cli.Context) error { return nil },
			}
			require.NoError(t, app.Run([]string{"test", "--log-level", level}))
		})
	}

	t.Run("invalid", func(t *testing.T) {
		app := &cli.App{
			Name:   "test",
			Flags:  []cli.Flag{&cli.StringFlag{Name: "log-level", Value: "info"}},
			Before: setupLogger,
			Action: func(c *cli.Context) error { return nil },
		}
		err := app.Run([]string{"test", "--log-level", "invalid"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})
}

func TestConfigLogLevel(t *testing.T) {
	f := newFixture(t)
	debugConfig := filepath.Join(f.dir, "debug.yaml")
	require.NoError(t, os.WriteFile(debugConfig, []byte(testConfig+"logging:\n  level: debug\n"), 0o600))
	db := filepath.Join(f.dir, "empty")
	t.Cleanup(func() { logLevel.Set(slog.LevelInfo) })

	recommend := func(args ...string) {
		app := newApp()
		app.Writer = io.Discard
		app.ErrWriter = io.Discard
		err := app.Run(append(args, "recommend", "--db", db, "--config", debugConfig, "racing"))
		assert.ErrorIs(t, err, core.ErrModelsNotReady)
	}

	t.Run("config level applies without flag", func(t *testing.T) {
		recommend("gamerec")
		assert.Equal(t, slog.LevelDebug, logLevel.Level())
	})

	t.Run("flag overrides config", func(t *testing.T) {
		recommend("gamerec", "--log-level", "warn")
		assert.Equal(t, slog.LevelWarn, logLevel.Level())
	})

	t.Run("default config leaves flag level", func(t *testing.T) {
		app := newApp()
		app.Writer = io.Discard
		app.ErrWriter = io.Discard
		err := app.Run([]string{"gamerec", "recommend", "--db", db, "racing"})
		assert.ErrorIs(t, err, core.ErrModelsNotReady)
		assert.Equal(t, slog.LevelInfo, logLevel.Level())
	})
}
