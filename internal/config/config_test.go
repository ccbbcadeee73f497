package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"montepi/internal/montecarlo"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()

	assert.Equal(t, uint64(1_000_000), cfg.Samples)
	assert.Equal(t, "equal", cfg.Engine.Policy)
	assert.Equal(t, uint64(10_000), cfg.Engine.MinChunkSize)
	assert.Equal(t, 50*time.Millisecond, cfg.Progress.Interval)
	require.NoError(t, cfg.Validate())
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"samples below minimum", func(c *Config) { c.Samples = 999 }},
		{"zero samples", func(c *Config) { c.Samples = 0 }},
		{"unknown policy", func(c *Config) { c.Engine.Policy = "round-robin" }},
		{"unknown source", func(c *Config) { c.Engine.Source = "mt19937" }},
		{"zero chunk size", func(c *Config) { c.Engine.MinChunkSize = 0 }},
		{"zero chunks per worker", func(c *Config) { c.Engine.ChunksPerWorker = 0 }},
		{"zero batch", func(c *Config) { c.Engine.BatchSize = 0 }},
		{"zero interval", func(c *Config) { c.Progress.Interval = 0 }},
		{"narrow bar", func(c *Config) { c.Progress.Width = 3 }},
		{"bad output format", func(c *Config) { c.Output.Format = "csv" }},
		{"bad log level", func(c *Config) { c.Output.LogLevel = "chatty" }},
		{"bad log format", func(c *Config) { c.Output.LogFormat = "logfmt" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	cfg := Default()
	cfg.Samples = 0
	assert.ErrorIs(t, cfg.Validate(), montecarlo.ErrInvalidSampleCount)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "montepi.yaml")
	content := `samples: 250000
engine:
  policy: bounded
  min_chunk_size: 5000
  source: lcg
  seed: 7
progress:
  interval: 200ms
output:
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)

	assert.Equal(t, uint64(250_000), cfg.Samples)
	assert.Equal(t, "bounded", cfg.Engine.Policy)
	assert.Equal(t, uint64(5000), cfg.Engine.MinChunkSize)
	assert.Equal(t, montecarlo.DefaultChunksPerWorker, cfg.Engine.ChunksPerWorker)
	assert.Equal(t, "lcg", cfg.Engine.Source)
	assert.Equal(t, uint64(7), cfg.Engine.Seed)
	assert.Equal(t, 200*time.Millisecond, cfg.Progress.Interval)
	assert.True(t, cfg.Progress.Enabled)
	assert.Equal(t, "json", cfg.Output.Format)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "montepi.yaml")
	require.NoError(t, os.WriteFile(path, []byte("samples: 10\n"), 0o644))

	_, err := Load(viper.New(), path)
	assert.ErrorIs(t, err, montecarlo.ErrInvalidSampleCount)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("MONTEPI_ENGINE_POLICY", "bounded")
	t.Setenv("MONTEPI_SAMPLES", "5000")
	t.Setenv("MONTEPI_OUTPUT_LOG_LEVEL", "debug")

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, "bounded", cfg.Engine.Policy)
	assert.Equal(t, uint64(5000), cfg.Samples)
	assert.Equal(t, "debug", cfg.Output.LogLevel)
}

func TestEngineOptions(t *testing.T) {
	cfg := Default()
	cfg.Engine.Policy = "bounded"
	cfg.Engine.Source = "lcg"
	cfg.Engine.Seed = 3

	opts, err := cfg.EngineOptions()
	require.NoError(t, err)

	assert.Equal(t, montecarlo.PolicyBounded, opts.Plan.Policy)
	assert.Equal(t, montecarlo.SourceLCG, opts.Source)
	assert.Equal(t, uint64(3), opts.Seed)
	assert.Equal(t, cfg.Samples, opts.Samples)
	assert.Equal(t, cfg.Engine.BatchSize, opts.BatchSize)
}

func TestParseSampleCount(t *testing.T) {
	valid := map[string]uint64{
		"1000":      1000,
		" 250000 ":  250_000,
		"1_000_000": 1_000_000,
		"2,500,000": 2_500_000,
	}
	for in, want := range valid {
		got, err := ParseSampleCount(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, in := range []string{"", "abc", "-5", "999", "0", "1e6"} {
		_, err := ParseSampleCount(in)
		assert.ErrorIs(t, err, montecarlo.ErrInvalidSampleCount, in)
	}
}
