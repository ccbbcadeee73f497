package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"montepi/internal/logging"
	"montepi/internal/montecarlo"
)

// EnvPrefix is prepended to every environment override, e.g.
// MONTEPI_ENGINE_POLICY=bounded.
const EnvPrefix = "MONTEPI"

// Config holds all montepi settings.
type Config struct {
	Samples  uint64         `mapstructure:"samples" yaml:"samples"`
	Engine   EngineConfig   `mapstructure:"engine" yaml:"engine"`
	Progress ProgressConfig `mapstructure:"progress" yaml:"progress"`
	Output   OutputConfig   `mapstructure:"output" yaml:"output"`
}

// EngineConfig controls partitioning and sampling.
type EngineConfig struct {
	Policy          string `mapstructure:"policy" yaml:"policy"`
	MinChunkSize    uint64 `mapstructure:"min_chunk_size" yaml:"min_chunk_size"`
	ChunksPerWorker int    `mapstructure:"chunks_per_worker" yaml:"chunks_per_worker"`
	BatchSize       uint64 `mapstructure:"batch_size" yaml:"batch_size"`
	Source          string `mapstructure:"source" yaml:"source"`
	// Seed 0 means pick one at startup.
	Seed uint64 `mapstructure:"seed" yaml:"seed"`
}

// ProgressConfig controls the live progress view.
type ProgressConfig struct {
	Enabled  bool          `mapstructure:"enabled" yaml:"enabled"`
	Interval time.Duration `mapstructure:"interval" yaml:"interval"`
	Width    int           `mapstructure:"width" yaml:"width"`
}

// OutputConfig controls result and log output.
type OutputConfig struct {
	Format    string `mapstructure:"format" yaml:"format"`
	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Samples: montecarlo.DefaultSamples,
		Engine: EngineConfig{
			Policy:          montecarlo.PolicyEqualSplit.String(),
			MinChunkSize:    montecarlo.DefaultMinChunkSize,
			ChunksPerWorker: montecarlo.DefaultChunksPerWorker,
			BatchSize:       montecarlo.DefaultBatchSize,
			Source:          string(montecarlo.SourcePCG),
		},
		Progress: ProgressConfig{
			Enabled:  true,
			Interval: 50 * time.Millisecond,
			Width:    50,
		},
		Output: OutputConfig{
			Format:    "text",
			LogLevel:  "info",
			LogFormat: "text",
		},
	}
}

// SetDefaults registers Default() with v so that env overrides and bound
// flags resolve against it.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("samples", d.Samples)
	v.SetDefault("engine.policy", d.Engine.Policy)
	v.SetDefault("engine.min_chunk_size", d.Engine.MinChunkSize)
	v.SetDefault("engine.chunks_per_worker", d.Engine.ChunksPerWorker)
	v.SetDefault("engine.batch_size", d.Engine.BatchSize)
	v.SetDefault("engine.source", d.Engine.Source)
	v.SetDefault("engine.seed", d.Engine.Seed)
	v.SetDefault("progress.enabled", d.Progress.Enabled)
	v.SetDefault("progress.interval", d.Progress.Interval)
	v.SetDefault("progress.width", d.Progress.Width)
	v.SetDefault("output.format", d.Output.Format)
	v.SetDefault("output.log_level", d.Output.LogLevel)
	v.SetDefault("output.log_format", d.Output.LogFormat)
}

// Load reads path (if not empty) plus MONTEPI_* environment variables into a
// validated Config.
func Load(v *viper.Viper, path string) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// Validate checks every field.
func (c *Config) Validate() error {
	var errs []error

	if c.Samples < montecarlo.MinSamples {
		errs = append(errs, fmt.Errorf("samples: %w: %d is below %d", montecarlo.ErrInvalidSampleCount, c.Samples, montecarlo.MinSamples))
	}
	if _, err := montecarlo.ParsePolicy(c.Engine.Policy); err != nil {
		errs = append(errs, fmt.Errorf("engine.policy: %w", err))
	}
	if _, err := montecarlo.ParseSourceKind(c.Engine.Source); err != nil {
		errs = append(errs, fmt.Errorf("engine.source: %w", err))
	}
	if c.Engine.MinChunkSize == 0 {
		errs = append(errs, fmt.Errorf("engine.min_chunk_size: %w: 0", montecarlo.ErrInvalidChunkSize))
	}
	if c.Engine.ChunksPerWorker < 1 {
		errs = append(errs, fmt.Errorf("engine.chunks_per_worker must be positive, got %d", c.Engine.ChunksPerWorker))
	}
	if c.Engine.BatchSize == 0 {
		errs = append(errs, errors.New("engine.batch_size must be positive"))
	}
	if c.Progress.Interval <= 0 {
		errs = append(errs, fmt.Errorf("progress.interval must be positive, got %s", c.Progress.Interval))
	}
	if c.Progress.Width < 10 {
		errs = append(errs, fmt.Errorf("progress.width must be at least 10, got %d", c.Progress.Width))
	}
	switch strings.ToLower(c.Output.Format) {
	case "text", "json", "yaml":
	default:
		errs = append(errs, fmt.Errorf("output.format must be text, json or yaml, got %q", c.Output.Format))
	}
	if _, err := logging.ParseLevel(c.Output.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("output.log_level: %w", err))
	}
	if _, err := logging.ParseFormat(c.Output.LogFormat); err != nil {
		errs = append(errs, fmt.Errorf("output.log_format: %w", err))
	}

	return errors.Join(errs...)
}

// EngineOptions converts the engine section into run options. Workers, seed
// resolution and the logger are left to the caller.
func (c *Config) EngineOptions() (montecarlo.Options, error) {
	policy, err := montecarlo.ParsePolicy(c.Engine.Policy)
	if err != nil {
		return montecarlo.Options{}, err
	}
	source, err := montecarlo.ParseSourceKind(c.Engine.Source)
	if err != nil {
		return montecarlo.Options{}, err
	}
	return montecarlo.Options{
		Samples: c.Samples,
		Plan: montecarlo.Plan{
			Policy:          policy,
			MinChunkSize:    c.Engine.MinChunkSize,
			ChunksPerWorker: c.Engine.ChunksPerWorker,
		},
		BatchSize: c.Engine.BatchSize,
		Seed:      c.Engine.Seed,
		Source:    source,
	}, nil
}

// ParseSampleCount strictly parses a user supplied sample count. Underscores
// and commas are accepted as digit separators.
func ParseSampleCount(raw string) (uint64, error) {
	cleaned := strings.NewReplacer("_", "", ",", "").Replace(strings.TrimSpace(raw))
	n, err := strconv.ParseUint(cleaned, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a whole number", montecarlo.ErrInvalidSampleCount, raw)
	}
	if n < montecarlo.MinSamples {
		return 0, fmt.Errorf("%w: %d is below the minimum of %d", montecarlo.ErrInvalidSampleCount, n, montecarlo.MinSamples)
	}
	return n, nil
}
