package main

import (
	"fmt"
	"io"
	"runtime"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"montepi/internal/config"
	"montepi/internal/logging"
	"montepi/internal/montecarlo"
	"montepi/internal/progress"
)

type rootOptions struct {
	configPath string
	strict     bool
}

// flagKeys maps command line flags onto config keys.
var flagKeys = map[string]string{
	"policy":            "engine.policy",
	"min-chunk":         "engine.min_chunk_size",
	"chunks-per-worker": "engine.chunks_per_worker",
	"batch":             "engine.batch_size",
	"source":            "engine.source",
	"seed":              "engine.seed",
	"progress":          "progress.enabled",
	"interval":          "progress.interval",
	"width":             "progress.width",
	"output":            "output.format",
	"log-level":         "output.log_level",
	"log-format":        "output.log_format",
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	var opts rootOptions

	cmd := &cobra.Command{
		Use:   "montepi [samples]",
		Short: "Estimate π by parallel Monte Carlo sampling",
		Long: `montepi drops random points into the unit square on every available CPU
and estimates π from the share that lands inside the quarter circle.

samples defaults to 1000000 and must be at least 1000.`,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEstimate(cmd, v, opts, args)
		},
	}

	d := config.Default()
	fs := cmd.Flags()
	fs.StringVar(&opts.configPath, "config", "", "configuration file (yaml)")
	fs.BoolVar(&opts.strict, "strict", false, "reject an invalid sample count instead of using the default")
	fs.String("policy", d.Engine.Policy, "partition policy: equal or bounded")
	fs.Uint64("min-chunk", d.Engine.MinChunkSize, "smallest chunk for the bounded policy")
	fs.Int("chunks-per-worker", d.Engine.ChunksPerWorker, "chunks per worker for the bounded policy")
	fs.Uint64("batch", d.Engine.BatchSize, "samples drawn between counter updates")
	fs.String("source", d.Engine.Source, "random source: pcg or lcg")
	fs.Uint64("seed", d.Engine.Seed, "random seed, 0 picks one")
	fs.Bool("progress", d.Progress.Enabled, "show live progress")
	fs.Duration("interval", d.Progress.Interval, "progress refresh interval")
	fs.Int("width", d.Progress.Width, "progress bar width")
	fs.StringP("output", "o", d.Output.Format, "result format: text, json or yaml")
	fs.String("log-level", d.Output.LogLevel, "log level: debug, info, warn or error")
	fs.String("log-format", d.Output.LogFormat, "log format: text or json")
	bindFlags(v, fs)

	return cmd
}

func bindFlags(v *viper.Viper, fs *pflag.FlagSet) {
	for flag, key := range flagKeys {
		if err := v.BindPFlag(key, fs.Lookup(flag)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", flag, err))
		}
	}
}

func runEstimate(cmd *cobra.Command, v *viper.Viper, opts rootOptions, args []string) error {
	cfg, err := config.Load(v, opts.configPath)
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.Output.LogLevel, cfg.Output.LogFormat, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	if len(args) == 1 {
		n, err := config.ParseSampleCount(args[0])
		switch {
		case err == nil:
			cfg.Samples = n
		case opts.strict:
			return err
		default:
			log.WithError(err).Warnf("using the default of %d samples", montecarlo.DefaultSamples)
			cfg.Samples = montecarlo.DefaultSamples
		}
	}

	engineOpts, err := cfg.EngineOptions()
	if err != nil {
		return err
	}
	engineOpts.Workers = runtime.GOMAXPROCS(0)
	if engineOpts.Seed == 0 {
		engineOpts.Seed = uint64(time.Now().UnixNano())
	}
	engineOpts.Logger = log
	log.WithField("seed", engineOpts.Seed).Debug("random seed chosen")

	out := cmd.OutOrStdout()
	if cfg.Output.Format == "text" {
		printBanner(out, engineOpts.Workers)
	}

	run, err := montecarlo.NewRun(engineOpts)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(cmd.Context())
	if cfg.Progress.Enabled {
		renderer := progress.NewRenderer(cmd.ErrOrStderr(), cfg.Progress.Width, log)
		reporter := progress.NewReporter(renderer, cfg.Progress.Interval, log)
		g.Go(func() error {
			return reporter.Run(ctx, run)
		})
	}

	var res montecarlo.Result
	g.Go(func() error {
		var err error
		res, err = run.Execute(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("estimation failed: %w", err)
	}

	return writeResult(out, cfg.Output.Format, res)
}

func printBanner(w io.Writer, workers int) {
	fmt.Fprintln(w, "Approximating π (pi) with the Monte Carlo method.")
	fmt.Fprintln(w, "Random points are dropped into the unit square in parallel;")
	fmt.Fprintln(w, "the share inside the quarter circle approaches π/4.")
	fmt.Fprintf(w, "\nAvailable workers: %d\n", workers)
}
