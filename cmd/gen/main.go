package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime/pprof"
	"runtime/trace"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/dertin/rsapar/pkg/config"
	"github.com/dertin/rsapar/pkg/generate"
	"github.com/dertin/rsapar/pkg/logging"
	"github.com/dertin/rsapar/pkg/timing"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	flagConfig    string
	flagOutput    string
	flagSchemaOut string
	flagPlot      string
	flagSeed      int64
	flagUnique    bool
	flagProf      string
	flagTrace     string
	verbose       bool

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "gen [count]",
	Short: "Generate a synthetic fixed-width file",
	Long: `Writes a header line, count records and a footer line.

Each record is a zero-padded id, an amount with two decimals zero-filled
to its column and a random email padded to its column. The count accepts
underscore notation, e.g. 1_000_000.`,
	Args:              cobra.MaximumNArgs(1),
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runGenerate,
}

func init() {
	rootCmd.Flags().StringVarP(&flagConfig, "config", "c", config.DefaultPath, "YAML config file")
	rootCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "output file (default from config: fixedwidth_data.txt)")
	rootCmd.Flags().StringVar(&flagSchemaOut, "schema-out", "", "also write the XML schema of the generated file")
	rootCmd.Flags().StringVar(&flagPlot, "plot", "", "write a PNG plot of the write progress")
	rootCmd.Flags().Int64Var(&flagSeed, "seed", 0, "rng seed (0 seeds from the clock)")
	rootCmd.Flags().BoolVar(&flagUnique, "unique-emails", false, "never repeat an email")
	rootCmd.Flags().StringVar(&flagProf, "prof", "", "write cpu profile to file")
	rootCmd.Flags().StringVar(&flagTrace, "trace", "", "write trace to file")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads the config file and lets flags override it.
func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(flagConfig)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("output") {
		cfg.Generate.Output = flagOutput
	}
	if flags.Changed("seed") {
		cfg.Generate.Seed = flagSeed
	}
	if flags.Changed("unique-emails") {
		cfg.Generate.UniqueEmails = flagUnique
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	if len(args) == 1 {
		n, err := parseCount(args[0])
		if err != nil {
			return err
		}
		cfg.Generate.Count = n
	}

	logger, err = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	return err
}

// parseCount reads a record count, allowing underscores as digit
// separators.
func parseCount(s string) (int, error) {
	n, err := strconv.Atoi(strings.ReplaceAll(s, "_", ""))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("count must be a non-negative integer, got %q", s)
	}
	return n, nil
}

func runGenerate(cmd *cobra.Command, args []string) error {
	genCfg, err := cfg.GeneratorConfig()
	if err != nil {
		return err
	}

	if flagTrace != "" {
		f, err := os.Create(flagTrace)
		if err != nil {
			return fmt.Errorf("create trace file: %w", err)
		}
		defer f.Close()
		logger.Info("starting trace", zap.String("path", flagTrace))
		if err := trace.Start(f); err != nil {
			return fmt.Errorf("start trace: %w", err)
		}
		defer trace.Stop()
	}
	if flagProf != "" {
		f, err := os.Create(flagProf)
		if err != nil {
			return fmt.Errorf("create cpu profile: %w", err)
		}
		defer f.Close()
		logger.Info("starting cpu-prof", zap.String("path", flagProf))
		if err := pprof.StartCPUProfile(f); err != nil {
			return fmt.Errorf("start cpu profile: %w", err)
		}
		defer pprof.StopCPUProfile()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tm := timing.New()
	g, err := generate.New(genCfg, logger)
	if err != nil {
		return err
	}
	g.WithTimings(tm)

	output := cfg.Generate.Output
	res, err := g.GenerateFile(ctx, output)
	if errors.Is(err, context.Canceled) {
		logger.Warn("generation interrupted", zap.Int("records", res.Records))
	}
	if err != nil {
		return err
	}

	if flagSchemaOut != "" {
		if err := writeSchema(genCfg, flagSchemaOut); err != nil {
			return err
		}
		logger.Info("wrote schema", zap.String("path", flagSchemaOut))
	}

	tm.Report(logger)
	if flagPlot != "" {
		if err := timing.Plot(tm.Events(), flagPlot); err != nil {
			logger.Warn("plot skipped", zap.Error(err))
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Test data build complete: %d records, %s written to '%s' in %s (seed %d)\n",
		res.Records, convertBytes(float64(res.Bytes)), output, res.Duration.Round(time.Millisecond), res.Seed)
	return nil
}

func writeSchema(genCfg generate.Config, path string) error {
	s, err := genCfg.Schema()
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create schema file '%s': %w", path, err)
	}
	if err := s.Write(f); err != nil {
		f.Close()
		return fmt.Errorf("write schema file '%s': %w", path, err)
	}
	return f.Close()
}

func convertBytes(num float64) string {
	units := []string{"bytes", "KiB", "MiB", "GiB"}
	for _, unit := range units {
		if num < 1024.0 {
			return fmt.Sprintf("%3.1f %s", num, unit)
		}
		num /= 1024.0
	}
	return fmt.Sprintf("%.1f %s", num, "TiB")
}
