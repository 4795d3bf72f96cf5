package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dertin/rsapar/pkg/parser"
	"github.com/dertin/rsapar/pkg/timing"
	"github.com/dertin/rsapar/pkg/watch"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	flagWorkers  int
	flagDistinct []string
	flagPlot     string
	flagWatch    bool
)

var errInvalid = errors.New("file does not match the schema")

// validateCmd validates a file on a pool of workers
var validateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Validate a fixed-width file and summarise it",
	Long: `Validates every line against the schema on a pool of workers and
prints line counts, amount statistics and distinct value counts.

With --watch the file and the schema are validated again whenever they
change, until interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().IntVarP(&flagWorkers, "workers", "w", 0, "validation workers (default from config, 0 = GOMAXPROCS)")
	validateCmd.Flags().StringSliceVar(&flagDistinct, "distinct", nil, "LineType.Cell keys to count distinct values of")
	validateCmd.Flags().StringVar(&flagPlot, "plot", "", "write a PNG plot of the worker progress")
	validateCmd.Flags().BoolVar(&flagWatch, "watch", false, "validate again on every change")
}

func runValidate(cmd *cobra.Command, args []string) error {
	if cmd.Flags().Changed("workers") {
		cfg.Parse.Workers = flagWorkers
	}
	if cmd.Flags().Changed("distinct") {
		cfg.Parse.Distinct = flagDistinct
	}
	if cmd.Flags().Changed("plot") {
		cfg.Parse.PlotPath = flagPlot
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	path := args[0]
	err := validateOnce(ctx, cmd, path)
	if !flagWatch {
		return err
	}
	if err != nil && !errors.Is(err, errInvalid) {
		return err
	}

	files := []string{path}
	if cfg.Parse.Schema != "" {
		files = append(files, cfg.Parse.Schema)
	}
	w, err := watch.New(cfg.GetDebounce(), logger, files...)
	if err != nil {
		return err
	}
	logger.Info("watching", zap.Strings("files", files))

	err = w.Run(ctx, func(ctx context.Context, changed []string) error {
		logger.Info("change detected", zap.Strings("files", changed))
		if err := validateOnce(ctx, cmd, path); err != nil && !errors.Is(err, errInvalid) {
			logger.Error("validation failed", zap.Error(err))
		}
		return nil
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func validateOnce(ctx context.Context, cmd *cobra.Command, path string) error {
	p, err := openParser(path)
	if err != nil {
		return err
	}
	defer p.Close()

	tm := timing.New()
	start := time.Now()
	report, err := p.Validate(ctx, parser.Options{
		Workers:   cfg.Parse.Workers,
		BatchSize: cfg.Parse.BatchSize,
		Distinct:  cfg.Parse.Distinct,
		Timings:   tm,
	})
	if err != nil {
		return err
	}
	tm.Report(logger)

	fmt.Fprintln(cmd.OutOrStdout(), renderReport(path, report, time.Since(start)))

	if cfg.Parse.PlotPath != "" {
		if err := timing.Plot(tm.Events(), cfg.Parse.PlotPath); err != nil {
			logger.Warn("plot skipped", zap.Error(err))
		} else {
			logger.Info("wrote plot", zap.String("path", cfg.Parse.PlotPath))
		}
	}

	if !report.Valid() {
		return fmt.Errorf("%w: %d invalid lines", errInvalid, len(report.Errors))
	}
	return nil
}
