package parser

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/dertin/rsapar/pkg/schema"
	"github.com/dertin/rsapar/pkg/timing"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const defaultBatchSize = 512

type Options struct {
	Workers   int
	BatchSize int
	// Distinct lists "LineType.Cell" keys whose distinct values are counted.
	Distinct []string
	Timings  *timing.Timings
}

// Validate reads the remaining lines and validates them on a pool of
// workers. Each worker builds its own report; the reports are merged once
// the file is exhausted. Line errors end up in the report, read errors and
// cancellation are returned.
func (p *Parser) Validate(ctx context.Context, opts Options) (*Report, error) {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	tm := opts.Timings

	g, ctx := errgroup.WithContext(ctx)
	batches := make(chan []ReadLine, workers*2)

	g.Go(func() error {
		defer close(batches)

		tRead := time.Now()
		batch := make([]ReadLine, 0, batchSize)
		send := func() error {
			tm.Since("read", tRead)
			select {
			case batches <- batch:
			case <-ctx.Done():
				return ctx.Err()
			}
			tm.Event("read")
			batch = make([]ReadLine, 0, batchSize)
			tRead = time.Now()
			return nil
		}

		for line, err := range p.Lines() {
			if err != nil {
				return err
			}
			batch = append(batch, line)
			if len(batch) >= batchSize {
				if err := send(); err != nil {
					return err
				}
			}
		}
		if len(batch) > 0 {
			return send()
		}
		tm.Since("read", tRead)
		return nil
	})

	partials := make([]*Report, workers)
	for i := range workers {
		partials[i] = newReport(p.schema, opts.Distinct)
		g.Go(func() error {
			for batch := range batches {
				tValidate := time.Now()
				for _, line := range batch {
					rec, err := p.schema.ValidateLine(line.Number, line.Content)
					var lineErr *schema.LineError
					if err != nil && !errors.As(err, &lineErr) {
						return fmt.Errorf("line %d: %w", line.Number, err)
					}
					partials[i].add(rec, lineErr)
				}
				tm.Since("validate", tValidate)
				tm.Event(fmt.Sprintf("worker %d", i))

				if err := ctx.Err(); err != nil {
					return err
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	tMerge := time.Now()
	report := newReport(p.schema, opts.Distinct)
	for _, partial := range partials {
		report.Merge(partial)
	}
	report.sortErrors()
	tm.Since("merge", tMerge)

	p.log.Debug("validated",
		zap.Int("lines", report.Lines),
		zap.Int("errors", len(report.Errors)),
		zap.Int("workers", workers))
	return report, nil
}
