package convert

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"
	"strconv"

	"github.com/dertin/rsapar/pkg/schema"
	"go.uber.org/zap"
)

type Stats struct {
	Steps   int
	Skipped int
	Blocks  int
	Counts  map[string]int
}

// Render writes the blocks for every valid record, then the EOF blocks if
// at least one record was valid. Invalid lines are logged and skipped.
// {{len(T)}} placeholders are left for RenderCounts.
func (c *Converter) Render(ctx context.Context, records iter.Seq2[*schema.Record, error], w io.Writer) (Stats, error) {
	stats := Stats{Counts: make(map[string]int)}
	bw := bufio.NewWriter(w)

	var (
		line         int
		lastLineType string
	)
	for rec, err := range records {
		if err != nil {
			var lineErr *schema.LineError
			if errors.As(err, &lineErr) {
				stats.Skipped++
				c.log.Warn("skipping invalid line", zap.Int("line", lineErr.Number), zap.String("reason", lineErr.Message))
				continue
			}
			return stats, err
		}
		if stats.Steps%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return stats, err
			}
		}

		stats.Steps++
		if rec.LineType != lastLineType {
			line = 1
			lastLineType = rec.LineType
		} else {
			line++
		}
		stats.Counts[rec.LineType]++

		cells := rec.Map()
		values := rec.Map()
		values["step"] = strconv.Itoa(stats.Steps)
		values["line"] = strconv.Itoa(line)
		values["linetype"] = rec.LineType

		for i, b := range c.blocks {
			if b.LineType != "" && b.LineType != rec.LineType {
				continue
			}
			if cond := c.conds[i]; cond != nil && !cond(stats.Steps, line, false, rec.LineType, cells) {
				continue
			}
			if _, err := bw.WriteString(render(b.Content, values)); err != nil {
				return stats, fmt.Errorf("write block %d: %w", i, err)
			}
			stats.Blocks++
		}
	}

	if stats.Steps > 0 {
		for i, b := range c.blocks {
			if !b.atEOF() {
				continue
			}
			if _, err := bw.WriteString(render(b.Content, nil)); err != nil {
				return stats, fmt.Errorf("write block %d: %w", i, err)
			}
			stats.Blocks++
		}
	}

	return stats, bw.Flush()
}

// RenderCounts copies r to w replacing {{len(T)}} with the number of
// records of line type T. Line types of the schema that never occurred
// count zero; unknown ones are left untouched.
func (c *Converter) RenderCounts(r io.Reader, w io.Writer, counts map[string]int) error {
	br := bufio.NewReader(r)
	bw := bufio.NewWriter(w)
	for {
		chunk, err := br.ReadString('\n')
		if chunk != "" {
			chunk = lenRe.ReplaceAllStringFunc(chunk, func(m string) string {
				lineType := lenRe.FindStringSubmatch(m)[1]
				if n, ok := counts[lineType]; ok {
					return strconv.Itoa(n)
				}
				if c.schema.LineByType(lineType) != nil {
					return "0"
				}
				return m
			})
			if _, werr := bw.WriteString(chunk); werr != nil {
				return werr
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Convert renders records into path. The blocks go to a temporary file in
// the same directory first, which is then rewritten with the line type
// counts.
func (c *Converter) Convert(ctx context.Context, records iter.Seq2[*schema.Record, error], path string) (Stats, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return Stats{}, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	stats, err := c.Render(ctx, records, tmp)
	if err != nil {
		return stats, err
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return stats, fmt.Errorf("rewind temp file: %w", err)
	}

	out, err := os.Create(path)
	if err != nil {
		return stats, fmt.Errorf("create output '%s': %w", path, err)
	}
	if err := c.RenderCounts(tmp, out, stats.Counts); err != nil {
		out.Close()
		return stats, fmt.Errorf("render counts: %w", err)
	}
	if err := out.Close(); err != nil {
		return stats, fmt.Errorf("close output '%s': %w", path, err)
	}

	c.log.Info("converted",
		zap.String("output", path),
		zap.Int("records", stats.Steps),
		zap.Int("skipped", stats.Skipped),
		zap.Int("blocks", stats.Blocks))
	return stats, nil
}
