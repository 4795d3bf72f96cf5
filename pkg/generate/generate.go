// Package generate writes synthetic fixed-width files: a header line, a
// number of random records and a footer line.
package generate

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dertin/rsapar/pkg/decimal"
	"github.com/dertin/rsapar/pkg/timing"
	"github.com/google/uuid"
	"github.com/zeebo/xxh3"
	"go.uber.org/zap"
)

const (
	alphabet     = "abcdefghijklmnopqrstuvwxyz0123456789"
	emailRetries = 100
	ctxCheck     = 1024
)

// Record is one data line before formatting.
type Record struct {
	ID          int
	AmountCents int64
	Email       string
}

// Line renders the record with the widths of cfg.
func (r Record) Line(cfg Config) string {
	var sb strings.Builder
	sb.Grow(cfg.RecordWidth())
	sb.WriteString(decimal.ZeroFill(strconv.Itoa(r.ID), cfg.IDWidth))
	sb.WriteString(decimal.ZeroFill(decimal.FormatCents(r.AmountCents), cfg.AmountWidth))
	sb.WriteString(padRight(r.Email, cfg.EmailWidth))
	return sb.String()
}

// padRight left-justifies s in width bytes, cutting what does not fit.
func padRight(s string, width int) string {
	if len(s) >= width {
		return s[:width]
	}
	return s + strings.Repeat(" ", width-len(s))
}

// Result summarises one generation run.
type Result struct {
	RunID    string
	Seed     int64
	Records  int
	Bytes    int64
	Distinct int
	Duration time.Duration
}

// Generator draws records from a seeded source. It is not safe for
// concurrent use.
type Generator struct {
	cfg     Config
	rng     *rand.Rand
	seen    map[uint64]struct{}
	log     *zap.Logger
	timings *timing.Timings
}

// New validates cfg and seeds the generator, from the clock when
// cfg.Seed is 0.
func New(cfg Config, logger *zap.Logger) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}

	g := &Generator{
		cfg: cfg,
		rng: rand.New(rand.NewSource(cfg.Seed)),
		log: logger,
	}
	if cfg.UniqueEmails {
		g.seen = make(map[uint64]struct{}, cfg.Count)
	}
	return g, nil
}

// WithTimings records the write phases of the next runs into t.
func (g *Generator) WithTimings(t *timing.Timings) *Generator {
	g.timings = t
	return g
}

func (g *Generator) Config() Config {
	return g.cfg
}

// Amount draws a uniform amount in [0, AmountMax] hundredths.
func (g *Generator) Amount() int64 {
	return g.rng.Int63n(g.cfg.AmountMax + 1)
}

func (g *Generator) randomString(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = alphabet[g.rng.Intn(len(alphabet))]
	}
	return string(b)
}

// Email draws a random address. With UniqueEmails set, addresses whose
// xxh3 hash was already handed out are redrawn, up to emailRetries times
// before ErrEmailSpaceExhausted.
func (g *Generator) Email() (string, error) {
	for range emailRetries {
		email := g.randomString(g.cfg.UserLength) + "@" + g.randomString(g.cfg.DomainLength) + g.cfg.TLD
		if g.seen == nil {
			return email, nil
		}

		h := xxh3.HashString(email)
		if _, dup := g.seen[h]; dup {
			continue
		}
		g.seen[h] = struct{}{}
		return email, nil
	}
	return "", fmt.Errorf("%w after %d attempts", ErrEmailSpaceExhausted, emailRetries)
}

func (g *Generator) Record(id int) (Record, error) {
	amount := g.Amount()
	email, err := g.Email()
	if err != nil {
		return Record{}, err
	}
	return Record{ID: id, AmountCents: amount, Email: email}, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// Generate writes the header, the records and the footer to w. Every line
// but the footer ends with the configured newline.
func (g *Generator) Generate(ctx context.Context, w io.Writer) (Result, error) {
	res := Result{RunID: uuid.NewString(), Seed: g.cfg.Seed}
	start := time.Now()
	log := g.log.With(zap.String("run_id", res.RunID))
	log.Debug("generating", zap.Int("records", g.cfg.Count), zap.Int64("seed", g.cfg.Seed))

	cw := &countingWriter{w: w}
	bw := bufio.NewWriter(cw)

	if _, err := bw.WriteString(g.cfg.Header + g.cfg.Newline); err != nil {
		return res, fmt.Errorf("write header: %w", err)
	}

	tRecords := time.Now()
	for i := range g.cfg.Count {
		if i%ctxCheck == 0 {
			if err := ctx.Err(); err != nil {
				return res, err
			}
			if i > 0 {
				g.timings.Event("records")
			}
		}

		rec, err := g.Record(i)
		if err != nil {
			return res, fmt.Errorf("record %d: %w", i, err)
		}
		if _, err := bw.WriteString(rec.Line(g.cfg)); err != nil {
			return res, fmt.Errorf("write record %d: %w", i, err)
		}
		if _, err := bw.WriteString(g.cfg.Newline); err != nil {
			return res, fmt.Errorf("write record %d: %w", i, err)
		}
		res.Records++
	}
	g.timings.Since("records", tRecords)

	if _, err := bw.WriteString(g.cfg.Footer); err != nil {
		return res, fmt.Errorf("write footer: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return res, fmt.Errorf("flush: %w", err)
	}

	res.Bytes = cw.n
	res.Distinct = len(g.seen)
	res.Duration = time.Since(start)
	log.Info("generated",
		zap.Int("records", res.Records),
		zap.Int64("bytes", res.Bytes),
		zap.Duration("elapsed", res.Duration))
	return res, nil
}

// GenerateFile writes the file at path, truncating an existing one.
func (g *Generator) GenerateFile(ctx context.Context, path string) (Result, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return Result{}, fmt.Errorf("open output file '%s': %w", path, err)
	}

	res, err := g.Generate(ctx, f)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("close output file '%s': %w", path, cerr)
	}
	return res, err
}
