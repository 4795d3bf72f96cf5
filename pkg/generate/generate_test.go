package generate_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/dertin/rsapar/pkg/generate"
	"github.com/dertin/rsapar/pkg/parser"
	"github.com/dertin/rsapar/pkg/timing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var recordRe = regexp.MustCompile(`^\d{4}\d{8}\.\d{2}[a-z0-9]{5}@[a-z0-9]{4}\.com$`)

func newGenerator(t *testing.T, mutate func(*generate.Config)) *generate.Generator {
	t.Helper()
	cfg := generate.DefaultConfig()
	cfg.Seed = 42
	if mutate != nil {
		mutate(&cfg)
	}
	g, err := generate.New(cfg, nil)
	require.NoError(t, err)
	return g
}

func TestGenerate_Layout(t *testing.T) {
	g := newGenerator(t, func(c *generate.Config) { c.Count = 250 })

	var buf bytes.Buffer
	res, err := g.Generate(context.Background(), &buf)
	require.NoError(t, err)

	out := buf.String()
	assert.False(t, strings.HasSuffix(out, "\n"), "footer must not end with a newline")

	lines := strings.Split(out, "\n")
	require.Len(t, lines, 252)
	assert.Equal(t, generate.DefaultHeader, lines[0])
	assert.Equal(t, generate.DefaultFooter, lines[251])

	for i, line := range lines[1:251] {
		assert.Len(t, line, 29)
		assert.Regexp(t, recordRe, line)
		assert.Equal(t, i, mustAtoi(t, line[:4]))
	}

	assert.Equal(t, 250, res.Records)
	assert.Equal(t, int64(len(out)), res.Bytes)
	assert.Equal(t, int64(42), res.Seed)
	assert.NotEmpty(t, res.RunID)
}

func mustAtoi(t *testing.T, s string) int {
	t.Helper()
	var n int
	for _, c := range s {
		require.True(t, c >= '0' && c <= '9', s)
		n = n*10 + int(c-'0')
	}
	return n
}

func TestGenerate_ZeroRecords(t *testing.T) {
	g := newGenerator(t, func(c *generate.Config) { c.Count = 0 })

	var buf bytes.Buffer
	_, err := g.Generate(context.Background(), &buf)
	require.NoError(t, err)
	assert.Equal(t, generate.DefaultHeader+"\n"+generate.DefaultFooter, buf.String())
}

func TestGenerate_Deterministic(t *testing.T) {
	var a, b bytes.Buffer
	_, err := newGenerator(t, func(c *generate.Config) { c.Count = 100 }).Generate(context.Background(), &a)
	require.NoError(t, err)
	_, err = newGenerator(t, func(c *generate.Config) { c.Count = 100 }).Generate(context.Background(), &b)
	require.NoError(t, err)
	assert.Equal(t, a.String(), b.String())

	var other bytes.Buffer
	_, err = newGenerator(t, func(c *generate.Config) { c.Count = 100; c.Seed = 7 }).Generate(context.Background(), &other)
	require.NoError(t, err)
	assert.NotEqual(t, a.String(), other.String())
}

func TestGenerate_UniqueEmails(t *testing.T) {
	g := newGenerator(t, func(c *generate.Config) {
		c.Count = 2000
		c.UniqueEmails = true
	})

	var buf bytes.Buffer
	res, err := g.Generate(context.Background(), &buf)
	require.NoError(t, err)
	assert.Equal(t, 2000, res.Distinct)

	seen := map[string]bool{}
	lines := strings.Split(buf.String(), "\n")
	for _, line := range lines[1 : len(lines)-1] {
		email := line[15:]
		assert.False(t, seen[email], email)
		seen[email] = true
	}
}

func TestGenerate_Cancelled(t *testing.T) {
	g := newGenerator(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.Generate(ctx, &bytes.Buffer{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRecordLine(t *testing.T) {
	cfg := generate.DefaultConfig()

	rec := generate.Record{ID: 7, AmountCents: 200, Email: "ab@cd.com"}
	assert.Equal(t, "000700000002.00ab@cd.com     ", rec.Line(cfg))

	rec = generate.Record{ID: 9999, AmountCents: 99999999, Email: "toolongaddress@example.com"}
	assert.Equal(t, "999900999999.99toolongaddre", rec.Line(cfg)[:4+11+12])
	assert.Len(t, rec.Line(cfg), cfg.RecordWidth())
}

func TestConfig_Validate(t *testing.T) {
	cases := map[string]struct {
		mutate func(*generate.Config)
		err    error
	}{
		"negative count": {func(c *generate.Config) { c.Count = -1 }, generate.ErrInvalidConfig},
		"zero width":     {func(c *generate.Config) { c.EmailWidth = 0 }, generate.ErrInvalidConfig},
		"amount too wide": {func(c *generate.Config) {
			c.AmountMax = 100000000000
		}, generate.ErrInvalidConfig},
		"id overflow":    {func(c *generate.Config) { c.Count = 10001 }, generate.ErrIDOverflow},
		"email space": {func(c *generate.Config) {
			c.UserLength, c.DomainLength, c.Count, c.UniqueEmails = 1, 1, 2000, true
		}, generate.ErrEmailSpaceExhausted},
		"empty newline": {func(c *generate.Config) { c.Newline = "" }, generate.ErrInvalidConfig},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := generate.DefaultConfig()
			tc.mutate(&cfg)
			_, err := generate.New(cfg, nil)
			assert.ErrorIs(t, err, tc.err)
		})
	}

	cfg := generate.DefaultConfig()
	cfg.Count = 10000
	assert.NoError(t, cfg.Validate())
}

func TestGenerateFile_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fixedwidth_data.txt")

	tm := timing.New()
	g := newGenerator(t, func(c *generate.Config) { c.Count = 3000 }).WithTimings(tm)
	res, err := g.GenerateFile(context.Background(), path)
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, res.Bytes, info.Size())
	assert.NotEmpty(t, tm.Events())

	s, err := g.Config().Schema()
	require.NoError(t, err)
	schemaPath := filepath.Join(dir, "schema.xml")
	f, err := os.Create(schemaPath)
	require.NoError(t, err)
	require.NoError(t, s.Write(f))
	require.NoError(t, f.Close())

	p, err := parser.New(parser.Config{FilePath: path, SchemaPath: schemaPath})
	require.NoError(t, err)
	defer p.Close()

	report, err := p.Validate(context.Background(), parser.Options{Workers: 4})
	require.NoError(t, err)
	assert.True(t, report.Valid(), "errors: %v", report.Errors)
	assert.Equal(t, map[string]int{
		generate.LineHeader: 1,
		generate.LineDetail: 3000,
		generate.LineFooter: 1,
	}, report.Counts)
	assert.LessOrEqual(t, report.Stats["Detail.Amount"].Max, int64(99999999))
}

func TestSchema_Errors(t *testing.T) {
	cfg := generate.DefaultConfig()
	cfg.Header = "1HEADER"
	_, err := cfg.Schema()
	assert.ErrorIs(t, err, generate.ErrInvalidConfig)

	cfg = generate.DefaultConfig()
	cfg.Footer = "HFOOT"
	_, err = cfg.Schema()
	assert.ErrorIs(t, err, generate.ErrInvalidConfig)
}
