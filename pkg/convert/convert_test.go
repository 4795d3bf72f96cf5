package convert_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dertin/rsapar/pkg/convert"
	"github.com/dertin/rsapar/pkg/generate"
	"github.com/dertin/rsapar/pkg/parser"
	"github.com/dertin/rsapar/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const data = generate.DefaultHeader + "\n" +
	"000000001234.56ab1c2@x9zz.com\n" +
	"000100000002.00qq7rt@ab12.com\n" +
	"000200000500.00zz9zz@ab12.com\n" +
	"0003xx\n" +
	generate.DefaultFooter

const template = `<?xml version="1.0" encoding="UTF-8"?>
<template>
  <block linetype="Header">Report {{Body}}\n</block>
  <block linetype="Detail" condition="num(Amount) &gt; 100">{{line}} {{UserID}} {{Email}}\n</block>
  <block linetype="Footer">details={{len(Detail)}} headers={{len(Header)}} other={{len(Nope)}}\n</block>
  <block condition="EOF">end after {{step}}\n</block>
</template>`

func testSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := generate.DefaultConfig().Schema()
	require.NoError(t, err)
	return s
}

func records(t *testing.T, s *schema.Schema, input string) *parser.Parser {
	t.Helper()
	return parser.NewReader(strings.NewReader(input), s, nil)
}

func TestParse(t *testing.T) {
	s := testSchema(t)
	c, err := convert.Parse(strings.NewReader(template), s, nil)
	require.NoError(t, err)

	blocks := c.Blocks()
	require.Len(t, blocks, 4)
	assert.Equal(t, convert.Block{
		LineType:  "Detail",
		Condition: "num(Amount) > 100",
		Content:   `{{line}} {{UserID}} {{Email}}\n`,
	}, blocks[1])
	assert.Equal(t, convert.EOF, blocks[3].Condition)
}

func TestRender(t *testing.T) {
	s := testSchema(t)
	c, err := convert.Parse(strings.NewReader(template), s, nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	stats, err := c.Render(context.Background(), records(t, s, data).Records(), &buf)
	require.NoError(t, err)

	assert.Equal(t, "Report 20240524TTTTTTTTTTT\n"+
		"1 0000 ab1c2@x9zz.com\n"+
		"3 0002 zz9zz@ab12.com\n"+
		"details={{len(Detail)}} headers={{len(Header)}} other={{len(Nope)}}\n"+
		"end after {{step}}\n", buf.String())

	assert.Equal(t, 5, stats.Steps)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 5, stats.Blocks)
	assert.Equal(t, map[string]int{"Header": 1, "Detail": 3, "Footer": 1}, stats.Counts)
}

func TestRenderCounts(t *testing.T) {
	s := testSchema(t)
	c, err := convert.New(s, []convert.Block{{Content: "x"}}, nil)
	require.NoError(t, err)

	var out bytes.Buffer
	in := "a {{len(Detail)}}\nb {{ len( Header ) }} {{len(Footer)}}\nc {{len(Nope)}}"
	require.NoError(t, c.RenderCounts(strings.NewReader(in), &out, map[string]int{"Detail": 42, "Header": 1}))
	assert.Equal(t, "a 42\nb 1 0\nc {{len(Nope)}}", out.String())
}

func TestConvert(t *testing.T) {
	s := testSchema(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "report.txt")
	tmplPath := filepath.Join(dir, "template.xml")
	require.NoError(t, os.WriteFile(tmplPath, []byte(template), 0o644))

	c, err := convert.Load(tmplPath, s, nil)
	require.NoError(t, err)

	_, err = c.Convert(context.Background(), records(t, s, data).Records(), path)
	require.NoError(t, err)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Report 20240524TTTTTTTTTTT\n"+
		"1 0000 ab1c2@x9zz.com\n"+
		"3 0002 zz9zz@ab12.com\n"+
		"details=3 headers=1 other={{len(Nope)}}\n"+
		"end after {{step}}\n", string(got))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "temporary file left behind")
}

func TestRender_NoValidRecords(t *testing.T) {
	s := testSchema(t)
	c, err := convert.Parse(strings.NewReader(template), s, nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	stats, err := c.Render(context.Background(), records(t, s, "0003xx\n0004").Records(), &buf)
	require.NoError(t, err)
	assert.Empty(t, buf.String())
	assert.Equal(t, 2, stats.Skipped)
}

func TestRender_Cancelled(t *testing.T) {
	s := testSchema(t)
	c, err := convert.Parse(strings.NewReader(template), s, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.Render(ctx, records(t, s, data).Records(), &bytes.Buffer{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConditions(t *testing.T) {
	s := testSchema(t)
	c, err := convert.New(s, []convert.Block{
		{LineType: "Detail", Condition: `step == 2`, Content: "second {{Email}}\n"},
		{LineType: "Detail", Condition: `strings.HasPrefix(Email, "zz")`, Content: "zz {{UserID}}\n"},
		{Condition: `linetype == "Footer" && line == 1`, Content: "footer\n"},
	}, nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = c.Render(context.Background(), records(t, s, data).Records(), &buf)
	require.NoError(t, err)
	assert.Equal(t, "second ab1c2@x9zz.com\nzz 0002\nfooter\n", buf.String())
}

func TestErrors(t *testing.T) {
	s := testSchema(t)

	_, err := convert.Parse(strings.NewReader(`<template><block linetype="Header">   </block></template>`), s, nil)
	assert.ErrorIs(t, err, convert.ErrEmptyBlock)

	_, err = convert.New(s, []convert.Block{{Condition: "step +", Content: "x"}}, nil)
	assert.ErrorIs(t, err, convert.ErrCondition)

	_, err = convert.New(s, []convert.Block{{Condition: "Missing == 1", Content: "x"}}, nil)
	assert.ErrorIs(t, err, convert.ErrCondition)

	_, err = convert.Parse(strings.NewReader(`<template><block>`), s, nil)
	assert.Error(t, err)

	_, err = convert.Load(filepath.Join(t.TempDir(), "missing.xml"), s, nil)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
