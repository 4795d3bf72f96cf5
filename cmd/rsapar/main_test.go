package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dertin/rsapar/pkg/generate"
	"github.com/dertin/rsapar/pkg/parser"
	"github.com/dertin/rsapar/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = generate.DefaultHeader + "\n" +
	"000000001234.56ab1c2@x9zz.com\n" +
	"000100000002.00qq7rt@ab12.com\n" +
	generate.DefaultFooter

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// run executes the root command with a config file that does not exist,
// so every run starts from the defaults.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(append(args, "--config", filepath.Join(t.TempDir(), "none.yaml")))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestSchemaCommand(t *testing.T) {
	out, err := run(t, "schema")
	require.NoError(t, err)
	assert.Contains(t, out, "fixedwidthschema")

	s, err := schema.Parse(strings.NewReader(out))
	require.NoError(t, err)
	assert.NotNil(t, s.LineByType(generate.LineDetail))
}

func TestParseCommand(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "data.txt", sample)

	out, err := run(t, "parse", path)
	require.NoError(t, err)
	assert.Contains(t, out, "2\tDetail\tUserID=\"0000\" Amount=\"00001234.56\" Email=\"ab1c2@x9zz.com\"")
	assert.Contains(t, out, "4\tFooter\t")

	bad := writeFile(t, dir, "bad.txt", sample+"\n0002")
	out, err = run(t, "parse", bad, "--errors-only")
	assert.Error(t, err)
	assert.Contains(t, out, "5\tERROR\t")
	assert.NotContains(t, out, "Detail\tUserID")
}

func TestValidateCommand(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "data.txt", sample)

	out, err := run(t, "validate", path, "--workers", "2", "--distinct", "Detail.Email")
	require.NoError(t, err)
	assert.Contains(t, out, "VALID")
	assert.Contains(t, out, "Detail.Amount")
	assert.Contains(t, out, "2 distinct")

	bad := writeFile(t, dir, "bad.txt", sample+"\n0002")
	out, err = run(t, "validate", bad)
	assert.ErrorIs(t, err, errInvalid)
	assert.Contains(t, out, "1 INVALID")
}

func TestConvertCommand(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "data.txt", sample)
	tmpl := writeFile(t, dir, "template.xml", `<template>
  <block linetype="Detail">{{UserID}};{{Amount}}\n</block>
  <block condition="EOF">total={{len(Detail)}}</block>
</template>`)
	output := filepath.Join(dir, "report.txt")

	out, err := run(t, "convert", path, "-t", tmpl, "-o", output)
	require.NoError(t, err)
	assert.Contains(t, out, "for 4 records")

	got, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, "0000;00001234.56\n0001;00000002.00\ntotal=2", string(got))
}

func TestLoadCommand(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "data.txt", sample)

	out, err := run(t, "load", path, "--db", filepath.Join(dir, "rsapar.db"))
	require.NoError(t, err)
	assert.Contains(t, out, "4 records, 0 skipped")
	assert.Contains(t, out, "Detail\t2")
}

func TestRenderReport(t *testing.T) {
	s, err := generate.DefaultConfig().Schema()
	require.NoError(t, err)
	p := parser.NewReader(strings.NewReader(sample+"\n0002"), s, nil)
	report, err := p.Validate(t.Context(), parser.Options{Workers: 1})
	require.NoError(t, err)

	out := renderReport("data.txt", report, 1500*time.Millisecond)
	assert.Contains(t, out, "data.txt")
	assert.Contains(t, out, "1 INVALID")
	assert.Contains(t, out, "line 5:")
	assert.Contains(t, out, "1.5s")
}
