// Package convert renders validated fixed-width records through a template of
// blocks into a report file.
package convert

import (
	"encoding/xml"
	"errors"
	"fmt"
	"go/token"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/dertin/rsapar/pkg/schema"
	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
	"go.uber.org/zap"
)

const EOF = "EOF"

var (
	ErrEmptyBlock = errors.New("block content is empty")
	ErrCondition  = errors.New("invalid block condition")
)

// Block is a piece of output written for every record it applies to. An
// empty LineType applies to every line type; an empty Condition always
// holds. Blocks whose condition is exactly EOF are written once at the end.
type Block struct {
	LineType  string
	Condition string
	Content   string
}

func (b Block) atEOF() bool {
	return strings.TrimSpace(b.Condition) == EOF
}

type xmlTemplate struct {
	Blocks []struct {
		LineType  string `xml:"linetype,attr"`
		Condition string `xml:"condition,attr"`
		Content   string `xml:",chardata"`
	} `xml:"block"`
}

type condFunc = func(step, line int, EOF bool, linetype string, cells map[string]string) bool

type Converter struct {
	schema *schema.Schema
	blocks []Block
	conds  []condFunc
	log    *zap.Logger
}

// Load reads an XML template file.
func Load(path string, s *schema.Schema, logger *zap.Logger) (*Converter, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open template '%s': %w", path, err)
	}
	defer f.Close()

	c, err := Parse(f, s, logger)
	if err != nil {
		return nil, fmt.Errorf("template '%s': %w", path, err)
	}
	return c, nil
}

// Parse reads a template of <block> elements. Surrounding whitespace of the
// block content is dropped; use \n, \t, \r, \0 and \f for control characters.
func Parse(r io.Reader, s *schema.Schema, logger *zap.Logger) (*Converter, error) {
	var xt xmlTemplate
	if err := xml.NewDecoder(r).Decode(&xt); err != nil {
		return nil, fmt.Errorf("parsing xml template: %w", err)
	}

	blocks := make([]Block, 0, len(xt.Blocks))
	for i, xb := range xt.Blocks {
		content := strings.TrimSpace(xb.Content)
		if content == "" {
			return nil, fmt.Errorf("block %d: %w", i, ErrEmptyBlock)
		}
		blocks = append(blocks, Block{
			LineType:  xb.LineType,
			Condition: strings.TrimSpace(xb.Condition),
			Content:   content,
		})
	}
	return New(s, blocks, logger)
}

// New compiles the block conditions. Conditions are Go boolean expressions
// over step, line, EOF, linetype and one string variable per schema cell;
// num(s) converts a cell to a float64.
func New(s *schema.Schema, blocks []Block, logger *zap.Logger) (*Converter, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	for i, b := range blocks {
		if b.Content == "" {
			return nil, fmt.Errorf("block %d: %w", i, ErrEmptyBlock)
		}
	}

	conds, err := compileConditions(s, blocks)
	if err != nil {
		return nil, err
	}
	return &Converter{schema: s, blocks: blocks, conds: conds, log: logger}, nil
}

func (c *Converter) Blocks() []Block {
	return c.blocks
}

var reserved = map[string]bool{
	"step": true, "line": true, "EOF": true, "linetype": true, "cells": true, "num": true,
}

// cellVariables lists the schema cell names usable as condition variables.
func cellVariables(s *schema.Schema) []string {
	seen := map[string]bool{}
	var names []string
	for _, line := range s.Lines() {
		for _, cell := range line.Cells {
			if seen[cell.Name] || reserved[cell.Name] || !token.IsIdentifier(cell.Name) {
				continue
			}
			seen[cell.Name] = true
			names = append(names, cell.Name)
		}
	}
	return names
}

func compileConditions(s *schema.Schema, blocks []Block) ([]condFunc, error) {
	conds := make([]condFunc, len(blocks))

	var (
		src     strings.Builder
		vars    = cellVariables(s)
		hasCond bool
	)
	src.WriteString("package blocks\n\nimport (\n\t\"strconv\"\n\t\"strings\"\n)\n\n")
	src.WriteString("func num(s string) float64 {\n\tf, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)\n\treturn f\n}\n")
	for i, b := range blocks {
		if b.Condition == "" {
			continue
		}
		hasCond = true
		fmt.Fprintf(&src, "\nfunc Cond%d(step, line int, EOF bool, linetype string, cells map[string]string) bool {\n", i)
		for _, v := range vars {
			fmt.Fprintf(&src, "\t%s := cells[%q]\n\t_ = %s\n", v, v, v)
		}
		fmt.Fprintf(&src, "\treturn (%s)\n}\n", b.Condition)
	}
	if !hasCond {
		return conds, nil
	}

	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("interpreter: %w", err)
	}
	if _, err := i.Eval(src.String()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCondition, err)
	}

	for n, b := range blocks {
		if b.Condition == "" {
			continue
		}
		v, err := i.Eval(fmt.Sprintf("blocks.Cond%d", n))
		if err != nil {
			return nil, fmt.Errorf("%w: block %d: %v", ErrCondition, n, err)
		}
		fn, ok := v.Interface().(condFunc)
		if !ok {
			return nil, fmt.Errorf("%w: block %d: unexpected type %s", ErrCondition, n, v.Type())
		}
		conds[n] = fn
	}
	return conds, nil
}

var (
	placeholderRe = regexp.MustCompile(`\{\{\s*(\w+)\s*\}\}`)
	lenRe         = regexp.MustCompile(`\{\{\s*len\(\s*([^)\s]+)\s*\)\s*\}\}`)
	escapes       = strings.NewReplacer(`\n`, "\n", `\t`, "\t", `\r`, "\r", `\0`, "\x00", `\f`, "\f")
)

func render(content string, values map[string]string) string {
	out := placeholderRe.ReplaceAllStringFunc(content, func(m string) string {
		name := placeholderRe.FindStringSubmatch(m)[1]
		if v, ok := values[name]; ok {
			return v
		}
		return m
	})
	return escapes.Replace(out)
}
