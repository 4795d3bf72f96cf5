// Package parser reads fixed-width files line by line and validates them
// against a schema.
package parser

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"iter"

	"github.com/dertin/rsapar/pkg/schema"
	"go.uber.org/zap"
)

const maxLineSize = 16 * 1024 * 1024

type Config struct {
	FilePath   string
	SchemaPath string
	Logger     *zap.Logger
}

type ReadLine struct {
	Number  int
	Content string
}

type Parser struct {
	config  Config
	schema  *schema.Schema
	closer  io.Closer
	scanner *bufio.Scanner
	number  int
	log     *zap.Logger
}

// New opens the data file and loads the schema named in config.
func New(config Config) (*Parser, error) {
	s, err := schema.Load(config.SchemaPath)
	if err != nil {
		return nil, err
	}

	p, err := Open(config.FilePath, s, config.Logger)
	if err != nil {
		return nil, err
	}
	p.config = config
	return p, nil
}

// Open opens the data file at path for an already loaded schema.
func Open(path string, s *schema.Schema, logger *zap.Logger) (*Parser, error) {
	src, err := openFile(path)
	if err != nil {
		return nil, err
	}

	p := NewReader(src, s, logger)
	p.config = Config{FilePath: path, Logger: logger}
	p.closer = src
	return p, nil
}

// NewReader parses r with an already loaded schema.
func NewReader(r io.Reader, s *schema.Schema, logger *zap.Logger) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	scanner.Split(splitOn([]byte(s.LineSeparator())))

	return &Parser{
		schema:  s,
		scanner: scanner,
		log:     logger,
	}
}

func (p *Parser) Schema() *schema.Schema {
	return p.schema
}

// Path is the data file being parsed, empty for NewReader.
func (p *Parser) Path() string {
	return p.config.FilePath
}

func (p *Parser) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer.Close()
}

// Lines yields the raw lines of the file split on the schema separator,
// without validating them. A separator at the very end does not produce a
// trailing empty line.
func (p *Parser) Lines() iter.Seq2[ReadLine, error] {
	return func(yield func(ReadLine, error) bool) {
		for p.scanner.Scan() {
			p.number++
			if !yield(ReadLine{Number: p.number, Content: p.scanner.Text()}, nil) {
				return
			}
		}
		if err := p.scanner.Err(); err != nil {
			yield(ReadLine{Number: p.number + 1}, fmt.Errorf("reading line %d: %w", p.number+1, err))
		}
	}
}

// Records yields every line validated against the schema. Invalid lines
// come with a *schema.LineError and a nil record; a read error ends the
// sequence.
func (p *Parser) Records() iter.Seq2[*schema.Record, error] {
	return func(yield func(*schema.Record, error) bool) {
		for line, err := range p.Lines() {
			if err != nil {
				yield(nil, err)
				return
			}
			rec, err := p.schema.ValidateLine(line.Number, line.Content)
			if err != nil {
				p.log.Debug("invalid line", zap.Int("line", line.Number), zap.Error(err))
			}
			if !yield(rec, err) {
				return
			}
		}
	}
}

func splitOn(sep []byte) bufio.SplitFunc {
	return func(data []byte, atEOF bool) (int, []byte, error) {
		if atEOF && len(data) == 0 {
			return 0, nil, nil
		}
		if i := bytes.Index(data, sep); i >= 0 {
			return i + len(sep), data[:i], nil
		}
		if atEOF {
			return len(data), data, nil
		}
		return 0, nil, nil
	}
}
