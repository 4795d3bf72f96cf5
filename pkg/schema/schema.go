// Package schema describes fixed-width files: which line types exist, how a
// line type is recognised and where each cell sits inside a line.
package schema

import (
	"errors"
	"fmt"
	"strings"
)

const TypeFixedWidth = "fixedwidthschema"

var (
	ErrDuplicateLineType = errors.New("duplicate linetype")
	ErrInvalidSchema     = errors.New("invalid schema")
)

type Format struct {
	Type    string
	Pattern string
}

// Condition selects the line type of a line when the cell content matches.
type Condition struct {
	Type    string
	Pattern string
}

type Cell struct {
	Name         string
	Length       int
	Start, End   int
	Format       *Format
	Condition    *Condition
	Alignment    string
	PadCharacter string

	check   func(string) error
	matches func(string) bool
}

type Line struct {
	LineType     string
	Occurs       string
	MaxLength    int
	MinLength    int
	PadCharacter string
	Cells        []Cell
}

// Width is the offset where the last cell ends.
func (l *Line) Width() int {
	if len(l.Cells) == 0 {
		return 0
	}
	return l.Cells[len(l.Cells)-1].End
}

func (l *Line) hasCondition() bool {
	for i := range l.Cells {
		if l.Cells[i].Condition != nil {
			return true
		}
	}
	return false
}

type Schema struct {
	lineSeparator string
	lines         []Line
}

// New builds a schema from lines, computing cell offsets and compiling
// formats and conditions. separator may contain escapes such as `\r\n`.
func New(separator string, lines ...Line) (*Schema, error) {
	s := &Schema{lineSeparator: Unescape(separator)}
	if s.lineSeparator == "" {
		s.lineSeparator = "\n"
	}

	seen := make(map[string]struct{}, len(lines))
	for _, line := range lines {
		if _, ok := seen[line.LineType]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateLineType, line.LineType)
		}
		seen[line.LineType] = struct{}{}

		line.Cells = append([]Cell(nil), line.Cells...)
		var end int
		for i := range line.Cells {
			cell := &line.Cells[i]
			if cell.Length < 0 {
				return nil, fmt.Errorf("%w: line %s cell %s: negative length", ErrInvalidSchema, line.LineType, cell.Name)
			}
			end += cell.Length
			cell.Start, cell.End = end-cell.Length, end
			if err := cell.compile(); err != nil {
				return nil, fmt.Errorf("line %s cell %s: %w", line.LineType, cell.Name, err)
			}
		}
		s.lines = append(s.lines, line)
	}

	return s, nil
}

func (s *Schema) Type() string {
	return TypeFixedWidth
}

func (s *Schema) LineSeparator() string {
	return s.lineSeparator
}

func (s *Schema) Lines() []Line {
	return s.lines
}

// LineByType returns the line with the given type, or nil.
func (s *Schema) LineByType(lineType string) *Line {
	for i := range s.lines {
		if s.lines[i].LineType == lineType {
			return &s.lines[i]
		}
	}
	return nil
}

type LineCondition struct {
	LineType string
	Cells    []Cell
}

// LineConditions lists, in schema order, the lines having at least one
// conditional cell together with those cells.
func (s *Schema) LineConditions() []LineCondition {
	var out []LineCondition
	for _, line := range s.lines {
		var cells []Cell
		for _, cell := range line.Cells {
			if cell.Condition != nil {
				cells = append(cells, cell)
			}
		}
		if len(cells) > 0 {
			out = append(out, LineCondition{LineType: line.LineType, Cells: cells})
		}
	}
	return out
}

// FirstLineWithoutCondition returns the only line without conditions. It
// returns nil when there is none or when more than one line qualifies,
// since the fallback would then be ambiguous.
func (s *Schema) FirstLineWithoutCondition() *Line {
	var found *Line
	for i := range s.lines {
		if s.lines[i].hasCondition() {
			continue
		}
		if found != nil {
			return nil
		}
		found = &s.lines[i]
	}
	return found
}

// Unescape decodes \n \r \t \f \0 sequences; any other escaped character
// stands for itself.
func Unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}

	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i == len(s)-1 {
			sb.WriteByte(s[i])
			continue
		}
		i++
		switch s[i] {
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 't':
			sb.WriteByte('\t')
		case 'f':
			sb.WriteByte('\f')
		case '0':
			sb.WriteByte(0)
		default:
			sb.WriteByte(s[i])
		}
	}
	return sb.String()
}

// Escape is the inverse of Unescape for the control characters it knows.
func Escape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, "\n", `\n`, "\r", `\r`, "\t", `\t`, "\f", `\f`, "\x00", `\0`)
	return r.Replace(s)
}
