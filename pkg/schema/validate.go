package schema

import (
	"fmt"
	"strings"
)

// LineError reports a line that does not conform to the schema.
type LineError struct {
	Number  int
	Message string
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Number, e.Message)
}

type CellValue struct {
	Name  string
	Value string
}

// Record is a line that passed validation, its cells in schema order.
type Record struct {
	Number   int
	LineType string
	Cells    []CellValue
}

func (r *Record) Get(name string) (string, bool) {
	for _, c := range r.Cells {
		if c.Name == name {
			return c.Value, true
		}
	}
	return "", false
}

func (r *Record) Map() map[string]string {
	m := make(map[string]string, len(r.Cells))
	for _, c := range r.Cells {
		m[c.Name] = c.Value
	}
	return m
}

// Resolve finds the line type of content: the first line whose conditional
// cells all match, otherwise the single line without conditions.
func (s *Schema) Resolve(content string) (*Line, bool) {
	for i := range s.lines {
		line := &s.lines[i]
		if !line.hasCondition() {
			continue
		}

		matched := true
		for j := range line.Cells {
			cell := &line.Cells[j]
			if cell.Condition == nil {
				continue
			}
			if cell.End > len(content) || !cell.matches(cell.trim(line, content[cell.Start:cell.End])) {
				matched = false
				break
			}
		}
		if matched {
			return line, true
		}
	}

	line := s.FirstLineWithoutCondition()
	return line, line != nil
}

// ValidateLine checks one line against the schema. Failures are returned as
// *LineError.
func (s *Schema) ValidateLine(number int, content string) (*Record, error) {
	line, ok := s.Resolve(content)
	if !ok {
		return nil, &LineError{Number: number, Message: "no line type matches"}
	}

	n := len(content)
	switch {
	case line.MaxLength > 0 && n > line.MaxLength:
		return nil, &LineError{Number: number, Message: fmt.Sprintf("%s: length %d exceeds maxlength %d", line.LineType, n, line.MaxLength)}
	case line.MinLength > 0 && n < line.MinLength:
		return nil, &LineError{Number: number, Message: fmt.Sprintf("%s: length %d below minlength %d", line.LineType, n, line.MinLength)}
	case n < line.Width():
		return nil, &LineError{Number: number, Message: fmt.Sprintf("%s: length %d shorter than %d", line.LineType, n, line.Width())}
	}

	rec := &Record{
		Number:   number,
		LineType: line.LineType,
		Cells:    make([]CellValue, 0, len(line.Cells)),
	}
	for i := range line.Cells {
		cell := &line.Cells[i]
		value := cell.trim(line, content[cell.Start:cell.End])
		if cell.check != nil && value != "" {
			if err := cell.check(value); err != nil {
				return nil, &LineError{Number: number, Message: fmt.Sprintf("%s.%s: %v", line.LineType, cell.Name, err)}
			}
		}
		rec.Cells = append(rec.Cells, CellValue{Name: cell.Name, Value: value})
	}

	return rec, nil
}

// trim removes the pad character of the cell, falling back to the one of
// the line, on the side given by the alignment.
func (c *Cell) trim(line *Line, raw string) string {
	pad := c.PadCharacter
	if pad == "" {
		pad = line.PadCharacter
	}
	if pad == "" {
		return raw
	}

	switch strings.ToLower(c.Alignment) {
	case "right":
		return strings.TrimLeft(raw, pad)
	case "center":
		return strings.Trim(raw, pad)
	default:
		return strings.TrimRight(raw, pad)
	}
}
