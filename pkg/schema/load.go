package schema

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

type xmlSchema struct {
	XMLName       xml.Name  `xml:"fixedwidthschema"`
	LineSeparator string    `xml:"lineseparator,attr,omitempty"`
	Lines         []xmlLine `xml:"line"`
}

type xmlLine struct {
	LineType     string    `xml:"linetype,attr"`
	Occurs       string    `xml:"occurs,attr,omitempty"`
	MaxLength    string    `xml:"maxlength,attr,omitempty"`
	MinLength    string    `xml:"minlength,attr,omitempty"`
	PadCharacter string    `xml:"padcharacter,attr,omitempty"`
	Cells        []xmlCell `xml:"cell"`
}

type xmlCell struct {
	Name         string   `xml:"name,attr"`
	Length       string   `xml:"length,attr"`
	Alignment    string   `xml:"alignment,attr,omitempty"`
	PadCharacter string   `xml:"padcharacter,attr,omitempty"`
	Format       *xmlRule `xml:"format"`
	Match        *xmlRule `xml:"linecondition>match"`
}

type xmlRule struct {
	Type    string `xml:"type,attr,omitempty"`
	Pattern string `xml:"pattern,attr,omitempty"`
}

// Load reads an XML schema file.
func Load(path string) (*Schema, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open schema '%s': %w", path, err)
	}
	defer f.Close()

	s, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("schema '%s': %w", path, err)
	}
	return s, nil
}

// Parse reads an XML schema. The fixedwidthschema element may be the
// document root or nested in a wrapper element such as <schema>.
func Parse(r io.Reader) (*Schema, error) {
	d := xml.NewDecoder(r)
	for {
		tok, err := d.Token()
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: no %s element", ErrInvalidSchema, TypeFixedWidth)
		}
		if err != nil {
			return nil, fmt.Errorf("parsing xml: %w", err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != TypeFixedWidth {
			continue
		}

		var xs xmlSchema
		if err := d.DecodeElement(&xs, &start); err != nil {
			return nil, fmt.Errorf("parsing xml: %w", err)
		}
		return xs.build()
	}
}

func (xs *xmlSchema) build() (*Schema, error) {
	lines := make([]Line, 0, len(xs.Lines))
	for _, xl := range xs.Lines {
		maxLength, err := atoi(xl.MaxLength)
		if err != nil {
			return nil, fmt.Errorf("%w: line %s maxlength: %v", ErrInvalidSchema, xl.LineType, err)
		}
		minLength, err := atoi(xl.MinLength)
		if err != nil {
			return nil, fmt.Errorf("%w: line %s minlength: %v", ErrInvalidSchema, xl.LineType, err)
		}

		line := Line{
			LineType:     xl.LineType,
			Occurs:       xl.Occurs,
			MaxLength:    maxLength,
			MinLength:    minLength,
			PadCharacter: xl.PadCharacter,
		}
		for _, xc := range xl.Cells {
			length, err := atoi(xc.Length)
			if err != nil {
				return nil, fmt.Errorf("%w: line %s cell %s length: %v", ErrInvalidSchema, xl.LineType, xc.Name, err)
			}
			cell := Cell{
				Name:         xc.Name,
				Length:       length,
				Alignment:    xc.Alignment,
				PadCharacter: xc.PadCharacter,
			}
			if xc.Format != nil {
				cell.Format = &Format{Type: xc.Format.Type, Pattern: xc.Format.Pattern}
			}
			if xc.Match != nil {
				cell.Condition = &Condition{Type: xc.Match.Type, Pattern: xc.Match.Pattern}
			}
			line.Cells = append(line.Cells, cell)
		}
		lines = append(lines, line)
	}

	return New(xs.LineSeparator, lines...)
}

func atoi(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

// Write serialises the schema as an XML document.
func (s *Schema) Write(w io.Writer) error {
	xs := xmlSchema{LineSeparator: Escape(s.lineSeparator)}
	for _, line := range s.lines {
		xl := xmlLine{
			LineType:     line.LineType,
			Occurs:       line.Occurs,
			PadCharacter: line.PadCharacter,
		}
		if line.MaxLength > 0 {
			xl.MaxLength = strconv.Itoa(line.MaxLength)
		}
		if line.MinLength > 0 {
			xl.MinLength = strconv.Itoa(line.MinLength)
		}
		for _, cell := range line.Cells {
			xc := xmlCell{
				Name:         cell.Name,
				Length:       strconv.Itoa(cell.Length),
				Alignment:    cell.Alignment,
				PadCharacter: cell.PadCharacter,
			}
			if cell.Format != nil {
				xc.Format = &xmlRule{Type: cell.Format.Type, Pattern: cell.Format.Pattern}
			}
			if cell.Condition != nil {
				xc.Match = &xmlRule{Type: cell.Condition.Type, Pattern: cell.Condition.Pattern}
			}
			xl.Cells = append(xl.Cells, xc)
		}
		xs.Lines = append(xs.Lines, xl)
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(xs); err != nil {
		return fmt.Errorf("encoding schema: %w", err)
	}
	if err := enc.Close(); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}
