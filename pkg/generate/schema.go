package generate

import (
	"fmt"
	"strings"

	"github.com/dertin/rsapar/pkg/schema"
)

const (
	LineHeader = "Header"
	LineDetail = "Detail"
	LineFooter = "Footer"
)

// Schema describes the files written with cfg. Header and footer are told
// apart from records by their first byte, so neither may start with a digit
// and they must differ from each other.
func (c Config) Schema() (*schema.Schema, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	for _, s := range []string{c.Header, c.Footer} {
		if s == "" || (s[0] >= '0' && s[0] <= '9') {
			return nil, fmt.Errorf("%w: header and footer must start with a non-digit", ErrInvalidConfig)
		}
	}
	if c.Header[0] == c.Footer[0] {
		return nil, fmt.Errorf("%w: header and footer share their first byte %q", ErrInvalidConfig, c.Header[0])
	}

	return schema.New(schema.Escape(c.Newline),
		marker(LineHeader, c.Header),
		schema.Line{
			LineType:  LineDetail,
			Occurs:    "*",
			MaxLength: c.RecordWidth(),
			Cells: []schema.Cell{
				{Name: "UserID", Length: c.IDWidth, Format: &schema.Format{Type: "integer"}},
				{Name: "Amount", Length: c.AmountWidth, Format: &schema.Format{
					Type:    "decimal",
					Pattern: strings.Repeat("0", c.AmountWidth-3) + ".00",
				}},
				{Name: "Email", Length: c.EmailWidth, Alignment: "left", PadCharacter: " "},
			},
		},
		marker(LineFooter, c.Footer),
	)
}

func marker(lineType, text string) schema.Line {
	cells := []schema.Cell{{
		Name:      "RecordType",
		Length:    1,
		Condition: &schema.Condition{Type: "string", Pattern: text[:1]},
	}}
	if len(text) > 1 {
		cells = append(cells, schema.Cell{Name: "Body", Length: len(text) - 1})
	}
	return schema.Line{
		LineType:  lineType,
		Occurs:    "1",
		MaxLength: len(text),
		Cells:     cells,
	}
}
