package generate

import (
	"errors"
	"fmt"
	"math"

	"github.com/dertin/rsapar/pkg/decimal"
)

var (
	ErrInvalidConfig       = errors.New("invalid generator config")
	ErrIDOverflow          = errors.New("record count does not fit the id width")
	ErrEmailSpaceExhausted = errors.New("no unique email left")
)

const (
	DefaultHeader = "H20240524TTTTTTTTTTT"
	DefaultFooter = "F11WWW110000000000.00"
)

// Config describes the file to generate. Widths are in bytes.
type Config struct {
	Count int

	IDWidth     int
	AmountWidth int
	EmailWidth  int

	// AmountMax is the largest amount drawn, in hundredths.
	AmountMax int64

	UserLength   int
	DomainLength int
	TLD          string

	Header  string
	Footer  string
	Newline string

	// Seed of the random source. Zero seeds from the clock.
	Seed int64

	UniqueEmails bool
}

func DefaultConfig() Config {
	return Config{
		Count:        10000,
		IDWidth:      4,
		AmountWidth:  11,
		EmailWidth:   14,
		AmountMax:    99999999,
		UserLength:   5,
		DomainLength: 4,
		TLD:          ".com",
		Header:       DefaultHeader,
		Footer:       DefaultFooter,
		Newline:      "\n",
	}
}

// RecordWidth is the length of every data line, newline excluded.
func (c Config) RecordWidth() int {
	return c.IDWidth + c.AmountWidth + c.EmailWidth
}

func (c Config) Validate() error {
	switch {
	case c.Count < 0:
		return fmt.Errorf("%w: negative count %d", ErrInvalidConfig, c.Count)
	case c.IDWidth <= 0 || c.AmountWidth <= 0 || c.EmailWidth <= 0:
		return fmt.Errorf("%w: widths must be positive", ErrInvalidConfig)
	case c.AmountMax < 0:
		return fmt.Errorf("%w: negative amount max", ErrInvalidConfig)
	case c.UserLength <= 0 || c.DomainLength <= 0:
		return fmt.Errorf("%w: email parts must not be empty", ErrInvalidConfig)
	case c.Newline == "":
		return fmt.Errorf("%w: empty newline", ErrInvalidConfig)
	}

	if n := len(decimal.FormatCents(c.AmountMax)); n > c.AmountWidth {
		return fmt.Errorf("%w: amount %s needs %d bytes, width is %d",
			ErrInvalidConfig, decimal.FormatCents(c.AmountMax), n, c.AmountWidth)
	}
	if c.IDWidth < 19 && float64(c.Count) > math.Pow10(c.IDWidth) {
		return fmt.Errorf("%w: %d records, width %d", ErrIDOverflow, c.Count, c.IDWidth)
	}
	if c.UniqueEmails && float64(c.Count) > c.emailSpace() {
		return fmt.Errorf("%w: %d records, %.0f possible emails", ErrEmailSpaceExhausted, c.Count, c.emailSpace())
	}
	return nil
}

func (c Config) emailSpace() float64 {
	return math.Pow(float64(len(alphabet)), float64(c.UserLength+c.DomainLength))
}
