package schema

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/dertin/rsapar/pkg/decimal"
)

var (
	integerRe = regexp.MustCompile(`^[+-]?\d+$`)
	numberRe  = regexp.MustCompile(`^[+-]?\d+(\.\d+)?$`)
)

func (c *Cell) compile() error {
	c.check = nil
	c.matches = nil

	if c.Format != nil {
		c.Format.Type = strings.ToLower(c.Format.Type)
		check, err := formatCheck(c.Format)
		if err != nil {
			return err
		}
		c.check = check
	}

	if c.Condition != nil {
		c.Condition.Type = strings.ToLower(c.Condition.Type)
		switch c.Condition.Type {
		case "string":
			pattern := c.Condition.Pattern
			c.matches = func(v string) bool { return v == pattern }
		case "", "regex", "regexp":
			re, err := regexp.Compile("^(?:" + c.Condition.Pattern + ")$")
			if err != nil {
				return fmt.Errorf("%w: match pattern %q: %v", ErrInvalidSchema, c.Condition.Pattern, err)
			}
			c.matches = re.MatchString
		default:
			return fmt.Errorf("%w: unknown match type %q", ErrInvalidSchema, c.Condition.Type)
		}
	}

	return nil
}

func formatCheck(f *Format) (func(string) error, error) {
	switch f.Type {
	case "decimal", "number":
		if f.Pattern == "" {
			return regexCheck(numberRe, "number"), nil
		}
		df, err := decimal.New(f.Pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
		}
		return df.Validate, nil
	case "integer":
		return regexCheck(integerRe, "integer"), nil
	case "date":
		pattern := f.Pattern
		if pattern == "" {
			pattern = "yyyyMMdd"
		}
		layout := DateLayout(pattern)
		return func(v string) error {
			if _, err := time.Parse(layout, v); err != nil {
				return fmt.Errorf("%q is not a date of pattern %q", v, pattern)
			}
			return nil
		}, nil
	case "string", "regex", "regexp":
		if f.Pattern == "" {
			return nil, nil
		}
		re, err := regexp.Compile("^(?:" + f.Pattern + ")$")
		if err != nil {
			return nil, fmt.Errorf("%w: format pattern %q: %v", ErrInvalidSchema, f.Pattern, err)
		}
		return regexCheck(re, f.Pattern), nil
	default:
		return nil, fmt.Errorf("%w: unknown format type %q", ErrInvalidSchema, f.Type)
	}
}

func regexCheck(re *regexp.Regexp, what string) func(string) error {
	return func(v string) error {
		if !re.MatchString(v) {
			return fmt.Errorf("%q does not match %s", v, what)
		}
		return nil
	}
}

var dateReplacer = strings.NewReplacer(
	"yyyy", "2006",
	"yy", "06",
	"MM", "01",
	"dd", "02",
	"HH", "15",
	"mm", "04",
	"ss", "05",
	"SSS", "000",
)

// DateLayout converts a Java SimpleDateFormat pattern into a time layout.
func DateLayout(pattern string) string {
	return dateReplacer.Replace(pattern)
}
