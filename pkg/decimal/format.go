// Package decimal validates numbers against Java DecimalFormat style
// patterns and handles two-decimal fixed point amounts.
package decimal

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	ErrInvalidPattern = errors.New("invalid pattern")
	ErrNoMatch        = errors.New("input does not match pattern")
)

const specialChars = "'()0.,#;¤%"

// Format is a compiled DecimalFormat pattern. A pattern holds a positive
// sub-pattern and an optional negative one separated by ';'. Without a
// negative sub-pattern the positive one prefixed with '-' is used.
type Format struct {
	pattern  string
	positive *regexp.Regexp
	negative *regexp.Regexp
}

func New(pattern string) (*Format, error) {
	var (
		inQuotes bool
		cur      strings.Builder
		patterns []string
	)

	for _, c := range pattern {
		if c == '\'' {
			inQuotes = !inQuotes
			cur.WriteRune(c)
			continue
		}
		if inQuotes {
			cur.WriteRune(c)
			continue
		}
		if !strings.ContainsRune(specialChars, c) {
			return nil, fmt.Errorf("%w: invalid character %q", ErrInvalidPattern, c)
		}
		if c == ';' {
			patterns = append(patterns, cur.String())
			cur.Reset()
			continue
		}
		cur.WriteRune(c)
	}
	patterns = append(patterns, cur.String())

	if inQuotes {
		return nil, fmt.Errorf("%w: unterminated quote", ErrInvalidPattern)
	}
	if len(patterns) > 2 {
		return nil, fmt.Errorf("%w: more than two sub-patterns", ErrInvalidPattern)
	}

	positive := patterns[0]
	negative := "-" + positive
	if len(patterns) == 2 {
		negative = "-" + patterns[1]
	}

	posRe, err := regexp.Compile(toRegex(positive))
	if err != nil {
		return nil, fmt.Errorf("%w: positive %q: %v", ErrInvalidPattern, positive, err)
	}
	negRe, err := regexp.Compile(toRegex(negative))
	if err != nil {
		return nil, fmt.Errorf("%w: negative %q: %v", ErrInvalidPattern, negative, err)
	}

	return &Format{pattern: pattern, positive: posRe, negative: negRe}, nil
}

// MustNew is like New but panics on an invalid pattern.
func MustNew(pattern string) *Format {
	f, err := New(pattern)
	if err != nil {
		panic(err)
	}
	return f
}

func (f *Format) String() string {
	return f.pattern
}

func (f *Format) Validate(input string) error {
	if f.positive.MatchString(input) || f.negative.MatchString(input) {
		return nil
	}
	return fmt.Errorf("%w: %q against %q", ErrNoMatch, input, f.pattern)
}

// toRegex translates a single sub-pattern. Grouping separators are
// optional; parentheses group.
func toRegex(pattern string) string {
	var sb strings.Builder
	sb.WriteByte('^')

	var inQuotes bool
	for _, c := range pattern {
		if c == '\'' {
			inQuotes = !inQuotes
			continue
		}
		if inQuotes {
			sb.WriteString(regexp.QuoteMeta(string(c)))
			continue
		}

		switch c {
		case '0':
			sb.WriteString(`\d`)
		case '#':
			sb.WriteString(`\d?`)
		case ',':
			sb.WriteString(`,?`)
		case '.':
			sb.WriteString(`\.`)
		case '¤':
			sb.WriteString(`\$`)
		case '%':
			sb.WriteString(`%`)
		default:
			sb.WriteRune(c)
		}
	}

	sb.WriteByte('$')
	return sb.String()
}
