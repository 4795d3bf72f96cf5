package decimal

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidAmount = errors.New("invalid amount")

// FormatCents prints c hundredths as a two-decimal number.
func FormatCents(c int64) string {
	var sign string
	if c < 0 {
		sign = "-"
		c = -c
	}
	return fmt.Sprintf("%s%d.%02d", sign, c/100, c%100)
}

// ZeroFill pads s on the left with zeros up to width, keeping a leading
// sign in front. Longer strings are returned unchanged.
func ZeroFill(s string, width int) string {
	if len(s) >= width {
		return s
	}

	var sign string
	if s != "" && (s[0] == '-' || s[0] == '+') {
		sign, s = s[:1], s[1:]
	}
	return sign + strings.Repeat("0", width-len(sign)-len(s)) + s
}

// ParseCents reads an optionally signed decimal with at most two fraction
// digits. Grouping commas and surrounding spaces are ignored.
func ParseCents(s string) (int64, error) {
	bs := strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if bs == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}

	var (
		neg    bool
		result int64
		i      int
	)
	switch bs[0] {
	case '-':
		neg = true
		i++
	case '+':
		i++
	}

	dotIndex := strings.IndexByte(bs, '.')
	if dotIndex < 0 {
		dotIndex = len(bs)
	}
	if i == dotIndex {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}

	for ; i < dotIndex; i++ {
		if bs[i] < '0' || bs[i] > '9' {
			return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
		}
		result = result*10 + int64(bs[i]-'0')
	}

	frac := ""
	if dotIndex < len(bs) {
		frac = bs[dotIndex+1:]
	}
	if len(frac) > 2 {
		return 0, fmt.Errorf("%w: %q has more than two decimals", ErrInvalidAmount, s)
	}
	frac += strings.Repeat("0", 2-len(frac))
	for j := range 2 {
		if frac[j] < '0' || frac[j] > '9' {
			return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
		}
		result = result*10 + int64(frac[j]-'0')
	}

	if neg {
		result = -result
	}
	return result, nil
}
