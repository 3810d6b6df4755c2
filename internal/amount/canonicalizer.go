// Package amount converts monetary input between locale-formatted display
// strings and canonical decimal strings. It is the only numeric primitive
// the rest of the payment builder trusts.
package amount

import (
	"strings"

	"github.com/shopspring/decimal"

	"payreq/pkg/errors"
)

// ToCanonical parses a display string ("1,000.5") into its canonical decimal
// form ("1000.50"): no grouping separators, exactly two fraction digits.
// Inputs with more than one decimal point, non-numeric characters, more than
// two fraction digits, or a value of zero or less are rejected.
func ToCanonical(display string) (string, error) {
	s := strings.TrimSpace(display)
	if s == "" {
		return "", errors.ErrAmountInvalid
	}
	if strings.Count(s, ".") > 1 {
		return "", errors.ErrAmountInvalid
	}

	cleaned := strings.ReplaceAll(s, ",", "")
	for _, r := range cleaned {
		if (r < '0' || r > '9') && r != '.' {
			return "", errors.ErrAmountInvalid
		}
	}

	if frac := fractionDigits(cleaned); frac > 2 {
		return "", errors.ErrAmountPrecision
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return "", errors.ErrAmountInvalid
	}
	if !d.IsPositive() {
		return "", errors.ErrAmountNotPositive
	}

	return d.StringFixed(2), nil
}

// ToDisplay formats a canonical decimal string with thousands separators.
// Strings that are not canonical amounts are returned unchanged so callers
// can echo partial input safely.
func ToDisplay(canonical string) string {
	intPart, fracPart, ok := splitParts(canonical)
	if !ok {
		return canonical
	}
	out := groupThousands(intPart)
	if fracPart != "" {
		out += "." + fracPart
	}
	return out
}

// Reformat regroups a display string on every keystroke while preserving the
// fraction exactly as typed, so the visible text and the stored value never
// diverge ("1234.5" -> "1,234.5", "1234." -> "1,234."). Invalid input is
// rejected so the caller can keep the previous text.
func Reformat(display string) (string, error) {
	s := strings.ReplaceAll(strings.TrimSpace(display), ",", "")
	if s == "" {
		return "", nil
	}
	if strings.Count(s, ".") > 1 {
		return "", errors.ErrAmountInvalid
	}
	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' {
			return "", errors.ErrAmountInvalid
		}
	}
	if fractionDigits(s) > 2 {
		return "", errors.ErrAmountPrecision
	}

	intPart := s
	suffix := ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, suffix = s[:i], s[i:]
	}
	return groupThousands(intPart) + suffix, nil
}

// Equal reports whether two canonical amounts have the same numeric value.
func Equal(a, b string) bool {
	da, errA := decimal.NewFromString(a)
	db, errB := decimal.NewFromString(b)
	return errA == nil && errB == nil && da.Equal(db)
}

func fractionDigits(s string) int {
	if i := strings.IndexByte(s, '.'); i >= 0 {
		return len(s) - i - 1
	}
	return 0
}

// splitParts breaks a canonical string into integer and fraction digits,
// reporting false when the input is not purely numeric.
func splitParts(s string) (string, string, bool) {
	if s == "" {
		return "", "", false
	}
	intPart := s
	fracPart := ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, fracPart = s[:i], s[i+1:]
	}
	if intPart == "" {
		return "", "", false
	}
	for _, r := range intPart + fracPart {
		if r < '0' || r > '9' {
			return "", "", false
		}
	}
	return intPart, fracPart, true
}

func groupThousands(digits string) string {
	if digits == "" {
		return ""
	}
	n := len(digits)
	if n <= 3 {
		return digits
	}
	var b strings.Builder
	head := n % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < n; i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
