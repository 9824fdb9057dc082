package agrosdk

import (
	"fmt"
	"strings"
)

// DefaultCountryCode is prepended to bare national numbers.
const DefaultCountryCode = "+91"

// NormalizePhone canonicalises a user-entered number to E.164.
//
// Separators (spaces, dashes, dots, parentheses) are dropped. A number that
// already starts with '+' keeps its prefix, so NormalizePhone is idempotent.
// A 10-digit national number gets countryCode prepended, as does a number
// that already carries the country digits without the '+'.
func NormalizePhone(raw, countryCode string) (string, error) {
	if countryCode == "" {
		countryCode = DefaultCountryCode
	}
	ccDigits := strings.TrimPrefix(countryCode, "+")

	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '.', '(', ')', '\t':
			return -1
		}
		return r
	}, strings.TrimSpace(raw))

	if rest, ok := strings.CutPrefix(cleaned, "+"); ok {
		if len(rest) < 8 || len(rest) > 15 || !allDigits(rest) {
			return "", fmt.Errorf("%w: %q", ErrInvalidPhone, raw)
		}
		return cleaned, nil
	}

	if !allDigits(cleaned) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPhone, raw)
	}

	switch {
	case len(cleaned) == 10:
		return "+" + ccDigits + cleaned, nil
	case len(cleaned) == len(ccDigits)+10 && strings.HasPrefix(cleaned, ccDigits):
		return "+" + cleaned, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPhone, raw)
	}
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
