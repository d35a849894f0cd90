package util

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	reThousandsDot   = regexp.MustCompile(`^\d{1,3}(?:\.\d{3})+$`)
	reThousandsComma = regexp.MustCompile(`^\d{1,3}(?:,\d{3})+$`)
	reAmountChars    = regexp.MustCompile(`[^0-9.,\-]`)
)

// ParseAmount converts a raw monetary or quantity token to a float. Currency
// symbols, ISO prefixes and thousands separators are stripped; a comma is
// treated as the decimal separator only when no dot competes for that role
// (when both appear, the one further right is the decimal separator).
// Parenthesized values are negative. Unparseable input yields nil, never
// zero, so "absent" stays distinguishable from "zero-valued".
func ParseAmount(input string) *float64 {
	s := CollapseSpaces(input)
	if s == "" {
		return nil
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}

	s = reAmountChars.ReplaceAllString(s, "")
	s = strings.Trim(s, ".,")
	if strings.HasPrefix(s, "-") {
		negative = true
		s = strings.TrimPrefix(s, "-")
	}
	if s == "" || strings.Contains(s, "-") {
		return nil
	}

	s = normalizeSeparators(s)

	parsed, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	if negative {
		parsed = -parsed
	}
	return FloatPtr(parsed)
}

func normalizeSeparators(token string) string {
	hasDot := strings.Contains(token, ".")
	hasComma := strings.Contains(token, ",")

	switch {
	case hasDot && hasComma:
		if strings.LastIndex(token, ",") > strings.LastIndex(token, ".") {
			// 1.234,56
			token = strings.ReplaceAll(token, ".", "")
			token = strings.ReplaceAll(token, ",", ".")
		} else {
			// 1,234.56
			token = strings.ReplaceAll(token, ",", "")
		}
	case hasComma:
		if reThousandsComma.MatchString(token) {
			token = strings.ReplaceAll(token, ",", "")
		} else {
			token = strings.ReplaceAll(token, ",", ".")
		}
	case hasDot:
		if reThousandsDot.MatchString(token) {
			token = strings.ReplaceAll(token, ".", "")
		}
	}
	return token
}

func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
