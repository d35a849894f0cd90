package util

import (
	"regexp"
	"strings"
)

var (
	reSpaces  = regexp.MustCompile(`\s+`)
	reLetters = regexp.MustCompile(`[A-Za-z]`)
	reISOCode = regexp.MustCompile(`^[A-Za-z]{3}$`)
)

var currencySymbols = map[string]string{
	"€": "EUR",
	"$": "USD",
	"£": "GBP",
	"¥": "JPY",
}

// CollapseSpaces trims the string and squashes internal runs of whitespace
// (non-breaking spaces included) to a single space.
func CollapseSpaces(input string) string {
	s := strings.ReplaceAll(input, " ", " ")
	return strings.TrimSpace(reSpaces.ReplaceAllString(s, " "))
}

// CurrencyCode canonicalizes a currency token: known symbols map to their ISO
// code, three-letter codes are uppercased, anything else passes through
// trimmed so raw symbols survive for the output.
func CurrencyCode(input string) string {
	s := strings.TrimSpace(input)
	if s == "" {
		return ""
	}
	if code, ok := currencySymbols[s]; ok {
		return code
	}
	if reISOCode.MatchString(s) {
		return strings.ToUpper(s)
	}
	return s
}

func HasLetters(input string) bool {
	return reLetters.MatchString(input)
}

// SplitLines splits on newlines, trims each line and drops empty ones.
func SplitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	parts := strings.Split(text, "\n")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
