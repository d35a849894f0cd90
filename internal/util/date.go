package util

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	reISODate     = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)
	reYearFirst   = regexp.MustCompile(`^(\d{4})[./-](\d{1,2})[./-](\d{1,2})$`)
	reNumericDate = regexp.MustCompile(`^(\d{1,2})[./-](\d{1,2})[./-](\d{2,4})$`)
	reDayMonth    = regexp.MustCompile(`(?i)^(\d{1,2})(?:st|nd|rd|th)?\s+([A-Za-z]{3,9})\.?,?\s+(\d{2,4})$`)
	reMonthDay    = regexp.MustCompile(`(?i)^([A-Za-z]{3,9})\.?\s+(\d{1,2})(?:st|nd|rd|th)?,?\s+(\d{2,4})$`)
)

var monthsByPrefix = map[string]int{
	"jan": 1, "feb": 2, "mar": 3, "apr": 4, "may": 5, "jun": 6,
	"jul": 7, "aug": 8, "sep": 9, "oct": 10, "nov": 11, "dec": 12,
}

// NormalizeDate converts a raw date string to ISO-8601 (YYYY-MM-DD). The
// order argument ("dmy" or "mdy") decides ambiguous numeric dates; when one
// component exceeds 12 it is taken as the day regardless of order. Already
// normalized input passes through unchanged; anything unparseable yields nil.
func NormalizeDate(input, order string) *string {
	s := CollapseSpaces(input)
	if s == "" {
		return nil
	}
	lower := strings.ToLower(s)
	if lower == "none" || lower == "null" || lower == "n/a" {
		return nil
	}

	if m := reISODate.FindStringSubmatch(s); m != nil {
		return isoDate(atoi(m[1]), atoi(m[2]), atoi(m[3]))
	}
	if m := reYearFirst.FindStringSubmatch(s); m != nil {
		return isoDate(atoi(m[1]), atoi(m[2]), atoi(m[3]))
	}
	if m := reNumericDate.FindStringSubmatch(s); m != nil {
		a, b, year := atoi(m[1]), atoi(m[2]), expandYear(atoi(m[3]))
		day, month := a, b
		if order == "mdy" {
			day, month = b, a
		}
		// A component over 12 can only be the day.
		if a > 12 && b <= 12 {
			day, month = a, b
		} else if b > 12 && a <= 12 {
			day, month = b, a
		}
		return isoDate(year, month, day)
	}
	if m := reDayMonth.FindStringSubmatch(s); m != nil {
		if month, ok := monthNumber(m[2]); ok {
			return isoDate(expandYear(atoi(m[3])), month, atoi(m[1]))
		}
	}
	if m := reMonthDay.FindStringSubmatch(s); m != nil {
		if month, ok := monthNumber(m[1]); ok {
			return isoDate(expandYear(atoi(m[3])), month, atoi(m[2]))
		}
	}

	return nil
}

func isoDate(year, month, day int) *string {
	if year < 1000 || month < 1 || month > 12 || day < 1 || day > 31 {
		return nil
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return nil
	}
	return StringPtr(fmt.Sprintf("%04d-%02d-%02d", year, month, day))
}

func monthNumber(name string) (int, bool) {
	key := strings.ToLower(name)
	if len(key) > 3 {
		key = key[:3]
	}
	month, ok := monthsByPrefix[key]
	return month, ok
}

func expandYear(year int) int {
	if year < 100 {
		return 2000 + year
	}
	return year
}

func atoi(s string) int {
	v, _ := strconv.Atoi(s)
	return v
}
