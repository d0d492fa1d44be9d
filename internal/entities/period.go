package entities

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Canonical period tokens: "2024" (year), "2024-Q1" (quarter),
// "2024-M03" (month). Everything downstream of date normalization speaks
// only these forms.

// PeriodKind classifies a canonical period token by shape.
type PeriodKind int

const (
	PeriodUnknown PeriodKind = iota
	PeriodYear
	PeriodQuarter
	PeriodMonth
)

var yearTokenRe = regexp.MustCompile(`^\d{4}$`)

// KindOfPeriod sniffs the shape of a period token: four digits is a year,
// "-Q" marks a quarter, "-M" marks a month.
func KindOfPeriod(p string) PeriodKind {
	switch {
	case yearTokenRe.MatchString(p):
		return PeriodYear
	case strings.Contains(p, "-Q"):
		return PeriodQuarter
	case strings.Contains(p, "-M"):
		return PeriodMonth
	default:
		return PeriodUnknown
	}
}

var monthNumbers = map[string]int{
	"january": 1, "jan": 1,
	"february": 2, "feb": 2,
	"march": 3, "mar": 3,
	"april": 4, "apr": 4,
	"may": 5,
	"june": 6, "jun": 6,
	"july": 7, "jul": 7,
	"august": 8, "aug": 8,
	"september": 9, "sep": 9, "sept": 9,
	"october": 10, "oct": 10,
	"november": 11, "nov": 11,
	"december": 12, "dec": 12,
}

var monthNames = [...]string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

// MonthNumber resolves a month name, abbreviation, or numeric string to its
// 1-based number.
func MonthNumber(s string) (int, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if n, ok := monthNumbers[s]; ok {
		return n, true
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 1 && n <= 12 {
		return n, true
	}
	return 0, false
}

// MonthName returns the full name for a 1-based month number.
func MonthName(n int) (string, bool) {
	if n < 1 || n > 12 {
		return "", false
	}
	return monthNames[n-1], true
}

// QuarterOfMonth returns the quarter (1-4) a month belongs to.
func QuarterOfMonth(month int) int {
	return (month-1)/3 + 1
}

// QuarterToken builds a canonical quarter token.
func QuarterToken(year string, q int) string {
	return fmt.Sprintf("%s-Q%d", year, q)
}

// MonthToken builds a canonical month token.
func MonthToken(year string, m int) string {
	return fmt.Sprintf("%s-M%02d", year, m)
}

// SplitPeriod splits a canonical quarter or month token into its year and
// ordinal parts. ok is false for malformed tokens.
func SplitPeriod(p string) (year string, ordinal int, ok bool) {
	i := strings.IndexAny(p, "-")
	if i != 4 || len(p) < 6 {
		return "", 0, false
	}
	year = p[:4]
	if !yearTokenRe.MatchString(year) {
		return "", 0, false
	}
	n, err := strconv.Atoi(p[i+2:])
	if err != nil {
		return "", 0, false
	}
	return year, n, true
}
