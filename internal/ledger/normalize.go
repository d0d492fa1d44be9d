package ledger

import (
	"strconv"
	"strings"

	"ledger-assistant/internal/entities"
)

// canonicalRow normalizes one loaded row: ledger types are lowercased and
// quarter/month values become canonical period tokens. Source data mixes
// dialects ("Q1", "2024-Q1", "January", "1"); everything downstream expects
// only the canonical forms.
func canonicalRow(r Row) Row {
	r.Property = strings.TrimSpace(r.Property)
	r.Tenant = strings.TrimSpace(r.Tenant)
	r.LedgerType = strings.ToLower(strings.TrimSpace(r.LedgerType))
	r.Year = strings.TrimSpace(r.Year)
	r.Quarter = canonicalQuarter(r.Quarter, r.Year)
	r.Month = canonicalMonth(r.Month, r.Year)
	return r
}

func canonicalQuarter(q, year string) string {
	q = strings.ToUpper(strings.TrimSpace(q))
	if q == "" {
		return ""
	}
	if strings.Contains(q, "-Q") {
		return q
	}
	q = strings.TrimPrefix(q, "Q")
	if n, err := strconv.Atoi(q); err == nil && n >= 1 && n <= 4 && year != "" {
		return entities.QuarterToken(year, n)
	}
	return ""
}

func canonicalMonth(m, year string) string {
	m = strings.TrimSpace(m)
	if m == "" {
		return ""
	}
	if strings.Contains(strings.ToUpper(m), "-M") {
		return strings.ToUpper(m)
	}
	if n, ok := entities.MonthNumber(m); ok && year != "" {
		return entities.MonthToken(year, n)
	}
	return ""
}
