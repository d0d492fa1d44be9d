// Package ledger holds the immutable financial dataset and the aggregate
// calculations every query operation is built from.
package ledger

import (
	"sort"
	"strings"

	"ledger-assistant/internal/entities"
)

// Ledger type labels, lowercased at load time.
const (
	TypeRevenue  = "revenue"
	TypeExpenses = "expenses"
)

// Row is one ledger line. Quarter and Month carry canonical period tokens
// ("2024-Q1", "2024-M03"). Amount keeps the source sign convention: revenue
// rows positive, expense rows negative; aggregates take abs() on expenses.
type Row struct {
	Property       string
	Tenant         string
	LedgerType     string
	LedgerCategory string
	LedgerGroup    string
	Year           string
	Quarter        string
	Month          string
	Amount         float64
}

// Filter narrows a scan. Empty fields match everything. Name comparisons are
// case-insensitive; period fields expect canonical tokens.
type Filter struct {
	Property string
	Tenant   string
	Year     string
	Quarter  string
	Month    string
}

// Store is the loaded dataset plus the canonical name universes derived from
// it. It is built once at startup and never mutated afterwards, so reads
// need no locking.
type Store struct {
	rows []Row

	properties []string
	tenants    []string
	years      []string
	categories []string

	propIndex   map[string]string
	tenantIndex map[string]string
}

// NewStore builds a store from rows, deriving sorted unique universes and
// case-insensitive canonical name indexes.
func NewStore(rows []Row) *Store {
	s := &Store{
		rows:        rows,
		propIndex:   make(map[string]string),
		tenantIndex: make(map[string]string),
	}

	propSet := make(map[string]struct{})
	tenantSet := make(map[string]struct{})
	yearSet := make(map[string]struct{})
	catSet := make(map[string]struct{})

	for _, r := range rows {
		if r.Property != "" {
			propSet[r.Property] = struct{}{}
			s.propIndex[strings.ToLower(r.Property)] = r.Property
		}
		if r.Tenant != "" {
			tenantSet[r.Tenant] = struct{}{}
			s.tenantIndex[strings.ToLower(r.Tenant)] = r.Tenant
		}
		if r.Year != "" {
			yearSet[r.Year] = struct{}{}
		}
		if r.LedgerCategory != "" {
			catSet[r.LedgerCategory] = struct{}{}
		}
	}

	s.properties = sortedKeys(propSet)
	s.tenants = sortedKeys(tenantSet)
	s.years = sortedKeys(yearSet)
	s.categories = sortedKeys(catSet)
	return s
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Properties returns the sorted unique property universe.
func (s *Store) Properties() []string { return s.properties }

// Tenants returns the sorted unique tenant universe.
func (s *Store) Tenants() []string { return s.tenants }

// Years returns the sorted unique years present in the data.
func (s *Store) Years() []string { return s.years }

// Categories returns the sorted unique ledger categories.
func (s *Store) Categories() []string { return s.categories }

// Len returns the total row count.
func (s *Store) Len() int { return len(s.rows) }

// CanonicalProperty resolves a case-insensitive property name to its
// canonical form.
func (s *Store) CanonicalProperty(name string) (string, bool) {
	canon, ok := s.propIndex[strings.ToLower(strings.TrimSpace(name))]
	return canon, ok
}

// CanonicalTenant resolves a case-insensitive tenant name to its canonical form.
func (s *Store) CanonicalTenant(name string) (string, bool) {
	canon, ok := s.tenantIndex[strings.ToLower(strings.TrimSpace(name))]
	return canon, ok
}

func (f Filter) matches(r Row) bool {
	if f.Property != "" && !strings.EqualFold(f.Property, r.Property) {
		return false
	}
	if f.Tenant != "" && !strings.EqualFold(f.Tenant, r.Tenant) {
		return false
	}
	if f.Year != "" && f.Year != r.Year {
		return false
	}
	if f.Quarter != "" && !strings.EqualFold(f.Quarter, r.Quarter) {
		return false
	}
	if f.Month != "" && !strings.EqualFold(f.Month, r.Month) {
		return false
	}
	return true
}

// Scan returns all rows matching the filter.
func (s *Store) Scan(f Filter) []Row {
	var out []Row
	for _, r := range s.rows {
		if f.matches(r) {
			out = append(out, r)
		}
	}
	return out
}

// breakdownLimit caps the category breakdown on each side of a P&L result.
const breakdownLimit = 10

// CalculatePL aggregates the rows matching f into a profit-and-loss result.
// Expenses are reported as magnitudes so that
// NetProfit == TotalRevenue - TotalExpenses. The boolean is false when no
// row matched.
func (s *Store) CalculatePL(f Filter) (*entities.PLResult, bool) {
	rows := s.Scan(f)
	if len(rows) == 0 {
		return nil, false
	}

	res := &entities.PLResult{
		Property:    f.Property,
		Year:        f.Year,
		Quarter:     f.Quarter,
		Month:       f.Month,
		RecordCount: len(rows),
	}

	revByCat := make(map[string]*entities.CategoryAmount)
	expByCat := make(map[string]*entities.CategoryAmount)

	for _, r := range rows {
		switch r.LedgerType {
		case TypeRevenue:
			res.TotalRevenue += r.Amount
			addCategory(revByCat, r, r.Amount)
		case TypeExpenses:
			res.TotalExpenses += abs(r.Amount)
			addCategory(expByCat, r, abs(r.Amount))
		}
	}
	res.NetProfit = res.TotalRevenue - res.TotalExpenses
	res.RevenueBreakdown = sortedBreakdown(revByCat)
	res.ExpensesBreakdown = sortedBreakdown(expByCat)
	return res, true
}

func addCategory(byCat map[string]*entities.CategoryAmount, r Row, amount float64) {
	entry, ok := byCat[r.LedgerCategory]
	if !ok {
		entry = &entities.CategoryAmount{
			LedgerCategory: r.LedgerCategory,
			LedgerGroup:    r.LedgerGroup,
		}
		byCat[r.LedgerCategory] = entry
	}
	entry.Amount += amount
}

func sortedBreakdown(byCat map[string]*entities.CategoryAmount) []entities.CategoryAmount {
	out := make([]entities.CategoryAmount, 0, len(byCat))
	for _, e := range byCat {
		out = append(out, *e)
	}
	// Largest magnitudes first; category name breaks ties deterministically.
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount != out[j].Amount {
			return out[i].Amount > out[j].Amount
		}
		return out[i].LedgerCategory < out[j].LedgerCategory
	})
	if len(out) > breakdownLimit {
		out = out[:breakdownLimit]
	}
	return out
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// TenantsOf returns the sorted unique tenant roster of one property.
func (s *Store) TenantsOf(property string) []string {
	set := make(map[string]struct{})
	for _, r := range s.Scan(Filter{Property: property}) {
		if r.Tenant != "" {
			set[r.Tenant] = struct{}{}
		}
	}
	return sortedKeys(set)
}

// PropertiesOf returns the sorted unique properties a tenant appears in.
func (s *Store) PropertiesOf(tenant string) []string {
	set := make(map[string]struct{})
	for _, r := range s.Scan(Filter{Tenant: tenant}) {
		if r.Property != "" {
			set[r.Property] = struct{}{}
		}
	}
	return sortedKeys(set)
}

// TenantRevenue sums the revenue attributable to one tenant, optionally
// narrowed by time filters. The int is the matched row count.
func (s *Store) TenantRevenue(f Filter) (float64, int) {
	var total float64
	var count int
	for _, r := range s.Scan(f) {
		count++
		if r.LedgerType == TypeRevenue {
			total += r.Amount
		}
	}
	return total, count
}

// Summary aggregates the whole dataset into the portfolio overview.
func (s *Store) Summary() *entities.SummaryResult {
	res := &entities.SummaryResult{
		TotalRecords:  len(s.rows),
		PropertyCount: len(s.properties),
		TenantCount:   len(s.tenants),
		Years:         append([]string(nil), s.years...),
	}
	var earliest, latest string
	for _, r := range s.rows {
		switch r.LedgerType {
		case TypeRevenue:
			res.TotalRevenue += r.Amount
		case TypeExpenses:
			res.TotalExpenses += abs(r.Amount)
		}
		// Canonical month tokens sort chronologically as strings.
		if r.Month != "" {
			if earliest == "" || r.Month < earliest {
				earliest = r.Month
			}
			if r.Month > latest {
				latest = r.Month
			}
		}
	}
	res.EarliestMonth = monthLabel(earliest)
	res.LatestMonth = monthLabel(latest)
	return res
}

// monthLabel renders a canonical month token as "January 2024".
func monthLabel(token string) string {
	year, n, ok := entities.SplitPeriod(token)
	if !ok {
		return token
	}
	name, ok := entities.MonthName(n)
	if !ok {
		return token
	}
	return name + " " + year
}
