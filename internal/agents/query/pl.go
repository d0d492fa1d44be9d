package query

import (
	"fmt"
	"strings"

	"ledger-assistant/internal/common/errors"
	"ledger-assistant/internal/entities"
)

// pointPL runs a single-filter profit-and-loss aggregate, then narrows the
// result to the requested metric.
func (e *Engine) pointPL(bag entities.Bag) *entities.QueryResult {
	if res := checkConflictingFilters(bag); res != nil {
		return res
	}

	f := filterFromBag(bag)
	pl, ok := e.store.CalculatePL(f)
	if !ok {
		return noData(f)
	}

	pl.Metric = bag.Metric
	applyMetric(pl, bag.Metric)
	return &entities.QueryResult{Type: entities.ResultPL, PL: pl}
}

// propertyDetails answers "tell me about property P": the tenant roster
// plus the property's P&L under the bag's time filters.
func (e *Engine) propertyDetails(bag entities.Bag) *entities.QueryResult {
	if bag.IsPortfolio {
		return e.summary()
	}

	f := filterFromBag(bag)
	pl, ok := e.store.CalculatePL(f)
	if !ok {
		return noData(f)
	}

	return &entities.QueryResult{
		Type: entities.ResultTenantInfo,
		TenantInfo: &entities.TenantInfoResult{
			ByProperty: true,
			Property:   bag.FirstProperty(),
			Tenants:    e.store.TenantsOf(bag.FirstProperty()),
			PL:         pl,
		},
	}
}

// checkConflictingFilters rejects a quarter and month that cannot coexist,
// e.g. quarter 2024-Q1 with month 2024-M07.
func checkConflictingFilters(bag entities.Bag) *entities.QueryResult {
	quarter := bag.Quarter.One()
	month := bag.Month.One()
	if quarter == "" || month == "" {
		return nil
	}

	qYear, qn, okQ := entities.SplitPeriod(quarter)
	mYear, mn, okM := entities.SplitPeriod(month)
	if !okQ || !okM {
		return nil
	}
	if qYear == mYear && entities.QuarterOfMonth(mn) == qn {
		return nil
	}

	return entities.NewErrorResult(&entities.ErrorResult{
		Code: errors.ErrCodeConflictingFilters,
		Message: fmt.Sprintf("The requested quarter (%s) and month (%s) describe different time ranges.",
			quarter, month),
	})
}

// Metric keywords matched against category and group names.
var metricKeywords = map[string][]string{
	"rent_income":    {"rent"},
	"parking_income": {"parking"},
}

// applyMetric narrows a P&L to the requested metric. Expenses zero the
// revenue side and negate the net; revenue-flavored metrics recompute from
// the category breakdown by keyword, falling back to total revenue when the
// keyword filter sums to zero.
func applyMetric(pl *entities.PLResult, metric string) {
	switch metric {
	case "", "pnl", "profit", "net_profit":
		return
	case "expenses":
		pl.TotalRevenue = 0
		pl.RevenueBreakdown = nil
		pl.NetProfit = -pl.TotalExpenses
	case "revenue", "rent_income", "parking_income":
		total := pl.TotalRevenue
		if keywords, ok := metricKeywords[metric]; ok {
			var filtered float64
			var kept []entities.CategoryAmount
			for _, c := range pl.RevenueBreakdown {
				if matchesKeywords(c, keywords) {
					filtered += c.Amount
					kept = append(kept, c)
				}
			}
			if filtered > 0 {
				total = filtered
				pl.RevenueBreakdown = kept
			}
		}
		pl.TotalRevenue = total
		pl.TotalExpenses = 0
		pl.ExpensesBreakdown = nil
		pl.NetProfit = total
	}
}

func matchesKeywords(c entities.CategoryAmount, keywords []string) bool {
	cat := strings.ToLower(c.LedgerCategory)
	group := strings.ToLower(c.LedgerGroup)
	for _, kw := range keywords {
		if strings.Contains(cat, kw) || strings.Contains(group, kw) {
			return true
		}
	}
	return false
}
