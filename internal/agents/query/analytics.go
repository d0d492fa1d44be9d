package query

import (
	"sort"
	"strings"

	"ledger-assistant/internal/entities"
	"ledger-assistant/internal/ledger"
)

// Analytics targets.
const (
	targetProperties = "properties"
	targetTenants    = "tenants"
	targetCategories = "expense_categories"
)

// analyticsPlan resolves the operation, target, and metric for an
// open-ended question. The operation comes from the extractor when present,
// otherwise from question keywords; target and metric always come from the
// question text. The plan fully determines the answer for a given time
// filter, so the result cache keys on it rather than the raw text.
func analyticsPlan(bag entities.Bag) (op, target, metric string) {
	op = bag.Operation
	if op == "" {
		op = detectOperation(bag.RawQuery)
	}
	return op, detectTarget(bag.RawQuery), detectMetric(bag.Metric, bag.RawQuery)
}

// analytics answers open-ended ranking/listing questions.
func (e *Engine) analytics(bag entities.Bag) *entities.QueryResult {
	op, target, metric := analyticsPlan(bag)

	switch op {
	case "list":
		return &entities.QueryResult{
			Type: entities.ResultList,
			List: &entities.ListResult{Target: target, Items: e.universe(target)},
		}
	case "count":
		return &entities.QueryResult{
			Type: entities.ResultRanking,
			Ranking: &entities.RankingResult{
				Operation: op,
				Target:    target,
				Metric:    metric,
				Count:     len(e.universe(target)),
			},
		}
	case "sum", "avg":
		return e.aggregate(bag, op, target, metric)
	case "max", "min", "top", "bottom":
		return e.rank(bag, op, target, metric)
	default:
		return &entities.QueryResult{
			Type: entities.ResultList,
			List: &entities.ListResult{Target: target, Items: e.universe(target)},
		}
	}
}

func (e *Engine) universe(target string) []string {
	switch target {
	case targetTenants:
		return e.store.Tenants()
	case targetCategories:
		return e.store.Categories()
	default:
		return e.store.Properties()
	}
}

func (e *Engine) aggregate(bag entities.Bag, op, target, metric string) *entities.QueryResult {
	entries := e.scoreUniverse(bag, target, metric)
	if len(entries) == 0 {
		return noData(filterFromBag(bag))
	}

	var total float64
	for _, entry := range entries {
		total += entry.NetProfit
	}
	value := total
	if op == "avg" {
		value = total / float64(len(entries))
	}

	return &entities.QueryResult{
		Type: entities.ResultRanking,
		Ranking: &entities.RankingResult{
			Operation: op,
			Target:    target,
			Metric:    metric,
			Value:     value,
			Count:     len(entries),
		},
	}
}

// rank orders the universe by the requested metric: descending for max/top,
// ascending for min/bottom. "top"/"bottom" return three entries; max/min
// return the single answer with up to five for context.
func (e *Engine) rank(bag entities.Bag, op, target, metric string) *entities.QueryResult {
	entries := e.scoreUniverse(bag, target, metric)
	if len(entries) == 0 {
		return noData(filterFromBag(bag))
	}

	ascending := op == "min" || op == "bottom"
	sort.SliceStable(entries, func(i, j int) bool {
		if ascending {
			return entries[i].NetProfit < entries[j].NetProfit
		}
		return entries[i].NetProfit > entries[j].NetProfit
	})

	limit := 5
	if op == "top" || op == "bottom" {
		limit = 3
	}
	if len(entries) > limit {
		entries = entries[:limit]
	}

	res := &entities.RankingResult{
		Operation: op,
		Target:    target,
		Metric:    metric,
		Ranking:   entries,
	}
	if ascending {
		res.Worst = entries[0].Name
	} else {
		res.Best = entries[0].Name
	}

	return &entities.QueryResult{Type: entities.ResultRanking, Ranking: res}
}

// scoreUniverse computes the metric value for every member of the target
// universe under the bag's time filters. Members with no matching rows are
// skipped.
func (e *Engine) scoreUniverse(bag entities.Bag, target, metric string) []entities.RankedEntry {
	timeFilter := filterFromBag(bag)
	timeFilter.Property = ""
	timeFilter.Tenant = ""

	var entries []entities.RankedEntry
	switch target {
	case targetTenants:
		for _, tenant := range e.store.Tenants() {
			f := timeFilter
			f.Tenant = tenant
			revenue, count := e.store.TenantRevenue(f)
			if count == 0 {
				continue
			}
			entries = append(entries, entities.RankedEntry{Name: tenant, NetProfit: revenue, Revenue: revenue})
		}
	case targetCategories:
		totals := make(map[string]float64)
		for _, row := range e.store.Scan(timeFilter) {
			if row.LedgerType == ledger.TypeExpenses {
				totals[row.LedgerCategory] += row.Amount
			}
		}
		for _, cat := range e.store.Categories() {
			if amount, ok := totals[cat]; ok {
				magnitude := amount
				if magnitude < 0 {
					magnitude = -magnitude
				}
				entries = append(entries, entities.RankedEntry{Name: cat, NetProfit: magnitude})
			}
		}
	default:
		for _, prop := range e.store.Properties() {
			f := timeFilter
			f.Property = prop
			pl, ok := e.store.CalculatePL(f)
			if !ok {
				continue
			}
			value := pl.NetProfit
			if metric == "revenue" {
				value = pl.TotalRevenue
			}
			entries = append(entries, entities.RankedEntry{Name: prop, NetProfit: value, Revenue: pl.TotalRevenue})
		}
	}
	return entries
}

var operationKeywords = []struct {
	op       string
	keywords []string
}{
	{"top", []string{"top "}},
	{"bottom", []string{"bottom "}},
	{"max", []string{"highest", "best", "most profitable", "maximum", "biggest"}},
	{"min", []string{"lowest", "worst", "least profitable", "minimum", "smallest"}},
	{"avg", []string{"average", "avg", "mean"}},
	{"sum", []string{"total", "sum", "combined", "altogether"}},
	{"count", []string{"how many", "count", "number of"}},
	{"list", []string{"list", "show all", "which properties", "which tenants", "what properties", "what tenants"}},
}

func detectOperation(rawQuery string) string {
	q := strings.ToLower(rawQuery)
	for _, entry := range operationKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(q, kw) {
				return entry.op
			}
		}
	}
	return "list"
}

func detectTarget(rawQuery string) string {
	q := strings.ToLower(rawQuery)
	switch {
	case strings.Contains(q, "categor") || strings.Contains(q, "expense type"):
		return targetCategories
	case strings.Contains(q, "tenant"):
		return targetTenants
	default:
		return targetProperties
	}
}

func detectMetric(metric, rawQuery string) string {
	switch metric {
	case "revenue", "rent_income", "parking_income":
		return "revenue"
	case "pnl", "profit", "expenses":
		return "profit"
	}
	if strings.Contains(strings.ToLower(rawQuery), "revenue") {
		return "revenue"
	}
	return "profit"
}
