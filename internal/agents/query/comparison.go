package query

import (
	"sort"

	"ledger-assistant/internal/common/errors"
	"ledger-assistant/internal/entities"
	"ledger-assistant/internal/ledger"
)

// compareProperties ranks the requested properties by net profit under the
// bag's time filters. Properties with no matching rows are dropped; fewer
// than two survivors is an error naming what is available.
func (e *Engine) compareProperties(bag entities.Bag) *entities.QueryResult {
	if len(bag.Properties) < 2 {
		return entities.NewErrorResult(&entities.ErrorResult{
			Code:                errors.ErrCodeMissingRequiredField,
			Message:             "A comparison needs at least 2 properties.",
			MissingFields:       []string{"properties"},
			AvailableProperties: e.store.Properties(),
		})
	}

	timeFilter := filterFromBag(bag)
	var compared []entities.PropertyEntry
	for _, prop := range bag.Properties {
		f := ledger.Filter{
			Property: prop,
			Year:     timeFilter.Year,
			Quarter:  timeFilter.Quarter,
			Month:    timeFilter.Month,
		}
		pl, ok := e.store.CalculatePL(f)
		if !ok {
			continue
		}
		compared = append(compared, entities.PropertyEntry{
			Property:      prop,
			TotalRevenue:  pl.TotalRevenue,
			TotalExpenses: pl.TotalExpenses,
			NetProfit:     pl.NetProfit,
			Tenants:       e.store.TenantsOf(prop),
			RecordCount:   pl.RecordCount,
		})
	}

	if len(compared) < 2 {
		return noData(timeFilter)
	}

	// Stable sort keeps encounter order for equal profits.
	ranking := make([]entities.RankedEntry, len(compared))
	order := make([]entities.PropertyEntry, len(compared))
	copy(order, compared)
	sort.SliceStable(order, func(i, j int) bool {
		return order[i].NetProfit > order[j].NetProfit
	})
	for i, p := range order {
		ranking[i] = entities.RankedEntry{Name: p.Property, NetProfit: p.NetProfit, Revenue: p.TotalRevenue}
	}

	return &entities.QueryResult{
		Type: entities.ResultPropertyComparison,
		Comparison: &entities.ComparisonResult{
			Properties:     compared,
			Ranking:        ranking,
			BestPerformer:  ranking[0].Name,
			WorstPerformer: ranking[len(ranking)-1].Name,
			RequestedCount: len(bag.Properties),
		},
	}
}
