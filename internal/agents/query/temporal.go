package query

import (
	"sort"

	"ledger-assistant/internal/common/errors"
	"ledger-assistant/internal/entities"
	"ledger-assistant/internal/ledger"
)

// compareTemporal ranks one property (or the portfolio) across the
// requested periods. Periods without data are silently dropped from the
// ranking but stay visible through PeriodsRequested vs PeriodsFound; fewer
// than two resolved periods is missing_period_data.
func (e *Engine) compareTemporal(bag entities.Bag) *entities.QueryResult {
	property := ""
	if !bag.IsPortfolio {
		property = bag.FirstProperty()
	}

	var found []string
	var periods []entities.PeriodEntry
	for _, p := range bag.Periods {
		f, ok := periodFilter(property, p)
		if !ok {
			continue
		}
		pl, ok := e.store.CalculatePL(f)
		if !ok {
			continue
		}
		found = append(found, p)
		periods = append(periods, entities.PeriodEntry{
			Period:        p,
			TotalRevenue:  pl.TotalRevenue,
			TotalExpenses: pl.TotalExpenses,
			NetProfit:     pl.NetProfit,
		})
	}

	if len(periods) < 2 {
		return entities.NewErrorResult(&entities.ErrorResult{
			Code:             errors.ErrCodeMissingPeriodData,
			Message:          "Could not find data for at least 2 of the requested periods.",
			PeriodsRequested: bag.Periods,
			PeriodsFound:     found,
		})
	}

	ranking := make([]entities.PeriodEntry, len(periods))
	copy(ranking, periods)
	sort.SliceStable(ranking, func(i, j int) bool {
		return ranking[i].NetProfit > ranking[j].NetProfit
	})

	return &entities.QueryResult{
		Type: entities.ResultTemporalComparison,
		Temporal: &entities.TemporalResult{
			Property:         property,
			IsPortfolio:      bag.IsPortfolio,
			PeriodsRequested: bag.Periods,
			PeriodsFound:     found,
			Periods:          periods,
			Ranking:          ranking,
			BestPeriod:       ranking[0].Period,
			WorstPeriod:      ranking[len(ranking)-1].Period,
		},
	}
}

// periodFilter builds a ledger filter for one canonical period token by
// sniffing its shape.
func periodFilter(property, period string) (ledger.Filter, bool) {
	f := ledger.Filter{Property: property}
	switch entities.KindOfPeriod(period) {
	case entities.PeriodYear:
		f.Year = period
	case entities.PeriodQuarter:
		f.Quarter = period
	case entities.PeriodMonth:
		f.Month = period
	default:
		return f, false
	}
	return f, true
}
