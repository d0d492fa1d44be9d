// Package query executes validated, normalized entity bags against the
// ledger store. Six operations share one dispatch; every outcome is a
// QueryResult, never a Go error: an empty scan is a no_financial_data
// result, and underspecified input was validation's job.
package query

import (
	"context"

	"ledger-assistant/internal/common/errors"
	"ledger-assistant/internal/common/logger"
	"ledger-assistant/internal/entities"
	"ledger-assistant/internal/ledger"
)

// Engine runs query operations against the loaded ledger.
type Engine struct {
	store  *ledger.Store
	cache  *Cache
	logger logger.Logger
}

// New builds an Engine. cache may be nil to disable result caching.
func New(store *ledger.Store, cache *Cache, log logger.Logger) *Engine {
	return &Engine{
		store:  store,
		cache:  cache,
		logger: log.WithFields(map[string]interface{}{"agent": "query-engine"}),
	}
}

// Execute dispatches on the intent. The switch is exhaustive over the
// intent enum; anything the classifier coerced to general_query lands on
// the dataset summary, and unsupported terminates with an error result.
func (e *Engine) Execute(ctx context.Context, intent entities.Intent, bag entities.Bag) *entities.QueryResult {
	if res, ok := e.cacheGet(ctx, intent, bag); ok {
		return res
	}

	var res *entities.QueryResult
	switch intent {
	case entities.IntentPLCalculation:
		res = e.pointPL(bag)
	case entities.IntentPropertyDetails:
		res = e.propertyDetails(bag)
	case entities.IntentPropertyComparison:
		res = e.compareProperties(bag)
	case entities.IntentTemporalComparison:
		res = e.compareTemporal(bag)
	case entities.IntentMultiEntityQuery:
		res = e.multiEntity(bag)
	case entities.IntentTenantInfo:
		res = e.tenantInfo(bag)
	case entities.IntentAnalyticsQuery:
		res = e.analytics(bag)
	case entities.IntentGeneralQuery:
		res = e.summary()
	case entities.IntentUnsupported:
		res = unsupported()
	default:
		res = unsupported()
	}

	if !res.IsError() {
		e.cacheSet(ctx, intent, bag, res)
	}
	return res
}

// summary answers open-ended questions with the portfolio overview.
func (e *Engine) summary() *entities.QueryResult {
	return &entities.QueryResult{
		Type:    entities.ResultSummary,
		Summary: e.store.Summary(),
	}
}

// filterFromBag builds the ledger filter for point operations. Portfolio
// requests carry no property filter.
func filterFromBag(bag entities.Bag) ledger.Filter {
	f := ledger.Filter{
		Tenant:  bag.FirstTenant(),
		Year:    bag.Year.One(),
		Quarter: bag.Quarter.One(),
		Month:   bag.Month.One(),
	}
	if !bag.IsPortfolio {
		f.Property = bag.FirstProperty()
	}
	return f
}

func unsupported() *entities.QueryResult {
	return entities.NewErrorResult(&entities.ErrorResult{
		Code:    errors.ErrCodeUnsupportedIntent,
		Message: "I can answer questions about properties, tenants, and financial periods in the ledger.",
	})
}

func noData(f ledger.Filter) *entities.QueryResult {
	return entities.NewErrorResult(&entities.ErrorResult{
		Code:    errors.ErrCodeNoFinancialData,
		Message: "No financial data matched the requested filters.",
		PeriodsRequested: func() []string {
			var ps []string
			for _, p := range []string{f.Year, f.Quarter, f.Month} {
				if p != "" {
					ps = append(ps, p)
				}
			}
			return ps
		}(),
	})
}
