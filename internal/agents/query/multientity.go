package query

import (
	"ledger-assistant/internal/common/errors"
	"ledger-assistant/internal/entities"
)

// multiEntity fans a compound question out into its sub-queries and routes
// each one independently: two or more properties means a comparison, any
// time filter means a point P&L, otherwise a property or tenant lookup.
// Results come back in request order.
func (e *Engine) multiEntity(bag entities.Bag) *entities.QueryResult {
	subs := bag.SubQueries
	if len(subs) == 0 {
		return entities.NewErrorResult(&entities.ErrorResult{
			Code:          errors.ErrCodeMissingRequiredField,
			Message:       "Could not split the question into separate sub-queries.",
			MissingFields: []string{"sub_queries"},
		})
	}

	results := make([]entities.SubResult, len(subs))
	for i, sub := range subs {
		results[i] = entities.SubResult{
			Index:    i,
			RawQuery: sub.RawQuery,
			Result:   e.routeSubQuery(sub.Entities),
		}
	}

	return &entities.QueryResult{
		Type: entities.ResultMultiEntity,
		MultiEntity: &entities.MultiEntityResult{
			TotalQueries: len(subs),
			Results:      results,
		},
	}
}

func (e *Engine) routeSubQuery(bag entities.Bag) *entities.QueryResult {
	switch {
	case len(bag.Properties) >= 2:
		return e.compareProperties(bag)
	case bag.HasTimeFilter():
		return e.pointPL(bag)
	case len(bag.Tenants) > 0:
		return e.tenantInfo(bag)
	case len(bag.Properties) > 0 || bag.IsPortfolio:
		return e.propertyDetails(bag)
	default:
		return entities.NewErrorResult(&entities.ErrorResult{
			Code:          errors.ErrCodeMissingRequiredField,
			Message:       "This part of the question names no property, tenant, or period.",
			MissingFields: []string{"properties"},
		})
	}
}
