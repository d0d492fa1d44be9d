package query

import (
	"ledger-assistant/internal/common/errors"
	"ledger-assistant/internal/entities"
	"ledger-assistant/internal/ledger"
)

// tenantInfo serves the two lookup shapes sharing one intent: a property
// filter in the bag asks for that property's tenant roster (plus its P&L);
// otherwise the named tenant's attributable revenue and property set.
func (e *Engine) tenantInfo(bag entities.Bag) *entities.QueryResult {
	if prop := bag.FirstProperty(); prop != "" {
		return e.propertyDetails(bag)
	}

	tenant := bag.FirstTenant()
	if tenant == "" {
		return entities.NewErrorResult(&entities.ErrorResult{
			Code:             errors.ErrCodeMissingRequiredField,
			Message:          "Name a tenant or a property to look up.",
			MissingFields:    []string{"tenant or property"},
			AvailableTenants: e.store.Tenants(),
		})
	}

	f := ledger.Filter{
		Tenant:  tenant,
		Year:    bag.Year.One(),
		Quarter: bag.Quarter.One(),
		Month:   bag.Month.One(),
	}
	revenue, count := e.store.TenantRevenue(f)
	if count == 0 {
		return noData(f)
	}

	return &entities.QueryResult{
		Type: entities.ResultTenantInfo,
		TenantInfo: &entities.TenantInfoResult{
			Tenant:       tenant,
			Properties:   e.store.PropertiesOf(tenant),
			TotalRevenue: revenue,
			RecordCount:  count,
		},
	}
}
