package query

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger-assistant/internal/common/errors"
	"ledger-assistant/internal/common/logger"
	"ledger-assistant/internal/entities"
	"ledger-assistant/internal/ledger"
)

func testStore() *ledger.Store {
	return ledger.NewStore([]ledger.Row{
		{Property: "Building 1", Tenant: "Tenant A", LedgerType: ledger.TypeRevenue, LedgerCategory: "Rental Income", LedgerGroup: "Income", Year: "2024", Quarter: "2024-Q1", Month: "2024-M01", Amount: 10000},
		{Property: "Building 1", Tenant: "Tenant A", LedgerType: ledger.TypeRevenue, LedgerCategory: "Parking Income", LedgerGroup: "Income", Year: "2024", Quarter: "2024-Q1", Month: "2024-M02", Amount: 500},
		{Property: "Building 1", Tenant: "Tenant A", LedgerType: ledger.TypeExpenses, LedgerCategory: "Maintenance", LedgerGroup: "Operating", Year: "2024", Quarter: "2024-Q1", Month: "2024-M01", Amount: -3000},
		{Property: "Building 1", Tenant: "Tenant B", LedgerType: ledger.TypeRevenue, LedgerCategory: "Rental Income", LedgerGroup: "Income", Year: "2024", Quarter: "2024-Q2", Month: "2024-M04", Amount: 12000},
		{Property: "Building 18", Tenant: "Tenant C", LedgerType: ledger.TypeRevenue, LedgerCategory: "Rental Income", LedgerGroup: "Income", Year: "2024", Quarter: "2024-Q1", Month: "2024-M03", Amount: 8000},
		{Property: "Building 18", Tenant: "Tenant C", LedgerType: ledger.TypeExpenses, LedgerCategory: "Utilities", LedgerGroup: "Operating", Year: "2024", Quarter: "2024-Q1", Month: "2024-M03", Amount: -2000},
		{Property: "Building 18", Tenant: "Tenant C", LedgerType: ledger.TypeRevenue, LedgerCategory: "Rental Income", LedgerGroup: "Income", Year: "2025", Quarter: "2025-Q1", Month: "2025-M01", Amount: 9000},
		{Property: "Riverside Plaza", Tenant: "Acme Corp", LedgerType: ledger.TypeRevenue, LedgerCategory: "Rental Income", LedgerGroup: "Income", Year: "2024", Quarter: "2024-Q1", Month: "2024-M01", Amount: 21000},
		{Property: "Riverside Plaza", Tenant: "Acme Corp", LedgerType: ledger.TypeExpenses, LedgerCategory: "Cleaning", LedgerGroup: "Operating", Year: "2024", Quarter: "2024-Q1", Month: "2024-M02", Amount: -5000},
	})
}

func testEngine(t *testing.T) *Engine {
	t.Helper()
	return New(testStore(), nil, logger.NewNoOpLogger())
}

func TestPointPL(t *testing.T) {
	e := testEngine(t)

	res := e.Execute(context.Background(), entities.IntentPLCalculation, entities.Bag{
		Properties: []string{"Building 1"},
		Year:       entities.Flex("2024"),
	})

	require.Equal(t, entities.ResultPL, res.Type)
	require.NotNil(t, res.PL)
	assert.Equal(t, 22500.0, res.PL.TotalRevenue)
	assert.Equal(t, 3000.0, res.PL.TotalExpenses)
	assert.Equal(t, 19500.0, res.PL.NetProfit)
	assert.Equal(t, 4, res.PL.RecordCount)
}

func TestPointPLNoData(t *testing.T) {
	e := testEngine(t)

	res := e.Execute(context.Background(), entities.IntentPLCalculation, entities.Bag{
		Properties: []string{"Building 1"},
		Year:       entities.Flex("2026"),
	})

	require.Equal(t, entities.ResultError, res.Type)
	assert.Equal(t, errors.ErrCodeNoFinancialData, res.Error.Code)
	assert.Equal(t, []string{"2026"}, res.Error.PeriodsRequested)
}

func TestPointPLConflictingFilters(t *testing.T) {
	e := testEngine(t)

	res := e.Execute(context.Background(), entities.IntentPLCalculation, entities.Bag{
		Properties: []string{"Building 1"},
		Quarter:    entities.Flex("2024-Q1"),
		Month:      entities.Flex("2024-M07"),
	})

	require.Equal(t, entities.ResultError, res.Type)
	assert.Equal(t, errors.ErrCodeConflictingFilters, res.Error.Code)
}

func TestPointPLQuarterContainsMonth(t *testing.T) {
	e := testEngine(t)

	res := e.Execute(context.Background(), entities.IntentPLCalculation, entities.Bag{
		Properties: []string{"Building 1"},
		Quarter:    entities.Flex("2024-Q1"),
		Month:      entities.Flex("2024-M01"),
	})

	require.Equal(t, entities.ResultPL, res.Type)
	assert.Equal(t, 10000.0, res.PL.TotalRevenue)
}

func TestApplyMetricExpenses(t *testing.T) {
	e := testEngine(t)

	res := e.pointPL(entities.Bag{
		Properties: []string{"Building 1"},
		Year:       entities.Flex("2024"),
		Metric:     "expenses",
	})

	require.Equal(t, entities.ResultPL, res.Type)
	assert.Zero(t, res.PL.TotalRevenue)
	assert.Nil(t, res.PL.RevenueBreakdown)
	assert.Equal(t, 3000.0, res.PL.TotalExpenses)
	assert.Equal(t, -3000.0, res.PL.NetProfit)
}

func TestApplyMetricRentIncome(t *testing.T) {
	e := testEngine(t)

	res := e.pointPL(entities.Bag{
		Properties: []string{"Building 1"},
		Year:       entities.Flex("2024"),
		Metric:     "rent_income",
	})

	require.Equal(t, entities.ResultPL, res.Type)
	assert.Equal(t, 22000.0, res.PL.TotalRevenue)
	assert.Equal(t, 22000.0, res.PL.NetProfit)
	assert.Zero(t, res.PL.TotalExpenses)
	require.Len(t, res.PL.RevenueBreakdown, 1)
	assert.Equal(t, "Rental Income", res.PL.RevenueBreakdown[0].LedgerCategory)
}

func TestApplyMetricRevenueKeepsFullBreakdown(t *testing.T) {
	e := testEngine(t)

	res := e.pointPL(entities.Bag{
		Properties: []string{"Building 1"},
		Year:       entities.Flex("2024"),
		Metric:     "revenue",
	})

	require.Equal(t, entities.ResultPL, res.Type)
	assert.Equal(t, 22500.0, res.PL.TotalRevenue)
	assert.Len(t, res.PL.RevenueBreakdown, 2)
}

func TestPropertyDetails(t *testing.T) {
	e := testEngine(t)

	res := e.Execute(context.Background(), entities.IntentPropertyDetails, entities.Bag{
		Properties: []string{"Building 1"},
	})

	require.Equal(t, entities.ResultTenantInfo, res.Type)
	require.NotNil(t, res.TenantInfo)
	assert.True(t, res.TenantInfo.ByProperty)
	assert.Equal(t, "Building 1", res.TenantInfo.Property)
	assert.Equal(t, []string{"Tenant A", "Tenant B"}, res.TenantInfo.Tenants)
	require.NotNil(t, res.TenantInfo.PL)
	assert.Equal(t, 19500.0, res.TenantInfo.PL.NetProfit)
}

func TestPropertyDetailsPortfolioFallsBackToSummary(t *testing.T) {
	e := testEngine(t)

	res := e.Execute(context.Background(), entities.IntentPropertyDetails, entities.Bag{IsPortfolio: true})

	require.Equal(t, entities.ResultSummary, res.Type)
	assert.Equal(t, 3, res.Summary.PropertyCount)
}

func TestCompareProperties(t *testing.T) {
	e := testEngine(t)

	res := e.Execute(context.Background(), entities.IntentPropertyComparison, entities.Bag{
		Properties: []string{"Building 1", "Building 18", "Riverside Plaza"},
		Year:       entities.Flex("2024"),
	})

	require.Equal(t, entities.ResultPropertyComparison, res.Type)
	require.NotNil(t, res.Comparison)
	assert.Equal(t, "Building 1", res.Comparison.BestPerformer)
	assert.Equal(t, "Building 18", res.Comparison.WorstPerformer)
	assert.Equal(t, 3, res.Comparison.RequestedCount)
	require.Len(t, res.Comparison.Ranking, 3)
	assert.Equal(t, 19500.0, res.Comparison.Ranking[0].NetProfit)
	assert.Equal(t, "Riverside Plaza", res.Comparison.Ranking[1].Name)
}

func TestComparePropertiesNeedsTwo(t *testing.T) {
	e := testEngine(t)

	res := e.Execute(context.Background(), entities.IntentPropertyComparison, entities.Bag{
		Properties: []string{"Building 1"},
	})

	require.Equal(t, entities.ResultError, res.Type)
	assert.Equal(t, errors.ErrCodeMissingRequiredField, res.Error.Code)
	assert.Equal(t, []string{"Building 1", "Building 18", "Riverside Plaza"}, res.Error.AvailableProperties)
}

func TestComparePropertiesDropsEmptyThenFails(t *testing.T) {
	e := testEngine(t)

	// Only Building 18 has 2025 rows, so one survivor is not a comparison.
	res := e.Execute(context.Background(), entities.IntentPropertyComparison, entities.Bag{
		Properties: []string{"Building 1", "Building 18"},
		Year:       entities.Flex("2025"),
	})

	require.Equal(t, entities.ResultError, res.Type)
	assert.Equal(t, errors.ErrCodeNoFinancialData, res.Error.Code)
}

func TestCompareTemporal(t *testing.T) {
	e := testEngine(t)

	res := e.Execute(context.Background(), entities.IntentTemporalComparison, entities.Bag{
		Properties: []string{"Building 18"},
		Periods:    []string{"2024", "2025"},
	})

	require.Equal(t, entities.ResultTemporalComparison, res.Type)
	require.NotNil(t, res.Temporal)
	// 2025 has no expenses: 9000 beats 8000-2000.
	assert.Equal(t, "2025", res.Temporal.BestPeriod)
	assert.Equal(t, "2024", res.Temporal.WorstPeriod)
	assert.Equal(t, []string{"2024", "2025"}, res.Temporal.PeriodsFound)
	assert.Equal(t, "2024", res.Temporal.Periods[0].Period)
}

func TestCompareTemporalPortfolio(t *testing.T) {
	e := testEngine(t)

	res := e.Execute(context.Background(), entities.IntentTemporalComparison, entities.Bag{
		IsPortfolio: true,
		Periods:     []string{"2024-Q1", "2024-Q2"},
	})

	require.Equal(t, entities.ResultTemporalComparison, res.Type)
	assert.True(t, res.Temporal.IsPortfolio)
	assert.Equal(t, "2024-Q1", res.Temporal.BestPeriod)
}

func TestCompareTemporalMissingPeriods(t *testing.T) {
	e := testEngine(t)

	res := e.Execute(context.Background(), entities.IntentTemporalComparison, entities.Bag{
		Properties: []string{"Building 18"},
		Periods:    []string{"2025", "2026"},
	})

	require.Equal(t, entities.ResultError, res.Type)
	assert.Equal(t, errors.ErrCodeMissingPeriodData, res.Error.Code)
	assert.Equal(t, []string{"2025", "2026"}, res.Error.PeriodsRequested)
	assert.Equal(t, []string{"2025"}, res.Error.PeriodsFound)
}

func TestMultiEntityKeepsRequestOrder(t *testing.T) {
	e := testEngine(t)

	res := e.Execute(context.Background(), entities.IntentMultiEntityQuery, entities.Bag{
		SubQueries: []entities.SubQuery{
			{RawQuery: "Building 18 in 2025", Entities: entities.Bag{Properties: []string{"Building 18"}, Year: entities.Flex("2025")}},
			{RawQuery: "compare Building 1 and Riverside Plaza", Entities: entities.Bag{Properties: []string{"Building 1", "Riverside Plaza"}}},
			{RawQuery: "where is Acme Corp", Entities: entities.Bag{Tenants: []string{"Acme Corp"}}},
		},
	})

	require.Equal(t, entities.ResultMultiEntity, res.Type)
	require.Len(t, res.MultiEntity.Results, 3)
	assert.Equal(t, 3, res.MultiEntity.TotalQueries)

	assert.Equal(t, 0, res.MultiEntity.Results[0].Index)
	assert.Equal(t, entities.ResultPL, res.MultiEntity.Results[0].Result.Type)
	assert.Equal(t, entities.ResultPropertyComparison, res.MultiEntity.Results[1].Result.Type)
	assert.Equal(t, entities.ResultTenantInfo, res.MultiEntity.Results[2].Result.Type)
}

func TestMultiEntityWithoutSubQueries(t *testing.T) {
	e := testEngine(t)

	res := e.Execute(context.Background(), entities.IntentMultiEntityQuery, entities.Bag{})

	require.Equal(t, entities.ResultError, res.Type)
	assert.Equal(t, errors.ErrCodeMissingRequiredField, res.Error.Code)
	assert.Equal(t, []string{"sub_queries"}, res.Error.MissingFields)
}

func TestTenantInfoByTenant(t *testing.T) {
	e := testEngine(t)

	res := e.Execute(context.Background(), entities.IntentTenantInfo, entities.Bag{
		Tenants: []string{"Tenant C"},
	})

	require.Equal(t, entities.ResultTenantInfo, res.Type)
	assert.False(t, res.TenantInfo.ByProperty)
	assert.Equal(t, "Tenant C", res.TenantInfo.Tenant)
	assert.Equal(t, []string{"Building 18"}, res.TenantInfo.Properties)
	assert.Equal(t, 17000.0, res.TenantInfo.TotalRevenue)
	assert.Equal(t, 3, res.TenantInfo.RecordCount)
}

func TestTenantInfoByProperty(t *testing.T) {
	e := testEngine(t)

	res := e.Execute(context.Background(), entities.IntentTenantInfo, entities.Bag{
		Properties: []string{"Riverside Plaza"},
	})

	require.Equal(t, entities.ResultTenantInfo, res.Type)
	assert.True(t, res.TenantInfo.ByProperty)
	assert.Equal(t, []string{"Acme Corp"}, res.TenantInfo.Tenants)
}

func TestTenantInfoMissingBoth(t *testing.T) {
	e := testEngine(t)

	res := e.Execute(context.Background(), entities.IntentTenantInfo, entities.Bag{})

	require.Equal(t, entities.ResultError, res.Type)
	assert.Equal(t, errors.ErrCodeMissingRequiredField, res.Error.Code)
	assert.Contains(t, res.Error.AvailableTenants, "Acme Corp")
}

func TestGeneralQuerySummary(t *testing.T) {
	e := testEngine(t)

	res := e.Execute(context.Background(), entities.IntentGeneralQuery, entities.Bag{})

	require.Equal(t, entities.ResultSummary, res.Type)
	assert.Equal(t, 9, res.Summary.TotalRecords)
	assert.Equal(t, 3, res.Summary.PropertyCount)
	assert.Equal(t, 4, res.Summary.TenantCount)
	assert.Equal(t, []string{"2024", "2025"}, res.Summary.Years)
}

func TestUnsupportedIntent(t *testing.T) {
	e := testEngine(t)

	res := e.Execute(context.Background(), entities.IntentUnsupported, entities.Bag{})

	require.Equal(t, entities.ResultError, res.Type)
	assert.Equal(t, errors.ErrCodeUnsupportedIntent, res.Error.Code)
}

func TestCacheRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewCache(client, time.Minute, logger.NewNoOpLogger())

	bag := entities.Bag{Properties: []string{"Building 1"}, Year: entities.Flex("2024")}

	warm := New(testStore(), cache, logger.NewNoOpLogger())
	res := warm.Execute(context.Background(), entities.IntentPLCalculation, bag)
	require.Equal(t, entities.ResultPL, res.Type)
	require.Len(t, mr.Keys(), 1)

	// An engine over an empty store can only answer from the cache.
	cold := New(ledger.NewStore(nil), cache, logger.NewNoOpLogger())
	res = cold.Execute(context.Background(), entities.IntentPLCalculation, bag)
	require.Equal(t, entities.ResultPL, res.Type)
	assert.Equal(t, 19500.0, res.PL.NetProfit)
}

func TestCacheSkipsErrorResults(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewCache(client, time.Minute, logger.NewNoOpLogger())

	e := New(testStore(), cache, logger.NewNoOpLogger())
	res := e.Execute(context.Background(), entities.IntentPLCalculation, entities.Bag{
		Properties: []string{"Building 1"},
		Year:       entities.Flex("2026"),
	})

	require.Equal(t, entities.ResultError, res.Type)
	assert.Empty(t, mr.Keys())
}

func TestCacheKeyIgnoresConversationalFields(t *testing.T) {
	a := cacheKey(entities.IntentPLCalculation, entities.Bag{
		Properties: []string{"Building 1"},
		Year:       entities.Flex("2024"),
		RawQuery:   "building 1 profit in 2024",
	})
	b := cacheKey(entities.IntentPLCalculation, entities.Bag{
		Properties: []string{"Building 1"},
		Year:       entities.Flex("2024"),
		RawQuery:   "how did Building 1 do in 2024?",
		Notes:      []string{"corrected 'bulding 1' to 'Building 1'"},
	})
	c := cacheKey(entities.IntentPropertyDetails, entities.Bag{
		Properties: []string{"Building 1"},
		Year:       entities.Flex("2024"),
	})

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestCacheDistinguishesAnalyticsQuestions(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewCache(client, time.Minute, logger.NewNoOpLogger())

	e := New(testStore(), cache, logger.NewNoOpLogger())

	// Both questions carry an empty structured bag; only the text differs.
	first := e.Execute(context.Background(), entities.IntentAnalyticsQuery, entities.Bag{
		RawQuery: "list all tenants",
	})
	require.Equal(t, entities.ResultList, first.Type)

	second := e.Execute(context.Background(), entities.IntentAnalyticsQuery, entities.Bag{
		RawQuery: "which property has the highest revenue?",
	})
	require.Equal(t, entities.ResultRanking, second.Type)
	assert.Equal(t, "max", second.Ranking.Operation)
	assert.Equal(t, "Building 1", second.Ranking.Best)

	assert.Len(t, mr.Keys(), 2)
}

func TestCacheSharesAnalyticsRephrasings(t *testing.T) {
	a := cacheKey(entities.IntentAnalyticsQuery, entities.Bag{
		RawQuery: "which property has the highest profit?",
	})
	b := cacheKey(entities.IntentAnalyticsQuery, entities.Bag{
		RawQuery: "what is our most profitable property?",
	})
	c := cacheKey(entities.IntentAnalyticsQuery, entities.Bag{
		RawQuery: "which property has the lowest profit?",
	})

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
