package entities

import "ledger-assistant/internal/common/errors"

// ResultType tags the QueryResult union so the formatter can pick a template
// without recomputing anything.
type ResultType string

const (
	ResultPL                 ResultType = "pl"
	ResultPropertyComparison ResultType = "property_comparison"
	ResultTemporalComparison ResultType = "temporal_comparison"
	ResultMultiEntity        ResultType = "multi_entity"
	ResultRanking            ResultType = "ranking"
	ResultList               ResultType = "list"
	ResultTenantInfo         ResultType = "tenant_info"
	ResultSummary            ResultType = "summary"
	ResultClarification      ResultType = "clarification"
	ResultError              ResultType = "error"
)

// CategoryAmount is one line of a category breakdown, magnitude-positive.
type CategoryAmount struct {
	LedgerCategory string  `json:"ledger_category"`
	LedgerGroup    string  `json:"ledger_group"`
	Amount         float64 `json:"amount"`
}

// PLResult is a point profit-and-loss aggregate for one filter set.
// TotalExpenses is reported as a nonnegative magnitude, so
// NetProfit == TotalRevenue - TotalExpenses always holds.
type PLResult struct {
	Property          string           `json:"property,omitempty"`
	Year              string           `json:"year,omitempty"`
	Quarter           string           `json:"quarter,omitempty"`
	Month             string           `json:"month,omitempty"`
	Metric            string           `json:"metric,omitempty"`
	TotalRevenue      float64          `json:"total_revenue"`
	TotalExpenses     float64          `json:"total_expenses"`
	NetProfit         float64          `json:"net_profit"`
	RevenueBreakdown  []CategoryAmount `json:"revenue_breakdown,omitempty"`
	ExpensesBreakdown []CategoryAmount `json:"expenses_breakdown,omitempty"`
	RecordCount       int              `json:"record_count"`
}

// PropertyEntry is one property's figures inside a comparison.
type PropertyEntry struct {
	Property      string   `json:"property"`
	TotalRevenue  float64  `json:"total_revenue"`
	TotalExpenses float64  `json:"total_expenses"`
	NetProfit     float64  `json:"net_profit"`
	Tenants       []string `json:"tenants,omitempty"`
	RecordCount   int      `json:"record_count"`
}

// RankedEntry is one row of an ordered ranking.
type RankedEntry struct {
	Name      string  `json:"name"`
	NetProfit float64 `json:"net_profit"`
	Revenue   float64 `json:"revenue,omitempty"`
}

// ComparisonResult ranks two or more properties by net profit.
type ComparisonResult struct {
	Properties     []PropertyEntry `json:"properties"`
	Ranking        []RankedEntry   `json:"ranking"`
	BestPerformer  string          `json:"best_performer"`
	WorstPerformer string          `json:"worst_performer"`
	RequestedCount int             `json:"requested_count"`
}

// PeriodEntry is one period's figures inside a temporal comparison.
type PeriodEntry struct {
	Period        string  `json:"period"`
	TotalRevenue  float64 `json:"total_revenue"`
	TotalExpenses float64 `json:"total_expenses"`
	NetProfit     float64 `json:"net_profit"`
}

// TemporalResult compares one property (or the portfolio) across periods.
// Periods that yielded no rows are dropped from the ranking but remain
// visible through PeriodsRequested vs PeriodsFound.
type TemporalResult struct {
	Property         string        `json:"property,omitempty"`
	IsPortfolio      bool          `json:"is_portfolio,omitempty"`
	PeriodsRequested []string      `json:"periods_requested"`
	PeriodsFound     []string      `json:"periods_found"`
	Periods          []PeriodEntry `json:"periods"`
	Ranking          []PeriodEntry `json:"ranking"`
	BestPeriod       string        `json:"best_period"`
	WorstPeriod      string        `json:"worst_period"`
}

// SubResult is one fan-out sub-query's outcome, in request order.
type SubResult struct {
	Index    int          `json:"index"`
	RawQuery string       `json:"raw_query"`
	Result   *QueryResult `json:"result"`
}

// MultiEntityResult carries independently-executed sub-query results.
type MultiEntityResult struct {
	TotalQueries int         `json:"total_queries"`
	Results      []SubResult `json:"results"`
}

// TenantInfoResult serves both tenant-lookup shapes: ByProperty lists the
// roster of a property (plus its P&L); otherwise it reports one tenant's
// attributable revenue and property set.
type TenantInfoResult struct {
	ByProperty bool `json:"by_property"`

	Property string    `json:"property,omitempty"`
	Tenants  []string  `json:"tenants,omitempty"`
	PL       *PLResult `json:"pl,omitempty"`

	Tenant       string   `json:"tenant,omitempty"`
	Properties   []string `json:"properties,omitempty"`
	TotalRevenue float64  `json:"total_revenue,omitempty"`
	RecordCount  int      `json:"record_count,omitempty"`
}

// RankingResult is the analytics answer: an ordered sequence plus aggregate
// value for sum/avg/count operations.
type RankingResult struct {
	Operation string        `json:"operation"`
	Target    string        `json:"target"`
	Metric    string        `json:"metric"`
	Ranking   []RankedEntry `json:"ranking,omitempty"`
	Best      string        `json:"best,omitempty"`
	Worst     string        `json:"worst,omitempty"`
	Value     float64       `json:"value,omitempty"`
	Count     int           `json:"count,omitempty"`
}

// ListResult enumerates a universe (properties, tenants, categories).
type ListResult struct {
	Target string   `json:"target"`
	Items  []string `json:"items"`
}

// SummaryResult is the portfolio-level dataset overview.
type SummaryResult struct {
	TotalRecords  int      `json:"total_records"`
	PropertyCount int      `json:"property_count"`
	TenantCount   int      `json:"tenant_count"`
	Years         []string `json:"years"`
	EarliestMonth string   `json:"earliest_month,omitempty"`
	LatestMonth   string   `json:"latest_month,omitempty"`
	TotalRevenue  float64  `json:"total_revenue"`
	TotalExpenses float64  `json:"total_expenses"`
}

// ErrorResult carries a taxonomy code plus everything the formatter needs to
// phrase a useful reply (suggestions, available names, clarification text).
type ErrorResult struct {
	Code                 errors.ErrorCode             `json:"code"`
	Message              string                       `json:"message"`
	InvalidEntities      map[string][]string          `json:"invalid_entities,omitempty"`
	Suggestions          map[string][]string          `json:"suggestions,omitempty"`
	AvailableProperties  []string                     `json:"available_properties,omitempty"`
	AvailableTenants     []string                     `json:"available_tenants,omitempty"`
	MissingFields        []string                     `json:"missing_fields,omitempty"`
	AmbiguousEntities    map[string][]AmbiguousEntity `json:"ambiguous_entities,omitempty"`
	PeriodsRequested     []string                     `json:"periods_requested,omitempty"`
	PeriodsFound         []string                     `json:"periods_found,omitempty"`
	ClarificationMessage string                       `json:"clarification_message,omitempty"`
}

// QueryResult is the tagged union handed to the formatter. Exactly one
// payload pointer matching Type is non-nil.
type QueryResult struct {
	Type        ResultType         `json:"type"`
	PL          *PLResult          `json:"pl,omitempty"`
	Comparison  *ComparisonResult  `json:"comparison,omitempty"`
	Temporal    *TemporalResult    `json:"temporal,omitempty"`
	MultiEntity *MultiEntityResult `json:"multi_entity,omitempty"`
	Ranking     *RankingResult     `json:"ranking,omitempty"`
	List        *ListResult        `json:"list,omitempty"`
	TenantInfo  *TenantInfoResult  `json:"tenant_info,omitempty"`
	Summary     *SummaryResult     `json:"summary,omitempty"`
	Error       *ErrorResult       `json:"error,omitempty"`
}

// IsError reports whether the result is an error or clarification outcome.
func (r *QueryResult) IsError() bool {
	return r != nil && (r.Type == ResultError || r.Type == ResultClarification)
}

// NewErrorResult wraps an ErrorResult into the union.
func NewErrorResult(e *ErrorResult) *QueryResult {
	return &QueryResult{Type: ResultError, Error: e}
}
