package entities

// Intent is the closed set of question categories the pipeline can route.
// Dispatch on Intent is always an exhaustive switch; anything outside the
// set is coerced to IntentGeneralQuery at the classifier boundary.
type Intent string

const (
	IntentTemporalComparison Intent = "temporal_comparison"
	IntentPropertyComparison Intent = "property_comparison"
	IntentMultiEntityQuery   Intent = "multi_entity_query"
	IntentPLCalculation      Intent = "pl_calculation"
	IntentPropertyDetails    Intent = "property_details"
	IntentTenantInfo         Intent = "tenant_info"
	IntentAnalyticsQuery     Intent = "analytics_query"
	IntentGeneralQuery       Intent = "general_query"
	IntentUnsupported        Intent = "unsupported"
)

var allIntents = map[Intent]struct{}{
	IntentTemporalComparison: {},
	IntentPropertyComparison: {},
	IntentMultiEntityQuery:   {},
	IntentPLCalculation:      {},
	IntentPropertyDetails:    {},
	IntentTenantInfo:         {},
	IntentAnalyticsQuery:     {},
	IntentGeneralQuery:       {},
	IntentUnsupported:        {},
}

// ParseIntent maps a collaborator-supplied string onto the intent enum.
// Unknown values report ok=false; callers coerce those to IntentGeneralQuery.
func ParseIntent(s string) (Intent, bool) {
	intent := Intent(s)
	_, ok := allIntents[intent]
	return intent, ok
}

// Confidence is the classifier's self-reported certainty level.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// ParseConfidence coerces unknown confidence labels to low.
func ParseConfidence(s string) Confidence {
	switch Confidence(s) {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
		return Confidence(s)
	default:
		return ConfidenceLow
	}
}
