// Package validate checks extracted entities against the ledger's known
// universe and classifies the outcome into ok, missing, or ambiguous.
// Fuzzy candidate generation lives only here; the disambiguation resolver
// consumes candidates but never derives its own.
package validate

import (
	"fmt"
	"strings"

	"ledger-assistant/internal/common/config"
	"ledger-assistant/internal/common/logger"
	"ledger-assistant/internal/entities"
	"ledger-assistant/internal/ledger"
)

// portfolioAliases are accepted unconditionally and mean "no property
// filter" downstream.
var portfolioAliases = map[string]struct{}{
	"propco":         {},
	"portfolio":      {},
	"all properties": {},
	"all buildings":  {},
	"all":            {},
}

// Validator resolves entity references against the loaded ledger.
type Validator struct {
	store     *ledger.Store
	threshold float64
	logger    logger.Logger
}

// New builds a Validator. The threshold is the minimum similarity for a
// fuzzy candidate.
func New(store *ledger.Store, cfg config.PipelineConfig, log logger.Logger) *Validator {
	threshold := cfg.FuzzyThreshold
	if threshold <= 0 {
		threshold = 0.6
	}
	return &Validator{
		store:     store,
		threshold: threshold,
		logger:    log.WithFields(map[string]interface{}{"agent": "entity-validator"}),
	}
}

// Validate checks every entity in the bag and enforces the intent's
// required fields. On a missing verdict the returned bag is empty so that
// downstream stages cannot act on unverified data.
func (v *Validator) Validate(intent entities.Intent, bag entities.Bag) entities.Outcome {
	if intent == entities.IntentTemporalComparison {
		return v.validateTemporal(bag)
	}

	out := entities.Outcome{Status: entities.StatusOK, Entities: bag.Clone()}

	v.resolveProperties(&out)
	v.resolveTenants(&out)
	v.checkRequiredFields(intent, &out)

	finalize(&out)
	return out
}

// validateTemporal is the dedicated short-circuit path: one property (or
// portfolio) and at least two resolved periods, nothing else checked.
func (v *Validator) validateTemporal(bag entities.Bag) entities.Outcome {
	out := entities.Outcome{Status: entities.StatusOK, Entities: bag.Clone()}

	v.resolveProperties(&out)

	if len(out.Entities.Properties) > 1 {
		out.Status = out.Status.Worst(entities.StatusMissing)
		out.MissingFields = append(out.MissingFields,
			"temporal comparison supports a single property; name one property or the whole portfolio")
	}
	if len(out.Entities.Periods) < 2 {
		out.Status = out.Status.Worst(entities.StatusMissing)
		out.MissingFields = append(out.MissingFields,
			"at least 2 time periods (years, quarters, or months) to compare")
	}

	finalize(&out)
	return out
}

func (v *Validator) resolveProperties(out *entities.Outcome) {
	var names []string
	for _, name := range out.Entities.Properties {
		if _, ok := portfolioAliases[strings.ToLower(strings.TrimSpace(name))]; ok {
			out.Entities.IsPortfolio = true
			continue
		}
		names = append(names, name)
	}
	out.Entities.Properties = v.resolveField(out, "properties", names,
		v.store.CanonicalProperty, v.store.Properties())
}

func (v *Validator) resolveTenants(out *entities.Outcome) {
	out.Entities.Tenants = v.resolveField(out, "tenants", out.Entities.Tenants,
		v.store.CanonicalTenant, v.store.Tenants())
}

// resolveField maps each input name onto a canonical one. Candidate
// generation runs first: a name that resembles several known names needs
// the user's choice even when one of them is an exact match ("Building 1"
// alongside "Building 18"). A single candidate auto-corrects; an exact
// case-insensitive match fixes casing silently; no candidate at all flags
// the name invalid.
func (v *Validator) resolveField(out *entities.Outcome, field string, names []string,
	canonical func(string) (string, bool), universe []string) []string {

	var resolved []string
	for _, name := range names {
		candidates := fuzzyCandidates(name, universe, v.threshold)

		if len(candidates) >= 2 {
			out.Status = out.Status.Worst(entities.StatusAmbiguous)
			if out.AmbiguousEntities == nil {
				out.AmbiguousEntities = make(map[string][]entities.AmbiguousEntity)
			}
			out.AmbiguousEntities[field] = append(out.AmbiguousEntities[field],
				entities.AmbiguousEntity{Input: name, Candidates: candidates})
			if out.Suggestions == nil {
				out.Suggestions = make(map[string][]string)
			}
			out.Suggestions[field] = append(out.Suggestions[field], candidates...)
			continue
		}

		if canon, ok := canonical(name); ok {
			if canon != name {
				out.Entities.Notes = append(out.Entities.Notes,
					fmt.Sprintf("corrected '%s' to '%s'", name, canon))
			}
			resolved = append(resolved, canon)
			continue
		}

		if len(candidates) == 1 {
			out.Entities.Notes = append(out.Entities.Notes,
				fmt.Sprintf("corrected '%s' to '%s'", name, candidates[0]))
			resolved = append(resolved, candidates[0])
			continue
		}

		out.Status = out.Status.Worst(entities.StatusMissing)
		addMapEntry(&out.InvalidEntities, field, name)
	}
	return resolved
}

func (v *Validator) checkRequiredFields(intent entities.Intent, out *entities.Outcome) {
	bag := out.Entities
	hasProperty := len(bag.Properties) > 0 || bag.IsPortfolio

	switch intent {
	case entities.IntentPropertyComparison:
		if len(bag.Properties) < 2 {
			out.Status = out.Status.Worst(entities.StatusMissing)
			out.MissingFields = append(out.MissingFields, "at least 2 properties to compare")
		}
	case entities.IntentPLCalculation, entities.IntentPropertyDetails:
		if !hasProperty {
			out.Status = out.Status.Worst(entities.StatusMissing)
			out.MissingFields = append(out.MissingFields, "a property name (or the whole portfolio)")
		}
	case entities.IntentTenantInfo:
		if len(bag.Tenants) == 0 && !hasProperty {
			out.Status = out.Status.Worst(entities.StatusMissing)
			out.MissingFields = append(out.MissingFields, "a tenant or property name")
		}
	case entities.IntentAnalyticsQuery, entities.IntentMultiEntityQuery,
		entities.IntentGeneralQuery, entities.IntentUnsupported,
		entities.IntentTemporalComparison:
		// No required fields; temporal has its own path.
	}
}

// finalize empties the bag on a missing verdict and sets the clarification
// flag for anything the user must decide.
func finalize(out *entities.Outcome) {
	switch out.Status {
	case entities.StatusMissing:
		out.Entities = entities.Bag{RawQuery: out.Entities.RawQuery}
	case entities.StatusAmbiguous:
		out.NeedsClarification = true
	}
	if len(out.Entities.Notes) > 0 {
		out.Notes = strings.Join(out.Entities.Notes, "; ")
	}
}

func addMapEntry(m *map[string][]string, key, value string) {
	if *m == nil {
		*m = make(map[string][]string)
	}
	(*m)[key] = append((*m)[key], value)
}
