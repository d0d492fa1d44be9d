// Package disambiguate resolves the ambiguous entities flagged by
// validation. It never derives candidates itself; the validator is the
// single source of fuzzy matching.
package disambiguate

import (
	"fmt"
	"sort"
	"strings"

	"ledger-assistant/internal/common/logger"
	"ledger-assistant/internal/entities"
)

// Result carries the possibly-updated bag and, when the user must choose,
// the clarification text to send back.
type Result struct {
	Entities             entities.Bag
	Status               entities.Status
	NeedsClarification   bool
	ClarificationMessage string
}

// Resolver applies validator candidates to the bag.
type Resolver struct {
	logger logger.Logger
}

func New(log logger.Logger) *Resolver {
	return &Resolver{logger: log.WithFields(map[string]interface{}{"agent": "disambiguation-resolver"})}
}

var fieldLabels = map[string]string{
	"properties": "property",
	"tenants":    "tenant",
}

// Resolve substitutes singleton candidates into the bag and builds one
// clarification line per entity that still has several. Status is ambiguous
// iff any item remains open.
func (r *Resolver) Resolve(outcome entities.Outcome) Result {
	bag := outcome.Entities.Clone()
	var lines []string

	// Deterministic field order regardless of map iteration.
	fields := make([]string, 0, len(outcome.AmbiguousEntities))
	for field := range outcome.AmbiguousEntities {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	for _, field := range fields {
		label := fieldLabels[field]
		if label == "" {
			label = field
		}
		for _, amb := range outcome.AmbiguousEntities[field] {
			if len(amb.Candidates) == 1 {
				bag = substitute(bag, field, amb.Candidates[0])
				bag.Notes = append(bag.Notes,
					fmt.Sprintf("resolved '%s' to '%s'", amb.Input, amb.Candidates[0]))
				continue
			}
			lines = append(lines, fmt.Sprintf("Which %s did you mean for '%s'? Options: %s",
				label, amb.Input, strings.Join(amb.Candidates, ", ")))
		}
	}

	res := Result{Entities: bag, Status: entities.StatusOK}
	if len(lines) > 0 {
		res.Status = entities.StatusAmbiguous
		res.NeedsClarification = true
		res.ClarificationMessage = strings.Join(lines, "\n")
	}
	return res
}

func substitute(bag entities.Bag, field, name string) entities.Bag {
	switch field {
	case "properties":
		bag.Properties = append(bag.Properties, name)
	case "tenants":
		bag.Tenants = append(bag.Tenants, name)
	}
	return bag
}
