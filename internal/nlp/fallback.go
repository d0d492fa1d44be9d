package nlp

import (
	stderrors "errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"ledger-assistant/internal/entities"
)

var errEmptyEntities = stderrors.New("extractor returned no entities object")

func schemaError(result *gojsonschema.Result) error {
	parts := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		parts = append(parts, e.String())
	}
	return fmt.Errorf("entity schema violation: %s", strings.Join(parts, "; "))
}

var (
	propertyRe = regexp.MustCompile(`(?i)\b(building|property|tower|plaza)\s+(\d+|[A-Z]\b)`)
	tenantRe   = regexp.MustCompile(`(?i)\btenant\s+(\d+|[A-Z]\b|[A-Z][a-z]+\b)`)
	yearRe     = regexp.MustCompile(`\b(19|20)\d{2}\b`)
	quarterRe  = regexp.MustCompile(`(?i)\bq([1-4])\b`)
	monthRe    = regexp.MustCompile(`(?i)\b(january|february|march|april|may|june|july|august|september|october|november|december)\b`)
)

// FallbackExtract pulls entities out of the raw query with regular
// expressions. It covers the common patterns well enough that a turn can
// usually proceed to validation even when the collaborator is down.
func FallbackExtract(query string) entities.Bag {
	bag := entities.Bag{RawQuery: query}

	for _, m := range propertyRe.FindAllStringSubmatch(query, -1) {
		name := capitalize(m[1]) + " " + strings.ToUpper(m[2])
		bag.Properties = appendUnique(bag.Properties, name)
	}
	for _, m := range tenantRe.FindAllStringSubmatch(query, -1) {
		bag.Tenants = appendUnique(bag.Tenants, "Tenant "+capitalize(m[1]))
	}

	years := yearRe.FindAllString(query, -1)
	switch len(years) {
	case 0:
	case 1:
		bag.Year = entities.Flex(years[0])
	default:
		bag.Year = entities.FlexList(uniqueStrings(years)...)
	}

	if quarters := quarterRe.FindAllStringSubmatch(query, -1); len(quarters) > 0 {
		vals := make([]string, 0, len(quarters))
		for _, m := range quarters {
			vals = appendUnique(vals, "Q"+m[1])
		}
		if len(vals) == 1 {
			bag.Quarter = entities.Flex(vals[0])
		} else {
			bag.Quarter = entities.FlexList(vals...)
		}
	}

	if months := monthRe.FindAllString(query, -1); len(months) > 0 {
		vals := make([]string, 0, len(months))
		for _, m := range months {
			vals = appendUnique(vals, capitalize(m))
		}
		if len(vals) == 1 {
			bag.Month = entities.Flex(vals[0])
		} else {
			bag.Month = entities.FlexList(vals...)
		}
	}

	bag.Notes = append(bag.Notes, "entities recovered by pattern fallback")
	return bag
}

func capitalize(s string) string {
	s = strings.ToLower(s)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if strings.EqualFold(existing, v) {
			return list
		}
	}
	return append(list, v)
}

func uniqueStrings(in []string) []string {
	var out []string
	for _, v := range in {
		out = appendUnique(out, v)
	}
	return out
}
