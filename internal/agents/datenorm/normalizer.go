// Package datenorm converts year/quarter/month fragments into canonical
// period tokens ("2024-Q1", "2024-M03"). It is a pure transform: the input
// bag is never mutated and normalizing twice is a no-op.
package datenorm

import (
	"fmt"
	"strconv"
	"strings"

	"ledger-assistant/internal/common/config"
	"ledger-assistant/internal/common/logger"
	"ledger-assistant/internal/entities"
)

// Result is the normalizer verdict. Status is ambiguous iff at least one
// token could not be mapped.
type Result struct {
	Entities       entities.Bag
	Status         entities.Status
	AmbiguousDates []string
}

// Normalizer rewrites temporal fragments in a bag.
type Normalizer struct {
	referenceYear string
	logger        logger.Logger
}

// New builds a Normalizer. The reference year qualifies bare quarters and
// months when the question names none.
func New(cfg config.PipelineConfig, log logger.Logger) *Normalizer {
	ref := cfg.ReferenceYear
	if ref == "" {
		ref = "2024"
	}
	return &Normalizer{
		referenceYear: ref,
		logger:        log.WithFields(map[string]interface{}{"agent": "date-normalizer"}),
	}
}

// Normalize returns a bag whose temporal fields are canonical tokens and
// whose Periods list is built in encounter order: quarters, then months,
// then bare years.
func (n *Normalizer) Normalize(bag entities.Bag) Result {
	out := bag.Clone()
	var ambiguous []string

	if !out.HasTimeFilter() {
		n.extractRelativeDates(&out, &ambiguous)
	}

	years, badYears := normalizeYears(out.Year.Values)
	ambiguous = append(ambiguous, badYears...)

	quarters, badQuarters := n.normalizeTokens(out.Quarter.Values, years, true)
	ambiguous = append(ambiguous, badQuarters...)

	months, badMonths := n.normalizeTokens(out.Month.Values, years, false)
	ambiguous = append(ambiguous, badMonths...)

	out.Year = reshape(out.Year, years)
	out.Quarter = reshape(out.Quarter, quarters)
	out.Month = reshape(out.Month, months)

	out.Periods = buildPeriods(quarters, months, years)

	status := entities.StatusOK
	if len(ambiguous) > 0 {
		status = entities.StatusAmbiguous
		out = out.WithNote(fmt.Sprintf("unmappable date tokens: %s", strings.Join(ambiguous, ", ")))
	}

	return Result{Entities: out, Status: status, AmbiguousDates: ambiguous}
}

func parseQuarter(token string) (int, bool, error) {
	t := strings.ToUpper(strings.TrimSpace(token))
	if entities.KindOfPeriod(t) == entities.PeriodQuarter {
		return 0, true, nil
	}
	t = strings.TrimPrefix(t, "Q")
	n, err := strconv.Atoi(t)
	if err != nil || n < 1 || n > 4 {
		return 0, false, fmt.Errorf("not a quarter: %s", token)
	}
	return n, false, nil
}

func parseMonth(token string) (int, bool, error) {
	t := strings.TrimSpace(token)
	if entities.KindOfPeriod(strings.ToUpper(t)) == entities.PeriodMonth {
		return 0, true, nil
	}
	t = strings.TrimPrefix(strings.ToUpper(t), "M")
	if n, ok := entities.MonthNumber(t); ok {
		return n, false, nil
	}
	return 0, false, fmt.Errorf("not a month: %s", token)
}

// normalizeTokens maps raw fragments onto canonical tokens. Years pair with
// fragments positionally when the lists align; a single fragment fans out
// across multiple years ("Q4 of 2024 and 2025" → 2024-Q4, 2025-Q4).
func (n *Normalizer) normalizeTokens(tokens, years []string, quarter bool) ([]string, []string) {
	if len(tokens) == 0 {
		return nil, nil
	}

	parse := parseMonth
	if quarter {
		parse = parseQuarter
	}

	var out, bad []string
	for i, token := range tokens {
		ordinal, canonical, err := parse(token)
		if err != nil {
			bad = append(bad, token)
			continue
		}
		if canonical {
			out = appendUnique(out, strings.ToUpper(strings.TrimSpace(token)))
			continue
		}
		if len(tokens) == 1 && len(years) > 1 {
			for _, y := range years {
				out = appendUnique(out, periodToken(ordinal, y, quarter))
			}
			continue
		}
		out = appendUnique(out, periodToken(ordinal, n.yearFor(i, years), quarter))
	}
	return out, bad
}

func periodToken(ordinal int, year string, quarter bool) string {
	if quarter {
		return entities.QuarterToken(year, ordinal)
	}
	return entities.MonthToken(year, ordinal)
}

func (n *Normalizer) yearFor(i int, years []string) string {
	switch {
	case len(years) == 0:
		return n.referenceYear
	case i < len(years):
		return years[i]
	default:
		return years[len(years)-1]
	}
}

func normalizeYears(tokens []string) ([]string, []string) {
	var out, bad []string
	for _, t := range tokens {
		t = strings.TrimSpace(t)
		if entities.KindOfPeriod(t) == entities.PeriodYear {
			out = appendUnique(out, t)
			continue
		}
		bad = append(bad, t)
	}
	return out, bad
}

// buildPeriods assembles the ordered period list. Bare years become periods
// only when no quarter or month consumed them as qualifiers.
func buildPeriods(quarters, months, years []string) []string {
	var periods []string
	periods = append(periods, quarters...)
	periods = append(periods, months...)
	if len(quarters) == 0 && len(months) == 0 {
		periods = append(periods, years...)
	}
	return periods
}

func reshape(orig entities.FlexStrings, values []string) entities.FlexStrings {
	switch len(values) {
	case 0:
		return entities.FlexStrings{}
	case 1:
		if orig.Many() {
			return entities.FlexList(values...)
		}
		return entities.Flex(values[0])
	default:
		return entities.FlexList(values...)
	}
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
