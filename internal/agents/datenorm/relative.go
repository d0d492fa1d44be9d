package datenorm

import (
	"regexp"
	"strconv"
	"strings"

	"ledger-assistant/internal/entities"
)

var (
	explicitYearRe = regexp.MustCompile(`\b(19|20)\d{2}\b`)
	quarterWordRe  = regexp.MustCompile(`(?i)\bq([1-4])\b|\b(first|second|third|fourth)\s+quarter\b`)
	monthWordRe    = regexp.MustCompile(`(?i)\b(january|february|march|april|may|june|july|august|september|october|november|december)\b`)
	seasonRe       = regexp.MustCompile(`(?i)\b(spring|summer|autumn|fall|winter)\b`)
)

var quarterWords = map[string]int{"first": 1, "second": 2, "third": 3, "fourth": 4}

// extractRelativeDates recovers temporal hints from the raw question when
// the extractor produced no time entities at all. Seasons have no fixed
// quarter mapping in this dataset, so they surface as ambiguous tokens.
func (n *Normalizer) extractRelativeDates(bag *entities.Bag, ambiguous *[]string) {
	q := bag.RawQuery
	if q == "" {
		return
	}

	lower := strings.ToLower(q)
	switch {
	case strings.Contains(lower, "last year"):
		bag.Year = entities.Flex(n.shiftReferenceYear(-1))
		bag.Notes = append(bag.Notes, "resolved 'last year' relative to the reference year")
	case strings.Contains(lower, "this year"), strings.Contains(lower, "current year"):
		bag.Year = entities.Flex(n.referenceYear)
		bag.Notes = append(bag.Notes, "resolved 'this year' to the reference year")
	case strings.Contains(lower, "next year"):
		bag.Year = entities.Flex(n.shiftReferenceYear(1))
		bag.Notes = append(bag.Notes, "resolved 'next year' relative to the reference year")
	default:
		if years := uniqueMatches(explicitYearRe.FindAllString(q, -1)); len(years) > 0 {
			if len(years) == 1 {
				bag.Year = entities.Flex(years[0])
			} else {
				bag.Year = entities.FlexList(years...)
			}
		}
	}

	if bag.Quarter.Empty() {
		var quarters []string
		for _, m := range quarterWordRe.FindAllStringSubmatch(q, -1) {
			if m[1] != "" {
				quarters = appendUnique(quarters, "Q"+m[1])
			} else if num, ok := quarterWords[strings.ToLower(m[2])]; ok {
				quarters = appendUnique(quarters, "Q"+strconv.Itoa(num))
			}
		}
		if len(quarters) == 1 {
			bag.Quarter = entities.Flex(quarters[0])
		} else if len(quarters) > 1 {
			bag.Quarter = entities.FlexList(quarters...)
		}
	}

	if bag.Month.Empty() {
		if months := uniqueMatches(monthWordRe.FindAllString(q, -1)); len(months) == 1 {
			bag.Month = entities.Flex(months[0])
		} else if len(months) > 1 {
			bag.Month = entities.FlexList(months...)
		}
	}

	for _, season := range uniqueMatches(seasonRe.FindAllString(q, -1)) {
		*ambiguous = append(*ambiguous, season)
	}
}

func (n *Normalizer) shiftReferenceYear(delta int) string {
	y, err := strconv.Atoi(n.referenceYear)
	if err != nil {
		return n.referenceYear
	}
	return strconv.Itoa(y + delta)
}

func uniqueMatches(in []string) []string {
	var out []string
	for _, v := range in {
		out = appendUnique(out, v)
	}
	return out
}
