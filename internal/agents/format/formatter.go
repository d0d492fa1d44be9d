// Package format renders a QueryResult as the user-facing answer. Every
// result type has a deterministic template; only the open-ended dataset
// summary goes through the NL synthesizer, and a synthesizer failure
// degrades to the deterministic text.
package format

import (
	"context"
	"fmt"
	"strings"

	"ledger-assistant/internal/common/errors"
	"ledger-assistant/internal/common/logger"
	"ledger-assistant/internal/entities"
)

// Synthesizer turns a structured result into prose. *nlp.Client satisfies it.
type Synthesizer interface {
	Synthesize(ctx context.Context, query string, result *entities.QueryResult) (string, error)
}

type Formatter struct {
	synth  Synthesizer
	logger logger.Logger
}

// New builds a Formatter. synth may be nil to force deterministic output.
func New(synth Synthesizer, log logger.Logger) *Formatter {
	return &Formatter{
		synth:  synth,
		logger: log.WithFields(map[string]interface{}{"agent": "formatter"}),
	}
}

// Format renders the result. query is the (possibly rewritten) question the
// turn answered; the synthesizer uses it for phrasing.
func (f *Formatter) Format(ctx context.Context, query string, res *entities.QueryResult) string {
	switch res.Type {
	case entities.ResultPL:
		return formatPL(res.PL)
	case entities.ResultPropertyComparison:
		return formatComparison(res.Comparison)
	case entities.ResultTemporalComparison:
		return formatTemporal(res.Temporal)
	case entities.ResultMultiEntity:
		return f.formatMultiEntity(ctx, query, res.MultiEntity)
	case entities.ResultTenantInfo:
		return formatTenantInfo(res.TenantInfo)
	case entities.ResultRanking:
		return formatRanking(res.Ranking)
	case entities.ResultList:
		return formatList(res.List)
	case entities.ResultSummary:
		return f.formatSummary(ctx, query, res)
	case entities.ResultClarification:
		return res.Error.ClarificationMessage
	case entities.ResultError:
		return formatError(res.Error)
	default:
		return "I could not produce an answer for that question."
	}
}

func formatPL(pl *entities.PLResult) string {
	scope := pl.Property
	if scope == "" {
		scope = "The portfolio"
	}
	period := periodLabel(pl.Year, pl.Quarter, pl.Month)

	switch pl.Metric {
	case "expenses":
		return fmt.Sprintf("%s expenses for %s: %s across %d records.",
			scope, period, money(pl.TotalExpenses), pl.RecordCount)
	case "revenue", "rent_income", "parking_income":
		label := strings.ReplaceAll(pl.Metric, "_", " ")
		return fmt.Sprintf("%s %s for %s: %s.", scope, label, period, money(pl.TotalRevenue))
	}

	return fmt.Sprintf("%s net profit for %s: %s (revenue %s, expenses %s, %d records).",
		scope, period, money(pl.NetProfit), money(pl.TotalRevenue), money(pl.TotalExpenses), pl.RecordCount)
}

func formatComparison(c *entities.ComparisonResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Comparison of %d properties by net profit:\n", len(c.Properties))
	for i, entry := range c.Ranking {
		fmt.Fprintf(&b, "%d. %s: %s\n", i+1, entry.Name, money(entry.NetProfit))
	}
	fmt.Fprintf(&b, "Best performer: %s. Worst performer: %s.", c.BestPerformer, c.WorstPerformer)
	return b.String()
}

func formatTemporal(tr *entities.TemporalResult) string {
	scope := tr.Property
	if tr.IsPortfolio || scope == "" {
		scope = "The portfolio"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s across %d periods:\n", scope, len(tr.Periods))
	for _, p := range tr.Periods {
		fmt.Fprintf(&b, "- %s: net profit %s (revenue %s, expenses %s)\n",
			tokenLabel(p.Period), money(p.NetProfit), money(p.TotalRevenue), money(p.TotalExpenses))
	}
	fmt.Fprintf(&b, "Best period: %s. Worst period: %s.",
		tokenLabel(tr.BestPeriod), tokenLabel(tr.WorstPeriod))
	if len(tr.PeriodsFound) < len(tr.PeriodsRequested) {
		fmt.Fprintf(&b, " No data was found for %d of the requested periods.",
			len(tr.PeriodsRequested)-len(tr.PeriodsFound))
	}
	return b.String()
}

func (f *Formatter) formatMultiEntity(ctx context.Context, query string, me *entities.MultiEntityResult) string {
	parts := make([]string, 0, len(me.Results)+1)
	parts = append(parts, fmt.Sprintf("Answering %d questions:", me.TotalQueries))
	for _, sub := range me.Results {
		answer := f.Format(ctx, sub.RawQuery, sub.Result)
		parts = append(parts, fmt.Sprintf("%d. %s", sub.Index+1, answer))
	}
	return strings.Join(parts, "\n")
}

func formatTenantInfo(ti *entities.TenantInfoResult) string {
	if ti.ByProperty {
		var b strings.Builder
		fmt.Fprintf(&b, "%s has %d tenants: %s.", ti.Property, len(ti.Tenants), joinOr(ti.Tenants, "none on record"))
		if ti.PL != nil {
			fmt.Fprintf(&b, " Net profit %s (revenue %s, expenses %s).",
				money(ti.PL.NetProfit), money(ti.PL.TotalRevenue), money(ti.PL.TotalExpenses))
		}
		return b.String()
	}
	return fmt.Sprintf("%s rents at %s. Attributable revenue: %s across %d ledger rows.",
		ti.Tenant, joinOr(ti.Properties, "no property on record"), money(ti.TotalRevenue), ti.RecordCount)
}

func formatRanking(r *entities.RankingResult) string {
	noun := strings.ReplaceAll(r.Target, "_", " ")
	switch r.Operation {
	case "count":
		return fmt.Sprintf("There are %d %s.", r.Count, noun)
	case "sum":
		return fmt.Sprintf("Total %s across %d %s: %s.", r.Metric, r.Count, noun, money(r.Value))
	case "avg":
		return fmt.Sprintf("Average %s across %d %s: %s.", r.Metric, r.Count, noun, money(r.Value))
	}

	var b strings.Builder
	if r.Best != "" {
		fmt.Fprintf(&b, "Highest %s by %s: %s.\n", singular(noun), r.Metric, r.Best)
	} else if r.Worst != "" {
		fmt.Fprintf(&b, "Lowest %s by %s: %s.\n", singular(noun), r.Metric, r.Worst)
	}
	for i, entry := range r.Ranking {
		fmt.Fprintf(&b, "%d. %s: %s\n", i+1, entry.Name, money(entry.NetProfit))
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatList(l *entities.ListResult) string {
	noun := strings.ReplaceAll(l.Target, "_", " ")
	if len(l.Items) == 0 {
		return fmt.Sprintf("No %s on record.", noun)
	}
	return fmt.Sprintf("Known %s (%d): %s.", noun, len(l.Items), strings.Join(l.Items, ", "))
}

func (f *Formatter) formatSummary(ctx context.Context, query string, res *entities.QueryResult) string {
	if f.synth != nil {
		answer, err := f.synth.Synthesize(ctx, query, res)
		if err == nil && strings.TrimSpace(answer) != "" {
			return answer
		}
		if err != nil {
			f.logger.WithError(err).Warn("synthesizer unavailable, using deterministic summary", nil)
		}
	}

	s := res.Summary
	var b strings.Builder
	fmt.Fprintf(&b, "The ledger holds %d records across %d properties and %d tenants",
		s.TotalRecords, s.PropertyCount, s.TenantCount)
	if len(s.Years) > 0 {
		fmt.Fprintf(&b, " covering %s", strings.Join(s.Years, ", "))
	}
	if s.EarliestMonth != "" && s.LatestMonth != "" {
		fmt.Fprintf(&b, " (%s to %s)", s.EarliestMonth, s.LatestMonth)
	}
	fmt.Fprintf(&b, ". Total revenue %s, total expenses %s.",
		money(s.TotalRevenue), money(s.TotalExpenses))
	return b.String()
}

func formatError(e *entities.ErrorResult) string {
	var b strings.Builder
	b.WriteString(e.Message)

	switch e.Code {
	case errors.ErrCodeInvalidEntity:
		for field, inputs := range e.InvalidEntities {
			fmt.Fprintf(&b, " Unknown %s: %s.", fieldNoun(field), strings.Join(inputs, ", "))
		}
	case errors.ErrCodeMissingRequiredField:
		if len(e.AvailableProperties) > 0 {
			fmt.Fprintf(&b, " Available properties: %s.", strings.Join(e.AvailableProperties, ", "))
		}
		if len(e.AvailableTenants) > 0 {
			fmt.Fprintf(&b, " Available tenants: %s.", strings.Join(e.AvailableTenants, ", "))
		}
	case errors.ErrCodeNoFinancialData, errors.ErrCodeMissingPeriodData:
		if len(e.PeriodsRequested) > 0 {
			fmt.Fprintf(&b, " Requested periods: %s.", strings.Join(e.PeriodsRequested, ", "))
		}
		if len(e.PeriodsFound) > 0 {
			fmt.Fprintf(&b, " Data exists for: %s.", strings.Join(e.PeriodsFound, ", "))
		}
	}

	return b.String()
}

func fieldNoun(field string) string {
	switch field {
	case "properties":
		return "property"
	case "tenants":
		return "tenant"
	default:
		return field
	}
}

func joinOr(items []string, empty string) string {
	if len(items) == 0 {
		return empty
	}
	return strings.Join(items, ", ")
}

func singular(noun string) string {
	switch noun {
	case "properties":
		return "property"
	case "tenants":
		return "tenant"
	case "expense categories":
		return "expense category"
	default:
		return noun
	}
}

// periodLabel renders the most specific filter present.
func periodLabel(year, quarter, month string) string {
	switch {
	case month != "":
		return tokenLabel(month)
	case quarter != "":
		return tokenLabel(quarter)
	case year != "":
		return year
	default:
		return "all time"
	}
}

// tokenLabel renders a canonical period token for humans: "2024-Q1" becomes
// "Q1 2024" and "2024-M03" becomes "March 2024". Bare years and anything
// unrecognized pass through.
func tokenLabel(token string) string {
	switch entities.KindOfPeriod(token) {
	case entities.PeriodQuarter:
		year, n, ok := entities.SplitPeriod(token)
		if !ok {
			return token
		}
		return fmt.Sprintf("Q%d %s", n, year)
	case entities.PeriodMonth:
		year, n, ok := entities.SplitPeriod(token)
		if !ok {
			return token
		}
		name, ok := entities.MonthName(n)
		if !ok {
			return token
		}
		return name + " " + year
	default:
		return token
	}
}

// money renders a dollar amount with thousands separators, e.g. "$19,500.00".
func money(v float64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	s := fmt.Sprintf("%.2f", v)
	dot := strings.IndexByte(s, '.')
	intPart, frac := s[:dot], s[dot:]

	var b strings.Builder
	for i := 0; i < len(intPart); i++ {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteByte(intPart[i])
	}

	out := "$" + b.String() + frac
	if neg {
		out = "-" + out
	}
	return out
}
