package app

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/bobmcallan/finsight/internal/models"
	"github.com/bobmcallan/finsight/internal/symbols"
)

// formatQueryResult formats a query result as markdown
func formatQueryResult(result *models.QueryResult) string {
	var sb strings.Builder

	title := result.Symbol
	if result.Market != "" {
		title = fmt.Sprintf("%s (%s)", result.Symbol, result.Market.Label())
	}
	sb.WriteString(fmt.Sprintf("# Financial Data: %s\n\n", title))

	if !result.Success {
		sb.WriteString(fmt.Sprintf("**Error:** %s\n", result.Message))
		writeSuggestions(&sb, result.Suggestions)
		return sb.String()
	}

	sb.WriteString(fmt.Sprintf("**Records:** %d\n", result.TotalRecords))
	if result.Message != "" {
		sb.WriteString(fmt.Sprintf("**Note:** %s\n", result.Message))
	}
	sb.WriteString("\n")

	columns := recordColumns(result)
	if len(result.Records) > 0 {
		sb.WriteString("| Report Date | Period |")
		for _, c := range columns {
			sb.WriteString(" " + c + " |")
		}
		sb.WriteString("\n|---|---|")
		for range columns {
			sb.WriteString("---:|")
		}
		sb.WriteString("\n")

		for _, r := range result.Records {
			sb.WriteString(fmt.Sprintf("| %s | %s |", r.ReportDate.Format(models.DateLayout), r.PeriodType))
			for _, c := range columns {
				sb.WriteString(" " + formatValue(r.RawFields[c]) + " |")
			}
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	if len(result.Resolutions) > 0 {
		sb.WriteString("## Field Resolution\n\n")
		writeResolutionTable(&sb, result.Resolutions)
	}
	writeSuggestions(&sb, result.Suggestions)
	return sb.String()
}

// recordColumns lists resolved native names in request order, or every
// field name (sorted) when no projection was requested.
func recordColumns(result *models.QueryResult) []string {
	var cols []string
	seen := make(map[string]bool)
	for _, res := range result.Resolutions {
		if res.Resolved && !seen[res.NativeName] {
			seen[res.NativeName] = true
			cols = append(cols, res.NativeName)
		}
	}
	if len(cols) > 0 {
		return cols
	}
	for _, r := range result.Records {
		for name := range r.RawFields {
			if !seen[name] {
				seen[name] = true
				cols = append(cols, name)
			}
		}
	}
	sort.Strings(cols)
	return cols
}

// formatResolutions formats detailed resolver output as markdown
func formatResolutions(symbol string, results []models.ResolutionResult) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# Field Resolution: %s\n\n", symbol))
	writeResolutionTable(&sb, results)

	for _, r := range results {
		if r.Resolved {
			continue
		}
		sb.WriteString(fmt.Sprintf("\n**%s:** %s\n", r.Term, r.Reason))
		for _, c := range r.Suggestions {
			sb.WriteString(fmt.Sprintf("- `%s` %s (%s %.2f)\n", c.FieldID, c.Definition.DisplayName, c.Strategy, c.Score))
		}
	}
	return sb.String()
}

func writeResolutionTable(sb *strings.Builder, results []models.ResolutionResult) {
	sb.WriteString("| Term | Field | Native Name | Strategy | Confidence |\n")
	sb.WriteString("|---|---|---|---|---:|\n")
	for _, r := range results {
		if !r.Resolved {
			sb.WriteString(fmt.Sprintf("| %s | - | - | unresolved | - |\n", r.Term))
			continue
		}
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %.2f |\n", r.Term, r.FieldID, r.NativeName, r.Strategy, r.Confidence))
	}
}

func writeSuggestions(sb *strings.Builder, suggestions []string) {
	if len(suggestions) == 0 {
		return
	}
	sb.WriteString("\n## Suggestions\n\n")
	for _, s := range suggestions {
		sb.WriteString("- " + s + "\n")
	}
}

// formatCandidates formats field search results as markdown
func formatCandidates(market models.Market, term string, candidates []models.Candidate) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# Field Search: '%s' in %s\n\n", term, market))
	if len(candidates) == 0 {
		sb.WriteString("No matching fields.\n")
		return sb.String()
	}
	sb.WriteString("| Field | Display Name | Score | Match | Matched On |\n")
	sb.WriteString("|---|---|---:|---|---|\n")
	for _, c := range candidates {
		sb.WriteString(fmt.Sprintf("| %s | %s | %.3f | %s | %s |\n",
			c.FieldID, c.Definition.DisplayName, c.Score, c.Strategy, c.MatchedOn))
	}
	return sb.String()
}

// formatFieldList formats a market's fields as markdown
func formatFieldList(market models.Market, defs []models.FieldDefinition) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# Fields: %s (%d)\n\n", market.Label(), len(defs)))
	if len(defs) == 0 {
		sb.WriteString("No fields configured.\n")
		return sb.String()
	}
	sb.WriteString("| Field | Display Name | Unit | Priority | Native Names | Aliases |\n")
	sb.WriteString("|---|---|---|---:|---|---|\n")
	for _, d := range defs {
		priority := "-"
		if d.Priority > 0 {
			priority = strconv.Itoa(d.Priority)
		}
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s | %s |\n",
			d.FieldID, d.DisplayName, d.Unit, priority,
			strings.Join(d.NativeNames, ", "), strings.Join(d.Aliases, ", ")))
	}
	return sb.String()
}

// formatIdentification formats a symbol identification as markdown
func formatIdentification(raw string, market models.Market, symbol string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# Symbol: %s\n\n", raw))
	sb.WriteString(fmt.Sprintf("**Market:** %s (%s)\n", market, market.Label()))
	sb.WriteString(fmt.Sprintf("**Normalized:** %s\n", symbols.Normalize(market, symbol)))
	sb.WriteString(fmt.Sprintf("**Provider Format:** %s\n", symbols.FormatForProvider(market, symbol)))
	return sb.String()
}

// formatSummary formats the field configuration summary as markdown
func formatSummary(s models.ConfigSummary) string {
	var sb strings.Builder
	sb.WriteString("# Field Configuration\n\n")
	sb.WriteString(fmt.Sprintf("**Sources:** %d\n", s.SourceCount))
	for _, src := range s.Sources {
		sb.WriteString(fmt.Sprintf("- %s\n", src))
	}
	sb.WriteString(fmt.Sprintf("\n**Markets:** %d\n**Total Fields:** %d\n\n", s.MarketCount, s.TotalFieldCount))
	sb.WriteString("| Market | Fields |\n|---|---:|\n")
	for _, m := range models.AllMarkets {
		if n, ok := s.PerMarketFieldCount[m]; ok {
			sb.WriteString(fmt.Sprintf("| %s | %d |\n", m, n))
		}
	}
	return sb.String()
}

// formatValue renders a raw field value without scientific notation.
func formatValue(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return "-"
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case string:
		if x == "" {
			return "-"
		}
		return x
	default:
		return fmt.Sprintf("%v", x)
	}
}
