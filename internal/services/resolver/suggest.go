package resolver

import (
	"fmt"
	"strings"

	"github.com/bobmcallan/finsight/internal/models"
)

// Summarize flattens detailed results into resolved native names and
// suggestion messages.
func Summarize(results []models.ResolutionResult) ([]string, []string) {
	resolvedNames := []string{}
	suggestions := []string{}
	seen := make(map[string]bool)
	for _, r := range results {
		if r.Resolved {
			if !seen[r.NativeName] {
				seen[r.NativeName] = true
				resolvedNames = append(resolvedNames, r.NativeName)
			}
			continue
		}
		if msg := FormatSuggestion(r); msg != "" {
			suggestions = append(suggestions, msg)
		}
	}
	return resolvedNames, suggestions
}

// reasonUnknownMarket prefixes the Reason of terms whose symbol could not be
// classified.
const reasonUnknownMarket = "unknown market"

// FormatSuggestion renders an unresolved result as
//
//	未找到匹配字段: '<term>'. 建议: '<field>' (<display>, <strategy> <score>), ...
//
// An unclassifiable symbol renders as "未找到匹配字段: '<term>'. <reason>".
// Other results without suggestions render as "".
func FormatSuggestion(r models.ResolutionResult) string {
	if r.Resolved {
		return ""
	}
	if len(r.Suggestions) == 0 {
		if strings.HasPrefix(r.Reason, reasonUnknownMarket) {
			return fmt.Sprintf("未找到匹配字段: '%s'. %s", r.Term, r.Reason)
		}
		return ""
	}
	parts := make([]string, 0, len(r.Suggestions))
	for _, c := range r.Suggestions {
		label := c.Strategy
		if c.Score > 0 {
			label = fmt.Sprintf("%s %.2f", c.Strategy, c.Score)
		}
		if name := c.Definition.DisplayName; name != "" && name != c.FieldID {
			label = name + ", " + label
		}
		parts = append(parts, fmt.Sprintf("'%s' (%s)", c.FieldID, label))
	}
	return fmt.Sprintf("未找到匹配字段: '%s'. 建议: %s", r.Term, strings.Join(parts, ", "))
}
