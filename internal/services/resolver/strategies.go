package resolver

import (
	"sort"

	"github.com/bobmcallan/finsight/internal/fieldindex"
	"github.com/bobmcallan/finsight/internal/models"
)

// Acceptance thresholds for the resolution cascade.
const (
	KeywordThreshold = 0.8
	FuzzyThreshold   = 0.3
	MaxSuggestions   = 3
)

// nameSet is a symbol's native field names keyed by NormalizeKey. An empty
// set means no data is known and resolution is purely structural.
type nameSet map[string]string

func newNameSet(names []string) nameSet {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)
	set := make(nameSet, len(sorted))
	for _, n := range sorted {
		k := fieldindex.NormalizeKey(n)
		if k == "" {
			continue
		}
		if _, ok := set[k]; !ok {
			set[k] = n
		}
	}
	return set
}

func (s nameSet) known() bool {
	return len(s) > 0
}

func (s nameSet) lookup(name string) (string, bool) {
	n, ok := s[fieldindex.NormalizeKey(name)]
	return n, ok
}

// NativeName picks the provider column for def. Candidates are tried in
// order: native names, field_id, display name, aliases. With no known data
// the first native name (or the field_id) is returned.
func NativeName(def models.FieldDefinition, available nameSet) (string, bool) {
	if !available.known() {
		if len(def.NativeNames) > 0 {
			return def.NativeNames[0], true
		}
		return def.FieldID, true
	}

	candidates := append([]string(nil), def.NativeNames...)
	candidates = append(candidates, def.FieldID, def.DisplayName)
	candidates = append(candidates, def.Aliases...)
	for _, c := range candidates {
		if n, ok := available.lookup(c); ok {
			return n, true
		}
	}
	return "", false
}

func resolved(term string, def *models.FieldDefinition, native, strategy string, confidence float64) models.ResolutionResult {
	r := models.ResolutionResult{
		Term:       term,
		Resolved:   true,
		NativeName: native,
		Confidence: confidence,
		Strategy:   strategy,
	}
	if def != nil {
		c := def.Clone()
		r.FieldID = c.FieldID
		r.Field = &c
	}
	return r
}

// MatchDirect resolves term when it is itself a native field name present
// in the symbol's data. The owning field definition is attached when one
// lists the name.
func MatchDirect(ix *fieldindex.Index, term string, available nameSet) (models.ResolutionResult, bool) {
	native, ok := available.lookup(term)
	if !ok {
		return models.ResolutionResult{}, false
	}
	for _, id := range ix.LookupExact(native) {
		def, _ := ix.Field(id)
		for _, n := range def.NativeNames {
			if fieldindex.NormalizeKey(n) == fieldindex.NormalizeKey(native) {
				return resolved(term, &def, native, models.StrategyDirect, 1.0), true
			}
		}
	}
	return resolved(term, nil, native, models.StrategyDirect, 1.0), true
}

// MatchFieldID resolves term when it equals a configured field_id,
// case-insensitively. Reported as a keyword match with confidence 1.0.
func MatchFieldID(ix *fieldindex.Index, term string, available nameSet) (models.ResolutionResult, bool) {
	def, ok := ix.Field(term)
	if !ok {
		return models.ResolutionResult{}, false
	}
	native, ok := NativeName(def, available)
	if !ok {
		return models.ResolutionResult{}, false
	}
	return resolved(term, &def, native, models.StrategyKeyword, 1.0), true
}

// MatchKeyword accepts the best candidate scoring at least KeywordThreshold
// whose native name exists in the data. Candidates must be ranked.
func MatchKeyword(term string, candidates []models.Candidate, available nameSet) (models.ResolutionResult, bool) {
	for _, c := range candidates {
		if c.Score < KeywordThreshold {
			break
		}
		if native, ok := NativeName(c.Definition, available); ok {
			return resolved(term, &c.Definition, native, models.StrategyKeyword, c.Score), true
		}
	}
	return models.ResolutionResult{}, false
}

// MatchFuzzy accepts the best candidate scoring at least FuzzyThreshold,
// but only when its native name is confirmed present in the data. Without
// data a fuzzy hit stays a suggestion.
func MatchFuzzy(term string, candidates []models.Candidate, available nameSet) (models.ResolutionResult, bool) {
	if !available.known() {
		return models.ResolutionResult{}, false
	}
	for _, c := range candidates {
		if c.Score < FuzzyThreshold {
			break
		}
		if native, ok := NativeName(c.Definition, available); ok {
			return resolved(term, &c.Definition, native, models.StrategyFuzzy, c.Score), true
		}
	}
	return models.ResolutionResult{}, false
}

// StrategyFor names the strategy that would accept a candidate of this score.
func StrategyFor(score float64) string {
	switch {
	case score >= KeywordThreshold:
		return models.StrategyKeyword
	case score >= FuzzyThreshold:
		return models.StrategyFuzzy
	default:
		return models.StrategyPartial
	}
}

// Suggest returns up to MaxSuggestions candidates, relabelled with the
// strategy each would need. When nothing scores, the market's
// highest-priority fields are offered instead so guidance is never empty
// for a configured market.
func Suggest(ix *fieldindex.Index, candidates []models.Candidate) []models.Candidate {
	var out []models.Candidate
	for _, c := range candidates {
		if len(out) == MaxSuggestions {
			break
		}
		c.Strategy = StrategyFor(c.Score)
		out = append(out, c)
	}
	if len(out) > 0 {
		return out
	}
	for _, def := range ix.Top(MaxSuggestions) {
		out = append(out, models.Candidate{
			FieldID:    def.FieldID,
			Score:      0,
			Strategy:   models.StrategyPartial,
			MatchedOn:  def.DisplayName,
			Definition: def,
		})
	}
	return out
}
