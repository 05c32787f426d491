package fieldindex

import (
	"math"
	"sort"
	"strings"

	"golang.org/x/text/width"

	"github.com/bobmcallan/finsight/internal/models"
)

// Index is the read-only keyword index for one market. Build a new Index
// rather than mutating one that readers may hold.
type Index struct {
	market models.Market
	fields []models.FieldDefinition // sorted by priority then field_id
	byID   map[string]int           // upper-cased field_id -> position in fields
	keys   map[string][]string      // NormalizeKey(name) -> field_ids, sorted
}

// Build indexes defs for market. Definitions are cloned; later mutation of
// defs does not affect the index.
func Build(market models.Market, defs []models.FieldDefinition) *Index {
	ix := &Index{
		market: market,
		fields: make([]models.FieldDefinition, 0, len(defs)),
		byID:   make(map[string]int, len(defs)),
		keys:   make(map[string][]string),
	}
	for _, d := range defs {
		if strings.TrimSpace(d.FieldID) == "" {
			continue
		}
		ix.fields = append(ix.fields, d.Clone())
	}
	sort.SliceStable(ix.fields, func(i, j int) bool {
		return less(ix.fields[i], ix.fields[j])
	})

	for i, d := range ix.fields {
		ix.byID[idKey(d.FieldID)] = i
		names := append([]string{d.FieldID, d.DisplayName}, d.NativeNames...)
		names = append(names, d.Aliases...)
		for _, n := range names {
			k := NormalizeKey(n)
			if k == "" || contains(ix.keys[k], d.FieldID) {
				continue
			}
			ix.keys[k] = append(ix.keys[k], d.FieldID)
		}
	}
	for k := range ix.keys {
		sort.Strings(ix.keys[k])
	}
	return ix
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// EffectivePriority maps unset priorities (<= 0) after every ranked field.
func EffectivePriority(p int) int {
	if p <= 0 {
		return math.MaxInt32
	}
	return p
}

func less(a, b models.FieldDefinition) bool {
	pa, pb := EffectivePriority(a.Priority), EffectivePriority(b.Priority)
	if pa != pb {
		return pa < pb
	}
	return a.FieldID < b.FieldID
}

// Market returns the market this index covers.
func (ix *Index) Market() models.Market {
	return ix.market
}

// Len returns the number of indexed fields.
func (ix *Index) Len() int {
	return len(ix.fields)
}

// Fields returns copies of every field, ordered by priority then field_id.
func (ix *Index) Fields() []models.FieldDefinition {
	out := make([]models.FieldDefinition, len(ix.fields))
	for i, d := range ix.fields {
		out[i] = d.Clone()
	}
	return out
}

// Field looks a definition up by field_id, case-insensitively.
func (ix *Index) Field(id string) (models.FieldDefinition, bool) {
	i, ok := ix.byID[idKey(id)]
	if !ok {
		return models.FieldDefinition{}, false
	}
	return ix.fields[i].Clone(), true
}

func idKey(id string) string {
	return strings.ToUpper(width.Fold.String(strings.TrimSpace(id)))
}

// LookupExact returns the field_ids that claim term as their id, display
// name, native name or alias after case and whitespace folding.
func (ix *Index) LookupExact(term string) []string {
	ids := ix.keys[NormalizeKey(term)]
	return append([]string(nil), ids...)
}

// Top returns up to n fields in priority order.
func (ix *Index) Top(n int) []models.FieldDefinition {
	if n <= 0 || n > len(ix.fields) {
		n = len(ix.fields)
	}
	out := make([]models.FieldDefinition, n)
	for i := 0; i < n; i++ {
		out[i] = ix.fields[i].Clone()
	}
	return out
}

// Search ranks every field against term. Results are ordered by score
// descending, then priority ascending, then field_id ascending; scores
// below MinScore are dropped. limit <= 0 returns all matches.
func (ix *Index) Search(term string, limit int) []models.Candidate {
	if strings.TrimSpace(term) == "" {
		return nil
	}

	var out []models.Candidate
	for _, d := range ix.fields {
		score, matchedOn, kind := ScoreField(term, d)
		if score < MinScore {
			continue
		}
		out = append(out, models.Candidate{
			FieldID:    d.FieldID,
			Score:      score,
			Strategy:   kind,
			MatchedOn:  matchedOn,
			Definition: d.Clone(),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return less(out[i].Definition, out[j].Definition)
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
