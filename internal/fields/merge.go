package fields

import (
	"sort"
	"strings"

	"github.com/bobmcallan/finsight/internal/fieldindex"
	"github.com/bobmcallan/finsight/internal/models"
)

// mergeState accumulates definitions across sources. Field identity is the
// case-insensitive field_id within a market; the first spelling seen is kept.
type mergeState struct {
	markets map[models.Market]map[string]*models.FieldDefinition
	sources []string
}

func newMergeState() *mergeState {
	return &mergeState{markets: make(map[models.Market]map[string]*models.FieldDefinition)}
}

// cloneState copies a published snapshot into a fresh state for additive loads.
func cloneState(snap *Snapshot) *mergeState {
	st := newMergeState()
	if snap == nil {
		return st
	}
	st.sources = append(st.sources, snap.sources...)
	for m, defs := range snap.fields {
		byID := make(map[string]*models.FieldDefinition, len(defs))
		for _, d := range defs {
			c := d.Clone()
			byID[strings.ToUpper(c.FieldID)] = &c
		}
		st.markets[m] = byID
	}
	return st
}

// apply merges one source's content.
//
// Aliases and native names are unioned (earlier entries first, duplicates
// dropped case-insensitively). DisplayName, Unit, Category and Priority are
// last-write-wins unless the later value is empty or zero.
func (st *mergeState) apply(name string, content MarketFields) {
	for m, defs := range content {
		byID, ok := st.markets[m]
		if !ok {
			byID = make(map[string]*models.FieldDefinition)
			st.markets[m] = byID
		}
		for _, d := range defs {
			key := strings.ToUpper(strings.TrimSpace(d.FieldID))
			if key == "" {
				continue
			}
			existing, ok := byID[key]
			if !ok {
				c := d.Clone()
				c.FieldID = strings.TrimSpace(c.FieldID)
				c.Aliases = unionFold(nil, c.Aliases)
				c.NativeNames = unionFold(nil, c.NativeNames)
				c.Sources = unionExact(nil, []string{name})
				byID[key] = &c
				continue
			}
			mergeInto(existing, d, name)
		}
	}
	st.sources = unionExact(st.sources, []string{name})
}

func mergeInto(dst *models.FieldDefinition, src models.FieldDefinition, name string) {
	if strings.TrimSpace(src.DisplayName) != "" {
		dst.DisplayName = src.DisplayName
	}
	if strings.TrimSpace(src.Unit) != "" {
		dst.Unit = src.Unit
	}
	if strings.TrimSpace(src.Category) != "" {
		dst.Category = src.Category
	}
	if src.Priority != 0 {
		dst.Priority = src.Priority
	}
	dst.Aliases = unionFold(dst.Aliases, src.Aliases)
	dst.NativeNames = unionFold(dst.NativeNames, src.NativeNames)
	dst.Sources = unionExact(dst.Sources, []string{name})
}

// unionFold appends the entries of add not already in base, comparing with
// case and whitespace folded. Blank entries are dropped.
func unionFold(base, add []string) []string {
	seen := make(map[string]bool, len(base)+len(add))
	out := make([]string, 0, len(base)+len(add))
	for _, list := range [][]string{base, add} {
		for _, s := range list {
			s = strings.TrimSpace(s)
			k := fieldindex.NormalizeKey(s)
			if k == "" || seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, s)
		}
	}
	return out
}

func unionExact(base, add []string) []string {
	out := append([]string(nil), base...)
	for _, s := range add {
		found := false
		for _, b := range out {
			if b == s {
				found = true
				break
			}
		}
		if !found {
			out = append(out, s)
		}
	}
	return out
}

// snapshot freezes the state into an immutable Snapshot with built indexes.
func (st *mergeState) snapshot() *Snapshot {
	snap := &Snapshot{
		sources: append([]string(nil), st.sources...),
		fields:  make(map[models.Market][]models.FieldDefinition, len(st.markets)),
		indexes: make(map[models.Market]*fieldindex.Index, len(st.markets)),
	}
	for m, byID := range st.markets {
		keys := make([]string, 0, len(byID))
		for k := range byID {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		defs := make([]models.FieldDefinition, 0, len(keys))
		for _, k := range keys {
			defs = append(defs, byID[k].Clone())
		}
		ix := fieldindex.Build(m, defs)
		snap.indexes[m] = ix
		snap.fields[m] = ix.Fields()
	}
	return snap
}
