// Package fieldindex builds per-market keyword indexes over field
// definitions and ranks fields against free-text query terms.
package fieldindex

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/width"

	"github.com/bobmcallan/finsight/internal/models"
)

// Scores for each matching tier. Token overlap is scaled into
// [0, TokenOverlapCeiling] so it never outranks containment.
const (
	ScoreExact          = 1.0
	ScoreNormalized     = 0.95
	ContainmentBase     = 0.6
	ContainmentSpan     = 0.3
	TokenOverlapCeiling = 0.75
	MinScore            = 0.15
)

// Match kinds reported on candidates.
const (
	MatchExact        = "exact"
	MatchNormalized   = "normalized"
	MatchContainment  = "containment"
	MatchTokenOverlap = "token_overlap"
)

// Fold maps full-width forms to their narrow equivalents ("ＲＯＥ" -> "ROE",
// "（元）" -> "(元)") and then case-folds. Every comparison key goes through it.
func Fold(s string) string {
	// a Caser is stateful; one per call
	return cases.Fold().String(width.Fold.String(s))
}

// NormalizeKey folds s and collapses runs of whitespace to one space.
func NormalizeKey(s string) string {
	return Fold(strings.Join(strings.Fields(s), " "))
}

// Compact folds s and drops whitespace, punctuation and symbols,
// so "Net Profit", "net_profit" and "NET-PROFIT" compare equal.
func Compact(s string) string {
	var b strings.Builder
	for _, r := range Fold(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Tokens splits s on whitespace and punctuation. Han characters are emitted
// one per token because Chinese field names carry no word separators.
func Tokens(s string) []string {
	var tokens []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}
	for _, r := range Fold(s) {
		switch {
		case unicode.Is(unicode.Han, r):
			flush()
			tokens = append(tokens, string(r))
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			cur.WriteRune(r)
		default:
			flush()
		}
	}
	flush()
	return tokens
}

// Score rates how well query matches a single candidate string, returning
// the score and the tier that produced it. Scores below MinScore are
// returned as zero.
func Score(query, candidate string) (float64, string) {
	q := NormalizeKey(query)
	c := NormalizeKey(candidate)
	if q == "" || c == "" {
		return 0, ""
	}
	if q == c {
		return ScoreExact, MatchExact
	}

	qc, cc := Compact(q), Compact(c)
	if qc == "" || cc == "" {
		return 0, ""
	}
	if qc == cc {
		return ScoreNormalized, MatchNormalized
	}

	if strings.Contains(cc, qc) || strings.Contains(qc, cc) {
		ql, cl := utf8.RuneCountInString(qc), utf8.RuneCountInString(cc)
		shorter, longer := ql, cl
		if shorter > longer {
			shorter, longer = longer, shorter
		}
		return ContainmentBase + ContainmentSpan*float64(shorter)/float64(longer), MatchContainment
	}

	if j := jaccard(Tokens(q), Tokens(c)); j > 0 {
		s := j * TokenOverlapCeiling
		if s >= MinScore {
			return s, MatchTokenOverlap
		}
	}
	return 0, ""
}

func jaccard(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]bool, len(a))
	for _, t := range a {
		set[t] = true
	}
	union := len(set)
	inter := 0
	seen := make(map[string]bool, len(b))
	for _, t := range b {
		if seen[t] {
			continue
		}
		seen[t] = true
		if set[t] {
			inter++
		} else {
			union++
		}
	}
	return float64(inter) / float64(union)
}

// ScoreField returns the best score for query across the field's id,
// display name, native names and aliases, plus the string that produced it.
// Ties keep the earliest string in that order.
func ScoreField(query string, def models.FieldDefinition) (float64, string, string) {
	best, matchedOn, kind := 0.0, "", ""
	try := func(candidate string) bool {
		s, k := Score(query, candidate)
		if s > best {
			best, matchedOn, kind = s, candidate, k
		}
		return best >= ScoreExact
	}

	if try(def.FieldID) || try(def.DisplayName) {
		return best, matchedOn, kind
	}
	for _, n := range def.NativeNames {
		if try(n) {
			return best, matchedOn, kind
		}
	}
	for _, a := range def.Aliases {
		if try(a) {
			return best, matchedOn, kind
		}
	}
	return best, matchedOn, kind
}
