// Package resolver maps user-supplied field terms onto the native field
// names of a market's financial data.
package resolver

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/bobmcallan/finsight/internal/common"
	"github.com/bobmcallan/finsight/internal/fields"
	"github.com/bobmcallan/finsight/internal/interfaces"
	"github.com/bobmcallan/finsight/internal/models"
	"github.com/bobmcallan/finsight/internal/symbols"
)

// SnapshotProvider supplies the current field configuration.
type SnapshotProvider interface {
	Snapshot() *fields.Snapshot
}

// Service implements FieldResolver over a field store snapshot.
type Service struct {
	catalog    SnapshotProvider
	identifier *symbols.Identifier
	allowFuzzy bool
	logger     *common.Logger
}

var _ interfaces.FieldResolver = (*Service)(nil)

// NewService creates a resolver. allowFuzzy is the default for callers that
// do not disable fuzzy acceptance themselves.
func NewService(catalog SnapshotProvider, identifier *symbols.Identifier, allowFuzzy bool, logger *common.Logger) *Service {
	if identifier == nil {
		identifier = symbols.NewIdentifier()
	}
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Service{
		catalog:    catalog,
		identifier: identifier,
		allowFuzzy: allowFuzzy,
		logger:     logger,
	}
}

// call is the per-request state shared by every term: one snapshot, one
// market inference and one available-name set.
type call struct {
	snap      *fields.Snapshot
	market    models.Market
	marketErr error
	available nameSet
	fuzzy     bool
}

func (s *Service) begin(symbol string, opts interfaces.ResolveOptions) *call {
	c := &call{
		snap:      s.catalog.Snapshot(),
		available: newNameSet(opts.AvailableFields),
		fuzzy:     s.allowFuzzy && !opts.DisableFuzzy,
	}
	c.market, _, c.marketErr = s.identifier.Identify(symbol)
	return c
}

// ResolveDetailed returns one ResolutionResult per term, in request order.
func (s *Service) ResolveDetailed(symbol string, terms []string, opts interfaces.ResolveOptions) []models.ResolutionResult {
	c := s.begin(symbol, opts)
	out := make([]models.ResolutionResult, len(terms))
	for i, term := range terms {
		out[i] = s.resolveTerm(c, term)
	}
	return out
}

// Resolve returns the resolved native names (request order, duplicates
// dropped) and one suggestion message per unresolved term that has
// candidates. Empty terms give ([], []).
func (s *Service) Resolve(symbol string, terms []string, opts interfaces.ResolveOptions) ([]string, []string) {
	results := s.ResolveDetailed(symbol, terms, opts)
	resolvedNames, suggestions := Summarize(results)
	s.logger.Debug().
		Str("symbol", symbol).
		Int("terms", len(terms)).
		Int("resolved", len(resolvedNames)).
		Msg("Fields resolved")
	return resolvedNames, suggestions
}

// ResolveAsync resolves terms concurrently and returns exactly what Resolve
// would. It fails only if ctx is cancelled.
func (s *Service) ResolveAsync(ctx context.Context, symbol string, terms []string, opts interfaces.ResolveOptions) ([]string, []string, error) {
	results, err := s.ResolveDetailedAsync(ctx, symbol, terms, opts)
	if err != nil {
		return nil, nil, err
	}
	resolvedNames, suggestions := Summarize(results)
	return resolvedNames, suggestions, nil
}

// ResolveDetailedAsync is ResolveDetailed with one goroutine per term.
// Each result lands in its own slot so ordering never depends on timing.
func (s *Service) ResolveDetailedAsync(ctx context.Context, symbol string, terms []string, opts interfaces.ResolveOptions) ([]models.ResolutionResult, error) {
	c := s.begin(symbol, opts)
	out := make([]models.ResolutionResult, len(terms))

	g, gctx := errgroup.WithContext(ctx)
	for i, term := range terms {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = s.resolveTerm(c, term)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// resolveTerm runs the cascade: direct, field_id, keyword, fuzzy, then
// suggestions.
func (s *Service) resolveTerm(c *call, raw string) models.ResolutionResult {
	term := strings.TrimSpace(raw)
	if c.marketErr != nil {
		return models.ResolutionResult{Term: raw, Reason: reasonUnknownMarket + ": " + c.marketErr.Error()}
	}
	if term == "" {
		return models.ResolutionResult{Term: raw, Reason: "empty field term"}
	}

	ix := c.snap.Index(c.market)

	if r, ok := MatchDirect(ix, term, c.available); ok {
		r.Term = raw
		return r
	}
	if r, ok := MatchFieldID(ix, term, c.available); ok {
		r.Term = raw
		return r
	}

	candidates := ix.Search(term, 0)
	if r, ok := MatchKeyword(raw, candidates, c.available); ok {
		return r
	}
	if c.fuzzy {
		if r, ok := MatchFuzzy(raw, candidates, c.available); ok {
			return r
		}
	}

	result := models.ResolutionResult{Term: raw}
	if ix.Len() == 0 {
		result.Reason = fmt.Sprintf("no fields configured for market %s", c.market)
		return result
	}
	result.Suggestions = Suggest(ix, candidates)
	result.Reason = failureReason(c, candidates)
	return result
}

func failureReason(c *call, candidates []models.Candidate) string {
	if len(candidates) == 0 {
		return "no configured field matches the term"
	}
	top := candidates[0]
	switch {
	case top.Score >= KeywordThreshold:
		return fmt.Sprintf("keyword match '%s' is not present in the symbol's data", top.FieldID)
	case top.Score >= FuzzyThreshold && !c.fuzzy:
		return fmt.Sprintf("fuzzy match '%s' (%.2f) not accepted: fuzzy matching disabled", top.FieldID, top.Score)
	case top.Score >= FuzzyThreshold && !c.available.known():
		return fmt.Sprintf("fuzzy match '%s' (%.2f) needs confirmation: no data to verify against", top.FieldID, top.Score)
	case top.Score >= FuzzyThreshold:
		return fmt.Sprintf("fuzzy match '%s' (%.2f) is not present in the symbol's data", top.FieldID, top.Score)
	default:
		return fmt.Sprintf("best match '%s' (%.2f) is below the fuzzy threshold", top.FieldID, top.Score)
	}
}
