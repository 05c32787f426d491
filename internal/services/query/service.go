// Package query answers "get this symbol's financial data, filtered to
// these fields" by combining symbol identification, the data adapter and
// the field resolver.
package query

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bobmcallan/finsight/internal/common"
	"github.com/bobmcallan/finsight/internal/fieldindex"
	"github.com/bobmcallan/finsight/internal/interfaces"
	"github.com/bobmcallan/finsight/internal/models"
	"github.com/bobmcallan/finsight/internal/services/resolver"
	"github.com/bobmcallan/finsight/internal/symbols"
)

// DetailedResolver is the resolver surface the facade needs.
type DetailedResolver interface {
	ResolveDetailed(symbol string, terms []string, opts interfaces.ResolveOptions) []models.ResolutionResult
}

// Service implements QueryService.
type Service struct {
	adapter     interfaces.DataAdapter
	resolver    DetailedResolver
	identifier  *symbols.Identifier
	timeout     time.Duration
	concurrency int
	logger      *common.Logger
}

var _ interfaces.QueryService = (*Service)(nil)

// Option configures the Service
type Option func(*Service)

// WithTimeout bounds each adapter fetch.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithConcurrency bounds QueryBatch fan-out.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// NewService creates a query facade.
func NewService(adapter interfaces.DataAdapter, fieldResolver DetailedResolver, identifier *symbols.Identifier, logger *common.Logger, opts ...Option) *Service {
	if identifier == nil {
		identifier = symbols.NewIdentifier()
	}
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	s := &Service{
		adapter:     adapter,
		resolver:    fieldResolver,
		identifier:  identifier,
		timeout:     45 * time.Second,
		concurrency: 4,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Query fetches, resolves, projects and filters. It never returns an
// error: every failure is a QueryResult with Success=false.
func (s *Service) Query(ctx context.Context, req models.QueryRequest) (result *models.QueryResult) {
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error().Str("symbol", req.Symbol).Str("panic", fmt.Sprintf("%v", rec)).Msg("Query panicked")
			result = failed(req.Symbol, "", fmt.Sprintf("internal error: %v", rec))
		}
	}()

	market, symbol, err := s.identifier.Identify(req.Symbol)
	if err != nil {
		return failed(req.Symbol, "", err.Error())
	}
	providerSymbol := symbols.FormatForProvider(market, symbol)

	records, err := s.fetch(ctx, market, providerSymbol, req)
	if err != nil {
		s.logger.Warn().
			Str("symbol", providerSymbol).
			Str("market", string(market)).
			Str("caller", common.ResolveCaller(ctx)).
			Err(err).
			Msg("Financial data fetch failed")
		return failed(symbol, market, describeFetchError(providerSymbol, market, err, s.timeout))
	}
	if len(records) == 0 {
		return failed(symbol, market, fmt.Sprintf("no financial data available for %s.%s", market, providerSymbol))
	}

	records = append([]models.FinancialRecord(nil), records...)
	result = &models.QueryResult{Success: true, Symbol: symbol, Market: market}

	if terms := distinctTerms(req.Fields); len(terms) > 0 {
		opts := interfaces.ResolveOptions{AvailableFields: availableFields(records)}
		if req.AllowFuzzy != nil && !*req.AllowFuzzy {
			opts.DisableFuzzy = true
		}
		resolutions := s.resolver.ResolveDetailed(string(market)+"."+symbol, terms, opts)
		result.Resolutions = resolutions

		_, suggestions := resolver.Summarize(resolutions)
		result.Suggestions = suggestions

		meta := resolutionMetadata(resolutions)
		if len(meta) == 0 {
			result.Success = false
			result.Records = []models.FinancialRecord{}
			result.Message = fmt.Sprintf("none of the requested fields could be resolved for %s", symbol)
			return result
		}
		records = project(records, meta)
		if countResolved(resolutions) < len(terms) {
			result.Message = fmt.Sprintf("resolved %d of %d requested fields", countResolved(resolutions), len(terms))
		}
	}

	records = filterByDate(records, req.StartDate, req.EndDate)
	records = filterByPeriod(records, req.PeriodType)
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].ReportDate.After(records[j].ReportDate)
	})

	result.Records = records
	result.TotalRecords = len(records)
	if result.TotalRecords == 0 && result.Message == "" {
		result.Message = "no records match the requested date range or period"
	}
	return result
}

func (s *Service) fetch(ctx context.Context, market models.Market, symbol string, req models.QueryRequest) ([]models.FinancialRecord, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var opts []interfaces.FetchOption
	if req.StartDate != nil || req.EndDate != nil {
		var from, to time.Time
		if req.StartDate != nil {
			from = *req.StartDate
		}
		if req.EndDate != nil {
			to = *req.EndDate
		}
		opts = append(opts, interfaces.WithDateRange(from, to))
	}

	records, err := s.adapter.Fetch(fetchCtx, market, symbol, opts...)
	if err == nil && fetchCtx.Err() != nil {
		err = fetchCtx.Err()
	}
	return records, err
}

// QueryBatch runs queries concurrently and returns results in input order.
func (s *Service) QueryBatch(ctx context.Context, reqs []models.QueryRequest) []*models.QueryResult {
	out := make([]*models.QueryResult, len(reqs))
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, req := range reqs {
		g.Go(func() error {
			out[i] = s.Query(ctx, req)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func failed(symbol string, market models.Market, message string) *models.QueryResult {
	return &models.QueryResult{
		Success: false,
		Symbol:  symbol,
		Market:  market,
		Records: []models.FinancialRecord{},
		Message: message,
	}
}

func describeFetchError(symbol string, market models.Market, err error, timeout time.Duration) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Sprintf("data fetch for %s.%s timed out after %s", market, symbol, timeout)
	case errors.Is(err, context.Canceled):
		return fmt.Sprintf("data fetch for %s.%s was cancelled", market, symbol)
	case errors.Is(err, interfaces.ErrDataUnavailable):
		return fmt.Sprintf("data unavailable for %s.%s: %v", market, symbol, err)
	default:
		return fmt.Sprintf("failed to fetch data for %s.%s: %v", market, symbol, err)
	}
}

// distinctTerms trims terms and drops blanks and case-folded duplicates.
func distinctTerms(terms []string) []string {
	seen := make(map[string]bool, len(terms))
	var out []string
	for _, t := range terms {
		t = strings.TrimSpace(t)
		k := fieldindex.NormalizeKey(t)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, t)
	}
	return out
}

// availableFields is the union of native field names across records, sorted.
func availableFields(records []models.FinancialRecord) []string {
	set := make(map[string]bool)
	for _, r := range records {
		for k := range r.RawFields {
			set[k] = true
		}
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// resolutionMetadata maps each resolved native name to how it was
// resolved. The first term to resolve to a name wins.
func resolutionMetadata(results []models.ResolutionResult) map[string]models.FieldResolution {
	meta := make(map[string]models.FieldResolution)
	for _, r := range results {
		if !r.Resolved {
			continue
		}
		if _, ok := meta[r.NativeName]; ok {
			continue
		}
		meta[r.NativeName] = models.FieldResolution{
			Term:       r.Term,
			FieldID:    r.FieldID,
			Strategy:   r.Strategy,
			Confidence: r.Confidence,
		}
	}
	return meta
}

func countResolved(results []models.ResolutionResult) int {
	n := 0
	for _, r := range results {
		if r.Resolved {
			n++
		}
	}
	return n
}

// project copies each record keeping only resolved native names, with
// resolution metadata for the names the record actually carries.
func project(records []models.FinancialRecord, meta map[string]models.FieldResolution) []models.FinancialRecord {
	out := make([]models.FinancialRecord, 0, len(records))
	for _, r := range records {
		p := r
		p.RawFields = make(map[string]interface{}, len(meta))
		p.Metadata = make(map[string]models.FieldResolution, len(meta))
		for name, m := range meta {
			if v, ok := r.RawFields[name]; ok {
				p.RawFields[name] = v
				p.Metadata[name] = m
			}
		}
		out = append(out, p)
	}
	return out
}

// filterByDate keeps records whose report date lies within [start, end];
// either bound may be nil.
func filterByDate(records []models.FinancialRecord, start, end *time.Time) []models.FinancialRecord {
	if start == nil && end == nil {
		return records
	}
	out := records[:0:0]
	for _, r := range records {
		if start != nil && r.ReportDate.Before(*start) {
			continue
		}
		if end != nil && r.ReportDate.After(*end) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func filterByPeriod(records []models.FinancialRecord, period models.PeriodType) []models.FinancialRecord {
	if period == "" {
		return records
	}
	out := records[:0:0]
	for _, r := range records {
		if r.PeriodType == period {
			out = append(out, r)
		}
	}
	return out
}
