package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/bobmcallan/finsight/internal/common"
	"github.com/bobmcallan/finsight/internal/interfaces"
	"github.com/bobmcallan/finsight/internal/models"
	"github.com/bobmcallan/finsight/internal/services/resolver"
	"github.com/bobmcallan/finsight/internal/symbols"
)

// maxBatchQueries bounds POST /api/query/batch.
const maxBatchQueries = 20

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, common.VersionInfo())
}

// --- Symbols ---

type identifyResponse struct {
	Input          string        `json:"input"`
	Market         models.Market `json:"market"`
	MarketLabel    string        `json:"market_label"`
	Symbol         string        `json:"symbol"`
	Normalized     string        `json:"normalized"`
	ProviderSymbol string        `json:"provider_symbol"`
}

func (s *Server) handleSymbolIdentify(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	raw := r.URL.Query().Get("symbol")
	market, symbol, err := s.app.Identifier.Identify(raw)
	if err != nil {
		var invalid *symbols.InvalidSymbolError
		if errors.As(err, &invalid) {
			WriteErrorWithCode(w, http.StatusBadRequest, err.Error(), "invalid_symbol")
			return
		}
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, identifyResponse{
		Input:          raw,
		Market:         market,
		MarketLabel:    market.Label(),
		Symbol:         symbol,
		Normalized:     symbols.Normalize(market, symbol),
		ProviderSymbol: symbols.FormatForProvider(market, symbol),
	})
}

// --- Fields ---

// handleFieldList serves GET /api/fields?market=. Without a market every
// market's fields are returned keyed by market code.
func (s *Server) handleFieldList(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	if raw := r.URL.Query().Get("market"); raw != "" {
		market, ok := parseMarketParam(w, raw)
		if !ok {
			return
		}
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"market": market,
			"fields": nonNilFields(s.app.Fields.MarketFields(market)),
		})
		return
	}

	all := make(map[models.Market][]models.FieldDefinition)
	for _, m := range s.app.Fields.Markets() {
		all[m] = nonNilFields(s.app.Fields.MarketFields(m))
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"markets": all})
}

func (s *Server) handleFieldSummary(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, s.app.Fields.Summary())
}

func (s *Server) handleFieldSearch(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	q := r.URL.Query()
	market, ok := parseMarketParam(w, q.Get("market"))
	if !ok {
		return
	}
	term := strings.TrimSpace(q.Get("q"))
	if term == "" {
		WriteError(w, http.StatusBadRequest, "q is required")
		return
	}
	limit, ok := QueryPositiveInt(w, q, "limit", 10)
	if !ok {
		return
	}

	candidates := s.app.Fields.Search(market, term, limit)
	out := make([]searchCandidate, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, searchCandidate{Candidate: c, DisplayName: c.Definition.DisplayName})
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"market":     market,
		"query":      term,
		"candidates": out,
	})
}

// searchCandidate adds the display name that Candidate omits from JSON.
type searchCandidate struct {
	models.Candidate
	DisplayName string `json:"display_name"`
}

type resolveRequest struct {
	Symbol          string   `json:"symbol"`
	Fields          []string `json:"fields"`
	AvailableFields []string `json:"available_fields,omitempty"`
	AllowFuzzy      *bool    `json:"allow_fuzzy,omitempty"`
}

type resolveResponse struct {
	Symbol      string                    `json:"symbol"`
	Resolved    []string                  `json:"resolved"`
	Suggestions []string                  `json:"suggestions"`
	Results     []models.ResolutionResult `json:"results"`
}

func (s *Server) handleFieldResolve(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	var req resolveRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Symbol) == "" {
		WriteError(w, http.StatusBadRequest, "symbol is required")
		return
	}
	if len(req.Fields) == 0 {
		WriteError(w, http.StatusBadRequest, "fields is required")
		return
	}

	opts := interfaces.ResolveOptions{AvailableFields: req.AvailableFields}
	if req.AllowFuzzy != nil && !*req.AllowFuzzy {
		opts.DisableFuzzy = true
	}
	results, err := s.app.Resolver.ResolveDetailedAsync(r.Context(), req.Symbol, req.Fields, opts)
	if err != nil {
		WriteError(w, http.StatusServiceUnavailable, "resolution interrupted: "+err.Error())
		return
	}
	resolved, suggestions := resolver.Summarize(results)
	WriteJSON(w, http.StatusOK, resolveResponse{
		Symbol:      req.Symbol,
		Resolved:    resolved,
		Suggestions: suggestions,
		Results:     results,
	})
}

func (s *Server) handleFieldReload(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	err := s.app.Fields.Reload()
	resp := map[string]interface{}{"summary": s.app.Fields.Summary()}
	if err != nil {
		s.logger.Warn().Err(err).Str("caller", common.ResolveCaller(r.Context())).Msg("Field configuration reload reported errors")
		resp["warnings"] = err.Error()
	}
	WriteJSON(w, http.StatusOK, resp)
}

// --- Financial data ---

// queryBody is the JSON form of a QueryRequest with plain date strings.
type queryBody struct {
	Symbol     string   `json:"symbol"`
	Fields     []string `json:"fields,omitempty"`
	StartDate  string   `json:"start_date,omitempty"`
	EndDate    string   `json:"end_date,omitempty"`
	PeriodType string   `json:"period_type,omitempty"`
	AllowFuzzy *bool    `json:"allow_fuzzy,omitempty"`
}

func (b queryBody) toRequest() (models.QueryRequest, error) {
	req := models.QueryRequest{
		Symbol:     b.Symbol,
		Fields:     b.Fields,
		AllowFuzzy: b.AllowFuzzy,
	}
	var err error
	if req.StartDate, err = models.ParseQueryDate(b.StartDate); err != nil {
		return req, err
	}
	if req.EndDate, err = models.ParseQueryDate(b.EndDate); err != nil {
		return req, err
	}
	if b.PeriodType != "" {
		if req.PeriodType, err = models.ParsePeriodType(b.PeriodType); err != nil {
			return req, err
		}
	}
	return req, nil
}

// handleStockFinancials serves GET /api/stocks/{symbol}/financials.
func (s *Server) handleStockFinancials(w http.ResponseWriter, r *http.Request, symbol string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	q := r.URL.Query()
	body := queryBody{
		Symbol:     symbol,
		StartDate:  q.Get("start"),
		EndDate:    q.Get("end"),
		PeriodType: q.Get("period"),
		Fields:     QueryList(q, "fields"),
	}
	allow, ok := QueryBool(w, q, "allow_fuzzy")
	if !ok {
		return
	}
	body.AllowFuzzy = allow
	s.runQuery(w, r, body)
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	var body queryBody
	if !DecodeJSON(w, r, &body) {
		return
	}
	s.runQuery(w, r, body)
}

func (s *Server) runQuery(w http.ResponseWriter, r *http.Request, body queryBody) {
	req, err := body.toRequest()
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	result := s.app.Query.Query(r.Context(), req)
	WriteJSON(w, queryStatus(result), result)
}

// queryStatus maps a facade result onto an HTTP status. Failures are
// still full QueryResult bodies.
func queryStatus(result *models.QueryResult) int {
	if result.Success {
		return http.StatusOK
	}
	return http.StatusUnprocessableEntity
}

func (s *Server) handleQueryBatch(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	var envelope struct {
		Queries json.RawMessage `json:"queries"`
	}
	if !DecodeJSON(w, r, &envelope) {
		return
	}
	var bodies []queryBody
	if len(envelope.Queries) == 0 {
		WriteError(w, http.StatusBadRequest, "queries is required")
		return
	}
	if err := UnmarshalArrayParam(envelope.Queries, &bodies); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid queries: "+err.Error())
		return
	}
	if len(bodies) == 0 {
		WriteError(w, http.StatusBadRequest, "queries is required")
		return
	}
	if len(bodies) > maxBatchQueries {
		WriteError(w, http.StatusBadRequest, "too many queries (max "+strconv.Itoa(maxBatchQueries)+")")
		return
	}

	reqs := make([]models.QueryRequest, len(bodies))
	for i, b := range bodies {
		req, err := b.toRequest()
		if err != nil {
			WriteError(w, http.StatusBadRequest, "queries["+strconv.Itoa(i)+"]: "+err.Error())
			return
		}
		reqs[i] = req
	}

	results := s.app.Query.QueryBatch(r.Context(), reqs)
	WriteJSON(w, http.StatusOK, map[string]interface{}{"results": results})
}

// --- Cache ---

func (s *Server) handleCache(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodDelete) {
		return
	}
	if s.app.Cache == nil {
		WriteError(w, http.StatusServiceUnavailable, "record cache is closed")
		return
	}

	if r.Method == http.MethodDelete {
		n, err := s.app.PurgeCache(r.Context())
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.logger.Info().Int("entries", n).Str("caller", common.ResolveCaller(r.Context())).Msg("Record cache purged via API")
		WriteJSON(w, http.StatusOK, map[string]int{"purged": n})
		return
	}

	stats, err := s.app.Cache.Stats(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, stats)
}

// --- helpers ---

func parseMarketParam(w http.ResponseWriter, raw string) (models.Market, bool) {
	if strings.TrimSpace(raw) == "" {
		WriteError(w, http.StatusBadRequest, "market is required")
		return "", false
	}
	market, err := models.ParseMarket(raw)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	return market, true
}

func nonNilFields(defs []models.FieldDefinition) []models.FieldDefinition {
	if defs == nil {
		return []models.FieldDefinition{}
	}
	return defs
}
