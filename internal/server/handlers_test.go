package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/finsight/internal/app"
	"github.com/bobmcallan/finsight/internal/common"
	"github.com/bobmcallan/finsight/internal/interfaces"
	"github.com/bobmcallan/finsight/internal/models"
)

type stubProvider struct {
	records map[string][]models.FinancialRecord
}

func (p *stubProvider) Fetch(_ context.Context, market models.Market, symbol string, _ ...interfaces.FetchOption) ([]models.FinancialRecord, error) {
	recs, ok := p.records[string(market)+"."+symbol]
	if !ok {
		return nil, interfaces.ErrDataUnavailable
	}
	return recs, nil
}

func record(market models.Market, symbol, date string, fields map[string]interface{}) models.FinancialRecord {
	d, _ := time.Parse(models.DateLayout, date)
	return models.FinancialRecord{
		Symbol:     symbol,
		Market:     market,
		ReportDate: d,
		PeriodType: models.InferPeriodType(d),
		RawFields:  fields,
	}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := common.NewDefaultConfig()
	cfg.Cache.Backend = "file"
	cfg.Cache.Path = filepath.Join(t.TempDir(), "cache")

	provider := &stubProvider{records: map[string][]models.FinancialRecord{
		"CN.600519": {
			record(models.MarketMainland, "600519", "2024-12-31", map[string]interface{}{"净利润": 8.623e10, "营业总收入": 1.741e11}),
			record(models.MarketMainland, "600519", "2024-06-30", map[string]interface{}{"净利润": 4.167e10, "营业总收入": 8.345e10}),
		},
		"US.AAPL": {
			record(models.MarketUS, "AAPL", "2024-09-28", map[string]interface{}{"PARENT_HOLDER_NETPROFIT": 1.4736e10}),
		},
	}}

	a, err := app.New(cfg, common.NewSilentLogger(), app.WithProvider(provider))
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return NewServer(a)
}

func doRequest(t *testing.T, srv *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(v), rec.Body.String())
}

func TestHealthAndVersion(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)

	rec = doRequest(t, srv, http.MethodGet, "/api/version", nil)
	var v map[string]string
	decode(t, rec, &v)
	assert.Equal(t, common.GetVersion(), v["version"])

	rec = doRequest(t, srv, http.MethodPost, "/api/health", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestSymbolIdentify(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/symbols/identify?symbol=700.HK", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp identifyResponse
	decode(t, rec, &resp)
	assert.Equal(t, models.MarketHongKong, resp.Market)
	assert.Equal(t, "00700", resp.ProviderSymbol)

	rec = doRequest(t, srv, http.MethodGet, "/api/symbols/identify?symbol=", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var errResp ErrorResponse
	decode(t, rec, &errResp)
	assert.Equal(t, "invalid_symbol", errResp.Code)
}

func TestFieldList(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/fields?market=CN", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var one struct {
		Market models.Market            `json:"market"`
		Fields []models.FieldDefinition `json:"fields"`
	}
	decode(t, rec, &one)
	assert.Equal(t, models.MarketMainland, one.Market)
	assert.NotEmpty(t, one.Fields)

	rec = doRequest(t, srv, http.MethodGet, "/api/fields", nil)
	var all struct {
		Markets map[models.Market][]models.FieldDefinition `json:"markets"`
	}
	decode(t, rec, &all)
	assert.Len(t, all.Markets, 3)

	rec = doRequest(t, srv, http.MethodGet, "/api/fields?market=JP", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFieldSummary(t *testing.T) {
	srv := newTestServer(t)
	rec := doRequest(t, srv, http.MethodGet, "/api/fields/summary", nil)
	var s models.ConfigSummary
	decode(t, rec, &s)
	assert.Equal(t, 2, s.SourceCount)
	assert.Equal(t, 3, s.MarketCount)
	assert.Equal(t, s.TotalFieldCount, s.PerMarketFieldCount[models.MarketMainland]+s.PerMarketFieldCount[models.MarketHongKong]+s.PerMarketFieldCount[models.MarketUS])
}

func TestFieldSearch(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/fields/search?market=CN&q=%E5%87%80%E5%88%A9%E6%B6%A6&limit=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Candidates []struct {
			FieldID     string  `json:"field_id"`
			Score       float64 `json:"score"`
			DisplayName string  `json:"display_name"`
		} `json:"candidates"`
	}
	decode(t, rec, &resp)
	require.NotEmpty(t, resp.Candidates)
	assert.LessOrEqual(t, len(resp.Candidates), 2)
	assert.Equal(t, "NET_PROFIT", resp.Candidates[0].FieldID)
	assert.Equal(t, "净利润", resp.Candidates[0].DisplayName)
	assert.Equal(t, 1.0, resp.Candidates[0].Score)

	assert.Equal(t, http.StatusBadRequest, doRequest(t, srv, http.MethodGet, "/api/fields/search?market=CN", nil).Code)
	assert.Equal(t, http.StatusBadRequest, doRequest(t, srv, http.MethodGet, "/api/fields/search?market=CN&q=x&limit=-1", nil).Code)
}

func TestFieldResolve(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/fields/resolve", map[string]interface{}{
		"symbol":           "600519",
		"fields":           []string{"净利润", "总资产"},
		"available_fields": []string{"净利润", "营业总收入"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp resolveResponse
	decode(t, rec, &resp)

	assert.Equal(t, []string{"净利润"}, resp.Resolved)
	require.Len(t, resp.Results, 2)
	assert.True(t, resp.Results[0].Resolved)
	assert.False(t, resp.Results[1].Resolved)
	require.Len(t, resp.Suggestions, 1)
	assert.True(t, strings.HasPrefix(resp.Suggestions[0], "未找到匹配字段: '总资产'"))

	assert.Equal(t, http.StatusBadRequest, doRequest(t, srv, http.MethodPost, "/api/fields/resolve", map[string]interface{}{"symbol": "600519"}).Code)
	assert.Equal(t, http.StatusMethodNotAllowed, doRequest(t, srv, http.MethodGet, "/api/fields/resolve", nil).Code)
}

func TestFieldReload(t *testing.T) {
	srv := newTestServer(t)
	rec := doRequest(t, srv, http.MethodPost, "/api/fields/reload", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Summary  models.ConfigSummary `json:"summary"`
		Warnings string               `json:"warnings"`
	}
	decode(t, rec, &resp)
	assert.Equal(t, 2, resp.Summary.SourceCount)
	assert.Empty(t, resp.Warnings)
}

func TestStockFinancials(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/stocks/SH600519/financials?fields=net_profit&period=ANNUAL", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var result models.QueryResult
	decode(t, rec, &result)

	assert.True(t, result.Success)
	assert.Equal(t, models.MarketMainland, result.Market)
	require.Len(t, result.Records, 1)
	assert.Equal(t, map[string]interface{}{"净利润": 8.623e10}, result.Records[0].RawFields)
	assert.Equal(t, "NET_PROFIT", result.Records[0].Metadata["净利润"].FieldID)

	assert.Equal(t, http.StatusNotFound, doRequest(t, srv, http.MethodGet, "/api/stocks/600519/quote", nil).Code)
	assert.Equal(t, http.StatusBadRequest, doRequest(t, srv, http.MethodGet, "/api/stocks/600519/financials?start=yesterday", nil).Code)
	assert.Equal(t, http.StatusBadRequest, doRequest(t, srv, http.MethodGet, "/api/stocks/600519/financials?allow_fuzzy=maybe", nil).Code)
}

func TestQuery(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/query", map[string]interface{}{
		"symbol":     "600519",
		"start_date": "2024-01-01",
		"end_date":   "2024-12-31",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var result models.QueryResult
	decode(t, rec, &result)
	assert.Equal(t, 2, result.TotalRecords)
	assert.True(t, result.Records[0].ReportDate.After(result.Records[1].ReportDate))

	rec = doRequest(t, srv, http.MethodPost, "/api/query", map[string]interface{}{"symbol": "MSFT"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	decode(t, rec, &result)
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Message)

	assert.Equal(t, http.StatusBadRequest, doRequest(t, srv, http.MethodPost, "/api/query", "{bad").Code)
}

func TestQueryBatch(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/query/batch", map[string]interface{}{
		"queries": []map[string]interface{}{
			{"symbol": "600519", "fields": []string{"净利润"}},
			{"symbol": "AAPL", "fields": []string{"net income"}},
			{"symbol": "ZZZZ"},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		Results []models.QueryResult `json:"results"`
	}
	decode(t, rec, &resp)
	require.Len(t, resp.Results, 3)
	assert.True(t, resp.Results[0].Success)
	assert.Equal(t, "600519", resp.Results[0].Symbol)
	assert.True(t, resp.Results[1].Success)
	assert.Equal(t, "AAPL", resp.Results[1].Symbol)
	assert.False(t, resp.Results[2].Success)

	rec = doRequest(t, srv, http.MethodPost, "/api/query/batch", `{"queries":["{\"symbol\":\"600519\"}"]}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, http.StatusBadRequest, doRequest(t, srv, http.MethodPost, "/api/query/batch", `{"queries":[]}`).Code)
	assert.Equal(t, http.StatusBadRequest, doRequest(t, srv, http.MethodPost, "/api/query/batch", `{}`).Code)

	many := make([]map[string]string, maxBatchQueries+1)
	for i := range many {
		many[i] = map[string]string{"symbol": "600519"}
	}
	assert.Equal(t, http.StatusBadRequest, doRequest(t, srv, http.MethodPost, "/api/query/batch", map[string]interface{}{"queries": many}).Code)
}

func TestCacheStatsAndPurge(t *testing.T) {
	srv := newTestServer(t)

	doRequest(t, srv, http.MethodPost, "/api/query", map[string]interface{}{"symbol": "600519"})

	rec := doRequest(t, srv, http.MethodGet, "/api/cache", nil)
	var stats models.CacheStats
	decode(t, rec, &stats)
	assert.Equal(t, "file", stats.Backend)
	assert.Equal(t, 1, stats.Entries)

	rec = doRequest(t, srv, http.MethodDelete, "/api/cache", nil)
	var purged map[string]int
	decode(t, rec, &purged)
	assert.Equal(t, 1, purged["purged"])
}

func TestToolCatalog(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/mcp/tools", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var catalog []models.ToolDefinition
	decode(t, rec, &catalog)
	assert.Len(t, catalog, 7)
	for _, td := range catalog {
		assert.NotEmpty(t, td.Name)
		assert.NotEmpty(t, td.Description)
		assert.NotEmpty(t, td.Method)
		assert.True(t, strings.HasPrefix(td.Path, "/api/"), td.Path)
	}

	assert.Equal(t, http.StatusMethodNotAllowed, doRequest(t, srv, http.MethodPost, "/api/mcp/tools", nil).Code)
}

func TestAuthEnabledProtectsAPI(t *testing.T) {
	cfg := common.NewDefaultConfig()
	cfg.Cache.Backend = "file"
	cfg.Cache.Path = filepath.Join(t.TempDir(), "cache")
	cfg.Auth.JWTSecret = "s3cret"

	a, err := app.New(cfg, common.NewSilentLogger(), app.WithProvider(&stubProvider{}))
	require.NoError(t, err)
	t.Cleanup(a.Close)
	srv := NewServer(a)

	assert.Equal(t, http.StatusOK, doRequest(t, srv, http.MethodGet, "/api/health", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, doRequest(t, srv, http.MethodGet, "/api/fields/summary", nil).Code)

	token, err := common.SignToken("ops", time.Hour, &cfg.Auth)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/api/fields/summary", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
