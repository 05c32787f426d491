package query

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bobmcallan/finsight/internal/common"
	"github.com/bobmcallan/finsight/internal/fields"
	"github.com/bobmcallan/finsight/internal/interfaces"
	"github.com/bobmcallan/finsight/internal/models"
	"github.com/bobmcallan/finsight/internal/services/resolver"
	"github.com/bobmcallan/finsight/internal/symbols"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockAdapter serves canned records and records the calls it receives.
type mockAdapter struct {
	mu      sync.Mutex
	records map[string][]models.FinancialRecord // "CN:600519" -> records
	err     error
	delay   time.Duration
	panics  bool
	calls   []string
	params  []interfaces.FetchParams
}

func (m *mockAdapter) Fetch(ctx context.Context, market models.Market, symbol string, opts ...interfaces.FetchOption) ([]models.FinancialRecord, error) {
	m.mu.Lock()
	m.calls = append(m.calls, string(market)+":"+symbol)
	m.params = append(m.params, interfaces.ApplyFetchOptions(opts))
	m.mu.Unlock()

	if m.panics {
		panic("adapter exploded")
	}
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	recs, ok := m.records[string(market)+":"+symbol]
	if !ok {
		return nil, fmt.Errorf("no rows for %s: %w", symbol, interfaces.ErrDataUnavailable)
	}
	return recs, nil
}

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func cnRecord(d string, profit, revenue float64) models.FinancialRecord {
	rd := date(d)
	return models.FinancialRecord{
		Symbol:     "600519",
		Market:     models.MarketMainland,
		ReportDate: rd,
		PeriodType: models.InferPeriodType(rd),
		RawFields: map[string]interface{}{
			"报告期":   d,
			"净利润":   profit,
			"营业总收入": revenue,
			"销售毛利率": 91.5,
		},
	}
}

func newFixture(t *testing.T) (*Service, *mockAdapter) {
	t.Helper()
	store := fields.NewStore(common.NewSilentLogger())
	require.NoError(t, store.Load(fields.StaticSource{Label: "test", Fields: fields.MarketFields{
		models.MarketMainland: {
			{FieldID: "NET_PROFIT", DisplayName: "净利润", Priority: 2, NativeNames: []string{"净利润"}, Aliases: []string{"net profit"}},
			{FieldID: "TOTAL_REVENUE", DisplayName: "营业总收入", Priority: 1, NativeNames: []string{"营业总收入"}, Aliases: []string{"revenue"}},
			{FieldID: "GROSS_MARGIN", DisplayName: "销售毛利率", Priority: 3, NativeNames: []string{"销售毛利率"}, Aliases: []string{"gross margin"}},
			{FieldID: "ROE", DisplayName: "净资产收益率", Priority: 4, NativeNames: []string{"净资产收益率"}},
		},
		models.MarketUS: {
			{FieldID: "BASIC_EPS", DisplayName: "Basic EPS", Priority: 1, NativeNames: []string{"BASIC_EPS"}, Aliases: []string{"eps"}},
		},
	}}))

	adapter := &mockAdapter{records: map[string][]models.FinancialRecord{
		"CN:600519": {
			cnRecord("2023-06-30", 359.8, 709.9),
			cnRecord("2024-12-31", 862.3, 1741.4),
			cnRecord("2023-12-31", 747.3, 1505.6),
			cnRecord("2024-03-31", 240.7, 465.0),
		},
		"US:BRK_A": {{
			Symbol: "BRK_A", Market: models.MarketUS, ReportDate: date("2024-12-31"), PeriodType: models.PeriodAnnual,
			RawFields: map[string]interface{}{"BASIC_EPS": 41.3, "REPORT_DATE": "2024-12-31"},
		}},
	}}

	id := symbols.NewIdentifier()
	res := resolver.NewService(store, id, true, nil)
	return NewService(adapter, res, id, common.NewSilentLogger(), WithTimeout(time.Second), WithConcurrency(2)), adapter
}

func TestQuery_AllRecordsSortedNewestFirst(t *testing.T) {
	svc, _ := newFixture(t)
	res := svc.Query(context.Background(), models.QueryRequest{Symbol: "600519"})

	require.True(t, res.Success, res.Message)
	assert.Equal(t, models.MarketMainland, res.Market)
	assert.Equal(t, "600519", res.Symbol)
	require.Equal(t, 4, res.TotalRecords)
	assert.Equal(t, date("2024-12-31"), res.Records[0].ReportDate)
	assert.Equal(t, date("2023-06-30"), res.Records[3].ReportDate)
	assert.Len(t, res.Records[0].RawFields, 4)
	assert.Nil(t, res.Resolutions)
}

func TestQuery_ProjectsResolvedFieldsWithMetadata(t *testing.T) {
	svc, _ := newFixture(t)
	res := svc.Query(context.Background(), models.QueryRequest{
		Symbol: "SH600519",
		Fields: []string{"净利润", "revenue"},
	})

	require.True(t, res.Success, res.Message)
	require.NotEmpty(t, res.Records)
	for _, r := range res.Records {
		assert.Len(t, r.RawFields, 2)
		assert.Contains(t, r.RawFields, "净利润")
		assert.Contains(t, r.RawFields, "营业总收入")
		assert.Equal(t, models.StrategyDirect, r.Metadata["净利润"].Strategy)
		assert.Equal(t, models.StrategyKeyword, r.Metadata["营业总收入"].Strategy)
		assert.Equal(t, "TOTAL_REVENUE", r.Metadata["营业总收入"].FieldID)
		assert.Equal(t, 1.0, r.Metadata["营业总收入"].Confidence)
	}
	assert.Empty(t, res.Message)
	assert.Len(t, res.Resolutions, 2)
}

func TestQuery_PartialResolution(t *testing.T) {
	svc, _ := newFixture(t)
	res := svc.Query(context.Background(), models.QueryRequest{
		Symbol: "600519",
		Fields: []string{"net profit", "xyzzy", "NET PROFIT"},
	})

	require.True(t, res.Success)
	assert.Equal(t, "resolved 1 of 2 requested fields", res.Message)
	require.Len(t, res.Suggestions, 1)
	assert.True(t, strings.HasPrefix(res.Suggestions[0], "未找到匹配字段: 'xyzzy'"))
	assert.Len(t, res.Records[0].RawFields, 1)
}

func TestQuery_NothingResolves(t *testing.T) {
	svc, _ := newFixture(t)
	res := svc.Query(context.Background(), models.QueryRequest{Symbol: "600519", Fields: []string{"xyzzy"}})

	assert.False(t, res.Success)
	assert.Empty(t, res.Records)
	assert.NotNil(t, res.Records)
	assert.Contains(t, res.Message, "none of the requested fields")
	assert.NotEmpty(t, res.Suggestions)
}

func TestQuery_FieldMissingFromDataIsNotDangling(t *testing.T) {
	svc, _ := newFixture(t)
	res := svc.Query(context.Background(), models.QueryRequest{Symbol: "600519", Fields: []string{"ROE"}})

	assert.False(t, res.Success)
	require.Len(t, res.Resolutions, 1)
	assert.False(t, res.Resolutions[0].Resolved)
}

func TestQuery_DateRangeInclusive(t *testing.T) {
	svc, adapter := newFixture(t)
	start, end := date("2023-12-31"), date("2024-03-31")
	res := svc.Query(context.Background(), models.QueryRequest{Symbol: "600519", StartDate: &start, EndDate: &end})

	require.True(t, res.Success)
	require.Equal(t, 2, res.TotalRecords)
	assert.Equal(t, date("2024-03-31"), res.Records[0].ReportDate)
	assert.Equal(t, date("2023-12-31"), res.Records[1].ReportDate)

	require.Len(t, adapter.params, 1)
	assert.Equal(t, start, adapter.params[0].From)
	assert.Equal(t, end, adapter.params[0].To)
}

func TestQuery_PeriodFilter(t *testing.T) {
	svc, _ := newFixture(t)
	res := svc.Query(context.Background(), models.QueryRequest{Symbol: "600519", PeriodType: models.PeriodAnnual})

	require.True(t, res.Success)
	require.Equal(t, 2, res.TotalRecords)
	for _, r := range res.Records {
		assert.Equal(t, models.PeriodAnnual, r.PeriodType)
	}

	start := date("2030-01-01")
	res = svc.Query(context.Background(), models.QueryRequest{Symbol: "600519", StartDate: &start})
	assert.True(t, res.Success)
	assert.Equal(t, 0, res.TotalRecords)
	assert.Contains(t, res.Message, "no records match")
}

func TestQuery_ProviderFormatting(t *testing.T) {
	svc, adapter := newFixture(t)
	res := svc.Query(context.Background(), models.QueryRequest{Symbol: "brk-a", Fields: []string{"eps"}})

	require.True(t, res.Success, res.Message)
	assert.Equal(t, []string{"US:BRK_A"}, adapter.calls)
	assert.Equal(t, 41.3, res.Records[0].RawFields["BASIC_EPS"])
}

func TestQuery_Failures(t *testing.T) {
	t.Run("invalid symbol", func(t *testing.T) {
		svc, adapter := newFixture(t)
		res := svc.Query(context.Background(), models.QueryRequest{Symbol: "  "})
		assert.False(t, res.Success)
		assert.Contains(t, res.Message, "invalid symbol")
		assert.Empty(t, adapter.calls)
	})

	t.Run("data unavailable", func(t *testing.T) {
		svc, _ := newFixture(t)
		res := svc.Query(context.Background(), models.QueryRequest{Symbol: "000001"})
		assert.False(t, res.Success)
		assert.Contains(t, res.Message, "data unavailable for CN.000001")
		assert.Equal(t, models.MarketMainland, res.Market)
	})

	t.Run("adapter error", func(t *testing.T) {
		svc, adapter := newFixture(t)
		adapter.err = fmt.Errorf("connection refused")
		res := svc.Query(context.Background(), models.QueryRequest{Symbol: "600519"})
		assert.False(t, res.Success)
		assert.Contains(t, res.Message, "connection refused")
	})

	t.Run("timeout", func(t *testing.T) {
		svc, adapter := newFixture(t)
		svc.timeout = 20 * time.Millisecond
		adapter.delay = time.Second
		start := time.Now()
		res := svc.Query(context.Background(), models.QueryRequest{Symbol: "600519"})
		assert.False(t, res.Success)
		assert.Contains(t, res.Message, "timed out")
		assert.Less(t, time.Since(start), 500*time.Millisecond)
	})

	t.Run("panic", func(t *testing.T) {
		svc, adapter := newFixture(t)
		adapter.panics = true
		res := svc.Query(context.Background(), models.QueryRequest{Symbol: "600519"})
		assert.False(t, res.Success)
		assert.Contains(t, res.Message, "internal error")
	})

	t.Run("empty data", func(t *testing.T) {
		svc, adapter := newFixture(t)
		adapter.records["HK:00700"] = nil
		res := svc.Query(context.Background(), models.QueryRequest{Symbol: "700"})
		assert.False(t, res.Success)
		assert.Contains(t, res.Message, "no financial data available for HK.00700")
	})
}

func TestQuery_DoesNotMutateAdapterRecords(t *testing.T) {
	svc, adapter := newFixture(t)
	original := adapter.records["CN:600519"][0].ReportDate

	svc.Query(context.Background(), models.QueryRequest{Symbol: "600519", Fields: []string{"净利润"}})
	assert.Equal(t, original, adapter.records["CN:600519"][0].ReportDate)
	assert.Len(t, adapter.records["CN:600519"][0].RawFields, 4)
}

func TestQueryBatch_PreservesInputOrder(t *testing.T) {
	svc, _ := newFixture(t)
	reqs := []models.QueryRequest{
		{Symbol: "600519", Fields: []string{"净利润"}},
		{Symbol: "", Fields: []string{"x"}},
		{Symbol: "BRK-A"},
		{Symbol: "000001"},
	}
	results := svc.QueryBatch(context.Background(), reqs)

	require.Len(t, results, 4)
	assert.True(t, results[0].Success)
	assert.Equal(t, "600519", results[0].Symbol)
	assert.False(t, results[1].Success)
	assert.True(t, results[2].Success)
	assert.Equal(t, "BRK_A", results[2].Symbol)
	assert.False(t, results[3].Success)
}
