package app

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/finsight/internal/common"
	"github.com/bobmcallan/finsight/internal/interfaces"
	"github.com/bobmcallan/finsight/internal/models"
)

// stubProvider serves canned records per symbol and counts fetches.
type stubProvider struct {
	mu      sync.Mutex
	records map[string][]models.FinancialRecord
	calls   int
}

func (p *stubProvider) Fetch(_ context.Context, market models.Market, symbol string, _ ...interfaces.FetchOption) ([]models.FinancialRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	recs, ok := p.records[string(market)+"."+symbol]
	if !ok {
		return nil, interfaces.ErrDataUnavailable
	}
	return recs, nil
}

func moutaiRecords() []models.FinancialRecord {
	mk := func(date string, period models.PeriodType, revenue, profit float64) models.FinancialRecord {
		d, _ := time.Parse(models.DateLayout, date)
		return models.FinancialRecord{
			Symbol:     "600519",
			Market:     models.MarketMainland,
			ReportDate: d,
			PeriodType: period,
			RawFields: map[string]interface{}{
				"报告期":   date,
				"营业总收入": revenue,
				"净利润":   profit,
			},
		}
	}
	return []models.FinancialRecord{
		mk("2024-12-31", models.PeriodAnnual, 1.741e11, 8.623e10),
		mk("2024-09-30", models.PeriodQuarterly, 1.231e11, 6.087e10),
		mk("2023-12-31", models.PeriodAnnual, 1.505e11, 7.473e10),
	}
}

// testHarness provides an in-process MCP client connected to a fully wired
// App whose provider is a stub.
type testHarness struct {
	t        *testing.T
	app      *App
	provider *stubProvider
	client   *client.Client
}

func testConfig(t *testing.T) *common.Config {
	t.Helper()
	cfg := common.NewDefaultConfig()
	cfg.Cache.Backend = "file"
	cfg.Cache.Path = filepath.Join(t.TempDir(), "cache")
	cfg.Logging.Level = "error"
	return cfg
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()

	provider := &stubProvider{records: map[string][]models.FinancialRecord{
		"CN.600519": moutaiRecords(),
	}}

	a, err := New(testConfig(t), common.NewSilentLogger(), WithProvider(provider))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(a.Close)

	c, err := newInProcessClient(t, a.MCPServer)
	if err != nil {
		t.Fatalf("Failed to create in-process client: %v", err)
	}
	t.Cleanup(func() { c.Close() })

	return &testHarness{t: t, app: a, provider: provider, client: c}
}

// callTool invokes an MCP tool by name with the given arguments.
func (h *testHarness) callTool(name string, args map[string]any) *mcp.CallToolResult {
	h.t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	result, err := h.client.CallTool(context.Background(), req)
	if err != nil {
		h.t.Fatalf("CallTool(%s) failed: %v", name, err)
	}
	return result
}

// text extracts the first text content block.
func (h *testHarness) text(result *mcp.CallToolResult) string {
	h.t.Helper()
	if len(result.Content) == 0 {
		h.t.Fatal("result has no content")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		h.t.Fatalf("Content[0] is %T, not TextContent", result.Content[0])
	}
	return tc.Text
}

// newInProcessClient creates an mcp-go in-process client connected to the given
// MCP server. Handles initialization handshake.
func newInProcessClient(t *testing.T, mcpServer *server.MCPServer) (*client.Client, error) {
	t.Helper()

	c, err := client.NewInProcessClient(mcpServer)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	if err := c.Start(ctx); err != nil {
		return nil, err
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{
		Name:    "test-client",
		Version: "1.0.0",
	}
	if _, err := c.Initialize(ctx, initReq); err != nil {
		c.Close()
		return nil, err
	}

	return c, nil
}
