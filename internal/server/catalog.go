package server

import "github.com/bobmcallan/finsight/internal/models"

// buildToolCatalog returns the MCP tool catalog describing every tool and
// its HTTP mapping. Used by GET /api/mcp/tools for dynamic tool registration.
func buildToolCatalog() []models.ToolDefinition {
	symbolQuery := models.ParamDefinition{
		Name:        "symbol",
		Type:        "string",
		Description: "Stock symbol, e.g. '600519', 'SH600519', '00700', '700.HK', 'AAPL'",
		Required:    true,
		In:          "query",
	}
	marketQuery := models.ParamDefinition{
		Name:        "market",
		Type:        "string",
		Description: "Market: CN, HK or US",
		Required:    true,
		In:          "query",
	}

	return []models.ToolDefinition{
		// --- System ---
		{
			Name:        "get_version",
			Description: "Get the finsight server version and status. Use this to verify connectivity.",
			Method:      "GET",
			Path:        "/api/version",
		},

		// --- Symbols ---
		{
			Name:        "identify_symbol",
			Description: "Identify a stock symbol's market and show its normalized and provider formats.",
			Method:      "GET",
			Path:        "/api/symbols/identify",
			Params:      []models.ParamDefinition{symbolQuery},
		},

		// --- Fields ---
		{
			Name:        "list_fields",
			Description: "List every configured field for a market.",
			Method:      "GET",
			Path:        "/api/fields",
			Params:      []models.ParamDefinition{marketQuery},
		},
		{
			Name:        "search_fields",
			Description: "Search a market's configured fields by keyword; returns ranked candidates.",
			Method:      "GET",
			Path:        "/api/fields/search",
			Params: []models.ParamDefinition{
				marketQuery,
				{Name: "q", Type: "string", Description: "Search term", Required: true, In: "query"},
				{Name: "limit", Type: "number", Description: "Maximum candidates (default: 10)", In: "query"},
			},
		},
		{
			Name:        "field_summary",
			Description: "Summarise the loaded field configuration.",
			Method:      "GET",
			Path:        "/api/fields/summary",
		},
		{
			Name:        "resolve_fields",
			Description: "Resolve user field names to native field names for a symbol's market.",
			Method:      "POST",
			Path:        "/api/fields/resolve",
			Params: []models.ParamDefinition{
				{Name: "symbol", Type: "string", Description: "Stock symbol used to infer the market", Required: true, In: "body"},
				{Name: "fields", Type: "array", Description: "Field terms to resolve", Required: true, In: "body"},
				{Name: "available_fields", Type: "array", Description: "Native field names present in the data", In: "body"},
				{Name: "allow_fuzzy", Type: "boolean", Description: "Accept low-confidence fuzzy matches", In: "body"},
			},
		},

		// --- Financial data ---
		{
			Name:        "get_financial_data",
			Description: "Get financial statement records for a CN, HK or US stock, projected to requested fields and filtered by date and period.",
			Method:      "POST",
			Path:        "/api/query",
			Params: []models.ParamDefinition{
				{Name: "symbol", Type: "string", Description: "Stock symbol", Required: true, In: "body"},
				{Name: "fields", Type: "array", Description: "Fields to return (default: all)", In: "body"},
				{Name: "start_date", Type: "string", Description: "Earliest report date, YYYY-MM-DD", In: "body"},
				{Name: "end_date", Type: "string", Description: "Latest report date, YYYY-MM-DD", In: "body"},
				{Name: "period_type", Type: "string", Description: "ANNUAL, SEMI_ANNUAL or QUARTERLY", In: "body"},
				{Name: "allow_fuzzy", Type: "boolean", Description: "Accept low-confidence fuzzy matches", In: "body"},
			},
		},
	}
}
