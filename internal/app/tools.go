package app

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// createGetVersionTool returns the get_version tool definition
func createGetVersionTool() mcp.Tool {
	return mcp.NewTool("get_version",
		mcp.WithDescription("Get the finsight MCP server version and status. Use this to verify connectivity."),
	)
}

// createGetFinancialDataTool returns the get_financial_data tool definition
func createGetFinancialDataTool() mcp.Tool {
	return mcp.NewTool("get_financial_data",
		mcp.WithDescription("Get financial statement records for a CN, HK or US stock, optionally projected to requested fields and filtered by date range and reporting period. Field names may be canonical ids (e.g. 'net_profit'), display names, aliases or Chinese names (e.g. '净利润')."),
		mcp.WithString("symbol",
			mcp.Required(),
			mcp.Description("Stock symbol, e.g. '600519', 'SH600519', '00700', '700.HK', 'AAPL', 'US.AAPL'"),
		),
		mcp.WithArray("fields",
			mcp.WithStringItems(),
			mcp.Description("Fields to return. Omit for every field the provider supplies."),
		),
		mcp.WithString("start_date",
			mcp.Description("Earliest report date, YYYY-MM-DD (inclusive)"),
		),
		mcp.WithString("end_date",
			mcp.Description("Latest report date, YYYY-MM-DD (inclusive)"),
		),
		mcp.WithString("period_type",
			mcp.Description("Reporting period: ANNUAL, SEMI_ANNUAL or QUARTERLY"),
		),
		mcp.WithBoolean("allow_fuzzy",
			mcp.Description("Accept low-confidence fuzzy field matches (default: server setting)"),
		),
	)
}

// createResolveFieldsTool returns the resolve_fields tool definition
func createResolveFieldsTool() mcp.Tool {
	return mcp.NewTool("resolve_fields",
		mcp.WithDescription("Resolve user field names to the data provider's native field names for a symbol's market, with confidence, strategy and suggestions for unresolved terms."),
		mcp.WithString("symbol",
			mcp.Required(),
			mcp.Description("Stock symbol used to infer the market"),
		),
		mcp.WithArray("fields",
			mcp.WithStringItems(),
			mcp.Required(),
			mcp.Description("Field terms to resolve"),
		),
		mcp.WithArray("available_fields",
			mcp.WithStringItems(),
			mcp.Description("Native field names present in the data. Omit for structural resolution."),
		),
		mcp.WithBoolean("allow_fuzzy",
			mcp.Description("Accept low-confidence fuzzy matches (default: server setting)"),
		),
	)
}

// createSearchFieldsTool returns the search_fields tool definition
func createSearchFieldsTool() mcp.Tool {
	return mcp.NewTool("search_fields",
		mcp.WithDescription("Search a market's configured fields by keyword. Returns ranked candidates with similarity scores."),
		mcp.WithString("market",
			mcp.Required(),
			mcp.Description("Market: CN, HK or US"),
		),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search term, e.g. 'profit' or '收入'"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum candidates (default: 10, max: 50)"),
		),
	)
}

// createListFieldsTool returns the list_fields tool definition
func createListFieldsTool() mcp.Tool {
	return mcp.NewTool("list_fields",
		mcp.WithDescription("List every configured field for a market with display names, units and aliases."),
		mcp.WithString("market",
			mcp.Required(),
			mcp.Description("Market: CN, HK or US"),
		),
	)
}

// createIdentifySymbolTool returns the identify_symbol tool definition
func createIdentifySymbolTool() mcp.Tool {
	return mcp.NewTool("identify_symbol",
		mcp.WithDescription("Identify a stock symbol's market and show its normalized and provider formats."),
		mcp.WithString("symbol",
			mcp.Required(),
			mcp.Description("Stock symbol in any supported form"),
		),
	)
}

// createFieldSummaryTool returns the field_summary tool definition
func createFieldSummaryTool() mcp.Tool {
	return mcp.NewTool("field_summary",
		mcp.WithDescription("Summarise the loaded field configuration: sources and field counts per market."),
	)
}
