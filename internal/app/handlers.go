package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/finsight/internal/common"
	"github.com/bobmcallan/finsight/internal/interfaces"
	"github.com/bobmcallan/finsight/internal/models"
	"github.com/bobmcallan/finsight/internal/symbols"
)

// handleGetVersion implements the get_version tool
func handleGetVersion() server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result := fmt.Sprintf("finsight MCP Server\nVersion: %s\nBuild: %s\nCommit: %s\nStatus: OK",
			common.GetVersion(), common.GetBuild(), common.GetGitCommit())
		return textResult(result), nil
	}
}

// handleGetFinancialData implements the get_financial_data tool
func handleGetFinancialData(queryService interfaces.QueryService, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		symbol, err := request.RequireString("symbol")
		if err != nil || strings.TrimSpace(symbol) == "" {
			return errorResult("Error: symbol parameter is required"), nil
		}

		req := models.QueryRequest{
			Symbol: symbol,
			Fields: request.GetStringSlice("fields", nil),
		}
		if req.StartDate, err = models.ParseQueryDate(request.GetString("start_date", "")); err != nil {
			return errorResult("Error: start_date: " + err.Error()), nil
		}
		if req.EndDate, err = models.ParseQueryDate(request.GetString("end_date", "")); err != nil {
			return errorResult("Error: end_date: " + err.Error()), nil
		}
		if p := request.GetString("period_type", ""); p != "" {
			if req.PeriodType, err = models.ParsePeriodType(p); err != nil {
				return errorResult("Error: " + err.Error()), nil
			}
		}
		req.AllowFuzzy = optionalBool(request, "allow_fuzzy")

		result := queryService.Query(ctx, req)
		if !result.Success {
			logger.Warn().Str("symbol", symbol).Str("message", result.Message).Msg("Financial data query failed")
			return errorResult(formatQueryResult(result)), nil
		}
		return textResult(formatQueryResult(result)), nil
	}
}

// handleResolveFields implements the resolve_fields tool
func handleResolveFields(fieldResolver interfaces.FieldResolver, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		symbol, err := request.RequireString("symbol")
		if err != nil || strings.TrimSpace(symbol) == "" {
			return errorResult("Error: symbol parameter is required"), nil
		}
		terms := request.GetStringSlice("fields", nil)
		if len(terms) == 0 {
			return errorResult("Error: fields parameter is required"), nil
		}

		opts := interfaces.ResolveOptions{
			AvailableFields: request.GetStringSlice("available_fields", nil),
		}
		if allow := optionalBool(request, "allow_fuzzy"); allow != nil && !*allow {
			opts.DisableFuzzy = true
		}

		results, err := fieldResolver.ResolveDetailedAsync(ctx, symbol, terms, opts)
		if err != nil {
			logger.Warn().Err(err).Str("symbol", symbol).Msg("Field resolution interrupted")
			return errorResult(fmt.Sprintf("Resolve error: %v", err)), nil
		}
		return textResult(formatResolutions(symbol, results)), nil
	}
}

// handleSearchFields implements the search_fields tool
func handleSearchFields(catalog interfaces.FieldCatalog) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		market, errRes := requireMarket(request)
		if errRes != nil {
			return errRes, nil
		}
		term, err := request.RequireString("query")
		if err != nil || strings.TrimSpace(term) == "" {
			return errorResult("Error: query parameter is required"), nil
		}
		limit := request.GetInt("limit", 10)
		if limit <= 0 {
			limit = 10
		}
		if limit > 50 {
			limit = 50
		}

		candidates := catalog.Search(market, term, limit)
		return textResult(formatCandidates(market, term, candidates)), nil
	}
}

// handleListFields implements the list_fields tool
func handleListFields(catalog interfaces.FieldCatalog) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		market, errRes := requireMarket(request)
		if errRes != nil {
			return errRes, nil
		}
		return textResult(formatFieldList(market, catalog.MarketFields(market))), nil
	}
}

// handleIdentifySymbol implements the identify_symbol tool
func handleIdentifySymbol(identifier *symbols.Identifier) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		raw, err := request.RequireString("symbol")
		if err != nil {
			return errorResult("Error: symbol parameter is required"), nil
		}
		market, symbol, err := identifier.Identify(raw)
		if err != nil {
			return errorResult("Error: " + err.Error()), nil
		}
		return textResult(formatIdentification(raw, market, symbol)), nil
	}
}

// handleFieldSummary implements the field_summary tool
func handleFieldSummary(catalog interfaces.FieldCatalog) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return textResult(formatSummary(catalog.Summary())), nil
	}
}

// Helper functions

func requireMarket(request mcp.CallToolRequest) (models.Market, *mcp.CallToolResult) {
	raw, err := request.RequireString("market")
	if err != nil || strings.TrimSpace(raw) == "" {
		return "", errorResult("Error: market parameter is required")
	}
	market, err := models.ParseMarket(raw)
	if err != nil {
		return "", errorResult("Error: " + err.Error())
	}
	return market, nil
}

// optionalBool returns nil when the argument is absent so the server default applies.
func optionalBool(request mcp.CallToolRequest, key string) *bool {
	v, ok := request.GetArguments()[key].(bool)
	if !ok {
		return nil
	}
	return &v
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(text),
		},
	}
}

func errorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(message),
		},
		IsError: true,
	}
}
