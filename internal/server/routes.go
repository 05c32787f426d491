package server

import (
	"net/http"

	mcpserver "github.com/mark3labs/mcp-go/server"
)

// registerRoutes sets up all REST API routes on the mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	// System
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/version", s.handleVersion)
	mux.HandleFunc("/api/mcp/tools", s.handleToolCatalog)

	// Symbols
	mux.HandleFunc("/api/symbols/identify", s.handleSymbolIdentify)

	// Field configuration
	mux.HandleFunc("/api/fields/summary", s.handleFieldSummary)
	mux.HandleFunc("/api/fields/search", s.handleFieldSearch)
	mux.HandleFunc("/api/fields/resolve", s.handleFieldResolve)
	mux.HandleFunc("/api/fields/reload", s.handleFieldReload)
	mux.HandleFunc("/api/fields", s.handleFieldList)

	// Financial data
	mux.HandleFunc("/api/stocks/", s.routeStocks)
	mux.HandleFunc("/api/query/batch", s.handleQueryBatch)
	mux.HandleFunc("/api/query", s.handleQuery)

	// Cache
	mux.HandleFunc("/api/cache", s.handleCache)

	// MCP over Streamable HTTP
	mux.Handle("/mcp", mcpserver.NewStreamableHTTPServer(s.app.MCPServer,
		mcpserver.WithStateLess(true),
	))
}

// routeStocks dispatches /api/stocks/{symbol}/* to the appropriate handler.
func (s *Server) routeStocks(w http.ResponseWriter, r *http.Request) {
	symbol := PathParam(r, "/api/stocks/", "/")
	if symbol == "" {
		WriteError(w, http.StatusBadRequest, "symbol is required in path")
		return
	}

	switch r.URL.Path {
	case "/api/stocks/" + symbol + "/financials":
		s.handleStockFinancials(w, r, symbol)
	default:
		WriteError(w, http.StatusNotFound, "Not found")
	}
}

func (s *Server) handleToolCatalog(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, buildToolCatalog())
}
