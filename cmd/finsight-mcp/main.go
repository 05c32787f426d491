// Command finsight-mcp serves the finsight MCP tools over stdio for desktop
// MCP clients. stdout carries JSON-RPC, so logs must go to stderr or a file.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/finsight/internal/app"
)

func main() {
	_ = godotenv.Load()

	a, err := app.NewApp(os.Getenv("FINSIGHT_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize app: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	a.Logger.Info().Str("fields", a.FieldSummaryLine()).Msg("Serving MCP over stdio")

	if err := server.ServeStdio(a.MCPServer); err != nil {
		a.Logger.Error().Err(err).Msg("MCP stdio server stopped")
		a.Close()
		os.Exit(1)
	}
}
