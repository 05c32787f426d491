package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/finsight/internal/clients/aktools"
	"github.com/bobmcallan/finsight/internal/common"
	"github.com/bobmcallan/finsight/internal/fields"
	"github.com/bobmcallan/finsight/internal/interfaces"
	"github.com/bobmcallan/finsight/internal/models"
	"github.com/bobmcallan/finsight/internal/services/query"
	"github.com/bobmcallan/finsight/internal/services/resolver"
	"github.com/bobmcallan/finsight/internal/storage/cache"
	"github.com/bobmcallan/finsight/internal/symbols"
)

// App holds all initialized services, the record cache and the MCP server.
// It is the shared core used by cmd/finsight-server, cmd/finsight-mcp and cmd/finsight.
type App struct {
	Config      *common.Config
	Logger      *common.Logger
	Fields      *fields.Store
	Cache       interfaces.RecordCache
	Adapter     interfaces.DataAdapter
	Identifier  *symbols.Identifier
	Resolver    *resolver.Service
	Query       *query.Service
	MCPServer   *server.MCPServer
	StartupTime time.Time
}

// Option configures New
type Option func(*options)

type options struct {
	provider interfaces.DataAdapter
	sources  []fields.Source
}

// WithProvider replaces the AKTools client as the upstream data adapter.
// The record cache still sits in front of it.
func WithProvider(adapter interfaces.DataAdapter) Option {
	return func(o *options) { o.provider = adapter }
}

// WithFieldSources loads extra field sources after the configured ones.
func WithFieldSources(sources ...fields.Source) Option {
	return func(o *options) { o.sources = append(o.sources, sources...) }
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// NewApp loads configuration, builds the logger and initializes the App.
// configPath may be empty, in which case the default resolution logic is used.
func NewApp(configPath string) (*App, error) {
	common.LoadVersionFromFile()

	config, err := common.LoadConfig(common.ResolveConfigPath(configPath))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Relative paths are anchored at the binary directory
	binDir := getBinaryDir()
	if config.Cache.Path != "" && !filepath.IsAbs(config.Cache.Path) {
		config.Cache.Path = filepath.Join(binDir, config.Cache.Path)
	}
	if config.Logging.FilePath != "" && !filepath.IsAbs(config.Logging.FilePath) {
		config.Logging.FilePath = filepath.Join(binDir, config.Logging.FilePath)
	}

	logger := common.NewLoggerFromConfig(config.Logging)
	return New(config, logger)
}

// New wires every component from an already loaded config.
func New(config *common.Config, logger *common.Logger, opts ...Option) (*App, error) {
	startupStart := time.Now()

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	var idOpts []symbols.Option
	if config.Fields.DefaultMarket != "" {
		m, err := models.ParseMarket(config.Fields.DefaultMarket)
		if err != nil {
			return nil, fmt.Errorf("invalid fields.default_market: %w", err)
		}
		idOpts = append(idOpts, symbols.WithDefaultMarket(m))
	}
	identifier := symbols.NewIdentifier(idOpts...)

	store := fields.NewStore(logger)
	loadFieldSources(store, config.Fields, o.sources, logger)

	recordCache, err := cache.NewRecordCache(logger, config.Cache)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize record cache: %w", err)
	}

	provider := o.provider
	if provider == nil {
		provider = aktools.NewClientFromConfig(config.Provider, logger)
	}
	adapter := cache.NewCachedAdapter(provider, recordCache, logger,
		cache.WithTTL(config.Cache.GetTTL()),
		cache.WithRefreshWindow(config.Cache.GetRefreshWindow()),
	)

	resolverService := resolver.NewService(store, identifier, config.Fields.AllowFuzzy, logger)
	queryService := query.NewService(adapter, resolverService, identifier, logger,
		query.WithTimeout(config.Query.GetTimeout()),
		query.WithConcurrency(config.Query.Concurrency),
	)

	mcpServer := server.NewMCPServer(
		"finsight",
		common.GetVersion(),
		server.WithToolCapabilities(true),
	)

	a := &App{
		Config:      config,
		Logger:      logger,
		Fields:      store,
		Cache:       recordCache,
		Adapter:     adapter,
		Identifier:  identifier,
		Resolver:    resolverService,
		Query:       queryService,
		MCPServer:   mcpServer,
		StartupTime: startupStart,
	}

	a.registerTools()

	logger.Info().Dur("startup", time.Since(startupStart)).Msg("App initialized")
	return a, nil
}

// loadFieldSources loads the embedded defaults (when enabled), then the
// configured files, then any extra sources. Failed sources are logged and skipped.
func loadFieldSources(store *fields.Store, cfg common.FieldsConfig, extra []fields.Source, logger *common.Logger) {
	var sources []fields.Source
	if cfg.IncludeDefaults {
		sources = append(sources, fields.DefaultSources()...)
	}
	sources = append(sources, fields.FileSources(cfg.Sources)...)
	sources = append(sources, extra...)

	if err := store.Load(sources...); err != nil {
		logger.Warn().Err(err).Msg("Some field configuration sources failed to load")
	}

	summary := store.Summary()
	logger.Info().
		Int("sources", summary.SourceCount).
		Int("fields", summary.TotalFieldCount).
		Int("markets", summary.MarketCount).
		Msg("Field configuration loaded")
}

// FieldSummaryLine renders the field summary for the startup banner.
func (a *App) FieldSummaryLine() string {
	s := a.Fields.Summary()
	return fmt.Sprintf("%d fields across %d markets from %d sources", s.TotalFieldCount, s.MarketCount, s.SourceCount)
}

// PurgeCache removes every cached provider response.
func (a *App) PurgeCache(ctx context.Context) (int, error) {
	if a.Cache == nil {
		return 0, nil
	}
	return a.Cache.Purge(ctx)
}

// Close releases all resources held by the App. Safe to call more than once.
func (a *App) Close() {
	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close record cache")
		}
		a.Cache = nil
	}
}

// registerTools registers all MCP tools on the App's MCPServer.
func (a *App) registerTools() {
	s := a.MCPServer
	logger := a.Logger

	s.AddTool(createGetVersionTool(), handleGetVersion())
	s.AddTool(createGetFinancialDataTool(), handleGetFinancialData(a.Query, logger))
	s.AddTool(createResolveFieldsTool(), handleResolveFields(a.Resolver, logger))
	s.AddTool(createSearchFieldsTool(), handleSearchFields(a.Fields))
	s.AddTool(createListFieldsTool(), handleListFields(a.Fields))
	s.AddTool(createIdentifySymbolTool(), handleIdentifySymbol(a.Identifier))
	s.AddTool(createFieldSummaryTool(), handleFieldSummary(a.Fields))
}
