package interfaces

import (
	"context"

	"github.com/bobmcallan/finsight/internal/models"
)

// ResolveOptions controls a resolver call.
type ResolveOptions struct {
	// AvailableFields is the native field set of the symbol's current records.
	// Empty means no data is known and resolution is purely structural.
	AvailableFields []string
	// DisableFuzzy demotes fuzzy matches to suggestions.
	DisableFuzzy bool
}

// FieldResolver maps user-supplied field terms onto native field names.
type FieldResolver interface {
	// Resolve returns resolved native names (request order) and human-readable suggestions
	Resolve(symbol string, terms []string, opts ResolveOptions) ([]string, []string)
	// ResolveAsync is observably equivalent to Resolve
	ResolveAsync(ctx context.Context, symbol string, terms []string, opts ResolveOptions) ([]string, []string, error)
	// ResolveDetailed returns one ResolutionResult per term
	ResolveDetailed(symbol string, terms []string, opts ResolveOptions) []models.ResolutionResult
	// ResolveDetailedAsync resolves terms concurrently; results keep request order
	ResolveDetailedAsync(ctx context.Context, symbol string, terms []string, opts ResolveOptions) ([]models.ResolutionResult, error)
}

// FieldCatalog exposes the merged field configuration.
type FieldCatalog interface {
	MarketFields(market models.Market) []models.FieldDefinition
	Markets() []models.Market
	Summary() models.ConfigSummary
	Search(market models.Market, term string, limit int) []models.Candidate
	Reload() error
}

// QueryService answers "get data for this symbol filtered to these fields".
type QueryService interface {
	Query(ctx context.Context, req models.QueryRequest) *models.QueryResult
	QueryBatch(ctx context.Context, reqs []models.QueryRequest) []*models.QueryResult
}
