// Package interfaces defines service contracts for finsight
package interfaces

import (
	"context"
	"errors"
	"time"

	"github.com/bobmcallan/finsight/internal/models"
)

// ErrDataUnavailable is returned (possibly wrapped) by data adapters when the
// provider cannot supply records for a symbol.
var ErrDataUnavailable = errors.New("data unavailable")

// DataAdapter fetches raw financial records for a provider-formatted symbol.
type DataAdapter interface {
	// Fetch retrieves all reporting periods for the symbol, newest first
	Fetch(ctx context.Context, market models.Market, symbol string, opts ...FetchOption) ([]models.FinancialRecord, error)
}

// FetchOption configures a fetch request
type FetchOption func(*FetchParams)

// FetchParams holds fetch parameters. Adapters may ignore the range when the
// provider only serves full history; the cache layer uses it for freshness.
type FetchParams struct {
	From         time.Time
	To           time.Time
	ForceRefresh bool
}

// WithDateRange limits interest to reports between from and to (inclusive).
func WithDateRange(from, to time.Time) FetchOption {
	return func(p *FetchParams) {
		p.From = from
		p.To = to
	}
}

// WithForceRefresh bypasses any cache in front of the adapter.
func WithForceRefresh() FetchOption {
	return func(p *FetchParams) {
		p.ForceRefresh = true
	}
}

// ApplyFetchOptions folds options into FetchParams.
func ApplyFetchOptions(opts []FetchOption) FetchParams {
	var p FetchParams
	for _, opt := range opts {
		opt(&p)
	}
	return p
}
