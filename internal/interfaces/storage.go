package interfaces

import (
	"context"
	"time"

	"github.com/bobmcallan/finsight/internal/models"
)

// CacheEntry is one cached provider response for a (market, symbol) pair.
type CacheEntry struct {
	Market       models.Market            `json:"market"`
	Symbol       string                   `json:"symbol"`
	Records      []models.FinancialRecord `json:"records"`
	FetchedAt    time.Time                `json:"fetched_at"`
	EarliestDate time.Time                `json:"earliest_date"`
	LatestDate   time.Time                `json:"latest_date"`
}

// Covers reports whether the entry's report dates reach the requested end
// date. A zero end date is always covered.
func (e *CacheEntry) Covers(to time.Time) bool {
	if to.IsZero() {
		return true
	}
	return !to.After(e.LatestDate)
}

// RecordCache stores provider responses keyed by market and symbol.
type RecordCache interface {
	// Get returns the cached entry, or (nil, nil) on a miss
	Get(ctx context.Context, market models.Market, symbol string) (*CacheEntry, error)
	Put(ctx context.Context, entry *CacheEntry) error
	Delete(ctx context.Context, market models.Market, symbol string) error
	// Purge removes every entry and returns the count removed
	Purge(ctx context.Context) (int, error)
	Stats(ctx context.Context) (models.CacheStats, error)
	Close() error
}
