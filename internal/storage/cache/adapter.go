package cache

import (
	"context"
	"time"

	"github.com/bobmcallan/finsight/internal/common"
	"github.com/bobmcallan/finsight/internal/interfaces"
	"github.com/bobmcallan/finsight/internal/models"
)

// CachedAdapter serves fetches from a RecordCache and falls through to the
// wrapped adapter when the entry is missing, expired, or too old to cover
// the requested end date.
type CachedAdapter struct {
	next          interfaces.DataAdapter
	cache         interfaces.RecordCache
	ttl           time.Duration
	refreshWindow time.Duration
	now           func() time.Time
	logger        *common.Logger
}

// AdapterOption configures a CachedAdapter
type AdapterOption func(*CachedAdapter)

// WithTTL sets how long an entry is served without a refetch.
func WithTTL(ttl time.Duration) AdapterOption {
	return func(a *CachedAdapter) { a.ttl = ttl }
}

// WithRefreshWindow sets the age after which an entry that does not reach
// the requested end date is refetched.
func WithRefreshWindow(d time.Duration) AdapterOption {
	return func(a *CachedAdapter) { a.refreshWindow = d }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) AdapterOption {
	return func(a *CachedAdapter) { a.now = now }
}

// NewCachedAdapter wraps next with cache.
func NewCachedAdapter(next interfaces.DataAdapter, cache interfaces.RecordCache, logger *common.Logger, opts ...AdapterOption) *CachedAdapter {
	a := &CachedAdapter{
		next:          next,
		cache:         cache,
		ttl:           common.FreshnessStatements,
		refreshWindow: common.FreshnessRefreshWindow,
		now:           time.Now,
		logger:        logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Fetch implements interfaces.DataAdapter.
func (a *CachedAdapter) Fetch(ctx context.Context, market models.Market, symbol string, opts ...interfaces.FetchOption) ([]models.FinancialRecord, error) {
	params := interfaces.ApplyFetchOptions(opts)

	if !params.ForceRefresh {
		entry, err := a.cache.Get(ctx, market, symbol)
		if err != nil {
			a.logger.Warn().Str("market", string(market)).Str("symbol", symbol).Err(err).Msg("Cache read failed, fetching from provider")
		} else if entry != nil && a.usable(entry, params.To) {
			a.logger.Debug().Str("market", string(market)).Str("symbol", symbol).Int("records", len(entry.Records)).Msg("Cache hit")
			return entry.Records, nil
		}
	}

	a.logger.Debug().Str("market", string(market)).Str("symbol", symbol).Bool("force", params.ForceRefresh).Msg("Cache miss")
	records, err := a.next.Fetch(ctx, market, symbol, opts...)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return records, nil
	}

	entry := newEntry(market, symbol, records, a.now())
	if err := a.cache.Put(ctx, entry); err != nil {
		a.logger.Warn().Str("market", string(market)).Str("symbol", symbol).Err(err).Msg("Cache write failed")
	}
	return records, nil
}

// usable reports whether a cached entry can answer a request ending at to.
func (a *CachedAdapter) usable(entry *interfaces.CacheEntry, to time.Time) bool {
	now := a.now()
	if !common.IsFreshAt(entry.FetchedAt, now, a.ttl) {
		return false
	}
	if !entry.Covers(to) && !common.IsFreshAt(entry.FetchedAt, now, a.refreshWindow) {
		return false
	}
	return true
}

func newEntry(market models.Market, symbol string, records []models.FinancialRecord, fetchedAt time.Time) *interfaces.CacheEntry {
	entry := &interfaces.CacheEntry{
		Market:    market,
		Symbol:    symbol,
		Records:   records,
		FetchedAt: fetchedAt,
	}
	for _, r := range records {
		if r.ReportDate.IsZero() {
			continue
		}
		if entry.EarliestDate.IsZero() || r.ReportDate.Before(entry.EarliestDate) {
			entry.EarliestDate = r.ReportDate
		}
		if r.ReportDate.After(entry.LatestDate) {
			entry.LatestDate = r.ReportDate
		}
	}
	return entry
}
