// Package cache stores provider responses so repeated queries for a symbol
// do not hit the data provider.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/timshannon/badgerhold/v4"

	"github.com/bobmcallan/finsight/internal/common"
	"github.com/bobmcallan/finsight/internal/interfaces"
	"github.com/bobmcallan/finsight/internal/models"
)

// badgerEntry is the stored form of a CacheEntry. Records travel as JSON
// because RawFields holds interface values gob cannot encode unregistered.
type badgerEntry struct {
	Key       string
	Market    string
	Symbol    string
	FetchedAt time.Time
	Payload   []byte
}

// BadgerCache implements RecordCache using BadgerHold.
type BadgerCache struct {
	db     *badgerhold.Store
	logger *common.Logger
}

// NewBadgerCache opens (or creates) a BadgerHold database at path.
func NewBadgerCache(logger *common.Logger, path string) (*BadgerCache, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache path %s: %w", path, err)
	}
	opts := badgerhold.DefaultOptions
	opts.Dir = path
	opts.ValueDir = path
	opts.Logger = nil
	db, err := badgerhold.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache db at %s: %w", path, err)
	}
	logger.Info().Str("path", path).Msg("Record cache opened (badger)")
	return &BadgerCache{db: db, logger: logger}, nil
}

func (c *BadgerCache) Get(_ context.Context, market models.Market, symbol string) (*interfaces.CacheEntry, error) {
	key := entryKey(market, symbol)
	var stored badgerEntry
	if err := c.db.Get(key, &stored); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cache entry '%s': %w", key, err)
	}

	var entry interfaces.CacheEntry
	if err := json.Unmarshal(stored.Payload, &entry); err != nil {
		c.logger.Warn().Str("key", key).Err(err).Msg("Discarding undecodable cache entry")
		_ = c.db.Delete(key, badgerEntry{})
		return nil, nil
	}
	return &entry, nil
}

func (c *BadgerCache) Put(_ context.Context, entry *interfaces.CacheEntry) error {
	key := entryKey(entry.Market, entry.Symbol)
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry '%s': %w", key, err)
	}
	stored := &badgerEntry{
		Key:       key,
		Market:    string(entry.Market),
		Symbol:    entry.Symbol,
		FetchedAt: entry.FetchedAt,
		Payload:   payload,
	}
	if err := c.db.Upsert(key, stored); err != nil {
		return fmt.Errorf("failed to save cache entry '%s': %w", key, err)
	}
	c.logger.Debug().Str("key", key).Int("records", len(entry.Records)).Msg("Cache entry saved")
	return nil
}

func (c *BadgerCache) Delete(_ context.Context, market models.Market, symbol string) error {
	key := entryKey(market, symbol)
	if err := c.db.Delete(key, badgerEntry{}); err != nil && err != badgerhold.ErrNotFound {
		return fmt.Errorf("failed to delete cache entry '%s': %w", key, err)
	}
	return nil
}

func (c *BadgerCache) Purge(_ context.Context) (int, error) {
	var all []badgerEntry
	if err := c.db.Find(&all, nil); err != nil {
		return 0, fmt.Errorf("failed to list cache entries: %w", err)
	}
	count := 0
	for _, e := range all {
		if err := c.db.Delete(e.Key, badgerEntry{}); err == nil {
			count++
		}
	}
	c.logger.Info().Int("entries", count).Msg("Record cache purged")
	return count, nil
}

func (c *BadgerCache) Stats(_ context.Context) (models.CacheStats, error) {
	n, err := c.db.Count(badgerEntry{}, nil)
	if err != nil {
		return models.CacheStats{}, fmt.Errorf("failed to count cache entries: %w", err)
	}
	return models.CacheStats{Backend: BackendBadger, Entries: int(n)}, nil
}

// Close closes the underlying database
func (c *BadgerCache) Close() error {
	return c.db.Close()
}

// entryKey joins market and symbol with a separator that cannot appear in either.
func entryKey(market models.Market, symbol string) string {
	return string(market) + "\x00" + symbol
}
