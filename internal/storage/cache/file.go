package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bobmcallan/finsight/internal/common"
	"github.com/bobmcallan/finsight/internal/interfaces"
	"github.com/bobmcallan/finsight/internal/models"
)

// FileCache implements RecordCache as one JSON file per (market, symbol)
// under <path>/<market>/. Writes are atomic (temp file + rename).
type FileCache struct {
	basePath string
	mu       sync.Mutex // serialises purge against writes
	logger   *common.Logger
}

// NewFileCache creates a file cache rooted at path.
func NewFileCache(logger *common.Logger, path string) (*FileCache, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache path %s: %w", path, err)
	}
	logger.Info().Str("path", path).Msg("Record cache opened (file)")
	return &FileCache{basePath: path, logger: logger}, nil
}

func (c *FileCache) marketDir(market models.Market) string {
	return filepath.Join(c.basePath, sanitizeKey(string(market)))
}

func (c *FileCache) Get(_ context.Context, market models.Market, symbol string) (*interfaces.CacheEntry, error) {
	var entry interfaces.CacheEntry
	found, err := readJSON(c.marketDir(market), symbol, &entry)
	if err != nil {
		c.logger.Warn().Str("market", string(market)).Str("symbol", symbol).Err(err).Msg("Discarding unreadable cache file")
		deleteJSON(c.marketDir(market), symbol)
		return nil, nil
	}
	if !found {
		return nil, nil
	}
	return &entry, nil
}

func (c *FileCache) Put(_ context.Context, entry *interfaces.CacheEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := writeJSON(c.marketDir(entry.Market), entry.Symbol, entry); err != nil {
		return fmt.Errorf("failed to save cache entry %s.%s: %w", entry.Market, entry.Symbol, err)
	}
	c.logger.Debug().Str("market", string(entry.Market)).Str("symbol", entry.Symbol).Msg("Cache entry saved")
	return nil
}

func (c *FileCache) Delete(_ context.Context, market models.Market, symbol string) error {
	deleteJSON(c.marketDir(market), symbol)
	return nil
}

func (c *FileCache) Purge(_ context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	count := 0
	for _, m := range models.AllMarkets {
		count += purgeDir(c.marketDir(m))
	}
	c.logger.Info().Int("entries", count).Msg("Record cache purged")
	return count, nil
}

func (c *FileCache) Stats(_ context.Context) (models.CacheStats, error) {
	total := 0
	for _, m := range models.AllMarkets {
		keys, err := listKeys(c.marketDir(m))
		if err != nil {
			return models.CacheStats{}, err
		}
		total += len(keys)
	}
	return models.CacheStats{Backend: BackendFile, Entries: total}, nil
}

// Close is a no-op for file-based storage.
func (c *FileCache) Close() error {
	return nil
}

// --- helpers ---

func sanitizeKey(key string) string {
	r := strings.NewReplacer("/", "_", "\\", "_", ":", "_", "..", "_")
	return r.Replace(key)
}

func filePath(dir, key string) string {
	return filepath.Join(dir, sanitizeKey(key)+".json")
}

// readJSON reports found=false for a missing file and an error for a file
// that exists but cannot be decoded.
func readJSON(dir, key string, dest interface{}) (bool, error) {
	path := filePath(dir, key)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(data) == 0 {
		return false, fmt.Errorf("'%s' is empty", key)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return true, nil
}

func writeJSON(dir, key string, data interface{}) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	target := filePath(dir, key)
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	jsonData = append(jsonData, '\n')

	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	if _, err := tmpFile.Write(jsonData); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

func listKeys(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}
	var keys []string
	for _, e := range entries {
		name := e.Name()
		if strings.HasSuffix(name, ".json") && !strings.HasPrefix(name, ".tmp-") {
			keys = append(keys, strings.TrimSuffix(name, ".json"))
		}
	}
	return keys, nil
}

func deleteJSON(dir, key string) {
	os.Remove(filePath(dir, key))
}

func purgeDir(dir string) int {
	keys, err := listKeys(dir)
	if err != nil {
		return 0
	}
	for _, key := range keys {
		os.Remove(filepath.Join(dir, key+".json"))
	}
	return len(keys)
}
