package cache

import (
	"fmt"

	"github.com/bobmcallan/finsight/internal/common"
	"github.com/bobmcallan/finsight/internal/interfaces"
)

// Supported cache backends.
const (
	BackendBadger = "badger"
	BackendFile   = "file"
)

// NewRecordCache creates the RecordCache selected by config.
func NewRecordCache(logger *common.Logger, config common.CacheConfig) (interfaces.RecordCache, error) {
	switch config.Backend {
	case BackendBadger, "":
		return NewBadgerCache(logger, config.Path)
	case BackendFile:
		return NewFileCache(logger, config.Path)
	default:
		return nil, fmt.Errorf("unknown cache backend: %s", config.Backend)
	}
}
