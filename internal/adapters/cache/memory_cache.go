package cache

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/mikey/mailbox-auditor/internal/core"
)

// MemoryCache is an in-memory implementation of the MetadataCache
// interface. Useful for dry runs and tests; nothing survives the
// process.
type MemoryCache struct {
	snapshot core.CacheSnapshot
	mu       sync.RWMutex
	logger   *zap.Logger
}

// NewMemoryCache creates a new in-memory cache
func NewMemoryCache(logger *zap.Logger) *MemoryCache {
	return &MemoryCache{
		snapshot: core.CacheSnapshot{},
		logger:   logger,
	}
}

// Load returns a copy of the stored snapshot so callers can treat it as
// an immutable value
func (c *MemoryCache) Load(ctx context.Context) (core.CacheSnapshot, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snapshot := make(core.CacheSnapshot, len(c.snapshot))
	for id, record := range c.snapshot {
		snapshot[id] = record
	}
	return snapshot, nil
}

// Replace swaps the entire stored snapshot
func (c *MemoryCache) Replace(ctx context.Context, snapshot core.CacheSnapshot) error {
	copied := make(core.CacheSnapshot, len(snapshot))
	for id, record := range snapshot {
		copied[id] = record
	}

	c.mu.Lock()
	c.snapshot = copied
	c.mu.Unlock()

	c.logger.Debug("Replaced in-memory cache", zap.Int("records", len(copied)))
	return nil
}
