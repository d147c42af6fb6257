package factory

import (
	"fmt"

	"github.com/mikey/mailbox-auditor/internal/adapters/cache"
	"github.com/mikey/mailbox-auditor/internal/config"
	"github.com/mikey/mailbox-auditor/internal/core"
	"go.uber.org/zap"
)

// CacheFactory creates metadata caches based on configuration
type CacheFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewCacheFactory creates a new cache factory
func NewCacheFactory(cfg *config.Config, logger *zap.Logger) *CacheFactory {
	return &CacheFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateCache creates a metadata cache based on the configuration
func (f *CacheFactory) CreateCache() (core.MetadataCache, error) {
	cacheCfg := f.cfg.GetCache()

	switch cacheCfg.Type {
	case "file":
		if cacheCfg.Path == "" {
			return nil, fmt.Errorf("cache path is required for the file cache")
		}
		return cache.NewFileCache(cacheCfg.Path, f.logger), nil
	case "sqlite":
		if cacheCfg.Path == "" {
			return nil, fmt.Errorf("cache path is required for the sqlite cache")
		}
		return cache.NewSQLiteCache(cacheCfg.Path, f.logger)
	case "memory":
		return cache.NewMemoryCache(f.logger), nil
	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cacheCfg.Type)
	}
}
