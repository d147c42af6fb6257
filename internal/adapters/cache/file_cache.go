package cache

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/mailbox-auditor/internal/core"
)

// cacheDocument is the on-disk form of the cache: one flat JSON
// document keyed by message id
type cacheDocument struct {
	SavedAt  time.Time          `json:"saved_at"`
	Messages core.CacheSnapshot `json:"messages"`
}

// FileCache persists the metadata cache as a single JSON document.
// Replace writes to a temp file and renames it into place, so readers
// of the previous document never observe a partial write and an aborted
// run cannot corrupt committed state.
type FileCache struct {
	path   string
	logger *zap.Logger
}

// NewFileCache creates a new file-backed cache
func NewFileCache(path string, logger *zap.Logger) *FileCache {
	return &FileCache{
		path:   path,
		logger: logger,
	}
}

// Load reads the cache document. A missing file is a first run, not an
// error, and yields an empty snapshot.
func (c *FileCache) Load(ctx context.Context) (core.CacheSnapshot, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			c.logger.Debug("No cache file yet", zap.String("path", c.path))
			return core.CacheSnapshot{}, nil
		}
		return nil, core.NewCacheIOError("read", c.path, err)
	}

	var doc cacheDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, core.NewCacheIOError("decode", c.path, err)
	}
	if doc.Messages == nil {
		doc.Messages = core.CacheSnapshot{}
	}

	c.logger.Debug("Loaded cache",
		zap.String("path", c.path),
		zap.Int("records", len(doc.Messages)),
		zap.Time("saved_at", doc.SavedAt))

	return doc.Messages, nil
}

// Replace atomically replaces the cache document with the given
// snapshot
func (c *FileCache) Replace(ctx context.Context, snapshot core.CacheSnapshot) error {
	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return core.NewCacheIOError("write", c.path, err)
	}

	doc := cacheDocument{
		SavedAt:  time.Now(),
		Messages: snapshot,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return core.NewCacheIOError("encode", c.path, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(c.path)+".tmp-*")
	if err != nil {
		return core.NewCacheIOError("write", c.path, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return core.NewCacheIOError("write", c.path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return core.NewCacheIOError("write", c.path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return core.NewCacheIOError("write", c.path, err)
	}

	if err := os.Rename(tmpPath, c.path); err != nil {
		os.Remove(tmpPath)
		return core.NewCacheIOError("write", c.path, err)
	}

	c.logger.Info("Persisted cache",
		zap.String("path", c.path),
		zap.Int("records", len(snapshot)))

	return nil
}
