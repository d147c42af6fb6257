package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/mikey/mailbox-auditor/internal/core"
	"go.uber.org/zap"
)

// SQLiteCache is a SQLite implementation of the MetadataCache interface.
// It keeps the same whole-snapshot contract as the file cache. Replace
// swaps the entire table in one transaction, so a failed run never leaves
// a half-written snapshot behind.
type SQLiteCache struct {
	db     *sql.DB
	path   string
	logger *zap.Logger
}

// NewSQLiteCache creates a new SQLite cache
func NewSQLiteCache(dbPath string, logger *zap.Logger) (*SQLiteCache, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// Create table if it doesn't exist
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			sender TEXT NOT NULL,
			subject TEXT,
			received_at TEXT,
			is_unread BOOLEAN,
			is_opened BOOLEAN,
			category TEXT,
			labels TEXT
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &SQLiteCache{
		db:     db,
		path:   dbPath,
		logger: logger,
	}, nil
}

// Load reads the full cache document. An empty table yields an empty
// snapshot.
func (c *SQLiteCache) Load(ctx context.Context) (core.CacheSnapshot, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, sender, subject, received_at, is_unread, is_opened, category, labels
		FROM messages
	`)
	if err != nil {
		return nil, core.NewCacheIOError("read", c.path, err)
	}
	defer rows.Close()

	snapshot := core.CacheSnapshot{}
	for rows.Next() {
		var (
			record     core.MessageRecord
			receivedAt string
			labels     string
		)
		if err := rows.Scan(
			&record.ID, &record.Sender, &record.Subject, &receivedAt,
			&record.IsUnread, &record.IsOpened, &record.Category, &labels,
		); err != nil {
			return nil, core.NewCacheIOError("read", c.path, err)
		}
		if receivedAt != "" {
			ts, err := time.Parse(time.RFC3339, receivedAt)
			if err != nil {
				return nil, core.NewCacheIOError("decode", c.path, err)
			}
			record.ReceivedAt = ts
		}
		if labels != "" {
			if err := json.Unmarshal([]byte(labels), &record.Labels); err != nil {
				return nil, core.NewCacheIOError("decode", c.path, err)
			}
		}
		snapshot[record.ID] = record
	}
	if err := rows.Err(); err != nil {
		return nil, core.NewCacheIOError("read", c.path, err)
	}

	c.logger.Debug("Loaded cache",
		zap.String("path", c.path),
		zap.Int("messages", len(snapshot)))
	return snapshot, nil
}

// Replace atomically replaces the entire cache document
func (c *SQLiteCache) Replace(ctx context.Context, snapshot core.CacheSnapshot) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return core.NewCacheIOError("write", c.path, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages`); err != nil {
		return core.NewCacheIOError("write", c.path, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO messages (id, sender, subject, received_at, is_unread, is_opened, category, labels)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return core.NewCacheIOError("write", c.path, err)
	}
	defer stmt.Close()

	for _, record := range snapshot {
		receivedAt := ""
		if !record.ReceivedAt.IsZero() {
			receivedAt = record.ReceivedAt.Format(time.RFC3339)
		}
		labels := ""
		if len(record.Labels) > 0 {
			encoded, err := json.Marshal(record.Labels)
			if err != nil {
				return core.NewCacheIOError("encode", c.path, err)
			}
			labels = string(encoded)
		}
		if _, err := stmt.ExecContext(ctx,
			record.ID, record.Sender, record.Subject, receivedAt,
			record.IsUnread, record.IsOpened, record.Category, labels,
		); err != nil {
			return core.NewCacheIOError("write", c.path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return core.NewCacheIOError("write", c.path, err)
	}

	c.logger.Info("Persisted cache",
		zap.String("path", c.path),
		zap.Int("messages", len(snapshot)))
	return nil
}

// Close closes the database connection
func (c *SQLiteCache) Close() error {
	return c.db.Close()
}
