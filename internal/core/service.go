package core

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AuditService drives one end-to-end audit run: list remote message IDs,
// diff them against the cache, fetch what is missing, prune entries that
// no longer exist remotely, and persist the updated snapshot.
type AuditService struct {
	source        MessageSource
	cache         MetadataCache
	collector     *Collector
	logger        *zap.Logger
	maxMessages   int64
	refreshUnread bool
}

// NewAuditService creates a new audit service
func NewAuditService(
	source MessageSource,
	cache MetadataCache,
	collector *Collector,
	logger *zap.Logger,
	maxMessages int64,
	refreshUnread bool,
) *AuditService {
	return &AuditService{
		source:        source,
		cache:         cache,
		collector:     collector,
		logger:        logger,
		maxMessages:   maxMessages,
		refreshUnread: refreshUnread,
	}
}

// Run executes a full audit. The cache snapshot travels through the run
// as a value: loaded once, merged with fetched records, pruned against
// the complete listing, and written back atomically at the end. An
// aborted run therefore never corrupts previously-committed cache state.
func (s *AuditService) Run(ctx context.Context) (*AuditResult, error) {
	startedAt := time.Now()
	runID := uuid.NewString()

	s.logger.Info("Starting mailbox audit",
		zap.String("run_id", runID),
		zap.Int64("max_messages", s.maxMessages))

	// A listing failure is fatal: without the id universe there is
	// nothing to audit and nothing safe to prune.
	listed, err := s.source.ListMessageIDs(ctx, s.maxMessages)
	if err != nil {
		return nil, fmt.Errorf("failed to list mailbox: %w", err)
	}

	snapshot, err := s.cache.Load(ctx)
	if err != nil {
		s.logger.Warn("Cache unreadable, starting from an empty snapshot", zap.Error(err))
		snapshot = CacheSnapshot{}
	}

	toFetch := s.partition(listed, snapshot)
	cachedHits := len(listed) - len(toFetch)

	s.logger.Info("Partitioned listing against cache",
		zap.String("run_id", runID),
		zap.Int("listed", len(listed)),
		zap.Int("cached_hits", cachedHits),
		zap.Int("to_fetch", len(toFetch)))

	collected, err := s.collector.Collect(ctx, toFetch)
	if err != nil {
		return nil, fmt.Errorf("failed to collect metadata: %w", err)
	}

	merged := snapshot.Merge(collected.Records)
	pruned := merged.Prune(listed)
	prunedCount := len(merged) - len(pruned)

	if err := s.cache.Replace(ctx, pruned); err != nil {
		return nil, fmt.Errorf("failed to persist cache: %w", err)
	}

	// Dataset preserves listing order. IDs that could not be resolved
	// and were never cached are absent from the snapshot and skipped;
	// a failed refresh falls back to the previously-cached record.
	dataset := make([]MessageRecord, 0, len(listed))
	for _, id := range listed {
		if record, ok := pruned[id]; ok {
			dataset = append(dataset, record)
		}
	}

	result := &AuditResult{
		RunID:        runID,
		Dataset:      dataset,
		ListedCount:  len(listed),
		FetchedCount: len(collected.Records),
		CachedHits:   cachedHits,
		PrunedCount:  prunedCount,
		Unresolved:   collected.Unresolved,
		StartedAt:    startedAt,
		FinishedAt:   time.Now(),
	}

	s.logger.Info("Audit finished",
		zap.String("run_id", runID),
		zap.Int("dataset", len(result.Dataset)),
		zap.Int("fetched", result.FetchedCount),
		zap.Int("pruned", result.PrunedCount),
		zap.Int("unresolved", len(result.Unresolved)),
		zap.Duration("elapsed", result.FinishedAt.Sub(startedAt)))

	return result, nil
}

// partition splits the listing into cache hits and IDs that need a
// fetch. With refresh enabled, cached records still marked unread are
// re-fetched so that reads made since the last run are picked up.
func (s *AuditService) partition(listed []string, snapshot CacheSnapshot) []string {
	toFetch := make([]string, 0, len(listed))
	for _, id := range listed {
		cached, ok := snapshot[id]
		if !ok {
			toFetch = append(toFetch, id)
			continue
		}
		if s.refreshUnread && cached.IsUnread {
			toFetch = append(toFetch, id)
		}
	}
	return toFetch
}
