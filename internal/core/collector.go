package core

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const defaultWorkers = 8

// Collector fetches message metadata concurrently through a bounded
// worker pool. Transient failures are retried with exponential backoff,
// permanent failures are recorded and skipped, and an authentication
// failure aborts the whole pool.
type Collector struct {
	source         MessageSource
	workers        int
	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	logger         *zap.Logger
}

// NewCollector creates a new Collector
func NewCollector(
	source MessageSource,
	workers int,
	maxAttempts int,
	initialBackoff time.Duration,
	maxBackoff time.Duration,
	logger *zap.Logger,
) *Collector {
	if workers <= 0 {
		workers = defaultWorkers
	}
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return &Collector{
		source:         source,
		workers:        workers,
		maxAttempts:    maxAttempts,
		initialBackoff: initialBackoff,
		maxBackoff:     maxBackoff,
		logger:         logger,
	}
}

type fetchOutcome struct {
	record     *MessageRecord
	unresolved *UnresolvedID
}

// Collect fetches metadata for the given message IDs. The returned
// result separates fetched records from IDs that could not be resolved.
// An authentication failure cancels all in-flight work and is returned
// as the error.
func (c *Collector) Collect(ctx context.Context, ids []string) (*CollectResult, error) {
	result := &CollectResult{}
	if len(ids) == 0 {
		return result, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	workers := c.workers
	if workers > len(ids) {
		workers = len(ids)
	}

	jobs := make(chan string, len(ids))
	outcomes := make(chan fetchOutcome, len(ids))

	var (
		wg       sync.WaitGroup
		authOnce sync.Once
		authErr  error
		fetched  int64
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range jobs {
				if ctx.Err() != nil {
					return
				}
				record, attempts, err := c.fetchOne(ctx, id)
				if err == nil {
					atomic.AddInt64(&fetched, 1)
					outcomes <- fetchOutcome{record: record}
					continue
				}
				if IsAuthError(err) {
					authOnce.Do(func() {
						authErr = err
						cancel()
					})
					return
				}
				if ctx.Err() != nil {
					return
				}
				c.logger.Warn("Giving up on message",
					zap.String("message_id", id),
					zap.Int("attempts", attempts),
					zap.Error(err))
				outcomes <- fetchOutcome{unresolved: &UnresolvedID{
					ID:       id,
					Attempts: attempts,
					Err:      err,
				}}
			}
		}()
	}

	for _, id := range ids {
		jobs <- id
	}
	close(jobs)

	wg.Wait()
	close(outcomes)

	if authErr != nil {
		return nil, authErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for outcome := range outcomes {
		if outcome.record != nil {
			result.Records = append(result.Records, *outcome.record)
		}
		if outcome.unresolved != nil {
			result.Unresolved = append(result.Unresolved, *outcome.unresolved)
		}
	}

	c.logger.Info("Metadata collection finished",
		zap.Int("requested", len(ids)),
		zap.Int64("fetched", atomic.LoadInt64(&fetched)),
		zap.Int("unresolved", len(result.Unresolved)),
		zap.Int("workers", workers))

	return result, nil
}

// fetchOne fetches a single message, retrying transient failures with
// exponential backoff. Each worker sleeps only for its own message so a
// backing-off worker never stalls the rest of the pool.
func (c *Collector) fetchOne(ctx context.Context, id string) (*MessageRecord, int, error) {
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			if err := c.wait(ctx, c.backoff(attempt-1)); err != nil {
				return nil, attempt - 1, err
			}
		}

		record, err := c.source.FetchMessage(ctx, id)
		if err == nil {
			return record, attempt, nil
		}
		lastErr = err

		if !IsTransient(err) {
			return nil, attempt, err
		}
		c.logger.Debug("Transient fetch failure",
			zap.String("message_id", id),
			zap.Int("attempt", attempt),
			zap.Error(err))
	}
	return nil, c.maxAttempts, lastErr
}

// backoff returns the delay before the given retry. Exponential with
// jitter to avoid synchronized retries, clamped to the configured ceiling.
func (c *Collector) backoff(retry int) time.Duration {
	delay := c.initialBackoff << (retry - 1)
	if delay <= 0 || delay > c.maxBackoff {
		delay = c.maxBackoff
	}
	if c.initialBackoff > 0 {
		delay += time.Duration(rand.Int63n(int64(c.initialBackoff) + 1))
	}
	if delay > c.maxBackoff {
		delay = c.maxBackoff
	}
	return delay
}

func (c *Collector) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
