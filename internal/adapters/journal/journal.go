// Package journal persists completion evidence asynchronously. Accepted
// submissions enqueue a record into a bounded in-memory queue; a pool of
// workers drains the queue and writes each record into the completions
// collection. The journal is best effort and never sits on the submission
// path's critical section: a full queue drops the record and counts it.
package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/questforge/questforge/internal/adapters/docstore"
	"github.com/questforge/questforge/internal/domain/model"
	"github.com/questforge/questforge/pkg/logger"
	"github.com/questforge/questforge/pkg/metrics"
)

const (
	defaultQueueSize    = 4096
	defaultWriteRetries = 3
	drainTimeout        = 10 * time.Second
	writeTimeout        = 5 * time.Second
)

// Journal accepts completion records and writes them out in the background.
type Journal struct {
	store   docstore.Store
	log     logger.Logger
	queue   chan model.Completion
	size    int
	workers int
	retries int

	mu     sync.Mutex
	closed bool

	wg sync.WaitGroup
}

// New builds a journal over the given store. Call Start to launch workers.
func New(store docstore.Store, opts ...Option) *Journal {
	j := &Journal{
		store:   store,
		log:     logger.Get().Named("journal"),
		size:    defaultQueueSize,
		workers: runtime.NumCPU(),
		retries: defaultWriteRetries,
	}
	for _, opt := range opts {
		opt(j)
	}
	j.queue = make(chan model.Completion, j.size)
	metrics.UpdateJournalQueueCapacity(j.size)
	metrics.UpdateJournalQueueDepth(0)
	return j
}

// Start launches the worker pool. Workers run until Stop drains the queue.
// Store writes do not inherit ctx; queued records must still persist after
// the process's root context is canceled during shutdown.
func (j *Journal) Start(ctx context.Context) {
	for i := 0; i < j.workers; i++ {
		j.wg.Add(1)
		go func(name string) {
			defer j.wg.Done()
			j.run(ctx, name)
		}(fmt.Sprintf("writer-%d", i))
	}
	j.log.Info(ctx, "journal started",
		logger.Int("workers", j.workers), logger.Int("queue_size", j.size))
}

// Record enqueues one completion for persistence. Returns false when the
// journal is stopped or the queue is full; the completion is then lost to
// the journal but the XP transaction that produced it already committed.
func (j *Journal) Record(ctx context.Context, c model.Completion) bool {
	j.mu.Lock()
	if j.closed {
		j.mu.Unlock()
		metrics.RecordJournalDropped()
		return false
	}

	select {
	case j.queue <- c:
		j.mu.Unlock()
		metrics.UpdateJournalQueueDepth(len(j.queue))
		return true
	default:
		j.mu.Unlock()
		metrics.RecordJournalDropped()
		j.log.Warn(ctx, "journal queue full, dropping completion",
			logger.String("user_id", c.UserID), logger.String("quest_id", c.QuestID))
		return false
	}
}

// Depth returns the number of queued, unwritten completions.
func (j *Journal) Depth() int {
	return len(j.queue)
}

// Stop closes the intake and waits for workers to drain the queue, up to
// an internal timeout.
func (j *Journal) Stop(ctx context.Context) error {
	j.mu.Lock()
	if j.closed {
		j.mu.Unlock()
		return nil
	}
	j.closed = true
	close(j.queue)
	j.mu.Unlock()

	done := make(chan struct{})
	go func() {
		j.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("journal drain interrupted: %w", ctx.Err())
	case <-time.After(drainTimeout):
		return fmt.Errorf("journal drain timed out after %s", drainTimeout)
	}
}

func (j *Journal) run(ctx context.Context, name string) {
	log := j.log.Named(name)
	for c := range j.queue {
		metrics.UpdateJournalQueueDepth(len(j.queue))
		wctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		err := j.write(wctx, c)
		cancel()
		if err != nil {
			metrics.RecordJournalWriteError()
			log.Error(ctx, "completion write failed",
				logger.String("user_id", c.UserID),
				logger.String("quest_id", c.QuestID),
				logger.Error(err))
			continue
		}
		metrics.RecordJournalWrite()
	}
}

// write persists one completion, retrying transient store failures.
func (j *Journal) write(ctx context.Context, c model.Completion) error {
	start := time.Now()
	defer func() {
		metrics.RecordJournalWriteLatency(float64(time.Since(start).Milliseconds()))
	}()

	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	data, err := json.Marshal(&c)
	if err != nil {
		return fmt.Errorf("encode completion: %w", err)
	}

	key := CompletionKey(c.UserID, c.QuestID)
	var lastErr error
	for attempt := 0; attempt <= j.retries; attempt++ {
		if _, err := j.store.Put(ctx, model.CollectionCompletions, key, data); err == nil {
			return nil
		} else {
			lastErr = err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt+1) * 50 * time.Millisecond):
		}
	}
	return lastErr
}

// CompletionKey is the storage key for a (user, quest) completion record.
func CompletionKey(userID, questID string) string {
	return userID + "/" + questID
}
