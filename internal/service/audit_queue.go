package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/classbridge/records-admin-service/internal/domain/entity"
	"github.com/classbridge/records-admin-service/internal/utils/metrics"
)

// AuditSink is the durable store the queue drains into. The pgx audit log
// repository satisfies it directly.
type AuditSink interface {
	Create(ctx context.Context, entry *entity.AuditLog) error
}

// AuditQueueOptions are the queue knobs. Zero values fall back to the
// defaults the original design hard-coded (1000 / 50 / 3 / 5s).
type AuditQueueOptions struct {
	MaxQueueSize       int
	BatchSize          int
	MaxRetries         int
	ProcessingInterval time.Duration
}

func (o AuditQueueOptions) withDefaults() AuditQueueOptions {
	if o.MaxQueueSize <= 0 {
		o.MaxQueueSize = 1000
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 50
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = 3
	}
	if o.ProcessingInterval <= 0 {
		o.ProcessingInterval = 5 * time.Second
	}
	return o
}

// QueueStats is the health snapshot consumed by the cleanup scheduler.
type QueueStats struct {
	QueueSize    int           `json:"queue_size"`
	IsProcessing bool          `json:"is_processing"`
	OldestLogAge time.Duration `json:"oldest_log_age"`
}

// ErrFlushIncomplete is returned by Flush when the sink stayed down and
// entries remain queued.
var ErrFlushIncomplete = errors.New("audit queue flush incomplete")

// AuditQueue decouples audit recording from persistence. Enqueue is O(1)
// and never performs I/O; a single background worker drains the queue in
// batches, retrying failed entries a bounded number of times by pushing
// them back onto the front of the queue. The queue is bounded: at capacity
// new entries are dropped with a warning, never blocking the caller.
//
// Losing queued entries on an abrupt process kill is accepted; audit logs
// here are diagnostic, not transactional.
type AuditQueue struct {
	sink    AuditSink
	logger  *zap.Logger
	metrics *metrics.AuditQueueMetrics
	opts    AuditQueueOptions

	mu         sync.Mutex
	pending    []*entity.QueuedAuditLog
	processing bool
}

// NewAuditQueue creates an audit queue. metrics may be nil.
func NewAuditQueue(sink AuditSink, opts AuditQueueOptions, m *metrics.AuditQueueMetrics, logger *zap.Logger) *AuditQueue {
	return &AuditQueue{
		sink:    sink,
		logger:  logger,
		metrics: m,
		opts:    opts.withDefaults(),
	}
}

// Enqueue appends an entry and starts the drain worker if it is not
// running. At capacity the entry is dropped with a warning; the caller is
// never blocked or signalled.
func (q *AuditQueue) Enqueue(entry entity.AuditLog) {
	queued := &entity.QueuedAuditLog{
		Entry:      entry,
		EnqueuedAt: time.Now(),
	}

	q.mu.Lock()
	if len(q.pending) >= q.opts.MaxQueueSize {
		q.mu.Unlock()
		if q.metrics != nil {
			q.metrics.DroppedCapacity.Inc()
		}
		q.logger.Warn("Audit queue full, dropping entry",
			zap.String("action", entry.Action),
			zap.Int("max_queue_size", q.opts.MaxQueueSize))
		return
	}
	q.pending = append(q.pending, queued)
	size := len(q.pending)
	start := !q.processing
	if start {
		q.processing = true
	}
	q.mu.Unlock()

	if q.metrics != nil {
		q.metrics.Enqueued.Inc()
		q.metrics.QueueSize.Set(float64(size))
	}
	if start {
		go q.drainLoop()
	}
}

// drainLoop is the single background worker. It exits once the queue is
// empty; the next Enqueue restarts it.
func (q *AuditQueue) drainLoop() {
	for {
		// takeBatch flips processing off under the lock when the queue
		// is empty, so a concurrent Enqueue either sees the flag down and
		// starts a new worker, or appends in time for this loop.
		batch := q.takeBatch()
		if len(batch) == 0 {
			return
		}
		q.processBatch(context.Background(), batch)

		q.mu.Lock()
		more := len(q.pending) > 0
		q.mu.Unlock()
		if more {
			// Pace batches so a backed-up queue does not monopolize storage.
			time.Sleep(q.opts.ProcessingInterval)
		}
	}
}

// takeBatch removes up to BatchSize entries from the head.
func (q *AuditQueue) takeBatch() []*entity.QueuedAuditLog {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := q.opts.BatchSize
	if n > len(q.pending) {
		n = len(q.pending)
	}
	if n == 0 {
		q.processing = false
		return nil
	}
	batch := q.pending[:n]
	q.pending = append([]*entity.QueuedAuditLog{}, q.pending[n:]...)
	if q.metrics != nil {
		q.metrics.QueueSize.Set(float64(len(q.pending)))
	}
	return batch
}

// processBatch persists every entry concurrently; one entry's failure does
// not block the others. Failed entries go back to the front of the queue
// until their retry budget runs out. Returns the number persisted.
func (q *AuditQueue) processBatch(ctx context.Context, batch []*entity.QueuedAuditLog) int {
	results := make([]error, len(batch))
	var wg sync.WaitGroup
	for i, queued := range batch {
		wg.Add(1)
		go func(i int, queued *entity.QueuedAuditLog) {
			defer wg.Done()
			results[i] = q.sink.Create(ctx, &queued.Entry)
		}(i, queued)
	}
	wg.Wait()

	persisted := 0
	var requeue []*entity.QueuedAuditLog
	for i, queued := range batch {
		if results[i] == nil {
			persisted++
			continue
		}
		queued.RetryCount++
		if queued.RetryCount >= q.opts.MaxRetries {
			if q.metrics != nil {
				q.metrics.DroppedRetry.Inc()
			}
			q.logger.Error("Dropping audit entry after exhausting retries",
				zap.String("action", queued.Entry.Action),
				zap.Int64("user_id", queued.Entry.UserID),
				zap.Int("retry_count", queued.RetryCount),
				zap.Error(results[i]))
			continue
		}
		requeue = append(requeue, queued)
	}

	if q.metrics != nil {
		q.metrics.Persisted.Add(float64(persisted))
	}
	if len(requeue) > 0 {
		q.mu.Lock()
		// Failed entries take priority over new arrivals.
		q.pending = append(requeue, q.pending...)
		if q.metrics != nil {
			q.metrics.QueueSize.Set(float64(len(q.pending)))
		}
		q.mu.Unlock()
	}
	return persisted
}

// GetQueueStats reports queue depth, worker state and the age of the head
// entry (0 when empty).
func (q *AuditQueue) GetQueueStats() QueueStats {
	q.mu.Lock()
	defer q.mu.Unlock()

	stats := QueueStats{
		QueueSize:    len(q.pending),
		IsProcessing: q.processing,
	}
	if len(q.pending) > 0 {
		stats.OldestLogAge = time.Since(q.pending[0].EnqueuedAt)
	}
	return stats
}

// Flush synchronously drains remaining batches; called at shutdown after
// the scheduler has stopped. Best effort: if a whole batch fails with the
// sink down, Flush gives up and reports what is left.
func (q *AuditQueue) Flush(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		batch := q.takeBatch()
		if len(batch) == 0 {
			return nil
		}
		if persisted := q.processBatch(ctx, batch); persisted == 0 {
			q.mu.Lock()
			remaining := len(q.pending)
			q.mu.Unlock()
			if remaining > 0 {
				q.logger.Error("Audit queue flush aborted, storage unavailable",
					zap.Int("remaining", remaining))
				return ErrFlushIncomplete
			}
			return nil
		}
	}
}
