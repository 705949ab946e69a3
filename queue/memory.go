package queue

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"

	"github.com/fieldline/go-autopilot/core"
)

// Handler consumes one queue entry. A nil return acknowledges the entry; a
// retryable error sends it back through the retry path.
type Handler interface {
	Handle(ctx context.Context, entry core.QueueEntry) error
}

type HandlerFunc func(ctx context.Context, entry core.QueueEntry) error

func (f HandlerFunc) Handle(ctx context.Context, entry core.QueueEntry) error {
	return f(ctx, entry)
}

type Options struct {
	Config   core.QueueConfig
	Handler  Handler
	Stats    *core.StatsTracker
	Observer *core.Observer
	Now      func() time.Time
	NewID    func() string
}

type MemoryQueue struct {
	capacity      int
	maxRetries    int
	yieldInterval time.Duration
	drainDeadline time.Duration
	handler       Handler
	stats         *core.StatsTracker
	observer      *core.Observer
	now           func() time.Time
	newID         func() string

	mu       sync.Mutex
	entries  []core.QueueEntry
	draining bool
	closed   bool

	activeDrains atomic.Int32
	wg           sync.WaitGroup
}

func NewMemoryQueue(opts Options) *MemoryQueue {
	cfg := opts.Config
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.YieldInterval <= 0 {
		cfg.YieldInterval = 100 * time.Millisecond
	}
	if cfg.DrainDeadline <= 0 {
		cfg.DrainDeadline = 30 * time.Second
	}
	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	newID := opts.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	observer := opts.Observer
	if observer == nil {
		observer = core.NopObserver()
	}
	return &MemoryQueue{
		capacity:      cfg.MaxCapacity,
		maxRetries:    cfg.MaxRetries,
		yieldInterval: cfg.YieldInterval,
		drainDeadline: cfg.DrainDeadline,
		handler:       opts.Handler,
		stats:         opts.Stats,
		observer:      observer,
		now:           now,
		newID:         newID,
	}
}

// Enqueue admits one event. It returns core.ErrQueueFull when the queue is at
// capacity and never blocks the caller.
func (q *MemoryQueue) Enqueue(ctx context.Context, event core.Event, pctx core.PipelineContext) error {
	if q == nil {
		return goerrors.New("queue: queue is required", goerrors.CategoryInternal)
	}

	entry := core.QueueEntry{
		ID:         q.newID(),
		Event:      event,
		Context:    pctx,
		ReceivedAt: q.now(),
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return goerrors.New("queue: queue is shut down", goerrors.CategoryOperation)
	}
	if q.capacity > 0 && len(q.entries) >= q.capacity {
		q.mu.Unlock()
		q.observer.IncCounter(ctx, "autopilot.queue.rejected.total", 1, map[string]string{
			"topic": string(event.Topic),
		})
		return core.ErrQueueFull
	}
	q.entries = append(q.entries, entry)
	depth := len(q.entries)
	q.mu.Unlock()

	q.observer.ObserveHistogram(ctx, "autopilot.queue.depth", float64(depth), nil)
	q.startDrain()
	return nil
}

// Len reports the number of buffered entries, including entries awaiting a
// retry attempt.
func (q *MemoryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// ActiveDrains reports how many drain loops are currently running. The value
// is 0 or 1.
func (q *MemoryQueue) ActiveDrains() int {
	return int(q.activeDrains.Load())
}

// Shutdown stops admission and waits for the in-flight drain to settle, up to
// the drain deadline or the caller's context, whichever expires first.
func (q *MemoryQueue) Shutdown(ctx context.Context) error {
	if q == nil {
		return nil
	}
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	deadline := time.NewTimer(q.drainDeadline)
	defer deadline.Stop()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-deadline.C:
		return goerrors.New("queue: drain deadline exceeded during shutdown", goerrors.CategoryOperation).
			WithTextCode(core.PipelineErrorInternal)
	}
}

func (q *MemoryQueue) startDrain() {
	q.mu.Lock()
	if q.draining {
		q.mu.Unlock()
		return
	}
	q.draining = true
	q.mu.Unlock()

	q.wg.Add(1)
	go q.drain()
}

func (q *MemoryQueue) drain() {
	defer q.wg.Done()
	q.activeDrains.Add(1)
	defer q.activeDrains.Add(-1)

	for {
		q.mu.Lock()
		if len(q.entries) == 0 {
			q.draining = false
			q.mu.Unlock()
			return
		}
		entry := q.entries[0]
		q.entries = q.entries[1:]
		q.mu.Unlock()

		q.process(entry)

		if q.yieldInterval > 0 {
			time.Sleep(q.yieldInterval)
		}
	}
}

func (q *MemoryQueue) process(entry core.QueueEntry) {
	ctx := context.Background()
	startedAt := q.now()

	if q.handler == nil {
		return
	}
	err := q.handler.Handle(ctx, entry)
	if err == nil {
		q.observer.ObserveOperation(ctx, startedAt, "queue.process", nil, map[string]any{
			"topic":   string(entry.Event.Topic),
			"retries": entry.Retries,
		})
		return
	}

	if core.IsRetryable(err) && entry.Retries < q.maxRetries {
		entry.Retries++
		// NextRetryAt records the exponential backoff schedule for the
		// attempt. The schedule is advisory: the entry re-enters the
		// queue immediately and is seen again on the next drain pass.
		nextRetryAt := q.now().Add(time.Duration(math.Pow(2, float64(entry.Retries))) * time.Second)
		entry.NextRetryAt = &nextRetryAt

		q.mu.Lock()
		q.entries = append(q.entries, entry)
		q.mu.Unlock()

		q.observer.IncCounter(ctx, "autopilot.queue.retry.total", 1, map[string]string{
			"topic": string(entry.Event.Topic),
		})
		q.observer.LogInfo(ctx, "queue entry requeued", map[string]any{
			"entry_id":      entry.ID,
			"topic":         string(entry.Event.Topic),
			"retries":       entry.Retries,
			"next_retry_at": nextRetryAt.Format(time.RFC3339),
			"error":         err.Error(),
		})
		return
	}

	if q.stats != nil {
		q.stats.RecordFailed(entry.Event)
	}
	q.observer.ObserveOperation(ctx, startedAt, "queue.process", err, map[string]any{
		"topic":    string(entry.Event.Topic),
		"entry_id": entry.ID,
		"retries":  entry.Retries,
		"terminal": true,
	})
}

var _ interface {
	Enqueue(ctx context.Context, event core.Event, pctx core.PipelineContext) error
} = (*MemoryQueue)(nil)
