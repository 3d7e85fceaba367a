package logger

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const (
	defaultQueueSize     = 1024
	defaultDrainDeadline = 5 * time.Second
)

// AsyncOptions configures remote log shipping.
type AsyncOptions struct {
	QueueSize     int
	DrainDeadline time.Duration
}

type queued struct {
	handler slog.Handler
	record  slog.Record
}

// queue feeds records to a single background goroutine.
// Records are dropped (and counted) when the queue is full.
type queue struct {
	mu       sync.RWMutex
	records  chan queued
	closed   bool
	done     chan struct{}
	dropped  atomic.Uint64
	deadline time.Duration
}

func newQueue(opts AsyncOptions) *queue {
	size := opts.QueueSize
	if size <= 0 {
		size = defaultQueueSize
	}
	deadline := opts.DrainDeadline
	if deadline <= 0 {
		deadline = defaultDrainDeadline
	}

	q := &queue{
		records:  make(chan queued, size),
		done:     make(chan struct{}),
		deadline: deadline,
	}
	go func() {
		defer close(q.done)
		for item := range q.records {
			// The request context is usually gone by now.
			_ = item.handler.Handle(context.Background(), item.record)
		}
	}()
	return q
}

func (q *queue) push(h slog.Handler, r slog.Record) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return
	}
	select {
	case q.records <- queued{handler: h, record: r}:
	default:
		q.dropped.Add(1)
	}
}

func (q *queue) close(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.records)
	q.mu.Unlock()

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.deadline)
		defer cancel()
	}
	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ShippingHandler hands records to a background goroutine so that a slow
// remote sink never blocks the caller.
type ShippingHandler struct {
	q    *queue
	next slog.Handler
}

// NewShippingHandler wraps next with a bounded queue.
func NewShippingHandler(next slog.Handler, opts AsyncOptions) *ShippingHandler {
	return &ShippingHandler{q: newQueue(opts), next: next}
}

func (h *ShippingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *ShippingHandler) Handle(_ context.Context, r slog.Record) error {
	h.q.push(h.next, r.Clone())
	return nil
}

func (h *ShippingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ShippingHandler{q: h.q, next: h.next.WithAttrs(attrs)}
}

func (h *ShippingHandler) WithGroup(name string) slog.Handler {
	return &ShippingHandler{q: h.q, next: h.next.WithGroup(name)}
}

// Dropped reports how many records were discarded because the queue was full.
func (h *ShippingHandler) Dropped() uint64 {
	if h == nil {
		return 0
	}
	return h.q.dropped.Load()
}

// Shutdown stops accepting records and waits for the queue to drain.
func (h *ShippingHandler) Shutdown(ctx context.Context) error {
	if h == nil {
		return nil
	}
	return h.q.close(ctx)
}
