package session

import (
	"context"
	"sync"
	"time"

	"github.com/garyellow/buscacursos-bot-go/internal/metrics"
)

// Locker serializes work per key (conversation ID).
// Different keys never block each other. Entries are reference counted and
// removed as soon as the last holder or waiter leaves, so idle conversations
// cost nothing.
//
// The lock is local to the process. Shared backends (sqlite on a shared
// volume, redis, s3) do not serialize a conversation across several bot
// instances; the bot runs as a single instance.
type Locker struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
	metrics *metrics.Metrics // Optional
}

// lockEntry is a one-slot semaphore plus the number of goroutines holding
// or waiting for it.
type lockEntry struct {
	sem  chan struct{}
	refs int
}

// NewLocker creates a keyed lock. m may be nil.
func NewLocker(m *metrics.Metrics) *Locker {
	return &Locker{
		entries: make(map[string]*lockEntry),
		metrics: m,
	}
}

// Lock blocks until key is free or ctx is done.
// The returned unlock function is safe to call more than once.
func (l *Locker) Lock(ctx context.Context, key string) (unlock func(), err error) {
	entry := l.acquire(key)
	start := time.Now()

	select {
	case entry.sem <- struct{}{}:
	case <-ctx.Done():
		l.release(key, entry)
		return nil, ctx.Err()
	}

	if l.metrics != nil {
		l.metrics.RecordSessionLockWait(time.Since(start).Seconds())
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-entry.sem
			l.release(key, entry)
		})
	}, nil
}

// acquire returns the entry for key, creating it if needed, and takes a reference.
func (l *Locker) acquire(key string) *lockEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, exists := l.entries[key]
	if !exists {
		entry = &lockEntry{sem: make(chan struct{}, 1)}
		l.entries[key] = entry
	}
	entry.refs++
	return entry
}

// release drops a reference and removes the entry when unused.
func (l *Locker) release(key string, entry *lockEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry.refs--
	if entry.refs == 0 {
		delete(l.entries, key)
	}
}

// Active returns the number of keys currently held or awaited.
func (l *Locker) Active() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
