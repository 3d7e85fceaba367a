package session

import (
	"context"
	"sync"
)

// Store persists sessions by conversation ID.
//
// Get returns (nil, nil) when the conversation has no session yet.
// Implementations must not retain or hand out memory shared with callers.
// Stores are not required to be atomic per key; callers serialize turns of
// one conversation with a Locker.
type Store interface {
	Get(ctx context.Context, conversationID string) (*Session, error)
	Put(ctx context.Context, conversationID string, s *Session) error
}

// Pinger is implemented by stores that can report backend health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// MemoryStore keeps encoded sessions in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

// Get implements Store.
func (m *MemoryStore) Get(_ context.Context, conversationID string) (*Session, error) {
	m.mu.RLock()
	data, ok := m.data[conversationID]
	m.mu.RUnlock()

	if !ok {
		return nil, nil
	}
	return Unmarshal(data)
}

// Put implements Store.
func (m *MemoryStore) Put(_ context.Context, conversationID string, s *Session) error {
	data, err := Marshal(s)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.data[conversationID] = data
	m.mu.Unlock()
	return nil
}

// Ping implements Pinger.
func (m *MemoryStore) Ping(context.Context) error {
	return nil
}

// Len returns the number of stored conversations.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
