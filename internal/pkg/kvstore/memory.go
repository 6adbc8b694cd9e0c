package kvstore

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process Store. Data is lost on restart, which makes it the
// default for local development and the backend used by most tests.
type Memory struct {
	mu     sync.Mutex
	data   map[string][]byte
	expiry map[string]time.Time
	now    func() time.Time
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		data:   make(map[string][]byte),
		expiry: make(map[string]time.Time),
		now:    time.Now,
	}
}

func (m *Memory) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	value, exists := m.data[key]
	if !exists {
		return nil, ErrNotFound
	}

	if expTime, hasExpiry := m.expiry[key]; hasExpiry && m.now().After(expTime) {
		delete(m.data, key)
		delete(m.expiry, key)
		return nil, ErrNotFound
	}

	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

func (m *Memory) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := make([]byte, len(value))
	copy(stored, value)
	m.data[key] = stored

	if ttl > 0 {
		m.expiry[key] = m.now().Add(ttl)
	} else {
		delete(m.expiry, key)
	}
	return nil
}

func (m *Memory) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, key)
	delete(m.expiry, key)
	return nil
}
