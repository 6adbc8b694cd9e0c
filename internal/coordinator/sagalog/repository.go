package sagalog

import (
	"context"
	"slices"
	"sync"
)

// Repository is the write port used by the orchestrator.
type Repository interface {
	// Save appends an entry; the log is never updated in place.
	Save(ctx context.Context, entry *SagaLog) error
}

// Reader exposes the recorded history of a saga.
type Reader interface {
	// History returns every entry for sagaID, oldest first.
	History(ctx context.Context, sagaID string) ([]SagaLog, error)
}

// Memory keeps the log in process.
type Memory struct {
	mu      sync.Mutex
	entries map[string][]SagaLog
}

var (
	_ Repository = (*Memory)(nil)
	_ Reader     = (*Memory)(nil)
)

func NewMemory() *Memory {
	return &Memory{entries: make(map[string][]SagaLog)}
}

func (m *Memory) Save(ctx context.Context, entry *SagaLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[entry.SagaID] = append(m.entries[entry.SagaID], *entry)
	return nil
}

func (m *Memory) History(ctx context.Context, sagaID string) ([]SagaLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.entries[sagaID]), nil
}
