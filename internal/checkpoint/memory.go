package checkpoint

import (
	"context"
	"sync"
)

// MemorySink is the default checkpoint sink: an in-process map, safe for
// concurrent runs, discarded when the process exits. Used for tests and
// for pipeline runs that don't need durability.
type MemorySink struct {
	mu        sync.RWMutex
	snapshots map[string][]byte
}

// NewMemorySink creates an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{snapshots: make(map[string][]byte)}
}

func (m *MemorySink) Save(ctx context.Context, executionID string, snapshot []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(snapshot))
	copy(cp, snapshot)
	m.snapshots[executionID] = cp
	return nil
}

func (m *MemorySink) Load(ctx context.Context, executionID string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap, ok := m.snapshots[executionID]
	if !ok {
		return nil, &ErrNotFound{ExecutionID: executionID}
	}
	cp := make([]byte, len(snap))
	copy(cp, snap)
	return cp, nil
}
