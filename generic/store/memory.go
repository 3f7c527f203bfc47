// Package store provides SnapshotStore implementations.
package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/warp/wholesale-engine/generic"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu        sync.RWMutex
	snapshots []generic.SnapshotRecord
	index     map[string]int
}

func NewMemory() *Memory {
	return &Memory{index: make(map[string]int)}
}

// Save appends a snapshot. Append-only.
func (m *Memory) Save(_ context.Context, rec generic.SnapshotRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.index[rec.ID]; exists {
		return fmt.Errorf("snapshot %s already saved", rec.ID)
	}
	rec.Payload = append([]byte(nil), rec.Payload...)
	m.index[rec.ID] = len(m.snapshots)
	m.snapshots = append(m.snapshots, rec)
	return nil
}

func (m *Memory) Latest(_ context.Context) (generic.SnapshotRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.snapshots) == 0 {
		return generic.SnapshotRecord{}, generic.ErrMissingFileAssociation
	}
	return copyRecord(m.snapshots[len(m.snapshots)-1]), nil
}

func (m *Memory) Get(_ context.Context, id string) (generic.SnapshotRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	i, ok := m.index[id]
	if !ok {
		return generic.SnapshotRecord{}, fmt.Errorf("snapshot %s: %w", id, generic.ErrUnavailableFile)
	}
	return copyRecord(m.snapshots[i]), nil
}

func (m *Memory) List(_ context.Context) ([]generic.SnapshotRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]generic.SnapshotRecord, len(m.snapshots))
	for i, rec := range m.snapshots {
		rec.Payload = nil
		result[i] = rec
	}
	return result, nil
}

func copyRecord(rec generic.SnapshotRecord) generic.SnapshotRecord {
	rec.Payload = append([]byte(nil), rec.Payload...)
	return rec
}

var _ generic.SnapshotStore = (*Memory)(nil)
