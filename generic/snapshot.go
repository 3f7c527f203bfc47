package generic

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// SNAPSHOT RECORD - Frozen warehouse state
// =============================================================================

// SnapshotRecord is one saved state of the warehouse. Payload is produced
// and consumed by the warehouse package; stores treat it as opaque.
type SnapshotRecord struct {
	ID        string
	Day       Day // simulated day at which the snapshot was taken
	Reason    SnapshotReason
	Payload   []byte
	CreatedAt time.Time
}

type SnapshotReason string

const (
	SnapshotManual   SnapshotReason = "manual"   // Requested through the front-end
	SnapshotShutdown SnapshotReason = "shutdown" // Taken on graceful shutdown
	SnapshotScenario SnapshotReason = "scenario" // Taken after loading a demo scenario
)

// NewSnapshotRecord stamps a fresh id and wall-clock creation time.
func NewSnapshotRecord(day Day, reason SnapshotReason, payload []byte) SnapshotRecord {
	return SnapshotRecord{
		ID:        uuid.NewString(),
		Day:       day,
		Reason:    reason,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}
}
