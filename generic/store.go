/*
store.go - Persistence port for whole-state snapshots

PURPOSE:
  Defines the interface between the warehouse and whatever keeps its state
  across runs. The engine treats a snapshot as an opaque payload: the
  warehouse package encodes and decodes it, the store only keeps bytes.

CONTRACT:
  - Save(): Persist a snapshot. Snapshots are never updated in place.
  - Latest(): The most recently saved snapshot, or ErrMissingFileAssociation
  - Get(): A snapshot by id, or ErrUnavailableFile
  - List(): Metadata of every snapshot, oldest first

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite-backed
  - generic/store/memory.go: In-memory for testing

EXAMPLE:
  payload, _ := warehouse.EncodeState(w.Export())
  err := store.Save(ctx, generic.NewSnapshotRecord(w.Now(), "manual", payload))

SEE ALSO:
  - snapshot.go: SnapshotRecord
  - warehouse/state.go: State export/import
*/
package generic

import "context"

// SnapshotStore keeps whole-warehouse snapshots.
type SnapshotStore interface {
	// Save persists a snapshot. Fails if the id already exists.
	Save(ctx context.Context, rec SnapshotRecord) error

	// Latest returns the most recently saved snapshot.
	Latest(ctx context.Context) (SnapshotRecord, error)

	// Get returns a snapshot by id.
	Get(ctx context.Context, id string) (SnapshotRecord, error)

	// List returns snapshot metadata (payloads omitted), oldest first.
	List(ctx context.Context) ([]SnapshotRecord, error)
}
