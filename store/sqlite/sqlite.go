/*
Package sqlite provides a SQLite-backed implementation of generic.SnapshotStore.

PURPOSE:
  Keeps whole-warehouse snapshots across runs. The warehouse encodes its
  State as JSON; this package stores the bytes with a little metadata and
  hands them back unchanged.

APPEND-ONLY ENFORCEMENT:
  - No UPDATE statements on the snapshots table
  - No DELETE statements except Reset (tests and demos)
  - Saving an existing id fails

KEY TABLES:
  snapshots: id (uuid), simulated day, reason, JSON payload, wall-clock
             creation time. seq orders snapshots by insertion.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging):
  - Readers don't block the writer
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/warehouse.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  payload, _ := warehouse.EncodeState(w.Export())
  err = store.Save(ctx, generic.NewSnapshotRecord(w.Now(), generic.SnapshotManual, payload))

MIGRATION:
  Schema is auto-migrated on New().

SEE ALSO:
  - generic/store.go: Interface definition
  - generic/store/memory.go: In-memory implementation for testing
  - warehouse/state.go: What the payload contains
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/warp/wholesale-engine/generic"
)

// Store implements generic.SnapshotStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Each connection to :memory: is its own database.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS snapshots (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		day INTEGER NOT NULL,
		reason TEXT NOT NULL,
		payload_json TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_snapshots_reason ON snapshots(reason);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// SNAPSHOT STORE
// =============================================================================

// Save persists a snapshot. Fails if the id was already saved.
func (s *Store) Save(ctx context.Context, rec generic.SnapshotRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO snapshots (id, day, reason, payload_json, created_at) VALUES (?, ?, ?, ?, ?)`,
		rec.ID, int(rec.Day), string(rec.Reason), string(rec.Payload), createdAt.Format(time.RFC3339Nano),
	)
	if isUniqueConstraintError(err) {
		return fmt.Errorf("snapshot %s already saved", rec.ID)
	}
	return err
}

// Latest returns the most recently saved snapshot.
func (s *Store) Latest(ctx context.Context) (generic.SnapshotRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT id, day, reason, payload_json, created_at FROM snapshots ORDER BY seq DESC LIMIT 1`)
	rec, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return generic.SnapshotRecord{}, generic.ErrMissingFileAssociation
	}
	if err != nil {
		return generic.SnapshotRecord{}, fmt.Errorf("%w: %v", generic.ErrUnavailableFile, err)
	}
	return rec, nil
}

// Get returns a snapshot by id.
func (s *Store) Get(ctx context.Context, id string) (generic.SnapshotRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT id, day, reason, payload_json, created_at FROM snapshots WHERE id = ?`, id)
	rec, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return generic.SnapshotRecord{}, fmt.Errorf("snapshot %s: %w", id, generic.ErrUnavailableFile)
	}
	if err != nil {
		return generic.SnapshotRecord{}, fmt.Errorf("snapshot %s: %w: %v", id, generic.ErrUnavailableFile, err)
	}
	return rec, nil
}

// List returns snapshot metadata, oldest first. Payloads are omitted.
func (s *Store) List(ctx context.Context) ([]generic.SnapshotRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, day, reason, '', created_at FROM snapshots ORDER BY seq ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []generic.SnapshotRecord
	for rows.Next() {
		rec, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		rec.Payload = nil
		result = append(result, rec)
	}
	return result, rows.Err()
}

// Reset clears all snapshots (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM snapshots")
	return err
}

// =============================================================================
// HELPERS
// =============================================================================

type scanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row scanner) (generic.SnapshotRecord, error) {
	var (
		rec       generic.SnapshotRecord
		day       int
		reason    string
		payload   string
		createdAt string
	)
	if err := row.Scan(&rec.ID, &day, &reason, &payload, &createdAt); err != nil {
		return generic.SnapshotRecord{}, err
	}
	rec.Day = generic.Day(day)
	rec.Reason = generic.SnapshotReason(reason)
	rec.Payload = []byte(payload)
	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return rec, nil
}

func isUniqueConstraintError(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

var _ generic.SnapshotStore = (*Store)(nil)
