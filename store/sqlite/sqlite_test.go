package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/wholesale-engine/generic"
	"github.com/warp/wholesale-engine/store/sqlite"
	"github.com/warp/wholesale-engine/warehouse"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_LatestOnEmpty(t *testing.T) {
	store := newStore(t)

	_, err := store.Latest(context.Background())

	assert.ErrorIs(t, err, generic.ErrMissingFileAssociation)
}

func TestStore_SaveAndLatest(t *testing.T) {
	// GIVEN
	ctx := context.Background()
	store := newStore(t)
	first := generic.NewSnapshotRecord(3, generic.SnapshotManual, []byte(`{"day":3}`))
	second := generic.NewSnapshotRecord(7, generic.SnapshotShutdown, []byte(`{"day":7}`))

	// WHEN
	require.NoError(t, store.Save(ctx, first))
	require.NoError(t, store.Save(ctx, second))

	// THEN
	latest, err := store.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)
	assert.Equal(t, generic.Day(7), latest.Day)
	assert.Equal(t, generic.SnapshotShutdown, latest.Reason)
	assert.Equal(t, `{"day":7}`, string(latest.Payload))

	got, err := store.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, `{"day":3}`, string(got.Payload))

	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID)
	assert.Nil(t, list[0].Payload)
}

func TestStore_DuplicateID(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	rec := generic.NewSnapshotRecord(1, generic.SnapshotManual, []byte(`{}`))
	require.NoError(t, store.Save(ctx, rec))

	err := store.Save(ctx, rec)

	assert.Error(t, err)
	list, _ := store.List(ctx)
	assert.Len(t, list, 1)
}

func TestStore_GetUnknown(t *testing.T) {
	_, err := newStore(t).Get(context.Background(), "nope")

	assert.ErrorIs(t, err, generic.ErrUnavailableFile)
}

func TestStore_Reset(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	require.NoError(t, store.Save(ctx, generic.NewSnapshotRecord(1, generic.SnapshotManual, []byte(`{}`))))

	require.NoError(t, store.Reset(ctx))

	_, err := store.Latest(ctx)
	assert.ErrorIs(t, err, generic.ErrMissingFileAssociation)
}

func TestStore_WarehouseSurvivesReopen(t *testing.T) {
	// GIVEN: a warehouse saved to a database file
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "warehouse.db")
	w := warehouse.New()
	require.NoError(t, w.RegisterPartner("X", "Xavier", "Lisbon"))
	require.NoError(t, w.RegisterSimpleProduct("P1"))
	_, err := w.RegisterAcquisition("X", "P1", generic.NewPriceFromInt(12), 5)
	require.NoError(t, err)
	payload, err := warehouse.EncodeState(w.Export())
	require.NoError(t, err)

	store, err := sqlite.New(path)
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, generic.NewSnapshotRecord(w.Now(), generic.SnapshotShutdown, payload)))
	require.NoError(t, store.Close())

	// WHEN: the database is reopened and the latest snapshot loaded
	store, err = sqlite.New(path)
	require.NoError(t, err)
	defer store.Close()
	rec, err := store.Latest(ctx)
	require.NoError(t, err)
	state, err := warehouse.DecodeState(rec.Payload)
	require.NoError(t, err)
	restored, err := warehouse.FromState(state)
	require.NoError(t, err)

	// THEN
	p, err := restored.Product("p1")
	require.NoError(t, err)
	assert.Equal(t, 5, p.Stock())
	assert.Equal(t, "-60", restored.AvailableBalance().String())
}
