package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/wholesale-engine/generic"
	"github.com/warp/wholesale-engine/generic/store"
)

func TestMemory_SaveLatestGet(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()

	_, err := m.Latest(ctx)
	assert.ErrorIs(t, err, generic.ErrMissingFileAssociation)

	payload := []byte(`{"day":1}`)
	rec := generic.NewSnapshotRecord(1, generic.SnapshotManual, payload)
	require.NoError(t, m.Save(ctx, rec))
	payload[0] = 'X' // caller's buffer is not shared

	latest, err := m.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, `{"day":1}`, string(latest.Payload))

	assert.Error(t, m.Save(ctx, rec), "ids are unique")

	_, err = m.Get(ctx, "missing")
	assert.ErrorIs(t, err, generic.ErrUnavailableFile)

	list, err := m.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Nil(t, list[0].Payload)
}
