/*
scenarios_test.go - Unit tests for demo scenarios

PURPOSE:
	Tests that each scenario correctly sets up the expected state:
	- Partners and products are registered
	- Transactions are generated correctly
	- Balances match expected values
	- A scenario snapshot is saved

These tests ensure scenarios work correctly and can be used as integration tests.
*/
package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/wholesale-engine/generic"
	"github.com/warp/wholesale-engine/generic/store"
	"github.com/warp/wholesale-engine/warehouse"
)

func setupTestHandler(t *testing.T) (*Handler, *store.Memory) {
	t.Helper()
	snapshots := store.NewMemory()
	return NewHandler(warehouse.New(), snapshots, nil), snapshots
}

func TestScenario_Acquisition(t *testing.T) {
	h, _ := setupTestHandler(t)

	require.NoError(t, h.loadScenario("acquisition"))

	assert.Equal(t, "-1000", h.w.AvailableBalance().String())
	tx, err := h.w.Transaction(0)
	require.NoError(t, err)
	assert.Equal(t, "ACQUISITION|0|X|P1|10|1000|0", h.w.RenderTransaction(tx))
}

func TestScenario_CreditSale(t *testing.T) {
	h, _ := setupTestHandler(t)

	require.NoError(t, h.loadScenario("credit-sale"))

	assert.Equal(t, generic.Day(12), h.w.Now())
	assert.Equal(t, "-560", h.w.AvailableBalance().String())
	tx, err := h.w.Transaction(1)
	require.NoError(t, err)
	assert.Equal(t, "SALE|1|X|P1|4|400|440|10|12", h.w.RenderTransaction(tx))
}

func TestScenario_Breakdown(t *testing.T) {
	h, _ := setupTestHandler(t)

	require.NoError(t, h.loadScenario("breakdown"))

	assert.Equal(t, "-1700", h.w.AvailableBalance().String())
	y, err := h.w.Partner("Y")
	require.NoError(t, err)
	assert.Equal(t, int64(500), y.Status().Points)
}

func TestScenario_Catalog(t *testing.T) {
	h, _ := setupTestHandler(t)

	require.NoError(t, h.loadScenario("catalog"))

	chair, err := h.w.Product("chair")
	require.NoError(t, err)
	assert.Equal(t, warehouse.KindAggregate, chair.Kind())
	assert.Equal(t, 3, chair.Stock())
	assert.Empty(t, h.w.Transactions())
}

func TestScenario_ReplacesPreviousState(t *testing.T) {
	// GIVEN: a partner registered outside any scenario
	h, _ := setupTestHandler(t)
	require.NoError(t, h.w.RegisterPartner("OLD", "Old", "Nowhere"))

	// WHEN
	require.NoError(t, h.loadScenario("acquisition"))

	// THEN: the earlier registry is gone
	_, err := h.w.Partner("OLD")
	assert.ErrorIs(t, err, generic.ErrUnknownPartner)
	assert.Equal(t, "acquisition", h.currentScenario)
}

func TestScenario_AllScenariosLoadWithoutError(t *testing.T) {
	for _, sc := range scenarios {
		t.Run(sc.ID, func(t *testing.T) {
			h, _ := setupTestHandler(t)
			assert.NoError(t, h.loadScenario(sc.ID))
		})
	}
	assert.Len(t, loaders, len(scenarios))
}

func TestLoadScenario_Endpoint(t *testing.T) {
	h, snapshots := setupTestHandler(t)
	router := NewRouter(h, nil, nil)
	s := &testServer{t: t, handler: h, router: router}

	s.must(http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "breakdown"}, http.StatusOK, nil)
	assert.Equal(t, http.StatusBadRequest,
		s.do(http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "nope"}).Code)

	var current ScenarioDTO
	s.must(http.MethodGet, "/api/scenarios/current", nil, http.StatusOK, &current)
	assert.Equal(t, "breakdown", current.ID)

	latest, err := snapshots.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, generic.SnapshotScenario, latest.Reason)

	var listed []ScenarioDTO
	s.must(http.MethodGet, "/api/scenarios", nil, http.StatusOK, &listed)
	assert.Len(t, listed, len(scenarios))
}
