/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that replace the warehouse contents with a
	small, known state. Each scenario registers partners and products and
	runs the transactions that demonstrate one feature.

AVAILABLE SCENARIOS:

	acquisition:  10 units of P1 bought from X at 100
	credit-sale:  4 units sold to X on credit, paid two days late
	breakdown:    A KIT (2 × P1) broken down by Y
	catalog:      Partners, products and batches from a text import file

HOW SCENARIOS WORK:
 1. Build a fresh warehouse on day 0
 2. Run the scenario loader against it
 3. Restore the handler's warehouse from the fresh state
 4. Save a "scenario" snapshot

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "breakdown"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Create loader function: loadXxxScenario(w)
 3. Add it to the 'loaders' map

NOTE:

	Scenarios discard the current state. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Snapshot helpers
  - factory/import.go: Import file format
*/
package api

import (
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/warp/wholesale-engine/factory"
	"github.com/warp/wholesale-engine/generic"
	"github.com/warp/wholesale-engine/warehouse"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "acquisition",
		Name:        "Acquisition",
		Description: "Ten units of P1 bought from partner X at 100 each",
	},
	{
		ID:          "credit-sale",
		Name:        "Late Credit Sale",
		Description: "Four units sold to X with deadline day 10, paid on day 12 at the late price",
	},
	{
		ID:          "breakdown",
		Name:        "Breakdown Sale",
		Description: "Partner Y breaks one KIT (2 × P1, aggravation 0.1) back into components",
	},
	{
		ID:          "catalog",
		Name:        "Imported Catalog",
		Description: "Partners, simple and aggregate products loaded from an import file",
	},
}

var loaders = map[string]func(*warehouse.Warehouse) error{
	"acquisition": loadAcquisitionScenario,
	"credit-sale": loadCreditSaleScenario,
	"breakdown":   loadBreakdownScenario,
	"catalog":     loadCatalogScenario,
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the scenario loaded last, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario replaces the warehouse with the requested scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.loadScenario(req.ScenarioID); err != nil {
		if _, ok := loaders[req.ScenarioID]; !ok {
			writeError(w, http.StatusBadRequest, "Unknown scenario", err)
			return
		}
		h.logger.Error("scenario failed", zap.String("scenario", req.ScenarioID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}
	if _, err := h.saveSnapshot(r.Context(), generic.SnapshotScenario); err != nil {
		writeDomainError(w, "Failed to save snapshot", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "ok",
		"scenario": req.ScenarioID,
	})
}

func (h *Handler) loadScenario(id string) error {
	load, ok := loaders[id]
	if !ok {
		return fmt.Errorf("unknown scenario: %s", id)
	}
	fresh := warehouse.New()
	if err := load(fresh); err != nil {
		return fmt.Errorf("scenario %s: %w", id, err)
	}
	if err := h.w.Restore(fresh.Export()); err != nil {
		return err
	}
	h.currentScenario = id
	h.logger.Info("scenario loaded", zap.String("scenario", id))
	return nil
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func loadAcquisitionScenario(w *warehouse.Warehouse) error {
	if err := w.RegisterPartner("X", "Xavier Supplies", "Lisbon"); err != nil {
		return err
	}
	if err := w.RegisterPartner("Y", "Yara Trading", "Porto"); err != nil {
		return err
	}
	if err := w.RegisterSimpleProduct("P1"); err != nil {
		return err
	}
	_, err := w.RegisterAcquisition("X", "P1", generic.NewPriceFromInt(100), 10)
	return err
}

func loadCreditSaleScenario(w *warehouse.Warehouse) error {
	if err := loadAcquisitionScenario(w); err != nil {
		return err
	}
	sale, err := w.RegisterCreditSale("X", "P1", 10, 4)
	if err != nil {
		return err
	}
	if err := w.AdvanceDate(12); err != nil {
		return err
	}
	return w.ReceivePayment(sale.ID())
}

func loadBreakdownScenario(w *warehouse.Warehouse) error {
	if err := loadAcquisitionScenario(w); err != nil {
		return err
	}
	err := w.RegisterAggregateProduct("KIT", warehouse.Recipe{
		Aggravation: generic.MustParseDecimal("0.1"),
		Components:  []warehouse.Component{{Product: "P1", Quantity: 2}},
	})
	if err != nil {
		return err
	}
	if _, err := w.RegisterAcquisition("X", "KIT", generic.NewPriceFromInt(250), 3); err != nil {
		return err
	}
	_, err = w.RegisterBreakdownSale("Y", "KIT", 1)
	return err
}

const catalogFile = `PARTNER|M1|Metalworks|Braga
PARTNER|W1|Woodshop|Coimbra
BATCH_S|IRON|M1|8|40
BATCH_S|WOOD|W1|3|100
BATCH_M|CHAIR|W1|120|3|0.2|WOOD:4#IRON:2
`

func loadCatalogScenario(w *warehouse.Warehouse) error {
	_, err := factory.NewImporter(w, nil).Import(strings.NewReader(catalogFile))
	return err
}
