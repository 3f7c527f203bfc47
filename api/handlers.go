/*
handlers.go - HTTP request handlers for the wholesale engine API

PURPOSE:
  Implements all HTTP endpoints for the warehouse. Each handler:
  1. Parses request (URL params, query string, JSON body)
  2. Calls the warehouse under the handler lock
  3. Returns JSON response

ARCHITECTURE:
  Handler holds one *warehouse.Warehouse, which is not safe for concurrent
  use; every endpoint takes h.mu for the whole call. Snapshot restores and
  scenario loads replace the warehouse contents in place, so the importer
  and other holders of the pointer stay valid.

ENDPOINTS:
  Clock and balances:
    GET  /api/date                       - Current simulated day
    POST /api/date/advance               - Advance the clock
    GET  /api/balance                    - Available and accounting balances

  Products:
    GET  /api/products                   - List products
    POST /api/products                   - Register simple or aggregate product
    GET  /api/products/{key}/batches     - Batches of one product
    GET  /api/batches                    - All batches (?max_price= filters)

  Partners:
    GET  /api/partners                   - List partners
    POST /api/partners                   - Register partner
    GET  /api/partners/{key}             - One partner with totals
    GET  /api/partners/{key}/batches     - Batches supplied by the partner
    GET  /api/partners/{key}/acquisitions
    GET  /api/partners/{key}/sales
    GET  /api/partners/{key}/paid
    GET  /api/partners/{key}/notifications - Drains pending notifications
    POST /api/partners/{key}/subscriptions/{product} - Toggle subscription

  Transactions:
    POST /api/transactions/acquisitions
    POST /api/transactions/sales
    POST /api/transactions/breakdowns
    GET  /api/transactions/{id}
    POST /api/transactions/{id}/payment

  Bulk and persistence:
    POST /api/import                     - Text import file in the body
    GET  /api/snapshots                  - Saved snapshots
    POST /api/snapshots                  - Save current state
    POST /api/snapshots/latest/restore   - Restore most recent snapshot

ERROR HANDLING:
  - 400 Bad Request: Invalid input, insufficient stock, bad import entry
  - 404 Not Found: Unknown partner/product/transaction, no snapshot
  - 409 Conflict: Duplicate key
  - 500 Internal Server Error: Persistence failures

SEE ALSO:
  - server.go: Router configuration
  - dto.go: Request/response types
  - scenarios.go: Demo scenario loaders
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/warp/wholesale-engine/factory"
	"github.com/warp/wholesale-engine/generic"
	"github.com/warp/wholesale-engine/warehouse"
)

// Handler handles HTTP requests.
type Handler struct {
	mu              sync.Mutex
	w               *warehouse.Warehouse
	store           generic.SnapshotStore
	importer        *factory.Importer
	logger          *zap.Logger
	currentScenario string
}

// NewHandler creates a new handler around w, persisting snapshots to store.
func NewHandler(w *warehouse.Warehouse, store generic.SnapshotStore, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		w:        w,
		store:    store,
		importer: factory.NewImporter(w, logger),
		logger:   logger,
	}
}

// =============================================================================
// SNAPSHOTS
// =============================================================================

// SaveSnapshot persists the current state.
func (h *Handler) SaveSnapshot(ctx context.Context, reason generic.SnapshotReason) (generic.SnapshotRecord, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.saveSnapshot(ctx, reason)
}

func (h *Handler) saveSnapshot(ctx context.Context, reason generic.SnapshotReason) (generic.SnapshotRecord, error) {
	payload, err := warehouse.EncodeState(h.w.Export())
	if err != nil {
		return generic.SnapshotRecord{}, fmt.Errorf("encode state: %w", err)
	}
	rec := generic.NewSnapshotRecord(h.w.Now(), reason, payload)
	if err := h.store.Save(ctx, rec); err != nil {
		return generic.SnapshotRecord{}, err
	}
	h.logger.Info("snapshot saved",
		zap.String("id", rec.ID),
		zap.String("reason", string(reason)),
		zap.Int("day", int(rec.Day)))
	return rec, nil
}

// RestoreLatest replaces the warehouse contents with the most recent
// snapshot. Returns ErrMissingFileAssociation when none was ever saved.
func (h *Handler) RestoreLatest(ctx context.Context) (generic.SnapshotRecord, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	rec, err := h.store.Latest(ctx)
	if err != nil {
		return generic.SnapshotRecord{}, err
	}
	state, err := warehouse.DecodeState(rec.Payload)
	if err != nil {
		return generic.SnapshotRecord{}, fmt.Errorf("%w: %v", generic.ErrUnavailableFile, err)
	}
	if err := h.w.Restore(state); err != nil {
		return generic.SnapshotRecord{}, fmt.Errorf("%w: %v", generic.ErrUnavailableFile, err)
	}
	h.logger.Info("snapshot restored", zap.String("id", rec.ID), zap.Int("day", int(rec.Day)))
	return rec, nil
}

func (h *Handler) CreateSnapshot(w http.ResponseWriter, r *http.Request) {
	rec, err := h.SaveSnapshot(r.Context(), generic.SnapshotManual)
	if err != nil {
		writeDomainError(w, "Failed to save snapshot", err)
		return
	}
	writeJSON(w, http.StatusCreated, toSnapshotDTO(rec))
}

func (h *Handler) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	recs, err := h.store.List(r.Context())
	if err != nil {
		writeDomainError(w, "Failed to list snapshots", err)
		return
	}
	out := make([]SnapshotDTO, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toSnapshotDTO(rec))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) RestoreLatestSnapshot(w http.ResponseWriter, r *http.Request) {
	rec, err := h.RestoreLatest(r.Context())
	if err != nil {
		writeDomainError(w, "Failed to restore snapshot", err)
		return
	}
	writeJSON(w, http.StatusOK, toSnapshotDTO(rec))
}

// =============================================================================
// CLOCK AND BALANCES
// =============================================================================

func (h *Handler) GetDate(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()
	writeJSON(w, http.StatusOK, DateDTO{Day: int(h.w.Now())})
}

func (h *Handler) AdvanceDate(w http.ResponseWriter, r *http.Request) {
	var req AdvanceDateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.w.AdvanceDate(req.Days); err != nil {
		writeDomainError(w, "Failed to advance date", err)
		return
	}
	writeJSON(w, http.StatusOK, DateDTO{Day: int(h.w.Now())})
}

func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()
	writeJSON(w, http.StatusOK, BalanceDTO{
		Available:  h.w.AvailableBalance(),
		Accounting: h.w.AccountingBalance(),
	})
}

// =============================================================================
// PRODUCT ENDPOINTS
// =============================================================================

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	products := h.w.Products()
	out := make([]ProductDTO, 0, len(products))
	for _, p := range products {
		out = append(out, toProductDTO(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Key == "" {
		writeError(w, http.StatusBadRequest, "key is required", nil)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	key := generic.ProductKey(req.Key)
	var err error
	if len(req.Components) == 0 {
		err = h.w.RegisterSimpleProduct(key)
	} else {
		err = h.w.RegisterAggregateProduct(key, toRecipe(req))
	}
	if err != nil {
		writeDomainError(w, "Failed to register product", err)
		return
	}
	p, err := h.w.Product(key)
	if err != nil {
		writeDomainError(w, "Failed to load product", err)
		return
	}
	writeJSON(w, http.StatusCreated, toProductDTO(p))
}

func (h *Handler) ListProductBatches(w http.ResponseWriter, r *http.Request) {
	key := generic.ProductKey(chi.URLParam(r, "key"))

	h.mu.Lock()
	defer h.mu.Unlock()

	batches, err := h.w.BatchesByProduct(key)
	if err != nil {
		writeDomainError(w, "Failed to list batches", err)
		return
	}
	writeJSON(w, http.StatusOK, toBatchDTOs(batches))
}

// ListBatches returns every batch, or only those cheaper than max_price.
func (h *Handler) ListBatches(w http.ResponseWriter, r *http.Request) {
	var limit *decimal.Decimal
	if raw := r.URL.Query().Get("max_price"); raw != "" {
		d, err := decimal.NewFromString(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid max_price", err)
			return
		}
		limit = &d
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if limit != nil {
		writeJSON(w, http.StatusOK, toBatchDTOs(h.w.BatchesUnder(*limit)))
		return
	}
	writeJSON(w, http.StatusOK, toBatchDTOs(h.w.Batches()))
}

// =============================================================================
// PARTNER ENDPOINTS
// =============================================================================

func (h *Handler) ListPartners(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	partners := h.w.Partners()
	out := make([]PartnerDTO, 0, len(partners))
	for _, p := range partners {
		dto, err := h.partnerDTO(p.Key())
		if err != nil {
			writeDomainError(w, "Failed to list partners", err)
			return
		}
		out = append(out, dto)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) CreatePartner(w http.ResponseWriter, r *http.Request) {
	var req CreatePartnerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Key == "" {
		writeError(w, http.StatusBadRequest, "key is required", nil)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	key := generic.PartnerKey(req.Key)
	if err := h.w.RegisterPartner(key, req.Name, req.Address); err != nil {
		writeDomainError(w, "Failed to register partner", err)
		return
	}
	dto, err := h.partnerDTO(key)
	if err != nil {
		writeDomainError(w, "Failed to load partner", err)
		return
	}
	writeJSON(w, http.StatusCreated, dto)
}

func (h *Handler) GetPartner(w http.ResponseWriter, r *http.Request) {
	key := generic.PartnerKey(chi.URLParam(r, "key"))

	h.mu.Lock()
	defer h.mu.Unlock()

	dto, err := h.partnerDTO(key)
	if err != nil {
		writeDomainError(w, "Failed to get partner", err)
		return
	}
	writeJSON(w, http.StatusOK, dto)
}

func (h *Handler) partnerDTO(key generic.PartnerKey) (PartnerDTO, error) {
	p, err := h.w.Partner(key)
	if err != nil {
		return PartnerDTO{}, err
	}
	values, err := h.w.PartnerValues(key)
	if err != nil {
		return PartnerDTO{}, err
	}
	record, err := h.w.RenderPartner(key)
	if err != nil {
		return PartnerDTO{}, err
	}
	return PartnerDTO{
		Key:          string(p.Key()),
		Name:         p.Name(),
		Address:      p.Address(),
		Tier:         p.Status().Tier.String(),
		Points:       p.Status().Points,
		Acquisitions: values.Acquisitions,
		Sales:        values.Sales,
		PaidSales:    values.PaidSales,
		Record:       record,
	}, nil
}

func (h *Handler) ListPartnerBatches(w http.ResponseWriter, r *http.Request) {
	key := generic.PartnerKey(chi.URLParam(r, "key"))

	h.mu.Lock()
	defer h.mu.Unlock()

	batches, err := h.w.BatchesByPartner(key)
	if err != nil {
		writeDomainError(w, "Failed to list batches", err)
		return
	}
	writeJSON(w, http.StatusOK, toBatchDTOs(batches))
}

func (h *Handler) ListPartnerAcquisitions(w http.ResponseWriter, r *http.Request) {
	key := generic.PartnerKey(chi.URLParam(r, "key"))

	h.mu.Lock()
	defer h.mu.Unlock()

	acquisitions, err := h.w.PartnerAcquisitions(key)
	if err != nil {
		writeDomainError(w, "Failed to list acquisitions", err)
		return
	}
	out := make([]TransactionDTO, 0, len(acquisitions))
	for _, a := range acquisitions {
		out = append(out, h.transactionDTO(a))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) ListPartnerSales(w http.ResponseWriter, r *http.Request) {
	h.listSales(w, r, h.w.PartnerSales)
}

func (h *Handler) ListPartnerPaidSales(w http.ResponseWriter, r *http.Request) {
	h.listSales(w, r, h.w.PartnerPaidSales)
}

func (h *Handler) listSales(w http.ResponseWriter, r *http.Request, lookup func(generic.PartnerKey) ([]warehouse.Transaction, error)) {
	key := generic.PartnerKey(chi.URLParam(r, "key"))

	h.mu.Lock()
	defer h.mu.Unlock()

	sales, err := lookup(key)
	if err != nil {
		writeDomainError(w, "Failed to list sales", err)
		return
	}
	writeJSON(w, http.StatusOK, h.transactionDTOs(sales))
}

// ListNotifications returns and clears the partner's pending notifications.
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	key := generic.PartnerKey(chi.URLParam(r, "key"))

	h.mu.Lock()
	defer h.mu.Unlock()

	ns, err := h.w.Notifications(key)
	if err != nil {
		writeDomainError(w, "Failed to read notifications", err)
		return
	}
	writeJSON(w, http.StatusOK, toNotificationDTOs(ns))
}

func (h *Handler) ToggleSubscription(w http.ResponseWriter, r *http.Request) {
	partner := generic.PartnerKey(chi.URLParam(r, "key"))
	product := generic.ProductKey(chi.URLParam(r, "product"))

	h.mu.Lock()
	defer h.mu.Unlock()

	on, err := h.w.ToggleNotifications(partner, product)
	if err != nil {
		writeDomainError(w, "Failed to toggle subscription", err)
		return
	}
	writeJSON(w, http.StatusOK, SubscriptionDTO{Partner: string(partner), Product: string(product), Subscribed: on})
}

// =============================================================================
// TRANSACTION ENDPOINTS
// =============================================================================

func (h *Handler) CreateAcquisition(w http.ResponseWriter, r *http.Request) {
	var req AcquisitionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	tx, err := h.w.RegisterAcquisition(generic.PartnerKey(req.Partner), generic.ProductKey(req.Product), req.Price, req.Quantity)
	if err != nil {
		writeDomainError(w, "Failed to register acquisition", err)
		return
	}
	writeJSON(w, http.StatusCreated, h.transactionDTO(tx))
}

func (h *Handler) CreateCreditSale(w http.ResponseWriter, r *http.Request) {
	var req CreditSaleRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	tx, err := h.w.RegisterCreditSale(generic.PartnerKey(req.Partner), generic.ProductKey(req.Product), generic.Day(req.Deadline), req.Quantity)
	if err != nil {
		writeDomainError(w, "Failed to register sale", err)
		return
	}
	writeJSON(w, http.StatusCreated, h.transactionDTO(tx))
}

// CreateBreakdownSale answers 204 when the product is simple: nothing is
// broken down and no transaction is recorded.
func (h *Handler) CreateBreakdownSale(w http.ResponseWriter, r *http.Request) {
	var req BreakdownRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	tx, err := h.w.RegisterBreakdownSale(generic.PartnerKey(req.Partner), generic.ProductKey(req.Product), req.Quantity)
	if err != nil {
		writeDomainError(w, "Failed to register breakdown", err)
		return
	}
	if tx == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusCreated, h.transactionDTO(tx))
}

func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := transactionID(w, r)
	if !ok {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	tx, err := h.w.Transaction(id)
	if err != nil {
		writeDomainError(w, "Failed to get transaction", err)
		return
	}
	writeJSON(w, http.StatusOK, h.transactionDTO(tx))
}

// ReceivePayment settles a credit sale. Paying anything else, or paying
// twice, leaves the transaction as it was.
func (h *Handler) ReceivePayment(w http.ResponseWriter, r *http.Request) {
	id, ok := transactionID(w, r)
	if !ok {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.w.ReceivePayment(id); err != nil {
		writeDomainError(w, "Failed to receive payment", err)
		return
	}
	tx, err := h.w.Transaction(id)
	if err != nil {
		writeDomainError(w, "Failed to get transaction", err)
		return
	}
	writeJSON(w, http.StatusOK, h.transactionDTO(tx))
}

func transactionID(w http.ResponseWriter, r *http.Request) (generic.TransactionID, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid transaction id", err)
		return 0, false
	}
	return generic.TransactionID(id), true
}

func (h *Handler) transactionDTOs(txs []warehouse.Transaction) []TransactionDTO {
	out := make([]TransactionDTO, 0, len(txs))
	for _, tx := range txs {
		out = append(out, h.transactionDTO(tx))
	}
	return out
}

func (h *Handler) transactionDTO(tx warehouse.Transaction) TransactionDTO {
	dto := TransactionDTO{
		ID:       int(tx.ID()),
		Kind:     string(tx.Kind()),
		Partner:  string(tx.Partner()),
		Product:  string(tx.Product()),
		Quantity: tx.Quantity(),
		Price:    h.w.Price(tx),
		Paid:     tx.IsPaid(),
		Record:   h.w.RenderTransaction(tx),
	}
	if day, ok := tx.PaymentDate(); ok {
		d := int(day)
		dto.PaymentDate = &d
	}

	switch t := tx.(type) {
	case *warehouse.CreditSale:
		base := t.BasePrice()
		deadline := int(t.Deadline())
		dto.BasePrice = &base
		dto.Deadline = &deadline
	case *warehouse.BreakdownSale:
		base := t.BasePrice()
		dto.BasePrice = &base
		for _, l := range t.Lines() {
			dto.Lines = append(dto.Lines, BreakdownLineDTO{
				Product:   string(l.Product),
				Quantity:  l.Quantity,
				UnitPrice: l.UnitPrice,
			})
		}
	}
	return dto
}

// =============================================================================
// IMPORT
// =============================================================================

// Import applies a text import file sent as the request body. Either every
// record is applied or none is.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	summary, err := h.importer.Import(r.Body)
	if err != nil {
		writeDomainError(w, "Failed to import", err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError picks the status code from the error category.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	writeError(w, statusFor(err), message, err)
}

func statusFor(err error) int {
	switch {
	case generic.IsNotFound(err),
		errors.Is(err, generic.ErrMissingFileAssociation):
		return http.StatusNotFound
	case generic.IsDuplicate(err):
		return http.StatusConflict
	case generic.IsClientError(err):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	return true
}
