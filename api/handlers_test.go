/*
handlers_test.go - HTTP tests for API handlers

Tests for:
- Registration endpoints and error status mapping
- Transaction lifecycle over HTTP (acquire, sell, pay)
- Notifications draining
- Import and snapshot endpoints
*/
package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/wholesale-engine/generic/store"
	"github.com/warp/wholesale-engine/metrics"
	"github.com/warp/wholesale-engine/warehouse"
)

type testServer struct {
	t       *testing.T
	handler *Handler
	router  http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	h := NewHandler(warehouse.New(), store.NewMemory(), nil)
	return &testServer{t: t, handler: h, router: NewRouter(h, []string{"*"}, nil)}
}

func (s *testServer) do(method, path string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(s.t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

// must performs the request and decodes the response into out.
func (s *testServer) must(method, path string, body any, status int, out any) {
	s.t.Helper()
	rec := s.do(method, path, body)
	require.Equal(s.t, status, rec.Code, rec.Body.String())
	if out != nil {
		require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), out))
	}
}

// seed registers X and Y, product P1, and buys 10 P1 from X at 100.
func (s *testServer) seed() {
	s.t.Helper()
	s.must(http.MethodPost, "/api/partners", CreatePartnerRequest{Key: "X", Name: "Xavier", Address: "Lisbon"}, http.StatusCreated, nil)
	s.must(http.MethodPost, "/api/partners", CreatePartnerRequest{Key: "Y", Name: "Yara", Address: "Porto"}, http.StatusCreated, nil)
	s.must(http.MethodPost, "/api/products", map[string]any{"key": "P1"}, http.StatusCreated, nil)
	s.must(http.MethodPost, "/api/transactions/acquisitions",
		map[string]any{"partner": "X", "product": "P1", "price": 100, "quantity": 10}, http.StatusCreated, nil)
}

// =============================================================================
// REGISTRATION
// =============================================================================

func TestCreatePartner_DuplicateIsConflict(t *testing.T) {
	s := newTestServer(t)
	s.must(http.MethodPost, "/api/partners", CreatePartnerRequest{Key: "X", Name: "Xavier"}, http.StatusCreated, nil)

	rec := s.do(http.MethodPost, "/api/partners", CreatePartnerRequest{Key: "x", Name: "Other"})

	assert.Equal(t, http.StatusConflict, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Failed to register partner", resp.Error)
	assert.Contains(t, resp.Details, "duplicate partner")
}

func TestCreateProduct_Aggregate(t *testing.T) {
	s := newTestServer(t)
	s.must(http.MethodPost, "/api/products", map[string]any{"key": "P1"}, http.StatusCreated, nil)

	var p ProductDTO
	s.must(http.MethodPost, "/api/products", map[string]any{
		"key":         "KIT",
		"aggravation": "0.1",
		"components":  []ComponentDTO{{Product: "P1", Quantity: 2}},
	}, http.StatusCreated, &p)

	assert.Equal(t, "aggregate", p.Kind)
	require.NotNil(t, p.Aggravation)
	assert.Equal(t, "0.1", p.Aggravation.String())
	assert.Equal(t, []ComponentDTO{{Product: "P1", Quantity: 2}}, p.Components)
	assert.Equal(t, "KIT|0|0|0.1|P1:2", p.Record)
}

func TestCreateProduct_Errors(t *testing.T) {
	tests := []struct {
		name   string
		body   any
		status int
	}{
		{"missing key", map[string]any{}, http.StatusBadRequest},
		{"malformed body", "{", http.StatusBadRequest},
		{"unknown component", map[string]any{
			"key":        "KIT",
			"components": []ComponentDTO{{Product: "GHOST", Quantity: 1}},
		}, http.StatusNotFound},
		{"zero multiplier", map[string]any{
			"key":        "KIT",
			"components": []ComponentDTO{{Product: "P1", Quantity: 0}},
		}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			s.must(http.MethodPost, "/api/products", map[string]any{"key": "P1"}, http.StatusCreated, nil)

			rec := s.do(http.MethodPost, "/api/products", tt.body)

			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestGetPartner_Unknown(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/api/partners/nobody", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// TRANSACTION LIFECYCLE
// =============================================================================

func TestCreditSaleLifecycle(t *testing.T) {
	// GIVEN: 10 units of P1 at 100, day 0
	s := newTestServer(t)
	s.seed()

	// WHEN: 4 units sold on credit, deadline day 10
	var sale TransactionDTO
	s.must(http.MethodPost, "/api/transactions/sales",
		CreditSaleRequest{Partner: "X", Product: "P1", Deadline: 10, Quantity: 4}, http.StatusCreated, &sale)

	// THEN
	assert.Equal(t, 1, sale.ID)
	assert.Equal(t, "SALE", sale.Kind)
	assert.Equal(t, "360", sale.Price.String())
	require.NotNil(t, sale.BasePrice)
	assert.Equal(t, "400", sale.BasePrice.String())
	assert.False(t, sale.Paid)

	// WHEN: two days past the deadline
	var day DateDTO
	s.must(http.MethodPost, "/api/date/advance", AdvanceDateRequest{Days: 12}, http.StatusOK, &day)
	assert.Equal(t, 12, day.Day)

	var balance BalanceDTO
	s.must(http.MethodGet, "/api/balance", nil, http.StatusOK, &balance)
	assert.Equal(t, "-1000", balance.Available.String())
	assert.Equal(t, "-560", balance.Accounting.String())

	// WHEN: paid
	var paid TransactionDTO
	s.must(http.MethodPost, "/api/transactions/1/payment", nil, http.StatusOK, &paid)

	// THEN
	assert.True(t, paid.Paid)
	require.NotNil(t, paid.PaymentDate)
	assert.Equal(t, 12, *paid.PaymentDate)
	assert.Equal(t, "SALE|1|X|P1|4|400|440|10|12", paid.Record)

	var paidSales []TransactionDTO
	s.must(http.MethodGet, "/api/partners/X/paid", nil, http.StatusOK, &paidSales)
	require.Len(t, paidSales, 1)

	var partner PartnerDTO
	s.must(http.MethodGet, "/api/partners/x", nil, http.StatusOK, &partner)
	assert.Equal(t, "X|Xavier|Lisbon|NORMAL|0|1000|400|440", partner.Record)
}

func TestCreditSale_InsufficientStock(t *testing.T) {
	s := newTestServer(t)
	s.seed()

	rec := s.do(http.MethodPost, "/api/transactions/sales",
		CreditSaleRequest{Partner: "X", Product: "P1", Deadline: 10, Quantity: 11})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "insufficient stock")
}

func TestBreakdown_SimpleProductNoContent(t *testing.T) {
	s := newTestServer(t)
	s.seed()

	rec := s.do(http.MethodPost, "/api/transactions/breakdowns",
		BreakdownRequest{Partner: "Y", Product: "P1", Quantity: 1})

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/transactions/1", nil).Code)
}

func TestBreakdown_Lines(t *testing.T) {
	s := newTestServer(t)
	s.seed()
	s.must(http.MethodPost, "/api/products", map[string]any{
		"key":         "KIT",
		"aggravation": 0.1,
		"components":  []ComponentDTO{{Product: "P1", Quantity: 2}},
	}, http.StatusCreated, nil)
	s.must(http.MethodPost, "/api/transactions/acquisitions",
		map[string]any{"partner": "X", "product": "KIT", "price": "250", "quantity": 3}, http.StatusCreated, nil)

	var tx TransactionDTO
	s.must(http.MethodPost, "/api/transactions/breakdowns",
		BreakdownRequest{Partner: "Y", Product: "KIT", Quantity: 1}, http.StatusCreated, &tx)

	assert.Equal(t, "BREAKDOWN_SALE|2|Y|KIT|1|50|50|0|P1:2:200", tx.Record)
	require.Len(t, tx.Lines, 1)
	assert.Equal(t, "P1", tx.Lines[0].Product)
	assert.Equal(t, "100", tx.Lines[0].UnitPrice.String())

	var fromY []BatchDTO
	s.must(http.MethodGet, "/api/partners/Y/batches", nil, http.StatusOK, &fromY)
	require.Len(t, fromY, 1)
	assert.Equal(t, "P1|Y|100|2", fromY[0].Record)
}

func TestTransaction_BadAndUnknownID(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/api/transactions/abc", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/transactions/7", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodPost, "/api/transactions/7/payment", nil).Code)
}

func TestAdvanceDate_RejectsNonPositive(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/api/date/advance", AdvanceDateRequest{Days: 0})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var day DateDTO
	s.must(http.MethodGet, "/api/date", nil, http.StatusOK, &day)
	assert.Equal(t, 0, day.Day)
}

// =============================================================================
// BATCHES AND NOTIFICATIONS
// =============================================================================

func TestListBatches_MaxPrice(t *testing.T) {
	s := newTestServer(t)
	s.seed()
	s.must(http.MethodPost, "/api/transactions/acquisitions",
		map[string]any{"partner": "Y", "product": "P1", "price": 80, "quantity": 2}, http.StatusCreated, nil)

	var all, cheap []BatchDTO
	s.must(http.MethodGet, "/api/batches", nil, http.StatusOK, &all)
	s.must(http.MethodGet, "/api/batches?max_price=90", nil, http.StatusOK, &cheap)

	assert.Len(t, all, 2)
	require.Len(t, cheap, 1)
	assert.Equal(t, "P1|Y|80|2", cheap[0].Record)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/api/batches?max_price=cheap", nil).Code)
}

func TestNotifications_ToggleAndDrain(t *testing.T) {
	// GIVEN: Y subscribed to P1
	s := newTestServer(t)
	s.seed()
	var sub SubscriptionDTO
	s.must(http.MethodPost, "/api/partners/Y/subscriptions/P1", nil, http.StatusOK, &sub)
	assert.True(t, sub.Subscribed)

	// WHEN: a cheaper batch arrives
	s.must(http.MethodPost, "/api/transactions/acquisitions",
		map[string]any{"partner": "X", "product": "P1", "price": 50, "quantity": 1}, http.StatusCreated, nil)

	// THEN: reading drains
	var first, second []NotificationDTO
	s.must(http.MethodGet, "/api/partners/Y/notifications", nil, http.StatusOK, &first)
	s.must(http.MethodGet, "/api/partners/Y/notifications", nil, http.StatusOK, &second)
	require.Len(t, first, 1)
	assert.Equal(t, "BARGAIN|P1|50", first[0].Record)
	assert.Empty(t, second)

	s.must(http.MethodPost, "/api/partners/Y/subscriptions/P1", nil, http.StatusOK, &sub)
	assert.False(t, sub.Subscribed)
}

// =============================================================================
// IMPORT AND SNAPSHOTS
// =============================================================================

func TestImport(t *testing.T) {
	s := newTestServer(t)

	var summary map[string]int
	s.must(http.MethodPost, "/api/import", catalogFile, http.StatusOK, &summary)
	assert.Equal(t, map[string]int{"partners": 2, "products": 3, "batches": 3}, summary)

	rec := s.do(http.MethodPost, "/api/import", "PARTNER|Z|only three")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var partners []PartnerDTO
	s.must(http.MethodGet, "/api/partners", nil, http.StatusOK, &partners)
	assert.Len(t, partners, 2)
}

func TestSnapshots_SaveAndRestore(t *testing.T) {
	// GIVEN: a seeded warehouse saved on day 0
	s := newTestServer(t)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodPost, "/api/snapshots/latest/restore", nil).Code)
	s.seed()
	var saved SnapshotDTO
	s.must(http.MethodPost, "/api/snapshots", nil, http.StatusCreated, &saved)
	assert.Equal(t, "manual", saved.Reason)

	// WHEN: state moves on, then the snapshot is restored
	s.must(http.MethodPost, "/api/date/advance", AdvanceDateRequest{Days: 5}, http.StatusOK, nil)
	s.must(http.MethodPost, "/api/partners", CreatePartnerRequest{Key: "Z"}, http.StatusCreated, nil)
	var restored SnapshotDTO
	s.must(http.MethodPost, "/api/snapshots/latest/restore", nil, http.StatusOK, &restored)

	// THEN
	assert.Equal(t, saved.ID, restored.ID)
	var day DateDTO
	s.must(http.MethodGet, "/api/date", nil, http.StatusOK, &day)
	assert.Equal(t, 0, day.Day)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/partners/Z", nil).Code)

	var list []SnapshotDTO
	s.must(http.MethodGet, "/api/snapshots", nil, http.StatusOK, &list)
	assert.Len(t, list, 1)
}

func TestRouter_ObservesRoutePattern(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := NewHandler(warehouse.New(), store.NewMemory(), nil)
	router := NewRouter(h, []string{"*"}, metrics.NewWithRegisterer(reg))

	for _, path := range []string{"/api/partners/a", "/api/partners/b", "/nowhere"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(`
# HELP wholesale_http_requests_total Total number of HTTP requests served
# TYPE wholesale_http_requests_total counter
wholesale_http_requests_total{code="404",route="/api/partners/{key}"} 2
wholesale_http_requests_total{code="404",route="unmatched"} 1
`), "wholesale_http_requests_total"))
}
