/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. instrument: zap request log plus Prometheus request metrics
  4. CORS:       Cross-origin requests for the front-end

ROUTE GROUPS:
  /api/date, /api/balance   Clock and balances
  /api/products/*           Product registry
  /api/batches              Stock lookups
  /api/partners/*           Partner registry, history, notifications
  /api/transactions/*       Acquisitions, sales, payments
  /api/import               Bulk text import
  /api/snapshots/*          Persistence
  /api/scenarios/*          Demo scenarios
  /metrics                  Prometheus scrape endpoint

SECURITY NOTE:
  No authentication middleware. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - metrics/metrics.go: Request metrics
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/warp/wholesale-engine/metrics"
)

// RequestObserver receives one call per served request.
type RequestObserver interface {
	ObserveRequest(route string, code int, elapsed time.Duration)
}

var _ RequestObserver = (*metrics.Warehouse)(nil)

// NewRouter creates a new router with all routes configured. observer may
// be nil.
func NewRouter(h *Handler, allowedOrigins []string, observer RequestObserver) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(instrument(h.logger, observer))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Handle("/metrics", promhttp.Handler())

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Get("/date", h.GetDate)
		r.Post("/date/advance", h.AdvanceDate)
		r.Get("/balance", h.GetBalance)

		// Product routes
		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.ListProducts)
			r.Post("/", h.CreateProduct)
			r.Get("/{key}/batches", h.ListProductBatches)
		})
		r.Get("/batches", h.ListBatches)

		// Partner routes
		r.Route("/partners", func(r chi.Router) {
			r.Get("/", h.ListPartners)
			r.Post("/", h.CreatePartner)
			r.Get("/{key}", h.GetPartner)
			r.Get("/{key}/batches", h.ListPartnerBatches)
			r.Get("/{key}/acquisitions", h.ListPartnerAcquisitions)
			r.Get("/{key}/sales", h.ListPartnerSales)
			r.Get("/{key}/paid", h.ListPartnerPaidSales)
			r.Get("/{key}/notifications", h.ListNotifications)
			r.Post("/{key}/subscriptions/{product}", h.ToggleSubscription)
		})

		// Transaction routes
		r.Route("/transactions", func(r chi.Router) {
			r.Post("/acquisitions", h.CreateAcquisition)
			r.Post("/sales", h.CreateCreditSale)
			r.Post("/breakdowns", h.CreateBreakdownSale)
			r.Get("/{id}", h.GetTransaction)
			r.Post("/{id}/payment", h.ReceivePayment)
		})

		r.Post("/import", h.Import)

		// Snapshot routes
		r.Route("/snapshots", func(r chi.Router) {
			r.Get("/", h.ListSnapshots)
			r.Post("/", h.CreateSnapshot)
			r.Post("/latest/restore", h.RestoreLatestSnapshot)
		})

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
		})
	})

	return r
}

// instrument logs each request and reports it to observer under its route
// pattern. Requests that match no route share one label.
func instrument(logger *zap.Logger, observer RequestObserver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			elapsed := time.Since(start)
			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			logger.Debug("request",
				zap.String("method", r.Method),
				zap.String("route", route),
				zap.Int("status", status),
				zap.Duration("elapsed", elapsed),
				zap.String("request_id", middleware.GetReqID(r.Context())))
			if observer != nil {
				observer.ObserveRequest(route, status, elapsed)
			}
		})
	}
}
