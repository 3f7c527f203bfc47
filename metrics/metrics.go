/*
Package metrics exposes warehouse activity to Prometheus.

PURPOSE:
  Counts registrations, payments, notifications and rejected operations,
  and tracks both balances as gauges. Warehouse implements
  warehouse.Recorder so the orchestrator reports without importing
  Prometheus.

METRICS:
  wholesale_transactions_total{kind}        ACQUISITION | SALE | BREAKDOWN_SALE
  wholesale_payments_total{on_time}         "true" | "false"
  wholesale_notifications_total{kind}       NEW | BARGAIN
  wholesale_operation_failures_total{op}    rejected operations
  wholesale_available_balance               cash
  wholesale_accounting_balance              cash + receivables
  wholesale_http_requests_total{route,code} served by the api package
  wholesale_http_request_duration_seconds{route}

REGISTRATION:
  Collectors register with an injected prometheus.Registerer. Registering
  twice returns the collector already registered, so several Warehouse
  values may share the default registry.

SEE ALSO:
  - warehouse/warehouse.go: Recorder interface
  - api/server.go: /metrics endpoint and request middleware
*/
package metrics

import (
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Warehouse struct {
	transactions  *prometheus.CounterVec
	payments      *prometheus.CounterVec
	notifications *prometheus.CounterVec
	failures      *prometheus.CounterVec
	available     prometheus.Gauge
	accounting    prometheus.Gauge

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New registers the collectors with the default registerer.
func New() *Warehouse {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

func NewWithRegisterer(registerer prometheus.Registerer) *Warehouse {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &Warehouse{
		transactions: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "wholesale_transactions_total",
			Help: "Total number of transactions registered, by kind",
		}, []string{"kind"}),
		payments: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "wholesale_payments_total",
			Help: "Total number of credit sales settled, by punctuality",
		}, []string{"on_time"}),
		notifications: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "wholesale_notifications_total",
			Help: "Total number of notifications delivered, by kind",
		}, []string{"kind"}),
		failures: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "wholesale_operation_failures_total",
			Help: "Total number of rejected warehouse operations",
		}, []string{"op"}),
		available: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "wholesale_available_balance",
			Help: "Available balance",
		}),
		accounting: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "wholesale_accounting_balance",
			Help: "Available balance plus unpaid credit sales at current price",
		}),
		httpRequests: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "wholesale_http_requests_total",
			Help: "Total number of HTTP requests served",
		}, []string{"route", "code"}),
		httpDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "wholesale_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"route"}),
	}
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerGauge(registerer prometheus.Registerer, opts prometheus.GaugeOpts) prometheus.Gauge {
	collector := prometheus.NewGauge(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Gauge)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register gauge %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	collector := prometheus.NewHistogramVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.HistogramVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram vec %q: %v", opts.Name, err))
	}
	return collector
}

// =============================================================================
// warehouse.Recorder
// =============================================================================

func (m *Warehouse) TransactionRegistered(kind string) {
	m.transactions.WithLabelValues(kind).Inc()
}

func (m *Warehouse) PaymentReceived(onTime bool) {
	m.payments.WithLabelValues(strconv.FormatBool(onTime)).Inc()
}

func (m *Warehouse) NotificationSent(kind string) {
	m.notifications.WithLabelValues(kind).Inc()
}

func (m *Warehouse) OperationFailed(op string) {
	m.failures.WithLabelValues(op).Inc()
}

func (m *Warehouse) BalancesChanged(available, accounting float64) {
	m.available.Set(available)
	m.accounting.Set(accounting)
}

// =============================================================================
// HTTP
// =============================================================================

// ObserveRequest records one served request. route is the matched pattern,
// not the raw path, to keep label cardinality bounded.
func (m *Warehouse) ObserveRequest(route string, code int, elapsed time.Duration) {
	m.httpRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}
