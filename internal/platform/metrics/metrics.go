package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the VOG compliance service. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	// Per-item bulk action outcomes by action and outcome ("ok", "failed")
	BulkItems *prometheus.CounterVec

	// Whole batch latency by action
	BulkDuration *prometheus.HistogramVec

	// Email dispatch latency by outcome
	DispatchDuration *prometheus.HistogramVec

	// Compliance list query latency
	QueryDuration prometheus.Histogram

	// Database calls by operation
	DBDuration *prometheus.HistogramVec
	SlowQueries prometheus.Counter

	// HTTP request latency by method, route pattern and status class
	HTTPDuration *prometheus.HistogramVec

	// Policy saves by outcome ("applied", "reverted", "rejected")
	PolicySaves *prometheus.CounterVec
}

// New creates a Metrics instance registered on reg. Tests pass a fresh
// prometheus.NewRegistry() so repeated construction never collides.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		BulkItems: f.NewCounterVec(prometheus.CounterOpts{
			Name: "vog_bulk_items_total",
			Help: "Bulk action items processed by action and outcome",
		}, []string{"action", "outcome"}),

		BulkDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vog_bulk_duration_seconds",
			Help:    "Duration of a complete bulk action",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"action"}),

		DispatchDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vog_email_dispatch_duration_seconds",
			Help:    "Duration of a single reminder dispatch",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		}, []string{"outcome"}),

		QueryDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "vog_query_duration_seconds",
			Help:    "Duration of compliance list evaluation",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5},
		}),

		DBDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vog_db_duration_seconds",
			Help:    "Duration of database calls by operation",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}, []string{"op"}),

		SlowQueries: f.NewCounter(prometheus.CounterOpts{
			Name: "vog_db_slow_queries_total",
			Help: "Database calls slower than the configured threshold",
		}),

		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vog_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),

		PolicySaves: f.NewCounterVec(prometheus.CounterOpts{
			Name: "vog_policy_saves_total",
			Help: "Policy save attempts by outcome",
		}, []string{"outcome"}),
	}
}

// IncrementBulkItem records one processed bulk item.
func (m *Metrics) IncrementBulkItem(action string, ok bool) {
	if m == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "failed"
	}
	m.BulkItems.WithLabelValues(action, outcome).Inc()
}

// ObserveBulkDuration records the duration of a whole batch.
func (m *Metrics) ObserveBulkDuration(action string, d time.Duration) {
	if m != nil {
		m.BulkDuration.WithLabelValues(action).Observe(d.Seconds())
	}
}

// ObserveDispatch records one email dispatch.
func (m *Metrics) ObserveDispatch(ok bool, d time.Duration) {
	if m == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "failed"
	}
	m.DispatchDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// ObserveQuery records the duration of a compliance list evaluation.
func (m *Metrics) ObserveQuery(d time.Duration) {
	if m != nil {
		m.QueryDuration.Observe(d.Seconds())
	}
}

// ObserveDB records a database call and counts it as slow when over threshold.
func (m *Metrics) ObserveDB(op string, d, threshold time.Duration) {
	if m == nil {
		return
	}
	m.DBDuration.WithLabelValues(op).Observe(d.Seconds())
	if d >= threshold {
		m.SlowQueries.Inc()
	}
}

// ObserveHTTP records a finished HTTP request.
func (m *Metrics) ObserveHTTP(method, route, status string, d time.Duration) {
	if m != nil {
		m.HTTPDuration.WithLabelValues(method, route, status).Observe(d.Seconds())
	}
}

// IncrementPolicySave records the outcome of a policy save.
func (m *Metrics) IncrementPolicySave(outcome string) {
	if m != nil {
		m.PolicySaves.WithLabelValues(outcome).Inc()
	}
}
