package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	Transitions            *prometheus.CounterVec
	BulkRuns               *prometheus.CounterVec
	BulkItems              *prometheus.CounterVec
	BulkRunDuration        *prometheus.HistogramVec
	LedgerSubmissions      *prometheus.CounterVec
	NotificationDeliveries *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics on a fresh registry owned
// by the caller. Using an explicit registerer keeps tests free of global state.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ecotrace_transitions_total",
			Help: "Total asset lifecycle transitions by kind and outcome",
		}, []string{"kind", "outcome"}),
		BulkRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ecotrace_bulk_runs_total",
			Help: "Total bulk runs by transition kind",
		}, []string{"kind"}),
		BulkItems: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ecotrace_bulk_items_total",
			Help: "Total bulk items processed by kind and outcome",
		}, []string{"kind", "outcome"}),
		BulkRunDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ecotrace_bulk_run_duration_seconds",
			Help:    "Wall clock duration of bulk runs",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}, []string{"kind"}),
		LedgerSubmissions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ecotrace_ledger_submissions_total",
			Help: "Total ledger proof submissions by outcome",
		}, []string{"outcome"}),
		NotificationDeliveries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ecotrace_notification_deliveries_total",
			Help: "Total notification deliveries by channel and outcome",
		}, []string{"channel", "outcome"}),
	}
}

// ObserveTransition records one lifecycle transition attempt.
func (m *Metrics) ObserveTransition(kind string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.Transitions.WithLabelValues(kind, outcome).Inc()
}

// ObserveBulkRun records an aggregate bulk run outcome.
func (m *Metrics) ObserveBulkRun(kind string, successful, failed int, duration time.Duration) {
	m.BulkRuns.WithLabelValues(kind).Inc()
	m.BulkItems.WithLabelValues(kind, "success").Add(float64(successful))
	m.BulkItems.WithLabelValues(kind, "failure").Add(float64(failed))
	m.BulkRunDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// ObserveLedgerSubmission records one ledger proof submission attempt.
func (m *Metrics) ObserveLedgerSubmission(err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.LedgerSubmissions.WithLabelValues(outcome).Inc()
}

// ObserveNotification records one notification channel delivery attempt.
func (m *Metrics) ObserveNotification(channel string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.NotificationDeliveries.WithLabelValues(channel, outcome).Inc()
}
