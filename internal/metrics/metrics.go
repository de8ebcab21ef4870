package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the request lifecycle. All methods
// are nil-safe so wiring can skip metrics in tests.
type Metrics struct {
	Transitions        *prometheus.CounterVec
	WebhookDuplicates  prometheus.Counter
	WriteConflicts     prometheus.Counter
	SweepExpired       *prometheus.CounterVec
	TransitionDuration prometheus.Histogram
}

// New creates and registers all lifecycle metrics.
func New() *Metrics {
	return &Metrics{
		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "certigo_request_transitions_total",
			Help: "Total committed request state transitions by source and target state",
		}, []string{"from", "to"}),
		WebhookDuplicates: promauto.NewCounter(prometheus.CounterOpts{
			Name: "certigo_webhook_duplicates_total",
			Help: "Total payment webhooks absorbed as idempotent duplicates",
		}),
		WriteConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "certigo_request_write_conflicts_total",
			Help: "Total optimistic-concurrency conflicts on request writes",
		}),
		SweepExpired: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "certigo_sweep_expired_total",
			Help: "Total requests expired by the sweeper by kind (pending, published)",
		}, []string{"kind"}),
		TransitionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "certigo_transition_duration_seconds",
			Help:    "Duration of lifecycle transition operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// ObserveTransition records one committed transition.
func (m *Metrics) ObserveTransition(from, to string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(from, to).Inc()
}

// ObserveWebhookDuplicate records an absorbed duplicate webhook.
func (m *Metrics) ObserveWebhookDuplicate() {
	if m == nil {
		return
	}
	m.WebhookDuplicates.Inc()
}

// ObserveWriteConflict records a rejected stale write.
func (m *Metrics) ObserveWriteConflict() {
	if m == nil {
		return
	}
	m.WriteConflicts.Inc()
}

// ObserveSweepExpired records requests expired by one sweep pass.
func (m *Metrics) ObserveSweepExpired(kind string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.SweepExpired.WithLabelValues(kind).Add(float64(n))
}

// ObserveTransitionDuration records how long a transition operation took.
// Call with time.Now() captured at the start.
func (m *Metrics) ObserveTransitionDuration(start time.Time) {
	if m == nil {
		return
	}
	m.TransitionDuration.Observe(time.Since(start).Seconds())
}
