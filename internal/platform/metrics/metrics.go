package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for mutation counters.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeNotFound = "not_found"
	OutcomeFailed   = "failed"
)

// Metrics holds all Prometheus metrics for the entity core.
type Metrics struct {
	Mutations        *prometheus.CounterVec
	MutationDuration *prometheus.HistogramVec
	TxRollbacks      prometheus.Counter
	GeocodeRequests  *prometheus.CounterVec
	RefDataCache     *prometheus.CounterVec
	OutboxPublished  prometheus.Counter
	OutboxErrors     prometheus.Counter
}

// New creates and registers all metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Mutations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tranquility_mutations_total",
			Help: "Entity mutations by entity type, operation and outcome",
		}, []string{"entity", "operation", "outcome"}),
		MutationDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tranquility_mutation_duration_seconds",
			Help:    "Duration of entity mutations including the unit of work",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"entity", "operation"}),
		TxRollbacks: f.NewCounter(prometheus.CounterOpts{
			Name: "tranquility_tx_rollbacks_total",
			Help: "Units of work rolled back",
		}),
		GeocodeRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tranquility_geocode_requests_total",
			Help: "Geocoding lookups by result status",
		}, []string{"status"}),
		RefDataCache: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tranquility_refdata_cache_total",
			Help: "Reference data cache lookups by result",
		}, []string{"result"}),
		OutboxPublished: f.NewCounter(prometheus.CounterOpts{
			Name: "tranquility_outbox_published_total",
			Help: "Change events published from the outbox",
		}),
		OutboxErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "tranquility_outbox_errors_total",
			Help: "Outbox relay batches that failed to publish",
		}),
	}
}

// ObserveMutation records one mutation outcome and its duration.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveMutation(entity, operation, outcome string, start time.Time) {
	if m == nil {
		return
	}
	m.Mutations.WithLabelValues(entity, operation, outcome).Inc()
	m.MutationDuration.WithLabelValues(entity, operation).Observe(time.Since(start).Seconds())
}

// IncrementRollbacks counts a rolled back unit of work.
func (m *Metrics) IncrementRollbacks() {
	if m == nil {
		return
	}
	m.TxRollbacks.Inc()
}

// IncrementGeocode counts a geocoding lookup by status.
func (m *Metrics) IncrementGeocode(status string) {
	if m == nil {
		return
	}
	m.GeocodeRequests.WithLabelValues(status).Inc()
}

// IncrementRefDataCache counts a cache hit or miss.
func (m *Metrics) IncrementRefDataCache(result string) {
	if m == nil {
		return
	}
	m.RefDataCache.WithLabelValues(result).Inc()
}

// AddOutboxPublished counts published change events.
func (m *Metrics) AddOutboxPublished(n int) {
	if m == nil {
		return
	}
	m.OutboxPublished.Add(float64(n))
}

// IncrementOutboxErrors counts a failed relay batch.
func (m *Metrics) IncrementOutboxErrors() {
	if m == nil {
		return
	}
	m.OutboxErrors.Inc()
}
