package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveMutation("person", "update", OutcomeSuccess, time.Now())
	m.ObserveMutation("person", "update", OutcomeSuccess, time.Now())
	m.ObserveMutation("person", "delete", OutcomeNotFound, time.Now())
	m.IncrementRollbacks()
	m.AddOutboxPublished(3)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.Mutations.WithLabelValues("person", "update", OutcomeSuccess)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Mutations.WithLabelValues("person", "delete", OutcomeNotFound)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.TxRollbacks))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.OutboxPublished))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveMutation("user", "create", OutcomeFailed, time.Now())
		m.IncrementGeocode("error")
		m.IncrementRefDataCache("hit")
	})
}
