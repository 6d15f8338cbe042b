package observability

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/staff-service/internal/config"
)

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/api/reports", "GET", 200, 20*time.Millisecond)
	m.RecordRequest("/api/reports", "GET", 200, 10*time.Millisecond)
	m.RecordError("/api/reports", "POST", "VALIDATION_ERROR")
	m.RecordDelivery("notify.direct", nil)
	m.RecordDelivery("notify.direct", errors.New("blocked"))
	m.RecordSweep(2, 1)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("/api/reports", "GET", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.errors.WithLabelValues("/api/reports", "POST", "VALIDATION_ERROR")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.deliveries.WithLabelValues("notify.direct", "failed")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.sweeps.WithLabelValues("completed")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordRequest("/", "GET", 200, time.Second)
		m.RecordDelivery("x", nil)
		m.RecordSweep(1, 0)
	})
	assert.Nil(t, m.Registry())
}

func TestNewLoggerFallsBackOnBadLevel(t *testing.T) {
	logger, err := NewLogger(configFor("loud"))
	assert.NoError(t, err)
	assert.True(t, logger.Core().Enabled(0))
}

func configFor(level string) config.LoggerConfig {
	return config.LoggerConfig{Level: level}
}
