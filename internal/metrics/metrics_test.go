package metrics_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatgate/chat-service/internal/core/breaker"
	"github.com/chatgate/chat-service/internal/metrics"
)

func TestMetrics_Register(t *testing.T) {
	// Arrange
	m := metrics.New(nil)
	registry := prometheus.NewPedanticRegistry()

	// Act
	err := m.Register(registry)

	// Assert
	require.NoError(t, err)

	// Registering the same collectors twice must fail.
	err = m.Register(registry)
	assert.Error(t, err)
}

func TestMetrics_RecordConnectionLifecycle(t *testing.T) {
	m := metrics.New(nil)

	m.RecordConnectionOpened()
	m.RecordConnectionOpened()
	m.RecordConnectionClosed()

	assert.Equal(t, float64(1), testutil.ToFloat64(m.ActiveConnections))
}

func TestMetrics_RecordEvent(t *testing.T) {
	m := metrics.New(nil)

	m.RecordEvent("message", true)
	m.RecordEvent("message", true)
	m.RecordEvent("auth", false)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.EventsTotal.WithLabelValues("message", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.EventsTotal.WithLabelValues("auth", "failed")))
}

func TestMetrics_RecordAuth(t *testing.T) {
	m := metrics.New(nil)

	m.RecordAuth(true)
	m.RecordAuth(false)
	m.RecordAuth(false)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.AuthAttempts.WithLabelValues("success")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.AuthAttempts.WithLabelValues("failed")))
}

func TestMetrics_RecordBreakerActivity(t *testing.T) {
	// Arrange
	m := metrics.New(&metrics.Config{Namespace: "test"})

	// Act
	m.RecordStateChange("delivery", "send-message", breaker.StateClosed, breaker.StateOpen)
	m.RecordShortCircuit("delivery", "send-message")
	m.RecordCall("delivery", "send-message", 25*time.Millisecond, false)
	m.RecordCall("delivery", "send-message", 5*time.Millisecond, true)

	// Assert
	assert.Equal(t, float64(1), testutil.ToFloat64(m.BreakerTransitions.WithLabelValues("delivery", "send-message", "OPEN")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.BreakerShortCircuits.WithLabelValues("delivery", "send-message")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.BreakerCalls.WithLabelValues("delivery", "send-message", "failed")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.BreakerCalls.WithLabelValues("delivery", "send-message", "success")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.BreakerCallDuration))
}

func TestMetrics_RecordConnectionsSwept(t *testing.T) {
	m := metrics.New(nil)

	m.RecordConnectionsSwept(7)
	m.RecordConnectionsSwept(3)

	assert.Equal(t, float64(10), testutil.ToFloat64(m.ConnectionsSwept))
}
