// Package metrics exposes Prometheus instrumentation for the chat service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/chatgate/chat-service/internal/core/breaker"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "chat_service"

// Config holds the configuration for the metrics set.
type Config struct {
	Namespace string
}

// Metrics holds the service's Prometheus collectors. It implements
// breaker.Recorder so circuit breaker activity lands in the same registry.
type Metrics struct {
	// ActiveConnections tracks currently open WebSocket connections.
	ActiveConnections prometheus.Gauge

	// EventsTotal counts handled events by event and result.
	EventsTotal *prometheus.CounterVec

	// AuthAttempts counts authentication attempts by result.
	AuthAttempts *prometheus.CounterVec

	// MessagesPersisted counts stored messages by role.
	MessagesPersisted *prometheus.CounterVec

	// DeliveryFailures counts messages that could not be delivered.
	DeliveryFailures prometheus.Counter

	// ConnectionsSwept counts expired connection records removed by the sweeper.
	ConnectionsSwept prometheus.Counter

	// BreakerTransitions counts circuit breaker state changes.
	BreakerTransitions *prometheus.CounterVec

	// BreakerShortCircuits counts calls rejected by an open breaker.
	BreakerShortCircuits *prometheus.CounterVec

	// BreakerCalls counts calls invoked under a breaker by result.
	BreakerCalls *prometheus.CounterVec

	// BreakerCallDuration observes the latency of calls invoked under a breaker.
	BreakerCallDuration *prometheus.HistogramVec
}

// New creates the metrics set. A nil config uses the default namespace.
func New(cfg *Config) *Metrics {
	namespace := DefaultNamespace
	if cfg != nil && cfg.Namespace != "" {
		namespace = cfg.Namespace
	}

	return &Metrics{
		ActiveConnections: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_connections",
				Help:      "Currently open WebSocket connections.",
			},
		),
		EventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_total",
				Help:      "Handled events by event and result.",
			},
			[]string{"event", "result"},
		),
		AuthAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "auth_attempts_total",
				Help:      "Authentication attempts by result.",
			},
			[]string{"result"},
		),
		MessagesPersisted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "messages_persisted_total",
				Help:      "Messages stored by role.",
			},
			[]string{"role"},
		),
		DeliveryFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "delivery_failures_total",
				Help:      "Messages that could not be delivered to a connection.",
			},
		),
		ConnectionsSwept: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "connections_swept_total",
				Help:      "Expired connection records removed by the sweeper.",
			},
		),
		BreakerTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "breaker_transitions_total",
				Help:      "Circuit breaker state changes.",
			},
			[]string{"service", "operation", "to"},
		),
		BreakerShortCircuits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "breaker_short_circuits_total",
				Help:      "Calls rejected by an open circuit breaker.",
			},
			[]string{"service", "operation"},
		),
		BreakerCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "breaker_calls_total",
				Help:      "Calls invoked under a circuit breaker by result.",
			},
			[]string{"service", "operation", "result"},
		),
		BreakerCallDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "breaker_call_duration_seconds",
				Help:      "Latency of calls invoked under a circuit breaker.",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5},
			},
			[]string{"service", "operation"},
		),
	}
}

// Register registers all collectors with the given registerer.
func (m *Metrics) Register(registerer prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.ActiveConnections,
		m.EventsTotal,
		m.AuthAttempts,
		m.MessagesPersisted,
		m.DeliveryFailures,
		m.ConnectionsSwept,
		m.BreakerTransitions,
		m.BreakerShortCircuits,
		m.BreakerCalls,
		m.BreakerCallDuration,
	}

	for _, c := range collectors {
		if err := registerer.Register(c); err != nil {
			return err
		}
	}

	return nil
}

// RecordConnectionOpened records a new WebSocket connection.
func (m *Metrics) RecordConnectionOpened() {
	m.ActiveConnections.Inc()
}

// RecordConnectionClosed records a closed WebSocket connection.
func (m *Metrics) RecordConnectionClosed() {
	m.ActiveConnections.Dec()
}

// RecordEvent records a handled event and its outcome.
func (m *Metrics) RecordEvent(event string, success bool) {
	m.EventsTotal.WithLabelValues(event, resultLabel(success)).Inc()
}

// RecordAuth records an authentication attempt.
func (m *Metrics) RecordAuth(success bool) {
	m.AuthAttempts.WithLabelValues(resultLabel(success)).Inc()
}

// RecordMessagePersisted records a stored message.
func (m *Metrics) RecordMessagePersisted(role string) {
	m.MessagesPersisted.WithLabelValues(role).Inc()
}

// RecordDeliveryFailure records a failed delivery attempt.
func (m *Metrics) RecordDeliveryFailure() {
	m.DeliveryFailures.Inc()
}

// RecordConnectionsSwept records expired connection records removed by the sweeper.
func (m *Metrics) RecordConnectionsSwept(count int) {
	m.ConnectionsSwept.Add(float64(count))
}

// RecordStateChange implements breaker.Recorder.
func (m *Metrics) RecordStateChange(service, operation string, from, to breaker.State) {
	m.BreakerTransitions.WithLabelValues(service, operation, string(to)).Inc()
}

// RecordShortCircuit implements breaker.Recorder.
func (m *Metrics) RecordShortCircuit(service, operation string) {
	m.BreakerShortCircuits.WithLabelValues(service, operation).Inc()
}

// RecordCall implements breaker.Recorder.
func (m *Metrics) RecordCall(service, operation string, duration time.Duration, success bool) {
	m.BreakerCalls.WithLabelValues(service, operation, resultLabel(success)).Inc()
	m.BreakerCallDuration.WithLabelValues(service, operation).Observe(duration.Seconds())
}

func resultLabel(success bool) string {
	if success {
		return "success"
	}
	return "failed"
}
