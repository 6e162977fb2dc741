// Package breaker provides per-operation circuit breakers that shield the
// service from failing collaborators. Each (service, operation) pair gets an
// independent breaker keyed "service:operation", created lazily on first use.
// State is process-local: every instance of the service trips and recovers on
// its own traffic.
package breaker

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/chatgate/chat-service/internal/domain/errors"
)

// State is the lifecycle state of a single circuit breaker.
type State string

const (
	// StateClosed lets calls through and counts failures.
	StateClosed State = "CLOSED"

	// StateOpen short-circuits calls without invoking the wrapped operation.
	StateOpen State = "OPEN"

	// StateHalfOpen lets exactly one probe call through to test recovery.
	StateHalfOpen State = "HALF_OPEN"
)

const (
	// DefaultFailureThreshold is the failure count that trips a breaker.
	DefaultFailureThreshold = 5

	// DefaultRecoveryTimeout is how long a breaker stays open before probing.
	DefaultRecoveryTimeout = 15 * time.Second

	// DefaultMonitoringWindow is the span over which failures are counted.
	DefaultMonitoringWindow = 30 * time.Second

	// DefaultMinimumRequestCount is the minimum traffic in a window before
	// the failure threshold can trip the breaker.
	DefaultMinimumRequestCount = 3

	// DefaultExpectedResponseTime is the latency above which a call is
	// logged as slow. Slow calls are not failures.
	DefaultExpectedResponseTime = 1 * time.Second
)

// Settings holds the thresholds for one breaker key.
type Settings struct {
	FailureThreshold     int
	RecoveryTimeout      time.Duration
	MonitoringWindow     time.Duration
	MinimumRequestCount  int
	ExpectedResponseTime time.Duration
}

// DefaultSettings returns the default breaker thresholds.
func DefaultSettings() Settings {
	return Settings{
		FailureThreshold:     DefaultFailureThreshold,
		RecoveryTimeout:      DefaultRecoveryTimeout,
		MonitoringWindow:     DefaultMonitoringWindow,
		MinimumRequestCount:  DefaultMinimumRequestCount,
		ExpectedResponseTime: DefaultExpectedResponseTime,
	}
}

// withDefaults fills zero fields from the given fallback settings.
func (s Settings) withDefaults(fallback Settings) Settings {
	if s.FailureThreshold <= 0 {
		s.FailureThreshold = fallback.FailureThreshold
	}
	if s.RecoveryTimeout <= 0 {
		s.RecoveryTimeout = fallback.RecoveryTimeout
	}
	if s.MonitoringWindow <= 0 {
		s.MonitoringWindow = fallback.MonitoringWindow
	}
	if s.MinimumRequestCount <= 0 {
		s.MinimumRequestCount = fallback.MinimumRequestCount
	}
	if s.ExpectedResponseTime <= 0 {
		s.ExpectedResponseTime = fallback.ExpectedResponseTime
	}
	return s
}

// Stats is a point-in-time snapshot of one breaker.
type Stats struct {
	Service       string    `json:"service"`
	Operation     string    `json:"operation"`
	State         State     `json:"state"`
	FailureCount  int       `json:"failureCount"`
	SuccessCount  int       `json:"successCount"`
	RequestCount  int       `json:"requestCount"`
	LastFailureAt time.Time `json:"lastFailureAt"`
}

// Call is an operation executed under breaker protection.
type Call func(ctx context.Context) (interface{}, error)

// Recorder receives breaker observations for metrics. Implementations must
// be safe for concurrent use.
type Recorder interface {
	// RecordStateChange is called once per state transition.
	RecordStateChange(service, operation string, from, to State)

	// RecordShortCircuit is called when an open breaker rejects a call.
	RecordShortCircuit(service, operation string)

	// RecordCall is called after every invoked (non-short-circuited) call.
	RecordCall(service, operation string, duration time.Duration, success bool)
}

// Breaker wraps calls to downstream collaborators in circuit breakers.
type Breaker interface {
	// Execute runs call under the breaker for (service, operation).
	// When the breaker is open the call is not invoked: the fallback runs
	// instead, or a CIRCUIT_BREAKER_OPEN error is returned if none is set.
	Execute(ctx context.Context, service, operation string, call Call, opts ...ExecuteOption) (interface{}, error)

	// Stats returns the snapshot for one key. Unknown keys report CLOSED
	// with zero counts, matching lazy creation.
	Stats(service, operation string) Stats

	// AllStats returns snapshots for every breaker seen so far, ordered by
	// service then operation.
	AllStats() []Stats

	// Reset drops all breaker state. Every key starts over CLOSED.
	Reset()
}

// Config holds the configuration for the breaker set.
type Config struct {
	// Defaults applies to every key without an override. Zero fields fall
	// back to DefaultSettings.
	Defaults Settings

	// Overrides maps "service:operation" or "service" to settings. Zero
	// fields fall back to Defaults.
	Overrides map[string]Settings

	// Recorder receives observations. Optional.
	Recorder Recorder

	// Logger is used for transition and slow-call logging. Defaults to the
	// global logger.
	Logger *zerolog.Logger

	// TimeFunc supplies the current time. Defaults to time.Now.
	TimeFunc func() time.Time
}

// ExecuteOption customizes a single Execute call.
type ExecuteOption func(*executeOptions)

type executeOptions struct {
	fallback Call
	settings *Settings
}

// WithFallback sets the call to run when the breaker is open. The fallback
// runs only on short-circuit, never on an ordinary failure of the wrapped
// call.
func WithFallback(fallback Call) ExecuteOption {
	return func(o *executeOptions) {
		o.fallback = fallback
	}
}

// WithSettings sets the thresholds used when this key is created. Settings
// of an existing key are not changed.
func WithSettings(settings Settings) ExecuteOption {
	return func(o *executeOptions) {
		o.settings = &settings
	}
}

// entry is the mutable state of one breaker key, guarded by breaker.mu.
type entry struct {
	service   string
	operation string
	settings  Settings

	state         State
	failureCount  int
	successCount  int
	requestCount  int
	windowStart   time.Time
	lastFailureAt time.Time
	probing       bool
}

type breaker struct {
	mu        sync.Mutex
	entries   map[string]*entry
	defaults  Settings
	overrides map[string]Settings
	recorder  Recorder
	logger    zerolog.Logger
	now       func() time.Time
}

// NewBreaker creates a breaker set from the given configuration. A nil
// config uses defaults throughout.
func NewBreaker(cfg *Config) Breaker {
	if cfg == nil {
		cfg = &Config{}
	}

	logger := log.Logger
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	now := cfg.TimeFunc
	if now == nil {
		now = time.Now
	}

	return &breaker{
		entries:   make(map[string]*entry),
		defaults:  cfg.Defaults.withDefaults(DefaultSettings()),
		overrides: cfg.Overrides,
		recorder:  cfg.Recorder,
		logger:    logger,
		now:       now,
	}
}

// Key returns the breaker key for a service and operation.
func Key(service, operation string) string {
	return fmt.Sprintf("%s:%s", service, operation)
}

func (b *breaker) settingsFor(service, operation string) Settings {
	if s, ok := b.overrides[Key(service, operation)]; ok {
		return s.withDefaults(b.defaults)
	}
	if s, ok := b.overrides[service]; ok {
		return s.withDefaults(b.defaults)
	}
	return b.defaults
}

// entryFor returns the entry for a key, creating it CLOSED on first use.
// Caller must hold b.mu.
func (b *breaker) entryFor(service, operation string, settings *Settings) *entry {
	key := Key(service, operation)
	e, ok := b.entries[key]
	if !ok {
		resolved := b.settingsFor(service, operation)
		if settings != nil {
			resolved = settings.withDefaults(b.defaults)
		}
		e = &entry{
			service:     service,
			operation:   operation,
			settings:    resolved,
			state:       StateClosed,
			windowStart: b.now(),
		}
		b.entries[key] = e
	}
	return e
}

// admit decides whether a call may proceed. It advances the monitoring
// window, moves an open breaker to HALF_OPEN once the recovery timeout has
// elapsed, and reserves the single half-open probe. Caller must hold b.mu.
func (e *entry) admit(now time.Time) (admitted, probe bool) {
	switch e.state {
	case StateOpen:
		if now.Sub(e.lastFailureAt) < e.settings.RecoveryTimeout {
			return false, false
		}
		e.state = StateHalfOpen
		e.probing = true
		return true, true

	case StateHalfOpen:
		if e.probing {
			return false, false
		}
		e.probing = true
		return true, true

	default: // StateClosed
		if now.Sub(e.windowStart) >= e.settings.MonitoringWindow {
			e.windowStart = now
			e.failureCount = 0
			e.requestCount = 0
		}
		e.requestCount++
		return true, false
	}
}

// settle records the outcome of an admitted call. Caller must hold b.mu.
func (e *entry) settle(now time.Time, probe, success bool) {
	if probe {
		e.probing = false
		if success {
			e.reset(now)
			e.state = StateClosed
			return
		}
		e.lastFailureAt = now
		e.state = StateOpen
		return
	}

	// Outcomes of calls admitted before a state change no longer count.
	if e.state != StateClosed {
		return
	}

	if success {
		e.successCount++
		return
	}

	e.failureCount++
	e.lastFailureAt = now
	if e.failureCount >= e.settings.FailureThreshold && e.requestCount >= e.settings.MinimumRequestCount {
		e.state = StateOpen
	}
}

// reset clears all counters. Caller must hold b.mu.
func (e *entry) reset(now time.Time) {
	e.failureCount = 0
	e.successCount = 0
	e.requestCount = 0
	e.windowStart = now
	e.lastFailureAt = time.Time{}
}

func (e *entry) snapshot() Stats {
	return Stats{
		Service:       e.service,
		Operation:     e.operation,
		State:         e.state,
		FailureCount:  e.failureCount,
		SuccessCount:  e.successCount,
		RequestCount:  e.requestCount,
		LastFailureAt: e.lastFailureAt,
	}
}

// Execute runs call under the breaker for (service, operation).
func (b *breaker) Execute(ctx context.Context, service, operation string, call Call, opts ...ExecuteOption) (interface{}, error) {
	if call == nil {
		return nil, fmt.Errorf("call is required")
	}

	options := &executeOptions{}
	for _, opt := range opts {
		opt(options)
	}

	b.mu.Lock()
	e := b.entryFor(service, operation, options.settings)
	before := e.state
	admitted, probe := e.admit(b.now())
	after := e.state
	settings := e.settings
	b.mu.Unlock()

	b.reportTransition(service, operation, before, after)

	if !admitted {
		b.reportShortCircuit(service, operation)
		if options.fallback != nil {
			return options.fallback(ctx)
		}
		return nil, errors.NewCircuitBreakerOpenError(service, operation)
	}

	start := b.now()
	result, err := func() (out interface{}, callErr error) {
		defer func() {
			if r := recover(); r != nil {
				b.settle(e, service, operation, probe, false, b.now().Sub(start))
				panic(r)
			}
		}()
		return call(ctx)
	}()

	elapsed := b.now().Sub(start)
	b.settle(e, service, operation, probe, err == nil, elapsed)

	if elapsed > settings.ExpectedResponseTime {
		b.logger.Warn().
			Str("service", service).
			Str("operation", operation).
			Dur("latency", elapsed).
			Dur("expected", settings.ExpectedResponseTime).
			Msg("call exceeded expected response time")
	}

	if err != nil {
		return nil, err
	}
	return result, nil
}

func (b *breaker) settle(e *entry, service, operation string, probe, success bool, elapsed time.Duration) {
	b.mu.Lock()
	before := e.state
	e.settle(b.now(), probe, success)
	after := e.state
	b.mu.Unlock()

	b.reportTransition(service, operation, before, after)
	if b.recorder != nil {
		b.recorder.RecordCall(service, operation, elapsed, success)
	}
}

func (b *breaker) reportTransition(service, operation string, from, to State) {
	if from == to {
		return
	}

	event := b.logger.Warn()
	if to == StateClosed {
		event = b.logger.Info()
	}
	event.
		Str("service", service).
		Str("operation", operation).
		Str("from", string(from)).
		Str("to", string(to)).
		Msg("circuit breaker state changed")

	if b.recorder != nil {
		b.recorder.RecordStateChange(service, operation, from, to)
	}
}

func (b *breaker) reportShortCircuit(service, operation string) {
	b.logger.Warn().
		Str("service", service).
		Str("operation", operation).
		Msg("circuit breaker open, call short-circuited")

	if b.recorder != nil {
		b.recorder.RecordShortCircuit(service, operation)
	}
}

// Stats returns the snapshot for one key.
func (b *breaker) Stats(service, operation string) Stats {
	b.mu.Lock()
	defer b.mu.Unlock()

	if e, ok := b.entries[Key(service, operation)]; ok {
		return e.snapshot()
	}
	return Stats{
		Service:   service,
		Operation: operation,
		State:     StateClosed,
	}
}

// AllStats returns snapshots for every breaker seen so far.
func (b *breaker) AllStats() []Stats {
	b.mu.Lock()
	stats := make([]Stats, 0, len(b.entries))
	for _, e := range b.entries {
		stats = append(stats, e.snapshot())
	}
	b.mu.Unlock()

	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Service != stats[j].Service {
			return stats[i].Service < stats[j].Service
		}
		return stats[i].Operation < stats[j].Operation
	})
	return stats
}

// Reset drops all breaker state.
func (b *breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = make(map[string]*entry)
}
