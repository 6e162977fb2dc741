package breaker_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatgate/chat-service/internal/core/breaker"
	domainerrors "github.com/chatgate/chat-service/internal/domain/errors"
)

var errDownstream = fmt.Errorf("downstream unavailable")

// fakeClock is a manually advanced clock for deterministic breaker tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeRecorder captures breaker observations.
type fakeRecorder struct {
	mu            sync.Mutex
	transitions   []string
	shortCircuits int
	calls         int
}

func (r *fakeRecorder) RecordStateChange(service, operation string, from, to breaker.State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = append(r.transitions, fmt.Sprintf("%s:%s %s->%s", service, operation, from, to))
}

func (r *fakeRecorder) RecordShortCircuit(service, operation string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shortCircuits++
}

func (r *fakeRecorder) RecordCall(service, operation string, duration time.Duration, success bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
}

func newTestBreaker(t *testing.T, clock *fakeClock, recorder breaker.Recorder) breaker.Breaker {
	t.Helper()

	logger := zerolog.Nop()
	return breaker.NewBreaker(&breaker.Config{
		Defaults: breaker.Settings{
			FailureThreshold:    3,
			RecoveryTimeout:     15 * time.Second,
			MonitoringWindow:    30 * time.Second,
			MinimumRequestCount: 3,
		},
		Recorder: recorder,
		Logger:   &logger,
		TimeFunc: clock.Now,
	})
}

func failingCall(ctx context.Context) (interface{}, error) {
	return nil, errDownstream
}

func succeedingCall(ctx context.Context) (interface{}, error) {
	return "ok", nil
}

// tripBreaker drives the given key open with three consecutive failures.
func tripBreaker(t *testing.T, b breaker.Breaker, service, operation string) {
	t.Helper()

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := b.Execute(ctx, service, operation, failingCall)
		require.ErrorIs(t, err, errDownstream)
	}
	require.Equal(t, breaker.StateOpen, b.Stats(service, operation).State)
}

func TestBreaker_Execute_PassesThroughWhenClosed(t *testing.T) {
	// Arrange
	b := newTestBreaker(t, newFakeClock(), nil)

	// Act
	result, err := b.Execute(context.Background(), "identity", "verify-token", succeedingCall)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "ok", result)

	stats := b.Stats("identity", "verify-token")
	assert.Equal(t, breaker.StateClosed, stats.State)
	assert.Equal(t, 1, stats.SuccessCount)
	assert.Equal(t, 1, stats.RequestCount)
	assert.Equal(t, 0, stats.FailureCount)
}

func TestBreaker_Execute_RequiresCall(t *testing.T) {
	b := newTestBreaker(t, newFakeClock(), nil)

	_, err := b.Execute(context.Background(), "identity", "verify-token", nil)

	assert.Error(t, err)
}

func TestBreaker_Execute_OpensAfterThresholdFailures(t *testing.T) {
	// Arrange
	b := newTestBreaker(t, newFakeClock(), nil)
	ctx := context.Background()

	// Act: three failures trip the breaker
	for i := 0; i < 3; i++ {
		_, err := b.Execute(ctx, "delivery", "send-message", failingCall)
		require.ErrorIs(t, err, errDownstream)
	}

	// Assert
	stats := b.Stats("delivery", "send-message")
	assert.Equal(t, breaker.StateOpen, stats.State)
	assert.Equal(t, 3, stats.FailureCount)

	// The next call is rejected without invoking the wrapped operation.
	invoked := false
	_, err := b.Execute(ctx, "delivery", "send-message", func(ctx context.Context) (interface{}, error) {
		invoked = true
		return nil, nil
	})
	assert.False(t, invoked)
	require.Error(t, err)
	assert.True(t, domainerrors.IsCircuitBreakerOpen(err))
	assert.True(t, domainerrors.IsRetryable(err))
}

func TestBreaker_Execute_FallbackServesWhileOpen(t *testing.T) {
	// Arrange
	b := newTestBreaker(t, newFakeClock(), nil)
	tripBreaker(t, b, "responder", "generate-reply")

	// Act
	invoked := false
	result, err := b.Execute(context.Background(), "responder", "generate-reply",
		func(ctx context.Context) (interface{}, error) {
			invoked = true
			return nil, nil
		},
		breaker.WithFallback(func(ctx context.Context) (interface{}, error) {
			return "fallback", nil
		}),
	)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "fallback", result)
	assert.False(t, invoked)
}

func TestBreaker_Execute_MinimumRequestCountGate(t *testing.T) {
	// Arrange: a single failure crosses the threshold, but the breaker must
	// not trip until the window has seen enough traffic.
	b := newTestBreaker(t, newFakeClock(), nil)
	ctx := context.Background()
	settings := breaker.WithSettings(breaker.Settings{
		FailureThreshold:    1,
		MinimumRequestCount: 3,
	})

	// Act / Assert
	_, err := b.Execute(ctx, "message-store", "save-message", failingCall, settings)
	require.ErrorIs(t, err, errDownstream)
	assert.Equal(t, breaker.StateClosed, b.Stats("message-store", "save-message").State)

	_, err = b.Execute(ctx, "message-store", "save-message", failingCall, settings)
	require.ErrorIs(t, err, errDownstream)
	assert.Equal(t, breaker.StateClosed, b.Stats("message-store", "save-message").State)

	_, err = b.Execute(ctx, "message-store", "save-message", failingCall, settings)
	require.ErrorIs(t, err, errDownstream)
	assert.Equal(t, breaker.StateOpen, b.Stats("message-store", "save-message").State)
}

func TestBreaker_Execute_WindowRollClearsFailures(t *testing.T) {
	// Arrange
	clock := newFakeClock()
	b := newTestBreaker(t, clock, nil)
	ctx := context.Background()

	_, _ = b.Execute(ctx, "identity", "verify-token", failingCall)
	_, _ = b.Execute(ctx, "identity", "verify-token", failingCall)

	// Act: the third failure lands in a fresh monitoring window
	clock.Advance(31 * time.Second)
	_, err := b.Execute(ctx, "identity", "verify-token", failingCall)

	// Assert
	require.ErrorIs(t, err, errDownstream)
	stats := b.Stats("identity", "verify-token")
	assert.Equal(t, breaker.StateClosed, stats.State)
	assert.Equal(t, 1, stats.FailureCount)
	assert.Equal(t, 1, stats.RequestCount)
}

func TestBreaker_Execute_HalfOpenProbeSuccessCloses(t *testing.T) {
	// Arrange
	clock := newFakeClock()
	b := newTestBreaker(t, clock, nil)
	tripBreaker(t, b, "delivery", "send-message")

	// Act: after the recovery timeout a single probe is let through
	clock.Advance(15 * time.Second)
	result, err := b.Execute(context.Background(), "delivery", "send-message", succeedingCall)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "ok", result)

	stats := b.Stats("delivery", "send-message")
	assert.Equal(t, breaker.StateClosed, stats.State)
	assert.Equal(t, 0, stats.FailureCount)
	assert.Equal(t, 0, stats.SuccessCount)
}

func TestBreaker_Execute_HalfOpenProbeFailureReopens(t *testing.T) {
	// Arrange
	clock := newFakeClock()
	b := newTestBreaker(t, clock, nil)
	ctx := context.Background()
	tripBreaker(t, b, "delivery", "send-message")

	// Act: the probe fails
	clock.Advance(15 * time.Second)
	_, err := b.Execute(ctx, "delivery", "send-message", failingCall)
	require.ErrorIs(t, err, errDownstream)

	// Assert: open again, short-circuiting until the next recovery timeout
	assert.Equal(t, breaker.StateOpen, b.Stats("delivery", "send-message").State)

	_, err = b.Execute(ctx, "delivery", "send-message", succeedingCall)
	assert.True(t, domainerrors.IsCircuitBreakerOpen(err))

	clock.Advance(15 * time.Second)
	_, err = b.Execute(ctx, "delivery", "send-message", succeedingCall)
	require.NoError(t, err)
	assert.Equal(t, breaker.StateClosed, b.Stats("delivery", "send-message").State)
}

func TestBreaker_Execute_SingleProbeWhileHalfOpen(t *testing.T) {
	// Arrange
	clock := newFakeClock()
	b := newTestBreaker(t, clock, nil)
	ctx := context.Background()
	tripBreaker(t, b, "identity", "verify-token")
	clock.Advance(15 * time.Second)

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)

	// Act: the first call becomes the probe and blocks
	go func() {
		_, err := b.Execute(ctx, "identity", "verify-token", func(ctx context.Context) (interface{}, error) {
			close(entered)
			<-release
			return "ok", nil
		})
		done <- err
	}()
	<-entered

	// A second call while the probe is in flight is rejected.
	invoked := false
	_, err := b.Execute(ctx, "identity", "verify-token", func(ctx context.Context) (interface{}, error) {
		invoked = true
		return nil, nil
	})
	assert.False(t, invoked)
	assert.True(t, domainerrors.IsCircuitBreakerOpen(err))

	// Assert: the probe completes and closes the breaker
	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, breaker.StateClosed, b.Stats("identity", "verify-token").State)
}

func TestBreaker_Execute_KeysAreIndependent(t *testing.T) {
	// Arrange
	b := newTestBreaker(t, newFakeClock(), nil)
	tripBreaker(t, b, "connection-store", "bind-identity")

	// Act
	result, err := b.Execute(context.Background(), "connection-store", "save-connection", succeedingCall)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, breaker.StateOpen, b.Stats("connection-store", "bind-identity").State)
	assert.Equal(t, breaker.StateClosed, b.Stats("connection-store", "save-connection").State)
}

func TestBreaker_Reset_ClearsAllState(t *testing.T) {
	// Arrange
	b := newTestBreaker(t, newFakeClock(), nil)
	tripBreaker(t, b, "delivery", "send-message")

	// Act
	b.Reset()

	// Assert
	stats := b.Stats("delivery", "send-message")
	assert.Equal(t, breaker.StateClosed, stats.State)
	assert.Equal(t, 0, stats.FailureCount)

	result, err := b.Execute(context.Background(), "delivery", "send-message", succeedingCall)
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
}

func TestBreaker_Stats_UnknownKeyReportsClosed(t *testing.T) {
	b := newTestBreaker(t, newFakeClock(), nil)

	stats := b.Stats("identity", "verify-token")

	assert.Equal(t, "identity", stats.Service)
	assert.Equal(t, "verify-token", stats.Operation)
	assert.Equal(t, breaker.StateClosed, stats.State)
	assert.Equal(t, 0, stats.RequestCount)
}

func TestBreaker_AllStats_SortedByKey(t *testing.T) {
	// Arrange
	b := newTestBreaker(t, newFakeClock(), nil)
	ctx := context.Background()
	_, _ = b.Execute(ctx, "responder", "generate-reply", succeedingCall)
	_, _ = b.Execute(ctx, "identity", "verify-token", succeedingCall)
	_, _ = b.Execute(ctx, "identity", "resolve-user", succeedingCall)

	// Act
	stats := b.AllStats()

	// Assert
	require.Len(t, stats, 3)
	assert.Equal(t, "identity", stats[0].Service)
	assert.Equal(t, "resolve-user", stats[0].Operation)
	assert.Equal(t, "identity", stats[1].Service)
	assert.Equal(t, "verify-token", stats[1].Operation)
	assert.Equal(t, "responder", stats[2].Service)
	assert.Equal(t, "generate-reply", stats[2].Operation)
}

func TestBreaker_Execute_RecorderObservations(t *testing.T) {
	// Arrange
	clock := newFakeClock()
	recorder := &fakeRecorder{}
	b := newTestBreaker(t, clock, recorder)
	ctx := context.Background()

	// Act: trip, short-circuit once, then recover via a probe
	for i := 0; i < 3; i++ {
		_, _ = b.Execute(ctx, "delivery", "send-message", failingCall)
	}
	_, _ = b.Execute(ctx, "delivery", "send-message", succeedingCall)
	clock.Advance(15 * time.Second)
	_, err := b.Execute(ctx, "delivery", "send-message", succeedingCall)
	require.NoError(t, err)

	// Assert
	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	assert.Equal(t, []string{
		"delivery:send-message CLOSED->OPEN",
		"delivery:send-message OPEN->HALF_OPEN",
		"delivery:send-message HALF_OPEN->CLOSED",
	}, recorder.transitions)
	assert.Equal(t, 1, recorder.shortCircuits)
	assert.Equal(t, 4, recorder.calls)
}

func TestBreaker_ServiceOverrideApplies(t *testing.T) {
	// Arrange: a service-wide override lowers the trip point
	logger := zerolog.Nop()
	b := breaker.NewBreaker(&breaker.Config{
		Overrides: map[string]breaker.Settings{
			"identity": {FailureThreshold: 2, MinimumRequestCount: 2},
		},
		Logger:   &logger,
		TimeFunc: newFakeClock().Now,
	})
	ctx := context.Background()

	// Act
	_, _ = b.Execute(ctx, "identity", "verify-token", failingCall)
	_, _ = b.Execute(ctx, "identity", "verify-token", failingCall)

	// Assert
	assert.Equal(t, breaker.StateOpen, b.Stats("identity", "verify-token").State)
}
