package registry_test

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatgate/chat-service/internal/metrics"
	"github.com/chatgate/chat-service/internal/services/registry"
)

func newTestSweeper(t *testing.T, svc registry.Service, m *metrics.Metrics) *registry.Sweeper {
	t.Helper()

	logger := zerolog.Nop()
	sweeper, err := registry.NewSweeper(&registry.SweeperConfig{
		Registry: svc,
		Metrics:  m,
		Logger:   &logger,
	})
	require.NoError(t, err)
	return sweeper
}

func TestNewSweeper_Validation(t *testing.T) {
	_, err := registry.NewSweeper(nil)
	assert.Error(t, err)

	_, err = registry.NewSweeper(&registry.SweeperConfig{})
	assert.Error(t, err)

	_, err = registry.NewSweeper(&registry.SweeperConfig{Registry: setupRegistry(t)})
	assert.Error(t, err)
}

func TestSweeper_Run_RemovesExpiredOnly(t *testing.T) {
	// Arrange: two registries with different TTLs share one store
	client := setupCache(t)
	shortLived, err := registry.NewService(&registry.Config{CacheClient: client, TTL: time.Hour})
	require.NoError(t, err)
	longLived, err := registry.NewService(&registry.Config{CacheClient: client, TTL: 5 * time.Hour})
	require.NoError(t, err)

	ctx := context.Background()
	_, err = shortLived.Create(ctx, "conn-1")
	require.NoError(t, err)
	_, err = shortLived.Create(ctx, "conn-2")
	require.NoError(t, err)
	_, err = longLived.Create(ctx, "conn-3")
	require.NoError(t, err)

	m := metrics.New(nil)
	sweeper := newTestSweeper(t, shortLived, m)

	// Act: sweep from two hours in the future
	removed, err := sweeper.Run(ctx, time.Now().UTC().Add(2*time.Hour))

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.Equal(t, float64(2), testutil.ToFloat64(m.ConnectionsSwept))

	gone, err := shortLived.GetByConnectionID(ctx, "conn-1")
	require.NoError(t, err)
	assert.Nil(t, gone)

	kept, err := longLived.GetByConnectionID(ctx, "conn-3")
	require.NoError(t, err)
	assert.NotNil(t, kept)

	// A second pass finds nothing left to remove.
	removed, err = sweeper.Run(ctx, time.Now().UTC().Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
}

func TestSweeper_Run_EmptyStore(t *testing.T) {
	sweeper := newTestSweeper(t, setupRegistry(t), metrics.New(nil))

	removed, err := sweeper.Run(context.Background(), time.Now().UTC())

	require.NoError(t, err)
	assert.Equal(t, 0, removed)
}

func TestSweeper_StartStop(t *testing.T) {
	// Arrange
	sweeper := newTestSweeper(t, setupRegistry(t), metrics.New(nil))

	// Act / Assert
	require.NoError(t, sweeper.Start())
	sweeper.Stop()
}

func TestSweeper_Start_InvalidSchedule(t *testing.T) {
	logger := zerolog.Nop()
	sweeper, err := registry.NewSweeper(&registry.SweeperConfig{
		Registry: setupRegistry(t),
		Metrics:  metrics.New(nil),
		Logger:   &logger,
		Schedule: "not-a-schedule",
	})
	require.NoError(t, err)

	assert.Error(t, sweeper.Start())
}
