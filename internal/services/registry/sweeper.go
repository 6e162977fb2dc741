package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/chatgate/chat-service/internal/metrics"
)

const (
	// DefaultSweepSchedule is the cron spec for the reclamation sweep.
	DefaultSweepSchedule = "@every 1m"

	// DefaultSweepTimeout bounds a single reclamation pass.
	DefaultSweepTimeout = 30 * time.Second
)

// Sweeper removes expired connection records on a schedule. Deletes are
// idempotent, so racing the store's native key expiry is harmless.
type Sweeper struct {
	registry Service
	metrics  *metrics.Metrics
	logger   zerolog.Logger
	schedule string
	timeout  time.Duration
	cron     *cron.Cron
}

// SweeperConfig holds the configuration for the sweeper.
type SweeperConfig struct {
	Registry Service
	Metrics  *metrics.Metrics
	Logger   *zerolog.Logger
	Schedule string
	Timeout  time.Duration
}

// NewSweeper creates a new sweeper.
func NewSweeper(cfg *SweeperConfig) (*Sweeper, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.Registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if cfg.Metrics == nil {
		return nil, fmt.Errorf("metrics is required")
	}

	logger := log.Logger
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	schedule := cfg.Schedule
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultSweepTimeout
	}

	return &Sweeper{
		registry: cfg.Registry,
		metrics:  cfg.Metrics,
		logger:   logger,
		schedule: schedule,
		timeout:  timeout,
		cron:     cron.New(),
	}, nil
}

// Start schedules the sweep and begins running it.
func (s *Sweeper) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.runScheduled); err != nil {
		return fmt.Errorf("failed to schedule connection sweep: %w", err)
	}
	s.cron.Start()
	s.logger.Info().Str("schedule", s.schedule).Msg("connection sweeper started")
	return nil
}

// Stop halts the schedule and waits for a running pass to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Sweeper) runScheduled() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if _, err := s.Run(ctx, time.Now().UTC()); err != nil {
		s.logger.Error().Err(err).Msg("connection sweep failed")
	}
}

// Run performs one reclamation pass and returns the number of records
// removed. A failed delete is logged and skipped; the pass keeps going.
func (s *Sweeper) Run(ctx context.Context, now time.Time) (int, error) {
	ids, err := s.registry.ListExpired(ctx, now)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, id := range ids {
		if err := s.registry.Delete(ctx, id); err != nil {
			s.logger.Warn().Err(err).Str("connection_id", id).Msg("failed to remove expired connection")
			continue
		}
		removed++
	}

	if removed > 0 {
		s.metrics.RecordConnectionsSwept(removed)
		s.logger.Info().Int("removed", removed).Msg("expired connections swept")
	}

	return removed, nil
}
