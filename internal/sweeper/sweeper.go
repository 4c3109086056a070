// Package sweeper drives the periodic expiry sweep. The engine keeps
// no timers of its own; this is the external scheduler calling
// ReapExpired on a cron schedule.
package sweeper

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/gigdesk/assignq/internal/assignment/engine"
)

const defaultSchedule = "@every 1m"

// Config holds sweeper dependencies
type Config struct {
	Engine   *engine.Engine
	Logger   *slog.Logger
	Schedule string
}

// Sweeper runs the expiry sweep on a cron schedule.
type Sweeper struct {
	engine   *engine.Engine
	logger   *slog.Logger
	schedule string
	cron     *cron.Cron
}

// New creates a new Sweeper
func New(cfg *Config) *Sweeper {
	schedule := cfg.Schedule
	if schedule == "" {
		schedule = defaultSchedule
	}

	return &Sweeper{
		engine:   cfg.Engine,
		logger:   cfg.Logger,
		schedule: schedule,
	}
}

// Start schedules the sweep and runs it until ctx is canceled.
func (s *Sweeper) Start(ctx context.Context) error {
	s.cron = cron.New()

	if _, err := s.cron.AddFunc(s.schedule, func() {
		s.tick(ctx)
	}); err != nil {
		return err
	}

	s.logger.Info("Starting expiry sweeper",
		slog.String("schedule", s.schedule),
	)

	// Sweep once at startup to catch entries that expired while the
	// sweeper was down.
	s.tick(ctx)

	s.cron.Start()
	<-ctx.Done()

	stopCtx := s.cron.Stop()
	<-stopCtx.Done()

	s.logger.Info("Expiry sweeper stopped")
	return nil
}

// tick performs one sweep.
func (s *Sweeper) tick(ctx context.Context) {
	summary, err := s.engine.ReapExpired(ctx, time.Now())
	if err != nil {
		s.logger.Error("Expiry sweep failed",
			slog.Any("error", err),
		)
		return
	}

	if summary.Expired > 0 {
		s.logger.Info("Expiry sweep finished",
			slog.Int("expired", summary.Expired),
			slog.Int("promoted", summary.Promoted),
			slog.Int("exhausted", summary.Exhausted),
		)
	}
}
