package services

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/planhr/backend/usecase/recurrence"
	taskUC "github.com/planhr/backend/usecase/task"
)

// ConnectionHealth abstracts the connection monitor functionality.
type ConnectionHealth interface {
	IsOnline() bool
}

// SweeperConfig holds the cron schedules of the two periodic sweeps.
type SweeperConfig struct {
	HorizonSchedule   string
	LifecycleSchedule string
	Timeout           time.Duration
}

// Sweeper runs the periodic planning maintenance: extending recurrence
// horizons and advancing task states. Both sweeps are idempotent, so the
// at-least-once cron semantics are safe.
type Sweeper struct {
	engine  *recurrence.Engine
	tasks   *taskUC.UseCase
	monitor ConnectionHealth
	logger  *zap.Logger
	cron    *cron.Cron
	cfg     SweeperConfig
}

func NewSweeper(
	engine *recurrence.Engine,
	tasks *taskUC.UseCase,
	monitor ConnectionHealth,
	logger *zap.Logger,
	cfg SweeperConfig,
) *Sweeper {
	if cfg.HorizonSchedule == "" {
		cfg.HorizonSchedule = "@hourly"
	}
	if cfg.LifecycleSchedule == "" {
		cfg.LifecycleSchedule = "@every 5m"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Sweeper{
		engine:  engine,
		tasks:   tasks,
		monitor: monitor,
		logger:  logger,
		cfg:     cfg,
		cron:    cron.New(),
	}

	_, _ = s.cron.AddFunc(cfg.HorizonSchedule, func() { s.run("horizon", s.SweepHorizons) })
	_, _ = s.cron.AddFunc(cfg.LifecycleSchedule, func() { s.run("lifecycle", s.SweepLifecycle) })

	return s
}

// Start launches the cron scheduler.
func (s *Sweeper) Start() {
	if s == nil || s.cron == nil {
		return
	}
	s.cron.Start()
	s.logger.Info("planning sweeper started",
		zap.String("horizon_schedule", s.cfg.HorizonSchedule),
		zap.String("lifecycle_schedule", s.cfg.LifecycleSchedule))
}

// Stop gracefully stops the scheduler, waiting for a running sweep.
func (s *Sweeper) Stop(ctx context.Context) {
	if s == nil || s.cron == nil {
		return
	}
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	s.logger.Info("planning sweeper stopped")
}

// SweepHorizons extends due recurrence series up to each company's
// generation horizon.
func (s *Sweeper) SweepHorizons(ctx context.Context) error {
	return s.engine.SweepHorizons(ctx, time.Now())
}

// SweepLifecycle advances task states based on the current time.
func (s *Sweeper) SweepLifecycle(ctx context.Context) error {
	return s.tasks.SweepLifecycle(ctx, time.Now())
}

func (s *Sweeper) run(name string, sweep func(context.Context) error) {
	if s.monitor != nil && !s.monitor.IsOnline() {
		s.logger.Debug("skipping sweep (offline)", zap.String("sweep", name))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Timeout)
	defer cancel()
	if err := sweep(ctx); err != nil {
		s.logger.Error("sweep failed", zap.String("sweep", name), zap.Error(err))
	}
}
