package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"finnews/internal/ports"
)

// Scheduler wires the cron driver with the recurring ingestion and
// price-tracking jobs.
type Scheduler struct {
	driver   ports.Scheduler
	pipeline *Pipeline
	tracker  *Tracker
	logger   *slog.Logger

	queries   []string
	quota     int
	newsCron  string
	priceCron string
}

// SchedulerDeps collects everything the recurring jobs need.
type SchedulerDeps struct {
	Driver    ports.Scheduler
	Pipeline  *Pipeline
	Tracker   *Tracker
	Logger    *slog.Logger
	Queries   []string
	Quota     int
	NewsCron  string
	PriceCron string
}

// NewScheduler returns a helper to start/stop the recurring jobs.
func NewScheduler(deps SchedulerDeps) *Scheduler {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Scheduler{
		driver:    deps.Driver,
		pipeline:  deps.Pipeline,
		tracker:   deps.Tracker,
		logger:    deps.Logger,
		queries:   deps.Queries,
		quota:     deps.Quota,
		newsCron:  deps.NewsCron,
		priceCron: deps.PriceCron,
	}
}

// Start registers the configured jobs and launches the driver.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	if s.pipeline != nil && s.newsCron != "" {
		job := func(trigger time.Time) {
			s.logger.Info("scheduled ingestion triggered", "at", trigger.Format(time.RFC3339))
			if _, err := s.pipeline.Run(ctx, s.queries, s.quota); err != nil {
				s.logger.Error("scheduled ingestion stopped", "error", err)
			}
		}
		if err := s.driver.Register(s.newsCron, job); err != nil {
			return fmt.Errorf("register news job: %w", err)
		}
	}

	if s.tracker != nil && s.priceCron != "" {
		job := func(time.Time) {
			if _, err := s.tracker.Track(ctx); err != nil {
				s.logger.Warn("scheduled price tracking failed", "error", err)
			}
		}
		if err := s.driver.Register(s.priceCron, job); err != nil {
			return fmt.Errorf("register price job: %w", err)
		}
	}

	return s.driver.Start(ctx)
}

// Stop gracefully tears down the underlying driver.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}
	return s.driver.Stop(ctx)
}
