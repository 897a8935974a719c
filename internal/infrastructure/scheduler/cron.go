package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"finnews/internal/ports"
)

// CronScheduler runs registered jobs on cron expressions in a fixed location.
type CronScheduler struct {
	cron *cron.Cron
}

var _ ports.Scheduler = (*CronScheduler)(nil)

// NewCronScheduler builds a scheduler evaluating expressions in loc.
func NewCronScheduler(loc *time.Location) *CronScheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &CronScheduler{cron: cron.New(cron.WithLocation(loc))}
}

// Register adds a job under the given cron expression.
func (c *CronScheduler) Register(expr string, job func(time.Time)) error {
	if job == nil {
		return nil
	}

	if _, err := c.cron.AddFunc(expr, func() { job(time.Now()) }); err != nil {
		return fmt.Errorf("register cron %q: %w", expr, err)
	}
	return nil
}

// Start launches the cron loop; the loop also halts when ctx is cancelled.
func (c *CronScheduler) Start(ctx context.Context) error {
	c.cron.Start()
	go func() {
		<-ctx.Done()
		c.cron.Stop()
	}()
	return nil
}

// Stop halts scheduling and waits for running jobs to finish.
func (c *CronScheduler) Stop(ctx context.Context) error {
	select {
	case <-c.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
