// Package scheduler runs periodic maintenance jobs on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/platinummonkey/helpdesk/pkg/observability"
)

// JobFunc is one run of a maintenance job
type JobFunc func(ctx context.Context) error

type job struct {
	name string
	spec string
	fn   JobFunc
}

// Scheduler runs named jobs on standard five-field cron schedules
type Scheduler struct {
	cron   *cron.Cron
	logger *observability.Logger

	mu   sync.Mutex
	jobs map[string]job
}

// New creates a scheduler. Schedules are evaluated in UTC.
func New(logger *observability.Logger) *Scheduler {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(time.UTC)),
		logger: logger,
		jobs:   make(map[string]job),
	}
}

// Add registers fn under name. An empty spec disables the job.
func (s *Scheduler) Add(name, spec string, fn JobFunc) error {
	if spec == "" {
		s.logger.WithField("job", name).Debug("Job disabled")
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %s already registered", name)
	}

	j := job{name: name, spec: spec, fn: fn}
	if _, err := s.cron.AddFunc(spec, func() { s.run(context.Background(), j) }); err != nil {
		return fmt.Errorf("invalid schedule %q for job %s: %w", spec, name, err)
	}
	s.jobs[name] = j

	s.logger.WithFields(map[string]interface{}{
		"job":      name,
		"schedule": spec,
	}).Info("Scheduled job")
	return nil
}

// RunNow runs a registered job synchronously
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	j, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown job: %s", name)
	}
	return s.run(ctx, j)
}

func (s *Scheduler) run(ctx context.Context, j job) error {
	start := time.Now()
	logger := s.logger.WithField("job", j.name)

	if err := j.fn(ctx); err != nil {
		logger.WithError(err).Error("Job failed")
		return err
	}
	logger.WithField("duration", time.Since(start).String()).Debug("Job completed")
	return nil
}

// Jobs returns the names of registered jobs
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	return names
}

// Start begins running jobs in the background
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop prevents new runs and waits for running jobs until ctx is done
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ValidateSchedule reports whether spec is a valid schedule. Empty is valid.
func ValidateSchedule(spec string) error {
	if spec == "" {
		return nil
	}
	_, err := cron.ParseStandard(spec)
	return err
}
