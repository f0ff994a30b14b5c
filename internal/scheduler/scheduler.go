// Package scheduler runs periodic background jobs, such as index refreshes,
// on standard cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job is a unit of scheduled work. The context is cancelled on Stop.
type Job func(ctx context.Context) error

// Scheduler wraps a cron runner. A job that is still running when its next
// tick arrives is skipped for that tick.
type Scheduler struct {
	cron   *cron.Cron
	logger *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc

	mu   sync.Mutex
	jobs map[string]cron.EntryID
}

// New creates a stopped scheduler.
func New(logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
		jobs:   make(map[string]cron.EntryID),
	}
}

// Validate reports whether spec is a valid five-field cron expression or descriptor.
func Validate(spec string) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", spec, err)
	}
	return nil
}

// Add registers job under name. Names are unique.
func (s *Scheduler) Add(name, spec string, job Job) error {
	if err := Validate(spec); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[name]; ok {
		return fmt.Errorf("job %q already scheduled", name)
	}

	id, err := s.cron.AddFunc(spec, func() { s.run(name, job) })
	if err != nil {
		return fmt.Errorf("schedule %q: %w", name, err)
	}
	s.jobs[name] = id
	s.logger.Info("Job scheduled", zap.String("job", name), zap.String("schedule", spec))
	return nil
}

// Next returns the next activation of the named job, false if it is unknown
// or the scheduler is not running.
func (s *Scheduler) Next(name string) (time.Time, bool) {
	s.mu.Lock()
	id, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return time.Time{}, false
	}
	next := s.cron.Entry(id).Next
	return next, !next.IsZero()
}

// Len returns the number of scheduled jobs.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Start runs the scheduler in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
}

func (s *Scheduler) run(name string, job Job) {
	start := time.Now()
	log := s.logger.With(zap.String("job", name))
	if err := job(s.ctx); err != nil {
		log.Warn("Scheduled job failed", zap.Duration("duration", time.Since(start)), zap.Error(err))
		return
	}
	log.Debug("Scheduled job finished", zap.Duration("duration", time.Since(start)))
}
