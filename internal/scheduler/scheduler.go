// Package scheduler runs periodic jobs for the lifetime of an owner session.
package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	apperrors "finora/internal/errors"
	"finora/internal/logger"
)

// Job is one periodic task. Run returns how many items it processed.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context, now time.Time) (int, error)
}

// Scheduler runs jobs on their own tickers between Start and Stop. Each job
// runs once immediately on Start.
type Scheduler struct {
	jobs []Job
	now  func() time.Time
	log  *zap.SugaredLogger

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// New creates a scheduler for jobs.
func New(jobs ...Job) *Scheduler {
	return &Scheduler{jobs: jobs, now: time.Now, log: logger.Named("scheduler")}
}

// WithClock replaces the time source passed to jobs.
func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	s.now = now
	return s
}

// Start launches every job. It fails with SESSION_ALREADY_STARTED when the
// scheduler is running.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return apperrors.ErrSessionAlreadyStarted
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true

	for _, job := range s.jobs {
		s.wg.Add(1)
		go s.loop(ctx, job)
	}
	return nil
}

func (s *Scheduler) loop(ctx context.Context, job Job) {
	defer s.wg.Done()

	log := s.log.With("job", job.Name)
	log.Infow("Job scheduled", "interval", job.Interval)

	s.runOnce(ctx, log, job)

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Debugw("Job stopped", "reason", ctx.Err())
			return
		case <-ticker.C:
			s.runOnce(ctx, log, job)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, log *zap.SugaredLogger, job Job) {
	if ctx.Err() != nil {
		return
	}
	now := s.now()
	count, err := job.Run(ctx, now)
	if err != nil {
		log.Errorw("Job run failed", "error", err)
		return
	}
	if count > 0 {
		log.Infow("Job run complete",
			"processed", count,
			"next_check", now.Add(job.Interval).Format("15:04:05"),
		)
	}
}

// Stop cancels every job and waits for running invocations to return. It is
// safe to call on a stopped scheduler.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.cancel()
	s.running = false
	s.mu.Unlock()

	s.wg.Wait()
}

// Running reports whether Start has been called without a matching Stop.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
