package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ScheduleTime is a time of day at which the scheduler fires.
type ScheduleTime struct {
	Hour   int
	Minute int
}

func (st ScheduleTime) String() string {
	return fmt.Sprintf("%02d:%02d", st.Hour, st.Minute)
}

// ParseScheduleTime parses HH:MM.
func ParseScheduleTime(s string) (ScheduleTime, error) {
	var hour, minute int
	_, err := fmt.Sscanf(s, "%d:%d", &hour, &minute)
	if err != nil {
		return ScheduleTime{}, fmt.Errorf("invalid time format (expected HH:MM): %w", err)
	}

	if hour < 0 || hour > 23 {
		return ScheduleTime{}, fmt.Errorf("invalid hour: %d (must be 0-23)", hour)
	}
	if minute < 0 || minute > 59 {
		return ScheduleTime{}, fmt.Errorf("invalid minute: %d (must be 0-59)", minute)
	}

	return ScheduleTime{Hour: hour, Minute: minute}, nil
}

// JobProvider returns the jobs for one scheduled run.
type JobProvider func(ctx context.Context) ([]Job, error)

type SchedulerConfig struct {
	ScheduleTimes []string
	WorkerCount   int
	JobDelay      time.Duration
	QueueSize     int
	RunOnStartup  bool
	JobProvider   JobProvider
	// Location is the zone schedule times are read in. Nil means time.Local.
	Location *time.Location
}

// Scheduler runs the job provider at fixed times of day and feeds the jobs
// to its own worker pool.
type Scheduler struct {
	workerPool    *WorkerPool
	scheduleTimes []ScheduleTime
	runOnStartup  bool
	jobProvider   JobProvider
	loc           *time.Location
	logger        *slog.Logger

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	lastRun string
}

func NewScheduler(cfg SchedulerConfig) (*Scheduler, error) {
	scheduleTimes := make([]ScheduleTime, 0, len(cfg.ScheduleTimes))
	for _, s := range cfg.ScheduleTimes {
		st, err := ParseScheduleTime(s)
		if err != nil {
			return nil, fmt.Errorf("failed to parse schedule time %q: %w", s, err)
		}
		scheduleTimes = append(scheduleTimes, st)
	}
	if len(scheduleTimes) == 0 {
		return nil, errors.New("at least one schedule time is required")
	}
	if cfg.JobProvider == nil {
		return nil, errors.New("job provider is required")
	}

	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		workerPool:    NewWorkerPool(cfg.WorkerCount, cfg.JobDelay, cfg.QueueSize),
		scheduleTimes: scheduleTimes,
		runOnStartup:  cfg.RunOnStartup,
		jobProvider:   cfg.JobProvider,
		loc:           loc,
		logger:        slog.Default().With("component", "scheduler"),
		ctx:           ctx,
		cancel:        cancel,
	}, nil
}

// Start launches the worker pool and the schedule loop.
func (s *Scheduler) Start() {
	s.workerPool.Start()

	if s.runOnStartup {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.runJobs()
		}()
	}

	s.wg.Add(1)
	go s.scheduleLoop()

	s.logger.Info("scheduler started", "times", s.scheduleTimes, "next_run", s.NextScheduledTime(time.Now()))
}

func (s *Scheduler) scheduleLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case now := <-ticker.C:
			if s.shouldRun(now) {
				s.runJobs()
			}
		}
	}
}

// shouldRun reports whether now falls on a schedule time that has not
// fired yet today.
func (s *Scheduler) shouldRun(now time.Time) bool {
	now = now.In(s.loc)
	key := now.Format("2006-01-02T15:04")

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lastRun == key {
		return false
	}
	for _, st := range s.scheduleTimes {
		if now.Hour() == st.Hour && now.Minute() == st.Minute {
			s.lastRun = key
			return true
		}
	}
	return false
}

func (s *Scheduler) runJobs() {
	ctx, cancel := context.WithTimeout(s.ctx, 5*time.Minute)
	defer cancel()

	jobs, err := s.jobProvider(ctx)
	if err != nil {
		s.logger.Error("failed to fetch scheduled jobs", "error", err)
		return
	}
	if len(jobs) == 0 {
		return
	}
	s.workerPool.SubmitBatch(jobs)
}

// TriggerNow runs the job provider immediately in the background.
func (s *Scheduler) TriggerNow() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runJobs()
	}()
}

// Shutdown stops the schedule loop, then drains the worker pool.
func (s *Scheduler) Shutdown(timeout time.Duration) {
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		s.logger.Warn("timed out waiting for scheduler loop to stop")
	}

	s.workerPool.ShutdownWithTimeout(timeout)
	s.logger.Info("scheduler stopped")
}

// NextScheduledTime returns the first schedule time strictly after now.
func (s *Scheduler) NextScheduledTime(now time.Time) time.Time {
	now = now.In(s.loc)

	var next time.Time
	for _, st := range s.scheduleTimes {
		t := time.Date(now.Year(), now.Month(), now.Day(), st.Hour, st.Minute, 0, 0, s.loc)
		if !t.After(now) {
			t = t.AddDate(0, 0, 1)
		}
		if next.IsZero() || t.Before(next) {
			next = t
		}
	}
	return next
}

func (s *Scheduler) ScheduleTimes() []ScheduleTime {
	return s.scheduleTimes
}
