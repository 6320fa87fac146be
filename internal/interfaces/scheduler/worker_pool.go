package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	jobTracer          = otel.Tracer("pocketbook/scheduler")
	jobMeter           = otel.Meter("pocketbook/scheduler")
	jobDuration, _     = jobMeter.Float64Histogram("scheduler.job.duration", metric.WithDescription("Job execution duration in seconds"), metric.WithUnit("s"))
	jobTotal, _        = jobMeter.Int64Counter("scheduler.job.total", metric.WithDescription("Total jobs executed by status"))
	jobQueueDropped, _ = jobMeter.Int64Counter("scheduler.job.queue_dropped", metric.WithDescription("Jobs dropped due to full queue"))
)

var (
	ErrQueueFull  = errors.New("job queue full")
	ErrPoolClosed = errors.New("worker pool is shut down")
)

// DefaultJobTimeout bounds a single job execution.
const DefaultJobTimeout = 2 * time.Minute

// WorkerPool runs submitted jobs on a fixed number of goroutines.
type WorkerPool struct {
	workerCount int
	jobDelay    time.Duration
	jobTimeout  time.Duration
	jobs        chan Job
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	logger      *slog.Logger

	// mu guards closed so Submit never sends on a closed channel.
	mu     sync.RWMutex
	closed bool
}

// NewWorkerPool creates a pool. jobDelay is a pause each worker takes after
// a job; queueSize is the channel buffer.
func NewWorkerPool(workerCount int, jobDelay time.Duration, queueSize int) *WorkerPool {
	if workerCount < 1 {
		workerCount = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &WorkerPool{
		workerCount: workerCount,
		jobDelay:    jobDelay,
		jobTimeout:  DefaultJobTimeout,
		jobs:        make(chan Job, queueSize),
		ctx:         ctx,
		cancel:      cancel,
		logger:      slog.Default().With("component", "worker_pool"),
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start() {
	wp.logger.Info("starting worker pool", "workers", wp.workerCount)

	for i := 1; i <= wp.workerCount; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	for {
		select {
		case <-wp.ctx.Done():
			return

		case job, ok := <-wp.jobs:
			if !ok {
				return
			}

			wp.processJob(id, job)

			if wp.jobDelay > 0 {
				select {
				case <-time.After(wp.jobDelay):
				case <-wp.ctx.Done():
					return
				}
			}
		}
	}
}

func (wp *WorkerPool) processJob(workerID int, job Job) {
	ctx, cancel := context.WithTimeout(wp.ctx, wp.jobTimeout)
	defer cancel()

	ctx, span := jobTracer.Start(ctx, "job.execute",
		trace.WithAttributes(
			attribute.Int("worker.id", workerID),
			attribute.String("job.description", job.Description()),
		),
	)
	defer span.End()

	start := time.Now()
	err := safeExecute(ctx, job)
	jobDuration.Record(ctx, time.Since(start).Seconds())

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		jobTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("status", "error")))
		wp.logger.ErrorContext(ctx, "job failed",
			"worker", workerID, "job", job.Description(), "error", err)
		return
	}

	jobTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("status", "success")))
	wp.logger.DebugContext(ctx, "job completed",
		"worker", workerID, "job", job.Description(), "duration", time.Since(start))
}

// safeExecute turns a panicking job into an error so one bad job cannot
// take a worker down.
func safeExecute(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &panicError{value: r}
		}
	}()
	return job.Execute(ctx)
}

type panicError struct {
	value any
}

func (e *panicError) Error() string {
	return fmt.Sprintf("job panicked: %v", e.value)
}

// Submit queues a job without blocking. It returns ErrQueueFull when the
// buffer is full and ErrPoolClosed after shutdown.
func (wp *WorkerPool) Submit(job Job) error {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	if wp.closed {
		return ErrPoolClosed
	}

	select {
	case wp.jobs <- job:
		return nil
	default:
		jobQueueDropped.Add(context.Background(), 1)
		wp.logger.Warn("job queue full, dropping job", "job", job.Description())
		return ErrQueueFull
	}
}

// SubmitBatch queues jobs and returns how many were accepted.
func (wp *WorkerPool) SubmitBatch(jobs []Job) int {
	submitted := 0
	for _, job := range jobs {
		if err := wp.Submit(job); err != nil {
			continue
		}
		submitted++
	}
	wp.logger.Info("submitted jobs to worker pool", "submitted", submitted, "total", len(jobs))
	return submitted
}

func (wp *WorkerPool) closeQueue() bool {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	if wp.closed {
		return false
	}
	wp.closed = true
	close(wp.jobs)
	return true
}

// Shutdown stops accepting jobs and waits for queued ones to finish.
func (wp *WorkerPool) Shutdown() {
	if !wp.closeQueue() {
		return
	}
	wp.wg.Wait()
	wp.cancel()
	wp.logger.Info("worker pool stopped")
}

// ShutdownWithTimeout drains the queue for at most timeout, then cancels
// running jobs. It reports whether every worker finished in time.
func (wp *WorkerPool) ShutdownWithTimeout(timeout time.Duration) bool {
	if !wp.closeQueue() {
		return true
	}

	done := make(chan struct{})
	go func() {
		wp.wg.Wait()
		close(done)
	}()

	graceful := true
	select {
	case <-done:
	case <-time.After(timeout):
		wp.logger.Warn("worker pool shutdown timed out, cancelling running jobs", "timeout", timeout)
		graceful = false
	}
	wp.cancel()

	wp.logger.Info("worker pool stopped", "graceful", graceful)
	return graceful
}
