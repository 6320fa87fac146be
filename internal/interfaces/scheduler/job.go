package scheduler

import "context"

// Job is a unit of work run by the worker pool.
type Job interface {
	// Execute runs the job. Implementations must respect ctx cancellation.
	Execute(ctx context.Context) error

	// Description names the job in logs and spans.
	Description() string
}

// JobFunc adapts a function to Job.
type JobFunc struct {
	Name string
	Fn   func(ctx context.Context) error
}

func (j JobFunc) Execute(ctx context.Context) error { return j.Fn(ctx) }

func (j JobFunc) Description() string { return j.Name }
