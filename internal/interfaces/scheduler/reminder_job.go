package scheduler

import (
	"context"
	"log/slog"
)

// ReminderSweeper is satisfied by *reminder.Service.
type ReminderSweeper interface {
	SweepDue(ctx context.Context) (int, error)
}

// ReminderSweepJob publishes reminder.due for every reminder inside its
// window.
type ReminderSweepJob struct {
	sweeper ReminderSweeper
}

func NewReminderSweepJob(sweeper ReminderSweeper) *ReminderSweepJob {
	return &ReminderSweepJob{sweeper: sweeper}
}

func (j *ReminderSweepJob) Execute(ctx context.Context) error {
	sent, err := j.sweeper.SweepDue(ctx)
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "reminder sweep finished", "reminders_sent", sent)
	return nil
}

func (j *ReminderSweepJob) Description() string {
	return "due bill reminder sweep"
}

// ReminderJobs is a JobProvider that yields a single sweep per run.
func ReminderJobs(sweeper ReminderSweeper) JobProvider {
	return func(ctx context.Context) ([]Job, error) {
		return []Job{NewReminderSweepJob(sweeper)}, nil
	}
}
