package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"pocketbook/internal/domain/notification"
)

// EventDispatcher is the in-process notification.Publisher. Each event
// becomes a pool job that runs the handler off the request path.
type EventDispatcher struct {
	pool    *WorkerPool
	handler notification.Handler
}

func NewEventDispatcher(pool *WorkerPool, handler notification.Handler) *EventDispatcher {
	return &EventDispatcher{pool: pool, handler: handler}
}

// Publish never blocks. The request context is not carried into the job
// because it ends with the response.
func (d *EventDispatcher) Publish(ctx context.Context, e notification.Event) error {
	if err := d.pool.Submit(&eventJob{event: e, handler: d.handler}); err != nil {
		return fmt.Errorf("dispatch %s: %w", e.Kind, err)
	}
	return nil
}

type eventJob struct {
	event   notification.Event
	handler notification.Handler
}

func (j *eventJob) Execute(ctx context.Context) error {
	start := time.Now()
	err := j.handler.HandleEvent(ctx, j.event)
	slog.DebugContext(ctx, "event handled",
		"event_kind", j.event.Kind,
		"event_id", j.event.ID,
		"user_id", j.event.UserID,
		"duration", time.Since(start),
	)
	return err
}

func (j *eventJob) Description() string {
	return fmt.Sprintf("event %s for user %d", j.event.Kind, j.event.UserID)
}
