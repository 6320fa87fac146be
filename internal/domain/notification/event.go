package notification

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

type EventKind string

const (
	EventTransactionRecorded EventKind = "transaction.recorded"
	EventBudgetSet           EventKind = "budget.set"
	EventBudgetAlert         EventKind = "budget.alert"
	EventGoalCreated         EventKind = "goal.created"
	EventGoalCompleted       EventKind = "goal.completed"
	EventReminderPaid        EventKind = "reminder.paid"
	EventReminderDue         EventKind = "reminder.due"
)

// Keys used in Event.Data. Amounts are decimal strings with two places,
// dates are YYYY-MM-DD.
const (
	DataTransactionID = "transactionId"
	DataGoalID        = "goalId"
	DataReminderID    = "reminderId"
	DataAmount        = "amount"
	DataCategory      = "category"
	DataType          = "type"
	DataDescription   = "description"
	DataDate          = "date"
	DataMonth         = "month"
	DataYear          = "year"
	DataPeriod        = "period"
	DataBudget        = "budget"
	DataSpent         = "spent"
	DataPercentage    = "percentage"
	DataLevel         = "level"
	DataTitle         = "title"
	DataTargetAmount  = "targetAmount"
	DataTargetDate    = "targetDate"
	DataCurrentAmount = "currentAmount"
	DataDueDate       = "dueDate"
	DataDaysUntilDue  = "daysUntilDue"
)

// Budget alert levels carried in DataLevel.
const (
	LevelWarning  = "warning"
	LevelExceeded = "exceeded"
)

// Event is an outbound fact emitted by a domain service. Delivery is at most
// once; handlers must tolerate an event never arriving.
type Event struct {
	ID         string            `json:"id"`
	Kind       EventKind         `json:"kind"`
	UserID     int64             `json:"userId"`
	OccurredAt time.Time         `json:"occurredAt"`
	Data       map[string]string `json:"data"`
}

func NewEvent(kind EventKind, userID int64, data map[string]string) Event {
	if data == nil {
		data = make(map[string]string)
	}
	return Event{
		ID:         uuid.NewString(),
		Kind:       kind,
		UserID:     userID,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
}

// Publisher hands events to whatever transport delivers them to handlers.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Handler reacts to a delivered event.
type Handler interface {
	HandleEvent(ctx context.Context, e Event) error
}

type HandlerFunc func(ctx context.Context, e Event) error

func (f HandlerFunc) HandleEvent(ctx context.Context, e Event) error {
	return f(ctx, e)
}

// Fanout delivers each event to every handler, even when one fails.
type Fanout []Handler

func (f Fanout) HandleEvent(ctx context.Context, e Event) error {
	var errs []error
	for _, h := range f {
		if err := h.HandleEvent(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PublishBestEffort publishes e and logs a failure instead of returning it,
// so side effects never change the outcome of the operation that caused them.
func PublishBestEffort(ctx context.Context, p Publisher, e Event) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, e); err != nil {
		slog.WarnContext(ctx, "failed to publish event",
			"event_kind", e.Kind,
			"event_id", e.ID,
			"user_id", e.UserID,
			"error", err,
		)
	}
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
