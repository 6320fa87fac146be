package reminder

import (
	"context"
	"time"
)

// Repository defines the interface for bill reminder data access.
type Repository interface {
	Create(ctx context.Context, params CreateParams) (*Reminder, error)
	GetByID(ctx context.Context, id string, userID int64) (*Reminder, error)
	// List returns the user's reminders ordered by due date.
	List(ctx context.Context, userID int64) ([]*Reminder, error)
	Update(ctx context.Context, id string, userID int64, params UpdateParams) (*Reminder, error)
	Delete(ctx context.Context, id string, userID int64) error

	// MarkPaid sets is_paid only if it is unset. The bool result reports
	// whether this call performed the transition.
	MarkPaid(ctx context.Context, id string, userID int64) (*Reminder, bool, error)

	// ListDueCandidates returns unpaid reminders of all users whose due date
	// lies in [today, today+reminder_days_before].
	ListDueCandidates(ctx context.Context, today time.Time) ([]*Reminder, error)

	// MarkReminded stamps last_reminded_at with at only if it still holds
	// previous. The bool result reports whether this call won the stamp.
	MarkReminded(ctx context.Context, id string, previous *time.Time, at time.Time) (bool, error)
}
