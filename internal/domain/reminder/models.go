package reminder

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"pocketbook/internal/shared/apperrors"
	"pocketbook/internal/shared/money"
)

const (
	DefaultCategory           = "Bills"
	DefaultReminderDaysBefore = 3
	MaxReminderDaysBefore     = 30
)

type Frequency string

const (
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyYearly    Frequency = "yearly"
)

func (f Frequency) Valid() bool {
	switch f {
	case FrequencyMonthly, FrequencyQuarterly, FrequencyYearly:
		return true
	}
	return false
}

var (
	ErrReminderNotFound   = apperrors.NotFound("Bill reminder not found")
	ErrMissingFields      = apperrors.Validation("Title, amount, and due date are required")
	ErrInvalidAmount      = apperrors.Validation("Amount must be greater than 0")
	ErrPastDueDate        = apperrors.Validation("Due date cannot be in the past")
	ErrInvalidFrequency   = apperrors.Validation("Recurring frequency must be monthly, quarterly or yearly")
	ErrInvalidReminderDay = apperrors.Validation("Reminder days before must be between 0 and 30")
	ErrTitleRequired      = apperrors.Validation("Title is required")
)

type Reminder struct {
	ID                 string          `json:"id"`
	UserID             int64           `json:"userId"`
	Title              string          `json:"title"`
	Amount             decimal.Decimal `json:"amount"`
	DueDate            time.Time       `json:"dueDate"`
	Category           string          `json:"category"`
	Description        string          `json:"description"`
	IsPaid             bool            `json:"isPaid"`
	IsRecurring        bool            `json:"isRecurring"`
	RecurringFrequency Frequency       `json:"recurringFrequency"`
	ReminderDaysBefore int             `json:"reminderDaysBefore"`
	LastRemindedAt     *time.Time      `json:"-"`
	CreatedAt          time.Time       `json:"createdAt"`
	UpdatedAt          time.Time       `json:"updatedAt"`
}

// DaysUntilDue is the number of calendar days from now to the due date.
// Negative values mean the due date has passed.
func (r *Reminder) DaysUntilDue(now time.Time) int {
	return int(calendarDay(r.DueDate).Sub(calendarDay(now)).Hours() / 24)
}

func (r *Reminder) IsOverdue(now time.Time) bool {
	return !r.IsPaid && r.DaysUntilDue(now) < 0
}

// DueForReminder reports whether an unpaid reminder is inside its reminder
// window and has not been reminded on now's calendar day.
func (r *Reminder) DueForReminder(now time.Time) bool {
	if r.IsPaid {
		return false
	}
	days := r.DaysUntilDue(now)
	if days < 0 || days > r.ReminderDaysBefore {
		return false
	}
	if r.LastRemindedAt != nil && !calendarDay(r.LastRemindedAt.In(now.Location())).Before(calendarDay(now)) {
		return false
	}
	return true
}

// View is a reminder with its derived fields, as returned by the API.
type View struct {
	*Reminder
	DaysUntilDue int  `json:"daysUntilDue"`
	IsOverdue    bool `json:"isOverdue"`
}

func NewView(r *Reminder, now time.Time) View {
	return View{Reminder: r, DaysUntilDue: r.DaysUntilDue(now), IsOverdue: r.IsOverdue(now)}
}

type CreateParams struct {
	UserID             int64
	Title              string
	Amount             decimal.Decimal
	DueDate            *time.Time
	Category           string
	Description        string
	IsRecurring        bool
	RecurringFrequency Frequency
	ReminderDaysBefore *int
}

func (p *CreateParams) Validate(now time.Time) error {
	p.Title = strings.TrimSpace(p.Title)
	if p.Title == "" || p.Amount.IsZero() || p.DueDate == nil {
		return ErrMissingFields
	}
	if err := money.CheckPositive(p.Amount, ErrInvalidAmount); err != nil {
		return err
	}
	if isPastDay(*p.DueDate, now) {
		return ErrPastDueDate
	}
	if strings.TrimSpace(p.Category) == "" {
		p.Category = DefaultCategory
	}
	if p.RecurringFrequency == "" {
		p.RecurringFrequency = FrequencyMonthly
	}
	if !p.RecurringFrequency.Valid() {
		return ErrInvalidFrequency
	}
	if p.ReminderDaysBefore == nil {
		d := DefaultReminderDaysBefore
		p.ReminderDaysBefore = &d
	}
	return validateReminderDays(*p.ReminderDaysBefore)
}

// UpdateParams is a partial update; nil fields are left unchanged.
type UpdateParams struct {
	Title              *string
	Amount             *decimal.Decimal
	DueDate            *time.Time
	Category           *string
	Description        *string
	IsRecurring        *bool
	RecurringFrequency *Frequency
	ReminderDaysBefore *int
}

func (p UpdateParams) Validate(now time.Time) error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return ErrTitleRequired
	}
	if p.Amount != nil {
		if err := money.CheckPositive(*p.Amount, ErrInvalidAmount); err != nil {
			return err
		}
	}
	if p.DueDate != nil && isPastDay(*p.DueDate, now) {
		return ErrPastDueDate
	}
	if p.RecurringFrequency != nil && !p.RecurringFrequency.Valid() {
		return ErrInvalidFrequency
	}
	if p.ReminderDaysBefore != nil {
		return validateReminderDays(*p.ReminderDaysBefore)
	}
	return nil
}

func validateReminderDays(d int) error {
	if d < 0 || d > MaxReminderDaysBefore {
		return ErrInvalidReminderDay
	}
	return nil
}

func calendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func isPastDay(d, now time.Time) bool {
	return calendarDay(d).Before(calendarDay(now))
}
