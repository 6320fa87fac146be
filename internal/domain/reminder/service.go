package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"pocketbook/internal/domain/notification"
)

type Service struct {
	repo      Repository
	publisher notification.Publisher
	now       func() time.Time
}

func NewService(repo Repository, publisher notification.Publisher, now func() time.Time) *Service {
	if publisher == nil {
		publisher = notification.NopPublisher{}
	}
	if now == nil {
		now = time.Now
	}
	return &Service{repo: repo, publisher: publisher, now: now}
}

func (s *Service) Create(ctx context.Context, userID int64, params CreateParams) (*Reminder, error) {
	params.UserID = userID
	if err := params.Validate(s.now()); err != nil {
		return nil, err
	}
	return s.repo.Create(ctx, params)
}

func (s *Service) List(ctx context.Context, userID int64) ([]View, error) {
	reminders, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	views := make([]View, len(reminders))
	for i, r := range reminders {
		views[i] = NewView(r, now)
	}
	return views, nil
}

func (s *Service) Get(ctx context.Context, id string, userID int64) (View, error) {
	r, err := s.repo.GetByID(ctx, id, userID)
	if err != nil {
		return View{}, err
	}
	return NewView(r, s.now()), nil
}

func (s *Service) Update(ctx context.Context, id string, userID int64, params UpdateParams) (*Reminder, error) {
	if err := params.Validate(s.now()); err != nil {
		return nil, err
	}
	return s.repo.Update(ctx, id, userID, params)
}

func (s *Service) Delete(ctx context.Context, id string, userID int64) error {
	return s.repo.Delete(ctx, id, userID)
}

// MarkPaid marks the reminder paid. Only the call that flips the flag
// publishes reminder.paid; repeating it returns the reminder unchanged.
func (s *Service) MarkPaid(ctx context.Context, id string, userID int64) (*Reminder, error) {
	r, transitioned, err := s.repo.MarkPaid(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	if transitioned {
		notification.PublishBestEffort(ctx, s.publisher, notification.NewEvent(notification.EventReminderPaid, userID, map[string]string{
			notification.DataReminderID: r.ID,
			notification.DataTitle:      r.Title,
			notification.DataAmount:     r.Amount.StringFixed(2),
			notification.DataDueDate:    r.DueDate.Format(time.DateOnly),
			notification.DataCategory:   r.Category,
		}))
	}
	return r, nil
}

// SweepDue publishes reminder.due for every unpaid reminder inside its
// reminder window that was not yet reminded today, and returns how many
// were sent. A reminder is stamped before its event is published, so of two
// overlapping sweeps only the one that wins the stamp publishes.
func (s *Service) SweepDue(ctx context.Context) (int, error) {
	now := s.now()
	candidates, err := s.repo.ListDueCandidates(ctx, calendarDay(now))
	if err != nil {
		return 0, fmt.Errorf("list due reminders: %w", err)
	}

	sent := 0
	for _, r := range candidates {
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}
		if !r.DueForReminder(now) {
			continue
		}

		stamped, err := s.repo.MarkReminded(ctx, r.ID, r.LastRemindedAt, now)
		if err != nil {
			slog.WarnContext(ctx, "failed to stamp reminder", "reminder_id", r.ID, "user_id", r.UserID, "error", err)
			continue
		}
		if !stamped {
			continue
		}

		notification.PublishBestEffort(ctx, s.publisher, notification.NewEvent(notification.EventReminderDue, r.UserID, map[string]string{
			notification.DataReminderID:   r.ID,
			notification.DataTitle:        r.Title,
			notification.DataAmount:       r.Amount.StringFixed(2),
			notification.DataDueDate:      r.DueDate.Format(time.DateOnly),
			notification.DataDaysUntilDue: fmt.Sprint(r.DaysUntilDue(now)),
			notification.DataCategory:     r.Category,
		}))
		sent++
	}

	slog.InfoContext(ctx, "reminder sweep finished", "candidates", len(candidates), "sent", sent)
	return sent, nil
}
