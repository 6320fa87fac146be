package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"pocketbook/internal/shared/messages"
)

// Service delivers events to users by email, push and in-app history.
type Service struct {
	repo       Repository
	recipients RecipientFinder
	mailer     Mailer
	messenger  Messenger
	texts      *messages.Messages
}

// NewService creates a notification service. mailer and messenger may be nil
// when the corresponding channel is disabled.
func NewService(repo Repository, recipients RecipientFinder, mailer Mailer, messenger Messenger, texts *messages.Messages) *Service {
	if texts == nil {
		texts = messages.Defaults()
	}
	return &Service{
		repo:       repo,
		recipients: recipients,
		mailer:     mailer,
		messenger:  messenger,
		texts:      texts,
	}
}

// RegisterDevice registers a device token for the authenticated user and
// creates default preferences if none exist.
func (s *Service) RegisterDevice(ctx context.Context, params CreateDeviceTokenParams) (*DeviceToken, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	token, err := s.repo.UpsertDeviceToken(ctx, params)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.GetPreferences(ctx, params.UserID); errors.Is(err, ErrPreferencesNotFound) {
		if _, err := s.repo.UpsertPreferences(ctx, params.UserID, UpdatePreferenceParams{}); err != nil {
			slog.WarnContext(ctx, "failed to create default notification preferences", "user_id", params.UserID, "error", err)
		}
	}

	return token, nil
}

// GetPreferences returns the user's preferences, or all-enabled defaults.
func (s *Service) GetPreferences(ctx context.Context, userID int64) (*Preference, error) {
	if userID <= 0 {
		return nil, ErrInvalidUser
	}

	prefs, err := s.repo.GetPreferences(ctx, userID)
	if errors.Is(err, ErrPreferencesNotFound) {
		return DefaultPreference(userID), nil
	}
	if err != nil {
		return nil, err
	}
	return prefs, nil
}

func (s *Service) UpdatePreferences(ctx context.Context, userID int64, params UpdatePreferenceParams) (*Preference, error) {
	if userID <= 0 {
		return nil, ErrInvalidUser
	}
	return s.repo.UpsertPreferences(ctx, userID, params)
}

// ListNotifications returns a page of the user's history, newest first.
func (s *Service) ListNotifications(ctx context.Context, userID int64, page, perPage int) ([]*Notification, int, error) {
	if userID <= 0 {
		return nil, 0, ErrInvalidUser
	}
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	return s.repo.ListByUserID(ctx, userID, page, perPage)
}

func (s *Service) MarkNotificationOpened(ctx context.Context, notificationID string, userID int64) error {
	if notificationID == "" {
		return ErrMissingID
	}
	if userID <= 0 {
		return ErrInvalidUser
	}
	return s.repo.MarkOpened(ctx, notificationID, userID)
}

// HandleEvent sends the email for e, pushes to the user's devices when the
// category is enabled and records the notification. Channel failures are
// logged; only a failed recipient lookup is returned.
func (s *Service) HandleEvent(ctx context.Context, e Event) error {
	recipient, err := s.recipients.FindRecipient(ctx, e.UserID)
	if err != nil {
		return fmt.Errorf("resolve recipient for %s: %w", e.Kind, err)
	}

	if s.mailer != nil {
		if err := s.mailer.SendEventEmail(ctx, *recipient, e); err != nil {
			slog.ErrorContext(ctx, "failed to send notification email",
				"user_id", e.UserID, "event_kind", e.Kind, "event_id", e.ID, "error", err)
		}
	}

	text, ok := s.textFor(e)
	if !ok {
		return nil
	}
	if err := s.SendToUser(ctx, e.UserID, text.Title, text.Body, CategoryFor(e.Kind), e.Data); err != nil {
		slog.ErrorContext(ctx, "failed to deliver push notification",
			"user_id", e.UserID, "event_kind", e.Kind, "error", err)
	}
	return nil
}

func (s *Service) textFor(e Event) (messages.MessageText, bool) {
	var t messages.MessageText
	switch e.Kind {
	case EventTransactionRecorded:
		t = s.texts.TransactionRecorded
	case EventBudgetSet:
		t = s.texts.BudgetSet
	case EventBudgetAlert:
		t = s.texts.BudgetWarning
		if e.Data[DataLevel] == LevelExceeded {
			t = s.texts.BudgetExceeded
		}
	case EventGoalCreated:
		t = s.texts.GoalCreated
	case EventGoalCompleted:
		t = s.texts.GoalCompleted
	case EventReminderPaid:
		t = s.texts.ReminderPaid
	case EventReminderDue:
		t = s.texts.ReminderDue
	default:
		return t, false
	}
	return t.Render(e.Data), true
}

// SendToUser pushes to every active device of the user and stores a history
// record. A disabled category skips both.
func (s *Service) SendToUser(ctx context.Context, userID int64, title, body, category string, data map[string]string) error {
	if !IsValidCategory(category) {
		return ErrInvalidCategory
	}

	prefs, err := s.GetPreferences(ctx, userID)
	if err != nil {
		return err
	}
	if !prefs.IsCategoryEnabled(category) {
		slog.DebugContext(ctx, "notification skipped, category disabled", "user_id", userID, "category", category)
		return nil
	}

	payload := make(map[string]string, len(data)+1)
	for k, v := range data {
		payload[k] = v
	}
	if _, ok := payload["route"]; !ok {
		payload["route"] = category
	}

	if s.messenger != nil {
		tokens, err := s.repo.GetActiveTokensByUserID(ctx, userID)
		if err != nil {
			return err
		}
		if len(tokens) > 0 {
			tokenStrings := make([]string, len(tokens))
			for i, t := range tokens {
				tokenStrings[i] = t.Token
			}
			if err := s.messenger.SendMulticast(ctx, tokenStrings, title, body, payload); err != nil {
				slog.ErrorContext(ctx, "push send failed", "user_id", userID, "error", err)
			}
		}
	}

	_, err = s.repo.CreateNotification(ctx, CreateNotificationParams{
		UserID:   userID,
		Title:    title,
		Message:  body,
		Category: category,
		Data:     payload,
	})
	if err != nil {
		return fmt.Errorf("store notification: %w", err)
	}

	return nil
}
