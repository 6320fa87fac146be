package notification

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRepo struct {
	prefs         *Preference
	prefsErr      error
	tokens        []*DeviceToken
	created       []CreateNotificationParams
	upsertedPrefs int
}

func (m *mockRepo) UpsertDeviceToken(ctx context.Context, params CreateDeviceTokenParams) (*DeviceToken, error) {
	return &DeviceToken{UserID: params.UserID, Token: params.Token, DeviceType: params.DeviceType, IsActive: true}, nil
}

func (m *mockRepo) GetActiveTokensByUserID(ctx context.Context, userID int64) ([]*DeviceToken, error) {
	return m.tokens, nil
}

func (m *mockRepo) DeactivateToken(ctx context.Context, token string) error { return nil }

func (m *mockRepo) GetPreferences(ctx context.Context, userID int64) (*Preference, error) {
	if m.prefsErr != nil {
		return nil, m.prefsErr
	}
	if m.prefs == nil {
		return nil, ErrPreferencesNotFound
	}
	return m.prefs, nil
}

func (m *mockRepo) UpsertPreferences(ctx context.Context, userID int64, params UpdatePreferenceParams) (*Preference, error) {
	m.upsertedPrefs++
	p := DefaultPreference(userID)
	m.prefs = p
	return p, nil
}

func (m *mockRepo) CreateNotification(ctx context.Context, params CreateNotificationParams) (*Notification, error) {
	m.created = append(m.created, params)
	return &Notification{UserID: params.UserID, Title: params.Title, Message: params.Message}, nil
}

func (m *mockRepo) ListByUserID(ctx context.Context, userID int64, page, perPage int) ([]*Notification, int, error) {
	return nil, 0, nil
}

func (m *mockRepo) MarkOpened(ctx context.Context, notificationID string, userID int64) error {
	return nil
}

type recipientsFunc func(ctx context.Context, userID int64) (*Recipient, error)

func (f recipientsFunc) FindRecipient(ctx context.Context, userID int64) (*Recipient, error) {
	return f(ctx, userID)
}

type recordingMailer struct {
	sent []Event
	err  error
}

func (m *recordingMailer) SendEventEmail(ctx context.Context, to Recipient, e Event) error {
	m.sent = append(m.sent, e)
	return m.err
}

type recordingMessenger struct {
	tokens []string
	title  string
	body   string
}

func (m *recordingMessenger) SendMulticast(ctx context.Context, tokens []string, title, body string, data map[string]string) error {
	m.tokens = tokens
	m.title = title
	m.body = body
	return nil
}

func knownRecipient(ctx context.Context, userID int64) (*Recipient, error) {
	return &Recipient{UserID: userID, Email: "ana@example.com", Name: "Ana"}, nil
}

func TestHandleEvent_EmailPushAndHistory(t *testing.T) {
	repo := &mockRepo{tokens: []*DeviceToken{{Token: "tok-1"}, {Token: "tok-2"}}}
	mailer := &recordingMailer{}
	messenger := &recordingMessenger{}
	svc := NewService(repo, recipientsFunc(knownRecipient), mailer, messenger, nil)

	e := NewEvent(EventGoalCompleted, 7, map[string]string{DataTitle: "Vacation"})
	require.NoError(t, svc.HandleEvent(context.Background(), e))

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, EventGoalCompleted, mailer.sent[0].Kind)
	assert.Equal(t, []string{"tok-1", "tok-2"}, messenger.tokens)
	assert.Contains(t, messenger.body, "Vacation")

	require.Len(t, repo.created, 1)
	assert.Equal(t, CategoryGoals, repo.created[0].Category)
	assert.Equal(t, CategoryGoals, repo.created[0].Data["route"])
}

func TestHandleEvent_MailFailureIsSwallowed(t *testing.T) {
	repo := &mockRepo{}
	mailer := &recordingMailer{err: errors.New("smtp down")}
	svc := NewService(repo, recipientsFunc(knownRecipient), mailer, nil, nil)

	err := svc.HandleEvent(context.Background(), NewEvent(EventReminderPaid, 3, nil))

	assert.NoError(t, err)
	assert.Len(t, repo.created, 1)
}

func TestHandleEvent_UnknownRecipient(t *testing.T) {
	svc := NewService(&mockRepo{}, recipientsFunc(func(ctx context.Context, userID int64) (*Recipient, error) {
		return nil, ErrRecipientNotFound
	}), &recordingMailer{}, nil, nil)

	err := svc.HandleEvent(context.Background(), NewEvent(EventBudgetSet, 99, nil))
	assert.ErrorIs(t, err, ErrRecipientNotFound)
}

func TestHandleEvent_BudgetAlertLevelSelectsText(t *testing.T) {
	messenger := &recordingMessenger{}
	repo := &mockRepo{tokens: []*DeviceToken{{Token: "tok"}}}
	svc := NewService(repo, recipientsFunc(knownRecipient), nil, messenger, nil)

	e := NewEvent(EventBudgetAlert, 1, map[string]string{DataLevel: LevelExceeded, DataPercentage: "120.00", DataPeriod: "May 2024"})
	require.NoError(t, svc.HandleEvent(context.Background(), e))

	assert.Equal(t, "Budget exceeded", messenger.title)
	assert.Contains(t, messenger.body, "120.00%")
}

func TestSendToUser_CategoryDisabled(t *testing.T) {
	prefs := DefaultPreference(1)
	prefs.BillsEnabled = false
	repo := &mockRepo{prefs: prefs, tokens: []*DeviceToken{{Token: "tok"}}}
	messenger := &recordingMessenger{}
	svc := NewService(repo, recipientsFunc(knownRecipient), nil, messenger, nil)

	require.NoError(t, svc.SendToUser(context.Background(), 1, "t", "b", CategoryBills, nil))

	assert.Empty(t, messenger.tokens)
	assert.Empty(t, repo.created)
}

func TestSendToUser_InvalidCategory(t *testing.T) {
	svc := NewService(&mockRepo{}, recipientsFunc(knownRecipient), nil, nil, nil)
	assert.ErrorIs(t, svc.SendToUser(context.Background(), 1, "t", "b", "accounts", nil), ErrInvalidCategory)
}

func TestRegisterDevice_CreatesDefaultPreferences(t *testing.T) {
	repo := &mockRepo{}
	svc := NewService(repo, recipientsFunc(knownRecipient), nil, nil, nil)

	token, err := svc.RegisterDevice(context.Background(), CreateDeviceTokenParams{UserID: 1, Token: "abc", DeviceType: "android"})
	require.NoError(t, err)
	assert.Equal(t, "abc", token.Token)
	assert.Equal(t, 1, repo.upsertedPrefs)
}

func TestRegisterDevice_Validation(t *testing.T) {
	svc := NewService(&mockRepo{}, recipientsFunc(knownRecipient), nil, nil, nil)

	_, err := svc.RegisterDevice(context.Background(), CreateDeviceTokenParams{UserID: 1, DeviceType: "ios"})
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.RegisterDevice(context.Background(), CreateDeviceTokenParams{UserID: 1, Token: "x", DeviceType: "blackberry"})
	assert.ErrorIs(t, err, ErrInvalidDeviceType)
}

func TestGetPreferences_Defaults(t *testing.T) {
	svc := NewService(&mockRepo{}, recipientsFunc(knownRecipient), nil, nil, nil)

	prefs, err := svc.GetPreferences(context.Background(), 5)
	require.NoError(t, err)
	assert.True(t, prefs.TransactionsEnabled && prefs.BudgetsEnabled && prefs.GoalsEnabled && prefs.BillsEnabled)
}

func TestFanout_DeliversToAllHandlers(t *testing.T) {
	var calls int
	failing := HandlerFunc(func(ctx context.Context, e Event) error {
		calls++
		return errors.New("boom")
	})
	ok := HandlerFunc(func(ctx context.Context, e Event) error {
		calls++
		return nil
	})

	err := Fanout{failing, ok}.HandleEvent(context.Background(), NewEvent(EventBudgetSet, 1, nil))

	assert.Error(t, err)
	assert.Equal(t, 2, calls)
}

func TestPublishBestEffort_SwallowsErrors(t *testing.T) {
	p := publisherFunc(func(ctx context.Context, e Event) error { return errors.New("queue full") })
	assert.NotPanics(t, func() {
		PublishBestEffort(context.Background(), p, NewEvent(EventBudgetSet, 1, nil))
		PublishBestEffort(context.Background(), nil, NewEvent(EventBudgetSet, 1, nil))
	})
}

type publisherFunc func(ctx context.Context, e Event) error

func (f publisherFunc) Publish(ctx context.Context, e Event) error { return f(ctx, e) }
