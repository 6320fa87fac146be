package mailer

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"

	"pocketbook/internal/domain/notification"
)

type recordingSender struct {
	msgs []*mail.Msg
	err  error
}

func (s *recordingSender) DialAndSendWithContext(_ context.Context, msgs ...*mail.Msg) error {
	s.msgs = append(s.msgs, msgs...)
	return s.err
}

func newTestMailer(t *testing.T, sender Sender) *Mailer {
	t.Helper()
	m, err := NewWithSender(sender, "BudgetTracker <no-reply@example.com>")
	require.NoError(t, err)
	return m
}

func subjectOf(t *testing.T, msg *mail.Msg) string {
	t.Helper()
	h := msg.GetGenHeader(mail.HeaderSubject)
	require.Len(t, h, 1)
	return h[0]
}

func TestSendOTP(t *testing.T) {
	sender := &recordingSender{}
	m := newTestMailer(t, sender)

	require.NoError(t, m.SendOTP(context.Background(), "ana@example.com", "Ana", "123456"))
	require.Len(t, sender.msgs, 1)

	msg := sender.msgs[0]
	assert.Equal(t, "Your BudgetTracker login code", subjectOf(t, msg))

	rcpts, err := msg.GetRecipients()
	require.NoError(t, err)
	assert.Equal(t, []string{"ana@example.com"}, rcpts)

	var buf bytes.Buffer
	_, err = msg.WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "123456")
}

func TestSendOTP_TransportError(t *testing.T) {
	boom := errors.New("connection refused")
	m := newTestMailer(t, &recordingSender{err: boom})

	err := m.SendOTP(context.Background(), "ana@example.com", "Ana", "123456")
	assert.ErrorIs(t, err, boom)
}

func TestSendOTP_InvalidRecipient(t *testing.T) {
	sender := &recordingSender{}
	m := newTestMailer(t, sender)

	err := m.SendOTP(context.Background(), "not an address", "Ana", "123456")
	assert.Error(t, err)
	assert.Empty(t, sender.msgs)
}

func TestDisabledMailerDropsMessages(t *testing.T) {
	m := newTestMailer(t, nil)
	assert.NoError(t, m.SendOTP(context.Background(), "ana@example.com", "Ana", "123456"))
}

func TestSendEventEmail_Subjects(t *testing.T) {
	tests := []struct {
		name    string
		event   notification.Event
		subject string
	}{
		{
			name: "budget set",
			event: notification.NewEvent(notification.EventBudgetSet, 1, map[string]string{
				notification.DataAmount: "500.00",
				notification.DataPeriod: "May 2024",
			}),
			subject: "Budget Set for May 2024",
		},
		{
			name: "budget warning",
			event: notification.NewEvent(notification.EventBudgetAlert, 1, map[string]string{
				notification.DataPeriod:     "May 2024",
				notification.DataBudget:     "100.00",
				notification.DataSpent:      "85.00",
				notification.DataPercentage: "85.00",
				notification.DataLevel:      notification.LevelWarning,
			}),
			subject: "Budget Alert: 85.00% Used for May 2024",
		},
		{
			name: "budget exceeded",
			event: notification.NewEvent(notification.EventBudgetAlert, 1, map[string]string{
				notification.DataPeriod:     "May 2024",
				notification.DataBudget:     "100.00",
				notification.DataSpent:      "120.00",
				notification.DataPercentage: "120.00",
				notification.DataLevel:      notification.LevelExceeded,
			}),
			subject: "Budget Alert: Limit Exceeded for May 2024",
		},
		{
			name:    "goal completed",
			event:   notification.NewEvent(notification.EventGoalCompleted, 1, map[string]string{notification.DataTitle: "Bike"}),
			subject: "Congratulations! Goal Completed: Bike",
		},
		{
			name:    "reminder due",
			event:   notification.NewEvent(notification.EventReminderDue, 1, map[string]string{notification.DataTitle: "Rent"}),
			subject: "Bill Reminder: Rent",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &recordingSender{}
			m := newTestMailer(t, sender)

			to := notification.Recipient{UserID: 1, Email: "ana@example.com", Name: "Ana"}
			require.NoError(t, m.SendEventEmail(context.Background(), to, tt.event))
			require.Len(t, sender.msgs, 1)
			assert.Equal(t, tt.subject, subjectOf(t, sender.msgs[0]))
		})
	}
}

func TestSendEventEmail_UnknownKind(t *testing.T) {
	sender := &recordingSender{}
	m := newTestMailer(t, sender)

	e := notification.Event{Kind: "something.else", OccurredAt: time.Now()}
	require.NoError(t, m.SendEventEmail(context.Background(), notification.Recipient{Email: "ana@example.com"}, e))
	assert.Empty(t, sender.msgs)
}

func TestCompose_TransactionSubject(t *testing.T) {
	subject, c, ok := compose(notification.NewEvent(notification.EventTransactionRecorded, 1, map[string]string{
		notification.DataType:     "income",
		notification.DataAmount:   "1500.00",
		notification.DataCategory: "Salary",
		notification.DataDate:     "2024-05-01",
	}))
	require.True(t, ok)
	assert.Equal(t, "Transaction Recorded: Income - ₹1500.00", subject)
	assert.Equal(t, colorGreen, c.Color)
	assert.Contains(t, c.Rows, row{"Date", "01 May 2024"})
}

func TestCompose_BudgetAlertRemainingNeverNegative(t *testing.T) {
	_, c, ok := compose(notification.NewEvent(notification.EventBudgetAlert, 1, map[string]string{
		notification.DataBudget: "100.00",
		notification.DataSpent:  "150.00",
	}))
	require.True(t, ok)

	var remaining string
	for _, r := range c.Rows {
		if r.Label == "Remaining" {
			remaining = r.Value
		}
	}
	assert.Equal(t, "₹0.00", remaining)
}

func TestCompose_OptionalDescription(t *testing.T) {
	_, c, _ := compose(notification.NewEvent(notification.EventTransactionRecorded, 1, map[string]string{
		notification.DataDescription: "  ",
	}))
	for _, r := range c.Rows {
		assert.NotEqual(t, "Description", r.Label)
	}

	_, c, _ = compose(notification.NewEvent(notification.EventTransactionRecorded, 1, map[string]string{
		notification.DataDescription: "weekly shop",
	}))
	assert.Equal(t, "Description", c.Rows[len(c.Rows)-1].Label)
}

func TestDay(t *testing.T) {
	assert.Equal(t, "05 May 2024", day("2024-05-05"))
	assert.Equal(t, "soon", day("soon"))
	assert.True(t, strings.HasPrefix(money("12.50"), currencySym))
}
