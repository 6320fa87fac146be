package reminder

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pocketbook/internal/domain/notification"
	"pocketbook/internal/shared/money"
)

type memRepo struct {
	mu        sync.Mutex
	nextID    int
	reminders map[string]*Reminder

	// staleCandidates, when set, is returned by ListDueCandidates in place
	// of the live rows, as another sweep's earlier read would be.
	staleCandidates []*Reminder
	markErr         error
}

func newMemRepo() *memRepo {
	return &memRepo{reminders: make(map[string]*Reminder)}
}

func (m *memRepo) Create(ctx context.Context, p CreateParams) (*Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	r := &Reminder{
		ID:                 "rem-" + strconv.Itoa(m.nextID),
		UserID:             p.UserID,
		Title:              p.Title,
		Amount:             p.Amount,
		DueDate:            *p.DueDate,
		Category:           p.Category,
		Description:        p.Description,
		IsRecurring:        p.IsRecurring,
		RecurringFrequency: p.RecurringFrequency,
		ReminderDaysBefore: *p.ReminderDaysBefore,
	}
	m.reminders[r.ID] = r
	cp := *r
	return &cp, nil
}

func (m *memRepo) GetByID(ctx context.Context, id string, userID int64) (*Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reminders[id]
	if !ok || r.UserID != userID {
		return nil, ErrReminderNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memRepo) List(ctx context.Context, userID int64) ([]*Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Reminder
	for _, r := range m.reminders {
		if r.UserID == userID {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueDate.Before(out[j].DueDate) })
	return out, nil
}

func (m *memRepo) Update(ctx context.Context, id string, userID int64, p UpdateParams) (*Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reminders[id]
	if !ok || r.UserID != userID {
		return nil, ErrReminderNotFound
	}
	if p.Title != nil {
		r.Title = *p.Title
	}
	if p.DueDate != nil {
		r.DueDate = *p.DueDate
	}
	cp := *r
	return &cp, nil
}

func (m *memRepo) Delete(ctx context.Context, id string, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reminders[id]
	if !ok || r.UserID != userID {
		return ErrReminderNotFound
	}
	delete(m.reminders, id)
	return nil
}

func (m *memRepo) MarkPaid(ctx context.Context, id string, userID int64) (*Reminder, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reminders[id]
	if !ok || r.UserID != userID {
		return nil, false, ErrReminderNotFound
	}
	transitioned := !r.IsPaid
	r.IsPaid = true
	cp := *r
	return &cp, transitioned, nil
}

func (m *memRepo) ListDueCandidates(ctx context.Context, today time.Time) ([]*Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Reminder
	if m.staleCandidates != nil {
		for _, r := range m.staleCandidates {
			cp := *r
			out = append(out, &cp)
		}
		return out, nil
	}
	for _, r := range m.reminders {
		if !r.IsPaid {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memRepo) MarkReminded(ctx context.Context, id string, previous *time.Time, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.markErr != nil {
		return false, m.markErr
	}
	r := m.reminders[id]
	last := r.LastRemindedAt
	if (last == nil) != (previous == nil) || (last != nil && !last.Equal(*previous)) {
		return false, nil
	}
	r.LastRemindedAt = &at
	return true, nil
}

type capturePublisher struct {
	mu     sync.Mutex
	events []notification.Event
}

func (p *capturePublisher) Publish(ctx context.Context, e notification.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *capturePublisher) count(kind notification.EventKind) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

var testNow = time.Date(2024, 5, 15, 9, 30, 0, 0, time.UTC)

func dateIn(days int) *time.Time {
	d := time.Date(2024, 5, 15+days, 0, 0, 0, 0, time.UTC)
	return &d
}

func intPtr(i int) *int { return &i }

func newTestService() (*Service, *memRepo, *capturePublisher, *time.Time) {
	repo := newMemRepo()
	pub := &capturePublisher{}
	now := testNow
	svc := NewService(repo, pub, func() time.Time { return now })
	return svc, repo, pub, &now
}

func TestCreate_Defaults(t *testing.T) {
	svc, _, _, _ := newTestService()

	r, err := svc.Create(context.Background(), 1, CreateParams{Title: "Rent", Amount: decimal.NewFromInt(900), DueDate: dateIn(10)})
	require.NoError(t, err)
	assert.Equal(t, DefaultCategory, r.Category)
	assert.Equal(t, FrequencyMonthly, r.RecurringFrequency)
	assert.Equal(t, DefaultReminderDaysBefore, r.ReminderDaysBefore)
	assert.False(t, r.IsPaid)

	r, err = svc.Create(context.Background(), 1, CreateParams{Title: "Gym", Amount: decimal.NewFromInt(30), DueDate: dateIn(1), ReminderDaysBefore: intPtr(0)})
	require.NoError(t, err)
	assert.Equal(t, 0, r.ReminderDaysBefore)
}

func TestCreate_Validation(t *testing.T) {
	svc, _, _, _ := newTestService()
	amount := decimal.NewFromInt(10)

	tests := []struct {
		name   string
		params CreateParams
		want   error
	}{
		{"missing title", CreateParams{Amount: amount, DueDate: dateIn(1)}, ErrMissingFields},
		{"missing due date", CreateParams{Title: "x", Amount: amount}, ErrMissingFields},
		{"negative amount", CreateParams{Title: "x", Amount: decimal.NewFromInt(-1), DueDate: dateIn(1)}, ErrInvalidAmount},
		{"fractional cents", CreateParams{Title: "x", Amount: decimal.RequireFromString("9.999"), DueDate: dateIn(1)}, money.ErrTooPrecise},
		{"past due date", CreateParams{Title: "x", Amount: amount, DueDate: dateIn(-1)}, ErrPastDueDate},
		{"bad frequency", CreateParams{Title: "x", Amount: amount, DueDate: dateIn(1), RecurringFrequency: "weekly"}, ErrInvalidFrequency},
		{"reminder days too large", CreateParams{Title: "x", Amount: amount, DueDate: dateIn(1), ReminderDaysBefore: intPtr(31)}, ErrInvalidReminderDay},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), 1, tt.params)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestMarkPaid_SingleConfirmation(t *testing.T) {
	svc, _, pub, _ := newTestService()
	ctx := context.Background()

	r, err := svc.Create(ctx, 1, CreateParams{Title: "Power", Amount: decimal.NewFromInt(80), DueDate: dateIn(2)})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		paid, err := svc.MarkPaid(ctx, r.ID, 1)
		require.NoError(t, err)
		assert.True(t, paid.IsPaid)
	}
	assert.Equal(t, 1, pub.count(notification.EventReminderPaid))

	_, err = svc.MarkPaid(ctx, r.ID, 2)
	assert.ErrorIs(t, err, ErrReminderNotFound)
}

func TestList_DerivedFields(t *testing.T) {
	svc, repo, _, now := newTestService()
	ctx := context.Background()

	_, err := svc.Create(ctx, 1, CreateParams{Title: "Later", Amount: decimal.NewFromInt(5), DueDate: dateIn(5)})
	require.NoError(t, err)
	soon, err := svc.Create(ctx, 1, CreateParams{Title: "Soon", Amount: decimal.NewFromInt(5), DueDate: dateIn(1)})
	require.NoError(t, err)

	views, err := svc.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, "Soon", views[0].Title)
	assert.Equal(t, 1, views[0].DaysUntilDue)
	assert.Equal(t, 5, views[1].DaysUntilDue)
	assert.False(t, views[0].IsOverdue)

	*now = testNow.AddDate(0, 0, 3)
	views, err = svc.List(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, -2, views[0].DaysUntilDue)
	assert.True(t, views[0].IsOverdue)

	repo.reminders[soon.ID].IsPaid = true
	view, err := svc.Get(ctx, soon.ID, 1)
	require.NoError(t, err)
	assert.False(t, view.IsOverdue, "paid reminders are never overdue")
}

func TestSweepDue(t *testing.T) {
	svc, _, pub, now := newTestService()
	ctx := context.Background()

	_, err := svc.Create(ctx, 1, CreateParams{Title: "In window", Amount: decimal.NewFromInt(5), DueDate: dateIn(2)})
	require.NoError(t, err)
	_, err = svc.Create(ctx, 1, CreateParams{Title: "Too far", Amount: decimal.NewFromInt(5), DueDate: dateIn(10)})
	require.NoError(t, err)
	paid, err := svc.Create(ctx, 2, CreateParams{Title: "Paid", Amount: decimal.NewFromInt(5), DueDate: dateIn(1)})
	require.NoError(t, err)
	_, err = svc.MarkPaid(ctx, paid.ID, 2)
	require.NoError(t, err)

	sent, err := svc.SweepDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Equal(t, 1, pub.count(notification.EventReminderDue))

	sent, err = svc.SweepDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, sent, "already reminded today")

	*now = testNow.AddDate(0, 0, 1)
	sent, err = svc.SweepDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent, "reminded again the next day")
}

func TestSweepDue_OverlappingSweepsPublishOnce(t *testing.T) {
	svc, repo, pub, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Create(ctx, 1, CreateParams{Title: "Rent", Amount: decimal.NewFromInt(900), DueDate: dateIn(1)})
	require.NoError(t, err)

	stale, err := repo.ListDueCandidates(ctx, testNow)
	require.NoError(t, err)
	repo.staleCandidates = stale

	first, err := svc.SweepDue(ctx)
	require.NoError(t, err)
	second, err := svc.SweepDue(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, first)
	assert.Equal(t, 0, second, "a sweep working from an old read must lose the stamp")
	assert.Equal(t, 1, pub.count(notification.EventReminderDue))
}

func TestSweepDue_StampFailurePublishesNothing(t *testing.T) {
	svc, repo, pub, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Create(ctx, 1, CreateParams{Title: "Rent", Amount: decimal.NewFromInt(900), DueDate: dateIn(1)})
	require.NoError(t, err)
	repo.markErr = errors.New("connection reset")

	sent, err := svc.SweepDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, sent)
	assert.Equal(t, 0, pub.count(notification.EventReminderDue))

	repo.markErr = nil
	sent, err = svc.SweepDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent, "the next sweep retries an unstamped reminder")
}
