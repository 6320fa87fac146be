package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pocketbook/internal/domain/notification"
)

// MockNotificationRepo implements notification.Repository for testing
type MockNotificationRepo struct {
	UpsertDeviceTokenFunc func(ctx context.Context, params notification.CreateDeviceTokenParams) (*notification.DeviceToken, error)
	GetPreferencesFunc    func(ctx context.Context, userID int64) (*notification.Preference, error)
	UpsertPreferencesFunc func(ctx context.Context, userID int64, params notification.UpdatePreferenceParams) (*notification.Preference, error)
	ListByUserIDFunc      func(ctx context.Context, userID int64, page, perPage int) ([]*notification.Notification, int, error)
	MarkOpenedFunc        func(ctx context.Context, notificationID string, userID int64) error
}

func (m *MockNotificationRepo) UpsertDeviceToken(ctx context.Context, params notification.CreateDeviceTokenParams) (*notification.DeviceToken, error) {
	if m.UpsertDeviceTokenFunc != nil {
		return m.UpsertDeviceTokenFunc(ctx, params)
	}
	return &notification.DeviceToken{UserID: params.UserID, Token: params.Token, DeviceType: params.DeviceType, IsActive: true}, nil
}

func (m *MockNotificationRepo) GetActiveTokensByUserID(ctx context.Context, userID int64) ([]*notification.DeviceToken, error) {
	return nil, nil
}

func (m *MockNotificationRepo) DeactivateToken(ctx context.Context, token string) error {
	return nil
}

func (m *MockNotificationRepo) GetPreferences(ctx context.Context, userID int64) (*notification.Preference, error) {
	if m.GetPreferencesFunc != nil {
		return m.GetPreferencesFunc(ctx, userID)
	}
	return nil, notification.ErrPreferencesNotFound
}

func (m *MockNotificationRepo) UpsertPreferences(ctx context.Context, userID int64, params notification.UpdatePreferenceParams) (*notification.Preference, error) {
	if m.UpsertPreferencesFunc != nil {
		return m.UpsertPreferencesFunc(ctx, userID, params)
	}
	return notification.DefaultPreference(userID), nil
}

func (m *MockNotificationRepo) CreateNotification(ctx context.Context, params notification.CreateNotificationParams) (*notification.Notification, error) {
	return &notification.Notification{UserID: params.UserID, Title: params.Title}, nil
}

func (m *MockNotificationRepo) ListByUserID(ctx context.Context, userID int64, page, perPage int) ([]*notification.Notification, int, error) {
	if m.ListByUserIDFunc != nil {
		return m.ListByUserIDFunc(ctx, userID, page, perPage)
	}
	return nil, 0, nil
}

func (m *MockNotificationRepo) MarkOpened(ctx context.Context, notificationID string, userID int64) error {
	if m.MarkOpenedFunc != nil {
		return m.MarkOpenedFunc(ctx, notificationID, userID)
	}
	return nil
}

func newTestNotificationHandler(repo notification.Repository) *NotificationHandler {
	return NewNotificationHandler(notification.NewService(repo, nil, nil, nil, nil))
}

func TestHandleRegisterDevice(t *testing.T) {
	tests := []struct {
		name           string
		body           RegisterDeviceRequest
		expectedStatus int
	}{
		{name: "Success", body: RegisterDeviceRequest{Token: "tok", DeviceType: "android"}, expectedStatus: http.StatusCreated},
		{name: "Missing token", body: RegisterDeviceRequest{DeviceType: "android"}, expectedStatus: http.StatusBadRequest},
		{name: "Unknown device type", body: RegisterDeviceRequest{Token: "tok", DeviceType: "fridge"}, expectedStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestNotificationHandler(&MockNotificationRepo{})
			rec := httptest.NewRecorder()
			h.HandleRegisterDevice(rec, asUser(newRequest(t, http.MethodPost, "/api/notifications/devices", tt.body), 3))
			assert.Equal(t, tt.expectedStatus, rec.Code, rec.Body.String())
		})
	}
}

func TestHandlePreferences(t *testing.T) {
	var got notification.UpdatePreferenceParams
	h := newTestNotificationHandler(&MockNotificationRepo{
		UpsertPreferencesFunc: func(ctx context.Context, userID int64, params notification.UpdatePreferenceParams) (*notification.Preference, error) {
			got = params
			p := notification.DefaultPreference(userID)
			p.BudgetsEnabled = false
			return p, nil
		},
	})

	rec := httptest.NewRecorder()
	h.HandleGetPreferences(rec, asUser(newRequest(t, http.MethodGet, "/api/notifications/preferences", nil), 3))
	require.Equal(t, http.StatusOK, rec.Code)
	pref := decodeResponse[notification.Preference](t, rec)
	assert.True(t, pref.TransactionsEnabled)
	assert.True(t, pref.BillsEnabled)

	rec = httptest.NewRecorder()
	h.HandleUpdatePreferences(rec, asUser(newRequest(t, http.MethodPut, "/api/notifications/preferences", `{"budgetsEnabled": false}`), 3))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotNil(t, got.BudgetsEnabled)
	assert.False(t, *got.BudgetsEnabled)
	assert.Nil(t, got.GoalsEnabled)
	assert.False(t, decodeResponse[notification.Preference](t, rec).BudgetsEnabled)
}

func TestHandleListNotifications_Pagination(t *testing.T) {
	tests := []struct {
		query           string
		expectedPage    int
		expectedPerPage int
	}{
		{query: "", expectedPage: 1, expectedPerPage: 20},
		{query: "?page=3&perPage=10", expectedPage: 3, expectedPerPage: 10},
		{query: "?page=-1&perPage=500", expectedPage: 1, expectedPerPage: 20},
		{query: "?page=two", expectedPage: 1, expectedPerPage: 20},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			var gotPage, gotPerPage int
			h := newTestNotificationHandler(&MockNotificationRepo{
				ListByUserIDFunc: func(ctx context.Context, userID int64, page, perPage int) ([]*notification.Notification, int, error) {
					gotPage, gotPerPage = page, perPage
					return []*notification.Notification{{ID: "n1", Title: "Hi"}}, 41, nil
				},
			})

			rec := httptest.NewRecorder()
			h.HandleListNotifications(rec, asUser(newRequest(t, http.MethodGet, "/api/notifications"+tt.query, nil), 3))

			require.Equal(t, http.StatusOK, rec.Code)
			resp := decodeResponse[NotificationListResponse](t, rec)
			assert.Equal(t, tt.expectedPage, gotPage)
			assert.Equal(t, tt.expectedPerPage, gotPerPage)
			assert.Equal(t, tt.expectedPage, resp.Pagination.Page)
			assert.Equal(t, 41, resp.Pagination.Total)
			assert.Equal(t, (41+tt.expectedPerPage-1)/tt.expectedPerPage, resp.Pagination.Pages)
			assert.Len(t, resp.Notifications, 1)
		})
	}
}

func TestHandleOpen(t *testing.T) {
	h := newTestNotificationHandler(&MockNotificationRepo{
		MarkOpenedFunc: func(ctx context.Context, notificationID string, userID int64) error {
			if notificationID != "n1" {
				return notification.ErrNotificationNotFound
			}
			return nil
		},
	})

	for id, status := range map[string]int{"n1": http.StatusNoContent, "n2": http.StatusNotFound} {
		req := asUser(newRequest(t, http.MethodPost, "/api/notifications/"+id+"/open", nil), 3)
		req.SetPathValue("id", id)
		rec := httptest.NewRecorder()
		h.HandleOpen(rec, req)
		assert.Equal(t, status, rec.Code, id)
	}
}
