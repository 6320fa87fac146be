package http

import (
	"net/http"
	"strconv"

	"pocketbook/internal/domain/notification"
)

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

type NotificationHandler struct {
	notifications *notification.Service
}

func NewNotificationHandler(notifications *notification.Service) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

type RegisterDeviceRequest struct {
	Token      string `json:"token"`
	DeviceType string `json:"deviceType"`
}

type UpdatePreferencesRequest struct {
	TransactionsEnabled *bool `json:"transactionsEnabled"`
	BudgetsEnabled      *bool `json:"budgetsEnabled"`
	GoalsEnabled        *bool `json:"goalsEnabled"`
	BillsEnabled        *bool `json:"billsEnabled"`
}

type NotificationListResponse struct {
	Notifications []*notification.Notification `json:"notifications"`
	Pagination    PaginationResponse           `json:"pagination"`
}

type PaginationResponse struct {
	Page    int `json:"page"`
	PerPage int `json:"perPage"`
	Total   int `json:"total"`
	Pages   int `json:"pages"`
}

// HandleRegisterDevice handles POST /api/notifications/devices
func (h *NotificationHandler) HandleRegisterDevice(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req RegisterDeviceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	dt, err := h.notifications.RegisterDevice(r.Context(), notification.CreateDeviceTokenParams{
		UserID:     userID,
		Token:      req.Token,
		DeviceType: req.DeviceType,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, dt)
}

// HandleGetPreferences handles GET /api/notifications/preferences
func (h *NotificationHandler) HandleGetPreferences(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	pref, err := h.notifications.GetPreferences(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, pref)
}

// HandleUpdatePreferences handles PUT /api/notifications/preferences
func (h *NotificationHandler) HandleUpdatePreferences(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req UpdatePreferencesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	pref, err := h.notifications.UpdatePreferences(r.Context(), userID, notification.UpdatePreferenceParams{
		TransactionsEnabled: req.TransactionsEnabled,
		BudgetsEnabled:      req.BudgetsEnabled,
		GoalsEnabled:        req.GoalsEnabled,
		BillsEnabled:        req.BillsEnabled,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, pref)
}

// HandleListNotifications handles GET /api/notifications
func (h *NotificationHandler) HandleListNotifications(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	page, perPage := pagination(r)
	items, total, err := h.notifications.ListNotifications(r.Context(), userID, page, perPage)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, NotificationListResponse{
		Notifications: items,
		Pagination: PaginationResponse{
			Page:    page,
			PerPage: perPage,
			Total:   total,
			Pages:   (total + perPage - 1) / perPage,
		},
	})
}

// HandleOpen handles POST /api/notifications/{id}/open
func (h *NotificationHandler) HandleOpen(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.notifications.MarkNotificationOpened(r.Context(), r.PathValue("id"), userID); err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// pagination reads page and perPage, falling back to page 1 of 20 for
// missing or out-of-range values.
func pagination(r *http.Request) (int, int) {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}
	perPage, err := strconv.Atoi(r.URL.Query().Get("perPage"))
	if err != nil || perPage < 1 || perPage > maxPerPage {
		perPage = defaultPerPage
	}
	return page, perPage
}
