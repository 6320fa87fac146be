package http

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"pocketbook/internal/domain/reminder"
)

type ReminderHandler struct {
	reminders *reminder.Service
	loc       *time.Location
}

func NewReminderHandler(reminders *reminder.Service, loc *time.Location) *ReminderHandler {
	if loc == nil {
		loc = time.Local
	}
	return &ReminderHandler{reminders: reminders, loc: loc}
}

type CreateReminderRequest struct {
	Title              string          `json:"title"`
	Amount             decimal.Decimal `json:"amount"`
	DueDate            *string         `json:"dueDate"`
	Category           string          `json:"category,omitempty"`
	Description        string          `json:"description,omitempty"`
	IsRecurring        bool            `json:"isRecurring,omitempty"`
	RecurringFrequency string          `json:"recurringFrequency,omitempty"`
	ReminderDaysBefore *int            `json:"reminderDaysBefore,omitempty"`
}

type UpdateReminderRequest struct {
	Title              *string          `json:"title,omitempty"`
	Amount             *decimal.Decimal `json:"amount,omitempty"`
	DueDate            *string          `json:"dueDate,omitempty"`
	Category           *string          `json:"category,omitempty"`
	Description        *string          `json:"description,omitempty"`
	IsRecurring        *bool            `json:"isRecurring,omitempty"`
	RecurringFrequency *string          `json:"recurringFrequency,omitempty"`
	ReminderDaysBefore *int             `json:"reminderDaysBefore,omitempty"`
}

// HandleListReminders handles GET /api/bill-reminders
func (h *ReminderHandler) HandleListReminders(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	reminders, err := h.reminders.List(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, reminders)
}

// HandleCreateReminder handles POST /api/bill-reminders
func (h *ReminderHandler) HandleCreateReminder(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req CreateReminderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	dueDate, err := parseOptionalDate(req.DueDate, h.loc)
	if err != nil {
		writeError(w, r, err)
		return
	}

	rem, err := h.reminders.Create(r.Context(), userID, reminder.CreateParams{
		Title:              req.Title,
		Amount:             req.Amount,
		DueDate:            dueDate,
		Category:           req.Category,
		Description:        req.Description,
		IsRecurring:        req.IsRecurring,
		RecurringFrequency: reminder.Frequency(req.RecurringFrequency),
		ReminderDaysBefore: req.ReminderDaysBefore,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, rem)
}

// HandleGetReminder handles GET /api/bill-reminders/{id}
func (h *ReminderHandler) HandleGetReminder(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	view, err := h.reminders.Get(r.Context(), r.PathValue("id"), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// HandleUpdateReminder handles PUT /api/bill-reminders/{id}
func (h *ReminderHandler) HandleUpdateReminder(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req UpdateReminderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	dueDate, err := parseOptionalDate(req.DueDate, h.loc)
	if err != nil {
		writeError(w, r, err)
		return
	}

	params := reminder.UpdateParams{
		Title:              req.Title,
		Amount:             req.Amount,
		DueDate:            dueDate,
		Category:           req.Category,
		Description:        req.Description,
		IsRecurring:        req.IsRecurring,
		ReminderDaysBefore: req.ReminderDaysBefore,
	}
	if req.RecurringFrequency != nil {
		f := reminder.Frequency(*req.RecurringFrequency)
		params.RecurringFrequency = &f
	}

	rem, err := h.reminders.Update(r.Context(), r.PathValue("id"), userID, params)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, rem)
}

// HandleDeleteReminder handles DELETE /api/bill-reminders/{id}
func (h *ReminderHandler) HandleDeleteReminder(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.reminders.Delete(r.Context(), r.PathValue("id"), userID); err != nil {
		writeError(w, r, err)
		return
	}

	writeMessage(w, http.StatusOK, "Bill reminder deleted successfully")
}

// HandleMarkPaid handles POST /api/bill-reminders/{id}/mark-paid
func (h *ReminderHandler) HandleMarkPaid(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	rem, err := h.reminders.MarkPaid(r.Context(), r.PathValue("id"), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, rem)
}
