package http

import (
	"net/http"

	"github.com/shopspring/decimal"

	"pocketbook/internal/domain/budget"
	"pocketbook/internal/domain/reconciliation"
)

type BudgetHandler struct {
	reconciliation *reconciliation.Service
}

func NewBudgetHandler(reconciliation *reconciliation.Service) *BudgetHandler {
	return &BudgetHandler{reconciliation: reconciliation}
}

type SetBudgetRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Month  int             `json:"month"`
	Year   int             `json:"year"`
}

type BudgetResponse struct {
	Message string         `json:"message"`
	Budget  *budget.Budget `json:"budget"`
}

type CheckBudgetResponse struct {
	Exists bool           `json:"exists"`
	Budget *budget.Budget `json:"budget"`
}

// HandleSetBudget handles POST /api/budget
func (h *BudgetHandler) HandleSetBudget(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req SetBudgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Month == 0 || req.Year == 0 {
		writeError(w, r, budget.ErrPeriodRequired)
		return
	}

	b, created, err := h.reconciliation.SetBudget(r.Context(), userID, reconciliation.SetBudgetParams{
		Amount: req.Amount,
		Month:  req.Month,
		Year:   req.Year,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	if created {
		writeJSON(w, http.StatusCreated, BudgetResponse{Message: "Budget set successfully", Budget: b})
		return
	}
	writeJSON(w, http.StatusOK, BudgetResponse{Message: "Budget updated successfully", Budget: b})
}

// HandleCheckBudget handles GET /api/budget/check
func (h *BudgetHandler) HandleCheckBudget(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	period, err := requiredPeriod(r, budget.ErrPeriodRequired)
	if err != nil {
		writeError(w, r, err)
		return
	}

	b, err := h.reconciliation.CheckBudget(r.Context(), userID, period)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, CheckBudgetResponse{Exists: b != nil, Budget: b})
}

// HandleBudgetSummary handles GET /api/budget/summary
func (h *BudgetHandler) HandleBudgetSummary(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	period, err := requiredPeriod(r, budget.ErrPeriodRequired)
	if err != nil {
		writeError(w, r, err)
		return
	}

	sum, err := h.reconciliation.GetBudgetSummary(r.Context(), userID, period)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, sum)
}
