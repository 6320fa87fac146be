package http

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"pocketbook/internal/domain/goal"
)

type GoalHandler struct {
	goals *goal.Service
	loc   *time.Location
}

func NewGoalHandler(goals *goal.Service, loc *time.Location) *GoalHandler {
	if loc == nil {
		loc = time.Local
	}
	return &GoalHandler{goals: goals, loc: loc}
}

type CreateGoalRequest struct {
	Title        string          `json:"title"`
	TargetAmount decimal.Decimal `json:"targetAmount"`
	TargetDate   *string         `json:"targetDate"`
	Description  string          `json:"description,omitempty"`
	Category     string          `json:"category,omitempty"`
}

type UpdateGoalRequest struct {
	Title         *string          `json:"title,omitempty"`
	TargetAmount  *decimal.Decimal `json:"targetAmount,omitempty"`
	CurrentAmount *decimal.Decimal `json:"currentAmount,omitempty"`
	TargetDate    *string          `json:"targetDate,omitempty"`
	Description   *string          `json:"description,omitempty"`
	Category      *string          `json:"category,omitempty"`
}

type AddFundsRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type AddFundsResponse struct {
	Message string    `json:"message"`
	Goal    goal.View `json:"goal"`
}

// HandleListGoals handles GET /api/savings-goals
func (h *GoalHandler) HandleListGoals(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	goals, err := h.goals.List(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, goals)
}

// HandleCreateGoal handles POST /api/savings-goals
func (h *GoalHandler) HandleCreateGoal(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req CreateGoalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	targetDate, err := parseOptionalDate(req.TargetDate, h.loc)
	if err != nil {
		writeError(w, r, err)
		return
	}

	g, err := h.goals.Create(r.Context(), userID, goal.CreateParams{
		Title:        req.Title,
		TargetAmount: req.TargetAmount,
		TargetDate:   targetDate,
		Description:  req.Description,
		Category:     req.Category,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, goal.NewView(g))
}

// HandleGetGoal handles GET /api/savings-goals/{id}
func (h *GoalHandler) HandleGetGoal(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	g, err := h.goals.Get(r.Context(), r.PathValue("id"), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, goal.NewView(g))
}

// HandleUpdateGoal handles PUT /api/savings-goals/{id}
func (h *GoalHandler) HandleUpdateGoal(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req UpdateGoalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	targetDate, err := parseOptionalDate(req.TargetDate, h.loc)
	if err != nil {
		writeError(w, r, err)
		return
	}

	g, err := h.goals.Update(r.Context(), r.PathValue("id"), userID, goal.UpdateParams{
		Title:         req.Title,
		TargetAmount:  req.TargetAmount,
		CurrentAmount: req.CurrentAmount,
		TargetDate:    targetDate,
		Description:   req.Description,
		Category:      req.Category,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, goal.NewView(g))
}

// HandleDeleteGoal handles DELETE /api/savings-goals/{id}
func (h *GoalHandler) HandleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.goals.Delete(r.Context(), r.PathValue("id"), userID); err != nil {
		writeError(w, r, err)
		return
	}

	writeMessage(w, http.StatusOK, "Savings goal deleted successfully")
}

// HandleAddFunds handles POST /api/savings-goals/{id}/add
func (h *GoalHandler) HandleAddFunds(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req AddFundsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	g, err := h.goals.AddFunds(r.Context(), r.PathValue("id"), userID, req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}

	message := "Funds added successfully"
	if g.IsCompleted {
		message = "Congratulations! You've reached your savings goal!"
	}
	writeJSON(w, http.StatusOK, AddFundsResponse{Message: message, Goal: goal.NewView(g)})
}
