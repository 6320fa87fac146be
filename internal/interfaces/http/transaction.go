package http

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"pocketbook/internal/domain/budget"
	"pocketbook/internal/domain/reconciliation"
	"pocketbook/internal/domain/transaction"
)

type TransactionHandler struct {
	transactions   *transaction.Service
	reconciliation *reconciliation.Service
	loc            *time.Location
}

func NewTransactionHandler(transactions *transaction.Service, reconciliation *reconciliation.Service, loc *time.Location) *TransactionHandler {
	if loc == nil {
		loc = time.Local
	}
	return &TransactionHandler{
		transactions:   transactions,
		reconciliation: reconciliation,
		loc:            loc,
	}
}

type CreateTransactionRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Type        string          `json:"type,omitempty"` // income or expense, defaults to expense
	Date        *string         `json:"date,omitempty"`
	Description string          `json:"description,omitempty"`
}

type UpdateTransactionRequest struct {
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	Category    *string          `json:"category,omitempty"`
	Type        *string          `json:"type,omitempty"`
	Date        *string          `json:"date,omitempty"`
	Description *string          `json:"description,omitempty"`
}

// HandleListTransactions handles GET /api/transactions
func (h *TransactionHandler) HandleListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	filter, err := h.listFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	txs, err := h.transactions.List(r.Context(), userID, filter)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, txs)
}

// listFilter reads type, category, from and to. A date-only "to" covers the
// whole day.
func (h *TransactionHandler) listFilter(r *http.Request) (transaction.ListFilter, error) {
	q := r.URL.Query()
	filter := transaction.ListFilter{
		Type:     transaction.Type(q.Get("type")),
		Category: q.Get("category"),
	}

	if s := q.Get("from"); s != "" {
		from, _, err := parseDate(s, h.loc)
		if err != nil {
			return filter, err
		}
		filter.From = &from
	}

	if s := q.Get("to"); s != "" {
		to, dateOnly, err := parseDate(s, h.loc)
		if err != nil {
			return filter, err
		}
		if dateOnly {
			before := to.AddDate(0, 0, 1)
			filter.Before = &before
			if filter.From != nil && !filter.From.Before(before) {
				return filter, transaction.ErrInvalidDateRange
			}
		} else {
			filter.To = &to
		}
	}

	return filter, nil
}

// HandleCreateTransaction handles POST /api/transactions
func (h *TransactionHandler) HandleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req CreateTransactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	date, err := parseOptionalDate(req.Date, h.loc)
	if err != nil {
		writeError(w, r, err)
		return
	}

	tx, err := h.transactions.Add(r.Context(), userID, transaction.CreateParams{
		Amount:      req.Amount,
		Category:    req.Category,
		Type:        transaction.Type(req.Type),
		Date:        date,
		Description: req.Description,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, tx)
}

// HandleGetTransaction handles GET /api/transactions/{id}
func (h *TransactionHandler) HandleGetTransaction(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	tx, err := h.transactions.Get(r.Context(), r.PathValue("id"), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, tx)
}

// HandleUpdateTransaction handles PUT /api/transactions/{id}
func (h *TransactionHandler) HandleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req UpdateTransactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	date, err := parseOptionalDate(req.Date, h.loc)
	if err != nil {
		writeError(w, r, err)
		return
	}

	params := transaction.UpdateParams{
		Amount:      req.Amount,
		Category:    req.Category,
		Date:        date,
		Description: req.Description,
	}
	if req.Type != nil {
		t := transaction.Type(*req.Type)
		params.Type = &t
	}

	tx, err := h.transactions.Update(r.Context(), r.PathValue("id"), userID, params)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, tx)
}

// HandleDeleteTransaction handles DELETE /api/transactions/{id}
func (h *TransactionHandler) HandleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.transactions.Delete(r.Context(), r.PathValue("id"), userID); err != nil {
		writeError(w, r, err)
		return
	}

	writeMessage(w, http.StatusOK, "Transaction deleted successfully")
}

// HandleSummary handles GET /api/transactions/summary
func (h *TransactionHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	period, err := periodOrNil(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	sum, err := h.reconciliation.GetSummary(r.Context(), userID, period)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, sum)
}

// HandleCategorySummary handles GET /api/transactions/category-summary
func (h *TransactionHandler) HandleCategorySummary(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	period, err := periodOrNil(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	byCategory, err := h.reconciliation.GetCategorySummary(r.Context(), userID, period)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, byCategory)
}

// HandleMonthlySummary handles GET /api/transactions/monthly-summary
func (h *TransactionHandler) HandleMonthlySummary(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	byMonth, err := h.reconciliation.GetMonthlySummary(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, byMonth)
}

func periodOrNil(r *http.Request) (*budget.Period, error) {
	p, ok, err := optionalPeriod(r)
	if err != nil || !ok {
		return nil, err
	}
	return &p, nil
}
