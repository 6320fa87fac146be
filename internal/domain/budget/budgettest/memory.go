// Package budgettest provides an in-memory budget.Repository for tests.
package budgettest

import (
	"context"
	"strconv"
	"sync"
	"time"

	"pocketbook/internal/domain/budget"
)

type key struct {
	userID int64
	period budget.Period
}

type Repository struct {
	mu     sync.Mutex
	nextID int
	items  map[key]*budget.Budget
	// Err, when set, is returned by every call.
	Err error
}

func NewRepository() *Repository {
	return &Repository{items: make(map[key]*budget.Budget)}
}

func (r *Repository) Upsert(ctx context.Context, params budget.UpsertParams) (*budget.Budget, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, false, r.Err
	}

	k := key{params.UserID, params.Period}
	now := time.Now()
	if b, ok := r.items[k]; ok {
		b.Amount = params.Amount
		b.UpdatedAt = now
		cp := *b
		return &cp, false, nil
	}

	r.nextID++
	b := &budget.Budget{
		ID:        "budget-" + strconv.Itoa(r.nextID),
		UserID:    params.UserID,
		Amount:    params.Amount,
		Month:     params.Month,
		Year:      params.Year,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.items[k] = b
	cp := *b
	return &cp, true, nil
}

func (r *Repository) Get(ctx context.Context, userID int64, p budget.Period) (*budget.Budget, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}

	b, ok := r.items[key{userID, p}]
	if !ok {
		return nil, budget.ErrBudgetNotFound
	}
	cp := *b
	return &cp, nil
}

// Count returns the number of stored budgets for userID.
func (r *Repository) Count(userID int64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for k := range r.items {
		if k.userID == userID {
			n++
		}
	}
	return n
}
