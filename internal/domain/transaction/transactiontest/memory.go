// Package transactiontest provides an in-memory transaction.Repository for
// tests of packages that depend on the ledger.
package transactiontest

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"pocketbook/internal/domain/transaction"
)

type Repository struct {
	mu     sync.Mutex
	nextID int
	items  map[string]*transaction.Transaction
}

func NewRepository() *Repository {
	return &Repository{items: make(map[string]*transaction.Transaction)}
}

func (r *Repository) Create(ctx context.Context, params transaction.CreateParams) (*transaction.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	now := time.Now()
	tx := &transaction.Transaction{
		ID:          "tx-" + strconv.Itoa(r.nextID),
		UserID:      params.UserID,
		Amount:      params.Amount,
		Category:    params.Category,
		Type:        params.Type,
		Description: params.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if params.Date != nil {
		tx.Date = *params.Date
	}
	r.items[tx.ID] = tx
	cp := *tx
	return &cp, nil
}

func (r *Repository) GetByID(ctx context.Context, id string, userID int64) (*transaction.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, ok := r.items[id]
	if !ok || tx.UserID != userID {
		return nil, transaction.ErrTransactionNotFound
	}
	cp := *tx
	return &cp, nil
}

func (r *Repository) List(ctx context.Context, userID int64, f transaction.ListFilter) ([]*transaction.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*transaction.Transaction, 0)
	for _, tx := range r.items {
		if tx.UserID != userID || !matches(tx, f) {
			continue
		}
		cp := *tx
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if f.SortAscending {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Date.After(out[j].Date)
	})
	return out, nil
}

func matches(tx *transaction.Transaction, f transaction.ListFilter) bool {
	if f.Type != "" && tx.Type != f.Type {
		return false
	}
	if f.Category != "" && !strings.Contains(strings.ToLower(tx.Category), strings.ToLower(f.Category)) {
		return false
	}
	if f.From != nil && tx.Date.Before(*f.From) {
		return false
	}
	if f.To != nil && tx.Date.After(*f.To) {
		return false
	}
	if f.Before != nil && !tx.Date.Before(*f.Before) {
		return false
	}
	return true
}

func (r *Repository) Update(ctx context.Context, id string, userID int64, params transaction.UpdateParams) (*transaction.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, ok := r.items[id]
	if !ok || tx.UserID != userID {
		return nil, transaction.ErrTransactionNotFound
	}
	if params.Amount != nil {
		tx.Amount = *params.Amount
	}
	if params.Category != nil {
		tx.Category = *params.Category
	}
	if params.Type != nil {
		tx.Type = *params.Type
	}
	if params.Date != nil {
		tx.Date = *params.Date
	}
	if params.Description != nil {
		tx.Description = *params.Description
	}
	tx.UpdatedAt = time.Now()
	cp := *tx
	return &cp, nil
}

func (r *Repository) Delete(ctx context.Context, id string, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, ok := r.items[id]
	if !ok || tx.UserID != userID {
		return transaction.ErrTransactionNotFound
	}
	delete(r.items, id)
	return nil
}
