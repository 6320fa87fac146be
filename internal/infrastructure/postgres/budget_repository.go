package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"pocketbook/internal/domain/budget"
)

const budgetsPeriodKey = "budgets_user_period_key"

type BudgetRepository struct {
	db *DB
}

func NewBudgetRepository(db *DB) *BudgetRepository {
	return &BudgetRepository{db: db}
}

// Upsert relies on ON CONFLICT so two concurrent calls for one period can
// never create two rows. xmax = 0 holds only for freshly inserted tuples.
func (r *BudgetRepository) Upsert(ctx context.Context, params budget.UpsertParams) (*budget.Budget, bool, error) {
	query := `
		INSERT INTO budgets (user_id, amount, month, year)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, month, year) DO UPDATE
			SET amount = EXCLUDED.amount,
			    updated_at = NOW()
		RETURNING id, user_id, amount, month, year, created_at, updated_at, (xmax = 0) AS inserted
	`

	var (
		b       budget.Budget
		created bool
	)
	err := r.db.QueryRowContext(ctx, query, params.UserID, params.Amount, params.Month, params.Year).Scan(
		&b.ID, &b.UserID, &b.Amount, &b.Month, &b.Year, &b.CreatedAt, &b.UpdatedAt, &created,
	)
	if isUniqueViolation(err, budgetsPeriodKey) {
		return nil, false, budget.ErrBudgetExists
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to upsert budget: %w", err)
	}
	return &b, created, nil
}

func (r *BudgetRepository) Get(ctx context.Context, userID int64, p budget.Period) (*budget.Budget, error) {
	query := `
		SELECT id, user_id, amount, month, year, created_at, updated_at
		FROM budgets
		WHERE user_id = $1 AND month = $2 AND year = $3
	`

	var b budget.Budget
	err := r.db.QueryRowContext(ctx, query, userID, p.Month, p.Year).Scan(
		&b.ID, &b.UserID, &b.Amount, &b.Month, &b.Year, &b.CreatedAt, &b.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, budget.ErrBudgetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get budget: %w", err)
	}
	return &b, nil
}
