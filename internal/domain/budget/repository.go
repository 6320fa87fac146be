package budget

import "context"

// Repository defines the interface for budget data access.
type Repository interface {
	// Upsert creates or replaces the budget for (user, month, year) in one
	// statement and reports whether a new row was created.
	Upsert(ctx context.Context, params UpsertParams) (*Budget, bool, error)
	// Get returns ErrBudgetNotFound when the user has no budget for p.
	Get(ctx context.Context, userID int64, p Period) (*Budget, error)
}
