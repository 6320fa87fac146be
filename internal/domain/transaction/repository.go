package transaction

import "context"

// Repository defines the interface for transaction data access.
// Every method is scoped to the owning user; another user's id behaves as
// if the record does not exist.
type Repository interface {
	Create(ctx context.Context, params CreateParams) (*Transaction, error)
	GetByID(ctx context.Context, id string, userID int64) (*Transaction, error)
	List(ctx context.Context, userID int64, filter ListFilter) ([]*Transaction, error)
	Update(ctx context.Context, id string, userID int64, params UpdateParams) (*Transaction, error)
	Delete(ctx context.Context, id string, userID int64) error
}
