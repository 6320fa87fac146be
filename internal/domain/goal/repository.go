package goal

import "context"

// Repository defines the interface for savings goal data access.
// Every method is scoped to the owning user.
type Repository interface {
	Create(ctx context.Context, params CreateParams) (*Goal, error)
	GetByID(ctx context.Context, id string, userID int64) (*Goal, error)
	// List returns the user's goals, newest first.
	List(ctx context.Context, userID int64) ([]*Goal, error)
	Update(ctx context.Context, id string, userID int64, params UpdateParams) (*Goal, error)
	Delete(ctx context.Context, id string, userID int64) error
	// SetFunds writes params.Current only if the goal is not completed and
	// its balance still equals params.Previous; otherwise it returns
	// ErrConcurrentUpdate.
	SetFunds(ctx context.Context, params FundsParams) (*Goal, error)
}
