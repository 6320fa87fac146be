package transaction

import (
	"context"
	"time"

	"pocketbook/internal/domain/notification"
)

// Service contains the business logic for transaction operations
type Service struct {
	repo      Repository
	publisher notification.Publisher
	now       func() time.Time
}

func NewService(repo Repository, publisher notification.Publisher) *Service {
	if publisher == nil {
		publisher = notification.NopPublisher{}
	}
	return &Service{repo: repo, publisher: publisher, now: time.Now}
}

// Add records a transaction for userID and emits transaction.recorded.
func (s *Service) Add(ctx context.Context, userID int64, params CreateParams) (*Transaction, error) {
	params.UserID = userID
	params.Normalize(s.now())
	if err := params.Validate(); err != nil {
		return nil, err
	}

	tx, err := s.repo.Create(ctx, params)
	if err != nil {
		return nil, err
	}

	notification.PublishBestEffort(ctx, s.publisher, recordedEvent(tx))
	return tx, nil
}

func (s *Service) Get(ctx context.Context, id string, userID int64) (*Transaction, error) {
	return s.repo.GetByID(ctx, id, userID)
}

func (s *Service) List(ctx context.Context, userID int64, filter ListFilter) ([]*Transaction, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, userID, filter)
}

func (s *Service) Update(ctx context.Context, id string, userID int64, params UpdateParams) (*Transaction, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return s.repo.Update(ctx, id, userID, params)
}

func (s *Service) Delete(ctx context.Context, id string, userID int64) error {
	return s.repo.Delete(ctx, id, userID)
}

func recordedEvent(tx *Transaction) notification.Event {
	return notification.NewEvent(notification.EventTransactionRecorded, tx.UserID, map[string]string{
		notification.DataTransactionID: tx.ID,
		notification.DataAmount:        tx.Amount.StringFixed(2),
		notification.DataCategory:      tx.Category,
		notification.DataType:          string(tx.Type),
		notification.DataDescription:   tx.Description,
		notification.DataDate:          tx.Date.Format(time.RFC3339),
	})
}
