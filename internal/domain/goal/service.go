package goal

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"pocketbook/internal/domain/notification"
	"pocketbook/internal/shared/money"
)

// maxFundAttempts bounds the compare-and-set retries of AddFunds.
const maxFundAttempts = 3

type Service struct {
	repo      Repository
	publisher notification.Publisher
	now       func() time.Time
}

func NewService(repo Repository, publisher notification.Publisher, now func() time.Time) *Service {
	if publisher == nil {
		publisher = notification.NopPublisher{}
	}
	if now == nil {
		now = time.Now
	}
	return &Service{repo: repo, publisher: publisher, now: now}
}

func (s *Service) Create(ctx context.Context, userID int64, params CreateParams) (*Goal, error) {
	params.UserID = userID
	if err := params.Validate(s.now()); err != nil {
		return nil, err
	}

	g, err := s.repo.Create(ctx, params)
	if err != nil {
		return nil, err
	}

	notification.PublishBestEffort(ctx, s.publisher, notification.NewEvent(notification.EventGoalCreated, userID, map[string]string{
		notification.DataGoalID:       g.ID,
		notification.DataTitle:        g.Title,
		notification.DataTargetAmount: g.TargetAmount.StringFixed(2),
		notification.DataTargetDate:   g.TargetDate.Format(time.DateOnly),
		notification.DataCategory:     g.Category,
		notification.DataDescription:  g.Description,
	}))
	return g, nil
}

func (s *Service) List(ctx context.Context, userID int64) ([]View, error) {
	goals, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	views := make([]View, len(goals))
	for i, g := range goals {
		views[i] = NewView(g)
	}
	return views, nil
}

func (s *Service) Get(ctx context.Context, id string, userID int64) (*Goal, error) {
	return s.repo.GetByID(ctx, id, userID)
}

func (s *Service) Update(ctx context.Context, id string, userID int64, params UpdateParams) (*Goal, error) {
	if err := params.Validate(s.now()); err != nil {
		return nil, err
	}
	if params.TargetAmount != nil || params.CurrentAmount != nil {
		g, err := s.repo.GetByID(ctx, id, userID)
		if err != nil {
			return nil, err
		}
		if _, err := params.Apply(*g); err != nil {
			return nil, err
		}
	}
	return s.repo.Update(ctx, id, userID, params)
}

func (s *Service) Delete(ctx context.Context, id string, userID int64) error {
	return s.repo.Delete(ctx, id, userID)
}

// AddFunds adds amount to the goal, clamped to the target. Reaching the
// target completes the goal and publishes goal.completed once.
func (s *Service) AddFunds(ctx context.Context, id string, userID int64, amount decimal.Decimal) (*Goal, error) {
	if err := money.CheckPositive(amount, ErrInvalidAmount); err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt < maxFundAttempts; attempt++ {
		g, err := s.repo.GetByID(ctx, id, userID)
		if err != nil {
			return nil, err
		}
		if g.IsCompleted {
			return nil, ErrGoalAlreadyCompleted
		}

		next := decimal.Min(g.CurrentAmount.Add(amount), g.TargetAmount)
		complete := next.GreaterThanOrEqual(g.TargetAmount)

		updated, err := s.repo.SetFunds(ctx, FundsParams{
			ID:       id,
			UserID:   userID,
			Previous: g.CurrentAmount,
			Current:  next,
			Complete: complete,
		})
		if errors.Is(err, ErrConcurrentUpdate) {
			lastErr = err
			continue
		}
		if err != nil {
			return nil, err
		}

		if complete {
			notification.PublishBestEffort(ctx, s.publisher, notification.NewEvent(notification.EventGoalCompleted, userID, map[string]string{
				notification.DataGoalID:        updated.ID,
				notification.DataTitle:         updated.Title,
				notification.DataTargetAmount:  updated.TargetAmount.StringFixed(2),
				notification.DataCurrentAmount: updated.CurrentAmount.StringFixed(2),
			}))
		}
		return updated, nil
	}
	return nil, lastErr
}
