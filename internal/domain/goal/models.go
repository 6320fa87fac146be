package goal

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"pocketbook/internal/shared/apperrors"
	"pocketbook/internal/shared/money"
)

const DefaultCategory = "General"

var (
	ErrGoalNotFound         = apperrors.NotFound("Savings goal not found")
	ErrMissingFields        = apperrors.Validation("Title, target amount, and target date are required")
	ErrInvalidTarget        = apperrors.Validation("Target amount must be greater than 0")
	ErrPastTargetDate       = apperrors.Validation("Target date cannot be in the past")
	ErrInvalidAmount        = apperrors.Validation("Amount must be greater than 0")
	ErrNegativeCurrent      = apperrors.Validation("Current amount cannot be negative")
	ErrCurrentAboveTarget   = apperrors.Validation("Current amount cannot exceed the target amount")
	ErrTitleRequired        = apperrors.Validation("Title is required")
	ErrGoalAlreadyCompleted = apperrors.Conflict("This savings goal has already been completed. No more funds can be added.")
	// ErrConcurrentUpdate is returned by the store when the goal changed
	// between read and write.
	ErrConcurrentUpdate = apperrors.Conflict("Savings goal was modified concurrently, please retry")
)

var hundred = decimal.NewFromInt(100)

type Goal struct {
	ID            string          `json:"id"`
	UserID        int64           `json:"userId"`
	Title         string          `json:"title"`
	TargetAmount  decimal.Decimal `json:"targetAmount"`
	CurrentAmount decimal.Decimal `json:"currentAmount"`
	TargetDate    time.Time       `json:"targetDate"`
	Description   string          `json:"description"`
	Category      string          `json:"category"`
	IsCompleted   bool            `json:"isCompleted"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// Progress is current/target as a percentage, capped at 100.
func (g *Goal) Progress() decimal.Decimal {
	if !g.TargetAmount.IsPositive() {
		return decimal.Zero
	}
	p := g.CurrentAmount.Div(g.TargetAmount).Mul(hundred).Round(2)
	return decimal.Min(p, hundred)
}

// Remaining is target - current, never negative.
func (g *Goal) Remaining() decimal.Decimal {
	return decimal.Max(g.TargetAmount.Sub(g.CurrentAmount), decimal.Zero)
}

// View is a goal with its derived fields, as returned by the API.
type View struct {
	*Goal
	Progress        decimal.Decimal `json:"progress"`
	RemainingAmount decimal.Decimal `json:"remainingAmount"`
}

func NewView(g *Goal) View {
	return View{Goal: g, Progress: g.Progress(), RemainingAmount: g.Remaining()}
}

type CreateParams struct {
	UserID       int64
	Title        string
	TargetAmount decimal.Decimal
	TargetDate   *time.Time
	Description  string
	Category     string
}

func (p *CreateParams) Validate(now time.Time) error {
	p.Title = strings.TrimSpace(p.Title)
	if p.Title == "" || p.TargetAmount.IsZero() || p.TargetDate == nil {
		return ErrMissingFields
	}
	if err := money.CheckPositive(p.TargetAmount, ErrInvalidTarget); err != nil {
		return err
	}
	if isPastDay(*p.TargetDate, now) {
		return ErrPastTargetDate
	}
	if strings.TrimSpace(p.Category) == "" {
		p.Category = DefaultCategory
	}
	return nil
}

// UpdateParams is a partial update; nil fields are left unchanged.
type UpdateParams struct {
	Title         *string
	TargetAmount  *decimal.Decimal
	CurrentAmount *decimal.Decimal
	TargetDate    *time.Time
	Description   *string
	Category      *string
}

func (p UpdateParams) Validate(now time.Time) error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return ErrTitleRequired
	}
	if p.TargetAmount != nil {
		if err := money.CheckPositive(*p.TargetAmount, ErrInvalidTarget); err != nil {
			return err
		}
	}
	if p.CurrentAmount != nil {
		if p.CurrentAmount.IsNegative() {
			return ErrNegativeCurrent
		}
		if err := money.Check(*p.CurrentAmount); err != nil {
			return err
		}
	}
	if p.TargetDate != nil && isPastDay(*p.TargetDate, now) {
		return ErrPastTargetDate
	}
	return nil
}

// Apply returns g with the update's amounts applied and completion
// recomputed from them. The stored goal is not changed.
func (p UpdateParams) Apply(g Goal) (Goal, error) {
	if p.TargetAmount != nil {
		g.TargetAmount = *p.TargetAmount
	}
	if p.CurrentAmount != nil {
		g.CurrentAmount = *p.CurrentAmount
	}
	if g.CurrentAmount.GreaterThan(g.TargetAmount) {
		return g, ErrCurrentAboveTarget
	}
	g.IsCompleted = g.CurrentAmount.Equal(g.TargetAmount)
	return g, nil
}

// FundsParams describes a compare-and-set of a goal's balance.
type FundsParams struct {
	ID       string
	UserID   int64
	Previous decimal.Decimal
	Current  decimal.Decimal
	Complete bool
}

// isPastDay reports whether the calendar day of d is before the calendar
// day of now. Each value keeps its own location.
func isPastDay(d, now time.Time) bool {
	dy, dm, dd := d.Date()
	ny, nm, nd := now.Date()
	return time.Date(dy, dm, dd, 0, 0, 0, 0, time.UTC).Before(time.Date(ny, nm, nd, 0, 0, 0, 0, time.UTC))
}
