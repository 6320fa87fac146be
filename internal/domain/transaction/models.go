package transaction

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"pocketbook/internal/shared/apperrors"
	"pocketbook/internal/shared/money"
)

type Type string

const (
	TypeIncome  Type = "income"
	TypeExpense Type = "expense"
)

func (t Type) Valid() bool {
	return t == TypeIncome || t == TypeExpense
}

var (
	ErrTransactionNotFound = apperrors.NotFound("Transaction not found")
	ErrInvalidAmount       = apperrors.Validation("Amount must be greater than 0")
	ErrInvalidType         = apperrors.Validation("Invalid transaction type")
	ErrCategoryRequired    = apperrors.Validation("Category is required")
	ErrInvalidDateRange    = apperrors.Validation("'from' must not be after 'to'")
)

type Transaction struct {
	ID          string          `json:"id"`
	UserID      int64           `json:"userId"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Type        Type            `json:"type"`
	Date        time.Time       `json:"date"`
	Description string          `json:"description"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

type CreateParams struct {
	UserID      int64
	Amount      decimal.Decimal
	Category    string
	Type        Type
	Date        *time.Time
	Description string
}

// Normalize applies defaults: type expense, date now.
func (p *CreateParams) Normalize(now time.Time) {
	p.Category = strings.TrimSpace(p.Category)
	if p.Type == "" {
		p.Type = TypeExpense
	}
	if p.Date == nil || p.Date.IsZero() {
		p.Date = &now
	}
}

func (p CreateParams) Validate() error {
	if err := money.CheckPositive(p.Amount, ErrInvalidAmount); err != nil {
		return err
	}
	if !p.Type.Valid() {
		return ErrInvalidType
	}
	if p.Category == "" {
		return ErrCategoryRequired
	}
	return nil
}

// UpdateParams is a partial update; nil fields are left unchanged.
type UpdateParams struct {
	Amount      *decimal.Decimal
	Category    *string
	Type        *Type
	Date        *time.Time
	Description *string
}

func (p *UpdateParams) Validate() error {
	if p.Amount != nil {
		if err := money.CheckPositive(*p.Amount, ErrInvalidAmount); err != nil {
			return err
		}
	}
	if p.Type != nil && !p.Type.Valid() {
		return ErrInvalidType
	}
	if p.Category != nil {
		c := strings.TrimSpace(*p.Category)
		if c == "" {
			return ErrCategoryRequired
		}
		p.Category = &c
	}
	return nil
}

// ListFilter narrows a user's transactions. All set fields must match.
type ListFilter struct {
	Type     Type
	Category string // case-insensitive substring
	From     *time.Time
	To       *time.Time // inclusive
	Before   *time.Time // exclusive
	// SortAscending orders by date ascending instead of newest first.
	SortAscending bool
}

func (f ListFilter) Validate() error {
	if f.Type != "" && !f.Type.Valid() {
		return ErrInvalidType
	}
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return ErrInvalidDateRange
	}
	return nil
}
