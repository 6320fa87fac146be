package budget

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"pocketbook/internal/shared/apperrors"
)

var (
	ErrBudgetNotFound = apperrors.NotFound("Budget not found for this period")
	ErrBudgetExists   = apperrors.Conflict("Budget already exists for this period")
	ErrInvalidAmount  = apperrors.Validation("Budget amount must be greater than 0")
	ErrInvalidMonth   = apperrors.Validation("Month must be between 1 and 12")
	ErrInvalidYear    = apperrors.Validation("Year is invalid")
	ErrPastPeriod     = apperrors.Validation("Cannot set budget for a past month")
	ErrPeriodRequired = apperrors.Validation("Month and year are required")
)

type Budget struct {
	ID        string          `json:"id"`
	UserID    int64           `json:"userId"`
	Amount    decimal.Decimal `json:"amount"`
	Month     int             `json:"month"`
	Year      int             `json:"year"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Period is a calendar month.
type Period struct {
	Month int
	Year  int
}

func (p Period) Validate() error {
	if p.Month < 1 || p.Month > 12 {
		return ErrInvalidMonth
	}
	if p.Year < 1970 || p.Year > 9999 {
		return ErrInvalidYear
	}
	return nil
}

// Window returns [first instant of the month, first instant of the next
// month) in loc.
func (p Period) Window(loc *time.Location) (time.Time, time.Time) {
	start := time.Date(p.Year, time.Month(p.Month), 1, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 1, 0)
}

// Before reports whether p is strictly earlier than other.
func (p Period) Before(other Period) bool {
	if p.Year != other.Year {
		return p.Year < other.Year
	}
	return p.Month < other.Month
}

func (p Period) String() string {
	return time.Month(p.Month).String() + " " + strconv.Itoa(p.Year)
}

func PeriodOf(t time.Time) Period {
	return Period{Month: int(t.Month()), Year: t.Year()}
}

type UpsertParams struct {
	UserID int64
	Amount decimal.Decimal
	Period
}
