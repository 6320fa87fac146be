// Package money holds the limits every stored amount must respect. Amounts
// are kept in NUMERIC(14,2) columns.
package money

import (
	"github.com/shopspring/decimal"

	"pocketbook/internal/shared/apperrors"
)

// Scale is the number of decimal places an amount may carry.
const Scale = 2

// Max is the largest magnitude a NUMERIC(14,2) column holds.
var Max = decimal.RequireFromString("999999999999.99")

var (
	ErrTooPrecise = apperrors.Validation("Amounts may have at most 2 decimal places")
	ErrTooLarge   = apperrors.Validation("Amount must not exceed 999999999999.99")
)

// Check rejects amounts the store would round or overflow. The sign is left
// to the caller. Trailing zeros beyond two places are accepted.
func Check(d decimal.Decimal) error {
	if !d.Equal(d.Round(Scale)) {
		return ErrTooPrecise
	}
	if d.Abs().GreaterThan(Max) {
		return ErrTooLarge
	}
	return nil
}

// CheckPositive is Check for amounts that must be greater than zero.
// notPositive is returned for zero and negative values.
func CheckPositive(d decimal.Decimal, notPositive error) error {
	if !d.IsPositive() {
		return notPositive
	}
	return Check(d)
}
