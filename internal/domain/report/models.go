package report

import (
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"

	"pocketbook/internal/domain/transaction"
	"pocketbook/internal/shared/apperrors"
)

type WarningLevel string

const (
	WarningNone     WarningLevel = ""
	WarningNear     WarningLevel = "near"
	WarningExceeded WarningLevel = "exceeded"
)

var (
	ErrPeriodRequired = apperrors.Validation("Month and year are required (query params)")
	ErrRenderFailed   = apperrors.New(apperrors.KindUnexpected, "Failed to generate report")
)

// MonthlyReport is the data behind the monthly PDF.
type MonthlyReport struct {
	Month          int
	Year           int
	Budget         decimal.Decimal
	Spent          decimal.Decimal
	Remaining      decimal.Decimal
	PercentageUsed decimal.Decimal
	Warning        WarningLevel
	Transactions   []*transaction.Transaction
	GeneratedAt    time.Time
}

// Title is the subtitle line, e.g. "Monthly Financial Report - May 2024".
func (r *MonthlyReport) Title() string {
	return fmt.Sprintf("Monthly Financial Report - %s %d", time.Month(r.Month), r.Year)
}

// Filename is the attachment name sent to clients.
func (r *MonthlyReport) Filename() string {
	return fmt.Sprintf("budget-report-%d-%d.pdf", r.Month, r.Year)
}

// Renderer writes a report in a presentation format.
type Renderer interface {
	Render(w io.Writer, r *MonthlyReport) error
	ContentType() string
}
