// Package report assembles the monthly spending report.
package report

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"pocketbook/internal/domain/budget"
	"pocketbook/internal/domain/reconciliation"
	"pocketbook/internal/domain/transaction"
)

var (
	nearThreshold = decimal.NewFromInt(80)
	fullThreshold = decimal.NewFromInt(100)
)

type Service struct {
	budgets      budget.Repository
	transactions transaction.Repository
	now          func() time.Time
}

func NewService(budgets budget.Repository, transactions transaction.Repository, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{budgets: budgets, transactions: transactions, now: now}
}

// MonthlyReport loads the month's expenses and budget concurrently and
// computes the overview figures.
func (s *Service) MonthlyReport(ctx context.Context, userID int64, p budget.Period) (*MonthlyReport, error) {
	if p.Month == 0 || p.Year == 0 {
		return nil, ErrPeriodRequired
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	now := s.now()
	start, end := p.Window(now.Location())

	var (
		txs []*transaction.Transaction
		b   *budget.Budget
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		txs, err = s.transactions.List(gctx, userID, transaction.ListFilter{
			Type:          transaction.TypeExpense,
			From:          &start,
			Before:        &end,
			SortAscending: true,
		})
		return err
	})
	g.Go(func() error {
		var err error
		b, err = s.budgets.Get(gctx, userID, p)
		if errors.Is(err, budget.ErrBudgetNotFound) {
			return nil
		}
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	amount := decimal.Zero
	if b != nil {
		amount = b.Amount
	}
	spent := decimal.Zero
	for _, tx := range txs {
		spent = spent.Add(tx.Amount)
	}
	pct := reconciliation.PercentageUsed(amount, spent)

	return &MonthlyReport{
		Month:          p.Month,
		Year:           p.Year,
		Budget:         amount,
		Spent:          spent,
		Remaining:      amount.Sub(spent),
		PercentageUsed: pct,
		Warning:        warningFor(pct),
		Transactions:   txs,
		GeneratedAt:    now,
	}, nil
}

func warningFor(pct decimal.Decimal) WarningLevel {
	switch {
	case pct.GreaterThanOrEqual(fullThreshold):
		return WarningExceeded
	case pct.GreaterThanOrEqual(nearThreshold):
		return WarningNear
	default:
		return WarningNone
	}
}
