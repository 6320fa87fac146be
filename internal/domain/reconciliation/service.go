// Package reconciliation compares spending against budgets and produces the
// income, expense and category summaries.
package reconciliation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"pocketbook/internal/domain/budget"
	"pocketbook/internal/domain/notification"
	"pocketbook/internal/domain/transaction"
	"pocketbook/internal/domain/user"
	"pocketbook/internal/shared/money"
)

const (
	StatusWithinBudget = "within budget"
	StatusOverspent    = "overspent"
)

// AlertThreshold is the budget utilisation, in percent, at which a
// budget.alert is published.
var AlertThreshold = decimal.NewFromInt(80)

var hundred = decimal.NewFromInt(100)

type SetBudgetParams struct {
	Amount decimal.Decimal
	Month  int
	Year   int
}

type BudgetSummary struct {
	Budget         decimal.Decimal `json:"budget"`
	Spent          decimal.Decimal `json:"spent"`
	Remaining      decimal.Decimal `json:"remaining"`
	Status         string          `json:"status"`
	PercentageUsed decimal.Decimal `json:"percentageUsed"`
}

type Summary struct {
	TotalIncome  decimal.Decimal `json:"totalIncome"`
	TotalExpense decimal.Decimal `json:"totalExpense"`
	Balance      decimal.Decimal `json:"balance"`
}

type Service struct {
	budgets      budget.Repository
	transactions transaction.Repository
	publisher    notification.Publisher
	now          func() time.Time
}

// NewService creates the service. now supplies both the current instant and
// the location used for month windows; nil means time.Now.
func NewService(budgets budget.Repository, transactions transaction.Repository, publisher notification.Publisher, now func() time.Time) *Service {
	if publisher == nil {
		publisher = notification.NopPublisher{}
	}
	if now == nil {
		now = time.Now
	}
	return &Service{
		budgets:      budgets,
		transactions: transactions,
		publisher:    publisher,
		now:          now,
	}
}

// SetBudget creates or replaces the budget for a month. The bool result
// reports whether a new budget was created.
func (s *Service) SetBudget(ctx context.Context, userID int64, params SetBudgetParams) (*budget.Budget, bool, error) {
	if err := money.CheckPositive(params.Amount, budget.ErrInvalidAmount); err != nil {
		return nil, false, err
	}
	period := budget.Period{Month: params.Month, Year: params.Year}
	if err := period.Validate(); err != nil {
		return nil, false, err
	}
	if period.Before(budget.PeriodOf(s.now())) {
		return nil, false, budget.ErrPastPeriod
	}

	b, created, err := s.budgets.Upsert(ctx, budget.UpsertParams{
		UserID: userID,
		Amount: params.Amount,
		Period: period,
	})
	if err != nil {
		return nil, false, err
	}

	notification.PublishBestEffort(ctx, s.publisher, notification.NewEvent(notification.EventBudgetSet, userID, map[string]string{
		notification.DataAmount: b.Amount.StringFixed(2),
		notification.DataMonth:  fmt.Sprint(b.Month),
		notification.DataYear:   fmt.Sprint(b.Year),
		notification.DataPeriod: period.String(),
	}))
	return b, created, nil
}

// CheckBudget returns the budget for p, or nil when none is set.
func (s *Service) CheckBudget(ctx context.Context, userID int64, p budget.Period) (*budget.Budget, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	b, err := s.budgets.Get(ctx, userID, p)
	if errors.Is(err, budget.ErrBudgetNotFound) {
		return nil, nil
	}
	return b, err
}

func (s *Service) GetBudgetSummary(ctx context.Context, userID int64, p budget.Period) (*BudgetSummary, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	b, err := s.budgets.Get(ctx, userID, p)
	if err != nil {
		return nil, err
	}

	spent, err := s.expenseIn(ctx, userID, p)
	if err != nil {
		return nil, err
	}

	return Reconcile(b.Amount, spent), nil
}

// Reconcile computes the budget summary for a budget and an expense total.
func Reconcile(amount, spent decimal.Decimal) *BudgetSummary {
	remaining := amount.Sub(spent)
	status := StatusWithinBudget
	if remaining.IsNegative() {
		status = StatusOverspent
	}
	return &BudgetSummary{
		Budget:         amount,
		Spent:          spent,
		Remaining:      remaining,
		Status:         status,
		PercentageUsed: PercentageUsed(amount, spent),
	}
}

// PercentageUsed is spent/amount*100 rounded to two places, 0 when amount
// is not positive.
func PercentageUsed(amount, spent decimal.Decimal) decimal.Decimal {
	if !amount.IsPositive() {
		return decimal.Zero
	}
	return spent.Div(amount).Mul(hundred).Round(2)
}

// GetSummary totals income and expense, over all time when p is nil.
func (s *Service) GetSummary(ctx context.Context, userID int64, p *budget.Period) (*Summary, error) {
	filter, err := s.windowFilter(p)
	if err != nil {
		return nil, err
	}

	txs, err := s.transactions.List(ctx, userID, filter)
	if err != nil {
		return nil, err
	}

	sum := &Summary{}
	for _, tx := range txs {
		switch tx.Type {
		case transaction.TypeIncome:
			sum.TotalIncome = sum.TotalIncome.Add(tx.Amount)
		case transaction.TypeExpense:
			sum.TotalExpense = sum.TotalExpense.Add(tx.Amount)
		}
	}
	sum.Balance = sum.TotalIncome.Sub(sum.TotalExpense)
	return sum, nil
}

// GetCategorySummary sums expenses per category label.
func (s *Service) GetCategorySummary(ctx context.Context, userID int64, p *budget.Period) (map[string]decimal.Decimal, error) {
	filter, err := s.windowFilter(p)
	if err != nil {
		return nil, err
	}
	filter.Type = transaction.TypeExpense

	txs, err := s.transactions.List(ctx, userID, filter)
	if err != nil {
		return nil, err
	}

	out := make(map[string]decimal.Decimal)
	for _, tx := range txs {
		out[tx.Category] = out[tx.Category].Add(tx.Amount)
	}
	return out, nil
}

// GetMonthlySummary sums all expenses per calendar month, keyed like "Jan-2024".
func (s *Service) GetMonthlySummary(ctx context.Context, userID int64) (map[string]decimal.Decimal, error) {
	txs, err := s.transactions.List(ctx, userID, transaction.ListFilter{Type: transaction.TypeExpense})
	if err != nil {
		return nil, err
	}

	loc := s.now().Location()
	out := make(map[string]decimal.Decimal)
	for _, tx := range txs {
		key := MonthKey(tx.Date.In(loc))
		out[key] = out[key].Add(tx.Amount)
	}
	return out, nil
}

// MonthKey formats t as "Jan-2024".
func MonthKey(t time.Time) string {
	return t.Format("Jan-2006")
}

// SortedMonthKeys returns the keys of a monthly summary in calendar order.
func SortedMonthKeys(m map[string]decimal.Decimal) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ti, _ := time.Parse("Jan-2006", keys[i])
		tj, _ := time.Parse("Jan-2006", keys[j])
		return ti.Before(tj)
	})
	return keys
}

// Stats returns the all-time totals and the current month's budget.
func (s *Service) Stats(ctx context.Context, userID int64) (*user.Stats, error) {
	sum, err := s.GetSummary(ctx, userID, nil)
	if err != nil {
		return nil, err
	}

	stats := &user.Stats{
		TotalIncome:  sum.TotalIncome,
		TotalExpense: sum.TotalExpense,
		Balance:      sum.Balance,
	}

	b, err := s.budgets.Get(ctx, userID, budget.PeriodOf(s.now()))
	switch {
	case err == nil:
		stats.CurrentBudget = b.Amount
	case !errors.Is(err, budget.ErrBudgetNotFound):
		return nil, err
	}
	return stats, nil
}

// HandleEvent applies the budget alert policy to transaction.recorded events.
// Failures are logged and never returned.
func (s *Service) HandleEvent(ctx context.Context, e notification.Event) error {
	if e.Kind != notification.EventTransactionRecorded {
		return nil
	}
	if e.Data[notification.DataType] != string(transaction.TypeExpense) {
		return nil
	}

	now := s.now()
	period := budget.PeriodOf(now)
	if d, ok := eventTime(e.Data[notification.DataDate], now.Location()); ok && budget.PeriodOf(d) != period {
		return nil
	}

	if err := s.checkAlert(ctx, e.UserID, period); err != nil {
		slog.ErrorContext(ctx, "budget alert check failed",
			"user_id", e.UserID, "event_id", e.ID, "error", err)
	}
	return nil
}

// eventTime reads a transaction date in loc. Timestamps are converted, so
// an expense stored in UTC lands in the local month it was made in.
func eventTime(v string, loc *time.Location) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.In(loc), true
	}
	if t, err := time.ParseInLocation(time.DateOnly, v, loc); err == nil {
		return t, true
	}
	return time.Time{}, false
}

func (s *Service) checkAlert(ctx context.Context, userID int64, p budget.Period) error {
	b, err := s.budgets.Get(ctx, userID, p)
	if errors.Is(err, budget.ErrBudgetNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	spent, err := s.expenseIn(ctx, userID, p)
	if err != nil {
		return err
	}

	pct := PercentageUsed(b.Amount, spent)
	if pct.LessThan(AlertThreshold) {
		return nil
	}

	level := notification.LevelWarning
	if pct.GreaterThanOrEqual(hundred) {
		level = notification.LevelExceeded
	}

	notification.PublishBestEffort(ctx, s.publisher, notification.NewEvent(notification.EventBudgetAlert, userID, map[string]string{
		notification.DataMonth:      fmt.Sprint(p.Month),
		notification.DataYear:       fmt.Sprint(p.Year),
		notification.DataPeriod:     p.String(),
		notification.DataBudget:     b.Amount.StringFixed(2),
		notification.DataSpent:      spent.StringFixed(2),
		notification.DataPercentage: pct.StringFixed(2),
		notification.DataLevel:      level,
	}))
	return nil
}

func (s *Service) expenseIn(ctx context.Context, userID int64, p budget.Period) (decimal.Decimal, error) {
	start, end := p.Window(s.now().Location())
	txs, err := s.transactions.List(ctx, userID, transaction.ListFilter{
		Type:   transaction.TypeExpense,
		From:   &start,
		Before: &end,
	})
	if err != nil {
		return decimal.Zero, err
	}

	spent := decimal.Zero
	for _, tx := range txs {
		spent = spent.Add(tx.Amount)
	}
	return spent, nil
}

func (s *Service) windowFilter(p *budget.Period) (transaction.ListFilter, error) {
	if p == nil {
		return transaction.ListFilter{}, nil
	}
	if err := p.Validate(); err != nil {
		return transaction.ListFilter{}, err
	}
	start, end := p.Window(s.now().Location())
	return transaction.ListFilter{From: &start, Before: &end}, nil
}
