package mailer

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"pocketbook/internal/domain/notification"
)

const (
	colorBlue   = "#3b82f6"
	colorGreen  = "#10b981"
	colorAmber  = "#f59e0b"
	colorRed    = "#ef4444"
	currencySym = "₹"
)

type row struct {
	Label string
	Value string
}

// content is the data both email templates render.
type content struct {
	Name    string
	Heading string
	Color   string
	Intro   string
	Code    string
	Rows    []row
	Warning string
	Outro   string
}

func compose(e notification.Event) (string, content, bool) {
	d := e.Data
	switch e.Kind {
	case notification.EventTransactionRecorded:
		kind, color := "Expense", colorRed
		if d[notification.DataType] == "income" {
			kind, color = "Income", colorGreen
		}
		c := content{
			Heading: kind + " Recorded",
			Color:   color,
			Intro:   "A new " + strings.ToLower(kind) + " transaction has been recorded:",
			Rows: []row{
				{"Type", kind},
				{"Amount", money(d[notification.DataAmount])},
				{"Category", d[notification.DataCategory]},
				{"Date", day(d[notification.DataDate])},
			},
			Outro: "Keep monitoring your finances with BudgetTracker!",
		}
		c.Rows = withOptional(c.Rows, "Description", d[notification.DataDescription])
		return "Transaction Recorded: " + kind + " - " + money(d[notification.DataAmount]), c, true

	case notification.EventBudgetSet:
		return "Budget Set for " + d[notification.DataPeriod], content{
			Heading: "Budget Confirmation",
			Color:   colorBlue,
			Intro:   "Your monthly budget has been set:",
			Rows: []row{
				{"Month", d[notification.DataPeriod]},
				{"Budget Amount", money(d[notification.DataAmount])},
			},
			Outro: "Monitor your spending throughout the month to stay within your budget!",
		}, true

	case notification.EventBudgetAlert:
		budget, _ := decimal.NewFromString(d[notification.DataBudget])
		spent, _ := decimal.NewFromString(d[notification.DataSpent])
		remaining := decimal.Max(budget.Sub(spent), decimal.Zero)
		pct := d[notification.DataPercentage]

		subject, color := "Budget Alert: "+pct+"% Used for "+d[notification.DataPeriod], colorAmber
		if d[notification.DataLevel] == notification.LevelExceeded {
			subject, color = "Budget Alert: Limit Exceeded for "+d[notification.DataPeriod], colorRed
		}
		return subject, content{
			Heading: "Budget Alert",
			Color:   color,
			Intro:   "Your budget for " + d[notification.DataPeriod] + " has been updated:",
			Rows: []row{
				{"Budget Limit", money(d[notification.DataBudget])},
				{"Amount Spent", money(d[notification.DataSpent])},
				{"Remaining", money(remaining.StringFixed(2))},
				{"Usage", pct + "%"},
			},
			Warning: "You are approaching or have exceeded your budget limit. Please review your spending!",
			Outro:   "Keep tracking your spending to stay within your budget.",
		}, true

	case notification.EventGoalCreated:
		c := content{
			Heading: "New Savings Goal",
			Color:   colorAmber,
			Intro:   "Great! You've created a new savings goal:",
			Rows: []row{
				{"Goal Title", d[notification.DataTitle]},
				{"Target Amount", money(d[notification.DataTargetAmount])},
				{"Target Date", day(d[notification.DataTargetDate])},
				{"Category", d[notification.DataCategory]},
			},
			Outro: "Start saving towards your goal today! Every small step counts towards achieving your financial dreams.",
		}
		c.Rows = withOptional(c.Rows, "Description", d[notification.DataDescription])
		return "New Savings Goal Created: " + d[notification.DataTitle], c, true

	case notification.EventGoalCompleted:
		return "Congratulations! Goal Completed: " + d[notification.DataTitle], content{
			Heading: "Goal Completed!",
			Color:   colorGreen,
			Intro:   "Congratulations! You've successfully reached your savings goal!",
			Rows: []row{
				{"Goal Title", d[notification.DataTitle]},
				{"Target Amount", money(d[notification.DataTargetAmount])},
				{"Achieved Amount", money(d[notification.DataCurrentAmount])},
				{"Completion Date", e.OccurredAt.Format("02 Jan 2006")},
			},
			Outro: "You've shown great discipline and commitment to your financial goals. Keep up the excellent work!",
		}, true

	case notification.EventReminderPaid:
		return "Bill Payment Confirmed: " + d[notification.DataTitle], content{
			Heading: "Payment Confirmed",
			Color:   colorGreen,
			Intro:   "Your bill payment has been marked as paid:",
			Rows: []row{
				{"Bill Title", d[notification.DataTitle]},
				{"Amount", money(d[notification.DataAmount])},
				{"Payment Date", e.OccurredAt.Format("02 Jan 2006")},
				{"Category", d[notification.DataCategory]},
			},
			Outro: "Thank you for keeping your bills updated in BudgetTracker!",
		}, true

	case notification.EventReminderDue:
		return "Bill Reminder: " + d[notification.DataTitle], content{
			Heading: "Bill Reminder",
			Color:   colorBlue,
			Intro:   "You have an upcoming bill reminder:",
			Rows: []row{
				{"Bill Title", d[notification.DataTitle]},
				{"Amount", money(d[notification.DataAmount])},
				{"Due Date", day(d[notification.DataDueDate])},
				{"Category", d[notification.DataCategory]},
			},
			Outro: "Make sure to pay this bill on time to avoid any penalties.",
		}, true
	}
	return "", content{}, false
}

func money(amount string) string {
	if amount == "" {
		return currencySym + "0.00"
	}
	return currencySym + amount
}

// day reformats a YYYY-MM-DD value for display and passes anything else
// through.
func day(s string) string {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		if t, err = time.Parse(time.RFC3339, s); err != nil {
			return s
		}
	}
	return t.Format("02 Jan 2006")
}

func withOptional(rows []row, label, value string) []row {
	if strings.TrimSpace(value) == "" {
		return rows
	}
	return append(rows, row{label, value})
}
