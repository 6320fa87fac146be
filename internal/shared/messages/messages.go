// Package messages holds the push notification texts. Texts can be
// overridden per deployment from a JSON file; missing keys keep defaults.
package messages

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
)

type MessageText struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Render substitutes {key} placeholders from data.
func (m MessageText) Render(data map[string]string) MessageText {
	if len(data) == 0 {
		return m
	}
	pairs := make([]string, 0, len(data)*2)
	for k, v := range data {
		pairs = append(pairs, "{"+k+"}", v)
	}
	r := strings.NewReplacer(pairs...)
	return MessageText{Title: r.Replace(m.Title), Body: r.Replace(m.Body)}
}

type Messages struct {
	TransactionRecorded MessageText `json:"transaction_recorded"`
	BudgetSet           MessageText `json:"budget_set"`
	BudgetWarning       MessageText `json:"budget_warning"`
	BudgetExceeded      MessageText `json:"budget_exceeded"`
	GoalCreated         MessageText `json:"goal_created"`
	GoalCompleted       MessageText `json:"goal_completed"`
	ReminderPaid        MessageText `json:"reminder_paid"`
	ReminderDue         MessageText `json:"reminder_due"`
}

func Defaults() *Messages {
	return &Messages{
		TransactionRecorded: MessageText{"Transaction recorded", "{type} of {amount} in {category} was recorded."},
		BudgetSet:           MessageText{"Budget set", "Your budget for {period} is {amount}."},
		BudgetWarning:       MessageText{"Budget warning", "You have used {percentage}% of your {period} budget."},
		BudgetExceeded:      MessageText{"Budget exceeded", "You have used {percentage}% of your {period} budget."},
		GoalCreated:         MessageText{"New savings goal", "{title}: target {targetAmount} by {targetDate}."},
		GoalCompleted:       MessageText{"Goal completed", "You reached your savings goal {title}."},
		ReminderPaid:        MessageText{"Bill paid", "{title} ({amount}) was marked as paid."},
		ReminderDue:         MessageText{"Bill due soon", "{title} ({amount}) is due on {dueDate}."},
	}
}

// Parse overlays the JSON document on top of Defaults.
func Parse(data []byte) (*Messages, error) {
	m := Defaults()
	if err := json.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("failed to parse messages file: %w", err)
	}
	return m, nil
}

var (
	loaded   *Messages
	loadOnce sync.Once
	loadErr  error
)

// Load reads the messages file once and caches the result. An empty path
// returns Defaults. Safe to call from multiple goroutines.
func Load(path string) (*Messages, error) {
	if path == "" {
		return Defaults(), nil
	}
	loadOnce.Do(func() {
		data, err := os.ReadFile(path)
		if err != nil {
			loadErr = fmt.Errorf("failed to read messages file: %w", err)
			return
		}
		loaded, loadErr = Parse(data)
	})
	if loadErr != nil {
		return nil, loadErr
	}
	return loaded, nil
}
