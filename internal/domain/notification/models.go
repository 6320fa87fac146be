package notification

import (
	"time"

	"pocketbook/internal/shared/apperrors"
)

// Notification categories
const (
	CategoryTransactions = "transactions"
	CategoryBudgets      = "budgets"
	CategoryGoals        = "goals"
	CategoryBills        = "bills"
)

var validCategories = map[string]struct{}{
	CategoryTransactions: {},
	CategoryBudgets:      {},
	CategoryGoals:        {},
	CategoryBills:        {},
}

var validDeviceTypes = map[string]struct{}{
	"ios":     {},
	"android": {},
	"web":     {},
}

var (
	ErrNotificationNotFound = apperrors.NotFound("Notification not found")
	ErrPreferencesNotFound  = apperrors.NotFound("Notification preferences not found")
	ErrRecipientNotFound    = apperrors.NotFound("User not found")
	ErrInvalidCategory      = apperrors.Validation("Invalid notification category")
	ErrInvalidDeviceType    = apperrors.Validation("Device type must be 'ios', 'android' or 'web'")
	ErrInvalidToken         = apperrors.Validation("Device token is required")
	ErrInvalidUser          = apperrors.Validation("Valid user ID is required")
	ErrMissingID            = apperrors.Validation("Notification ID is required")
)

// Recipient is the addressing information for a user.
type Recipient struct {
	UserID int64
	Email  string
	Name   string
}

// DeviceToken represents a registered FCM device token
type DeviceToken struct {
	ID         string    `json:"id"`
	UserID     int64     `json:"userId"`
	Token      string    `json:"token"`
	DeviceType string    `json:"deviceType"`
	IsActive   bool      `json:"isActive"`
	CreatedAt  time.Time `json:"createdAt"`
	LastUsed   time.Time `json:"lastUsed"`
}

// Preference stores per-category push toggles for a user. Email is always sent.
type Preference struct {
	ID                  string    `json:"id"`
	UserID              int64     `json:"-"`
	TransactionsEnabled bool      `json:"transactionsEnabled"`
	BudgetsEnabled      bool      `json:"budgetsEnabled"`
	GoalsEnabled        bool      `json:"goalsEnabled"`
	BillsEnabled        bool      `json:"billsEnabled"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

func DefaultPreference(userID int64) *Preference {
	return &Preference{
		UserID:              userID,
		TransactionsEnabled: true,
		BudgetsEnabled:      true,
		GoalsEnabled:        true,
		BillsEnabled:        true,
	}
}

// IsCategoryEnabled checks if a specific category is enabled in preferences
func (p *Preference) IsCategoryEnabled(category string) bool {
	switch category {
	case CategoryTransactions:
		return p.TransactionsEnabled
	case CategoryBudgets:
		return p.BudgetsEnabled
	case CategoryGoals:
		return p.GoalsEnabled
	case CategoryBills:
		return p.BillsEnabled
	default:
		return false
	}
}

// Notification is the in-app history record of a delivered event.
type Notification struct {
	ID        string            `json:"id"`
	UserID    int64             `json:"-"`
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	Category  string            `json:"category"`
	Data      map[string]string `json:"data"`
	OpenedAt  *time.Time        `json:"openedAt"`
	CreatedAt time.Time         `json:"createdAt"`
}

type CreateDeviceTokenParams struct {
	UserID     int64
	Token      string
	DeviceType string
}

func (p CreateDeviceTokenParams) Validate() error {
	if p.UserID <= 0 {
		return ErrInvalidUser
	}
	if p.Token == "" {
		return ErrInvalidToken
	}
	if !IsValidDeviceType(p.DeviceType) {
		return ErrInvalidDeviceType
	}
	return nil
}

// UpdatePreferenceParams is a partial update; nil fields keep their value.
type UpdatePreferenceParams struct {
	TransactionsEnabled *bool
	BudgetsEnabled      *bool
	GoalsEnabled        *bool
	BillsEnabled        *bool
}

type CreateNotificationParams struct {
	UserID   int64
	Title    string
	Message  string
	Category string
	Data     map[string]string
}

func (p CreateNotificationParams) Validate() error {
	if p.UserID <= 0 {
		return ErrInvalidUser
	}
	if p.Title == "" || p.Message == "" {
		return apperrors.Validation("Notification title and message are required")
	}
	if !IsValidCategory(p.Category) {
		return ErrInvalidCategory
	}
	return nil
}

func IsValidCategory(c string) bool {
	_, ok := validCategories[c]
	return ok
}

func IsValidDeviceType(dt string) bool {
	_, ok := validDeviceTypes[dt]
	return ok
}

// CategoryFor maps an event kind to the preference category gating its push.
func CategoryFor(kind EventKind) string {
	switch kind {
	case EventTransactionRecorded:
		return CategoryTransactions
	case EventBudgetSet, EventBudgetAlert:
		return CategoryBudgets
	case EventGoalCreated, EventGoalCompleted:
		return CategoryGoals
	case EventReminderPaid, EventReminderDue:
		return CategoryBills
	default:
		return ""
	}
}
