package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"pocketbook/internal/domain/notification"
)

const (
	deviceColumns       = `id, user_id, token, device_type, is_active, created_at, last_used`
	preferenceColumns   = `id, user_id, transactions_enabled, budgets_enabled, goals_enabled, bills_enabled, updated_at`
	notificationColumns = `id, user_id, title, message, category, data, opened_at, created_at`
)

// NotificationRepository stores push devices, per-category preferences and
// the in-app notification history.
type NotificationRepository struct {
	db *DB
}

func NewNotificationRepository(db *DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func scanDevice(row interface{ Scan(...any) error }) (*notification.DeviceToken, error) {
	var d notification.DeviceToken
	if err := row.Scan(&d.ID, &d.UserID, &d.Token, &d.DeviceType, &d.IsActive, &d.CreatedAt, &d.LastUsed); err != nil {
		return nil, err
	}
	return &d, nil
}

// UpsertDeviceToken registers a token. A token already known under another
// account moves to params.UserID and is reactivated.
func (r *NotificationRepository) UpsertDeviceToken(ctx context.Context, params notification.CreateDeviceTokenParams) (*notification.DeviceToken, error) {
	query := `
		INSERT INTO push_devices (user_id, token, device_type)
		VALUES ($1, $2, $3)
		ON CONFLICT (token) DO UPDATE
			SET user_id     = EXCLUDED.user_id,
			    device_type = EXCLUDED.device_type,
			    is_active   = TRUE,
			    last_used   = NOW()
		RETURNING ` + deviceColumns

	d, err := scanDevice(r.db.QueryRowContext(ctx, query, params.UserID, params.Token, params.DeviceType))
	if err != nil {
		return nil, fmt.Errorf("failed to register device: %w", err)
	}
	return d, nil
}

// GetActiveTokensByUserID lists the devices a push should go to, most
// recently used first.
func (r *NotificationRepository) GetActiveTokensByUserID(ctx context.Context, userID int64) ([]*notification.DeviceToken, error) {
	query := `SELECT ` + deviceColumns + ` FROM push_devices WHERE user_id = $1 AND is_active ORDER BY last_used DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	defer rows.Close()

	var devices []*notification.DeviceToken
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan device: %w", err)
		}
		devices = append(devices, d)
	}
	return devices, rows.Err()
}

// DeactivateToken stops pushes to a token FCM reported as unregistered.
func (r *NotificationRepository) DeactivateToken(ctx context.Context, token string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE push_devices SET is_active = FALSE WHERE token = $1`, token); err != nil {
		return fmt.Errorf("failed to deactivate device: %w", err)
	}
	return nil
}

func scanPreference(row interface{ Scan(...any) error }) (*notification.Preference, error) {
	var p notification.Preference
	err := row.Scan(&p.ID, &p.UserID, &p.TransactionsEnabled, &p.BudgetsEnabled, &p.GoalsEnabled, &p.BillsEnabled, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *NotificationRepository) GetPreferences(ctx context.Context, userID int64) (*notification.Preference, error) {
	query := `SELECT ` + preferenceColumns + ` FROM notification_preferences WHERE user_id = $1`

	pref, err := scanPreference(r.db.QueryRowContext(ctx, query, userID))
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, notification.ErrPreferencesNotFound
	case err != nil:
		return nil, fmt.Errorf("failed to get notification preferences: %w", err)
	}
	return pref, nil
}

// UpsertPreferences applies the non-nil toggles. A user without a row gets
// one with every other category enabled.
func (r *NotificationRepository) UpsertPreferences(ctx context.Context, userID int64, params notification.UpdatePreferenceParams) (*notification.Preference, error) {
	query := `
		INSERT INTO notification_preferences AS p
			(user_id, transactions_enabled, budgets_enabled, goals_enabled, bills_enabled)
		VALUES ($1, COALESCE($2, TRUE), COALESCE($3, TRUE), COALESCE($4, TRUE), COALESCE($5, TRUE))
		ON CONFLICT (user_id) DO UPDATE
			SET transactions_enabled = COALESCE($2, p.transactions_enabled),
			    budgets_enabled      = COALESCE($3, p.budgets_enabled),
			    goals_enabled        = COALESCE($4, p.goals_enabled),
			    bills_enabled        = COALESCE($5, p.bills_enabled),
			    updated_at           = NOW()
		RETURNING ` + preferenceColumns

	pref, err := scanPreference(r.db.QueryRowContext(ctx, query, userID,
		nullBool(params.TransactionsEnabled),
		nullBool(params.BudgetsEnabled),
		nullBool(params.GoalsEnabled),
		nullBool(params.BillsEnabled),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to save notification preferences: %w", err)
	}
	return pref, nil
}

// nullBool sends a nil toggle as a typed NULL so COALESCE keeps the old value.
func nullBool(b *bool) sql.NullBool {
	if b == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *b, Valid: true}
}

func scanNotification(row interface{ Scan(...any) error }) (*notification.Notification, error) {
	var (
		n        notification.Notification
		data     []byte
		openedAt sql.NullTime
	)
	if err := row.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.Category, &data, &openedAt, &n.CreatedAt); err != nil {
		return nil, err
	}
	if openedAt.Valid {
		n.OpenedAt = &openedAt.Time
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &n.Data); err != nil {
			return nil, fmt.Errorf("failed to decode notification data: %w", err)
		}
	}
	return &n, nil
}

func (r *NotificationRepository) CreateNotification(ctx context.Context, params notification.CreateNotificationParams) (*notification.Notification, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	data, err := json.Marshal(params.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode notification data: %w", err)
	}

	query := `
		INSERT INTO notifications (user_id, title, message, category, data)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + notificationColumns

	n, err := scanNotification(r.db.QueryRowContext(ctx, query, params.UserID, params.Title, params.Message, params.Category, data))
	if err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}
	return n, nil
}

// ListByUserID returns one page of history, newest first, with the total
// count across all pages.
func (r *NotificationRepository) ListByUserID(ctx context.Context, userID int64, page, perPage int) ([]*notification.Notification, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notifications WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	query := `SELECT ` + notificationColumns + `
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3`

	rows, err := r.db.QueryContext(ctx, query, userID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	items := make([]*notification.Notification, 0, perPage)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan notification: %w", err)
		}
		items = append(items, n)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to read notifications: %w", err)
	}
	return items, total, nil
}

// MarkOpened records the first open only; later calls keep the original time.
func (r *NotificationRepository) MarkOpened(ctx context.Context, notificationID string, userID int64) error {
	err := r.db.execAffected(ctx, notification.ErrNotificationNotFound,
		`UPDATE notifications SET opened_at = COALESCE(opened_at, NOW()) WHERE id = $1 AND user_id = $2`,
		notificationID, userID,
	)
	if err != nil && !errors.Is(err, notification.ErrNotificationNotFound) {
		return fmt.Errorf("failed to mark notification opened: %w", err)
	}
	return err
}
