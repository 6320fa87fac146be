package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"pocketbook/internal/domain/reminder"
)

const reminderColumns = `id, user_id, title, amount, due_date, category, description, is_paid, is_recurring,
	recurring_frequency, reminder_days_before, last_reminded_at, created_at, updated_at`

type ReminderRepository struct {
	db *DB
}

func NewReminderRepository(db *DB) *ReminderRepository {
	return &ReminderRepository{db: db}
}

func scanReminder(row interface{ Scan(...any) error }) (*reminder.Reminder, error) {
	var (
		rem      reminder.Reminder
		reminded sql.NullTime
	)
	err := row.Scan(&rem.ID, &rem.UserID, &rem.Title, &rem.Amount, &rem.DueDate, &rem.Category, &rem.Description,
		&rem.IsPaid, &rem.IsRecurring, &rem.RecurringFrequency, &rem.ReminderDaysBefore, &reminded,
		&rem.CreatedAt, &rem.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if reminded.Valid {
		rem.LastRemindedAt = &reminded.Time
	}
	return &rem, nil
}

func (r *ReminderRepository) Create(ctx context.Context, params reminder.CreateParams) (*reminder.Reminder, error) {
	query := `
		INSERT INTO bill_reminders (user_id, title, amount, due_date, category, description,
			is_recurring, recurring_frequency, reminder_days_before)
		VALUES ($1, $2, $3, $4::date, $5, $6, $7, $8, $9)
		RETURNING ` + reminderColumns

	rem, err := scanReminder(r.db.QueryRowContext(ctx, query,
		params.UserID, params.Title, params.Amount, params.DueDate.Format("2006-01-02"), params.Category,
		params.Description, params.IsRecurring, string(params.RecurringFrequency), *params.ReminderDaysBefore,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create bill reminder: %w", err)
	}
	return rem, nil
}

func (r *ReminderRepository) GetByID(ctx context.Context, id string, userID int64) (*reminder.Reminder, error) {
	rem, err := scanReminder(r.db.QueryRowContext(ctx,
		`SELECT `+reminderColumns+` FROM bill_reminders WHERE id = $1 AND user_id = $2`, id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, reminder.ErrReminderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bill reminder: %w", err)
	}
	return rem, nil
}

func (r *ReminderRepository) List(ctx context.Context, userID int64) ([]*reminder.Reminder, error) {
	return r.list(ctx,
		`SELECT `+reminderColumns+` FROM bill_reminders WHERE user_id = $1 ORDER BY due_date ASC, created_at ASC`,
		userID)
}

func (r *ReminderRepository) list(ctx context.Context, query string, args ...any) ([]*reminder.Reminder, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list bill reminders: %w", err)
	}
	defer rows.Close()

	reminders := make([]*reminder.Reminder, 0)
	for rows.Next() {
		rem, err := scanReminder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bill reminder: %w", err)
		}
		reminders = append(reminders, rem)
	}
	return reminders, rows.Err()
}

func (r *ReminderRepository) Update(ctx context.Context, id string, userID int64, params reminder.UpdateParams) (*reminder.Reminder, error) {
	var dueDate, frequency *string
	if params.DueDate != nil {
		s := params.DueDate.Format("2006-01-02")
		dueDate = &s
	}
	if params.RecurringFrequency != nil {
		s := string(*params.RecurringFrequency)
		frequency = &s
	}

	query := `
		UPDATE bill_reminders
		SET title = COALESCE($3, title),
		    amount = COALESCE($4::numeric, amount),
		    due_date = COALESCE($5::date, due_date),
		    category = COALESCE($6, category),
		    description = COALESCE($7, description),
		    is_recurring = COALESCE($8::boolean, is_recurring),
		    recurring_frequency = COALESCE($9, recurring_frequency),
		    reminder_days_before = COALESCE($10::smallint, reminder_days_before),
		    updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING ` + reminderColumns

	rem, err := scanReminder(r.db.QueryRowContext(ctx, query,
		id, userID, params.Title, params.Amount, dueDate, params.Category, params.Description,
		params.IsRecurring, frequency, params.ReminderDaysBefore,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, reminder.ErrReminderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update bill reminder: %w", err)
	}
	return rem, nil
}

func (r *ReminderRepository) Delete(ctx context.Context, id string, userID int64) error {
	err := r.db.execAffected(ctx, reminder.ErrReminderNotFound,
		`DELETE FROM bill_reminders WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil && !errors.Is(err, reminder.ErrReminderNotFound) {
		return fmt.Errorf("failed to delete bill reminder: %w", err)
	}
	return err
}

// MarkPaid flips is_paid in one statement. When nothing changed the row is
// re-read to tell an already-paid reminder from a missing one.
func (r *ReminderRepository) MarkPaid(ctx context.Context, id string, userID int64) (*reminder.Reminder, bool, error) {
	query := `
		UPDATE bill_reminders
		SET is_paid = TRUE, updated_at = NOW()
		WHERE id = $1 AND user_id = $2 AND NOT is_paid
		RETURNING ` + reminderColumns

	rem, err := scanReminder(r.db.QueryRowContext(ctx, query, id, userID))
	if err == nil {
		return rem, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to mark bill reminder paid: %w", err)
	}

	rem, err = r.GetByID(ctx, id, userID)
	if err != nil {
		return nil, false, err
	}
	return rem, false, nil
}

func (r *ReminderRepository) ListDueCandidates(ctx context.Context, today time.Time) ([]*reminder.Reminder, error) {
	return r.list(ctx, `
		SELECT `+reminderColumns+`
		FROM bill_reminders
		WHERE NOT is_paid
		  AND due_date >= $1::date
		  AND due_date <= $1::date + reminder_days_before
		ORDER BY due_date ASC`,
		today.Format("2006-01-02"))
}

func (r *ReminderRepository) MarkReminded(ctx context.Context, id string, previous *time.Time, at time.Time) (bool, error) {
	query := `
		UPDATE bill_reminders
		SET last_reminded_at = $2
		WHERE id = $1 AND NOT is_paid AND last_reminded_at IS NOT DISTINCT FROM $3`

	res, err := r.db.ExecContext(ctx, query, id, at, previous)
	if err != nil {
		return false, fmt.Errorf("failed to stamp bill reminder: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to stamp bill reminder: %w", err)
	}
	return n == 1, nil
}
