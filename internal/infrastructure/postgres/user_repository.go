package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"pocketbook/internal/domain/notification"
	"pocketbook/internal/domain/user"
)

const usersEmailKey = "users_email_key"

const userColumns = `id, email, name, password_hash, otp, otp_expires_at, created_at, updated_at`

type UserRepository struct {
	db *DB
}

func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

func scanUser(row interface{ Scan(...any) error }) (*user.User, error) {
	var (
		u         user.User
		otp       sql.NullString
		otpExpiry sql.NullTime
	)
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &otp, &otpExpiry, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	if otp.Valid {
		u.OTP = &otp.String
	}
	if otpExpiry.Valid {
		u.OTPExpiresAt = &otpExpiry.Time
	}
	return &u, nil
}

func (r *UserRepository) Create(ctx context.Context, params user.CreateUserParams) (*user.User, error) {
	query := `
		INSERT INTO users (email, name, password_hash)
		VALUES ($1, $2, $3)
		RETURNING ` + userColumns

	u, err := scanUser(r.db.QueryRowContext(ctx, query, params.Email, params.Name, params.PasswordHash))
	if isUniqueViolation(err, usersEmailKey) {
		return nil, user.ErrUserExists
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return u, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*user.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg any) (*user.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, user.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

func (r *UserRepository) Update(ctx context.Context, id int64, params user.UpdateUserParams) (*user.User, error) {
	query := `
		UPDATE users
		SET name = COALESCE($2, name),
		    email = COALESCE($3, email),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns

	u, err := scanUser(r.db.QueryRowContext(ctx, query, id, params.Name, params.Email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, user.ErrUserNotFound
	}
	if isUniqueViolation(err, usersEmailKey) {
		return nil, user.ErrEmailInUse
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return u, nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	err := r.db.execAffected(ctx, user.ErrUserNotFound,
		`UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`,
		id, passwordHash,
	)
	if err != nil && !errors.Is(err, user.ErrUserNotFound) {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return err
}

func (r *UserRepository) SetOTP(ctx context.Context, id int64, otp string, expiresAt time.Time) error {
	err := r.db.execAffected(ctx, user.ErrUserNotFound,
		`UPDATE users SET otp = $2, otp_expires_at = $3, otp_attempts = 0, updated_at = NOW() WHERE id = $1`,
		id, otp, expiresAt,
	)
	if err != nil && !errors.Is(err, user.ErrUserNotFound) {
		return fmt.Errorf("failed to store otp: %w", err)
	}
	return err
}

func (r *UserRepository) ConsumeOTP(ctx context.Context, id int64, otp string) (bool, error) {
	err := r.db.execAffected(ctx, errNoRows,
		`UPDATE users SET otp = NULL, otp_expires_at = NULL, updated_at = NOW() WHERE id = $1 AND otp = $2`,
		id, otp,
	)
	if errors.Is(err, errNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to consume otp: %w", err)
	}
	return true, nil
}

// RecordOTPFailure increments the miss counter in the same statement that
// clears the code, so concurrent guesses cannot exceed maxAttempts.
func (r *UserRepository) RecordOTPFailure(ctx context.Context, id int64, maxAttempts int) (bool, error) {
	query := `
		UPDATE users
		SET otp_attempts   = otp_attempts + 1,
		    otp            = CASE WHEN otp_attempts + 1 >= $2 THEN NULL ELSE otp END,
		    otp_expires_at = CASE WHEN otp_attempts + 1 >= $2 THEN NULL ELSE otp_expires_at END,
		    updated_at     = NOW()
		WHERE id = $1 AND otp IS NOT NULL
		RETURNING otp IS NULL`

	var cleared bool
	err := r.db.QueryRowContext(ctx, query, id, maxAttempts).Scan(&cleared)
	if errors.Is(err, sql.ErrNoRows) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to record otp failure: %w", err)
	}
	return cleared, nil
}

// FindRecipient resolves the address used for notification emails.
func (r *UserRepository) FindRecipient(ctx context.Context, userID int64) (*notification.Recipient, error) {
	var rec notification.Recipient
	err := r.db.QueryRowContext(ctx, `SELECT id, email, name FROM users WHERE id = $1`, userID).
		Scan(&rec.UserID, &rec.Email, &rec.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notification.ErrRecipientNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find recipient: %w", err)
	}
	return &rec, nil
}
