package user

import (
	"time"

	"github.com/shopspring/decimal"

	"pocketbook/internal/shared/apperrors"
)

var (
	ErrUserNotFound       = apperrors.NotFound("User not found")
	ErrUserExists         = apperrors.Conflict("User already exists")
	ErrEmailInUse         = apperrors.Conflict("Email already in use")
	ErrInvalidCredentials = apperrors.Auth("Invalid credentials")

	ErrMissingFields       = apperrors.Validation("All fields are required")
	ErrMissingCredentials  = apperrors.Validation("Email and password required")
	ErrPasswordTooShort    = apperrors.Validation("Password must be at least 8 characters long")
	ErrPasswordTooWeak     = apperrors.Validation("Password must contain at least one uppercase letter and one number")
	ErrPasswordTooLong     = apperrors.Validation("Password must be at most 72 bytes long")
	ErrNothingToUpdate     = apperrors.Validation("Nothing to update. Provide name or email.")
	ErrEmailRequired       = apperrors.Validation("Email is required")
	ErrMissingOTPFields    = apperrors.Validation("Email and OTP required")
	ErrInvalidOTPRequest   = apperrors.Validation("Invalid OTP request")
	ErrOTPExpired          = apperrors.Validation("OTP expired")
	ErrIncorrectOTP        = apperrors.Validation("Incorrect OTP")
	ErrOTPAttemptsExceeded = apperrors.Validation("Too many incorrect codes, please request a new OTP")
	ErrOTPDelivery         = apperrors.Unavailable("Failed to send OTP email")
	ErrPasswordMismatch    = apperrors.Validation("New password and confirmation do not match")
	ErrNewPasswordTooShort = apperrors.Validation("New password must be at least 6 characters long")
	ErrPasswordUnchanged   = apperrors.Validation("New password must be different from the current password")
	ErrWrongPassword       = apperrors.Validation("Current password is incorrect")
)

const (
	MinPasswordLength       = 8
	MinChangePasswordLength = 6

	// MaxPasswordBytes is bcrypt's input limit; longer passwords are
	// rejected rather than silently truncated.
	MaxPasswordBytes = 72
)

type User struct {
	ID           int64      `json:"id"`
	Email        string     `json:"email"`
	Name         string     `json:"name"`
	PasswordHash string     `json:"-"`
	OTP          *string    `json:"-"`
	OTPExpiresAt *time.Time `json:"-"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// HasPendingOTP reports whether a code has been issued and not consumed.
func (u *User) HasPendingOTP() bool {
	return u.OTP != nil && *u.OTP != "" && u.OTPExpiresAt != nil
}

// Session is the result of a successful login.
type Session struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

// Stats are the aggregate figures shown on the profile.
type Stats struct {
	TotalIncome   decimal.Decimal `json:"totalIncome"`
	TotalExpense  decimal.Decimal `json:"totalExpense"`
	Balance       decimal.Decimal `json:"balance"`
	CurrentBudget decimal.Decimal `json:"currentBudget"`
}

type Profile struct {
	*User
	Stats Stats `json:"stats"`
}

type CreateUserParams struct {
	Email        string
	Name         string
	PasswordHash string
}

type UpdateUserParams struct {
	Name  *string
	Email *string
}

type RegisterParams struct {
	Name     string
	Email    string
	Password string
}

func (p RegisterParams) Validate() error {
	if p.Name == "" || p.Email == "" || p.Password == "" {
		return ErrMissingFields
	}
	if len(p.Password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if len(p.Password) > MaxPasswordBytes {
		return ErrPasswordTooLong
	}
	if !hasUpperAndDigit(p.Password) {
		return ErrPasswordTooWeak
	}
	return nil
}

type ChangePasswordParams struct {
	Current string
	New     string
	Confirm string
}

func (p ChangePasswordParams) Validate() error {
	if p.Current == "" || p.New == "" || p.Confirm == "" {
		return ErrMissingFields
	}
	if p.New != p.Confirm {
		return ErrPasswordMismatch
	}
	if len(p.New) < MinChangePasswordLength {
		return ErrNewPasswordTooShort
	}
	if len(p.New) > MaxPasswordBytes {
		return ErrPasswordTooLong
	}
	if p.New == p.Current {
		return ErrPasswordUnchanged
	}
	return nil
}

type UpdateProfileParams struct {
	Name  string
	Email string
}

func hasUpperAndDigit(s string) bool {
	var upper, digit bool
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		}
	}
	return upper && digit
}
