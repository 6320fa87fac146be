package user

import (
	"context"
	"time"
)

// Repository defines the interface for user data access.
// Lookups by email expect the normalized (trimmed, lowercase) address.
type Repository interface {
	Create(ctx context.Context, params CreateUserParams) (*User, error)
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, id int64, params UpdateUserParams) (*User, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error

	SetOTP(ctx context.Context, id int64, otp string, expiresAt time.Time) error
	// ConsumeOTP clears the pending code only if it still equals otp.
	// It reports false when another request consumed it first.
	ConsumeOTP(ctx context.Context, id int64, otp string) (bool, error)
	// RecordOTPFailure counts a wrong code against the pending OTP and
	// clears it once maxAttempts is reached. It reports whether the code
	// was cleared.
	RecordOTPFailure(ctx context.Context, id int64, maxAttempts int) (bool, error)
}

type TokenIssuer interface {
	Generate(userID int64, email string) (string, error)
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(hash, password string) error
}

type OTPGenerator interface {
	Generate() (string, error)
}

// OTPSender delivers a one-time code to the user's mailbox.
type OTPSender interface {
	SendOTP(ctx context.Context, email, name, otp string) error
}

type StatsProvider interface {
	Stats(ctx context.Context, userID int64) (*Stats, error)
}
