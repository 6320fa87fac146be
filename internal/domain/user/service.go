package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"pocketbook/internal/shared/auth"
)

// Service implements registration, login and account management.
type Service struct {
	repo   Repository
	tokens TokenIssuer
	hasher PasswordHasher
	sender OTPSender
	stats  StatsProvider
	otps   OTPGenerator
	now    func() time.Time
}

func NewService(repo Repository, tokens TokenIssuer, hasher PasswordHasher, sender OTPSender, stats StatsProvider) *Service {
	return &Service{
		repo:   repo,
		tokens: tokens,
		hasher: hasher,
		sender: sender,
		stats:  stats,
		otps:   auth.OTPGenerator{},
		now:    time.Now,
	}
}

// NormalizeEmail trims and lowercases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) Register(ctx context.Context, params RegisterParams) (*User, error) {
	params.Name = strings.TrimSpace(params.Name)
	params.Email = NormalizeEmail(params.Email)
	if err := params.Validate(); err != nil {
		return nil, err
	}

	if _, err := s.repo.GetByEmail(ctx, params.Email); err == nil {
		return nil, ErrUserExists
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	hash, err := s.hasher.Hash(params.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	// A concurrent registration for the same address loses on the unique
	// index and comes back as ErrUserExists.
	return s.repo.Create(ctx, CreateUserParams{
		Email:        params.Email,
		Name:         params.Name,
		PasswordHash: hash,
	})
}

func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	u, err := s.repo.GetByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := s.hasher.Verify(u.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.issueSession(u)
}

// SendOTP issues a new code, replacing any pending one, and mails it.
func (s *Service) SendOTP(ctx context.Context, email string) error {
	email = NormalizeEmail(email)
	if email == "" {
		return ErrEmailRequired
	}

	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return err
	}

	code, err := s.otps.Generate()
	if err != nil {
		return err
	}

	if err := s.repo.SetOTP(ctx, u.ID, code, s.now().Add(auth.OTPTTL)); err != nil {
		return err
	}

	if err := s.sender.SendOTP(ctx, u.Email, u.Name, code); err != nil {
		slog.ErrorContext(ctx, "failed to deliver otp", "user_id", u.ID, "error", err)
		return ErrOTPDelivery.Wrap(err)
	}
	return nil
}

// VerifyOTP consumes a pending code and returns a session like Login.
// A wrong code leaves the pending code in place until it has been missed
// auth.OTPMaxAttempts times.
func (s *Service) VerifyOTP(ctx context.Context, email, otp string) (*Session, error) {
	email = NormalizeEmail(email)
	otp = strings.TrimSpace(otp)
	if email == "" || otp == "" {
		return nil, ErrMissingOTPFields
	}

	u, err := s.repo.GetByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrInvalidOTPRequest
	}
	if err != nil {
		return nil, err
	}

	if !u.HasPendingOTP() {
		return nil, ErrInvalidOTPRequest
	}
	if !s.now().Before(*u.OTPExpiresAt) {
		return nil, ErrOTPExpired
	}
	if *u.OTP != otp {
		cleared, err := s.repo.RecordOTPFailure(ctx, u.ID, auth.OTPMaxAttempts)
		if err != nil {
			return nil, err
		}
		if cleared {
			return nil, ErrOTPAttemptsExceeded
		}
		return nil, ErrIncorrectOTP
	}

	consumed, err := s.repo.ConsumeOTP(ctx, u.ID, otp)
	if err != nil {
		return nil, err
	}
	if !consumed {
		return nil, ErrInvalidOTPRequest
	}

	u.OTP = nil
	u.OTPExpiresAt = nil
	return s.issueSession(u)
}

func (s *Service) ChangePassword(ctx context.Context, userID int64, params ChangePasswordParams) error {
	if err := params.Validate(); err != nil {
		return err
	}

	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.hasher.Verify(u.PasswordHash, params.Current); err != nil {
		return ErrWrongPassword
	}

	hash, err := s.hasher.Hash(params.New)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return s.repo.UpdatePassword(ctx, userID, hash)
}

func (s *Service) GetProfile(ctx context.Context, userID int64) (*Profile, error) {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	profile := &Profile{User: u}
	if s.stats != nil {
		stats, err := s.stats.Stats(ctx, userID)
		if err != nil {
			return nil, err
		}
		profile.Stats = *stats
	}
	return profile, nil
}

func (s *Service) UpdateProfile(ctx context.Context, userID int64, params UpdateProfileParams) (*User, error) {
	name := strings.TrimSpace(params.Name)
	email := NormalizeEmail(params.Email)
	if name == "" && email == "" {
		return nil, ErrNothingToUpdate
	}

	var update UpdateUserParams
	if name != "" {
		update.Name = &name
	}
	if email != "" {
		update.Email = &email
	}
	return s.repo.Update(ctx, userID, update)
}

func (s *Service) GetByID(ctx context.Context, userID int64) (*User, error) {
	return s.repo.GetByID(ctx, userID)
}

func (s *Service) issueSession(u *User) (*Session, error) {
	token, err := s.tokens.Generate(u.ID, u.Email)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, User: u}, nil
}
