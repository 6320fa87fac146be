package user

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"pocketbook/internal/shared/apperrors"
	"pocketbook/internal/shared/auth"
)

type memRepo struct {
	users    map[int64]*User
	nextID   int64
	attempts map[int64]int
}

func newMemRepo() *memRepo {
	return &memRepo{users: make(map[int64]*User), attempts: make(map[int64]int)}
}

func (r *memRepo) Create(ctx context.Context, params CreateUserParams) (*User, error) {
	for _, u := range r.users {
		if u.Email == params.Email {
			return nil, ErrUserExists
		}
	}
	r.nextID++
	u := &User{ID: r.nextID, Email: params.Email, Name: params.Name, PasswordHash: params.PasswordHash}
	r.users[u.ID] = u
	return u, nil
}

func (r *memRepo) GetByID(ctx context.Context, id int64) (*User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *memRepo) GetByEmail(ctx context.Context, email string) (*User, error) {
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrUserNotFound
}

func (r *memRepo) Update(ctx context.Context, id int64, params UpdateUserParams) (*User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	if params.Email != nil {
		for _, other := range r.users {
			if other.ID != id && other.Email == *params.Email {
				return nil, ErrEmailInUse
			}
		}
		u.Email = *params.Email
	}
	if params.Name != nil {
		u.Name = *params.Name
	}
	cp := *u
	return &cp, nil
}

func (r *memRepo) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	u, ok := r.users[id]
	if !ok {
		return ErrUserNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

func (r *memRepo) SetOTP(ctx context.Context, id int64, otp string, expiresAt time.Time) error {
	u := r.users[id]
	u.OTP = &otp
	u.OTPExpiresAt = &expiresAt
	r.attempts[id] = 0
	return nil
}

func (r *memRepo) RecordOTPFailure(ctx context.Context, id int64, maxAttempts int) (bool, error) {
	u := r.users[id]
	if u.OTP == nil {
		return true, nil
	}
	r.attempts[id]++
	if r.attempts[id] >= maxAttempts {
		u.OTP = nil
		u.OTPExpiresAt = nil
		return true, nil
	}
	return false, nil
}

func (r *memRepo) ConsumeOTP(ctx context.Context, id int64, otp string) (bool, error) {
	u := r.users[id]
	if u.OTP == nil || *u.OTP != otp {
		return false, nil
	}
	u.OTP = nil
	u.OTPExpiresAt = nil
	return true, nil
}

// plainHasher stores passwords with a prefix so tests stay fast.
type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) { return "hashed:" + password, nil }

func (plainHasher) Verify(hash, password string) error {
	if hash != "hashed:"+password {
		return errors.New("mismatch")
	}
	return nil
}

type fixedTokens struct{}

func (fixedTokens) Generate(userID int64, email string) (string, error) { return "token-" + email, nil }

type fakeSender struct {
	codes []string
	err   error
}

func (f *fakeSender) SendOTP(ctx context.Context, email, name, otp string) error {
	f.codes = append(f.codes, otp)
	return f.err
}

type fixedOTP string

func (f fixedOTP) Generate() (string, error) { return string(f), nil }

type statsFunc func(ctx context.Context, userID int64) (*Stats, error)

func (f statsFunc) Stats(ctx context.Context, userID int64) (*Stats, error) { return f(ctx, userID) }

type ServiceSuite struct {
	suite.Suite
	repo   *memRepo
	sender *fakeSender
	now    time.Time
	svc    *Service
}

func (s *ServiceSuite) SetupTest() {
	s.repo = newMemRepo()
	s.sender = &fakeSender{}
	s.now = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	s.svc = NewService(s.repo, fixedTokens{}, plainHasher{}, s.sender, statsFunc(func(ctx context.Context, userID int64) (*Stats, error) {
		return &Stats{TotalIncome: decimal.NewFromInt(100), TotalExpense: decimal.NewFromInt(40), Balance: decimal.NewFromInt(60)}, nil
	}))
	s.svc.otps = fixedOTP("123456")
	s.svc.now = func() time.Time { return s.now }
}

func (s *ServiceSuite) register() *User {
	u, err := s.svc.Register(context.Background(), RegisterParams{Name: "Ana", Email: " Ana@Example.com ", Password: "Secret123"})
	s.Require().NoError(err)
	return u
}

func (s *ServiceSuite) TestRegister_NormalizesEmailAndHashes() {
	u := s.register()
	s.Equal("ana@example.com", u.Email)
	s.Equal("hashed:Secret123", u.PasswordHash)
}

func (s *ServiceSuite) TestRegister_Validation() {
	cases := []struct {
		name   string
		params RegisterParams
		want   error
	}{
		{"missing name", RegisterParams{Email: "a@b.c", Password: "Secret123"}, ErrMissingFields},
		{"short password", RegisterParams{Name: "A", Email: "a@b.c", Password: "Ab1"}, ErrPasswordTooShort},
		{"no uppercase", RegisterParams{Name: "A", Email: "a@b.c", Password: "secret123"}, ErrPasswordTooWeak},
		{"no digit", RegisterParams{Name: "A", Email: "a@b.c", Password: "SecretWord"}, ErrPasswordTooWeak},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			_, err := s.svc.Register(context.Background(), tc.params)
			s.ErrorIs(err, tc.want)
		})
	}
}

func (s *ServiceSuite) TestRegister_DuplicateIsCaseInsensitive() {
	s.register()
	_, err := s.svc.Register(context.Background(), RegisterParams{Name: "B", Email: "ANA@example.com", Password: "Secret123"})
	s.ErrorIs(err, ErrUserExists)
	s.Equal(apperrors.KindConflict, apperrors.KindOf(err))
}

func (s *ServiceSuite) TestLogin() {
	s.register()

	session, err := s.svc.Login(context.Background(), "ANA@example.com", "Secret123")
	s.Require().NoError(err)
	s.Equal("token-ana@example.com", session.Token)
	s.Equal("Ana", session.User.Name)

	_, err = s.svc.Login(context.Background(), "ana@example.com", "wrong")
	s.ErrorIs(err, ErrInvalidCredentials)

	_, err = s.svc.Login(context.Background(), "nobody@example.com", "Secret123")
	s.ErrorIs(err, ErrInvalidCredentials)
	s.Equal(apperrors.KindAuth, apperrors.KindOf(err))

	_, err = s.svc.Login(context.Background(), "", "")
	s.ErrorIs(err, ErrMissingCredentials)
}

func (s *ServiceSuite) TestOTP_RoundTripConsumesOnce() {
	s.register()

	s.Require().NoError(s.svc.SendOTP(context.Background(), "ana@example.com"))
	s.Equal([]string{"123456"}, s.sender.codes)

	session, err := s.svc.VerifyOTP(context.Background(), "ana@example.com", "123456")
	s.Require().NoError(err)
	s.NotEmpty(session.Token)

	_, err = s.svc.VerifyOTP(context.Background(), "ana@example.com", "123456")
	s.ErrorIs(err, ErrInvalidOTPRequest)
}

func (s *ServiceSuite) TestOTP_IncorrectKeepsPending() {
	s.register()
	s.Require().NoError(s.svc.SendOTP(context.Background(), "ana@example.com"))

	_, err := s.svc.VerifyOTP(context.Background(), "ana@example.com", "000000")
	s.ErrorIs(err, ErrIncorrectOTP)

	_, err = s.svc.VerifyOTP(context.Background(), "ana@example.com", "123456")
	s.NoError(err)
}

func (s *ServiceSuite) TestOTP_AttemptsExhaustClearsCode() {
	s.register()
	s.Require().NoError(s.svc.SendOTP(context.Background(), "ana@example.com"))

	for i := 1; i < auth.OTPMaxAttempts; i++ {
		_, err := s.svc.VerifyOTP(context.Background(), "ana@example.com", "000000")
		s.ErrorIs(err, ErrIncorrectOTP, "attempt %d", i)
	}
	_, err := s.svc.VerifyOTP(context.Background(), "ana@example.com", "000000")
	s.ErrorIs(err, ErrOTPAttemptsExceeded)

	_, err = s.svc.VerifyOTP(context.Background(), "ana@example.com", "123456")
	s.ErrorIs(err, ErrInvalidOTPRequest, "the right code no longer works")

	s.Require().NoError(s.svc.SendOTP(context.Background(), "ana@example.com"))
	_, err = s.svc.VerifyOTP(context.Background(), "ana@example.com", "123456")
	s.NoError(err, "a fresh code resets the counter")
}

func (s *ServiceSuite) TestOTP_Expired() {
	s.register()
	s.Require().NoError(s.svc.SendOTP(context.Background(), "ana@example.com"))

	s.now = s.now.Add(11 * time.Minute)
	_, err := s.svc.VerifyOTP(context.Background(), "ana@example.com", "123456")
	s.ErrorIs(err, ErrOTPExpired)
}

func (s *ServiceSuite) TestOTP_NoPending() {
	s.register()
	_, err := s.svc.VerifyOTP(context.Background(), "ana@example.com", "123456")
	s.ErrorIs(err, ErrInvalidOTPRequest)

	_, err = s.svc.VerifyOTP(context.Background(), "ana@example.com", "")
	s.ErrorIs(err, ErrMissingOTPFields)
}

func (s *ServiceSuite) TestSendOTP_Errors() {
	err := s.svc.SendOTP(context.Background(), "nobody@example.com")
	s.ErrorIs(err, ErrUserNotFound)

	s.register()
	s.sender.err = errors.New("smtp down")
	err = s.svc.SendOTP(context.Background(), "ana@example.com")
	s.ErrorIs(err, ErrOTPDelivery)
	s.Equal(apperrors.KindUnavailable, apperrors.KindOf(err))
}

func (s *ServiceSuite) TestChangePassword() {
	u := s.register()
	ctx := context.Background()

	s.ErrorIs(s.svc.ChangePassword(ctx, u.ID, ChangePasswordParams{Current: "Secret123"}), ErrMissingFields)
	s.ErrorIs(s.svc.ChangePassword(ctx, u.ID, ChangePasswordParams{Current: "Secret123", New: "abcdef", Confirm: "abcdeg"}), ErrPasswordMismatch)
	s.ErrorIs(s.svc.ChangePassword(ctx, u.ID, ChangePasswordParams{Current: "Secret123", New: "abc", Confirm: "abc"}), ErrNewPasswordTooShort)
	s.ErrorIs(s.svc.ChangePassword(ctx, u.ID, ChangePasswordParams{Current: "Secret123", New: "Secret123", Confirm: "Secret123"}), ErrPasswordUnchanged)
	s.ErrorIs(s.svc.ChangePassword(ctx, u.ID, ChangePasswordParams{Current: "nope123", New: "fresh1", Confirm: "fresh1"}), ErrWrongPassword)

	s.Require().NoError(s.svc.ChangePassword(ctx, u.ID, ChangePasswordParams{Current: "Secret123", New: "fresh1", Confirm: "fresh1"}))
	_, err := s.svc.Login(ctx, "ana@example.com", "fresh1")
	s.NoError(err)
}

func (s *ServiceSuite) TestProfile() {
	u := s.register()

	profile, err := s.svc.GetProfile(context.Background(), u.ID)
	s.Require().NoError(err)
	s.Equal("Ana", profile.Name)
	s.True(profile.Stats.Balance.Equal(decimal.NewFromInt(60)))

	_, err = s.svc.UpdateProfile(context.Background(), u.ID, UpdateProfileParams{})
	s.ErrorIs(err, ErrNothingToUpdate)

	updated, err := s.svc.UpdateProfile(context.Background(), u.ID, UpdateProfileParams{Email: "NEW@example.com"})
	s.Require().NoError(err)
	s.Equal("new@example.com", updated.Email)
	s.Equal("Ana", updated.Name)
}

func (s *ServiceSuite) TestUpdateProfile_EmailInUse() {
	u := s.register()
	_, err := s.svc.Register(context.Background(), RegisterParams{Name: "Bo", Email: "bo@example.com", Password: "Secret123"})
	s.Require().NoError(err)

	_, err = s.svc.UpdateProfile(context.Background(), u.ID, UpdateProfileParams{Email: "bo@example.com"})
	s.ErrorIs(err, ErrEmailInUse)
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func TestChangePasswordParams_Order(t *testing.T) {
	err := ChangePasswordParams{Current: "x", New: "y", Confirm: "z"}.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPasswordMismatch)
}

func TestPasswordParams_ByteLimit(t *testing.T) {
	atLimit := "A1" + strings.Repeat("a", MaxPasswordBytes-2)
	overLimit := atLimit + "b"
	// 24 three-byte runes plus "A1" is 74 bytes in 26 characters.
	multiByte := "A1" + strings.Repeat("€", 24)

	tests := []struct {
		name    string
		params  interface{ Validate() error }
		wantErr error
	}{
		{"register at limit", RegisterParams{Name: "Ana", Email: "ana@example.com", Password: atLimit}, nil},
		{"register over limit", RegisterParams{Name: "Ana", Email: "ana@example.com", Password: overLimit}, ErrPasswordTooLong},
		{"register multibyte over limit", RegisterParams{Name: "Ana", Email: "ana@example.com", Password: multiByte}, ErrPasswordTooLong},
		{"change at limit", ChangePasswordParams{Current: "Secret123", New: atLimit, Confirm: atLimit}, nil},
		{"change over limit", ChangePasswordParams{Current: "Secret123", New: overLimit, Confirm: overLimit}, ErrPasswordTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
