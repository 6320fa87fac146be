package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

const (
	OTPLength = 6
	OTPTTL    = 10 * time.Minute
	// OTPMaxAttempts wrong codes clear a pending OTP.
	OTPMaxAttempts = 5
)

var otpSpan = big.NewInt(900000)

// GenerateOTP returns a 6-digit numeric code in [100000, 999999].
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, otpSpan)
	if err != nil {
		return "", fmt.Errorf("failed to generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// OTPGenerator adapts GenerateOTP to an interface value.
type OTPGenerator struct{}

func (OTPGenerator) Generate() (string, error) {
	return GenerateOTP()
}
