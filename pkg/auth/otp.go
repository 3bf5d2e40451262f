package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const DefaultOTPLength = 6

// GenerateOTP produces a numeric one-time password of the given length.
// Digits come from crypto/rand; leading zeros are allowed.
func GenerateOTP(length int) (string, error) {
	if length <= 0 {
		length = DefaultOTPLength
	}

	digits := make([]byte, length)
	for i := range digits {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", fmt.Errorf("failed to generate otp: %w", err)
		}
		digits[i] = byte('0' + n.Int64())
	}

	return string(digits), nil
}

// HashOTP stores only the bcrypt hash of a code, never the code itself
func HashOTP(otp string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(otp), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash otp: %w", err)
	}
	return string(hashed), nil
}

// CompareOTP runs the fixed-cost comparison against a stored hash
func CompareOTP(hashedOTP, otp string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedOTP), []byte(otp))
}

// ExpiryTime returns the cutoff after which a freshly issued code is dead
func ExpiryTime(ttl time.Duration) time.Time {
	return time.Now().Add(ttl)
}
