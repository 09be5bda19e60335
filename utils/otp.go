// utils/otp.go
package utils

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
)

// signinCodeBytes gives 160 bits of entropy per code, which keeps the
// collision probability across live codes astronomically small.
const signinCodeBytes = 20

// GenerateSigninCode returns a new unpredictable single-use code.
func GenerateSigninCode() (string, error) {
	bytes := make([]byte, signinCodeBytes)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(bytes), nil
}

// ValidateOTPAttempts enforces the per-account OTP submission budget.
// The counter lives in Redis so it survives restarts and is shared across
// instances. A nil client disables throttling.
func ValidateOTPAttempts(accountID string, rdb *redis.Client) error {
	if rdb == nil {
		return nil
	}

	key := "otp_attempts:" + accountID
	attempts, err := rdb.Incr(context.Background(), key).Result()
	if err != nil {
		return err
	}

	// Set expiry if first attempt
	if attempts == 1 {
		rdb.Expire(context.Background(), key, 1*time.Hour)
	}

	// Limit to 5 attempts per hour
	if attempts > 5 {
		return errors.New("too many OTP attempts")
	}

	return nil
}
