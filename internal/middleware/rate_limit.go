package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"
)

// RateLimitConfig holds per-IP rate limiting configuration
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// LoginRateLimit throttles credential guessing at the transport level, on top
// of the account lockout
func LoginRateLimit() RateLimitConfig {
	return RateLimitConfig{Requests: 5, Window: 1 * time.Minute}
}

// RecoveryRateLimit throttles OTP issuance and consumption
func RecoveryRateLimit() RateLimitConfig {
	return RateLimitConfig{Requests: 3, Window: 1 * time.Minute}
}

// RateLimitByIP limits requests per client IP within the window
func RateLimitByIP(config RateLimitConfig) func(next http.Handler) http.Handler {
	return httprate.Limit(
		config.Requests,
		config.Window,
		httprate.WithKeyByRealIP(),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":"rate_limit_exceeded","message":"Too many requests, slow down"}`))
		}),
	)
}
