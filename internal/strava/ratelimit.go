package strava

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Strava rate limits:
// - 100 requests per 15 minutes
// - 1000 requests per day
// A sync run issues at most a few requests, so the limiter only spaces
// requests out and tracks the usage reported by response headers.

// RateLimiter tracks Strava API rate limit usage.
type RateLimiter struct {
	mu sync.Mutex

	shortUsage int
	dailyUsage int

	// Minimum interval between requests
	minInterval time.Duration
	lastRequest time.Time
}

// NewRateLimiter creates a rate limiter with Strava's limits.
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		minInterval: 150 * time.Millisecond,
	}
}

// Wait blocks until the minimum request spacing has elapsed.
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	elapsed := time.Since(r.lastRequest)
	r.mu.Unlock()

	if elapsed < r.minInterval {
		select {
		case <-time.After(r.minInterval - elapsed):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	r.mu.Lock()
	r.lastRequest = time.Now()
	r.mu.Unlock()
	return nil
}

// UpdateFromHeaders updates usage from Strava response headers.
// Strava returns X-RateLimit-Usage: "34,512" (15-minute, daily).
func (r *RateLimiter) UpdateFromHeaders(h http.Header) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if usage := h.Get("X-RateLimit-Usage"); usage != "" {
		parts := strings.Split(usage, ",")
		if len(parts) >= 2 {
			if short, err := strconv.Atoi(parts[0]); err == nil {
				r.shortUsage = short
			}
			if daily, err := strconv.Atoi(parts[1]); err == nil {
				r.dailyUsage = daily
			}
		}
	}
}

// Usage returns current usage counts
func (r *RateLimiter) Usage() (shortUsage, dailyUsage int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.shortUsage, r.dailyUsage
}
