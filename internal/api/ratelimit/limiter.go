// Package ratelimit throttles API clients by IP.
package ratelimit

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

const DefaultWindow = time.Minute

type ipBucket struct {
	count     int
	resetTime time.Time
}

// IPLimiter is a fixed-window request counter per client IP.
type IPLimiter struct {
	mu      sync.Mutex
	buckets map[string]*ipBucket
	limit   int
	window  time.Duration
	now     func() time.Time
}

// NewIPLimiter allows limit requests per window for each IP.
func NewIPLimiter(limit int, window time.Duration) *IPLimiter {
	if window <= 0 {
		window = DefaultWindow
	}
	return &IPLimiter{
		buckets: make(map[string]*ipBucket),
		limit:   limit,
		window:  window,
		now:     time.Now,
	}
}

// Middleware rejects requests over the limit with 429 and a Retry-After.
func (l *IPLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ok, retryAfter := l.Allow(c.RealIP())
			if !ok {
				c.Response().Header().Set("Retry-After", retryAfterSeconds(retryAfter))
				return echo.NewHTTPError(http.StatusTooManyRequests, "too many requests, please try again later")
			}
			return next(c)
		}
	}
}

// Allow counts a request from ip. When refused it also reports how long
// until the window resets.
func (l *IPLimiter) Allow(ip string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	bucket, exists := l.buckets[ip]
	if !exists || now.After(bucket.resetTime) {
		l.buckets[ip] = &ipBucket{count: 1, resetTime: now.Add(l.window)}
		return true, 0
	}

	if bucket.count >= l.limit {
		return false, bucket.resetTime.Sub(now)
	}
	bucket.count++
	return true, 0
}

// Cleanup drops expired buckets.
func (l *IPLimiter) Cleanup() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for ip, bucket := range l.buckets {
		if now.After(bucket.resetTime) {
			delete(l.buckets, ip)
			removed++
		}
	}
	return removed
}

// StartCleanup drops expired buckets every interval until ctx is done.
func (l *IPLimiter) StartCleanup(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.Cleanup()
			}
		}
	}()
}

func retryAfterSeconds(d time.Duration) string {
	secs := int(d.Round(time.Second) / time.Second)
	return strconv.Itoa(max(secs, 1))
}
