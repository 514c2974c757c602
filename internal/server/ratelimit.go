package server

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter applies a token bucket per client plus daily request and
// upload volume quotas.
type RateLimiter struct {
	mu sync.Mutex

	requestsPerMinute int
	burst             int
	maxRequestsPerDay int
	maxDataPerDay     int64 // bytes

	clients map[string]*clientUsage
	now     func() time.Time
}

type clientUsage struct {
	limiter       *rate.Limiter
	requestsToday int
	dataToday     int64
	day           time.Time
}

// Usage is a snapshot of one client's daily consumption.
type Usage struct {
	RequestsToday int
	DataToday     int64
}

// NewRateLimiter creates a rate limiter. Zero disables the matching limit;
// burst defaults to the per-minute rate.
func NewRateLimiter(requestsPerMinute, burst, maxRequestsPerDay int, maxDataPerDay int64) *RateLimiter {
	if burst <= 0 {
		burst = requestsPerMinute
	}
	return &RateLimiter{
		requestsPerMinute: requestsPerMinute,
		burst:             burst,
		maxRequestsPerDay: maxRequestsPerDay,
		maxDataPerDay:     maxDataPerDay,
		clients:           make(map[string]*clientUsage),
		now:               time.Now,
	}
}

// CheckRateLimit admits or rejects one request of dataSize bytes from clientID.
func (rl *RateLimiter) CheckRateLimit(clientID string, dataSize int64) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	u := rl.usage(clientID, now)
	if day := startOfDay(now); !day.Equal(u.day) {
		u.requestsToday, u.dataToday, u.day = 0, 0, day
	}

	if err := rl.checkDailyQuotas(u, dataSize, now); err != nil {
		return err
	}
	if u.limiter != nil && !u.limiter.AllowN(now, 1) {
		return &RateLimitError{
			Type:       "minute",
			Limit:      rl.requestsPerMinute,
			RetryAfter: time.Minute / time.Duration(rl.requestsPerMinute),
		}
	}

	u.requestsToday++
	u.dataToday += dataSize
	return nil
}

func (rl *RateLimiter) checkDailyQuotas(u *clientUsage, dataSize int64, now time.Time) error {
	resets := startOfDay(now).AddDate(0, 0, 1)
	if rl.maxRequestsPerDay > 0 && u.requestsToday >= rl.maxRequestsPerDay {
		return &QuotaExceededError{
			Type:   "requests",
			Limit:  int64(rl.maxRequestsPerDay),
			Used:   int64(u.requestsToday),
			Resets: resets,
		}
	}
	if rl.maxDataPerDay > 0 && u.dataToday+dataSize > rl.maxDataPerDay {
		return &QuotaExceededError{
			Type:   "data",
			Limit:  rl.maxDataPerDay,
			Used:   u.dataToday,
			Resets: resets,
		}
	}
	return nil
}

func (rl *RateLimiter) usage(clientID string, now time.Time) *clientUsage {
	u, ok := rl.clients[clientID]
	if !ok {
		u = &clientUsage{day: startOfDay(now)}
		if rl.requestsPerMinute > 0 {
			u.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(rl.requestsPerMinute)), rl.burst)
		}
		rl.clients[clientID] = u
	}
	return u
}

// GetUsage returns current usage statistics for a client.
func (rl *RateLimiter) GetUsage(clientID string) Usage {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if u, ok := rl.clients[clientID]; ok {
		return Usage{RequestsToday: u.requestsToday, DataToday: u.dataToday}
	}
	return Usage{}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// RateLimitError represents a rate limit violation.
type RateLimitError struct {
	Type       string
	Limit      int
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s (limit: %d, retry after: %v)", e.Type, e.Limit, e.RetryAfter)
}

// QuotaExceededError represents a daily quota violation.
type QuotaExceededError struct {
	Type   string // "requests" or "data"
	Limit  int64
	Used   int64
	Resets time.Time
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("quota exceeded for %s (used: %d, limit: %d, resets: %s)",
		e.Type, e.Used, e.Limit, e.Resets.Format(time.RFC3339))
}
