package server

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter(rpm, burst, perDay int, data int64) (*RateLimiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)}
	rl := NewRateLimiter(rpm, burst, perDay, data)
	rl.now = clock.now
	return rl, clock
}

func TestRateLimiter_Burst(t *testing.T) {
	rl, clock := newTestLimiter(60, 2, 0, 0)

	require.NoError(t, rl.CheckRateLimit("a", 0))
	require.NoError(t, rl.CheckRateLimit("a", 0))

	err := rl.CheckRateLimit("a", 0)
	var rle *RateLimitError
	require.ErrorAs(t, err, &rle)
	assert.Equal(t, "minute", rle.Type)
	assert.Equal(t, 60, rle.Limit)
	assert.Equal(t, time.Second, rle.RetryAfter)

	// other clients have their own bucket
	require.NoError(t, rl.CheckRateLimit("b", 0))

	clock.advance(time.Second)
	require.NoError(t, rl.CheckRateLimit("a", 0))
	assert.Equal(t, 3, rl.GetUsage("a").RequestsToday)
}

func TestRateLimiter_DailyRequests(t *testing.T) {
	rl, clock := newTestLimiter(0, 0, 2, 0)

	require.NoError(t, rl.CheckRateLimit("a", 0))
	require.NoError(t, rl.CheckRateLimit("a", 0))

	err := rl.CheckRateLimit("a", 0)
	var qe *QuotaExceededError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, "requests", qe.Type)
	assert.Equal(t, int64(2), qe.Used)
	assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), qe.Resets)

	clock.advance(14 * time.Hour)
	require.NoError(t, rl.CheckRateLimit("a", 0))
	assert.Equal(t, 1, rl.GetUsage("a").RequestsToday)
}

func TestRateLimiter_DataQuota(t *testing.T) {
	rl, _ := newTestLimiter(0, 0, 0, 100)

	require.NoError(t, rl.CheckRateLimit("a", 60))
	err := rl.CheckRateLimit("a", 60)
	var qe *QuotaExceededError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, "data", qe.Type)
	assert.Equal(t, int64(60), qe.Used)

	require.NoError(t, rl.CheckRateLimit("a", 40))
	assert.Equal(t, Usage{RequestsToday: 2, DataToday: 100}, rl.GetUsage("a"))
	assert.Equal(t, Usage{}, rl.GetUsage("unknown"))
}

func TestRateLimitMiddleware(t *testing.T) {
	ts := newTestServer(t, nil, nil, func(c *Config) {
		c.RateLimit = RateLimitConfig{Enabled: true, RequestsPerMinute: 1, Burst: 1}
	})
	h := ts.s.Handler()

	w := httptest.NewRecorder()
	h.ServeHTTP(w, uploadRequest(t, "file", "scan.png", "image/png", ts.pngFixture(t)))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = httptest.NewRecorder()
	h.ServeHTTP(w, uploadRequest(t, "file", "scan.png", "image/png", ts.pngFixture(t)))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "minute", w.Header().Get("X-RateLimit-Type"))
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	resp := decodeResponse(t, w)
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", resp.Error.Code)
	assert.Len(t, ts.engine.Calls(), 1)

	// health is not rate limited
	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandleRateLimitError_Quota(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/process", nil)
	ts.s.handleRateLimitError(w, r, &QuotaExceededError{Type: "data", Limit: 10, Used: 8, Resets: time.Now()})

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "data", w.Header().Get("X-Quota-Type"))
	assert.Equal(t, "10", w.Header().Get("X-Quota-Limit"))
	assert.Equal(t, "8", w.Header().Get("X-Quota-Used"))
	assert.Equal(t, "QUOTA_EXCEEDED", decodeResponse(t, w).Error.Code)

	w = httptest.NewRecorder()
	ts.s.handleRateLimitError(w, r, errors.New("store offline"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded chain", map[string]string{"X-Forwarded-For": "10.0.0.1, 10.0.0.2"}, "192.0.2.1:1234", "10.0.0.1"},
		{"forwarded single", map[string]string{"X-Forwarded-For": " 10.0.0.3 "}, "192.0.2.1:1234", "10.0.0.3"},
		{"real ip", map[string]string{"X-Real-IP": "10.0.0.4"}, "192.0.2.1:1234", "10.0.0.4"},
		{"remote addr", nil, "192.0.2.1:1234", "192.0.2.1"},
		{"remote without port", nil, "192.0.2.9", "192.0.2.9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, getClientIP(r))
		})
	}
}
