package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRateLimiterWindow(t *testing.T) {
	rl := NewRateLimiter(3, time.Hour)

	require.True(t, rl.Allow("10.0.0.1"))
	require.True(t, rl.Allow("10.0.0.1"))
	require.True(t, rl.Allow("10.0.0.1"))
	require.False(t, rl.Allow("10.0.0.1"))

	// Other clients have their own windows.
	require.True(t, rl.Allow("10.0.0.2"))

	require.Greater(t, rl.RetryAfter("10.0.0.1"), 0)
	require.Equal(t, 0, rl.RetryAfter("unseen"))
}

func TestRateLimiterWindowReopens(t *testing.T) {
	rl := NewRateLimiter(1, 20*time.Millisecond)

	require.True(t, rl.Allow("c"))
	require.False(t, rl.Allow("c"))

	time.Sleep(30 * time.Millisecond)
	require.True(t, rl.Allow("c"))
}

func TestRateLimitMiddleware(t *testing.T) {
	rl := NewRateLimiter(1, time.Hour)
	handler := RateLimitMiddleware(rl, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	req.RemoteAddr = "192.0.2.1:54321"

	rec := httptest.NewRecorder()
	handler(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler(rec, req)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestClientKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:54321"
	require.Equal(t, "192.0.2.1", clientKey(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	require.Equal(t, "203.0.113.9", clientKey(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	require.Equal(t, "203.0.113.9", clientKey(req))
}
