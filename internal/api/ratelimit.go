// Per-client rate limiting for the observation API. In-memory fixed
// window per remote address; plenty for a single-process habitat.
package api

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimiter tracks request counts per client within a fixed window.
type RateLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	maxRate int
	length  time.Duration
}

type window struct {
	remaining int
	openedAt  time.Time
}

// NewRateLimiter allows maxRate requests per client per window.
func NewRateLimiter(maxRate int, length time.Duration) *RateLimiter {
	rl := &RateLimiter{
		windows: make(map[string]*window),
		maxRate: maxRate,
		length:  length,
	}
	go rl.reapLoop()
	return rl
}

// Allow consumes one request slot for the client if available.
func (rl *RateLimiter) Allow(client string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	w, ok := rl.windows[client]
	if !ok || now.Sub(w.openedAt) >= rl.length {
		rl.windows[client] = &window{remaining: rl.maxRate - 1, openedAt: now}
		return true
	}
	if w.remaining > 0 {
		w.remaining--
		return true
	}
	return false
}

// RetryAfter returns whole seconds until the client's window reopens.
func (rl *RateLimiter) RetryAfter(client string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	w, ok := rl.windows[client]
	if !ok {
		return 0
	}
	left := rl.length - time.Since(w.openedAt)
	if left <= 0 {
		return 0
	}
	return int(left.Seconds()) + 1
}

func (rl *RateLimiter) reapLoop() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		rl.mu.Lock()
		cutoff := time.Now().Add(-2 * rl.length)
		for client, w := range rl.windows {
			if w.openedAt.Before(cutoff) {
				delete(rl.windows, client)
			}
		}
		rl.mu.Unlock()
	}
}

// RateLimitMiddleware wraps a handler, returning 429 when a client
// exceeds its window.
func RateLimitMiddleware(rl *RateLimiter, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		client := clientKey(r)
		if !rl.Allow(client) {
			w.Header().Set("Retry-After", strconv.Itoa(rl.RetryAfter(client)))
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next(w, r)
	}
}

// clientKey identifies the caller: first X-Forwarded-For hop when
// proxied, otherwise the remote address without its port.
func clientKey(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.IndexByte(xff, ','); idx >= 0 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}
	host := r.RemoteAddr
	if idx := strings.LastIndexByte(host, ':'); idx >= 0 {
		host = host[:idx]
	}
	return host
}
