// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"masterannonce/internal/apierror"
)

// limiterEntry holds the attempt budget of one client for the current
// window. The bucket never refills; a new window gets a new bucket.
type limiterEntry struct {
	limiter     *rate.Limiter
	windowStart time.Time
}

// RateLimiter provides per-IP fixed-window rate limiting: at most limit
// requests per window, counted from the client's first request in it.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*limiterEntry
	limit   int
	window  time.Duration
	stopCh  chan struct{}
	now     func() time.Time
}

// NewRateLimiter creates a rate limiter that allows limit requests per window.
// It starts a background goroutine to clean up idle entries.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	if limit < 1 {
		limit = 1
	}
	rl := &RateLimiter{
		clients: make(map[string]*limiterEntry),
		limit:   limit,
		window:  window,
		stopCh:  make(chan struct{}),
		now:     time.Now,
	}

	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				rl.cleanup()
			case <-rl.stopCh:
				return
			}
		}
	}()

	return rl
}

// Stop terminates the background cleanup goroutine.
func (rl *RateLimiter) Stop() {
	close(rl.stopCh)
}

// allow checks whether the given key is within the rate limit.
func (rl *RateLimiter) allow(key string) bool {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	return rl.entry(key, now).limiter.AllowN(now, 1)
}

// entry returns the client's bucket, opening a new window when the last
// one has elapsed. Callers hold rl.mu.
func (rl *RateLimiter) entry(key string, now time.Time) *limiterEntry {
	e, ok := rl.clients[key]
	if !ok || now.Sub(e.windowStart) >= rl.window {
		e = &limiterEntry{limiter: rate.NewLimiter(0, rl.limit), windowStart: now}
		rl.clients[key] = e
	}
	return e
}

// resetIn reports how long until the client's window closes.
func (rl *RateLimiter) resetIn(key string) time.Duration {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	e, ok := rl.clients[key]
	if !ok {
		return 0
	}
	return e.windowStart.Add(rl.window).Sub(now)
}

// cleanup drops clients whose window has closed. Their next request opens
// a fresh window anyway.
func (rl *RateLimiter) cleanup() {
	cutoff := rl.now().Add(-rl.window)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for key, e := range rl.clients {
		if !e.windowStart.After(cutoff) {
			delete(rl.clients, key)
		}
	}
}

// Middleware returns an HTTP middleware that rate-limits by client IP.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !rl.allow(ip) {
			w.Header().Set("Retry-After", retryAfter(rl.resetIn(ip)))
			apierror.Write(w, http.StatusTooManyRequests, "", "Too many attempts, please try again later")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func retryAfter(d time.Duration) string {
	secs := int(d.Round(time.Second).Seconds())
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}

// clientIP extracts the client's IP address, checking X-Forwarded-For
// and X-Real-IP headers for proxied requests.
func clientIP(r *http.Request) string {
	// Check X-Forwarded-For first (may contain multiple IPs).
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// The leftmost entry is the original client.
		if idx := strings.IndexByte(xff, ','); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	// Fall back to RemoteAddr (strip port).
	addr := r.RemoteAddr
	if idx := strings.LastIndex(addr, ":"); idx != -1 {
		return addr[:idx]
	}
	return addr
}
