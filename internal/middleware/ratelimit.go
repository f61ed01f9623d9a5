// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"context"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Limiter decides whether the client identified by key may make another
// attempt. When it may not, retryAfter says how long to wait.
type Limiter interface {
	Allow(ctx context.Context, key string) (ok bool, retryAfter time.Duration, err error)
}

// RateLimit throttles requests per client IP. A limiter error lets the
// request through; an unavailable backend must not lock everyone out.
func RateLimit(l Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, retryAfter, err := l.Allow(r.Context(), clientIP(r))
			if err != nil {
				slog.Warn("rate limiter unavailable", "error", err)
				ok = true
			}
			if !ok {
				secs := max(1, int(math.Ceil(retryAfter.Seconds())))
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				writeError(w, http.StatusTooManyRequests, "too many attempts, try again later")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WindowLimiter is an in-process sliding-window Limiter. It suits a single
// instance and tests; replicas need a shared limiter.
type WindowLimiter struct {
	mu      sync.Mutex
	clients map[string][]time.Time
	limit   int
	window  time.Duration
	now     func() time.Time
	stopCh  chan struct{}
}

// NewWindowLimiter allows limit attempts per key within any window. A
// background goroutine drops idle keys until Stop is called.
func NewWindowLimiter(limit int, window time.Duration) *WindowLimiter {
	wl := &WindowLimiter{
		clients: make(map[string][]time.Time),
		limit:   limit,
		window:  window,
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}

	go func() {
		ticker := time.NewTicker(max(window, time.Minute))
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				wl.cleanup()
			case <-wl.stopCh:
				return
			}
		}
	}()

	return wl
}

// Stop terminates the background cleanup goroutine.
func (wl *WindowLimiter) Stop() {
	close(wl.stopCh)
}

// Allow records an attempt for key unless the window is already full.
func (wl *WindowLimiter) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	now := wl.now()

	wl.mu.Lock()
	defer wl.mu.Unlock()

	recent := prune(wl.clients[key], now.Add(-wl.window))
	if len(recent) >= wl.limit {
		wl.clients[key] = recent
		return false, recent[0].Add(wl.window).Sub(now), nil
	}
	wl.clients[key] = append(recent, now)
	return true, 0, nil
}

// prune drops timestamps at or before cutoff. Timestamps are ascending.
func prune(ts []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(ts) && !ts[i].After(cutoff) {
		i++
	}
	return ts[i:]
}

// cleanup removes keys with no attempt inside the window.
func (wl *WindowLimiter) cleanup() {
	cutoff := wl.now().Add(-wl.window)

	wl.mu.Lock()
	defer wl.mu.Unlock()

	for key, ts := range wl.clients {
		if len(prune(ts, cutoff)) == 0 {
			delete(wl.clients, key)
		}
	}
}

// clientIP extracts the client's IP address, preferring the proxy headers.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
