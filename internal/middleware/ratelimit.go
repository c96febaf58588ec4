// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// attempts counts failures for one client inside a fixed window.
type attempts struct {
	start time.Time
	count int
}

// RateLimiter throttles failed login attempts per client IP. Only POSTs
// answered with a 4xx count against the limit; a successful sign-in clears
// the client's record. Once limit failures land inside one window, further
// POSTs are refused with 429 until the window ends.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*attempts
	limit   int
	window  time.Duration
	now     func() time.Time

	stopCh chan struct{}
	once   sync.Once
}

// NewRateLimiter creates a limiter allowing limit failures per window. It
// starts a goroutine that forgets idle clients; call Stop to end it.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		clients: make(map[string]*attempts),
		limit:   limit,
		window:  window,
		now:     time.Now,
		stopCh:  make(chan struct{}),
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

// Stop terminates the background cleanup goroutine. Safe to call twice.
func (rl *RateLimiter) Stop() {
	rl.once.Do(func() { close(rl.stopCh) })
}

// current returns key's record for the running window, or nil.
// Must be called with mu held.
func (rl *RateLimiter) current(key string) *attempts {
	a, ok := rl.clients[key]
	if !ok {
		return nil
	}
	if rl.now().Sub(a.start) >= rl.window {
		delete(rl.clients, key)
		return nil
	}
	return a
}

// blocked reports whether key used up its failures, and for how long.
func (rl *RateLimiter) blocked(key string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	a := rl.current(key)
	if a == nil || a.count < rl.limit {
		return false, 0
	}
	return true, rl.window - rl.now().Sub(a.start)
}

func (rl *RateLimiter) fail(key string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	a := rl.current(key)
	if a == nil {
		a = &attempts{start: rl.now()}
		rl.clients[key] = a
	}
	a.count++
}

func (rl *RateLimiter) reset(key string) {
	rl.mu.Lock()
	delete(rl.clients, key)
	rl.mu.Unlock()
}

// cleanup drops clients whose window has ended.
func (rl *RateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key := range rl.clients {
		rl.current(key)
	}
}

// Middleware rate-limits POSTs by client IP. Other methods pass through so
// the login page itself always renders.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			next.ServeHTTP(w, r)
			return
		}

		ip := clientIP(r)
		if ok, wait := rl.blocked(ip); ok {
			secs := max(1, int(wait.Round(time.Second).Seconds()))
			w.Header().Set("Retry-After", strconv.Itoa(secs))
			http.Error(w, "Too many attempts. Please wait a minute and try again.", http.StatusTooManyRequests)
			return
		}

		rw := &responseWriter{ResponseWriter: w}
		next.ServeHTTP(rw, r)
		switch {
		case rw.statusCode >= 400 && rw.statusCode < 500:
			rl.fail(ip)
		case rw.statusCode < 400:
			rl.reset(ip)
		}
	})
}

// clientIP returns the original client address: the leftmost
// X-Forwarded-For entry, then X-Real-IP, then RemoteAddr without its port.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
