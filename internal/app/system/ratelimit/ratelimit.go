// Package ratelimit throttles sign-in attempts with fixed windows per key.
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dalemusser/newsdesk/internal/app/system/clock"
)

// Limiter allows up to limit hits per key in each window. Safe for
// concurrent use. Expired windows are dropped lazily on access and by Sweep.
type Limiter struct {
	clock  clock.Clock
	limit  int
	window time.Duration

	mu      sync.Mutex
	windows map[string]*window
}

type window struct {
	count     int
	expiresAt time.Time
}

// New builds a Limiter. A nil clock means the system clock.
func New(limit int, per time.Duration, c clock.Clock) *Limiter {
	if c == nil {
		c = clock.System{}
	}
	return &Limiter{clock: c, limit: limit, window: per, windows: make(map[string]*window)}
}

// Allow records a hit for key and reports whether it is within the limit.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	w, ok := l.windows[key]
	if !ok || now.After(w.expiresAt) {
		l.windows[key] = &window{count: 1, expiresAt: now.Add(l.window)}
		return true
	}
	if w.count >= l.limit {
		return false
	}
	w.count++
	return true
}

// Reset forgets key.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	delete(l.windows, key)
	l.mu.Unlock()
}

// Sweep drops expired windows and returns how many remain.
func (l *Limiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.clock.Now()
	for k, w := range l.windows {
		if now.After(w.expiresAt) {
			delete(l.windows, k)
		}
	}
	return len(l.windows)
}

// ClientIP returns the first X-Forwarded-For address, then X-Real-IP, then
// the host part of RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if ip := strings.TrimSpace(strings.Split(xff, ",")[0]); ip != "" {
			return ip
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// LoginLimiter limits sign-in attempts per client address and per email.
type LoginLimiter struct {
	ip    *Limiter
	email *Limiter
}

// NewLoginLimiter allows 10 attempts per address per minute and 5 per email
// per 5 minutes.
func NewLoginLimiter(c clock.Clock) *LoginLimiter {
	return &LoginLimiter{
		ip:    New(10, time.Minute, c),
		email: New(5, 5*time.Minute, c),
	}
}

// Check records an attempt. When it is refused, reason is a message for the
// user.
func (ll *LoginLimiter) Check(r *http.Request, email string) (ok bool, reason string) {
	if !ll.ip.Allow(ClientIP(r)) {
		return false, "Too many sign-in attempts. Please wait a minute and try again."
	}
	if key := emailKey(email); key != "" && !ll.email.Allow(key) {
		return false, "Too many sign-in attempts for this account. Please wait a few minutes."
	}
	return true, ""
}

// ResetEmail clears the per-email count after a successful sign-in.
func (ll *LoginLimiter) ResetEmail(email string) {
	if key := emailKey(email); key != "" {
		ll.email.Reset(key)
	}
}

// Sweep drops expired windows from both limiters.
func (ll *LoginLimiter) Sweep() {
	ll.ip.Sweep()
	ll.email.Sweep()
}

func emailKey(email string) string { return strings.ToLower(strings.TrimSpace(email)) }
