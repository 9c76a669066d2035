package httpmiddleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimitConfig configures the sliding window rate limiter.
type RateLimitConfig struct {
	// Max is the number of requests allowed per key per window.
	Max int
	// Window is the length of one window.
	Window time.Duration
	// KeyFunc extracts the limiter key from a request. Defaults to ClientIP.
	KeyFunc func(*http.Request) string
}

// window holds counts for the current and previous fixed windows of a key.
type window struct {
	start time.Time
	prev  float64
	curr  float64
}

// Limiter approximates a sliding window by weighting the previous fixed
// window with its remaining overlap.
type Limiter struct {
	cfg RateLimitConfig

	mu   sync.Mutex
	keys map[string]*window
	now  func() time.Time
}

// NewLimiter creates a limiter for cfg.
func NewLimiter(cfg RateLimitConfig) *Limiter {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = ClientIP
	}
	return &Limiter{
		cfg:  cfg,
		keys: make(map[string]*window),
		now:  time.Now,
	}
}

// Allow registers a hit for key and reports whether it fits in the limit,
// the hits left and the end of the current window.
func (l *Limiter) Allow(key string) (allowed bool, remaining int, reset time.Time) {
	now := l.now()
	start := now.Truncate(l.cfg.Window)

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.keys[key]
	switch {
	case !ok:
		w = &window{start: start}
		l.keys[key] = w
	case start.Sub(w.start) == l.cfg.Window:
		w.prev, w.curr, w.start = w.curr, 0, start
	case start.After(w.start):
		w.prev, w.curr, w.start = 0, 0, start
	}

	reset = w.start.Add(l.cfg.Window)
	overlap := 1 - float64(now.Sub(w.start))/float64(l.cfg.Window)
	used := w.prev*overlap + w.curr
	if used >= float64(l.cfg.Max) {
		return false, 0, reset
	}
	w.curr++
	remaining = max(int(float64(l.cfg.Max)-used-1), 0)
	return true, remaining, reset
}

// Sweep drops keys that have not been hit for two windows.
func (l *Limiter) Sweep() {
	cutoff := l.now().Add(-2 * l.cfg.Window)

	l.mu.Lock()
	defer l.mu.Unlock()
	for key, w := range l.keys {
		if w.start.Before(cutoff) {
			delete(l.keys, key)
		}
	}
}

// Run sweeps stale keys every other window until ctx is done.
func (l *Limiter) Run(ctx context.Context) {
	ticker := time.NewTicker(2 * l.cfg.Window)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Sweep()
		}
	}
}

// Middleware rejects requests over the limit with 429 Too Many Requests.
// Every response carries X-RateLimit-Limit, X-RateLimit-Remaining and
// X-RateLimit-Reset headers.
func (l *Limiter) Middleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, remaining, reset := l.Allow(l.cfg.KeyFunc(r))

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(l.cfg.Max))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))
			if !allowed {
				wait := max(reset.Sub(l.now()), 0)
				h.Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimit returns a rate limiting middleware without background sweeping.
func RateLimit(cfg RateLimitConfig) Middleware {
	return NewLimiter(cfg).Middleware()
}

// RateLimitWithCleanup is RateLimit with stale keys swept until ctx is done.
func RateLimitWithCleanup(ctx context.Context, cfg RateLimitConfig) Middleware {
	l := NewLimiter(cfg)
	go l.Run(ctx)
	return l.Middleware()
}

// ClientIP returns the first X-Forwarded-For hop, then X-Real-IP, then the
// host part of RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
