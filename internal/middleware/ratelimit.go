package middleware

import (
	"net/http"
	"strings"
	"sync"
	"time"
)

// FixedWindowLimiter counts requests per (client key, 1-minute window start).
// It is per-process and best-effort: counts reset on restart and are not shared
// across instances. Constructed once in main and injected into the router.
type FixedWindowLimiter struct {
	mu     sync.Mutex
	counts map[string]windowEntry
	now    func() time.Time
}

type windowEntry struct {
	count       int
	windowStart int64 // unix seconds, aligned to the minute
}

const windowSeconds = 60

func NewFixedWindowLimiter() *FixedWindowLimiter {
	return &FixedWindowLimiter{
		counts: make(map[string]windowEntry),
		now:    time.Now,
	}
}

// WithClock overrides the time source. Test hook.
func (l *FixedWindowLimiter) WithClock(now func() time.Time) *FixedWindowLimiter {
	l.now = now
	return l
}

// Allow increments the counter for key in the current window and reports
// whether the request stays within limit. Expired windows are swept on each
// call rather than by a background goroutine.
func (l *FixedWindowLimiter) Allow(key string, limit int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now().Unix()
	windowStart := now - now%windowSeconds

	for k, e := range l.counts {
		if e.windowStart+2*windowSeconds < now {
			delete(l.counts, k)
		}
	}

	e := l.counts[key]
	if e.windowStart != windowStart {
		e = windowEntry{windowStart: windowStart}
	}
	e.count++
	l.counts[key] = e

	return e.count <= limit
}

// ClientKey resolves the client identifier for rate limiting. Spoofable
// headers win over RemoteAddr so deployments behind a proxy keep working.
func ClientKey(r *http.Request) string {
	if ip := r.Header.Get("CF-Connecting-IP"); ip != "" {
		return ip
	}
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		if i := strings.IndexByte(ip, ','); i > 0 {
			return strings.TrimSpace(ip[:i])
		}
		return ip
	}
	host := r.RemoteAddr
	if i := strings.LastIndexByte(host, ':'); i > 0 {
		host = host[:i]
	}
	if host == "" {
		return "unknown"
	}
	return host
}

// RateLimit enforces requestsPerMinute on the wrapped handler. The counter
// key includes the request path so each endpoint gets its own threshold.
func RateLimit(l *FixedWindowLimiter, requestsPerMinute int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow(ClientKey(r)+":"+r.URL.Path, requestsPerMinute) {
				WriteError(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.", "")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
