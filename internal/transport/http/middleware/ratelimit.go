package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"leaveflow/internal/transport/http/api"
	"leaveflow/internal/transport/http/shared"
)

type RateLimitKeyFunc func(r *http.Request) string

type RateLimitOption func(*rateLimiter)

type rateBucket struct {
	count int
	reset time.Time
}

type rateLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	keyFn   RateLimitKeyFunc
	clients map[string]*rateBucket
}

func WithKeyFunc(fn RateLimitKeyFunc) RateLimitOption {
	return func(rl *rateLimiter) {
		if fn != nil {
			rl.keyFn = fn
		}
	}
}

func RateLimit(limit int, window time.Duration, opts ...RateLimitOption) func(http.Handler) http.Handler {
	rl := newRateLimiter(limit, window, actorOrIPKey)
	for _, opt := range opts {
		opt(rl)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.enforce(w, r) {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SensitiveRateLimit throttles the endpoints that act on a decision more
// tightly than the rest of the API. Decision links are keyed by client IP
// since they may arrive without a bearer credential.
func SensitiveRateLimit(baseLimit int, window time.Duration) func(http.Handler) http.Handler {
	decisionLimit := max(baseLimit/4, 1)
	mutationLimit := max(baseLimit/2, 1)
	decisionsByIP := newRateLimiter(decisionLimit, window, clientIPKey)
	decisionsByActor := newRateLimiter(mutationLimit, window, actorOrIPKey)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch sensitiveRateScope(r) {
			case sensitiveScopeDecisionLink:
				if !decisionsByIP.enforce(w, r) {
					return
				}
			case sensitiveScopeActor:
				if !decisionsByActor.enforce(w, r) {
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func actorOrIPKey(r *http.Request) string {
	if principal, ok := GetPrincipal(r.Context()); ok && principal.Subject != "" {
		return "principal:" + principal.Subject
	}
	return clientIPKey(r)
}

func clientIPKey(r *http.Request) string {
	return shared.ClientIP(r)
}

func newRateLimiter(limit int, window time.Duration, keyFn RateLimitKeyFunc) *rateLimiter {
	if keyFn == nil {
		keyFn = actorOrIPKey
	}
	return &rateLimiter{
		limit:   limit,
		window:  window,
		keyFn:   keyFn,
		clients: map[string]*rateBucket{},
	}
}

// quota is the outcome of counting one request against a key.
type quota struct {
	remaining int
	resetIn   time.Duration
	exceeded  bool
}

func (rl *rateLimiter) take(key string, now time.Time) quota {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if len(rl.clients) >= pruneThreshold {
		rl.pruneLocked(now)
	}
	bucket, ok := rl.clients[key]
	if !ok || !now.Before(bucket.reset) {
		bucket = &rateBucket{reset: now.Add(rl.window)}
		rl.clients[key] = bucket
	}
	bucket.count++
	return quota{
		remaining: max(rl.limit-bucket.count, 0),
		resetIn:   bucket.reset.Sub(now),
		exceeded:  bucket.count > rl.limit,
	}
}

// pruneThreshold bounds how many idle keys accumulate before expired
// buckets are swept.
const pruneThreshold = 4096

func (rl *rateLimiter) pruneLocked(now time.Time) {
	for key, bucket := range rl.clients {
		if !now.Before(bucket.reset) {
			delete(rl.clients, key)
		}
	}
}

func (rl *rateLimiter) enforce(w http.ResponseWriter, r *http.Request) bool {
	if rl.limit <= 0 {
		return true
	}
	key := rl.keyFn(r)
	if key == "" {
		key = clientIPKey(r)
	}
	q := rl.take(key, time.Now())

	resetSec := ceilSeconds(q.resetIn)
	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(rl.limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(q.remaining))
	h.Set("X-RateLimit-Reset", strconv.Itoa(resetSec))
	if !q.exceeded {
		return true
	}

	h.Set("Retry-After", strconv.Itoa(max(resetSec, 1)))
	slog.Warn("rate limit exceeded", "key", key, "method", r.Method, "path", r.URL.Path, "limit", rl.limit)
	api.Fail(w, http.StatusTooManyRequests, "rate_limited", "too many requests")
	return false
}

func ceilSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}

type sensitiveScope string

const (
	sensitiveScopeNone         sensitiveScope = ""
	sensitiveScopeDecisionLink sensitiveScope = "decision-link"
	sensitiveScopeActor        sensitiveScope = "actor"
)

func sensitiveRateScope(r *http.Request) sensitiveScope {
	if r == nil {
		return sensitiveScopeNone
	}
	path := strings.TrimRight(strings.TrimSpace(r.URL.Path), "/")
	if path == "/process-approval" {
		return sensitiveScopeDecisionLink
	}
	if r.Method == http.MethodPost && strings.HasPrefix(path, "/leave-requests/") &&
		(strings.HasSuffix(path, "/approve") || strings.HasSuffix(path, "/reject")) {
		return sensitiveScopeActor
	}
	return sensitiveScopeNone
}
