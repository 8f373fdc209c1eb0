package httpmiddleware

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RejectObserver is told about every request turned away by the limiter.
type RejectObserver interface {
	ObserveRateLimited(group string)
}

// LimiterOption configures a Limiter.
type LimiterOption func(*Limiter)

// WithExempt lets the given paths through without spending a token.
func WithExempt(paths ...string) LimiterOption {
	return func(l *Limiter) {
		for _, p := range paths {
			l.exempt[p] = true
		}
	}
}

// WithRejectObserver reports rejections to o.
func WithRejectObserver(o RejectObserver) LimiterOption {
	return func(l *Limiter) { l.observer = o }
}

// Limiter is a per-client token bucket. Each client gets one bucket per
// route group, so queued bulk jobs under /v1 never eat the budget of the
// dashboard reads under /api.
type Limiter struct {
	perMinute float64
	burst     float64
	now       func() time.Time
	exempt    map[string]bool
	observer  RejectObserver

	mu      sync.Mutex
	buckets map[bucketKey]*bucket
}

type bucketKey struct {
	client string
	group  string
}

type bucket struct {
	tokens float64
	seen   time.Time
}

// NewLimiter allows perMinute requests per client and group, with bursts of
// the same size. perMinute <= 0 disables limiting.
func NewLimiter(perMinute int, opts ...LimiterOption) *Limiter {
	l := &Limiter{
		perMinute: float64(perMinute),
		burst:     float64(perMinute),
		now:       time.Now,
		exempt:    make(map[string]bool),
		buckets:   make(map[bucketKey]*bucket),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// RouteGroup names the bucket family a path belongs to: "api", "v1" or "other".
func RouteGroup(path string) string {
	switch {
	case path == "/api" || strings.HasPrefix(path, "/api/"):
		return "api"
	case path == "/v1" || strings.HasPrefix(path, "/v1/"):
		return "v1"
	default:
		return "other"
	}
}

// Middleware enforces the limit and answers 429 with the API's message shape.
func (l *Limiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if l.perMinute <= 0 || l.exempt[path] {
			c.Next()
			return
		}
		client := c.ClientIP()
		if client == "" {
			client = "unknown"
		}
		group := RouteGroup(path)
		if !l.take(bucketKey{client: client, group: group}) {
			if l.observer != nil {
				l.observer.ObserveRateLimited(group)
			}
			c.Header("Retry-After", "60")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"message": "Rate limit exceeded"})
			return
		}
		c.Next()
	}
}

// take refills the bucket for the time since it was last seen and spends
// one token if a whole one is available.
func (l *Limiter) take(key bucketKey) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	b, found := l.buckets[key]
	if !found {
		b = &bucket{tokens: l.burst, seen: now}
		l.buckets[key] = b
	}
	b.tokens = min(l.burst, b.tokens+now.Sub(b.seen).Minutes()*l.perMinute)
	b.seen = now
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// Prune drops buckets untouched for longer than idle and returns how many
// were removed.
func (l *Limiter) Prune(idle time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := l.now().Add(-idle)
	n := 0
	for key, b := range l.buckets {
		if b.seen.Before(cutoff) {
			delete(l.buckets, key)
			n++
		}
	}
	return n
}
