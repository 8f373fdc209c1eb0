package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() { gin.SetMode(gin.TestMode) }

type rejections struct {
	mu     sync.Mutex
	groups []string
}

func (r *rejections) ObserveRateLimited(group string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.groups = append(r.groups, group)
}

func limitedRouter(l *Limiter) *gin.Engine {
	r := gin.New()
	r.Use(l.Middleware())
	noContent := func(c *gin.Context) { c.Status(http.StatusNoContent) }
	r.GET("/api/*path", noContent)
	r.POST("/v1/attendance/bulk", noContent)
	r.GET("/healthz", noContent)
	return r
}

func hit(r *gin.Engine, method, path string) int {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w.Code
}

func TestLimiterRefills(t *testing.T) {
	now := time.Date(2025, 2, 10, 9, 0, 0, 0, time.UTC)
	l := NewLimiter(2)
	l.now = func() time.Time { return now }
	a := bucketKey{client: "10.0.0.1", group: "api"}

	assert.True(t, l.take(a))
	assert.True(t, l.take(a))
	assert.False(t, l.take(a))
	assert.True(t, l.take(bucketKey{client: "10.0.0.2", group: "api"}))

	now = now.Add(30 * time.Second)
	assert.True(t, l.take(a))
	assert.False(t, l.take(a))

	now = now.Add(time.Hour)
	assert.True(t, l.take(a))
	assert.True(t, l.take(a))
	assert.False(t, l.take(a))
}

func TestLimiterSeparatesRouteGroups(t *testing.T) {
	obs := &rejections{}
	r := limitedRouter(NewLimiter(1, WithRejectObserver(obs)))

	assert.Equal(t, http.StatusNoContent, hit(r, http.MethodPost, "/v1/attendance/bulk"))
	assert.Equal(t, http.StatusTooManyRequests, hit(r, http.MethodPost, "/v1/attendance/bulk"))

	assert.Equal(t, http.StatusNoContent, hit(r, http.MethodGet, "/api/dashboard/stats"))
	assert.Equal(t, http.StatusTooManyRequests, hit(r, http.MethodGet, "/api/users"))

	assert.Equal(t, []string{"v1", "api"}, obs.groups)
}

func TestLimiterRejectionBody(t *testing.T) {
	r := limitedRouter(NewLimiter(1))
	hit(r, http.MethodGet, "/api/users")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/users", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"message":"Rate limit exceeded"}`, w.Body.String())
}

func TestLimiterExemptPaths(t *testing.T) {
	r := limitedRouter(NewLimiter(1, WithExempt("/healthz")))
	for range 3 {
		require.Equal(t, http.StatusNoContent, hit(r, http.MethodGet, "/healthz"))
	}
	assert.Equal(t, http.StatusNoContent, hit(r, http.MethodGet, "/api/users"))
}

func TestZeroRateDisablesLimit(t *testing.T) {
	r := limitedRouter(NewLimiter(0))
	for range 3 {
		require.Equal(t, http.StatusNoContent, hit(r, http.MethodGet, "/api/users"))
	}
}

func TestRouteGroup(t *testing.T) {
	assert.Equal(t, "api", RouteGroup("/api/users"))
	assert.Equal(t, "v1", RouteGroup("/v1/jobs/1"))
	assert.Equal(t, "other", RouteGroup("/apiary"))
	assert.Equal(t, "other", RouteGroup("/healthz"))
}

func TestLimiterPrune(t *testing.T) {
	now := time.Date(2025, 2, 10, 9, 0, 0, 0, time.UTC)
	l := NewLimiter(5)
	l.now = func() time.Time { return now }
	l.take(bucketKey{client: "a", group: "api"})
	now = now.Add(time.Hour)
	l.take(bucketKey{client: "b", group: "api"})

	assert.Equal(t, 1, l.Prune(10*time.Minute))
	assert.Len(t, l.buckets, 1)
}

type seen struct {
	mu    sync.Mutex
	calls []string
}

func (s *seen) ObserveHTTP(method, route string, status int, _ time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, method+" "+route+" "+http.StatusText(status))
}

func TestObserveAndHeaders(t *testing.T) {
	obs := &seen{}
	r := gin.New()
	r.Use(Observe(obs), SecurityHeaders())
	r.GET("/items/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/items/7", nil))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, []string{"GET /items/:id OK", "GET unmatched Not Found"}, obs.calls)
}
