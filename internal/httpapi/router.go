// Package httpapi exposes the mock API and the bulk attendance jobs over gin.
package httpapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"attendboard/internal/attendance"
	"attendboard/internal/httpmiddleware"
	"attendboard/internal/metrics"
	"attendboard/internal/mockapi"
	"attendboard/internal/model"
	"attendboard/internal/query"
)

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Healthy(ctx context.Context) bool
}

// Deps are the components served by the router. Metrics, Redis, Bulk and
// Limiter are optional; without a Limiter one is built from RateLimitPerMin.
type Deps struct {
	API     *mockapi.Dispatcher
	Client  *query.Client
	Bulk    *attendance.Service
	Metrics *metrics.Metrics
	Redis   Pinger
	Limiter *httpmiddleware.Limiter
	Log     *zap.Logger

	CORSOrigins     []string
	RateLimitPerMin int
	AccessLog       bool
}

type handler struct {
	Deps
}

// NewRouter builds the gin engine.
func NewRouter(d Deps) *gin.Engine {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if len(d.CORSOrigins) == 0 {
		d.CORSOrigins = []string{"*"}
	}
	h := &handler{Deps: d}

	r := gin.New()
	r.Use(gin.Recovery())
	if d.AccessLog {
		r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
			SkipPaths: []string{"/healthz", "/metrics"},
		}))
	}
	if d.Metrics != nil {
		r.Use(httpmiddleware.Observe(d.Metrics))
	}
	r.Use(cors.New(cors.Config{
		AllowOrigins:  d.CORSOrigins,
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        24 * time.Hour,
	}))
	r.Use(httpmiddleware.SecurityHeaders())
	if d.Limiter == nil {
		d.Limiter = NewLimiter(d.RateLimitPerMin, d.Metrics)
	}
	r.Use(d.Limiter.Middleware())

	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Metrics.Registry, promhttp.HandlerOpts{})))
	}
	r.GET("/healthz", h.healthz)

	r.Any("/api/*path", h.dispatch)

	v1 := r.Group("/v1")
	v1.POST("/reset", h.reset)
	v1.POST("/attendance/bulk", h.enqueueBulk)
	v1.GET("/jobs/:id", h.job)

	return r
}

// NewLimiter builds the rate limiter used by the router. Probes and scrapes
// are never limited.
func NewLimiter(perMinute int, m *metrics.Metrics) *httpmiddleware.Limiter {
	opts := []httpmiddleware.LimiterOption{httpmiddleware.WithExempt("/healthz", "/metrics")}
	if m != nil {
		opts = append(opts, httpmiddleware.WithRejectObserver(m))
	}
	return httpmiddleware.NewLimiter(perMinute, opts...)
}

func (h *handler) healthz(c *gin.Context) {
	body := gin.H{"status": "ok"}
	status := http.StatusOK
	if h.Redis != nil {
		healthy := h.Redis.Healthy(c.Request.Context())
		body["redis"] = healthy
		if !healthy {
			body["status"] = "degraded"
			status = http.StatusServiceUnavailable
		}
	}
	c.JSON(status, body)
}

// dispatch forwards a request to the mock API unchanged and writes its
// response back. Successful writes drop every cached read.
func (h *handler) dispatch(c *gin.Context) {
	var body any
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, mockapi.Message{Message: "Unable to read request body"})
		return
	}
	if len(raw) > 0 {
		body = raw
	}

	resp := h.API.Dispatch(c.Request.Context(), c.Request.Method, c.Request.URL.RequestURI(), body)
	if resp.OK && c.Request.Method != http.MethodGet {
		h.invalidate(c.Request.Context())
	}
	c.Data(resp.Status, "application/json; charset=utf-8", resp.Bytes())
}

func (h *handler) reset(c *gin.Context) {
	h.API.Reset()
	h.invalidate(c.Request.Context())
	c.JSON(http.StatusOK, mockapi.Message{Message: "Mock data reset"})
}

func (h *handler) invalidate(ctx context.Context) {
	if h.Client == nil {
		return
	}
	if err := h.Client.InvalidateTree(ctx, "/api"); err != nil {
		h.Log.Warn("cache invalidation failed", zap.Error(err))
	}
}

func (h *handler) enqueueBulk(c *gin.Context) {
	if h.Bulk == nil {
		c.JSON(http.StatusServiceUnavailable, mockapi.Message{Message: "Bulk attendance is not configured"})
		return
	}
	var req attendance.BulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, mockapi.Message{Message: "Invalid request body"})
		return
	}
	job, err := h.Bulk.Enqueue(c.Request.Context(), req)
	if err != nil {
		var invalid *model.ValidationError
		if errors.As(err, &invalid) {
			c.JSON(http.StatusBadRequest, mockapi.Message{Message: invalid.Message})
			return
		}
		h.Log.Error("bulk enqueue failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, mockapi.Message{Message: "Unable to queue attendance"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"jobId": job.ID, "status": job.Status})
}

func (h *handler) job(c *gin.Context) {
	if h.Bulk == nil {
		c.JSON(http.StatusNotFound, mockapi.Message{Message: "Job not found"})
		return
	}
	job, err := h.Bulk.Job(c.Param("id"))
	if errors.Is(err, attendance.ErrJobNotFound) {
		c.JSON(http.StatusNotFound, mockapi.Message{Message: "Job not found"})
		return
	}
	c.JSON(http.StatusOK, job)
}
