// Package app assembles the mock API, its cache, the bulk attendance worker
// and the gin surface from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"attendboard/internal/attendance"
	"attendboard/internal/config"
	"attendboard/internal/httpapi"
	"attendboard/internal/httpmiddleware"
	"attendboard/internal/metrics"
	"attendboard/internal/mockapi"
	"attendboard/internal/query"
	"attendboard/internal/queue"
	"attendboard/internal/seed"
	"attendboard/internal/store"
	"attendboard/internal/worker"
)

const (
	maintenanceSchedule = "@every 10m"
	limiterIdle         = 10 * time.Minute
)

// App is a fully wired process.
type App struct {
	Config  config.App
	Log     *zap.Logger
	API     *mockapi.Dispatcher
	Client  *query.Client
	Bulk    *attendance.Service
	Queue   queue.Queue
	Metrics *metrics.Metrics
	Redis   *store.Redis
	Limiter *httpmiddleware.Limiter
	Router  *gin.Engine
}

// LoadSeed returns the configured seed tables.
func LoadSeed(cfg config.App) (*seed.Tables, error) {
	if cfg.SeedFile != "" {
		return seed.FromFile(cfg.SeedFile, cfg.SeedRandom)
	}
	return seed.Default(cfg.SeedRandom)
}

// New wires every component. Redis is only dialled when the cache or the
// queue backend asks for it.
func New(cfg config.App, log *zap.Logger) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}
	tables, err := LoadSeed(cfg)
	if err != nil {
		return nil, fmt.Errorf("load seed: %w", err)
	}

	a := &App{Config: cfg, Log: log, Metrics: metrics.New()}
	mem := store.NewMemory(tables, nil)
	a.Metrics.Registry.MustRegister(metrics.NewStoreCollector(mem))
	a.API = mockapi.New(mem,
		mockapi.WithLogger(log.Named("mockapi")),
		mockapi.WithObserver(a.Metrics))

	if cfg.UsesRedis() {
		a.Redis = store.NewRedis(cfg.RedisAddr)
	}

	var cache query.Cache
	if cfg.CacheBackend == "redis" {
		cache = query.NewRedisCache(a.Redis.Client, "")
	} else {
		cache = query.NewMemoryCache(nil)
	}
	a.Client = query.NewClient(a.API,
		query.WithCache(cache),
		query.WithStaleTime(cfg.CacheStaleTime),
		query.WithLogger(log.Named("query")),
		query.WithCacheObserver(a.Metrics))

	if cfg.QueueBackend == "redis" {
		a.Queue = queue.NewRedisQueue(a.Redis.Client, cfg.QueueKey, log.Named("queue"))
	} else {
		a.Queue = queue.NewInMemory(64)
	}

	a.Bulk = attendance.NewService(a.Client, a.Queue, attendance.NewTracker(nil), log.Named("attendance"))
	a.Bulk.SetObserver(a.Metrics)

	a.Limiter = httpapi.NewLimiter(cfg.RateLimitPerMin, a.Metrics)
	deps := httpapi.Deps{
		API:             a.API,
		Client:          a.Client,
		Bulk:            a.Bulk,
		Metrics:         a.Metrics,
		Limiter:         a.Limiter,
		Log:             log.Named("http"),
		CORSOrigins:     cfg.CORSOrigins,
		RateLimitPerMin: cfg.RateLimitPerMin,
		AccessLog:       cfg.AccessLog,
	}
	if a.Redis != nil {
		deps.Redis = a.Redis
	}
	a.Router = httpapi.NewRouter(deps)
	return a, nil
}

// Reset restores the seed data and drops every cached read.
func (a *App) Reset(ctx context.Context) {
	a.API.Reset()
	if err := a.Client.InvalidateTree(ctx, "/api"); err != nil {
		a.Log.Warn("cache invalidation after reset failed", zap.Error(err))
	}
}

// Run serves HTTP, drains the queue and runs the reset schedule until ctx
// is cancelled or one of them fails.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         ":" + a.Config.HTTPPort,
		Handler:      a.Router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	sched, err := a.Scheduler(ctx)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.Log.Info("starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.Log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.Log.Warn("server forced shutdown", zap.Error(err))
		}
		return nil
	})
	g.Go(func() error {
		return worker.New(a.Queue, a.Bulk, a.Log.Named("worker"), 0).Run(gctx)
	})

	sched.Start()
	g.Go(func() error {
		<-gctx.Done()
		<-sched.Stop().Done()
		return nil
	})

	return g.Wait()
}

// Close releases the redis connection, if any.
func (a *App) Close() error {
	return a.Redis.Close()
}

// Maintain forgets finished bulk jobs past their retention and rate limit
// buckets idle for longer than a window.
func (a *App) Maintain() {
	jobs := a.Bulk.PruneJobs(a.Config.JobRetention)
	buckets := a.Limiter.Prune(limiterIdle)
	a.Log.Debug("maintenance done", zap.Int("jobs", jobs), zap.Int("buckets", buckets))
}

// Scheduler returns a stopped cron with maintenance and, when configured,
// the periodic reset.
func (a *App) Scheduler(ctx context.Context) (*cron.Cron, error) {
	log := a.Log.Named("cron")
	c := newCron(log)
	if _, err := c.AddFunc(maintenanceSchedule, a.Maintain); err != nil {
		return nil, fmt.Errorf("maintenance schedule: %w", err)
	}
	if a.Config.ResetSchedule != "" {
		if err := addReset(c, a.Config.ResetSchedule, func() { a.Reset(ctx) }, log); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// ScheduleReset registers reset on a cron schedule. The returned scheduler
// is not started.
func ScheduleReset(spec string, reset func(), log *zap.Logger) (*cron.Cron, error) {
	if log == nil {
		log = zap.NewNop()
	}
	c := newCron(log)
	if err := addReset(c, spec, reset, log); err != nil {
		return nil, err
	}
	return c, nil
}

func newCron(log *zap.Logger) *cron.Cron {
	return cron.New(cron.WithLogger(cron.PrintfLogger(zap.NewStdLog(log))))
}

func addReset(c *cron.Cron, spec string, reset func(), log *zap.Logger) error {
	_, err := c.AddFunc(spec, func() {
		log.Info("scheduled reset")
		reset()
	})
	if err != nil {
		return fmt.Errorf("reset schedule %q: %w", spec, err)
	}
	return nil
}
