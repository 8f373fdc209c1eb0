package app

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attendboard/internal/attendance"
	"attendboard/internal/config"
	"attendboard/internal/model"
	"attendboard/internal/query"
	"attendboard/internal/queue"
)

func init() { gin.SetMode(gin.TestMode) }

func testConfig() config.App {
	return config.App{
		Env:            "test",
		HTTPPort:       "0",
		CacheBackend:   "memory",
		CacheStaleTime: time.Minute,
		QueueBackend:   "memory",
		QueueKey:       "attendance:bulk",
		SeedRandom:     42,
	}
}

func TestNewWithMemoryBackends(t *testing.T) {
	a, err := New(testConfig(), nil)
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.Redis)
	assert.IsType(t, &queue.InMemory{}, a.Queue)

	var users []model.User
	require.NoError(t, a.Client.Fetch(context.Background(), query.NewKey("/api/users"), &users))
	assert.NotEmpty(t, users)
}

func TestNewWithRedisBackends(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig()
	cfg.RedisAddr = mr.Addr()
	cfg.CacheBackend = "redis"
	cfg.QueueBackend = "redis"

	a, err := New(cfg, nil)
	require.NoError(t, err)
	defer a.Close()

	require.NotNil(t, a.Redis)
	assert.True(t, a.Redis.Healthy(context.Background()))
	assert.IsType(t, &queue.RedisQueue{}, a.Queue)

	var courses []model.CourseView
	require.NoError(t, a.Client.Fetch(context.Background(), query.NewKey("/api/courses"), &courses))
	keys := mr.Keys()
	require.Len(t, keys, 1)
	assert.Equal(t, "attendboard:query:/api/courses#?", keys[0])

	a.Reset(context.Background())
	assert.Empty(t, mr.Keys())
}

func TestNewRejectsMissingSeedFile(t *testing.T) {
	cfg := testConfig()
	cfg.SeedFile = "does-not-exist.yaml"
	_, err := New(cfg, nil)
	assert.ErrorContains(t, err, "load seed")
}

func TestScheduleReset(t *testing.T) {
	_, err := ScheduleReset("not a schedule", func() {}, nil)
	assert.Error(t, err)

	calls := 0
	c, err := ScheduleReset("@daily", func() { calls++ }, nil)
	require.NoError(t, err)
	entries := c.Entries()
	require.Len(t, entries, 1)
	entries[0].Job.Run()
	assert.Equal(t, 1, calls)
}

func TestScheduler(t *testing.T) {
	a, err := New(testConfig(), nil)
	require.NoError(t, err)
	c, err := a.Scheduler(context.Background())
	require.NoError(t, err)
	assert.Len(t, c.Entries(), 1)

	a.Config.ResetSchedule = "@daily"
	c, err = a.Scheduler(context.Background())
	require.NoError(t, err)
	assert.Len(t, c.Entries(), 2)

	a.Config.ResetSchedule = "whenever"
	_, err = a.Scheduler(context.Background())
	assert.ErrorContains(t, err, "reset schedule")
}

func TestMaintainPrunesFinishedJobs(t *testing.T) {
	cfg := testConfig()
	cfg.JobRetention = -time.Second
	a, err := New(cfg, nil)
	require.NoError(t, err)
	ctx := context.Background()

	job, err := a.Bulk.Enqueue(ctx, attendance.BulkRequest{
		CourseID: "MCA101", ClassID: "MCA101_Monday", Date: "2025-02-10", RecordedBy: 2,
	})
	require.NoError(t, err)
	a.Maintain()
	_, err = a.Bulk.Job(job.ID)
	require.NoError(t, err, "queued jobs survive maintenance")

	msg, err := queue.NewMessage(attendance.MessageType, job.ID, job.Request)
	require.NoError(t, err)
	require.NoError(t, a.Bulk.Handle(ctx, msg))
	a.Maintain()
	_, err = a.Bulk.Job(job.ID)
	assert.ErrorIs(t, err, attendance.ErrJobNotFound)
}

func freePort(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return strconv.Itoa(port)
}

func TestRunServesAndProcessesJobs(t *testing.T) {
	cfg := testConfig()
	cfg.HTTPPort = freePort(t)
	cfg.ResetSchedule = "@hourly"
	a, err := New(cfg, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://127.0.0.1:" + cfg.HTTPPort + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	job, err := a.Bulk.Enqueue(ctx, attendance.BulkRequest{
		CourseID: "MCA101", ClassID: "MCA101_Monday", Date: "2025-02-10", RecordedBy: 2,
	})
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		got, err := a.Bulk.Job(job.ID)
		return err == nil && got.Status == attendance.JobDone
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not stop")
	}
}
