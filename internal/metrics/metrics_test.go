package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObservers(t *testing.T) {
	m := New()

	m.ObserveDispatch("GET", "/api/users/:id", 200, time.Millisecond)
	m.ObserveDispatch("GET", "/api/users/:id", 200, time.Millisecond)
	m.ObserveDispatch("GET", "unmatched", 404, time.Millisecond)
	m.ObserveCache(true)
	m.ObserveCache(false)
	m.ObserveCache(false)
	m.ObserveJob("done", time.Second)
	m.ObserveHTTP("POST", "/v1/reset", 200, time.Millisecond)
	m.ObserveRateLimited("api")
	m.ObserveRateLimited("api")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.dispatches.WithLabelValues("GET", "/api/users/:id", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.dispatches.WithLabelValues("GET", "unmatched", "404")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.jobs.WithLabelValues("done")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("POST", "/v1/reset", "200")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.rateLimited.WithLabelValues("api")))
}

type fixedCounts map[string]int

func (f fixedCounts) Counts() map[string]int { return f }

func TestStoreCollector(t *testing.T) {
	m := New()
	require.NoError(t, m.Registry.Register(NewStoreCollector(fixedCounts{"users": 3, "attendance": 140})))

	expected := `
# HELP attendboard_store_records Records currently held per collection.
# TYPE attendboard_store_records gauge
attendboard_store_records{collection="attendance"} 140
attendboard_store_records{collection="users"} 3
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry, strings.NewReader(expected), "attendboard_store_records"))
}
