// Package mockapi emulates the dashboard's REST backend in process. A single
// entry point maps method, path and query onto handlers that read and write
// the in-memory store.
package mockapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"attendboard/internal/model"
	"attendboard/internal/store"
)

// Observer receives one callback per dispatched call.
type Observer interface {
	ObserveDispatch(method, route string, status int, elapsed time.Duration)
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger; the default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.log = l
		}
	}
}

// WithObserver reports every dispatch to o.
func WithObserver(o Observer) Option {
	return func(d *Dispatcher) { d.observer = o }
}

// WithRand sets the source behind the synthesized dashboard figures.
func WithRand(r *rand.Rand) Option {
	return func(d *Dispatcher) { d.rng = &lockedRand{r: r} }
}

// Dispatcher routes calls to resource handlers.
type Dispatcher struct {
	store    *store.Memory
	log      *zap.Logger
	observer Observer
	rng      *lockedRand
	routes   table
}

// New builds a dispatcher over the given store.
func New(mem *store.Memory, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		store: mem,
		log:   zap.NewNop(),
		rng:   &lockedRand{r: rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))},
	}
	for _, opt := range opts {
		opt(d)
	}
	d.routes = d.buildRoutes()
	return d
}

// Store returns the store the dispatcher serves.
func (d *Dispatcher) Store() *store.Memory { return d.store }

// Reset restores the store to its seed state.
func (d *Dispatcher) Reset() {
	d.store.Reset()
	d.log.Info("mock stores reset")
}

func (d *Dispatcher) buildRoutes() table {
	get, post := http.MethodGet, http.MethodPost
	return table{
		newRoute(post, "/api/login", false, d.login),

		newRoute(get, "/api/users/:id", false, d.getUser),
		newRoute(get, "/api/users", false, d.listUsers),
		newRoute(post, "/api/users", true, d.createUser),

		newRoute(get, "/api/timetable/student", false, d.studentTimetable),
		newRoute(get, "/api/events", false, d.listEvents),
		newRoute(get, "/api/notifications/student/:id", false, d.studentNotifications),
		newRoute(get, "/api/notifications/student", false, d.studentNotifications),

		newRoute(get, "/api/courses", false, d.listCourses),
		newRoute(post, "/api/courses", true, d.createCourse),

		newRoute(get, "/api/classes/today", false, d.todayClasses),
		newRoute(get, "/api/classes/course/:id", false, d.courseClasses),
		newRoute(get, "/api/classes", false, d.listClasses),
		newRoute(post, "/api/classes", true, d.createClass),

		newRoute(get, "/api/enrollments/course/:id", false, d.courseEnrollments),
		newRoute(get, "/api/enrollments", false, d.listEnrollments),
		newRoute(post, "/api/enrollments", true, d.createEnrollment),

		newRoute(get, "/api/attendance/range", false, d.attendanceRange),
		newRoute(get, "/api/attendance/class/:classId/date/:date", false, d.sessionAttendance),
		newRoute(get, "/api/attendance", false, d.listAttendance),
		newRoute(post, "/api/attendance", true, d.submitAttendance),

		newRoute(get, "/api/dashboard/chart", false, d.dashboardChart),
		newRoute(get, "/api/dashboard/class-summary", false, d.dashboardClassSummary),
		newRoute(get, "/api/dashboard/recent-attendance", false, d.dashboardRecentAttendance),
		newRoute(get, "/api/dashboard/alerts", false, d.dashboardAlerts),
		newRoute(get, "/api/dashboard/stats", false, d.dashboardStats),
	}
}

// Dispatch runs one call against the store and always returns a response.
// A call holds the store lock for its whole duration, so concurrent calls
// never observe each other half done. Calls are not cancellable once started.
func (d *Dispatcher) Dispatch(_ context.Context, method, rawURL string, body any) *Response {
	start := time.Now()
	method = strings.ToUpper(method)

	u, err := url.Parse(rawURL)
	if err != nil {
		d.log.Warn("unparsable url", zap.String("url", rawURL), zap.Error(err))
		return d.finish(method, "unmatched", start, fail(http.StatusNotFound, fmt.Sprintf("Mock for %s %s not found.", method, rawURL)))
	}
	d.log.Debug("mock api request",
		zap.String("method", method),
		zap.String("path", u.Path),
		zap.String("query", u.RawQuery))

	rt, params, found := d.routes.lookup(method, u.Path)
	if !found {
		d.log.Warn("no mock handler", zap.String("method", method), zap.String("path", u.Path))
		return d.finish(method, "unmatched", start, fail(http.StatusNotFound, fmt.Sprintf("Mock for %s %s not found.", method, u.Path)))
	}

	req := &Request{
		Method: method,
		Path:   u.Path,
		Query:  u.Query(),
		Params: params,
		Body:   body,
	}
	var resp *Response
	run := func(tx *store.Tx) { resp = rt.handle(tx, req) }
	if rt.write {
		d.store.Update(run)
	} else {
		d.store.View(run)
	}
	return d.finish(method, rt.pattern, start, resp)
}

func (d *Dispatcher) finish(method, route string, start time.Time, resp *Response) *Response {
	if d.observer != nil {
		d.observer.ObserveDispatch(method, route, resp.Status, time.Since(start))
	}
	return resp
}

var errNoBody = errors.New("request body required")

// decode converts a call body into a request variant and validates it.
// Bodies may be raw JSON, a reader, or any value that marshals to JSON.
func decode(body any, dst any) error {
	var raw []byte
	switch b := body.(type) {
	case nil:
		return errNoBody
	case []byte:
		raw = b
	case json.RawMessage:
		raw = b
	case string:
		raw = []byte(b)
	case io.Reader:
		data, err := io.ReadAll(b)
		if err != nil {
			return fmt.Errorf("read body: %w", err)
		}
		raw = data
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return fmt.Errorf("encode body: %w", err)
		}
		raw = data
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return errNoBody
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return model.Validate(dst)
}

type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

// IntN returns a value in [0,n), or 0 when n is not positive.
func (l *lockedRand) IntN(n int) int {
	if n <= 0 {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.IntN(n)
}
