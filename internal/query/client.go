// Package query adapts cache-keyed reads onto the mock API dispatcher and
// gives every failure one shape.
package query

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"attendboard/internal/mockapi"
)

// DefaultStaleTime is how long a read result is served from cache.
const DefaultStaleTime = 5 * time.Minute

// Doer issues one call and always yields a response.
type Doer interface {
	Dispatch(ctx context.Context, method, url string, body any) *mockapi.Response
}

// StatusError reports a non-2xx response.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

// StatusOf returns the status carried by err, or 0.
func StatusOf(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status
	}
	return 0
}

// CheckResponse converts a failed response into a *StatusError. The message
// is the body's "message" field, the raw body, or the status text, in that
// order of preference.
func CheckResponse(resp *mockapi.Response) error {
	if resp.OK {
		return nil
	}
	var msg string
	var body mockapi.Message
	if err := resp.JSON(&body); err == nil && body.Message != "" {
		msg = body.Message
	} else if text := resp.Text(); text != "" {
		msg = text
	} else {
		msg = http.StatusText(resp.Status)
	}
	return &StatusError{Status: resp.Status, Message: msg}
}

// ShouldRetry never retries 401, 403 or 404 and otherwise allows two
// retries. failures counts the earlier failed attempts, not the current one.
func ShouldRetry(failures int, err error) bool {
	switch StatusOf(err) {
	case http.StatusNotFound, http.StatusUnauthorized, http.StatusForbidden:
		return false
	}
	return failures < 2
}

// RetryDelay doubles from one second and caps at thirty.
func RetryDelay(failures int) time.Duration {
	if failures >= 5 {
		return 30 * time.Second
	}
	return time.Second << max(failures, 0)
}

// CacheObserver is told about every cache lookup.
type CacheObserver interface {
	ObserveCache(hit bool)
}

// Option configures a Client.
type Option func(*Client)

// WithCache overrides the default in-memory cache.
func WithCache(c Cache) Option { return func(cl *Client) { cl.cache = c } }

// WithStaleTime sets how long results stay cached.
func WithStaleTime(d time.Duration) Option { return func(cl *Client) { cl.staleTime = d } }

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(cl *Client) {
		if l != nil {
			cl.log = l
		}
	}
}

// WithRetryDelay replaces the backoff between attempts.
func WithRetryDelay(fn func(failures int) time.Duration) Option {
	return func(cl *Client) { cl.retryDelay = fn }
}

// WithCacheObserver reports cache hits and misses.
func WithCacheObserver(o CacheObserver) Option { return func(cl *Client) { cl.observer = o } }

// Client runs reads through a cache and writes straight through.
type Client struct {
	doer       Doer
	cache      Cache
	staleTime  time.Duration
	retryDelay func(int) time.Duration
	log        *zap.Logger
	observer   CacheObserver
}

// NewClient builds a client over doer.
func NewClient(doer Doer, opts ...Option) *Client {
	c := &Client{
		doer:       doer,
		staleTime:  DefaultStaleTime,
		retryDelay: RetryDelay,
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.cache == nil {
		c.cache = NewMemoryCache(nil)
	}
	return c
}

// Fetch GETs key and decodes the JSON body into out. Fresh cached results
// are served without a call. Failures are retried per ShouldRetry.
func (c *Client) Fetch(ctx context.Context, key Key, out any) error {
	id := key.ID()
	if raw, hit, err := c.cache.Get(ctx, id); err != nil {
		c.log.Warn("query cache read failed", zap.String("key", id), zap.Error(err))
	} else {
		c.observe(hit)
		if hit {
			return json.Unmarshal(raw, out)
		}
	}

	raw, err := c.fetch(ctx, key)
	if err != nil {
		return err
	}
	if err := c.cache.Set(ctx, id, raw, c.staleTime); err != nil {
		c.log.Warn("query cache write failed", zap.String("key", id), zap.Error(err))
	}
	return json.Unmarshal(raw, out)
}

func (c *Client) fetch(ctx context.Context, key Key) ([]byte, error) {
	target := key.Target()
	for failures := 0; ; failures++ {
		resp := c.doer.Dispatch(ctx, http.MethodGet, target, nil)
		err := CheckResponse(resp)
		if err == nil {
			return resp.Bytes(), nil
		}
		if !ShouldRetry(failures, err) {
			return nil, err
		}
		c.log.Debug("retrying query", zap.String("url", target), zap.Int("failures", failures), zap.Error(err))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.retryDelay(failures)):
		}
	}
}

// Mutate issues a write once, without retry. On success it invalidates the
// given URL prefixes and, when out is not nil, decodes the body into it.
func (c *Client) Mutate(ctx context.Context, method, url string, body any, out any, invalidate ...string) error {
	resp := c.doer.Dispatch(ctx, method, url, body)
	if err := CheckResponse(resp); err != nil {
		return err
	}
	for _, prefix := range invalidate {
		if err := c.Invalidate(ctx, prefix); err != nil {
			return err
		}
	}
	if out == nil {
		return nil
	}
	return resp.JSON(out)
}

// Invalidate drops every cached read whose key URL equals url.
func (c *Client) Invalidate(ctx context.Context, url string) error {
	if err := c.cache.DeletePrefix(ctx, prefixOf(url)); err != nil {
		return fmt.Errorf("invalidate %s: %w", url, err)
	}
	return nil
}

// InvalidateTree drops every cached read whose key URL starts with path,
// such as everything under /api/enrollments after a write to it.
func (c *Client) InvalidateTree(ctx context.Context, path string) error {
	if err := c.cache.DeletePrefix(ctx, path); err != nil {
		return fmt.Errorf("invalidate %s: %w", path, err)
	}
	return nil
}

func (c *Client) observe(hit bool) {
	if c.observer != nil {
		c.observer.ObserveCache(hit)
	}
}
