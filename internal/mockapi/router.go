package mockapi

import (
	"net/url"
	"strings"

	"attendboard/internal/store"
)

// Request is what a handler sees of a dispatched call.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Params map[string]string
	Body   any
}

type handlerFunc func(tx *store.Tx, req *Request) *Response

// route binds a method and a compiled path pattern to a handler. Patterns
// are slash separated; a segment starting with ':' captures one path segment.
type route struct {
	method   string
	pattern  string
	segments []string
	write    bool
	handle   handlerFunc
}

func newRoute(method, pattern string, write bool, h handlerFunc) route {
	return route{
		method:   method,
		pattern:  pattern,
		segments: split(pattern),
		write:    write,
		handle:   h,
	}
}

func (r route) match(method string, segments []string) (map[string]string, bool) {
	if r.method != method || len(r.segments) != len(segments) {
		return nil, false
	}
	var params map[string]string
	for i, seg := range r.segments {
		if strings.HasPrefix(seg, ":") {
			if params == nil {
				params = make(map[string]string, 2)
			}
			params[seg[1:]] = segments[i]
			continue
		}
		if seg != segments[i] {
			return nil, false
		}
	}
	return params, true
}

// table is evaluated in order and the first match wins, so more specific
// patterns are registered ahead of the generic ones they share a prefix with.
type table []route

func (t table) lookup(method, path string) (route, map[string]string, bool) {
	segments := split(path)
	for _, r := range t {
		if params, ok := r.match(method, segments); ok {
			return r, params, true
		}
	}
	return route{}, nil, false
}

func split(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	parts := strings.Split(path, "/")
	for i, p := range parts {
		if unescaped, err := url.PathUnescape(p); err == nil {
			parts[i] = unescaped
		}
	}
	return parts
}
