package query

import (
	"fmt"
	"net/url"
	"reflect"
	"strings"
)

// Key identifies a read. URL is the resource path, Segments are appended to
// it as extra path elements and Params become the query string.
type Key struct {
	URL      string
	Segments []string
	Params   map[string]any
}

// NewKey builds a key for path with optional trailing path segments.
func NewKey(path string, segments ...string) Key {
	return Key{URL: path, Segments: segments}
}

// With returns a copy of k carrying params.
func (k Key) With(params map[string]any) Key {
	k.Params = params
	return k
}

// Path joins the URL with its escaped segments.
func (k Key) Path() string {
	if len(k.Segments) == 0 {
		return k.URL
	}
	var b strings.Builder
	b.WriteString(strings.TrimRight(k.URL, "/"))
	for _, s := range k.Segments {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(s))
	}
	return b.String()
}

// Query encodes the non-nil params, sorted by name.
func (k Key) Query() string {
	if len(k.Params) == 0 {
		return ""
	}
	v := url.Values{}
	for name, p := range k.Params {
		if isNil(p) {
			continue
		}
		v.Set(name, stringify(p))
	}
	return v.Encode()
}

// Target is the request URL issued for the key.
func (k Key) Target() string {
	if q := k.Query(); q != "" {
		return k.Path() + "?" + q
	}
	return k.Path()
}

// ID is the cache identity of the key. Every key sharing a URL also shares
// the prefix URL+"#", which is what Invalidate removes.
func (k Key) ID() string {
	return prefixOf(k.URL) + strings.Join(k.Segments, "/") + "?" + k.Query()
}

func prefixOf(path string) string { return path + "#" }

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		return rv.IsNil()
	}
	return false
}

func stringify(v any) string {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		v = rv.Elem().Interface()
	}
	return fmt.Sprint(v)
}
