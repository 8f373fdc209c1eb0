package query

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"attendboard/internal/mockapi"
)

// HTTPDoer sends calls to a remote backend that speaks the same contract,
// for when the dashboard runs against a real server instead of the mock.
type HTTPDoer struct {
	BaseURL string
	HTTP    *http.Client
}

// NewHTTPDoer creates a doer with a bounded timeout.
func NewHTTPDoer(baseURL string) *HTTPDoer {
	return &HTTPDoer{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Dispatch performs the request. Transport failures come back as a 503
// response so callers see one failure shape.
func (c *HTTPDoer) Dispatch(ctx context.Context, method, url string, body any) *mockapi.Response {
	resp, err := c.do(ctx, method, url, body)
	if err != nil {
		raw, _ := json.Marshal(mockapi.Message{Message: err.Error()})
		return mockapi.NewResponse(http.StatusServiceUnavailable, raw)
	}
	return resp
}

func (c *HTTPDoer) do(ctx context.Context, method, url string, body any) (*mockapi.Response, error) {
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case []byte:
		reader = bytes.NewReader(b)
	case string:
		reader = strings.NewReader(b)
	default:
		payload, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, strings.ToUpper(method), c.BaseURL+url, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return mockapi.NewResponse(resp.StatusCode, raw), nil
}
