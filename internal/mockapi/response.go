package mockapi

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Response mirrors the subset of a fetch response the UI relies on. The
// body is encoded when the response is built, so it never aliases the store.
type Response struct {
	OK     bool
	Status int
	body   []byte
}

// Message is the body of every error response.
type Message struct {
	Message string `json:"message"`
}

func respond(status int, body any) *Response {
	raw, err := json.Marshal(body)
	if err != nil {
		status = http.StatusInternalServerError
		raw, _ = json.Marshal(Message{Message: fmt.Sprintf("encode response: %v", err)})
	}
	return &Response{
		OK:     status >= 200 && status < 300,
		Status: status,
		body:   raw,
	}
}

// NewResponse wraps an already encoded body, such as one read off the wire.
func NewResponse(status int, body []byte) *Response {
	return &Response{
		OK:     status >= 200 && status < 300,
		Status: status,
		body:   body,
	}
}

func ok(body any) *Response { return respond(http.StatusOK, body) }

func created(body any) *Response { return respond(http.StatusCreated, body) }

func fail(status int, msg string) *Response { return respond(status, Message{Message: msg}) }

// JSON decodes the body into v.
func (r *Response) JSON(v any) error {
	return json.Unmarshal(r.body, v)
}

// Text returns the body as a JSON string.
func (r *Response) Text() string { return string(r.body) }

// Bytes returns the encoded body.
func (r *Response) Bytes() []byte { return r.body }
