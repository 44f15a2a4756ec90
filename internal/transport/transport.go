package transport

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

var (
	// ErrTransport marks a request that could not be carried out at all.
	ErrTransport = errors.New("transport failure")
	// ErrTimeout marks a request that did not finish before its deadline.
	ErrTimeout = errors.New("timeout")
)

// Request is a single HTTP exchange to perform.
type Request struct {
	Method  string
	BaseURL string
	Path    string
	Header  http.Header
	Body    []byte
}

// URL joins BaseURL and Path. An empty BaseURL means Path is already absolute.
func (r *Request) URL() string {
	if r.BaseURL == "" {
		return r.Path
	}
	return strings.TrimRight(r.BaseURL, "/") + "/" + strings.TrimLeft(r.Path, "/")
}

// Response is what came back: the body, any diagnostic output from the
// mechanism itself, and the HTTP status.
type Response struct {
	StatusCode int
	Body       []byte
	Stderr     []byte
}

// OK reports whether the status is 2xx.
func (r *Response) OK() bool {
	return r != nil && r.StatusCode >= http.StatusOK && r.StatusCode < http.StatusMultipleChoices
}

// Transport sends one request and returns the status and body.
type Transport interface {
	Send(ctx context.Context, req *Request) (*Response, error)
}

// NewRequest builds a request carrying a bearer token and content type.
func NewRequest(method, baseURL, path, token, contentType string, body []byte) *Request {
	h := make(http.Header)
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return &Request{Method: method, BaseURL: baseURL, Path: path, Header: h, Body: body}
}

// classify maps a context deadline to ErrTimeout and anything else to ErrTransport.
func classify(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return errors.Join(ErrTimeout, err)
	}
	var te interface{ Timeout() bool }
	if errors.As(err, &te) && te.Timeout() {
		return errors.Join(ErrTimeout, err)
	}
	return errors.Join(ErrTransport, err)
}
