package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
)

// HTTPOption configures the HTTP transport.
type HTTPOption func(*HTTP)

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(t *HTTP) {
		if client != nil {
			t.client = client
		}
	}
}

// WithUserAgent sets the User-Agent header on every request.
func WithUserAgent(ua string) HTTPOption {
	return func(t *HTTP) {
		t.userAgent = ua
	}
}

// HTTP sends requests with an in-process net/http client.
type HTTP struct {
	client    *http.Client
	userAgent string
}

func NewHTTP(opts ...HTTPOption) *HTTP {
	t := &HTTP{client: &http.Client{}}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *HTTP) Send(ctx context.Context, req *Request) (*Response, error) {
	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL(), body)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrTransport, err)
	}
	if req.Header != nil {
		httpReq.Header = req.Header.Clone()
	}
	if t.userAgent != "" {
		httpReq.Header.Set("User-Agent", t.userAgent)
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, classify(ctx, err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classify(ctx, fmt.Errorf("read response body: %w", err))
	}
	return &Response{StatusCode: resp.StatusCode, Body: b}, nil
}

// Download fetches url with a plain GET and returns the body. Non-2xx
// statuses are reported as ErrTransport.
func Download(ctx context.Context, t Transport, url string) ([]byte, error) {
	res, err := t.Send(ctx, &Request{Method: http.MethodGet, Path: url})
	if err != nil {
		return nil, err
	}
	if !res.OK() {
		return nil, fmt.Errorf("%w: GET %s: status %d", ErrTransport, url, res.StatusCode)
	}
	return res.Body, nil
}
