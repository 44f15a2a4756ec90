package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// SDK sends requests through the official OpenAI Go SDK's raw request API.
// SDK retries are disabled; each Send is one round trip.
type SDK struct {
	baseURL string
	sdk     openai.Client
}

// NewSDK constructs an SDK transport. baseURL is optional (empty string uses
// the default API endpoint). The bearer token travels on each request.
func NewSDK(baseURL string, httpClient *http.Client) *SDK {
	opts := []option.RequestOption{option.WithMaxRetries(0)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(baseURL, "/")+"/"))
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	return &SDK{baseURL: baseURL, sdk: openai.NewClient(opts...)}
}

func (s *SDK) Send(ctx context.Context, req *Request) (*Response, error) {
	var opts []option.RequestOption
	for name, values := range req.Header {
		for _, v := range values {
			opts = append(opts, option.WithHeader(name, v))
		}
	}
	path := req.Path
	if req.BaseURL != "" && req.BaseURL != s.baseURL {
		path = req.URL()
	}

	var body any
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	var raw []byte
	err := s.sdk.Execute(ctx, req.Method, strings.TrimLeft(path, "/"), body, &raw, opts...)
	if err == nil {
		return &Response{StatusCode: http.StatusOK, Body: raw}, nil
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &Response{StatusCode: apiErr.StatusCode, Body: errorBody(apiErr)}, nil
	}
	return nil, classify(ctx, err)
}

// errorBody returns the full error response. The SDK keeps only the inner
// "error" object in RawJSON and nothing at all for non-JSON bodies, but it
// restores the body on the attached response.
func errorBody(apiErr *openai.Error) []byte {
	if apiErr.Response != nil && apiErr.Response.Body != nil {
		b, err := io.ReadAll(apiErr.Response.Body)
		if err == nil && len(bytes.TrimSpace(b)) > 0 {
			return b
		}
	}
	if raw := apiErr.RawJSON(); raw != "" {
		return []byte(raw)
	}
	return []byte(fmt.Sprintf("%d %s: response body unavailable", apiErr.StatusCode, http.StatusText(apiErr.StatusCode)))
}
