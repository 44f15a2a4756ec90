package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

type recorded struct {
	method      string
	path        string
	auth        string
	contentType string
	body        string
}

func newRecordingServer(t *testing.T, status int, reply string, rec *recorded) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		*rec = recorded{
			method:      r.Method,
			path:        r.URL.Path,
			auth:        r.Header.Get("Authorization"),
			contentType: r.Header.Get("Content-Type"),
			body:        string(b),
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRequestURL(t *testing.T) {
	r := &Request{BaseURL: "https://api.example.com/v1/", Path: "/images/generations"}
	if got := r.URL(); got != "https://api.example.com/v1/images/generations" {
		t.Fatalf("URL: %s", got)
	}
	r = &Request{Path: "https://cdn.example.com/a.png"}
	if got := r.URL(); got != "https://cdn.example.com/a.png" {
		t.Fatalf("absolute URL: %s", got)
	}
}

func TestHTTPSendsHeadersAndBody(t *testing.T) {
	var rec recorded
	srv := newRecordingServer(t, http.StatusOK, `{"ok":true}`, &rec)

	req := NewRequest(http.MethodPost, srv.URL+"/v1", "chat/completions", "sk-test", "application/json", []byte(`{"a":1}`))
	res, err := NewHTTP().Send(context.Background(), req)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !res.OK() || string(res.Body) != `{"ok":true}` {
		t.Fatalf("unexpected response: %d %s", res.StatusCode, res.Body)
	}
	if rec.method != http.MethodPost || rec.path != "/v1/chat/completions" {
		t.Fatalf("unexpected request line: %s %s", rec.method, rec.path)
	}
	if rec.auth != "Bearer sk-test" {
		t.Fatalf("authorization header: %q", rec.auth)
	}
	if rec.contentType != "application/json" || rec.body != `{"a":1}` {
		t.Fatalf("body not forwarded: %q %q", rec.contentType, rec.body)
	}
}

func TestHTTPReportsNonSuccessStatus(t *testing.T) {
	var rec recorded
	srv := newRecordingServer(t, http.StatusUnauthorized, `{"error":{"message":"bad key"}}`, &rec)

	res, err := NewHTTP().Send(context.Background(), NewRequest(http.MethodPost, srv.URL, "x", "sk", "application/json", nil))
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if res.OK() || res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.StatusCode)
	}
}

func TestHTTPTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := NewHTTP().Send(ctx, &Request{Method: http.MethodGet, Path: srv.URL})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestHTTPConnectionFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewHTTP().Send(context.Background(), &Request{Method: http.MethodGet, Path: url})
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
}

func TestDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Errorf("download must not carry credentials")
		}
		if r.URL.Path == "/missing.png" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("\x89PNG"))
	}))
	t.Cleanup(srv.Close)

	b, err := Download(context.Background(), NewHTTP(), srv.URL+"/img.png")
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if string(b) != "\x89PNG" {
		t.Fatalf("download bytes: %q", b)
	}
	if _, err := Download(context.Background(), NewHTTP(), srv.URL+"/missing.png"); !errors.Is(err, ErrTransport) {
		t.Fatalf("expected ErrTransport for 404, got %v", err)
	}
}

type fakeRun struct {
	name   string
	args   []string
	stdin  []byte
	stdout string
	stderr string
	code   int
	err    error
}

func (f *fakeRun) run(ctx context.Context, name string, args []string, stdin []byte) ([]byte, []byte, int, error) {
	f.name = name
	f.args = args
	f.stdin = stdin
	return []byte(f.stdout), []byte(f.stderr), f.code, f.err
}

func TestCurlBuildsCommandAndParsesStatus(t *testing.T) {
	fake := &fakeRun{stdout: "{\"data\":[]}\n200"}
	c := NewCurl("/usr/bin/curl")
	c.run = fake.run

	req := NewRequest(http.MethodPost, "https://api.example.com/v1", "images/generations", "sk-test", "application/json", []byte(`{"prompt":"x"}`))
	res, err := c.Send(context.Background(), req)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if res.StatusCode != 200 || string(res.Body) != `{"data":[]}` {
		t.Fatalf("unexpected response: %d %q", res.StatusCode, res.Body)
	}
	if fake.name != "/usr/bin/curl" {
		t.Fatalf("binary: %s", fake.name)
	}
	args := strings.Join(fake.args, " ")
	for _, want := range []string{
		"--request POST",
		"--url https://api.example.com/v1/images/generations",
		"--header Authorization: Bearer sk-test",
		"--header Content-Type: application/json",
		"--data-binary @-",
		"--write-out \n%{http_code}",
	} {
		if !strings.Contains(args, want) {
			t.Fatalf("curl args missing %q: %s", want, args)
		}
	}
	if string(fake.stdin) != `{"prompt":"x"}` {
		t.Fatalf("stdin: %q", fake.stdin)
	}
}

func TestCurlNonSuccessStatusIsAResponse(t *testing.T) {
	fake := &fakeRun{stdout: "{\"error\":{\"message\":\"nope\"}}\n401"}
	c := NewCurl("")
	c.run = fake.run

	res, err := c.Send(context.Background(), &Request{Method: http.MethodPost, Path: "https://x"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if res.OK() || res.StatusCode != 401 {
		t.Fatalf("expected 401, got %d", res.StatusCode)
	}
}

func TestCurlExitCodes(t *testing.T) {
	c := NewCurl("")
	c.run = (&fakeRun{code: 7, stderr: "curl: (7) Failed to connect"}).run
	if _, err := c.Send(context.Background(), &Request{Path: "https://x"}); !errors.Is(err, ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
	c.run = (&fakeRun{code: curlExitTimeout, stderr: "curl: (28) Operation timed out"}).run
	if _, err := c.Send(context.Background(), &Request{Path: "https://x"}); !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	c.run = (&fakeRun{err: errors.New("exec: \"curl\": executable file not found in $PATH")}).run
	if _, err := c.Send(context.Background(), &Request{Path: "https://x"}); !errors.Is(err, ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
}

func TestSplitStatus(t *testing.T) {
	body, status, err := splitStatus([]byte("line one\nline two\n\n201"))
	if err != nil {
		t.Fatalf("splitStatus: %v", err)
	}
	if status != 201 || string(body) != "line one\nline two\n" {
		t.Fatalf("split mismatch: %d %q", status, body)
	}
	if _, _, err := splitStatus([]byte("no trailer")); !errors.Is(err, ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
}

func TestSDKSendsThroughClient(t *testing.T) {
	var rec recorded
	srv := newRecordingServer(t, http.StatusOK, `{"created":1,"data":[{"url":"u"}]}`, &rec)

	s := NewSDK(srv.URL+"/v1", nil)
	req := NewRequest(http.MethodPost, srv.URL+"/v1", "images/generations", "sk-sdk", "application/json", []byte(`{"prompt":"x","n":1,"size":"256x256"}`))
	res, err := s.Send(context.Background(), req)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !res.OK() || !strings.Contains(string(res.Body), `"url":"u"`) {
		t.Fatalf("unexpected response: %d %s", res.StatusCode, res.Body)
	}
	if rec.path != "/v1/images/generations" {
		t.Fatalf("path: %s", rec.path)
	}
	if rec.auth != "Bearer sk-sdk" {
		t.Fatalf("authorization header: %q", rec.auth)
	}
	if rec.body != `{"prompt":"x","n":1,"size":"256x256"}` {
		t.Fatalf("body: %s", rec.body)
	}
}

func TestSDKNonSuccessStatusIsAResponse(t *testing.T) {
	var rec recorded
	srv := newRecordingServer(t, http.StatusUnauthorized, `{"error":{"message":"bad key","type":"invalid_request_error"}}`, &rec)

	s := NewSDK(srv.URL+"/v1", nil)
	res, err := s.Send(context.Background(), NewRequest(http.MethodPost, srv.URL+"/v1", "chat/completions", "sk", "application/json", []byte(`{}`)))
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.StatusCode)
	}
	if !strings.Contains(string(res.Body), `{"error":{"message":"bad key"`) {
		t.Fatalf("error envelope not preserved: %s", res.Body)
	}
}

func TestSDKKeepsNonJSONErrorBody(t *testing.T) {
	var rec recorded
	srv := newRecordingServer(t, http.StatusBadGateway, `<html>bad gateway</html>`, &rec)

	s := NewSDK(srv.URL+"/v1", nil)
	res, err := s.Send(context.Background(), NewRequest(http.MethodPost, srv.URL+"/v1", "chat/completions", "sk", "application/json", []byte(`{}`)))
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if res.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", res.StatusCode)
	}
	if string(res.Body) != `<html>bad gateway</html>` {
		t.Fatalf("diagnostic body lost: %q", res.Body)
	}
}
