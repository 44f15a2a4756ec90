package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/exec"
	"sort"
	"strconv"
	"strings"
)

// curl exit code for an operation timeout.
const curlExitTimeout = 28

const statusTrailer = "\n%{http_code}"

// runFunc executes a process with stdin and returns its outputs.
type runFunc func(ctx context.Context, name string, args []string, stdin []byte) (stdout, stderr []byte, exitCode int, err error)

// Curl sends requests by running an external curl binary. The request body
// is streamed on stdin; the status code is appended to stdout by --write-out.
type Curl struct {
	path string
	run  runFunc
}

func NewCurl(path string) *Curl {
	if path == "" {
		path = "curl"
	}
	return &Curl{path: path, run: runProcess}
}

func runProcess(ctx context.Context, name string, args []string, stdin []byte) ([]byte, []byte, int, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdin = bytes.NewReader(stdin)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return stdout.Bytes(), stderr.Bytes(), exitErr.ExitCode(), nil
	}
	if err != nil {
		return nil, stderr.Bytes(), -1, err
	}
	return stdout.Bytes(), stderr.Bytes(), 0, nil
}

func (c *Curl) args(req *Request) []string {
	method := req.Method
	if method == "" {
		method = "GET"
	}
	args := []string{"--silent", "--show-error", "--request", method, "--url", req.URL()}
	for _, name := range sortedKeys(req.Header) {
		for _, v := range req.Header[name] {
			args = append(args, "--header", name+": "+v)
		}
	}
	if len(req.Body) > 0 {
		args = append(args, "--data-binary", "@-")
	}
	return append(args, "--write-out", statusTrailer)
}

func (c *Curl) Send(ctx context.Context, req *Request) (*Response, error) {
	stdout, stderr, code, err := c.run(ctx, c.path, c.args(req), req.Body)
	if err != nil {
		return nil, classify(ctx, fmt.Errorf("run %s: %w", c.path, err))
	}
	if ctx.Err() != nil {
		return nil, classify(ctx, ctx.Err())
	}
	if code == curlExitTimeout {
		return nil, fmt.Errorf("%w: curl: %s", ErrTimeout, strings.TrimSpace(string(stderr)))
	}
	if code != 0 {
		return nil, fmt.Errorf("%w: curl exited %d: %s", ErrTransport, code, strings.TrimSpace(string(stderr)))
	}
	body, status, err := splitStatus(stdout)
	if err != nil {
		return nil, err
	}
	return &Response{StatusCode: status, Body: body, Stderr: stderr}, nil
}

// splitStatus separates the body from the status code trailer.
func splitStatus(stdout []byte) ([]byte, int, error) {
	i := bytes.LastIndexByte(stdout, '\n')
	if i < 0 {
		return nil, 0, fmt.Errorf("%w: curl output has no status trailer", ErrTransport)
	}
	status, err := strconv.Atoi(strings.TrimSpace(string(stdout[i+1:])))
	if err != nil {
		return nil, 0, fmt.Errorf("%w: curl status trailer %q: %v", ErrTransport, stdout[i+1:], err)
	}
	return stdout[:i], status, nil
}

func sortedKeys(h http.Header) []string {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
