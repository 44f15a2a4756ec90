// Package pipeline runs one request/response/persist round trip per operation:
// build the request, send it, decode the response, derive the output name and
// write the artifact. Nothing is written until the response has decoded.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"synthbrain/internal/api"
	"synthbrain/internal/config"
	"synthbrain/internal/paths"
	"synthbrain/internal/transport"
)

// Result describes the artifact produced by a run.
type Result struct {
	// Name is the artifact's file name.
	Name string
	// Path is the local file written, empty when nothing was written.
	Path string
	// Content holds the artifact bytes for runs that only printed it.
	Content []byte
}

// Option configures a Runner.
type Option func(*Runner)

// WithFetcher sets the transport used to download generated images.
func WithFetcher(t transport.Transport) Option {
	return func(r *Runner) {
		if t != nil {
			r.fetcher = t
		}
	}
}

// WithStdout sets where printed transcripts go.
func WithStdout(w io.Writer) Option {
	return func(r *Runner) {
		if w != nil {
			r.stdout = w
		}
	}
}

// Runner executes single-shot pipelines. It holds no state between runs.
type Runner struct {
	cfg       config.Config
	creds     config.Resolver
	transport transport.Transport
	fetcher   transport.Transport
	paths     *paths.Builder
	stdout    io.Writer
}

func New(cfg config.Config, creds config.Resolver, t transport.Transport, opts ...Option) *Runner {
	r := &Runner{
		cfg:       cfg,
		creds:     creds,
		transport: t,
		fetcher:   transport.NewHTTP(),
		paths:     paths.New(cfg.OutDir, cfg.TranscriptName),
		stdout:    os.Stdout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// GenerateImage requests one image for prompt, downloads it and writes it to
// <prompt with underscores>.png, replacing any existing file.
func (r *Runner) GenerateImage(ctx context.Context, prompt string) (Result, error) {
	const op = "image generate"
	token, err := r.resolve(op)
	if err != nil {
		return Result{}, err
	}

	req := api.NewImageRequest(prompt)
	if r.cfg.ImageSize != "" {
		req.Size = r.cfg.ImageSize
	}
	payload, err := req.Encode()
	if err != nil {
		return Result{}, wrap(op, KindSerialization, err)
	}
	res, err := r.send(ctx, op, api.ImageGenerationsPath, token, payload)
	if err != nil {
		return Result{}, err
	}
	img, err := api.DecodeImage(res.Body)
	if err != nil {
		return Result{}, wrap(op, KindDecode, err)
	}
	slog.Info("response decoded", "op", op, "created", img.Created, "images", len(img.Data))

	out := r.paths.Image(prompt)
	if err := paths.CheckWritable(out); err != nil {
		return Result{}, wrap(op, KindFileIO, err)
	}
	data, err := r.download(ctx, img.FirstURL())
	if err != nil {
		return Result{}, wrap(op, KindTransport, err)
	}
	if err := r.writeFile(out, data); err != nil {
		return Result{}, wrap(op, KindFileIO, err)
	}
	slog.Info("image written", "path", out, "bytes", len(data))
	return Result{Name: filepath.Base(out), Path: out}, nil
}

// CompleteText sends prompt as a single user message and appends the exchange
// to the transcript file.
func (r *Runner) CompleteText(ctx context.Context, prompt string) (Result, error) {
	const op = "text complete"
	token, err := r.resolve(op)
	if err != nil {
		return Result{}, err
	}

	req := api.NewTextRequest(prompt)
	if r.cfg.TextModel != "" {
		req.Model = r.cfg.TextModel
	}
	req.Temperature = r.cfg.Temperature
	payload, err := req.Encode()
	if err != nil {
		return Result{}, wrap(op, KindSerialization, err)
	}
	res, err := r.send(ctx, op, api.ChatCompletionsPath, token, payload)
	if err != nil {
		return Result{}, err
	}
	text, err := api.DecodeText(res.Body)
	if err != nil {
		return Result{}, wrap(op, KindDecode, err)
	}
	attrs := []any{"op", op, "id", text.ID, "model", text.Model, "choices", len(text.Choices)}
	if text.Usage != nil {
		attrs = append(attrs,
			"promptTokens", text.Usage.PromptTokens,
			"completionTokens", text.Usage.CompletionTokens,
			"totalTokens", text.Usage.TotalTokens,
		)
	}
	slog.Info("response decoded", attrs...)

	out := r.paths.TranscriptLog()
	if err := r.appendTranscript(out, prompt, text.Choices); err != nil {
		return Result{}, wrap(op, KindFileIO, err)
	}
	slog.Info("transcript appended", "path", out, "lines", len(text.Choices)+1)
	return Result{Name: filepath.Base(out), Path: out}, nil
}

// Transcribe uploads the audio file and writes, prints or both the returned text
// depending on the configured speech output mode.
func (r *Runner) Transcribe(ctx context.Context, audioPath string) (Result, error) {
	const op = "speech transcribe"
	token, err := r.resolve(op)
	if err != nil {
		return Result{}, err
	}

	req := api.NewSpeechRequest(audioPath)
	if r.cfg.SpeechModel != "" {
		req.Model = r.cfg.SpeechModel
	}
	payload, err := req.Encode()
	if err != nil {
		return Result{}, wrap(op, KindFileIO, err)
	}
	res, err := r.send(ctx, op, api.AudioTranscriptionPath, token, payload)
	if err != nil {
		return Result{}, err
	}
	text, err := api.DecodeSpeech(res.Body)
	if err != nil {
		// Lossy text is still usable.
		slog.Warn("transcript was not valid UTF-8", "op", op, "err", wrap(op, KindEncoding, err))
	}
	slog.Info("response decoded", "op", op, "chars", len(text))

	mode := r.cfg.SpeechOutput
	if mode == "" {
		mode = config.SpeechOutputFile
	}
	result := Result{Name: paths.TextOutName(audioPath)}
	if mode == config.SpeechOutputPrint || mode == config.SpeechOutputBoth {
		if _, err := io.WriteString(r.stdout, ensureNewline(text)); err != nil {
			return Result{}, wrap(op, KindFileIO, err)
		}
		result.Content = []byte(text)
	}
	if mode == config.SpeechOutputFile || mode == config.SpeechOutputBoth {
		out := r.paths.SpeechText(audioPath)
		if err := r.writeFile(out, []byte(text)); err != nil {
			return Result{}, wrap(op, KindFileIO, err)
		}
		slog.Info("transcript written", "path", out, "bytes", len(text))
		result.Path = out
	}
	return result, nil
}

func (r *Runner) resolve(op string) (string, error) {
	if r.creds == nil {
		return "", &Error{Kind: KindMissingCredential, Op: op, Err: errors.New("no credential resolver")}
	}
	token, err := r.creds.Resolve()
	if err != nil {
		return "", wrap(op, KindMissingCredential, err)
	}
	return token, nil
}

// send performs the single request for op. Any non-2xx status aborts the run.
func (r *Runner) send(ctx context.Context, op, path, token string, payload api.Payload) (*transport.Response, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	req := transport.NewRequest(http.MethodPost, r.cfg.BaseURL, path, token, payload.ContentType, payload.Body)
	slog.Debug("sending request", "op", op, "url", req.URL(), "bytes", len(payload.Body))
	res, err := r.transport.Send(ctx, req)
	if err != nil {
		return nil, wrap(op, KindTransport, err)
	}
	if len(res.Stderr) > 0 {
		slog.Debug("transport diagnostics", "op", op, "stderr", strings.TrimSpace(string(res.Stderr)))
	}
	if !res.OK() {
		return nil, &Error{
			Kind: KindTransport,
			Op:   op,
			Err:  fmt.Errorf("status %d: %s", res.StatusCode, api.DecodeAPIError(res.Body)),
		}
	}
	slog.Info("engine returned a healthy response", "op", op, "status", res.StatusCode)
	return res, nil
}

func (r *Runner) download(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	return transport.Download(ctx, r.fetcher, url)
}

func (r *Runner) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := r.cfg.Timeout
	if timeout <= 0 {
		timeout = config.DefaultTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

// writeFile creates or truncates path.
func (r *Runner) writeFile(path string, data []byte) error {
	if err := r.paths.EnsureOutDir(); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (r *Runner) appendTranscript(path, prompt string, choices []api.CompletionChoice) error {
	if err := r.paths.EnsureOutDir(); err != nil {
		return err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "user ::: %s\n", oneLine(prompt))
	for _, c := range choices {
		fmt.Fprintf(&b, "%s ::: %s\n", c.Message.Role, oneLine(c.Message.Content))
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(b.String()); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Each transcript entry is one line; embedded line breaks are escaped.
var lineEscaper = strings.NewReplacer("\r\n", `\n`, "\n", `\n`, "\r", `\r`)

func oneLine(s string) string {
	return lineEscaper.Replace(s)
}

func ensureNewline(s string) string {
	if strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}
