package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	cfgpkg "synthbrain/internal/config"
	"synthbrain/internal/pipeline"
	"synthbrain/internal/transport"
)

// set up slog logger according to level; defaults to info.
// Logs go to stderr so printed transcripts own stdout.
func setupLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	h := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	logger := slog.New(h)
	slog.SetDefault(logger)
	return logger
}

// Global flags shared by every subcommand.
type commonFlags struct {
	config    string
	envFile   string
	logLevel  string
	transport string
	timeout   time.Duration
	outDir    string
	publish   bool
}

func addCommonFlags(cmd *cobra.Command, cf *commonFlags) {
	fs := cmd.PersistentFlags()
	fs.StringVar(&cf.config, "config", "synthbrain.json", "Path to config file (.json, .yaml or .yml)")
	fs.StringVar(&cf.envFile, "env-file", ".env", "Path to a .env file loaded before reading the environment")
	fs.StringVar(&cf.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	fs.StringVar(&cf.transport, "transport", cfgpkg.TransportHTTP, "Request transport: curl, http, sdk")
	fs.DurationVar(&cf.timeout, "timeout", cfgpkg.DefaultTimeout, "Timeout for each network call")
	fs.StringVar(&cf.outDir, "out-dir", "", "Directory for output files (default: working directory)")
	fs.BoolVar(&cf.publish, "publish", false, "Upload the output artifact to S3")
}

// loadConfig merges file, env and the flags the user actually set.
// Failures come back as pipeline ConfigError.
func loadConfig(cmd *cobra.Command, cf *commonFlags, flagOv cfgpkg.Overrides) (cfgpkg.Config, error) {
	cfg, err := mergeConfig(cmd, cf, flagOv)
	if err != nil {
		return cfgpkg.Config{}, configError(err)
	}
	return cfg, nil
}

func mergeConfig(cmd *cobra.Command, cf *commonFlags, flagOv cfgpkg.Overrides) (cfgpkg.Config, error) {
	if err := cfgpkg.LoadDotEnv(cf.envFile); err != nil {
		return cfgpkg.Config{}, err
	}
	fileCfg, err := cfgpkg.LoadFile(cf.config)
	if err != nil {
		return cfgpkg.Config{}, err
	}
	envOv := cfgpkg.FromEnv()

	flags := cmd.Flags()
	if flags.Changed("transport") {
		flagOv.Transport = &cf.transport
	}
	if flags.Changed("timeout") {
		flagOv.Timeout = &cf.timeout
	}
	if flags.Changed("out-dir") {
		flagOv.OutDir = &cf.outDir
	}
	if flags.Changed("publish") {
		flagOv.Publish = &cf.publish
	}
	cfg := cfgpkg.Merge(fileCfg, envOv, flagOv)
	if err := cfgpkg.Validate(cfg); err != nil {
		return cfgpkg.Config{}, err
	}
	slog.Debug("config resolved", "transport", cfg.Transport, "timeout", cfg.Timeout.String(), "outDir", cfg.OutDir, "publish", cfg.Publish)
	return cfg, nil
}

var newTransport = func(cfg cfgpkg.Config) (transport.Transport, error) {
	client := &http.Client{Timeout: cfg.Timeout}
	switch cfg.Transport {
	case cfgpkg.TransportCurl:
		return transport.NewCurl(cfg.CurlPath), nil
	case cfgpkg.TransportHTTP:
		return transport.NewHTTP(transport.WithHTTPClient(client), transport.WithUserAgent("synthbrain/"+version)), nil
	case cfgpkg.TransportSDK:
		return transport.NewSDK(cfg.BaseURL, client), nil
	default:
		return nil, fmt.Errorf("%w: unsupported transport %q", cfgpkg.ErrConfig, cfg.Transport)
	}
}

// image downloads always go through net/http.
var newFetcher = func(cfg cfgpkg.Config) transport.Transport {
	return transport.NewHTTP(transport.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}))
}

func newRunner(cfg cfgpkg.Config) (*pipeline.Runner, error) {
	t, err := newTransport(cfg)
	if err != nil {
		return nil, configError(err)
	}
	creds := cfgpkg.EnvResolver{Name: cfg.APIKeyEnv}
	return pipeline.New(cfg, creds, t, pipeline.WithFetcher(newFetcher(cfg)), pipeline.WithStdout(os.Stdout)), nil
}

func configError(err error) error {
	return &pipeline.Error{Kind: pipeline.KindConfig, Op: "config", Err: err}
}

// pipelineError marks failures that happened after the command line was accepted.
type pipelineError struct {
	err error
}

func (e *pipelineError) Error() string { return e.err.Error() }
func (e *pipelineError) Unwrap() error { return e.err }

func failed(err error) error {
	if err == nil {
		return nil
	}
	return &pipelineError{err: err}
}

func warnUnknownOperation(cmd, op, want string) {
	slog.Warn("unknown operation; no request sent", "command", cmd, "operation", op, "supported", want)
}
