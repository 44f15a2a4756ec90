package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultAPIKeyEnv      = "API_KEY"
	DefaultBaseURL        = "https://api.openai.com/v1"
	DefaultTranscriptName = "completion_responses.txt"
	DefaultTimeout        = 60 * time.Second
)

// Transport names accepted by Config.Transport.
const (
	TransportCurl = "curl"
	TransportHTTP = "http"
	TransportSDK  = "sdk"
)

// Speech output modes accepted by Config.SpeechOutput.
const (
	SpeechOutputFile  = "file"
	SpeechOutputPrint = "print"
	SpeechOutputBoth  = "both"
)

// ErrConfig marks a configuration that could not be loaded or is invalid.
var ErrConfig = errors.New("invalid configuration")

// Config holds resolved configuration values after merging file, env, and flags.
type Config struct {
	APIKeyEnv      string        `json:"apiKeyEnv,omitempty" yaml:"apiKeyEnv,omitempty"`
	BaseURL        string        `json:"baseURL,omitempty" yaml:"baseURL,omitempty"`
	Transport      string        `json:"transport,omitempty" yaml:"transport,omitempty"`
	CurlPath       string        `json:"curlPath,omitempty" yaml:"curlPath,omitempty"`
	Timeout        time.Duration `json:"-" yaml:"-"`
	TimeoutRaw     string        `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	OutDir         string        `json:"outDir,omitempty" yaml:"outDir,omitempty"`
	TranscriptName string        `json:"transcript,omitempty" yaml:"transcript,omitempty"`
	SpeechOutput   string        `json:"speechOutput,omitempty" yaml:"speechOutput,omitempty"`
	ImageSize      string        `json:"imageSize,omitempty" yaml:"imageSize,omitempty"`
	TextModel      string        `json:"textModel,omitempty" yaml:"textModel,omitempty"`
	Temperature    float64       `json:"temperature" yaml:"temperature"`
	SpeechModel    string        `json:"speechModel,omitempty" yaml:"speechModel,omitempty"`
	Publish        bool          `json:"publish,omitempty" yaml:"publish,omitempty"`
	S3Bucket       string        `json:"s3Bucket,omitempty" yaml:"s3Bucket,omitempty"`
	S3Prefix       string        `json:"s3Prefix,omitempty" yaml:"s3Prefix,omitempty"`
	Region         string        `json:"region,omitempty" yaml:"region,omitempty"`
}

// Overrides represents optional overrides from env or flags.
// Only non-nil pointers are applied during merge.
type Overrides struct {
	APIKeyEnv    *string
	BaseURL      *string
	Transport    *string
	Timeout      *time.Duration
	OutDir       *string
	SpeechOutput *string
	TextModel    *string
	Publish      *bool
	S3Bucket     *string
	S3Prefix     *string
	Region       *string
}

func Default() Config {
	return Config{
		APIKeyEnv:      DefaultAPIKeyEnv,
		BaseURL:        DefaultBaseURL,
		Transport:      TransportHTTP,
		CurlPath:       "curl",
		Timeout:        DefaultTimeout,
		TranscriptName: DefaultTranscriptName,
		SpeechOutput:   SpeechOutputFile,
		ImageSize:      "256x256",
		TextModel:      "gpt-3.5-turbo",
		Temperature:    0.7,
		SpeechModel:    "whisper-1",
		S3Prefix:       "synthbrain",
	}
}

// LoadFile reads a JSON or YAML config. If file not found, returns defaults and no error.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("%w: read config file: %w", ErrConfig, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &cfg)
	default:
		err = json.Unmarshal(b, &cfg)
	}
	if err != nil {
		return cfg, fmt.Errorf("%w: parse config file: %w", ErrConfig, err)
	}
	if cfg.TimeoutRaw != "" {
		d, err := time.ParseDuration(cfg.TimeoutRaw)
		if err != nil {
			return cfg, fmt.Errorf("%w: parse config timeout: %w", ErrConfig, err)
		}
		cfg.Timeout = d
	}
	return cfg, nil
}

// LoadDotEnv loads variables from a .env file without replacing ones already set.
// A missing file is ignored.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("%w: load %s: %w", ErrConfig, path, err)
	}
	return nil
}

// FromEnv reads env vars and returns overrides.
func FromEnv() Overrides {
	var ov Overrides

	if v, ok := os.LookupEnv("SYNTHBRAIN_API_KEY_ENV"); ok && v != "" {
		ov.APIKeyEnv = &[]string{v}[0]
	}
	if v, ok := os.LookupEnv("SYNTHBRAIN_BASE_URL"); ok {
		ov.BaseURL = &[]string{v}[0]
	}
	if v, ok := os.LookupEnv("SYNTHBRAIN_TRANSPORT"); ok {
		ov.Transport = &[]string{v}[0]
	}
	if v, ok := os.LookupEnv("SYNTHBRAIN_TIMEOUT"); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			ov.Timeout = &d
		}
	}
	if v, ok := os.LookupEnv("SYNTHBRAIN_OUT_DIR"); ok {
		ov.OutDir = &[]string{v}[0]
	}
	if v, ok := os.LookupEnv("SYNTHBRAIN_SPEECH_OUTPUT"); ok {
		ov.SpeechOutput = &[]string{v}[0]
	}
	if v, ok := os.LookupEnv("SYNTHBRAIN_TEXT_MODEL"); ok {
		ov.TextModel = &[]string{v}[0]
	}
	if v, ok := os.LookupEnv("SYNTHBRAIN_PUBLISH"); ok {
		if b, err := parseBool(v); err == nil {
			ov.Publish = &b
		}
	}
	if v, ok := os.LookupEnv("AWS_S3_BUCKET"); ok {
		ov.S3Bucket = &[]string{v}[0]
	}
	if v, ok := os.LookupEnv("AWS_S3_PREFIX"); ok {
		ov.S3Prefix = &[]string{v}[0]
	}
	if v, ok := os.LookupEnv("AWS_REGION"); ok {
		ov.Region = &[]string{v}[0]
	}
	return ov
}

func parseBool(s string) (bool, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return false, fmt.Errorf("empty bool")
	}
	if s == "1" || s == "t" || s == "true" || s == "y" || s == "yes" || s == "on" {
		return true, nil
	}
	if s == "0" || s == "f" || s == "false" || s == "n" || s == "no" || s == "off" {
		return false, nil
	}
	return strconv.ParseBool(s)
}

// Merge applies overrides in order: file -> env -> flags.
func Merge(fileCfg Config, env Overrides, flags Overrides) Config {
	cfg := fileCfg

	apply := func(ov Overrides) {
		if ov.APIKeyEnv != nil {
			cfg.APIKeyEnv = *ov.APIKeyEnv
		}
		if ov.BaseURL != nil {
			cfg.BaseURL = *ov.BaseURL
		}
		if ov.Transport != nil {
			cfg.Transport = *ov.Transport
		}
		if ov.Timeout != nil {
			cfg.Timeout = *ov.Timeout
		}
		if ov.OutDir != nil {
			cfg.OutDir = *ov.OutDir
		}
		if ov.SpeechOutput != nil {
			cfg.SpeechOutput = *ov.SpeechOutput
		}
		if ov.TextModel != nil {
			cfg.TextModel = *ov.TextModel
		}
		if ov.Publish != nil {
			cfg.Publish = *ov.Publish
		}
		if ov.S3Bucket != nil {
			cfg.S3Bucket = *ov.S3Bucket
		}
		if ov.S3Prefix != nil {
			cfg.S3Prefix = *ov.S3Prefix
		}
		if ov.Region != nil {
			cfg.Region = *ov.Region
		}
	}

	apply(env)
	apply(flags)

	cfg.Transport = strings.ToLower(strings.TrimSpace(cfg.Transport))
	cfg.SpeechOutput = strings.ToLower(strings.TrimSpace(cfg.SpeechOutput))
	return cfg
}

// Validate checks values that every subcommand depends on.
func Validate(cfg Config) error {
	switch cfg.Transport {
	case TransportCurl, TransportHTTP, TransportSDK:
	default:
		return fmt.Errorf("%w: unsupported transport %q (use curl, http or sdk)", ErrConfig, cfg.Transport)
	}
	switch cfg.SpeechOutput {
	case SpeechOutputFile, SpeechOutputPrint, SpeechOutputBoth:
	default:
		return fmt.Errorf("%w: unsupported speech output %q (use file, print or both)", ErrConfig, cfg.SpeechOutput)
	}
	if cfg.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive", ErrConfig)
	}
	if cfg.BaseURL == "" {
		return fmt.Errorf("%w: base URL is required", ErrConfig)
	}
	if cfg.APIKeyEnv == "" {
		return fmt.Errorf("%w: api key variable name is required", ErrConfig)
	}
	if cfg.Publish {
		return ValidateForPublish(cfg)
	}
	return nil
}

func ValidateForPublish(cfg Config) error {
	if cfg.S3Bucket == "" {
		return fmt.Errorf("%w: S3 bucket is required for publish", ErrConfig)
	}
	if cfg.Region == "" {
		return fmt.Errorf("%w: AWS region is required for publish", ErrConfig)
	}
	return nil
}
