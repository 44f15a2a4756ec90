package pipeline

import (
	"errors"
	"fmt"

	"synthbrain/internal/api"
	"synthbrain/internal/config"
	"synthbrain/internal/transport"
)

// Kind classifies a pipeline failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindMissingCredential
	KindSerialization
	KindTransport
	KindTimeout
	KindDecode
	KindEncoding
	KindFileIO
	KindConfig
)

func (k Kind) String() string {
	switch k {
	case KindMissingCredential:
		return "MissingCredential"
	case KindSerialization:
		return "SerializationError"
	case KindTransport:
		return "TransportFailure"
	case KindTimeout:
		return "Timeout"
	case KindDecode:
		return "DecodeError"
	case KindEncoding:
		return "EncodingError"
	case KindFileIO:
		return "FileIOError"
	case KindConfig:
		return "ConfigError"
	default:
		return "Unknown"
	}
}

// Sentinels for errors.Is; they match any *Error of the same kind.
var (
	ErrMissingCredential = &Error{Kind: KindMissingCredential}
	ErrSerialization     = &Error{Kind: KindSerialization}
	ErrTransport         = &Error{Kind: KindTransport}
	ErrTimeout           = &Error{Kind: KindTimeout}
	ErrDecode            = &Error{Kind: KindDecode}
	ErrEncoding          = &Error{Kind: KindEncoding}
	ErrFileIO            = &Error{Kind: KindFileIO}
	ErrConfig            = &Error{Kind: KindConfig}
)

// Error is a classified failure from one pipeline step.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Op == "" || t.Op == e.Op)
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// wrap classifies err from the lower layers into an *Error.
func wrap(op string, fallback Kind, err error) error {
	if err == nil {
		return nil
	}
	var existing *Error
	if errors.As(err, &existing) {
		return err
	}
	kind := fallback
	switch {
	case errors.Is(err, config.ErrMissingCredential):
		kind = KindMissingCredential
	case errors.Is(err, config.ErrConfig):
		kind = KindConfig
	case errors.Is(err, api.ErrSerialization):
		kind = KindSerialization
	case errors.Is(err, transport.ErrTimeout):
		kind = KindTimeout
	case errors.Is(err, transport.ErrTransport):
		kind = KindTransport
	case errors.Is(err, api.ErrDecode):
		kind = KindDecode
	case errors.Is(err, api.ErrEncoding):
		kind = KindEncoding
	}
	return &Error{Kind: kind, Op: op, Err: err}
}
