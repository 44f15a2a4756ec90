package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrMissingCredential is returned when no bearer token can be resolved.
var ErrMissingCredential = errors.New("missing credential")

// Resolver supplies the bearer token for a run.
type Resolver interface {
	Resolve() (string, error)
}

// EnvResolver reads the token from a single environment variable.
type EnvResolver struct {
	Name string
}

func (r EnvResolver) Resolve() (string, error) {
	name := r.Name
	if name == "" {
		name = DefaultAPIKeyEnv
	}
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return "", fmt.Errorf("%w: %s is not set", ErrMissingCredential, name)
	}
	return v, nil
}

// StaticResolver returns a fixed token.
type StaticResolver string

func (r StaticResolver) Resolve() (string, error) {
	if strings.TrimSpace(string(r)) == "" {
		return "", ErrMissingCredential
	}
	return string(r), nil
}
