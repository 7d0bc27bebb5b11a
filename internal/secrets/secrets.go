// Package secrets resolves credential references of the form
// scheme:name into token values. Configuration files carry only the
// reference; the value is fetched at publish time and is never logged.
package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/lifio/readlif/internal/errors"
)

// Reference schemes.
const (
	SchemeEnv            = "env"
	SchemeSecretsManager = "secretsmanager"
	SchemeSSM            = "ssm"
)

// Ref is a parsed credential reference. It carries where a token lives,
// never the token itself, so it is safe to log.
type Ref struct {
	Scheme string
	Name   string
}

// String returns the reference in its scheme:name form.
func (r Ref) String() string {
	return r.Scheme + ":" + r.Name
}

// ParseRef parses a scheme:name credential reference.
func ParseRef(s string) (Ref, error) {
	scheme, name, ok := strings.Cut(s, ":")
	if !ok || name == "" {
		return Ref{}, fmt.Errorf("invalid token reference %q: expected scheme:name", s)
	}
	switch scheme {
	case SchemeEnv, SchemeSecretsManager, SchemeSSM:
		return Ref{Scheme: scheme, Name: name}, nil
	default:
		return Ref{}, fmt.Errorf("unknown token scheme %q (known: env, secretsmanager, ssm)", scheme)
	}
}

// Source fetches a token value by name within one scheme.
type Source interface {
	Resolve(ctx context.Context, name string) (string, error)
}

// EnvSource resolves tokens from process environment variables.
type EnvSource struct{}

func (EnvSource) Resolve(_ context.Context, name string) (string, error) {
	value := os.Getenv(name)
	if value == "" {
		return "", fmt.Errorf("%w: environment variable %s is not set", errors.ErrTokenMissing, name)
	}
	return value, nil
}
