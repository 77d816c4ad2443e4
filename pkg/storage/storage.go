package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethpandaops/storebenchoor/pkg/config"
	"github.com/sirupsen/logrus"
)

// Backend provides a uniform capability set over named objects, implemented
// by an S3-compatible variant and a local-filesystem variant. Put and Get
// measure wall-clock time for the operation only; connection setup is
// amortized across the backend's lifetime. Retries are the caller's
// responsibility so that retry counts stay observable in metrics.
type Backend interface {
	// Name returns a human-readable description of the backend.
	Name() string

	// Put writes the payload under key and returns the operation duration.
	Put(ctx context.Context, key string, data []byte) (time.Duration, error)

	// Get reads the object under key and returns its content and the
	// operation duration.
	Get(ctx context.Context, key string) ([]byte, time.Duration, error)

	// Delete removes the object under key. Deleting a missing key is not
	// an error.
	Delete(ctx context.Context, key string) error

	// List returns all keys with the given prefix.
	List(ctx context.Context, prefix string) ([]string, error)

	// Validate checks that the backend is reachable and usable. Called
	// once per provider before any benchmark I/O.
	Validate(ctx context.Context) error
}

// ErrorKind classifies storage failures.
type ErrorKind string

// Storage error kinds.
const (
	KindNotFound ErrorKind = "not_found"
	KindAuth     ErrorKind = "auth"
	KindNetwork  ErrorKind = "network"
	KindTimeout  ErrorKind = "timeout"
	KindOther    ErrorKind = "other"
)

// Error is the error type returned by all backends.
type Error struct {
	Kind ErrorKind
	Key  string
	Err  error
}

func (e *Error) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("storage %s error for key %q: %v", e.Kind, e.Key, e.Err)
	}

	return fmt.Sprintf("storage %s error: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the classification of err, or KindOther for errors that
// did not originate in a backend.
func KindOf(err error) ErrorKind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}

	return KindOther
}

// IsNotFound reports whether err is a not-found storage error.
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

// New constructs the backend for the given provider configuration.
func New(log logrus.FieldLogger, provider *config.ProviderConfig, timeout time.Duration) (Backend, error) {
	switch provider.Type {
	case config.ProviderS3:
		return NewS3Backend(log, provider, timeout), nil
	case config.ProviderLocal:
		return NewLocalBackend(provider.BasePath), nil
	default:
		return nil, fmt.Errorf("unknown provider type %q", provider.Type)
	}
}
