package storage

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Compile-time interface check.
var _ Backend = (*localBackend)(nil)

type localBackend struct {
	basePath string
}

// NewLocalBackend creates a Backend rooted at the given directory.
func NewLocalBackend(basePath string) Backend {
	return &localBackend{basePath: basePath}
}

// Name returns a human-readable description of the backend.
func (b *localBackend) Name() string {
	abs, err := filepath.Abs(b.basePath)
	if err != nil {
		abs = b.basePath
	}

	return fmt.Sprintf("local filesystem (%s)", abs)
}

// Validate ensures the base directory exists and is writable.
func (b *localBackend) Validate(_ context.Context) error {
	if err := os.MkdirAll(b.basePath, 0755); err != nil {
		return &Error{Kind: KindOther, Err: fmt.Errorf("creating base directory: %w", err)}
	}

	return nil
}

func (b *localBackend) resolve(key string) string {
	return filepath.Join(b.basePath, filepath.FromSlash(key))
}

// Put writes the payload to a file, creating parent directories as needed.
func (b *localBackend) Put(_ context.Context, key string, data []byte) (time.Duration, error) {
	path := b.resolve(key)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return 0, &Error{Kind: KindOther, Key: key, Err: err}
	}

	start := time.Now()

	if err := os.WriteFile(path, data, 0644); err != nil {
		return 0, &Error{Kind: KindOther, Key: key, Err: err}
	}

	return time.Since(start), nil
}

// Get reads the file content for the given key.
func (b *localBackend) Get(_ context.Context, key string) ([]byte, time.Duration, error) {
	start := time.Now()

	data, err := os.ReadFile(b.resolve(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, &Error{Kind: KindNotFound, Key: key, Err: err}
		}

		return nil, 0, &Error{Kind: KindOther, Key: key, Err: err}
	}

	return data, time.Since(start), nil
}

// Delete removes the file for the given key. Missing files are ignored.
func (b *localBackend) Delete(_ context.Context, key string) error {
	if err := os.Remove(b.resolve(key)); err != nil && !os.IsNotExist(err) {
		return &Error{Kind: KindOther, Key: key, Err: err}
	}

	return nil
}

// List returns all keys under the base directory with the given prefix.
func (b *localBackend) List(_ context.Context, prefix string) ([]string, error) {
	var keys []string

	err := filepath.WalkDir(b.basePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}

			return err
		}

		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(b.basePath, path)
		if err != nil {
			return err
		}

		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}

		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, &Error{Kind: KindOther, Err: fmt.Errorf("walking base directory: %w", err)}
	}

	return keys, nil
}
