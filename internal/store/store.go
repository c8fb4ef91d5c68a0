// Package store defines the durable key-value capability the settings
// service is built on, and the sentinel errors its implementations wrap.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrOpen is wrapped by every error returned from Opener.Open.
	ErrOpen = errors.New("store open failed")
	// ErrRead is wrapped by read failures.
	ErrRead = errors.New("store read failed")
	// ErrWrite is wrapped by write and clear failures.
	ErrWrite = errors.New("store write failed")
)

// Options controls how a store is opened.
type Options struct {
	// AutoPersist makes every Set and Clear durable before it returns.
	AutoPersist bool
}

// Store is an open handle to a key-value store. Values are raw JSON.
type Store interface {
	// Get returns the raw value for key. ok is false when the key is absent
	// or holds JSON null.
	Get(ctx context.Context, key string) (val json.RawMessage, ok bool, err error)
	Set(ctx context.Context, key string, val json.RawMessage) error
	// Clear removes every entry.
	Clear(ctx context.Context) error
	Close() error
}

// Opener opens a store identified by a path or namespace.
type Opener interface {
	Open(ctx context.Context, path string, opts Options) (Store, error)
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(ctx context.Context, path string, opts Options) (Store, error)

func (f OpenerFunc) Open(ctx context.Context, path string, opts Options) (Store, error) {
	return f(ctx, path, opts)
}

// OpenError wraps cause so that it matches ErrOpen.
func OpenError(path string, cause error) error {
	return fmt.Errorf("%w: %s: %w", ErrOpen, path, cause)
}

// ReadError wraps cause so that it matches ErrRead.
func ReadError(key string, cause error) error {
	return fmt.Errorf("%w: %s: %w", ErrRead, key, cause)
}

// WriteError wraps cause so that it matches ErrWrite. key may be empty for
// whole-store operations.
func WriteError(key string, cause error) error {
	if key == "" {
		return fmt.Errorf("%w: %w", ErrWrite, cause)
	}
	return fmt.Errorf("%w: %s: %w", ErrWrite, key, cause)
}
