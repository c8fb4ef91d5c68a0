// Package jsonstore keeps a flat key-value store in a single JSON document on
// disk. Top-level keys are read and written in place with gjson/sjson so that
// unknown keys written by other tools survive untouched.
package jsonstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"

	"github.com/kalambet/fnfsettings/internal/store"
)

var (
	errClosed      = errors.New("store is closed")
	errNotObject   = errors.New("document is not a JSON object")
	errInvalidJSON = errors.New("value is not valid JSON")
)

var emptyDoc = []byte("{}")

// Store is a JSON-document key-value store. It is safe for concurrent use.
type Store struct {
	path        string
	autoPersist bool

	mu     sync.Mutex
	doc    []byte
	dirty  bool
	closed bool
}

// Opener returns a store.Opener that opens JSON documents.
func Opener() store.Opener {
	return store.OpenerFunc(func(_ context.Context, path string, opts store.Options) (store.Store, error) {
		s, err := Open(path, opts)
		if err != nil {
			return nil, err
		}
		return s, nil
	})
}

// Open loads the document at path. A missing or empty file opens as an empty
// store; the parent directory is created so that permission problems surface
// here rather than on the first write.
func Open(path string, opts store.Options) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, store.OpenError(path, fmt.Errorf("creating directory: %w", err))
	}

	doc, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		doc = emptyDoc
	case err != nil:
		return nil, store.OpenError(path, err)
	case len(bytes.TrimSpace(doc)) == 0:
		doc = emptyDoc
	case !gjson.ValidBytes(doc) || !gjson.ParseBytes(doc).IsObject():
		return nil, store.OpenError(path, errNotObject)
	}

	return &Store{
		path:        path,
		autoPersist: opts.AutoPersist,
		doc:         doc,
	}, nil
}

// Path returns the document location.
func (s *Store) Path() string { return s.path }

func (s *Store) Get(ctx context.Context, key string) (json.RawMessage, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, store.ReadError(key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, false, store.ReadError(key, errClosed)
	}

	r := gjson.GetBytes(s.doc, escapeKey(key))
	if !r.Exists() || r.Type == gjson.Null {
		return nil, false, nil
	}
	return json.RawMessage(r.Raw), true, nil
}

func (s *Store) Set(ctx context.Context, key string, val json.RawMessage) error {
	if err := ctx.Err(); err != nil {
		return store.WriteError(key, err)
	}
	if !gjson.ValidBytes(val) {
		return store.WriteError(key, errInvalidJSON)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return store.WriteError(key, errClosed)
	}

	next, err := sjson.SetRawBytes(bytes.Clone(s.doc), escapeKey(key), val)
	if err != nil {
		return store.WriteError(key, err)
	}
	if err := s.commit(next); err != nil {
		return store.WriteError(key, err)
	}
	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return store.WriteError("", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return store.WriteError("", errClosed)
	}

	if err := s.commit(emptyDoc); err != nil {
		return store.WriteError("", err)
	}
	return nil
}

// Save writes pending changes to disk. It is a no-op when nothing changed,
// which is always the case for stores opened with AutoPersist.
func (s *Store) Save(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return store.WriteError("", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return store.WriteError("", errClosed)
	}
	if err := s.flush(); err != nil {
		return store.WriteError("", err)
	}
	return nil
}

// Close flushes pending changes and releases the store.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.flush(); err != nil {
		return store.WriteError("", err)
	}
	return nil
}

// commit installs next as the current document. With auto-persist the
// document is written first and the in-memory copy only changes on success.
// Callers hold s.mu.
func (s *Store) commit(next []byte) error {
	if !s.autoPersist {
		s.doc = next
		s.dirty = true
		return nil
	}
	if err := writeFile(s.path, next); err != nil {
		return err
	}
	s.doc = next
	s.dirty = false
	return nil
}

func (s *Store) flush() error {
	if !s.dirty {
		return nil
	}
	if err := writeFile(s.path, s.doc); err != nil {
		return err
	}
	s.dirty = false
	return nil
}

// writeFile replaces path atomically with an indented rendering of doc.
func writeFile(path string, doc []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(pretty.Pretty(doc)); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

// escapeKey turns a literal top-level key into a gjson/sjson path.
func escapeKey(key string) string {
	if !strings.ContainsAny(key, `\.*?|#@`) {
		return key
	}
	var b strings.Builder
	b.Grow(len(key) + 4)
	for _, r := range key {
		switch r {
		case '\\', '.', '*', '?', '|', '#', '@':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
