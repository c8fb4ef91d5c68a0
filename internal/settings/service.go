// Package settings provides typed access to the persisted application
// settings record.
//
// Reads never fail: a missing, unreadable or undecodable value resolves to
// its default and the failure is logged. Writes always report failure so the
// caller knows a change did not persist.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/kalambet/fnfsettings/internal/store"
)

var (
	// ErrInitialization is wrapped when the store could not be opened. The
	// next operation retries the open.
	ErrInitialization = errors.New("settings store initialization failed")
	// ErrStoreUnavailable is returned by writes when no store handle exists.
	ErrStoreUnavailable = errors.New("settings store not initialized")
	// ErrUnknownKey is returned for keys outside the settings record.
	ErrUnknownKey = errors.New("unknown setting key")
	// ErrInvalidValue is returned when a value has the wrong type for its key.
	ErrInvalidValue = errors.New("invalid setting value")
)

// Service is the settings facade. The store is opened on first use and kept
// until Close.
type Service struct {
	opener store.Opener
	path   string
	logger *slog.Logger

	open   singleflight.Group
	mu     sync.RWMutex
	handle store.Store
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger used for read fallbacks and write failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// New returns a Service that opens path through opener on first use.
func New(opener store.Opener, path string, opts ...Option) *Service {
	s := &Service{
		opener: opener,
		path:   path,
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Path returns the store location passed to New.
func (s *Service) Path() string { return s.path }

func (s *Service) current() store.Store {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.handle
}

// EnsureReady opens the store if it is not open yet. Concurrent callers
// share a single open. A failed open is returned wrapped in
// ErrInitialization and retried by the next caller.
func (s *Service) EnsureReady(ctx context.Context) error {
	_, err := s.ensureReady(ctx)
	return err
}

// ensureReady returns the store handle. A nil handle with a nil error means
// the opener produced no store.
func (s *Service) ensureReady(ctx context.Context) (store.Store, error) {
	if h := s.current(); h != nil {
		return h, nil
	}

	v, err, _ := s.open.Do("open", func() (any, error) {
		if h := s.current(); h != nil {
			return h, nil
		}
		h, err := s.opener.Open(ctx, s.path, store.Options{AutoPersist: true})
		if err != nil {
			return nil, err
		}
		if h == nil {
			return nil, nil
		}
		s.mu.Lock()
		s.handle = h
		s.mu.Unlock()
		s.logger.Info("settings store initialized", "path", s.path)
		return h, nil
	})
	if err != nil {
		s.logger.Error("failed to initialize settings store", "path", s.path, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrInitialization, err)
	}
	h, _ := v.(store.Store)
	return h, nil
}

// readable returns the handle for a read, or nil when reads must fall back
// to defaults. Failures are logged, never returned.
func (s *Service) readable(ctx context.Context) store.Store {
	h, err := s.ensureReady(ctx)
	if err != nil {
		return nil
	}
	if h == nil {
		s.logger.Error("settings store not initialized", "path", s.path)
	}
	return h
}

// writable returns the handle for a write or the error the caller must see.
func (s *Service) writable(ctx context.Context) (store.Store, error) {
	h, err := s.ensureReady(ctx)
	if err != nil {
		return nil, err
	}
	if h == nil {
		s.logger.Error("settings store not initialized", "path", s.path)
		return nil, ErrStoreUnavailable
	}
	return h, nil
}

// GetSetting returns the stored value for key, or its default. The result is
// a string or a bool according to the key's kind; an unknown key yields nil.
func (s *Service) GetSetting(ctx context.Context, key Key) any {
	spec, ok := lookup(key)
	if !ok {
		s.logger.Warn("unknown setting key", "key", key)
		return nil
	}
	def := spec.extract(Defaults())

	h := s.readable(ctx)
	if h == nil {
		return def
	}

	raw, ok, err := h.Get(ctx, string(key))
	if err != nil {
		s.logger.Warn("failed to get setting, using default", "key", key, "error", err)
		return def
	}
	if !ok {
		return def
	}

	v, err := spec.decode(raw)
	if err != nil {
		s.logger.Warn("stored setting has wrong type, using default", "key", key, "error", err)
		return def
	}
	return v
}

// GetAllSettings returns the full record with stored values laid over the
// defaults. Any failure returns the defaults for every key.
func (s *Service) GetAllSettings(ctx context.Context) Settings {
	h := s.readable(ctx)
	if h == nil {
		return Defaults()
	}

	out := Defaults()
	for _, spec := range specs {
		raw, ok, err := h.Get(ctx, string(spec.key))
		if err != nil {
			s.logger.Warn("failed to get all settings, using defaults", "key", spec.key, "error", err)
			return Defaults()
		}
		if !ok {
			continue
		}
		v, err := spec.decode(raw)
		if err != nil {
			s.logger.Warn("failed to get all settings, using defaults", "key", spec.key, "error", err)
			return Defaults()
		}
		spec.apply(&out, v)
	}
	return out
}

// SaveSetting persists value under key.
func (s *Service) SaveSetting(ctx context.Context, key Key, value any) error {
	h, err := s.writable(ctx)
	if err != nil {
		return err
	}

	raw, err := encode(key, value)
	if err != nil {
		return err
	}
	if err := h.Set(ctx, string(key), raw); err != nil {
		s.logger.Error("failed to save setting", "key", key, "error", err)
		return fmt.Errorf("saving setting %s: %w", key, err)
	}
	return nil
}

// SaveSettings persists each entry of p in order. The batch is not atomic:
// when a write fails, earlier entries stay saved and later ones are not
// attempted. The patch is type-checked before anything is written.
func (s *Service) SaveSettings(ctx context.Context, p Patch) error {
	h, err := s.writable(ctx)
	if err != nil {
		return err
	}

	raws := make([]json.RawMessage, len(p))
	for i, e := range p {
		raw, err := encode(e.Key, e.Value)
		if err != nil {
			return err
		}
		raws[i] = raw
	}

	for i, e := range p {
		if err := h.Set(ctx, string(e.Key), raws[i]); err != nil {
			s.logger.Error("failed to save settings", "key", e.Key, "applied", i, "total", len(p), "error", err)
			return fmt.Errorf("saving settings (%d of %d applied): %w", i, len(p), err)
		}
	}
	return nil
}

// ClearSettings removes every persisted value. Later reads return defaults.
func (s *Service) ClearSettings(ctx context.Context) error {
	h, err := s.writable(ctx)
	if err != nil {
		return err
	}
	if err := h.Clear(ctx); err != nil {
		s.logger.Error("failed to clear settings", "error", err)
		return fmt.Errorf("clearing settings: %w", err)
	}
	return nil
}

// Close releases the store handle. A later operation opens it again.
func (s *Service) Close() error {
	s.mu.Lock()
	h := s.handle
	s.handle = nil
	s.mu.Unlock()

	if h == nil {
		return nil
	}
	return h.Close()
}

func encode(key Key, value any) (json.RawMessage, error) {
	spec, ok := lookup(key)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	if err := spec.check(value); err != nil {
		return nil, err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", key, err)
	}
	return raw, nil
}
