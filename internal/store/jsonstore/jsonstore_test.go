package jsonstore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalambet/fnfsettings/internal/store"
)

var ctx = context.Background()

func tempPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "nested", "settings.json")
}

func TestOpenMissingFileIsEmpty(t *testing.T) {
	s, err := Open(tempPath(t), store.Options{AutoPersist: true})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	_, ok, err := s.Get(ctx, "theme")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOpenEmptyFileIsEmpty(t *testing.T) {
	path := tempPath(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
	require.NoError(t, os.WriteFile(path, []byte("  \n"), 0o600))

	s, err := Open(path, store.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	_, ok, err := s.Get(ctx, "theme")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOpenCorruptDocument(t *testing.T) {
	for name, content := range map[string]string{
		"truncated": `{"theme": "da`,
		"array":     `["theme"]`,
	} {
		t.Run(name, func(t *testing.T) {
			path := tempPath(t)
			require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
			require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

			_, err := Open(path, store.Options{AutoPersist: true})
			require.Error(t, err)
			assert.ErrorIs(t, err, store.ErrOpen)
		})
	}
}

func TestOpenerReturnsNilInterfaceOnError(t *testing.T) {
	path := tempPath(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o600))

	s, err := Opener().Open(ctx, path, store.Options{})
	require.Error(t, err)
	assert.Nil(t, s)
}

// TestAutoPersistWritesThrough verifies every Set is visible to a fresh Open
// without calling Save.
func TestAutoPersistWritesThrough(t *testing.T) {
	path := tempPath(t)

	s, err := Open(path, store.Options{AutoPersist: true})
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "theme", json.RawMessage(`"light"`)))
	require.NoError(t, s.Set(ctx, "useSystemTheme", json.RawMessage(`false`)))

	reopened, err := Open(path, store.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { reopened.Close() })

	v, ok, err := reopened.Get(ctx, "theme")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `"light"`, string(v))

	v, ok, err = reopened.Get(ctx, "useSystemTheme")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `false`, string(v))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestWithoutAutoPersistHoldsUntilSave(t *testing.T) {
	path := tempPath(t)

	s, err := Open(path, store.Options{})
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "theme", json.RawMessage(`"light"`)))

	_, err = os.Stat(path)
	assert.ErrorIs(t, err, os.ErrNotExist, "document written before Save")

	require.NoError(t, s.Save(ctx))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"theme":"light"}`, string(data))
}

func TestCloseFlushesPendingChanges(t *testing.T) {
	path := tempPath(t)

	s, err := Open(path, store.Options{})
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "customCSS", json.RawMessage(`"body{}"`)))
	require.NoError(t, s.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"customCSS":"body{}"}`, string(data))

	_, _, err = s.Get(ctx, "customCSS")
	assert.ErrorIs(t, err, store.ErrRead)
	assert.ErrorIs(t, s.Set(ctx, "customCSS", json.RawMessage(`""`)), store.ErrWrite)
}

func TestClearRemovesEverything(t *testing.T) {
	path := tempPath(t)

	s, err := Open(path, store.Options{AutoPersist: true})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	require.NoError(t, s.Set(ctx, "accentColor", json.RawMessage(`"#000000"`)))
	require.NoError(t, s.Clear(ctx))

	_, ok, err := s.Get(ctx, "accentColor")
	require.NoError(t, err)
	assert.False(t, ok)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(data))
}

func TestNullIsAbsent(t *testing.T) {
	path := tempPath(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
	require.NoError(t, os.WriteFile(path, []byte(`{"theme":null}`), 0o600))

	s, err := Open(path, store.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	_, ok, err := s.Get(ctx, "theme")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUnknownKeysPreserved(t *testing.T) {
	path := tempPath(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
	require.NoError(t, os.WriteFile(path, []byte(`{"windowSize":{"w":800,"h":600}}`), 0o600))

	s, err := Open(path, store.Options{AutoPersist: true})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Set(ctx, "theme", json.RawMessage(`"light"`)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"windowSize":{"w":800,"h":600},"theme":"light"}`, string(data))
}

func TestSetRejectsInvalidJSON(t *testing.T) {
	s, err := Open(tempPath(t), store.Options{AutoPersist: true})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	err = s.Set(ctx, "theme", json.RawMessage(`light`))
	assert.ErrorIs(t, err, store.ErrWrite)
}

func TestKeysWithPathCharacters(t *testing.T) {
	s, err := Open(tempPath(t), store.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	require.NoError(t, s.Set(ctx, "a.b", json.RawMessage(`1`)))

	v, ok, err := s.Get(ctx, "a.b")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "1", string(v))

	_, ok, err = s.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok, "dotted key must not create a nested object")
}

func TestCancelledContext(t *testing.T) {
	s, err := Open(tempPath(t), store.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	cctx, cancel := context.WithCancel(ctx)
	cancel()

	_, _, err = s.Get(cctx, "theme")
	assert.ErrorIs(t, err, store.ErrRead)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, s.Set(cctx, "theme", json.RawMessage(`"x"`)), store.ErrWrite)
	assert.ErrorIs(t, s.Clear(cctx), store.ErrWrite)
}

func TestEscapeKey(t *testing.T) {
	assert.Equal(t, "theme", escapeKey("theme"))
	assert.Equal(t, `a\.b`, escapeKey("a.b"))
	assert.Equal(t, `x\*\?`, escapeKey("x*?"))
}
