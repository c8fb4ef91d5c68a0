package settings

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDefaultsCoverRecord verifies the key table, the record struct and the
// default table describe the same set of keys.
func TestDefaultsCoverRecord(t *testing.T) {
	typ := reflect.TypeOf(Settings{})
	var tags []Key
	for i := 0; i < typ.NumField(); i++ {
		tags = append(tags, Key(typ.Field(i).Tag.Get("json")))
	}
	assert.ElementsMatch(t, tags, Keys())

	raw, err := json.Marshal(Defaults())
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	assert.Len(t, m, len(Keys()))
	for _, k := range Keys() {
		assert.Contains(t, m, string(k))
	}
}

func TestDefaultValues(t *testing.T) {
	d := Defaults()
	assert.Equal(t, "#FF0088", d.AccentColor)
	assert.Equal(t, `C:\Users\Public\Documents\FNF Mods`, d.InstallLocation)
	assert.Equal(t, "dark", d.Theme)
	assert.True(t, d.UseSystemTheme)
	assert.Equal(t, "", d.CustomCSS)
	assert.True(t, d.ValidateFnfMods)
	assert.True(t, d.ShowTerminalOutput)
}

func TestDefaultsReturnsCopy(t *testing.T) {
	d := Defaults()
	d.Theme = "light"
	assert.Equal(t, "dark", Defaults().Theme)
}

func TestApplyExtractRoundTrip(t *testing.T) {
	values := map[Kind]any{KindString: "x", KindEnum: "light", KindBool: false}
	for _, spec := range specs {
		var s Settings
		v := values[spec.kind]
		spec.apply(&s, v)
		assert.Equal(t, v, s.Value(spec.key), spec.key)
	}
}

func TestValueUnknownKey(t *testing.T) {
	assert.Nil(t, Defaults().Value("volume"))
}

func TestLookupKey(t *testing.T) {
	k, ok := LookupKey("theme")
	assert.True(t, ok)
	assert.Equal(t, KeyTheme, k)

	_, ok = LookupKey("Theme")
	assert.False(t, ok)
}

func TestKindOf(t *testing.T) {
	k, ok := KindOf(KeyUseSystemTheme)
	require.True(t, ok)
	assert.Equal(t, KindBool, k)

	k, ok = KindOf(KeyTheme)
	require.True(t, ok)
	assert.Equal(t, "enum", k.String())
}

func TestParseValue(t *testing.T) {
	v, err := ParseValue(KeyValidateFnfMods, "false")
	require.NoError(t, err)
	assert.Equal(t, false, v)

	v, err = ParseValue(KeyInstallLocation, "/home/me/fnf")
	require.NoError(t, err)
	assert.Equal(t, "/home/me/fnf", v)

	_, err = ParseValue(KeyShowTerminalOutput, "sometimes")
	assert.ErrorIs(t, err, ErrInvalidValue)

	_, err = ParseValue("volume", "11")
	assert.ErrorIs(t, err, ErrUnknownKey)
}

func TestDecode(t *testing.T) {
	spec, _ := lookup(KeyTheme)
	v, err := spec.decode(json.RawMessage(`"light"`))
	require.NoError(t, err)
	assert.Equal(t, "light", v)

	_, err = spec.decode(json.RawMessage(`true`))
	assert.Error(t, err)

	spec, _ = lookup(KeyUseSystemTheme)
	v, err = spec.decode(json.RawMessage(`false`))
	require.NoError(t, err)
	assert.Equal(t, false, v)
}
