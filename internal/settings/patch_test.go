package settings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePatchKeepsDocumentOrder(t *testing.T) {
	p, err := ParsePatch([]byte(`{"theme":"light","showTerminalOutput":false,"accentColor":"#00FF00"}`))
	require.NoError(t, err)
	assert.Equal(t, []Key{KeyTheme, KeyShowTerminalOutput, KeyAccentColor}, p.Keys())
	assert.Equal(t, false, p[1].Value)
}

func TestParsePatchDuplicateKeepsFirstPosition(t *testing.T) {
	p, err := ParsePatch([]byte(`{"theme":"light","customCSS":"a","theme":"dark"}`))
	require.NoError(t, err)
	assert.Equal(t, Patch{{KeyTheme, "dark"}, {KeyCustomCSS, "a"}}, p)
}

func TestParsePatchEmpty(t *testing.T) {
	p, err := ParsePatch([]byte(`{}`))
	require.NoError(t, err)
	assert.Empty(t, p)
}

func TestParsePatchErrors(t *testing.T) {
	cases := map[string]struct {
		in  string
		err error
	}{
		"not an object": {in: `["theme"]`},
		"truncated":     {in: `{"theme":`},
		"trailing":      {in: `{"theme":"light"} {}`},
		"unknown key":   {in: `{"volume":11}`, err: ErrUnknownKey},
		"wrong type":    {in: `{"useSystemTheme":"yes"}`, err: ErrInvalidValue},
		"null value":    {in: `{"theme":null}`, err: ErrInvalidValue},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParsePatch([]byte(tc.in))
			require.Error(t, err)
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)
			}
		})
	}
}

func TestParseYAMLPatch(t *testing.T) {
	p, err := ParseYAMLPatch([]byte("useSystemTheme: false\ntheme: light\ninstallLocation: /games/fnf\n"))
	require.NoError(t, err)
	assert.Equal(t, Patch{
		{KeyUseSystemTheme, false},
		{KeyTheme, "light"},
		{KeyInstallLocation, "/games/fnf"},
	}, p)
}

func TestParseYAMLPatchErrors(t *testing.T) {
	_, err := ParseYAMLPatch([]byte("volume: 11\n"))
	assert.ErrorIs(t, err, ErrUnknownKey)

	_, err = ParseYAMLPatch([]byte("customCSS: 12\n"))
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestPatchSet(t *testing.T) {
	p := Patch{}.Set(KeyTheme, "light").Set(KeyCustomCSS, "").Set(KeyTheme, "dark")
	assert.Equal(t, []Key{KeyTheme, KeyCustomCSS}, p.Keys())
	assert.Equal(t, "dark", p[0].Value)
}

func TestPatchMarshalJSONKeepsOrder(t *testing.T) {
	p := Patch{{KeyValidateFnfMods, false}, {KeyAccentColor, "#000"}}
	b, err := p.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"validateFnfMods":false,"accentColor":"#000"}`, string(b))

	back, err := ParsePatch(b)
	require.NoError(t, err)
	assert.Equal(t, p, back)

	b, err = Patch{}.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(b))
}
