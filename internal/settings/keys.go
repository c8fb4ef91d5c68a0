package settings

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Key names one field of the settings record.
type Key string

const (
	KeyAccentColor        Key = "accentColor"
	KeyInstallLocation    Key = "installLocation"
	KeyTheme              Key = "theme"
	KeyUseSystemTheme     Key = "useSystemTheme"
	KeyCustomCSS          Key = "customCSS"
	KeyValidateFnfMods    Key = "validateFnfMods"
	KeyShowTerminalOutput Key = "showTerminalOutput"
)

// Theme values understood by the UI. The set is open; other strings are
// stored as given.
const (
	ThemeDark  = "dark"
	ThemeLight = "light"
)

// Kind is the declared type of a setting value.
type Kind int

const (
	KindString Kind = iota
	KindBool
	KindEnum
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindEnum:
		return "enum"
	default:
		return "unknown"
	}
}

// Settings is the complete settings record.
type Settings struct {
	AccentColor        string `json:"accentColor" yaml:"accentColor"`
	InstallLocation    string `json:"installLocation" yaml:"installLocation"`
	Theme              string `json:"theme" yaml:"theme"`
	UseSystemTheme     bool   `json:"useSystemTheme" yaml:"useSystemTheme"`
	CustomCSS          string `json:"customCSS" yaml:"customCSS"`
	ValidateFnfMods    bool   `json:"validateFnfMods" yaml:"validateFnfMods"`
	ShowTerminalOutput bool   `json:"showTerminalOutput" yaml:"showTerminalOutput"`
}

// Defaults returns the default settings record.
func Defaults() Settings {
	return Settings{
		AccentColor:        "#FF0088",
		InstallLocation:    `C:\Users\Public\Documents\FNF Mods`,
		Theme:              ThemeDark,
		UseSystemTheme:     true,
		CustomCSS:          "",
		ValidateFnfMods:    true,
		ShowTerminalOutput: true,
	}
}

// Value returns the field for key, or nil for an unknown key.
func (s Settings) Value(key Key) any {
	spec, ok := lookup(key)
	if !ok {
		return nil
	}
	return spec.extract(s)
}

type keySpec struct {
	key     Key
	kind    Kind
	apply   func(s *Settings, v any)
	extract func(s Settings) any
}

var specs = []keySpec{
	{
		key: KeyAccentColor, kind: KindString,
		apply:   func(s *Settings, v any) { s.AccentColor = v.(string) },
		extract: func(s Settings) any { return s.AccentColor },
	},
	{
		key: KeyInstallLocation, kind: KindString,
		apply:   func(s *Settings, v any) { s.InstallLocation = v.(string) },
		extract: func(s Settings) any { return s.InstallLocation },
	},
	{
		key: KeyTheme, kind: KindEnum,
		apply:   func(s *Settings, v any) { s.Theme = v.(string) },
		extract: func(s Settings) any { return s.Theme },
	},
	{
		key: KeyUseSystemTheme, kind: KindBool,
		apply:   func(s *Settings, v any) { s.UseSystemTheme = v.(bool) },
		extract: func(s Settings) any { return s.UseSystemTheme },
	},
	{
		key: KeyCustomCSS, kind: KindString,
		apply:   func(s *Settings, v any) { s.CustomCSS = v.(string) },
		extract: func(s Settings) any { return s.CustomCSS },
	},
	{
		key: KeyValidateFnfMods, kind: KindBool,
		apply:   func(s *Settings, v any) { s.ValidateFnfMods = v.(bool) },
		extract: func(s Settings) any { return s.ValidateFnfMods },
	},
	{
		key: KeyShowTerminalOutput, kind: KindBool,
		apply:   func(s *Settings, v any) { s.ShowTerminalOutput = v.(bool) },
		extract: func(s Settings) any { return s.ShowTerminalOutput },
	},
}

func lookup(key Key) (keySpec, bool) {
	for _, s := range specs {
		if s.key == key {
			return s, true
		}
	}
	return keySpec{}, false
}

// Keys returns every settings key in declaration order.
func Keys() []Key {
	keys := make([]Key, len(specs))
	for i, s := range specs {
		keys[i] = s.key
	}
	return keys
}

// LookupKey resolves a key name.
func LookupKey(name string) (Key, bool) {
	spec, ok := lookup(Key(name))
	return spec.key, ok
}

// KindOf returns the declared kind of key.
func KindOf(key Key) (Kind, bool) {
	spec, ok := lookup(key)
	return spec.kind, ok
}

// ParseValue converts a command-line string to the typed value for key.
func ParseValue(key Key, raw string) (any, error) {
	spec, ok := lookup(key)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	if spec.kind == KindBool {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s expects a bool: %w", ErrInvalidValue, key, err)
		}
		return b, nil
	}
	return raw, nil
}

// check reports whether v has the Go type stored under s.key.
func (s keySpec) check(v any) error {
	switch s.kind {
	case KindBool:
		if _, ok := v.(bool); ok {
			return nil
		}
	default:
		if _, ok := v.(string); ok {
			return nil
		}
	}
	return fmt.Errorf("%w: %s expects a %s, got %T", ErrInvalidValue, s.key, s.kind, v)
}

// decode converts a stored raw value to the Go type for s.key.
func (s keySpec) decode(raw json.RawMessage) (any, error) {
	switch s.kind {
	case KindBool:
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", s.key, err)
		}
		return b, nil
	default:
		var str string
		if err := json.Unmarshal(raw, &str); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", s.key, err)
		}
		return str, nil
	}
}
