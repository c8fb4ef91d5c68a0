// Package config loads the application configuration: where the settings
// store lives and how the server runs. It is separate from the user
// settings record managed by package settings.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "FNFSETTINGS_"

// Backend names accepted by store.backend.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

type Config struct {
	Store  StoreConfig  `koanf:"store"`
	Server ServerConfig `koanf:"server"`
	Log    LogConfig    `koanf:"log"`
}

type StoreConfig struct {
	Backend string `koanf:"backend" validate:"required,oneof=json sqlite"`
	DataDir string `koanf:"data_dir" validate:"required"`
	// File overrides the store file name inside DataDir. An absolute path
	// is used as is.
	File string `koanf:"file"`
}

type ServerConfig struct {
	Port     int `koanf:"port" validate:"min=1,max=65535"`
	MaxConns int `koanf:"max_conns" validate:"min=0"`
}

type LogConfig struct {
	Level string `koanf:"level" validate:"oneof=debug info warn error"`
}

// Load reads configuration in priority order: environment variables
// (FNFSETTINGS_*), then the JSON file at $XDG_CONFIG_HOME/fnfsettings/config.json,
// then built-in defaults.
func Load() (Config, error) {
	return loadFrom(configFilePath())
}

func loadFrom(path string) (Config, error) {
	k := koanf.New(".")

	for _, s := range specs {
		if err := k.Set(s.key, s.def()); err != nil {
			return Config{}, fmt.Errorf("setting default %s: %w", s.key, err)
		}
	}

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), json.Parser()); err != nil {
			return Config{}, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.ProviderWithValue(envPrefix, ".", envTransform), nil); err != nil {
		return Config{}, fmt.Errorf("loading environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	cfg.Store.DataDir = expandHome(cfg.Store.DataDir)
	return cfg, nil
}

// envTransform maps FNFSETTINGS_STORE_DATA_DIR to store.data_dir. Empty
// variables are skipped.
func envTransform(name, value string) (string, any) {
	if value == "" {
		return "", nil
	}
	key := strings.ToLower(strings.TrimPrefix(name, envPrefix))
	return strings.Replace(key, "_", ".", 1), value
}

// SettingsPath returns the location of the settings store for cfg.
func (cfg Config) SettingsPath() string {
	name := cfg.Store.File
	if name == "" {
		name = "settings.json"
		if cfg.Store.Backend == BackendSQLite {
			name = "settings.db"
		}
	}
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(cfg.Store.DataDir, name)
}

func configFilePath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".config")
		} else {
			dir = "."
		}
	}
	return filepath.Join(dir, "fnfsettings", "config.json")
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
