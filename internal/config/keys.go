package config

import (
	"fmt"
	"strconv"
	"strings"
)

type keyType int

const (
	kString keyType = iota
	kInt
)

type keySpec struct {
	key      string
	typ      keyType
	validate string
	def      func() any
	extract  func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "store.backend", typ: kString, validate: "oneof=json sqlite",
		def:     func() any { return BackendJSON },
		extract: func(cfg Config) any { return cfg.Store.Backend },
	},
	{
		key: "store.data_dir", typ: kString, validate: "required",
		def:     func() any { return defaultDataDir() },
		extract: func(cfg Config) any { return cfg.Store.DataDir },
	},
	{
		key: "store.file", typ: kString,
		def:     func() any { return "" },
		extract: func(cfg Config) any { return cfg.Store.File },
	},
	{
		key: "server.port", typ: kInt, validate: "min=1,max=65535",
		def:     func() any { return 4100 },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "server.max_conns", typ: kInt, validate: "min=0",
		def:     func() any { return 64 },
		extract: func(cfg Config) any { return cfg.Server.MaxConns },
	},
	{
		key: "log.level", typ: kString, validate: "oneof=debug info warn error",
		def:     func() any { return "info" },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func (s keySpec) envVar() string {
	return envPrefix + strings.ToUpper(strings.ReplaceAll(s.key, ".", "_"))
}

// parse converts a command-line value to the key's type.
func (s keySpec) parse(raw string) (any, error) {
	switch s.typ {
	case kInt:
		i, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid integer value for %s: %w", s.key, err)
		}
		return i, nil
	default:
		return raw, nil
	}
}

func lookupSpec(key string) (keySpec, bool) {
	for _, s := range specs {
		if s.key == key {
			return s, true
		}
	}
	return keySpec{}, false
}
