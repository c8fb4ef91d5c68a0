//go:build !darwin

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
)

// secretsPath is the fallback secret store, {"service":{"account":"value"}}.
var secretsPath = func() string {
	return filepath.Join(defaultDataDir(), "secrets.json")
}

func keychainGet(service, account string) ([]byte, error) {
	data, err := os.ReadFile(secretsPath())
	if err != nil {
		return nil, fmt.Errorf("secret store not available: %w", err)
	}
	if !gjson.ValidBytes(data) {
		return nil, errors.New("secrets file is not valid JSON")
	}
	res := gjson.GetBytes(data, secretPath(service, account))
	if !res.Exists() {
		return nil, fmt.Errorf("no secret for %s/%s", service, account)
	}
	return []byte(res.String()), nil
}

func keychainSet(service, account, value string) error {
	p := secretsPath()

	data, err := os.ReadFile(p)
	if err != nil || !gjson.ValidBytes(data) {
		data = []byte("{}")
	}
	data, err = sjson.SetBytes(data, secretPath(service, account), value)
	if err != nil {
		return fmt.Errorf("updating secrets: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
		return fmt.Errorf("creating secrets dir: %w", err)
	}
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, pretty.Pretty(data), 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, p)
}

// secretPath builds the gjson path for a secret. Service and account names
// are plain identifiers.
func secretPath(service, account string) string {
	return service + "." + account
}
