package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/kalambet/fnfsettings/internal/api"
	"github.com/kalambet/fnfsettings/internal/config"
	"github.com/kalambet/fnfsettings/internal/settings"
	"github.com/kalambet/fnfsettings/internal/store"
	"github.com/kalambet/fnfsettings/internal/store/jsonstore"
	"github.com/kalambet/fnfsettings/internal/store/sqlitestore"
)

// settingsBackend is what the CLI commands operate on: the local store or
// a running server.
type settingsBackend interface {
	Get(ctx context.Context, key settings.Key) (any, error)
	All(ctx context.Context) (settings.Settings, error)
	Save(ctx context.Context, p settings.Patch) error
	Clear(ctx context.Context) error
	Close() error
}

// storeOpener resolves store.backend to an Opener.
func storeOpener(cfg config.Config) (store.Opener, error) {
	switch cfg.Store.Backend {
	case config.BackendJSON:
		return jsonstore.Opener(), nil
	case config.BackendSQLite:
		return sqlitestore.Opener(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

func openService(cfg config.Config) (*settings.Service, error) {
	op, err := storeOpener(cfg)
	if err != nil {
		return nil, err
	}
	return settings.New(op, cfg.SettingsPath()), nil
}

var newBackend = func(cfg config.Config) (settingsBackend, error) {
	if remote {
		c, err := newAPIClient(cfg)
		if err != nil {
			return nil, err
		}
		return &remoteBackend{client: c}, nil
	}
	svc, err := openService(cfg)
	if err != nil {
		return nil, err
	}
	return &localBackend{svc: svc}, nil
}

type localBackend struct {
	svc *settings.Service
}

func (b *localBackend) Get(ctx context.Context, key settings.Key) (any, error) {
	return b.svc.GetSetting(ctx, key), nil
}

func (b *localBackend) All(ctx context.Context) (settings.Settings, error) {
	return b.svc.GetAllSettings(ctx), nil
}

func (b *localBackend) Save(ctx context.Context, p settings.Patch) error {
	if len(p) == 1 {
		return b.svc.SaveSetting(ctx, p[0].Key, p[0].Value)
	}
	return b.svc.SaveSettings(ctx, p)
}

func (b *localBackend) Clear(ctx context.Context) error {
	return b.svc.ClearSettings(ctx)
}

func (b *localBackend) Close() error {
	return b.svc.Close()
}

type remoteBackend struct {
	client *apiClient
}

func (b *remoteBackend) Get(ctx context.Context, key settings.Key) (any, error) {
	resp, err := b.client.get(ctx, "/settings/"+url.PathEscape(string(key)))
	if err != nil {
		return nil, err
	}
	var kv api.KeyValue
	if err := decodeJSON(resp, &kv); err != nil {
		return nil, err
	}
	return kv.Value, nil
}

func (b *remoteBackend) All(ctx context.Context) (settings.Settings, error) {
	resp, err := b.client.get(ctx, "/settings")
	if err != nil {
		return settings.Settings{}, err
	}
	var s settings.Settings
	if err := decodeJSON(resp, &s); err != nil {
		return settings.Settings{}, err
	}
	return s, nil
}

func (b *remoteBackend) Save(ctx context.Context, p settings.Patch) error {
	var (
		resp *http.Response
		err  error
	)
	if len(p) == 1 {
		resp, err = b.client.put(ctx, "/settings/"+url.PathEscape(string(p[0].Key)), p[0].Value)
	} else {
		resp, err = b.client.patch(ctx, "/settings", p)
	}
	if err != nil {
		return err
	}
	return decodeJSON(resp, nil)
}

func (b *remoteBackend) Clear(ctx context.Context) error {
	resp, err := b.client.delete(ctx, "/settings")
	if err != nil {
		return err
	}
	return decodeJSON(resp, nil)
}

func (b *remoteBackend) Close() error { return nil }
