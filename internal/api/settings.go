// Package api exposes the settings service over HTTP and MCP.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/fnfsettings/internal/settings"
)

const maxRequestBodySize = 1 << 20 // 1MB

type Deps struct {
	Settings *settings.Service
	Token    string
	Logger   *slog.Logger // optional; defaults to slog.Default()
}

// KeyValue is the body returned for a single setting.
type KeyValue struct {
	Key   settings.Key `json:"key"`
	Value any          `json:"value"`
}

// NewHandler returns the settings REST API. Everything except /health
// requires the bearer token.
func NewHandler(deps Deps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(RequestID)

	r.Get("/health", handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))

		r.Get("/settings", handleGetAll(deps))
		r.Patch("/settings", handlePatch(deps))
		r.Delete("/settings", handleClear(deps))
		r.Get("/settings/defaults", handleDefaults)
		r.Get("/settings/{key}", handleGet(deps))
		r.Put("/settings/{key}", handlePut(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func handleGetAll(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, deps.Settings.GetAllSettings(r.Context()))
	}
}

func handleDefaults(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, settings.Defaults())
}

func handleGet(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, ok := settings.LookupKey(chi.URLParam(r, "key"))
		if !ok {
			httpError(w, http.StatusNotFound, "not_found_error", "unknown setting %q", chi.URLParam(r, "key"))
			return
		}
		writeJSON(w, KeyValue{Key: key, Value: deps.Settings.GetSetting(r.Context(), key)})
	}
}

func handlePut(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, ok := settings.LookupKey(chi.URLParam(r, "key"))
		if !ok {
			httpError(w, http.StatusNotFound, "not_found_error", "unknown setting %q", chi.URLParam(r, "key"))
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		var value any
		if err := json.NewDecoder(r.Body).Decode(&value); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		if err := deps.Settings.SaveSetting(r.Context(), key, value); err != nil {
			writeServiceError(w, r, deps.Logger, err)
			return
		}
		writeJSON(w, KeyValue{Key: key, Value: value})
	}
}

func handlePatch(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		body, err := io.ReadAll(r.Body)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "reading request body: %v", err)
			return
		}

		p, err := settings.ParsePatch(body)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid settings patch: %v", err)
			return
		}

		if err := deps.Settings.SaveSettings(r.Context(), p); err != nil {
			writeServiceError(w, r, deps.Logger, err)
			return
		}
		writeJSON(w, map[string]any{"status": "updated", "keys": p.Keys()})
	}
}

func handleClear(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Settings.ClearSettings(r.Context()); err != nil {
			writeServiceError(w, r, deps.Logger, err)
			return
		}
		writeJSON(w, map[string]string{"status": "cleared"})
	}
}

// writeServiceError maps a settings write error to a status code.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, settings.ErrUnknownKey):
		httpError(w, http.StatusNotFound, "not_found_error", "%v", err)
	case errors.Is(err, settings.ErrInvalidValue):
		httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
	case errors.Is(err, settings.ErrInitialization), errors.Is(err, settings.ErrStoreUnavailable):
		logger.Error("settings store unavailable", "request_id", RequestIDFromContext(r.Context()), "error", err)
		httpError(w, http.StatusServiceUnavailable, "unavailable_error", "%v", err)
	default:
		logger.Error("settings write failed", "request_id", RequestIDFromContext(r.Context()), "error", err)
		httpError(w, http.StatusInternalServerError, "api_error", "%v", err)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
