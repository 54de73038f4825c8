package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fixado/dialog/core"
	"github.com/fixado/dialog/session"
)

// Deps wires the admin surface to the engine internals.
type Deps struct {
	Store *session.Store
	// Token enables bearer auth when non-empty.
	Token string
}

// NewHandler builds the admin router.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()
	if deps.Token != "" {
		r.Use(BearerAuth(deps.Token))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Get("/sessions/{id}", handleGetSession(deps))
		r.Post("/sessions/{id}/pause", handleCommand(deps, deps.Store.Pause))
		r.Post("/sessions/{id}/resume", handleCommand(deps, deps.Store.Resume))
		r.Post("/sessions/{id}/cancel", handleCommand(deps, deps.Store.Cancel))
		r.Post("/maintenance/cleanup", handleCleanup(deps))
		r.Get("/metrics", handleMetrics(deps))
	})

	return r
}

func handleGetSession(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		sess, err := deps.Store.Get(r.Context(), id)
		if err != nil {
			if errors.Is(err, core.ErrSessionNotFound) || errors.Is(err, core.ErrSessionExpired) {
				httpError(w, http.StatusNotFound, "not_found_error", "session %s not found", id)
				return
			}
			httpError(w, http.StatusInternalServerError, "api_error", "load session: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, sess.ToRecord())
	}
}

// handleCommand adapts one store command (pause/resume/cancel) to a route.
func handleCommand(deps Deps, cmd func(ctx context.Context, id string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		err := cmd(r.Context(), id)
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, map[string]any{"id": id, "ok": true})
		case errors.Is(err, core.ErrSessionNotFound), errors.Is(err, core.ErrSessionExpired):
			httpError(w, http.StatusNotFound, "not_found_error", "session %s not found", id)
		case errors.Is(err, core.ErrInvalidTransition):
			httpError(w, http.StatusConflict, "invalid_request_error", "transition not allowed for session %s", id)
		case errors.Is(err, core.ErrLockTimeout):
			httpError(w, http.StatusConflict, "api_error", "session %s is busy, retry", id)
		default:
			httpError(w, http.StatusInternalServerError, "api_error", "command failed: %v", err)
		}
	}
}

func handleCleanup(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n := deps.Store.CleanupExpired(r.Context())
		writeJSON(w, http.StatusOK, map[string]any{"cleaned": n})
	}
}

func handleMetrics(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"active_sessions": deps.Store.ActiveCount(),
			"automation_rate": deps.Store.AutomationRate(),
		})
	}
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
