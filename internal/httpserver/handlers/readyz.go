package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/streammarks/internal/httpserver/deps"
	"github.com/MrSnakeDoc/streammarks/internal/logger"
)

const readyzTimeout = 2 * time.Second

type readyzResponse struct {
	Ready   bool   `json:"ready"`
	Backend string `json:"kv_backend"`
	Error   string `json:"error,omitempty"`
}

// Readyz pings the KV backend
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")

		ctx, cancel := context.WithTimeout(r.Context(), readyzTimeout)
		defer cancel()

		if err := d.Store.Ping(ctx); err != nil {
			d.Logger.Warn("readiness check failed",
				logger.String("kv_backend", d.KVBackend),
				logger.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, readyzResponse{
				Backend: d.KVBackend,
				Error:   "kv backend unavailable",
			}, d.Logger)
			return
		}

		writeJSON(w, http.StatusOK, readyzResponse{Ready: true, Backend: d.KVBackend}, d.Logger)
	}
}
