package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/streammarks/internal/httpserver/deps"
	"github.com/MrSnakeDoc/streammarks/internal/logger"
)

// Reload triggers a manual reload of the channel allow-list file
func Reload(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.ReloadTrigger == nil {
			writeText(w, http.StatusNotFound, "Error: no allow-list file configured\n", d.Logger)
			return
		}

		select {
		case d.ReloadTrigger <- struct{}{}:
			d.Logger.Info("manual allow-list reload triggered via endpoint",
				logger.String("remote_ip", r.RemoteAddr))
			writeText(w, http.StatusAccepted, "✅ Reload triggered successfully\n", d.Logger)
		default:
			d.Logger.Warn("allow-list reload already in progress",
				logger.String("remote_ip", r.RemoteAddr))
			writeText(w, http.StatusTooManyRequests, "⏳ Reload already in progress, please wait\n", d.Logger)
		}
	}
}
