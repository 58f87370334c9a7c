package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/MrSnakeDoc/streammarks/internal/domain"
	"github.com/MrSnakeDoc/streammarks/internal/httpserver/deps"
	"github.com/MrSnakeDoc/streammarks/internal/logger"
)

// Nightbot request headers.
const (
	HeaderResponseURL = "Nightbot-Response-Url"
	HeaderUser        = "Nightbot-User"
	HeaderChannel     = "Nightbot-Channel"
)

// CreateBookmark answers the Nightbot command with a plain-text chat reply.
func CreateBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")

		responseURL := r.Header.Get(HeaderResponseURL)
		user := r.Header.Get(HeaderUser)
		channel := r.Header.Get(HeaderChannel)

		d.Logger.Debug("received bookmark request",
			logger.String("user", user),
			logger.String("channel", channel))

		if responseURL == "" || user == "" || channel == "" {
			writeText(w, http.StatusBadRequest, "Error: You must be Nightbot", d.Logger)
			return
		}

		msg, err := d.Bookmarks.CreateOrMove(r.Context(), channel, user)
		if err != nil {
			status, text := errorStatus(err)
			fields := []logger.Field{
				logger.Int("status", status),
				logger.String("request_id", middleware.GetReqID(r.Context())),
				logger.Error(err),
			}
			if status >= http.StatusInternalServerError {
				d.Logger.Error("bookmark request failed", fields...)
			} else {
				d.Logger.Info("bookmark request rejected", fields...)
			}
			writeText(w, status, text, d.Logger)
			return
		}

		writeText(w, http.StatusOK, msg, d.Logger)
	}
}

// ViewerKey identifies the chat viewer behind a Nightbot request by channel id
// and display name. Empty when either header is missing.
func ViewerKey(r *http.Request) string {
	channel := domain.ParseRecord(r.Header.Get(HeaderChannel))["providerId"]
	user := domain.ParseRecord(r.Header.Get(HeaderUser))["displayName"]
	if channel == "" || user == "" {
		return ""
	}
	return channel + "\x00" + user
}
