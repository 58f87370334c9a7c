package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/streammarks/internal/domain"
	"github.com/MrSnakeDoc/streammarks/internal/httpserver/deps"
	"github.com/MrSnakeDoc/streammarks/internal/httpserver/views"
	"github.com/MrSnakeDoc/streammarks/internal/logger"
)

// VideoBookmarks renders the bookmark list of a video. ?h=<user> highlights a user.
func VideoBookmarks(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		videoID := chi.URLParam(r, "videoId")

		vb, err := d.Bookmarks.ListForVideo(r.Context(), videoID)
		switch {
		case errors.Is(err, domain.ErrVideoNotFound):
			renderNotFound(w, d)
			return
		case err != nil:
			d.Logger.Error("failed to list bookmarks",
				logger.String("video_id", videoID),
				logger.Error(err))
			writeText(w, http.StatusInternalServerError, UnknownErrorMessage, d.Logger)
			return
		}

		if err := views.List(w, http.StatusOK, views.NewListPage(vb, r.URL.Query().Get("h"))); err != nil {
			d.Logger.Error("failed to render bookmark list", logger.Error(err))
		}
	}
}

// NotFound renders the HTML 404 page.
func NotFound(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		renderNotFound(w, d)
	}
}

func renderNotFound(w http.ResponseWriter, d deps.Deps) {
	if err := views.NotFound(w, http.StatusNotFound); err != nil {
		d.Logger.Error("failed to render not found page", logger.Error(err))
	}
}
