package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/streammarks/internal/httpserver/deps"
	"github.com/MrSnakeDoc/streammarks/internal/httpserver/views"
	"github.com/MrSnakeDoc/streammarks/internal/logger"
)

// Home renders the landing page. The counter is optional decoration.
func Home(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page := views.HomePage{}
		n, ok, err := d.Bookmarks.Count(r.Context())
		if err != nil {
			d.Logger.Warn("failed to read bookmark count", logger.Error(err))
		} else {
			page.Count, page.HasCount = n, ok
		}

		if err := views.Home(w, http.StatusOK, page); err != nil {
			d.Logger.Error("failed to render home page", logger.Error(err))
		}
	}
}
