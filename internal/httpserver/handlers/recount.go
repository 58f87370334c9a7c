package handlers

import (
	"net/http"
	"strconv"

	"github.com/MrSnakeDoc/streammarks/internal/httpserver/deps"
	"github.com/MrSnakeDoc/streammarks/internal/logger"
)

type recountResponse struct {
	OldCount  *string `json:"oldCount"`
	NewCount  uint64  `json:"newCount"`
	TimeTaken string  `json:"timeTaken"`
}

// Recount rebuilds the bookmark counter. The old count is a decimal string, or null.
func Recount(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := d.Bookmarks.Recount(r.Context())
		if err != nil {
			d.Logger.Error("recount failed", logger.Error(err))
			writeText(w, http.StatusInternalServerError, UnknownErrorMessage, d.Logger)
			return
		}

		resp := recountResponse{NewCount: res.NewCount, TimeTaken: res.TimeTaken}
		if res.OldCount != nil {
			old := strconv.FormatUint(*res.OldCount, 10)
			resp.OldCount = &old
		}
		writeJSON(w, http.StatusOK, resp, d.Logger)
	}
}
