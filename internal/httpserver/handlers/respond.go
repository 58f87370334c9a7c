package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/MrSnakeDoc/streammarks/internal/domain"
	"github.com/MrSnakeDoc/streammarks/internal/logger"
)

// UnknownErrorMessage is all a client sees of a server side failure.
const UnknownErrorMessage = "An unknown error has occurred! :("

func writeText(w http.ResponseWriter, status int, body string, log logger.Logger) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write([]byte(body)); err != nil {
		log.Debug("failed to write response", logger.Error(err))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any, log logger.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug("failed to write response", logger.Error(err))
	}
}

// errorStatus maps an error to its HTTP status and client-facing text.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest), errors.Is(err, domain.ErrUnsupportedProvider):
		return http.StatusBadRequest, "Error: " + err.Error()
	case errors.Is(err, domain.ErrChannelNotAllowed):
		return http.StatusForbidden, "Error: " + err.Error()
	case errors.Is(err, domain.ErrStreamNotLive):
		return http.StatusNotFound, "Error: " + err.Error()
	default:
		return http.StatusInternalServerError, UnknownErrorMessage
	}
}
