package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/streammarks/internal/httpserver/deps"
	"github.com/MrSnakeDoc/streammarks/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/streammarks/internal/httpserver/mw"
)

func init() { Register(registerRecount) }

func registerRecount(r chi.Router, d deps.Deps) {
	r.With(mw.BearerAuth(d.AdminKey, d.Logger)).Post("/recount", handlers.Recount(d))
}
