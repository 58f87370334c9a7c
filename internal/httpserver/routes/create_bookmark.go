package routes

import (
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/streammarks/internal/httpserver/deps"
	"github.com/MrSnakeDoc/streammarks/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/streammarks/internal/httpserver/mw"
)

func init() { Register(registerCreateBookmark) }

func registerCreateBookmark(r chi.Router, d deps.Deps) {
	limit := mw.RateLimit(mw.RateLimitConfig{
		Burst:              d.RateLimitBurst,
		RefillPerKeyPerMin: d.RateLimitPerMin,
		MaxEntries:         10000,
		SweepInterval:      time.Minute,
		IdleTTL:            15 * time.Minute,
		TrustProxy:         d.TrustProxy,
		Key:                handlers.ViewerKey,
	})
	r.With(limit).Get("/create-bookmark", handlers.CreateBookmark(d))
}
