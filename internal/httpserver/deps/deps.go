package deps

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/MrSnakeDoc/streammarks/internal/domain"
	"github.com/MrSnakeDoc/streammarks/internal/logger"
	"github.com/MrSnakeDoc/streammarks/internal/metrics"
)

// Bookmarks is what the handlers need from the bookmark service.
type Bookmarks interface {
	CreateOrMove(ctx context.Context, channelRecord, userRecord string) (string, error)
	ListForVideo(ctx context.Context, videoID string) (domain.VideoBookmarks, error)
	Count(ctx context.Context) (uint64, bool, error)
	Recount(ctx context.Context) (domain.RecountResult, error)
}

// Pinger reports whether a backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	Logger          logger.Logger
	StartTime       time.Time
	Version         string
	Commit          string
	BuildDate       string
	GoVersion       string
	Bookmarks       Bookmarks            // bookmark service
	Store           Pinger               // KV backend, pinged by /readyz
	KVBackend       string               // "redis" | "memory", reported by /readyz
	Metrics         *metrics.Metrics     // collectors updated by the middlewares
	Registry        *prometheus.Registry // served on /metrics
	AdminKey        string               // bearer token for /recount and /reload
	AllowedCIDRS    []string             // IPs allowed to access healthz/readyz/metrics
	TrustProxy      bool                 // true if running behind a trusted reverse proxy (e.g., cloudflared)
	RateLimitBurst  int                  // per-IP burst on /create-bookmark
	RateLimitPerMin int                  // per-IP refill on /create-bookmark
	ReloadTrigger   chan struct{}        // manual allow-list reload, nil when no allow-list file
}
