package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/streammarks/internal/allowlist"
	"github.com/MrSnakeDoc/streammarks/internal/bookmarks"
	"github.com/MrSnakeDoc/streammarks/internal/config"
	"github.com/MrSnakeDoc/streammarks/internal/domain"
	"github.com/MrSnakeDoc/streammarks/internal/httpserver"
	"github.com/MrSnakeDoc/streammarks/internal/httpserver/deps"
	"github.com/MrSnakeDoc/streammarks/internal/kv"
	"github.com/MrSnakeDoc/streammarks/internal/livestream"
	"github.com/MrSnakeDoc/streammarks/internal/logger"
	"github.com/MrSnakeDoc/streammarks/internal/metrics"
	"github.com/MrSnakeDoc/streammarks/internal/redis"
	"github.com/MrSnakeDoc/streammarks/internal/scheduler"
	"github.com/MrSnakeDoc/streammarks/internal/store/memory"
	redisstore "github.com/MrSnakeDoc/streammarks/internal/store/redis"
	"github.com/MrSnakeDoc/streammarks/internal/version"
	"github.com/MrSnakeDoc/streammarks/internal/youtube"
)

type App struct {
	cfg         *config.Config
	logger      logger.Logger
	server      *httpserver.Server
	redisClient *goredis.Client
	reloader    *scheduler.AllowlistReloader
	reconciler  *scheduler.CountReconciler
	memStore    *memory.Store
	started     time.Time
}

func New() *App {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)
	registry := metrics.NewRegistry()
	m := metrics.New(registry)
	ctx := context.Background()

	var (
		store       kv.Store
		redisClient *goredis.Client
		memStore    *memory.Store
	)
	switch cfg.KVBackend {
	case config.BackendMemory:
		loggerClient.Warn("using in-memory KV backend, bookmarks are lost on restart")
		memStore = memory.NewStore(nil)
		store = memStore
	default:
		// Fail fast if Redis is unavailable
		loggerClient.Infof("Connecting to Redis at %s", cfg.RedisAddr)
		client, err := redis.New(ctx, redis.ConnectOptions{
			Addr:           cfg.RedisAddr,
			User:           cfg.RedisUser,
			Password:       cfg.RedisPassword,
			RedisDB:        cfg.RedisDB,
			DialTimeout:    cfg.RedisDT,
			ReadTimeout:    cfg.RedisRT,
			WriteTimeout:   cfg.RedisWT,
			PoolSize:       cfg.RedisPoolSize,
			ConnectTimeout: cfg.RedisConnectTimeout,
			RetryInterval:  cfg.RedisRetryInterval,
			MaxWait:        cfg.RedisMaxWait,
			PingTimeout:    cfg.RedisPingTimeout,
			WarnThreshold:  cfg.RedisWarnThreshold,
			Metrics:        m,
		}, loggerClient)
		if err != nil {
			loggerClient.Errorf("Failed to connect to Redis: %v", err)
			os.Exit(1)
		}
		loggerClient.Info("Redis initialized successfully")
		redisClient = client
		store = redisstore.NewStore(client)
	}

	yt, err := youtube.New(ctx, youtube.Options{
		APIKey:           cfg.YouTubeAPIKey,
		Timeout:          cfg.YouTubeTimeout,
		BreakerThreshold: uint(cfg.YouTubeBreakerThreshold),
		BreakerDelay:     cfg.YouTubeBreakerDelay,
	}, loggerClient, m)
	if err != nil {
		loggerClient.Errorf("Failed to create YouTube client: %v", err)
		os.Exit(1)
	}

	resolver := livestream.NewResolver(store, yt, cfg.LivestreamCacheTTL, loggerClient, m)

	channels := allowlist.New(cfg.AllowedChannels, cfg.AllowedChannelsFile != "")
	opts := bookmarks.Options{
		PublicURL:       cfg.PublicURL,
		MaxAttempts:     cfg.BookmarkMaxAttempts,
		RetryBackoff:    cfg.BookmarkRetryBackoff,
		RetryMaxBackoff: cfg.BookmarkRetryMaxBackoff,
	}
	if cfg.AllowlistEnabled() {
		opts.Policy = channels
	}
	service := bookmarks.NewService(store, resolver, opts, loggerClient, m)

	// Reload trigger only exists with a file to reload
	var (
		reloader      *scheduler.AllowlistReloader
		reloadTrigger chan struct{}
	)
	if cfg.AllowedChannelsFile != "" {
		loggerClient.Info("channel allow-list file configured",
			logger.String("file", cfg.AllowedChannelsFile))
		reloadTrigger = make(chan struct{}, 1)
		reloader = scheduler.NewAllowlistReloader(
			cfg.AllowedChannelsFile,
			channels,
			loggerClient,
			m,
			nil,
			cfg.AllowlistReloadInterval,
			reloadTrigger,
		)
	}

	var reconciler *scheduler.CountReconciler
	if cfg.RecountInterval > 0 {
		reconciler = scheduler.NewCountReconciler(service, loggerClient, nil, cfg.RecountInterval)
	}

	started := time.Now()
	d := deps.Deps{
		Logger:          loggerClient,
		StartTime:       started,
		Version:         version.Version,
		Commit:          version.Commit,
		BuildDate:       version.BuildDate,
		GoVersion:       version.GoVersion,
		Bookmarks:       service,
		Store:           store,
		KVBackend:       cfg.KVBackend,
		Metrics:         m,
		Registry:        registry,
		AdminKey:        cfg.RecountKey,
		AllowedCIDRS:    cfg.AllowedCIDRS,
		TrustProxy:      cfg.TrustProxy,
		RateLimitBurst:  cfg.RateLimitBurst,
		RateLimitPerMin: cfg.RateLimitPerMin,
		ReloadTrigger:   reloadTrigger,
	}

	return &App{
		cfg:         cfg,
		logger:      loggerClient,
		server:      httpserver.New(cfg, loggerClient, d),
		redisClient: redisClient,
		reloader:    reloader,
		reconciler:  reconciler,
		memStore:    memStore,
		started:     started,
	}
}

// Run starts the background jobs and the HTTP server, then blocks until a
// signal arrives or the listener fails. Both paths go through shutdown.
func (a *App) Run() error {
	a.logger.Infof("🚀 Starting streammarks %s on %s", version.Version, a.cfg.ListenAddr)
	a.logger.Infof("streammarks %s", version.String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var reloaderRunning, reconcilerRunning bool
	if a.reloader != nil {
		if err := a.reloader.Start(ctx); err != nil {
			return a.shutdown(fmt.Errorf("failed to start allow-list reloader: %w", err), false, false)
		}
		reloaderRunning = true
		a.logger.Info("allow-list reloader started",
			logger.Duration("interval", a.cfg.AllowlistReloadInterval))
	}

	if a.reconciler != nil {
		if err := a.reconciler.Start(ctx); err != nil {
			return a.shutdown(fmt.Errorf("failed to start count reconciler: %w", err), reloaderRunning, false)
		}
		reconcilerRunning = true
		a.logger.Info("count reconciler started",
			logger.Duration("interval", a.cfg.RecountInterval))
	}

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	var cause error
	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case cause = <-errCh:
		a.logger.Error("HTTP server failed, shutting down", logger.Error(cause))
	}

	return a.shutdown(cause, reloaderRunning, reconcilerRunning)
}

// shutdown stops whatever Run started and releases the KV backend. The
// returned error joins cause with any failure to stop the server.
func (a *App) shutdown(cause error, reloaderRunning, reconcilerRunning bool) error {
	if reloaderRunning {
		a.reloader.Stop()
	}
	if reconcilerRunning {
		a.reconciler.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		cause = errors.Join(cause, fmt.Errorf("failed to stop server: %w", err))
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warnf("failed to close redis: %v", err)
		} else {
			a.logger.Info("✅ Redis closed cleanly")
		}
	}
	if a.memStore != nil {
		a.logger.Warn("discarding in-memory KV backend", logger.Int("keys", a.memStore.Len()))
	}

	uptime := logger.String("uptime", domain.FormatDuration(time.Since(a.started)))
	if cause != nil {
		a.logger.Error("streammarks stopped with error", uptime, logger.Error(cause))
	} else {
		a.logger.Info("✅ streammarks stopped cleanly", uptime)
	}
	_ = a.logger.Sync()
	return cause
}
