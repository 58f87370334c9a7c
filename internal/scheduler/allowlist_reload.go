package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/MrSnakeDoc/streammarks/internal/allowlist"
	"github.com/MrSnakeDoc/streammarks/internal/logger"
	"github.com/MrSnakeDoc/streammarks/internal/metrics"
	source "github.com/MrSnakeDoc/streammarks/internal/sources/allowlist"
)

// AllowlistReloader keeps the file-backed part of the channel allow-list current
type AllowlistReloader struct {
	loader        *source.Loader
	list          *allowlist.List
	logger        logger.Logger
	metrics       *metrics.Metrics
	clock         clockwork.Clock
	interval      time.Duration
	stopCh        chan struct{}
	manualTrigger chan struct{}
}

// NewAllowlistReloader creates a reloader for channelsFile.
// A nil clock means the real clock.
func NewAllowlistReloader(
	channelsFile string,
	list *allowlist.List,
	log logger.Logger,
	m *metrics.Metrics,
	clock clockwork.Clock,
	interval time.Duration,
	manualTrigger chan struct{},
) *AllowlistReloader {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &AllowlistReloader{
		loader:        source.NewLoader(channelsFile),
		list:          list,
		logger:        log,
		metrics:       m,
		clock:         clock,
		interval:      interval,
		stopCh:        make(chan struct{}),
		manualTrigger: manualTrigger,
	}
}

// Start loads the file once, then reloads it on every tick and manual trigger
func (ar *AllowlistReloader) Start(ctx context.Context) error {
	// Load immediately on start
	if err := ar.Reload(ctx); err != nil {
		return fmt.Errorf("initial allow-list load failed: %w", err)
	}

	ticker := ar.clock.NewTicker(ar.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.Chan():
				if err := ar.Reload(ctx); err != nil {
					ar.logger.Error("failed to reload allow-list",
						logger.Error(err))
				}
			case <-ar.manualTrigger:
				ar.logger.Info("manual allow-list reload triggered")
				if err := ar.Reload(ctx); err != nil {
					ar.logger.Error("failed to reload allow-list",
						logger.Error(err))
				}
			case <-ar.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the reloader
func (ar *AllowlistReloader) Stop() {
	close(ar.stopCh)
}

// Reload reads the file and swaps the list. On failure the previous list stays.
func (ar *AllowlistReloader) Reload(_ context.Context) error {
	config, err := ar.loader.Load()
	if err != nil {
		ar.metrics.AllowlistReloads.WithLabelValues("error").Inc()
		return err
	}

	mapped, err := source.MapChannels(config)
	for _, id := range mapped.Skipped {
		ar.logger.Warn("skipping malformed channel id in allow-list",
			logger.String("file", ar.loader.Path()),
			logger.String("id", id))
	}
	if err != nil {
		ar.metrics.AllowlistReloads.WithLabelValues("error").Inc()
		return fmt.Errorf("%s: %w", ar.loader.Path(), err)
	}

	ar.list.Replace(mapped.Channels)
	ar.metrics.AllowlistReloads.WithLabelValues("success").Inc()
	ar.metrics.AllowlistChannels.Set(float64(ar.list.Len()))

	ar.logger.Info("allow-list loaded",
		logger.String("file", ar.loader.Path()),
		logger.Int("channels", len(mapped.Channels)),
		logger.Int("skipped", len(mapped.Skipped)))
	return nil
}
