// Package livestream finds the video a channel is currently streaming.
//
// The answer is cached per channel, but a cached pointer is never trusted
// blindly: every hit is re-verified against the platform before use, and a
// stale entry is dropped so the next lookup goes straight to search.
package livestream

import (
	"context"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/streammarks/internal/domain"
	"github.com/MrSnakeDoc/streammarks/internal/kv"
	"github.com/MrSnakeDoc/streammarks/internal/logger"
	"github.com/MrSnakeDoc/streammarks/internal/metrics"
	"github.com/MrSnakeDoc/streammarks/internal/youtube"
)

// DefaultCacheTTL bounds how long a channel may point at the same video.
const DefaultCacheTTL = 6 * time.Hour

// CacheKey holds the JSON encoded livestream of a channel.
func CacheKey(channelID string) kv.Key {
	return kv.Key{"channelCurrentLivestream", channelID}
}

// TitleKey holds the title of a video, written when its livestream is discovered.
func TitleKey(videoID string) kv.Key {
	return kv.Key{"streamTitle", videoID}
}

// Platform is the subset of the video platform the resolver talks to.
type Platform interface {
	SearchLive(ctx context.Context, channelID string) (string, error)
	Video(ctx context.Context, videoID string) (*youtube.Video, error)
}

type Resolver struct {
	store    kv.Store
	platform Platform
	ttl      time.Duration
	log      logger.Logger
	m        *metrics.Metrics
}

func NewResolver(store kv.Store, platform Platform, ttl time.Duration, log logger.Logger, m *metrics.Metrics) *Resolver {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Resolver{store: store, platform: platform, ttl: ttl, log: log, m: m}
}

// Resolve returns the running livestream of channelID, or nil when the
// channel is not live. Search runs at most once per call.
func (r *Resolver) Resolve(ctx context.Context, channelID string) (*domain.Livestream, error) {
	ls, err := r.cachedLivestream(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if ls != nil {
		return ls, nil
	}
	return r.search(ctx, channelID)
}

// cachedLivestream returns the cached livestream only once the platform has
// confirmed it is still live. A stale entry is deleted and reported as nil.
func (r *Resolver) cachedLivestream(ctx context.Context, channelID string) (*domain.Livestream, error) {
	key := CacheKey(channelID)
	entry, err := r.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("read livestream cache: %w", err)
	}
	if !entry.Exists() {
		r.m.LivestreamCache.WithLabelValues(metrics.CacheMiss).Inc()
		return nil, nil
	}

	ls, err := domain.DecodeLivestream(entry.Value)
	if err != nil {
		return nil, err
	}

	video, err := r.platform.Video(ctx, ls.VideoID)
	if err != nil {
		return nil, err
	}
	if video.IsLive() {
		r.m.LivestreamCache.WithLabelValues(metrics.CacheHit).Inc()
		return ls, nil
	}

	r.m.LivestreamCache.WithLabelValues(metrics.CacheStale).Inc()
	r.log.Info("cached livestream ended, dropping it",
		logger.String("channel_id", channelID),
		logger.String("video_id", ls.VideoID))
	if err := r.store.Delete(ctx, key); err != nil {
		return nil, fmt.Errorf("drop stale livestream cache: %w", err)
	}
	return nil, nil
}

func (r *Resolver) search(ctx context.Context, channelID string) (*domain.Livestream, error) {
	videoID, err := r.platform.SearchLive(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if videoID == "" {
		return nil, nil
	}
	if !domain.ValidVideoID(videoID) {
		return nil, fmt.Errorf("%w: search returned malformed video id %q", domain.ErrUpstream, videoID)
	}

	video, err := r.platform.Video(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if video == nil || video.ActualStartTime == "" {
		// Scheduled but not started yet.
		return nil, nil
	}
	if video.Title == "" {
		return nil, fmt.Errorf("%w: video %s has no title", domain.ErrUpstream, videoID)
	}
	start, err := time.Parse(time.RFC3339, video.ActualStartTime)
	if err != nil {
		return nil, fmt.Errorf("%w: video %s start time: %v", domain.ErrUpstream, videoID, err)
	}

	ls := &domain.Livestream{VideoID: videoID, StartTime: start.UTC()}
	r.remember(ctx, channelID, ls)
	if err := r.store.Set(ctx, TitleKey(videoID), []byte(video.Title), 0); err != nil {
		return nil, fmt.Errorf("store stream title: %w", err)
	}

	r.log.Info("livestream discovered",
		logger.String("channel_id", channelID),
		logger.String("video_id", videoID),
		logger.String("title", video.Title),
		logger.Time("start_time", ls.StartTime))
	return ls, nil
}

// remember caches ls. Failures only cost an extra search later.
func (r *Resolver) remember(ctx context.Context, channelID string, ls *domain.Livestream) {
	raw, err := ls.Encode()
	if err == nil {
		err = r.store.Set(ctx, CacheKey(channelID), raw, r.ttl)
	}
	if err != nil {
		r.log.Warn("failed to cache livestream",
			logger.String("channel_id", channelID),
			logger.String("video_id", ls.VideoID),
			logger.Error(err))
	}
}
