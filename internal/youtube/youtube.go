// Package youtube wraps the two read calls of the YouTube Data API v3 the
// service needs: "is there a live broadcast on this channel" and "tell me
// about this video". Calls are never retried; a circuit breaker fails them
// fast while the API keeps erroring.
package youtube

import (
	"context"
	"fmt"
	"time"

	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"github.com/MrSnakeDoc/streammarks/internal/domain"
	"github.com/MrSnakeDoc/streammarks/internal/logger"
	"github.com/MrSnakeDoc/streammarks/internal/metrics"
)

const (
	opSearch = "search.list"
	opVideos = "videos.list"

	// BroadcastLive is snippet.liveBroadcastContent of a running livestream.
	BroadcastLive = "live"
)

// Video is the subset of a videos.list item the service reads.
type Video struct {
	ID                   string
	Title                string
	LiveBroadcastContent string // "live" | "upcoming" | "none"
	ActualStartTime      string // RFC3339, empty until the stream starts
}

// IsLive reports whether the video is a livestream that is currently running.
func (v *Video) IsLive() bool {
	return v != nil && v.LiveBroadcastContent == BroadcastLive
}

type Options struct {
	APIKey           string
	Endpoint         string        // optional base URL override (tests, proxies)
	Timeout          time.Duration // per call, 0 = caller's context only
	BreakerThreshold uint          // consecutive failures before opening, 0 = 5
	BreakerDelay     time.Duration // open -> half-open delay, 0 = 30s
}

type Client struct {
	svc     *yt.Service
	cb      circuitbreaker.CircuitBreaker[any]
	timeout time.Duration
	log     logger.Logger
	m       *metrics.Metrics
}

// New builds a client authenticated with an API key.
func New(ctx context.Context, opts Options, log logger.Logger, m *metrics.Metrics) (*Client, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("youtube: API key is required")
	}
	if opts.BreakerThreshold == 0 {
		opts.BreakerThreshold = 5
	}
	if opts.BreakerDelay <= 0 {
		opts.BreakerDelay = 30 * time.Second
	}

	clientOpts := []option.ClientOption{option.WithAPIKey(opts.APIKey)}
	if opts.Endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(opts.Endpoint))
	}
	svc, err := yt.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("youtube: create service: %w", err)
	}

	c := &Client{svc: svc, timeout: opts.Timeout, log: log, m: m}
	c.cb = circuitbreaker.Builder[any]().
		WithFailureThreshold(opts.BreakerThreshold).
		WithDelay(opts.BreakerDelay).
		WithSuccessThreshold(1).
		OnStateChanged(func(e circuitbreaker.StateChangedEvent) {
			log.Warn("youtube circuit breaker state changed",
				logger.String("from", e.OldState.String()),
				logger.String("to", e.NewState.String()))
			m.YouTubeBreakerState.Set(stateToFloat(e.NewState))
		}).
		Build()

	return c, nil
}

// SearchLive returns the id of a live broadcast on channelID, or "" when there is none.
func (c *Client) SearchLive(ctx context.Context, channelID string) (string, error) {
	var videoID string
	err := c.call(ctx, opSearch, func(ctx context.Context) error {
		res, err := c.svc.Search.List([]string{"snippet"}).
			ChannelId(channelID).
			EventType("live").
			Type("video").
			MaxResults(1).
			Context(ctx).
			Do()
		if err != nil {
			return err
		}
		if len(res.Items) == 0 {
			return nil
		}
		item := res.Items[0]
		if item.Id == nil || item.Id.VideoId == "" {
			return fmt.Errorf("search result without video id")
		}
		videoID = item.Id.VideoId
		return nil
	})
	return videoID, err
}

// Video fetches snippet and liveStreamingDetails. A missing video is (nil, nil).
func (c *Client) Video(ctx context.Context, videoID string) (*Video, error) {
	var video *Video
	err := c.call(ctx, opVideos, func(ctx context.Context) error {
		res, err := c.svc.Videos.List([]string{"snippet", "liveStreamingDetails"}).
			Id(videoID).
			Context(ctx).
			Do()
		if err != nil {
			return err
		}
		if len(res.Items) == 0 {
			return nil
		}
		item := res.Items[0]
		video = &Video{ID: item.Id}
		if item.Snippet != nil {
			video.Title = item.Snippet.Title
			video.LiveBroadcastContent = item.Snippet.LiveBroadcastContent
		}
		if item.LiveStreamingDetails != nil {
			video.ActualStartTime = item.LiveStreamingDetails.ActualStartTime
		}
		return nil
	})
	return video, err
}

// call runs fn behind the breaker and the per-call timeout. Every failure is an ErrUpstream.
func (c *Client) call(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	if !c.cb.TryAcquirePermit() {
		c.m.YouTubeRequests.WithLabelValues(op, "rejected").Inc()
		return fmt.Errorf("%w: youtube %s: %w", domain.ErrUpstream, op, circuitbreaker.ErrOpen)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	err := fn(ctx)
	if err != nil {
		c.cb.RecordError(err)
		c.m.YouTubeRequests.WithLabelValues(op, "error").Inc()
		c.log.Warn("youtube call failed",
			logger.String("operation", op),
			logger.Duration("duration", time.Since(start)),
			logger.Error(err))
		return fmt.Errorf("%w: youtube %s: %w", domain.ErrUpstream, op, err)
	}

	c.cb.RecordSuccess()
	c.m.YouTubeRequests.WithLabelValues(op, "success").Inc()
	c.log.Debug("youtube call",
		logger.String("operation", op),
		logger.Duration("duration", time.Since(start)))
	return nil
}

func stateToFloat(state circuitbreaker.State) float64 {
	switch state {
	case circuitbreaker.ClosedState:
		return 0
	case circuitbreaker.HalfOpenState:
		return 1
	case circuitbreaker.OpenState:
		return 2
	default:
		return -1
	}
}
