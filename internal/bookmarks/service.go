// Package bookmarks creates, moves, lists and counts viewer bookmarks.
//
// A bookmark is keyed by (videoId, username). Concurrent requests for the
// same pair are serialized by the store's atomic commit only: each attempt
// reads the current entry, asserts its versionstamp and writes, and a
// rejected commit restarts the whole cycle.
package bookmarks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/MrSnakeDoc/streammarks/internal/domain"
	"github.com/MrSnakeDoc/streammarks/internal/kv"
	"github.com/MrSnakeDoc/streammarks/internal/livestream"
	"github.com/MrSnakeDoc/streammarks/internal/logger"
	"github.com/MrSnakeDoc/streammarks/internal/metrics"
	"github.com/MrSnakeDoc/streammarks/internal/retry"
)

// CountKey holds the total number of bookmarks ever created.
var CountKey = kv.Key{"count"}

// Key is where the bookmark of username on videoID lives.
func Key(videoID, username string) kv.Key {
	return kv.Key{"bookmarks", videoID, username}
}

// Resolver finds the running livestream of a channel (nil when offline).
type Resolver interface {
	Resolve(ctx context.Context, channelID string) (*domain.Livestream, error)
}

// ChannelPolicy decides which channels may create bookmarks.
type ChannelPolicy interface {
	Allowed(channelID string) bool
}

type Options struct {
	PublicURL       string        // base of the list page link, without trailing slash
	MaxAttempts     int           // 0 = retry conflicts until the context ends
	RetryBackoff    time.Duration // first wait after a conflict
	RetryMaxBackoff time.Duration
	Clock           clockwork.Clock // nil = real clock
	Policy          ChannelPolicy   // nil = every channel allowed
}

type Service struct {
	store    kv.Store
	resolver Resolver
	policy   ChannelPolicy
	clock    clockwork.Clock
	retry    retry.Policy
	recount  retry.Policy
	baseURL  string
	log      logger.Logger
	m        *metrics.Metrics
}

func NewService(store kv.Store, resolver Resolver, opts Options, log logger.Logger, m *metrics.Metrics) *Service {
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	s := &Service{
		store:    store,
		resolver: resolver,
		policy:   opts.Policy,
		clock:    clock,
		baseURL:  strings.TrimSuffix(opts.PublicURL, "/"),
		log:      log,
		m:        m,
	}
	s.retry = retry.Policy{
		MaxAttempts:    opts.MaxAttempts,
		InitialBackoff: opts.RetryBackoff,
		MaxBackoff:     opts.RetryMaxBackoff,
		OnRetry: func(attempt int, err error, backoff time.Duration) {
			m.BookmarkConflicts.Inc()
			log.Debug("bookmark commit conflict, retrying",
				logger.Int("attempt", attempt),
				logger.Duration("backoff", backoff))
		},
	}
	s.recount = s.retry
	s.recount.OnRetry = func(attempt int, err error, backoff time.Duration) {
		log.Debug("recount commit conflict, retrying",
			logger.Int("attempt", attempt),
			logger.Duration("backoff", backoff))
	}
	return s
}

// ─────────────────────────────────────────────────────────────────
// Create or move
// ─────────────────────────────────────────────────────────────────

// CreateOrMove bookmarks the current position of the channel's livestream for
// the user, both given as raw Nightbot header values, and returns the chat reply.
func (s *Service) CreateOrMove(ctx context.Context, channelRecord, userRecord string) (string, error) {
	msg, err := s.createOrMove(ctx, channelRecord, userRecord)
	if err != nil {
		s.m.BookmarkFailures.WithLabelValues(failureKind(err)).Inc()
	}
	return msg, err
}

func (s *Service) createOrMove(ctx context.Context, channelRecord, userRecord string) (string, error) {
	channel, err := domain.ParseChannel(channelRecord)
	if err != nil {
		return "", err
	}
	user, err := domain.ParseUser(userRecord)
	if err != nil {
		return "", err
	}

	if s.policy != nil && !s.policy.Allowed(channel.ProviderID) {
		return "", fmt.Errorf("%w: %s", domain.ErrChannelNotAllowed, channel.ProviderID)
	}

	ls, err := s.resolver.Resolve(ctx, channel.ProviderID)
	if err != nil {
		return "", err
	}
	if ls == nil {
		return "", fmt.Errorf("%w: channel %s", domain.ErrStreamNotLive, channel.ProviderID)
	}

	bm := domain.Bookmark{
		Username:          user.DisplayName,
		SecondsSinceStart: ls.Elapsed(s.clock.Now()),
	}
	action, err := s.upsert(ctx, ls.VideoID, bm)
	if err != nil {
		return "", err
	}

	s.m.BookmarkUpserts.WithLabelValues(string(action)).Inc()
	s.log.Info("bookmark saved",
		logger.String("action", string(action)),
		logger.String("channel", channel.Name),
		logger.String("video_id", ls.VideoID),
		logger.String("user", bm.Username),
		logger.Int64("seconds", bm.SecondsSinceStart))

	return s.message(action, ls.VideoID, bm), nil
}

// upsert writes bm for videoID. Creating also bumps the counter in the same commit.
func (s *Service) upsert(ctx context.Context, videoID string, bm domain.Bookmark) (domain.Action, error) {
	key := Key(videoID, bm.Username)
	raw, err := json.Marshal(bm)
	if err != nil {
		return "", fmt.Errorf("encode bookmark: %w", err)
	}

	action, err := retry.Do(ctx, s.retry, func(int) (domain.Action, error) {
		entry, err := s.store.Get(ctx, key)
		if err != nil {
			return "", fmt.Errorf("read bookmark: %w", err)
		}

		op := kv.NewAtomic().
			Check(key, entry.Versionstamp).
			Set(key, raw, 0)
		action := domain.ActionMoves
		if !entry.Exists() {
			op.Sum(CountKey, 1)
			action = domain.ActionCreates
		}

		res, err := s.store.Commit(ctx, op)
		if err != nil {
			return "", fmt.Errorf("commit bookmark: %w", err)
		}
		if !res.OK {
			return "", retry.ErrConflict
		}
		return action, nil
	})
	if errors.Is(err, retry.ErrExhausted) {
		return "", fmt.Errorf("%w: bookmark %s: %w", domain.ErrConcurrencyExhausted, key, err)
	}
	return action, err
}

func (s *Service) message(action domain.Action, videoID string, bm domain.Bookmark) string {
	return fmt.Sprintf("%s %s a bookmark at %s! See all bookmarks: %s/%s?h=%s",
		bm.Username, action, bm.Formatted(), s.baseURL, videoID, url.QueryEscape(bm.Username))
}

// ─────────────────────────────────────────────────────────────────
// Reads
// ─────────────────────────────────────────────────────────────────

// ListForVideo returns the title and bookmarks of a video, earliest first.
// A video without a stored title is unknown.
func (s *Service) ListForVideo(ctx context.Context, videoID string) (domain.VideoBookmarks, error) {
	if !domain.ValidVideoID(videoID) {
		return domain.VideoBookmarks{}, fmt.Errorf("%w: %q", domain.ErrVideoNotFound, videoID)
	}

	title, err := s.store.Get(ctx, livestream.TitleKey(videoID))
	if err != nil {
		return domain.VideoBookmarks{}, fmt.Errorf("read stream title: %w", err)
	}
	if !title.Exists() {
		return domain.VideoBookmarks{}, fmt.Errorf("%w: %s", domain.ErrVideoNotFound, videoID)
	}

	entries, err := s.store.List(ctx, kv.Key{"bookmarks", videoID})
	if err != nil {
		return domain.VideoBookmarks{}, fmt.Errorf("list bookmarks: %w", err)
	}

	out := domain.VideoBookmarks{
		VideoID:   videoID,
		Title:     string(title.Value),
		Bookmarks: make([]domain.Bookmark, 0, len(entries)),
	}
	for _, e := range entries {
		var bm domain.Bookmark
		if err := json.Unmarshal(e.Value, &bm); err != nil {
			return domain.VideoBookmarks{}, fmt.Errorf("%w: bookmark %s: %v", domain.ErrDataCorruption, e.Key, err)
		}
		out.Bookmarks = append(out.Bookmarks, bm)
	}
	slices.SortFunc(out.Bookmarks, func(a, b domain.Bookmark) int {
		if a.SecondsSinceStart != b.SecondsSinceStart {
			if a.SecondsSinceStart < b.SecondsSinceStart {
				return -1
			}
			return 1
		}
		return strings.Compare(a.Username, b.Username)
	})
	return out, nil
}

// Count returns the bookmark counter. ok is false when it was never written.
func (s *Service) Count(ctx context.Context) (n uint64, ok bool, err error) {
	entry, err := s.store.Get(ctx, CountKey)
	if err != nil {
		return 0, false, fmt.Errorf("read bookmark count: %w", err)
	}
	if !entry.Exists() {
		return 0, false, nil
	}
	n, err = kv.DecodeU64(entry.Value)
	if err != nil {
		return 0, false, fmt.Errorf("%w: %v", domain.ErrDataCorruption, err)
	}
	return n, true, nil
}

// ─────────────────────────────────────────────────────────────────
// Recount
// ─────────────────────────────────────────────────────────────────

// Recount rebuilds the counter from a full scan. The new value is committed
// against the versionstamp read before the scan, so a bookmark created during
// the scan forces another pass instead of being lost.
func (s *Service) Recount(ctx context.Context) (domain.RecountResult, error) {
	start := s.clock.Now()

	res, err := retry.Do(ctx, s.recount, func(int) (domain.RecountResult, error) {
		entry, err := s.store.Get(ctx, CountKey)
		if err != nil {
			return domain.RecountResult{}, fmt.Errorf("read bookmark count: %w", err)
		}
		var old *uint64
		if entry.Exists() {
			n, err := kv.DecodeU64(entry.Value)
			if err != nil {
				return domain.RecountResult{}, fmt.Errorf("%w: %v", domain.ErrDataCorruption, err)
			}
			old = &n
		}

		all, err := s.store.List(ctx, kv.Key{"bookmarks"})
		if err != nil {
			return domain.RecountResult{}, fmt.Errorf("list bookmarks: %w", err)
		}
		count := uint64(len(all))

		op := kv.NewAtomic().
			Check(CountKey, entry.Versionstamp).
			Set(CountKey, kv.EncodeU64(count), 0)
		cr, err := s.store.Commit(ctx, op)
		if err != nil {
			return domain.RecountResult{}, fmt.Errorf("commit bookmark count: %w", err)
		}
		if !cr.OK {
			return domain.RecountResult{}, retry.ErrConflict
		}
		return domain.RecountResult{OldCount: old, NewCount: count}, nil
	})
	if errors.Is(err, retry.ErrExhausted) {
		return domain.RecountResult{}, fmt.Errorf("%w: recount: %w", domain.ErrConcurrencyExhausted, err)
	}
	if err != nil {
		return domain.RecountResult{}, err
	}

	res.TimeTaken = formatMillis(s.clock.Since(start))
	s.m.Recounts.Inc()

	fields := []logger.Field{
		logger.Uint64("new_count", res.NewCount),
		logger.String("time_taken", res.TimeTaken),
	}
	if res.OldCount != nil {
		fields = append(fields, logger.Uint64("old_count", *res.OldCount))
	}
	s.log.Info("bookmarks recounted", fields...)
	return res, nil
}

func formatMillis(d time.Duration) string {
	return strconv.FormatFloat(float64(d)/float64(time.Millisecond), 'f', -1, 64) + "ms"
}

// failureKind labels an error for the failures metric.
func failureKind(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, domain.ErrUnsupportedProvider):
		return "unsupported_provider"
	case errors.Is(err, domain.ErrChannelNotAllowed):
		return "channel_not_allowed"
	case errors.Is(err, domain.ErrStreamNotLive):
		return "not_live"
	case errors.Is(err, domain.ErrUpstream):
		return "upstream"
	case errors.Is(err, domain.ErrDataCorruption):
		return "data_corruption"
	case errors.Is(err, domain.ErrConcurrencyExhausted):
		return "concurrency"
	default:
		return "internal"
	}
}
