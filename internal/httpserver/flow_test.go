package httpserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/streammarks/internal/bookmarks"
	"github.com/MrSnakeDoc/streammarks/internal/domain"
	"github.com/MrSnakeDoc/streammarks/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/streammarks/internal/livestream"
	"github.com/MrSnakeDoc/streammarks/internal/logger"
	"github.com/MrSnakeDoc/streammarks/internal/metrics"
	"github.com/MrSnakeDoc/streammarks/internal/store/memory"
	"github.com/MrSnakeDoc/streammarks/internal/youtube"
)

const (
	flowChannel = "UCp6pmlkI1WbrZFOWlXtOwCQ"
	flowVideo   = "dQw4w9WgXcQ"
)

// fakeYouTube serves one channel that is live on flowVideo.
func fakeYouTube(t *testing.T, startedAt time.Time, searches *atomic.Int32) string {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/youtube/v3/search", func(w http.ResponseWriter, r *http.Request) {
		searches.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[{"id":{"kind":"youtube#video","videoId":"` + flowVideo + `"}}]}`))
	})
	mux.HandleFunc("/youtube/v3/videos", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[{"id":"` + flowVideo + `",` +
			`"snippet":{"title":"Any% speedrun","liveBroadcastContent":"live"},` +
			`"liveStreamingDetails":{"actualStartTime":"` + startedAt.Format(time.RFC3339) + `"}}]}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv.URL + "/"
}

func TestBookmarkFlowEndToEnd(t *testing.T) {
	ctx := context.Background()
	startedAt := time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC)
	clock := clockwork.NewFakeClockAt(startedAt.Add(125 * time.Second))

	var searches atomic.Int32
	log := logger.NewNop()
	m := metrics.NewNop()

	yt, err := youtube.New(ctx, youtube.Options{
		APIKey:   "test-key",
		Endpoint: fakeYouTube(t, startedAt, &searches),
		Timeout:  5 * time.Second,
	}, log, m)
	require.NoError(t, err)

	store := memory.NewStore(nil)
	resolver := livestream.NewResolver(store, yt, time.Hour, log, m)
	svc := bookmarks.NewService(store, resolver, bookmarks.Options{
		PublicURL:   "https://marks.example.com",
		MaxAttempts: 5,
		Clock:       clock,
	}, log, m)

	d := newTestDeps(svc)
	d.Store = store
	router := NewRouter(5*time.Second, d)

	channel := domain.EncodeChannel(domain.Channel{Name: "argon", DisplayName: "Argon", Provider: domain.ProviderYouTube, ProviderID: flowChannel})
	create := func(user string) *httptest.ResponseRecorder {
		return serve(router, nightbotRequest(map[string]string{
			handlers.HeaderResponseURL: "https://api.nightbot.tv/1/channel/send/x",
			handlers.HeaderUser:        domain.EncodeUser(domain.User{Name: user, DisplayName: user, Provider: domain.ProviderYouTube}),
			handlers.HeaderChannel:     channel,
		}))
	}

	rec := create("Alice")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Alice creates a bookmark at 0:02:05! See all bookmarks: https://marks.example.com/"+flowVideo+"?h=Alice", rec.Body.String())

	clock.Advance(65 * time.Second)
	rec = create("Alice")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Alice moves a bookmark at 0:03:10! See all bookmarks: https://marks.example.com/"+flowVideo+"?h=Alice", rec.Body.String())

	rec = create("Bob")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int32(1), searches.Load(), "cached livestream is reused")

	rec = serve(router, httptest.NewRequest(http.MethodGet, "/"+flowVideo+"?h=Bob", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Any% speedrun")
	assert.Contains(t, body, "Alice: 0:03:10")
	assert.Contains(t, body, "Bob: 0:03:10")

	rec = serve(router, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Contains(t, rec.Body.String(), "2 bookmarks created so far.")
}
