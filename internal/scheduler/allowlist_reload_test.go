package scheduler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/streammarks/internal/allowlist"
	"github.com/MrSnakeDoc/streammarks/internal/logger"
	"github.com/MrSnakeDoc/streammarks/internal/metrics"
	source "github.com/MrSnakeDoc/streammarks/internal/sources/allowlist"
)

const (
	argon = "UCp6pmlkI1WbrZFOWlXtOwCQ"
	neon  = "UCaaaaaaaaaaaaaaaaaaaaaa"
)

func writeChannels(t *testing.T, path string, ids ...string) {
	t.Helper()
	content := "channels:\n"
	for _, id := range ids {
		content += "  - id: " + id + "\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestAllowlistReloader_Reload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "channels.yaml")
	writeChannels(t, path, argon, "broken")

	list := allowlist.New(nil, true)
	m := metrics.NewNop()
	r := NewAllowlistReloader(path, list, logger.NewNop(), m, nil, time.Hour, nil)

	require.NoError(t, r.Reload(context.Background()))
	assert.True(t, list.Allowed(argon))
	assert.False(t, list.Allowed(neon))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AllowlistChannels))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AllowlistReloads.WithLabelValues("success")))
}

func TestAllowlistReloader_KeepsPreviousListOnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "channels.yaml")
	writeChannels(t, path, argon)

	list := allowlist.New(nil, true)
	m := metrics.NewNop()
	r := NewAllowlistReloader(path, list, logger.NewNop(), m, nil, time.Hour, nil)
	require.NoError(t, r.Reload(context.Background()))

	writeChannels(t, path, "UCtooshort")
	err := r.Reload(context.Background())
	assert.True(t, errors.Is(err, source.ErrEmpty))
	assert.True(t, list.Allowed(argon))

	require.NoError(t, os.Remove(path))
	assert.Error(t, r.Reload(context.Background()))
	assert.True(t, list.Allowed(argon))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.AllowlistReloads.WithLabelValues("error")))
}

func TestAllowlistReloader_StartFailsWithoutFile(t *testing.T) {
	list := allowlist.New(nil, true)
	r := NewAllowlistReloader("/nonexistent/channels.yaml", list, logger.NewNop(), metrics.NewNop(), nil, time.Hour, nil)
	assert.Error(t, r.Start(context.Background()))
}

func TestAllowlistReloader_TickerAndManualTrigger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "channels.yaml")
	writeChannels(t, path, argon)

	clock := clockwork.NewFakeClock()
	trigger := make(chan struct{})
	list := allowlist.New(nil, true)
	r := NewAllowlistReloader(path, list, logger.NewNop(), metrics.NewNop(), clock, time.Minute, trigger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, r.Start(ctx))
	defer r.Stop()

	writeChannels(t, path, neon)
	trigger <- struct{}{}
	assert.Eventually(t, func() bool { return list.Allowed(neon) }, time.Second, 5*time.Millisecond)

	writeChannels(t, path, argon)
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(time.Minute)
	assert.Eventually(t, func() bool { return list.Allowed(argon) && !list.Allowed(neon) }, time.Second, 5*time.Millisecond)
}
