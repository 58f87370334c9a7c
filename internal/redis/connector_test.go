package redis

import (
	"context"
	"net"
	"os"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/streammarks/internal/logger"
	"github.com/MrSnakeDoc/streammarks/internal/metrics"
)

func validOptions(addr string) ConnectOptions {
	return ConnectOptions{
		Addr:           addr,
		DialTimeout:    50 * time.Millisecond,
		ReadTimeout:    50 * time.Millisecond,
		WriteTimeout:   50 * time.Millisecond,
		PoolSize:       2,
		ConnectTimeout: 300 * time.Millisecond,
		RetryInterval:  20 * time.Millisecond,
		MaxWait:        50 * time.Millisecond,
		PingTimeout:    50 * time.Millisecond,
		WarnThreshold:  1,
	}
}

func TestValidateOptions(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ConnectOptions)
	}{
		{"connect timeout", func(o *ConnectOptions) { o.ConnectTimeout = 0 }},
		{"retry interval", func(o *ConnectOptions) { o.RetryInterval = 0 }},
		{"max wait", func(o *ConnectOptions) { o.MaxWait = -1 }},
		{"ping timeout", func(o *ConnectOptions) { o.PingTimeout = 0 }},
		{"warn threshold", func(o *ConnectOptions) { o.WarnThreshold = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := validOptions("localhost:6379")
			tt.mutate(&opts)
			_, err := New(context.Background(), opts, logger.NewNop())
			assert.Error(t, err)
		})
	}
}

// unusedAddr returns a local address nothing listens on.
func unusedAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func TestNewGivesUpAfterConnectTimeout(t *testing.T) {
	m := metrics.NewNop()
	opts := validOptions(unusedAddr(t))
	opts.Metrics = m

	start := time.Now()
	client, err := New(context.Background(), opts, logger.NewNop())
	require.Error(t, err)
	assert.Nil(t, client)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Greater(t, testutil.ToFloat64(m.RedisOps.WithLabelValues("ping", "error")), 0.0)
}

func TestNewHonoursParentContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	opts := validOptions(unusedAddr(t))
	opts.ConnectTimeout = time.Minute
	_, err := New(ctx, opts, logger.NewNop())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewConnectsWithMetrics(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping redis integration test in short mode")
	}
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	parsed, err := goredis.ParseURL(url)
	require.NoError(t, err)

	m := metrics.NewNop()
	opts := validOptions(parsed.Addr)
	opts.Password = parsed.Password
	opts.User = parsed.Username
	opts.RedisDB = parsed.DB
	opts.ConnectTimeout = 2 * time.Second
	opts.Metrics = m

	client, err := New(context.Background(), opts, logger.NewNop())
	require.NoError(t, err)
	defer func() { _ = client.Close() }()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RedisOps.WithLabelValues("ping", "success")))
}
