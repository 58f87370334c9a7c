package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

type Config struct {
	ListenAddr      string        // ex: ":8000"
	ShutdownTimeout time.Duration // ex: 5s
	RequestTimeout  time.Duration // per-request timeout, covers both YouTube calls
	PublicURL       string        // base URL used in chat replies (ex: https://marks.example.com)

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	// YouTube Data API
	YouTubeAPIKey           string
	YouTubeTimeout          time.Duration // timeout of a single API call
	YouTubeBreakerThreshold int           // consecutive failures before the breaker opens
	YouTubeBreakerDelay     time.Duration // how long the breaker stays open

	// Bookmarks
	LivestreamCacheTTL      time.Duration // expiry of the channel -> live video cache entry
	BookmarkMaxAttempts     int           // 0 = retry conflicts forever
	BookmarkRetryBackoff    time.Duration // first wait after a conflict
	BookmarkRetryMaxBackoff time.Duration // cap for the doubling backoff

	// Admin
	RecountKey      string        // bearer token for /recount and /reload
	RecountInterval time.Duration // periodic counter reconciliation, 0 = disabled

	// Channel allow-list (both empty => policy disabled)
	AllowedChannels         []string
	AllowedChannelsFile     string
	AllowlistReloadInterval time.Duration

	// KV backend
	KVBackend string // "redis" | "memory"

	// Redis
	RedisAddr             string        // ex: "localhost:6379"
	RedisUser             string        // optional
	RedisPassword         string        // optional
	RedisPasswordRequired bool          // true => require password, false => allow empty password
	RedisDB               int           // Redis DB number
	RedisDT               time.Duration // Redis dial timeout (ex: 5s)
	RedisRT               time.Duration // Redis read timeout (ex: 3s)
	RedisWT               time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait          time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout      time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize         int           // Redis connection pool size
	RedisConnectTimeout   time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval    time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold    int           // warn after this many attempts

	// Access restrictions
	AllowedCIDRS    []string // optional, restrict healthz/readyz/metrics to these IPs/CIDRs
	TrustProxy      bool     // true => trust X-Forwarded-For headers (e.g. cloudflared)
	RateLimitBurst  int      // per-IP burst on /create-bookmark
	RateLimitPerMin int      // per-IP refill rate on /create-bookmark
}

func Load() *Config {
	// A missing .env is the normal case in containers.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("[WARN] failed to load .env: %v", err)
	}

	cfg := &Config{
		// Server settings
		ListenAddr:      getenv("LISTEN_ADDR", ":8000"),
		ShutdownTimeout: mustDuration("SHUTDOWN_TIMEOUT", 5*time.Second),
		RequestTimeout:  mustDuration("HTTP_REQUEST_TIMEOUT", 10*time.Second),
		PublicURL:       strings.TrimRight(getenv("PUBLIC_URL", "http://localhost:8000"), "/"),

		// Logging
		LogLevel:  getenv("LOG_LEVEL", "info"),
		PrettyLog: mustBool("LOG_PRETTY", false),

		// YouTube
		YouTubeAPIKey:           requireEnv("YOUTUBE_API_KEY"),
		YouTubeTimeout:          mustDuration("YOUTUBE_TIMEOUT", 5*time.Second),
		YouTubeBreakerThreshold: getenvInt("YOUTUBE_BREAKER_THRESHOLD", 5),
		YouTubeBreakerDelay:     mustDuration("YOUTUBE_BREAKER_DELAY", 30*time.Second),

		// Bookmarks
		LivestreamCacheTTL:      mustDuration("LIVESTREAM_CACHE_TTL", 6*time.Hour),
		BookmarkMaxAttempts:     getenvInt("BOOKMARK_MAX_ATTEMPTS", 50),
		BookmarkRetryBackoff:    mustDuration("BOOKMARK_RETRY_BACKOFF", 5*time.Millisecond),
		BookmarkRetryMaxBackoff: mustDuration("BOOKMARK_RETRY_MAX_BACKOFF", 250*time.Millisecond),

		// Admin
		RecountKey:      requireEnv("RECOUNT_KEY"),
		RecountInterval: mustDuration("RECOUNT_INTERVAL", 0),

		// Allow-list
		AllowedChannels:         splitAndTrim(getenv("ALLOWED_CHANNELS", "")),
		AllowedChannelsFile:     getenv("ALLOWED_CHANNELS_FILE", ""),
		AllowlistReloadInterval: mustDuration("ALLOWLIST_RELOAD_INTERVAL", 5*time.Minute),

		KVBackend: strings.ToLower(getenv("KV_BACKEND", BackendRedis)),

		// Redis settings
		RedisUser:             getenv("REDIS_USERNAME", ""),
		RedisPasswordRequired: mustBool("REDIS_PASSWORD_REQUIRED", false),
		RedisPassword:         getenv("REDIS_PASSWORD", ""),
		RedisDB:               getenvInt("REDIS_DB", 0),
		RedisDT:               mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:               mustDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:               mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:          mustDuration("REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:      mustDuration("REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:         getenvInt("REDIS_POOL_SIZE", 10),
		RedisConnectTimeout:   mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:    mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:    getenvInt("REDIS_WARN_THRESHOLD", 3),

		// Access restrictions
		AllowedCIDRS:    parseAllowedIPs(getenv("ALLOWED_CIDRS", "")),
		TrustProxy:      mustBool("TRUST_PROXY", false),
		RateLimitBurst:  getenvInt("RATE_LIMIT_BURST", 10),
		RateLimitPerMin: getenvInt("RATE_LIMIT_PER_MIN", 30),
	}

	switch cfg.KVBackend {
	case BackendRedis:
		cfg.RedisAddr = requireEnv("REDIS_ADDR")
	case BackendMemory:
	default:
		panic(fmt.Sprintf("❌ FATAL: KV_BACKEND must be %q or %q, got %q", BackendRedis, BackendMemory, cfg.KVBackend))
	}

	// Validate Redis password configuration
	if cfg.KVBackend == BackendRedis && cfg.RedisPasswordRequired && cfg.RedisPassword == "" {
		panic("❌ FATAL: REDIS_PASSWORD is required when REDIS_PASSWORD_REQUIRED=true")
	}

	if cfg.BookmarkMaxAttempts < 0 {
		panic(fmt.Sprintf("❌ FATAL: BOOKMARK_MAX_ATTEMPTS must be >= 0, got %d", cfg.BookmarkMaxAttempts))
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		cfgCopy.RedisPassword = "***REDACTED***"
		cfgCopy.YouTubeAPIKey = "***REDACTED***"
		cfgCopy.RecountKey = "***REDACTED***"
		if cfg.RedisUser != "" {
			cfgCopy.RedisUser = "***REDACTED***"
		}
		log.Printf("[DEBUG] cfg: %+v\n", cfgCopy)
	}

	return cfg
}

// AllowlistEnabled reports whether a channel allow-list policy is configured.
func (c *Config) AllowlistEnabled() bool {
	return len(c.AllowedChannels) > 0 || c.AllowedChannelsFile != ""
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	return v
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func parseAllowedIPs(allowed string) []string {
	if allowed == "" {
		return nil
	}
	ips := make([]string, 0, 4)
	for _, ip := range splitAndTrim(allowed) {
		if ip != "" {
			ips = append(ips, ip)
		}
	}
	return ips
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
