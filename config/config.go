package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Browser   BrowserConfig
	Tracker   TrackerConfig
	Download  DownloadConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Webhook   WebhookConfig
	Log       LogConfig
}

// ServerConfig controls the control API server.
type ServerConfig struct {
	Host string // default: "127.0.0.1"
	Port int    // default: 8090
	Mode string // "debug", "release", "test"; default: "release"
}

// BrowserConfig controls the Rod browser instance.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	// Tracking usually needs a logged-in, visible browser, so the default is false.
	Headless bool // default: false

	// CDPURL attaches to an already running Chrome instead of launching one.
	CDPURL string

	// DefaultProxy is the proxy URL used for the launched browser.
	DefaultProxy string

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// UserDataDir keeps cookies and logins between runs.
	UserDataDir string

	// Stealth injects anti-automation-detection evasions before navigation.
	Stealth bool // default: true

	// NavigationTimeout is the max time for opening the feed page.
	NavigationTimeout time.Duration // default: 30s

	// BlockedResourceTypes lists resource types to block. Media is never blocked.
	// default: ["Font"]
	BlockedResourceTypes []string

	// BlockAds blocks well-known ad and tracking domains.
	BlockAds bool // default: true
}

// TrackerConfig controls the tracking session.
type TrackerConfig struct {
	// Profile names the platform profile to use.
	Profile string // default: "facebook"

	// ProfilesFile is an optional YAML file with extra or overriding profiles.
	ProfilesFile string

	// FeedURL is the page the browser opens. Empty keeps the current tab (CDP attach).
	FeedURL string

	// OutputDir is where the export file is written.
	OutputDir string // default: "."

	// ScrollDelay overrides the profile's scroll delay when > 0.
	ScrollDelay time.Duration

	// FeedHeaders are sent with every request of the feed tab.
	// VIDTRACK_FEED_HEADERS holds them as a JSON object.
	FeedHeaders map[string]string

	// FeedCookies is a Cookie header value ("c_user=1; xs=...") set before
	// navigation so a freshly launched browser reuses a logged-in session.
	FeedCookies string
}

// DownloadConfig controls the media downloader.
type DownloadConfig struct {
	// Dir is the download folder.
	Dir string // default: "./downloads"

	// MaxConcurrent bounds parallel downloads.
	MaxConcurrent int // default: 2

	// MaxRetries is the retry budget per download.
	MaxRetries int // default: 10

	// Timeout is the socket read timeout for a download.
	Timeout time.Duration // default: 60s

	// HeadTimeout bounds the size probe.
	HeadTimeout time.Duration // default: 15s

	// ChunkSizeKB is the copy buffer size in KiB.
	ChunkSizeKB int // default: 64

	// RequestsPerSecond paces outgoing requests to the media host.
	RequestsPerSecond float64 // default: 4

	// SettingsFile persists settings changed through the API. Empty disables it.
	SettingsFile string // default: "settings.json"
}

// Bounds for the download settings that can be changed at runtime.
const (
	MinConcurrent  = 1
	MaxConcurrent  = 10
	MinRetries     = 1
	MaxRetries     = 20
	MinTimeout     = 30 * time.Second
	MaxTimeout     = 300 * time.Second
	MinChunkSizeKB = 16
	MaxChunkSizeKB = 1024
)

// Validate reports the first setting outside its bounds.
func (c DownloadConfig) Validate() error {
	switch {
	case strings.TrimSpace(c.Dir) == "":
		return errors.New("download folder must not be empty")
	case c.MaxConcurrent < MinConcurrent || c.MaxConcurrent > MaxConcurrent:
		return fmt.Errorf("max concurrent must be between %d and %d", MinConcurrent, MaxConcurrent)
	case c.MaxRetries < MinRetries || c.MaxRetries > MaxRetries:
		return fmt.Errorf("max retries must be between %d and %d", MinRetries, MaxRetries)
	case c.Timeout < MinTimeout || c.Timeout > MaxTimeout:
		return fmt.Errorf("download timeout must be between %d and %d seconds",
			int(MinTimeout/time.Second), int(MaxTimeout/time.Second))
	case c.ChunkSizeKB < MinChunkSizeKB || c.ChunkSizeKB > MaxChunkSizeKB:
		return fmt.Errorf("chunk size must be between %d and %d KB", MinChunkSizeKB, MaxChunkSizeKB)
	}
	return nil
}

// Clamp pulls every bounded setting into range.
func (c *DownloadConfig) Clamp() {
	c.MaxConcurrent = clamp(c.MaxConcurrent, MinConcurrent, MaxConcurrent)
	c.MaxRetries = clamp(c.MaxRetries, MinRetries, MaxRetries)
	c.Timeout = clamp(c.Timeout, MinTimeout, MaxTimeout)
	c.ChunkSizeKB = clamp(c.ChunkSizeKB, MinChunkSizeKB, MaxChunkSizeKB)
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: false

	// APIKeys is the list of valid API keys.
	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key.
	RequestsPerSecond float64 // default: 5

	// Burst is the maximum burst size per API key.
	Burst int // default: 10
}

// WebhookConfig controls the session.stopped notification.
type WebhookConfig struct {
	URL    string
	Secret string
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "text"
}

// Load reads configuration from environment variables with sane defaults.
// A .env file in the working directory is loaded first when present;
// variables already set in the environment win.
func Load() *Config {
	_ = godotenv.Load()

	download := DownloadConfig{
		Dir:               envOr("VIDTRACK_DOWNLOAD_DIR", "./downloads"),
		MaxConcurrent:     envIntOr("VIDTRACK_MAX_CONCURRENT", 2),
		MaxRetries:        envIntOr("VIDTRACK_MAX_RETRIES", 10),
		Timeout:           envDurationOr("VIDTRACK_DOWNLOAD_TIMEOUT", 60*time.Second),
		HeadTimeout:       envDurationOr("VIDTRACK_HEAD_TIMEOUT", 15*time.Second),
		ChunkSizeKB:       envIntOr("VIDTRACK_CHUNK_KB", 64),
		RequestsPerSecond: envFloatOr("VIDTRACK_DOWNLOAD_RPS", 4.0),
		SettingsFile:      envOr("VIDTRACK_SETTINGS_FILE", "settings.json"),
	}
	download.Clamp()

	return &Config{
		Server: ServerConfig{
			Host: envOr("VIDTRACK_HOST", "127.0.0.1"),
			Port: envIntOr("VIDTRACK_PORT", 8090),
			Mode: envOr("VIDTRACK_MODE", "release"),
		},
		Browser: BrowserConfig{
			Headless:             envBoolOr("VIDTRACK_HEADLESS", false),
			CDPURL:               os.Getenv("VIDTRACK_CDP_URL"),
			DefaultProxy:         os.Getenv("VIDTRACK_PROXY"),
			NoSandbox:            envBoolOr("VIDTRACK_NO_SANDBOX", false),
			BrowserBin:           os.Getenv("VIDTRACK_BROWSER_BIN"),
			UserDataDir:          os.Getenv("VIDTRACK_USER_DATA_DIR"),
			Stealth:              envBoolOr("VIDTRACK_STEALTH", true),
			NavigationTimeout:    envDurationOr("VIDTRACK_NAV_TIMEOUT", 30*time.Second),
			BlockedResourceTypes: envSliceOr("VIDTRACK_BLOCKED_RESOURCES", []string{"Font"}),
			BlockAds:             envBoolOr("VIDTRACK_BLOCK_ADS", true),
		},
		Tracker: TrackerConfig{
			Profile:      envOr("VIDTRACK_PROFILE", "facebook"),
			ProfilesFile: os.Getenv("VIDTRACK_PROFILES_FILE"),
			FeedURL:      os.Getenv("VIDTRACK_FEED_URL"),
			OutputDir:    envOr("VIDTRACK_OUTPUT_DIR", "."),
			ScrollDelay:  envDurationOr("VIDTRACK_SCROLL_DELAY", 0),
			FeedHeaders:  envJSONMapOr("VIDTRACK_FEED_HEADERS", nil),
			FeedCookies:  os.Getenv("VIDTRACK_FEED_COOKIES"),
		},
		Download: download,
		Auth: AuthConfig{
			Enabled: envBoolOr("VIDTRACK_AUTH_ENABLED", false),
			APIKeys: envSliceOr("VIDTRACK_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("VIDTRACK_RATE_RPS", 5.0),
			Burst:             envIntOr("VIDTRACK_RATE_BURST", 10),
		},
		Webhook: WebhookConfig{
			URL:    os.Getenv("VIDTRACK_WEBHOOK_URL"),
			Secret: os.Getenv("VIDTRACK_WEBHOOK_SECRET"),
		},
		Log: LogConfig{
			Level:  envOr("VIDTRACK_LOG_LEVEL", "info"),
			Format: envOr("VIDTRACK_LOG_FORMAT", "text"),
		},
	}
}

// --- helper functions ---

func clamp[T int | time.Duration](v, lo, hi T) T {
	return min(max(v, lo), hi)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}

func envJSONMapOr(key string, fallback map[string]string) map[string]string {
	if v := os.Getenv(key); v != "" {
		var m map[string]string
		if err := json.Unmarshal([]byte(v), &m); err == nil {
			return m
		}
	}
	return fallback
}
