package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Browser   BrowserConfig
	Scraper   ScraperConfig
	Cache     CacheConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Log       LogConfig
	Profile   RuntimeProfile
}

// RuntimeProfile is the environment-conditional configuration resolved once
// at startup and passed explicitly into components. Serverless deployments
// get more generous timeouts (cold networks, slower disks) and a different
// browser executable search order.
type RuntimeProfile struct {
	// Serverless indicates a constrained serverless-like deployment.
	Serverless bool

	// Region is the locale parameter for Danggeun's localized search
	// endpoint (e.g. "서울특별시").
	Region string

	// FastFetchTimeout is the deadline for a plain HTTP fast-fetch attempt.
	FastFetchTimeout time.Duration // default: 4s local, 8s serverless

	// NavigationTimeout is the deadline for a browser-driven attempt
	// (navigation + render wait + scrolling + snapshot).
	NavigationTimeout time.Duration // default: 15s local, 25s serverless

	// SourceBudget is the overall per-source deadline enforced by the
	// aggregator, covering the whole fast-fetch → browser fallback chain.
	SourceBudget time.Duration // default: 20s local, 35s serverless

	// DetailTimeout is the per-item deadline for detail enrichment. It is
	// deliberately shorter than SourceBudget: enrichment is best-effort.
	DetailTimeout time.Duration // default: 8s local, 12s serverless

	// BrowserBinCandidates are browser executable paths tried in order.
	// An empty entry means "let the launcher auto-detect".
	BrowserBinCandidates []string
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// BrowserConfig controls the shared Rod browser session.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// NoSandbox disables Chrome's sandbox (needed in Docker/serverless).
	NoSandbox bool // default: false

	// UserAgent is applied to every page before navigation.
	UserAgent string

	// ViewportWidth/ViewportHeight constrain each page's viewport.
	ViewportWidth  int // default: 1280
	ViewportHeight int // default: 860
}

// ScraperConfig controls search and detail scraping behavior.
type ScraperConfig struct {
	// MinBodyBytes is the smallest fast-fetch body accepted as a real
	// search-results page; anything shorter triggers the browser fallback.
	MinBodyBytes int // default: 512

	// ScrollSteps is the number of programmatic scrolls used to flush
	// lazy-loaded listings in browser-driven extraction.
	ScrollSteps int // default: 3

	// ScrollDelay is the pause between scroll steps.
	ScrollDelay time.Duration // default: 400ms

	// DetailBatchSize bounds concurrent detail-page fetches.
	DetailBatchSize int // default: 3

	// MaxConcurrentSources bounds concurrent source scrapes per search.
	MaxConcurrentSources int // default: 3

	// EngineMemoryTTL is how long a source remembers which fetch engine
	// last worked for it.
	EngineMemoryTTL time.Duration // default: 30m
}

// CacheConfig controls the per-source search result cache.
type CacheConfig struct {
	// MaxEntries is the maximum number of cached result lists.
	MaxEntries int // default: 512

	// TTL is the freshness window. Marketplace prices and availability
	// move fast, so this is much shorter than a typical web cache.
	TTL time.Duration // default: 15m
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: false

	// APIKeys is the list of valid API keys.
	APIKeys []string
}

// RateLimitConfig controls per-identity rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per identity.
	RequestsPerSecond float64 // default: 5

	// Burst is the maximum burst size per identity.
	Burst int // default: 10
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	profile := resolveProfile()

	return &Config{
		Server: ServerConfig{
			Host: envOr("JANGTER_HOST", "0.0.0.0"),
			Port: envIntOr("JANGTER_PORT", 8080),
			Mode: envOr("JANGTER_MODE", "release"),
		},
		Browser: BrowserConfig{
			Headless:       envBoolOr("JANGTER_HEADLESS", true),
			NoSandbox:      envBoolOr("JANGTER_NO_SANDBOX", profile.Serverless),
			UserAgent:      envOr("JANGTER_USER_AGENT", defaultUserAgent),
			ViewportWidth:  envIntOr("JANGTER_VIEWPORT_WIDTH", 1280),
			ViewportHeight: envIntOr("JANGTER_VIEWPORT_HEIGHT", 860),
		},
		Scraper: ScraperConfig{
			MinBodyBytes:         envIntOr("JANGTER_MIN_BODY_BYTES", 512),
			ScrollSteps:          envIntOr("JANGTER_SCROLL_STEPS", 3),
			ScrollDelay:          envDurationOr("JANGTER_SCROLL_DELAY", 400*time.Millisecond),
			DetailBatchSize:      envIntOr("JANGTER_DETAIL_BATCH", 3),
			MaxConcurrentSources: envIntOr("JANGTER_MAX_CONCURRENT_SOURCES", 3),
			EngineMemoryTTL:      envDurationOr("JANGTER_ENGINE_MEMORY_TTL", 30*time.Minute),
		},
		Cache: CacheConfig{
			MaxEntries: envIntOr("JANGTER_CACHE_MAX_ENTRIES", 512),
			TTL:        envDurationOr("JANGTER_CACHE_TTL", 15*time.Minute),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("JANGTER_AUTH_ENABLED", false),
			APIKeys: envSliceOr("JANGTER_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("JANGTER_RATE_RPS", 5.0),
			Burst:             envIntOr("JANGTER_RATE_BURST", 10),
		},
		Log: LogConfig{
			Level:  envOr("JANGTER_LOG_LEVEL", "info"),
			Format: envOr("JANGTER_LOG_FORMAT", "json"),
		},
		Profile: profile,
	}
}

// resolveProfile computes the RuntimeProfile from the deployment environment.
// Serverless is detected either explicitly (JANGTER_SERVERLESS) or via the
// platform markers the usual suspects inject.
func resolveProfile() RuntimeProfile {
	serverless := envBoolOr("JANGTER_SERVERLESS",
		os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "" || os.Getenv("VERCEL") != "")

	p := RuntimeProfile{
		Serverless:        serverless,
		Region:            envOr("JANGTER_REGION", "서울특별시"),
		FastFetchTimeout:  envDurationOr("JANGTER_FAST_TIMEOUT", 4*time.Second),
		NavigationTimeout: envDurationOr("JANGTER_NAV_TIMEOUT", 15*time.Second),
		SourceBudget:      envDurationOr("JANGTER_SOURCE_BUDGET", 20*time.Second),
		DetailTimeout:     envDurationOr("JANGTER_DETAIL_TIMEOUT", 8*time.Second),
	}

	if serverless {
		p.FastFetchTimeout = envDurationOr("JANGTER_FAST_TIMEOUT", 8*time.Second)
		p.NavigationTimeout = envDurationOr("JANGTER_NAV_TIMEOUT", 25*time.Second)
		p.SourceBudget = envDurationOr("JANGTER_SOURCE_BUDGET", 35*time.Second)
		p.DetailTimeout = envDurationOr("JANGTER_DETAIL_TIMEOUT", 12*time.Second)
		p.BrowserBinCandidates = envSliceOr("JANGTER_BROWSER_BINS", []string{
			"/opt/chromium/chrome",
			"/usr/bin/chromium-browser",
			"/usr/bin/chromium",
		})
	} else {
		// An empty candidate lets the launcher auto-detect (or download)
		// a managed browser; the explicit paths cover common installs.
		p.BrowserBinCandidates = envSliceOr("JANGTER_BROWSER_BINS", []string{
			"",
			"/usr/bin/google-chrome",
			"/usr/bin/chromium",
			"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
		})
	}

	return p
}

// --- helper functions ---

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
