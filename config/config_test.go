package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Server.Mode != "release" {
		t.Errorf("mode = %q, want release", cfg.Server.Mode)
	}
	if !cfg.Browser.Headless {
		t.Error("browser should default to headless")
	}
	if cfg.Cache.TTL != 15*time.Minute {
		t.Errorf("cache TTL = %v, want 15m", cfg.Cache.TTL)
	}
	if cfg.Scraper.MaxConcurrentSources != 3 {
		t.Errorf("max concurrent sources = %d, want 3", cfg.Scraper.MaxConcurrentSources)
	}
	if cfg.Auth.Enabled {
		t.Error("auth should default to disabled")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("JANGTER_PORT", "9090")
	t.Setenv("JANGTER_CACHE_TTL", "5m")
	t.Setenv("JANGTER_API_KEYS", "key-one, key-two ,")
	t.Setenv("JANGTER_AUTH_ENABLED", "true")
	t.Setenv("JANGTER_RATE_RPS", "2.5")

	cfg := Load()

	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Cache.TTL != 5*time.Minute {
		t.Errorf("cache TTL = %v, want 5m", cfg.Cache.TTL)
	}
	if !cfg.Auth.Enabled {
		t.Error("auth should be enabled")
	}
	if len(cfg.Auth.APIKeys) != 2 || cfg.Auth.APIKeys[0] != "key-one" || cfg.Auth.APIKeys[1] != "key-two" {
		t.Errorf("api keys = %v, want [key-one key-two]", cfg.Auth.APIKeys)
	}
	if cfg.RateLimit.RequestsPerSecond != 2.5 {
		t.Errorf("rps = %v, want 2.5", cfg.RateLimit.RequestsPerSecond)
	}
}

func TestResolveProfile_LocalDefaults(t *testing.T) {
	t.Setenv("JANGTER_SERVERLESS", "false")

	p := resolveProfile()
	if p.Serverless {
		t.Fatal("profile should be local")
	}
	if p.FastFetchTimeout != 4*time.Second {
		t.Errorf("fast-fetch timeout = %v, want 4s", p.FastFetchTimeout)
	}
	if p.NavigationTimeout != 15*time.Second {
		t.Errorf("navigation timeout = %v, want 15s", p.NavigationTimeout)
	}
	if len(p.BrowserBinCandidates) == 0 || p.BrowserBinCandidates[0] != "" {
		t.Errorf("local profile should lead with the auto-detect candidate, got %v", p.BrowserBinCandidates)
	}
}

func TestResolveProfile_ServerlessStretchesTimeouts(t *testing.T) {
	t.Setenv("JANGTER_SERVERLESS", "true")

	p := resolveProfile()
	if !p.Serverless {
		t.Fatal("profile should be serverless")
	}
	if p.FastFetchTimeout != 8*time.Second {
		t.Errorf("fast-fetch timeout = %v, want 8s", p.FastFetchTimeout)
	}
	if p.SourceBudget != 35*time.Second {
		t.Errorf("source budget = %v, want 35s", p.SourceBudget)
	}
	for _, bin := range p.BrowserBinCandidates {
		if bin == "" {
			t.Error("serverless profile must not rely on browser auto-download")
		}
	}
}

func TestResolveProfile_PlatformMarker(t *testing.T) {
	t.Setenv("AWS_LAMBDA_FUNCTION_NAME", "jangter-api")

	if p := resolveProfile(); !p.Serverless {
		t.Error("lambda marker should flip the profile to serverless")
	}
}
