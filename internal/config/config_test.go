package config

import (
	"strings"
	"testing"
	"time"
)

// setRequired sets the env vars without which Load fails validation.
func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("SEARCH_API_KEY", "sk-test")
	t.Setenv("OPENAI_API_KEY", "oa-test")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.GinMode != "release" {
		t.Errorf("GinMode = %q", cfg.GinMode)
	}
	if cfg.DBPath != "ident.db" || !cfg.CacheEnabled {
		t.Errorf("DBPath = %q, CacheEnabled = %v", cfg.DBPath, cfg.CacheEnabled)
	}
	if cfg.CacheTTLDays != 30 {
		t.Errorf("CacheTTLDays = %d", cfg.CacheTTLDays)
	}
	if cfg.DefaultCountry != "US" {
		t.Errorf("DefaultCountry = %q", cfg.DefaultCountry)
	}
	if cfg.Search.Engine != "google_ai_mode" {
		t.Errorf("Search.Engine = %q", cfg.Search.Engine)
	}
	if cfg.IdempotencyTTL != 24*time.Hour {
		t.Errorf("IdempotencyTTL = %v", cfg.IdempotencyTTL)
	}
	if cfg.APIBasePath != "/api/v1" {
		t.Errorf("APIBasePath = %q", cfg.APIBasePath)
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("PORT", "9090")
	t.Setenv("DB_PATH", "/data/cache.db")
	t.Setenv("CACHE_TTL_DAYS", "7")
	t.Setenv("DEFAULT_COUNTRY", "gb")
	t.Setenv("CACHE_ENABLED", "false")
	t.Setenv("LOG_LEVEL", "warning")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("API_BASE_PATH", "v2/")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "9090" || cfg.DBPath != "/data/cache.db" || cfg.CacheTTLDays != 7 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.DefaultCountry != "GB" {
		t.Errorf("DefaultCountry = %q, want upper-cased", cfg.DefaultCountry)
	}
	if cfg.CacheEnabled {
		t.Error("CacheEnabled should be false")
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want warning normalized to warn", cfg.LogLevel)
	}
	if len(cfg.CORS.AllowedOrigins) != 2 || cfg.CORS.AllowedOrigins[1] != "https://b.example.com" {
		t.Errorf("AllowedOrigins = %v", cfg.CORS.AllowedOrigins)
	}
	if cfg.APIBasePath != "/v2" {
		t.Errorf("APIBasePath = %q, want /v2", cfg.APIBasePath)
	}
}

func TestLoadValidation(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"missing search key", map[string]string{"SEARCH_API_KEY": "", "OPENAI_API_KEY": "x"}, "SEARCH_API_KEY"},
		{"missing openai key", map[string]string{"SEARCH_API_KEY": "x", "OPENAI_API_KEY": ""}, "OPENAI_API_KEY"},
		{"bad log level", map[string]string{"LOG_LEVEL": "verbose"}, "LOG_LEVEL"},
		{"zero ttl", map[string]string{"CACHE_TTL_DAYS": "0"}, "CACHE_TTL_DAYS"},
		{"bad country", map[string]string{"DEFAULT_COUNTRY": "USA"}, "DEFAULT_COUNTRY"},
		{"zero burst", map[string]string{"RATE_BURST": "0"}, "RATE_BURST"},
		{"bad sampler", map[string]string{"OTEL_TRACES_SAMPLER_ARG": "1.5"}, "OTEL_TRACES_SAMPLER_ARG"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			setRequired(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("err = %v, want mention of %s", err, tc.want)
			}
		})
	}
}

func TestGetBool(t *testing.T) {
	t.Setenv("FLAG", "yes")
	if !getbool("FLAG", false) {
		t.Error("yes should be true")
	}
	t.Setenv("FLAG", "off")
	if getbool("FLAG", true) {
		t.Error("off should be false")
	}
	t.Setenv("FLAG", "maybe")
	if !getbool("FLAG", true) {
		t.Error("unparseable should keep default")
	}
}

func TestNormalizeBasePath(t *testing.T) {
	cases := map[string]string{
		"":        "/",
		"/":       "/",
		"api":     "/api",
		"/api/":   "/api",
		"/api/v1": "/api/v1",
	}
	for in, want := range cases {
		if got := normalizeBasePath(in); got != want {
			t.Errorf("normalizeBasePath(%q) = %q, want %q", in, got, want)
		}
	}
}
