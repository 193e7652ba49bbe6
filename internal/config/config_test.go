package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("LIVE_BACKEND", "")
	t.Setenv("TIMER_INTERVAL_MS", "")
	t.Setenv("ENFORCE_EXEMPTIONS", "")

	cfg := Load()
	if cfg.LiveBackend != LiveBackendRedis {
		t.Fatalf("expected redis backend, got %q", cfg.LiveBackend)
	}
	if cfg.TimerInterval != time.Second {
		t.Fatalf("expected 1s timer interval, got %s", cfg.TimerInterval)
	}
	if cfg.EnforceExemptions {
		t.Fatalf("exemptions must not be enforced by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("LIVE_BACKEND", "Memory")
	t.Setenv("TIMER_INTERVAL_MS", "250")
	t.Setenv("ENFORCE_EXEMPTIONS", "true")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, ,http://b.test")

	cfg := Load()
	if cfg.LiveBackend != LiveBackendMemory {
		t.Fatalf("expected memory backend, got %q", cfg.LiveBackend)
	}
	if cfg.TimerInterval != 250*time.Millisecond {
		t.Fatalf("expected 250ms, got %s", cfg.TimerInterval)
	}
	if !cfg.EnforceExemptions {
		t.Fatalf("expected exemptions enforced")
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "http://b.test" {
		t.Fatalf("unexpected origins %v", cfg.AllowedOrigins)
	}
}

func TestCacheKeys(t *testing.T) {
	if got := CacheKey.StudentSessionKey(7); got != "login:7" {
		t.Fatalf("unexpected session key %q", got)
	}
	if got := CacheKey.LiveExamsKey(); got != "live:exams" {
		t.Fatalf("unexpected live key %q", got)
	}
	if got := CacheKey.RateLimitKey("login", "10.0.0.1"); got != "ratelimit:login:10.0.0.1" {
		t.Fatalf("unexpected rate limit key %q", got)
	}
}
