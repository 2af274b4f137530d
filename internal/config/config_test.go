package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != 6700 {
		t.Errorf("Port = %d", cfg.Port)
	}
	if cfg.Gate.Strategy != "introspect" {
		t.Errorf("Strategy = %q", cfg.Gate.Strategy)
	}
	if cfg.Gate.VerifyTTL != 30*time.Second {
		t.Errorf("VerifyTTL = %v", cfg.Gate.VerifyTTL)
	}
	if cfg.Cookies.TokenName != "furfield_token" || !cfg.Cookies.Secure {
		t.Errorf("cookies = %+v", cfg.Cookies)
	}
	if cfg.Cookies.MaxAge != 7*24*time.Hour {
		t.Errorf("MaxAge = %v", cfg.Cookies.MaxAge)
	}
	if cfg.Database.URL != "" {
		t.Errorf("Database.URL = %q", cfg.Database.URL)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("FURFIELD_PORT", "7000")
	t.Setenv("FURFIELD_GATE_STRATEGY", "session")
	t.Setenv("FURFIELD_VERIFY_TTL", "45s")
	t.Setenv("FURFIELD_COOKIE_SECURE", "false")
	t.Setenv("FURFIELD_PUBLIC_PATHS", "/pricing, /about ,")

	cfg := Load()

	if cfg.Port != 7000 {
		t.Errorf("Port = %d", cfg.Port)
	}
	if cfg.Gate.Strategy != "session" {
		t.Errorf("Strategy = %q", cfg.Gate.Strategy)
	}
	if cfg.Gate.VerifyTTL != 45*time.Second {
		t.Errorf("VerifyTTL = %v", cfg.Gate.VerifyTTL)
	}
	if cfg.Cookies.Secure {
		t.Error("Secure should be off")
	}
	if len(cfg.Gate.PublicPaths) != 2 || cfg.Gate.PublicPaths[0] != "/pricing" || cfg.Gate.PublicPaths[1] != "/about" {
		t.Errorf("PublicPaths = %v", cfg.Gate.PublicPaths)
	}
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("FURFIELD_PORT", "not-a-number")
	t.Setenv("FURFIELD_VERIFY_TTL", "eleventy")

	cfg := Load()

	if cfg.Port != 6700 {
		t.Errorf("Port = %d, want default on malformed value", cfg.Port)
	}
	if cfg.Gate.VerifyTTL != 30*time.Second {
		t.Errorf("VerifyTTL = %v, want default on malformed value", cfg.Gate.VerifyTTL)
	}
}
