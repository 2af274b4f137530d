package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the FURFIELD org portal.
type Config struct {
	Port      int
	Version   string
	AuthURL   string
	JWTSecret string
	Gate      GateConfig
	Cookies   CookieConfig
	Database  DatabaseConfig
	Telemetry TelemetryConfig
	RateLimit RateLimitConfig
}

// GateConfig configures the request gate and its session verifier.
type GateConfig struct {
	// Strategy selects the session verifier: "introspect" (token cache +
	// verification endpoint) or "session" (managed cookie session with
	// silent refresh).
	Strategy string

	// VerifyTTL is how long a verification verdict stays cached.
	VerifyTTL time.Duration

	// VerifyTimeout bounds the outbound call to the verification endpoint.
	VerifyTimeout time.Duration

	// CacheMaxEntries caps the verdict cache; entries are evicted past
	// this point.
	CacheMaxEntries int

	// RefreshSkew is how close to expiry a managed session may get before
	// the session verifier refreshes it.
	RefreshSkew time.Duration

	// PublicPaths are additional paths exempt from gating, on top of the
	// built-in set (healthcheck, login, callback, signup).
	PublicPaths []string
}

type CookieConfig struct {
	TokenName   string
	RefreshName string
	MaxAge      time.Duration
	// Secure defaults to true; only set FURFIELD_COOKIE_SECURE=false for
	// local non-TLS development.
	Secure bool
}

type DatabaseConfig struct {
	// URL is the PostgreSQL connection string. Empty means the in-memory
	// store is used (local development, tests).
	URL            string
	MaxConnections int
}

type TelemetryConfig struct {
	Enabled      bool
	OTLPEndpoint string
	ServiceName  string
}

type RateLimitConfig struct {
	// AuthRate is the per-client request budget for the auth endpoints,
	// in requests per minute.
	AuthRate  int
	AuthBurst int
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		Port:      envInt("FURFIELD_PORT", 6700),
		Version:   envStr("FURFIELD_VERSION", "0.4.0"),
		AuthURL:   envStr("FURFIELD_AUTH_URL", "http://localhost:6800"),
		JWTSecret: envStr("FURFIELD_JWT_SECRET", "your-secret-key-min-32-characters-long-for-hs256"),
		Gate: GateConfig{
			Strategy:        envStr("FURFIELD_GATE_STRATEGY", "introspect"),
			VerifyTTL:       envDur("FURFIELD_VERIFY_TTL", 30*time.Second),
			VerifyTimeout:   envDur("FURFIELD_VERIFY_TIMEOUT", 5*time.Second),
			CacheMaxEntries: envInt("FURFIELD_VERIFY_CACHE_MAX", 10000),
			RefreshSkew:     envDur("FURFIELD_REFRESH_SKEW", 60*time.Second),
			PublicPaths:     envList("FURFIELD_PUBLIC_PATHS"),
		},
		Cookies: CookieConfig{
			TokenName:   envStr("FURFIELD_TOKEN_COOKIE", "furfield_token"),
			RefreshName: envStr("FURFIELD_REFRESH_COOKIE", "furfield_refresh_token"),
			MaxAge:      envDur("FURFIELD_COOKIE_MAX_AGE", 7*24*time.Hour),
			Secure:      envBool("FURFIELD_COOKIE_SECURE", true),
		},
		Database: DatabaseConfig{
			URL:            envStr("DATABASE_URL", ""),
			MaxConnections: envInt("DATABASE_MAX_CONNECTIONS", 25),
		},
		Telemetry: TelemetryConfig{
			Enabled:      envBool("OTEL_ENABLED", true),
			OTLPEndpoint: envStr("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			ServiceName:  envStr("OTEL_SERVICE_NAME", "furfield-orgportal"),
		},
		RateLimit: RateLimitConfig{
			AuthRate:  envInt("FURFIELD_AUTH_RATE_PER_MIN", 30),
			AuthBurst: envInt("FURFIELD_AUTH_RATE_BURST", 10),
		},
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDur(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
