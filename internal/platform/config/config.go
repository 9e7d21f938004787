// Package config builds server configuration from the environment so main
// stays lean. Policy toggles are materialized here once and passed down;
// decision logic never reads the environment directly.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Defaults for consent and emergency lifecycles.
const (
	DefaultRequestTTL    = 48 * time.Hour // consent requests expire after 48h pending
	DefaultShareMaxTTL   = 24 * time.Hour // emergency shares are capped at 24h
	DefaultSweepInterval = 15 * time.Minute
)

// Server captures process-level configuration.
type Server struct {
	Addr        string
	Environment string
	DatabaseURL string

	// JWTSigningKey verifies bearer tokens presented by the surrounding
	// CRUD system's callers.
	JWTSigningKey string

	// RequestTTL is the pending lifetime of a consent request.
	RequestTTL time.Duration

	// ShareMaxTTL caps emergency share lifetimes.
	ShareMaxTTL time.Duration

	// SweepInterval drives the maintenance worker. Zero disables it.
	SweepInterval time.Duration

	// Policy toggles, injected into the consent authority and access gate.
	ReadBasicSatisfiesAnyRead bool
	AutoExtendExpiredRequests bool
	FailClosedWrites          bool

	// RedeemRateLimit bounds anonymous emergency redemptions per client IP
	// within RedeemRateWindow.
	RedeemRateLimit  int
	RedeemRateWindow time.Duration
}

// FromEnv builds a Server config from environment variables.
// A .env file in the working directory is loaded first when present
// (development convenience; real deployments set the environment).
func FromEnv() Server {
	_ = godotenv.Load()

	cfg := Server{
		Addr:          envOr("CURANET_ADDR", ":8080"),
		Environment:   envOr("CURANET_ENV", "development"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		JWTSigningKey: os.Getenv("JWT_SIGNING_KEY"),

		RequestTTL:    envDuration("CONSENT_REQUEST_TTL", DefaultRequestTTL),
		ShareMaxTTL:   envDuration("EMERGENCY_SHARE_MAX_TTL", DefaultShareMaxTTL),
		SweepInterval: envDuration("SWEEP_INTERVAL", DefaultSweepInterval),

		// Preserves the source system's permissive read fallback; flip per
		// deployment once downstream consumers stop relying on it.
		ReadBasicSatisfiesAnyRead: envBool("POLICY_READ_BASIC_SATISFIES_ANY_READ", true),
		AutoExtendExpiredRequests: envBool("POLICY_AUTO_EXTEND_EXPIRED_REQUESTS", false),
		FailClosedWrites:          envBool("POLICY_FAIL_CLOSED_WRITES", true),

		RedeemRateLimit:  envInt("REDEEM_RATE_LIMIT", 10),
		RedeemRateWindow: envDuration("REDEEM_RATE_WINDOW", time.Minute),
	}

	if cfg.JWTSigningKey == "" {
		// Development fallback - must be overridden in production.
		cfg.JWTSigningKey = "dev-secret-key-change-in-production"
	}
	if cfg.AutoExtendExpiredRequests && cfg.Environment == "production" {
		// The auto-extend bypass is a development convenience only.
		cfg.AutoExtendExpiredRequests = false
	}

	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
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

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
