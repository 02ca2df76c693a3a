// Package config provides configuration loading for the luxyd service.
// It handles environment variable parsing and provides default values for all settings.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// init loads environment variables from .env files during package initialization.
// godotenv.Load() does not override already-set environment variables,
// so the process environment always takes precedence over .env files.
func init() {
	// Load .env file if it exists (for shared development config)
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to load .env file: %v\n", err)
		}
	}

	// Load .env.local if it exists (for local overrides, gitignored)
	if _, err := os.Stat(".env.local"); err == nil {
		if err := godotenv.Load(".env.local"); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to load .env.local file: %v\n", err)
		}
	}
}

// Config captures environment-driven settings for luxyd.
type Config struct {
	Env            string        // Deployment environment (dev, staging, prod)
	Port           string        // Presentation API port
	GatewayURL     string        // Origin of the content gateway; the API lives below /api
	GatewayTimeout time.Duration // Per-call gateway timeout
	StateDir       string        // Badger directory for tokens and saved items; empty keeps state in memory
	NATSURL        string        // NATS server URL for the change feed; empty disables it

	// Preview staging of pending uploads
	S3Endpoint  string        // S3-compatible storage endpoint; empty uses inline previews
	S3Region    string        // S3 region
	S3Bucket    string        // S3 bucket name
	S3AccessKey string        // S3 access key
	S3SecretKey string        // S3 secret key
	PreviewTTL  time.Duration // Lifetime of presigned preview URLs

	// CORS configuration
	CORSAllowedOrigins []string // Allowed origins for CORS (empty means deny all)

	RateLimit float64 // Presentation API requests per second per client IP
}

// Default configuration values used when environment variables are not set
const (
	defaultPort           = "8080"
	defaultEnv            = "dev"
	defaultS3Region       = "us-east-1"
	defaultGatewayTimeout = 10 * time.Second
	defaultPreviewTTL     = 15 * time.Minute
	defaultRateLimit      = 20
)

// Load reads environment variables and produces a Config suitable for wiring the service.
// Returns an error if required parameters are missing or invalid.
func Load() (Config, error) {
	cfg := Config{
		Env:            getEnv("LUXY_ENV", defaultEnv),
		Port:           getEnv("LUXY_PORT", defaultPort),
		S3Region:       getEnv("LUXY_S3_REGION", defaultS3Region),
		GatewayTimeout: defaultGatewayTimeout,
		PreviewTTL:     defaultPreviewTTL,
		RateLimit:      defaultRateLimit,
	}

	if gatewayURL, exists := os.LookupEnv("LUXY_GATEWAY_URL"); exists {
		cfg.GatewayURL = strings.TrimRight(strings.TrimSpace(gatewayURL), "/")
	}
	if stateDir, exists := os.LookupEnv("LUXY_STATE_DIR"); exists {
		cfg.StateDir = stateDir
	}
	if natsURL, exists := os.LookupEnv("LUXY_NATS_URL"); exists {
		cfg.NATSURL = natsURL
	}
	if s3Endpoint, exists := os.LookupEnv("LUXY_S3_ENDPOINT"); exists {
		cfg.S3Endpoint = s3Endpoint
	}
	if s3Bucket, exists := os.LookupEnv("LUXY_S3_BUCKET"); exists {
		cfg.S3Bucket = s3Bucket
	}
	if s3AccessKey, exists := os.LookupEnv("LUXY_S3_ACCESS_KEY"); exists {
		cfg.S3AccessKey = s3AccessKey
	}
	if s3SecretKey, exists := os.LookupEnv("LUXY_S3_SECRET_KEY"); exists {
		cfg.S3SecretKey = s3SecretKey
	}

	var err error
	if cfg.GatewayTimeout, err = getDuration("LUXY_GATEWAY_TIMEOUT", cfg.GatewayTimeout); err != nil {
		return cfg, err
	}
	if cfg.PreviewTTL, err = getDuration("LUXY_PREVIEW_TTL", cfg.PreviewTTL); err != nil {
		return cfg, err
	}
	if v, exists := os.LookupEnv("LUXY_RATE_LIMIT"); exists && v != "" {
		limit, perr := strconv.ParseFloat(v, 64)
		if perr != nil || limit <= 0 {
			return cfg, fmt.Errorf("LUXY_RATE_LIMIT must be a positive number, got %q", v)
		}
		cfg.RateLimit = limit
	}

	// Handle CORS configuration
	if corsOrigins, exists := os.LookupEnv("LUXY_CORS_ALLOWED_ORIGINS"); exists {
		for _, origin := range strings.Split(corsOrigins, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, origin)
			}
		}
	}

	// Validate required parameters
	if cfg.GatewayURL == "" {
		return cfg, fmt.Errorf("LUXY_GATEWAY_URL is required")
	}
	if u, perr := url.Parse(cfg.GatewayURL); perr != nil || u.Scheme == "" || u.Host == "" {
		return cfg, fmt.Errorf("LUXY_GATEWAY_URL must be an absolute URL, got %q", cfg.GatewayURL)
	}
	if cfg.S3Endpoint != "" && cfg.S3Bucket == "" {
		return cfg, fmt.Errorf("LUXY_S3_BUCKET is required when LUXY_S3_ENDPOINT is set")
	}

	return cfg, nil
}

// IsDev reports whether the service runs in the dev environment.
func (c Config) IsDev() bool {
	return c.Env == defaultEnv
}

// getEnv retrieves an environment variable value, returning a fallback if not set or empty
func getEnv(key, fallback string) string {
	if v, exists := os.LookupEnv(key); exists && v != "" {
		return v
	}
	return fallback
}

// getDuration parses a Go duration from key, returning fallback if not set
func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v, exists := os.LookupEnv(key)
	if !exists || v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback, fmt.Errorf("%s must be a positive duration, got %q", key, v)
	}
	return d, nil
}
