// Package config builds the immutable process configuration once at startup.
// Components receive the values they need by reference; nothing reads the
// environment after FromEnv returns.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config captures everything the server needs from the environment.
type Config struct {
	Addr        string
	PostgresURL string
	RedisURL    string

	// JWTSigningKey verifies bearer tokens minted by the auth collaborator.
	JWTSigningKey string

	// ImageDir is where checkpoint evidence images are written. The write
	// happens before the database insert records the reference.
	ImageDir string

	// DeviceBindingBypass disables the device guard entirely. Never defaults
	// to true; intended for local development and automated test rigs only.
	DeviceBindingBypass bool

	// DefaultExpectedTravel is the fallback expected travel time between the
	// custody-transfer pair when a task does not carry its own value.
	DefaultExpectedTravel time.Duration

	// ScheduleCacheTTL bounds staleness of the Redis schedule lookups.
	ScheduleCacheTTL time.Duration
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() (Config, error) {
	cfg := Config{
		Addr:                  getenv("CUSTODIA_ADDR", ":8080"),
		PostgresURL:           os.Getenv("CUSTODIA_POSTGRES_URL"),
		RedisURL:              os.Getenv("CUSTODIA_REDIS_URL"),
		JWTSigningKey:         os.Getenv("CUSTODIA_JWT_SIGNING_KEY"),
		ImageDir:              getenv("CUSTODIA_IMAGE_DIR", "/var/lib/custodia/images"),
		DeviceBindingBypass:   os.Getenv("CUSTODIA_DEVICE_BINDING_BYPASS") == "true",
		DefaultExpectedTravel: 30 * time.Minute,
		ScheduleCacheTTL:      5 * time.Minute,
	}

	if cfg.JWTSigningKey == "" {
		return Config{}, fmt.Errorf("CUSTODIA_JWT_SIGNING_KEY is required")
	}

	if v := os.Getenv("CUSTODIA_EXPECTED_TRAVEL_MINUTES"); v != "" {
		minutes, err := strconv.Atoi(v)
		if err != nil || minutes <= 0 {
			return Config{}, fmt.Errorf("CUSTODIA_EXPECTED_TRAVEL_MINUTES must be a positive integer, got %q", v)
		}
		cfg.DefaultExpectedTravel = time.Duration(minutes) * time.Minute
	}

	if v := os.Getenv("CUSTODIA_SCHEDULE_CACHE_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil || ttl <= 0 {
			return Config{}, fmt.Errorf("CUSTODIA_SCHEDULE_CACHE_TTL must be a positive duration, got %q", v)
		}
		cfg.ScheduleCacheTTL = ttl
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
