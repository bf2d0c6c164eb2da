/*
Package configs is responsible for loading and parsing the application's configuration settings.

Values come from operating system environment variables, optionally seeded from .env.local
and .env files. They cover the running environment, port, allowed origins, the start
countdown, and the optional Postgres result store and S3 transcript archive.
*/
package configs

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	// EnvDevelopment is the default environment; it relaxes origin checks.
	EnvDevelopment = "development"

	defaultPort             = 3001
	defaultCountdownSeconds = 3
	defaultOriginSuffixes   = ".vercel.app"
)

// AppConfig contains all configuration parameters required for the application to run.
type AppConfig struct {
	// General Server Settings
	Environment string
	Port        int

	// CountdownSeconds is the delay between a start and the race, announced once per second.
	CountdownSeconds int

	// Origin Settings
	AllowedOrigins        []string
	AllowedOriginSuffixes []string

	// S3 Archive Settings. Either all are set or none.
	S3BucketName      string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string

	// Database Settings. Empty disables result recording.
	DatabaseDSN string
}

// IsDevelopment reports whether the server runs in the development environment.
func (c *AppConfig) IsDevelopment() bool {
	return c.Environment == EnvDevelopment
}

// ArchiveEnabled reports whether the S3 transcript archive is configured.
func (c *AppConfig) ArchiveEnabled() bool {
	return c.S3BucketName != ""
}

// DatabaseEnabled reports whether battle results are recorded in Postgres.
func (c *AppConfig) DatabaseEnabled() bool {
	return c.DatabaseDSN != ""
}

// LoadConfig loads .env.local and .env when present, then reads the configuration from the environment.
// Variables already set in the environment win over file values.
func LoadConfig() (*AppConfig, error) {
	for _, file := range []string{".env.local", ".env"} {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", file, err)
		}
	}

	return FromEnv()
}

// FromEnv reads and validates the configuration from environment variables only.
func FromEnv() (*AppConfig, error) {
	cfg := &AppConfig{}

	// --- General Server Settings ---
	cfg.Environment = strings.TrimSpace(os.Getenv("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = EnvDevelopment
	}

	port, err := intFromEnv("PORT", defaultPort)
	if err != nil {
		return nil, err
	}
	if port < 1024 || port > 65535 {
		return nil, fmt.Errorf("port number %d is outside the recommended range (%d-%d) to avoid privileged ports", port, 1024, 65535)
	}
	cfg.Port = port

	countdown, err := intFromEnv("COUNTDOWN_SECONDS", defaultCountdownSeconds)
	if err != nil {
		return nil, err
	}
	if countdown < 1 || countdown > 30 {
		return nil, fmt.Errorf("COUNTDOWN_SECONDS must be between 1 and 30, got %d", countdown)
	}
	cfg.CountdownSeconds = countdown

	// --- Origin Settings ---
	cfg.AllowedOrigins = splitList(os.Getenv("ALLOWED_ORIGINS"))
	if clientURL := strings.TrimSpace(os.Getenv("CLIENT_URL")); clientURL != "" {
		cfg.AllowedOrigins = append(cfg.AllowedOrigins, clientURL)
	}

	suffixes, ok := os.LookupEnv("ALLOWED_ORIGIN_SUFFIXES")
	if !ok {
		suffixes = defaultOriginSuffixes
	}
	cfg.AllowedOriginSuffixes = splitList(suffixes)

	// --- S3 Archive Settings ---
	cfg.S3BucketName = strings.TrimSpace(os.Getenv("S3_BUCKET_NAME"))
	cfg.S3Endpoint = strings.TrimSpace(os.Getenv("S3_ENDPOINT"))
	cfg.S3AccessKeyID = strings.TrimSpace(os.Getenv("S3_ACCESS_KEY_ID"))
	cfg.S3SecretAccessKey = strings.TrimSpace(os.Getenv("S3_SECRET_ACCESS_KEY"))

	s3Vars := map[string]string{
		"S3_BUCKET_NAME":       cfg.S3BucketName,
		"S3_ENDPOINT":          cfg.S3Endpoint,
		"S3_ACCESS_KEY_ID":     cfg.S3AccessKeyID,
		"S3_SECRET_ACCESS_KEY": cfg.S3SecretAccessKey,
	}
	var missing []string
	for _, name := range []string{"S3_BUCKET_NAME", "S3_ENDPOINT", "S3_ACCESS_KEY_ID", "S3_SECRET_ACCESS_KEY"} {
		if s3Vars[name] == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 && len(missing) < len(s3Vars) {
		return nil, fmt.Errorf("incomplete S3 archive configuration, missing %s", strings.Join(missing, ", "))
	}

	// --- Database Settings ---
	cfg.DatabaseDSN = strings.TrimSpace(os.Getenv("DATABASE_URL"))

	return cfg, nil
}

func intFromEnv(name string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback, nil
	}

	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", name, err)
	}

	return value, nil
}

// splitList splits a comma separated list, dropping blanks.
func splitList(raw string) []string {
	out := []string{}
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
