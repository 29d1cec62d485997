package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefinitionsSourceFS = "fs"
	DefinitionsSourceS3 = "s3"
)

// Config holds every setting of the server and the operator CLI.
type Config struct {
	DatabaseURL  string
	JWTSecretKey string
	ServerPort   int
	LogLevel     slog.Level

	DefinitionsSource      string
	DefinitionsRoot        string
	DefinitionCacheTTL     time.Duration
	BaseDefinitionCacheTTL time.Duration

	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicBaseURL   string

	MembershipAPIURL       string
	MembershipDebounce     time.Duration
	RegistrationSessionTTL time.Duration

	CORSAllowedOrigins []string
}

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// Load reads an optional .env file, then the environment, and requires the
// settings the HTTP server cannot start without.
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg, err := Parse(os.LookupEnv)
	if err != nil {
		return nil, err
	}
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL environment variable is not set")
	}
	if cfg.JWTSecretKey == "" {
		return nil, errors.New("JWT_SECRET_KEY environment variable is not set")
	}
	return cfg, nil
}

// Parse applies defaults and type checks without requiring anything, so the
// CLI can overlay its own flags before validating.
func Parse(lookup LookupFunc) (*Config, error) {
	get := func(key, def string) string {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return def
	}

	cfg := &Config{
		DatabaseURL:       get("DATABASE_URL", ""),
		JWTSecretKey:      get("JWT_SECRET_KEY", ""),
		DefinitionsSource: strings.ToLower(get("DEFINITIONS_SOURCE", DefinitionsSourceFS)),
		DefinitionsRoot:   get("DEFINITIONS_ROOT", "./definitions"),
		R2AccountID:       get("R2_ACCOUNT_ID", ""),
		R2AccessKeyID:     get("R2_ACCESS_KEY_ID", ""),
		R2SecretAccessKey: get("R2_SECRET_ACCESS_KEY", ""),
		R2BucketName:      get("R2_BUCKET_NAME", ""),
		R2PublicBaseURL:   get("R2_PUBLIC_BASE_URL", ""),
		MembershipAPIURL:  get("MEMBERSHIP_API_URL", ""),
	}

	port, err := strconv.Atoi(get("SERVER_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT environment variable: %w", err)
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}
	cfg.ServerPort = port

	if err := cfg.LogLevel.UnmarshalText([]byte(get("LOG_LEVEL", "INFO"))); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL environment variable: %w", err)
	}

	switch cfg.DefinitionsSource {
	case DefinitionsSourceFS, DefinitionsSourceS3:
	default:
		return nil, fmt.Errorf("DEFINITIONS_SOURCE must be %q or %q, got %q", DefinitionsSourceFS, DefinitionsSourceS3, cfg.DefinitionsSource)
	}

	durations := []struct {
		key  string
		def  string
		dest *time.Duration
	}{
		{"DEFINITION_CACHE_TTL", "5m", &cfg.DefinitionCacheTTL},
		{"BASE_DEFINITION_CACHE_TTL", "24h", &cfg.BaseDefinitionCacheTTL},
		{"MEMBERSHIP_DEBOUNCE", "400ms", &cfg.MembershipDebounce},
		{"REGISTRATION_SESSION_TTL", "2h", &cfg.RegistrationSessionTTL},
	}
	for _, d := range durations {
		v, err := time.ParseDuration(get(d.key, d.def))
		if err != nil {
			return nil, fmt.Errorf("invalid %s environment variable: %w", d.key, err)
		}
		if v <= 0 {
			return nil, fmt.Errorf("%s must be positive, got %s", d.key, v)
		}
		*d.dest = v
	}

	for _, origin := range strings.Split(get("CORS_ALLOWED_ORIGINS", ""), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, origin)
		}
	}

	if cfg.DefinitionsSource == DefinitionsSourceS3 && !cfg.R2Configured() {
		return nil, errors.New("DEFINITIONS_SOURCE=s3 requires R2_ACCOUNT_ID, R2_ACCESS_KEY_ID, R2_SECRET_ACCESS_KEY and R2_BUCKET_NAME")
	}
	return cfg, nil
}

func (c *Config) R2Configured() bool {
	return c.R2AccountID != "" && c.R2AccessKeyID != "" && c.R2SecretAccessKey != "" && c.R2BucketName != ""
}

// DefinitionsPrefix is DefinitionsRoot expressed as an object key prefix.
func (c *Config) DefinitionsPrefix() string {
	return strings.Trim(strings.TrimPrefix(c.DefinitionsRoot, "./"), "/")
}
