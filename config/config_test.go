package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envOf(m map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse(envOf(nil))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, DefinitionsSourceFS, cfg.DefinitionsSource)
	assert.Equal(t, "./definitions", cfg.DefinitionsRoot)
	assert.Equal(t, 5*time.Minute, cfg.DefinitionCacheTTL)
	assert.Equal(t, 24*time.Hour, cfg.BaseDefinitionCacheTTL)
	assert.Equal(t, 400*time.Millisecond, cfg.MembershipDebounce)
	assert.Equal(t, 2*time.Hour, cfg.RegistrationSessionTTL)
	assert.Empty(t, cfg.CORSAllowedOrigins)
	assert.False(t, cfg.R2Configured())
}

func TestParse_Overrides(t *testing.T) {
	cfg, err := Parse(envOf(map[string]string{
		"SERVER_PORT":          "9090",
		"LOG_LEVEL":            "debug",
		"DEFINITIONS_SOURCE":   "S3",
		"R2_ACCOUNT_ID":        "acct",
		"R2_ACCESS_KEY_ID":     "key",
		"R2_SECRET_ACCESS_KEY": "secret",
		"R2_BUCKET_NAME":       "bucket",
		"MEMBERSHIP_DEBOUNCE":  "1s",
		"CORS_ALLOWED_ORIGINS": "https://a.example.test, https://b.example.test",
	}))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.ServerPort)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, DefinitionsSourceS3, cfg.DefinitionsSource)
	assert.True(t, cfg.R2Configured())
	assert.Equal(t, time.Second, cfg.MembershipDebounce)
	assert.Equal(t, []string{"https://a.example.test", "https://b.example.test"}, cfg.CORSAllowedOrigins)
}

func TestParse_Invalid(t *testing.T) {
	tests := map[string]map[string]string{
		"port not a number": {"SERVER_PORT": "http"},
		"port out of range": {"SERVER_PORT": "70000"},
		"bad duration":      {"DEFINITION_CACHE_TTL": "soon"},
		"negative duration": {"REGISTRATION_SESSION_TTL": "-1m"},
		"unknown source":    {"DEFINITIONS_SOURCE": "ftp"},
		"s3 without bucket": {"DEFINITIONS_SOURCE": "s3"},
		"unknown log level": {"LOG_LEVEL": "loud"},
	}
	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(envOf(env))
			assert.Error(t, err)
		})
	}
}

func TestConfig_DefinitionsPrefix(t *testing.T) {
	tests := map[string]string{
		"./definitions":  "definitions",
		"definitions/":   "definitions",
		"/srv/profiles/": "srv/profiles",
		".":              ".",
	}
	for root, want := range tests {
		cfg := &Config{DefinitionsRoot: root}
		assert.Equal(t, want, cfg.DefinitionsPrefix(), root)
	}
}
