package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Server config
	assert.Equal(t, "9223", cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.True(t, cfg.Server.TrustForwarded)
	assert.Empty(t, cfg.Server.PublicBaseURL)

	// Upstream config
	assert.Equal(t, "http://127.0.0.1:9222", cfg.Upstream.URL)
	assert.False(t, cfg.Upstream.RewriteTargetList)

	// Resolver config
	assert.Equal(t, 3, cfg.Resolver.Retries)
	assert.Equal(t, 2*time.Second, cfg.Resolver.Delay)
	assert.Equal(t, "fixed", cfg.Resolver.Policy)

	// Logging config
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Logging.Development)

	assert.NoError(t, cfg.Validate())
	assert.Equal(t, "0.0.0.0:9223", cfg.Addr())
}

func TestLoadMatchesDefault(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, Default(), cfg)
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	envVars := map[string]string{
		"PORT":                    "9000",
		"HOST":                    "127.0.0.1",
		"PUBLIC_BASE_URL":         "https://sandbox-42.example.com",
		"TRUST_FORWARDED":         "false",
		"UPSTREAM_URL":            "http://localhost:9333",
		"REWRITE_TARGET_LIST":     "true",
		"RELAY_WRITE_TIMEOUT":     "5s",
		"RELAY_READ_LIMIT":        "1048576",
		"CDP_CANDIDATES":          "proxied=https://a.example.com,direct=http://10.0.0.2:9222",
		"RESOLVER_RETRIES":        "5",
		"RESOLVER_DELAY":          "250ms",
		"RESOLVER_POLICY":         "linear",
		"LOG_LEVEL":               "debug",
		"LOG_DEV":                 "true",
		"RATE_LIMIT_ENABLED":      "true",
		"CORS_ORIGINS":            "https://devtools.example.com",
		"RELAY_HANDSHAKE_TIMEOUT": "3s",
	}
	for key, value := range envVars {
		t.Setenv(key, value)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, "https://sandbox-42.example.com", cfg.Server.PublicBaseURL)
	assert.False(t, cfg.Server.TrustForwarded)

	assert.Equal(t, "http://localhost:9333", cfg.Upstream.URL)
	assert.True(t, cfg.Upstream.RewriteTargetList)

	assert.Equal(t, 5*time.Second, cfg.Relay.WriteTimeout)
	assert.Equal(t, 3*time.Second, cfg.Relay.HandshakeTimeout)
	assert.Equal(t, int64(1<<20), cfg.Relay.ReadLimit)

	assert.Equal(t, []string{"proxied=https://a.example.com", "direct=http://10.0.0.2:9222"}, cfg.Resolver.Candidates)
	assert.Equal(t, 5, cfg.Resolver.Retries)
	assert.Equal(t, 250*time.Millisecond, cfg.Resolver.Delay)
	assert.Equal(t, "linear", cfg.Resolver.Policy)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Development)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, []string{"https://devtools.example.com"}, cfg.CORS.Origins)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "unparsable duration", key: "RESOLVER_DELAY", val: "soon"},
		{name: "websocket upstream", key: "UPSTREAM_URL", val: "ws://127.0.0.1:9222"},
		{name: "upstream without host", key: "UPSTREAM_URL", val: "http://"},
		{name: "zero retries", key: "RESOLVER_RETRIES", val: "0"},
		{name: "unknown policy", key: "RESOLVER_POLICY", val: "exponential"},
		{name: "bad public base", key: "PUBLIC_BASE_URL", val: "proxy.example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)

			_, err := Load()
			assert.Error(t, err)

			// Falls back to defaults
			assert.Equal(t, Default(), LoadOrDefault())
		})
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.Upstream.URL = "ftp://x"
	cfg.Resolver.Retries = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "UPSTREAM_URL")
	assert.Contains(t, err.Error(), "RESOLVER_RETRIES")
}
