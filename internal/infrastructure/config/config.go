package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Upstream  UpstreamConfig
	Relay     RelayConfig
	Resolver  ResolverConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
}

// ServerConfig holds the proxy listener configuration.
type ServerConfig struct {
	Port            string        `envconfig:"PORT" default:"9223"`
	Host            string        `envconfig:"HOST" default:"0.0.0.0"`
	PublicBaseURL   string        `envconfig:"PUBLIC_BASE_URL"`
	TrustForwarded  bool          `envconfig:"TRUST_FORWARDED" default:"true"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

// UpstreamConfig describes the internal CDP server.
type UpstreamConfig struct {
	URL               string        `envconfig:"UPSTREAM_URL" default:"http://127.0.0.1:9222"`
	Timeout           time.Duration `envconfig:"UPSTREAM_TIMEOUT" default:"30s"`
	RewriteTargetList bool          `envconfig:"REWRITE_TARGET_LIST" default:"false"`
}

// RelayConfig holds WebSocket relay settings.
type RelayConfig struct {
	HandshakeTimeout time.Duration `envconfig:"RELAY_HANDSHAKE_TIMEOUT" default:"10s"`
	WriteTimeout     time.Duration `envconfig:"RELAY_WRITE_TIMEOUT" default:"30s"`
	ReadLimit        int64         `envconfig:"RELAY_READ_LIMIT" default:"0"` // 0 disables the limit
	BufferSize       int           `envconfig:"RELAY_BUFFER_SIZE" default:"32768"`
	ForwardOrigin    bool          `envconfig:"RELAY_FORWARD_ORIGIN" default:"false"`
}

// ResolverConfig holds defaults for `cdpgate resolve`.
type ResolverConfig struct {
	Candidates []string      `envconfig:"CDP_CANDIDATES"`
	Retries    int           `envconfig:"RESOLVER_RETRIES" default:"3"`
	Delay      time.Duration `envconfig:"RESOLVER_DELAY" default:"2s"`
	Timeout    time.Duration `envconfig:"RESOLVER_TIMEOUT" default:"10s"`
	Policy     string        `envconfig:"RESOLVER_POLICY" default:"fixed"`
	Verify     bool          `envconfig:"RESOLVER_VERIFY" default:"false"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"false"`
}

// CORSConfig holds CORS configuration for browser-based CDP clients.
type CORSConfig struct {
	Enabled bool     `envconfig:"CORS_ENABLED" default:"false"`
	Origins []string `envconfig:"CORS_ORIGINS"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "9223",
			Host:            "0.0.0.0",
			TrustForwarded:  true,
			ShutdownTimeout: 10 * time.Second,
		},
		Upstream: UpstreamConfig{
			URL:     "http://127.0.0.1:9222",
			Timeout: 30 * time.Second,
		},
		Relay: RelayConfig{
			HandshakeTimeout: 10 * time.Second,
			WriteTimeout:     30 * time.Second,
			BufferSize:       32 * 1024,
		},
		Resolver: ResolverConfig{
			Retries: 3,
			Delay:   2 * time.Second,
			Timeout: 10 * time.Second,
			Policy:  "fixed",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           false,
		},
	}
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return c.Server.Host + ":" + c.Server.Port
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	if err := checkBaseURL("UPSTREAM_URL", c.Upstream.URL); err != nil {
		errs = append(errs, err)
	}
	if c.Server.PublicBaseURL != "" {
		if err := checkBaseURL("PUBLIC_BASE_URL", c.Server.PublicBaseURL); err != nil {
			errs = append(errs, err)
		}
	}
	if c.Server.Port == "" {
		errs = append(errs, errors.New("PORT must not be empty"))
	}
	if c.Relay.HandshakeTimeout <= 0 {
		errs = append(errs, errors.New("RELAY_HANDSHAKE_TIMEOUT must be positive"))
	}
	if c.Relay.WriteTimeout <= 0 {
		errs = append(errs, errors.New("RELAY_WRITE_TIMEOUT must be positive"))
	}
	if c.Relay.ReadLimit < 0 {
		errs = append(errs, errors.New("RELAY_READ_LIMIT must not be negative"))
	}
	if c.Resolver.Retries < 1 {
		errs = append(errs, errors.New("RESOLVER_RETRIES must be at least 1"))
	}
	if c.Resolver.Delay < 0 {
		errs = append(errs, errors.New("RESOLVER_DELAY must not be negative"))
	}
	if c.Resolver.Timeout <= 0 {
		errs = append(errs, errors.New("RESOLVER_TIMEOUT must be positive"))
	}
	switch strings.ToLower(c.Resolver.Policy) {
	case "fixed", "linear":
	default:
		errs = append(errs, fmt.Errorf("RESOLVER_POLICY must be fixed or linear, got %q", c.Resolver.Policy))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

func checkBaseURL(name, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must use http or https, got %q", name, raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%s has no host: %q", name, raw)
	}
	return nil
}
