// Package config provides 12-factor configuration management for cdpgate.
//
// Configuration is loaded from environment variables with sensible defaults.
// CLI flags override environment variables.
//
// Configuration Sections:
//   - Server: listener and external address settings
//   - Upstream: the internal CDP server being proxied
//   - Relay: WebSocket relay timeouts and buffers
//   - Resolver: default candidates and retry policy for `cdpgate resolve`
//   - Logging: log level and output format
//   - RateLimit: per-IP rate limiting
//   - CORS: cross-origin access for browser-based clients
//
// Example Usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//		return err
//	}
//	fmt.Printf("proxying %s on %s\n", cfg.Upstream.URL, cfg.Addr())
//
// Environment Variables:
//   - PORT, HOST, PUBLIC_BASE_URL, TRUST_FORWARDED, SHUTDOWN_TIMEOUT
//   - UPSTREAM_URL, UPSTREAM_TIMEOUT, REWRITE_TARGET_LIST
//   - RELAY_HANDSHAKE_TIMEOUT, RELAY_WRITE_TIMEOUT, RELAY_READ_LIMIT,
//     RELAY_BUFFER_SIZE, RELAY_FORWARD_ORIGIN
//   - CDP_CANDIDATES, RESOLVER_RETRIES, RESOLVER_DELAY, RESOLVER_TIMEOUT,
//     RESOLVER_POLICY, RESOLVER_VERIFY
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
//   - CORS_ENABLED, CORS_ORIGINS
package config
