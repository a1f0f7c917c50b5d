/*
Package monitoring provides Prometheus metrics for the proxy and the resolver.

# Overview

Each Metrics value owns a private registry. The server exposes it on /metrics
through Handler; tests create as many instances as they like.

# Metrics

- HTTP requests (count, latency, response size) labelled by route; every
  proxied path shares the "proxy" label
- Relay sessions (open gauge, finished total by outcome, lifetime)
- Relayed frames and bytes by direction and frame type
- Upstream failures by kind (http, handshake)
- Metadata rewrites by document and result
- Resolver attempts by candidate and result, resolutions by result

# Usage

	metrics := monitoring.NewMetrics()
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	timer := monitoring.NewTimer(metrics)
	// ... resolve ...
	timer.Stop("ok")
*/
package monitoring
