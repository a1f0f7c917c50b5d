/*
Package resilience provides a circuit breaker for calls to the upstream browser.

# Overview

The proxy itself never retries: a relayed request that fails is answered with
an error and the client decides what to do. The breaker is used only by the
health endpoint, so that a load balancer polling /healthz against a browser
that is restarting gets a fast 503 instead of piling up requests on the
upstream.

# Usage

	breaker := resilience.New("upstream", resilience.Settings{
		MaxRequests: 1,
		Cooldown:    5 * time.Second,
		ReadyToTrip: func(c resilience.Counts) bool {
			return c.ConsecutiveFailures >= 3
		},
	})

	version, err := resilience.Call(ctx, breaker, func(ctx context.Context) (*devtool.Version, error) {
		return dt.Version(ctx)
	})

# States

	Closed --[failures]-> Open --[cooldown]-> Half-Open --[MaxRequests successes]-> Closed
	                                              |
	                                          [failure]
	                                              v
	                                             Open

Context cancellation by the caller does not count as a failure.
*/
package resilience
