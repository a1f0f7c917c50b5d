// Package http holds the admin handlers served next to the proxy.
//
// Only /healthz lives here. Every other path belongs to the browser and is
// relayed by package proxy.
package http
