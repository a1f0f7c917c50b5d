/*
Package proxy is a reverse proxy for a Chrome DevTools Protocol endpoint that
only listens on a sandbox's loopback interface.

# Dispatch

Every request is served by exactly one relay. WebSocket upgrades go to the
WebSocket relay; everything else goes to the HTTP relay. Neither relay
retries: failures are reported to the client right away.

# HTTP relay

Requests are forwarded with httputil.ReverseProxy. The Host header is set to
the upstream, since Chrome refuses DevTools HTTP requests whose Host is not an
IP address or localhost. Responses from /json/version (and /json/list when
enabled) get their webSocketDebuggerUrl rewritten to the external base of the
inbound request:

	upstream: {"webSocketDebuggerUrl": "ws://127.0.0.1:9222/devtools/browser/abc"}
	client:   {"webSocketDebuggerUrl": "wss://sandbox.example.com/devtools/browser/abc"}

A document that cannot be rewritten is returned byte for byte as received.

# WebSocket relay

The upstream socket is dialed before the client is upgraded. A failed dial is
answered with 502 and the client handshake never completes. After both
handshakes a session runs two pumps, one per direction, each copying whole
messages with their frame type. Close frames are forwarded with their code.
When either pump stops, both sockets are closed and the handler returns after
the second pump has exited.
*/
package proxy
