package proxy

import "errors"

var (
	// ErrUpstreamUnreachable means the internal CDP server could not be
	// reached or did not answer in time.
	ErrUpstreamUnreachable = errors.New("upstream unreachable")

	// ErrHandshakeFailure means the WebSocket handshake with the upstream
	// failed, so the inbound upgrade was rejected.
	ErrHandshakeFailure = errors.New("upstream websocket handshake failed")

	// ErrInvalidUpstream is returned by ParseUpstream.
	ErrInvalidUpstream = errors.New("invalid upstream url")
)
