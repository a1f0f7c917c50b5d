package proxy

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/cdpgate/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/AgentOS/cdpgate/internal/shared/id"
)

// Request headers never copied to the upstream handshake. The Sec-WebSocket-*
// set and Upgrade/Connection are generated by the dialer, which refuses
// duplicates.
var skipDialHeaders = map[string]bool{
	"Upgrade":                  true,
	"Connection":               true,
	"Sec-Websocket-Key":        true,
	"Sec-Websocket-Version":    true,
	"Sec-Websocket-Extensions": true,
	"Sec-Websocket-Protocol":   true,
	"Host":                     true,
	"Keep-Alive":               true,
	"Proxy-Connection":         true,
	"Proxy-Authorization":      true,
	"Te":                       true,
	"Trailer":                  true,
	"Transfer-Encoding":        true,
}

// serveWebSocket dials the upstream first and only then upgrades the client,
// so a dead upstream is reported as a plain 502 instead of a handshake that
// completes and immediately drops.
func (p *Proxy) serveWebSocket(w http.ResponseWriter, r *http.Request) {
	relayID := id.NewRelayID()
	target := p.upstream.WebSocketURL(r.URL)
	logger := p.logger.With(
		zap.String("relay_id", relayID.String()),
		zap.String("path", r.URL.Path),
		tracing.Field(r.Context()),
	)

	dialer := p.dialer
	dialer.Subprotocols = websocket.Subprotocols(r)

	ctx, cancel := context.WithTimeout(r.Context(), p.opts.HandshakeTimeout)
	upstreamConn, resp, err := dialer.DialContext(ctx, target, p.dialHeader(r))
	cancel()
	if err != nil {
		fields := []zap.Field{
			zap.String("kind", "handshake_failure"),
			zap.String("upstream", target),
			zap.Error(err),
		}
		if resp != nil {
			fields = append(fields, zap.Int("upstream_status", resp.StatusCode))
		}
		logger.Warn("Upstream WebSocket dial failed, rejecting upgrade", fields...)
		p.metrics.RecordUpstreamError("handshake")

		status := http.StatusBadGateway
		if isTimeout(err) {
			status = http.StatusGatewayTimeout
		}
		writeError(w, status, fmt.Errorf("%w: %v", ErrHandshakeFailure, err))
		return
	}

	var responseHeader http.Header
	if proto := upstreamConn.Subprotocol(); proto != "" {
		responseHeader = http.Header{"Sec-Websocket-Protocol": {proto}}
	}

	clientConn, err := p.upgrader.Upgrade(w, r, responseHeader)
	if err != nil {
		// The upgrader already answered the client
		logger.Warn("Client WebSocket upgrade failed", zap.Error(err))
		_ = upstreamConn.Close()
		return
	}

	s := newSession(relayID, clientConn, upstreamConn, sessionConfig{
		writeTimeout: p.opts.WriteTimeout,
		readLimit:    p.opts.ReadLimit,
	}, logger, p.metrics)

	logger.Info("Relay session opened", zap.String("upstream", target))
	p.metrics.RelayStarted()
	start := time.Now()

	err = s.run(r.Context())

	outcome := "closed"
	if err != nil {
		outcome = "error"
	}
	p.metrics.RelayFinished(outcome, time.Since(start))
	logger.Info("Relay session closed",
		zap.Duration("duration", time.Since(start)),
		zap.String("outcome", outcome),
		zap.NamedError("cause", err),
	)
}

func (p *Proxy) dialHeader(r *http.Request) http.Header {
	h := make(http.Header, len(r.Header))
	for k, v := range r.Header {
		if skipDialHeaders[k] {
			continue
		}
		if k == "Origin" && !p.opts.ForwardOrigin {
			continue
		}
		h[k] = append([]string(nil), v...)
	}
	return h
}

// rejectUpgrade is the upgrader's error hook for malformed client handshakes
func (p *Proxy) rejectUpgrade(w http.ResponseWriter, r *http.Request, status int, reason error) {
	if reason == nil {
		reason = errors.New(http.StatusText(status))
	}
	w.Header().Set("Sec-Websocket-Version", "13")
	writeError(w, status, reason)
}
