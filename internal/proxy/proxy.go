package proxy

import (
	"net/http"
	"net/http/httputil"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/cdpgate/internal/infrastructure/config"
	"github.com/GriffinCanCode/AgentOS/cdpgate/internal/infrastructure/monitoring"
)

// Options tunes both relays
type Options struct {
	// PublicBaseURL overrides the per-request external base when set
	PublicBaseURL string
	// TrustForwarded lets X-Forwarded-Proto/Host decide the external base
	TrustForwarded bool
	// RewriteTargetList also rewrites /json and /json/list
	RewriteTargetList bool
	// ResponseTimeout bounds the wait for upstream response headers
	ResponseTimeout time.Duration

	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	// ReadLimit caps a single WebSocket message; 0 disables the cap
	ReadLimit  int64
	BufferSize int
	// ForwardOrigin passes the client's Origin header to the browser, which
	// rejects origins not allowed by --remote-allow-origins
	ForwardOrigin bool
}

// DefaultOptions mirrors config.Default
func DefaultOptions() Options {
	return OptionsFromConfig(config.Default())
}

// OptionsFromConfig extracts relay options from the application config
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		PublicBaseURL:     cfg.Server.PublicBaseURL,
		TrustForwarded:    cfg.Server.TrustForwarded,
		RewriteTargetList: cfg.Upstream.RewriteTargetList,
		ResponseTimeout:   cfg.Upstream.Timeout,
		HandshakeTimeout:  cfg.Relay.HandshakeTimeout,
		WriteTimeout:      cfg.Relay.WriteTimeout,
		ReadLimit:         cfg.Relay.ReadLimit,
		BufferSize:        cfg.Relay.BufferSize,
		ForwardOrigin:     cfg.Relay.ForwardOrigin,
	}
}

// Proxy is the reverse proxy in front of one CDP server. It holds no
// per-connection state; every request is served independently.
type Proxy struct {
	upstream *Upstream
	opts     Options
	logger   *zap.Logger
	metrics  *monitoring.Metrics

	httpRelay *httputil.ReverseProxy
	dialer    websocket.Dialer
	upgrader  websocket.Upgrader
}

// New creates a proxy for upstream. A nil metrics gets a private collector.
func New(upstream *Upstream, opts Options, logger *zap.Logger, metrics *monitoring.Metrics) *Proxy {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = monitoring.NewMetrics()
	}
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = 10 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 30 * time.Second
	}

	p := &Proxy{
		upstream: upstream,
		opts:     opts,
		logger:   logger,
		metrics:  metrics,
	}
	p.httpRelay = p.newHTTPRelay()
	p.dialer = websocket.Dialer{
		HandshakeTimeout: opts.HandshakeTimeout,
		ReadBufferSize:   opts.BufferSize,
		WriteBufferSize:  opts.BufferSize,
	}
	p.upgrader = websocket.Upgrader{
		HandshakeTimeout: opts.HandshakeTimeout,
		ReadBufferSize:   opts.BufferSize,
		WriteBufferSize:  opts.BufferSize,
		// Access control is delegated to the hosting environment
		CheckOrigin: func(*http.Request) bool { return true },
		Error:       p.rejectUpgrade,
	}

	return p
}

// Upstream returns the proxied CDP server
func (p *Proxy) Upstream() *Upstream {
	return p.upstream
}

// ServeHTTP dispatches a request to exactly one relay: WebSocket upgrades
// (Connection: upgrade, Upgrade: websocket, any case) go to the WebSocket
// relay, everything else to the HTTP relay.
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if websocket.IsWebSocketUpgrade(r) {
		p.serveWebSocket(w, r)
		return
	}
	p.httpRelay.ServeHTTP(w, r)
}

// Handle adapts the proxy to a gin catch-all route
func (p *Proxy) Handle(c *gin.Context) {
	if websocket.IsWebSocketUpgrade(c.Request) {
		// NoRoute presets 404 and a hijacked writer never overwrites it
		c.Status(http.StatusSwitchingProtocols)
	}
	p.ServeHTTP(c.Writer, c.Request)
}

// ExternalBase is the base address the client used for r
func (p *Proxy) ExternalBase(r *http.Request) string {
	return ExternalBase(r, p.opts.PublicBaseURL, p.opts.TrustForwarded)
}
