package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apihttp "github.com/GriffinCanCode/AgentOS/cdpgate/internal/api/http"
	"github.com/GriffinCanCode/AgentOS/cdpgate/internal/api/middleware"
	"github.com/GriffinCanCode/AgentOS/cdpgate/internal/infrastructure/config"
	"github.com/GriffinCanCode/AgentOS/cdpgate/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/cdpgate/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/cdpgate/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/AgentOS/cdpgate/internal/proxy"
)

// Admin routes served by cdpgate itself. Every other path is relayed.
const (
	HealthPath  = "/healthz"
	MetricsPath = "/metrics"
)

// Server wraps the HTTP server and dependencies
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	proxy      *proxy.Proxy
	handlers   *apihttp.Handlers
	tracer     *tracing.Tracer
	logger     *logging.Logger
	config     *config.Config
	metrics    *monitoring.Metrics

	// baseCtx parents every request context, so canceling it ends relay
	// sessions that http.Server.Shutdown cannot see once hijacked
	baseCtx    context.Context
	cancelBase context.CancelFunc
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, logger *logging.Logger) (*Server, error) {
	if logger == nil {
		logger = logging.NewDefault()
	}

	upstream, err := proxy.ParseUpstream(cfg.Upstream.URL)
	if err != nil {
		return nil, err
	}

	logger.Info("Initializing cdpgate",
		zap.String("addr", cfg.Addr()),
		zap.String("upstream", upstream.String()),
		zap.String("public_base_url", cfg.Server.PublicBaseURL),
		zap.Bool("trust_forwarded", cfg.Server.TrustForwarded),
		zap.Bool("rewrite_target_list", cfg.Upstream.RewriteTargetList),
	)

	metrics := monitoring.NewMetrics()
	tracer := tracing.New("cdpgate", logger.Component("tracing"))

	p := proxy.New(upstream, proxy.OptionsFromConfig(cfg), logger.Component("proxy"), metrics)
	handlers := apihttp.NewHandlers(upstream.String(), nil, cfg.Upstream.Timeout, logger.Component("health"))

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(tracing.HTTPMiddleware(tracer))
	router.Use(monitoring.Middleware(metrics))
	if cfg.CORS.Enabled {
		cors, err := middleware.CORS(middleware.CORSFromConfig(cfg.CORS))
		if err != nil {
			tracer.Close()
			return nil, err
		}
		logger.Info("CORS enabled", zap.Strings("origins", cfg.CORS.Origins))
		router.Use(cors)
	}
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(middleware.RateLimitFromConfig(cfg.RateLimit)))
	}

	router.GET(HealthPath, handlers.Health)
	router.GET(MetricsPath, gin.WrapH(metrics.Handler()))

	// Everything else belongs to the browser
	router.NoRoute(p.Handle)

	baseCtx, cancelBase := context.WithCancel(context.Background())

	s := &Server{
		router:     router,
		proxy:      p,
		handlers:   handlers,
		tracer:     tracer,
		logger:     logger,
		config:     cfg,
		metrics:    metrics,
		baseCtx:    baseCtx,
		cancelBase: cancelBase,
	}
	s.httpServer = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return s.baseCtx },
		ErrorLog:          zap.NewStdLog(logger.Component("http")),
	}
	s.httpServer.RegisterOnShutdown(cancelBase)

	logger.Info("Server initialized successfully")
	return s, nil
}

// Handler returns the root handler, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}

// Metrics returns the server's collectors
func (s *Server) Metrics() *monitoring.Metrics {
	return s.metrics
}

// Run listens on the configured address and serves until Shutdown
func (s *Server) Run() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Shutdown
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("Starting HTTP server", zap.String("addr", ln.Addr().String()))
	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections, ends open relay sessions and waits
// for in-flight HTTP requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")

	s.cancelBase()
	err := s.httpServer.Shutdown(ctx)
	s.tracer.Close()
	if err != nil {
		s.logger.Error("Server shutdown incomplete", zap.Error(err))
		return fmt.Errorf("failed to shut down server: %w", err)
	}

	s.logger.Info("Server stopped")
	return nil
}
