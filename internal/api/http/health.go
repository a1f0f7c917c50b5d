package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mafredri/cdp/devtool"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/cdpgate/internal/infrastructure/resilience"
)

// VersionSource reports the upstream browser version. *devtool.DevTools
// satisfies it.
type VersionSource interface {
	Version(ctx context.Context) (*devtool.Version, error)
}

// Handlers serves the admin endpoints next to the proxy
type Handlers struct {
	upstream  string
	source    VersionSource
	breaker   *resilience.Breaker
	timeout   time.Duration
	logger    *zap.Logger
	startTime time.Time
}

// NewHandlers creates handlers probing the CDP server at upstream (an
// http(s) base URL). A nil source probes upstream with devtool.
func NewHandlers(upstream string, source VersionSource, timeout time.Duration, logger *zap.Logger) *Handlers {
	if source == nil {
		source = devtool.New(upstream)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	h := &Handlers{
		upstream:  upstream,
		source:    source,
		timeout:   timeout,
		logger:    logger,
		startTime: time.Now(),
	}
	h.breaker = resilience.New("upstream-health", resilience.Settings{
		MaxRequests: 1,
		Cooldown:    5 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to resilience.State) {
			logger.Warn("Health breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return h
}

// Breaker exposes the health breaker
func (h *Handlers) Breaker() *resilience.Breaker {
	return h.breaker
}

// Health answers 200 when the upstream serves its version document and 503
// otherwise. While the breaker is open the upstream is not contacted.
func (h *Handlers) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	version, err := resilience.Call(ctx, h.breaker, func(ctx context.Context) (*devtool.Version, error) {
		return h.source.Version(ctx)
	})
	if err != nil {
		h.logger.Debug("Upstream health probe failed",
			zap.String("upstream", h.upstream),
			zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "unhealthy",
			"upstream": h.upstream,
			"error":    err.Error(),
			"breaker":  h.breaker.Snapshot(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":           "healthy",
		"upstream":         h.upstream,
		"browser":          version.Browser,
		"protocol_version": version.Protocol,
		"uptime_seconds":   int64(time.Since(h.startTime).Seconds()),
		"breaker":          h.breaker.Snapshot(),
	})
}
