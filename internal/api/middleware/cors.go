package middleware

import (
	"fmt"
	"time"

	"github.com/GriffinCanCode/AgentOS/cdpgate/internal/infrastructure/config"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORSConfig defines CORS configuration options.
type CORSConfig struct {
	// AllowOrigins empty or containing "*" allows every origin
	AllowOrigins     []string
	AllowMethods     []string
	AllowHeaders     []string
	AllowCredentials bool
	MaxAge           time.Duration
}

// DefaultCORSConfig returns a CORS configuration for browser-based CDP
// clients reading the metadata endpoints.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowMethods: []string{"GET", "PUT", "OPTIONS"},
		AllowHeaders: []string{
			"Content-Type",
			"Accept",
			"Accept-Encoding",
			"Origin",
			"Cache-Control",
			"X-Requested-With",
			"X-Trace-ID",
		},
		MaxAge: 12 * time.Hour,
	}
}

// CORSFromConfig maps the application config section.
func CORSFromConfig(cfg config.CORSConfig) CORSConfig {
	out := DefaultCORSConfig()
	out.AllowOrigins = cfg.Origins
	return out
}

// CORS creates a CORS middleware. Invalid origins are reported instead of
// panicking at startup.
func CORS(cfg CORSConfig) (gin.HandlerFunc, error) {
	cc := cors.Config{
		AllowMethods:     cfg.AllowMethods,
		AllowHeaders:     cfg.AllowHeaders,
		AllowCredentials: cfg.AllowCredentials,
		AllowWebSockets:  true,
		MaxAge:           cfg.MaxAge,
	}

	if allowAll(cfg.AllowOrigins) {
		cc.AllowAllOrigins = true
		cc.AllowCredentials = false
	} else {
		cc.AllowOrigins = cfg.AllowOrigins
	}

	if err := cc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid cors config: %w", err)
	}
	return cors.New(cc), nil
}

func allowAll(origins []string) bool {
	if len(origins) == 0 {
		return true
	}
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
