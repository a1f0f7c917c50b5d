// Package middleware provides the optional gin middleware in front of the
// proxy: CORS for browser-based clients and per-IP rate limiting.
//
// Both are off by default. The proxy itself must stay transparent, so
// neither middleware rewrites requests that it lets through.
//
//	cors, err := middleware.CORS(middleware.CORSFromConfig(cfg.CORS))
//	router.Use(cors)
//	router.Use(middleware.RateLimit(middleware.RateLimitFromConfig(cfg.RateLimit)))
package middleware
