package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// proxiedPath labels every request served by the catch-all proxy route.
// Raw paths carry target ids and would explode label cardinality.
const proxiedPath = "proxy"

// Middleware creates a Gin middleware for metrics collection
func Middleware(metrics *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method

		// Process request
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = proxiedPath
		}

		duration := time.Since(start)
		status := strconv.Itoa(c.Writer.Status())
		respSize := int64(c.Writer.Size())
		if respSize < 0 {
			respSize = 0
		}

		metrics.RecordHTTPRequest(method, path, status, duration, respSize)
	}
}
