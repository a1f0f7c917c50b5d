/*
Package tracing provides lightweight request tracing.

# Overview

Every request entering the proxy gets a span. The trace ID is taken from the
X-Trace-ID header when the caller sent one, otherwise a new req_* ULID is
minted. Both IDs are echoed back in the response headers so a client can
correlate a failed handshake with the proxy's log lines.

Finished spans are buffered (1000) and written by a single collector
goroutine: at debug level on success, at warn level when the span carries an
error.

# Usage

	tracer := tracing.New("cdpgate", logger)
	defer tracer.Close()

	router.Use(tracing.HTTPMiddleware(tracer))

	// Inside a handler
	logger.Info("relay opened", tracing.Field(r.Context()))
*/
package tracing
