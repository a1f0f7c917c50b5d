package devtools

import (
	"net/url"
	"strings"
)

// RewriteWebSocketURL maps a debugger URL reported by the browser onto the
// base address a client used to reach it.
//
// The scheme becomes wss when the base is https (or already wss), ws
// otherwise. Host and port come from the base; path and query come from the
// original. There is no error path: an original that cannot be parsed
// contributes an empty path, and an unparsable base leaves the original
// untouched.
func RewriteWebSocketURL(original, externalBase string) string {
	base, err := url.Parse(strings.TrimSpace(externalBase))
	if err != nil || base.Host == "" {
		return original
	}

	out := url.URL{
		Scheme: WebSocketScheme(base.Scheme),
		Host:   base.Host,
	}

	if ws, err := url.Parse(strings.TrimSpace(original)); err == nil {
		out.Path = ws.Path
		out.RawPath = ws.RawPath
		out.RawQuery = ws.RawQuery
	}

	return out.String()
}

// WebSocketScheme returns the WebSocket scheme matching an HTTP(S) scheme
func WebSocketScheme(httpScheme string) string {
	switch strings.ToLower(httpScheme) {
	case "https", "wss":
		return "wss"
	default:
		return "ws"
	}
}

// HTTPScheme is the inverse of WebSocketScheme
func HTTPScheme(wsScheme string) string {
	switch strings.ToLower(wsScheme) {
	case "wss", "https":
		return "https"
	default:
		return "http"
	}
}
