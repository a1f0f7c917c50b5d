package proxy

import (
	"net/http"
	"strings"
)

// ExternalBase returns the base address a client used to reach the proxy,
// as scheme://host[:port].
//
// publicBase wins when set. Otherwise the scheme comes from
// X-Forwarded-Proto (if trusted) or the connection's TLS state, and the host
// from X-Forwarded-Host (if trusted) or the Host header.
func ExternalBase(r *http.Request, publicBase string, trustForwarded bool) string {
	if publicBase != "" {
		return strings.TrimRight(publicBase, "/")
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	host := r.Host

	if trustForwarded {
		if proto := firstValue(r.Header.Get("X-Forwarded-Proto")); proto != "" {
			scheme = strings.ToLower(proto)
		}
		if fwdHost := firstValue(r.Header.Get("X-Forwarded-Host")); fwdHost != "" {
			host = fwdHost
		}
	}

	return scheme + "://" + host
}

// firstValue returns the client-most entry of a comma separated header
func firstValue(v string) string {
	if i := strings.IndexByte(v, ','); i >= 0 {
		v = v[:i]
	}
	return strings.TrimSpace(v)
}
