package proxy

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/GriffinCanCode/AgentOS/cdpgate/internal/domain/devtools"
)

// Upstream is the internal CDP server. It is built once at startup and never
// mutated, so it is shared by every connection without locking.
type Upstream struct {
	url *url.URL
}

// ParseUpstream accepts http(s) or ws(s) base URLs. Any path is dropped:
// inbound paths are forwarded as they are.
func ParseUpstream(raw string) (*Upstream, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidUpstream, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https", "ws", "wss":
	default:
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidUpstream, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: missing host in %q", ErrInvalidUpstream, raw)
	}

	return &Upstream{url: &url.URL{
		Scheme: devtools.HTTPScheme(u.Scheme),
		Host:   u.Host,
	}}, nil
}

// MustParseUpstream is ParseUpstream for tests and constants
func MustParseUpstream(raw string) *Upstream {
	u, err := ParseUpstream(raw)
	if err != nil {
		panic(err)
	}
	return u
}

// URL returns a copy of the upstream base URL
func (u *Upstream) URL() *url.URL {
	c := *u.url
	return &c
}

// Host returns host:port of the upstream
func (u *Upstream) Host() string {
	return u.url.Host
}

// String returns the upstream base URL
func (u *Upstream) String() string {
	return u.url.String()
}

// WebSocketURL maps an inbound request URI onto the upstream, keeping path and
// query.
func (u *Upstream) WebSocketURL(in *url.URL) string {
	out := url.URL{
		Scheme:   devtools.WebSocketScheme(u.url.Scheme),
		Host:     u.url.Host,
		Path:     in.Path,
		RawPath:  in.RawPath,
		RawQuery: in.RawQuery,
	}
	return out.String()
}
