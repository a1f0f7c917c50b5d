package devtools

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRewriteWebSocketURL(t *testing.T) {
	tests := []struct {
		name     string
		original string
		base     string
		want     string
	}{
		{
			name:     "https base yields wss",
			original: "ws://127.0.0.1:9222/devtools/browser/abc123",
			base:     "https://proxy.example.com",
			want:     "wss://proxy.example.com/devtools/browser/abc123",
		},
		{
			name:     "http base yields ws",
			original: "ws://127.0.0.1:9222/devtools/browser/abc123",
			base:     "http://10.0.0.5:9223",
			want:     "ws://10.0.0.5:9223/devtools/browser/abc123",
		},
		{
			name:     "explicit port kept verbatim",
			original: "ws://127.0.0.1:9222/devtools/browser/xyz",
			base:     "https://host:443",
			want:     "wss://host:443/devtools/browser/xyz",
		},
		{
			name:     "uppercase scheme",
			original: "ws://localhost:9222/devtools/page/1",
			base:     "HTTPS://sandbox.example.com",
			want:     "wss://sandbox.example.com/devtools/page/1",
		},
		{
			name:     "query survives",
			original: "ws://127.0.0.1:9222/devtools/browser/abc?token=s3cr3t",
			base:     "https://proxy.example.com",
			want:     "wss://proxy.example.com/devtools/browser/abc?token=s3cr3t",
		},
		{
			name:     "escaped path survives",
			original: "ws://127.0.0.1:9222/devtools/page/a%2Fb",
			base:     "http://proxy",
			want:     "ws://proxy/devtools/page/a%2Fb",
		},
		{
			name:     "base path ignored",
			original: "ws://127.0.0.1:9222/devtools/browser/abc",
			base:     "https://proxy.example.com/some/prefix",
			want:     "wss://proxy.example.com/devtools/browser/abc",
		},
		{
			name:     "original without path",
			original: "ws://127.0.0.1:9222",
			base:     "https://proxy.example.com",
			want:     "wss://proxy.example.com",
		},
		{
			name:     "unparsable original contributes no path",
			original: "ws://[::1",
			base:     "http://proxy:8080",
			want:     "ws://proxy:8080",
		},
		{
			name:     "base without host leaves original",
			original: "ws://127.0.0.1:9222/devtools/browser/abc",
			base:     "not a url",
			want:     "ws://127.0.0.1:9222/devtools/browser/abc",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RewriteWebSocketURL(tt.original, tt.base))
		})
	}
}

func TestRewriteWebSocketURLTakesHostFromBase(t *testing.T) {
	originals := []string{
		"ws://127.0.0.1:9222/devtools/browser/1",
		"ws://localhost/devtools/page/2",
		"wss://[::1]:9222/devtools/browser/3",
	}
	bases := []string{
		"http://a.example.com",
		"https://b.example.com:8443",
		"http://192.168.1.10:9223",
	}

	for _, original := range originals {
		for _, base := range bases {
			got, err := url.Parse(RewriteWebSocketURL(original, base))
			require.NoError(t, err)

			b, err := url.Parse(base)
			require.NoError(t, err)
			o, err := url.Parse(original)
			require.NoError(t, err)

			assert.Equal(t, b.Host, got.Host)
			assert.Equal(t, WebSocketScheme(b.Scheme), got.Scheme)
			assert.Equal(t, o.Path, got.Path)
		}
	}
}

func TestRewriteWebSocketURLIsNoOpOnExternalURL(t *testing.T) {
	for _, base := range []string{"https://proxy.example.com", "http://proxy:9223"} {
		once := RewriteWebSocketURL("ws://127.0.0.1:9222/devtools/browser/abc", base)
		assert.Equal(t, once, RewriteWebSocketURL(once, base))
	}
}

func TestSchemeMapping(t *testing.T) {
	assert.Equal(t, "wss", WebSocketScheme("https"))
	assert.Equal(t, "wss", WebSocketScheme("wss"))
	assert.Equal(t, "ws", WebSocketScheme("http"))
	assert.Equal(t, "ws", WebSocketScheme(""))

	assert.Equal(t, "https", HTTPScheme("wss"))
	assert.Equal(t, "http", HTTPScheme("ws"))
	assert.Equal(t, "https", HTTPScheme("HTTPS"))
}
