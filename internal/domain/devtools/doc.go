/*
Package devtools holds the Chrome DevTools Protocol metadata model and the
address rewriting applied to it.

# Overview

A browser started with --remote-debugging-port answers GET /json/version with
a document whose webSocketDebuggerUrl points at its own loopback listener:

	{"Browser": "Chrome/126.0", "webSocketDebuggerUrl": "ws://127.0.0.1:9222/devtools/browser/abc123"}

A client that reached the browser through a proxy must connect to the proxy
instead. RewriteWebSocketURL maps the reported URL onto the base address the
client used:

	devtools.RewriteWebSocketURL(
		"ws://127.0.0.1:9222/devtools/browser/abc123",
		"https://proxy.example.com",
	) // wss://proxy.example.com/devtools/browser/abc123

# Documents

RewriteVersion and RewriteTargets edit raw documents in place with the sonic
AST. Only the debugger URL changes; all other values keep their original bytes
and order. Documents that cannot be rewritten return an error wrapping
ErrMalformedMetadata and callers fall back to the original body.
*/
package devtools
