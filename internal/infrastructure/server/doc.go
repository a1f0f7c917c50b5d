// Package server assembles cdpgate: the gin engine with its middleware, the
// admin routes, and the proxy as catch-all, behind an http.Server whose
// shutdown also ends hijacked relay sessions.
package server
