// Package resolver finds a working CDP debugger URL among ordered candidate
// base addresses.
//
// Each candidate has its own retry budget (attempt count, delay, fixed or
// linear policy). A candidate is abandoned only after its whole budget is
// spent, and candidates are never revisited. The URL returned is the
// browser's webSocketDebuggerUrl rewritten against the candidate's base, so
// a candidate reached through a TLS-terminating proxy yields a wss:// URL
// on that proxy's host and port.
package resolver
