// Package logging provides structured logging using uber/zap.
//
// Two modes:
//   - Production: JSON lines
//   - Development: colored console output
//
// Both write to stderr. stdout belongs to command output (the resolver prints
// the WebSocket URL there).
//
// Components receive a *zap.Logger and attach their own fields:
//
//	logger := logging.NewDefault()
//	relayLog := logger.Component("relay").With(zap.String("relay_id", rid.String()))
//	relayLog.Info("relay session opened", zap.String("path", r.URL.Path))
package logging
