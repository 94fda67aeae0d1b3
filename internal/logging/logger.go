// Package logging builds the zap loggers used by the command line tools.
package logging

import "go.uber.org/zap"

// New returns a zap logger writing to stderr. When verbose is true it uses the
// development config (human-readable, debug level); otherwise the production
// config (JSON, info level).
func New(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
