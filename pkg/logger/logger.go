// Package logger constructs the structured logger used throughout this
// module. Every package that can fail or make a non-obvious decision logs
// through a *zap.SugaredLogger obtained here rather than printing directly.
package logger

import (
	"go.uber.org/zap"
)

// New builds a production-configured logger bound to the given service
// name. The name is attached as a permanent structured field so log lines
// from the container engine and from the demo player can be told apart
// when both run in the same process.
func New(service string) *zap.SugaredLogger {
	base, err := zap.NewProduction()
	if err != nil {
		base = zap.NewNop()
	}
	return base.Sugar().With("service", service)
}

// NewDevelopment builds a human-readable, colorized logger suitable for
// local use by the demo player and for tests that want readable output on
// failure.
func NewDevelopment(service string) *zap.SugaredLogger {
	base, err := zap.NewDevelopment()
	if err != nil {
		base = zap.NewNop()
	}
	return base.Sugar().With("service", service)
}
