// Package logger builds the zap logger shared by the server, the booking
// service and the event consumer.
package logger

import (
	"fmt"

	"go.uber.org/zap"
)

// New returns a development logger (console encoder, caller info) when env
// is "dev" and a JSON production logger otherwise.  level is a zap level
// name such as "debug" or "warn"; an empty level keeps the preset default.
func New(env, level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if env == "dev" {
		cfg = zap.NewDevelopmentConfig()
	}
	if level != "" {
		lvl, err := zap.ParseAtomicLevel(level)
		if err != nil {
			return nil, fmt.Errorf("parse log level %q: %w", level, err)
		}
		cfg.Level = lvl
	}
	return cfg.Build()
}
