// Package logging builds the zap logger shared by every command.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a JSON production logger, or a console logger when
// development is set. Both write to stderr so stdout stays free for results.
func New(level string, development bool) (*zap.Logger, error) {
	parsedLevel, levelErr := zapcore.ParseLevel(level)
	if levelErr != nil {
		return nil, fmt.Errorf("parse log level %q: %w", level, levelErr)
	}
	cfg := zap.NewProductionConfig()
	if development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(parsedLevel)
	logger, buildErr := cfg.Build()
	if buildErr != nil {
		return nil, fmt.Errorf("init logger: %w", buildErr)
	}
	return logger, nil
}
