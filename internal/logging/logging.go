// Package logging builds the process zap logger.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a JSON production logger, or a colored console logger at debug
// level when debug is set.
func New(debug bool) (*zap.Logger, error) {
	if !debug {
		logger, err := zap.NewProduction()
		if err != nil {
			return nil, fmt.Errorf("build production logger: %w", err)
		}
		return logger, nil
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build development logger: %w", err)
	}
	return logger, nil
}
