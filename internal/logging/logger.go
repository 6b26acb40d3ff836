package logging

import (
	"strings"

	"go.uber.org/zap"
)

// New builds the process-wide sugared logger. Mode "prod" selects the
// JSON production encoder; anything else gets the console development
// encoder.
func New(mode string) (*zap.SugaredLogger, error) {
	var cfg zap.Config
	switch strings.ToLower(mode) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
	default:
		cfg = zap.NewDevelopmentConfig()
	}
	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}

// Nop returns a logger that discards everything, for tests and optional
// dependencies.
func Nop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
