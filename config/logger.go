package config

import (
	"strings"

	"go.uber.org/zap"
)

// NewLogger builds the process logger. APP_ENV=dev switches to the console encoder.
func NewLogger() (*zap.Logger, error) {
	if strings.EqualFold(envOrDefault("APP_ENV", "production"), "dev") {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	if lvl := envOrDefault("LOG_LEVEL", ""); lvl != "" {
		if err := cfg.Level.UnmarshalText([]byte(lvl)); err != nil {
			return nil, err
		}
	}
	return cfg.Build()
}
