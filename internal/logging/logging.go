package logging

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"serverless-bridge/internal/config"
)

// Setup configures the standard logrus logger from cfg.
func Setup(cfg config.LogConfig) *logrus.Logger {
	logger := logrus.StandardLogger()
	Configure(logger, cfg)
	return logger
}

// Configure applies level and format to logger. An unknown level keeps Info.
func Configure(logger *logrus.Logger, cfg config.LogConfig) {
	logger.SetOutput(os.Stderr)

	level, err := logrus.ParseLevel(strings.TrimSpace(cfg.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if strings.EqualFold(cfg.Format, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{})
		return
	}
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}
