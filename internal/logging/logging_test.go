package logging

import (
	"testing"

	"github.com/sirupsen/logrus"

	"serverless-bridge/internal/config"
)

func TestConfigure(t *testing.T) {
	tests := []struct {
		name      string
		cfg       config.LogConfig
		level     logrus.Level
		jsonLines bool
	}{
		{name: "Defaults", cfg: config.LogConfig{}, level: logrus.InfoLevel},
		{name: "DebugText", cfg: config.LogConfig{Level: "debug", Format: "text"}, level: logrus.DebugLevel},
		{name: "WarnJSON", cfg: config.LogConfig{Level: " warn ", Format: "JSON"}, level: logrus.WarnLevel, jsonLines: true},
		{name: "UnknownLevel", cfg: config.LogConfig{Level: "chatty"}, level: logrus.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := logrus.New()
			Configure(logger, tt.cfg)

			if logger.GetLevel() != tt.level {
				t.Errorf("Expected level %s, got %s", tt.level, logger.GetLevel())
			}
			_, isJSON := logger.Formatter.(*logrus.JSONFormatter)
			if isJSON != tt.jsonLines {
				t.Errorf("Expected json formatter %v, got %T", tt.jsonLines, logger.Formatter)
			}
		})
	}
}
