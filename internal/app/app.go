package app

import (
	"sync"

	"github.com/sirupsen/logrus"

	"serverless-bridge/internal/config"
	"serverless-bridge/internal/logging"
	"serverless-bridge/pkg/gateway"
)

// Factory returns a constructor for the wrapped application.
func Factory(cfg *config.Config) gateway.Factory {
	return func() (gateway.Application, error) {
		return gateway.NewHandlerApplication(NewRouter(cfg)), nil
	}
}

// Options maps configuration onto adapter options.
func Options(cfg *config.Config, logger logrus.FieldLogger, observer gateway.Observer) gateway.Options {
	return gateway.Options{
		Server: gateway.ServerInfo{
			Name:   cfg.Adapter.ServerName,
			Port:   cfg.Adapter.ServerPort,
			Scheme: cfg.Adapter.Scheme,
		},
		AllowOrigin:  cfg.Adapter.AllowOrigin,
		IncludeTrace: cfg.Adapter.IncludeTrace,
		Logger:       logger,
		Observer:     observer,
	}
}

// NewAdapter wires the wrapped application behind an adapter. The
// application itself is built on the first invocation.
func NewAdapter(cfg *config.Config, observer gateway.Observer) *gateway.Adapter {
	lazy := gateway.NewLazy(Factory(cfg))
	return gateway.New(lazy, Options(cfg, logrus.StandardLogger(), observer))
}

var (
	sharedAdapter *gateway.Adapter
	sharedOnce    sync.Once
)

// Shared returns the process-wide adapter used by the serverless entry
// points. Configuration is read once; invalid configuration falls back to
// defaults rather than failing every invocation.
func Shared() *gateway.Adapter {
	sharedOnce.Do(func() {
		cfg, err := config.GetOptimizedConfig()
		if err != nil {
			logrus.WithError(err).Error("Failed to load configuration, using defaults")
			cfg = &config.Config{Environment: "production"}
		}
		logging.Setup(cfg.Log)
		sharedAdapter = NewAdapter(cfg, nil)
	})
	return sharedAdapter
}
