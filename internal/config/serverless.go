package config

import (
	"os"
	"sync"
)

// Deployment modes
const (
	ModeLambda = "lambda"
	ModeVercel = "vercel"
	ModeServer = "server"
)

// ServerlessConfig holds serverless-specific configuration
type ServerlessConfig struct {
	Mode         string
	FunctionName string
	Region       string
	Stage        string
}

// Global serverless configuration
var (
	serverlessConfig *ServerlessConfig
	serverlessOnce   sync.Once
)

// GetServerlessConfig returns the serverless configuration
func GetServerlessConfig() *ServerlessConfig {
	serverlessOnce.Do(func() {
		serverlessConfig = DetectServerless(os.Getenv)
	})
	return serverlessConfig
}

// DetectServerless derives the deployment mode from environment lookups
func DetectServerless(getenv func(string) string) *ServerlessConfig {
	cfg := &ServerlessConfig{
		Mode:  ModeServer,
		Stage: getenv("STAGE"),
	}

	switch {
	case getenv("AWS_LAMBDA_FUNCTION_NAME") != "":
		cfg.Mode = ModeLambda
		cfg.FunctionName = getenv("AWS_LAMBDA_FUNCTION_NAME")
		cfg.Region = getenv("AWS_REGION")
	case getenv("VERCEL") != "":
		cfg.Mode = ModeVercel
		cfg.Region = getenv("VERCEL_REGION")
		if cfg.Stage == "" {
			cfg.Stage = getenv("VERCEL_ENV")
		}
	}

	if cfg.Stage == "" {
		cfg.Stage = "dev"
	}
	return cfg
}

// IsServerlessMode returns true if running on a serverless platform
func IsServerlessMode() bool {
	return GetServerlessConfig().Mode != ModeServer
}

// GetDeploymentMode returns the current deployment mode
func GetDeploymentMode() string {
	return GetServerlessConfig().Mode
}

// AdaptConfigForServerless modifies configuration for serverless deployment
func AdaptConfigForServerless(sc *ServerlessConfig, config *Config) *Config {
	if sc == nil || sc.Mode == ModeServer {
		return config
	}

	// Platform log collectors expect one JSON object per line
	config.Log.Format = "json"
	if config.Environment == "development" && sc.Stage == "production" {
		config.Environment = "production"
	}

	// Lambda sits behind API Gateway, not the Vercel edge
	if sc.Mode == ModeLambda && config.Adapter.ServerName == "vercel" {
		config.Adapter.ServerName = "lambda"
		if sc.FunctionName != "" {
			config.Adapter.ServerName = sc.FunctionName
		}
	}

	return config
}

// GetOptimizedConfig returns configuration optimized for the current deployment mode
func GetOptimizedConfig() (*Config, error) {
	config, err := Load()
	if err != nil {
		return nil, err
	}

	// Apply serverless adaptations if needed
	config = AdaptConfigForServerless(GetServerlessConfig(), config)

	return config, nil
}
