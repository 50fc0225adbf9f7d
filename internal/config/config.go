package config

import (
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Environment string
	Port        string
	Log         LogConfig
	Adapter     AdapterConfig
	Server      ServerConfig
	Invoke      InvokeConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string
	Format string // "text" or "json"
}

// AdapterConfig holds settings for the request/response adapter
type AdapterConfig struct {
	ServerName   string
	ServerPort   string
	Scheme       string
	AllowOrigin  string
	IncludeTrace bool
}

// ServerConfig holds settings for the local platform emulator
type ServerConfig struct {
	RateLimitRPS   float64
	RateLimitBurst int
	EnableMetrics  bool
}

// InvokeConfig holds authentication settings for the invoke endpoint
type InvokeConfig struct {
	Secret      string
	Issuer      string
	ExpiryHours int
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("PORT", "8081")
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("ADAPTER_SERVER_NAME", "vercel")
	v.SetDefault("ADAPTER_SERVER_PORT", "443")
	v.SetDefault("ADAPTER_SCHEME", "https")
	v.SetDefault("ADAPTER_ALLOW_ORIGIN", "*")
	v.SetDefault("ADAPTER_INCLUDE_TRACE", true)
	v.SetDefault("RATE_LIMIT_RPS", 50.0)
	v.SetDefault("RATE_LIMIT_BURST", 100)
	v.SetDefault("METRICS_ENABLED", true)
	v.SetDefault("INVOKE_ISSUER", "serverless-bridge")
	v.SetDefault("INVOKE_EXPIRY_HOURS", 24)

	config := &Config{
		Environment: v.GetString("ENVIRONMENT"),
		Port:        v.GetString("PORT"),
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Adapter: AdapterConfig{
			ServerName:   v.GetString("ADAPTER_SERVER_NAME"),
			ServerPort:   v.GetString("ADAPTER_SERVER_PORT"),
			Scheme:       v.GetString("ADAPTER_SCHEME"),
			AllowOrigin:  v.GetString("ADAPTER_ALLOW_ORIGIN"),
			IncludeTrace: v.GetBool("ADAPTER_INCLUDE_TRACE"),
		},
		Server: ServerConfig{
			RateLimitRPS:   v.GetFloat64("RATE_LIMIT_RPS"),
			RateLimitBurst: v.GetInt("RATE_LIMIT_BURST"),
			EnableMetrics:  v.GetBool("METRICS_ENABLED"),
		},
		Invoke: InvokeConfig{
			Secret:      v.GetString("INVOKE_SECRET"),
			Issuer:      v.GetString("INVOKE_ISSUER"),
			ExpiryHours: v.GetInt("INVOKE_EXPIRY_HOURS"),
		},
	}

	return config, nil
}

// IsProduction reports whether the environment is production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
