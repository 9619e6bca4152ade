package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Run      RunConfig
	Adaptive AdaptiveConfig
	Server   ServerConfig
	Tracing  TracingConfig
	Alert    AlertConfig
	Log      LogConfig
}

type RunConfig struct {
	ScenarioFile string
	PoolSize     int
	MaxPending   int
	DrainTimeout time.Duration
	ForceTimeout time.Duration
}

type AdaptiveConfig struct {
	ErrorThreshold   float64
	BackpressureLow  float64
	BackpressureHigh float64
}

type ServerConfig struct {
	AdminPort int
}

type TracingConfig struct {
	Endpoint    string
	Insecure    bool
	SampleRatio float64
}

type AlertConfig struct {
	WebhookURL string
	Cooldown   time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	cfg := &Config{
		Run: RunConfig{
			ScenarioFile: getEnv("SCENARIO_FILE", ""),
			PoolSize:     getEnvInt("POOL_SIZE", 0),
			MaxPending:   getEnvInt("MAX_PENDING", 10000),
			DrainTimeout: time.Duration(getEnvInt("DRAIN_TIMEOUT_SEC", 5)) * time.Second,
			ForceTimeout: time.Duration(getEnvInt("FORCE_TIMEOUT_SEC", 2)) * time.Second,
		},
		Adaptive: AdaptiveConfig{
			ErrorThreshold:   getEnvFloat("ADAPTIVE_ERROR_THRESHOLD", 0.01),
			BackpressureLow:  getEnvFloat("ADAPTIVE_BACKPRESSURE_LOW", 0.3),
			BackpressureHigh: getEnvFloat("ADAPTIVE_BACKPRESSURE_HIGH", 0.7),
		},
		Server: ServerConfig{
			AdminPort: getEnvInt("ADMIN_PORT", 8080),
		},
		Tracing: TracingConfig{
			Endpoint:    getEnv("OTLP_ENDPOINT", ""),
			Insecure:    getEnvBool("OTLP_INSECURE", true),
			SampleRatio: getEnvFloat("OTLP_SAMPLE_RATIO", 0.1),
		},
		Alert: AlertConfig{
			WebhookURL: getEnv("ALERT_WEBHOOK_URL", ""),
			Cooldown:   time.Duration(getEnvInt("ALERT_COOLDOWN_SEC", 300)) * time.Second,
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Run.PoolSize < 0 {
		return fmt.Errorf("POOL_SIZE must be >= 0")
	}
	if c.Run.MaxPending <= 0 {
		return fmt.Errorf("MAX_PENDING must be positive")
	}
	if c.Run.DrainTimeout <= 0 {
		return fmt.Errorf("DRAIN_TIMEOUT_SEC must be positive")
	}
	if c.Adaptive.ErrorThreshold <= 0 || c.Adaptive.ErrorThreshold > 1 {
		return fmt.Errorf("ADAPTIVE_ERROR_THRESHOLD must be in (0, 1]")
	}
	if c.Adaptive.BackpressureLow >= c.Adaptive.BackpressureHigh {
		return fmt.Errorf("ADAPTIVE_BACKPRESSURE_LOW must be below ADAPTIVE_BACKPRESSURE_HIGH")
	}
	if c.Tracing.Endpoint != "" && (c.Tracing.SampleRatio <= 0 || c.Tracing.SampleRatio > 1) {
		return fmt.Errorf("OTLP_SAMPLE_RATIO must be in (0, 1]")
	}
	if c.Server.AdminPort <= 0 || c.Server.AdminPort > 65535 {
		return fmt.Errorf("ADMIN_PORT must be a valid port")
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or text, got %q", c.Log.Format)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
