package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server    ServerConfig
	Worker    WorkerConfig
	DB        DatabaseConfig
	Advisor   AdvisorConfig
	Assess    AssessConfig
	Collector CollectorConfig
	Logging   LoggingConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type WorkerConfig struct {
	Count      int
	BufferSize int
}

type DatabaseConfig struct {
	Driver string
	DSN    string
}

// AdvisorConfig points at an OpenRouter-compatible chat-completions API.
// With Enabled false (or an empty key) the advice endpoint serves the
// rule-based fallback only.
type AdvisorConfig struct {
	Enabled bool
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// AssessConfig sets the default recency windows and search radii for the
// seismic and weather axes of an assessment.
type AssessConfig struct {
	QuakeHours      int
	QuakeRadiusKm   float64
	WeatherHours    int
	WeatherRadiusKm float64
}

// CollectorConfig drives the weather collector. Stations is a semicolon
// separated list of "lat,lng,name" entries; empty means the built-in
// Philippine station set.
type CollectorConfig struct {
	PollInterval time.Duration
	Stations     string
}

type LoggingConfig struct {
	Level string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "localhost"),
			Port: getEnvInt("SERVER_PORT", 8080),
		},
		Worker: WorkerConfig{
			Count:      getEnvInt("WORKER_COUNT", 2),
			BufferSize: getEnvInt("WORKER_BUFFER_SIZE", 20),
		},
		DB: DatabaseConfig{
			Driver: getEnv("DB_DRIVER", "sqlite"),
			DSN:    getEnv("DB_DSN", "./data/hazard-risk.db"),
		},
		Advisor: AdvisorConfig{
			Enabled: getEnvBool("ADVISOR_ENABLED", true),
			BaseURL: getEnv("ADVISOR_BASE_URL", "https://openrouter.ai/api/v1"),
			APIKey:  getEnv("ADVISOR_API_KEY", ""),
			Model:   getEnv("ADVISOR_MODEL", "deepseek/deepseek-chat-v3-0324:free"),
			Timeout: getEnvDuration("ADVISOR_TIMEOUT", 30*time.Second),
		},
		Assess: AssessConfig{
			QuakeHours:      getEnvInt("ASSESS_QUAKE_HOURS", 24),
			QuakeRadiusKm:   getEnvFloat("ASSESS_QUAKE_RADIUS_KM", 100),
			WeatherHours:    getEnvInt("ASSESS_WEATHER_HOURS", 3),
			WeatherRadiusKm: getEnvFloat("ASSESS_WEATHER_RADIUS_KM", 100),
		},
		Collector: CollectorConfig{
			PollInterval: getEnvDuration("COLLECTOR_POLL_INTERVAL", 10*time.Minute),
			Stations:     getEnv("COLLECTOR_STATIONS", ""),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	validDrivers := map[string]bool{"sqlite": true, "postgres": true, "postgresql": true}
	if !validDrivers[c.DB.Driver] {
		return fmt.Errorf("invalid database driver: %s", c.DB.Driver)
	}

	if c.Assess.QuakeRadiusKm <= 0 || c.Assess.WeatherRadiusKm <= 0 {
		return fmt.Errorf("assessment radii must be positive")
	}

	if c.Collector.PollInterval < time.Minute {
		return fmt.Errorf("collector poll interval must be at least 1 minute")
	}

	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}
