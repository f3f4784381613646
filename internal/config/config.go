// Package config loads runtime configuration from an optional YAML file
// with environment variable overrides. Environment always wins so container
// deployments can ignore the file entirely.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	yaml "gopkg.in/yaml.v3"
)

// Config carries every tunable of the service.
type Config struct {
	Server     Server   `yaml:"server"`
	Database   Database `yaml:"database"`
	Redis      Redis    `yaml:"redis"`
	Directions Provider `yaml:"directions"`
	Weather    Provider `yaml:"weather"`
	Audit      Audit    `yaml:"audit"`
	Log        Log      `yaml:"log"`
}

type Server struct {
	Port string `yaml:"port"`
}

type Database struct {
	URL           string `yaml:"url"`
	Migrate       bool   `yaml:"migrate"`
	MigrationsDir string `yaml:"migrationsDir"`
}

type Redis struct {
	URL string `yaml:"url"`
}

// Provider configures one external HTTP collaborator. A blank BaseURL
// disables the provider and the engine falls back to local estimates.
type Provider struct {
	BaseURL        string  `yaml:"baseUrl"`
	APIKey         string  `yaml:"apiKey"`
	TimeoutSeconds int     `yaml:"timeoutSeconds"`
	RPS            float64 `yaml:"rps"`
}

// Audit configures the outbound audit sink. A blank SinkURL disables
// delivery; events are still enqueued so a sink can be attached later.
type Audit struct {
	SinkURL     string `yaml:"sinkUrl"`
	Secret      string `yaml:"secret"`
	MaxAttempts int    `yaml:"maxAttempts"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or text
}

// Default returns the configuration used when neither file nor environment
// say otherwise.
func Default() Config {
	return Config{
		Server:     Server{Port: "8080"},
		Database:   Database{Migrate: true, MigrationsDir: "db/migrations"},
		Directions: Provider{TimeoutSeconds: 10, RPS: 5},
		Weather:    Provider{TimeoutSeconds: 10, RPS: 5},
		Audit:      Audit{MaxAttempts: 10},
		Log:        Log{Level: "info", Format: "json"},
	}
}

// Load builds the effective configuration: defaults, then the YAML file at
// path (skipped silently when path is empty or the file is absent), then
// environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse %s: %w", path, err)
			}
		case os.IsNotExist(err):
			// optional file
		default:
			return Config{}, fmt.Errorf("read %s: %w", path, err)
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	envStr("PORT", &cfg.Server.Port)
	envStr("DATABASE_URL", &cfg.Database.URL)
	envBool("DB_MIGRATE", &cfg.Database.Migrate)
	envStr("DB_MIGRATIONS_DIR", &cfg.Database.MigrationsDir)
	envStr("REDIS_URL", &cfg.Redis.URL)
	envStr("DIRECTIONS_API_URL", &cfg.Directions.BaseURL)
	envStr("DIRECTIONS_API_KEY", &cfg.Directions.APIKey)
	envInt("DIRECTIONS_TIMEOUT_SECONDS", &cfg.Directions.TimeoutSeconds)
	envFloat("DIRECTIONS_RPS", &cfg.Directions.RPS)
	envStr("WEATHER_API_URL", &cfg.Weather.BaseURL)
	envStr("WEATHER_API_KEY", &cfg.Weather.APIKey)
	envInt("WEATHER_TIMEOUT_SECONDS", &cfg.Weather.TimeoutSeconds)
	envFloat("WEATHER_RPS", &cfg.Weather.RPS)
	envStr("AUDIT_SINK_URL", &cfg.Audit.SinkURL)
	envStr("AUDIT_SIGNING_SECRET", &cfg.Audit.Secret)
	envInt("AUDIT_MAX_ATTEMPTS", &cfg.Audit.MaxAttempts)
	envStr("LOG_LEVEL", &cfg.Log.Level)
	envStr("LOG_FORMAT", &cfg.Log.Format)
}

func envStr(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envFloat(key string, dst *float64) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func envBool(key string, dst *bool) {
	if v := os.Getenv(key); v != "" {
		*dst = !strings.EqualFold(v, "false") && v != "0"
	}
}
