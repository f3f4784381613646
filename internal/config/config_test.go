package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Server.Port != "8080" {
		t.Fatalf("port: %q", cfg.Server.Port)
	}
	if !cfg.Database.Migrate || cfg.Database.MigrationsDir != "db/migrations" {
		t.Fatalf("database defaults: %+v", cfg.Database)
	}
	if cfg.Audit.MaxAttempts != 10 {
		t.Fatalf("audit attempts: %d", cfg.Audit.MaxAttempts)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "json" {
		t.Fatalf("log defaults: %+v", cfg.Log)
	}
}

func TestLoadMissingFileKeepsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != "8080" {
		t.Fatalf("port: %q", cfg.Server.Port)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
server:
  port: "9090"
redis:
  url: redis://localhost:6379/0
weather:
  baseUrl: https://weather.example.com
  timeoutSeconds: 3
log:
  level: debug
  format: text
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Fatalf("port: %q", cfg.Server.Port)
	}
	if cfg.Redis.URL != "redis://localhost:6379/0" {
		t.Fatalf("redis: %q", cfg.Redis.URL)
	}
	if cfg.Weather.BaseURL != "https://weather.example.com" || cfg.Weather.TimeoutSeconds != 3 {
		t.Fatalf("weather: %+v", cfg.Weather)
	}
	// Untouched sections keep their defaults.
	if cfg.Directions.TimeoutSeconds != 10 {
		t.Fatalf("directions default lost: %+v", cfg.Directions)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "text" {
		t.Fatalf("log: %+v", cfg.Log)
	}
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server: [broken"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: \"9090\"\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("PORT", "7070")
	t.Setenv("DATABASE_URL", "postgres://db.example.com/routes")
	t.Setenv("DB_MIGRATE", "false")
	t.Setenv("AUDIT_MAX_ATTEMPTS", "3")
	t.Setenv("DIRECTIONS_RPS", "2.5")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != "7070" {
		t.Fatalf("env should win over file: %q", cfg.Server.Port)
	}
	if cfg.Database.URL != "postgres://db.example.com/routes" || cfg.Database.Migrate {
		t.Fatalf("database: %+v", cfg.Database)
	}
	if cfg.Audit.MaxAttempts != 3 {
		t.Fatalf("audit attempts: %d", cfg.Audit.MaxAttempts)
	}
	if cfg.Directions.RPS != 2.5 {
		t.Fatalf("rps: %v", cfg.Directions.RPS)
	}
}

func TestEnvBoolParsing(t *testing.T) {
	cases := []struct {
		val  string
		want bool
	}{
		{"true", true},
		{"1", true},
		{"yes", true},
		{"false", false},
		{"FALSE", false},
		{"0", false},
	}
	for _, c := range cases {
		t.Setenv("DB_MIGRATE", c.val)
		cfg, err := Load("")
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if cfg.Database.Migrate != c.want {
			t.Fatalf("DB_MIGRATE=%q: want %v, got %v", c.val, c.want, cfg.Database.Migrate)
		}
	}
}
