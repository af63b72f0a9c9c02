package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8080" || cfg.Mode != ModeDebug {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Storage.Driver != DriverSQLite || cfg.Storage.SQLitePath != "signup.db" {
		t.Fatalf("unexpected storage defaults: %+v", cfg.Storage)
	}
	if cfg.Auth.TokenTTL != 24*time.Hour {
		t.Fatalf("unexpected token ttl %s", cfg.Auth.TokenTTL)
	}
	if cfg.Identity.EmailDomain != "gmail.com" {
		t.Fatalf("unexpected email domain %q", cfg.Identity.EmailDomain)
	}
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("STORAGE_DRIVER", "postgres")
	t.Setenv("POSTGRES_DB_NAME", "signups")
	t.Setenv("POSTGRES_SSL_MODE", "require")
	t.Setenv("AUTH_TOKEN_TTL", "90m")
	t.Setenv("LOG_MAX_BACKUPS", "7")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "9090" || cfg.Storage.Driver != DriverPostgres {
		t.Fatalf("env not applied: %+v", cfg)
	}
	if cfg.Postgres.DBName != "signups" || cfg.Postgres.SSLMode != "require" {
		t.Fatalf("postgres env not applied: %+v", cfg.Postgres)
	}
	if cfg.Postgres.Port != "5432" {
		t.Fatalf("postgres port picked up http port: %s", cfg.Postgres.Port)
	}
	if cfg.Auth.TokenTTL != 90*time.Minute || cfg.Log.MaxBackups != 7 {
		t.Fatalf("unexpected values: %+v %+v", cfg.Auth, cfg.Log)
	}
	want := "host=localhost port=5432 user=postgres password=postgres dbname=signups sslmode=require"
	if cfg.Postgres.DSN() != want {
		t.Fatalf("DSN = %q", cfg.Postgres.DSN())
	}
}

func TestLoad_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("STORAGE_DRIVER=memory\nIDENTITY_EMAIL_DOMAIN=\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		os.Unsetenv("STORAGE_DRIVER")
		os.Unsetenv("IDENTITY_EMAIL_DOMAIN")
	})

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Storage.Driver != DriverMemory {
		t.Fatalf("env file not applied: %+v", cfg.Storage)
	}
}

func TestValidate(t *testing.T) {
	base := Config{
		Mode:    ModeDebug,
		Storage: Storage{Driver: DriverMemory},
		Auth:    Auth{Secret: "s", TokenTTL: time.Hour},
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"mode", func(c *Config) { c.Mode = "staging" }},
		{"driver", func(c *Config) { c.Storage.Driver = "mongo" }},
		{"secret", func(c *Config) { c.Auth.Secret = "" }},
		{"ttl", func(c *Config) { c.Auth.TokenTTL = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base
			tt.mutate(&c)
			if err := c.Validate(); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}
