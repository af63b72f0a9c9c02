// Package config loads runtime settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Mode selects debug or release behavior for logging and gorm.
type Mode string

const (
	ModeDebug   Mode = "debug"
	ModeRelease Mode = "release"
)

// Storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
	DriverMemory   = "memory"
)

// Config holds every runtime setting, read from the environment.
type Config struct {
	Host     string `default:"127.0.0.1"`
	Port     string `default:"8080"`
	Mode     Mode   `default:"debug"`
	Storage  Storage
	Postgres Postgres
	Redis    Redis
	Log      Log
	Auth     Auth
	Identity Identity
}

// Storage picks the persistence driver and the key the snapshot lives under.
type Storage struct {
	Driver     string `default:"sqlite"`
	SQLitePath string `envconfig:"SQLITE_PATH" default:"signup.db"`
	Key        string `default:"signup_snapshot"`
}

// Postgres holds connection settings for the postgres driver.
type Postgres struct {
	Host     string `default:"localhost"`
	Port     string `default:"5432"`
	User     string `default:"postgres"`
	Password string `default:"postgres"`
	DBName   string `split_words:"true" default:"activitysignup"`
	SSLMode  string `split_words:"true" default:"disable"`
	MaxConns int32  `split_words:"true" default:"10"`
}

// Redis holds connection settings for the redis driver.
type Redis struct {
	Addr     string `default:"localhost:6379"`
	Password string
	DB       int `default:"0"`
}

// Log configures the log level and the rotating file used in release mode.
type Log struct {
	FilePath   string `split_words:"true"`               // log file path, release mode only
	Level      string `default:"info"`                   // debug, info, warn, error
	MaxSize    int    `split_words:"true" default:"100"` // megabytes
	MaxBackups int    `split_words:"true" default:"3"`
	MaxAge     int    `split_words:"true" default:"28"` // days
	Compress   bool   `default:"false"`
}

// Auth configures session token signing.
type Auth struct {
	Secret   string        `default:"change-me"`
	TokenTTL time.Duration `split_words:"true" default:"24h"`
}

// Identity configures which credentials may log in.
type Identity struct {
	// EmailDomain restricts participant logins; empty allows any domain.
	EmailDomain string `split_words:"true" default:"gmail.com"`
}

// DSN builds a libpq-compatible connection string.
func (c Postgres) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// Addr returns the HTTP listen address.
func (c Config) Addr() string {
	return c.Host + ":" + c.Port
}

// Load reads an optional .env file and then the process environment.
func Load(envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("process env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c Config) Validate() error {
	switch c.Mode {
	case ModeDebug, ModeRelease:
	default:
		return fmt.Errorf("unknown mode %q", c.Mode)
	}
	switch c.Storage.Driver {
	case DriverSQLite, DriverPostgres, DriverRedis, DriverMemory:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Auth.Secret == "" {
		return errors.New("auth secret is required")
	}
	if c.Auth.TokenTTL <= 0 {
		return errors.New("auth token ttl must be positive")
	}
	return nil
}
