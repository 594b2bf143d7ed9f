// Package config loads server settings from the environment.
//
// A .env file in the working directory is read first if present; real
// environment variables always win over it.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage drivers.
const (
	DriverJSON   = "json"
	DriverSQLite = "sqlite"
)

// Bcrypt cost bounds; bcrypt itself refuses anything above 31.
const (
	MinBcryptCost = 10
	MaxBcryptCost = 31
)

// Config holds server configuration.
type Config struct {
	Port           int
	JWTSecret      string
	StorageDriver  string
	DataDir        string
	DBPath         string
	BcryptCost     int
	SweepInterval  time.Duration
	AllowedOrigins []string
	LogLevel       slog.Level

	BootstrapUsername string
	BootstrapPassword string
}

// Default returns the configuration used when no variable is set.
// JWTSecret has no default.
func Default() Config {
	return Config{
		Port:              8080,
		StorageDriver:     DriverJSON,
		DataDir:           "data",
		DBPath:            "data/notekeeper.db",
		BcryptCost:        MinBcryptCost,
		SweepInterval:     time.Hour,
		AllowedOrigins:    []string{"*"},
		LogLevel:          slog.LevelInfo,
		BootstrapUsername: "admin",
		BootstrapPassword: "admin",
	}
}

// Load reads the environment (and .env, if any) on top of Default.
// Malformed values are errors; a missing secret is only caught by Validate.
func Load() (Config, error) {
	// A missing .env is the normal case in production.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("config: reading .env: %w", err)
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from an arbitrary variable source.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()
	var errs []error

	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	if v, ok := get("PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("PORT: %q is not a number", v))
		} else {
			cfg.Port = port
		}
	}
	if v, ok := get("JWT_SECRET"); ok {
		cfg.JWTSecret = v
	}
	if v, ok := get("STORAGE_DRIVER"); ok {
		cfg.StorageDriver = strings.ToLower(v)
	}
	if v, ok := get("DATA_DIR"); ok {
		cfg.DataDir = v
	}
	if v, ok := get("DB_PATH"); ok {
		cfg.DBPath = v
	}
	if v, ok := get("BCRYPT_COST"); ok {
		cost, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("BCRYPT_COST: %q is not a number", v))
		} else {
			cfg.BcryptCost = cost
		}
	}
	if v, ok := get("SWEEP_INTERVAL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("SWEEP_INTERVAL: %w", err))
		} else {
			cfg.SweepInterval = d
		}
	}
	if v, ok := get("CORS_ALLOWED_ORIGINS"); ok {
		cfg.AllowedOrigins = splitList(v)
	}
	if v, ok := get("LOG_LEVEL"); ok {
		if err := cfg.LogLevel.UnmarshalText([]byte(v)); err != nil {
			errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
		}
	}
	if v, ok := get("BOOTSTRAP_USERNAME"); ok {
		cfg.BootstrapUsername = v
	}
	if v, ok := get("BOOTSTRAP_PASSWORD"); ok {
		cfg.BootstrapPassword = v
	}

	if len(errs) > 0 {
		return Config{}, fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return cfg, nil
}

// Validate reports every problem that should stop the server from starting.
func (c Config) Validate() error {
	var errs []error

	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	} else if len(c.JWTSecret) < 16 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 16 characters"))
	}
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT %d is out of range", c.Port))
	}
	if c.BcryptCost < MinBcryptCost || c.BcryptCost > MaxBcryptCost {
		errs = append(errs, fmt.Errorf("BCRYPT_COST must be between %d and %d, got %d", MinBcryptCost, MaxBcryptCost, c.BcryptCost))
	}
	switch c.StorageDriver {
	case DriverJSON:
		if c.DataDir == "" {
			errs = append(errs, errors.New("DATA_DIR must not be empty"))
		}
	case DriverSQLite:
		if c.DBPath == "" {
			errs = append(errs, errors.New("DB_PATH must not be empty"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORAGE_DRIVER %q is not one of %s, %s", c.StorageDriver, DriverJSON, DriverSQLite))
	}
	if c.SweepInterval <= 0 {
		errs = append(errs, errors.New("SWEEP_INTERVAL must be positive"))
	}
	if c.BootstrapUsername == "" || c.BootstrapPassword == "" {
		errs = append(errs, errors.New("BOOTSTRAP_USERNAME and BOOTSTRAP_PASSWORD must not be empty"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
