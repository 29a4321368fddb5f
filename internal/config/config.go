// Package config handles application configuration and environment loading.
package config

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// Config holds the configuration for the workload replay binary.
type Config struct {
	Driver       string  // database driver: "sqlite3" (default) or "mysql"
	DSN          string  // driver DSN (default ":memory:" for sqlite3)
	WorkloadPath string  // path to the YAML workload file
	Bucket       string  // initial bucket label for each recorder
	Passthrough  bool    // forward events to a statement-logging tracer
	ReplayRate   float64 // statements per second, 0 = unpaced
	Sessions     int     // number of independent replay sessions (default 1)
	LogLevel     string  // log level: debug, info, warn, error (default "info")
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	switch c.Driver {
	case "sqlite3", "mysql":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q (want sqlite3 or mysql)", c.Driver)
	}
	if c.WorkloadPath == "" {
		return fmt.Errorf("WORKLOAD_PATH is required")
	}
	if c.ReplayRate < 0 {
		return fmt.Errorf("REPLAY_RATE must not be negative")
	}
	if c.Sessions < 1 {
		return fmt.Errorf("REPLAY_SESSIONS must be at least 1")
	}
	return nil
}

// LoadFromEnv loads configuration from environment variables and applies
// defaults. It does not validate; callers run Validate after layering any
// flag overrides on top.
func LoadFromEnv() *Config {
	cfg := &Config{
		Driver:       os.Getenv("DB_DRIVER"),
		DSN:          os.Getenv("DB_DSN"),
		WorkloadPath: os.Getenv("WORKLOAD_PATH"),
		Bucket:       os.Getenv("QUERYLOG_BUCKET"),
		Passthrough:  parseBoolEnvDefault("QUERYLOG_PASSTHROUGH", false),
		LogLevel:     os.Getenv("LOG_LEVEL"),
	}

	if v := os.Getenv("REPLAY_RATE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.ReplayRate = f
		}
	}
	if v := os.Getenv("REPLAY_SESSIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Sessions = n
		}
	}

	// Defaults
	if cfg.Driver == "" {
		cfg.Driver = "sqlite3"
	}
	if cfg.DSN == "" && cfg.Driver == "sqlite3" {
		cfg.DSN = ":memory:"
	}
	if cfg.Bucket == "" {
		cfg.Bucket = "default"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Sessions == 0 {
		cfg.Sessions = 1
	}

	return cfg
}

func parseBoolEnvDefault(key string, defaultVal bool) bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	if v == "" {
		return defaultVal
	}
	if v == "0" || v == "false" || v == "no" || v == "off" {
		return false
	}
	if v == "1" || v == "true" || v == "yes" || v == "on" {
		return true
	}
	return defaultVal
}

// LoadDotEnv reads a .env file and sets any variables not already in the
// environment. Lines must be in KEY=VALUE format. Comments (#) and blank
// lines are skipped.
func LoadDotEnv(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // .env not found is not an error
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = stripQuotes(strings.TrimSpace(value))
		// Env vars already set take precedence over the file.
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("setenv %s: %w", key, err)
			}
		}
	}
	return scanner.Err()
}

// stripQuotes removes surrounding double or single quotes from a value.
func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
