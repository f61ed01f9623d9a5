// Package config handles application configuration loading from environment
// variables, an optional .env file and an optional config file. It provides
// a centralized Config struct used across the application.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration values.
type Config struct {
	// Server settings
	Host string
	Port string
	Env  string // "development", "production", "testing"

	// PostgreSQL connection
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Valkey (Redis-compatible cache and session store)
	ValkeyHost     string
	ValkeyPort     string
	ValkeyPassword string
	ValkeyDB       int

	// Logging
	LogFormat string // "text" or "json"
	LogLevel  string // "debug", "info", "warn", "error"

	// Prompt workflow
	ListCacheTTL     time.Duration
	SlugMaxProbes    int
	AnonymousPublish bool

	// Sessions
	SessionTTL    time.Duration
	SecureCookies bool

	// Login throttling, per client IP. LoginLimiter is "valkey" (shared by
	// every replica) or "memory" (this process only).
	LoginLimiter     string
	LoginMaxAttempts int
	LoginWindow      time.Duration

	// Initial admin account created by the seed command
	AdminEmail    string
	AdminUsername string
	AdminPassword string

	// CORSOrigins lists origins allowed to call the API from a browser.
	// Empty disables CORS headers.
	CORSOrigins []string
}

const insecureDefault = "changeme"

var defaults = map[string]any{
	"app_host": "0.0.0.0",
	"app_port": "8080",
	"app_env":  "development",

	"postgres_host":     "localhost",
	"postgres_port":     "5432",
	"postgres_user":     "promptui",
	"postgres_password": insecureDefault,
	"postgres_db":       "promptui",

	"valkey_host":     "localhost",
	"valkey_port":     "6379",
	"valkey_password": "",
	"valkey_db":       0,

	"log_format": "text",
	"log_level":  "info",

	"list_cache_ttl":    "60s",
	"slug_max_probes":   1000,
	"anonymous_publish": true,

	"session_ttl":    "24h",
	"secure_cookies": false,

	"login_limiter":      "valkey",
	"login_max_attempts": 10,
	"login_window":       "1m",

	"admin_email":    "admin@promptui.local",
	"admin_username": "admin",
	"admin_password": insecureDefault,

	"cors_origins": "",
}

// LoadDotEnv reads variables from the given .env files (".env" when none
// are named) into the process environment. Variables already set win.
// Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Load reads configuration from environment variables, applying defaults
// for development where appropriate. Returns an error if critical values
// are missing in production mode.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an additional config file (YAML, TOML or JSON)
// whose keys are the lowercase variable names. Environment variables take
// precedence over the file.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	cfg := &Config{
		Host: v.GetString("app_host"),
		Port: v.GetString("app_port"),
		Env:  v.GetString("app_env"),

		DBHost:     v.GetString("postgres_host"),
		DBPort:     v.GetString("postgres_port"),
		DBUser:     v.GetString("postgres_user"),
		DBPassword: v.GetString("postgres_password"),
		DBName:     v.GetString("postgres_db"),

		ValkeyHost:     v.GetString("valkey_host"),
		ValkeyPort:     v.GetString("valkey_port"),
		ValkeyPassword: v.GetString("valkey_password"),
		ValkeyDB:       v.GetInt("valkey_db"),

		LogFormat: strings.ToLower(v.GetString("log_format")),
		LogLevel:  strings.ToLower(v.GetString("log_level")),

		ListCacheTTL:     v.GetDuration("list_cache_ttl"),
		SlugMaxProbes:    v.GetInt("slug_max_probes"),
		AnonymousPublish: v.GetBool("anonymous_publish"),

		SessionTTL:    v.GetDuration("session_ttl"),
		SecureCookies: v.GetBool("secure_cookies"),

		AdminEmail:    v.GetString("admin_email"),
		AdminUsername: v.GetString("admin_username"),
		AdminPassword: v.GetString("admin_password"),

		LoginLimiter:     strings.ToLower(v.GetString("login_limiter")),
		LoginMaxAttempts: v.GetInt("login_max_attempts"),
		LoginWindow:      v.GetDuration("login_window"),

		CORSOrigins: splitList(v.GetString("cors_origins")),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}
	if c.ListCacheTTL <= 0 {
		return fmt.Errorf("LIST_CACHE_TTL must be positive")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	if c.SlugMaxProbes < 1 {
		return fmt.Errorf("SLUG_MAX_PROBES must be at least 1")
	}
	switch c.LoginLimiter {
	case "valkey", "memory":
	default:
		return fmt.Errorf("LOGIN_LIMITER must be valkey or memory, got %q", c.LoginLimiter)
	}
	if c.LoginMaxAttempts < 1 || c.LoginWindow <= 0 {
		return fmt.Errorf("LOGIN_MAX_ATTEMPTS and LOGIN_WINDOW must be positive")
	}

	if c.Env == "production" {
		if c.DBPassword == insecureDefault {
			return fmt.Errorf("POSTGRES_PASSWORD must be set in production")
		}
		if c.AdminPassword == insecureDefault {
			return fmt.Errorf("ADMIN_PASSWORD must be set in production")
		}
	}
	return nil
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName,
	)
}

// Addr returns the server listen address (host:port).
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// IsDev returns true if the application is running in development mode.
func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// splitList splits a comma-separated value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
