package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	Database  DatabaseConfig
	Server    ServerConfig
	Security  SecurityConfig
	CORS      CORSConfig
	Logging   LoggingConfig
	Tracking  TrackingConfig
	Bootstrap BootstrapConfig
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	URL         string
	Host        string
	Port        int
	User        string
	Password    string
	Name        string
	SSLMode     string
	AutoMigrate bool
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
}

// Addr is the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SecurityConfig holds token and rate limit settings.
type SecurityConfig struct {
	JWTSecret      string
	TokenTTL       time.Duration
	ResetTokenTTL  time.Duration
	AuthRatePerMin int
	AuthBurst      int
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, text
}

// TrackingConfig controls the work time tracker.
type TrackingConfig struct {
	// Timezone decides where a tracker day starts and ends.
	Timezone string
	Location *time.Location
	Interval time.Duration
	// CleanupInterval spaces housekeeping passes.
	CleanupInterval time.Duration
}

// BootstrapConfig seeds an administrator on first start.
type BootstrapConfig struct {
	AdminEmail    string
	AdminPassword string
}

// Load reads configuration from the environment, after pulling in
// config/local.env and .env when they exist.
func Load() (*Config, error) {
	_ = godotenv.Load("config/local.env")
	_ = godotenv.Load()

	cfg := &Config{}
	var problems []string

	if err := cfg.loadDatabase(); err != nil {
		problems = append(problems, err.Error())
	}
	if err := cfg.loadServer(); err != nil {
		problems = append(problems, err.Error())
	}
	if err := cfg.loadSecurity(); err != nil {
		problems = append(problems, err.Error())
	}
	cfg.loadCORS()
	cfg.loadLogging()
	if err := cfg.loadTracking(); err != nil {
		problems = append(problems, err.Error())
	}
	cfg.Bootstrap.AdminEmail = strings.TrimSpace(os.Getenv("BOOTSTRAP_ADMIN_EMAIL"))
	cfg.Bootstrap.AdminPassword = os.Getenv("BOOTSTRAP_ADMIN_PASSWORD")

	if len(problems) > 0 {
		return nil, fmt.Errorf("load config:\n  - %s", strings.Join(problems, "\n  - "))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDatabase reads only the database settings, for tools that do not
// serve requests.
func LoadDatabase() (DatabaseConfig, error) {
	_ = godotenv.Load("config/local.env")
	_ = godotenv.Load()

	cfg := &Config{}
	if err := cfg.loadDatabase(); err != nil {
		return DatabaseConfig{}, err
	}
	if cfg.Database.URL == "" {
		return DatabaseConfig{}, fmt.Errorf("DATABASE_URL is required (or DB_HOST, DB_USER, DB_NAME)")
	}
	return cfg.Database, nil
}

func (c *Config) loadDatabase() error {
	c.Database.URL = os.Getenv("DATABASE_URL")
	autoMigrate, err := envBool("DB_AUTO_MIGRATE", true)
	if err != nil {
		return err
	}
	c.Database.AutoMigrate = autoMigrate

	if c.Database.URL != "" {
		return nil
	}

	c.Database.Host = envOrDefault("DB_HOST", "localhost")
	c.Database.User = os.Getenv("DB_USER")
	c.Database.Password = os.Getenv("DB_PASSWORD")
	c.Database.Name = os.Getenv("DB_NAME")
	c.Database.SSLMode = envOrDefault("DB_SSLMODE", "disable")

	port, err := envInt("DB_PORT", 5432)
	if err != nil {
		return err
	}
	c.Database.Port = port

	if c.Database.User != "" && c.Database.Name != "" {
		c.Database.URL = fmt.Sprintf(
			"postgresql://%s:%s@%s:%d/%s?sslmode=%s",
			c.Database.User,
			c.Database.Password,
			c.Database.Host,
			c.Database.Port,
			c.Database.Name,
			c.Database.SSLMode,
		)
	}
	return nil
}

func (c *Config) loadServer() error {
	port, err := envInt("PORT", 8080)
	if err != nil {
		return err
	}
	c.Server.Port = port
	c.Server.Host = envOrDefault("HOST", "0.0.0.0")
	c.Server.ShutdownTimeout, err = envDuration("SHUTDOWN_TIMEOUT", 15*time.Second)
	return err
}

func (c *Config) loadSecurity() error {
	var err error
	c.Security.JWTSecret = os.Getenv("JWT_SECRET")
	if c.Security.TokenTTL, err = envDuration("TOKEN_TTL", 24*time.Hour); err != nil {
		return err
	}
	if c.Security.ResetTokenTTL, err = envDuration("RESET_TOKEN_TTL", time.Hour); err != nil {
		return err
	}
	if c.Security.AuthRatePerMin, err = envInt("AUTH_RATE_PER_MINUTE", 10); err != nil {
		return err
	}
	c.Security.AuthBurst, err = envInt("AUTH_RATE_BURST", 5)
	return err
}

func (c *Config) loadCORS() {
	c.CORS.AllowedOrigins = splitList(envOrDefault("CORS_ALLOWED_ORIGINS", "http://localhost:5173"))
}

func (c *Config) loadLogging() {
	c.Logging.Level = envOrDefault("LOG_LEVEL", "info")
	c.Logging.Format = envOrDefault("LOG_FORMAT", "json")
}

func (c *Config) loadTracking() error {
	c.Tracking.Timezone = envOrDefault("TRACKING_TIMEZONE", "Europe/Moscow")
	loc, err := time.LoadLocation(c.Tracking.Timezone)
	if err != nil {
		return fmt.Errorf("invalid TRACKING_TIMEZONE: %w", err)
	}
	c.Tracking.Location = loc
	if c.Tracking.Interval, err = envDuration("TRACKING_TICK", time.Second); err != nil {
		return err
	}
	c.Tracking.CleanupInterval, err = envDuration("HOUSEKEEPING_INTERVAL", time.Hour)
	return err
}

// Validate checks that required settings are present and sane, reporting
// every problem at once.
func (c *Config) Validate() error {
	var problems []string

	if c.Database.URL == "" {
		problems = append(problems, "DATABASE_URL is required (or DB_HOST, DB_USER, DB_NAME)")
	}
	if len(c.Security.JWTSecret) < 16 {
		problems = append(problems, "JWT_SECRET must be at least 16 characters")
	}
	if c.Security.TokenTTL <= 0 {
		problems = append(problems, "TOKEN_TTL must be positive")
	}
	if c.Security.AuthRatePerMin < 1 || c.Security.AuthBurst < 1 {
		problems = append(problems, "AUTH_RATE_PER_MINUTE and AUTH_RATE_BURST must be positive")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		problems = append(problems, "PORT must be between 1 and 65535")
	}
	if c.Tracking.Interval <= 0 {
		problems = append(problems, "TRACKING_TICK must be positive")
	}
	if c.Tracking.CleanupInterval <= 0 {
		problems = append(problems, "HOUSEKEEPING_INTERVAL must be positive")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		problems = append(problems, "LOG_LEVEL must be one of: debug, info, warn, error")
	}
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		problems = append(problems, "LOG_FORMAT must be one of: json, text")
	}

	if (c.Bootstrap.AdminEmail == "") != (c.Bootstrap.AdminPassword == "") {
		problems = append(problems, "BOOTSTRAP_ADMIN_EMAIL and BOOTSTRAP_ADMIN_PASSWORD must be set together")
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func envBool(key string, fallback bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
