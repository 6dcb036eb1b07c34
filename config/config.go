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

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Source    SourceConfig    `mapstructure:"source"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Matching  MatchingConfig  `mapstructure:"matching"`
	Store     StoreConfig     `mapstructure:"store"`
	Cache     CacheConfig     `mapstructure:"cache"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string        `mapstructure:"port"`
	Environment    string        `mapstructure:"environment"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	ScanTimeout    time.Duration `mapstructure:"scan_timeout"`
}

// SourceConfig holds upstream catalog API configuration
type SourceConfig struct {
	BaseURL         string        `mapstructure:"base_url"` // may contain {scope}
	AccessToken     string        `mapstructure:"access_token"`
	PageSize        int           `mapstructure:"page_size"`
	MaxItems        int           `mapstructure:"max_items"`
	ThrottleBackoff time.Duration `mapstructure:"throttle_backoff"`
	PageDelay       time.Duration `mapstructure:"page_delay"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	Debug           bool          `mapstructure:"debug"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP         int           `mapstructure:"per_ip"` // requests per minute
	SourcePermits int           `mapstructure:"source_permits"`
	SourceWindow  time.Duration `mapstructure:"source_window"`
}

// MatchingConfig holds duplicate matching configuration
type MatchingConfig struct {
	TitleThreshold float64 `mapstructure:"title_threshold"`
	Debug          bool    `mapstructure:"debug"`
}

// StoreConfig holds persistence configuration
type StoreConfig struct {
	Type        string `mapstructure:"type"` // "sqlite" or "postgres"
	SQLitePath  string `mapstructure:"sqlite_path"`
	PostgresDSN string `mapstructure:"postgres_dsn"`
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// Load loads configuration from a .env file, environment variables and
// config files
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/dupelens/")

	// Environment variable settings: DUPELENS_SOURCE_ACCESS_TOKEN -> source.access_token
	v.SetEnvPrefix("DUPELENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set default values
	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; using environment variables and defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// loadEnvFile loads .env from the working directory. A missing file is not
// an error and variables already set in the environment win.
func loadEnvFile() error {
	err := godotenv.Load()
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:*"})
	v.SetDefault("server.scan_timeout", "10m")

	// Source defaults
	v.SetDefault("source.base_url", "https://{scope}.myshopify.com/admin/api/2024-01/graphql.json")
	v.SetDefault("source.access_token", "")
	v.SetDefault("source.page_size", 250)
	v.SetDefault("source.max_items", 5000)
	v.SetDefault("source.throttle_backoff", "2s")
	v.SetDefault("source.page_delay", "100ms")
	v.SetDefault("source.request_timeout", "30s")
	v.SetDefault("source.debug", false)

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 60)
	v.SetDefault("ratelimit.source_permits", 30)
	v.SetDefault("ratelimit.source_window", "1s")

	// Matching defaults
	v.SetDefault("matching.title_threshold", 0.85)
	v.SetDefault("matching.debug", false)

	// Store defaults
	v.SetDefault("store.type", "sqlite")
	v.SetDefault("store.sqlite_path", "dupelens.db")
	v.SetDefault("store.postgres_dsn", "")

	// Cache defaults
	v.SetDefault("cache.ttl", "24h")
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Source.AccessToken == "" {
		return fmt.Errorf("catalog access token is required (set DUPELENS_SOURCE_ACCESS_TOKEN)")
	}

	if config.Source.BaseURL == "" {
		return fmt.Errorf("catalog base URL is required (set DUPELENS_SOURCE_BASE_URL)")
	}

	if config.Store.Type != "sqlite" && config.Store.Type != "postgres" {
		return fmt.Errorf("store type must be 'sqlite' or 'postgres', got: %s", config.Store.Type)
	}

	if config.Store.Type == "sqlite" && config.Store.SQLitePath == "" {
		return fmt.Errorf("SQLite path is required when store type is 'sqlite'")
	}

	if config.Store.Type == "postgres" && config.Store.PostgresDSN == "" {
		return fmt.Errorf("Postgres DSN is required when store type is 'postgres'")
	}

	if config.Matching.TitleThreshold <= 0 || config.Matching.TitleThreshold > 1 {
		return fmt.Errorf("title threshold must be in (0, 1], got: %v", config.Matching.TitleThreshold)
	}

	if config.RateLimit.SourcePermits <= 0 || config.RateLimit.SourceWindow <= 0 {
		return fmt.Errorf("source rate limit needs positive permits and window, got: %d per %s",
			config.RateLimit.SourcePermits, config.RateLimit.SourceWindow)
	}

	if config.Source.MaxItems <= 0 {
		return fmt.Errorf("max items must be positive, got: %d", config.Source.MaxItems)
	}

	return nil
}
