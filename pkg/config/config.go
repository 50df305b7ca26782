package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration.
type Config struct {
	Profile   string          `mapstructure:"profile"`
	Database  DatabaseConfig  `mapstructure:"database"`
	RestAPI   RestAPIConfig   `mapstructure:"rest_api"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Enricher  EnricherConfig  `mapstructure:"enricher"`
	Search    SearchConfig    `mapstructure:"search"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Path           string        `mapstructure:"path"`
	BackupInterval time.Duration `mapstructure:"backup_interval"`
	MaxBackups     int           `mapstructure:"max_backups"`
	AutoMigrate    bool          `mapstructure:"auto_migrate"`
}

// RestAPIConfig holds the optional read-only REST status surface
// configuration. This is not the tool contract — see internal/mcp for that.
type RestAPIConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port"`
	Host    string `mapstructure:"host"`
	CORS    bool   `mapstructure:"cors"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // console, json
}

// EnricherConfig controls the synchronous enrichment step run on every
// create/update.
type EnricherConfig struct {
	TimeoutMS   int `mapstructure:"timeout_ms"`
	QueueDepth  int `mapstructure:"queue_depth"`
	EmbeddingDim int `mapstructure:"embedding_dim"`
}

// SearchConfig controls default/limit behavior for listing and relation
// discovery.
type SearchConfig struct {
	DefaultListLimit          int     `mapstructure:"default_list_limit"`
	MaxListLimit              int     `mapstructure:"max_list_limit"`
	EmbeddingCandidateCeiling int     `mapstructure:"embedding_candidate_ceiling"`
	HybridKeywordWeight       float64 `mapstructure:"hybrid_keyword_weight"`
	HybridConceptWeight       float64 `mapstructure:"hybrid_concept_weight"`
	HybridEmbeddingWeight     float64 `mapstructure:"hybrid_embedding_weight"`
}

// RateLimitConfig holds the rate-limiting switch. Only Enabled is read from
// configuration; the global and per-tool limits come from
// ratelimit.DefaultConfig().
type RateLimitConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// DefaultConfig returns configuration with SHIROKUMA's default values.
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	configDir := filepath.Join(homeDir, ".shirokuma")

	return &Config{
		Profile: "default",
		Database: DatabaseConfig{
			Path:           filepath.Join(configDir, "shirokuma.db"),
			BackupInterval: 24 * time.Hour,
			MaxBackups:     7,
			AutoMigrate:    true,
		},
		RestAPI: RestAPIConfig{
			Enabled: false,
			Port:    8420,
			Host:    "localhost",
			CORS:    true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Enricher: EnricherConfig{
			TimeoutMS:    10000,
			QueueDepth:   64,
			EmbeddingDim: 128,
		},
		Search: SearchConfig{
			DefaultListLimit:          50,
			MaxListLimit:              500,
			EmbeddingCandidateCeiling: 500,
			HybridKeywordWeight:       0.4,
			HybridConceptWeight:       0.2,
			HybridEmbeddingWeight:     0.4,
		},
		RateLimit: RateLimitConfig{
			Enabled: true,
		},
	}
}

// Load loads configuration from YAML file with fallback to defaults.
// Searches in multiple locations:
// 1. ./config.yaml (current directory)
// 2. ~/.shirokuma/config.yaml (user home)
// 3. /etc/shirokuma/config.yaml (system-wide)
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath(".")
	homeDir, _ := os.UserHomeDir()
	v.AddConfigPath(filepath.Join(homeDir, ".shirokuma"))
	v.AddConfigPath("/etc/shirokuma")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// setDefaults sets default values in Viper.
func setDefaults(v *viper.Viper) {
	homeDir, _ := os.UserHomeDir()
	configDir := filepath.Join(homeDir, ".shirokuma")

	v.SetDefault("profile", "default")
	v.SetDefault("database.path", filepath.Join(configDir, "shirokuma.db"))
	v.SetDefault("database.backup_interval", "24h")
	v.SetDefault("database.max_backups", 7)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("rest_api.enabled", false)
	v.SetDefault("rest_api.port", 8420)
	v.SetDefault("rest_api.host", "localhost")
	v.SetDefault("rest_api.cors", true)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("enricher.timeout_ms", 10000)
	v.SetDefault("enricher.queue_depth", 64)
	v.SetDefault("enricher.embedding_dim", 128)

	v.SetDefault("search.default_list_limit", 50)
	v.SetDefault("search.max_list_limit", 500)
	v.SetDefault("search.embedding_candidate_ceiling", 500)
	v.SetDefault("search.hybrid_keyword_weight", 0.4)
	v.SetDefault("search.hybrid_concept_weight", 0.2)
	v.SetDefault("search.hybrid_embedding_weight", 0.4)

	v.SetDefault("rate_limit.enabled", true)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Database.MaxBackups < 0 {
		return fmt.Errorf("database.max_backups must be >= 0")
	}

	if c.RestAPI.Enabled {
		if c.RestAPI.Port < 1 || c.RestAPI.Port > 65535 {
			return fmt.Errorf("rest_api.port must be between 1 and 65535")
		}
		if c.RestAPI.Host == "" {
			return fmt.Errorf("rest_api.host is required when the REST API is enabled")
		}
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}

	validFormats := map[string]bool{"console": true, "json": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: console, json")
	}

	if c.Enricher.TimeoutMS <= 0 {
		return fmt.Errorf("enricher.timeout_ms must be > 0")
	}
	if c.Enricher.QueueDepth <= 0 {
		return fmt.Errorf("enricher.queue_depth must be > 0")
	}
	if c.Enricher.EmbeddingDim != 128 {
		return fmt.Errorf("enricher.embedding_dim must be 128")
	}

	if c.Search.DefaultListLimit <= 0 || c.Search.DefaultListLimit > c.Search.MaxListLimit {
		return fmt.Errorf("search.default_list_limit must be > 0 and <= search.max_list_limit")
	}
	weightSum := c.Search.HybridKeywordWeight + c.Search.HybridConceptWeight + c.Search.HybridEmbeddingWeight
	if weightSum < 0.99 || weightSum > 1.01 {
		return fmt.Errorf("search hybrid weights must sum to 1.0, got %f", weightSum)
	}

	return nil
}

// EnsureConfigDir creates the configuration directory if it doesn't exist.
func (c *Config) EnsureConfigDir() error {
	configDir := filepath.Dir(c.Database.Path)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return nil
}

// ConfigPath returns the path to the configuration directory.
func ConfigPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".shirokuma")
}

// DatabasePath returns the default database path.
func DatabasePath() string {
	return filepath.Join(ConfigPath(), "shirokuma.db")
}
