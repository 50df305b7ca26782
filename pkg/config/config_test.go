package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Database.MaxBackups != 7 {
		t.Errorf("Expected MaxBackups=7, got %d", cfg.Database.MaxBackups)
	}
	if cfg.Database.BackupInterval != 24*time.Hour {
		t.Errorf("Expected BackupInterval=24h, got %v", cfg.Database.BackupInterval)
	}
	if !cfg.Database.AutoMigrate {
		t.Error("Expected AutoMigrate=true")
	}

	if cfg.RestAPI.Enabled {
		t.Error("Expected RestAPI.Enabled=false by default")
	}
	if cfg.RestAPI.Port != 8420 {
		t.Errorf("Expected Port=8420, got %d", cfg.RestAPI.Port)
	}
	if cfg.RestAPI.Host != "localhost" {
		t.Errorf("Expected Host=localhost, got %s", cfg.RestAPI.Host)
	}
	if !cfg.RestAPI.CORS {
		t.Error("Expected CORS=true")
	}

	if cfg.Enricher.EmbeddingDim != 128 {
		t.Errorf("Expected EmbeddingDim=128, got %d", cfg.Enricher.EmbeddingDim)
	}
	if cfg.Enricher.TimeoutMS != 10000 {
		t.Errorf("Expected TimeoutMS=10000, got %d", cfg.Enricher.TimeoutMS)
	}

	if cfg.Search.DefaultListLimit != 50 {
		t.Errorf("Expected DefaultListLimit=50, got %d", cfg.Search.DefaultListLimit)
	}
	sum := cfg.Search.HybridKeywordWeight + cfg.Search.HybridConceptWeight + cfg.Search.HybridEmbeddingWeight
	if sum < 0.99 || sum > 1.01 {
		t.Errorf("Expected hybrid weights to sum to 1.0, got %f", sum)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		modify    func(*Config)
		expectErr bool
	}{
		{
			name:      "valid config",
			modify:    func(c *Config) {},
			expectErr: false,
		},
		{
			name: "empty database path",
			modify: func(c *Config) {
				c.Database.Path = ""
			},
			expectErr: true,
		},
		{
			name: "negative max backups",
			modify: func(c *Config) {
				c.Database.MaxBackups = -1
			},
			expectErr: true,
		},
		{
			name: "invalid port",
			modify: func(c *Config) {
				c.RestAPI.Enabled = true
				c.RestAPI.Port = 99999
			},
			expectErr: true,
		},
		{
			name: "invalid logging level",
			modify: func(c *Config) {
				c.Logging.Level = "invalid"
			},
			expectErr: true,
		},
		{
			name: "zero enricher timeout",
			modify: func(c *Config) {
				c.Enricher.TimeoutMS = 0
			},
			expectErr: true,
		},
		{
			name: "embedding dim not 128",
			modify: func(c *Config) {
				c.Enricher.EmbeddingDim = 64
			},
			expectErr: true,
		},
		{
			name: "hybrid weights don't sum to 1.0",
			modify: func(c *Config) {
				c.Search.HybridKeywordWeight = 0.9
			},
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.expectErr && err == nil {
				t.Error("Expected error, got nil")
			}
			if !tt.expectErr && err != nil {
				t.Errorf("Expected no error, got: %v", err)
			}
		})
	}
}

func TestLoadConfig_NoFile(t *testing.T) {
	tmpDir := t.TempDir()
	oldWd, _ := os.Getwd()
	defer os.Chdir(oldWd) //nolint:errcheck
	_ = os.Chdir(tmpDir)

	oldHome := os.Getenv("HOME")
	os.Setenv("HOME", tmpDir)
	defer os.Setenv("HOME", oldHome)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected no error with missing config, got: %v", err)
	}

	if cfg == nil {
		t.Fatal("Expected config, got nil")
	}

	if cfg.RestAPI.Port != 8420 {
		t.Errorf("Expected default port 8420, got %d", cfg.RestAPI.Port)
	}
}

func TestLoadConfig_WithFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
profile: test
database:
  path: /tmp/test.db
  backup_interval: 12h
  max_backups: 3
  auto_migrate: false
rest_api:
  enabled: true
  port: 4000
  host: 127.0.0.1
  cors: false
logging:
  level: debug
  format: json
enricher:
  timeout_ms: 5000
  queue_depth: 8
  embedding_dim: 128
search:
  default_list_limit: 25
  max_list_limit: 100
  embedding_candidate_ceiling: 200
  hybrid_keyword_weight: 0.4
  hybrid_concept_weight: 0.2
  hybrid_embedding_weight: 0.4
`

	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	oldWd, _ := os.Getwd()
	defer os.Chdir(oldWd) //nolint:errcheck
	_ = os.Chdir(tmpDir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Profile != "test" {
		t.Errorf("Expected profile=test, got %s", cfg.Profile)
	}
	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("Expected database path=/tmp/test.db, got %s", cfg.Database.Path)
	}
	if cfg.Database.MaxBackups != 3 {
		t.Errorf("Expected max_backups=3, got %d", cfg.Database.MaxBackups)
	}
	if cfg.RestAPI.Port != 4000 {
		t.Errorf("Expected port=4000, got %d", cfg.RestAPI.Port)
	}
	if cfg.RestAPI.CORS {
		t.Error("Expected CORS=false, got true")
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Expected level=debug, got %s", cfg.Logging.Level)
	}
	if cfg.Enricher.TimeoutMS != 5000 {
		t.Errorf("Expected enricher timeout_ms=5000, got %d", cfg.Enricher.TimeoutMS)
	}
}

func TestEnsureConfigDir(t *testing.T) {
	tmpDir := t.TempDir()
	cfg := &Config{
		Database: DatabaseConfig{
			Path: filepath.Join(tmpDir, "subdir", "test.db"),
		},
	}

	if err := cfg.EnsureConfigDir(); err != nil {
		t.Fatalf("EnsureConfigDir failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(tmpDir, "subdir")); os.IsNotExist(err) {
		t.Error("Config directory was not created")
	}
}

func TestConfigPath(t *testing.T) {
	path := ConfigPath()
	if path == "" {
		t.Error("ConfigPath returned empty string")
	}

	homeDir, _ := os.UserHomeDir()
	expected := filepath.Join(homeDir, ".shirokuma")
	if path != expected {
		t.Errorf("Expected %s, got %s", expected, path)
	}
}

func TestDatabasePath(t *testing.T) {
	path := DatabasePath()
	if path == "" {
		t.Error("DatabasePath returned empty string")
	}

	if filepath.Base(path) != "shirokuma.db" {
		t.Errorf("Expected database file named shirokuma.db, got %s", filepath.Base(path))
	}
}
