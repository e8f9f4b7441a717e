package config

import (
	"os"

	"gothresh/domain/de"
	"gothresh/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Input    InputConfig
}

// DatabaseConfig holds optional database connection settings
type DatabaseConfig struct {
	URL string // empty disables run persistence
}

// ServerConfig holds API server settings
type ServerConfig struct {
	Port string
}

// InputConfig holds DE-table input settings
type InputConfig struct {
	Path    string
	Columns de.Columns
	Goal    string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
		},
		Input: InputConfig{
			Path: os.Getenv("INPUT_FILE"),
			Columns: de.Columns{
				GeneID:     getEnv("GENE_ID_COLUMN", de.DefaultColumns().GeneID),
				EffectSize: getEnv("EFFECT_SIZE_COLUMN", de.DefaultColumns().EffectSize),
				PValue:     getEnv("PVALUE_COLUMN", de.DefaultColumns().PValue),
			},
			Goal: getEnv("ANALYSIS_GOAL", "balanced"),
		},
	}
	if cfg.Server.Port == "" {
		return nil, errors.ConfigInvalid("PORT cannot be empty")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
