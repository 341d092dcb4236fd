package config

import (
	"os"
	"strconv"

	"github.com/GrimCyberMed/MedResearch-AI-sub006/domain/synthesis"
	"github.com/GrimCyberMed/MedResearch-AI-sub006/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Paths    PathConfig
	Engine   EngineConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL     string
	Host    string
	Port    int
	User    string
	Name    string
	SSLMode string
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port    string
	GinMode string
}

// PathConfig holds file system paths
type PathConfig struct {
	StudyFile string // Excel/CSV study extraction file
	ReportDir string
}

// EngineConfig holds analysis engine overrides
type EngineConfig struct {
	ConfidenceLevel      float64
	AutoModelI2Threshold float64
	RankingDraws         int
	RankingWorkers       int
	RankingSeed          int64
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Database: loadDatabaseConfig(),
		Server:   loadServerConfig(),
		Paths:    loadPathConfig(),
		Engine:   loadEngineConfig(),
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

// AnalysisConfig maps the engine overrides onto the engine's own defaults
func (c *Config) AnalysisConfig() synthesis.AnalysisConfig {
	cfg := synthesis.DefaultAnalysisConfig()
	if c.Engine.ConfidenceLevel > 0 {
		cfg.ConfidenceLevel = c.Engine.ConfidenceLevel
	}
	if c.Engine.AutoModelI2Threshold > 0 {
		cfg.AutoModelI2Threshold = c.Engine.AutoModelI2Threshold
	}
	if c.Engine.RankingDraws > 0 {
		cfg.RankingDraws = c.Engine.RankingDraws
	}
	if c.Engine.RankingWorkers > 0 {
		cfg.RankingWorkers = c.Engine.RankingWorkers
	}
	return cfg
}

func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		URL:     getEnvOrDefault("DATABASE_URL", ""),
		Host:    getEnvOrDefault("DB_HOST", "localhost"),
		Port:    getEnvIntOrDefault("DB_PORT", 5432),
		User:    getEnvOrDefault("DB_USER", ""),
		Name:    getEnvOrDefault("DB_NAME", ""),
		SSLMode: getEnvOrDefault("SSL_MODE", "disable"),
	}
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Port:    getEnvOrDefault("PORT", "8080"),
		GinMode: getEnvOrDefault("GIN_MODE", "release"),
	}
}

func loadPathConfig() PathConfig {
	return PathConfig{
		StudyFile: getEnvOrDefault("STUDY_FILE", ""),
		ReportDir: getEnvOrDefault("REPORT_DIR", "./reports"),
	}
}

func loadEngineConfig() EngineConfig {
	return EngineConfig{
		ConfidenceLevel:      getEnvFloatOrDefault("CONFIDENCE_LEVEL", 0),
		AutoModelI2Threshold: getEnvFloatOrDefault("AUTO_MODEL_I2_THRESHOLD", 0),
		RankingDraws:         getEnvIntOrDefault("RANKING_DRAWS", 0),
		RankingWorkers:       getEnvIntOrDefault("RANKING_WORKERS", 0),
		RankingSeed:          int64(getEnvIntOrDefault("RANKING_SEED", 42)),
	}
}

func validateConfig(config *Config) error {
	if config.Server.Port == "" {
		return errors.ConfigInvalid("server port is required")
	}
	if config.Engine.ConfidenceLevel != 0 &&
		(config.Engine.ConfidenceLevel <= 0.5 || config.Engine.ConfidenceLevel >= 1) {
		return errors.ConfigInvalid("CONFIDENCE_LEVEL must be in (0.5, 1)")
	}
	if config.Engine.RankingDraws < 0 {
		return errors.ConfigInvalid("RANKING_DRAWS must be non-negative")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
