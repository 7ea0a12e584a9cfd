package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Observability ObservabilityConfig
	Import        ImportConfig
	Storage       StorageConfig
}

type ServerConfig struct {
	Host               string
	Port               int
	AllowedOrigins     []string
	RateLimitPerSecond int
	RateLimitBurst     int
}

// DatabaseConfig points at the host ledger. Enabled is false when no host is set,
// in which case roster and history must be sent with each request.
type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

type ObservabilityConfig struct {
	MetricsEnabled bool
	LogLevel       string
	LogFormat      string
}

type ImportConfig struct {
	MaxDocumentBytes int64
	LineTolerance    float64
	Currency         string
	HistoryDays      int
}

// StorageConfig controls the preview archive. An empty ArchiveDir disables it.
type StorageConfig struct {
	ArchiveDir    string
	RetentionDays int
	PruneSchedule string
}

// Load reads configuration from the environment, after applying any .env file
// in the working directory.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:               getEnv("SERVER_HOST", "localhost"),
			Port:               getEnvAsInt("SERVER_PORT", 8080),
			AllowedOrigins:     getEnvAsList("SERVER_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
			RateLimitPerSecond: getEnvAsInt("SERVER_RATE_LIMIT_PER_SECOND", 20),
			RateLimitBurst:     getEnvAsInt("SERVER_RATE_LIMIT_BURST", 40),
		},
		Database: DatabaseConfig{
			Host:     getEnv("POSTGRES_HOST", ""),
			Port:     getEnvAsInt("POSTGRES_PORT", 5432),
			User:     getEnv("POSTGRES_USER", "postgres"),
			Password: getEnv("POSTGRES_PASSWORD", "postgres"),
			Database: getEnv("POSTGRES_DB", "ledger"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		},
		Observability: ObservabilityConfig{
			MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			LogFormat:      getEnv("LOG_FORMAT", "json"),
		},
		Import: ImportConfig{
			MaxDocumentBytes: int64(getEnvAsInt("IMPORT_MAX_DOCUMENT_BYTES", 20<<20)),
			LineTolerance:    getEnvAsFloat("IMPORT_LINE_TOLERANCE", 3),
			Currency:         getEnv("IMPORT_CURRENCY", "AUD"),
			HistoryDays:      getEnvAsInt("IMPORT_HISTORY_DAYS", 7),
		},
		Storage: StorageConfig{
			ArchiveDir:    getEnv("STORAGE_ARCHIVE_DIR", ""),
			RetentionDays: getEnvAsInt("STORAGE_RETENTION_DAYS", 30),
			PruneSchedule: getEnv("STORAGE_PRUNE_SCHEDULE", "0 3 * * *"),
		},
	}
	cfg.Database.Enabled = cfg.Database.Host != ""

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values that would otherwise fail later at runtime.
func (c *Config) Validate() error {
	if c.Import.MaxDocumentBytes <= 0 {
		return errors.New("IMPORT_MAX_DOCUMENT_BYTES must be positive")
	}
	if c.Import.LineTolerance <= 0 {
		return errors.New("IMPORT_LINE_TOLERANCE must be positive")
	}
	if c.Server.RateLimitPerSecond <= 0 {
		return errors.New("SERVER_RATE_LIMIT_PER_SECOND must be positive")
	}
	if c.Storage.ArchiveDir != "" && c.Storage.RetentionDays <= 0 {
		return errors.New("STORAGE_RETENTION_DAYS must be positive")
	}
	switch c.Observability.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or text, got %q", c.Observability.LogFormat)
	}
	return nil
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
