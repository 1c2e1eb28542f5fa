// Package config provides configuration management for the flat hunter.
// It loads configuration from a YAML file, environment variables and .env
// files; environment variables win over the file, the file wins over
// defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	yaml "gopkg.in/yaml.v2"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Hunter   HunterConfig   `yaml:"hunter"`
	Resolver ResolverConfig `yaml:"resolver"`
	Export   ExportConfig   `yaml:"export"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
}

// DatabaseConfig holds the SQLite database configuration
type DatabaseConfig struct {
	Dir string `yaml:"dir"`
}

// HunterConfig holds hunt loop configuration
type HunterConfig struct {
	Interval time.Duration `yaml:"interval"`
	Sources  []string      `yaml:"sources"`
	// SearchURLs maps a source name to its search results URL.
	SearchURLs map[string]string `yaml:"search_urls"`
}

// ResolverConfig holds reference price resolver configuration
type ResolverConfig struct {
	Timeout     time.Duration `yaml:"timeout"`
	StepWait    time.Duration `yaml:"step_wait"`
	BrowserPath string        `yaml:"browser_path"`
	MaxFailures int           `yaml:"max_failures"`
	Cooldown    time.Duration `yaml:"cooldown"`
}

// ExportConfig holds Google Sheets export configuration
type ExportConfig struct {
	Enabled          bool   `yaml:"enabled"`
	SpreadsheetID    string `yaml:"spreadsheet_id"`
	Worksheet        string `yaml:"worksheet"`
	SheetID          int64  `yaml:"sheet_id"`
	Token            string `yaml:"token"`
	AppendsPerMinute int    `yaml:"appends_per_minute"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// LoadConfig loads configuration from an optional YAML file, a .env file
// and environment variables. Pass an empty path to skip the YAML layer.
func LoadConfig(path string) (*Config, error) {
	// .env file is optional, environment variables can be set directly
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	file := Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("error parsing config file %s: %w", path, err)
		}
	}

	config := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", file.Server.Host, "0.0.0.0"),
			Port: getEnv("SERVER_PORT", file.Server.Port, "8080"),
		},
		Database: DatabaseConfig{
			Dir: getEnv("DATABASE_DIR", file.Database.Dir, "."),
		},
		Hunter: HunterConfig{
			Interval:   getEnvAsDuration("HUNTER_INTERVAL", file.Hunter.Interval, 10*time.Minute),
			Sources:    getEnvAsList("HUNTER_SOURCES", file.Hunter.Sources, []string{"immowelt", "kleinanzeigen"}),
			SearchURLs: file.Hunter.SearchURLs,
		},
		Resolver: ResolverConfig{
			Timeout:     getEnvAsDuration("RESOLVER_TIMEOUT", file.Resolver.Timeout, 2*time.Minute),
			StepWait:    getEnvAsDuration("RESOLVER_STEP_WAIT", file.Resolver.StepWait, 10*time.Second),
			BrowserPath: getEnv("RESOLVER_BROWSER_PATH", file.Resolver.BrowserPath, ""),
			MaxFailures: getEnvAsInt("RESOLVER_MAX_FAILURES", file.Resolver.MaxFailures, 5),
			Cooldown:    getEnvAsDuration("RESOLVER_COOLDOWN", file.Resolver.Cooldown, 5*time.Minute),
		},
		Export: ExportConfig{
			Enabled:          getEnvAsBool("EXPORT_ENABLED", file.Export.Enabled),
			SpreadsheetID:    getEnv("EXPORT_SPREADSHEET_ID", file.Export.SpreadsheetID, ""),
			Worksheet:        getEnv("EXPORT_WORKSHEET", file.Export.Worksheet, "Sheet1"),
			SheetID:          getEnvAsInt64("EXPORT_SHEET_ID", file.Export.SheetID, 0),
			Token:            getEnv("EXPORT_TOKEN", file.Export.Token, ""),
			AppendsPerMinute: getEnvAsInt("EXPORT_APPENDS_PER_MINUTE", file.Export.AppendsPerMinute, 50),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", file.Logging.Level, "info"),
			Format: getEnv("LOG_FORMAT", file.Logging.Format, "json"),
		},
	}

	if config.Hunter.SearchURLs == nil {
		config.Hunter.SearchURLs = make(map[string]string)
	}
	for _, source := range config.Hunter.Sources {
		key := strings.ToUpper(source) + "_SEARCH_URL"
		if value := os.Getenv(key); value != "" {
			config.Hunter.SearchURLs[source] = value
		}
	}

	return config, nil
}

// getEnv returns the environment variable, then the file value, then the default
func getEnv(key, fileValue, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	if fileValue != "" {
		return fileValue
	}
	return defaultValue
}

// getEnvAsInt returns the environment variable as an integer, then the file
// value, then the default
func getEnvAsInt(key string, fileValue, defaultValue int) int {
	if valueStr := os.Getenv(key); valueStr != "" {
		if value, err := strconv.Atoi(valueStr); err == nil {
			return value
		}
	}
	if fileValue != 0 {
		return fileValue
	}
	return defaultValue
}

// getEnvAsInt64 is getEnvAsInt for 64-bit values
func getEnvAsInt64(key string, fileValue, defaultValue int64) int64 {
	if valueStr := os.Getenv(key); valueStr != "" {
		if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
			return value
		}
	}
	if fileValue != 0 {
		return fileValue
	}
	return defaultValue
}

// getEnvAsBool returns the environment variable as a boolean, falling back
// to the file value
func getEnvAsBool(key string, fileValue bool) bool {
	if valueStr := os.Getenv(key); valueStr != "" {
		if value, err := strconv.ParseBool(valueStr); err == nil {
			return value
		}
	}
	return fileValue
}

// getEnvAsDuration returns the environment variable as a duration, then the
// file value, then the default
func getEnvAsDuration(key string, fileValue, defaultValue time.Duration) time.Duration {
	if valueStr := os.Getenv(key); valueStr != "" {
		if value, err := time.ParseDuration(valueStr); err == nil {
			return value
		}
	}
	if fileValue != 0 {
		return fileValue
	}
	return defaultValue
}

// getEnvAsList returns a comma-separated environment variable as a slice,
// then the file value, then the default
func getEnvAsList(key string, fileValue, defaultValue []string) []string {
	if valueStr := os.Getenv(key); valueStr != "" {
		parts := strings.Split(valueStr, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	if len(fileValue) > 0 {
		return fileValue
	}
	return defaultValue
}
