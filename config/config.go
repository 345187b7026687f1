// Package config loads the service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment is the deployment environment the service runs in.
type Environment int

const (
	EnvDevelopment Environment = iota
	EnvStaging
	EnvProduction
	EnvTest
)

func (e Environment) String() string {
	switch e {
	case EnvStaging:
		return "staging"
	case EnvProduction:
		return "prod"
	case EnvTest:
		return "test"
	default:
		return "dev"
	}
}

// ParseEnvironment accepts the short and long spellings of each environment.
func ParseEnvironment(s string) (Environment, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dev", "development":
		return EnvDevelopment, nil
	case "staging":
		return EnvStaging, nil
	case "prod", "production":
		return EnvProduction, nil
	case "test":
		return EnvTest, nil
	default:
		return EnvDevelopment, fmt.Errorf("ENV must be one of: [dev staging prod test], got: %s", s)
	}
}

// Config holds all application configuration
type Config struct {
	Port              string
	Address           string
	Env               Environment
	LogLevel          string
	LogDir            string
	LogRetentionWeeks int   // Number of weeks to keep log files
	MaxLogFileSize    int64 // Maximum log file size in bytes
	MaxRequestBody    int64 // Maximum request body size in bytes
	MaxHeaderSize     int64 // Maximum header size in bytes

	DatabasePath   string
	StoragePath    string
	StorageBaseURL string

	// BiomedHost is host[:port] of the entity-linking service. Empty disables NER.
	BiomedHost       string
	BiomedScheme     string
	NERTimeout       time.Duration
	NERMaxAttempts   int
	NERProbeInterval time.Duration

	OCRLanguages   []string
	TitleMaxLength int
}

// Load reads an optional .env file, then loads and validates configuration
// from environment variables.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env file: %w", err)
	}

	env, err := ParseEnvironment(getEnvWithDefault("ENV", "dev"))
	if err != nil {
		return nil, fmt.Errorf("configuration validation failed: invalid ENV: %w", err)
	}

	cfg := &Config{
		Port:              getEnvWithDefault("PORT", "8000"),
		Address:           getEnvWithDefault("ADDRESS", "127.0.0.1"),
		Env:               env,
		LogLevel:          getEnvWithDefault("LOG_LEVEL", "info"),
		LogDir:            getEnvWithDefault("LOG_DIR", "logs"),
		LogRetentionWeeks: getIntEnvWithDefault("LOG_RETENTION_WEEKS", 4),
		MaxLogFileSize:    getInt64EnvWithDefault("MAX_LOG_FILE_SIZE", 100*1024*1024),
		MaxRequestBody:    getInt64EnvWithDefault("MAX_REQUEST_BODY", 10*1024*1024),
		MaxHeaderSize:     getInt64EnvWithDefault("MAX_HEADER_SIZE", 1024*1024),

		DatabasePath:   getEnvWithDefault("DATABASE_PATH", "data/pillchecker.db"),
		StoragePath:    getEnvWithDefault("STORAGE_PATH", "./storage"),
		StorageBaseURL: strings.TrimRight(getEnvWithDefault("STORAGE_BASE_URL", "/storage"), "/"),

		BiomedHost:       strings.TrimSpace(os.Getenv("BIOMED_HOST")),
		BiomedScheme:     strings.ToLower(getEnvWithDefault("BIOMED_SCHEME", "http")),
		NERTimeout:       time.Duration(getIntEnvWithDefault("NER_TIMEOUT_SECONDS", 30)) * time.Second,
		NERMaxAttempts:   getIntEnvWithDefault("NER_MAX_ATTEMPTS", 3),
		NERProbeInterval: time.Duration(getIntEnvWithDefault("NER_PROBE_INTERVAL_MINUTES", 5)) * time.Minute,

		OCRLanguages:   splitList(getEnvWithDefault("OCR_LANGUAGES", "eng")),
		TitleMaxLength: getIntEnvWithDefault("TITLE_MAX_LENGTH", 200),
	}

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// NERBaseURL returns the entity-linking service root, or "" when disabled.
func (c *Config) NERBaseURL() string {
	if c.BiomedHost == "" {
		return ""
	}
	return c.BiomedScheme + "://" + c.BiomedHost
}

// validateConfig validates all configuration values
func validateConfig(cfg *Config) error {
	if err := validatePort(cfg.Port); err != nil {
		return fmt.Errorf("invalid PORT: %w", err)
	}

	if err := validateAddress(cfg.Address); err != nil {
		return fmt.Errorf("invalid ADDRESS: %w", err)
	}

	if err := validateLogLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	if err := validateSizeLimit(cfg.MaxRequestBody, "MAX_REQUEST_BODY"); err != nil {
		return fmt.Errorf("invalid MAX_REQUEST_BODY: %w", err)
	}

	if err := validateSizeLimit(cfg.MaxHeaderSize, "MAX_HEADER_SIZE"); err != nil {
		return fmt.Errorf("invalid MAX_HEADER_SIZE: %w", err)
	}

	if err := validateLogRetentionWeeks(cfg.LogRetentionWeeks); err != nil {
		return fmt.Errorf("invalid LOG_RETENTION_WEEKS: %w", err)
	}

	if err := validateMaxLogFileSize(cfg.MaxLogFileSize); err != nil {
		return fmt.Errorf("invalid MAX_LOG_FILE_SIZE: %w", err)
	}

	if cfg.DatabasePath == "" {
		return fmt.Errorf("invalid DATABASE_PATH: cannot be empty")
	}

	if cfg.StoragePath == "" {
		return fmt.Errorf("invalid STORAGE_PATH: cannot be empty")
	}

	if err := validateBiomedScheme(cfg.BiomedScheme); err != nil {
		return fmt.Errorf("invalid BIOMED_SCHEME: %w", err)
	}

	if err := validateRange(int(cfg.NERTimeout/time.Second), 1, 300); err != nil {
		return fmt.Errorf("invalid NER_TIMEOUT_SECONDS: %w", err)
	}

	if err := validateRange(cfg.NERMaxAttempts, 1, 10); err != nil {
		return fmt.Errorf("invalid NER_MAX_ATTEMPTS: %w", err)
	}

	if err := validateRange(int(cfg.NERProbeInterval/time.Minute), 1, 1440); err != nil {
		return fmt.Errorf("invalid NER_PROBE_INTERVAL_MINUTES: %w", err)
	}

	if len(cfg.OCRLanguages) == 0 {
		return fmt.Errorf("invalid OCR_LANGUAGES: at least one language is required")
	}

	if err := validateRange(cfg.TitleMaxLength, 10, 1000); err != nil {
		return fmt.Errorf("invalid TITLE_MAX_LENGTH: %w", err)
	}

	return nil
}

// validatePort validates the PORT environment variable
func validatePort(port string) error {
	if port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}

	portNum, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf("PORT must be a valid number: %w", err)
	}

	if portNum < 1 || portNum > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}

	if portNum < 1024 {
		return fmt.Errorf("PORT %d is privileged (less than 1024), use ports 1024-65535", portNum)
	}

	return nil
}

// validateAddress accepts loopback, private and unspecified addresses.
func validateAddress(address string) error {
	if address == "" {
		return fmt.Errorf("ADDRESS cannot be empty")
	}

	if address == "localhost" {
		return nil
	}

	ip := net.ParseIP(address)
	if ip == nil {
		return fmt.Errorf("ADDRESS must be a valid IP address or 'localhost', got: %s", address)
	}

	if !ip.IsLoopback() && !ip.IsPrivate() && !ip.IsUnspecified() {
		return fmt.Errorf("ADDRESS %s is a public IP, consider using private network ranges for security", address)
	}

	return nil
}

// validateLogLevel validates the LOG_LEVEL environment variable
func validateLogLevel(logLevel string) error {
	if logLevel == "" {
		return fmt.Errorf("LOG_LEVEL cannot be empty")
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	logLevel = strings.ToLower(logLevel)

	for _, level := range validLevels {
		if logLevel == level {
			return nil
		}
	}

	return fmt.Errorf("LOG_LEVEL must be one of: %v, got: %s", validLevels, logLevel)
}

// validateSizeLimit validates size limit configuration values
func validateSizeLimit(size int64, configName string) error {
	if size <= 0 {
		return fmt.Errorf("%s must be positive, got: %d", configName, size)
	}

	if size > 100*1024*1024 {
		return fmt.Errorf("%s is too large (max 100MB), got: %d bytes", configName, size)
	}

	return nil
}

// validateLogRetentionWeeks validates the LOG_RETENTION_WEEKS environment variable
func validateLogRetentionWeeks(weeks int) error {
	if weeks <= 0 {
		return fmt.Errorf("LOG_RETENTION_WEEKS must be positive, got: %d", weeks)
	}

	if weeks > 52 {
		return fmt.Errorf("LOG_RETENTION_WEEKS is too large (max 52 weeks), got: %d", weeks)
	}

	return nil
}

// validateMaxLogFileSize validates the MAX_LOG_FILE_SIZE environment variable
func validateMaxLogFileSize(size int64) error {
	if size <= 0 {
		return fmt.Errorf("MAX_LOG_FILE_SIZE must be positive, got: %d", size)
	}

	if size < 1024*1024 {
		return fmt.Errorf("MAX_LOG_FILE_SIZE is too small (min 1MB), got: %d bytes", size)
	}

	if size > 1024*1024*1024 {
		return fmt.Errorf("MAX_LOG_FILE_SIZE is too large (max 1GB), got: %d bytes", size)
	}

	return nil
}

func validateBiomedScheme(scheme string) error {
	if scheme != "http" && scheme != "https" {
		return fmt.Errorf("must be http or https, got: %s", scheme)
	}
	return nil
}

func validateRange(value, minValue, maxValue int) error {
	if value < minValue || value > maxValue {
		return fmt.Errorf("must be between %d and %d, got: %d", minValue, maxValue, value)
	}
	return nil
}

// getEnvWithDefault gets an environment variable with a default value
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnvWithDefault gets an environment variable as int with a default value
func getIntEnvWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getInt64EnvWithDefault gets an environment variable as int64 with a default value
func getInt64EnvWithDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// splitList splits a "+" or "," separated list, as tesseract accepts "eng+fra".
func splitList(value string) []string {
	fields := strings.FieldsFunc(value, func(r rune) bool { return r == '+' || r == ',' })
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// GetEnvVars returns a list of all expected environment variables
func GetEnvVars() []string {
	return []string{
		"PORT",
		"ADDRESS",
		"ENV",
		"LOG_LEVEL",
		"LOG_DIR",
		"LOG_RETENTION_WEEKS",
		"MAX_LOG_FILE_SIZE",
		"MAX_REQUEST_BODY",
		"MAX_HEADER_SIZE",
		"DATABASE_PATH",
		"STORAGE_PATH",
		"STORAGE_BASE_URL",
		"BIOMED_HOST",
		"BIOMED_SCHEME",
		"NER_TIMEOUT_SECONDS",
		"NER_MAX_ATTEMPTS",
		"NER_PROBE_INTERVAL_MINUTES",
		"OCR_LANGUAGES",
		"TITLE_MAX_LENGTH",
	}
}
