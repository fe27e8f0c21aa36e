package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Blob     BlobConfig
	DocIntel DocIntelConfig
	Ingest   IngestConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr string
}

// DatabaseConfig holds document-store configuration
type DatabaseConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
}

// BlobConfig holds blob-store configuration
type BlobConfig struct {
	Endpoint  string
	Container string
	SASToken  string
}

// DocIntelConfig holds analysis-provider configuration
type DocIntelConfig struct {
	Endpoint     string
	APIKey       string
	ModelID      string
	PollInterval time.Duration
	Timeout      time.Duration
}

// IngestConfig holds the blob-availability wait policy.
type IngestConfig struct {
	BlobWaitRetries  int
	BlobWaitInterval time.Duration
	// BlobWaitFail decides what happens when the wait budget is spent:
	// fail the ingest, or proceed best-effort and let the analysis call
	// find out whether the blob is visible.
	BlobWaitFail bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPAddr: getEnv("HTTP_ADDR", ":8080"),
		},
		Database: DatabaseConfig{
			DSN:             getEnv("DB_URL", ""),
			MaxConns:        getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:        getEnvAsInt32("DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:     getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
		},
		Blob: BlobConfig{
			Endpoint:  getEnv("BLOB_ENDPOINT", ""),
			Container: getEnv("BLOB_CONTAINER", "files"),
			SASToken:  getEnv("BLOB_SAS_TOKEN", ""),
		},
		DocIntel: DocIntelConfig{
			Endpoint:     getEnv("DOCINTEL_ENDPOINT", ""),
			APIKey:       getEnv("DOCINTEL_KEY", ""),
			ModelID:      getEnv("DOCINTEL_MODEL", "prebuilt-layout"),
			PollInterval: getEnvAsDuration("DOCINTEL_POLL_INTERVAL", 2*time.Second),
			Timeout:      getEnvAsDuration("DOCINTEL_TIMEOUT", 120*time.Second),
		},
		Ingest: IngestConfig{
			BlobWaitRetries:  getEnvAsInt("BLOB_WAIT_RETRIES", 10),
			BlobWaitInterval: getEnvAsDuration("BLOB_WAIT_INTERVAL", 500*time.Millisecond),
			BlobWaitFail:     getEnvAsBool("BLOB_WAIT_FAIL", false),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return &AppError{Kind: ErrValidation, Message: "DB_URL is required"}
	}
	if c.Server.HTTPAddr == "" {
		return &AppError{Kind: ErrValidation, Message: "HTTP_ADDR is required"}
	}
	if c.Blob.Endpoint == "" {
		return &AppError{Kind: ErrValidation, Message: "BLOB_ENDPOINT is required"}
	}
	if c.DocIntel.Endpoint == "" {
		return &AppError{Kind: ErrValidation, Message: "DOCINTEL_ENDPOINT is required"}
	}
	if c.DocIntel.APIKey == "" {
		return &AppError{Kind: ErrValidation, Message: "DOCINTEL_KEY is required"}
	}
	return nil
}
