// Package config handles loading and validation of application configuration
// from environment variables. Supports .env files via godotenv.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultSessionSecret = "dev-secret-change-in-production"
	defaultAdminPassword = "password"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Port        int
	Environment string // "development" | "staging" | "production"

	// Report repository
	RepositoryDriver string // "postgres" | "firestore" | "memory"
	DatabaseURL      string

	// Attachment store
	StorageDriver string // "gcs" | "ftp" | "local" | "memory"
	MaxUploadMB   int
	UploadDir     string
	UploadBaseURL string

	// Firebase (Firestore repository and Cloud Storage bucket)
	FirebaseCredentialsFile string
	FirebaseProjectID       string
	FirebaseStorageBucket   string

	// FTP attachment store
	FTPHost     string
	FTPPort     string
	FTPUser     string
	FTPPassword string
	FTPBaseURL  string

	// Security
	AdminUsername     string
	AdminPassword     string
	AdminPasswordHash string
	SessionSecret     string
	AllowedOrigins    []string
	RateLimitRPM      int

	// Redis (status change events); empty disables publishing
	RedisURL string

	// Orphan attachment sweeper
	SweepSchedule string
	SweepGrace    time.Duration
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (development)
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnvInt("PORT", 8080),
		Environment: getEnv("ENVIRONMENT", "development"),

		RepositoryDriver: getEnv("REPOSITORY_DRIVER", "postgres"),
		DatabaseURL:      getEnv("DATABASE_URL", ""),

		StorageDriver: getEnv("STORAGE_DRIVER", "gcs"),
		MaxUploadMB:   getEnvInt("MAX_UPLOAD_MB", 10),
		UploadDir:     getEnv("UPLOAD_DIR", "uploads"),
		UploadBaseURL: strings.TrimRight(getEnv("UPLOAD_BASE_URL", "/uploads"), "/"),

		FirebaseCredentialsFile: getEnv("FIREBASE_CREDENTIALS_FILE", ""),
		FirebaseProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
		FirebaseStorageBucket:   getEnv("FIREBASE_STORAGE_BUCKET", ""),

		FTPHost:     getEnv("FTP_HOST", ""),
		FTPPort:     getEnv("FTP_PORT", "21"),
		FTPUser:     getEnv("FTP_USER", ""),
		FTPPassword: getEnv("FTP_PASSWORD", ""),
		FTPBaseURL:  getEnv("FTP_BASE_URL", ""),

		AdminUsername:     getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword:     getEnv("ADMIN_PASSWORD", defaultAdminPassword),
		AdminPasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),
		SessionSecret:     getEnv("SESSION_SECRET", defaultSessionSecret),
		AllowedOrigins:    strings.Split(getEnv("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000"), ","),
		RateLimitRPM:      getEnvInt("RATE_LIMIT_RPM", 60),

		RedisURL: getEnv("REDIS_URL", ""),

		// An explicitly empty SWEEP_SCHEDULE disables the sweeper.
		SweepSchedule: getEnvAllowEmpty("SWEEP_SCHEDULE", "@every 1h"),
		SweepGrace:    getEnvDuration("SWEEP_GRACE", time.Hour),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) validate() error {
	switch c.RepositoryDriver {
	case "postgres", "firestore", "memory":
	default:
		return fmt.Errorf("unknown REPOSITORY_DRIVER %q", c.RepositoryDriver)
	}
	switch c.StorageDriver {
	case "gcs", "ftp", "local", "memory":
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}

	if c.RepositoryDriver == "postgres" && c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required for the postgres repository")
	}
	if c.RepositoryDriver == "firestore" && c.FirebaseProjectID == "" {
		return fmt.Errorf("FIREBASE_PROJECT_ID is required for the firestore repository")
	}
	if c.StorageDriver == "gcs" && c.FirebaseStorageBucket == "" {
		return fmt.Errorf("FIREBASE_STORAGE_BUCKET is required for the gcs store")
	}
	if c.StorageDriver == "ftp" && (c.FTPHost == "" || c.FTPBaseURL == "") {
		return fmt.Errorf("FTP_HOST and FTP_BASE_URL are required for the ftp store")
	}
	// Reports in memory vanish on restart while stored photos do not; a sweep
	// would then delete every photo.
	if c.SweepSchedule != "" && c.RepositoryDriver == "memory" && c.StorageDriver != "memory" {
		return fmt.Errorf("SWEEP_SCHEDULE must be empty when the memory repository is used with the %s store", c.StorageDriver)
	}
	if c.MaxUploadMB <= 0 {
		return fmt.Errorf("MAX_UPLOAD_MB must be positive")
	}

	// Validate required fields in production
	if c.IsProduction() {
		if c.SessionSecret == defaultSessionSecret {
			return fmt.Errorf("SESSION_SECRET must be set in production")
		}
		if c.AdminPasswordHash == "" && c.AdminPassword == defaultAdminPassword {
			return fmt.Errorf("ADMIN_PASSWORD or ADMIN_PASSWORD_HASH must be set in production")
		}
		if c.RepositoryDriver == "memory" || c.StorageDriver == "memory" {
			return fmt.Errorf("memory drivers are not allowed in production")
		}
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAllowEmpty(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(val)
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}
