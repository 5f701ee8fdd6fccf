// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"

	"github.com/gzadmin/uploadgw/internal/upload"
)

// Storage drivers.
const (
	DriverMinio  = "minio"
	DriverMemory = "memory"
)

// Naming strategies for generated object names.
const (
	NamingTimestamp = "timestamp"
	NamingUUID      = "uuid"
)

// Config holds all runtime configuration for the gateway.
type Config struct {
	Port   string
	AppEnv string

	// Object storage (S3-compatible: MinIO locally, R2 or S3 in production)
	StorageDriver     string
	StorageEndpoint   string
	StorageAccessKey  string
	StorageSecretKey  string
	StorageRegion     string
	StorageBucket     string // empty means the binding is not configured
	StorageUseSSL     bool
	StoragePublicBase string // browser-accessible base URL, e.g. "https://image.example.com"
	StoragePublicRead bool

	// Upload behaviour
	Namespaced      bool
	DefaultModel    string
	DefaultChannel  string
	Naming          string
	MaxUploadSize   int64
	MultipartMemory int64
	UploadRateLimit int // uploads per minute per client IP, 0 disables

	CORSAllowedOrigins []string
}

// Load reads configuration from a .env file (if present) and environment variables.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, reading from environment")
	}

	maxSize, err := humanize.ParseBytes(getEnv("UPLOAD_MAX_SIZE", "32MB"))
	if err != nil {
		return nil, fmt.Errorf("parse UPLOAD_MAX_SIZE: %w", err)
	}
	memory, err := humanize.ParseBytes(getEnv("UPLOAD_MEMORY", "8MB"))
	if err != nil {
		return nil, fmt.Errorf("parse UPLOAD_MEMORY: %w", err)
	}
	rateLimit, err := strconv.Atoi(getEnv("UPLOAD_RATE_LIMIT", "0"))
	if err != nil || rateLimit < 0 {
		return nil, fmt.Errorf("UPLOAD_RATE_LIMIT must be a non-negative integer")
	}

	cfg := &Config{
		Port:   getEnv("PORT", "8080"),
		AppEnv: getEnv("APP_ENV", "development"),

		StorageDriver:     strings.ToLower(getEnv("STORAGE_DRIVER", DriverMinio)),
		StorageEndpoint:   getEnv("STORAGE_ENDPOINT", "localhost:9000"),
		StorageAccessKey:  getEnv("STORAGE_ACCESS_KEY", "minioadmin"),
		StorageSecretKey:  getEnv("STORAGE_SECRET_KEY", "minioadmin"),
		StorageRegion:     getEnv("STORAGE_REGION", ""),
		StorageBucket:     getEnv("STORAGE_BUCKET", ""),
		StorageUseSSL:     getEnv("STORAGE_USE_SSL", "false") == "true",
		StoragePublicBase: getEnv("STORAGE_PUBLIC_BASE", "http://localhost:9000/uploads"),
		StoragePublicRead: getEnv("STORAGE_PUBLIC_READ", "true") == "true",

		Namespaced:      getEnv("UPLOAD_NAMESPACED", "true") == "true",
		DefaultModel:    getEnv("UPLOAD_DEFAULT_MODEL", "common"),
		DefaultChannel:  getEnv("UPLOAD_DEFAULT_CHANNEL", "default"),
		Naming:          strings.ToLower(getEnv("UPLOAD_NAMING", NamingTimestamp)),
		MaxUploadSize:   int64(maxSize),
		MultipartMemory: int64(memory),
		UploadRateLimit: rateLimit,

		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsProduction returns true when the app is running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// StorageConfigured reports whether an object store binding is set up.
// The memory driver needs no bucket.
func (c *Config) StorageConfigured() bool {
	return c.StorageDriver == DriverMemory || c.StorageBucket != ""
}

func (c *Config) validate() error {
	switch c.StorageDriver {
	case DriverMinio, DriverMemory:
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}
	switch c.Naming {
	case NamingTimestamp, NamingUUID:
	default:
		return fmt.Errorf("unknown UPLOAD_NAMING %q", c.Naming)
	}
	if !upload.ValidateSegment(c.DefaultModel) {
		return fmt.Errorf("UPLOAD_DEFAULT_MODEL %q is not a valid key segment", c.DefaultModel)
	}
	if !upload.ValidateSegment(c.DefaultChannel) {
		return fmt.Errorf("UPLOAD_DEFAULT_CHANNEL %q is not a valid key segment", c.DefaultChannel)
	}
	if c.MaxUploadSize <= 0 {
		return fmt.Errorf("UPLOAD_MAX_SIZE must be positive")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
