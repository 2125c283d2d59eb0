package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const DefaultExportsSubDir = "exports"

const (
	defaultPageSize       = 5
	maxPageSize           = 100
	defaultExportWorkers  = 3
	defaultMaxUploadFiles = 100
)

type Config struct {
	// remote AI tagging service
	TaggingServiceURL string
	TaggingTimeout    time.Duration

	// sqlite path shared by the lookup cache and the upload history
	DatabasePath string

	// storage for exported keyword CSVs
	StoragePath string
	ExportsPath string // full-calculated path for CSV exports

	// album list paging
	DefaultPageSize int
	MaxPageSize     int

	// batch CSV export settings
	ExportWorkers int

	// upload gating
	MaxUploadFiles     int
	MaxUploadFileBytes int64
	MaxUploadDimension int

	// profile refresh settings
	ProfileRefreshInterval time.Duration
	ProfileRefreshDebounce time.Duration

	// upload session retention after the upload finishes
	UploadSessionRetention time.Duration

	// allowed browser origins
	CORSAllowedOrigins []string
}

func getEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvIntOrDefault(envVar string, defaultVal int) int {
	valStr := os.Getenv(envVar)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil || val <= 0 {
		log.Printf("Warning: Invalid %s '%s'. Using default %d. Error: %v", envVar, valStr, defaultVal, err)
		return defaultVal
	}
	return val
}

func getEnvDurationOrDefault(envVar string, defaultVal time.Duration) time.Duration {
	valStr := os.Getenv(envVar)
	if valStr == "" {
		return defaultVal
	}
	val, err := time.ParseDuration(valStr)
	if err != nil || val <= 0 {
		log.Printf("Warning: Invalid %s '%s'. Using default %s. Error: %v", envVar, valStr, defaultVal, err)
		return defaultVal
	}
	return val
}

func LoadConfig() (Config, error) {
	serviceURL := os.Getenv("TAGGING_SERVICE_URL")
	if serviceURL == "" {
		return Config{}, fmt.Errorf("TAGGING_SERVICE_URL must be set")
	}

	dbPath := getEnvOrDefault("DATABASE_PATH", "gateway.db")

	storage := getEnvOrDefault("STORAGE_PATH", filepath.Join(".", "storage"))
	absStorage, err := filepath.Abs(storage)
	if err != nil {
		return Config{}, fmt.Errorf("failed to get absolute path for storage '%s': %w", storage, err)
	}

	exportsSubDir := getEnvOrDefault("EXPORTS_SUBDIR", DefaultExportsSubDir)
	absExportsPath := filepath.Join(absStorage, exportsSubDir)

	corsOrigin := getEnvOrDefault("CORS_ALLOWED_ORIGIN", "http://localhost:5173")

	cfg := Config{
		TaggingServiceURL:      serviceURL,
		TaggingTimeout:         getEnvDurationOrDefault("TAGGING_TIMEOUT", 30*time.Second),
		DatabasePath:           dbPath,
		StoragePath:            absStorage,
		ExportsPath:            absExportsPath,
		DefaultPageSize:        getEnvIntOrDefault("DEFAULT_PAGE_SIZE", defaultPageSize),
		MaxPageSize:            getEnvIntOrDefault("MAX_PAGE_SIZE", maxPageSize),
		ExportWorkers:          getEnvIntOrDefault("EXPORT_WORKERS", defaultExportWorkers),
		MaxUploadFiles:         getEnvIntOrDefault("MAX_UPLOAD_FILES", defaultMaxUploadFiles),
		MaxUploadFileBytes:     int64(getEnvIntOrDefault("MAX_UPLOAD_FILE_MB", 40)) << 20,
		MaxUploadDimension:     getEnvIntOrDefault("MAX_UPLOAD_DIMENSION", 4096),
		ProfileRefreshInterval: getEnvDurationOrDefault("PROFILE_REFRESH_INTERVAL", 5*time.Minute),
		ProfileRefreshDebounce: getEnvDurationOrDefault("PROFILE_REFRESH_DEBOUNCE", 30*time.Second),
		UploadSessionRetention: getEnvDurationOrDefault("UPLOAD_SESSION_RETENTION", 15*time.Minute),
		CORSAllowedOrigins:     []string{corsOrigin},
	}

	return cfg, nil
}
