// ==============================================================================
// CONFIG PACKAGE - pkg/config/config.go
// ==============================================================================
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	Directory  DirectoryConfig
	Storage    StorageConfig
	Submission SubmissionConfig
	Wizard     WizardConfig
}

type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL      string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
}

// DirectoryConfig points at the external bank identifier directory.
type DirectoryConfig struct {
	BaseURL  string
	Timeout  time.Duration
	CacheTTL time.Duration
}

// StorageConfig points at the external file storage service.
type StorageConfig struct {
	UploadURL   string
	AuthToken   string
	Timeout     time.Duration
	MaxFileSize int64
}

// SubmissionConfig points at the transaction submission API.
type SubmissionConfig struct {
	BaseURL string
	Timeout time.Duration
}

// WizardConfig holds product policy knobs for the payment wizard.
type WizardConfig struct {
	// AllowUnresolvedContinue permits advancing past identifier resolution
	// when the directory lookup found nothing.
	AllowUnresolvedContinue bool
	// DomesticCurrencies need no bank-identifier stage; the wizard skips
	// straight to field entry for them.
	DomesticCurrencies []string
	// SessionTTL bounds how long an abandoned wizard session is kept.
	SessionTTL time.Duration
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 10*time.Second),
			IdleTimeout:  getDurationEnv("SERVER_IDLE_TIMEOUT", 120*time.Second),
		},
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxOpenConns:    getIntEnv("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getIntEnv("DB_MAX_IDLE_CONNS", 25),
			ConnMaxLifetime: getDurationEnv("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL:      normalizeRedisURL(getEnv("REDIS_URL", "localhost:6379")),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret:     getEnv("JWT_SECRET", "change-this-secret"),
			Expiration: getDurationEnv("JWT_EXPIRATION", 15*time.Minute),
		},
		Directory: DirectoryConfig{
			BaseURL:  getEnv("BANK_DIRECTORY_URL", "https://directory.example.com"),
			Timeout:  getDurationEnv("BANK_DIRECTORY_TIMEOUT", 10*time.Second),
			CacheTTL: getDurationEnv("BANK_DIRECTORY_CACHE_TTL", 12*time.Hour),
		},
		Storage: StorageConfig{
			UploadURL:   getEnv("FILE_STORAGE_UPLOAD_URL", "https://storage.example.com/upload"),
			AuthToken:   getEnv("FILE_STORAGE_AUTH_TOKEN", ""),
			Timeout:     getDurationEnv("FILE_STORAGE_TIMEOUT", 30*time.Second),
			MaxFileSize: getInt64Env("FILE_STORAGE_MAX_SIZE", 2<<20), // 2 MiB
		},
		Submission: SubmissionConfig{
			BaseURL: getEnv("TRANSACTION_API_URL", "https://transactions.example.com"),
			Timeout: getDurationEnv("TRANSACTION_API_TIMEOUT", 30*time.Second),
		},
		Wizard: WizardConfig{
			AllowUnresolvedContinue: getBoolEnv("WIZARD_ALLOW_UNRESOLVED_CONTINUE", true),
			DomesticCurrencies:      getListEnv("WIZARD_DOMESTIC_CURRENCIES", nil),
			SessionTTL:              getDurationEnv("WIZARD_SESSION_TTL", 2*time.Hour),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func normalizeRedisURL(url string) string {
	// Strip redis:// or redis+tls:// scheme if present
	if strings.HasPrefix(url, "redis+tls://") {
		return url[len("redis+tls://"):]
	}
	if strings.HasPrefix(url, "redis://") {
		return url[len("redis://"):]
	}
	return url
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getInt64Env(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getListEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
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
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		switch strings.ToLower(strings.TrimSpace(value)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return defaultValue
}
