package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Storage drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Actuals policies for a second reconciliation of the same forecast
const (
	ActualsOverwrite = "overwrite"
	ActualsReject    = "reject"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Models and feature manifests
	Pipelines PipelineConfig

	// Forecast ledger
	ActualsPolicy string

	// Request throttling
	RateLimit RateLimitConfig

	// StrictHTTPStatus 도메인 결과에 4xx/5xx 사용 (기본: 200 + {error, code})
	StrictHTTPStatus bool

	// Reconciliation report job (cron, with seconds)
	ReportSchedule string

	// Logging
	LogLevel  string
	LogFormat string

	// Monitoring
	MetricsEnabled bool
	OTelEndpoint   string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool

	// KeyPrefix namespaces every key (cache and rate limit windows)
	KeyPrefix string

	// FeatureCacheTTL is how long a resolved feature row stays cached
	FeatureCacheTTL time.Duration
}

// DatabaseConfig holds storage configuration
type DatabaseConfig struct {
	Driver string // postgres, sqlite
	URL    string

	// SQLite file path (driver=sqlite)
	SQLitePath string

	// FeaturesTable is the externally populated feature table
	FeaturesTable string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// PipelineConfig points at the two scoring pipeline manifests
type PipelineConfig struct {
	ManifestA string
	ManifestB string
}

// RateLimitConfig holds per-client request throttling
type RateLimitConfig struct {
	RPS   int
	Burst int
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	// Try multiple paths for .env file
	loadEnvFile()

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "5000"),
		Env:  getEnv("ENV", "development"),

		// Database
		Database: DatabaseConfig{
			Driver:          getEnv("DB_DRIVER", DriverPostgres),
			URL:             getEnv("DATABASE_URL", ""),
			SQLitePath:      getEnv("SQLITE_PATH", "pvpforecast.db"),
			FeaturesTable:   getEnv("FEATURES_TABLE", "features"),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		// Redis
		Redis: RedisConfig{
			Host:            getEnv("REDIS_HOST", "localhost"),
			Port:            getEnv("REDIS_PORT", "6379"),
			Password:        getEnv("REDIS_PASSWORD", ""),
			DB:              getEnvAsInt("REDIS_DB", 0),
			Enabled:         getEnvAsBool("REDIS_ENABLED", false),
			KeyPrefix:       getEnv("REDIS_PREFIX", "pvp"),
			FeatureCacheTTL: getEnvAsDuration("FEATURE_CACHE_TTL", "10m"),
		},

		Pipelines: PipelineConfig{
			ManifestA: getEnv("PIPELINE_A_MANIFEST", "models/pipeline_A.yaml"),
			ManifestB: getEnv("PIPELINE_B_MANIFEST", "models/pipeline_B.yaml"),
		},

		ActualsPolicy: getEnv("ACTUALS_POLICY", ActualsOverwrite),

		RateLimit: RateLimitConfig{
			RPS:   getEnvAsInt("RATE_LIMIT_RPS", 50),
			Burst: getEnvAsInt("RATE_LIMIT_BURST", 100),
		},

		StrictHTTPStatus: getEnvAsBool("HTTP_STRICT_STATUS", false),

		ReportSchedule: getEnv("REPORT_SCHEDULE", "0 0 * * * *"),

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		// Monitoring
		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
		OTelEndpoint:   getEnv("OTEL_ENDPOINT", ""),
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required when DB_DRIVER=postgres")
		}
	case DriverSQLite:
		if c.Database.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required when DB_DRIVER=sqlite")
		}
	default:
		return fmt.Errorf("DB_DRIVER must be one of: postgres, sqlite")
	}

	// Validate environment
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.ActualsPolicy != ActualsOverwrite && c.ActualsPolicy != ActualsReject {
		return fmt.Errorf("ACTUALS_POLICY must be one of: overwrite, reject")
	}

	if c.Pipelines.ManifestA == "" || c.Pipelines.ManifestB == "" {
		return fmt.Errorf("PIPELINE_A_MANIFEST and PIPELINE_B_MANIFEST are required")
	}

	if c.RateLimit.RPS < 0 || c.RateLimit.Burst < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be >= 0")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env",
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
