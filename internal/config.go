package internal

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/DukeRupert/hookscope/internal/domain"
	"github.com/DukeRupert/hookscope/internal/jobs"
	"github.com/DukeRupert/hookscope/internal/storage"
	"github.com/DukeRupert/hookscope/internal/worker"
	"github.com/joho/godotenv"
)

type Config struct {
	Env         string
	Port        int
	LogLevel    string
	DatabaseUrl string

	// Connection used for admin RPCs such as get_retention_job_runs.
	// Falls back to DatabaseUrl.
	AdminDatabaseUrl string
	RPCSchema        string

	// Plan ceilings
	FreeMaxEndpoints int64
	FreeMaxRequests  int64
	FreeMaxAnalyses  int64
	ProMaxEndpoints  int64
	ProMaxRequests   int64
	ProMaxAnalyses   int64

	// Retention
	RetentionFreeDays       int
	RetentionProDays        int
	RetentionBatchSize      int
	RetentionArchiveEnabled bool
	RetentionSchedule       string

	// Worker
	WorkerEnabled         bool
	WorkerJobTimeout      time.Duration
	WorkerShutdownTimeout time.Duration

	// Archive storage: "local" or "r2"
	StorageProvider  string
	LocalStoragePath string

	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string

	// Basic auth for /admin routes. Admin routes are disabled when empty.
	AdminUsername string
	AdminPassword string

	// Key admin login lockouts on the address appended to X-Forwarded-For by
	// a trusted reverse proxy instead of the connection's remote address.
	TrustProxyHeaders bool

	// If both are empty, the /metrics endpoint will be unprotected (not recommended)
	MetricsUsername string
	MetricsPassword string
}

func NewConfig() (*Config, error) {
	// Load .env file if it exists (ignored in production)
	_ = godotenv.Load()

	defaults := domain.DefaultLimits()
	free, pro := defaults[domain.PlanFree], defaults[domain.PlanPro]

	cfg := &Config{
		Env:      getEnv("ENV", "development"),
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "debug"),

		RPCSchema: getEnv("RPC_SCHEMA", "public"),

		FreeMaxEndpoints: getEnvInt64("PLAN_FREE_MAX_ENDPOINTS", free.MaxEndpoints),
		FreeMaxRequests:  getEnvInt64("PLAN_FREE_MAX_REQUESTS", free.MaxRequestsPerMonth),
		FreeMaxAnalyses:  getEnvInt64("PLAN_FREE_MAX_ANALYSES", free.MaxAIAnalysesPerMonth),
		ProMaxEndpoints:  getEnvInt64("PLAN_PRO_MAX_ENDPOINTS", pro.MaxEndpoints),
		ProMaxRequests:   getEnvInt64("PLAN_PRO_MAX_REQUESTS", pro.MaxRequestsPerMonth),
		ProMaxAnalyses:   getEnvInt64("PLAN_PRO_MAX_ANALYSES", pro.MaxAIAnalysesPerMonth),

		RetentionFreeDays:       getEnvInt("RETENTION_FREE_DAYS", 1),
		RetentionProDays:        getEnvInt("RETENTION_PRO_DAYS", 30),
		RetentionBatchSize:      getEnvInt("RETENTION_BATCH_SIZE", 1000),
		RetentionArchiveEnabled: getEnvBool("RETENTION_ARCHIVE_ENABLED", false),
		RetentionSchedule:       getEnv("RETENTION_SCHEDULE", "0 3 * * *"),

		WorkerEnabled:         getEnvBool("WORKER_ENABLED", true),
		WorkerJobTimeout:      getEnvDuration("WORKER_JOB_TIMEOUT", 10*time.Minute),
		WorkerShutdownTimeout: getEnvDuration("WORKER_SHUTDOWN_TIMEOUT", 30*time.Second),

		StorageProvider:  getEnv("STORAGE_PROVIDER", storage.ProviderLocal),
		LocalStoragePath: getEnv("LOCAL_STORAGE_PATH", "./archive"),

		R2AccountID:       getEnv("R2_ACCOUNT_ID", ""),
		R2AccessKeyID:     getEnv("R2_ACCESS_KEY_ID", ""),
		R2SecretAccessKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
		R2BucketName:      getEnv("R2_BUCKET_NAME", ""),

		AdminUsername: getEnv("ADMIN_USERNAME", ""),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),

		TrustProxyHeaders: getEnvBool("TRUST_PROXY_HEADERS", false),

		MetricsUsername: getEnv("METRICS_USERNAME", ""),
		MetricsPassword: getEnv("METRICS_PASSWORD", ""),
	}

	// Required
	cfg.DatabaseUrl = os.Getenv("DATABASE_URL")
	if cfg.DatabaseUrl == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	cfg.AdminDatabaseUrl = getEnv("ADMIN_DATABASE_URL", cfg.DatabaseUrl)

	if err := cfg.Limits().Validate(); err != nil {
		return nil, fmt.Errorf("invalid plan limits: %w", err)
	}
	if err := cfg.Retention().Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Worker().Validate(); err != nil {
		return nil, err
	}

	switch cfg.StorageProvider {
	case storage.ProviderLocal:
	case storage.ProviderR2:
		if cfg.RetentionArchiveEnabled {
			if cfg.R2AccountID == "" {
				return nil, fmt.Errorf("R2_ACCOUNT_ID is required when STORAGE_PROVIDER is 'r2'")
			}
			if cfg.R2AccessKeyID == "" || cfg.R2SecretAccessKey == "" {
				return nil, fmt.Errorf("R2_ACCESS_KEY_ID and R2_SECRET_ACCESS_KEY are required when STORAGE_PROVIDER is 'r2'")
			}
			if cfg.R2BucketName == "" {
				return nil, fmt.Errorf("R2_BUCKET_NAME is required when STORAGE_PROVIDER is 'r2'")
			}
		}
	default:
		return nil, fmt.Errorf("STORAGE_PROVIDER must be either 'local' or 'r2', got: %s", cfg.StorageProvider)
	}

	if (cfg.AdminUsername == "") != (cfg.AdminPassword == "") {
		return nil, fmt.Errorf("ADMIN_USERNAME and ADMIN_PASSWORD must be set together")
	}

	return cfg, nil
}

// Limits builds the plan ceiling table injected into the quota evaluator.
func (c *Config) Limits() domain.Limits {
	return domain.Limits{
		domain.PlanFree: {
			MaxEndpoints:          c.FreeMaxEndpoints,
			MaxRequestsPerMonth:   c.FreeMaxRequests,
			MaxAIAnalysesPerMonth: c.FreeMaxAnalyses,
		},
		domain.PlanPro: {
			MaxEndpoints:          c.ProMaxEndpoints,
			MaxRequestsPerMonth:   c.ProMaxRequests,
			MaxAIAnalysesPerMonth: c.ProMaxAnalyses,
		},
	}
}

func (c *Config) Retention() jobs.RetentionConfig {
	return jobs.RetentionConfig{
		FreeDays:  c.RetentionFreeDays,
		ProDays:   c.RetentionProDays,
		BatchSize: c.RetentionBatchSize,
	}
}

func (c *Config) Worker() worker.Config {
	return worker.Config{
		JobTimeout:      c.WorkerJobTimeout,
		ShutdownTimeout: c.WorkerShutdownTimeout,
	}
}

func (c *Config) AdminEnabled() bool {
	return c.AdminUsername != "" && c.AdminPassword != ""
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
