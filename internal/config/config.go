package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	pkgRetry "github.com/intakehq/briefing-backend/internal/pkg/retry"
	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	// Server configuration
	ServerAddr string `env:"SERVER_ADDR,notEmpty"`

	// API authentication. Empty list disables bearer auth (local runs).
	APITokens []string `env:"API_TOKENS" envSeparator:","`

	// Session store backend: "memory" or "postgres"
	SessionStore string        `env:"SESSION_STORE" envDefault:"memory"`
	SessionTTL   time.Duration `env:"SESSION_TTL" envDefault:"1h"`
	// How often expired Postgres session rows are purged.
	SessionCleanupInterval time.Duration `env:"SESSION_CLEANUP_INTERVAL" envDefault:"15m"`

	// Database configuration (required when SessionStore is "postgres")
	DatabaseURL         string        `env:"DATABASE_URL"`
	DBMaxConns          int           `env:"DB_MAX_CONNS" envDefault:"25"`
	DBMinConns          int           `env:"DB_MIN_CONNS" envDefault:"5"`
	DBMaxConnLifetime   time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"1h"`
	DBMaxConnIdleTime   time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"30m"`
	DBHealthCheckPeriod time.Duration `env:"DB_HEALTH_CHECK_PERIOD" envDefault:"1m"`

	// Content cache configuration
	CacheCfg CacheConfig `envPrefix:"CACHE_"`

	// External service configurations
	GenAIConnectorCfg    GenAIConnectorConfig    `envPrefix:"GENAI_"`
	CallbackConnectorCfg CallbackConnectorConfig `envPrefix:"CALLBACK_"`

	// Workflow tuning
	WorkflowCfg     WorkflowConfig     `envPrefix:"WORKFLOW_"`
	CompletenessCfg CompletenessConfig `envPrefix:"COMPLETENESS_"`

	// Logging configuration
	LogLevel string `env:"LOG_LEVEL,notEmpty"`

	// Mock configuration
	EnableMocks bool `env:"ENABLE_MOCKS" envDefault:"false"`

	// Environment (set from flag, not from env var)
	Environment string
}

// CacheConfig selects the content cache backend and the per-artifact TTLs.
type CacheConfig struct {
	Backend       string        `env:"BACKEND" envDefault:"memory"`
	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	QuestionsTTL  time.Duration `env:"QUESTIONS_TTL" envDefault:"1h"`
	DocumentsTTL  time.Duration `env:"DOCUMENTS_TTL" envDefault:"24h"`
}

type GenAIConnectorConfig struct {
	HTTPClientConfig
	ClassifyEndpoint      string `env:"CLASSIFY_ENDPOINT,notEmpty"`
	QuestionBatchEndpoint string `env:"QUESTION_BATCH_ENDPOINT,notEmpty"`
	RefinementEndpoint    string `env:"REFINEMENT_ENDPOINT,notEmpty"`
	SummaryEndpoint       string `env:"SUMMARY_ENDPOINT,notEmpty"`
	StackDocumentEndpoint string `env:"STACK_DOCUMENT_ENDPOINT,notEmpty"`

	// PrimaryModel is tried first; FallbackModels are tried in order when
	// generation is safety-blocked or times out.
	PrimaryModel   string               `env:"PRIMARY_MODEL" envDefault:"gemini-2.0-flash"`
	FallbackModels []string             `env:"FALLBACK_MODELS" envSeparator:"," envDefault:"gemini-1.5-flash,gemini-1.5-pro"`
	Retry          pkgRetry.RetryConfig `envPrefix:"RETRY_"`
}

type CallbackConnectorConfig struct {
	HTTPClientConfig
	Retry pkgRetry.RetryConfig `envPrefix:"RETRY_"`
}

type HTTPClientConfig struct {
	RequestTimeout        time.Duration `env:"TIMEOUT,notEmpty"`
	ConnTimeout           time.Duration `env:"CONN_TIMEOUT,notEmpty"`
	KeepAlive             time.Duration `env:"KEEP_ALIVE,notEmpty"`
	IdleConnTimeout       time.Duration `env:"IDLE_CONN_TIMEOUT,notEmpty"`
	ResponseHeaderTimeout time.Duration `env:"RESPONSE_HEADER_TIMEOUT,notEmpty"`
	Token                 string        `env:"TOKEN"`
	Url                   string        `env:"SERVICE_URL,notEmpty"`
}

// WorkflowConfig holds the intake flow limits.
type WorkflowConfig struct {
	DescriptionMinLength   int           `env:"DESCRIPTION_MIN_LENGTH" envDefault:"50"`
	DescriptionMaxLength   int           `env:"DESCRIPTION_MAX_LENGTH" envDefault:"8000"`
	QuestionBatchSize      int           `env:"QUESTION_BATCH_SIZE" envDefault:"5"`
	MaxRefinementQuestions int           `env:"MAX_REFINEMENT_QUESTIONS" envDefault:"3"`
	StackMinContentLength  int           `env:"STACK_MIN_CONTENT_LENGTH" envDefault:"200"`
	DocumentSyncCeiling    time.Duration `env:"DOCUMENT_SYNC_CEILING" envDefault:"180s"`
	JobTTL                 time.Duration `env:"JOB_TTL" envDefault:"2h"`
}

// CompletenessConfig tunes when a session becomes ready for summary.
type CompletenessConfig struct {
	ReadyThreshold float64 `env:"READY_THRESHOLD" envDefault:"100"`
	MinCoreShare   float64 `env:"MIN_CORE_SHARE" envDefault:"0.3"`
}

func LoadConfig(environment string) (*Config, error) {
	envFile := getEnvFile(environment)
	// Try to load env file, but don't fail if it's missing.
	// In containerized/prod environments variables are usually set externally.
	if err := godotenv.Load(envFile); err != nil {
		fmt.Printf("Warning: could not load %s file (this is ok if env vars are set externally): %v\n", envFile, err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	cfg.Environment = environment

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func validateConfig(cfg *Config) error {
	var errs []string

	switch cfg.SessionStore {
	case "memory":
	case "postgres":
		if cfg.DatabaseURL == "" {
			errs = append(errs, "DATABASE_URL is required when SESSION_STORE=postgres")
		}
	default:
		errs = append(errs, fmt.Sprintf("SESSION_STORE must be 'memory' or 'postgres', got %q", cfg.SessionStore))
	}

	switch cfg.CacheCfg.Backend {
	case "memory":
	case "redis":
		if cfg.CacheCfg.RedisAddr == "" {
			errs = append(errs, "CACHE_REDIS_ADDR is required when CACHE_BACKEND=redis")
		}
	default:
		errs = append(errs, fmt.Sprintf("CACHE_BACKEND must be 'memory' or 'redis', got %q", cfg.CacheCfg.Backend))
	}

	if cfg.DBMaxConns < 1 || cfg.DBMaxConns > 200 {
		errs = append(errs, fmt.Sprintf("DB_MAX_CONNS must be between 1 and 200, got %d", cfg.DBMaxConns))
	}

	if cfg.DBMinConns < 0 || cfg.DBMinConns > cfg.DBMaxConns {
		errs = append(errs, fmt.Sprintf("DB_MIN_CONNS must be between 0 and DB_MAX_CONNS(%d), got %d", cfg.DBMaxConns, cfg.DBMinConns))
	}

	if cfg.WorkflowCfg.DescriptionMinLength < 1 || cfg.WorkflowCfg.DescriptionMinLength >= cfg.WorkflowCfg.DescriptionMaxLength {
		errs = append(errs, fmt.Sprintf("WORKFLOW_DESCRIPTION_MIN_LENGTH must be positive and below the max, got %d", cfg.WorkflowCfg.DescriptionMinLength))
	}

	if cfg.WorkflowCfg.QuestionBatchSize < 1 || cfg.WorkflowCfg.QuestionBatchSize > 20 {
		errs = append(errs, fmt.Sprintf("WORKFLOW_QUESTION_BATCH_SIZE must be between 1 and 20, got %d", cfg.WorkflowCfg.QuestionBatchSize))
	}

	if cfg.CompletenessCfg.ReadyThreshold <= 0 || cfg.CompletenessCfg.ReadyThreshold > 100 {
		errs = append(errs, fmt.Sprintf("COMPLETENESS_READY_THRESHOLD must be in (0, 100], got %v", cfg.CompletenessCfg.ReadyThreshold))
	}

	if cfg.CompletenessCfg.MinCoreShare < 0 || cfg.CompletenessCfg.MinCoreShare > 1 {
		errs = append(errs, fmt.Sprintf("COMPLETENESS_MIN_CORE_SHARE must be in [0, 1], got %v", cfg.CompletenessCfg.MinCoreShare))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

func getEnvFile(environment string) string {
	switch environment {
	case "prod", "production":
		return ".env.prod"
	case "local", "dev", "development":
		return ".env.local"
	default:
		return fmt.Sprintf(".env.%s", environment)
	}
}
