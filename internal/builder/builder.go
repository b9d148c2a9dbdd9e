package builder

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/intakehq/briefing-backend/internal/api"
	workflowapi "github.com/intakehq/briefing-backend/internal/api/workflow"
	"github.com/intakehq/briefing-backend/internal/cache"
	"github.com/intakehq/briefing-backend/internal/config"
	"github.com/intakehq/briefing-backend/internal/integration/callback"
	"github.com/intakehq/briefing-backend/internal/integration/genai"
	"github.com/intakehq/briefing-backend/internal/pkg/completeness"
	"github.com/intakehq/briefing-backend/internal/pkg/validator"
	"github.com/intakehq/briefing-backend/internal/repository"
	"github.com/intakehq/briefing-backend/internal/usecase/workflow"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

func Build(environment string) (*App, error) {
	ctx := context.Background()

	cfg, err := config.LoadConfig(environment)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := setupLogger(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("setup logger: %w", err)
	}

	logger.Info("Building application",
		zap.String("environment", cfg.Environment),
		zap.String("server_addr", cfg.ServerAddr),
	)

	// Initialize session repository
	var db *pgxpool.Pool
	var sessionRepo repository.SessionRepository
	var stopCleanup context.CancelFunc

	switch cfg.SessionStore {
	case "postgres":
		db, err = setupDatabase(ctx, cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("setup database: %w", err)
		}

		logger.Info("Running database migrations")
		if err := repository.RunMigrations(cfg.DatabaseURL); err != nil {
			db.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		logger.Info("Database migrations completed successfully")

		pgRepo := repository.NewSessionPostgres(db, cfg.SessionTTL)

		var cleanupCtx context.Context
		cleanupCtx, stopCleanup = context.WithCancel(context.Background())
		pgRepo.StartCleanup(cleanupCtx, cfg.SessionCleanupInterval, logger)

		sessionRepo = pgRepo
	default:
		logger.Info("Using in-memory session store")
		sessionRepo = repository.NewSessionMemory(cfg.SessionTTL)
	}
	logger.Info("Repositories initialized")

	// Initialize content cache
	var contentCache cache.Cache
	var redisCache *cache.RedisCache

	switch cfg.CacheCfg.Backend {
	case "redis":
		redisCache = cache.NewRedisCache(cache.RedisOptions{
			Addr:     cfg.CacheCfg.RedisAddr,
			Password: cfg.CacheCfg.RedisPassword,
			DB:       cfg.CacheCfg.RedisDB,
		})
		contentCache = redisCache
		logger.Info("Using Redis content cache", zap.String("addr", cfg.CacheCfg.RedisAddr))
	default:
		contentCache = cache.NewMemoryCache()
		logger.Info("Using in-memory content cache")
	}

	// Initialize connectors
	callbackConnector := callback.NewConnector(cfg.CallbackConnectorCfg, logger)

	var genaiConnector workflow.GenAIConnector
	if cfg.EnableMocks {
		logger.Info("Using mock connector for the generation service")
		genaiConnector = genai.NewMockConnector(logger)
	} else {
		logger.Info("Using real connector for the generation service")
		genaiConnector = genai.NewConnector(cfg.GenAIConnectorCfg, logger)
	}

	// Initialize validators and the completeness evaluator
	workflowValidator := validator.NewValidator(cfg.WorkflowCfg)
	evaluator := completeness.NewEvaluator(completeness.Policy{
		ReadyThreshold: cfg.CompletenessCfg.ReadyThreshold,
		MinCoreShare:   cfg.CompletenessCfg.MinCoreShare,
	})
	logger.Info("Validators initialized")

	// Initialize use cases
	workflowUC := workflow.NewUsecase(
		sessionRepo,
		contentCache,
		evaluator,
		workflowValidator,
		genaiConnector,
		callbackConnector,
		cfg.WorkflowCfg,
		cfg.CacheCfg,
		logger,
	)
	logger.Info("Use cases initialized")

	// Setup API handlers
	workflowHandler := workflowapi.NewHandler(workflowUC)
	logger.Info("API handlers initialized")

	// Setup router
	router := api.SetupRouter(workflowHandler, cfg.APITokens, logger)
	logger.Info("HTTP router configured")

	// Create HTTP server. The write timeout must outlive the synchronous
	// document generation ceiling plus the router timeout margin.
	server := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 250 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Info("Application built successfully",
		zap.String("environment", cfg.Environment),
	)

	return &App{
		server:      server,
		db:          db,
		cache:       redisCache,
		stopCleanup: stopCleanup,
		logger:      logger,
	}, nil
}
