package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SAP-F-2025/answer-engine/internal/cache"
	"github.com/SAP-F-2025/answer-engine/internal/clients"
	"github.com/SAP-F-2025/answer-engine/internal/config"
	"github.com/SAP-F-2025/answer-engine/internal/handlers"
	"github.com/SAP-F-2025/answer-engine/internal/repositories/postgres"
	"github.com/SAP-F-2025/answer-engine/internal/services"
	"github.com/SAP-F-2025/answer-engine/internal/utils"
	"github.com/SAP-F-2025/answer-engine/internal/validator"
	"github.com/SAP-F-2025/answer-engine/pkg"
	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.IsProduction())
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	slogger := utils.ToSlogLogger(logger)

	if err := run(cfg, logger, slogger); err != nil {
		logger.LogError(err, "Answer engine stopped with error")
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger utils.Logger, slogger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		return err
	}
	repo := postgres.NewRepository(db)

	var answerCache cache.CacheService
	switch cfg.StorageBackend {
	case "memory":
		logger.Warn("Using in-memory answer storage, answers are lost on restart")
		answerCache = cache.NewMemoryCache()
	default:
		client, err := pkg.NewRedisClient(ctx, cfg)
		if err != nil {
			return err
		}
		defer client.Close()
		answerCache = cache.NewRedisCache(client, slogger)
	}

	bus, err := cfg.Events.CreateEventBus(slogger)
	if err != nil {
		return err
	}
	defer func() {
		if err := bus.Close(); err != nil {
			logger.Warn("Failed to close event bus", "error", err)
		}
	}()

	realtime := services.NewRealtimeSync(bus.Subscriber, cfg.Events.AnswerKeyTopic, slogger)
	if err := realtime.Start(ctx); err != nil {
		// sessions fall back to manual refresh
		logger.Warn("Realtime answer key sync unavailable", "error", err)
	}
	defer realtime.Close()

	lms := clients.NewLMSClient(clients.Config{
		BaseURL: cfg.LMSBaseURL,
		Token:   cfg.LMSAPIToken,
		Timeout: cfg.RequestTimeout,
		Logger:  slogger,
	})

	counts := services.NewQuestionCountStore(answerCache, slogger)
	resolver := services.NewAnswerKeyResolver(services.ResolverConfig{
		AnswerKeys:   repo.AnswerKey(),
		Syncer:       lms,
		Counts:       counts,
		DefaultCount: cfg.DefaultQuestionCount,
		SyncTimeout:  cfg.SyncTimeout,
		Logger:       slogger,
	})

	sessions := services.NewSessionManager(repo.Test(), services.SessionDeps{
		Resolver:      resolver,
		Cache:         answerCache,
		Counts:        counts,
		Realtime:      realtime,
		Grader:        lms,
		Receipts:      repo.SubmissionReceipt(),
		Publisher:     bus.Publisher,
		AnswerTTL:     cfg.AnswerCacheTTL,
		SubmitTimeout: cfg.SubmitTimeout,
		Logger:        slogger,
	}, slogger)
	defer sessions.CloseAll()
	go sessions.RunEviction(ctx, services.EvictionPolicy{
		IdleTTL:   cfg.SessionIdleTTL,
		Retention: cfg.SessionRetention,
		Interval:  cfg.SessionSweepInterval,
	})

	handlerManager := handlers.NewHandlerManager(
		sessions,
		services.NewAnswerKeyService(repo, bus.Publisher, slogger),
		services.NewReceiptService(repo.SubmissionReceipt(), slogger),
		validator.New(),
		logger,
		cfg.AllowedOrigins,
	)

	router := gin.New()
	router.Use(
		gin.Recovery(),
		utils.RequestID(),
		utils.LoggerMiddleware(logger, "/health"),
		utils.ContextLogger(logger),
	)
	handlerManager.SetupRoutes(router)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Answer engine listening", "port", cfg.Port, "storage", cfg.StorageBackend)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
