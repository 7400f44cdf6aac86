package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"ats-backend/internal/api"
	"ats-backend/internal/candidates"
	"ats-backend/internal/common/auth"
	commonaws "ats-backend/internal/common/aws"
	"ats-backend/internal/common/config"
	"ats-backend/internal/common/database"
	apperrors "ats-backend/internal/common/errors"
	"ats-backend/internal/common/logger"
	"ats-backend/internal/common/observability"
	"ats-backend/internal/notify"
	"ats-backend/internal/requirements"
	"ats-backend/internal/search"
	"ats-backend/internal/stats"
	"ats-backend/internal/users"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting ATS API server",
		zap.String("environment", cfg.App.Environment),
		zap.Int("port", cfg.Server.Port),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis with retry ---
	var redisClient *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redisClient, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redisClient.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redisClient.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init Elasticsearch with retry (optional) ---
	var esClient *database.ElasticsearchClient
	if cfg.Search.Enabled {
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping()
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		zapLog.Info("Elasticsearch connected successfully")
	}

	// --- Init AWS clients ---
	s3Client, err := commonaws.NewS3Client(ctx, cfg.Integrations.AWS.Region, cfg.Integrations.AWS.S3.Bucket)
	if err != nil {
		zapLog.Fatal("s3 client init failed", zap.Error(err))
	}

	var sesClient *commonaws.SESClient
	if cfg.Notifications.Email.Enabled {
		sesClient, err = commonaws.NewSESClient(ctx, cfg.Integrations.AWS.Region)
		if err != nil {
			zapLog.Fatal("ses client init failed", zap.Error(err))
		}
	}
	var snsClient *commonaws.SNSClient
	if cfg.Notifications.SMS.Enabled {
		snsClient, err = commonaws.NewSNSClient(ctx, cfg.Integrations.AWS.Region)
		if err != nil {
			zapLog.Fatal("sns client init failed", zap.Error(err))
		}
	}

	// --- Wire stores, services and handlers ---
	errHandler := apperrors.NewErrorHandler(log)

	userStore := users.NewStore(pg.GetDB())

	var emailSender notify.EmailSender
	if sesClient != nil {
		emailSender = sesClient
	}
	var smsSender notify.SMSSender
	if snsClient != nil {
		smsSender = snsClient
	}
	notifier := notify.NewNotifier(emailSender, smsSender, userStore,
		cfg.Notifications, cfg.Integrations.AWS.SNS.DefaultSMSSenderID, log)

	var searchService *search.Service
	var searchHandler *search.Handler
	var indexer candidates.Indexer
	if esClient != nil {
		searchService = search.NewService(esClient.Client, cfg.Search.Index, log)
		searchHandler = search.NewHandler(searchService, errHandler)
		indexer = searchService
	}

	requirementStore := requirements.NewStore(pg.GetDB())
	requirementService := requirements.NewService(requirementStore, notifier, log)
	requirementHandler := requirements.NewHandler(requirementService, errHandler)

	candidateStore := candidates.NewStore(pg.GetDB())
	candidateService := candidates.NewService(candidateStore, requirementStore, s3Client, notifier, indexer, log)
	candidateHandler := candidates.NewHandler(candidateService, errHandler)

	statsService := stats.NewService(pg.GetDB(), redisClient,
		time.Duration(cfg.Stats.CacheTTL)*time.Second, log)
	statsHandler := stats.NewHandler(statsService, errHandler)

	authMiddleware := auth.NewMiddleware(
		auth.NewTokenVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer),
		userStore, errHandler, log,
	)

	router := api.NewRouter(api.Deps{
		Auth:          authMiddleware,
		Requirements:  requirementHandler,
		Candidates:    candidateHandler,
		Stats:         statsHandler,
		Search:        searchHandler,
		Logger:        log,
		Observability: obs,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
		IdleTimeout:  config.GetDuration(cfg.Server.IdleTimeout),
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("http server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, draining connections...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("graceful shutdown failed", zap.Error(err))
	}
	zapLog.Info("Server stopped")
}
