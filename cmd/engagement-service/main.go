package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/EduPulseAI/engagement-service/internal/handler"
	"github.com/EduPulseAI/engagement-service/internal/pipeline"
	"github.com/EduPulseAI/engagement-service/internal/repository"
	"github.com/EduPulseAI/engagement-service/internal/service"
	"github.com/EduPulseAI/engagement-service/pkg/cache"
	"github.com/EduPulseAI/engagement-service/pkg/config"
	"github.com/EduPulseAI/engagement-service/pkg/database"
	"github.com/EduPulseAI/engagement-service/pkg/logger"
	"github.com/EduPulseAI/engagement-service/pkg/messaging"
	reqidmiddleware "github.com/EduPulseAI/engagement-service/pkg/middleware/requestid"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := service.NewMetricsService()

	// Optional sinks. The pipeline runs without them; only emission to the
	// score topic is mandatory.
	opts := pipeline.Options{}
	var cacheRepo *repository.ScoreCacheRepository
	var historyRepo *repository.ScoreHistoryRepository

	if cfg.Cache.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Fatalw("redis connection failed", "error", err)
		}
		defer redisClient.Close() //nolint:errcheck
		cacheRepo = repository.NewScoreCacheRepository(redisClient, cfg.Cache.TTL)
		opts.Cache = cacheRepo
		logr.Sugar().Infow("score cache enabled", "ttl", cfg.Cache.TTL)
	}

	if cfg.History.Enabled {
		db, err := database.NewPostgres(cfg.Database)
		if err != nil {
			logr.Sugar().Fatalw("postgres connection failed", "error", err)
		}
		defer db.Close() //nolint:errcheck
		historyRepo = repository.NewScoreHistoryRepository(db)
		opts.History = historyRepo
		logr.Sugar().Infow("score history enabled", "database", cfg.Database.Name)
	}

	producer := messaging.NewScoreProducer(cfg.Kafka, logr)
	defer producer.Close() //nolint:errcheck

	driver := pipeline.NewDriver(
		cfg,
		service.NewNormalizerService(),
		service.NewScoringService(cfg.Scoring),
		service.NewPatternDetector(cfg.Scoring),
		service.NewWindowAssigner(cfg.Window),
		producer,
		metrics,
		logr,
		opts,
	)
	driver.Start(ctx)

	quizConsumer := messaging.NewConsumer(
		messaging.NewReader(cfg.Kafka, cfg.Kafka.QuizAnswersTopic),
		driver.HandleQuizAnswer,
		pipeline.StreamQuizAnswers,
		logr,
	)
	sessionConsumer := messaging.NewConsumer(
		messaging.NewReader(cfg.Kafka, cfg.Kafka.SessionEventsTopic),
		driver.HandleSessionEvent,
		pipeline.StreamSessionEvents,
		logr,
	)

	consumerErrs := make(chan error, 2)
	go func() { consumerErrs <- quizConsumer.Run(ctx) }()
	go func() { consumerErrs <- sessionConsumer.Run(ctx) }()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(reqidmiddleware.Middleware())
	router.Use(logger.GinMiddleware(logr))

	ops := handler.NewOpsHandler(metrics, readerOrNil(cacheRepo), historyOrNil(historyRepo), driver.Ready)
	ops.RegisterRoutes(router)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.OpsPort),
		Handler: router,
	}

	go func() {
		logr.Sugar().Infow("ops server starting", "addr", server.Addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Errorw("ops server failed", "error", err)
			stop()
		}
	}()

	select {
	case <-ctx.Done():
		logr.Sugar().Infow("shutdown signal received")
	case err := <-consumerErrs:
		if err != nil {
			logr.Sugar().Errorw("consumer failed", "error", err)
		}
		stop()
	}

	// Shutdown order matters: stop the intake first, then drain the shards,
	// then flush the producer via its deferred Close.
	_ = quizConsumer.Close()
	_ = sessionConsumer.Close()
	driver.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("ops server shutdown failed", "error", err)
	}

	logr.Sugar().Infow("engagement service stopped")
}

// readerOrNil avoids handing the handler a typed nil interface.
func readerOrNil(repo *repository.ScoreCacheRepository) handler.LatestScoreReader {
	if repo == nil {
		return nil
	}
	return repo
}

func historyOrNil(repo *repository.ScoreHistoryRepository) handler.ScoreHistoryReader {
	if repo == nil {
		return nil
	}
	return repo
}
