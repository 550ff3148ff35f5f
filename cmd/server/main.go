package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/99minutos/geofence-system/internal/api"
	"github.com/99minutos/geofence-system/internal/api/handler"
	"github.com/99minutos/geofence-system/internal/core/ports"
	"github.com/99minutos/geofence-system/internal/core/service"
	mongodb "github.com/99minutos/geofence-system/internal/infrastructure/db/mongo"
	redisdb "github.com/99minutos/geofence-system/internal/infrastructure/db/redis"
	"github.com/99minutos/geofence-system/internal/infrastructure/queue"
	"github.com/99minutos/geofence-system/internal/infrastructure/sink"
	"github.com/99minutos/geofence-system/internal/pkg/config"
	"github.com/99minutos/geofence-system/internal/pkg/telemetry"
	"github.com/99minutos/geofence-system/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

// @title                       Geofence API
// @version                     1.0
// @description                 Server-authoritative geofence evaluation and transition dispatch.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: cfg.Telemetry.ServiceName,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Tracing ---
	tracing, err := telemetry.NewTracing(ctx, cfg.Telemetry.OTLPEndpoint, cfg.Telemetry.ServiceName)
	if err != nil {
		log.Fatal().Err(err).Msg("tracing init failed")
	}
	tracing.SetGlobal()

	// --- Stores ---
	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		log.Fatal().Err(err).Msg("mongo connect failed")
	}
	regionRepo := mongodb.NewRegionRepository(db)
	stateRepo := mongodb.NewStateRepository(db)
	transitionRepo := mongodb.NewTransitionRepository(db)
	if err := mongodb.EnsureIndexes(ctx, regionRepo, stateRepo, transitionRepo); err != nil {
		log.Fatal().Err(err).Msg("mongo indexes failed")
	}

	checks := map[string]handler.Check{"mongo": mongodb.Ping(mongoClient)}

	var locker ports.KeyLocker = service.NewMemoryLocker()
	if cfg.Lock.Backend == "redis" {
		redisClient, err := redisdb.Connect(ctx, redisdb.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err != nil {
			log.Fatal().Err(err).Msg("redis connect failed")
		}
		defer redisClient.Close()
		locker = redisdb.NewLocker(redisClient, cfg.Lock.TTL, logger.Component("redis_locker"))
		checks["redis"] = redisdb.Ping(redisClient)
	} else {
		log.Warn().Msg("in-memory key locks: run a single server process per store or set LOCK_BACKEND=redis")
	}

	// --- Dispatch ---
	dispatcher := queue.NewDispatcher(queue.Options{
		Workers:     cfg.Dispatch.Workers,
		QueueSize:   cfg.Dispatch.QueueSize,
		SinkTimeout: cfg.Dispatch.SinkTimeout,
	}, logger.Component("dispatcher"))
	analytics := sink.NewAnalyticsSink(cfg.Sinks.KafkaBrokers, cfg.Sinks.KafkaTopic)
	dispatcher.Register(sink.NewLoggerSink(transitionRepo, logger.Component("logger_sink")))
	dispatcher.Register(sink.NewWebhookSink(cfg.Sinks.WebhookURL, cfg.Sinks.WebhookSecret, nil))
	dispatcher.Register(analytics)
	dispatcher.Start(context.WithoutCancel(ctx))

	// --- Services ---
	cache := service.NewRegionCache(regionRepo, cfg.Regions.CacheTTL, cfg.Regions.FetchTimeout, logger.Component("region_cache"))
	evaluation := service.NewEvaluationService(cache, stateRepo, dispatcher, locker, service.EvaluationConfig{
		VertexCount:     cfg.Regions.VertexCount,
		LockWaitTimeout: cfg.Lock.WaitTimeout,
	}, logger.Component("evaluation"))
	regions := service.NewRegionService(regionRepo, cache, cfg.Regions.VertexCount, logger.Component("regions"))

	e := api.NewRouter(api.Dependencies{
		Evaluation: evaluation,
		Regions:    regions,
		Checks:     checks,
		JWTSecret:  cfg.JWTSecret,
		Log:        logger.Component("http"),
	})

	go func() {
		log.Info().Str("port", cfg.Port).Str("lock_backend", cfg.Lock.Backend).Msg("server starting")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	if err := dispatcher.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("dispatcher shutdown")
	}
	if err := analytics.Close(); err != nil {
		log.Error().Err(err).Msg("analytics sink close")
	}
	if err := tracing.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("tracing shutdown")
	}
	if err := mongoClient.Disconnect(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("mongo disconnect")
	}
	log.Info().Msg("server stopped")
}
