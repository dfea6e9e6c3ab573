package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"maintenance-task-service/internal/config"
	"maintenance-task-service/internal/database"
	"maintenance-task-service/internal/handler"
	"maintenance-task-service/internal/handler/health"
	"maintenance-task-service/internal/queue"
	"maintenance-task-service/internal/repository"
	"maintenance-task-service/internal/service"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.Log.Level)

	db, err := database.NewPostgresDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := repository.EnsureSchema(context.Background(), db); err != nil {
			log.Fatal().Err(err).Msg("failed to prepare database schema")
		}
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer rdb.Close()
	log.Info().Msg("connected to redis")

	publisher, err := queue.NewRabbitMQPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.ExchangeName, cfg.Worker.Queues)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to setup rabbitmq publisher")
	}
	defer publisher.Close()
	log.Info().Msg("connected to rabbitmq publisher")

	emitter := queue.NewAsyncEmitter(publisher, queue.EmitterConfig{
		BufferSize:     cfg.Events.BufferSize,
		PublishTimeout: cfg.Events.PublishTimeout,
	}, log.Logger)

	store := queue.NewRedisStore(rdb)
	taskRepo := repository.NewTaskRepository(db)
	healthRepo := repository.NewHealthRepository(db)

	taskService := service.NewTaskService(taskRepo, emitter, log.Logger)
	healthService := service.NewHealthService(healthRepo, store)

	router := handler.SetupRouter(handler.RouterConfig{
		TaskHandler:         handler.NewTaskHandler(taskService, log.Logger),
		NotificationHandler: handler.NewNotificationHandler(store, cfg.Redis.InboxLimit, log.Logger),
		HealthHandler:       health.NewHealthHandler(healthService),
		Logger:              log.Logger,
		RateLimit:           rate.Limit(cfg.RateLimit.RequestsPerSecond),
		RateBurst:           cfg.RateLimit.Burst,
	})

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	go func() {
		log.Info().Str("addr", serverAddr).Msg("starting http server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	// drain pending events before the publisher is closed
	emitter.Close()

	log.Info().Msg("server exited")
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
