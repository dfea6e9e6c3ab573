package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"maintenance-task-service/internal/config"
	"maintenance-task-service/internal/database"
	"maintenance-task-service/internal/notifier"
	"maintenance-task-service/internal/queue"
	"maintenance-task-service/internal/repository"
	"maintenance-task-service/internal/scheduler"
	"maintenance-task-service/internal/service"
	"maintenance-task-service/internal/worker"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
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

	// declares the exchange and queues before the pool starts consuming
	publisher, err := queue.NewRabbitMQPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.ExchangeName, cfg.Worker.Queues)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to setup rabbitmq publisher")
	}
	defer publisher.Close()

	store := queue.NewRedisStore(rdb)
	registry := notifier.NewNotifierRegistry(store, cfg.Redis.InboxLimit, log.Logger)

	pool := worker.NewWorkerPool(
		worker.WorkerConfig{
			NumWorkers:  cfg.Worker.NumWorkers,
			RabbitMQURL: cfg.RabbitMQ.URL,
			QueueNames:  cfg.Worker.Queues,
			DedupTTL:    cfg.Worker.DedupTTL,
		},
		registry,
		store,
		log.Logger,
	)

	if err := pool.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start worker pool")
	}
	log.Info().Int("workers", cfg.Worker.NumWorkers).Msg("worker pool started")

	emitter := queue.NewAsyncEmitter(publisher, queue.EmitterConfig{
		BufferSize:     cfg.Events.BufferSize,
		PublishTimeout: cfg.Events.PublishTimeout,
	}, log.Logger)

	ctx, cancel := context.WithCancel(context.Background())
	scanDone := make(chan struct{})

	if cfg.Overdue.Enabled {
		taskService := service.NewTaskService(repository.NewTaskRepository(db), emitter, log.Logger)
		scanner := scheduler.NewOverdueScanner(taskService, store, scheduler.OverdueConfig{
			Interval: cfg.Overdue.Interval,
			DedupTTL: cfg.Overdue.DedupTTL,
			LockTTL:  cfg.Overdue.LockTTL,
		}, log.Logger)

		go func() {
			defer close(scanDone)
			scanner.Run(ctx)
		}()
	} else {
		close(scanDone)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down worker pool...")

	cancel()
	<-scanDone
	emitter.Close()

	pool.Stop()

	pool.Wait()

	log.Info().Msg("worker ended")
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
