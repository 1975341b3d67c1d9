package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tuanvumaihuynh/tenant-inventory/internal/config"
	"github.com/tuanvumaihuynh/tenant-inventory/internal/event"
	"github.com/tuanvumaihuynh/tenant-inventory/internal/http"
	"github.com/tuanvumaihuynh/tenant-inventory/internal/log"
	"github.com/tuanvumaihuynh/tenant-inventory/internal/mail"
	"github.com/tuanvumaihuynh/tenant-inventory/internal/notify"
	"github.com/tuanvumaihuynh/tenant-inventory/internal/relay"
	"github.com/tuanvumaihuynh/tenant-inventory/internal/repository"
	"github.com/tuanvumaihuynh/tenant-inventory/internal/service"
	"github.com/tuanvumaihuynh/tenant-inventory/internal/storage/cache"
	"github.com/tuanvumaihuynh/tenant-inventory/internal/storage/db"
	"github.com/tuanvumaihuynh/tenant-inventory/internal/storage/mq"
	"github.com/tuanvumaihuynh/tenant-inventory/internal/telemetry"
	"github.com/tuanvumaihuynh/tenant-inventory/pkg/cmdutil"
	"github.com/tuanvumaihuynh/tenant-inventory/pkg/validator"
)

func main() {
	if err := run(); err != nil {
		fmt.Printf("error running standalone application: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	time.Local = time.UTC

	type Config struct {
		Log        config.Log
		Postgres   config.Postgres
		Redis      config.Redis
		Cache      config.Cache
		Inventory  config.Inventory
		Dispatcher config.Dispatcher
		HTTP       config.HTTP
		Relay      config.Relay
		Kafka      config.Kafka
		Mail       config.Mail
		Otel       config.Otel
	}
	cfg, err := config.New[Config]()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	logger := log.NewSlogLogger(cfg.Log)

	cleanupTracer, err := telemetry.InitTracer(ctx, cfg.Otel)
	if err != nil {
		return fmt.Errorf("error initializing tracer: %w", err)
	}
	defer func() {
		if err := cleanupTracer(ctx); err != nil {
			logger.ErrorContext(ctx, "error cleaning up tracer", slog.Any("error", err))
		}
	}()

	pgxPool, err := db.NewPgxPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("error creating pgx pool: %w", err)
	}
	defer pgxPool.Close()

	dbClient := db.NewClient(pgxPool)

	cacheStore, err := newCacheStore(ctx, cfg.Cache, cfg.Redis)
	if err != nil {
		return fmt.Errorf("error creating cache store: %w", err)
	}
	defer func() {
		if err := cacheStore.Close(); err != nil {
			logger.ErrorContext(ctx, "error closing cache store", slog.Any("error", err))
		}
	}()
	logger.InfoContext(ctx, "cache store ready", slog.String("backend", cfg.Cache.Backend.String()))

	cacheCoordinator := cache.NewCoordinator(cacheStore, cfg.Cache.KeyPrefix, logger,
		cache.NewMetrics(prometheus.DefaultRegisterer))

	kafkaProducer, err := mq.NewKafkaProducer(ctx, cfg.Kafka)
	if err != nil {
		return fmt.Errorf("error creating kafka producer: %w", err)
	}
	defer kafkaProducer.Close()

	kafkaConsumer, err := mq.NewKafkaConsumer(ctx, cfg.Kafka, logger)
	if err != nil {
		return fmt.Errorf("error creating kafka consumer: %w", err)
	}
	defer kafkaConsumer.Close()

	productRepository := repository.NewProductRepository()
	storeRepository := repository.NewStoreRepository()
	outboxMsgRepository := repository.NewOutboxMsgRepository(dbClient)

	dispatcher := notify.NewDispatcher(cfg.Dispatcher, logger, notify.NewOutboxSink(dbClient, outboxMsgRepository))

	inventoryService := service.NewInventoryService(
		cfg.Inventory,
		cfg.Cache,
		logger,
		dbClient,
		productRepository,
		service.NewQuotaEnforcer(storeRepository, productRepository),
		cacheCoordinator,
		dispatcher,
		validator.MustNewDefaultValidator(),
	)

	interruptChan := cmdutil.InterruptChan()
	var wg sync.WaitGroup

	wg.Go(func() {
		svc := event.New(logger, kafkaConsumer, dbClient, storeRepository, mail.NewSender(cfg.Mail, logger))
		cleanup, err := svc.Run(ctx)
		if err != nil {
			panic(fmt.Errorf("error running event service: %w", err))
		}
		logger.InfoContext(ctx, "event service started")

		<-interruptChan

		logger.InfoContext(ctx, "event service is shutting down")
		cleanup()

		logger.InfoContext(ctx, "event service is stopped")
	})

	// The dispatcher outlives the HTTP server so tasks scheduled by in-flight requests are drained.
	dispatcherStopped := make(chan struct{})
	wg.Go(func() {
		cleanup := dispatcher.Run(ctx)
		logger.InfoContext(ctx, "dispatcher started")

		<-dispatcherStopped

		logger.InfoContext(ctx, "dispatcher is shutting down")
		cleanup()

		logger.InfoContext(ctx, "dispatcher is stopped")
	})

	wg.Go(func() {
		defer close(dispatcherStopped)

		svc := http.New(cfg.HTTP, logger, prometheus.DefaultRegisterer, prometheus.DefaultGatherer, inventoryService)
		cleanup, err := svc.Run(ctx)
		if err != nil {
			panic(fmt.Errorf("error running http service: %w", err))
		}

		logger.InfoContext(ctx, "http service started", slog.String("address", fmt.Sprintf(":%d", cfg.HTTP.Port)))

		<-interruptChan

		logger.InfoContext(ctx, "http service is shutting down")
		if err := cleanup(ctx); err != nil {
			logger.ErrorContext(ctx, "error shutting down http service", slog.Any("error", err))
		}

		logger.InfoContext(ctx, "http service is stopped")
	})

	wg.Go(func() {
		svc := relay.NewService(cfg.Relay, logger, dbClient, outboxMsgRepository, kafkaProducer)
		cleanup := svc.Run(ctx)
		logger.InfoContext(ctx, "relay service started")

		<-interruptChan

		logger.InfoContext(ctx, "relay service is shutting down")
		cleanup()

		logger.InfoContext(ctx, "relay service is stopped")
	})

	wg.Wait()

	return nil
}

func newCacheStore(ctx context.Context, cfg config.Cache, redisCfg config.Redis) (cache.Store, error) {
	switch cfg.Backend {
	case config.CacheBackendMemory:
		return cache.NewMemoryStore(time.Minute), nil
	default:
		client, err := cache.NewRedisClient(ctx, redisCfg)
		if err != nil {
			return nil, err
		}
		return cache.NewRedisStore(client), nil
	}
}
