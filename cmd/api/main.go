package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/hungtmh/online-auction-system-sub000/internal/api/rest"
	"github.com/hungtmh/online-auction-system-sub000/internal/infrastructure/config"
	"github.com/hungtmh/online-auction-system-sub000/internal/infrastructure/database"
	"github.com/hungtmh/online-auction-system-sub000/internal/infrastructure/events"
	"github.com/hungtmh/online-auction-system-sub000/internal/infrastructure/repository"
	"github.com/hungtmh/online-auction-system-sub000/internal/infrastructure/settings"
	"github.com/hungtmh/online-auction-system-sub000/internal/infrastructure/telemetry"
	"github.com/hungtmh/online-auction-system-sub000/internal/metrics"
	"github.com/hungtmh/online-auction-system-sub000/internal/service/bidding"
	"github.com/hungtmh/online-auction-system-sub000/internal/service/closer"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := telemetry.SetupLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	zapLogger, err := zap.NewProduction()
	if err != nil {
		logger.Error("failed to create zap logger", slog.Any("error", err))
		os.Exit(1)
	}
	defer zapLogger.Sync()

	provider, err := telemetry.Initialize(ctx, &telemetry.Config{
		ServiceName:    "auction-api",
		ServiceVersion: cfg.Version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		Enabled:        cfg.Telemetry.Enabled,
		SamplingRate:   cfg.Telemetry.SamplingRate,
		ExportTimeout:  cfg.Telemetry.ExportTimeout,
		BatchTimeout:   cfg.Telemetry.BatchTimeout,
	})
	if err != nil {
		logger.Error("failed to initialize telemetry", slog.Any("error", err))
		os.Exit(1)
	}
	defer provider.Shutdown(context.Background())

	pool, err := database.NewPool(ctx, &cfg.Database, zapLogger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:         cfg.Redis.URL,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	defer redisClient.Close()

	registry, err := metrics.NewRegistry("auction")
	if err != nil {
		logger.Error("failed to initialize metrics", slog.Any("error", err))
		os.Exit(1)
	}

	publisher := events.NewAsyncPublisher(events.Config{
		QueueSize: cfg.Events.QueueSize,
		Workers:   cfg.Events.Workers,
	}, zapLogger, events.NewLogSink(zapLogger))
	defer publisher.Close()

	settingsStore := settings.NewStore(redisClient, cfg.Settings.CacheTTL, zapLogger)

	auctionRepo := repository.NewAuctionRepository(pool)
	bidRepo := repository.NewBidRepository(pool)
	blockRepo := repository.NewBlockListRepository(pool)
	orderRepo := repository.NewOrderRepository(pool)
	ratingRepo := repository.NewRatingRepository(pool)
	txManager := repository.NewTxManager(pool)

	// The closer shares this lock table with live bidding so a close and
	// a bid on the same auction serialize.
	locks := bidding.NewKeyedMutex()

	svc := bidding.NewService(bidding.Deps{
		Auctions: auctionRepo,
		Bids:     bidRepo,
		Blocks:   blockRepo,
		Orders:   orderRepo,
		Ratings:  ratingRepo,
		Tx:       txManager,
		Settings: settingsStore,
		Locks:    locks,
		Notifier: publisher,
		Metrics:  registry,
		Logger:   zapLogger,
	})

	sweep := closer.New(
		auctionRepo, bidRepo, orderRepo, txManager, locks,
		publisher, registry, nil, zapLogger,
		closer.Config{
			Interval:   cfg.Closer.Interval,
			BatchLimit: cfg.Closer.BatchLimit,
		},
	)
	go sweep.Run(ctx)

	server := rest.NewServer(rest.ServerDeps{
		Config:   cfg,
		Handler:  rest.NewHandler(svc, logger),
		Logger:   logger,
		Registry: registry,
		Pool:     pool,
		Redis:    redisClient,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error("server failed", slog.Any("error", err))
		}
	}

	if err := server.Shutdown(context.Background()); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("server stopped")
}
