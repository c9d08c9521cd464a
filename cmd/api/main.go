package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lutefd/fairplay-api/internal/cache"
	"github.com/lutefd/fairplay-api/internal/config"
	"github.com/lutefd/fairplay-api/internal/events"
	httpserver "github.com/lutefd/fairplay-api/internal/http"
	"github.com/lutefd/fairplay-api/internal/logger"
	"github.com/lutefd/fairplay-api/internal/metrics"
	"github.com/lutefd/fairplay-api/internal/projections"
	"github.com/lutefd/fairplay-api/internal/scheduler"
	"github.com/lutefd/fairplay-api/internal/storage/memory"
	"github.com/lutefd/fairplay-api/internal/storage/postgres"
	"github.com/lutefd/fairplay-api/internal/stream"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// backend is everything the process needs from a storage driver.
type backend interface {
	projections.LineupSource
	projections.SnapshotStore
	httpserver.LineupStore
	scheduler.TeamSeasonLister
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("load config")
	}
	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, ready, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.StorageDriver).Msg("open storage")
	}
	defer closeStore()

	recorder := metrics.NewRecorder()
	opts := projections.Options{
		Metrics:     recorder,
		Logger:      log,
		Parallelism: cfg.RecomputeParallelism,
		Retries:     cfg.RecomputeRetries,
	}

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		rdb, err = openRedis(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("connect redis")
		}
		defer rdb.Close()
		opts.Cache = cache.NewSnapshotCache(rdb, cfg.RedisCacheTTL)
	}

	svc := projections.NewService(store, store, opts)
	bus := events.NewBus()
	bus.SubscribeLineups(svc.HandleLineupMutation)
	bus.SubscribeDeletions(svc.HandleDeletion)

	if rdb != nil {
		consumer := stream.NewConsumer(rdb, bus, stream.Config{
			Stream:    cfg.LineupStream,
			Group:     cfg.LineupStreamGroup,
			Consumer:  cfg.ConsumerName,
			Redeliver: cfg.LineupStreamRedeliver,
		}, log)
		go func() {
			if err := consumer.Run(ctx); err != nil {
				log.Error().Err(err).Msg("lineup stream consumer stopped")
			}
		}()
	}

	if cfg.ReconcileSchedule != "" {
		sched := scheduler.New(ctx, log)
		job := scheduler.NewReconcileJob(store, svc, cfg.ReconcileLookback, cfg.RecomputeParallelism, log)
		if err := sched.AddJob(cfg.ReconcileSchedule, job); err != nil {
			log.Fatal().Err(err).Str("schedule", cfg.ReconcileSchedule).Msg("register reconcile job")
		}
		sched.Start()
		defer sched.Stop()
	}

	srv := httpserver.NewServer(httpserver.Dependencies{
		Positions:   svc,
		Lineups:     store,
		Bus:         bus,
		Metrics:     recorder,
		Logger:      log,
		APIToken:    cfg.APIToken,
		CORSOrigins: cfg.CORSOrigins,
		Ready:       ready,
	})

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Str("driver", cfg.StorageDriver).Bool("redis", rdb != nil).Msg("api listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("listen and serve")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
}

func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (backend, func(context.Context) error, func(), error) {
	if cfg.StorageDriver == config.DriverMemory {
		log.Warn().Msg("using in-memory storage, data is lost on restart")
		return memory.NewStore(), nil, func() {}, nil
	}
	store, err := postgres.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, nil, err
	}
	return store, store.Ping, store.Close, nil
}

func openRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

var (
	_ backend = (*memory.Store)(nil)
	_ backend = (*postgres.Store)(nil)
)
