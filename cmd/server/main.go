package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/charlesng35/shortlink/internal/api"
	"github.com/charlesng35/shortlink/internal/app"
	"github.com/charlesng35/shortlink/internal/app/maintenance"
	"github.com/charlesng35/shortlink/internal/cache"
	"github.com/charlesng35/shortlink/internal/clicks"
	"github.com/charlesng35/shortlink/internal/database"
	"github.com/charlesng35/shortlink/internal/handlers"
	"github.com/charlesng35/shortlink/internal/middleware"
	"github.com/charlesng35/shortlink/internal/monitoring"
	"github.com/charlesng35/shortlink/internal/monitoring/checks"
	"github.com/charlesng35/shortlink/internal/queue"
	"github.com/charlesng35/shortlink/internal/services"
	"github.com/charlesng35/shortlink/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "shortlink: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := app.LoadConfig()
	if err != nil {
		return err
	}

	if err := app.ConfigureLogging(cfg.Server.LogLevel); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	defer logger.Sync()
	log := logger.WithModule("server")

	db, err := database.Open(cfg.Database.StoreConfig())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sessionSecret, err := database.EnsureAdminSessionSecret(ctx, db, cfg.Admin.SessionSecret)
	if err != nil {
		return err
	}

	// Cache: Redis when configured, otherwise the database-backed store.
	var (
		store       cache.Store
		redisClient *cache.RedisClient
	)
	if cfg.Cache.Redis.Enabled {
		redisClient, err = cache.NewRedisClient(cfg.Cache.RedisClientConfig())
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer redisClient.Close()
		store = redisClient
		log.Info("using redis cache", zap.String("address", cfg.Cache.Redis.Address))
	} else {
		store = cache.NewDatabaseStore(db)
		log.Info("using database cache")
	}

	resolver, err := services.NewResolverService(db, store, services.WithResolverTTL(cfg.Cache.TTL))
	if err != nil {
		return err
	}
	links, err := services.NewLinkService(db, store, resolver)
	if err != nil {
		return err
	}
	admin, err := services.NewAdminService(store, cfg.Admin.PasswordHash, sessionSecret,
		services.WithAdminSessionTTL(cfg.Admin.SessionTTL))
	if err != nil {
		return err
	}

	aggregator, err := clicks.NewAggregator(db)
	if err != nil {
		return err
	}

	publisher, queueDepth, err := buildClickPipeline(ctx, cfg, redisClient, aggregator, log)
	if err != nil {
		return err
	}

	health := monitoring.NewHealthManager()
	health.RegisterReadiness(checks.Database(db, 0))
	health.RegisterReadiness(checks.Redis(redisClient, cfg.Cache.Redis.Enabled, cfg.Cache.Redis.Timeout))
	if queueDepth != nil {
		health.RegisterReadiness(checks.Queue(queueDepth, cfg.Queue.AlertDepth, 0))
	}

	var rateStore middleware.RateStore
	if cfg.RateLimit.Enabled {
		if redisClient != nil {
			rateStore = middleware.NewCacheRateStore(redisClient)
		} else {
			rateStore = middleware.NewMemoryRateStore()
		}
	}

	if cfg.Maintenance.Enabled {
		var purger maintenance.ExpiredPurger
		if dbStore, ok := store.(*cache.DatabaseStore); ok {
			purger = dbStore
		}
		cleaner := maintenance.NewCleaner(db, store, purger, maintenance.WithSchedule(cfg.Maintenance.Schedule))
		if err := cleaner.Start(); err != nil {
			return fmt.Errorf("start maintenance: %w", err)
		}
		defer cleaner.Stop()
	}

	router, err := api.NewRouter(api.Deps{
		DB:        db,
		Config:    cfg,
		Resolver:  resolver,
		Links:     links,
		Admin:     admin,
		Publisher: publisher,
		Health:    health,
		RateStore: rateStore,
	})
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// buildClickPipeline wires the single authoritative click write path for the
// configured queue driver. Exactly one component applies clicks: the embedded
// consumer for "memory", cmd/clickworker for "redis", and the publisher
// itself for "none".
func buildClickPipeline(ctx context.Context, cfg *app.Config, redisClient *cache.RedisClient, aggregator *clicks.Aggregator, log *zap.Logger) (handlers.ClickPublisher, checks.QueueDepther, error) {
	switch cfg.Queue.Driver {
	case "", "memory":
		q := queue.NewMemoryQueue(cfg.Queue.Capacity)
		consumer, err := queue.NewConsumer(q, aggregator, queue.ConsumerConfig{
			BatchSize: cfg.Clicks.BatchSize,
			Linger:    cfg.Clicks.Linger,
		})
		if err != nil {
			return nil, nil, err
		}
		go func() {
			if err := consumer.Run(ctx); err != nil {
				log.Error("click consumer stopped", zap.Error(err))
			}
		}()
		return q, q, nil

	case "redis":
		if redisClient == nil {
			return nil, nil, errors.New("queue driver redis requires the redis cache")
		}
		q, err := queue.NewRedisQueue(redisClient, cfg.Queue.Key)
		if err != nil {
			return nil, nil, err
		}
		log.Info("publishing clicks to redis queue", zap.String("key", cfg.Queue.Key))
		return q, q, nil

	case "none":
		recorder, err := clicks.NewSyncRecorder(aggregator)
		if err != nil {
			return nil, nil, err
		}
		return recorder, nil, nil

	default:
		return nil, nil, fmt.Errorf("unknown queue driver %q", cfg.Queue.Driver)
	}
}
