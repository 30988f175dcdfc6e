package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/charlesng35/shortlink/internal/app"
	"github.com/charlesng35/shortlink/internal/cache"
	"github.com/charlesng35/shortlink/internal/clicks"
	"github.com/charlesng35/shortlink/internal/database"
	"github.com/charlesng35/shortlink/internal/queue"
	"github.com/charlesng35/shortlink/pkg/logger"
)

// clickworker drains the shared Redis click queue and folds the events into
// the link counters. Run it alongside the server when queue.driver is
// "redis"; scale stays at one instance since batches are applied in order.
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "clickworker: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := app.LoadConfig()
	if err != nil {
		return err
	}
	if cfg.Queue.Driver != "redis" {
		return fmt.Errorf("clickworker requires queue.driver=redis, got %q", cfg.Queue.Driver)
	}

	if err := app.ConfigureLogging(cfg.Server.LogLevel); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	defer logger.Sync()
	log := logger.WithModule("clickworker")

	db, err := database.Open(cfg.Database.StoreConfig())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	client, err := cache.NewRedisClient(cfg.Cache.RedisClientConfig())
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer client.Close()

	q, err := queue.NewRedisQueue(client, cfg.Queue.Key)
	if err != nil {
		return err
	}

	aggregator, err := clicks.NewAggregator(db)
	if err != nil {
		return err
	}

	consumer, err := queue.NewConsumer(q, aggregator, queue.ConsumerConfig{
		BatchSize: cfg.Clicks.BatchSize,
		Linger:    cfg.Clicks.Linger,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("draining click queue", zap.String("key", cfg.Queue.Key))
	if err := consumer.Run(ctx); err != nil {
		return fmt.Errorf("consume: %w", err)
	}
	log.Info("stopped")
	return nil
}
