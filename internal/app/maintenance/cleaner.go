package maintenance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/shortlink/internal/cache"
	"github.com/charlesng35/shortlink/internal/models"
	"github.com/charlesng35/shortlink/pkg/logger"
)

const defaultSchedule = "@hourly"

const aliasPurgeBatch = 500

// ExpiredPurger removes expired rows from the database-backed cache.
// Satisfied by cache.DatabaseStore; nil when the cache lives in Redis, where
// TTLs expire entries on their own.
type ExpiredPurger interface {
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// Cleaner runs background maintenance: dropping expired database-cache rows
// and evicting resolution payloads for links whose expiry has passed, so a
// stale payload never outlives its TTL by much.
type Cleaner struct {
	db       *gorm.DB
	store    cache.Store
	purger   ExpiredPurger
	cron     *cron.Cron
	schedule string
	now      func() time.Time
	log      *zap.Logger
	enabled  bool
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithNow overrides the clock used for expiry comparisons.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithSchedule overrides the cron specification for the cleanup job.
func WithSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.schedule = spec
		}
	}
}

// NewCleaner constructs a Cleaner with sensible defaults. Any nil dependency
// results in the corresponding cleanup being skipped.
func NewCleaner(db *gorm.DB, store cache.Store, purger ExpiredPurger, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		db:       db,
		store:    store,
		purger:   purger,
		schedule: defaultSchedule,
		now:      time.Now,
		log:      logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	cleaner.enabled = cleaner.purger != nil || (cleaner.db != nil && cleaner.store != nil)

	return cleaner
}

// Start registers the cleanup job with the cron scheduler and launches it.
func (c *Cleaner) Start() error {
	if !c.enabled {
		return nil
	}

	if _, err := c.cron.AddFunc(c.schedule, func() {
		if err := c.RunOnce(context.Background()); err != nil {
			c.log.Warn("maintenance run failed", zap.Error(err))
		}
	}); err != nil {
		return err
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes all configured cleanup routines sequentially. Primarily
// used in tests and during graceful shutdown.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error

	if c.purger != nil {
		if removed, err := c.purger.PurgeExpired(ctx, c.now()); err != nil {
			errs = multierr.Append(errs, err)
		} else if removed > 0 {
			c.log.Info("purged expired cache rows", zap.Int64("rows", removed))
		}
	}

	if c.db != nil && c.store != nil {
		if evicted, err := PurgeExpiredAliasPayloads(ctx, c.db, c.store, c.now()); err != nil {
			errs = multierr.Append(errs, err)
		} else if evicted > 0 {
			c.log.Info("evicted stale resolution payloads", zap.Int64("aliases", evicted))
		}
	}

	return errs
}

// PurgeExpiredAliasPayloads drops the cached resolution payload of every link
// whose expiry has passed. The payloads would age out via TTL anyway; the
// sweep just shortens the window in which an expired link still redirects
// from cache.
func PurgeExpiredAliasPayloads(ctx context.Context, db *gorm.DB, store cache.Store, now time.Time) (int64, error) {
	if db == nil {
		return 0, errors.New("maintenance: db is required")
	}
	if store == nil {
		return 0, errors.New("maintenance: cache store is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var aliases []string
	if err := db.WithContext(ctx).
		Model(&models.Link{}).
		Where("expires_at IS NOT NULL AND expires_at <= ?", now.Unix()).
		Pluck("alias", &aliases).Error; err != nil {
		return 0, fmt.Errorf("maintenance: list expired aliases: %w", err)
	}

	var evicted int64
	for start := 0; start < len(aliases); start += aliasPurgeBatch {
		end := start + aliasPurgeBatch
		if end > len(aliases) {
			end = len(aliases)
		}

		keys := make([]string, 0, end-start)
		for _, alias := range aliases[start:end] {
			keys = append(keys, cache.AliasKey(alias))
		}
		if err := store.Delete(ctx, keys...); err != nil {
			return evicted, fmt.Errorf("maintenance: evict payloads: %w", err)
		}
		evicted += int64(len(keys))
	}

	return evicted, nil
}
