package clicks

import (
	"context"
	"errors"
	"sort"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/charlesng35/shortlink/internal/models"
	"github.com/charlesng35/shortlink/pkg/logger"
	"github.com/charlesng35/shortlink/pkg/metrics"
)

// Aggregator folds batches of click events into the daily and total
// counters. It is the only writer of click_daily and links.clicks_total,
// which keeps the aggregate/detail invariant local to this type.
type Aggregator struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewAggregator constructs an Aggregator bound to the primary database.
func NewAggregator(db *gorm.DB) (*Aggregator, error) {
	if db == nil {
		return nil, errors.New("clicks: db is required")
	}
	return &Aggregator{db: db, log: logger.WithModule("clicks")}, nil
}

type dayKey struct {
	alias string
	day   string
}

// Apply groups the batch by (alias, UTC day) and applies all resulting
// counter updates in one transaction. A returned error means nothing was
// applied and the whole batch is safe to redeliver; nil means every event
// in the batch is accounted for.
func (a *Aggregator) Apply(ctx context.Context, events []Event) error {
	if a == nil {
		return errors.New("clicks: aggregator not initialised")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	daily := make(map[dayKey]int64)
	totals := make(map[string]int64)
	dropped := 0

	for _, event := range events {
		if !event.Valid() {
			dropped++
			continue
		}
		daily[dayKey{alias: event.Alias, day: event.Day()}]++
		totals[event.Alias]++
	}

	if dropped > 0 {
		metrics.ClickEvents.WithLabelValues("dropped").Add(float64(dropped))
		a.log.Warn("dropped malformed click events", zap.Int("count", dropped))
	}

	if len(daily) == 0 {
		return nil
	}

	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, key := range sortedDayKeys(daily) {
			count := daily[key]
			bucket := models.ClickDaily{Alias: key.alias, Day: key.day, Count: count}
			if err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "alias"}, {Name: "day"}},
				DoUpdates: clause.Assignments(map[string]interface{}{
					"count": gorm.Expr("count + ?", count),
				}),
			}).Create(&bucket).Error; err != nil {
				return err
			}
		}

		for _, alias := range sortedAliases(totals) {
			if err := tx.Model(&models.Link{}).
				Where("alias = ?", alias).
				UpdateColumn("clicks_total", gorm.Expr("clicks_total + ?", totals[alias])).Error; err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return err
	}

	applied := len(events) - dropped
	metrics.ClickBatchSize.Observe(float64(applied))
	a.log.Debug("applied click batch",
		zap.Int("events", applied),
		zap.Int("buckets", len(daily)),
		zap.Int("aliases", len(totals)),
	)
	return nil
}

// Deterministic statement order keeps concurrent batches from deadlocking
// on row locks.
func sortedDayKeys(daily map[dayKey]int64) []dayKey {
	keys := make([]dayKey, 0, len(daily))
	for key := range daily {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].alias != keys[j].alias {
			return keys[i].alias < keys[j].alias
		}
		return keys[i].day < keys[j].day
	})
	return keys
}

func sortedAliases(totals map[string]int64) []string {
	aliases := make([]string, 0, len(totals))
	for alias := range totals {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)
	return aliases
}
