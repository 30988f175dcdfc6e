package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/shortlink/internal/cache"
	"github.com/charlesng35/shortlink/internal/models"
	apperrors "github.com/charlesng35/shortlink/pkg/errors"
	"github.com/charlesng35/shortlink/pkg/logger"
	"github.com/charlesng35/shortlink/pkg/metrics"
)

// DefaultAliasCacheTTL bounds how long a resolution payload may serve reads
// without consulting the store. Independent of the link's own expiry.
const DefaultAliasCacheTTL = time.Hour

// aliasPayload is the JSON shape cached per alias. The cache is a disposable
// projection: any payload that fails to decode or carries no target is
// treated as a miss, never as an error.
type aliasPayload struct {
	Version   int    `json:"v"`
	Target    string `json:"target"`
	ExpiresAt *int64 `json:"expiresAt"`
	IsActive  bool   `json:"isActive"`
}

const aliasPayloadVersion = 1

func encodeAliasPayload(link *models.Link) ([]byte, error) {
	return json.Marshal(aliasPayload{
		Version:   aliasPayloadVersion,
		Target:    link.Target,
		ExpiresAt: link.ExpiresAt,
		IsActive:  link.Active(),
	})
}

// ResolverOption customises ResolverService behaviour.
type ResolverOption func(*ResolverService)

// WithResolverTTL overrides the cache TTL for hydrated payloads.
func WithResolverTTL(ttl time.Duration) ResolverOption {
	return func(s *ResolverService) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithResolverClock injects a custom clock primarily for testing.
func WithResolverClock(clock func() time.Time) ResolverOption {
	return func(s *ResolverService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// ResolverService turns aliases into target URLs under a cache-then-store
// policy. The store is authoritative; the cache only buys latency and may be
// nil or unreachable without affecting correctness.
type ResolverService struct {
	db    *gorm.DB
	cache cache.Store
	ttl   time.Duration
	now   func() time.Time
	log   *zap.Logger
}

// NewResolverService constructs a ResolverService. The cache store may be nil.
func NewResolverService(db *gorm.DB, store cache.Store, opts ...ResolverOption) (*ResolverService, error) {
	if db == nil {
		return nil, errors.New("resolver service: db is required")
	}

	service := &ResolverService{
		db:    db,
		cache: store,
		ttl:   DefaultAliasCacheTTL,
		now:   time.Now,
		log:   logger.WithModule("resolver"),
	}

	for _, opt := range opts {
		opt(service)
	}

	return service, nil
}

// Resolve returns the target URL for an already-sanitized alias. Absent,
// inactive, and expired aliases all come back as ErrNotFound; store failures
// are logged but also surface as ErrNotFound so the redirect path fails
// closed.
func (s *ResolverService) Resolve(ctx context.Context, alias string) (string, error) {
	if alias == "" {
		return "", apperrors.ErrNotFound
	}

	now := s.now().Unix()

	if target, outcome, decided := s.resolveFromCache(ctx, alias, now); decided {
		metrics.Resolutions.WithLabelValues(outcome).Inc()
		if target == "" {
			return "", apperrors.ErrNotFound
		}
		return target, nil
	}

	var link models.Link
	err := s.db.WithContext(ctx).Where("alias = ?", alias).Take(&link).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		metrics.Resolutions.WithLabelValues("not_found").Inc()
		return "", apperrors.ErrNotFound
	case err != nil:
		metrics.Resolutions.WithLabelValues("store_error").Inc()
		s.log.Error("alias store lookup failed", zap.String("alias", alias), zap.Error(err))
		return "", apperrors.ErrNotFound
	}

	if !link.Active() {
		metrics.Resolutions.WithLabelValues("inactive").Inc()
		return "", apperrors.ErrNotFound
	}
	if link.Expired(now) {
		metrics.Resolutions.WithLabelValues("expired").Inc()
		return "", apperrors.ErrNotFound
	}

	s.Hydrate(ctx, &link)

	metrics.Resolutions.WithLabelValues("store_hit").Inc()
	return link.Target, nil
}

// resolveFromCache inspects the cached payload for the alias. The returned
// decided flag is false on miss, cache error, or unparseable payload, in
// which case the caller falls through to the store.
func (s *ResolverService) resolveFromCache(ctx context.Context, alias string, now int64) (target, outcome string, decided bool) {
	if s.cache == nil {
		return "", "", false
	}

	raw, ok, err := s.cache.Get(ctx, cache.AliasKey(alias))
	if err != nil {
		metrics.CacheOps.WithLabelValues("get", "error").Inc()
		s.log.Warn("resolution cache read failed", zap.String("alias", alias), zap.Error(err))
		return "", "", false
	}
	if !ok {
		metrics.CacheOps.WithLabelValues("get", "miss").Inc()
		return "", "", false
	}

	var payload aliasPayload
	if err := json.Unmarshal(raw, &payload); err != nil || payload.Target == "" {
		metrics.CacheOps.WithLabelValues("get", "error").Inc()
		s.log.Warn("dropping unparseable resolution cache payload", zap.String("alias", alias))
		return "", "", false
	}
	metrics.CacheOps.WithLabelValues("get", "ok").Inc()

	// A cached inactive flag is trusted outright so disabled links stop
	// redirecting without a store round-trip.
	if !payload.IsActive {
		return "", "inactive", true
	}
	if payload.ExpiresAt != nil && *payload.ExpiresAt > 0 && *payload.ExpiresAt <= now {
		return "", "expired", true
	}

	return payload.Target, "cache_hit", true
}

// Hydrate writes the link's resolution payload to the cache. Best-effort:
// failures are counted and logged, never returned.
func (s *ResolverService) Hydrate(ctx context.Context, link *models.Link) {
	if s.cache == nil || link == nil {
		return
	}

	payload, err := encodeAliasPayload(link)
	if err != nil {
		s.log.Warn("encode resolution payload failed", zap.String("alias", link.Alias), zap.Error(err))
		return
	}

	if err := s.cache.Set(ctx, cache.AliasKey(link.Alias), payload, s.ttl); err != nil {
		metrics.CacheOps.WithLabelValues("set", "error").Inc()
		s.log.Warn("resolution cache write failed", zap.String("alias", link.Alias), zap.Error(err))
		return
	}
	metrics.CacheOps.WithLabelValues("set", "ok").Inc()
}

// Invalidate drops the cached payload for an alias. Best-effort.
func (s *ResolverService) Invalidate(ctx context.Context, alias string) {
	if s.cache == nil || alias == "" {
		return
	}
	if err := s.cache.Delete(ctx, cache.AliasKey(alias)); err != nil {
		metrics.CacheOps.WithLabelValues("delete", "error").Inc()
		s.log.Warn("resolution cache invalidate failed", zap.String("alias", alias), zap.Error(err))
		return
	}
	metrics.CacheOps.WithLabelValues("delete", "ok").Inc()
}
