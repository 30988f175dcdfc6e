package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/shortlink/internal/cache"
	"github.com/charlesng35/shortlink/internal/models"
	"github.com/charlesng35/shortlink/pkg/crypto"
	apperrors "github.com/charlesng35/shortlink/pkg/errors"
	"github.com/charlesng35/shortlink/pkg/logger"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200

	expiringSoonWindow = 7 * 24 * time.Hour
)

// CreateLinkInput carries the caller-supplied fields for a new link.
type CreateLinkInput struct {
	Alias     string `json:"alias"`
	Target    string `json:"target" binding:"required"`
	ExpiresAt *int64 `json:"expires_at"`
	Password  string `json:"password"`
	CreatedBy string `json:"-"`
}

// LinkStats summarises the link table for the admin dashboard.
type LinkStats struct {
	Total        int64 `json:"total"`
	Protected    int64 `json:"protected"`
	Live         int64 `json:"live"`
	Expired      int64 `json:"expired"`
	Inactive     int64 `json:"inactive"`
	ExpiringSoon int64 `json:"expiring_soon"`
	TotalClicks  int64 `json:"total_clicks"`
}

// LinkOption customises LinkService behaviour.
type LinkOption func(*LinkService)

// WithLinkClock injects a custom clock primarily for testing.
func WithLinkClock(clock func() time.Time) LinkOption {
	return func(s *LinkService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// LinkService manages the lifecycle of links: creation, listing, deletion,
// and dashboard statistics. Click counters are owned by the aggregator and
// never written here.
type LinkService struct {
	db       *gorm.DB
	cache    cache.Store
	resolver *ResolverService
	now      func() time.Time
	log      *zap.Logger
}

// NewLinkService constructs a LinkService. The cache store may be nil; the
// resolver is used for best-effort cache hydration and invalidation.
func NewLinkService(db *gorm.DB, store cache.Store, resolver *ResolverService, opts ...LinkOption) (*LinkService, error) {
	if db == nil {
		return nil, errors.New("link service: db is required")
	}
	if resolver == nil {
		return nil, errors.New("link service: resolver is required")
	}

	service := &LinkService{
		db:       db,
		cache:    store,
		resolver: resolver,
		now:      time.Now,
		log:      logger.WithModule("links"),
	}

	for _, opt := range opts {
		opt(service)
	}

	return service, nil
}

// Create validates the input, settles on an alias, and inserts the record.
// Alias collisions surface as ErrAliasTaken so the caller can retry with a
// fresh candidate.
func (s *LinkService) Create(ctx context.Context, input CreateLinkInput) (*models.Link, error) {
	target := strings.TrimSpace(input.Target)
	if !IsValidHTTPURL(target) {
		return nil, apperrors.NewBadRequest("Invalid target URL")
	}

	var alias string
	if strings.TrimSpace(input.Alias) != "" {
		alias = SanitizeAlias(input.Alias)
		if alias == "" {
			return nil, apperrors.NewBadRequest("Invalid alias format")
		}
	} else {
		generated, err := RandomBase62(defaultAliasLength)
		if err != nil {
			return nil, apperrors.Wrap(err, "generate alias")
		}
		alias = SanitizeAlias(generated)
	}

	// Uniqueness is global: any record claims the alias, active or not.
	exists, err := s.aliasExists(ctx, alias)
	if err != nil {
		return nil, apperrors.Wrap(err, "check alias")
	}
	if exists {
		return nil, apperrors.ErrAliasTaken
	}

	id, err := RandomBase62(linkIDLength)
	if err != nil {
		return nil, apperrors.Wrap(err, "generate id")
	}

	link := models.Link{
		ID:        id,
		Alias:     alias,
		Target:    target,
		CreatedAt: s.now().Unix(),
		ExpiresAt: normalizeExpiry(input.ExpiresAt),
		IsActive:  1,
	}
	if input.Password != "" {
		hash := crypto.SHA256Hex(input.Password)
		link.PasswordHash = &hash
	}
	if createdBy := strings.TrimSpace(input.CreatedBy); createdBy != "" {
		link.CreatedBy = &createdBy
	}

	if err := s.db.WithContext(ctx).Create(&link).Error; err != nil {
		// The existence check races with concurrent creations; the unique
		// index is the arbiter.
		if isUniqueConstraintError(err) {
			return nil, apperrors.ErrAliasTaken
		}
		return nil, apperrors.Wrap(err, "insert link")
	}

	s.resolver.Hydrate(ctx, &link)

	return &link, nil
}

// Get returns the link with the given id.
func (s *LinkService) Get(ctx context.Context, id string) (*models.Link, error) {
	var link models.Link
	if err := s.db.WithContext(ctx).Where("id = ?", id).Take(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.Wrap(err, "load link")
	}
	return &link, nil
}

// List returns the newest links first, along with the total record count.
// The limit is clamped to [1, 200] and defaults to 50.
func (s *LinkService) List(ctx context.Context, limit int) ([]models.Link, int64, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Link{}).Count(&total).Error; err != nil {
		return nil, 0, apperrors.Wrap(err, "count links")
	}

	var links []models.Link
	if err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&links).Error; err != nil {
		return nil, 0, apperrors.Wrap(err, "list links")
	}

	return links, total, nil
}

// Delete removes the link with the given id and invalidates its cached
// resolution payload. Daily click buckets are kept for historical stats.
func (s *LinkService) Delete(ctx context.Context, id string) error {
	var link models.Link
	if err := s.db.WithContext(ctx).Where("id = ?", id).Take(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrNotFound
		}
		return apperrors.Wrap(err, "load link")
	}

	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Link{})
	if result.Error != nil {
		return apperrors.Wrap(result.Error, "delete link")
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}

	s.resolver.Invalidate(ctx, link.Alias)
	return nil
}

// Stats computes the dashboard summary in a single aggregate query.
func (s *LinkService) Stats(ctx context.Context) (*LinkStats, error) {
	now := s.now().Unix()
	soon := s.now().Add(expiringSoonWindow).Unix()

	var stats LinkStats
	err := s.db.WithContext(ctx).Model(&models.Link{}).
		Select(`COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN password_hash IS NOT NULL AND password_hash <> '' THEN 1 ELSE 0 END), 0) AS protected,
			COALESCE(SUM(CASE WHEN is_active = 1 AND (expires_at IS NULL OR expires_at > ?) THEN 1 ELSE 0 END), 0) AS live,
			COALESCE(SUM(CASE WHEN expires_at IS NOT NULL AND expires_at <= ? THEN 1 ELSE 0 END), 0) AS expired,
			COALESCE(SUM(CASE WHEN is_active = 0 THEN 1 ELSE 0 END), 0) AS inactive,
			COALESCE(SUM(CASE WHEN expires_at IS NOT NULL AND expires_at > ? AND expires_at <= ? THEN 1 ELSE 0 END), 0) AS expiring_soon,
			COALESCE(SUM(clicks_total), 0) AS total_clicks`,
			now, now, now, soon).
		Scan(&stats).Error
	if err != nil {
		return nil, apperrors.Wrap(err, "aggregate link stats")
	}

	return &stats, nil
}

// aliasExists checks the cache first, then the store. Cache errors degrade
// to a store-only check.
func (s *LinkService) aliasExists(ctx context.Context, alias string) (bool, error) {
	if s.cache != nil {
		if _, ok, err := s.cache.Get(ctx, cache.AliasKey(alias)); err == nil && ok {
			return true, nil
		}
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Link{}).Where("alias = ?", alias).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// normalizeExpiry accepts unix seconds or milliseconds and stores seconds.
// Values above the millisecond threshold are assumed to be milliseconds.
func normalizeExpiry(ts *int64) *int64 {
	if ts == nil || *ts <= 0 {
		return nil
	}
	v := *ts
	if v >= 1_000_000_000_000 {
		v /= 1000
	}
	return &v
}
