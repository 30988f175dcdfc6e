package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/shortlink/internal/cache"
	"github.com/charlesng35/shortlink/internal/database/testutil"
	"github.com/charlesng35/shortlink/internal/models"
	apperrors "github.com/charlesng35/shortlink/pkg/errors"
)

var testNow = time.Unix(1705312800, 0) // 2024-01-15 UTC

func fixedClock() time.Time { return testNow }

func seedLink(t *testing.T, db *gorm.DB, link models.Link) {
	t.Helper()
	if link.ID == "" {
		link.ID = "id-" + link.Alias
	}
	if link.CreatedAt == 0 {
		link.CreatedAt = testNow.Unix() - 1000
	}
	require.NoError(t, db.Create(&link).Error)
}

func newResolver(t *testing.T, db *gorm.DB, store cache.Store) *ResolverService {
	t.Helper()
	resolver, err := NewResolverService(db, store, WithResolverClock(fixedClock))
	require.NoError(t, err)
	return resolver
}

func TestResolveStoreHitHydratesCache(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	store := newFakeStore()
	seedLink(t, db, models.Link{Alias: "abc123", Target: "https://example.com", IsActive: 1})

	resolver := newResolver(t, db, store)

	target, err := resolver.Resolve(context.Background(), "abc123")
	require.NoError(t, err)
	require.Equal(t, "https://example.com", target)

	raw, ok, err := store.Get(context.Background(), cache.AliasKey("abc123"))
	require.NoError(t, err)
	require.True(t, ok)

	var payload struct {
		Target   string `json:"target"`
		IsActive bool   `json:"isActive"`
	}
	require.NoError(t, json.Unmarshal(raw, &payload))
	require.Equal(t, "https://example.com", payload.Target)
	require.True(t, payload.IsActive)
}

func TestResolveServesFromCacheWithoutStoreRecord(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	store := newFakeStore()

	payload, err := json.Marshal(map[string]any{
		"v": 1, "target": "https://cached.example.com", "isActive": true,
	})
	require.NoError(t, err)
	require.NoError(t, store.Set(context.Background(), cache.AliasKey("warm"), payload, time.Hour))

	resolver := newResolver(t, db, store)

	// No row exists for "warm"; a cache-served answer proves the store was
	// not consulted.
	target, err := resolver.Resolve(context.Background(), "warm")
	require.NoError(t, err)
	require.Equal(t, "https://cached.example.com", target)
}

func TestResolveCachedInactiveTrustedWithoutStoreRoundTrip(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	store := newFakeStore()

	// The store record is active; only the cached flag says otherwise. The
	// cached flag must win without falling back.
	seedLink(t, db, models.Link{Alias: "off", Target: "https://example.com", IsActive: 1})

	payload, err := json.Marshal(map[string]any{
		"v": 1, "target": "https://example.com", "isActive": false,
	})
	require.NoError(t, err)
	require.NoError(t, store.Set(context.Background(), cache.AliasKey("off"), payload, time.Hour))

	resolver := newResolver(t, db, store)

	_, err = resolver.Resolve(context.Background(), "off")
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestResolveCachedExpiryBoundary(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	store := newFakeStore()

	// expiresAt exactly at the current time counts as expired.
	payload, err := json.Marshal(map[string]any{
		"v": 1, "target": "https://example.com", "isActive": true, "expiresAt": testNow.Unix(),
	})
	require.NoError(t, err)
	require.NoError(t, store.Set(context.Background(), cache.AliasKey("edge"), payload, time.Hour))

	resolver := newResolver(t, db, store)

	_, err = resolver.Resolve(context.Background(), "edge")
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestResolveUnparseableCachePayloadFallsBack(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	store := newFakeStore()
	seedLink(t, db, models.Link{Alias: "abc123", Target: "https://example.com", IsActive: 1})

	require.NoError(t, store.Set(context.Background(), cache.AliasKey("abc123"), []byte("{not json"), time.Hour))

	resolver := newResolver(t, db, store)

	target, err := resolver.Resolve(context.Background(), "abc123")
	require.NoError(t, err)
	require.Equal(t, "https://example.com", target)

	// The bad payload was replaced on the way out.
	raw, ok, err := store.Get(context.Background(), cache.AliasKey("abc123"))
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, json.Unmarshal(raw, &struct{}{}))
}

func TestResolveExpiredStoreRecord(t *testing.T) {
	db := testutil.MustOpenTestDB(t)

	expired := int64(1700000000)
	seedLink(t, db, models.Link{Alias: "gone", Target: "https://example.com", IsActive: 1, ExpiresAt: &expired})

	resolver := newResolver(t, db, nil)

	_, err := resolver.Resolve(context.Background(), "gone")
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestResolveExpiryBoundaryInStore(t *testing.T) {
	db := testutil.MustOpenTestDB(t)

	boundary := testNow.Unix()
	seedLink(t, db, models.Link{Alias: "edge", Target: "https://example.com", IsActive: 1, ExpiresAt: &boundary})

	resolver := newResolver(t, db, nil)

	_, err := resolver.Resolve(context.Background(), "edge")
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestResolveInactiveStoreRecord(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	store := newFakeStore()
	seedLink(t, db, models.Link{Alias: "off", Target: "https://example.com", IsActive: 0})

	resolver := newResolver(t, db, store)

	_, err := resolver.Resolve(context.Background(), "off")
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	// Inactive records are not hydrated into the cache.
	_, ok, err := store.Get(context.Background(), cache.AliasKey("off"))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestResolveMissingAlias(t *testing.T) {
	db := testutil.MustOpenTestDB(t)

	resolver := newResolver(t, db, nil)

	_, err := resolver.Resolve(context.Background(), "nope")
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestResolveCacheErrorDegradesToStore(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	store := newFakeStore()
	store.failGet = true
	seedLink(t, db, models.Link{Alias: "abc123", Target: "https://example.com", IsActive: 1})

	resolver := newResolver(t, db, store)

	target, err := resolver.Resolve(context.Background(), "abc123")
	require.NoError(t, err)
	require.Equal(t, "https://example.com", target)
}

func TestResolveCacheWriteFailureDoesNotFailResolution(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	store := newFakeStore()
	store.failSet = true
	seedLink(t, db, models.Link{Alias: "abc123", Target: "https://example.com", IsActive: 1})

	resolver := newResolver(t, db, store)

	target, err := resolver.Resolve(context.Background(), "abc123")
	require.NoError(t, err)
	require.Equal(t, "https://example.com", target)
}
