package maintenance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/shortlink/internal/cache"
	"github.com/charlesng35/shortlink/internal/database/testutil"
	"github.com/charlesng35/shortlink/internal/models"
)

func TestRunOncePurgesExpiredCacheRowsAndPayloads(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	store := cache.NewDatabaseStore(db)

	now := time.Now()
	past := now.Unix() - 100
	future := now.Unix() + 1000

	links := []models.Link{
		{ID: "id-dead", Alias: "dead", Target: "https://example.com/1", CreatedAt: 1, IsActive: 1, ExpiresAt: &past},
		{ID: "id-live", Alias: "live", Target: "https://example.com/2", CreatedAt: 2, IsActive: 1, ExpiresAt: &future},
	}
	for i := range links {
		require.NoError(t, db.Create(&links[i]).Error)
	}

	ctx := context.Background()
	require.NoError(t, store.Set(ctx, cache.AliasKey("dead"), []byte(`{"v":1}`), time.Hour))
	require.NoError(t, store.Set(ctx, cache.AliasKey("live"), []byte(`{"v":1}`), time.Hour))

	// An already-expired cache row for the purger to reap.
	require.NoError(t, store.Set(ctx, "stale", []byte("x"), time.Nanosecond))
	time.Sleep(2 * time.Millisecond)

	cleaner := NewCleaner(db, store, store)
	require.NoError(t, cleaner.RunOnce(ctx))

	_, ok, err := store.Get(ctx, "stale")
	require.NoError(t, err)
	require.False(t, ok)

	_, ok, err = store.Get(ctx, cache.AliasKey("dead"))
	require.NoError(t, err)
	require.False(t, ok)

	_, ok, err = store.Get(ctx, cache.AliasKey("live"))
	require.NoError(t, err)
	require.True(t, ok)
}

func TestPurgeExpiredAliasPayloadsBoundary(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	store := cache.NewDatabaseStore(db)

	now := time.Unix(1705312800, 0)
	boundary := now.Unix()

	link := models.Link{ID: "id-edge", Alias: "edge", Target: "https://example.com", CreatedAt: 1, IsActive: 1, ExpiresAt: &boundary}
	require.NoError(t, db.Create(&link).Error)

	ctx := context.Background()
	require.NoError(t, store.Set(ctx, cache.AliasKey("edge"), []byte(`{"v":1}`), time.Hour))

	// A link exactly at its boundary counts as expired.
	evicted, err := PurgeExpiredAliasPayloads(ctx, db, store, now)
	require.NoError(t, err)
	require.EqualValues(t, 1, evicted)
}

func TestCleanerDisabledWithoutDependencies(t *testing.T) {
	cleaner := NewCleaner(nil, nil, nil)
	require.NoError(t, cleaner.Start())
	require.NoError(t, cleaner.RunOnce(context.Background()))
}
