package clicks

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/shortlink/internal/database/testutil"
	"github.com/charlesng35/shortlink/internal/models"
)

func seedLink(t *testing.T, db *gorm.DB, alias string) {
	t.Helper()
	link := models.Link{
		ID:        "id-" + alias,
		Alias:     alias,
		Target:    "https://example.com/" + alias,
		CreatedAt: 1700000000,
		IsActive:  1,
	}
	require.NoError(t, db.Create(&link).Error)
}

func TestApplySingleDayBatch(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	seedLink(t, db, "x")

	agg, err := NewAggregator(db)
	require.NoError(t, err)

	// Three events on 2024-01-15 UTC.
	batch := []Event{
		{Alias: "x", TS: 1705312800},
		{Alias: "x", TS: 1705316400},
		{Alias: "x", TS: 1705320000},
	}
	require.NoError(t, agg.Apply(context.Background(), batch))

	var bucket models.ClickDaily
	require.NoError(t, db.Take(&bucket, "alias = ? AND day = ?", "x", "2024-01-15").Error)
	require.EqualValues(t, 3, bucket.Count)

	var link models.Link
	require.NoError(t, db.Take(&link, "alias = ?", "x").Error)
	require.EqualValues(t, 3, link.ClicksTotal)
}

func TestApplyGroupsByAliasAndDay(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	seedLink(t, db, "a")
	seedLink(t, db, "b")

	agg, err := NewAggregator(db)
	require.NoError(t, err)

	batch := []Event{
		{Alias: "a", TS: 1705312800},          // 2024-01-15
		{Alias: "a", TS: 1705312900},          // 2024-01-15
		{Alias: "a", TS: 1705399200},          // 2024-01-16
		{Alias: "b", TS: 1705312800000},       // 2024-01-15, milliseconds
		{Alias: "", TS: 1705312800},           // malformed, dropped
	}
	require.NoError(t, agg.Apply(context.Background(), batch))

	var count int64
	require.NoError(t, db.Model(&models.ClickDaily{}).Count(&count).Error)
	require.EqualValues(t, 3, count)

	var bucket models.ClickDaily
	require.NoError(t, db.Take(&bucket, "alias = ? AND day = ?", "a", "2024-01-15").Error)
	require.EqualValues(t, 2, bucket.Count)

	require.NoError(t, db.Take(&bucket, "alias = ? AND day = ?", "b", "2024-01-15").Error)
	require.EqualValues(t, 1, bucket.Count)

	var linkA, linkB models.Link
	require.NoError(t, db.Take(&linkA, "alias = ?", "a").Error)
	require.NoError(t, db.Take(&linkB, "alias = ?", "b").Error)
	require.EqualValues(t, 3, linkA.ClicksTotal)
	require.EqualValues(t, 1, linkB.ClicksTotal)
}

func TestApplyIncrementsExistingBuckets(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	seedLink(t, db, "x")

	agg, err := NewAggregator(db)
	require.NoError(t, err)

	batch := []Event{{Alias: "x", TS: 1705312800}}
	require.NoError(t, agg.Apply(context.Background(), batch))
	require.NoError(t, agg.Apply(context.Background(), batch))

	var bucket models.ClickDaily
	require.NoError(t, db.Take(&bucket, "alias = ? AND day = ?", "x", "2024-01-15").Error)
	require.EqualValues(t, 2, bucket.Count)

	var link models.Link
	require.NoError(t, db.Take(&link, "alias = ?", "x").Error)
	require.EqualValues(t, 2, link.ClicksTotal)

	// clicks_total stays equal to the sum of the daily buckets.
	var sum int64
	require.NoError(t, db.Model(&models.ClickDaily{}).
		Where("alias = ?", "x").
		Select("COALESCE(SUM(count), 0)").
		Scan(&sum).Error)
	require.Equal(t, link.ClicksTotal, sum)
}

func TestApplyAllMalformedIsNoop(t *testing.T) {
	db := testutil.MustOpenTestDB(t)

	agg, err := NewAggregator(db)
	require.NoError(t, err)

	require.NoError(t, agg.Apply(context.Background(), []Event{{TS: 1705312800}, {}}))

	var count int64
	require.NoError(t, db.Model(&models.ClickDaily{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestEventDayUnitDetection(t *testing.T) {
	seconds := Event{Alias: "x", TS: 1705312800}
	millis := Event{Alias: "x", TS: 1705312800123}

	require.Equal(t, "2024-01-15", seconds.Day())
	require.Equal(t, "2024-01-15", millis.Day())
}
