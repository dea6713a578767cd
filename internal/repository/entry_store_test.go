package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TriRecover/internal/domain/models"
	"TriRecover/internal/domain/repository"
)

func testEntry(date string, ready float64) models.DailyEntry {
	return models.DailyEntry{
		Date:          date,
		MReady:        models.Float(ready),
		OuraRec:       models.Float(74),
		OuraHrv:       models.Float(41.5),
		OuraHrvStatus: models.HRVFair,
		WhoopRhr:      models.Float(56),
		Steps:         models.Float(9100),
		Fatigue:       models.Float(5),
		Resistance:    "Y",
		Notes:         "short hike",
	}
}

// exerciseEntryStore runs the shared EntryStore contract against one implementation.
func exerciseEntryStore(t *testing.T, store repository.EntryStore) {
	t.Helper()
	ctx := context.Background()

	_, err := store.Get(ctx, "2024-05-01")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, store.Upsert(ctx, testEntry("2024-05-02", 70)))
	require.NoError(t, store.Upsert(ctx, testEntry("2024-05-01", 60)))

	// Same date replaces.
	require.NoError(t, store.Upsert(ctx, testEntry("2024-05-02", 88)))
	got, err := store.Get(ctx, "2024-05-02")
	require.NoError(t, err)
	assert.Equal(t, testEntry("2024-05-02", 88), got)

	require.NoError(t, store.UpsertBatch(ctx, []models.DailyEntry{
		testEntry("2024-05-03", 71),
		testEntry("2024-05-04", 72),
	}))

	all, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "2024-05-01", all[0].Date)
	assert.Equal(t, "2024-05-04", all[3].Date)

	mid, err := store.Range(ctx, "2024-05-02", "2024-05-03")
	require.NoError(t, err)
	require.Len(t, mid, 2)
	assert.Equal(t, "2024-05-02", mid[0].Date)

	open, err := store.Range(ctx, "2024-05-03", "")
	require.NoError(t, err)
	assert.Len(t, open, 2)

	require.NoError(t, store.Delete(ctx, "2024-05-01"))
	assert.ErrorIs(t, store.Delete(ctx, "2024-05-01"), repository.ErrNotFound)
}

func TestMemoryEntryStore(t *testing.T) {
	exerciseEntryStore(t, NewMemoryEntryStore())
}

func TestMemoryEntryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryEntryStore(testEntry("2024-05-01", 60))

	got, err := store.Get(ctx, "2024-05-01")
	require.NoError(t, err)
	*got.MReady = 1

	again, err := store.Get(ctx, "2024-05-01")
	require.NoError(t, err)
	assert.Equal(t, 60.0, *again.MReady)
}

func TestPostgresEntryStore(t *testing.T) {
	client, cleanup := setupTestDB(t)
	defer cleanup()

	exerciseEntryStore(t, NewPostgresEntryStore(client))
}

func TestPostgresEntryStore_NullsAndMorningEntry(t *testing.T) {
	client, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPostgresEntryStore(client)

	e := models.DailyEntry{Date: "2024-06-01", MReady: models.Float(80), Resistance: "n", MorningEntry: true}
	require.NoError(t, store.Upsert(ctx, e))

	got, err := store.Get(ctx, "2024-06-01")
	require.NoError(t, err)
	assert.Nil(t, got.Steps)
	assert.Nil(t, got.OuraRec)
	assert.Equal(t, "N", got.Resistance)
	assert.True(t, got.MorningEntry)
	assert.Empty(t, got.OuraHrvStatus)
}
