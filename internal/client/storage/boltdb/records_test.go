package boltdb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/gophsync/internal/client/storage"
	"github.com/iudanet/gophsync/internal/crdt"
	"github.com/iudanet/gophsync/internal/models"
)

// createTestRecord создает тестовую версионированную запись
func createTestRecord(id, resourceType string, version int64, deleted bool) *models.VersionedData {
	return &models.VersionedData{
		ID:           id,
		ResourceType: resourceType,
		Data:         map[string]any{"title": "title-" + id, "count": float64(version)},
		Version:      version,
		Timestamp:    1700000000000 + version,
		UserID:       "user-123",
		DeviceID:     "device-1",
		Hash:         "hash-" + id,
		VectorClock:  crdt.VectorClock{"device-1": version},
		History: []models.HistoryEntry{
			{Operation: models.OperationCreate, Data: map[string]any{"title": "title-" + id}, Timestamp: 1700000000000},
		},
		Deleted: deleted,
	}
}

func TestStorage_SaveRecord(t *testing.T) {
	tests := []struct {
		record *models.VersionedData
		name   string
	}{
		{name: "save tab", record: createTestRecord("tab-1", "tab", 1, false)},
		{name: "save bookmark", record: createTestRecord("bm-1", "bookmark", 3, false)},
		{name: "save tombstone", record: createTestRecord("tab-2", "tab", 2, true)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, cleanup := createTestStorage(t)
			defer cleanup()

			ctx := context.Background()
			require.NoError(t, store.SaveRecord(ctx, tt.record))

			retrieved, err := store.GetRecord(ctx, tt.record.ID, tt.record.ResourceType)
			require.NoError(t, err)
			assert.Equal(t, tt.record, retrieved)
		})
	}
}

func TestStorage_SaveRecord_Replace(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, store.SaveRecord(ctx, createTestRecord("tab-1", "tab", 1, false)))
	require.NoError(t, store.SaveRecord(ctx, createTestRecord("tab-1", "tab", 2, false)))

	retrieved, err := store.GetRecord(ctx, "tab-1", "tab")
	require.NoError(t, err)
	assert.Equal(t, int64(2), retrieved.Version)
}

func TestStorage_GetRecord_NotFound(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	_, err := store.GetRecord(context.Background(), "missing", "tab")
	assert.ErrorIs(t, err, storage.ErrRecordNotFound)
}

func TestStorage_GetRecord_SameIDDifferentType(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, store.SaveRecord(ctx, createTestRecord("x", "tab", 1, false)))
	require.NoError(t, store.SaveRecord(ctx, createTestRecord("x", "bookmark", 5, false)))

	tab, err := store.GetRecord(ctx, "x", "tab")
	require.NoError(t, err)
	bookmark, err := store.GetRecord(ctx, "x", "bookmark")
	require.NoError(t, err)

	assert.Equal(t, int64(1), tab.Version)
	assert.Equal(t, int64(5), bookmark.Version)
}

func TestStorage_ListRecords(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	// Пустое хранилище
	all, err := store.ListRecords(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	require.NoError(t, store.SaveRecord(ctx, createTestRecord("tab-1", "tab", 1, false)))
	require.NoError(t, store.SaveRecord(ctx, createTestRecord("tab-2", "tab", 1, true)))
	require.NoError(t, store.SaveRecord(ctx, createTestRecord("bm-1", "bookmark", 1, false)))

	all, err = store.ListRecords(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3, "ListRecords should include tombstones")

	tabs, err := store.ListRecordsByType(ctx, "tab")
	require.NoError(t, err)
	require.Len(t, tabs, 1)
	assert.Equal(t, "tab-1", tabs[0].ID)
}

func TestStorage_Records_Closed(t *testing.T) {
	store, _ := createTestStorage(t)
	require.NoError(t, store.Close())
	ctx := context.Background()

	assert.ErrorIs(t, store.SaveRecord(ctx, createTestRecord("a", "tab", 1, false)), storage.ErrStorageClosed)
	_, err := store.GetRecord(ctx, "a", "tab")
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
	_, err = store.ListRecords(ctx)
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
}
