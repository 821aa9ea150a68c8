package data

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/gophsync/internal/client/storage"
	"github.com/iudanet/gophsync/internal/client/storage/memory"
	"github.com/iudanet/gophsync/internal/crypto"
	"github.com/iudanet/gophsync/internal/models"
	"github.com/iudanet/gophsync/internal/tracker"
	"github.com/iudanet/gophsync/internal/validator"
)

var testStart = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// setupTestLogger создает logger для тестов
func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

type testEnv struct {
	service *Service
	tracker *tracker.Tracker
	store   *memory.Storage
	clock   *clockwork.FakeClock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := memory.New()
	return newTestEnvWithStore(t, store, store)
}

func newTestEnvWithStore(t *testing.T, store *memory.Storage, records storage.RecordStorage) *testEnv {
	t.Helper()

	clock := clockwork.NewFakeClockAt(testStart)
	tr, err := tracker.New("laptop", "user-1", tracker.WithClock(clock), tracker.WithJournal(store))
	require.NoError(t, err)

	service := NewService(tr, records, setupTestLogger(),
		WithClock(clock),
		WithValidator(validator.New(validator.WithClock(clock))))

	return &testEnv{service: service, tracker: tr, store: store, clock: clock}
}

// failingRecords возвращает ошибку при сохранении записи
type failingRecords struct {
	*memory.Storage
	err error
}

func (f *failingRecords) SaveRecord(ctx context.Context, record *models.VersionedData) error {
	return f.err
}

func assertValid(t *testing.T, record *models.VersionedData, clock clockwork.Clock) {
	t.Helper()

	result := validator.New(validator.WithClock(clock)).Validate(record)
	assert.True(t, result.IsValid, "record must pass validation: %v", result.Errors)
}

func TestCreate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	value := map[string]any{"title": "Docs", "url": "https://example.com"}
	record, err := env.service.Create(ctx, "tab", "tab-1", value)
	require.NoError(t, err)

	assert.Equal(t, "tab-1", record.ID)
	assert.Equal(t, "tab", record.ResourceType)
	assert.Equal(t, int64(1), record.Version)
	assert.Equal(t, value, record.Data)
	assert.Equal(t, "user-1", record.UserID)
	assert.Equal(t, "laptop", record.DeviceID)
	assert.Equal(t, testStart.UnixMilli(), record.Timestamp)
	assert.Equal(t, int64(1), record.VectorClock.Get("laptop"))
	assert.False(t, record.Deleted)
	require.Len(t, record.History, 1)
	assert.Equal(t, models.OperationCreate, record.History[0].Operation)
	assertValid(t, record, env.clock)

	stored, err := env.store.GetRecord(ctx, "tab-1", "tab")
	require.NoError(t, err)
	assert.Equal(t, record, stored)

	pending := env.tracker.PendingChanges()
	require.Len(t, pending, 1)
	assert.Equal(t, "laptop:1", pending[0].ID)
	assert.Equal(t, models.OperationCreate, pending[0].Operation)
	assert.Equal(t, value, pending[0].NewValue)
	assert.Nil(t, pending[0].PreviousValue)
}

func TestCreate_GeneratesID(t *testing.T) {
	env := newTestEnv(t)

	record, err := env.service.Create(context.Background(), "tab", "", map[string]any{"title": "x"})
	require.NoError(t, err)

	_, err = uuid.Parse(record.ID)
	assert.NoError(t, err, "generated id must be a uuid")
}

func TestCreate_Errors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.service.Create(ctx, "tab", "tab-1", map[string]any{"title": "x"})
	require.NoError(t, err)

	tests := []struct {
		wantErr      error
		name         string
		resourceType string
		resourceID   string
	}{
		{name: "already exists", resourceType: "tab", resourceID: "tab-1", wantErr: ErrRecordExists},
		{name: "invalid type", resourceType: "Tab!", resourceID: "tab-2"},
		{name: "empty type", resourceType: "", resourceID: "tab-2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.service.Create(ctx, tt.resourceType, tt.resourceID, map[string]any{"title": "y"})
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}

	assert.Len(t, env.tracker.PendingChanges(), 1, "failed writes must not record changes")
}

func TestUpdate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.service.Create(ctx, "tab", "tab-1", map[string]any{"title": "Docs", "pinned": false})
	require.NoError(t, err)

	env.clock.Advance(time.Second)
	record, err := env.service.Update(ctx, "tab", "tab-1", map[string]any{"pinned": true})
	require.NoError(t, err)

	assert.Equal(t, int64(2), record.Version)
	assert.Equal(t, map[string]any{"title": "Docs", "pinned": true}, record.Data)
	assert.Equal(t, testStart.Add(time.Second).UnixMilli(), record.Timestamp)
	assert.Equal(t, int64(2), record.VectorClock.Get("laptop"))
	require.Len(t, record.History, 2)
	assert.Equal(t, models.OperationUpdate, record.History[1].Operation)
	assert.Equal(t, map[string]any{"pinned": true}, record.History[1].Data)
	assertValid(t, record, env.clock)

	pending := env.tracker.PendingChanges()
	require.Len(t, pending, 2)
	assert.Equal(t, map[string]any{"pinned": true}, pending[1].NewValue)
	assert.Equal(t, map[string]any{"title": "Docs", "pinned": false}, pending[1].PreviousValue)
}

func TestUpdate_Missing(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.service.Update(context.Background(), "tab", "nope", map[string]any{"a": 1})
	assert.ErrorIs(t, err, storage.ErrRecordNotFound)
	assert.Empty(t, env.tracker.PendingChanges())
}

func TestDelete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.service.Create(ctx, "tab", "tab-1", map[string]any{"title": "Docs"})
	require.NoError(t, err)

	record, err := env.service.Delete(ctx, "tab", "tab-1")
	require.NoError(t, err)
	assert.True(t, record.Deleted)
	assert.Equal(t, int64(2), record.Version)
	assert.Equal(t, map[string]any{"title": "Docs"}, record.Data, "tombstone keeps the last data")
	assertValid(t, record, env.clock)

	// Get возвращает tombstone вместе с ошибкой
	got, err := env.service.Get(ctx, "tab", "tab-1")
	assert.ErrorIs(t, err, ErrRecordDeleted)
	require.NotNil(t, got)
	assert.True(t, got.Deleted)

	list, err := env.service.List(ctx, "tab")
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = env.service.Update(ctx, "tab", "tab-1", map[string]any{"title": "again"})
	assert.ErrorIs(t, err, ErrRecordDeleted)
	_, err = env.service.Delete(ctx, "tab", "tab-1")
	assert.ErrorIs(t, err, ErrRecordDeleted)

	pending := env.tracker.PendingChanges()
	require.Len(t, pending, 2)
	assert.Equal(t, models.OperationDelete, pending[1].Operation)
}

func TestCreate_RevivesDeleted(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.service.Create(ctx, "tab", "tab-1", map[string]any{"title": "Docs"})
	require.NoError(t, err)
	_, err = env.service.Delete(ctx, "tab", "tab-1")
	require.NoError(t, err)

	record, err := env.service.Create(ctx, "tab", "tab-1", map[string]any{"title": "Back"})
	require.NoError(t, err)
	assert.False(t, record.Deleted)
	assert.Equal(t, int64(3), record.Version)
	assert.Equal(t, map[string]any{"title": "Back"}, record.Data)
}

func TestPut_Upsert(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	record, err := env.service.Put(ctx, "bookmark", "b-1", map[string]any{"title": "Go"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), record.Version)

	record, err = env.service.Put(ctx, "bookmark", "b-1", map[string]any{"folder": "dev"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), record.Version)
	assert.Equal(t, map[string]any{"title": "Go", "folder": "dev"}, record.Data)

	ops := []models.Operation{}
	for _, change := range env.service.History("bookmark", "b-1") {
		ops = append(ops, change.Operation)
	}
	assert.Equal(t, []models.Operation{models.OperationCreate, models.OperationUpdate}, ops)
}

func TestList(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for _, id := range []string{"c", "a", "b"} {
		_, err := env.service.Create(ctx, "tab", id, map[string]any{"id": id})
		require.NoError(t, err)
	}
	_, err := env.service.Create(ctx, "bookmark", "x", map[string]any{})
	require.NoError(t, err)

	list, err := env.service.List(ctx, "tab")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "a", list[0].ID)
	assert.Equal(t, "c", list[2].ID)
}

func TestWrite_SaveFailure(t *testing.T) {
	store := memory.New()
	saveErr := errors.New("disk full")
	env := newTestEnvWithStore(t, store, &failingRecords{Storage: store, err: saveErr})

	_, err := env.service.Create(context.Background(), "tab", "tab-1", map[string]any{"title": "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, saveErr)
	assert.Contains(t, err.Error(), "failed to save record")
}

func TestWrite_VersionContinuesAfterRestart(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	first := newTestEnvWithStore(t, store, store)
	_, err := first.service.Create(ctx, "tab", "tab-1", map[string]any{"n": 1})
	require.NoError(t, err)
	_, err = first.service.Update(ctx, "tab", "tab-1", map[string]any{"n": 2})
	require.NoError(t, err)

	// Новый трекер над тем же хранилищем
	second := newTestEnvWithStore(t, store, store)
	require.NoError(t, second.tracker.Restore(ctx))

	record, err := second.service.Update(ctx, "tab", "tab-1", map[string]any{"n": 3})
	require.NoError(t, err)
	assert.Equal(t, int64(3), record.Version)
	assert.Equal(t, int64(3), record.VectorClock.Get("laptop"))
	assertValid(t, record, second.clock)
}

func TestRepair_ReproducesLocalWrites(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	steps := []func() (*models.VersionedData, error){
		func() (*models.VersionedData, error) {
			return env.service.Create(ctx, "tab", "tab-1", map[string]any{"title": "Docs", "tags": []any{"a"}})
		},
		func() (*models.VersionedData, error) {
			return env.service.Update(ctx, "tab", "tab-1", map[string]any{"tags": []any{"a", "b"}})
		},
		func() (*models.VersionedData, error) { return env.service.Delete(ctx, "tab", "tab-1") },
		func() (*models.VersionedData, error) {
			return env.service.Create(ctx, "tab", "tab-1", map[string]any{"title": "New"})
		},
		func() (*models.VersionedData, error) {
			return env.service.Update(ctx, "tab", "tab-1", map[string]any{"pinned": true})
		},
	}

	v := validator.New(validator.WithClock(env.clock))
	for i, step := range steps {
		env.clock.Advance(time.Second)
		record, err := step()
		require.NoError(t, err, "step %d", i)

		repaired, err := v.Repair(record)
		require.NoError(t, err, "step %d", i)
		assert.Equal(t, record.Hash, repaired.Hash, "step %d", i)
		assert.Equal(t, record.Version, repaired.Version, "step %d", i)
		assert.Equal(t, record.Deleted, repaired.Deleted, "step %d", i)
		assert.Equal(t, record.Timestamp, repaired.Timestamp, "step %d", i)
	}
}

func TestCreate_HashMatchesData(t *testing.T) {
	env := newTestEnv(t)

	record, err := env.service.Create(context.Background(), "tab", "tab-1", map[string]any{"b": 2, "a": 1})
	require.NoError(t, err)

	expected, err := crypto.HashValue(map[string]any{"a": 1, "b": 2})
	require.NoError(t, err)
	assert.Equal(t, expected, record.Hash)
}
