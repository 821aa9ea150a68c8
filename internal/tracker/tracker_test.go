package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/gophsync/internal/client/storage/memory"
	"github.com/iudanet/gophsync/internal/crdt"
	"github.com/iudanet/gophsync/internal/crypto"
	"github.com/iudanet/gophsync/internal/models"
)

var testTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestTracker(t *testing.T, deviceID string, opts ...Option) (*Tracker, *clockwork.FakeClock) {
	t.Helper()

	clock := clockwork.NewFakeClockAt(testTime)
	opts = append([]Option{WithClock(clock)}, opts...)
	tr, err := New(deviceID, "user-1", opts...)
	require.NoError(t, err)

	return tr, clock
}

// failingJournal журнал, который отказывает в записи изменений
type failingJournal struct {
	*memory.Storage
}

func (f *failingJournal) AppendChange(ctx context.Context, change *models.Change) error {
	return errors.New("disk full")
}

func TestNew_InvalidDeviceID(t *testing.T) {
	tests := []struct {
		name     string
		deviceID string
	}{
		{name: "empty", deviceID: ""},
		{name: "colon", deviceID: "dev:1"},
		{name: "space", deviceID: "dev 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, err := New(tt.deviceID, "user-1")
			assert.Error(t, err)
			assert.Nil(t, tr)
		})
	}
}

func TestRecordChange_IncrementsClockByOne(t *testing.T) {
	ctx := context.Background()
	tr, _ := newTestTracker(t, "laptop")

	require.NoError(t, tr.ObserveClock(ctx, crdt.VectorClock{"phone": 7}))

	prev := tr.VectorClock()
	for i := 1; i <= 5; i++ {
		_, err := tr.RecordChange(ctx, models.OperationUpdate, "tab-1", "tab",
			map[string]any{"n": i}, nil, nil)
		require.NoError(t, err)

		cur := tr.VectorClock()
		assert.Equal(t, prev.Get("laptop")+1, cur.Get("laptop"), "own entry must grow by exactly 1")
		for device, counter := range prev {
			assert.GreaterOrEqual(t, cur.Get(device), counter, "no entry may decrease")
		}
		prev = cur
	}

	assert.Equal(t, int64(7), prev.Get("phone"))
}

func TestRecordChange_Fields(t *testing.T) {
	ctx := context.Background()
	tr, clock := newTestTracker(t, "laptop")

	newValue := map[string]any{"title": "Docs", "tags": []any{"a"}}
	previous := map[string]any{"title": "Old"}

	change, err := tr.RecordChange(ctx, models.OperationUpdate, "tab-1", "tab", newValue, previous, []string{"phone:3"})
	require.NoError(t, err)

	expectedHash, err := crypto.HashValue(newValue)
	require.NoError(t, err)

	assert.Equal(t, "laptop:1", change.ID)
	assert.Equal(t, models.OperationUpdate, change.Operation)
	assert.Equal(t, "tab-1", change.ResourceID)
	assert.Equal(t, "tab", change.ResourceType)
	assert.Equal(t, clock.Now().UnixMilli(), change.Timestamp)
	assert.Equal(t, "user-1", change.UserID)
	assert.Equal(t, "laptop", change.DeviceID)
	assert.Equal(t, expectedHash, change.Hash)
	assert.Equal(t, crdt.VectorClock{"laptop": 1}, change.VectorClock)
	assert.Equal(t, int64(1), change.Version)
	assert.Equal(t, []string{"phone:3"}, change.Dependencies)
	assert.Equal(t, previous, change.PreviousValue)

	// Мутация входных данных не влияет на записанное изменение
	newValue["title"] = "Mutated"
	history := tr.ChangeHistory("tab-1", "tab")
	require.Len(t, history, 1)
	assert.Equal(t, "Docs", history[0].NewValue["title"])
}

func TestRecordChange_ReturnedCopyIsIndependent(t *testing.T) {
	ctx := context.Background()
	tr, _ := newTestTracker(t, "laptop")

	first, err := tr.RecordChange(ctx, models.OperationCreate, "tab-1", "tab", map[string]any{"title": "A"}, nil, nil)
	require.NoError(t, err)

	first.NewValue["title"] = "changed by caller"
	first.VectorClock["laptop"] = 100

	_, err = tr.RecordChange(ctx, models.OperationUpdate, "tab-1", "tab", map[string]any{"title": "B"}, nil, nil)
	require.NoError(t, err)

	history := tr.ChangeHistory("tab-1", "tab")
	require.Len(t, history, 2)
	assert.Equal(t, "A", history[0].NewValue["title"])
	assert.Equal(t, int64(1), history[0].VectorClock.Get("laptop"))
	assert.Equal(t, int64(2), tr.VectorClock().Get("laptop"))
}

func TestRecordChange_Errors(t *testing.T) {
	ctx := context.Background()
	tr, _ := newTestTracker(t, "laptop")

	tests := []struct {
		wantErr      error
		name         string
		op           models.Operation
		resourceID   string
		resourceType string
	}{
		{name: "unknown operation", op: "move", resourceID: "tab-1", resourceType: "tab", wantErr: ErrInvalidOperation},
		{name: "empty resource id", op: models.OperationCreate, resourceID: "", resourceType: "tab", wantErr: ErrInvalidResource},
		{name: "empty resource type", op: models.OperationCreate, resourceID: "tab-1", resourceType: "", wantErr: ErrInvalidResource},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			change, err := tr.RecordChange(ctx, tt.op, tt.resourceID, tt.resourceType, map[string]any{}, nil, nil)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, change)
		})
	}

	// Ошибки не расходуют счетчик
	assert.Equal(t, int64(0), tr.VectorClock().Get("laptop"))
	assert.Empty(t, tr.PendingChanges())
}

func TestRecordChange_UnhashableValue(t *testing.T) {
	tr, _ := newTestTracker(t, "laptop")

	_, err := tr.RecordChange(context.Background(), models.OperationCreate, "tab-1", "tab",
		map[string]any{"fn": func() {}}, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to hash new value")
}

func TestRecordChange_JournalFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	tr, _ := newTestTracker(t, "laptop", WithJournal(&failingJournal{Storage: memory.New()}))

	change, err := tr.RecordChange(ctx, models.OperationCreate, "tab-1", "tab", map[string]any{"title": "A"}, nil, nil)
	require.Error(t, err)
	assert.Nil(t, change)
	assert.Contains(t, err.Error(), "failed to journal change")

	assert.Equal(t, int64(0), tr.VectorClock().Get("laptop"))
	assert.Empty(t, tr.PendingChanges())
	assert.Empty(t, tr.ChangeHistory("tab-1", "tab"))
}

func TestCompositeIDs_UniqueAcrossTrackers(t *testing.T) {
	ctx := context.Background()
	laptop, _ := newTestTracker(t, "laptop")
	phone, _ := newTestTracker(t, "phone")

	seen := make(map[string]bool)
	for i := 0; i < 10; i++ {
		for _, tr := range []*Tracker{laptop, phone} {
			change, err := tr.RecordChange(ctx, models.OperationUpdate, "tab-1", "tab", map[string]any{"i": i}, nil, nil)
			require.NoError(t, err)
			assert.False(t, seen[change.ID], "duplicate change id %s", change.ID)
			seen[change.ID] = true
		}
	}
	assert.Len(t, seen, 20)
}

func TestChangeHistory_InsertionOrder(t *testing.T) {
	ctx := context.Background()
	tr, clock := newTestTracker(t, "laptop")

	// Значения и время специально не упорядочены
	values := []string{"zeta", "alpha", "mid", "beta"}
	var ids []string
	for i, v := range values {
		if i == 2 {
			clock.Advance(-time.Minute)
		} else {
			clock.Advance(time.Second)
		}
		change, err := tr.RecordChange(ctx, models.OperationUpdate, "tab-1", "tab", map[string]any{"title": v}, nil, nil)
		require.NoError(t, err)
		ids = append(ids, change.ID)

		// Изменение другого ресурса не попадает в историю tab-1
		_, err = tr.RecordChange(ctx, models.OperationUpdate, "tab-2", "tab", map[string]any{"title": v}, nil, nil)
		require.NoError(t, err)
	}

	history := tr.ChangeHistory("tab-1", "tab")
	require.Len(t, history, len(values))
	for i, change := range history {
		assert.Equal(t, ids[i], change.ID)
		assert.Equal(t, values[i], change.NewValue["title"])
		assert.Equal(t, int64(i+1), change.Version)
	}

	assert.Empty(t, tr.ChangeHistory("tab-1", "bookmark"))
}

func TestPendingAndMarkApplied(t *testing.T) {
	ctx := context.Background()
	tr, _ := newTestTracker(t, "laptop")

	for i := 0; i < 3; i++ {
		_, err := tr.RecordChange(ctx, models.OperationUpdate, "tab-1", "tab", map[string]any{"i": i}, nil, nil)
		require.NoError(t, err)
	}
	require.Len(t, tr.PendingChanges(), 3)

	require.NoError(t, tr.MarkApplied(ctx, "laptop:2"))
	require.NoError(t, tr.MarkApplied(ctx, "laptop:2"), "MarkApplied must be idempotent")
	require.NoError(t, tr.MarkApplied(ctx, "unknown:1"))

	pending := tr.PendingChanges()
	require.Len(t, pending, 2)
	assert.Equal(t, "laptop:1", pending[0].ID)
	assert.Equal(t, "laptop:3", pending[1].ID)

	// История сохраняет подтвержденные изменения
	assert.Len(t, tr.ChangeHistory("tab-1", "tab"), 3)
}

func TestSnapshot_VersionIndependentOfChangeCounter(t *testing.T) {
	ctx := context.Background()
	tr, clock := newTestTracker(t, "laptop")

	for i := 0; i < 4; i++ {
		_, err := tr.RecordChange(ctx, models.OperationUpdate, "tab-1", "tab", map[string]any{"i": i}, nil, nil)
		require.NoError(t, err)
	}

	data := map[string]any{"title": "Docs"}
	first, err := tr.Snapshot("tab-1", data, "tab")
	require.NoError(t, err)
	second, err := tr.Snapshot("tab-1", data, "tab")
	require.NoError(t, err)
	other, err := tr.Snapshot("tab-1", data, "bookmark")
	require.NoError(t, err)

	assert.Equal(t, int64(1), first.Version)
	assert.Equal(t, int64(2), second.Version)
	assert.Equal(t, int64(1), other.Version, "versions are scoped by (id, type)")

	hash, err := crypto.HashValue(data)
	require.NoError(t, err)
	assert.Equal(t, hash, first.Hash)
	assert.Equal(t, crdt.VectorClock{"laptop": 4}, first.VectorClock)
	assert.Equal(t, clock.Now().UnixMilli(), first.Timestamp)
	assert.Equal(t, "user-1", first.UserID)
	assert.Equal(t, "laptop", first.DeviceID)

	tr.ObserveVersion("tab-1", "tab", 10)
	tr.ObserveVersion("tab-1", "tab", 3)
	next, err := tr.Snapshot("tab-1", data, "tab")
	require.NoError(t, err)
	assert.Equal(t, int64(11), next.Version)

	_, err = tr.Snapshot("", data, "tab")
	assert.ErrorIs(t, err, ErrInvalidResource)
}

func TestApplyChange(t *testing.T) {
	tr, _ := newTestTracker(t, "laptop")
	current := map[string]any{"title": "Old", "url": "https://a"}

	tests := []struct {
		change  *models.Change
		want    map[string]any
		wantErr error
		name    string
	}{
		{
			name:   "update overwrites fields",
			change: &models.Change{Operation: models.OperationUpdate, NewValue: map[string]any{"title": "New", "pinned": true}},
			want:   map[string]any{"title": "New", "url": "https://a", "pinned": true},
		},
		{
			name:   "create overwrites fields",
			change: &models.Change{Operation: models.OperationCreate, NewValue: map[string]any{"title": "Created"}},
			want:   map[string]any{"title": "Created", "url": "https://a"},
		},
		{
			name:   "delete keeps current data",
			change: &models.Change{Operation: models.OperationDelete},
			want:   map[string]any{"title": "Old", "url": "https://a"},
		},
		{
			name:    "unknown operation",
			change:  &models.Change{Operation: "rename"},
			wantErr: ErrInvalidOperation,
		},
		{
			name:    "nil change",
			wantErr: ErrInvalidOperation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tr.ApplyChange(tt.change, current)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	// Исходные данные не изменились, часы не тронуты
	assert.Equal(t, map[string]any{"title": "Old", "url": "https://a"}, current)
	assert.Empty(t, tr.VectorClock())
}

func TestApplyChange_NilCurrent(t *testing.T) {
	tr, _ := newTestTracker(t, "laptop")

	got, err := tr.ApplyChange(&models.Change{Operation: models.OperationCreate, NewValue: map[string]any{"a": 1}}, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": 1}, got)
}

func TestObserveClock_NeverDecreases(t *testing.T) {
	ctx := context.Background()
	tr, _ := newTestTracker(t, "laptop")

	for i := 0; i < 3; i++ {
		_, err := tr.RecordChange(ctx, models.OperationUpdate, "tab-1", "tab", map[string]any{"i": i}, nil, nil)
		require.NoError(t, err)
	}

	require.NoError(t, tr.ObserveClock(ctx, crdt.VectorClock{"laptop": 1, "phone": 4}))
	assert.Equal(t, crdt.VectorClock{"laptop": 3, "phone": 4}, tr.VectorClock())

	require.NoError(t, tr.ObserveClock(ctx, crdt.VectorClock{"phone": 2, "tablet": 1}))
	assert.Equal(t, crdt.VectorClock{"laptop": 3, "phone": 4, "tablet": 1}, tr.VectorClock())
}

func TestVectorClock_ReturnsCopy(t *testing.T) {
	ctx := context.Background()
	tr, _ := newTestTracker(t, "laptop")

	_, err := tr.RecordChange(ctx, models.OperationCreate, "tab-1", "tab", map[string]any{}, nil, nil)
	require.NoError(t, err)

	snapshot := tr.VectorClock()
	snapshot["laptop"] = 42

	assert.Equal(t, int64(1), tr.VectorClock().Get("laptop"))
}

func TestRestore_FromJournal(t *testing.T) {
	ctx := context.Background()
	journal := memory.New()

	tr, _ := newTestTracker(t, "laptop", WithJournal(journal))
	for i := 0; i < 3; i++ {
		_, err := tr.RecordChange(ctx, models.OperationUpdate, "tab-1", "tab", map[string]any{"i": i}, nil, nil)
		require.NoError(t, err)
	}
	require.NoError(t, tr.MarkApplied(ctx, "laptop:1"))
	require.NoError(t, tr.ObserveClock(ctx, crdt.VectorClock{"phone": 9}))

	// Новый трекер на том же журнале (перезапуск)
	restored, _ := newTestTracker(t, "laptop", WithJournal(journal))
	require.NoError(t, restored.Restore(ctx))

	assert.Equal(t, crdt.VectorClock{"laptop": 3, "phone": 9}, restored.VectorClock())

	pending := restored.PendingChanges()
	require.Len(t, pending, 2)
	assert.Equal(t, "laptop:2", pending[0].ID)
	assert.Equal(t, "laptop:3", pending[1].ID)
	assert.Len(t, restored.ChangeHistory("tab-1", "tab"), 3)

	// Счетчик продолжается после последнего сохраненного id
	change, err := restored.RecordChange(ctx, models.OperationUpdate, "tab-1", "tab", map[string]any{"i": 3}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "laptop:4", change.ID)
	assert.Equal(t, int64(4), change.Version)
}

func TestRestore_WithoutJournal(t *testing.T) {
	tr, _ := newTestTracker(t, "laptop")
	assert.NoError(t, tr.Restore(context.Background()))
}

func TestRecordChange_Concurrent(t *testing.T) {
	ctx := context.Background()
	tr, _ := newTestTracker(t, "laptop")

	const workers = 8
	const perWorker = 25

	var wg sync.WaitGroup
	ids := make(chan string, workers*perWorker)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				change, err := tr.RecordChange(ctx, models.OperationUpdate,
					fmt.Sprintf("tab-%d", w), "tab", map[string]any{"i": i}, nil, nil)
				if err == nil {
					ids <- change.ID
				}
			}
		}(w)
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]bool)
	for id := range ids {
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}

	assert.Len(t, seen, workers*perWorker)
	assert.Equal(t, int64(workers*perWorker), tr.VectorClock().Get("laptop"))
	assert.Len(t, tr.PendingChanges(), workers*perWorker)
}
