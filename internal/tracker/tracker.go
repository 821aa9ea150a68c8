// Package tracker записывает локальные мутации ресурсов одного устройства.
// Tracker владеет векторными часами устройства, очередью pending и
// историей изменений по ресурсам.
package tracker

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/iudanet/gophsync/internal/client/storage"
	"github.com/iudanet/gophsync/internal/crdt"
	"github.com/iudanet/gophsync/internal/crypto"
	"github.com/iudanet/gophsync/internal/models"
	"github.com/iudanet/gophsync/internal/validation"
)

// Tracker отслеживает изменения одного устройства.
// Создается один раз на сессию устройства и передается всем потребителям.
type Tracker struct {
	clock    clockwork.Clock
	journal  storage.JournalStorage
	vc       crdt.VectorClock
	history  map[string][]*models.Change // map[type/id] изменения в порядке записи
	versions map[string]int64            // map[type/id] версия снимка
	deviceID string
	userID   string
	pending  []*models.Change
	mu       sync.Mutex
}

// Option настраивает Tracker
type Option func(*Tracker)

// WithClock задает источник времени (clockwork.NewFakeClock в тестах)
func WithClock(clock clockwork.Clock) Option {
	return func(t *Tracker) {
		t.clock = clock
	}
}

// WithJournal подключает постоянный журнал изменений
func WithJournal(journal storage.JournalStorage) Option {
	return func(t *Tracker) {
		t.journal = journal
	}
}

// New создает трекер для устройства deviceID
func New(deviceID, userID string, opts ...Option) (*Tracker, error) {
	if err := validation.ValidateDeviceID(deviceID); err != nil {
		return nil, fmt.Errorf("invalid device id: %w", err)
	}

	t := &Tracker{
		clock:    clockwork.NewRealClock(),
		vc:       crdt.NewVectorClock(),
		history:  make(map[string][]*models.Change),
		versions: make(map[string]int64),
		deviceID: deviceID,
		userID:   userID,
	}
	for _, opt := range opts {
		opt(t)
	}

	return t, nil
}

// DeviceID возвращает идентификатор устройства
func (t *Tracker) DeviceID() string {
	return t.deviceID
}

// UserID возвращает идентификатор пользователя
func (t *Tracker) UserID() string {
	return t.userID
}

// RecordChange записывает локальную мутацию ресурса.
// Счетчик устройства в векторных часах растет ровно на 1, id изменения
// имеет вид deviceID:counter. Возвращается копия: ранее выданные
// изменения никогда не модифицируются.
func (t *Tracker) RecordChange(
	ctx context.Context,
	op models.Operation,
	resourceID, resourceType string,
	newValue, previousValue map[string]any,
	dependencies []string,
) (*models.Change, error) {
	if !op.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidOperation, op)
	}
	if resourceID == "" || resourceType == "" {
		return nil, fmt.Errorf("%w: resource id and type are required", ErrInvalidResource)
	}

	hash, err := crypto.HashValue(newValue)
	if err != nil {
		return nil, fmt.Errorf("failed to hash new value: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	// Инкремент делаем на копии: при ошибке журнала состояние не меняется
	next := t.vc.Clone()
	counter := next.Increment(t.deviceID)
	key := models.ResourceKey(resourceType, resourceID)

	change := &models.Change{
		ID:            formatChangeID(t.deviceID, counter),
		Operation:     op,
		ResourceID:    resourceID,
		ResourceType:  resourceType,
		Timestamp:     t.clock.Now().UnixMilli(),
		PreviousValue: models.CloneData(previousValue),
		NewValue:      models.CloneData(newValue),
		UserID:        t.userID,
		DeviceID:      t.deviceID,
		VectorClock:   next.Clone(),
		Hash:          hash,
		Version:       int64(len(t.history[key])) + 1,
	}
	if len(dependencies) > 0 {
		change.Dependencies = append([]string(nil), dependencies...)
	}

	if t.journal != nil {
		if err := t.journal.AppendChange(ctx, change); err != nil {
			return nil, fmt.Errorf("failed to journal change: %w", err)
		}
	}

	t.vc = next
	t.pending = append(t.pending, change)
	t.history[key] = append(t.history[key], change)

	return change.Clone(), nil
}

// VectorClock возвращает копию текущих векторных часов
func (t *Tracker) VectorClock() crdt.VectorClock {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.vc.Clone()
}

// ObserveClock объединяет удаленные часы с локальными (максимум по каждому устройству).
// Ни один счетчик, включая собственный, не уменьшается.
func (t *Tracker) ObserveClock(ctx context.Context, remote crdt.VectorClock) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	next := t.vc.Clone()
	next.Merge(remote)

	if t.journal != nil {
		if err := t.journal.SaveVectorClock(ctx, next); err != nil {
			return fmt.Errorf("failed to save vector clock: %w", err)
		}
	}

	t.vc = next
	return nil
}

// Snapshot создает версионированную запись ресурса со следующей версией.
// Версия считается по паре (resourceID, resourceType) независимо от счетчика изменений.
func (t *Tracker) Snapshot(resourceID string, data map[string]any, resourceType string) (*models.VersionedData, error) {
	if resourceID == "" || resourceType == "" {
		return nil, fmt.Errorf("%w: resource id and type are required", ErrInvalidResource)
	}

	hash, err := crypto.HashValue(data)
	if err != nil {
		return nil, fmt.Errorf("failed to hash snapshot data: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	key := models.ResourceKey(resourceType, resourceID)
	t.versions[key]++

	return &models.VersionedData{
		ID:           resourceID,
		ResourceType: resourceType,
		Data:         models.CloneData(data),
		Version:      t.versions[key],
		Timestamp:    t.clock.Now().UnixMilli(),
		UserID:       t.userID,
		DeviceID:     t.deviceID,
		Hash:         hash,
		VectorClock:  t.vc.Clone(),
	}, nil
}

// ObserveVersion поднимает счетчик версий ресурса до version.
// Используется при загрузке записей, созданных до перезапуска или на других устройствах.
func (t *Tracker) ObserveVersion(resourceID, resourceType string, version int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := models.ResourceKey(resourceType, resourceID)
	if version > t.versions[key] {
		t.versions[key] = version
	}
}

// ChangeHistory возвращает изменения ресурса в порядке записи
func (t *Tracker) ChangeHistory(resourceID, resourceType string) []*models.Change {
	t.mu.Lock()
	defer t.mu.Unlock()

	return cloneChanges(t.history[models.ResourceKey(resourceType, resourceID)])
}

// PendingChanges возвращает не подтвержденные изменения в порядке записи
func (t *Tracker) PendingChanges() []*models.Change {
	t.mu.Lock()
	defer t.mu.Unlock()

	return cloneChanges(t.pending)
}

// MarkApplied удаляет изменение из очереди pending.
// Повторный вызов для того же id ничего не делает.
func (t *Tracker) MarkApplied(ctx context.Context, changeID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	idx := -1
	for i, change := range t.pending {
		if change.ID == changeID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}

	if t.journal != nil {
		if err := t.journal.MarkChangeApplied(ctx, changeID); err != nil {
			return fmt.Errorf("failed to mark change applied: %w", err)
		}
	}

	t.pending = append(t.pending[:idx], t.pending[idx+1:]...)
	return nil
}

// ApplyChange применяет удаленное изменение к текущему значению ресурса.
// create и update перезаписывают поля копии currentData значениями NewValue,
// delete возвращает текущее значение без изменений (tombstone ставит вызывающий).
// Версию и векторные часы метод не трогает.
func (t *Tracker) ApplyChange(change *models.Change, currentData map[string]any) (map[string]any, error) {
	if change == nil {
		return nil, fmt.Errorf("%w: change is nil", ErrInvalidOperation)
	}

	switch change.Operation {
	case models.OperationCreate, models.OperationUpdate:
		return models.Overwrite(currentData, change.NewValue), nil
	case models.OperationDelete:
		return models.CloneData(currentData), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidOperation, change.Operation)
	}
}

// Restore загружает состояние трекера из журнала после перезапуска.
// Часы восстанавливаются как объединение сохраненного снимка и часов
// всех изменений журнала, поэтому счетчик продолжается после последнего id.
func (t *Tracker) Restore(ctx context.Context) error {
	if t.journal == nil {
		return nil
	}

	clock, err := t.journal.GetVectorClock(ctx)
	if err != nil {
		return fmt.Errorf("failed to load vector clock: %w", err)
	}

	log, err := t.journal.GetChangeLog(ctx)
	if err != nil {
		return fmt.Errorf("failed to load change log: %w", err)
	}

	pending, err := t.journal.GetPendingChanges(ctx)
	if err != nil {
		return fmt.Errorf("failed to load pending changes: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	vc := crdt.NewVectorClock()
	vc.Merge(clock)
	history := make(map[string][]*models.Change)
	for _, change := range log {
		vc.Merge(change.VectorClock)
		if counter, ok := parseCounter(change.ID, t.deviceID); ok && counter > vc.Get(t.deviceID) {
			vc[t.deviceID] = counter
		}
		history[change.ResourceKey()] = append(history[change.ResourceKey()], change)
	}

	t.vc = vc
	t.history = history
	t.pending = pending

	return nil
}

func formatChangeID(deviceID string, counter int64) string {
	return deviceID + ":" + strconv.FormatInt(counter, 10)
}

// parseCounter извлекает счетчик из id вида deviceID:counter
func parseCounter(id, deviceID string) (int64, bool) {
	prefix := deviceID + ":"
	if !strings.HasPrefix(id, prefix) {
		return 0, false
	}
	counter, err := strconv.ParseInt(strings.TrimPrefix(id, prefix), 10, 64)
	if err != nil {
		return 0, false
	}
	return counter, true
}

func cloneChanges(changes []*models.Change) []*models.Change {
	result := make([]*models.Change, 0, len(changes))
	for _, change := range changes {
		result = append(result, change.Clone())
	}
	return result
}
