// Package memory implements client storage interfaces in process memory.
// Used for headless sessions (db path ":memory:") and tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/iudanet/gophsync/internal/client/storage"
	"github.com/iudanet/gophsync/internal/crdt"
	"github.com/iudanet/gophsync/internal/models"
)

// Storage хранит версионированные записи, журнал изменений и метаданные в памяти.
// Записи никогда не удаляются физически: удаление - это tombstone (Deleted = true).
type Storage struct {
	records  map[string]*models.VersionedData // map[type/id]record
	pending  map[string]struct{}              // id изменений, ожидающих доставки
	clock    crdt.VectorClock
	deviceID string
	changes  []*models.Change
	cursor   int64
	mu       sync.RWMutex
}

var (
	_ storage.RecordStorage   = (*Storage)(nil)
	_ storage.JournalStorage  = (*Storage)(nil)
	_ storage.MetadataStorage = (*Storage)(nil)
)

// New создает пустое хранилище
func New() *Storage {
	return &Storage{
		records: make(map[string]*models.VersionedData),
		pending: make(map[string]struct{}),
		clock:   crdt.NewVectorClock(),
	}
}

// Close ничего не освобождает; данные живут до конца процесса
func (s *Storage) Close() error {
	return nil
}

// SaveRecord сохраняет копию записи, заменяя существующую
func (s *Storage) SaveRecord(ctx context.Context, record *models.VersionedData) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[record.Key()] = record.Clone()
	return nil
}

// PutIfNewer сохраняет запись, только если она новее существующей.
// Правило LWW: больший Version, затем Timestamp, затем DeviceID.
// Возвращает true, если запись была сохранена.
func (s *Storage) PutIfNewer(record *models.VersionedData) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.records[record.Key()]

	// Если записи нет или новая версия новее - сохраняем
	if !exists || record.IsNewerThan(existing) {
		s.records[record.Key()] = record.Clone()
		return true
	}

	return false
}

// GetRecord возвращает копию записи (включая tombstone)
func (s *Storage) GetRecord(ctx context.Context, resourceID, resourceType string) (*models.VersionedData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, exists := s.records[models.ResourceKey(resourceType, resourceID)]
	if !exists {
		return nil, storage.ErrRecordNotFound
	}

	return record.Clone(), nil
}

// ListRecords возвращает все записи, включая удаленные, упорядоченные по ключу
func (s *Storage) ListRecords(ctx context.Context) ([]*models.VersionedData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*models.VersionedData, 0, len(s.records))
	for _, record := range s.records {
		result = append(result, record.Clone())
	}
	sortRecords(result)

	return result, nil
}

// ListRecordsByType возвращает неудаленные записи заданного типа
func (s *Storage) ListRecordsByType(ctx context.Context, resourceType string) ([]*models.VersionedData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*models.VersionedData, 0)
	for _, record := range s.records {
		if !record.Deleted && record.ResourceType == resourceType {
			result = append(result, record.Clone())
		}
	}
	sortRecords(result)

	return result, nil
}

// Merge объединяет текущее хранилище записей с другим по правилу LWW.
// Операция коммутативна и идемпотентна.
func (s *Storage) Merge(other *Storage) {
	other.mu.RLock()
	incoming := make([]*models.VersionedData, 0, len(other.records))
	for _, record := range other.records {
		incoming = append(incoming, record.Clone())
	}
	other.mu.RUnlock()

	for _, record := range incoming {
		s.PutIfNewer(record)
	}
}

// AppendChange добавляет изменение в журнал и помечает его ожидающим
func (s *Storage) AppendChange(ctx context.Context, change *models.Change) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.changes = append(s.changes, change.Clone())
	s.pending[change.ID] = struct{}{}
	return nil
}

// MarkChangeApplied снимает пометку pending; повторный вызов ничего не делает
func (s *Storage) MarkChangeApplied(ctx context.Context, changeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.pending, changeID)
	return nil
}

// GetPendingChanges возвращает ожидающие изменения в порядке добавления
func (s *Storage) GetPendingChanges(ctx context.Context) ([]*models.Change, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*models.Change, 0, len(s.pending))
	for _, change := range s.changes {
		if _, ok := s.pending[change.ID]; ok {
			result = append(result, change.Clone())
		}
	}
	return result, nil
}

// GetChangeLog возвращает весь журнал в порядке добавления
func (s *Storage) GetChangeLog(ctx context.Context) ([]*models.Change, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*models.Change, 0, len(s.changes))
	for _, change := range s.changes {
		result = append(result, change.Clone())
	}
	return result, nil
}

// SaveVectorClock сохраняет снимок векторных часов
func (s *Storage) SaveVectorClock(ctx context.Context, clock crdt.VectorClock) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clock = clock.Clone()
	return nil
}

// GetVectorClock возвращает копию сохраненных часов
func (s *Storage) GetVectorClock(ctx context.Context) (crdt.VectorClock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.clock.Clone(), nil
}

// SaveSyncCursor сохраняет курсор последней синхронизации
func (s *Storage) SaveSyncCursor(ctx context.Context, cursor int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cursor = cursor
	return nil
}

// GetSyncCursor возвращает курсор последней синхронизации
func (s *Storage) GetSyncCursor(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.cursor, nil
}

// SaveDeviceID сохраняет идентификатор устройства
func (s *Storage) SaveDeviceID(ctx context.Context, deviceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.deviceID = deviceID
	return nil
}

// GetDeviceID возвращает идентификатор устройства или ""
func (s *Storage) GetDeviceID(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.deviceID, nil
}

func sortRecords(records []*models.VersionedData) {
	sort.Slice(records, func(i, j int) bool {
		return records[i].Key() < records[j].Key()
	})
}
