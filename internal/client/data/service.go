// Package data реализует локальный путь записи ресурсов устройства:
// мутации фиксируются трекером, снимок сохраняется вместе с историей,
// изменения других устройств и результаты разрешения конфликтов
// интегрируются в те же записи.
package data

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/iudanet/gophsync/internal/client/storage"
	"github.com/iudanet/gophsync/internal/crdt"
	"github.com/iudanet/gophsync/internal/crypto"
	"github.com/iudanet/gophsync/internal/models"
	"github.com/iudanet/gophsync/internal/validation"
	"github.com/iudanet/gophsync/internal/validator"
)

var (
	// ErrRecordExists запись уже существует и не удалена
	ErrRecordExists = errors.New("record already exists")

	// ErrRecordDeleted запись удалена (tombstone)
	ErrRecordDeleted = errors.New("record is deleted")
)

// Tracker часть ChangeTracker, которую использует сервис
type Tracker interface {
	DeviceID() string
	UserID() string
	RecordChange(
		ctx context.Context,
		op models.Operation,
		resourceID, resourceType string,
		newValue, previousValue map[string]any,
		dependencies []string,
	) (*models.Change, error)
	Snapshot(resourceID string, data map[string]any, resourceType string) (*models.VersionedData, error)
	ObserveVersion(resourceID, resourceType string, version int64)
	ApplyChange(change *models.Change, currentData map[string]any) (map[string]any, error)
	ChangeHistory(resourceID, resourceType string) []*models.Change
}

// Service локальный сервис данных устройства.
// Операции чтения-модификации-записи одной записи сериализуются.
type Service struct {
	tracker   Tracker
	records   storage.RecordStorage
	validator *validator.Validator
	clock     clockwork.Clock
	logger    *slog.Logger
	mu        sync.Mutex
}

// Option настраивает Service
type Option func(*Service)

// WithValidator задает валидатор для проверки целостности
func WithValidator(v *validator.Validator) Option {
	return func(s *Service) {
		s.validator = v
	}
}

// WithClock задает источник времени для разрешенных конфликтов
func WithClock(clock clockwork.Clock) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

// NewService создает сервис данных
func NewService(tracker Tracker, records storage.RecordStorage, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		tracker:   tracker,
		records:   records,
		validator: validator.New(),
		clock:     clockwork.NewRealClock(),
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create создает новый ресурс. Пустой resourceID заменяется сгенерированным uuid.
// Удаленный ресурс можно создать заново с тем же id.
func (s *Service) Create(ctx context.Context, resourceType, resourceID string, value map[string]any) (*models.VersionedData, error) {
	if resourceID == "" {
		resourceID = uuid.New().String()
	}
	if err := validation.ValidateResource(resourceID, resourceType); err != nil {
		return nil, fmt.Errorf("invalid resource: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.load(ctx, resourceID, resourceType)
	if err != nil {
		return nil, err
	}
	if existing != nil && !existing.Deleted {
		return nil, fmt.Errorf("%w: %s", ErrRecordExists, models.ResourceKey(resourceType, resourceID))
	}

	return s.write(ctx, existing, models.OperationCreate, resourceID, resourceType, value, models.CloneData(value))
}

// Update перезаписывает поля существующего ресурса значениями patch
func (s *Service) Update(ctx context.Context, resourceType, resourceID string, patch map[string]any) (*models.VersionedData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.loadLive(ctx, resourceID, resourceType)
	if err != nil {
		return nil, err
	}

	return s.write(ctx, existing, models.OperationUpdate, resourceID, resourceType, patch, models.Overwrite(existing.Data, patch))
}

// Put создает ресурс или обновляет поля существующего
func (s *Service) Put(ctx context.Context, resourceType, resourceID string, value map[string]any) (*models.VersionedData, error) {
	if resourceID == "" {
		return s.Create(ctx, resourceType, "", value)
	}

	record, err := s.Update(ctx, resourceType, resourceID, value)
	if errors.Is(err, storage.ErrRecordNotFound) || errors.Is(err, ErrRecordDeleted) {
		return s.Create(ctx, resourceType, resourceID, value)
	}
	return record, err
}

// Delete помечает ресурс удаленным. Данные и история сохраняются.
func (s *Service) Delete(ctx context.Context, resourceType, resourceID string) (*models.VersionedData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.loadLive(ctx, resourceID, resourceType)
	if err != nil {
		return nil, err
	}

	return s.write(ctx, existing, models.OperationDelete, resourceID, resourceType, nil, models.CloneData(existing.Data))
}

// Get возвращает ресурс. Для удаленного ресурса возвращается ErrRecordDeleted вместе с записью.
func (s *Service) Get(ctx context.Context, resourceType, resourceID string) (*models.VersionedData, error) {
	record, err := s.records.GetRecord(ctx, resourceID, resourceType)
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	if record.Deleted {
		return record, fmt.Errorf("%w: %s", ErrRecordDeleted, record.Key())
	}
	return record, nil
}

// List возвращает неудаленные ресурсы типа resourceType
func (s *Service) List(ctx context.Context, resourceType string) ([]*models.VersionedData, error) {
	records, err := s.records.ListRecordsByType(ctx, resourceType)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	return records, nil
}

// History возвращает изменения ресурса, записанные на этом устройстве
func (s *Service) History(resourceType, resourceID string) []*models.Change {
	return s.tracker.ChangeHistory(resourceID, resourceType)
}

// write фиксирует изменение трекером и сохраняет следующий снимок записи
func (s *Service) write(
	ctx context.Context,
	existing *models.VersionedData,
	op models.Operation,
	resourceID, resourceType string,
	newValue, next map[string]any,
) (*models.VersionedData, error) {
	var previous map[string]any
	if existing != nil {
		previous = existing.Data
		s.tracker.ObserveVersion(resourceID, resourceType, existing.Version)
	}

	change, err := s.tracker.RecordChange(ctx, op, resourceID, resourceType, newValue, previous, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to record change: %w", err)
	}

	record, err := s.tracker.Snapshot(resourceID, next, resourceType)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot record: %w", err)
	}

	if existing != nil {
		record.VectorClock.Merge(existing.VectorClock)
		record.History = existing.History
		record.Timestamp = max(record.Timestamp, existing.Timestamp)
	}

	entry := models.HistoryEntry{
		Operation: op,
		Data:      models.CloneData(newValue),
		Timestamp: record.Timestamp,
	}
	if op == models.OperationCreate {
		entry.Data = models.CloneData(next)
	}
	record.History = append(record.History, entry)
	record.Deleted = op == models.OperationDelete

	if err := s.records.SaveRecord(ctx, record); err != nil {
		// Изменение уже в журнале: координатор получит его при следующей синхронизации
		return nil, fmt.Errorf("failed to save record: %w", err)
	}

	s.logger.Debug("Local change recorded",
		"change_id", change.ID,
		"resource", record.Key(),
		"operation", op,
		"version", record.Version)

	return record, nil
}

// ApplyRemoteChange интегрирует изменение другого устройства.
// Изменение, уже учтенное в часах записи, пропускается.
func (s *Service) ApplyRemoteChange(ctx context.Context, change *models.Change) error {
	if change == nil {
		return errors.New("change is nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.load(ctx, change.ResourceID, change.ResourceType)
	if err != nil {
		return err
	}

	var current map[string]any
	if existing != nil {
		if order := existing.VectorClock.Compare(change.VectorClock); order == crdt.After || order == crdt.Equal {
			s.logger.Debug("Remote change already incorporated",
				"change_id", change.ID,
				"resource", change.ResourceKey())
			return nil
		}
		current = existing.Data
	}

	next, err := s.tracker.ApplyChange(change, current)
	if err != nil {
		return fmt.Errorf("failed to apply change %s: %w", change.ID, err)
	}

	entry := models.HistoryEntry{
		Operation: change.Operation,
		Data:      models.CloneData(change.NewValue),
		Timestamp: change.Timestamp,
	}
	switch {
	case change.Operation == models.OperationCreate:
		entry.Data = models.CloneData(next)
	case existing == nil && change.Operation == models.OperationUpdate:
		// История записи начинается с create
		entry.Operation = models.OperationCreate
		entry.Data = models.CloneData(next)
	}

	record, err := nextRecord(existing, change.ResourceID, change.ResourceType, next, change.VectorClock, entry)
	if err != nil {
		return err
	}
	record.UserID = change.UserID
	record.DeviceID = change.DeviceID
	record.Deleted = change.Operation == models.OperationDelete

	if err := s.records.SaveRecord(ctx, record); err != nil {
		return fmt.Errorf("failed to save record: %w", err)
	}
	s.tracker.ObserveVersion(record.ID, record.ResourceType, record.Version)

	s.logger.Debug("Remote change applied",
		"change_id", change.ID,
		"resource", record.Key(),
		"version", record.Version)

	return nil
}

// ApplyResolution сохраняет принятый координатором результат слияния.
// Шаг истории имеет тип create, потому что merged заменяет значение целиком.
func (s *Service) ApplyResolution(ctx context.Context, resourceID, resourceType string, merged map[string]any, clock crdt.VectorClock) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.load(ctx, resourceID, resourceType)
	if err != nil {
		return err
	}

	record, err := nextRecord(existing, resourceID, resourceType, merged, clock, models.HistoryEntry{
		Operation: models.OperationCreate,
		Data:      models.CloneData(merged),
		Timestamp: s.clock.Now().UnixMilli(),
	})
	if err != nil {
		return err
	}
	if record.UserID == "" {
		record.UserID = s.tracker.UserID()
	}
	record.DeviceID = s.tracker.DeviceID()
	record.ConflictResolved = true
	record.Deleted = false

	if err := s.records.SaveRecord(ctx, record); err != nil {
		return fmt.Errorf("failed to save record: %w", err)
	}
	s.tracker.ObserveVersion(resourceID, resourceType, record.Version)

	s.logger.Info("Conflict resolution applied", "resource", record.Key(), "version", record.Version)
	return nil
}

// nextRecord строит следующую версию записи с данными data
func nextRecord(
	existing *models.VersionedData,
	resourceID, resourceType string,
	data map[string]any,
	clock crdt.VectorClock,
	entry models.HistoryEntry,
) (*models.VersionedData, error) {
	hash, err := crypto.HashValue(data)
	if err != nil {
		return nil, fmt.Errorf("failed to hash record data: %w", err)
	}

	record := &models.VersionedData{
		ID:           resourceID,
		ResourceType: resourceType,
		Version:      1,
		VectorClock:  crdt.NewVectorClock(),
	}
	if existing != nil {
		record = existing.Clone()
		record.Version = existing.Version + 1
		if record.VectorClock == nil {
			record.VectorClock = crdt.NewVectorClock()
		}
	}

	record.Data = models.CloneData(data)
	if record.Data == nil {
		record.Data = map[string]any{}
	}
	record.Hash = hash
	record.VectorClock.Merge(clock)

	// История должна идти по неубывающему времени даже при расхождении часов устройств
	record.Timestamp = max(record.Timestamp, entry.Timestamp)
	entry.Timestamp = record.Timestamp
	record.History = append(record.History, entry)

	return record, nil
}

// load возвращает запись или nil, если ее нет
func (s *Service) load(ctx context.Context, resourceID, resourceType string) (*models.VersionedData, error) {
	record, err := s.records.GetRecord(ctx, resourceID, resourceType)
	if errors.Is(err, storage.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	return record, nil
}

// loadLive возвращает неудаленную запись
func (s *Service) loadLive(ctx context.Context, resourceID, resourceType string) (*models.VersionedData, error) {
	record, err := s.load(ctx, resourceID, resourceType)
	if err != nil {
		return nil, err
	}
	key := models.ResourceKey(resourceType, resourceID)
	if record == nil {
		return nil, fmt.Errorf("%w: %s", storage.ErrRecordNotFound, key)
	}
	if record.Deleted {
		return nil, fmt.Errorf("%w: %s", ErrRecordDeleted, key)
	}
	return record, nil
}
