// Package coordinator реализует серверную сторону протокола синхронизации:
// идемпотентное применение изменений, обнаружение конкурентных правок
// по векторным часам и прием результатов разрешения конфликтов.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/iudanet/gophsync/internal/crdt"
	"github.com/iudanet/gophsync/internal/crypto"
	"github.com/iudanet/gophsync/internal/models"
	"github.com/iudanet/gophsync/internal/server/storage"
	"github.com/iudanet/gophsync/internal/validation"
	"github.com/iudanet/gophsync/pkg/api"
)

// DefaultPullLimit максимальное число чужих изменений в одном ответе push
const DefaultPullLimit = 500

// Service координатор синхронизации.
// Push и Resolve сериализуются: каждое изменение проверяется против
// последнего зафиксированного состояния записи.
type Service struct {
	storage   storage.SyncStorage
	clock     clockwork.Clock
	logger    *slog.Logger
	pullLimit int
	mu        sync.Mutex
}

// Option настраивает Service
type Option func(*Service)

// WithClock задает источник времени
func WithClock(clock clockwork.Clock) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

// WithPullLimit задает размер страницы чужих изменений
func WithPullLimit(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.pullLimit = limit
		}
	}
}

// New создает координатор
func New(storage storage.SyncStorage, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		storage:   storage,
		clock:     clockwork.NewRealClock(),
		logger:    logger,
		pullLimit: DefaultPullLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Push применяет изменения устройства по порядку и возвращает подтвержденные id,
// конфликты и изменения других устройств после курсора req.Since
func (s *Service) Push(ctx context.Context, req api.PushRequest) (*api.PushResponse, error) {
	if err := validatePush(req); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	resp := &api.PushResponse{
		VectorClock: req.VectorClock.Clone(),
		AppliedIDs:  []string{},
		Conflicts:   []models.ConflictContext{},
		Changes:     []*models.Change{},
	}
	if resp.VectorClock == nil {
		resp.VectorClock = crdt.NewVectorClock()
	}

	// Конфликт по ресурсу собирает все локальные изменения этого ресурса из запроса
	conflicts := make(map[string]int)

	for _, change := range req.Changes {
		key := change.ResourceKey()
		if idx, ok := conflicts[key]; ok {
			conflict := &resp.Conflicts[idx]
			conflict.Local = localValue(conflict.Local, change)
			conflict.LocalChanges = append(conflict.LocalChanges, change)
			continue
		}

		conflict, err := s.apply(ctx, change)
		if err != nil {
			return nil, fmt.Errorf("failed to apply change %s: %w", change.ID, err)
		}
		if conflict != nil {
			conflicts[key] = len(resp.Conflicts)
			resp.Conflicts = append(resp.Conflicts, *conflict)
			continue
		}

		resp.AppliedIDs = append(resp.AppliedIDs, change.ID)
		resp.VectorClock.Merge(change.VectorClock)
	}
	resp.AppliedChanges = len(resp.AppliedIDs)

	entries, err := s.storage.ChangesSince(ctx, req.Since, s.pullLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load changes since %d: %w", req.Since, err)
	}
	resp.Cursor = req.Since
	for _, entry := range entries {
		resp.Cursor = entry.Sequence
		if entry.Change.DeviceID == req.DeviceID {
			continue
		}
		resp.Changes = append(resp.Changes, entry.Change)
		resp.VectorClock.Merge(entry.Change.VectorClock)
	}

	s.logger.Info("Push processed",
		"device_id", req.DeviceID,
		"received", len(req.Changes),
		"applied", resp.AppliedChanges,
		"conflicts", len(resp.Conflicts),
		"pulled", len(resp.Changes),
		"cursor", resp.Cursor)

	return resp, nil
}

// apply применяет одно изменение. Возвращает конфликт, если часы записи
// и изменения конкурентны; в этом случае изменение не фиксируется.
func (s *Service) apply(ctx context.Context, change *models.Change) (*models.ConflictContext, error) {
	logged, err := s.storage.HasChange(ctx, change.ID)
	if err != nil {
		return nil, err
	}
	if logged {
		s.logger.Debug("Change already applied", "change_id", change.ID)
		return nil, nil
	}

	record, err := s.storage.GetRecord(ctx, change.ResourceID, change.ResourceType)
	if err != nil && !errors.Is(err, storage.ErrRecordNotFound) {
		return nil, err
	}

	if record == nil {
		next, err := advance(nil, change)
		if err != nil {
			return nil, err
		}
		return nil, s.commit(ctx, next, change)
	}

	switch order := record.VectorClock.Compare(change.VectorClock); order {
	case crdt.Before, crdt.Equal:
		next, err := advance(record, change)
		if err != nil {
			return nil, err
		}
		return nil, s.commit(ctx, next, change)

	case crdt.After:
		// Изменение уже учтено в записи
		s.logger.Debug("Stale change acknowledged", "change_id", change.ID, "resource", change.ResourceKey())
		return nil, s.commit(ctx, nil, change)

	default:
		remote, err := s.unseenChanges(ctx, change)
		if err != nil {
			return nil, err
		}

		s.logger.Info("Concurrent change detected",
			"change_id", change.ID,
			"resource", change.ResourceKey(),
			"record_version", record.Version)

		return &models.ConflictContext{
			ResourceID:    change.ResourceID,
			ResourceType:  change.ResourceType,
			Base:          models.CloneData(change.PreviousValue),
			Local:         localValue(change.PreviousValue, change),
			Remote:        models.CloneData(record.Data),
			Strategy:      models.StrategyMerge,
			LocalChanges:  []*models.Change{change},
			RemoteChanges: remote,
		}, nil
	}
}

// unseenChanges изменения ресурса, которых не видел автор change
func (s *Service) unseenChanges(ctx context.Context, change *models.Change) ([]*models.Change, error) {
	entries, err := s.storage.ResourceChanges(ctx, change.ResourceID, change.ResourceType)
	if err != nil {
		return nil, err
	}

	unseen := make([]*models.Change, 0)
	for _, entry := range entries {
		if !change.VectorClock.Dominates(entry.Change.VectorClock) {
			unseen = append(unseen, entry.Change)
		}
	}
	return unseen, nil
}

func (s *Service) commit(ctx context.Context, record *models.VersionedData, change *models.Change) error {
	seq, err := s.storage.CommitChange(ctx, record, change)
	if err != nil {
		return err
	}

	version := int64(0)
	if record != nil {
		version = record.Version
	}
	s.logger.Debug("Change committed",
		"change_id", change.ID,
		"resource", change.ResourceKey(),
		"sequence", seq,
		"version", version)
	return nil
}

// Resolve принимает объединенное значение конфликтующей записи.
// В журнал пишется синтетическое изменение, чтобы другие устройства получили результат.
func (s *Service) Resolve(ctx context.Context, req api.ResolveRequest) (*api.ResolveResponse, error) {
	if err := validation.ValidateDeviceID(req.DeviceID); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if err := validation.ValidateResource(req.ResourceID, req.ResourceType); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if req.Merged == nil {
		return nil, fmt.Errorf("%w: merged value is required", ErrInvalidRequest)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.storage.GetRecord(ctx, req.ResourceID, req.ResourceType)
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}

	hash, err := crypto.HashValue(req.Merged)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to hash merged value: %w", ErrInvalidRequest, err)
	}

	// Повтор того же разрешения после потерянного ответа
	if record.ConflictResolved && record.DeviceID == req.DeviceID && record.Hash == hash &&
		record.VectorClock.Dominates(req.VectorClock) {
		s.logger.Debug("Resolution already applied", "resource", record.Key(), "version", record.Version)
		return &api.ResolveResponse{Resolved: true, Version: record.Version}, nil
	}

	next := record.Clone()
	next.Data = models.CloneData(req.Merged)
	next.Hash = hash
	next.Version = record.Version + 1
	next.Timestamp = max(record.Timestamp, s.clock.Now().UnixMilli())
	next.DeviceID = req.DeviceID
	next.UserID = req.UserID
	next.ConflictResolved = true
	next.Deleted = false
	if next.VectorClock == nil {
		next.VectorClock = crdt.NewVectorClock()
	}
	next.VectorClock.Merge(req.VectorClock)
	next.History = append(next.History, models.HistoryEntry{
		Operation: models.OperationCreate,
		Data:      models.CloneData(req.Merged),
		Timestamp: next.Timestamp,
	})

	change := &models.Change{
		ID:            fmt.Sprintf("resolve:%s:%s:%d", req.DeviceID, models.ResourceKey(req.ResourceType, req.ResourceID), next.Version),
		Operation:     models.OperationUpdate,
		ResourceID:    req.ResourceID,
		ResourceType:  req.ResourceType,
		Timestamp:     next.Timestamp,
		PreviousValue: models.CloneData(record.Data),
		NewValue:      models.CloneData(req.Merged),
		UserID:        req.UserID,
		DeviceID:      req.DeviceID,
		VectorClock:   next.VectorClock.Clone(),
		Hash:          hash,
		Version:       next.Version,
	}

	if err := s.commit(ctx, next, change); err != nil {
		return nil, fmt.Errorf("failed to commit resolution: %w", err)
	}

	s.logger.Info("Conflict resolved",
		"resource", next.Key(),
		"device_id", req.DeviceID,
		"version", next.Version,
		"field_conflicts", len(req.Conflicts))

	return &api.ResolveResponse{Resolved: true, Version: next.Version}, nil
}

// GetRecord возвращает запись координатора
func (s *Service) GetRecord(ctx context.Context, resourceType, resourceID string) (*models.VersionedData, error) {
	record, err := s.storage.GetRecord(ctx, resourceID, resourceType)
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	return record, nil
}

// Ping проверяет доступность хранилища
func (s *Service) Ping(ctx context.Context) error {
	return s.storage.Ping(ctx)
}

// advance строит следующую версию записи после применения change
func advance(record *models.VersionedData, change *models.Change) (*models.VersionedData, error) {
	next := &models.VersionedData{
		ID:           change.ResourceID,
		ResourceType: change.ResourceType,
		VectorClock:  crdt.NewVectorClock(),
	}
	if record != nil {
		next = record.Clone()
		if next.VectorClock == nil {
			next.VectorClock = crdt.NewVectorClock()
		}
	}

	entry := models.HistoryEntry{Operation: change.Operation, Data: models.CloneData(change.NewValue)}

	switch change.Operation {
	case models.OperationCreate:
		next.Data = models.CloneData(change.NewValue)
		next.Deleted = false
	case models.OperationUpdate:
		next.Data = models.Overwrite(next.Data, change.NewValue)
		if record == nil {
			// История записи начинается с create
			entry = models.HistoryEntry{Operation: models.OperationCreate, Data: models.CloneData(next.Data)}
		}
	case models.OperationDelete:
		next.Deleted = true
	}
	if next.Data == nil {
		next.Data = map[string]any{}
	}

	hash, err := crypto.HashValue(next.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to hash record data: %w", err)
	}

	next.Hash = hash
	next.Version++
	next.Timestamp = max(next.Timestamp, change.Timestamp)
	next.UserID = change.UserID
	next.DeviceID = change.DeviceID
	next.ConflictResolved = false
	next.VectorClock.Merge(change.VectorClock)

	entry.Timestamp = next.Timestamp
	next.History = append(next.History, entry)

	return next, nil
}

// localValue значение ресурса на устройстве после change
func localValue(current map[string]any, change *models.Change) map[string]any {
	if change.Operation == models.OperationDelete {
		return models.CloneData(current)
	}
	if change.Operation == models.OperationCreate {
		return models.CloneData(change.NewValue)
	}
	return models.Overwrite(current, change.NewValue)
}

func validatePush(req api.PushRequest) error {
	if err := validation.ValidateDeviceID(req.DeviceID); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if req.Since < 0 {
		return fmt.Errorf("%w: since must not be negative", ErrInvalidRequest)
	}

	for i, change := range req.Changes {
		if change == nil {
			return fmt.Errorf("%w: change %d is nil", ErrInvalidRequest, i)
		}
		if change.ID == "" {
			return fmt.Errorf("%w: change %d has no id", ErrInvalidRequest, i)
		}
		if !change.Operation.Valid() {
			return fmt.Errorf("%w: change %s has unknown operation %q", ErrInvalidRequest, change.ID, change.Operation)
		}
		if err := validation.ValidateResource(change.ResourceID, change.ResourceType); err != nil {
			return fmt.Errorf("%w: change %s: %w", ErrInvalidRequest, change.ID, err)
		}
		if change.VectorClock == nil {
			return fmt.Errorf("%w: change %s has no vector clock", ErrInvalidRequest, change.ID)
		}
	}

	return nil
}
