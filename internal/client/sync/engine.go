// Package sync реализует движок синхронизации устройства с координатором.
// Движок периодически отправляет ожидающие изменения, разрешает
// возвращенные конфликты и интегрирует изменения других устройств.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/iudanet/gophsync/internal/client/storage"
	"github.com/iudanet/gophsync/internal/crdt"
	"github.com/iudanet/gophsync/internal/models"
	"github.com/iudanet/gophsync/internal/resolver"
	"github.com/iudanet/gophsync/pkg/api"
)

//go:generate moq -out engine_mock.go . Coordinator RecordApplier

// DefaultRequestTimeout ограничение времени одного сетевого запроса
const DefaultRequestTimeout = 10 * time.Second

// Tracker часть ChangeTracker, которую использует движок
type Tracker interface {
	DeviceID() string
	UserID() string
	PendingChanges() []*models.Change
	MarkApplied(ctx context.Context, changeID string) error
	VectorClock() crdt.VectorClock
	ObserveClock(ctx context.Context, remote crdt.VectorClock) error
}

// Coordinator транспорт до удаленного координатора
type Coordinator interface {
	PushChanges(ctx context.Context, req api.PushRequest) (*api.PushResponse, error)
	ResolveConflict(ctx context.Context, req api.ResolveRequest) (*api.ResolveResponse, error)
}

// RecordApplier локальное хранилище, в которое движок интегрирует
// изменения других устройств и результаты разрешения конфликтов
type RecordApplier interface {
	ApplyRemoteChange(ctx context.Context, change *models.Change) error
	ApplyResolution(ctx context.Context, resourceID, resourceType string, merged map[string]any, clock crdt.VectorClock) error
}

// Engine движок синхронизации.
// Состояние: idle -> syncing -> {idle, error}; stopped покидается только через Start.
// Подписчики вызываются вне блокировки состояния в порядке переходов
// и не должны синхронно вызывать Sync, Start или Stop.
type Engine struct {
	tracker        Tracker
	coordinator    Coordinator
	connectivity   Connectivity
	records        RecordApplier
	cursors        storage.MetadataStorage
	clock          clockwork.Clock
	logger         *slog.Logger
	listeners      *listenerSet[SyncState]
	cancel         context.CancelFunc
	unsubscribe    func()
	done           chan struct{}
	trigger        chan struct{}
	strategy       models.Strategy
	state          SyncState
	requestTimeout time.Duration
	generation     uint64
	running        bool
	notifyMu       sync.Mutex // сериализует переходы вместе с уведомлениями
	mu             sync.Mutex
}

// Option настраивает Engine
type Option func(*Engine)

// WithClock задает источник времени для тикера
func WithClock(clock clockwork.Clock) Option {
	return func(e *Engine) {
		e.clock = clock
	}
}

// WithRequestTimeout задает таймаут одного запроса к координатору
func WithRequestTimeout(timeout time.Duration) Option {
	return func(e *Engine) {
		e.requestTimeout = timeout
	}
}

// WithStrategy задает стратегию разрешения конфликтов
func WithStrategy(strategy models.Strategy) Option {
	return func(e *Engine) {
		e.strategy = models.ParseStrategy(string(strategy))
	}
}

// WithRecords подключает локальное хранилище записей
func WithRecords(records RecordApplier) Option {
	return func(e *Engine) {
		e.records = records
	}
}

// WithCursorStorage подключает хранение курсора журнала координатора
func WithCursorStorage(cursors storage.MetadataStorage) Option {
	return func(e *Engine) {
		e.cursors = cursors
	}
}

// NewEngine создает движок синхронизации.
// Начальное состояние idle, Sync можно вызывать и без Start (разовая синхронизация).
func NewEngine(tracker Tracker, coordinator Coordinator, connectivity Connectivity, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		tracker:        tracker,
		coordinator:    coordinator,
		connectivity:   connectivity,
		clock:          clockwork.NewRealClock(),
		logger:         logger,
		listeners:      newListenerSet[SyncState](),
		trigger:        make(chan struct{}, 1),
		strategy:       models.StrategyMerge,
		requestTimeout: DefaultRequestTimeout,
		state: SyncState{
			Status:   StatusIdle,
			IsOnline: connectivity.IsOnline(),
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// State возвращает снимок текущего состояния
func (e *Engine) State() SyncState {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.state
}

// Subscribe сразу вызывает listener с текущим состоянием, затем при каждом переходе
func (e *Engine) Subscribe(listener func(SyncState)) func() {
	e.notifyMu.Lock()
	defer e.notifyMu.Unlock()

	unsubscribe := e.listeners.add(listener)
	listener(e.State())
	return unsubscribe
}

// Start запускает периодическую синхронизацию с интервалом interval.
// Повторный вызов на работающем движке ничего не делает.
func (e *Engine) Start(interval time.Duration) {
	var (
		ctx  context.Context
		done chan struct{}
	)

	started := e.transition(func(s *SyncState) bool {
		if e.running {
			return false
		}
		e.running = true
		e.generation++

		var cancel context.CancelFunc
		ctx, cancel = context.WithCancel(context.Background())
		e.cancel = cancel
		e.done = make(chan struct{})
		done = e.done

		s.Status = StatusIdle
		s.SyncError = ""
		s.IsOnline = e.connectivity.IsOnline()
		return true
	})
	if !started {
		return
	}

	unsubscribe := e.connectivity.Subscribe(e.onConnectivityChange)
	e.mu.Lock()
	e.unsubscribe = unsubscribe
	e.mu.Unlock()

	e.logger.Info("Sync engine started", "interval", interval.String())

	go e.loop(ctx, interval, done)
}

// Stop останавливает цикл и отписывается от сети.
// Незавершенная синхронизация после Stop не меняет состояние.
func (e *Engine) Stop() {
	var (
		cancel      context.CancelFunc
		unsubscribe func()
		done        chan struct{}
	)

	e.transition(func(s *SyncState) bool {
		e.generation++
		e.running = false
		cancel, e.cancel = e.cancel, nil
		unsubscribe, e.unsubscribe = e.unsubscribe, nil
		done, e.done = e.done, nil

		if s.Status == StatusStopped {
			return false
		}
		s.Status = StatusStopped
		return true
	})

	if unsubscribe != nil {
		unsubscribe()
	}
	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}

	e.logger.Info("Sync engine stopped")
}

// Sync выполняет один цикл синхронизации.
// Ничего не делает (nil), если устройство offline, синхронизация уже идет
// или движок остановлен. Сетевые ошибки переводят движок в error,
// ожидающие изменения остаются в очереди; ошибка оборачивает ErrNetwork.
func (e *Engine) Sync(ctx context.Context) error {
	online := e.connectivity.IsOnline()

	var (
		gen     uint64
		started bool
	)
	e.transition(func(s *SyncState) bool {
		changed := s.IsOnline != online
		s.IsOnline = online

		if !online || s.Status == StatusSyncing || s.Status == StatusStopped {
			return changed
		}

		s.Status = StatusSyncing
		gen = e.generation
		started = true
		return true
	})
	if !started {
		return nil
	}

	return e.runCycle(ctx, gen)
}

// runCycle выполняет push, подтверждение, интеграцию и разрешение конфликтов
func (e *Engine) runCycle(ctx context.Context, gen uint64) error {
	pending := e.tracker.PendingChanges()
	since := e.loadCursor(ctx)

	e.logger.Info("Starting synchronization",
		"device_id", e.tracker.DeviceID(),
		"pending", len(pending),
		"since", since)

	req := api.PushRequest{
		DeviceID:    e.tracker.DeviceID(),
		UserID:      e.tracker.UserID(),
		Changes:     pending,
		VectorClock: e.tracker.VectorClock(),
		Since:       since,
	}

	pushCtx, cancel := context.WithTimeout(ctx, e.requestTimeout)
	resp, err := e.coordinator.PushChanges(pushCtx, req)
	cancel()
	if err != nil {
		err = fmt.Errorf("%w: push changes: %w", ErrNetwork, err)
		e.logger.Warn("Synchronization failed", "error", err)
		e.fail(gen, err)
		return err
	}

	e.logger.Info("Received coordinator response",
		"applied", resp.AppliedChanges,
		"conflicts", len(resp.Conflicts),
		"remote_changes", len(resp.Changes),
		"cursor", resp.Cursor)

	e.acknowledge(ctx, pending, resp)

	if err := e.tracker.ObserveClock(ctx, resp.VectorClock); err != nil {
		e.logger.Warn("Failed to observe coordinator clock", "error", err)
	}

	e.integrate(ctx, resp.Changes)

	if e.cursors != nil && resp.Cursor > since {
		if err := e.cursors.SaveSyncCursor(ctx, resp.Cursor); err != nil {
			// Не прерываем синхронизацию: изменения придут повторно и применятся идемпотентно
			e.logger.Warn("Failed to save sync cursor", "error", err)
		}
	}

	resolved, failed, resolveErr := e.resolveConflicts(ctx, gen, resp.Conflicts)

	e.transition(func(s *SyncState) bool {
		if e.generation != gen || s.Status == StatusStopped {
			return false
		}
		s.SyncCount++
		s.ConflictCount += resolved
		s.LastSyncAt = e.clock.Now()
		if len(failed) > 0 {
			s.Status = StatusError
			s.SyncError = fmt.Sprintf("failed to resolve conflicts: %v", failed)
		} else {
			s.Status = StatusIdle
			s.SyncError = ""
		}
		return true
	})

	e.logger.Info("Synchronization completed",
		"acknowledged", resp.AppliedChanges,
		"resolved", resolved,
		"failed", len(failed))

	return resolveErr
}

// acknowledge помечает подтвержденные координатором изменения.
// Если координатор не прислал id, подтверждаются первые AppliedChanges отправленных,
// но только в ответе без конфликтов: иначе неизвестно, какие из них не применены.
func (e *Engine) acknowledge(ctx context.Context, sent []*models.Change, resp *api.PushResponse) {
	ids := resp.AppliedIDs
	if len(ids) == 0 && resp.AppliedChanges > 0 && len(resp.Conflicts) == 0 {
		n := min(resp.AppliedChanges, len(sent))
		ids = make([]string, 0, n)
		for _, change := range sent[:n] {
			ids = append(ids, change.ID)
		}
	}

	for _, id := range ids {
		if err := e.tracker.MarkApplied(ctx, id); err != nil {
			// Изменение останется в очереди и будет доставлено повторно
			e.logger.Warn("Failed to mark change applied", "change_id", id, "error", err)
		}
	}
}

// integrate применяет изменения других устройств к локальным записям
func (e *Engine) integrate(ctx context.Context, changes []*models.Change) {
	for _, change := range changes {
		if err := e.tracker.ObserveClock(ctx, change.VectorClock); err != nil {
			e.logger.Warn("Failed to observe change clock", "change_id", change.ID, "error", err)
		}
		if e.records == nil {
			continue
		}
		if err := e.records.ApplyRemoteChange(ctx, change); err != nil {
			e.logger.Warn("Failed to apply remote change",
				"change_id", change.ID,
				"resource", change.ResourceKey(),
				"error", err)
		}
	}
}

// resolveConflicts разрешает каждый конфликт отдельным запросом.
// Ошибка одного конфликта не мешает остальным; failed содержит ключи
// ресурсов, разрешение которых не удалось.
func (e *Engine) resolveConflicts(ctx context.Context, gen uint64, conflicts []models.ConflictContext) (int, []string, error) {
	var (
		resolved int
		failed   []string
		errs     []error
	)

	for _, conflict := range conflicts {
		if e.cancelled(gen) {
			break
		}

		key := models.ResourceKey(conflict.ResourceType, conflict.ResourceID)

		// Часы разрешения должны покрывать удаленные изменения конфликта,
		// даже если страница pull до них не дошла
		for _, change := range conflict.RemoteChanges {
			if change == nil {
				continue
			}
			if err := e.tracker.ObserveClock(ctx, change.VectorClock); err != nil {
				e.logger.Warn("Failed to observe remote change clock", "change_id", change.ID, "error", err)
			}
		}

		conflict.Strategy = e.strategy
		result := resolver.Merge(conflict)
		clock := e.tracker.VectorClock()

		req := api.ResolveRequest{
			ResourceID:   conflict.ResourceID,
			ResourceType: conflict.ResourceType,
			Merged:       result.Merged,
			Conflicts:    result.Conflicts,
			DeviceID:     e.tracker.DeviceID(),
			UserID:       e.tracker.UserID(),
			VectorClock:  clock,
		}

		resolveCtx, cancel := context.WithTimeout(ctx, e.requestTimeout)
		resp, err := e.coordinator.ResolveConflict(resolveCtx, req)
		cancel()
		if err == nil && !resp.Resolved {
			err = errors.New("coordinator rejected resolution")
		}
		if err != nil {
			err = fmt.Errorf("%w: resolve %s: %w", ErrNetwork, key, err)
			e.logger.Warn("Failed to resolve conflict", "resource", key, "error", err)
			failed = append(failed, key)
			errs = append(errs, err)
			continue
		}

		resolved++
		e.logger.Info("Conflict resolved",
			"resource", key,
			"version", resp.Version,
			"field_conflicts", len(result.Conflicts))

		if e.records != nil {
			if err := e.records.ApplyResolution(ctx, conflict.ResourceID, conflict.ResourceType, result.Merged, clock); err != nil {
				e.logger.Warn("Failed to apply resolution locally", "resource", key, "error", err)
			}
		}

		// Разрешение включает локальные изменения конфликта
		for _, change := range conflict.LocalChanges {
			if change == nil {
				continue
			}
			if err := e.tracker.MarkApplied(ctx, change.ID); err != nil {
				e.logger.Warn("Failed to mark change applied", "change_id", change.ID, "error", err)
			}
		}
	}

	if len(errs) > 0 {
		return resolved, failed, fmt.Errorf("failed to resolve %d conflict(s): %w", len(errs), errors.Join(errs...))
	}
	return resolved, failed, nil
}

// fail переводит движок в error, если цикл не был отменен
func (e *Engine) fail(gen uint64, err error) {
	e.transition(func(s *SyncState) bool {
		if e.generation != gen || s.Status == StatusStopped {
			return false
		}
		s.Status = StatusError
		s.SyncError = err.Error()
		return true
	})
}

func (e *Engine) cancelled(gen uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.generation != gen
}

func (e *Engine) loadCursor(ctx context.Context) int64 {
	if e.cursors == nil {
		return 0
	}

	cursor, err := e.cursors.GetSyncCursor(ctx)
	if err != nil {
		e.logger.Warn("Failed to get sync cursor, using 0", "error", err)
		return 0
	}
	return cursor
}

// transition применяет mutate под блокировкой и уведомляет подписчиков.
// mutate возвращает false, если состояние не изменилось.
func (e *Engine) transition(mutate func(s *SyncState) bool) bool {
	e.notifyMu.Lock()
	defer e.notifyMu.Unlock()

	e.mu.Lock()
	if !mutate(&e.state) {
		e.mu.Unlock()
		return false
	}
	snapshot := e.state
	e.mu.Unlock()

	e.listeners.notify(snapshot)
	return true
}

// onConnectivityChange обновляет IsOnline; переход в online запускает внеочередную синхронизацию
func (e *Engine) onConnectivityChange(online bool) {
	var reconnected bool

	e.transition(func(s *SyncState) bool {
		if s.IsOnline == online {
			return false
		}
		reconnected = online && (s.Status == StatusIdle || s.Status == StatusError)
		s.IsOnline = online
		return true
	})

	if reconnected {
		select {
		case e.trigger <- struct{}{}:
		default:
		}
	}
}

func (e *Engine) loop(ctx context.Context, interval time.Duration, done chan struct{}) {
	defer close(done)

	ticker := e.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			e.tick(ctx)
		case <-e.trigger:
			e.logger.Debug("Connectivity restored, syncing")
			e.tick(ctx)
		}
	}
}

// tick ошибки цикла только логируются: цикл продолжает работать
func (e *Engine) tick(ctx context.Context) {
	if err := e.Sync(ctx); err != nil {
		e.logger.Debug("Sync tick failed", "error", err)
	}
}
