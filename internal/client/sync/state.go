package sync

import (
	"errors"
	"sync"
	"time"
)

// ErrNetwork ошибка транспорта или таймаут при обращении к координатору
var ErrNetwork = errors.New("network error")

// Status состояние движка синхронизации
type Status string

// Status константы
const (
	StatusIdle    Status = "idle"
	StatusSyncing Status = "syncing"
	StatusError   Status = "error"
	StatusStopped Status = "stopped"
)

// SyncState снимок состояния движка, передается подписчикам по значению
type SyncState struct {
	LastSyncAt    time.Time // время последнего успешного push
	Status        Status
	SyncError     string // сообщение последней ошибки, пусто в idle
	SyncCount     int
	ConflictCount int
	IsOnline      bool
}

// listenerSet реестр подписчиков с отпиской по токену
type listenerSet[T any] struct {
	listeners map[int]func(T)
	order     []int
	next      int
	mu        sync.Mutex
}

func newListenerSet[T any]() *listenerSet[T] {
	return &listenerSet[T]{listeners: make(map[int]func(T))}
}

// add регистрирует подписчика и возвращает функцию отписки (идемпотентную)
func (l *listenerSet[T]) add(listener func(T)) func() {
	l.mu.Lock()
	defer l.mu.Unlock()

	id := l.next
	l.next++
	l.listeners[id] = listener
	l.order = append(l.order, id)

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()

			delete(l.listeners, id)
			for i, v := range l.order {
				if v == id {
					l.order = append(l.order[:i], l.order[i+1:]...)
					break
				}
			}
		})
	}
}

// snapshot возвращает подписчиков в порядке подписки
func (l *listenerSet[T]) snapshot() []func(T) {
	l.mu.Lock()
	defer l.mu.Unlock()

	result := make([]func(T), 0, len(l.order))
	for _, id := range l.order {
		result = append(result, l.listeners[id])
	}
	return result
}

func (l *listenerSet[T]) notify(value T) {
	for _, listener := range l.snapshot() {
		listener(value)
	}
}
