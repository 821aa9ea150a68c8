package models

import "github.com/iudanet/gophsync/internal/crdt"

// HistoryEntry шаг истории версионированной записи.
// Используется для восстановления записи повторным применением истории.
type HistoryEntry struct {
	Data      map[string]any `json:"data,omitempty"`
	Operation Operation      `json:"operation"`
	Timestamp int64          `json:"timestamp"`
}

// VersionedData представляет сохраненное состояние ресурса.
// Version растет ровно на 1 с каждым примененным изменением,
// Hash должен совпадать с хешем Data, удаление только помечает запись (tombstone).
type VersionedData struct {
	Data             map[string]any   `json:"data"`              // Data текущее содержимое ресурса
	VectorClock      crdt.VectorClock `json:"vector_clock"`      // VectorClock объединенные часы всех примененных изменений
	ID               string           `json:"id"`                // ID идентификатор ресурса
	ResourceType     string           `json:"resource_type"`     // ResourceType тип ресурса
	UserID           string           `json:"user_id"`           // UserID владелец записи
	DeviceID         string           `json:"device_id"`         // DeviceID устройство, записавшее последнюю версию
	Hash             string           `json:"hash"`              // Hash хеш Data
	History          []HistoryEntry   `json:"history,omitempty"` // History упорядоченная история операций
	Version          int64            `json:"version"`           // Version монотонно растущая версия
	Timestamp        int64            `json:"timestamp"`         // Timestamp unix ms последней версии
	Deleted          bool             `json:"deleted"`           // Deleted флаг tombstone
	ConflictResolved bool             `json:"conflict_resolved"` // ConflictResolved версия получена разрешением конфликта
}

// Key возвращает ключ ресурса записи
func (r *VersionedData) Key() string {
	return ResourceKey(r.ResourceType, r.ID)
}

// IsNewerThan определяет, новее ли запись, чем other.
// 1. Сравнивается Version (больший выигрывает)
// 2. При равных версиях - Timestamp
// 3. При равных Timestamp - DeviceID (лексикографически, для детерминизма)
func (r *VersionedData) IsNewerThan(other *VersionedData) bool {
	if r.Version != other.Version {
		return r.Version > other.Version
	}
	if r.Timestamp != other.Timestamp {
		return r.Timestamp > other.Timestamp
	}
	return r.DeviceID > other.DeviceID
}

// Clone создает глубокую копию записи
func (r *VersionedData) Clone() *VersionedData {
	if r == nil {
		return nil
	}

	clone := *r
	clone.Data = CloneData(r.Data)
	if r.VectorClock != nil {
		clone.VectorClock = r.VectorClock.Clone()
	}
	if r.History != nil {
		clone.History = make([]HistoryEntry, len(r.History))
		for i, entry := range r.History {
			clone.History[i] = HistoryEntry{
				Operation: entry.Operation,
				Data:      CloneData(entry.Data),
				Timestamp: entry.Timestamp,
			}
		}
	}

	return &clone
}

// ResourceKey строит ключ ресурса вида type/id
func ResourceKey(resourceType, resourceID string) string {
	return resourceType + "/" + resourceID
}
