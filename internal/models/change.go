package models

import "github.com/iudanet/gophsync/internal/crdt"

// Operation тип мутации ресурса
type Operation string

// Operation константы
const (
	OperationCreate Operation = "create"
	OperationUpdate Operation = "update"
	OperationDelete Operation = "delete"
)

// Valid проверяет, что операция известна
func (o Operation) Valid() bool {
	switch o {
	case OperationCreate, OperationUpdate, OperationDelete:
		return true
	}
	return false
}

// Change представляет одну локальную мутацию ресурса.
// Создается ChangeTracker, живет в очереди pending до подтверждения
// координатором и навсегда остается в истории изменений.
type Change struct {
	PreviousValue map[string]any   `json:"previous_value,omitempty"` // PreviousValue значение до изменения
	NewValue      map[string]any   `json:"new_value,omitempty"`      // NewValue значение после изменения
	VectorClock   crdt.VectorClock `json:"vector_clock"`             // VectorClock снимок часов на момент создания
	ID            string           `json:"id"`                       // ID составной идентификатор deviceId:counter
	ResourceID    string           `json:"resource_id"`              // ResourceID идентификатор ресурса
	ResourceType  string           `json:"resource_type"`            // ResourceType тип ресурса
	UserID        string           `json:"user_id"`                  // UserID владелец изменения
	DeviceID      string           `json:"device_id"`                // DeviceID устройство, создавшее изменение
	Hash          string           `json:"hash"`                     // Hash хеш NewValue
	Operation     Operation        `json:"operation"`                // Operation create/update/delete
	Dependencies  []string         `json:"dependencies,omitempty"`   // Dependencies id изменений, от которых зависит данное
	Timestamp     int64            `json:"timestamp"`                // Timestamp unix ms
	Version       int64            `json:"version"`                  // Version порядковый номер изменения ресурса на устройстве
}

// Clone создает глубокую копию изменения
func (c *Change) Clone() *Change {
	if c == nil {
		return nil
	}

	clone := *c
	clone.PreviousValue = CloneData(c.PreviousValue)
	clone.NewValue = CloneData(c.NewValue)
	clone.VectorClock = c.VectorClock.Clone()
	if c.Dependencies != nil {
		clone.Dependencies = append([]string(nil), c.Dependencies...)
	}

	return &clone
}

// ResourceKey возвращает ключ ресурса, которому принадлежит изменение
func (c *Change) ResourceKey() string {
	return ResourceKey(c.ResourceType, c.ResourceID)
}
