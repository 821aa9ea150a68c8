package api

import (
	"github.com/iudanet/gophsync/internal/crdt"
	"github.com/iudanet/gophsync/internal/models"
)

// Пути API координатора
const (
	PathPush    = "/api/v1/sync/push"
	PathResolve = "/api/v1/sync/resolve"
	PathRecords = "/api/v1/records/"
	PathHealth  = "/api/v1/health"
)

// HeaderDeviceID заголовок с идентификатором устройства клиента
const HeaderDeviceID = "X-Device-ID"

// PushRequest отправка ожидающих изменений устройства координатору
type PushRequest struct {
	VectorClock crdt.VectorClock `json:"vector_clock"` // Часы устройства на момент отправки
	DeviceID    string           `json:"device_id"`
	UserID      string           `json:"user_id"`
	Changes     []*models.Change `json:"changes"`
	Since       int64            `json:"since"` // Курсор журнала координатора, с которого нужны чужие изменения
}

// PushResponse ответ координатора на отправку изменений
type PushResponse struct {
	VectorClock    crdt.VectorClock         `json:"vector_clock"`          // Объединенные часы координатора
	AppliedIDs     []string                 `json:"applied_ids,omitempty"` // id подтвержденных изменений
	Conflicts      []models.ConflictContext `json:"conflicts"`             // Конфликты, требующие разрешения
	Changes        []*models.Change         `json:"changes"`               // Изменения других устройств после Since
	AppliedChanges int                      `json:"applied_changes"`       // Количество подтвержденных изменений
	Cursor         int64                    `json:"cursor"`                // Новый курсор журнала
}

// ResolveRequest отправка результата разрешения конфликта
type ResolveRequest struct {
	Merged       map[string]any         `json:"merged"`
	VectorClock  crdt.VectorClock       `json:"vector_clock"`
	ResourceID   string                 `json:"resource_id"`
	ResourceType string                 `json:"resource_type"`
	DeviceID     string                 `json:"device_id"`
	UserID       string                 `json:"user_id"`
	Conflicts    []models.FieldConflict `json:"conflicts"` // Оставшиеся конфликты полей (для аудита)
}

// ResolveResponse ответ координатора на разрешение конфликта
type ResolveResponse struct {
	Resolved bool  `json:"resolved"`
	Version  int64 `json:"version"` // Версия записи после разрешения
}
