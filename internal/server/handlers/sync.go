package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/iudanet/gophsync/internal/models"
	"github.com/iudanet/gophsync/pkg/api"
)

//go:generate moq -out coordinator_mock.go . Coordinator

// Coordinator определяет операции координатора, доступные по HTTP
type Coordinator interface {
	Push(ctx context.Context, req api.PushRequest) (*api.PushResponse, error)
	Resolve(ctx context.Context, req api.ResolveRequest) (*api.ResolveResponse, error)
	GetRecord(ctx context.Context, resourceType, resourceID string) (*models.VersionedData, error)
}

// SyncHandler handles synchronization requests
type SyncHandler struct {
	logger      *slog.Logger
	coordinator Coordinator
}

// NewSyncHandler creates a new sync handler
func NewSyncHandler(logger *slog.Logger, coordinator Coordinator) *SyncHandler {
	return &SyncHandler{
		logger:      logger,
		coordinator: coordinator,
	}
}

// Push обрабатывает POST /api/v1/sync/push
// Принимает ожидающие изменения устройства и возвращает подтверждения,
// конфликты и изменения других устройств
func (h *SyncHandler) Push(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(h.logger, w, http.StatusMethodNotAllowed, "method not allowed", nil)
		return
	}

	var req api.PushRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.Warn("Failed to decode push request", "error", err)
		writeError(h.logger, w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	h.logger.Info("Push request",
		"device_id", req.DeviceID,
		"since", req.Since,
		"changes_count", len(req.Changes))

	resp, err := h.coordinator.Push(r.Context(), req)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("Failed to process push", "error", err, "device_id", req.DeviceID)
		} else {
			h.logger.Warn("Push rejected", "error", err, "device_id", req.DeviceID)
		}
		writeError(h.logger, w, status, http.StatusText(status), err)
		return
	}

	writeJSON(h.logger, w, http.StatusOK, resp)
}

// Resolve обрабатывает POST /api/v1/sync/resolve
func (h *SyncHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(h.logger, w, http.StatusMethodNotAllowed, "method not allowed", nil)
		return
	}

	var req api.ResolveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.Warn("Failed to decode resolve request", "error", err)
		writeError(h.logger, w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	resp, err := h.coordinator.Resolve(r.Context(), req)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("Failed to resolve conflict", "error", err,
				"resource", models.ResourceKey(req.ResourceType, req.ResourceID))
		}
		writeError(h.logger, w, status, http.StatusText(status), err)
		return
	}

	writeJSON(h.logger, w, http.StatusOK, resp)
}

// GetRecord обрабатывает GET /api/v1/records/{type}/{id}
func (h *SyncHandler) GetRecord(w http.ResponseWriter, r *http.Request) {
	resourceType := r.PathValue("type")
	resourceID := r.PathValue("id")

	record, err := h.coordinator.GetRecord(r.Context(), resourceType, resourceID)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("Failed to get record", "error", err,
				"resource", models.ResourceKey(resourceType, resourceID))
		}
		writeError(h.logger, w, status, http.StatusText(status), err)
		return
	}

	writeJSON(h.logger, w, http.StatusOK, record)
}
