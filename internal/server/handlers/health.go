package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/iudanet/gophsync/pkg/api"
)

// Pinger проверяет доступность хранилища
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler обрабатывает health check запросы
type HealthHandler struct {
	logger  *slog.Logger
	pinger  Pinger
	version string
}

// NewHealthHandler создает новый handler для health check
func NewHealthHandler(logger *slog.Logger, pinger Pinger, version string) *HealthHandler {
	return &HealthHandler{
		logger:  logger,
		pinger:  pinger,
		version: version,
	}
}

// Health обрабатывает GET /api/v1/health
// Отвечает 503, если хранилище координатора недоступно
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := api.HealthResponse{
		Status:  "ok",
		Version: h.version,
	}

	if err := h.pinger.Ping(r.Context()); err != nil {
		h.logger.Error("Storage is unavailable", slog.Any("error", err))
		resp.Status = "unavailable"
		writeJSON(h.logger, w, http.StatusServiceUnavailable, resp)
		return
	}

	writeJSON(h.logger, w, http.StatusOK, resp)
}
