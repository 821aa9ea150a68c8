package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/iudanet/gophsync/internal/server/coordinator"
	"github.com/iudanet/gophsync/internal/server/storage"
	"github.com/iudanet/gophsync/pkg/api"
)

// maxBodySize ограничение размера тела запроса
const maxBodySize = 10 << 20

// writeJSON пишет ответ с заданным статусом
func writeJSON(logger *slog.Logger, w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

// writeError пишет api.ErrorResponse
func writeError(logger *slog.Logger, w http.ResponseWriter, status int, message string, err error) {
	resp := api.ErrorResponse{Error: message}
	if err != nil && status < http.StatusInternalServerError {
		resp.Message = err.Error()
	}
	writeJSON(logger, w, status, resp)
}

// statusFor сопоставляет ошибку координатора HTTP статусу
func statusFor(err error) int {
	switch {
	case errors.Is(err, coordinator.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrRecordNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON читает тело запроса в dst
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	return json.NewDecoder(r.Body).Decode(dst)
}
