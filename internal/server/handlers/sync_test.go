package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/gophsync/internal/crdt"
	"github.com/iudanet/gophsync/internal/models"
	"github.com/iudanet/gophsync/internal/server/coordinator"
	"github.com/iudanet/gophsync/internal/server/storage"
	"github.com/iudanet/gophsync/pkg/api"
)

// setupTestLogger creates a logger for testing
func setupTestLogger() *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: slog.LevelError, // Only show errors in tests
	}
	handler := slog.NewTextHandler(os.Stdout, opts)
	return slog.New(handler)
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) api.ErrorResponse {
	t.Helper()

	var resp api.ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return resp
}

func TestSyncHandler_Push_Success(t *testing.T) {
	mock := &CoordinatorMock{
		PushFunc: func(ctx context.Context, req api.PushRequest) (*api.PushResponse, error) {
			return &api.PushResponse{
				VectorClock:    crdt.VectorClock{"laptop": 1, "phone": 3},
				AppliedIDs:     []string{"laptop:1"},
				AppliedChanges: 1,
				Changes: []*models.Change{
					{ID: "phone:3", Operation: models.OperationUpdate, ResourceID: "tab-1", ResourceType: "tab"},
				},
				Cursor: 12,
			}, nil
		},
	}
	handler := NewSyncHandler(setupTestLogger(), mock)

	body, err := json.Marshal(api.PushRequest{
		DeviceID:    "laptop",
		VectorClock: crdt.VectorClock{"laptop": 1},
		Since:       4,
		Changes: []*models.Change{
			{ID: "laptop:1", Operation: models.OperationCreate, ResourceID: "tab-1", ResourceType: "tab",
				NewValue: map[string]any{"title": "Docs"}, VectorClock: crdt.VectorClock{"laptop": 1}},
		},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, api.PathPush, bytes.NewReader(body))
	w := httptest.NewRecorder()
	handler.Push(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp api.PushResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, []string{"laptop:1"}, resp.AppliedIDs)
	assert.Equal(t, int64(12), resp.Cursor)
	require.Len(t, resp.Changes, 1)
	assert.Equal(t, "phone:3", resp.Changes[0].ID)

	calls := mock.PushCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, int64(4), calls[0].Req.Since)
	require.Len(t, calls[0].Req.Changes, 1)
	assert.Equal(t, map[string]any{"title": "Docs"}, calls[0].Req.Changes[0].NewValue)
}

func TestSyncHandler_Push_Errors(t *testing.T) {
	tests := []struct {
		pushErr    error
		name       string
		method     string
		body       string
		wantStatus int
		wantCalls  int
	}{
		{
			name:       "method not allowed",
			method:     http.MethodGet,
			wantStatus: http.StatusMethodNotAllowed,
		},
		{
			name:       "malformed body",
			method:     http.MethodPost,
			body:       "{not json",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "invalid request",
			method:     http.MethodPost,
			body:       `{"device_id":""}`,
			pushErr:    fmt.Errorf("%w: device id cannot be empty", coordinator.ErrInvalidRequest),
			wantStatus: http.StatusBadRequest,
			wantCalls:  1,
		},
		{
			name:       "storage failure",
			method:     http.MethodPost,
			body:       `{"device_id":"laptop"}`,
			pushErr:    errors.New("disk I/O error"),
			wantStatus: http.StatusInternalServerError,
			wantCalls:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &CoordinatorMock{
				PushFunc: func(ctx context.Context, req api.PushRequest) (*api.PushResponse, error) {
					return nil, tt.pushErr
				},
			}
			handler := NewSyncHandler(setupTestLogger(), mock)

			req := httptest.NewRequest(tt.method, api.PathPush, bytes.NewBufferString(tt.body))
			w := httptest.NewRecorder()
			handler.Push(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Len(t, mock.PushCalls(), tt.wantCalls)

			resp := decodeError(t, w)
			assert.NotEmpty(t, resp.Error)
			if tt.wantStatus == http.StatusInternalServerError {
				assert.Empty(t, resp.Message, "internal errors are not exposed")
			}
		})
	}
}

func TestSyncHandler_Resolve(t *testing.T) {
	mock := &CoordinatorMock{
		ResolveFunc: func(ctx context.Context, req api.ResolveRequest) (*api.ResolveResponse, error) {
			if req.ResourceID == "missing" {
				return nil, fmt.Errorf("failed to get record: %w", storage.ErrRecordNotFound)
			}
			return &api.ResolveResponse{Resolved: true, Version: 3}, nil
		},
	}
	handler := NewSyncHandler(setupTestLogger(), mock)

	tests := []struct {
		name       string
		resourceID string
		wantStatus int
	}{
		{name: "resolved", resourceID: "tab-1", wantStatus: http.StatusOK},
		{name: "unknown record", resourceID: "missing", wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, err := json.Marshal(api.ResolveRequest{
				Merged:       map[string]any{"title": "Merged"},
				ResourceID:   tt.resourceID,
				ResourceType: "tab",
				DeviceID:     "phone",
			})
			require.NoError(t, err)

			req := httptest.NewRequest(http.MethodPost, api.PathResolve, bytes.NewReader(body))
			w := httptest.NewRecorder()
			handler.Resolve(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusOK {
				var resp api.ResolveResponse
				require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
				assert.True(t, resp.Resolved)
				assert.Equal(t, int64(3), resp.Version)
			}
		})
	}

	t.Run("method not allowed", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.Resolve(w, httptest.NewRequest(http.MethodPut, api.PathResolve, nil))
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})
}

func TestSyncHandler_GetRecord(t *testing.T) {
	record := &models.VersionedData{
		ID:           "tab-1",
		ResourceType: "tab",
		Data:         map[string]any{"title": "Docs"},
		Version:      2,
		VectorClock:  crdt.VectorClock{"laptop": 2},
	}
	mock := &CoordinatorMock{
		GetRecordFunc: func(ctx context.Context, resourceType, resourceID string) (*models.VersionedData, error) {
			if resourceID != "tab-1" {
				return nil, storage.ErrRecordNotFound
			}
			return record, nil
		},
	}
	handler := NewSyncHandler(setupTestLogger(), mock)

	t.Run("found", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, api.PathRecords+"tab/tab-1", nil)
		req.SetPathValue("type", "tab")
		req.SetPathValue("id", "tab-1")
		w := httptest.NewRecorder()
		handler.GetRecord(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var got models.VersionedData
		require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
		assert.Equal(t, int64(2), got.Version)
		assert.Equal(t, record.Data, got.Data)

		calls := mock.GetRecordCalls()
		require.NotEmpty(t, calls)
		assert.Equal(t, "tab", calls[0].ResourceType)
	})

	t.Run("not found", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, api.PathRecords+"tab/other", nil)
		req.SetPathValue("type", "tab")
		req.SetPathValue("id", "other")
		w := httptest.NewRecorder()
		handler.GetRecord(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, http.StatusText(http.StatusNotFound), decodeError(t, w).Error)
	})
}
