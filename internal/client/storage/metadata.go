package storage

import "context"

//go:generate moq -out metadata_mock.go . MetadataStorage

// MetadataStorage defines interface for storing client metadata
type MetadataStorage interface {
	// SaveSyncCursor saves the coordinator change-log cursor of the last successful sync
	SaveSyncCursor(ctx context.Context, cursor int64) error

	// GetSyncCursor retrieves the cursor of the last successful sync
	// Returns 0 if no sync has been performed yet
	GetSyncCursor(ctx context.Context) (int64, error)

	// SaveDeviceID persists the identifier of this device
	SaveDeviceID(ctx context.Context, deviceID string) error

	// GetDeviceID returns the persisted device id or "" if none was saved
	GetDeviceID(ctx context.Context) (string, error)
}
