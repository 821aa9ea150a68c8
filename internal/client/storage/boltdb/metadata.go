package boltdb

import (
	"context"
	"encoding/binary"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/iudanet/gophsync/internal/client/storage"
)

const (
	keySyncCursor = "sync_cursor"
	keyDeviceID   = "device_id"
)

// SaveSyncCursor saves the coordinator cursor of the last successful sync
func (s *Storage) SaveSyncCursor(ctx context.Context, cursor int64) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketMetadata)
		if bucket == nil {
			return fmt.Errorf("metadata bucket not found")
		}

		// Конвертируем int64 в bytes
		cursorBytes := make([]byte, 8)
		binary.BigEndian.PutUint64(cursorBytes, uint64(cursor))

		if err := bucket.Put([]byte(keySyncCursor), cursorBytes); err != nil {
			return fmt.Errorf("failed to save sync cursor: %w", err)
		}

		return nil
	})
}

// GetSyncCursor retrieves the cursor of the last successful sync
// Returns 0 if no sync has been performed yet
func (s *Storage) GetSyncCursor(ctx context.Context) (int64, error) {
	if s.db == nil {
		return 0, storage.ErrStorageClosed
	}
	var cursor int64

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketMetadata)
		if bucket == nil {
			return fmt.Errorf("metadata bucket not found")
		}

		cursorBytes := bucket.Get([]byte(keySyncCursor))
		if cursorBytes == nil {
			// Если курсор не найден, возвращаем 0 (первая синхронизация)
			cursor = 0
			return nil
		}

		// Конвертируем bytes в int64
		cursor = int64(binary.BigEndian.Uint64(cursorBytes))
		return nil
	})

	if err != nil {
		return 0, fmt.Errorf("failed to get sync cursor: %w", err)
	}

	return cursor, nil
}

// SaveDeviceID persists the identifier of this device
func (s *Storage) SaveDeviceID(ctx context.Context, deviceID string) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketMetadata)
		if bucket == nil {
			return fmt.Errorf("metadata bucket not found")
		}

		if err := bucket.Put([]byte(keyDeviceID), []byte(deviceID)); err != nil {
			return fmt.Errorf("failed to save device id: %w", err)
		}

		return nil
	})
}

// GetDeviceID returns the persisted device id or "" if none was saved
func (s *Storage) GetDeviceID(ctx context.Context) (string, error) {
	if s.db == nil {
		return "", storage.ErrStorageClosed
	}
	var deviceID string

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketMetadata)
		if bucket == nil {
			return fmt.Errorf("metadata bucket not found")
		}

		deviceID = string(bucket.Get([]byte(keyDeviceID)))
		return nil
	})

	if err != nil {
		return "", fmt.Errorf("failed to get device id: %w", err)
	}

	return deviceID, nil
}
