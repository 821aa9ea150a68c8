package boltdb

import (
	"context"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/iudanet/gophsync/internal/client/storage"
	"github.com/iudanet/gophsync/internal/models"
)

// SaveRecord stores or replaces a versioned record in BoltDB
func (s *Storage) SaveRecord(ctx context.Context, record *models.VersionedData) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	// Сериализуем запись в JSON
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		b, err := bucket(tx, bucketRecords)
		if err != nil {
			return err
		}

		// Сохраняем по ключу type/id
		if err := b.Put([]byte(record.Key()), data); err != nil {
			return fmt.Errorf("failed to save record: %w", err)
		}

		return nil
	})

	if err != nil {
		return fmt.Errorf("transaction failed: %w", err)
	}

	return nil
}

// GetRecord retrieves a record by resource id and type
func (s *Storage) GetRecord(ctx context.Context, resourceID, resourceType string) (*models.VersionedData, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var record *models.VersionedData

	err := s.db.View(func(tx *bbolt.Tx) error {
		b, err := bucket(tx, bucketRecords)
		if err != nil {
			return err
		}

		data := b.Get([]byte(models.ResourceKey(resourceType, resourceID)))
		if data == nil {
			return storage.ErrRecordNotFound
		}

		// Десериализуем
		record = &models.VersionedData{}
		if err := json.Unmarshal(data, record); err != nil {
			return fmt.Errorf("failed to unmarshal record: %w", err)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return record, nil
}

// ListRecords returns all records (including tombstones) in key order
func (s *Storage) ListRecords(ctx context.Context) ([]*models.VersionedData, error) {
	return s.listRecords(func(*models.VersionedData) bool { return true })
}

// ListRecordsByType returns all non-deleted records of specific type
func (s *Storage) ListRecordsByType(ctx context.Context, resourceType string) ([]*models.VersionedData, error) {
	return s.listRecords(func(record *models.VersionedData) bool {
		return !record.Deleted && record.ResourceType == resourceType
	})
}

func (s *Storage) listRecords(filter func(*models.VersionedData) bool) ([]*models.VersionedData, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	records := make([]*models.VersionedData, 0)

	err := s.db.View(func(tx *bbolt.Tx) error {
		b, err := bucket(tx, bucketRecords)
		if err != nil {
			return err
		}

		return b.ForEach(func(k, v []byte) error {
			var record models.VersionedData
			if err := json.Unmarshal(v, &record); err != nil {
				return fmt.Errorf("failed to unmarshal record %s: %w", k, err)
			}
			if filter(&record) {
				records = append(records, &record)
			}
			return nil
		})
	})

	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}

	return records, nil
}
