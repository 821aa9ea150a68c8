package storage

import (
	"context"

	"github.com/iudanet/gophsync/internal/models"
)

// RecordStorage defines interface for storing versioned records on client
type RecordStorage interface {
	// SaveRecord stores or replaces a versioned record keyed by (ID, ResourceType)
	SaveRecord(ctx context.Context, record *models.VersionedData) error

	// GetRecord retrieves a record by resource id and type
	// Returns ErrRecordNotFound if record doesn't exist
	// Tombstoned records are returned with Deleted = true
	GetRecord(ctx context.Context, resourceID, resourceType string) (*models.VersionedData, error)

	// ListRecords returns all records (including tombstones)
	// Used for integrity checks on load
	ListRecords(ctx context.Context) ([]*models.VersionedData, error)

	// ListRecordsByType returns all non-deleted records of specific type
	ListRecordsByType(ctx context.Context, resourceType string) ([]*models.VersionedData, error)
}
