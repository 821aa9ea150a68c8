package storage

import (
	"context"

	"github.com/iudanet/gophsync/internal/models"
)

// LogEntry is a change in the coordinator change log with its sequence number
type LogEntry struct {
	Change   *models.Change
	Sequence int64
}

// SyncStorage defines interface for coordinator persistence:
// authoritative versioned records and the append-only change log
type SyncStorage interface {
	// GetRecord retrieves a record (including tombstones) by resource id and type
	// Returns ErrRecordNotFound if record doesn't exist
	GetRecord(ctx context.Context, resourceID, resourceType string) (*models.VersionedData, error)

	// HasChange reports whether change id is already in the change log
	HasChange(ctx context.Context, changeID string) (bool, error)

	// CommitChange atomically saves record (nil leaves records untouched)
	// and appends change to the log. Returns the assigned sequence number.
	// Returns ErrChangeExists if change id is already logged
	CommitChange(ctx context.Context, record *models.VersionedData, change *models.Change) (int64, error)

	// ChangesSince returns at most limit log entries with sequence > since, in sequence order
	ChangesSince(ctx context.Context, since int64, limit int) ([]LogEntry, error)

	// ResourceChanges returns log entries of one resource in sequence order
	ResourceChanges(ctx context.Context, resourceID, resourceType string) ([]LogEntry, error)

	// Ping checks that the database is reachable
	Ping(ctx context.Context) error
}
