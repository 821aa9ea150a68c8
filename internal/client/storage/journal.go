package storage

import (
	"context"

	"github.com/iudanet/gophsync/internal/crdt"
	"github.com/iudanet/gophsync/internal/models"
)

// JournalStorage defines interface for the durable change journal of a device.
// The journal keeps every recorded change (history) and marks which of them
// are still pending delivery to the coordinator.
type JournalStorage interface {
	// AppendChange stores a new change and marks it pending
	AppendChange(ctx context.Context, change *models.Change) error

	// MarkChangeApplied removes the change from the pending set
	// Calling it for an unknown or already applied id is a no-op
	MarkChangeApplied(ctx context.Context, changeID string) error

	// GetPendingChanges returns pending changes in append order
	GetPendingChanges(ctx context.Context) ([]*models.Change, error)

	// GetChangeLog returns every journaled change in append order
	GetChangeLog(ctx context.Context) ([]*models.Change, error)

	// SaveVectorClock stores the device vector clock snapshot
	SaveVectorClock(ctx context.Context, clock crdt.VectorClock) error

	// GetVectorClock returns the stored clock or an empty clock
	GetVectorClock(ctx context.Context) (crdt.VectorClock, error)
}
