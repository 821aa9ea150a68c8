package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/iudanet/gophsync/internal/models"
	"github.com/iudanet/gophsync/internal/server/storage"
)

// HasChange reports whether change id is already in the change log
func (s *Storage) HasChange(ctx context.Context, changeID string) (bool, error) {
	return hasChange(ctx, s.db, changeID)
}

func hasChange(ctx context.Context, q querier, changeID string) (bool, error) {
	var exists int
	err := q.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM change_log WHERE change_id = ?)`, changeID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check change: %w", err)
	}
	return exists != 0, nil
}

// CommitChange atomically saves record (if not nil) and appends change to the log
// Returns ErrChangeExists if change id is already logged
func (s *Storage) CommitChange(ctx context.Context, record *models.VersionedData, change *models.Change) (seq int64, err error) {
	payload, err := json.Marshal(change)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal change: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	exists, err := hasChange(ctx, tx, change.ID)
	if err != nil {
		return 0, err
	}
	if exists {
		return 0, fmt.Errorf("%w: %s", storage.ErrChangeExists, change.ID)
	}

	if record != nil {
		if err := saveRecord(ctx, tx, record); err != nil {
			return 0, err
		}
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO change_log (change_id, device_id, resource_type, resource_id, operation, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		change.ID,
		change.DeviceID,
		change.ResourceType,
		change.ResourceID,
		string(change.Operation),
		string(payload),
		time.Now().UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to append change: %w", err)
	}

	seq, err = result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get change sequence: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return seq, nil
}

// ChangesSince returns at most limit log entries with sequence > since
func (s *Storage) ChangesSince(ctx context.Context, since int64, limit int) ([]storage.LogEntry, error) {
	query := `
		SELECT sequence, payload
		FROM change_log
		WHERE sequence > ?
		ORDER BY sequence ASC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query changes since %d: %w", since, err)
	}

	return scanLogEntries(rows)
}

// ResourceChanges returns log entries of one resource in sequence order
func (s *Storage) ResourceChanges(ctx context.Context, resourceID, resourceType string) ([]storage.LogEntry, error) {
	query := `
		SELECT sequence, payload
		FROM change_log
		WHERE resource_type = ? AND resource_id = ?
		ORDER BY sequence ASC
	`

	rows, err := s.db.QueryContext(ctx, query, resourceType, resourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query resource changes: %w", err)
	}

	return scanLogEntries(rows)
}

// scanLogEntries is a helper function to scan log entries from rows
func scanLogEntries(rows *sql.Rows) (entries []storage.LogEntry, err error) {
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	entries = make([]storage.LogEntry, 0)
	for rows.Next() {
		var (
			entry   storage.LogEntry
			payload string
		)
		if err := rows.Scan(&entry.Sequence, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan change: %w", err)
		}

		entry.Change = &models.Change{}
		if err := json.Unmarshal([]byte(payload), entry.Change); err != nil {
			return nil, fmt.Errorf("failed to unmarshal change %d: %w", entry.Sequence, err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return entries, nil
}
