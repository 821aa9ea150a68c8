package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/iudanet/gophsync/internal/crdt"
	"github.com/iudanet/gophsync/internal/models"
	"github.com/iudanet/gophsync/internal/server/storage"
)

// querier общий интерфейс *sql.DB и *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// GetRecord retrieves a record with its history
// Returns ErrRecordNotFound if record doesn't exist
func (s *Storage) GetRecord(ctx context.Context, resourceID, resourceType string) (*models.VersionedData, error) {
	return getRecord(ctx, s.db, resourceID, resourceType)
}

func getRecord(ctx context.Context, q querier, resourceID, resourceType string) (*models.VersionedData, error) {
	query := `
		SELECT resource_id, resource_type, user_id, device_id, data,
		       version, timestamp, hash, vector_clock, deleted, conflict_resolved
		FROM records
		WHERE resource_type = ? AND resource_id = ?
	`

	record := &models.VersionedData{}
	var (
		data, clock               string
		deleted, conflictResolved int
	)

	err := q.QueryRowContext(ctx, query, resourceType, resourceID).Scan(
		&record.ID,
		&record.ResourceType,
		&record.UserID,
		&record.DeviceID,
		&data,
		&record.Version,
		&record.Timestamp,
		&record.Hash,
		&clock,
		&deleted,
		&conflictResolved,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get record: %w", err)
	}

	if err := json.Unmarshal([]byte(data), &record.Data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record data: %w", err)
	}
	record.VectorClock = crdt.NewVectorClock()
	if err := json.Unmarshal([]byte(clock), &record.VectorClock); err != nil {
		return nil, fmt.Errorf("failed to unmarshal vector clock: %w", err)
	}
	record.Deleted = intToBool(deleted)
	record.ConflictResolved = intToBool(conflictResolved)

	history, err := getHistory(ctx, q, resourceID, resourceType)
	if err != nil {
		return nil, err
	}
	record.History = history

	return record, nil
}

func getHistory(ctx context.Context, q querier, resourceID, resourceType string) (history []models.HistoryEntry, err error) {
	query := `
		SELECT operation, data, timestamp
		FROM record_history
		WHERE resource_type = ? AND resource_id = ?
		ORDER BY step ASC
	`

	rows, err := q.QueryContext(ctx, query, resourceType, resourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	for rows.Next() {
		var (
			entry models.HistoryEntry
			data  sql.NullString
		)
		if err := rows.Scan(&entry.Operation, &data, &entry.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		if data.Valid {
			if err := json.Unmarshal([]byte(data.String), &entry.Data); err != nil {
				return nil, fmt.Errorf("failed to unmarshal history data: %w", err)
			}
		}
		history = append(history, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return history, nil
}

// saveRecord создает или обновляет запись и дописывает новые шаги истории.
// История только растет: сохраняются шаги, которых еще нет в таблице.
func saveRecord(ctx context.Context, q querier, record *models.VersionedData) error {
	data, err := json.Marshal(record.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal record data: %w", err)
	}
	clock := record.VectorClock
	if clock == nil {
		clock = crdt.NewVectorClock()
	}
	clockJSON, err := json.Marshal(clock)
	if err != nil {
		return fmt.Errorf("failed to marshal vector clock: %w", err)
	}

	query := `
		INSERT INTO records (
			resource_type, resource_id, user_id, device_id, data,
			version, timestamp, hash, vector_clock, deleted,
			conflict_resolved, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (resource_type, resource_id) DO UPDATE SET
			user_id = excluded.user_id,
			device_id = excluded.device_id,
			data = excluded.data,
			version = excluded.version,
			timestamp = excluded.timestamp,
			hash = excluded.hash,
			vector_clock = excluded.vector_clock,
			deleted = excluded.deleted,
			conflict_resolved = excluded.conflict_resolved,
			updated_at = excluded.updated_at
	`

	_, err = q.ExecContext(ctx, query,
		record.ResourceType,
		record.ID,
		record.UserID,
		record.DeviceID,
		string(data),
		record.Version,
		record.Timestamp,
		record.Hash,
		string(clockJSON),
		boolToInt(record.Deleted),
		boolToInt(record.ConflictResolved),
		time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to save record: %w", err)
	}

	var stored int
	err = q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM record_history WHERE resource_type = ? AND resource_id = ?`,
		record.ResourceType, record.ID,
	).Scan(&stored)
	if err != nil {
		return fmt.Errorf("failed to count history: %w", err)
	}

	for step := stored; step < len(record.History); step++ {
		entry := record.History[step]

		var entryData sql.NullString
		if entry.Data != nil {
			raw, err := json.Marshal(entry.Data)
			if err != nil {
				return fmt.Errorf("failed to marshal history data: %w", err)
			}
			entryData = sql.NullString{String: string(raw), Valid: true}
		}

		_, err := q.ExecContext(ctx, `
			INSERT INTO record_history (resource_type, resource_id, step, operation, data, timestamp)
			VALUES (?, ?, ?, ?, ?, ?)
		`, record.ResourceType, record.ID, step, string(entry.Operation), entryData, entry.Timestamp)
		if err != nil {
			return fmt.Errorf("failed to insert history entry: %w", err)
		}
	}

	return nil
}

// Helper functions for bool/int conversion
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func intToBool(i int) bool {
	return i != 0
}
