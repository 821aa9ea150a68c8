package boltdb

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sort"

	"go.etcd.io/bbolt"

	"github.com/iudanet/gophsync/internal/client/storage"
	"github.com/iudanet/gophsync/internal/crdt"
	"github.com/iudanet/gophsync/internal/models"
)

const (
	keyVectorClock = "vector_clock"
)

// AppendChange stores a new change in the journal and marks it pending.
// Changes are keyed by the bucket sequence so iteration keeps append order.
func (s *Storage) AppendChange(ctx context.Context, change *models.Change) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	data, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("failed to marshal change: %w", err)
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		changes, err := bucket(tx, bucketChanges)
		if err != nil {
			return err
		}
		index, err := bucket(tx, bucketChangeIndex)
		if err != nil {
			return err
		}
		pending, err := bucket(tx, bucketPending)
		if err != nil {
			return err
		}

		if index.Get([]byte(change.ID)) != nil {
			return fmt.Errorf("change %s already journaled", change.ID)
		}

		seq, err := changes.NextSequence()
		if err != nil {
			return fmt.Errorf("failed to allocate sequence: %w", err)
		}
		seqKey := sequenceKey(seq)

		if err := changes.Put(seqKey, data); err != nil {
			return fmt.Errorf("failed to save change: %w", err)
		}
		if err := index.Put([]byte(change.ID), seqKey); err != nil {
			return fmt.Errorf("failed to index change: %w", err)
		}
		if err := pending.Put([]byte(change.ID), seqKey); err != nil {
			return fmt.Errorf("failed to mark change pending: %w", err)
		}

		return nil
	})

	if err != nil {
		return fmt.Errorf("append transaction failed: %w", err)
	}

	return nil
}

// MarkChangeApplied removes the change from the pending set
func (s *Storage) MarkChangeApplied(ctx context.Context, changeID string) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		pending, err := bucket(tx, bucketPending)
		if err != nil {
			return err
		}
		// Delete отсутствующего ключа в bbolt не является ошибкой
		return pending.Delete([]byte(changeID))
	})

	if err != nil {
		return fmt.Errorf("mark applied transaction failed: %w", err)
	}

	return nil
}

// GetPendingChanges returns pending changes in append order
func (s *Storage) GetPendingChanges(ctx context.Context) ([]*models.Change, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	result := make([]*models.Change, 0)

	err := s.db.View(func(tx *bbolt.Tx) error {
		changes, err := bucket(tx, bucketChanges)
		if err != nil {
			return err
		}
		pending, err := bucket(tx, bucketPending)
		if err != nil {
			return err
		}

		var seqKeys [][]byte
		if err := pending.ForEach(func(_, v []byte) error {
			seqKeys = append(seqKeys, append([]byte(nil), v...))
			return nil
		}); err != nil {
			return err
		}

		// Восстанавливаем порядок добавления
		sort.Slice(seqKeys, func(i, j int) bool {
			return bytes.Compare(seqKeys[i], seqKeys[j]) < 0
		})

		for _, seqKey := range seqKeys {
			data := changes.Get(seqKey)
			if data == nil {
				return storage.ErrChangeNotFound
			}
			var change models.Change
			if err := json.Unmarshal(data, &change); err != nil {
				return fmt.Errorf("failed to unmarshal change: %w", err)
			}
			result = append(result, &change)
		}

		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to get pending changes: %w", err)
	}

	return result, nil
}

// GetChangeLog returns every journaled change in append order
func (s *Storage) GetChangeLog(ctx context.Context) ([]*models.Change, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	result := make([]*models.Change, 0)

	err := s.db.View(func(tx *bbolt.Tx) error {
		changes, err := bucket(tx, bucketChanges)
		if err != nil {
			return err
		}

		// Ключи - big-endian sequence, ForEach обходит их по возрастанию
		return changes.ForEach(func(_, v []byte) error {
			var change models.Change
			if err := json.Unmarshal(v, &change); err != nil {
				return fmt.Errorf("failed to unmarshal change: %w", err)
			}
			result = append(result, &change)
			return nil
		})
	})

	if err != nil {
		return nil, fmt.Errorf("failed to get change log: %w", err)
	}

	return result, nil
}

// SaveVectorClock stores the device vector clock snapshot
func (s *Storage) SaveVectorClock(ctx context.Context, clock crdt.VectorClock) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	data, err := json.Marshal(clock)
	if err != nil {
		return fmt.Errorf("failed to marshal vector clock: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := bucket(tx, bucketMetadata)
		if err != nil {
			return err
		}
		if err := b.Put([]byte(keyVectorClock), data); err != nil {
			return fmt.Errorf("failed to save vector clock: %w", err)
		}
		return nil
	})
}

// GetVectorClock returns the stored clock or an empty clock
func (s *Storage) GetVectorClock(ctx context.Context) (crdt.VectorClock, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	clock := crdt.NewVectorClock()

	err := s.db.View(func(tx *bbolt.Tx) error {
		b, err := bucket(tx, bucketMetadata)
		if err != nil {
			return err
		}

		data := b.Get([]byte(keyVectorClock))
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &clock)
	})

	if err != nil {
		return nil, fmt.Errorf("failed to get vector clock: %w", err)
	}

	return clock, nil
}

// sequenceKey конвертирует sequence в big-endian ключ
func sequenceKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}
