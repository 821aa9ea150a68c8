package validator

import (
	"fmt"

	"github.com/iudanet/gophsync/internal/crypto"
	"github.com/iudanet/gophsync/internal/models"
)

// Repair восстанавливает запись повторным применением истории.
// Воспроизведение начинается с первой операции create, более ранние шаги игнорируются:
//   - create заменяет текущее значение (и снимает tombstone)
//   - update перезаписывает поля
//   - delete ставит tombstone, значение сохраняется
//
// Version восстановленной записи равна числу воспроизведенных шагов,
// Timestamp берется из последнего шага.
func (v *Validator) Repair(record *models.VersionedData) (*models.VersionedData, error) {
	if record == nil {
		return nil, &RepairError{Reason: "record is nil"}
	}
	if len(record.History) == 0 {
		return nil, &RepairError{Reason: "history is empty"}
	}

	start := -1
	for i, entry := range record.History {
		if entry.Operation == models.OperationCreate {
			start = i
			break
		}
	}
	if start < 0 {
		return nil, &RepairError{Reason: "history has no create operation"}
	}

	var (
		value   map[string]any
		deleted bool
		last    models.HistoryEntry
	)

	steps := record.History[start:]
	for i, entry := range steps {
		if i > 0 && entry.Timestamp < steps[i-1].Timestamp {
			return nil, &RepairError{Reason: fmt.Sprintf("history timestamps decrease at step %d", start+i)}
		}

		switch entry.Operation {
		case models.OperationCreate:
			value = models.CloneData(entry.Data)
			if value == nil {
				value = make(map[string]any)
			}
			deleted = false
		case models.OperationUpdate:
			value = models.Overwrite(value, entry.Data)
		case models.OperationDelete:
			deleted = true
		default:
			return nil, &RepairError{Reason: fmt.Sprintf("unknown operation %q at step %d", entry.Operation, start+i)}
		}
		last = entry
	}

	hash, err := crypto.HashValue(value)
	if err != nil {
		return nil, &RepairError{Reason: fmt.Sprintf("failed to hash replayed data: %v", err)}
	}

	repaired := record.Clone()
	repaired.Data = value
	repaired.Hash = hash
	repaired.Version = int64(len(steps))
	repaired.Timestamp = last.Timestamp
	repaired.Deleted = deleted

	return repaired, nil
}
