package models

// Strategy стратегия разрешения конфликта
type Strategy string

// Strategy константы
const (
	StrategyLocal  Strategy = "local"
	StrategyRemote Strategy = "remote"
	StrategyMerge  Strategy = "merge"
)

// ParseStrategy разбирает строковое значение стратегии.
// Неизвестное значение трактуется как merge.
func ParseStrategy(s string) Strategy {
	switch Strategy(s) {
	case StrategyLocal:
		return StrategyLocal
	case StrategyRemote:
		return StrategyRemote
	default:
		return StrategyMerge
	}
}

// ConflictContext входные данные трехстороннего слияния
type ConflictContext struct {
	Base          map[string]any `json:"base"`
	Local         map[string]any `json:"local"`
	Remote        map[string]any `json:"remote"`
	ResourceID    string         `json:"resource_id"`
	ResourceType  string         `json:"resource_type"`
	Strategy      Strategy       `json:"strategy"`
	LocalChanges  []*Change      `json:"local_changes,omitempty"`
	RemoteChanges []*Change      `json:"remote_changes,omitempty"`
}

// FieldConflict неразрешенный конфликт одного поля
type FieldConflict struct {
	BaseValue   any    `json:"base_value"`
	LocalValue  any    `json:"local_value"`
	RemoteValue any    `json:"remote_value"`
	Field       string `json:"field"`
}

// MergeResult результат слияния: объединенное значение и список конфликтов
type MergeResult struct {
	Merged    map[string]any  `json:"merged"`
	Conflicts []FieldConflict `json:"conflicts"`
}

// HasConflicts возвращает true, если остались неразрешенные поля
func (r MergeResult) HasConflicts() bool {
	return len(r.Conflicts) > 0
}
