package validator

import (
	"errors"
	"fmt"
)

// ErrRepair базовая ошибка восстановления записи, для errors.Is
var ErrRepair = errors.New("repair failed")

// ValidationError описывает нарушение целостности одного поля записи
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// RepairError возвращается, когда историю невозможно воспроизвести
type RepairError struct {
	Reason string
}

func (e *RepairError) Error() string {
	return fmt.Sprintf("%s: %s", ErrRepair, e.Reason)
}

// Unwrap позволяет сравнивать через errors.Is(err, ErrRepair)
func (e *RepairError) Unwrap() error {
	return ErrRepair
}
