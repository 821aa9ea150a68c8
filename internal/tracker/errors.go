package tracker

import "errors"

var (
	// ErrInvalidOperation операция изменения неизвестна
	ErrInvalidOperation = errors.New("invalid operation")

	// ErrInvalidResource пустой или некорректный идентификатор/тип ресурса
	ErrInvalidResource = errors.New("invalid resource")
)
