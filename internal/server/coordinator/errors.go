package coordinator

import "errors"

var (
	// ErrInvalidRequest запрос не прошел проверку
	ErrInvalidRequest = errors.New("invalid request")
)
