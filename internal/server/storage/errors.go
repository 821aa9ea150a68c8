package storage

import "errors"

// Common storage errors
var (
	// ErrRecordNotFound indicates that versioned record was not found
	ErrRecordNotFound = errors.New("record not found")

	// ErrChangeExists indicates that change with this id is already in the change log
	ErrChangeExists = errors.New("change already exists")
)
