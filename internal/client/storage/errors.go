package storage

import "errors"

// Common client storage errors
var (
	// ErrRecordNotFound indicates that versioned record was not found
	ErrRecordNotFound = errors.New("record not found")

	// ErrChangeNotFound indicates that change was not found in the journal
	ErrChangeNotFound = errors.New("change not found")

	// ErrStorageClosed indicates that storage is closed
	ErrStorageClosed = errors.New("storage is closed")
)
