package storage

import "errors"

// Common client storage errors
var (
	// ErrAuthNotFound indicates that no session is stored
	ErrAuthNotFound = errors.New("authentication data not found")

	// ErrDocumentNotFound indicates that the document is not stored
	ErrDocumentNotFound = errors.New("document not found")

	// ErrStorageClosed indicates that storage is closed
	ErrStorageClosed = errors.New("storage is closed")
)
