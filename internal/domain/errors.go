package domain

import "errors"

var (
	// ErrMalformedFile is returned when an upload is not a readable table.
	ErrMalformedFile = errors.New("malformed file")
	// ErrColumnNotFound is returned when the header lacks the feedback column.
	ErrColumnNotFound = errors.New("column not found")
	// ErrPersistence wraps failures of the storage layer itself.
	ErrPersistence = errors.New("persistence error")
	// ErrEmptyExport is returned when there is nothing to export.
	ErrEmptyExport = errors.New("nothing to export")
	// ErrIncompleteUpload is returned when classification was cut short.
	ErrIncompleteUpload = errors.New("upload incomplete")
)
