package record

import "errors"

var (
	// ErrDuplicateRecord is returned when a record is already in the collection.
	ErrDuplicateRecord = errors.New("record already in collection")

	// ErrIndexOutOfRange is returned for an insert or remove outside the collection bounds.
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrNotFound is returned when a record is not in the collection.
	ErrNotFound = errors.New("record not in collection")

	// ErrOwned is returned when a record already belongs to another collection.
	ErrOwned = errors.New("record belongs to another collection")

	// ErrReadFailed is returned by LoadRawData when the reader reports failure.
	ErrReadFailed = errors.New("reader failed")
)
