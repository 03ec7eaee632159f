package entity

import "errors"

var (
	// ErrDuplicate is returned when an entity is already in a collection.
	ErrDuplicate = errors.New("entity already in collection")

	// ErrIndexOutOfRange is returned for an insert or remove outside the collection bounds.
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrNotFound is returned when an entity is not in the collection.
	ErrNotFound = errors.New("entity not in collection")

	// ErrNilEntity is returned when a nil entity is passed to a collection.
	ErrNilEntity = errors.New("nil entity")
)
