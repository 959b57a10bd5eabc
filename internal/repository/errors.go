package repository

import "errors"

var (
	// ErrNotFound is returned by update operations that matched no document.
	// Lookups follow the nil, nil convention instead.
	ErrNotFound = errors.New("document not found")

	// ErrConflict is returned when an upsert collides with a unique index
	ErrConflict = errors.New("document conflicts with existing record")
)
