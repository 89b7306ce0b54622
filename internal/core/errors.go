package core

import "errors"

var (
	// ErrNotFound is returned when a delete or update matched no row.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when an insert hits a unique constraint.
	ErrAlreadyExists = errors.New("already exists")
)
