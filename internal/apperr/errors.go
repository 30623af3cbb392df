// Package apperr defines sentinel errors shared across service layers.
package apperr

import "errors"

var (
	// ErrNotFound marks a node, edge, or attachment that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks a write rejected by a concurrency check.
	ErrConflict = errors.New("conflict")
	// ErrAlreadyExists marks a create that collided with an existing row.
	ErrAlreadyExists = errors.New("already exists")
)
