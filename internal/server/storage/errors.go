package storage

import "errors"

// Common storage errors
var (
	// ErrRecordNotFound indicates that no record exists for the given
	// tenant, collection and id
	ErrRecordNotFound = errors.New("record not found")

	// ErrDuplicateKey indicates a natural-key uniqueness violation
	ErrDuplicateKey = errors.New("duplicate natural key")
)
