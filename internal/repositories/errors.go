package repositories

import "errors"

// Errors returned (wrapped) by the GORM repositories.
var (
	// ErrNotFound means a lookup matched no row.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate means an insert hit a unique constraint.
	ErrDuplicate = errors.New("duplicate record")
)
