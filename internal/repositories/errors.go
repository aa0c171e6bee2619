package repositories

import "errors"

// Sentinel errors shared by every repository implementation. Callers match
// with errors.Is; implementations wrap them with fmt.Errorf("...: %w", ...).
var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrInsufficientStock is returned by a conditional stock decrement that
	// would take stock below zero.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrDuplicate is returned when a uniqueness constraint would be violated.
	ErrDuplicate = errors.New("duplicate record")
)
