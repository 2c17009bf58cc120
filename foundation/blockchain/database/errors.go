package database

import (
	"errors"
	"fmt"
)

// Set of error variables shared by the ledger and its stores.
var (
	ErrNotFound   = errors.New("not found")
	ErrBlockOrder = errors.New("block is out of order")
)

// =============================================================================

// ValidationError is returned when input to a public entry point is
// rejected before any state was changed.
type ValidationError struct {
	Field string
	Err   error
}

// NewValidationError constructs a validation error for the field.
func NewValidationError(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

// Error implements the error interface.
func (ve *ValidationError) Error() string {
	if ve.Field == "" {
		return fmt.Sprintf("validation: %s", ve.Err)
	}
	return fmt.Sprintf("validation: %s: %s", ve.Field, ve.Err)
}

// Unwrap provides access to the underlying error.
func (ve *ValidationError) Unwrap() error {
	return ve.Err
}

// IsValidationError checks if an error of type ValidationError exists.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// =============================================================================

// CorruptionError is returned when the chain fails hash linkage or proof of
// work checks. The chain can't be trusted until this is resolved.
type CorruptionError struct {
	Index uint64
	Err   error
}

// NewCorruptionError constructs a corruption error for the block index.
func NewCorruptionError(index uint64, err error) error {
	return &CorruptionError{Index: index, Err: err}
}

// Error implements the error interface.
func (ce *CorruptionError) Error() string {
	return fmt.Sprintf("chain corrupted at block %d: %s", ce.Index, ce.Err)
}

// Unwrap provides access to the underlying error.
func (ce *CorruptionError) Unwrap() error {
	return ce.Err
}

// IsCorruptionError checks if an error of type CorruptionError exists.
func IsCorruptionError(err error) bool {
	var ce *CorruptionError
	return errors.As(err, &ce)
}
