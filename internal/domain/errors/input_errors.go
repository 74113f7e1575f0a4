package errors

import (
	"fmt"

	apperrors "github.com/wekeepgrowing/qr-payment/pkg/errors"
)

type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *InvalidInputError) AppCode() string { return apperrors.ErrValidation }

func NewInvalidInputError(field, reason string) *InvalidInputError {
	return &InvalidInputError{Field: field, Reason: reason}
}

// IdempotencyInProgressError is returned when another caller holds the key
// and did not publish a result within the wait window.
type IdempotencyInProgressError struct {
	Key string
}

func (e *IdempotencyInProgressError) Error() string {
	return fmt.Sprintf("operation with idempotency key %q is still in progress", e.Key)
}

func (e *IdempotencyInProgressError) AppCode() string { return apperrors.ErrConflict }

func NewIdempotencyInProgressError(key string) *IdempotencyInProgressError {
	return &IdempotencyInProgressError{Key: key}
}
