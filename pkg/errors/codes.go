package errors

// Error codes shared by every layer. Domain errors report one of these
// through their AppCode method so transports can map them without
// knowing the concrete type.
const (
	ErrInternal        = "INTERNAL"
	ErrNotFound        = "NOT_FOUND"
	ErrInvalidArgument = "INVALID_ARGUMENT"
	ErrUnauthenticated = "UNAUTHENTICATED"
	ErrUnauthorized    = "UNAUTHORIZED"
	ErrConflict        = "CONFLICT"
	ErrTimeout         = "TIMEOUT"
	ErrNotImplemented  = "NOT_IMPLEMENTED"

	ErrValidation          = "VALIDATION"
	ErrUnprocessable       = "UNPROCESSABLE"
	ErrExpired             = "EXPIRED"
	ErrInsufficientBalance = "INSUFFICIENT_BALANCE"
)
