package errors

import (
	"fmt"

	apperrors "github.com/wekeepgrowing/qr-payment/pkg/errors"
)

// SessionNotFoundError is returned when no session row exists for the id.
type SessionNotFoundError struct {
	SessionID string
}

func (e *SessionNotFoundError) Error() string {
	return fmt.Sprintf("session not found: %s", e.SessionID)
}

func (e *SessionNotFoundError) AppCode() string { return apperrors.ErrNotFound }

func NewSessionNotFoundError(sessionID string) *SessionNotFoundError {
	return &SessionNotFoundError{SessionID: sessionID}
}

// SessionNotActiveError reports a session that can no longer be scanned.
// Status is the status observed when the operation failed.
type SessionNotActiveError struct {
	SessionID string
	Status    string
}

func (e *SessionNotActiveError) Error() string {
	return fmt.Sprintf("session %s is not active (status: %s)", e.SessionID, e.Status)
}

func (e *SessionNotActiveError) AppCode() string { return apperrors.ErrUnprocessable }

func NewSessionNotActiveError(sessionID, status string) *SessionNotActiveError {
	return &SessionNotActiveError{SessionID: sessionID, Status: status}
}
