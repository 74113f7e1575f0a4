package errors

import (
	"errors"
	"fmt"
)

var (
	New    = errors.New
	Unwrap = errors.Unwrap
	Is     = errors.Is
	As     = errors.As
	Join   = errors.Join
)

// Error is an error with a stable code.
type Error interface {
	error
	Code() string
	Unwrap() error
}

// Coded is implemented by domain errors that declare their code
// without embedding AppError.
type Coded interface {
	AppCode() string
}

// AppError is the generic coded error.
type AppError struct {
	code    string
	message string
	err     error
}

func (e *AppError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s", e.message, e.err.Error())
	}
	return e.message
}

func (e *AppError) Code() string    { return e.code }
func (e *AppError) Message() string { return e.message }
func (e *AppError) Unwrap() error   { return e.err }

func NewAppError(code string, message string, err error) *AppError {
	return &AppError{code: code, message: message, err: err}
}

// Wrap annotates err with message, keeping the code of the first coded
// error in the chain.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return NewAppError(CodeOf(err), message, err)
}

// CodeOf walks the chain and returns the first code found, or ErrInternal.
func CodeOf(err error) string {
	for e := err; e != nil; e = errors.Unwrap(e) {
		switch v := e.(type) {
		case *AppError:
			return v.code
		case Coded:
			return v.AppCode()
		}
	}
	return ErrInternal
}
