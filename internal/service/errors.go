package service

import (
	"errors"
	"fmt"

	"github.com/keygate/backend/internal/model"
)

// ErrorKind is the closed set of failures visible outside the service layer.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindEmailAlreadyInUse
	KindUsernameAlreadyInUse
	KindInvalidCredentials
	KindInvalidSession
	KindInvalidInput
	KindForbidden
)

func (k ErrorKind) String() string {
	switch k {
	case KindEmailAlreadyInUse:
		return "EmailAlreadyInUse"
	case KindUsernameAlreadyInUse:
		return "UsernameAlreadyInUse"
	case KindInvalidCredentials:
		return "InvalidCredentials"
	case KindInvalidSession:
		return "InvalidSession"
	case KindInvalidInput:
		return "InvalidInput"
	case KindForbidden:
		return "Forbidden"
	default:
		return "InternalServerError"
	}
}

// Message is the public text for the kind. It never carries internal detail.
func (k ErrorKind) Message() string {
	switch k {
	case KindEmailAlreadyInUse:
		return "Email is already in use"
	case KindUsernameAlreadyInUse:
		return "Username is already in use"
	case KindInvalidCredentials:
		return "Invalid email or password"
	case KindInvalidSession:
		return "Session expired or invalid"
	case KindInvalidInput:
		return "Invalid input"
	case KindForbidden:
		return "Signup disabled"
	default:
		return "Internal server error"
	}
}

// Error is a public error kind with an optional internal cause. Error()
// returns only the public message; the cause is reachable through Unwrap for
// logging.
type Error struct {
	Kind  ErrorKind
	cause error
}

func (e *Error) Error() string {
	return e.Kind.Message()
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrInvalidSession)
// works regardless of the attached cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Cause returns the internal failure, if any.
func (e *Error) Cause() error {
	return e.cause
}

var (
	ErrInternal             = &Error{Kind: KindInternal}
	ErrEmailAlreadyInUse    = &Error{Kind: KindEmailAlreadyInUse}
	ErrUsernameAlreadyInUse = &Error{Kind: KindUsernameAlreadyInUse}
	ErrInvalidCredentials   = &Error{Kind: KindInvalidCredentials}
	ErrInvalidSession       = &Error{Kind: KindInvalidSession}
	ErrInvalidInput         = &Error{Kind: KindInvalidInput}
	ErrForbidden            = &Error{Kind: KindForbidden}

	ErrMisconfigured = errors.New("auth config invalid")
)

func newError(kind ErrorKind, cause error) *Error {
	return &Error{Kind: kind, cause: cause}
}

func internalError(op string, cause error) *Error {
	return newError(KindInternal, fmt.Errorf("%s: %w", op, cause))
}

// Translate maps any failure onto a public *Error. Store conflicts become the
// matching *AlreadyInUse kind, two-factor store outcomes become
// InvalidSession, and everything unrecognised becomes Internal.
func Translate(err error) *Error {
	if err == nil {
		return nil
	}

	var pub *Error
	if errors.As(err, &pub) {
		return pub
	}

	var conflict *model.ConflictError
	if errors.As(err, &conflict) {
		switch conflict.Field {
		case model.FieldEmail:
			return newError(KindEmailAlreadyInUse, err)
		case model.FieldUsername:
			return newError(KindUsernameAlreadyInUse, err)
		}
	}

	switch {
	case errors.Is(err, model.ErrCodeMismatch),
		errors.Is(err, model.ErrAttemptsExceeded):
		return newError(KindInvalidSession, err)
	}

	return newError(KindInternal, err)
}
