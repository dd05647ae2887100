package model

import (
	"crypto/subtle"
	"errors"
	"fmt"
)

// Store-level errors shared by the db and cache layers. The service layer
// translates them into public error kinds.
var (
	ErrNotFound         = errors.New("not found")
	ErrCodeMismatch     = errors.New("two-factor code mismatch")
	ErrAttemptsExceeded = errors.New("two-factor attempts exceeded")
)

// ConflictError reports a unique constraint violation on Field
// ("email" or "username").
type ConflictError struct {
	Field string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s already exists", e.Field)
}

const (
	FieldEmail    = "email"
	FieldUsername = "username"
)

// Matches compares the supplied code in constant time. Length and case must
// match exactly.
func (c *Challenge) Matches(code string) bool {
	return subtle.ConstantTimeCompare([]byte(c.Code), []byte(code)) == 1
}
