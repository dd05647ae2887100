package model

import (
	"time"

	"github.com/google/uuid"
)

// Account is a registered identity. PasswordHash holds the bcrypt digest,
// never the plaintext.
type Account struct {
	ID                 uuid.UUID
	Username           string
	Email              string
	PasswordHash       []byte
	DateOfRegistration time.Time
	TimeOfLastOnline   time.Time
}

// Session is created once on successful authentication and never mutated.
type Session struct {
	ID         uuid.UUID
	AccountID  uuid.UUID
	DeviceName string
	IPAddress  string
	CreatedAt  time.Time
	ExpiresAt  time.Time
	Token      string
}

// Expired reports whether the session is no longer valid at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Challenge is the pending two-factor code for one account.
type Challenge struct {
	Code      string
	Attempts  int
	CreatedAt time.Time
	ExpiresAt time.Time
}

// LoginOutcome is either an issued token or a pending two-factor step.
type LoginOutcome struct {
	Token             string
	TwoFactorRequired bool
}

// AuthUser is the authenticated principal attached to a request.
type AuthUser struct {
	AccountID uuid.UUID
	SessionID uuid.UUID
	Session   *Session
}

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Code     *string `json:"code,omitempty"`
}

type LogoutRequest struct {
	Token string `json:"token"`
}

type RegisterResponse struct {
	AccountID string `json:"accountId"`
	Token     string `json:"token,omitempty"`
}

type LoginResponse struct {
	Token string `json:"token"`
}

type TwoFactorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}
