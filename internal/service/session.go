package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/keygate/backend/internal/model"
)

// SessionManager issues, validates and deletes fixed-duration sessions.
// Expiry is computed lazily on Validate; nothing sweeps old rows.
type SessionManager struct {
	sessions SessionStore
	tokens   *TokenIssuer
	ttl      time.Duration
	now      func() time.Time
}

func NewSessionManager(sessions SessionStore, tokens *TokenIssuer, ttl time.Duration) *SessionManager {
	return &SessionManager{
		sessions: sessions,
		tokens:   tokens,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Create persists a new session for the account and returns its token.
func (m *SessionManager) Create(ctx context.Context, accountID uuid.UUID, deviceName, ipAddress string) (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", internalError("session id", err)
	}

	// The exp claim has whole-second precision; the row must agree with it.
	now := m.now().UTC().Truncate(time.Second)
	expiresAt := now.Add(m.ttl)

	token, err := m.tokens.Issue(id, now, expiresAt)
	if err != nil {
		return "", internalError("sign token", err)
	}

	session := &model.Session{
		ID:         id,
		AccountID:  accountID,
		DeviceName: deviceName,
		IPAddress:  ipAddress,
		CreatedAt:  now,
		ExpiresAt:  expiresAt,
		Token:      token,
	}
	if err := m.sessions.InsertSession(ctx, session); err != nil {
		return "", internalError("insert session", err)
	}
	return token, nil
}

// Validate resolves a token to its live session. The token must verify, the
// row must exist, hold the same token and not be past expires-at.
func (m *SessionManager) Validate(ctx context.Context, token string) (*model.Session, error) {
	id, err := m.tokens.Verify(token)
	if err != nil {
		return nil, err
	}

	session, err := m.sessions.FindSessionByID(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, newError(KindInvalidSession, err)
		}
		return nil, internalError("find session", err)
	}

	if subtle.ConstantTimeCompare([]byte(session.Token), []byte(token)) != 1 {
		return nil, ErrInvalidSession
	}
	if session.Expired(m.now()) {
		return nil, ErrInvalidSession
	}
	return session, nil
}

// Invalidate deletes the session. Deleting an unknown or already deleted
// session is not an error.
func (m *SessionManager) Invalidate(ctx context.Context, sessionID uuid.UUID) error {
	if err := m.sessions.DeleteSession(ctx, sessionID); err != nil {
		return internalError("delete session", err)
	}
	return nil
}
