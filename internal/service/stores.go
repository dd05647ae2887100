package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/keygate/backend/internal/model"
	tmpl "github.com/keygate/backend/internal/template"
)

// AccountStore is satisfied by *db.Postgres and *db.Memory. Lookups return
// model.ErrNotFound when absent; InsertAccount returns *model.ConflictError on
// a unique violation.
type AccountStore interface {
	FindAccountByEmail(ctx context.Context, email string) (*model.Account, error)
	FindAccountByUsername(ctx context.Context, username string) (*model.Account, error)
	FindAccountByID(ctx context.Context, id uuid.UUID) (*model.Account, error)
	InsertAccount(ctx context.Context, account *model.Account) error
	TouchLastOnline(ctx context.Context, id uuid.UUID, at time.Time) error
}

type SessionStore interface {
	InsertSession(ctx context.Context, session *model.Session) error
	FindSessionByID(ctx context.Context, id uuid.UUID) (*model.Session, error)
	DeleteSession(ctx context.Context, id uuid.UUID) error
}

// ChallengeStore holds at most one pending code per account. ConsumeChallenge
// is an atomic compare-and-delete returning nil on match, model.ErrNotFound
// when nothing live is pending, model.ErrCodeMismatch or
// model.ErrAttemptsExceeded otherwise.
type ChallengeStore interface {
	PutChallenge(ctx context.Context, accountID uuid.UUID, ch model.Challenge) error
	ConsumeChallenge(ctx context.Context, accountID uuid.UUID, code string, maxAttempts int) error
	DeleteChallenge(ctx context.Context, accountID uuid.UUID) error
}

// CodeSender delivers a code to an address. Implemented by client mailers.
type CodeSender interface {
	SendCode(ctx context.Context, to string, data tmpl.CodeData) error
}
