package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/keygate/backend/internal/model"
)

// UniquenessGuard checks email and username against the account store before
// an insert. The check is advisory: the store's unique constraints are the
// real guard and a concurrent duplicate is caught at insert time.
type UniquenessGuard struct {
	accounts AccountStore
}

func NewUniquenessGuard(accounts AccountStore) *UniquenessGuard {
	return &UniquenessGuard{accounts: accounts}
}

func (g *UniquenessGuard) CheckEmail(ctx context.Context, email string) error {
	return g.check(ctx, KindEmailAlreadyInUse, func() (*model.Account, error) {
		return g.accounts.FindAccountByEmail(ctx, email)
	})
}

func (g *UniquenessGuard) CheckUsername(ctx context.Context, username string) error {
	return g.check(ctx, KindUsernameAlreadyInUse, func() (*model.Account, error) {
		return g.accounts.FindAccountByUsername(ctx, username)
	})
}

func (g *UniquenessGuard) check(ctx context.Context, kind ErrorKind, find func() (*model.Account, error)) error {
	_, err := find()
	switch {
	case err == nil:
		return newError(kind, nil)
	case errors.Is(err, model.ErrNotFound):
		return nil
	default:
		return internalError("uniqueness lookup", err)
	}
}

// Registrar creates accounts: guard on email, guard on username, hash,
// insert. Exactly one row is written on success and none on failure.
type Registrar struct {
	accounts AccountStore
	guard    *UniquenessGuard
	hasher   *Hasher
	now      func() time.Time
}

func NewRegistrar(accounts AccountStore, hasher *Hasher) *Registrar {
	return &Registrar{
		accounts: accounts,
		guard:    NewUniquenessGuard(accounts),
		hasher:   hasher,
		now:      time.Now,
	}
}

func (r *Registrar) Register(ctx context.Context, username, email, password string) (*model.Account, error) {
	if err := r.guard.CheckEmail(ctx, email); err != nil {
		return nil, err
	}
	if err := r.guard.CheckUsername(ctx, username); err != nil {
		return nil, err
	}

	digest, err := r.hasher.Hash(password)
	if err != nil {
		return nil, internalError("hash password", err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, internalError("account id", err)
	}

	now := r.now().UTC()
	account := &model.Account{
		ID:                 id,
		Username:           username,
		Email:              email,
		PasswordHash:       digest,
		DateOfRegistration: now,
		TimeOfLastOnline:   now,
	}

	if err := r.accounts.InsertAccount(ctx, account); err != nil {
		return nil, Translate(err)
	}
	return account, nil
}
