package db

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/keygate/backend/internal/model"
)

const accountColumns = `id, username, email, password_hash, date_of_registration, time_of_last_online`

// InsertAccount relies on the accounts unique constraints, so a concurrent
// duplicate surfaces here as *model.ConflictError.
func (db *Postgres) InsertAccount(ctx context.Context, account *model.Account) error {
	query := `
		INSERT INTO accounts (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := db.Pool.Exec(ctx, query,
		account.ID,
		account.Username,
		account.Email,
		account.PasswordHash,
		account.DateOfRegistration,
		account.TimeOfLastOnline,
	)
	return translateError(err)
}

func (db *Postgres) FindAccountByEmail(ctx context.Context, email string) (*model.Account, error) {
	return db.findAccount(ctx, `email = $1`, email)
}

func (db *Postgres) FindAccountByUsername(ctx context.Context, username string) (*model.Account, error) {
	return db.findAccount(ctx, `username = $1`, username)
}

func (db *Postgres) FindAccountByID(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	return db.findAccount(ctx, `id = $1`, id)
}

func (db *Postgres) TouchLastOnline(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `
		UPDATE accounts
		SET time_of_last_online = $2
		WHERE id = $1
	`
	tag, err := db.Pool.Exec(ctx, query, id, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (db *Postgres) findAccount(ctx context.Context, where string, arg any) (*model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE ` + where

	var account model.Account
	err := db.Pool.QueryRow(ctx, query, arg).Scan(
		&account.ID,
		&account.Username,
		&account.Email,
		&account.PasswordHash,
		&account.DateOfRegistration,
		&account.TimeOfLastOnline,
	)
	if err != nil {
		return nil, translateError(err)
	}
	return &account, nil
}
