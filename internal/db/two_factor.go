package db

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/keygate/backend/internal/model"
)

// PutChallenge stores the code for the account, replacing any pending one.
func (db *Postgres) PutChallenge(ctx context.Context, accountID uuid.UUID, ch model.Challenge) error {
	query := `
		INSERT INTO two_factor_codes (account_id, code, attempts, created_at, expires_at)
		VALUES ($1, $2, 0, $3, $4)
		ON CONFLICT (account_id) DO UPDATE SET
			code = EXCLUDED.code,
			attempts = 0,
			created_at = EXCLUDED.created_at,
			expires_at = EXCLUDED.expires_at
	`
	_, err := db.Pool.Exec(ctx, query, accountID, ch.Code, ch.CreatedAt, ch.ExpiresAt)
	return err
}

// ConsumeChallenge deletes the pending code when it matches. A mismatch bumps
// the attempt counter and destroys the challenge once maxAttempts is reached.
// The row is locked for the duration of the check.
func (db *Postgres) ConsumeChallenge(ctx context.Context, accountID uuid.UUID, code string, maxAttempts int) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var ch model.Challenge
	err = tx.QueryRow(ctx, `
		SELECT code, attempts, created_at, expires_at
		FROM two_factor_codes
		WHERE account_id = $1
		FOR UPDATE
	`, accountID).Scan(&ch.Code, &ch.Attempts, &ch.CreatedAt, &ch.ExpiresAt)
	if err != nil {
		return translateError(err)
	}

	deleteQuery := `DELETE FROM two_factor_codes WHERE account_id = $1`

	if !time.Now().Before(ch.ExpiresAt) {
		if _, err = tx.Exec(ctx, deleteQuery, accountID); err != nil {
			return err
		}
		if err = tx.Commit(ctx); err != nil {
			return err
		}
		return model.ErrNotFound
	}

	if !ch.Matches(code) {
		result := model.ErrCodeMismatch
		if ch.Attempts+1 >= maxAttempts {
			_, err = tx.Exec(ctx, deleteQuery, accountID)
			result = model.ErrAttemptsExceeded
		} else {
			_, err = tx.Exec(ctx, `
				UPDATE two_factor_codes
				SET attempts = attempts + 1
				WHERE account_id = $1
			`, accountID)
		}
		if err != nil {
			return err
		}
		if err = tx.Commit(ctx); err != nil {
			return err
		}
		return result
	}

	if _, err = tx.Exec(ctx, deleteQuery, accountID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (db *Postgres) DeleteChallenge(ctx context.Context, accountID uuid.UUID) error {
	_, err := db.Pool.Exec(ctx, `DELETE FROM two_factor_codes WHERE account_id = $1`, accountID)
	return err
}
