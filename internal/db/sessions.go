package db

import (
	"context"

	"github.com/google/uuid"
	"github.com/keygate/backend/internal/model"
)

func (db *Postgres) InsertSession(ctx context.Context, session *model.Session) error {
	query := `
		INSERT INTO sessions (id, account_id, device_name, ip, created_at, expires_at, token)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := db.Pool.Exec(ctx, query,
		session.ID,
		session.AccountID,
		session.DeviceName,
		session.IPAddress,
		session.CreatedAt,
		session.ExpiresAt,
		session.Token,
	)
	return translateError(err)
}

func (db *Postgres) FindSessionByID(ctx context.Context, id uuid.UUID) (*model.Session, error) {
	query := `
		SELECT id, account_id, device_name, ip, created_at, expires_at, token
		FROM sessions
		WHERE id = $1
	`
	var session model.Session
	err := db.Pool.QueryRow(ctx, query, id).Scan(
		&session.ID,
		&session.AccountID,
		&session.DeviceName,
		&session.IPAddress,
		&session.CreatedAt,
		&session.ExpiresAt,
		&session.Token,
	)
	if err != nil {
		return nil, translateError(err)
	}
	return &session, nil
}

// DeleteSession is idempotent: deleting a missing row is not an error.
func (db *Postgres) DeleteSession(ctx context.Context, id uuid.UUID) error {
	_, err := db.Pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	return err
}
