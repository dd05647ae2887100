package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/keygate/backend/internal/model"
)

const uniqueViolationCode = "23505"

func IsNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// translateError maps pgx failures onto the store-level errors in model.
// Anything unrecognised is returned unchanged.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if IsNoRows(err) {
		return model.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
		return &model.ConflictError{Field: conflictField(pgErr.ConstraintName)}
	}
	return err
}

func conflictField(constraint string) string {
	switch {
	case strings.Contains(constraint, "username"):
		return model.FieldUsername
	case strings.Contains(constraint, "email"):
		return model.FieldEmail
	default:
		return constraint
	}
}
