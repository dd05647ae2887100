package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/keygate/backend/internal/model"
)

func TestTranslateError(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name      string
		in        error
		wantField string
		wantErr   error
	}{
		{name: "nil", in: nil},
		{name: "no-rows", in: pgx.ErrNoRows, wantErr: model.ErrNotFound},
		{name: "wrapped-no-rows", in: fmt.Errorf("scan: %w", pgx.ErrNoRows), wantErr: model.ErrNotFound},
		{name: "email-conflict", in: &pgconn.PgError{Code: "23505", ConstraintName: "accounts_email_key"}, wantField: model.FieldEmail},
		{name: "username-conflict", in: &pgconn.PgError{Code: "23505", ConstraintName: "accounts_username_key"}, wantField: model.FieldUsername},
		{name: "other-pg-error", in: &pgconn.PgError{Code: "40001"}},
		{name: "passthrough", in: boom, wantErr: boom},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translateError(tt.in)
			if tt.wantField != "" {
				var conflict *model.ConflictError
				if !errors.As(got, &conflict) {
					t.Fatalf("expected ConflictError, got %v", got)
				}
				if conflict.Field != tt.wantField {
					t.Fatalf("field = %q, want %q", conflict.Field, tt.wantField)
				}
				return
			}
			if tt.wantErr != nil && !errors.Is(got, tt.wantErr) {
				t.Fatalf("translateError() = %v, want %v", got, tt.wantErr)
			}
			if tt.in == nil && got != nil {
				t.Fatalf("expected nil, got %v", got)
			}
		})
	}
}
