package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/casegate/casegate-backend/internal/domain"
)

func TestMapError_Nil(t *testing.T) {
	t.Parallel()

	if got := MapError(nil, "draft", uuid.New()); got != nil {
		t.Errorf("MapError(nil) = %v, want nil", got)
	}
}

func TestMapError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"no rows", pgx.ErrNoRows, domain.ErrNotFound},
		{"wrapped no rows", fmt.Errorf("scan: %w", pgx.ErrNoRows), domain.ErrNotFound},
		{"unique violation", &pgconn.PgError{Code: "23505"}, domain.ErrAlreadyExists},
		{"wrapped unique violation", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}), domain.ErrAlreadyExists},
		{"foreign key violation", &pgconn.PgError{Code: "23503"}, domain.ErrNotFound},
		{"check violation", &pgconn.PgError{Code: "23514"}, domain.ErrValidation},
		{"serialization failure", &pgconn.PgError{Code: "40001"}, domain.ErrConflict},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, domain.ErrConflict},
		{"deadline passes through", context.DeadlineExceeded, context.DeadlineExceeded},
		{"cancel passes through", context.Canceled, context.Canceled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := MapError(tt.err, "draft", uuid.New())
			if !errors.Is(got, tt.want) {
				t.Errorf("MapError(%v) = %v, want wrapping %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestMapError_ContextNotMappedToDomain(t *testing.T) {
	t.Parallel()

	got := MapError(context.Canceled, "draft", uuid.New())
	if errors.Is(got, domain.ErrNotFound) || errors.Is(got, domain.ErrConflict) {
		t.Errorf("context errors must not map to domain errors: %v", got)
	}
}

func TestMapError_UnknownPgErrorPassesThrough(t *testing.T) {
	t.Parallel()

	got := MapError(&pgconn.PgError{Code: "42P01"}, "audit_record", uuid.New())

	var pgErr *pgconn.PgError
	if !errors.As(got, &pgErr) {
		t.Errorf("expected *pgconn.PgError in chain: %v", got)
	}
	for _, sentinel := range []error{domain.ErrNotFound, domain.ErrAlreadyExists, domain.ErrValidation, domain.ErrConflict} {
		if errors.Is(got, sentinel) {
			t.Errorf("unknown code mapped to %v", sentinel)
		}
	}
}

func TestMapError_Message(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	got := MapError(errors.New("something unexpected"), "send_record", id)
	if want := fmt.Sprintf("send_record %s: something unexpected", id); got.Error() != want {
		t.Errorf("Error() = %q, want %q", got.Error(), want)
	}
}
