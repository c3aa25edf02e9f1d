package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgxpool.Pool the repositories need. pgxmock's pool
// interface satisfies it too, so repository tests run against a mock without
// a network.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// uniqueViolation reports whether err is a PostgreSQL unique constraint
// violation (SQLSTATE 23505) and, if so, which constraint fired.
func uniqueViolation(err error) (constraint string, ok bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return pgErr.ConstraintName, true
	}
	// pgxmock surfaces plain errors; fall back to a substring check so tests
	// can simulate the violation.
	if err != nil && strings.Contains(err.Error(), "23505") {
		return err.Error(), true
	}
	return "", false
}
