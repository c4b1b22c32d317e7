// Package repository defines the data access layer over MySQL and the error
// values shared across repositories. Handlers and services use these
// sentinels to pick the HTTP status without inspecting driver errors.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/umbrella-rental/internal/database"
)

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own. Handlers translate this into 403.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a delete or update cannot be performed
// because of dependent state, such as deleting an umbrella that is out
// on an active rental.
var ErrConflict = errors.New("conflict")

// ErrDuplicate wraps unique-key violations (username, email, mobile,
// station pair).
var ErrDuplicate = errors.New("duplicate")

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrUmbrellaNotFound = errors.New("umbrella not found")
	ErrRentalNotFound   = errors.New("rental not found")
)

// querier is implemented by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// rowScanner is implemented by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// mapErr turns driver-level errors into repository sentinels.
func mapErr(err error, notFound error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return notFound
	case database.IsDuplicate(err):
		return ErrDuplicate
	}
	return err
}
