package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/umbrella-rental/internal/model"
)

const rentalColumns = "r.id, r.user_id, r.user_name, r.umbrella_id, r.rented_at, r.deadline_at, r.returned_at, r.status, r.credits_used, r.created_at, r.updated_at"

// RentalRepo reads and writes rental_history.
type RentalRepo struct{ DB *sql.DB }

func NewRentalRepo(db *sql.DB) *RentalRepo { return &RentalRepo{DB: db} }

func scanRental(s rowScanner, extra ...any) (model.Rental, error) {
	var (
		rt                 model.Rental
		deadline, returned sql.NullTime
	)
	dest := []any{&rt.ID, &rt.UserID, &rt.UserName, &rt.UmbrellaID, &rt.RentedAt, &deadline, &returned,
		&rt.Status, &rt.CreditsUsed, &rt.CreatedAt, &rt.UpdatedAt}
	err := s.Scan(append(dest, extra...)...)
	if deadline.Valid {
		rt.DeadlineAt = &deadline.Time
	}
	if returned.Valid {
		rt.ReturnedAt = &returned.Time
	}
	return rt, err
}

// InsertTx records a new active rental and returns its id.
func (r *RentalRepo) InsertTx(ctx context.Context, tx *sql.Tx, rt model.Rental) (uint64, error) {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO rental_history (user_id, user_name, umbrella_id, rented_at, deadline_at, status, credits_used)
		 VALUES (?,?,?,?,?,?,?)`,
		rt.UserID, rt.UserName, rt.UmbrellaID, rt.RentedAt, rt.DeadlineAt, model.RentalActive, rt.CreditsUsed)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	return uint64(id), err
}

// GetTx reads a rental inside tx.
func (r *RentalRepo) GetTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Rental, error) {
	rt, err := scanRental(tx.QueryRowContext(ctx, "SELECT "+rentalColumns+" FROM rental_history r WHERE r.id = ?", id))
	return rt, mapErr(err, ErrRentalNotFound)
}

// GetForUpdateTx locks a rental row for the rest of tx.
func (r *RentalRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Rental, error) {
	rt, err := scanRental(tx.QueryRowContext(ctx, "SELECT "+rentalColumns+" FROM rental_history r WHERE r.id = ? FOR UPDATE", id))
	return rt, mapErr(err, ErrRentalNotFound)
}

// CompleteTx moves an active rental to completed. returnedAt is nil for
// expiry. It reports false when the rental was no longer active.
func (r *RentalRepo) CompleteTx(ctx context.Context, tx *sql.Tx, id uint64, returnedAt *time.Time) (bool, error) {
	res, err := tx.ExecContext(ctx,
		"UPDATE rental_history SET status = 'completed', returned_at = ? WHERE id = ? AND status = 'active'",
		returnedAt, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// ListOverdueTx locks every active rental whose deadline is before now.
func (r *RentalRepo) ListOverdueTx(ctx context.Context, tx *sql.Tx, now time.Time) ([]model.Rental, error) {
	return r.list(ctx, tx,
		"SELECT "+rentalColumns+" FROM rental_history r WHERE r.status = 'active' AND r.deadline_at IS NOT NULL AND r.deadline_at < ? ORDER BY r.id FOR UPDATE",
		now)
}

// ListOverdue is the read-only preview of ListOverdueTx.
func (r *RentalRepo) ListOverdue(ctx context.Context, now time.Time) ([]model.Rental, error) {
	return r.list(ctx, r.DB,
		"SELECT "+rentalColumns+" FROM rental_history r WHERE r.status = 'active' AND r.deadline_at IS NOT NULL AND r.deadline_at < ? ORDER BY r.id",
		now)
}

// ListByUser returns a user's rentals, newest first, optionally filtered
// by status.
func (r *RentalRepo) ListByUser(ctx context.Context, userID string, status model.RentalStatus) ([]model.Rental, error) {
	q := "SELECT " + rentalColumns + " FROM rental_history r WHERE r.user_id = ?"
	args := []any{userID}
	if status != "" {
		q += " AND r.status = ?"
		args = append(args, status)
	}
	return r.list(ctx, r.DB, q+" ORDER BY r.rented_at DESC", args...)
}

// Recent returns the n newest rentals across all users.
func (r *RentalRepo) Recent(ctx context.Context, n int) ([]model.Rental, error) {
	return r.list(ctx, r.DB, "SELECT "+rentalColumns+" FROM rental_history r ORDER BY r.created_at DESC LIMIT ?", n)
}

func (r *RentalRepo) list(ctx context.Context, q querier, query string, args ...any) ([]model.Rental, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Rental{}
	for rows.Next() {
		rt, err := scanRental(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rt)
	}
	return out, rows.Err()
}

// History returns a user's rentals joined with umbrella details.
func (r *RentalRepo) History(ctx context.Context, userID string) ([]model.RentalHistoryEntry, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+rentalColumns+", u.description, u.location, u.status"+
			" FROM rental_history r JOIN umbrellas u ON u.id = r.umbrella_id"+
			" WHERE r.user_id = ? ORDER BY r.rented_at DESC", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.RentalHistoryEntry{}
	for rows.Next() {
		var e model.RentalHistoryEntry
		rt, err := scanRental(rows, &e.Description, &e.Location, &e.UmbrellaStatus)
		if err != nil {
			return nil, err
		}
		e.Rental = rt
		out = append(out, e)
	}
	return out, rows.Err()
}
