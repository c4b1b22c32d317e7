package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/umbrella-rental/internal/model"
)

const userColumns = "id, username, email, mobile, password_hash, name, profile_image, role, credits, total_rentals, created_at, updated_at"

// UserRepo reads and writes the users table.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

func scanUser(s rowScanner) (model.User, error) {
	var (
		u   model.User
		img sql.NullString
	)
	err := s.Scan(&u.ID, &u.Username, &u.Email, &u.Mobile, &u.PasswordHash, &u.Name, &img,
		&u.Role, &u.Credits, &u.TotalRentals, &u.CreatedAt, &u.UpdatedAt)
	if img.Valid {
		u.ProfileImage = &img.String
	}
	return u, err
}

// CreateTx inserts u with a zero balance. Starting credits are granted
// through the ledger by the caller in the same transaction.
func (r *UserRepo) CreateTx(ctx context.Context, tx *sql.Tx, u model.User) error {
	_, err := tx.ExecContext(ctx,
		"INSERT INTO users (id, username, email, mobile, password_hash, name, role, credits) VALUES (?,?,?,?,?,?,?,0)",
		u.ID, u.Username, u.Email, u.Mobile, u.PasswordHash, u.Name, u.Role)
	return mapErr(err, ErrUserNotFound)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id string) (model.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ? LIMIT 1", id))
	return u, mapErr(err, ErrUserNotFound)
}

// GetForUpdateTx locks the user row for the rest of tx.
func (r *UserRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id string) (model.User, error) {
	u, err := scanUser(tx.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ? FOR UPDATE", id))
	return u, mapErr(err, ErrUserNotFound)
}

// GetByLogin matches identifier against username or email, and mobile
// against the stored mobile number.
func (r *UserRepo) GetByLogin(ctx context.Context, identifier, mobile string) (model.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE username = ? OR email = ? OR mobile = ? LIMIT 1",
		identifier, strings.ToLower(identifier), mobile))
	return u, mapErr(err, ErrUserNotFound)
}

// Taken reports which of the given identifiers are already registered.
// Empty arguments are skipped.
func (r *UserRepo) Taken(ctx context.Context, username, email, mobile string) (map[string]bool, error) {
	out := map[string]bool{}
	checks := []struct{ field, col, val string }{
		{"username", "username", username},
		{"email", "email", email},
		{"mobile", "mobile", mobile},
	}
	for _, ch := range checks {
		if ch.val == "" {
			continue
		}
		var n int
		if err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE "+ch.col+" = ?", ch.val).Scan(&n); err != nil {
			return nil, err
		}
		out[ch.field] = n > 0
	}
	return out, nil
}

// IncrementRentalsTx bumps the user's rental counter.
func (r *UserRepo) IncrementRentalsTx(ctx context.Context, tx *sql.Tx, id string) error {
	_, err := tx.ExecContext(ctx, "UPDATE users SET total_rentals = total_rentals + 1 WHERE id = ?", id)
	return err
}

// ProfileUpdate carries optional profile fields; nil means unchanged.
type ProfileUpdate struct {
	Name         *string
	Email        *string
	Mobile       *string
	ProfileImage *string
	PasswordHash *string
}

// Empty reports whether no field is set.
func (p ProfileUpdate) Empty() bool {
	return p.Name == nil && p.Email == nil && p.Mobile == nil && p.ProfileImage == nil && p.PasswordHash == nil
}

// UpdateProfile applies the set fields of p to user id.
func (r *UserRepo) UpdateProfile(ctx context.Context, id string, p ProfileUpdate) error {
	var (
		sets []string
		args []any
	)
	add := func(col string, v *string) {
		if v != nil {
			sets = append(sets, col+" = ?")
			args = append(args, *v)
		}
	}
	add("name", p.Name)
	add("email", p.Email)
	add("mobile", p.Mobile)
	add("profile_image", p.ProfileImage)
	add("password_hash", p.PasswordHash)
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)
	res, err := r.DB.ExecContext(ctx, "UPDATE users SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return mapErr(err, ErrUserNotFound)
	}
	return requireRow(res, ErrUserNotFound)
}

// List returns every user, newest first.
func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	return r.list(ctx, "SELECT "+userColumns+" FROM users ORDER BY created_at DESC")
}

// Recent returns the n newest users.
func (r *UserRepo) Recent(ctx context.Context, n int) ([]model.User, error) {
	return r.list(ctx, "SELECT "+userColumns+" FROM users ORDER BY created_at DESC LIMIT ?", n)
}

func (r *UserRepo) list(ctx context.Context, q string, args ...any) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// UpdateRole changes a user's role.
func (r *UserRepo) UpdateRole(ctx context.Context, id string, role model.Role) error {
	res, err := r.DB.ExecContext(ctx, "UPDATE users SET role = ? WHERE id = ?", role, id)
	if err != nil {
		return err
	}
	return requireRow(res, ErrUserNotFound)
}

// Delete hard-deletes a user; rentals, ledger rows and tokens cascade.
func (r *UserRepo) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return err
	}
	return requireRow(res, ErrUserNotFound)
}

// CountAdmins returns the number of admin accounts.
func (r *UserRepo) CountAdmins(ctx context.Context) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE role = 'admin'").Scan(&n)
	return n, err
}

// requireRow maps a zero-row write to notFound. The connection reports
// matched rows (clientFoundRows), so a no-op update still counts.
func requireRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
