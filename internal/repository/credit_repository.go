package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/umbrella-rental/internal/model"
)

// CreditRepo owns users.credits and the append-only credit_transactions
// table. Balance changes and ledger inserts are separate calls so the
// service can pair them inside one transaction.
type CreditRepo struct{ DB *sql.DB }

func NewCreditRepo(db *sql.DB) *CreditRepo { return &CreditRepo{DB: db} }

// Balance returns the current balance of a user.
func (r *CreditRepo) Balance(ctx context.Context, userID string) (int, error) {
	return balance(ctx, r.DB, userID)
}

// BalanceTx reads the balance inside tx.
func (r *CreditRepo) BalanceTx(ctx context.Context, tx *sql.Tx, userID string) (int, error) {
	return balance(ctx, tx, userID)
}

func balance(ctx context.Context, q querier, userID string) (int, error) {
	var n int
	err := q.QueryRowContext(ctx, "SELECT credits FROM users WHERE id = ?", userID).Scan(&n)
	return n, mapErr(err, ErrUserNotFound)
}

// DebitTx subtracts amount only if the balance covers it. It reports
// false when the guard did not match.
func (r *CreditRepo) DebitTx(ctx context.Context, tx *sql.Tx, userID string, amount int) (bool, error) {
	res, err := tx.ExecContext(ctx,
		"UPDATE users SET credits = credits - ? WHERE id = ? AND credits >= ?",
		amount, userID, amount)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// CreditTx adds amount to the balance.
func (r *CreditRepo) CreditTx(ctx context.Context, tx *sql.Tx, userID string, amount int) error {
	res, err := tx.ExecContext(ctx, "UPDATE users SET credits = credits + ? WHERE id = ?", amount, userID)
	if err != nil {
		return err
	}
	return requireRow(res, ErrUserNotFound)
}

// InsertTx appends a ledger entry.
func (r *CreditRepo) InsertTx(ctx context.Context, tx *sql.Tx, e model.CreditTransaction) (uint64, error) {
	res, err := tx.ExecContext(ctx,
		"INSERT INTO credit_transactions (user_id, rental_id, type, amount, description, method) VALUES (?,?,?,?,?,?)",
		e.UserID, e.RentalID, e.Type, e.Amount, e.Description, e.Method)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	return uint64(id), err
}

// EachByUser streams up to limit entries of a user, newest first, calling
// yield for each. Iteration stops early when yield returns false.
func (r *CreditRepo) EachByUser(ctx context.Context, userID string, limit int, yield func(model.CreditTransaction) bool) error {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, user_id, rental_id, type, amount, description, method, created_at
		 FROM credit_transactions WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`,
		userID, limit)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			e        model.CreditTransaction
			rentalID sql.NullInt64
			method   sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.UserID, &rentalID, &e.Type, &e.Amount, &e.Description, &method, &e.CreatedAt); err != nil {
			return err
		}
		if rentalID.Valid {
			id := uint64(rentalID.Int64)
			e.RentalID = &id
		}
		if method.Valid {
			e.Method = &method.String
		}
		if !yield(e) {
			return nil
		}
	}
	return rows.Err()
}
