// Package service holds the transactional core: the credit ledger, the
// rental lifecycle and account creation. Every balance change is paired
// with exactly one ledger row inside the same transaction.
package service

import (
	"context"
	"database/sql"
	"fmt"
	"iter"

	"github.com/iliyamo/umbrella-rental/internal/database"
	"github.com/iliyamo/umbrella-rental/internal/model"
	"github.com/iliyamo/umbrella-rental/internal/repository"
)

// DefaultTransactionLimit caps Transactions when the caller passes <= 0.
const DefaultTransactionLimit = 50

// Ledger is the only writer of users.credits.
type Ledger struct {
	DB      *sql.DB
	Credits *repository.CreditRepo
}

func NewLedger(db *sql.DB, credits *repository.CreditRepo) *Ledger {
	return &Ledger{DB: db, Credits: credits}
}

// Balance returns the user's current balance.
func (l *Ledger) Balance(ctx context.Context, userID string) (int, error) {
	return l.Credits.Balance(ctx, userID)
}

// DebitTx takes amount from the user for rentalID. The balance check and
// the decrement are one conditional update, so concurrent debits cannot
// overdraw.
func (l *Ledger) DebitTx(ctx context.Context, tx *sql.Tx, userID string, amount int, rentalID uint64, reason string) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	ok, err := l.Credits.DebitTx(ctx, tx, userID, amount)
	if err != nil {
		return err
	}
	if !ok {
		have, err := l.Credits.BalanceTx(ctx, tx, userID)
		if err != nil {
			return err
		}
		return &InsufficientCreditsError{Have: have, Need: amount}
	}
	var rid *uint64
	if rentalID != 0 {
		rid = &rentalID
	}
	_, err = l.Credits.InsertTx(ctx, tx, model.CreditTransaction{
		UserID:      userID,
		RentalID:    rid,
		Type:        model.TxRental,
		Amount:      -amount,
		Description: reason,
	})
	return err
}

// CreditTx adds amount to the balance and records one entry of typ. It
// returns the new balance.
func (l *Ledger) CreditTx(ctx context.Context, tx *sql.Tx, userID string, amount int, typ model.TransactionType, method, reason string) (int, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	if !typ.IsCredit() {
		return 0, ErrInvalidType
	}
	if err := l.Credits.CreditTx(ctx, tx, userID, amount); err != nil {
		return 0, err
	}
	var m *string
	if method != "" {
		m = &method
	}
	if _, err := l.Credits.InsertTx(ctx, tx, model.CreditTransaction{
		UserID:      userID,
		Type:        typ,
		Amount:      amount,
		Description: reason,
		Method:      m,
	}); err != nil {
		return 0, err
	}
	return l.Credits.BalanceTx(ctx, tx, userID)
}

// TopUp is a user-initiated purchase of credits.
func (l *Ledger) TopUp(ctx context.Context, userID string, amount int, method string) (int, error) {
	return l.credit(ctx, userID, amount, model.TxTopUp, method, fmt.Sprintf("Top up %d credits via %s", amount, method))
}

// Grant is an admin-issued bonus.
func (l *Ledger) Grant(ctx context.Context, userID string, amount int, reason string) (int, error) {
	if reason == "" {
		reason = fmt.Sprintf("Admin granted %d credits", amount)
	}
	return l.credit(ctx, userID, amount, model.TxBonus, "admin", reason)
}

func (l *Ledger) credit(ctx context.Context, userID string, amount int, typ model.TransactionType, method, reason string) (int, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	var balance int
	err := database.WithTx(ctx, l.DB, func(tx *sql.Tx) error {
		var err error
		balance, err = l.CreditTx(ctx, tx, userID, amount, typ, method, reason)
		return err
	})
	return balance, failed(err)
}

// Transactions lazily yields up to limit of the user's entries, newest
// first. Each range over the result runs a fresh query.
func (l *Ledger) Transactions(ctx context.Context, userID string, limit int) iter.Seq2[model.CreditTransaction, error] {
	if limit <= 0 {
		limit = DefaultTransactionLimit
	}
	return func(yield func(model.CreditTransaction, error) bool) {
		stopped := false
		err := l.Credits.EachByUser(ctx, userID, limit, func(e model.CreditTransaction) bool {
			if !yield(e, nil) {
				stopped = true
				return false
			}
			return true
		})
		if err != nil && !stopped {
			yield(model.CreditTransaction{}, err)
		}
	}
}
