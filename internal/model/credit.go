package model

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// TransactionType classifies a credit ledger entry.
type TransactionType string

const (
	TxRental TransactionType = "rental"
	TxTopUp  TransactionType = "topup"
	TxBonus  TransactionType = "bonus"
	TxRefund TransactionType = "refund"
)

func (t TransactionType) Valid() bool {
	switch t {
	case TxRental, TxTopUp, TxBonus, TxRefund:
		return true
	}
	return false
}

// IsCredit reports whether entries of this type add to the balance.
func (t TransactionType) IsCredit() bool { return t == TxTopUp || t == TxBonus || t == TxRefund }

func ParseTransactionType(s string) (TransactionType, error) {
	v := TransactionType(s)
	if !v.Valid() {
		return "", fmt.Errorf("unknown transaction type %q", s)
	}
	return v, nil
}

func (t *TransactionType) Scan(src any) error {
	return scanEnum(src, func(str string) error {
		v, err := ParseTransactionType(str)
		*t = v
		return err
	})
}

func (t TransactionType) Value() (driver.Value, error) { return string(t), nil }

// CreditTransaction is one append-only ledger row. Amount is signed:
// debits are negative.
type CreditTransaction struct {
	ID          uint64          `json:"id"`
	UserID      string          `json:"userId"`
	RentalID    *uint64         `json:"rentalId"`
	Type        TransactionType `json:"type"`
	Amount      int             `json:"amount"`
	Description string          `json:"description"`
	Method      *string         `json:"method"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// DashboardStats is the admin overview.
type DashboardStats struct {
	Users struct {
		Total   int `json:"total"`
		Admins  int `json:"admins"`
		Regular int `json:"regular"`
	} `json:"users"`
	Umbrellas struct {
		Total      int `json:"total"`
		Available  int `json:"available"`
		OutOfStock int `json:"outOfStock"`
	} `json:"umbrellas"`
	Rentals struct {
		Total     int `json:"total"`
		Active    int `json:"active"`
		Completed int `json:"completed"`
		Cancelled int `json:"cancelled"`
	} `json:"rentals"`
}
