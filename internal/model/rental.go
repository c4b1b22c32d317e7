package model

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// RentalStatus is the lifecycle state of a rental. Only active rentals
// can move; completed and cancelled are terminal.
type RentalStatus string

const (
	RentalActive    RentalStatus = "active"
	RentalCompleted RentalStatus = "completed"
	RentalCancelled RentalStatus = "cancelled"
)

func (s RentalStatus) Valid() bool {
	switch s {
	case RentalActive, RentalCompleted, RentalCancelled:
		return true
	}
	return false
}

// CanTransition reports whether s may move to next.
func (s RentalStatus) CanTransition(next RentalStatus) bool {
	return s == RentalActive && (next == RentalCompleted || next == RentalCancelled)
}

func ParseRentalStatus(s string) (RentalStatus, error) {
	v := RentalStatus(s)
	if !v.Valid() {
		return "", fmt.Errorf("unknown rental status %q", s)
	}
	return v, nil
}

func (s *RentalStatus) Scan(src any) error {
	return scanEnum(src, func(str string) error {
		v, err := ParseRentalStatus(str)
		*s = v
		return err
	})
}

func (s RentalStatus) Value() (driver.Value, error) { return string(s), nil }

// Rental mirrors a row of rental_history. DeadlineAt is the scheduled
// return time; ReturnedAt is set only by an explicit return.
type Rental struct {
	ID          uint64       `json:"id"`
	UserID      string       `json:"userId"`
	UserName    string       `json:"userName"`
	UmbrellaID  string       `json:"umbrellaId"`
	RentedAt    time.Time    `json:"rentedAt"`
	DeadlineAt  *time.Time   `json:"deadlineAt"`
	ReturnedAt  *time.Time   `json:"returnedAt"`
	Status      RentalStatus `json:"status"`
	CreditsUsed int          `json:"creditsUsed"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// RentalHistoryEntry is a rental joined with its umbrella.
type RentalHistoryEntry struct {
	Rental
	Description    string         `json:"description"`
	Location       string         `json:"location"`
	UmbrellaStatus UmbrellaStatus `json:"umbrellaStatus"`
}
