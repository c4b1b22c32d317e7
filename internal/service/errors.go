package service

import (
	"errors"
	"fmt"

	"github.com/iliyamo/umbrella-rental/internal/repository"
)

var (
	// ErrUmbrellaNotAvailable is returned when the umbrella is not in the
	// available state or lost the race to another renter.
	ErrUmbrellaNotAvailable = errors.New("umbrella is not available")
	// ErrRentalNotActive is returned when returning or expiring a rental
	// that has already reached a terminal state.
	ErrRentalNotActive = errors.New("rental is not active")
	// ErrInvalidAmount rejects non-positive ledger amounts.
	ErrInvalidAmount = errors.New("amount must be positive")
	// ErrInvalidType rejects ledger types that cannot credit a balance.
	ErrInvalidType = errors.New("invalid transaction type")
	// ErrTransactionFailed wraps unexpected store errors inside a
	// multi-step write. The transaction was rolled back.
	ErrTransactionFailed = errors.New("transaction failed")
)

// InsufficientCreditsError reports a balance below the required amount.
type InsufficientCreditsError struct {
	Have int
	Need int
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("Insufficient credits. You have %d credits, but need %d credits.", e.Have, e.Need)
}

// WindowError rejects a rental window before anything touches the store.
type WindowError struct{ Msg string }

func (e *WindowError) Error() string { return e.Msg }

// failed wraps err as ErrTransactionFailed unless it already carries a
// domain meaning the caller should see.
func failed(err error) error {
	var (
		ins *InsufficientCreditsError
		win *WindowError
	)
	switch {
	case err == nil:
		return nil
	case errors.As(err, &ins), errors.As(err, &win),
		errors.Is(err, ErrUmbrellaNotAvailable), errors.Is(err, ErrRentalNotActive),
		errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrInvalidType),
		isRepoSentinel(err):
		return err
	}
	return fmt.Errorf("%w: %w", ErrTransactionFailed, err)
}

func isRepoSentinel(err error) bool {
	for _, s := range []error{
		repository.ErrUserNotFound, repository.ErrUmbrellaNotFound, repository.ErrRentalNotFound,
		repository.ErrForbidden, repository.ErrConflict, repository.ErrDuplicate,
	} {
		if errors.Is(err, s) {
			return true
		}
	}
	return false
}
