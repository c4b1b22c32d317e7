package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/iliyamo/umbrella-rental/internal/database"
	"github.com/iliyamo/umbrella-rental/internal/model"
	"github.com/iliyamo/umbrella-rental/internal/queue"
	"github.com/iliyamo/umbrella-rental/internal/repository"
)

// RentalConfig holds the pricing and window rules for rentals.
type RentalConfig struct {
	Credits       int           // credits charged per rental
	MaxWindow     time.Duration // longest allowed rental
	DefaultWindow time.Duration // used when the caller gives no end time
}

// DefaultRentalConfig is 50 credits, a 2 day cap and a 24 hour default.
func DefaultRentalConfig() RentalConfig {
	return RentalConfig{Credits: 50, MaxWindow: 48 * time.Hour, DefaultWindow: 24 * time.Hour}
}

// RentalService runs the rental lifecycle: active -> completed on return
// or expiry. Each transition is one transaction over users, umbrellas,
// rental_history and credit_transactions.
type RentalService struct {
	DB        *sql.DB
	Users     *repository.UserRepo
	Umbrellas *repository.UmbrellaRepo
	Rentals   *repository.RentalRepo
	Ledger    *Ledger
	Events    EventPublisher
	Cfg       RentalConfig
	Now       func() time.Time
}

func NewRentalService(db *sql.DB, ledger *Ledger, events EventPublisher, cfg RentalConfig) *RentalService {
	if events == nil {
		events = NopPublisher{}
	}
	return &RentalService{
		DB:        db,
		Users:     repository.NewUserRepo(db),
		Umbrellas: repository.NewUmbrellaRepo(db),
		Rentals:   repository.NewRentalRepo(db),
		Ledger:    ledger,
		Events:    events,
		Cfg:       cfg,
		Now:       func() time.Time { return time.Now().UTC() },
	}
}

// ValidateWindow resolves the end of a rental starting at start. A nil
// end becomes start+defWindow. The end must follow start by at most
// maxWindow.
func ValidateWindow(start time.Time, end *time.Time, maxWindow, defWindow time.Duration) (time.Time, error) {
	if end == nil {
		return start.Add(defWindow), nil
	}
	if !end.After(start) {
		return time.Time{}, &WindowError{Msg: "End time must be after start time."}
	}
	if end.Sub(start) > maxWindow {
		return time.Time{}, &WindowError{Msg: fmt.Sprintf("Cannot rent for more than %s.", humanDays(maxWindow))}
	}
	return *end, nil
}

func humanDays(d time.Duration) string {
	const day = 24 * time.Hour
	if d%day != 0 {
		return d.String()
	}
	if d == day {
		return "1 day"
	}
	return fmt.Sprintf("%d days", d/day)
}

// CreateRentalInput is the request to rent one umbrella.
type CreateRentalInput struct {
	UserID     string
	UmbrellaID string
	Start      *time.Time // defaults to now
	End        *time.Time // defaults to Start + DefaultWindow
}

// Create rents an umbrella. The window is checked before the store is
// touched; all business checks run before any write, and a failure rolls
// every write back.
func (s *RentalService) Create(ctx context.Context, in CreateRentalInput) (model.Rental, error) {
	start := s.Now()
	if in.Start != nil {
		start = in.Start.UTC()
	}
	end, err := ValidateWindow(start, in.End, s.Cfg.MaxWindow, s.Cfg.DefaultWindow)
	if err != nil {
		return model.Rental{}, err
	}
	end = end.UTC()
	need := s.Cfg.Credits

	var rental model.Rental
	err = database.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		user, err := s.Users.GetForUpdateTx(ctx, tx, in.UserID)
		if err != nil {
			return err
		}
		if user.Credits < need {
			return &InsufficientCreditsError{Have: user.Credits, Need: need}
		}
		umb, err := s.Umbrellas.GetForUpdateTx(ctx, tx, in.UmbrellaID)
		if err != nil {
			return err
		}
		if umb.Status != model.UmbrellaAvailable || umb.Inventory <= 0 {
			return ErrUmbrellaNotAvailable
		}
		ok, err := s.Umbrellas.TakeTx(ctx, tx, umb.ID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrUmbrellaNotAvailable
		}
		id, err := s.Rentals.InsertTx(ctx, tx, model.Rental{
			UserID:      user.ID,
			UserName:    user.Name,
			UmbrellaID:  umb.ID,
			RentedAt:    start,
			DeadlineAt:  &end,
			CreditsUsed: need,
		})
		if err != nil {
			return err
		}
		reason := fmt.Sprintf("Umbrella rental at %s", umb.Location)
		if err := s.Ledger.DebitTx(ctx, tx, user.ID, need, id, reason); err != nil {
			return err
		}
		if err := s.Users.IncrementRentalsTx(ctx, tx, user.ID); err != nil {
			return err
		}
		rental, err = s.Rentals.GetTx(ctx, tx, id)
		return err
	})
	if err != nil {
		return model.Rental{}, failed(err)
	}

	log.WithFields(log.Fields{"rental_id": rental.ID, "user_id": rental.UserID, "umbrella_id": rental.UmbrellaID}).
		Info("rental created")
	publish(ctx, s.Events, rentalEvent(queue.RentalCreated, rental, s.Now()))
	return rental, nil
}

// ReturnRentalInput identifies the rental and who is returning it.
type ReturnRentalInput struct {
	RentalID     uint64
	ActorID      string
	ActorIsAdmin bool
	ReturnedAt   *time.Time // defaults to now
}

// Return completes an active rental and puts the umbrella back on the
// shelf. Credits are not refunded. Returning the same rental twice fails
// with ErrRentalNotActive and writes nothing.
func (s *RentalService) Return(ctx context.Context, in ReturnRentalInput) (model.Rental, error) {
	at := s.Now()
	if in.ReturnedAt != nil {
		at = in.ReturnedAt.UTC()
	}

	var rental model.Rental
	err := database.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		rt, err := s.Rentals.GetForUpdateTx(ctx, tx, in.RentalID)
		if err != nil {
			return err
		}
		if rt.UserID != in.ActorID && !in.ActorIsAdmin {
			return repository.ErrForbidden
		}
		if !rt.Status.CanTransition(model.RentalCompleted) {
			return ErrRentalNotActive
		}
		if at.Before(rt.RentedAt) {
			return &WindowError{Msg: "Return time cannot be before the rental start."}
		}
		ok, err := s.Rentals.CompleteTx(ctx, tx, rt.ID, &at)
		if err != nil {
			return err
		}
		if !ok {
			return ErrRentalNotActive
		}
		if err := s.Umbrellas.RestockTx(ctx, tx, rt.UmbrellaID); err != nil {
			return err
		}
		rental, err = s.Rentals.GetTx(ctx, tx, rt.ID)
		return err
	})
	if err != nil {
		return model.Rental{}, failed(err)
	}

	log.WithFields(log.Fields{"rental_id": rental.ID, "user_id": rental.UserID}).Info("rental returned")
	publish(ctx, s.Events, rentalEvent(queue.RentalReturned, rental, s.Now()))
	return rental, nil
}

// ExpireOverdue completes every active rental whose deadline is before
// now and restocks its umbrella. Rentals already completed by a racing
// return are skipped. It returns the expired rentals.
func (s *RentalService) ExpireOverdue(ctx context.Context, now time.Time) ([]model.Rental, error) {
	var expired []model.Rental
	err := database.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		due, err := s.Rentals.ListOverdueTx(ctx, tx, now)
		if err != nil {
			return err
		}
		for _, rt := range due {
			ok, err := s.Rentals.CompleteTx(ctx, tx, rt.ID, nil)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			if err := s.Umbrellas.RestockTx(ctx, tx, rt.UmbrellaID); err != nil {
				return err
			}
			rt.Status = model.RentalCompleted
			expired = append(expired, rt)
		}
		return nil
	})
	if err != nil {
		return nil, failed(err)
	}

	if len(expired) > 0 {
		log.WithField("count", len(expired)).Info("overdue rentals expired")
	}
	for _, rt := range expired {
		publish(ctx, s.Events, rentalEvent(queue.RentalExpired, rt, now))
	}
	return expired, nil
}

// ListExpired previews what ExpireOverdue would touch.
func (s *RentalService) ListExpired(ctx context.Context, now time.Time) ([]model.Rental, error) {
	return s.Rentals.ListOverdue(ctx, now)
}

// ListForUser returns the user's rentals, newest first.
func (s *RentalService) ListForUser(ctx context.Context, userID string, status model.RentalStatus) ([]model.Rental, error) {
	return s.Rentals.ListByUser(ctx, userID, status)
}

// History returns the user's rentals with umbrella details.
func (s *RentalService) History(ctx context.Context, userID string) ([]model.RentalHistoryEntry, error) {
	return s.Rentals.History(ctx, userID)
}

// RunSweeper calls ExpireOverdue every interval until ctx is done.
func (s *RentalService) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := s.ExpireOverdue(ctx, s.Now()); err != nil {
				log.WithError(err).Warn("expiry sweep failed")
			}
		}
	}
}
