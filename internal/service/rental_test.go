package service

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/umbrella-rental/internal/model"
	"github.com/iliyamo/umbrella-rental/internal/queue"
	"github.com/iliyamo/umbrella-rental/internal/repository"
)

func ptr[T any](v T) *T { return &v }

func TestValidateWindow(t *testing.T) {
	maxW, def := 48*time.Hour, 24*time.Hour

	end, err := ValidateWindow(t0, nil, maxW, def)
	require.NoError(t, err)
	require.Equal(t, t0.Add(24*time.Hour), end)

	end, err = ValidateWindow(t0, ptr(t0.Add(48*time.Hour)), maxW, def)
	require.NoError(t, err)
	require.Equal(t, t0.Add(48*time.Hour), end)

	_, err = ValidateWindow(t0, ptr(t0.Add(72*time.Hour)), maxW, def)
	var werr *WindowError
	require.ErrorAs(t, err, &werr)
	require.Equal(t, "Cannot rent for more than 2 days.", werr.Msg)

	_, err = ValidateWindow(t0, ptr(t0), maxW, def)
	require.ErrorAs(t, err, &werr)
	require.Equal(t, "End time must be after start time.", werr.Msg)

	_, err = ValidateWindow(t0, ptr(t0.Add(-time.Hour)), maxW, def)
	require.ErrorAs(t, err, &werr)
}

func TestHumanDays(t *testing.T) {
	require.Equal(t, "1 day", humanDays(24*time.Hour))
	require.Equal(t, "3 days", humanDays(72*time.Hour))
	require.Equal(t, "36h0m0s", humanDays(36*time.Hour))
}

func expectCreate(mock sqlmock.Sqlmock, userID string, credits int, rentalID int64) {
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = ? FOR UPDATE")).
		WithArgs(userID).WillReturnRows(userRows(userID, credits, "x"))
	mock.ExpectQuery(regexp.QuoteMeta("FROM umbrellas WHERE id = ? FOR UPDATE")).
		WithArgs("b1").WillReturnRows(umbrellaRows("b1", "available", 2))
	mock.ExpectExec(regexp.QuoteMeta("inventory = inventory - 1")).
		WithArgs("b1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO rental_history")).
		WillReturnResult(sqlmock.NewResult(rentalID, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET credits = credits - ? WHERE id = ? AND credits >= ?")).
		WithArgs(50, userID, 50).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO credit_transactions")).
		WithArgs(userID, sqlmock.AnyArg(), "rental", -50, "Umbrella rental at Thamel", nil).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("SET total_rentals = total_rentals + 1")).
		WithArgs(userID).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM rental_history r WHERE r.id = ?")).
		WillReturnRows(rentalRows(uint64(rentalID), userID, "active", t0.Add(24*time.Hour), nil))
	mock.ExpectCommit()
}

func TestCreateRentalThenInsufficientCredits(t *testing.T) {
	db, mock := newMock(t)
	pub := &recordingPublisher{}
	s := newRentalService(db, pub)
	ctx := context.Background()

	expectCreate(mock, "u1", 60, 7)
	rt, err := s.Create(ctx, CreateRentalInput{UserID: "u1", UmbrellaID: "b1"})
	require.NoError(t, err)
	require.Equal(t, uint64(7), rt.ID)
	require.Equal(t, model.RentalActive, rt.Status)
	require.Equal(t, 50, rt.CreditsUsed)
	require.Equal(t, []string{queue.RentalCreated}, pub.types())

	// the balance is now 10
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = ? FOR UPDATE")).
		WithArgs("u1").WillReturnRows(userRows("u1", 10, "x"))
	mock.ExpectRollback()

	_, err = s.Create(ctx, CreateRentalInput{UserID: "u1", UmbrellaID: "b1"})
	var ierr *InsufficientCreditsError
	require.ErrorAs(t, err, &ierr)
	require.Equal(t, "Insufficient credits. You have 10 credits, but need 50 credits.", err.Error())
	require.Len(t, pub.events, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRentalRejectsLongWindowBeforeTouchingStore(t *testing.T) {
	db, mock := newMock(t)
	s := newRentalService(db, nil)

	_, err := s.Create(context.Background(), CreateRentalInput{
		UserID: "u1", UmbrellaID: "b1", Start: ptr(t0), End: ptr(t0.Add(72 * time.Hour)),
	})
	var werr *WindowError
	require.ErrorAs(t, err, &werr)
	require.Equal(t, "Cannot rent for more than 2 days.", werr.Error())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRentalLostRaceRollsBack(t *testing.T) {
	db, mock := newMock(t)
	pub := &recordingPublisher{}
	s := newRentalService(db, pub)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = ? FOR UPDATE")).
		WillReturnRows(userRows("u1", 100, "x"))
	mock.ExpectQuery(regexp.QuoteMeta("FROM umbrellas WHERE id = ? FOR UPDATE")).
		WillReturnRows(umbrellaRows("b1", "available", 1))
	mock.ExpectExec(regexp.QuoteMeta("inventory = inventory - 1")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := s.Create(context.Background(), CreateRentalInput{UserID: "u1", UmbrellaID: "b1"})
	require.ErrorIs(t, err, ErrUmbrellaNotAvailable)
	require.Empty(t, pub.events)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRentalUnavailableUmbrella(t *testing.T) {
	db, mock := newMock(t)
	s := newRentalService(db, nil)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = ? FOR UPDATE")).
		WillReturnRows(userRows("u1", 100, "x"))
	mock.ExpectQuery(regexp.QuoteMeta("FROM umbrellas WHERE id = ? FOR UPDATE")).
		WillReturnRows(umbrellaRows("b1", "rented", 0))
	mock.ExpectRollback()

	_, err := s.Create(context.Background(), CreateRentalInput{UserID: "u1", UmbrellaID: "b1"})
	require.ErrorIs(t, err, ErrUmbrellaNotAvailable)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRentalDebitFailureUndoesEverything(t *testing.T) {
	db, mock := newMock(t)
	s := newRentalService(db, nil)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = ? FOR UPDATE")).
		WillReturnRows(userRows("u1", 60, "x"))
	mock.ExpectQuery(regexp.QuoteMeta("FROM umbrellas WHERE id = ? FOR UPDATE")).
		WillReturnRows(umbrellaRows("b1", "available", 1))
	mock.ExpectExec(regexp.QuoteMeta("inventory = inventory - 1")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO rental_history")).
		WillReturnResult(sqlmock.NewResult(9, 1))
	mock.ExpectExec(regexp.QuoteMeta("credits = credits - ?")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT credits FROM users WHERE id = ?")).
		WillReturnRows(sqlmock.NewRows([]string{"credits"}).AddRow(20))
	mock.ExpectRollback()

	_, err := s.Create(context.Background(), CreateRentalInput{UserID: "u1", UmbrellaID: "b1"})
	var ierr *InsufficientCreditsError
	require.ErrorAs(t, err, &ierr)
	require.Equal(t, 20, ierr.Have)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRentalUnknownUser(t *testing.T) {
	db, mock := newMock(t)
	s := newRentalService(db, nil)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = ? FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows(userCols))
	mock.ExpectRollback()

	_, err := s.Create(context.Background(), CreateRentalInput{UserID: "ghost", UmbrellaID: "b1"})
	require.ErrorIs(t, err, repository.ErrUserNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRentalDriverErrorIsTransactionFailure(t *testing.T) {
	db, mock := newMock(t)
	s := newRentalService(db, nil)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = ? FOR UPDATE")).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, err := s.Create(context.Background(), CreateRentalInput{UserID: "u1", UmbrellaID: "b1"})
	require.ErrorIs(t, err, ErrTransactionFailed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReturnIsNotRepeatable(t *testing.T) {
	db, mock := newMock(t)
	pub := &recordingPublisher{}
	s := newRentalService(db, pub)
	ctx := context.Background()
	deadline := t0.Add(24 * time.Hour)
	at := t0.Add(2 * time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM rental_history r WHERE r.id = ? FOR UPDATE")).
		WillReturnRows(rentalRows(7, "u1", "active", deadline, nil))
	mock.ExpectExec(regexp.QuoteMeta("SET status = 'completed', returned_at = ? WHERE id = ? AND status = 'active'")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("inventory = inventory + 1")).
		WithArgs("b1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM rental_history r WHERE r.id = ?")).
		WillReturnRows(rentalRows(7, "u1", "completed", deadline, at))
	mock.ExpectCommit()

	rt, err := s.Return(ctx, ReturnRentalInput{RentalID: 7, ActorID: "u1", ReturnedAt: &at})
	require.NoError(t, err)
	require.Equal(t, model.RentalCompleted, rt.Status)
	require.NotNil(t, rt.ReturnedAt)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM rental_history r WHERE r.id = ? FOR UPDATE")).
		WillReturnRows(rentalRows(7, "u1", "completed", deadline, at))
	mock.ExpectRollback()

	_, err = s.Return(ctx, ReturnRentalInput{RentalID: 7, ActorID: "u1"})
	require.ErrorIs(t, err, ErrRentalNotActive)
	require.Equal(t, []string{queue.RentalReturned}, pub.types())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReturnByStrangerIsForbidden(t *testing.T) {
	db, mock := newMock(t)
	s := newRentalService(db, nil)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WillReturnRows(rentalRows(7, "u1", "active", t0.Add(time.Hour), nil))
	mock.ExpectRollback()

	_, err := s.Return(context.Background(), ReturnRentalInput{RentalID: 7, ActorID: "u2"})
	require.ErrorIs(t, err, repository.ErrForbidden)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReturnBeforeStartIsRejected(t *testing.T) {
	db, mock := newMock(t)
	s := newRentalService(db, nil)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WillReturnRows(rentalRows(7, "u1", "active", t0.Add(time.Hour), nil))
	mock.ExpectRollback()

	_, err := s.Return(context.Background(), ReturnRentalInput{
		RentalID: 7, ActorID: "admin", ActorIsAdmin: true, ReturnedAt: ptr(t0.Add(-time.Minute)),
	})
	var werr *WindowError
	require.ErrorAs(t, err, &werr)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExpireOverdueSkipsRentalsAlreadyCompleted(t *testing.T) {
	db, mock := newMock(t)
	pub := &recordingPublisher{}
	s := newRentalService(db, pub)
	now := t0.Add(48 * time.Hour)

	due := sqlmock.NewRows(rentalCols).
		AddRow(1, "u1", "Ram", "b1", t0, t0.Add(24*time.Hour), nil, "active", 50, t0, t0).
		AddRow(2, "u2", "Sita", "b2", t0, t0.Add(time.Hour), nil, "active", 50, t0, t0)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("r.status = 'active' AND r.deadline_at IS NOT NULL AND r.deadline_at < ? ORDER BY r.id FOR UPDATE")).
		WithArgs(now).WillReturnRows(due)
	mock.ExpectExec(regexp.QuoteMeta("SET status = 'completed'")).
		WithArgs(nil, 1).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("inventory = inventory + 1")).
		WithArgs("b1").WillReturnResult(sqlmock.NewResult(0, 1))
	// returned by its user between the select and the update
	mock.ExpectExec(regexp.QuoteMeta("SET status = 'completed'")).
		WithArgs(nil, 2).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	expired, err := s.ExpireOverdue(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	require.Equal(t, uint64(1), expired[0].ID)
	require.Equal(t, model.RentalCompleted, expired[0].Status)
	require.Nil(t, expired[0].ReturnedAt)
	require.Equal(t, []string{queue.RentalExpired}, pub.types())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExpireOverdueNothingDue(t *testing.T) {
	db, mock := newMock(t)
	s := newRentalService(db, nil)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).WillReturnRows(sqlmock.NewRows(rentalCols))
	mock.ExpectCommit()

	expired, err := s.ExpireOverdue(context.Background(), t0)
	require.NoError(t, err)
	require.Empty(t, expired)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunSweeperStopsWithContext(t *testing.T) {
	db, mock := newMock(t)
	s := newRentalService(db, nil)
	mock.MatchExpectationsInOrder(false)
	for range 50 {
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).WillReturnRows(sqlmock.NewRows(rentalCols))
		mock.ExpectCommit()
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.RunSweeper(ctx, 5*time.Millisecond)
		close(done)
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}

	// a zero interval returns immediately
	s.RunSweeper(context.Background(), 0)
}
