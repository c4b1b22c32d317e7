package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/umbrella-rental/internal/queue"
	"github.com/iliyamo/umbrella-rental/internal/repository"
)

var (
	userCols     = []string{"id", "username", "email", "mobile", "password_hash", "name", "profile_image", "role", "credits", "total_rentals", "created_at", "updated_at"}
	umbrellaCols = []string{"id", "description", "location", "status", "inventory", "created_at", "updated_at"}
	rentalCols   = []string{"id", "user_id", "user_name", "umbrella_id", "rented_at", "deadline_at", "returned_at", "status", "credits_used", "created_at", "updated_at"}

	t0 = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func userRows(id string, credits int, hash string) *sqlmock.Rows {
	return sqlmock.NewRows(userCols).
		AddRow(id, "ram_"+id, id+"@example.com", "9812345678", hash, "Ram", nil, "user", credits, 0, t0, t0)
}

func umbrellaRows(id, status string, inventory int) *sqlmock.Rows {
	return sqlmock.NewRows(umbrellaCols).
		AddRow(id, "Blue umbrella", "Thamel", status, inventory, t0, t0)
}

func rentalRows(id uint64, userID, status string, deadline time.Time, returned any) *sqlmock.Rows {
	return sqlmock.NewRows(rentalCols).
		AddRow(id, userID, "Ram", "b1", t0, deadline, returned, status, 50, t0, t0)
}

// recordingPublisher keeps every event it is handed.
type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.RentalEvent
}

func (p *recordingPublisher) Publish(_ context.Context, ev queue.RentalEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

func newRentalService(db *sql.DB, pub EventPublisher) *RentalService {
	s := NewRentalService(db, NewLedger(db, repository.NewCreditRepo(db)), pub, DefaultRentalConfig())
	s.Now = func() time.Time { return t0 }
	return s
}
