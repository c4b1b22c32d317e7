package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/umbrella-rental/internal/model"
)

// DashboardRepo runs the aggregate queries behind the admin overview.
type DashboardRepo struct{ DB *sql.DB }

func NewDashboardRepo(db *sql.DB) *DashboardRepo { return &DashboardRepo{DB: db} }

// Stats counts users, umbrellas and rentals by role and status.
func (r *DashboardRepo) Stats(ctx context.Context) (model.DashboardStats, error) {
	var s model.DashboardStats
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*),
		COALESCE(SUM(role = 'admin'), 0), COALESCE(SUM(role = 'user'), 0) FROM users`).
		Scan(&s.Users.Total, &s.Users.Admins, &s.Users.Regular)
	if err != nil {
		return s, err
	}
	err = r.DB.QueryRowContext(ctx, `SELECT COUNT(*),
		COALESCE(SUM(status = 'available'), 0), COALESCE(SUM(status = 'out_of_stock'), 0) FROM umbrellas`).
		Scan(&s.Umbrellas.Total, &s.Umbrellas.Available, &s.Umbrellas.OutOfStock)
	if err != nil {
		return s, err
	}
	err = r.DB.QueryRowContext(ctx, `SELECT COUNT(*),
		COALESCE(SUM(status = 'active'), 0), COALESCE(SUM(status = 'completed'), 0),
		COALESCE(SUM(status = 'cancelled'), 0) FROM rental_history`).
		Scan(&s.Rentals.Total, &s.Rentals.Active, &s.Rentals.Completed, &s.Rentals.Cancelled)
	return s, err
}
