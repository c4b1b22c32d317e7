package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/umbrella-rental/internal/model"
)

// StationRepo derives the station inventory view from umbrellas and
// active rentals. Nothing here is stored; every call recomputes.
type StationRepo struct{ DB *sql.DB }

func NewStationRepo(db *sql.DB) *StationRepo { return &StationRepo{DB: db} }

const stationQuery = `SELECT u.id, u.description, u.location, u.status, u.inventory, COUNT(r.id)
	FROM umbrellas u
	LEFT JOIN rental_history r ON r.umbrella_id = u.id AND r.status = 'active'`

func scanStation(s rowScanner) (model.Station, error) {
	var (
		st        model.Station
		inventory int
	)
	if err := s.Scan(&st.ID, &st.Name, &st.Location, &st.Status, &inventory, &st.Rented); err != nil {
		return st, err
	}
	st.Total = inventory + st.Rented
	st.Available = st.Total - st.Rented
	return st, nil
}

// List returns every station, optionally filtered by location substring.
func (r *StationRepo) List(ctx context.Context, location string) ([]model.Station, error) {
	q := stationQuery
	var args []any
	if location != "" {
		q += " WHERE u.location LIKE ?"
		args = append(args, "%"+location+"%")
	}
	q += " GROUP BY u.id, u.description, u.location, u.status, u.inventory ORDER BY u.location, u.description"
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Station{}
	for rows.Next() {
		st, err := scanStation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// Get returns one station.
func (r *StationRepo) Get(ctx context.Context, id string) (model.Station, error) {
	st, err := scanStation(r.DB.QueryRowContext(ctx,
		stationQuery+" WHERE u.id = ? GROUP BY u.id, u.description, u.location, u.status, u.inventory", id))
	return st, mapErr(err, ErrUmbrellaNotFound)
}

// ByLocation counts umbrella rows per location and status.
func (r *StationRepo) ByLocation(ctx context.Context) ([]model.LocationCount, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT location, status, COUNT(*) FROM umbrellas GROUP BY location, status ORDER BY location, status")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.LocationCount{}
	for rows.Next() {
		var lc model.LocationCount
		if err := rows.Scan(&lc.Location, &lc.Status, &lc.Count); err != nil {
			return nil, err
		}
		out = append(out, lc)
	}
	return out, rows.Err()
}
