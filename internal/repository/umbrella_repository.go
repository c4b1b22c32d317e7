package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/iliyamo/umbrella-rental/internal/model"
)

const umbrellaColumns = "id, description, location, status, inventory, created_at, updated_at"

// UmbrellaRepo reads and writes the umbrellas table. Each row is one
// station unit type; Inventory counts the units currently on the shelf.
type UmbrellaRepo struct{ DB *sql.DB }

func NewUmbrellaRepo(db *sql.DB) *UmbrellaRepo { return &UmbrellaRepo{DB: db} }

func scanUmbrella(s rowScanner) (model.Umbrella, error) {
	var u model.Umbrella
	err := s.Scan(&u.ID, &u.Description, &u.Location, &u.Status, &u.Inventory, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// UmbrellaFilter narrows List. Zero values are ignored.
type UmbrellaFilter struct {
	Status   model.UmbrellaStatus
	Location string // substring match
	Search   string // substring match on description or location
}

// List returns umbrellas matching f, newest first.
func (r *UmbrellaRepo) List(ctx context.Context, f UmbrellaFilter) ([]model.Umbrella, error) {
	q := "SELECT " + umbrellaColumns + " FROM umbrellas"
	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}
	if f.Location != "" {
		where = append(where, "location LIKE ?")
		args = append(args, "%"+f.Location+"%")
	}
	if f.Search != "" {
		where = append(where, "(description LIKE ? OR location LIKE ?)")
		args = append(args, "%"+f.Search+"%", "%"+f.Search+"%")
	}
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY created_at DESC"
	return r.list(ctx, q, args...)
}

// Recent returns the n newest umbrellas.
func (r *UmbrellaRepo) Recent(ctx context.Context, n int) ([]model.Umbrella, error) {
	return r.list(ctx, "SELECT "+umbrellaColumns+" FROM umbrellas ORDER BY created_at DESC LIMIT ?", n)
}

func (r *UmbrellaRepo) list(ctx context.Context, q string, args ...any) ([]model.Umbrella, error) {
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Umbrella{}
	for rows.Next() {
		u, err := scanUmbrella(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// GetByID fetches one umbrella.
func (r *UmbrellaRepo) GetByID(ctx context.Context, id string) (model.Umbrella, error) {
	u, err := scanUmbrella(r.DB.QueryRowContext(ctx, "SELECT "+umbrellaColumns+" FROM umbrellas WHERE id = ?", id))
	return u, mapErr(err, ErrUmbrellaNotFound)
}

// GetForUpdateTx locks the umbrella row for the rest of tx.
func (r *UmbrellaRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id string) (model.Umbrella, error) {
	u, err := scanUmbrella(tx.QueryRowContext(ctx, "SELECT "+umbrellaColumns+" FROM umbrellas WHERE id = ? FOR UPDATE", id))
	return u, mapErr(err, ErrUmbrellaNotFound)
}

// MySQL evaluates SET assignments left to right, so each status CASE
// below reads inventory as it stands at that point in the statement.
const (
	// status first: it must see the inventory before the decrement.
	takeUmbrellaSQL = `UPDATE umbrellas
		SET status = CASE WHEN inventory > 1 THEN 'available' ELSE 'rented' END,
		    inventory = inventory - 1
		WHERE id = ? AND status = 'available' AND inventory > 0`

	// status last: it must see the inventory after the increment.
	restockUmbrellaSQL = `UPDATE umbrellas
		SET inventory = inventory + 1,
		    status = CASE WHEN inventory > 0 THEN 'available' ELSE 'out_of_stock' END
		WHERE id = ?`

	// statusFromInventory follows an inventory assignment. Stock on the
	// shelf always means available; an empty shelf keeps rented, and an
	// available row with nothing left becomes out_of_stock.
	statusFromInventory = "status = CASE WHEN inventory > 0 THEN 'available' " +
		"WHEN status = 'available' THEN 'out_of_stock' ELSE status END"
)

// TakeTx takes one unit off the shelf if the umbrella is still available.
// The status flips to rented when the last unit leaves. It reports false
// when the guard did not match, i.e. someone else got there first.
func (r *UmbrellaRepo) TakeTx(ctx context.Context, tx *sql.Tx, id string) (bool, error) {
	res, err := tx.ExecContext(ctx, takeUmbrellaSQL, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// RestockTx puts one unit back and recomputes the status from inventory.
func (r *UmbrellaRepo) RestockTx(ctx context.Context, tx *sql.Tx, id string) error {
	_, err := tx.ExecContext(ctx, restockUmbrellaSQL, id)
	return err
}

// CreateOrRestockTx adds qty units at the (description, location) station.
// An existing station gets its inventory raised; otherwise a new row is
// inserted with the given status. created is true for a new row.
func (r *UmbrellaRepo) CreateOrRestockTx(ctx context.Context, tx *sql.Tx, description, location string, status model.UmbrellaStatus, qty int) (u model.Umbrella, created bool, err error) {
	existing, err := scanUmbrella(tx.QueryRowContext(ctx,
		"SELECT "+umbrellaColumns+" FROM umbrellas WHERE description = ? AND location = ? FOR UPDATE",
		description, location))
	switch {
	case err == nil:
		if _, err = tx.ExecContext(ctx,
			"UPDATE umbrellas SET inventory = inventory + ?, "+statusFromInventory+" WHERE id = ?",
			qty, existing.ID); err != nil {
			return model.Umbrella{}, false, err
		}
		u, err = scanUmbrella(tx.QueryRowContext(ctx, "SELECT "+umbrellaColumns+" FROM umbrellas WHERE id = ?", existing.ID))
		return u, false, err
	case !errors.Is(err, sql.ErrNoRows):
		return model.Umbrella{}, false, err
	}

	id := uuid.NewString()
	if _, err = tx.ExecContext(ctx,
		"INSERT INTO umbrellas (id, description, location, status, inventory) VALUES (?,?,?,?,?)",
		id, description, location, status, qty); err != nil {
		return model.Umbrella{}, false, mapErr(err, ErrUmbrellaNotFound)
	}
	u, err = scanUmbrella(tx.QueryRowContext(ctx, "SELECT "+umbrellaColumns+" FROM umbrellas WHERE id = ?", id))
	return u, true, err
}

// UmbrellaUpdate carries optional fields for Update.
type UmbrellaUpdate struct {
	Description *string
	Location    *string
	Status      *model.UmbrellaStatus
	Inventory   *int
}

// Update applies the set fields of p and returns the fresh row.
func (r *UmbrellaRepo) Update(ctx context.Context, id string, p UmbrellaUpdate) (model.Umbrella, error) {
	var (
		sets []string
		args []any
	)
	if p.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *p.Description)
	}
	if p.Location != nil {
		sets = append(sets, "location = ?")
		args = append(args, *p.Location)
	}
	if p.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, *p.Status)
	}
	if p.Inventory != nil {
		sets = append(sets, "inventory = ?")
		args = append(args, *p.Inventory)
		if p.Status == nil {
			sets = append(sets, statusFromInventory)
		}
	}
	if len(sets) > 0 {
		args = append(args, id)
		res, err := r.DB.ExecContext(ctx, "UPDATE umbrellas SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
		if err != nil {
			return model.Umbrella{}, mapErr(err, ErrUmbrellaNotFound)
		}
		if err := requireRow(res, ErrUmbrellaNotFound); err != nil {
			return model.Umbrella{}, err
		}
	}
	return r.GetByID(ctx, id)
}

// DeleteTx removes an umbrella unless it is out on an active rental.
func (r *UmbrellaRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id string) error {
	if _, err := r.GetForUpdateTx(ctx, tx, id); err != nil {
		return err
	}
	var active int
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM rental_history WHERE umbrella_id = ? AND status = 'active'", id).Scan(&active); err != nil {
		return err
	}
	if active > 0 {
		return ErrConflict
	}
	_, err := tx.ExecContext(ctx, "DELETE FROM umbrellas WHERE id = ?", id)
	return err
}
