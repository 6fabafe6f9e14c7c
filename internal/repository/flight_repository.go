package repository

// This file defines repository methods for flights and their seat
// inventory.  A Flight is one dated instance of a template flight; its
// seats_left column is the only counter contended by concurrent bookings,
// so the inventory methods here come in transaction-scoped variants.

import (
	"context"      // context for controlling query lifetime
	"database/sql" // sql provides ErrNoRows
	"errors"       // errors for sentinel comparisons

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/flight-booking/internal/model"
)

const flightColumns = `id, code, gate, price, dep_date, arr_date, total_seats, seats_left, template_id`

// FlightRepo manages persistence for flights.
type FlightRepo struct {
	db *sqlx.DB
}

// NewFlightRepo returns a new FlightRepo bound to the given database.
func NewFlightRepo(db *sqlx.DB) *FlightRepo {
	return &FlightRepo{db: db}
}

// Create inserts a new flight and sets its ID.  SeatsLeft must lie within
// 0..TotalSeats and the gate must have the GATEnn form; a duplicate code
// yields ErrFlightCodeExists and a missing template ErrInvalidTemplate.
func (r *FlightRepo) Create(ctx context.Context, f *model.Flight) error {
	if !model.ValidGate(f.Gate) {
		return ErrInvalidGate
	}
	if f.TotalSeats < 0 || f.SeatsLeft < 0 || f.SeatsLeft > f.TotalSeats {
		return ErrSeatsOutOfRange
	}
	const q = `INSERT INTO flights (code, gate, price, dep_date, arr_date, total_seats, seats_left, template_id)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, f.Code, f.Gate, f.Price, f.DepDate, f.ArrDate, f.TotalSeats, f.SeatsLeft, f.TemplateID)
	if err != nil {
		return flightWriteError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	f.ID = id
	return nil
}

// GetByID retrieves a flight by its primary key.
func (r *FlightRepo) GetByID(ctx context.Context, id int64) (*model.Flight, error) {
	return getFlight(ctx, r.db, `SELECT `+flightColumns+` FROM flights WHERE id = ?`, id)
}

// GetByCode retrieves a flight by its unique business code.
func (r *FlightRepo) GetByCode(ctx context.Context, code string) (*model.Flight, error) {
	return getFlight(ctx, r.db, `SELECT `+flightColumns+` FROM flights WHERE code = ?`, code)
}

// GetTx retrieves a flight as seen by tx.
func (r *FlightRepo) GetTx(ctx context.Context, tx *sqlx.Tx, id int64) (*model.Flight, error) {
	return getFlight(ctx, tx, `SELECT `+flightColumns+` FROM flights WHERE id = ?`, id)
}

func getFlight(ctx context.Context, q sqlx.QueryerContext, query string, arg any) (*model.Flight, error) {
	var f model.Flight
	if err := sqlx.GetContext(ctx, q, &f, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &f, nil
}

// List returns every flight ordered by departure date then id.
func (r *FlightRepo) List(ctx context.Context) ([]model.Flight, error) {
	out := make([]model.Flight, 0)
	if err := r.db.SelectContext(ctx, &out, `SELECT `+flightColumns+` FROM flights ORDER BY dep_date, id`); err != nil {
		return nil, err
	}
	return out, nil
}

// ListByTemplate returns the flights scheduled from one template.  The
// result is empty, not nil, when there are none.
func (r *FlightRepo) ListByTemplate(ctx context.Context, templateID int64) ([]model.Flight, error) {
	out := make([]model.Flight, 0)
	err := r.db.SelectContext(ctx, &out,
		`SELECT `+flightColumns+` FROM flights WHERE template_id = ? ORDER BY dep_date, id`, templateID)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Update changes schedule and pricing fields.  Capacity and the seat
// counter are never touched here: seats_left moves only through ticketing.
func (r *FlightRepo) Update(ctx context.Context, f *model.Flight) error {
	if !model.ValidGate(f.Gate) {
		return ErrInvalidGate
	}
	const q = `UPDATE flights SET code = ?, gate = ?, price = ?, dep_date = ?, arr_date = ?, template_id = ?
	           WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, f.Code, f.Gate, f.Price, f.DepDate, f.ArrDate, f.TemplateID, f.ID)
	if err != nil {
		return flightWriteError(err)
	}
	return requireAffected(res)
}

// Delete removes the flight; its reservations and tickets are removed by
// cascade.  It reports whether a row was removed.
func (r *FlightRepo) Delete(ctx context.Context, id int64) (bool, error) {
	return deleteByID(ctx, r.db, `DELETE FROM flights WHERE id = ?`, id)
}

// RemainingSeats reads the seat inventory of a flight.
func (r *FlightRepo) RemainingSeats(ctx context.Context, id int64) (model.SeatInventory, error) {
	return inventory(ctx, r.db, `SELECT id, total_seats, seats_left FROM flights WHERE id = ?`, id)
}

// LockInventoryTx reads the seat inventory inside tx, taking a row lock on
// stores that support one so the read-check-write sequence that follows
// cannot interleave with another booking on the same flight.
func (r *FlightRepo) LockInventoryTx(ctx context.Context, tx *sqlx.Tx, id int64) (model.SeatInventory, error) {
	return inventory(ctx, tx, `SELECT id, total_seats, seats_left FROM flights WHERE id = ?`+forUpdate(tx), id)
}

func inventory(ctx context.Context, q sqlx.QueryerContext, query string, id int64) (model.SeatInventory, error) {
	var inv model.SeatInventory
	if err := sqlx.GetContext(ctx, q, &inv, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.SeatInventory{}, ErrNotFound
		}
		return model.SeatInventory{}, err
	}
	return inv, nil
}

// DecrementSeatsTx lowers seats_left by n and returns the new value.  The
// guard in the WHERE clause keeps the counter from going negative: when
// fewer than n seats remain nothing is written and ErrNoMoreSeats is
// returned.
func (r *FlightRepo) DecrementSeatsTx(ctx context.Context, tx *sqlx.Tx, id int64, n int) (int, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE flights SET seats_left = seats_left - ? WHERE id = ? AND seats_left >= ?`, n, id, n)
	if err != nil {
		if classify(err) == kindCheck {
			return 0, ErrNoMoreSeats
		}
		return 0, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if affected == 0 {
		if _, err := r.GetTx(ctx, tx, id); err != nil {
			return 0, err
		}
		return 0, ErrNoMoreSeats
	}
	var left int
	if err := tx.GetContext(ctx, &left, `SELECT seats_left FROM flights WHERE id = ?`, id); err != nil {
		return 0, err
	}
	return left, nil
}

func flightWriteError(err error) error {
	switch classify(err) {
	case kindDuplicate:
		return ErrFlightCodeExists
	case kindForeignKey:
		return ErrInvalidTemplate
	case kindCheck:
		return ErrConstraintViolation
	}
	return err
}
