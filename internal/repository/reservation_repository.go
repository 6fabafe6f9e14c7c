package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/flight-booking/internal/model"
)

const reservationColumns = `id, reference, reserved_on, user_id, flight_id`

// ReservationRepo provides CRUD operations for reservations.  A
// reservation binds one user to one flight; the (user_id, flight_id) pair
// and the reference are both unique.  Deleting a reservation removes its
// tickets but leaves the flight's seat counter untouched.
type ReservationRepo struct {
	db *sqlx.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sqlx.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// CreateTx inserts a new reservation within the scope of an existing
// transaction and populates the generated ID.  A unique violation (pair or
// reference) is reported as ErrConflict; the caller decides which one it
// was.  The caller must commit or roll back the transaction.
func (r *ReservationRepo) CreateTx(ctx context.Context, tx *sqlx.Tx, res *model.Reservation) error {
	const q = `INSERT INTO reservations (reference, reserved_on, user_id, flight_id) VALUES (?, ?, ?, ?)`
	result, err := tx.ExecContext(ctx, q, res.Reference, res.ReservedOn, res.UserID, res.FlightID)
	if err != nil {
		switch classify(err) {
		case kindDuplicate:
			return ErrConflict
		case kindForeignKey:
			return ErrConstraintViolation
		}
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	res.ID = id
	return nil
}

// GetByID retrieves a reservation.  It returns ErrNotFound when absent.
func (r *ReservationRepo) GetByID(ctx context.Context, id int64) (*model.Reservation, error) {
	return getReservation(ctx, r.db, id)
}

// GetTx retrieves a reservation as seen by tx.
func (r *ReservationRepo) GetTx(ctx context.Context, tx *sqlx.Tx, id int64) (*model.Reservation, error) {
	return getReservation(ctx, tx, id)
}

func getReservation(ctx context.Context, q sqlx.QueryerContext, id int64) (*model.Reservation, error) {
	var res model.Reservation
	err := sqlx.GetContext(ctx, q, &res, `SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &res, nil
}

// ExistsForPairTx reports whether the user already holds a reservation on
// the flight.
func (r *ReservationRepo) ExistsForPairTx(ctx context.Context, tx *sqlx.Tx, userID, flightID int64) (bool, error) {
	return exists(ctx, tx, `SELECT 1 FROM reservations WHERE user_id = ? AND flight_id = ?`, userID, flightID)
}

// PairTakenByOtherTx reports whether a reservation other than exceptID
// already binds the user to the flight.
func (r *ReservationRepo) PairTakenByOtherTx(ctx context.Context, tx *sqlx.Tx, userID, flightID, exceptID int64) (bool, error) {
	return exists(ctx, tx, `SELECT 1 FROM reservations WHERE user_id = ? AND flight_id = ? AND id <> ?`, userID, flightID, exceptID)
}

// UpdateTx rewrites the reference, owner and flight of a reservation.
// ReservedOn is kept.  A unique violation yields ErrConflict, a dangling
// user or flight ErrConstraintViolation, and a missing row ErrNotFound.
func (r *ReservationRepo) UpdateTx(ctx context.Context, tx *sqlx.Tx, res *model.Reservation) error {
	result, err := tx.ExecContext(ctx,
		`UPDATE reservations SET reference = ?, user_id = ?, flight_id = ? WHERE id = ?`,
		res.Reference, res.UserID, res.FlightID, res.ID)
	if err != nil {
		switch classify(err) {
		case kindDuplicate:
			return ErrConflict
		case kindForeignKey:
			return ErrConstraintViolation
		}
		return err
	}
	return requireAffected(result)
}

// List returns every reservation ordered by id.
func (r *ReservationRepo) List(ctx context.Context) ([]model.Reservation, error) {
	return r.list(ctx, `SELECT `+reservationColumns+` FROM reservations ORDER BY id`)
}

// ListByUser returns the reservations owned by a user (empty when none,
// including for an unknown user).
func (r *ReservationRepo) ListByUser(ctx context.Context, userID int64) ([]model.Reservation, error) {
	return r.list(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE user_id = ? ORDER BY id`, userID)
}

// ListByFlight returns the reservations made on a flight.
func (r *ReservationRepo) ListByFlight(ctx context.Context, flightID int64) ([]model.Reservation, error) {
	return r.list(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE flight_id = ? ORDER BY id`, flightID)
}

func (r *ReservationRepo) list(ctx context.Context, query string, args ...any) ([]model.Reservation, error) {
	out := make([]model.Reservation, 0)
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, err
	}
	return out, nil
}

// Count returns the number of reservation rows.
func (r *ReservationRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM reservations`)
	return n, err
}

// Delete removes a reservation and, by cascade, its tickets.  It reports
// whether a row was removed.
func (r *ReservationRepo) Delete(ctx context.Context, id int64) (bool, error) {
	return deleteByID(ctx, r.db, `DELETE FROM reservations WHERE id = ?`, id)
}
