package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/flight-booking/internal/model"
)

const ticketColumns = `id, first_name, last_name, gender, age, seat, reservation_id, flight_id`

// TicketRepo manages issued tickets.  Seat labels are assigned by the
// booking service; the repository only enforces that a label is not used
// twice on the same flight.
type TicketRepo struct {
	db *sqlx.DB
}

// NewTicketRepo constructs a TicketRepo.
func NewTicketRepo(db *sqlx.DB) *TicketRepo {
	return &TicketRepo{db: db}
}

// CreateTx inserts a ticket inside the caller's transaction and sets its
// ID.  A seat label already taken on the flight yields ErrConflict.
func (r *TicketRepo) CreateTx(ctx context.Context, tx *sqlx.Tx, t *model.Ticket) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO tickets (first_name, last_name, gender, age, seat, reservation_id, flight_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.FirstName, t.LastName, t.Gender, t.Age, t.Seat, t.ReservationID, t.FlightID)
	if err != nil {
		switch classify(err) {
		case kindDuplicate:
			return ErrConflict
		case kindForeignKey:
			return ErrInvalidReservation
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = id
	return nil
}

// GetByID fetches a ticket.
func (r *TicketRepo) GetByID(ctx context.Context, id int64) (*model.Ticket, error) {
	var t model.Ticket
	if err := r.db.GetContext(ctx, &t, `SELECT `+ticketColumns+` FROM tickets WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// List returns every ticket ordered by id.
func (r *TicketRepo) List(ctx context.Context) ([]model.Ticket, error) {
	out := make([]model.Ticket, 0)
	if err := r.db.SelectContext(ctx, &out, `SELECT `+ticketColumns+` FROM tickets ORDER BY id`); err != nil {
		return nil, err
	}
	return out, nil
}

// ListByReservation returns the tickets of one reservation in issue order.
// An unknown reservation simply has no tickets.
func (r *TicketRepo) ListByReservation(ctx context.Context, reservationID int64) ([]model.Ticket, error) {
	out := make([]model.Ticket, 0)
	err := r.db.SelectContext(ctx, &out,
		`SELECT `+ticketColumns+` FROM tickets WHERE reservation_id = ? ORDER BY id`, reservationID)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CountByReservationTx returns how many tickets the reservation holds.
func (r *TicketRepo) CountByReservationTx(ctx context.Context, tx *sqlx.Tx, reservationID int64) (int, error) {
	var n int
	err := tx.GetContext(ctx, &n, `SELECT COUNT(*) FROM tickets WHERE reservation_id = ?`, reservationID)
	return n, err
}

// UpdatePassenger rewrites the passenger fields of a ticket.  Seat and
// ownership are immutable.
func (r *TicketRepo) UpdatePassenger(ctx context.Context, id int64, p model.Passenger) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE tickets SET first_name = ?, last_name = ?, gender = ?, age = ? WHERE id = ?`,
		p.FirstName, p.LastName, p.Gender, p.Age, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// Delete removes a ticket.  The seat is not returned to the flight.
func (r *TicketRepo) Delete(ctx context.Context, id int64) (bool, error) {
	return deleteByID(ctx, r.db, `DELETE FROM tickets WHERE id = ?`, id)
}
