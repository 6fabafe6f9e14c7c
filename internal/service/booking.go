// Package service implements the booking core: reservation and ticket
// lifecycles on top of the flight seat inventory.  Every operation that
// reads and then writes seat or reservation state runs under a per-flight
// lock and inside a single database transaction that is retried on
// transient store conflicts.
package service

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/iliyamo/flight-booking/internal/lock"
	"github.com/iliyamo/flight-booking/internal/model"
	"github.com/iliyamo/flight-booking/internal/queue"
	"github.com/iliyamo/flight-booking/internal/repository"
)

// Repos groups the repositories the booking core reads and writes.
type Repos struct {
	Users        *repository.UserRepo
	Flights      *repository.FlightRepo
	Reservations *repository.ReservationRepo
	Tickets      *repository.TicketRepo
}

// Options tunes a BookingService.  Zero values select sensible defaults:
// an in-process lock, no event publishing, three attempts with a 25ms
// linear backoff.
type Options struct {
	Locker       lock.Locker
	Publisher    queue.Publisher
	Logger       *zap.Logger
	MaxAttempts  int
	RetryBackoff time.Duration
	Clock        func() time.Time
}

// BookingService owns the seat allocation protocol.  It is safe for
// concurrent use.
type BookingService struct {
	db           *sqlx.DB
	users        *repository.UserRepo
	flights      *repository.FlightRepo
	reservations *repository.ReservationRepo
	tickets      *repository.TicketRepo

	locker      lock.Locker
	publisher   queue.Publisher
	log         *zap.Logger
	maxAttempts int
	backoff     time.Duration
	now         func() time.Time
	reference   func() string
}

// NewBookingService constructs a BookingService.  All repositories must be
// non-nil.
func NewBookingService(db *sqlx.DB, repos Repos, opts Options) *BookingService {
	if db == nil || repos.Users == nil || repos.Flights == nil || repos.Reservations == nil || repos.Tickets == nil {
		panic("nil dependency passed to NewBookingService")
	}
	s := &BookingService{
		db:           db,
		users:        repos.Users,
		flights:      repos.Flights,
		reservations: repos.Reservations,
		tickets:      repos.Tickets,
		locker:       opts.Locker,
		publisher:    opts.Publisher,
		log:          opts.Logger,
		maxAttempts:  opts.MaxAttempts,
		backoff:      opts.RetryBackoff,
		now:          opts.Clock,
		reference:    newReference,
	}
	if s.locker == nil {
		s.locker = lock.NewKeyedMutex()
	}
	if s.publisher == nil {
		s.publisher = queue.NopPublisher{}
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.maxAttempts < 1 {
		s.maxAttempts = 3
	}
	if s.backoff <= 0 {
		s.backoff = 25 * time.Millisecond
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// CreateReservation books flightID for userID.  It fails with
// ErrInvalidUser or ErrInvalidFlight when either side is missing and with
// ErrAlreadyBooked when the user already holds a reservation on the flight.
func (s *BookingService) CreateReservation(ctx context.Context, userID, flightID int64) (*model.Reservation, error) {
	res, _, err := s.book(ctx, userID, flightID, nil)
	return res, err
}

// CreateReservationWithTickets books the flight and issues one ticket per
// passenger in the same transaction.  If the flight cannot seat every
// passenger nothing is stored and ErrNoMoreSeats is returned.
func (s *BookingService) CreateReservationWithTickets(ctx context.Context, userID, flightID int64, passengers []model.Passenger) (*model.Reservation, []model.Ticket, error) {
	return s.book(ctx, userID, flightID, passengers)
}

func (s *BookingService) book(ctx context.Context, userID, flightID int64, passengers []model.Passenger) (*model.Reservation, []model.Ticket, error) {
	res, issued, err := s.bookLocked(ctx, userID, flightID, passengers)
	if err != nil {
		return nil, nil, err
	}

	ev := queue.BookingEvent{
		Type:          queue.EventReservationCreated,
		ReservationID: res.ID,
		Reference:     res.Reference,
		UserID:        res.UserID,
		FlightID:      res.FlightID,
	}
	for _, t := range issued {
		ev.TicketIDs = append(ev.TicketIDs, t.ID)
		ev.Seats = append(ev.Seats, t.Seat)
	}
	s.publish(ctx, ev)
	return res, issued, nil
}

// bookLocked is the part of book that runs under the flight lock.  The
// lock is released before the event is published.
func (s *BookingService) bookLocked(ctx context.Context, userID, flightID int64, passengers []model.Passenger) (*model.Reservation, []model.Ticket, error) {
	release, err := s.lockFlights(ctx, flightID)
	if err != nil {
		return nil, nil, err
	}
	defer release()

	var (
		res    *model.Reservation
		issued []model.Ticket
	)
	err = s.inTx(ctx, func(tx *sqlx.Tx) error {
		res, issued = nil, make([]model.Ticket, 0, len(passengers))

		// Lock the flight row before any plain read so the pair check below
		// sees every booking committed ahead of us.
		if err := s.checkPartiesTx(ctx, tx, userID, flightID); err != nil {
			return err
		}
		taken, err := s.reservations.ExistsForPairTx(ctx, tx, userID, flightID)
		if err != nil {
			return err
		}
		if taken {
			return repository.ErrAlreadyBooked
		}

		r := &model.Reservation{
			Reference:  s.reference(),
			ReservedOn: s.now().UTC().Format(model.DateLayout),
			UserID:     userID,
			FlightID:   flightID,
		}
		if err := s.reservations.CreateTx(ctx, tx, r); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				taken, terr := s.reservations.ExistsForPairTx(ctx, tx, userID, flightID)
				if terr != nil {
					return terr
				}
				if taken {
					return repository.ErrAlreadyBooked
				}
			}
			return err
		}
		for _, p := range passengers {
			t, err := s.issueTx(ctx, tx, r, p)
			if err != nil {
				return err
			}
			issued = append(issued, *t)
		}
		res = r
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return res, issued, nil
}

// checkPartiesTx row-locks the flight and verifies both sides of a
// booking exist.  A missing user is reported ahead of a missing flight.
func (s *BookingService) checkPartiesTx(ctx context.Context, tx *sqlx.Tx, userID, flightID int64) error {
	_, ferr := s.flights.LockInventoryTx(ctx, tx, flightID)
	if ferr != nil && !errors.Is(ferr, repository.ErrNotFound) {
		return ferr
	}
	ok, err := s.users.ExistsTx(ctx, tx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return repository.ErrInvalidUser
	}
	if ferr != nil {
		return repository.ErrInvalidFlight
	}
	return nil
}

// ReservationChange holds the new values for ModifyReservation.  An empty
// Reference keeps the current one.
type ReservationChange struct {
	Reference string
	UserID    int64
	FlightID  int64
}

// ModifyReservation rewrites the reference, owner and flight of a
// reservation.  It returns ErrNotFound for an unknown reservation,
// ErrInvalidUser or ErrInvalidFlight for missing targets, ErrAlreadyBooked
// when another reservation holds the new user/flight pair,
// ErrReferenceExists for a reference in use, and ErrReservationHasTickets
// when moving a reservation whose tickets occupy seats on its flight.
func (s *BookingService) ModifyReservation(ctx context.Context, id int64, change ReservationChange) (*model.Reservation, error) {
	cur, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	res, err := s.modifyLocked(ctx, cur.ID, cur.FlightID, change)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, queue.BookingEvent{
		Type:          queue.EventReservationModified,
		ReservationID: res.ID,
		Reference:     res.Reference,
		UserID:        res.UserID,
		FlightID:      res.FlightID,
	})
	return res, nil
}

func (s *BookingService) modifyLocked(ctx context.Context, id, fromFlight int64, change ReservationChange) (*model.Reservation, error) {
	release, err := s.lockFlights(ctx, fromFlight, change.FlightID)
	if err != nil {
		return nil, err
	}
	defer release()

	var out *model.Reservation
	err = s.inTx(ctx, func(tx *sqlx.Tx) error {
		r, err := s.reservations.GetTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if r.FlightID != fromFlight {
			// moved by a concurrent change while we waited for the locks
			return repository.ErrConflict
		}
		if err := s.checkPartiesTx(ctx, tx, change.UserID, change.FlightID); err != nil {
			return err
		}
		if change.FlightID != r.FlightID {
			n, err := s.tickets.CountByReservationTx(ctx, tx, r.ID)
			if err != nil {
				return err
			}
			if n > 0 {
				return repository.ErrReservationHasTickets
			}
		}
		taken, err := s.reservations.PairTakenByOtherTx(ctx, tx, change.UserID, change.FlightID, r.ID)
		if err != nil {
			return err
		}
		if taken {
			return repository.ErrAlreadyBooked
		}

		next := *r
		next.UserID, next.FlightID = change.UserID, change.FlightID
		if change.Reference != "" {
			next.Reference = change.Reference
		}
		if err := s.reservations.UpdateTx(ctx, tx, &next); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return repository.ErrReferenceExists
			}
			return err
		}
		out = &next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CreateTicket issues one seat under an existing reservation.  The seat
// label is the 1-based occupancy position total-left+1, and seats_left is
// decremented in the same transaction.  A full flight yields
// ErrNoMoreSeats and leaves no ticket behind.
func (s *BookingService) CreateTicket(ctx context.Context, reservationID int64, p model.Passenger) (*model.Ticket, error) {
	res, err := s.reservations.GetByID(ctx, reservationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, repository.ErrInvalidReservation
		}
		return nil, err
	}

	ticket, err := s.issueLocked(ctx, reservationID, res.FlightID, p)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, queue.BookingEvent{
		Type:          queue.EventTicketIssued,
		ReservationID: ticket.ReservationID,
		FlightID:      ticket.FlightID,
		TicketIDs:     []int64{ticket.ID},
		Seats:         []string{ticket.Seat},
	})
	return ticket, nil
}

func (s *BookingService) issueLocked(ctx context.Context, reservationID, flightID int64, p model.Passenger) (*model.Ticket, error) {
	release, err := s.lockFlights(ctx, flightID)
	if err != nil {
		return nil, err
	}
	defer release()

	var ticket *model.Ticket
	err = s.inTx(ctx, func(tx *sqlx.Tx) error {
		// re-read: the reservation may have been cancelled while we waited
		r, err := s.reservations.GetTx(ctx, tx, reservationID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return repository.ErrInvalidReservation
			}
			return err
		}
		ticket, err = s.issueTx(ctx, tx, r, p)
		return err
	})
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

// issueTx runs the allocation steps for one passenger inside tx: read the
// inventory, refuse when empty, insert the ticket with the next seat label,
// then decrement the counter.
func (s *BookingService) issueTx(ctx context.Context, tx *sqlx.Tx, res *model.Reservation, p model.Passenger) (*model.Ticket, error) {
	inv, err := s.flights.LockInventoryTx(ctx, tx, res.FlightID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, repository.ErrInvalidFlight
		}
		return nil, err
	}
	if inv.SeatsLeft <= 0 {
		return nil, repository.ErrNoMoreSeats
	}
	t := &model.Ticket{
		Passenger:     p,
		Seat:          strconv.Itoa(inv.NextSeat()),
		ReservationID: res.ID,
		FlightID:      res.FlightID,
	}
	if err := s.tickets.CreateTx(ctx, tx, t); err != nil {
		return nil, err
	}
	if _, err := s.flights.DecrementSeatsTx(ctx, tx, res.FlightID, 1); err != nil {
		return nil, err
	}
	return t, nil
}

// DeleteReservation removes a reservation and its tickets.  Seats consumed
// by those tickets are not returned to the flight.  It reports whether a
// reservation was removed.
func (s *BookingService) DeleteReservation(ctx context.Context, id int64) (bool, error) {
	res, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	ok, err := s.reservations.Delete(ctx, id)
	if err != nil || !ok {
		return ok, err
	}
	s.publish(ctx, queue.BookingEvent{
		Type:          queue.EventReservationCancelled,
		ReservationID: res.ID,
		Reference:     res.Reference,
		UserID:        res.UserID,
		FlightID:      res.FlightID,
	})
	return true, nil
}

// DeleteTicket removes one ticket without restoring the seat.
func (s *BookingService) DeleteTicket(ctx context.Context, id int64) (bool, error) {
	return s.tickets.Delete(ctx, id)
}

// ModifyTicket replaces the passenger details of a ticket and returns the
// updated record.  Seat allocation is not touched.
func (s *BookingService) ModifyTicket(ctx context.Context, id int64, p model.Passenger) (*model.Ticket, error) {
	if err := s.tickets.UpdatePassenger(ctx, id, p); err != nil {
		return nil, err
	}
	return s.tickets.GetByID(ctx, id)
}

// GetReservation returns a reservation or ErrNotFound.
func (s *BookingService) GetReservation(ctx context.Context, id int64) (*model.Reservation, error) {
	return s.reservations.GetByID(ctx, id)
}

// ListReservations returns every reservation.
func (s *BookingService) ListReservations(ctx context.Context) ([]model.Reservation, error) {
	return s.reservations.List(ctx)
}

// ListReservationsByUser returns a user's reservations, empty when none.
func (s *BookingService) ListReservationsByUser(ctx context.Context, userID int64) ([]model.Reservation, error) {
	return s.reservations.ListByUser(ctx, userID)
}

// ListReservationsByFlight returns the reservations on a flight, empty when none.
func (s *BookingService) ListReservationsByFlight(ctx context.Context, flightID int64) ([]model.Reservation, error) {
	return s.reservations.ListByFlight(ctx, flightID)
}

// GetTicket returns a ticket or ErrNotFound.
func (s *BookingService) GetTicket(ctx context.Context, id int64) (*model.Ticket, error) {
	return s.tickets.GetByID(ctx, id)
}

// ListTickets returns every ticket.
func (s *BookingService) ListTickets(ctx context.Context) ([]model.Ticket, error) {
	return s.tickets.List(ctx)
}

// ListTicketsByReservation returns the tickets of a reservation, empty
// when none or when the reservation does not exist.
func (s *BookingService) ListTicketsByReservation(ctx context.Context, reservationID int64) ([]model.Ticket, error) {
	return s.tickets.ListByReservation(ctx, reservationID)
}

// RemainingSeats reports the seat inventory of a flight or ErrNotFound.
func (s *BookingService) RemainingSeats(ctx context.Context, flightID int64) (model.SeatInventory, error) {
	return s.flights.RemainingSeats(ctx, flightID)
}

// inTx runs fn in a transaction, retrying the whole transaction when the
// store reports a deadlock, lock timeout or busy database.
func (s *BookingService) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	var err error
	for attempt := 1; ; attempt++ {
		err = repository.WithTx(ctx, s.db, fn)
		if err == nil || !repository.IsTransient(err) || attempt >= s.maxAttempts {
			return err
		}
		s.log.Debug("retrying booking transaction", zap.Int("attempt", attempt), zap.Error(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * s.backoff):
		}
	}
}

// publish delivers ev on a context detached from the request so a client
// disconnect right after commit does not drop the event.  Failures are
// logged only: the booking is already committed.
func (s *BookingService) publish(ctx context.Context, ev queue.BookingEvent) {
	ev.OccurredAt = s.now().UTC().Format(time.RFC3339)
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := s.publisher.Publish(pctx, ev); err != nil {
		s.log.Warn("publish booking event", zap.String("type", ev.Type), zap.Int64("reservation_id", ev.ReservationID), zap.Error(err))
	}
}

// lockFlights takes the per-flight locks for ids in ascending order so two
// callers locking overlapping sets cannot deadlock.  The returned func
// releases them all.
func (s *BookingService) lockFlights(ctx context.Context, ids ...int64) (func(), error) {
	ids = slices.Clone(ids)
	slices.Sort(ids)
	ids = slices.Compact(ids)

	releases := make([]func(), 0, len(ids))
	unlock := func() {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
	}
	for _, id := range ids {
		release, err := s.locker.Lock(ctx, flightKey(id))
		if err != nil {
			unlock()
			return nil, fmt.Errorf("lock flight %d: %w", id, err)
		}
		releases = append(releases, release)
	}
	return unlock, nil
}

func flightKey(id int64) string { return "flight:" + strconv.FormatInt(id, 10) }

// newReference returns 10 upper-case hex characters taken from the random
// bytes of a v4 UUID.
func newReference() string {
	id := uuid.New()
	return strings.ToUpper(hex.EncodeToString(id[:5]))
}
