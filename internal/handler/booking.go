package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/flight-booking/internal/model"
	"github.com/iliyamo/flight-booking/internal/service"
)

// BookingHandler serves reservations and tickets through the booking core.
type BookingHandler struct {
	responder
	Booking *service.BookingService
}

// NewBookingHandler panics if booking is nil.
func NewBookingHandler(booking *service.BookingService, log *zap.Logger, timeout time.Duration) *BookingHandler {
	if booking == nil {
		panic("nil service passed to NewBookingHandler")
	}
	return &BookingHandler{responder: newResponder(log, timeout), Booking: booking}
}

type passengerRequest struct {
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"required,max=100"`
	Gender    string `json:"gender" validate:"omitempty,max=16"`
	Age       int    `json:"age" validate:"gte=0,lte=150"`
}

func (r passengerRequest) toModel() model.Passenger {
	return model.Passenger{
		FirstName: strings.TrimSpace(r.FirstName),
		LastName:  strings.TrimSpace(r.LastName),
		Gender:    strings.TrimSpace(r.Gender),
		Age:       r.Age,
	}
}

// reservationRequest optionally carries passengers; when present the
// reservation and all its tickets are created atomically.
type reservationRequest struct {
	UserID     int64              `json:"user_id" validate:"required,gt=0"`
	FlightID   int64              `json:"flight_id" validate:"required,gt=0"`
	Passengers []passengerRequest `json:"passengers" validate:"omitempty,max=50,dive"`
}

// CreateReservation handles POST /v1/reservations.
func (h *BookingHandler) CreateReservation(c echo.Context) error {
	var req reservationRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	if len(req.Passengers) == 0 {
		res, err := h.Booking.CreateReservation(ctx, req.UserID, req.FlightID)
		if err != nil {
			return h.fail(c, err)
		}
		return created(c, "/v1/reservations/"+itoa(res.ID), res)
	}

	passengers := make([]model.Passenger, 0, len(req.Passengers))
	for _, p := range req.Passengers {
		passengers = append(passengers, p.toModel())
	}
	res, tickets, err := h.Booking.CreateReservationWithTickets(ctx, req.UserID, req.FlightID, passengers)
	if err != nil {
		return h.fail(c, err)
	}
	c.Response().Header().Set(echo.HeaderLocation, "/v1/reservations/"+itoa(res.ID))
	return c.JSON(http.StatusCreated, echo.Map{"item": res, "tickets": tickets})
}

// ListReservations handles GET /v1/reservations with optional user_id or
// flight_id filters.
func (h *BookingHandler) ListReservations(c echo.Context) error {
	userID, ok := queryID(c, "user_id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user_id"})
	}
	flightID, ok := queryID(c, "flight_id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid flight_id"})
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	var (
		list []model.Reservation
		err  error
	)
	switch {
	case userID > 0:
		list, err = h.Booking.ListReservationsByUser(ctx, userID)
		if err == nil && flightID > 0 {
			list = filterByFlight(list, flightID)
		}
	case flightID > 0:
		list, err = h.Booking.ListReservationsByFlight(ctx, flightID)
	default:
		list, err = h.Booking.ListReservations(ctx)
	}
	if err != nil {
		return h.fail(c, err)
	}
	return items(c, list)
}

func filterByFlight(list []model.Reservation, flightID int64) []model.Reservation {
	out := list[:0]
	for _, r := range list {
		if r.FlightID == flightID {
			out = append(out, r)
		}
	}
	return out
}

// GetReservation handles GET /v1/reservations/:id.
func (h *BookingHandler) GetReservation(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return invalidID(c)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	res, err := h.Booking.GetReservation(ctx, id)
	if err != nil {
		return h.fail(c, err)
	}
	return item(c, res)
}

// reservationUpdateRequest replaces the owner and flight of a reservation;
// an omitted reference keeps the current one.
type reservationUpdateRequest struct {
	Reference string `json:"reference" validate:"omitempty,alphanum,max=32"`
	UserID    int64  `json:"user_id" validate:"required,gt=0"`
	FlightID  int64  `json:"flight_id" validate:"required,gt=0"`
}

// UpdateReservation handles PUT /v1/reservations/:id.
func (h *BookingHandler) UpdateReservation(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return invalidID(c)
	}
	var req reservationUpdateRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	res, err := h.Booking.ModifyReservation(ctx, id, service.ReservationChange{
		Reference: strings.ToUpper(req.Reference),
		UserID:    req.UserID,
		FlightID:  req.FlightID,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return item(c, res)
}

// DeleteReservation handles DELETE /v1/reservations/:id.  Tickets go with
// it; their seats stay consumed.
func (h *BookingHandler) DeleteReservation(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return invalidID(c)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	removed, err := h.Booking.DeleteReservation(ctx, id)
	if err != nil {
		return h.fail(c, err)
	}
	return deleted(c, removed)
}

// ReservationTickets handles GET /v1/reservations/:id/tickets.
func (h *BookingHandler) ReservationTickets(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return invalidID(c)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	list, err := h.Booking.ListTicketsByReservation(ctx, id)
	if err != nil {
		return h.fail(c, err)
	}
	return items(c, list)
}

// CreateTicket handles POST /v1/reservations/:id/tickets and allocates the
// next seat on the reservation's flight.
func (h *BookingHandler) CreateTicket(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return invalidID(c)
	}
	var req passengerRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	t, err := h.Booking.CreateTicket(ctx, id, req.toModel())
	if err != nil {
		return h.fail(c, err)
	}
	return created(c, "/v1/tickets/"+itoa(t.ID), t)
}

// ListTickets handles GET /v1/tickets.
func (h *BookingHandler) ListTickets(c echo.Context) error {
	ctx, cancel := h.ctx(c)
	defer cancel()
	list, err := h.Booking.ListTickets(ctx)
	if err != nil {
		return h.fail(c, err)
	}
	return items(c, list)
}

// GetTicket handles GET /v1/tickets/:id.
func (h *BookingHandler) GetTicket(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return invalidID(c)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	t, err := h.Booking.GetTicket(ctx, id)
	if err != nil {
		return h.fail(c, err)
	}
	return item(c, t)
}

// UpdateTicket handles PUT /v1/tickets/:id.  Only passenger details
// change; the seat stays where it was allocated.
func (h *BookingHandler) UpdateTicket(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return invalidID(c)
	}
	var req passengerRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	t, err := h.Booking.ModifyTicket(ctx, id, req.toModel())
	if err != nil {
		return h.fail(c, err)
	}
	return item(c, t)
}

// DeleteTicket handles DELETE /v1/tickets/:id.
func (h *BookingHandler) DeleteTicket(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return invalidID(c)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	removed, err := h.Booking.DeleteTicket(ctx, id)
	if err != nil {
		return h.fail(c, err)
	}
	return deleted(c, removed)
}
