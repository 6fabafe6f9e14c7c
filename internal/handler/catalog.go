package handler

import (
	"fmt"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/flight-booking/internal/model"
	"github.com/iliyamo/flight-booking/internal/repository"
	"github.com/iliyamo/flight-booking/internal/service"
)

// CatalogHandler serves template flights and dated flights.  Reads are
// public; writes are mounted behind the admin group.
type CatalogHandler struct {
	responder
	Templates *repository.TemplateFlightRepo
	Flights   *repository.FlightRepo
	Booking   *service.BookingService
}

// NewCatalogHandler panics if a dependency is nil.
func NewCatalogHandler(templates *repository.TemplateFlightRepo, flights *repository.FlightRepo, booking *service.BookingService, log *zap.Logger, timeout time.Duration) *CatalogHandler {
	if templates == nil || flights == nil || booking == nil {
		panic("nil dependency passed to NewCatalogHandler")
	}
	return &CatalogHandler{responder: newResponder(log, timeout), Templates: templates, Flights: flights, Booking: booking}
}

type templateRequest struct {
	Origin      string `json:"origin" validate:"required,max=100"`
	Destination string `json:"destination" validate:"required,max=100"`
	DepTime     string `json:"dep_time" validate:"required,clock"`
	ArrTime     string `json:"arr_time" validate:"required,clock"`
}

func (r templateRequest) toModel(t *model.TemplateFlight) {
	t.Origin = strings.TrimSpace(r.Origin)
	t.Destination = strings.TrimSpace(r.Destination)
	t.DepTime = r.DepTime
	t.ArrTime = r.ArrTime
}

// CreateTemplate handles POST /v1/template-flights.
func (h *CatalogHandler) CreateTemplate(c echo.Context) error {
	var req templateRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}
	t := &model.TemplateFlight{}
	req.toModel(t)

	ctx, cancel := h.ctx(c)
	defer cancel()
	if err := h.Templates.Create(ctx, t); err != nil {
		return h.fail(c, err)
	}
	return created(c, "/v1/template-flights/"+itoa(t.ID), t)
}

// ListTemplates handles GET /v1/template-flights.
func (h *CatalogHandler) ListTemplates(c echo.Context) error {
	ctx, cancel := h.ctx(c)
	defer cancel()
	list, err := h.Templates.List(ctx)
	if err != nil {
		return h.fail(c, err)
	}
	return items(c, list)
}

// GetTemplate handles GET /v1/template-flights/:id.
func (h *CatalogHandler) GetTemplate(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return invalidID(c)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	t, err := h.Templates.GetByID(ctx, id)
	if err != nil {
		return h.fail(c, err)
	}
	return item(c, t)
}

// UpdateTemplate handles PUT /v1/template-flights/:id.
func (h *CatalogHandler) UpdateTemplate(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return invalidID(c)
	}
	var req templateRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}
	t := &model.TemplateFlight{ID: id}
	req.toModel(t)

	ctx, cancel := h.ctx(c)
	defer cancel()
	if err := h.Templates.Update(ctx, t); err != nil {
		return h.fail(c, err)
	}
	return item(c, t)
}

// DeleteTemplate handles DELETE /v1/template-flights/:id.  Its flights,
// and transitively their reservations and tickets, are removed too.
func (h *CatalogHandler) DeleteTemplate(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return invalidID(c)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	removed, err := h.Templates.Delete(ctx, id)
	if err != nil {
		return h.fail(c, err)
	}
	return deleted(c, removed)
}

// TemplateFlights handles GET /v1/template-flights/:id/flights.
func (h *CatalogHandler) TemplateFlights(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return invalidID(c)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	list, err := h.Flights.ListByTemplate(ctx, id)
	if err != nil {
		return h.fail(c, err)
	}
	return items(c, list)
}

type flightRequest struct {
	Code       string `json:"code" validate:"required,max=16"`
	Gate       string `json:"gate" validate:"required,gate"`
	Price      int64  `json:"price" validate:"gte=0"`
	DepDate    string `json:"dep_date" validate:"required,isodate"`
	ArrDate    string `json:"arr_date" validate:"required,isodate"`
	TemplateID int64  `json:"template_id" validate:"required,gt=0"`
}

func (r flightRequest) toModel(f *model.Flight) error {
	dep, err := model.NormalizeDate(r.DepDate)
	if err != nil {
		return fmt.Errorf("dep_date: %w", err)
	}
	arr, err := model.NormalizeDate(r.ArrDate)
	if err != nil {
		return fmt.Errorf("arr_date: %w", err)
	}
	f.Code = strings.TrimSpace(r.Code)
	f.Gate = r.Gate
	f.Price = r.Price
	f.DepDate, f.ArrDate = dep, arr
	f.TemplateID = r.TemplateID
	return nil
}

// createFlightRequest adds the inventory fields, which are fixed at
// creation.  SeatsLeft defaults to TotalSeats.
type createFlightRequest struct {
	flightRequest
	TotalSeats int  `json:"total_seats" validate:"gte=0"`
	SeatsLeft  *int `json:"seats_left" validate:"omitempty,gte=0"`
}

// CreateFlight handles POST /v1/flights.
func (h *CatalogHandler) CreateFlight(c echo.Context) error {
	var req createFlightRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}
	f := &model.Flight{TotalSeats: req.TotalSeats, SeatsLeft: req.TotalSeats}
	if err := req.toModel(f); err != nil {
		return badRequest(c, err.Error())
	}
	if req.SeatsLeft != nil {
		f.SeatsLeft = *req.SeatsLeft
	}

	ctx, cancel := h.ctx(c)
	defer cancel()
	if err := h.Flights.Create(ctx, f); err != nil {
		return h.fail(c, err)
	}
	return created(c, "/v1/flights/"+itoa(f.ID), f)
}

// ListFlights handles GET /v1/flights.
func (h *CatalogHandler) ListFlights(c echo.Context) error {
	ctx, cancel := h.ctx(c)
	defer cancel()
	list, err := h.Flights.List(ctx)
	if err != nil {
		return h.fail(c, err)
	}
	return items(c, list)
}

// GetFlight handles GET /v1/flights/:id.
func (h *CatalogHandler) GetFlight(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return invalidID(c)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	f, err := h.Flights.GetByID(ctx, id)
	if err != nil {
		return h.fail(c, err)
	}
	return item(c, f)
}

// GetFlightByCode handles GET /v1/flights/code/:code.
func (h *CatalogHandler) GetFlightByCode(c echo.Context) error {
	ctx, cancel := h.ctx(c)
	defer cancel()
	f, err := h.Flights.GetByCode(ctx, c.Param("code"))
	if err != nil {
		return h.fail(c, err)
	}
	return item(c, f)
}

// UpdateFlight handles PUT /v1/flights/:id.  Seat fields in the body are
// ignored: inventory only moves through ticketing.
func (h *CatalogHandler) UpdateFlight(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return invalidID(c)
	}
	var req flightRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}
	f := &model.Flight{ID: id}
	if err := req.toModel(f); err != nil {
		return badRequest(c, err.Error())
	}

	ctx, cancel := h.ctx(c)
	defer cancel()
	if err := h.Flights.Update(ctx, f); err != nil {
		return h.fail(c, err)
	}
	fresh, err := h.Flights.GetByID(ctx, id)
	if err != nil {
		return h.fail(c, err)
	}
	return item(c, fresh)
}

// DeleteFlight handles DELETE /v1/flights/:id.
func (h *CatalogHandler) DeleteFlight(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return invalidID(c)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	removed, err := h.Flights.Delete(ctx, id)
	if err != nil {
		return h.fail(c, err)
	}
	return deleted(c, removed)
}

// FlightSeats handles GET /v1/flights/:id/seats.
func (h *CatalogHandler) FlightSeats(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return invalidID(c)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	inv, err := h.Booking.RemainingSeats(ctx, id)
	if err != nil {
		return h.fail(c, err)
	}
	return item(c, inv)
}

// FlightReservations handles GET /v1/flights/:id/reservations.
func (h *CatalogHandler) FlightReservations(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return invalidID(c)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	list, err := h.Booking.ListReservationsByFlight(ctx, id)
	if err != nil {
		return h.fail(c, err)
	}
	return items(c, list)
}
