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

// UserHandler serves the traveler resources.
type UserHandler struct {
	responder
	Users   *repository.UserRepo
	Booking *service.BookingService
	now     func() time.Time
}

// NewUserHandler panics if a dependency is nil.
func NewUserHandler(users *repository.UserRepo, booking *service.BookingService, log *zap.Logger, timeout time.Duration) *UserHandler {
	if users == nil || booking == nil {
		panic("nil dependency passed to NewUserHandler")
	}
	return &UserHandler{responder: newResponder(log, timeout), Users: users, Booking: booking, now: time.Now}
}

type userRequest struct {
	LastName    string `json:"last_name" validate:"required,max=100"`
	FirstName   string `json:"first_name" validate:"required,max=100"`
	PhoneNumber string `json:"phone_number" validate:"omitempty,max=32"`
	Email       string `json:"email" validate:"required,email,max=255"`
	BirthDate   string `json:"birth_date" validate:"required,isodate"`
	Gender      string `json:"gender" validate:"omitempty,max=16"`
}

// toModel copies the request into u, normalizing the birth date.
func (r userRequest) toModel(u *model.User) error {
	birth, err := model.NormalizeDate(r.BirthDate)
	if err != nil {
		return fmt.Errorf("birth_date: %w", err)
	}
	u.LastName = strings.TrimSpace(r.LastName)
	u.FirstName = strings.TrimSpace(r.FirstName)
	u.PhoneNumber = strings.TrimSpace(r.PhoneNumber)
	u.Email = r.Email
	u.BirthDate = birth
	u.Gender = strings.TrimSpace(r.Gender)
	return nil
}

// Create handles POST /v1/users.
func (h *UserHandler) Create(c echo.Context) error {
	var req userRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}
	u := &model.User{RegisteredAt: h.now().Unix()}
	if err := req.toModel(u); err != nil {
		return badRequest(c, err.Error())
	}

	ctx, cancel := h.ctx(c)
	defer cancel()
	if err := h.Users.Create(ctx, u); err != nil {
		return h.fail(c, err)
	}
	return created(c, "/v1/users/"+itoa(u.ID), u)
}

// List handles GET /v1/users.
func (h *UserHandler) List(c echo.Context) error {
	ctx, cancel := h.ctx(c)
	defer cancel()
	users, err := h.Users.List(ctx)
	if err != nil {
		return h.fail(c, err)
	}
	return items(c, users)
}

// Get handles GET /v1/users/:id.
func (h *UserHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return invalidID(c)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return h.fail(c, err)
	}
	return item(c, u)
}

// Update handles PUT /v1/users/:id.  Every mutable field is replaced.
func (h *UserHandler) Update(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return invalidID(c)
	}
	var req userRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	u := &model.User{ID: id}
	if err := req.toModel(u); err != nil {
		return badRequest(c, err.Error())
	}
	if err := h.Users.Update(ctx, u); err != nil {
		return h.fail(c, err)
	}
	fresh, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return h.fail(c, err)
	}
	return item(c, fresh)
}

// Delete handles DELETE /v1/users/:id.  The user's reservations and
// tickets are removed with it.
func (h *UserHandler) Delete(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return invalidID(c)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	removed, err := h.Users.Delete(ctx, id)
	if err != nil {
		return h.fail(c, err)
	}
	return deleted(c, removed)
}

// Reservations handles GET /v1/users/:id/reservations.
func (h *UserHandler) Reservations(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return invalidID(c)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	list, err := h.Booking.ListReservationsByUser(ctx, id)
	if err != nil {
		return h.fail(c, err)
	}
	return items(c, list)
}
