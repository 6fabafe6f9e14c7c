package handler // handler defines the echo handlers of the booking API

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/flight-booking/internal/repository"
	"github.com/iliyamo/flight-booking/internal/utils"
)

const defaultTimeout = 5 * time.Second

// responder carries what every handler needs to talk to the store and
// answer in the API's envelope format.
type responder struct {
	log     *zap.Logger
	timeout time.Duration
}

func newResponder(log *zap.Logger, timeout time.Duration) responder {
	if log == nil {
		log = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return responder{log: log, timeout: timeout}
}

// ctx derives the per-request store deadline.
func (r responder) ctx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), r.timeout)
}

// statusFor maps a domain error onto an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, repository.ErrInvalidUser),
		errors.Is(err, repository.ErrInvalidFlight),
		errors.Is(err, repository.ErrInvalidReservation),
		errors.Is(err, repository.ErrInvalidTemplate):
		return http.StatusBadRequest
	case errors.Is(err, repository.ErrAlreadyBooked),
		errors.Is(err, repository.ErrNoMoreSeats),
		errors.Is(err, repository.ErrConstraintViolation),
		errors.Is(err, repository.ErrConflict):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// fail writes err as {"error": msg}.  Unclassified errors are logged and
// reported without detail.
func (r responder) fail(c echo.Context, err error) error {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		r.log.Error("request failed",
			zap.String("method", c.Request().Method),
			zap.String("path", c.Path()),
			zap.Error(err))
		return c.JSON(status, echo.Map{"error": "internal error"})
	}
	return c.JSON(status, echo.Map{"error": err.Error()})
}

// bind decodes the request body into dst and runs the registered
// validator.  The returned error is already written to the client.
func bind(c echo.Context, dst interface{}) (bool, error) {
	if err := c.Bind(dst); err != nil {
		return false, c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(dst); err != nil {
		return false, c.JSON(http.StatusBadRequest, echo.Map{"error": utils.ValidationMessage(err)})
	}
	return true, nil
}

// pathID parses a positive integer path parameter.
func pathID(c echo.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}

func invalidID(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
}

// queryID parses an optional positive integer query parameter.  A missing
// parameter yields (0, true).
func queryID(c echo.Context, name string) (int64, bool) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func item(c echo.Context, v interface{}) error {
	return c.JSON(http.StatusOK, echo.Map{"item": v})
}

func items(c echo.Context, v interface{}) error {
	return c.JSON(http.StatusOK, echo.Map{"items": v})
}

// created answers 201 with a Location header pointing at the new resource.
func created(c echo.Context, location string, v interface{}) error {
	c.Response().Header().Set(echo.HeaderLocation, location)
	return c.JSON(http.StatusCreated, echo.Map{"item": v})
}

// deleted answers 204 when a row was removed and 404 otherwise.
func deleted(c echo.Context, ok bool) error {
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": repository.ErrNotFound.Error()})
	}
	return c.NoContent(http.StatusNoContent)
}

func itoa(id int64) string { return strconv.FormatInt(id, 10) }
