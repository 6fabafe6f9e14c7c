package router // package router wires handlers and middleware onto an echo instance

import (
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/flight-booking/internal/config"
	"github.com/iliyamo/flight-booking/internal/handler"
	"github.com/iliyamo/flight-booking/internal/middleware"
	"github.com/iliyamo/flight-booking/internal/repository"
	"github.com/iliyamo/flight-booking/internal/service"
	"github.com/iliyamo/flight-booking/internal/utils"
)

// Deps is everything the HTTP layer needs.  Redis is optional: without it
// the response cache and rate limiter are disabled.
type Deps struct {
	DB        *sqlx.DB
	Users     *repository.UserRepo
	Templates *repository.TemplateFlightRepo
	Flights   *repository.FlightRepo
	Booking   *service.BookingService
	Log       *zap.Logger
	Redis     *redis.Client
	Cache     config.CacheConfig
	RateLimit config.RateLimitConfig
	JWTSecret string
	Timeout   time.Duration
}

// New builds an echo instance with the validator, the global middleware
// chain and every route registered.
func New(d Deps) *echo.Echo {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = utils.NewValidator()

	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(d.Log))

	RegisterRoutes(e, d.DB)

	v1 := e.Group("/v1",
		middleware.NewTokenBucket(d.RateLimit, d.Redis, d.Log),
		middleware.NewRedisCache(d.Cache, d.Redis, d.Log),
	)
	users := handler.NewUserHandler(d.Users, d.Booking, d.Log, d.Timeout)
	catalog := handler.NewCatalogHandler(d.Templates, d.Flights, d.Booking, d.Log, d.Timeout)
	booking := handler.NewBookingHandler(d.Booking, d.Log, d.Timeout)

	RegisterPublic(v1, users, catalog, booking)
	RegisterAdmin(v1, catalog, d.JWTSecret)
	return e
}

// RegisterRoutes registers the unversioned operational endpoints.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health(db))
}

// RegisterPublic registers the unauthenticated API on g: traveler
// records, catalog reads and the whole booking flow.
func RegisterPublic(g *echo.Group, u *handler.UserHandler, c *handler.CatalogHandler, b *handler.BookingHandler) {
	// ---- Users ----
	g.POST("/users", u.Create)
	g.GET("/users", u.List)
	g.GET("/users/:id", u.Get)
	g.PUT("/users/:id", u.Update)
	g.DELETE("/users/:id", u.Delete)
	g.GET("/users/:id/reservations", u.Reservations)

	// ---- Catalog (read) ----
	g.GET("/template-flights", c.ListTemplates)
	g.GET("/template-flights/:id", c.GetTemplate)
	g.GET("/template-flights/:id/flights", c.TemplateFlights)
	g.GET("/flights", c.ListFlights)
	g.GET("/flights/:id", c.GetFlight)
	g.GET("/flights/code/:code", c.GetFlightByCode)
	g.GET("/flights/:id/seats", c.FlightSeats)
	g.GET("/flights/:id/reservations", c.FlightReservations)

	// ---- Reservations ----
	g.POST("/reservations", b.CreateReservation)
	g.GET("/reservations", b.ListReservations)
	g.GET("/reservations/:id", b.GetReservation)
	g.PUT("/reservations/:id", b.UpdateReservation)
	g.DELETE("/reservations/:id", b.DeleteReservation)
	g.GET("/reservations/:id/tickets", b.ReservationTickets)
	g.POST("/reservations/:id/tickets", b.CreateTicket)

	// ---- Tickets ----
	g.GET("/tickets", b.ListTickets)
	g.GET("/tickets/:id", b.GetTicket)
	g.PUT("/tickets/:id", b.UpdateTicket)
	g.DELETE("/tickets/:id", b.DeleteTicket)
}
