package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/iliyamo/flight-booking/internal/config"
	"github.com/iliyamo/flight-booking/internal/database"
	"github.com/iliyamo/flight-booking/internal/lock"
	"github.com/iliyamo/flight-booking/internal/logger"
	"github.com/iliyamo/flight-booking/internal/queue"
	"github.com/iliyamo/flight-booking/internal/repository"
	"github.com/iliyamo/flight-booking/internal/router"
	"github.com/iliyamo/flight-booking/internal/service"
)

func main() {
	_ = godotenv.Load() // .env is optional; real env vars win

	cfg, err := config.Load()
	if err != nil {
		// the logger is configured from cfg, so fall back to a production one
		zap.Must(zap.NewProduction()).Fatal("config", zap.Error(err))
	}
	log, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		zap.Must(zap.NewProduction()).Fatal("logger", zap.Error(err))
	}
	os.Exit(exitCode(log, run(cfg, log)))
}

// exitCode logs err, flushes log and returns the process exit status.
func exitCode(log *zap.Logger, err error) int {
	code := 0
	if err != nil {
		log.Error("server stopped", zap.Error(err))
		code = 1
	}
	_ = log.Sync()
	return code
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DB)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := database.EnsureSchema(ctx, db); err != nil {
		return err
	}
	log.Info("database ready", zap.String("driver", cfg.DB.Driver))

	cacheCfg, err := config.LoadCacheConfig()
	if err != nil {
		return err
	}
	rlCfg, err := config.LoadRateLimitConfig()
	if err != nil {
		return err
	}
	redisCfg, err := config.LoadRedisConfig()
	if err != nil {
		return err
	}
	rdb := config.NewRedisClient(redisCfg)
	if rdb == nil {
		log.Warn("redis unavailable; cache and rate limit disabled", zap.String("addr", redisCfg.Addr))
	} else {
		defer rdb.Close()
	}

	var locker lock.Locker = lock.NewKeyedMutex()
	if cfg.Booking.LockBackend == "redis" {
		if rdb == nil {
			return errors.New("BOOKING_LOCK_BACKEND=redis but redis is unavailable")
		}
		locker = lock.NewRedisLocker(rdb, cfg.Booking.LockTTL, log)
	}

	var publisher queue.Publisher = queue.NopPublisher{}
	if cfg.AMQP.Enabled {
		p := queue.NewAMQPPublisher(cfg.AMQP.URL, cfg.AMQP.Queue, log)
		defer p.Close()
		publisher = p
		if cfg.AMQP.ConsumerEnabled {
			consumer := &queue.Consumer{URL: cfg.AMQP.URL, Queue: cfg.AMQP.Queue, LogDir: cfg.AMQP.LogDir, Log: log}
			go func() {
				if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					log.Error("event consumer stopped", zap.Error(err))
				}
			}()
		}
	}

	users := repository.NewUserRepo(db)
	flights := repository.NewFlightRepo(db)
	booking := service.NewBookingService(db, service.Repos{
		Users:        users,
		Flights:      flights,
		Reservations: repository.NewReservationRepo(db),
		Tickets:      repository.NewTicketRepo(db),
	}, service.Options{
		Locker:       locker,
		Publisher:    publisher,
		Logger:       log,
		MaxAttempts:  cfg.Booking.MaxAttempts,
		RetryBackoff: cfg.Booking.RetryBackoff,
	})

	e := router.New(router.Deps{
		DB:        db,
		Users:     users,
		Templates: repository.NewTemplateFlightRepo(db),
		Flights:   flights,
		Booking:   booking,
		Log:       log,
		Redis:     rdb,
		Cache:     cacheCfg,
		RateLimit: rlCfg,
		JWTSecret: cfg.JWTSecret,
		Timeout:   cfg.RequestTimeout,
	})

	addr := ":" + cfg.Port
	errc := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
