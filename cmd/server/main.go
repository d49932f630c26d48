package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/cinema-seat-booking/internal/cache"
	"github.com/iliyamo/cinema-seat-booking/internal/clock"
	"github.com/iliyamo/cinema-seat-booking/internal/config"
	"github.com/iliyamo/cinema-seat-booking/internal/database"
	"github.com/iliyamo/cinema-seat-booking/internal/handler"
	"github.com/iliyamo/cinema-seat-booking/internal/logging"
	"github.com/iliyamo/cinema-seat-booking/internal/payment"
	"github.com/iliyamo/cinema-seat-booking/internal/queue"
	"github.com/iliyamo/cinema-seat-booking/internal/repository"
	"github.com/iliyamo/cinema-seat-booking/internal/router"
	"github.com/iliyamo/cinema-seat-booking/internal/service"
)

func main() {
	config.LoadDotEnv()
	cfg := config.Load()
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.WithError(err).Fatal("database unavailable")
	}
	defer db.Close()

	// Redis is optional: without it the limiter runs in-process and
	// nothing is cached.
	rlCfg := config.LoadRateLimitConfig()
	cacheCfg := config.LoadCacheConfig()
	var rdb *redis.Client
	if rlCfg.Enabled || cacheCfg.Enabled {
		rdb, err = config.NewRedisClient(ctx, config.LoadRedisConfig())
		if err != nil {
			log.WithError(err).Warn("redis unavailable, continuing without it")
			rdb = nil
		} else {
			defer rdb.Close()
		}
	}

	clk := clock.NewSystem(cfg.Booking.TimezoneOffsetHours)
	stores := service.Stores{
		Tx:         repository.NewTxManager(db),
		Screenings: repository.NewScreeningRepo(db),
		Seats:      repository.NewSeatRepo(db),
		Halls:      repository.NewHallRepo(db),
		Bookings:   repository.NewBookingRepo(db),
	}

	opts := []service.Option{
		service.WithMaxSeats(cfg.Booking.MaxSeats),
		service.WithExpiryGrace(cfg.Booking.ExpiryGrace),
		service.WithLogger(log),
	}
	if rdb != nil && cacheCfg.Enabled {
		opts = append(opts, service.WithSeatMapCache(cache.NewSeatMapCache(rdb, cacheCfg.Prefix, cacheCfg.SeatMapTTL)))
	}
	if cfg.EventsEnabled {
		pub := queue.NewPublisher(cfg.RabbitURL, log)
		defer pub.Close()
		opts = append(opts, service.WithPublisher(pub))
		go queue.NewAuditConsumer(cfg.RabbitURL, cfg.AuditLogPath, log).Run(ctx)
	}

	updater := service.NewScreeningUpdater(stores.Screenings, clk, cfg.Booking.ExpiryGrace, cfg.Booking.SweepInterval, log)
	go updater.Run(ctx)

	bookings := service.NewBookingService(stores, payment.NewMockProcessor(cfg.Booking.StrictPaymentMethods), clk, opts...)
	screenings := service.NewScreeningService(stores, updater, clk, opts...)

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = handler.NewErrorHandler(log)
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogStatus:   true,
		LogURI:      true,
		LogMethod:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			log.WithFields(logrus.Fields{
				"method":  v.Method,
				"uri":     v.URI,
				"status":  v.Status,
				"latency": v.Latency.String(),
				"ip":      v.RemoteIP,
			}).Info("request")
			return nil
		},
	}))
	e.Use(echomw.Recover())

	router.Register(e, router.Deps{
		JWTSecret:  cfg.JWTSecret,
		Bookings:   bookings,
		Screenings: screenings,
		DB:         db,
		Redis:      rdb,
		RateLimit:  rlCfg,
		Cache:      cacheCfg,
		Log:        log,
	})

	addr := ":" + cfg.Port
	go func() {
		log.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env}).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("shutdown")
	}
}
