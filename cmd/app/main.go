package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/skybooking/config"
	"github.com/Domenick1991/skybooking/internal/bootstrap"
	"github.com/Domenick1991/skybooking/internal/cache"
	"github.com/Domenick1991/skybooking/internal/clock"
	"github.com/Domenick1991/skybooking/internal/kafka"
	"github.com/Domenick1991/skybooking/internal/logging"
	"github.com/Domenick1991/skybooking/internal/repository"
	"github.com/Domenick1991/skybooking/internal/service/booking"
	"github.com/Domenick1991/skybooking/internal/service/flights"
	"github.com/Domenick1991/skybooking/migrations"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}
	log := logging.New(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.WithError(err).Fatal("connect postgres")
	}
	defer pool.Close()

	if cfg.Database.Migrate {
		if err := migrations.Apply(ctx, pool); err != nil {
			log.WithError(err).Fatal("apply migrations")
		}
	}

	redisClient := cache.NewRedisClient(cfg.Redis)
	defer redisClient.Close()
	redisCache := cache.NewRedisCache(redisClient, cfg.Booking.FlightsCacheDuration())

	producer := kafka.NewProducer(cfg.Kafka.Brokers, log)
	defer producer.Close()
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	if err := producer.CheckConnection(checkCtx); err != nil {
		log.WithError(err).Warn("Kafka unavailable, booking events will be dropped until it recovers")
	}
	cancel()

	clk := clock.NewSystem()
	seats, err := bootstrap.NewLedger(cfg.Ledger, pool, redisClient, clk)
	if err != nil {
		log.WithError(err).Fatal("build seat ledger")
	}
	log.WithField("backend", cfg.Ledger.Backend).Info("seat ledger ready")

	flightRepo := repository.NewFlightRepository(pool)
	bookingRepo := repository.NewBookingRepository(pool)
	flightService := flights.NewFlightService(flightRepo, redisCache, log)
	bookingService := booking.NewBookingService(
		bookingRepo,
		flightRepo,
		seats,
		booking.WithCache(redisCache),
		booking.WithProducer(producer, cfg.Kafka.BookingEventsTopic),
		booking.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
		booking.WithClock(clk),
		booking.WithLogger(log),
	)

	if err := bootstrap.Run(ctx, cfg, bootstrap.Deps{Log: log, Flights: flightService, Bookings: bookingService}); err != nil {
		log.WithError(err).Fatal("server error")
	}
}
