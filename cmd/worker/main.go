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
	"github.com/Domenick1991/skybooking/internal/email"
	"github.com/Domenick1991/skybooking/internal/kafka"
	"github.com/Domenick1991/skybooking/internal/logging"
	"github.com/Domenick1991/skybooking/internal/repository"
	"github.com/Domenick1991/skybooking/internal/service/booking"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
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
	log := logging.New(cfg.Log).WithField("component", "worker")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.WithError(err).Fatal("connect postgres")
	}
	defer pool.Close()

	redisClient := cache.NewRedisClient(cfg.Redis)
	defer redisClient.Close()

	producer := kafka.NewProducer(cfg.Kafka.Brokers, log)
	defer producer.Close()

	clk := clock.NewSystem()
	seats, err := bootstrap.NewLedger(cfg.Ledger, pool, redisClient, clk)
	if err != nil {
		log.WithError(err).Fatal("build seat ledger")
	}

	bookingService := booking.NewBookingService(
		repository.NewBookingRepository(pool),
		repository.NewFlightRepository(pool),
		seats,
		booking.WithProducer(producer, cfg.Kafka.BookingEventsTopic),
		booking.WithClock(clk),
		booking.WithLogger(log),
	)

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic, log)
	defer consumer.Close()
	sender := email.NewSender(log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return consumer.Consume(gctx, consumer.BookingEvents(sender.Send))
	})
	g.Go(func() error {
		reconcileLoop(gctx, log, bookingService, cfg.Worker.ReconcileInterval(), cfg.Worker.ReconcileGrace())
		return nil
	})

	if err := g.Wait(); err != nil {
		log.WithError(err).Error("worker stopped")
		os.Exit(1)
	}
	log.Info("worker stopped")
}

func reconcileLoop(ctx context.Context, log logrus.FieldLogger, svc *booking.BookingService, interval, grace time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			report, err := svc.Reconcile(ctx, grace)
			if err != nil {
				log.WithError(err).Warn("reconcile failed")
				continue
			}
			if report.BookingsReleased > 0 {
				log.WithFields(logrus.Fields{
					"flights":  report.FlightsScanned,
					"bookings": report.BookingsReleased,
					"seats":    report.SeatsReleased,
				}).Info("reconciled seat holds")
			}
		}
	}
}
