package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/tourbooking/config"
	"github.com/Domenick1991/tourbooking/internal/audit"
	"github.com/Domenick1991/tourbooking/internal/cache"
	"github.com/Domenick1991/tourbooking/internal/kafka"
	"github.com/Domenick1991/tourbooking/internal/logger"
	"github.com/Domenick1991/tourbooking/internal/metrics"
	"github.com/Domenick1991/tourbooking/internal/repository"
	"github.com/Domenick1991/tourbooking/internal/service/departures"
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
		logrus.Fatalf("load config: %v", err)
	}
	log := logger.Setup(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loc, err := cfg.Booking.Location()
	if err != nil {
		log.Fatalf("load timezone: %v", err)
	}

	store, err := repository.Open(ctx, cfg.Storage)
	if err != nil {
		log.Fatalf("open storage: %v", err)
	}
	defer store.Close()

	opts := []departures.DepartureServiceOption{
		departures.WithClock(func() time.Time { return time.Now().In(loc) }),
		departures.WithMetrics(metrics.New()),
		departures.WithLogger(log.WithField("component", "pruner")),
	}
	if cfg.Redis.Enabled() {
		redisCache := cache.NewRedisCache(cfg.Redis, cfg.Booking.DeparturesCacheTTL(), cfg.Booking.LockTTL(), cfg.Booking.LockWait())
		defer redisCache.Close()
		opts = append(opts, departures.WithLocker(redisCache), departures.WithCache(redisCache))
	}
	departureService := departures.NewDepartureService(store, opts...)

	g, ctx := errgroup.WithContext(ctx)
	if cfg.Storage.Driver == "memory" {
		// A memory store is private to this process; the app prunes its own.
		log.Info("memory storage is not shared with the app, prune loop disabled")
	} else {
		g.Go(func() error {
			return departureService.RunPruneLoop(ctx, cfg.Worker.PruneInterval())
		})
	}

	if cfg.Kafka.Enabled() {
		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.BookingEventsTopic)
		defer consumer.Close()
		recorder := audit.NewRecorder(log)

		g.Go(func() error {
			err := consumer.Consume(ctx, kafka.EventHandler(recorder.Record))
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	} else {
		log.Info("kafka is not configured, audit consumer disabled")
	}

	log.WithField("prune_interval", cfg.Worker.PruneInterval().String()).Info("worker started")
	if err := g.Wait(); err != nil {
		log.Fatalf("worker error: %v", err)
	}
	log.Info("worker stopped")
}
