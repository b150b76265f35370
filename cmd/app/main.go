package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/tourbooking/api"
	"github.com/Domenick1991/tourbooking/config"
	"github.com/Domenick1991/tourbooking/internal/auth"
	"github.com/Domenick1991/tourbooking/internal/cache"
	"github.com/Domenick1991/tourbooking/internal/kafka"
	"github.com/Domenick1991/tourbooking/internal/lock"
	"github.com/Domenick1991/tourbooking/internal/logger"
	"github.com/Domenick1991/tourbooking/internal/metrics"
	"github.com/Domenick1991/tourbooking/internal/repository"
	"github.com/Domenick1991/tourbooking/internal/service/booking"
	"github.com/Domenick1991/tourbooking/internal/service/departures"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

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
	gin.SetMode(gin.ReleaseMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loc, err := cfg.Booking.Location()
	if err != nil {
		log.Fatalf("load timezone: %v", err)
	}
	clock := func() time.Time { return time.Now().In(loc) }

	store, err := repository.Open(ctx, cfg.Storage)
	if err != nil {
		log.Fatalf("open storage: %v", err)
	}
	defer store.Close()

	m := metrics.New()
	departureLock := lock.NewKeyedMutex()
	bookingOpts := []booking.BookingServiceOption{
		booking.WithLocker(departureLock),
		booking.WithClock(clock),
		booking.WithMetrics(m),
		booking.WithLogger(log),
	}
	departureOpts := []departures.DepartureServiceOption{
		departures.WithLocker(departureLock),
		departures.WithClock(clock),
		departures.WithMetrics(m),
		departures.WithLogger(log),
	}

	if cfg.Redis.Enabled() {
		redisCache := cache.NewRedisCache(cfg.Redis, cfg.Booking.DeparturesCacheTTL(), cfg.Booking.LockTTL(), cfg.Booking.LockWait())
		defer redisCache.Close()
		if err := redisCache.Ping(ctx); err != nil {
			log.Fatalf("connect redis: %v", err)
		}
		bookingOpts = append(bookingOpts, booking.WithLocker(redisCache), booking.WithCache(redisCache))
		departureOpts = append(departureOpts, departures.WithLocker(redisCache), departures.WithCache(redisCache))
		log.WithField("addr", cfg.Redis.Addr).Info("using redis for departure locks and list cache")
	}

	if cfg.Kafka.Enabled() {
		producer := kafka.NewProducer(cfg.Kafka.Brokers)
		defer producer.Close()
		if err := producer.CheckConnection(ctx); err != nil {
			log.WithError(err).Warn("kafka is not reachable, events will be retried per message")
		}
		bookingOpts = append(bookingOpts, booking.WithProducer(producer, cfg.Kafka.BookingEventsTopic))
		departureOpts = append(departureOpts, departures.WithProducer(producer, cfg.Kafka.BookingEventsTopic))
	}

	bookingService := booking.NewBookingService(store, bookingOpts...)
	departureService := departures.NewDepartureService(store, departureOpts...)

	authenticator := auth.NewAuthenticator(auth.NewCredentials(cfg.Admin), cfg.Admin.SessionSecret, cfg.Admin.SessionTTL())
	router := api.NewRouter(api.RouterConfig{
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		SwaggerDir:     cfg.HTTP.SwaggerDir,
		Metrics:        m,
		Log:            log,
	}, authenticator, api.Handlers{
		Departures: api.NewDepartureHandler(departureService, log),
		Bookings:   api.NewBookingHandler(bookingService),
		Admin:      api.NewAdminHandler(authenticator, departureService, bookingService, cfg.HTTP.SecureCookies, log),
	})

	server := &http.Server{
		Addr:              cfg.HTTP.Address,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithFields(logrus.Fields{"addr": cfg.HTTP.Address, "storage": cfg.Storage.Driver}).Info("http server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return departureService.RunPruneLoop(ctx, cfg.Worker.PruneInterval())
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("server error: %v", err)
	}
	log.Info("server stopped")
}
