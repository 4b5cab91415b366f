package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/rs/zerolog"

	"restaurant-booking-backend/config"
	"restaurant-booking-backend/internal/api"
	"restaurant-booking-backend/internal/booking"
	"restaurant-booking-backend/internal/db"
	"restaurant-booking-backend/internal/events"
	"restaurant-booking-backend/internal/metrics"
	"restaurant-booking-backend/internal/model"
	"restaurant-booking-backend/internal/notification"
	"restaurant-booking-backend/internal/reminder"
	"restaurant-booking-backend/internal/reservation"
	"restaurant-booking-backend/internal/store"
)

func newLogger(cfg config.LogConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	var logger zerolog.Logger
	if cfg.Format == "json" {
		logger = zerolog.New(os.Stdout)
	} else {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}
	return logger.Level(level).With().Timestamp().Str("service", "bookingd").Logger()
}

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		bootstrap := newLogger(config.LogConfig{})
		bootstrap.Fatal().Err(err).Str("path", configPath).Msg("failed to load configuration")
	}
	logger := newLogger(cfg.Log)
	logger.Info().Str("path", configPath).Msg("configuration loaded")

	loc, err := cfg.Booking.Location()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid booking timezone")
	}

	gormDB, err := db.Init(&cfg.Database, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize database")
	}
	logger.Info().Str("driver", cfg.Database.Driver).Msg("database initialized")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	appStore := store.NewGormStore(gormDB, logger)
	d := cfg.Booking.Defaults
	if _, err := appStore.EnsureSettings(ctx, model.SystemSettings{
		MaxAdvanceBookingDays: d.MaxAdvanceBookingDays,
		MinGuestSize:          d.MinGuestSize,
		MaxGuestSize:          d.MaxGuestSize,
		ReminderHours:         d.ReminderHours,
		Capacity:              d.Capacity,
	}); err != nil {
		logger.Fatal().Err(err).Msg("failed to seed system settings")
	}
	if err := appStore.RebuildLedger(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to rebuild capacity ledger")
	}

	if cfg.Monitoring.MetricsEnabled {
		metrics.Register()
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.Kafka.Enabled {
		kp, err := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to create kafka publisher")
		}
		publisher = kp
		logger.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("kafka publisher enabled")
	}

	var webpushOptions *webpush.Options
	if cfg.Push.Enabled() {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
	} else {
		logger.Warn().Msg("VAPID keys not configured, dashboard push disabled")
	}

	pool := notification.NewWorkerPool(cfg.WorkerPool, appStore, publisher, webpushOptions, logger)
	pool.Start(ctx)

	validator, err := booking.NewValidator(logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build validator")
	}
	reservations := reservation.NewService(appStore, validator, pool, loc, logger)

	reminders := reminder.NewService(cfg.Reminder, appStore, pool, loc, logger)
	go reminders.Run(ctx)

	handler := api.NewHandler(appStore, reservations, pool, webpushOptions, logger)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           api.NewRouter(cfg, handler, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("HTTP server ListenAndServe")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received, stopping services")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server Shutdown")
	}
	pool.Wait()
	if err := publisher.Close(); err != nil {
		logger.Error().Err(err).Msg("failed to close event publisher")
	}
	if sqlDB, err := gormDB.DB(); err == nil {
		_ = sqlDB.Close()
	}

	logger.Info().Msg("server gracefully stopped")
}
