// Package reminder periodically queues reminders for confirmed reservations
// that start within the configured lead time.
package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"restaurant-booking-backend/config"
	"restaurant-booking-backend/internal/model"
	"restaurant-booking-backend/internal/parse"
)

// Store is the persistence the reminder loop needs.
type Store interface {
	Settings(ctx context.Context) (*model.SystemSettings, error)
	DueReminders(ctx context.Context, fromDate, toDate string) ([]model.Reservation, error)
	ClaimReminder(ctx context.Context, id int64, at time.Time) (bool, error)
}

// Dispatcher queues a reminder without blocking.
type Dispatcher interface {
	NotifyReminder(r *model.Reservation) bool
}

// Service runs the reminder check on a timer.
type Service struct {
	cfg        config.ReminderConfig
	store      Store
	dispatcher Dispatcher
	loc        *time.Location
	now        func() time.Time
	log        zerolog.Logger
}

func NewService(cfg config.ReminderConfig, s Store, d Dispatcher, loc *time.Location, log zerolog.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		cfg:        cfg,
		store:      s,
		dispatcher: d,
		loc:        loc,
		now:        time.Now,
		log:        log.With().Str("component", "reminder").Logger(),
	}
}

// Run checks immediately and then every configured interval until ctx is done.
func (s *Service) Run(ctx context.Context) {
	if !s.cfg.Enabled {
		s.log.Info().Msg("reminders are disabled, not starting")
		return
	}
	interval := s.cfg.Interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	s.log.Info().Dur("interval", interval).Msg("starting reminder loop")

	s.runOnce(ctx)

	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("reminder loop shutting down")
			return
		case <-timer.C:
			s.runOnce(ctx)
			timer.Reset(interval)
		}
	}
}

func (s *Service) runOnce(ctx context.Context) {
	sent, err := s.CheckOnce(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("reminder check failed")
		return
	}
	if sent > 0 {
		s.log.Info().Int("queued", sent).Msg("reminders queued")
	}
}

// CheckOnce claims and queues every due reminder and returns how many were
// queued. A reservation is claimed before it is queued, so each one gets at
// most one reminder even with several instances running.
func (s *Service) CheckOnce(ctx context.Context) (int, error) {
	settings, err := s.store.Settings(ctx)
	if err != nil {
		return 0, fmt.Errorf("load settings: %w", err)
	}
	if settings.ReminderHours <= 0 {
		return 0, nil
	}

	now := s.now().In(s.loc)
	horizon := now.Add(time.Duration(settings.ReminderHours) * time.Hour)

	due, err := s.store.DueReminders(ctx, parse.FormatDate(now), parse.FormatDate(horizon))
	if err != nil {
		return 0, err
	}

	queued := 0
	for i := range due {
		r := &due[i]
		start, err := parse.At(r.ReservationDate, r.StartTime(), s.loc)
		if err != nil {
			s.log.Warn().Err(err).Int64("reservation_id", r.ID).Msg("reservation has no usable start time")
			continue
		}
		if start.Before(now) || start.After(horizon) {
			continue
		}

		claimed, err := s.store.ClaimReminder(ctx, r.ID, now.UTC())
		if err != nil {
			return queued, err
		}
		if !claimed {
			continue
		}
		if !s.dispatcher.NotifyReminder(r) {
			s.log.Warn().Int64("reservation_id", r.ID).Msg("reminder was not queued")
			continue
		}
		queued++
	}
	return queued, nil
}
