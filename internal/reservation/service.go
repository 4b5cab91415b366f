// Package reservation commits and re-statuses reservations on top of the
// store, turning store outcomes into client-facing errors.
package reservation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"restaurant-booking-backend/internal/apperr"
	"restaurant-booking-backend/internal/booking"
	"restaurant-booking-backend/internal/metrics"
	"restaurant-booking-backend/internal/model"
	"restaurant-booking-backend/internal/parse"
	"restaurant-booking-backend/internal/store"
)

// Notifier receives fire-and-forget notifications. Implementations must not
// block.
type Notifier interface {
	NotifyConfirmation(r *model.Reservation)
	NotifyDashboard(date string)
}

type nopNotifier struct{}

func (nopNotifier) NotifyConfirmation(*model.Reservation) {}
func (nopNotifier) NotifyDashboard(string)                {}

// Service implements the reservation commit and status flows.
type Service struct {
	store     store.Store
	validator *booking.Validator
	notifier  Notifier
	loc       *time.Location
	now       func() time.Time
	log       zerolog.Logger
}

// NewService creates a reservation service. Dates are judged in loc.
func NewService(s store.Store, v *booking.Validator, n Notifier, loc *time.Location, log zerolog.Logger) *Service {
	if n == nil {
		n = nopNotifier{}
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		store:     s,
		validator: v,
		notifier:  n,
		loc:       loc,
		now:       time.Now,
		log:       log.With().Str("component", "reservation").Logger(),
	}
}

// RulesFrom derives the request bounds from the settings row.
func RulesFrom(settings *model.SystemSettings) booking.Rules {
	return booking.Rules{
		MinGuests:      settings.MinGuestSize,
		MaxGuests:      settings.MaxGuestSize,
		MaxAdvanceDays: settings.MaxAdvanceBookingDays,
	}
}

// Today is the restaurant's current calendar date.
func (s *Service) Today() time.Time {
	return parse.DateOnly(s.now().In(s.loc))
}

// Create validates req and commits it. The second result is true when the
// idempotency key matched an earlier commit; no capacity was taken and no
// notification is sent again. A rejected slot is never retried.
func (s *Service) Create(ctx context.Context, req booking.Request, flow booking.Flow) (*model.Reservation, bool, error) {
	req = booking.Sanitize(req)

	settings, err := s.store.Settings(ctx)
	if err != nil {
		return nil, false, apperr.Internal("Failed to load booking settings", err)
	}
	rules := RulesFrom(settings)

	if err := s.validator.Validate(req, flow, rules); err != nil {
		var verrs booking.ValidationErrors
		if errors.As(err, &verrs) {
			metrics.IncRejected("validation")
			return nil, false, apperr.Validation("Invalid reservation request", verrs.Details())
		}
		return nil, false, apperr.Internal("Failed to validate reservation request", err)
	}

	date, err := parse.Date(req.Date)
	if err != nil {
		return nil, false, apperr.InvalidInput(err.Error())
	}
	today := s.Today()
	if date.Before(today) {
		metrics.IncRejected("past_date")
		return nil, false, apperr.DateUnavailable("Reservations cannot be made for past dates.")
	}
	if date.After(today.AddDate(0, 0, rules.MaxAdvanceDays)) {
		metrics.IncRejected("beyond_window")
		return nil, false, apperr.DateUnavailable(
			fmt.Sprintf("Reservations can be made at most %d days in advance.", rules.MaxAdvanceDays))
	}

	r := &model.Reservation{
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Email:           req.Email,
		Phone:           req.Phone,
		GuestCount:      req.GuestCount,
		ReservationDate: parse.FormatDate(date),
		TimeSlotID:      req.TimeSlotID,
		SpecialHours:    req.SpecialHours,
		SpecialRequests: req.SpecialRequests,
		Status:          model.StatusConfirmed,
		Source:          string(flow),
	}
	if req.IdempotencyKey != "" {
		key := req.IdempotencyKey
		r.IdempotencyKey = &key
	}

	result, err := s.store.CommitReservation(ctx, r)
	if err != nil {
		return nil, false, s.commitError(r, err)
	}

	if result.Replayed {
		metrics.IncReplay()
		s.log.Info().Int64("reservation_id", result.Reservation.ID).Msg("idempotent replay of reservation")
		return result.Reservation, true, nil
	}

	metrics.IncCommitted(string(flow))
	committed := result.Reservation
	if loaded, err := s.store.Reservation(ctx, committed.ID); err == nil {
		committed = loaded
	} else {
		s.log.Warn().Err(err).Int64("reservation_id", committed.ID).Msg("failed to reload committed reservation")
	}

	s.log.Info().
		Int64("reservation_id", committed.ID).
		Str("date", committed.ReservationDate).
		Str("bucket", committed.LedgerKey()).
		Str("flow", string(flow)).
		Msg("reservation committed")

	s.notifier.NotifyConfirmation(committed)
	s.notifier.NotifyDashboard(committed.ReservationDate)
	return committed, false, nil
}

func (s *Service) commitError(r *model.Reservation, err error) error {
	var (
		reason string
		out    *apperr.AppError
	)
	switch {
	case errors.Is(err, store.ErrSlotUnavailable):
		reason, out = "capacity", apperr.SlotUnavailable(err)
	case errors.Is(err, store.ErrSlotNotOffered):
		reason, out = "not_offered", apperr.SlotUnavailable(err)
	case errors.Is(err, store.ErrDateClosed):
		reason, out = "closed", apperr.DateClosed(err)
	case errors.Is(err, store.ErrSlotDisabled):
		reason, out = "disabled", apperr.SlotDisabled(err)
	case errors.Is(err, store.ErrKeyReused):
		reason, out = "key_reused", apperr.Conflict("Idempotency key was already used for a different reservation.")
	case errors.Is(err, store.ErrNotFound):
		reason, out = "unknown_slot", apperr.Validation("Invalid reservation request", map[string]any{
			"time_slot_id": "time_slot_id does not match a configured time slot",
		})
	default:
		s.log.Error().Err(err).Str("date", r.ReservationDate).Msg("failed to commit reservation")
		return apperr.Internal("Failed to create reservation", err)
	}

	metrics.IncRejected(reason)
	s.log.Info().Err(err).Str("date", r.ReservationDate).Str("reason", reason).Msg("reservation rejected")
	return out
}

// Complete marks a reservation completed. Repeating it is a no-op.
func (s *Service) Complete(ctx context.Context, id int64) (*model.Reservation, bool, error) {
	return s.transition(ctx, id, model.StatusCompleted)
}

// Cancel cancels a reservation and frees its capacity. Repeating it is a no-op.
func (s *Service) Cancel(ctx context.Context, id int64) (*model.Reservation, bool, error) {
	return s.transition(ctx, id, model.StatusCancelled)
}

func (s *Service) transition(ctx context.Context, id int64, to model.ReservationStatus) (*model.Reservation, bool, error) {
	if id <= 0 {
		return nil, false, apperr.InvalidInput("Reservation ID must be a positive integer")
	}

	r, changed, err := s.store.TransitionReservation(ctx, id, to)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return nil, false, apperr.NotFound("Reservation")
		case errors.Is(err, store.ErrInvalidTransition):
			return nil, false, apperr.InvalidTransition(
				fmt.Sprintf("Reservation can no longer be marked %s.", to), err)
		}
		return nil, false, apperr.Internal("Failed to update reservation", err)
	}

	if changed {
		metrics.IncTransition(string(to))
		s.log.Info().Int64("reservation_id", id).Str("status", string(to)).Msg("reservation status changed")
		s.notifier.NotifyDashboard(r.ReservationDate)
	}
	return r, changed, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*model.Reservation, error) {
	if id <= 0 {
		return nil, apperr.InvalidInput("Reservation ID must be a positive integer")
	}
	r, err := s.store.Reservation(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("Reservation")
		}
		return nil, apperr.Internal("Failed to retrieve reservation", err)
	}
	return r, nil
}

// List returns reservations matching filter, ordered by date then id.
func (s *Service) List(ctx context.Context, filter store.ReservationFilter) ([]model.Reservation, error) {
	if filter.Date != "" {
		if _, err := parse.Date(filter.Date); err != nil {
			return nil, apperr.InvalidInput(err.Error())
		}
	}
	switch filter.Status {
	case "", model.StatusPending, model.StatusConfirmed, model.StatusCompleted, model.StatusCancelled:
	default:
		return nil, apperr.InvalidInput(fmt.Sprintf("unknown status %q", filter.Status))
	}

	out, err := s.store.Reservations(ctx, filter)
	if err != nil {
		return nil, apperr.Internal("Failed to list reservations", err)
	}
	return out, nil
}

// Counters returns the dashboard counters of date.
func (s *Service) Counters(ctx context.Context, date string) (*store.DashboardCounters, error) {
	if _, err := parse.Date(date); err != nil {
		return nil, apperr.InvalidInput(err.Error())
	}
	c, err := s.store.DashboardCounters(ctx, date)
	if err != nil {
		return nil, apperr.Internal("Failed to load dashboard counters", err)
	}
	return c, nil
}
