package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"restaurant-booking-backend/internal/model"
)

// Store defines the interface for all database operations.
type Store interface {
	Settings(ctx context.Context) (*model.SystemSettings, error)
	EnsureSettings(ctx context.Context, defaults model.SystemSettings) (*model.SystemSettings, error)
	UpdateSettings(ctx context.Context, settings model.SystemSettings) (*model.SystemSettings, error)

	TimeSlots(ctx context.Context) ([]model.TimeSlot, error)
	CreateTimeSlot(ctx context.Context, slot *model.TimeSlot) error
	UpdateTimeSlot(ctx context.Context, slot *model.TimeSlot) error
	DeleteTimeSlot(ctx context.Context, id int64) error

	Override(ctx context.Context, date string) (*model.DateOverride, error)
	SetOverride(ctx context.Context, override *model.DateOverride) error
	ClearOverride(ctx context.Context, date string) error

	FullyBookedDays(ctx context.Context, month time.Month, year int) ([]int, error)
	ClosedDays(ctx context.Context, month time.Month, year int) ([]int, error)
	SpecialHoursDays(ctx context.Context, month time.Month, year int) ([]SpecialDay, error)
	OccupiedSlots(ctx context.Context, date string) ([]int64, error)
	DisabledSlots(ctx context.Context, date string) ([]int64, error)

	CommitReservation(ctx context.Context, r *model.Reservation) (*CommitResult, error)
	TransitionReservation(ctx context.Context, id int64, to model.ReservationStatus) (*model.Reservation, bool, error)
	Reservation(ctx context.Context, id int64) (*model.Reservation, error)
	Reservations(ctx context.Context, filter ReservationFilter) ([]model.Reservation, error)
	DashboardCounters(ctx context.Context, date string) (*DashboardCounters, error)
	DueReminders(ctx context.Context, fromDate, toDate string) ([]model.Reservation, error)
	ClaimReminder(ctx context.Context, id int64, at time.Time) (bool, error)
	RebuildLedger(ctx context.Context) error

	UpsertSubscription(ctx context.Context, sub *model.PushSubscription) error
	Subscription(ctx context.Context, endpoint string) (*model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, endpoint string) error
	Subscriptions(ctx context.Context) ([]model.PushSubscription, error)

	Ping(ctx context.Context) error
	DB() *gorm.DB
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db  *gorm.DB
	log zerolog.Logger
	now func() time.Time
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB, log zerolog.Logger) Store {
	return &gormStore{
		db:  db,
		log: log.With().Str("component", "store").Logger(),
		now: time.Now,
	}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

func (s *gormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// errIdempotencyRace aborts a commit whose insert lost a race on the
// idempotency key; the winner is looked up after the rollback.
var errIdempotencyRace = errors.New("idempotency key taken concurrently")

// CommitReservation atomically checks the date's override, takes one unit of
// capacity from the (date, slot) ledger bucket and inserts r as confirmed.
// The conditional ledger update is the serialization point: it only succeeds
// while booked < capacity, so concurrent commits can never over-admit.
func (s *gormStore) CommitReservation(ctx context.Context, r *model.Reservation) (*CommitResult, error) {
	var replay *model.Reservation

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if r.IdempotencyKey != nil {
			existing, err := findByIdempotencyKey(tx, *r.IdempotencyKey)
			if err != nil {
				return err
			}
			if existing != nil {
				if !sameBooking(existing, r) {
					return ErrKeyReused
				}
				replay = existing
				return nil
			}
		}

		var settings model.SystemSettings
		if err := tx.First(&settings, 1).Error; err != nil {
			return fmt.Errorf("failed to load settings: %w", err)
		}

		if err := applyOverride(tx, r); err != nil {
			return err
		}

		key := r.LedgerKey()
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&model.SlotLedger{ReservationDate: r.ReservationDate, SlotKey: key}).Error; err != nil {
			return fmt.Errorf("failed to ensure ledger row %s/%s: %w", r.ReservationDate, key, err)
		}

		res := tx.Model(&model.SlotLedger{}).
			Where("reservation_date = ? AND slot_key = ? AND booked < ?", r.ReservationDate, key, settings.Capacity).
			UpdateColumn("booked", gorm.Expr("booked + 1"))
		if res.Error != nil {
			return fmt.Errorf("failed to take capacity for %s/%s: %w", r.ReservationDate, key, res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrSlotUnavailable
		}

		r.Status = model.StatusConfirmed
		if err := tx.Omit("TimeSlot").Create(r).Error; err != nil {
			if r.IdempotencyKey != nil {
				s.log.Debug().Err(err).Msg("reservation insert failed with idempotency key, checking for concurrent commit")
				return errIdempotencyRace
			}
			return fmt.Errorf("failed to insert reservation: %w", err)
		}
		return nil
	})

	if errors.Is(err, errIdempotencyRace) {
		existing, lookupErr := findByIdempotencyKey(s.db.WithContext(ctx), *r.IdempotencyKey)
		if lookupErr != nil {
			return nil, lookupErr
		}
		if existing == nil {
			return nil, fmt.Errorf("failed to insert reservation with idempotency key %q", *r.IdempotencyKey)
		}
		if !sameBooking(existing, r) {
			return nil, ErrKeyReused
		}
		replay = existing
		err = nil
	}
	if err != nil {
		return nil, err
	}

	if replay != nil {
		return &CommitResult{Reservation: replay, Replayed: true}, nil
	}
	return &CommitResult{Reservation: r}, nil
}

// applyOverride enforces the date override against r and copies the
// special-hours window onto special reservations.
func applyOverride(tx *gorm.DB, r *model.Reservation) error {
	var override model.DateOverride
	found := true
	if err := tx.Preload("DisabledSlots").Where("date = ?", r.ReservationDate).First(&override).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to load override for %s: %w", r.ReservationDate, err)
		}
		found = false
	}

	if found && override.Kind == model.OverrideClosed {
		return ErrDateClosed
	}

	if r.SpecialHours {
		if !found || override.Kind != model.OverrideSpecialHours {
			return ErrSlotNotOffered
		}
		r.TimeSlotID = nil
		r.SpecialStart = override.SpecialStart
		r.SpecialEnd = override.SpecialEnd
		return nil
	}

	if r.TimeSlotID == nil {
		return ErrSlotNotOffered
	}
	if found && override.Kind == model.OverrideSpecialHours {
		return ErrSlotNotOffered
	}
	if found && override.Disables(*r.TimeSlotID) {
		return ErrSlotDisabled
	}

	var count int64
	if err := tx.Model(&model.TimeSlot{}).Where("id = ?", *r.TimeSlotID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to look up time slot %d: %w", *r.TimeSlotID, err)
	}
	if count == 0 {
		return fmt.Errorf("time slot %d: %w", *r.TimeSlotID, ErrNotFound)
	}
	r.SpecialStart = nil
	r.SpecialEnd = nil
	return nil
}

// sameBooking reports whether a replayed reservation was made for the date
// and ledger bucket that r asks for.
func sameBooking(existing, r *model.Reservation) bool {
	if existing.ReservationDate != r.ReservationDate || existing.SpecialHours != r.SpecialHours {
		return false
	}
	if r.SpecialHours {
		return true
	}
	return existing.TimeSlotID != nil && r.TimeSlotID != nil && *existing.TimeSlotID == *r.TimeSlotID
}

func findByIdempotencyKey(tx *gorm.DB, key string) (*model.Reservation, error) {
	var existing model.Reservation
	err := tx.Preload("TimeSlot").Where("idempotency_key = ?", key).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up idempotency key: %w", err)
	}
	return &existing, nil
}

// TransitionReservation moves an active reservation to a terminal status and
// releases its ledger unit. Repeating the same transition reports
// changed=false; moving between terminal statuses is ErrInvalidTransition.
func (s *gormStore) TransitionReservation(ctx context.Context, id int64, to model.ReservationStatus) (*model.Reservation, bool, error) {
	if !to.Terminal() {
		return nil, false, fmt.Errorf("transition to %q: %w", to, ErrInvalidTransition)
	}

	var (
		reservation model.Reservation
		changed     bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&reservation, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to load reservation %d: %w", id, err)
		}

		if reservation.Status == to {
			return nil
		}
		if !reservation.Status.Active() {
			return fmt.Errorf("reservation %d is %s: %w", id, reservation.Status, ErrInvalidTransition)
		}

		res := tx.Model(&model.Reservation{}).
			Where("id = ? AND status IN ?", id, activeStatuses()).
			Updates(map[string]any{"status": to, "updated_at": s.now()})
		if res.Error != nil {
			return fmt.Errorf("failed to update reservation %d: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			// Lost a race against another transition; report what won.
			if err := tx.First(&reservation, id).Error; err != nil {
				return fmt.Errorf("failed to reload reservation %d: %w", id, err)
			}
			if reservation.Status == to {
				return nil
			}
			return fmt.Errorf("reservation %d is %s: %w", id, reservation.Status, ErrInvalidTransition)
		}

		if err := tx.Model(&model.SlotLedger{}).
			Where("reservation_date = ? AND slot_key = ? AND booked > 0", reservation.ReservationDate, reservation.LedgerKey()).
			UpdateColumn("booked", gorm.Expr("booked - 1")).Error; err != nil {
			return fmt.Errorf("failed to release capacity for reservation %d: %w", id, err)
		}

		reservation.Status = to
		changed = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	if err := s.db.WithContext(ctx).Preload("TimeSlot").First(&reservation, id).Error; err != nil {
		return nil, false, fmt.Errorf("failed to reload reservation %d: %w", id, err)
	}
	return &reservation, changed, nil
}

// RebuildLedger recomputes every ledger bucket from the active reservations.
func (s *gormStore) RebuildLedger(ctx context.Context) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM slot_ledgers").Error; err != nil {
			return fmt.Errorf("failed to clear ledger: %w", err)
		}
		err := tx.Exec(`INSERT INTO slot_ledgers (reservation_date, slot_key, booked)
SELECT reservation_date,
       CASE WHEN special_hours THEN 'special' ELSE 'slot:' || CAST(time_slot_id AS TEXT) END,
       COUNT(*)
FROM reservations
WHERE status IN ?
GROUP BY 1, 2`, activeStatuses()).Error
		if err != nil {
			return fmt.Errorf("failed to rebuild ledger: %w", err)
		}
		return nil
	})
}

func (s *gormStore) Reservation(ctx context.Context, id int64) (*model.Reservation, error) {
	var r model.Reservation
	if err := s.db.WithContext(ctx).Preload("TimeSlot").First(&r, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &r, nil
}

func (s *gormStore) Reservations(ctx context.Context, filter ReservationFilter) ([]model.Reservation, error) {
	q := s.db.WithContext(ctx).Preload("TimeSlot")
	if filter.Date != "" {
		q = q.Where("reservation_date = ?", filter.Date)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var out []model.Reservation
	if err := q.Order("reservation_date, id").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (s *gormStore) DashboardCounters(ctx context.Context, date string) (*DashboardCounters, error) {
	var rows []struct {
		Status model.ReservationStatus
		Total  int
		Guests int
	}
	err := s.db.WithContext(ctx).Model(&model.Reservation{}).
		Select("status, COUNT(*) AS total, COALESCE(SUM(guest_count), 0) AS guests").
		Where("reservation_date = ?", date).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count reservations for %s: %w", date, err)
	}

	counters := &DashboardCounters{Date: date}
	for _, row := range rows {
		switch row.Status {
		case model.StatusPending:
			counters.Pending = row.Total
		case model.StatusConfirmed:
			counters.Confirmed = row.Total
		case model.StatusCompleted:
			counters.Completed = row.Total
		case model.StatusCancelled:
			counters.Cancelled = row.Total
		}
		if row.Status.Active() {
			counters.ActiveGuests += row.Guests
		}
	}
	return counters, nil
}

// DueReminders lists confirmed reservations between two dates (inclusive)
// that have not had a reminder yet.
func (s *gormStore) DueReminders(ctx context.Context, fromDate, toDate string) ([]model.Reservation, error) {
	var out []model.Reservation
	err := s.db.WithContext(ctx).Preload("TimeSlot").
		Where("status = ? AND reminder_sent_at IS NULL AND reservation_date BETWEEN ? AND ?",
			model.StatusConfirmed, fromDate, toDate).
		Order("reservation_date, id").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list due reminders: %w", err)
	}
	return out, nil
}

// ClaimReminder marks the reminder of a reservation as sent. It returns false
// when another run already claimed it.
func (s *gormStore) ClaimReminder(ctx context.Context, id int64, at time.Time) (bool, error) {
	res := s.db.WithContext(ctx).Model(&model.Reservation{}).
		Where("id = ? AND reminder_sent_at IS NULL", id).
		UpdateColumn("reminder_sent_at", at)
	if res.Error != nil {
		return false, fmt.Errorf("failed to claim reminder for reservation %d: %w", id, res.Error)
	}
	return res.RowsAffected == 1, nil
}
