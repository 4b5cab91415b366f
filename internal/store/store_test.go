package store

import (
	"context"
	"database/sql/driver"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"restaurant-booking-backend/internal/db"
	"restaurant-booking-backend/internal/model"
)

const testDate = "2026-10-20"

// newSQLiteStore opens a private in-memory database with one connection,
// matching how the sqlite driver is configured in production.
func newSQLiteStore(t *testing.T, capacity int) (Store, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.Migrate(gormDB))

	s := NewGormStore(gormDB, zerolog.Nop())
	_, err = s.EnsureSettings(context.Background(), model.SystemSettings{
		MaxAdvanceBookingDays: 30,
		MinGuestSize:          1,
		MaxGuestSize:          8,
		ReminderHours:         24,
		Capacity:              capacity,
	})
	require.NoError(t, err)
	return s, gormDB
}

// A helper function to create a mock database connection.
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: sqlDB,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func createSlot(t *testing.T, s Store, start, end string) model.TimeSlot {
	t.Helper()
	slot := model.TimeSlot{StartTime: start, EndTime: end}
	require.NoError(t, s.CreateTimeSlot(context.Background(), &slot))
	return slot
}

func newReservation(date string, slotID *int64) *model.Reservation {
	return &model.Reservation{
		FirstName:       "Anna",
		LastName:        "Novak",
		Email:           "anna@example.com",
		Phone:           "123456",
		GuestCount:      2,
		ReservationDate: date,
		TimeSlotID:      slotID,
		Source:          "guest",
	}
}

func specialReservation(date string) *model.Reservation {
	r := newReservation(date, nil)
	r.SpecialHours = true
	return r
}

func ptr[T any](v T) *T { return &v }

func ledger(t *testing.T, gormDB *gorm.DB, date, key string) int {
	t.Helper()
	var row model.SlotLedger
	err := gormDB.Where("reservation_date = ? AND slot_key = ?", date, key).First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return 0
	}
	require.NoError(t, err)
	return row.Booked
}

func TestCommitReservation_TakesCapacity(t *testing.T) {
	ctx := context.Background()
	s, gormDB := newSQLiteStore(t, 2)
	slot := createSlot(t, s, "18:00", "20:00")

	res, err := s.CommitReservation(ctx, newReservation(testDate, &slot.ID))
	require.NoError(t, err)
	assert.False(t, res.Replayed)
	assert.NotZero(t, res.Reservation.ID)
	assert.Equal(t, model.StatusConfirmed, res.Reservation.Status)
	assert.Equal(t, 1, ledger(t, gormDB, testDate, model.SlotLedgerKey(slot.ID)))

	occupied, err := s.OccupiedSlots(ctx, testDate)
	require.NoError(t, err)
	assert.Empty(t, occupied)

	_, err = s.CommitReservation(ctx, newReservation(testDate, &slot.ID))
	require.NoError(t, err)

	_, err = s.CommitReservation(ctx, newReservation(testDate, &slot.ID))
	assert.ErrorIs(t, err, ErrSlotUnavailable)
	assert.Equal(t, 2, ledger(t, gormDB, testDate, model.SlotLedgerKey(slot.ID)))

	occupied, err = s.OccupiedSlots(ctx, testDate)
	require.NoError(t, err)
	assert.Equal(t, []int64{slot.ID}, occupied)

	// Capacity is per (date, slot).
	_, err = s.CommitReservation(ctx, newReservation("2026-10-21", &slot.ID))
	assert.NoError(t, err)
}

func TestCommitReservation_ConcurrentNeverOverAdmits(t *testing.T) {
	const (
		capacity = 3
		attempts = 12
	)
	ctx := context.Background()
	s, gormDB := newSQLiteStore(t, capacity)
	slot := createSlot(t, s, "18:00", "20:00")

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
		other     []error
	)
	start := make(chan struct{})
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := s.CommitReservation(ctx, newReservation(testDate, &slot.ID))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case err == ErrSlotUnavailable:
				rejected++
			default:
				other = append(other, err)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Empty(t, other)
	assert.Equal(t, capacity, succeeded)
	assert.Equal(t, attempts-capacity, rejected)

	var active int64
	require.NoError(t, gormDB.Model(&model.Reservation{}).
		Where("reservation_date = ? AND time_slot_id = ? AND status IN ?", testDate, slot.ID, activeStatuses()).
		Count(&active).Error)
	assert.EqualValues(t, capacity, active)
	assert.Equal(t, capacity, ledger(t, gormDB, testDate, model.SlotLedgerKey(slot.ID)))
}

func TestCommitReservation_OverrideRules(t *testing.T) {
	ctx := context.Background()
	s, _ := newSQLiteStore(t, 5)
	slotA := createSlot(t, s, "18:00", "20:00")
	slotB := createSlot(t, s, "20:00", "22:00")

	require.NoError(t, s.SetOverride(ctx, &model.DateOverride{Date: "2026-10-21", Kind: model.OverrideClosed}))
	require.NoError(t, s.SetOverride(ctx, &model.DateOverride{
		Date:          "2026-10-22",
		Kind:          model.OverrideDisabledSlots,
		DisabledSlots: []model.OverrideDisabledSlot{{TimeSlotID: slotB.ID}},
	}))
	require.NoError(t, s.SetOverride(ctx, &model.DateOverride{
		Date: "2026-10-23", Kind: model.OverrideSpecialHours,
		SpecialStart: ptr("17:00"), SpecialEnd: ptr("21:00"),
	}))

	testCases := []struct {
		name        string
		reservation *model.Reservation
		expectedErr error
	}{
		{name: "Closed date", reservation: newReservation("2026-10-21", &slotA.ID), expectedErr: ErrDateClosed},
		{name: "Closed date special", reservation: specialReservation("2026-10-21"), expectedErr: ErrDateClosed},
		{name: "Disabled slot", reservation: newReservation("2026-10-22", &slotB.ID), expectedErr: ErrSlotDisabled},
		{name: "Other slot on disabled-slots date", reservation: newReservation("2026-10-22", &slotA.ID)},
		{name: "Regular slot on special date", reservation: newReservation("2026-10-23", &slotA.ID), expectedErr: ErrSlotNotOffered},
		{name: "Special without override", reservation: specialReservation("2026-10-24"), expectedErr: ErrSlotNotOffered},
		{name: "Unknown slot", reservation: newReservation("2026-10-24", ptr(int64(999))), expectedErr: ErrNotFound},
		{name: "No selection", reservation: newReservation("2026-10-24", nil), expectedErr: ErrSlotNotOffered},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.CommitReservation(ctx, tc.reservation)
			if tc.expectedErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.expectedErr)
		})
	}

	var total int64
	require.NoError(t, s.DB().Model(&model.Reservation{}).Count(&total).Error)
	assert.EqualValues(t, 1, total, "rejected commits leave nothing behind")
}

func TestCommitReservation_SpecialHoursRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, gormDB := newSQLiteStore(t, 1)
	require.NoError(t, s.SetOverride(ctx, &model.DateOverride{
		Date: testDate, Kind: model.OverrideSpecialHours,
		SpecialStart: ptr("17:00"), SpecialEnd: ptr("21:00"),
	}))

	res, err := s.CommitReservation(ctx, specialReservation(testDate))
	require.NoError(t, err)
	assert.Equal(t, 1, ledger(t, gormDB, testDate, model.SpecialLedgerKey))

	_, err = s.CommitReservation(ctx, specialReservation(testDate))
	assert.ErrorIs(t, err, ErrSlotUnavailable)

	// The override changes later; the stored reservation keeps its window.
	require.NoError(t, s.SetOverride(ctx, &model.DateOverride{
		Date: testDate, Kind: model.OverrideSpecialHours,
		SpecialStart: ptr("12:00"), SpecialEnd: ptr("15:00"),
	}))

	got, err := s.Reservation(ctx, res.Reservation.ID)
	require.NoError(t, err)
	assert.Nil(t, got.TimeSlotID)
	assert.True(t, got.SpecialHours)
	require.NotNil(t, got.SpecialStart)
	assert.Equal(t, "17:00", *got.SpecialStart)
	assert.Equal(t, "21:00", *got.SpecialEnd)
	assert.Equal(t, "17:00 - 21:00", got.TimeLabel())
}

func TestCommitReservation_IdempotencyKeyReplays(t *testing.T) {
	ctx := context.Background()
	s, gormDB := newSQLiteStore(t, 1)
	slot := createSlot(t, s, "18:00", "20:00")

	first := newReservation(testDate, &slot.ID)
	first.IdempotencyKey = ptr("key-1")
	res, err := s.CommitReservation(ctx, first)
	require.NoError(t, err)
	require.False(t, res.Replayed)

	// Retried submit after a timeout: capacity is already exhausted, but the
	// key matches so the original reservation comes back.
	retry := newReservation(testDate, &slot.ID)
	retry.IdempotencyKey = ptr("key-1")
	replayed, err := s.CommitReservation(ctx, retry)
	require.NoError(t, err)
	assert.True(t, replayed.Replayed)
	assert.Equal(t, res.Reservation.ID, replayed.Reservation.ID)
	assert.Equal(t, 1, ledger(t, gormDB, testDate, model.SlotLedgerKey(slot.ID)))

	other := newReservation(testDate, &slot.ID)
	other.IdempotencyKey = ptr("key-2")
	_, err = s.CommitReservation(ctx, other)
	assert.ErrorIs(t, err, ErrSlotUnavailable)
}

func TestCommitReservation_IdempotencyKeyReusedForOtherBooking(t *testing.T) {
	ctx := context.Background()
	s, gormDB := newSQLiteStore(t, 5)
	slot := createSlot(t, s, "18:00", "20:00")
	later := createSlot(t, s, "20:00", "22:00")

	first := newReservation(testDate, &slot.ID)
	first.IdempotencyKey = ptr("key-1")
	_, err := s.CommitReservation(ctx, first)
	require.NoError(t, err)

	otherSlot := newReservation(testDate, &later.ID)
	otherSlot.IdempotencyKey = ptr("key-1")
	_, err = s.CommitReservation(ctx, otherSlot)
	assert.ErrorIs(t, err, ErrKeyReused)

	otherDate := newReservation("2026-10-21", &slot.ID)
	otherDate.IdempotencyKey = ptr("key-1")
	_, err = s.CommitReservation(ctx, otherDate)
	assert.ErrorIs(t, err, ErrKeyReused)

	special := specialReservation(testDate)
	special.IdempotencyKey = ptr("key-1")
	_, err = s.CommitReservation(ctx, special)
	assert.ErrorIs(t, err, ErrKeyReused)

	assert.Equal(t, 1, ledger(t, gormDB, testDate, model.SlotLedgerKey(slot.ID)))
	assert.Equal(t, 0, ledger(t, gormDB, testDate, model.SlotLedgerKey(later.ID)))
	assert.Equal(t, 0, ledger(t, gormDB, "2026-10-21", model.SlotLedgerKey(slot.ID)))
}

func TestTransitionReservation(t *testing.T) {
	ctx := context.Background()
	s, gormDB := newSQLiteStore(t, 1)
	slot := createSlot(t, s, "18:00", "20:00")

	res, err := s.CommitReservation(ctx, newReservation(testDate, &slot.ID))
	require.NoError(t, err)
	id := res.Reservation.ID

	got, changed, err := s.TransitionReservation(ctx, id, model.StatusCompleted)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, model.StatusCompleted, got.Status)
	assert.Equal(t, 0, ledger(t, gormDB, testDate, model.SlotLedgerKey(slot.ID)))

	again, changed, err := s.TransitionReservation(ctx, id, model.StatusCompleted)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, model.StatusCompleted, again.Status)
	assert.Equal(t, got.UpdatedAt, again.UpdatedAt)
	assert.Equal(t, 0, ledger(t, gormDB, testDate, model.SlotLedgerKey(slot.ID)), "no double release")

	_, _, err = s.TransitionReservation(ctx, id, model.StatusCancelled)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, _, err = s.TransitionReservation(ctx, id, model.StatusConfirmed)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, _, err = s.TransitionReservation(ctx, 9999, model.StatusCancelled)
	assert.ErrorIs(t, err, ErrNotFound)

	// The released unit can be booked again.
	_, err = s.CommitReservation(ctx, newReservation(testDate, &slot.ID))
	assert.NoError(t, err)
}

func TestAvailabilityReads(t *testing.T) {
	ctx := context.Background()
	s, _ := newSQLiteStore(t, 1)
	slotA := createSlot(t, s, "18:00", "20:00")
	slotB := createSlot(t, s, "20:00", "22:00")

	// Oct 20: both slots booked, fully booked.
	for _, id := range []int64{slotA.ID, slotB.ID} {
		_, err := s.CommitReservation(ctx, newReservation("2026-10-20", ptr(id)))
		require.NoError(t, err)
	}
	// Oct 21: slot B disabled, slot A booked, fully booked.
	require.NoError(t, s.SetOverride(ctx, &model.DateOverride{
		Date: "2026-10-21", Kind: model.OverrideDisabledSlots,
		DisabledSlots: []model.OverrideDisabledSlot{{TimeSlotID: slotB.ID}, {TimeSlotID: slotB.ID}},
	}))
	_, err := s.CommitReservation(ctx, newReservation("2026-10-21", &slotA.ID))
	require.NoError(t, err)
	// Oct 22: one slot of two booked, open.
	_, err = s.CommitReservation(ctx, newReservation("2026-10-22", &slotA.ID))
	require.NoError(t, err)
	// Oct 23: special hours booked out.
	require.NoError(t, s.SetOverride(ctx, &model.DateOverride{
		Date: "2026-10-23", Kind: model.OverrideSpecialHours,
		SpecialStart: ptr("17:00"), SpecialEnd: ptr("21:00"),
	}))
	_, err = s.CommitReservation(ctx, specialReservation("2026-10-23"))
	require.NoError(t, err)
	// Oct 24: booked out, then closed afterwards; closed is reported instead.
	for _, id := range []int64{slotA.ID, slotB.ID} {
		_, err := s.CommitReservation(ctx, newReservation("2026-10-24", ptr(id)))
		require.NoError(t, err)
	}
	require.NoError(t, s.SetOverride(ctx, &model.DateOverride{Date: "2026-10-24", Kind: model.OverrideClosed}))
	// November data does not leak into October.
	require.NoError(t, s.SetOverride(ctx, &model.DateOverride{Date: "2026-11-01", Kind: model.OverrideClosed}))

	full, err := s.FullyBookedDays(ctx, time.October, 2026)
	require.NoError(t, err)
	assert.Equal(t, []int{20, 21, 23}, full)

	closed, err := s.ClosedDays(ctx, time.October, 2026)
	require.NoError(t, err)
	assert.Equal(t, []int{24}, closed)

	special, err := s.SpecialHoursDays(ctx, time.October, 2026)
	require.NoError(t, err)
	assert.Equal(t, []SpecialDay{{Day: 23, Start: "17:00", End: "21:00"}}, special)

	disabled, err := s.DisabledSlots(ctx, "2026-10-21")
	require.NoError(t, err)
	assert.Equal(t, []int64{slotB.ID}, disabled)

	disabled, err = s.DisabledSlots(ctx, "2026-10-22")
	require.NoError(t, err)
	assert.Empty(t, disabled)

	occupied, err := s.OccupiedSlots(ctx, "2026-10-22")
	require.NoError(t, err)
	assert.Equal(t, []int64{slotA.ID}, occupied)

	empty, err := s.FullyBookedDays(ctx, time.December, 2026)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestOverrides(t *testing.T) {
	ctx := context.Background()
	s, _ := newSQLiteStore(t, 1)
	slot := createSlot(t, s, "18:00", "20:00")

	ov, err := s.Override(ctx, testDate)
	require.NoError(t, err)
	assert.Nil(t, ov)

	require.NoError(t, s.SetOverride(ctx, &model.DateOverride{
		Date: testDate, Kind: model.OverrideDisabledSlots,
		DisabledSlots: []model.OverrideDisabledSlot{{TimeSlotID: slot.ID}},
	}))
	require.NoError(t, s.SetOverride(ctx, &model.DateOverride{Date: testDate, Kind: model.OverrideClosed}))

	ov, err = s.Override(ctx, testDate)
	require.NoError(t, err)
	require.NotNil(t, ov)
	assert.Equal(t, model.OverrideClosed, ov.Kind)
	assert.Empty(t, ov.DisabledSlots, "one override per date")

	var leftovers int64
	require.NoError(t, s.DB().Model(&model.OverrideDisabledSlot{}).Count(&leftovers).Error)
	assert.Zero(t, leftovers)

	require.NoError(t, s.ClearOverride(ctx, testDate))
	require.NoError(t, s.ClearOverride(ctx, testDate))
	ov, err = s.Override(ctx, testDate)
	require.NoError(t, err)
	assert.Nil(t, ov)

	err = s.SetOverride(ctx, &model.DateOverride{Date: testDate, Kind: model.OverrideSpecialHours})
	assert.ErrorIs(t, err, ErrInvalidOverride)
	err = s.SetOverride(ctx, &model.DateOverride{Date: testDate, Kind: model.OverrideDisabledSlots})
	assert.ErrorIs(t, err, ErrInvalidOverride)
	err = s.SetOverride(ctx, &model.DateOverride{
		Date: testDate, Kind: model.OverrideDisabledSlots,
		DisabledSlots: []model.OverrideDisabledSlot{{TimeSlotID: 404}},
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTimeSlots(t *testing.T) {
	ctx := context.Background()
	s, _ := newSQLiteStore(t, 1)
	late := createSlot(t, s, "20:00", "22:00")
	early := createSlot(t, s, "12:00", "14:00")
	unused := createSlot(t, s, "15:00", "16:00")

	slots, err := s.TimeSlots(ctx)
	require.NoError(t, err)
	require.Len(t, slots, 3)
	assert.Equal(t, early.ID, slots[0].ID)
	assert.Equal(t, late.ID, slots[2].ID)

	update := model.TimeSlot{ID: unused.ID, StartTime: "15:30", EndTime: "16:30"}
	require.NoError(t, s.UpdateTimeSlot(ctx, &update))
	assert.Equal(t, "15:30", update.StartTime)
	assert.ErrorIs(t, s.UpdateTimeSlot(ctx, &model.TimeSlot{ID: 404, StartTime: "10:00", EndTime: "11:00"}), ErrNotFound)

	res, err := s.CommitReservation(ctx, newReservation(testDate, &late.ID))
	require.NoError(t, err)
	_, _, err = s.TransitionReservation(ctx, res.Reservation.ID, model.StatusCancelled)
	require.NoError(t, err)

	// Even a cancelled reservation keeps the slot alive.
	assert.ErrorIs(t, s.DeleteTimeSlot(ctx, late.ID), ErrSlotInUse)
	assert.NoError(t, s.DeleteTimeSlot(ctx, unused.ID))
	assert.ErrorIs(t, s.DeleteTimeSlot(ctx, unused.ID), ErrNotFound)
}

func TestSettings(t *testing.T) {
	ctx := context.Background()
	s, _ := newSQLiteStore(t, 4)

	// Seeding again keeps the stored values.
	settings, err := s.EnsureSettings(ctx, model.SystemSettings{Capacity: 99, MinGuestSize: 1, MaxGuestSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 4, settings.Capacity)

	settings.Capacity = 6
	updated, err := s.UpdateSettings(ctx, *settings)
	require.NoError(t, err)
	assert.Equal(t, 6, updated.Capacity)
	assert.Equal(t, 8, updated.MaxGuestSize)
}

func TestRebuildLedger(t *testing.T) {
	ctx := context.Background()
	s, gormDB := newSQLiteStore(t, 3)
	slot := createSlot(t, s, "18:00", "20:00")
	require.NoError(t, s.SetOverride(ctx, &model.DateOverride{
		Date: "2026-10-21", Kind: model.OverrideSpecialHours,
		SpecialStart: ptr("17:00"), SpecialEnd: ptr("21:00"),
	}))

	for i := 0; i < 2; i++ {
		_, err := s.CommitReservation(ctx, newReservation(testDate, &slot.ID))
		require.NoError(t, err)
	}
	res, err := s.CommitReservation(ctx, specialReservation("2026-10-21"))
	require.NoError(t, err)
	_, _, err = s.TransitionReservation(ctx, res.Reservation.ID, model.StatusCancelled)
	require.NoError(t, err)

	require.NoError(t, gormDB.Model(&model.SlotLedger{}).Where("1 = 1").UpdateColumn("booked", 3).Error)
	require.NoError(t, s.RebuildLedger(ctx))

	assert.Equal(t, 2, ledger(t, gormDB, testDate, model.SlotLedgerKey(slot.ID)))
	assert.Equal(t, 0, ledger(t, gormDB, "2026-10-21", model.SpecialLedgerKey))
}

func TestDashboardCounters(t *testing.T) {
	ctx := context.Background()
	s, _ := newSQLiteStore(t, 5)
	slot := createSlot(t, s, "18:00", "20:00")

	var ids []int64
	for i := 0; i < 3; i++ {
		res, err := s.CommitReservation(ctx, newReservation(testDate, &slot.ID))
		require.NoError(t, err)
		ids = append(ids, res.Reservation.ID)
	}
	_, _, err := s.TransitionReservation(ctx, ids[0], model.StatusCompleted)
	require.NoError(t, err)
	_, _, err = s.TransitionReservation(ctx, ids[1], model.StatusCancelled)
	require.NoError(t, err)

	counters, err := s.DashboardCounters(ctx, testDate)
	require.NoError(t, err)
	assert.Equal(t, &DashboardCounters{Date: testDate, Confirmed: 1, Completed: 1, Cancelled: 1, ActiveGuests: 2}, counters)

	list, err := s.Reservations(ctx, ReservationFilter{Date: testDate, Status: model.StatusConfirmed})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, ids[2], list[0].ID)
	require.NotNil(t, list[0].TimeSlot)
	assert.Equal(t, "18:00 - 20:00", list[0].TimeLabel())
}

func TestReminders(t *testing.T) {
	ctx := context.Background()
	s, _ := newSQLiteStore(t, 5)
	slot := createSlot(t, s, "18:00", "20:00")

	due, err := s.CommitReservation(ctx, newReservation(testDate, &slot.ID))
	require.NoError(t, err)
	_, err = s.CommitReservation(ctx, newReservation("2026-10-25", &slot.ID))
	require.NoError(t, err)

	list, err := s.DueReminders(ctx, "2026-10-19", "2026-10-20")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, due.Reservation.ID, list[0].ID)

	now := time.Date(2026, time.October, 19, 18, 0, 0, 0, time.UTC)
	claimed, err := s.ClaimReminder(ctx, due.Reservation.ID, now)
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = s.ClaimReminder(ctx, due.Reservation.ID, now)
	require.NoError(t, err)
	assert.False(t, claimed)

	list, err = s.DueReminders(ctx, "2026-10-19", "2026-10-20")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSubscriptions(t *testing.T) {
	ctx := context.Background()
	s, _ := newSQLiteStore(t, 1)

	sub := &model.PushSubscription{Endpoint: "https://push.example/1", P256DH: "k1", Auth: "a1"}
	require.NoError(t, s.UpsertSubscription(ctx, sub))
	require.NoError(t, s.UpsertSubscription(ctx, &model.PushSubscription{Endpoint: "https://push.example/1", P256DH: "k2", Auth: "a2"}))

	got, err := s.Subscription(ctx, "https://push.example/1")
	require.NoError(t, err)
	assert.Equal(t, "k2", got.P256DH)

	all, err := s.Subscriptions(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, s.DeleteSubscription(ctx, "https://push.example/1"))
	_, err = s.Subscription(ctx, "https://push.example/1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormStore_ClaimReminderSQL(t *testing.T) {
	gormDB, mock := newMockDB(t)
	s := NewGormStore(gormDB, zerolog.Nop())
	at := time.Date(2026, time.October, 19, 18, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "reservations" SET "reminder_sent_at"=\$1 WHERE id = \$2 AND reminder_sent_at IS NULL`).
		WithArgs(at, 7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "reservations" SET "reminder_sent_at"=\$1 WHERE id = \$2 AND reminder_sent_at IS NULL`).
		WithArgs(at, 7).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	claimed, err := s.ClaimReminder(context.Background(), 7, at)
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = s.ClaimReminder(context.Background(), 7, at)
	require.NoError(t, err)
	assert.False(t, claimed)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_CommitRejectsWhenLedgerFull(t *testing.T) {
	gormDB, mock := newMockDB(t)
	s := NewGormStore(gormDB, zerolog.Nop())

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "system_settings" WHERE "system_settings"."id" = \$1`).
		WithArgs(1, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "capacity"}).AddRow(1, 2))
	mock.ExpectQuery(`SELECT \* FROM "date_overrides" WHERE date = \$1`).
		WithArgs(testDate, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "date", "kind"}))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "time_slots" WHERE id = \$1`).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectExec(`INSERT INTO "slot_ledgers" .* ON CONFLICT DO NOTHING`).
		WithArgs(testDate, "slot:3", 0).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`UPDATE "slot_ledgers" SET "booked"=booked \+ 1 WHERE reservation_date = \$1 AND slot_key = \$2 AND booked < \$3`).
		WithArgs(testDate, "slot:3", 2).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := s.CommitReservation(context.Background(), newReservation(testDate, ptr(int64(3))))
	assert.ErrorIs(t, err, ErrSlotUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Any is a helper for sqlmock to match any argument.
type Any struct{}

// Match satisfies the sqlmock.Argument interface
func (a Any) Match(v driver.Value) bool {
	return true
}
