// Package storetest opens throwaway sqlite-backed stores for tests in other
// packages.
package storetest

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"restaurant-booking-backend/internal/db"
	"restaurant-booking-backend/internal/model"
	"restaurant-booking-backend/internal/store"
)

// DefaultSettings are the settings New seeds; Capacity is overridden.
var DefaultSettings = model.SystemSettings{
	MaxAdvanceBookingDays: 30,
	MinGuestSize:          1,
	MaxGuestSize:          8,
	ReminderHours:         24,
}

// New returns a migrated store on a private in-memory database with a
// single connection, seeded with DefaultSettings and the given capacity.
func New(t *testing.T, capacity int) store.Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.Migrate(gormDB))

	s := store.NewGormStore(gormDB, zerolog.Nop())
	settings := DefaultSettings
	settings.Capacity = capacity
	_, err = s.EnsureSettings(context.Background(), settings)
	require.NoError(t, err)
	return s
}

// Slot creates a time slot and returns it.
func Slot(t *testing.T, s store.Store, start, end string) model.TimeSlot {
	t.Helper()
	slot := model.TimeSlot{StartTime: start, EndTime: end}
	require.NoError(t, s.CreateTimeSlot(context.Background(), &slot))
	return slot
}
