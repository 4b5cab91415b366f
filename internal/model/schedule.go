package model

import (
	"strconv"
	"time"
)

// TimeSlot is a configured booking window shared by all dates.
type TimeSlot struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	StartTime string    `gorm:"size:5;not null" json:"start_time"`
	EndTime   string    `gorm:"size:5;not null" json:"end_time"`
	CreatedAt time.Time `gorm:"not null" json:"-"`
	UpdatedAt time.Time `gorm:"not null" json:"-"`
}

// OverrideKind is the kind of a per-date schedule override.
type OverrideKind string

const (
	OverrideClosed        OverrideKind = "closed"
	OverrideSpecialHours  OverrideKind = "special_hours"
	OverrideDisabledSlots OverrideKind = "disabled_slots"
)

// DateOverride replaces the regular schedule of one date. A date without a
// row is a normal day.
type DateOverride struct {
	ID           int64        `gorm:"primaryKey" json:"-"`
	Date         string       `gorm:"size:10;uniqueIndex;not null" json:"date"`
	Kind         OverrideKind `gorm:"size:16;not null" json:"kind"`
	SpecialStart *string      `gorm:"size:5" json:"special_start,omitempty"`
	SpecialEnd   *string      `gorm:"size:5" json:"special_end,omitempty"`
	CreatedAt    time.Time    `gorm:"not null" json:"-"`
	UpdatedAt    time.Time    `gorm:"not null" json:"-"`

	// Associations
	DisabledSlots []OverrideDisabledSlot `gorm:"foreignKey:OverrideID;constraint:OnDelete:CASCADE" json:"-"`
}

// OverrideDisabledSlot blocks one time slot on the override's date.
type OverrideDisabledSlot struct {
	OverrideID int64 `gorm:"primaryKey"`
	TimeSlotID int64 `gorm:"primaryKey"`
}

// DisabledSlotIDs lists the blocked slot ids.
func (o *DateOverride) DisabledSlotIDs() []int64 {
	ids := make([]int64, 0, len(o.DisabledSlots))
	for _, d := range o.DisabledSlots {
		ids = append(ids, d.TimeSlotID)
	}
	return ids
}

// Disables reports whether slotID is blocked by the override.
func (o *DateOverride) Disables(slotID int64) bool {
	if o.Kind != OverrideDisabledSlots {
		return false
	}
	for _, d := range o.DisabledSlots {
		if d.TimeSlotID == slotID {
			return true
		}
	}
	return false
}

// SystemSettings is the singleton booking configuration row (ID 1).
type SystemSettings struct {
	ID                    int64     `gorm:"primaryKey" json:"-"`
	MaxAdvanceBookingDays int       `gorm:"not null" json:"max_advance_booking_days"`
	MinGuestSize          int       `gorm:"not null" json:"min_guest_size"`
	MaxGuestSize          int       `gorm:"not null" json:"max_guest_size"`
	ReminderHours         int       `gorm:"not null" json:"reminder_hours"`
	Capacity              int       `gorm:"not null" json:"capacity"`
	UpdatedAt             time.Time `gorm:"not null" json:"updated_at"`
}

func (SystemSettings) TableName() string {
	return "system_settings"
}

// SpecialLedgerKey is the ledger bucket of a date's special-hours window.
const SpecialLedgerKey = "special"

// SlotLedgerKey is the ledger bucket of a regular time slot.
func SlotLedgerKey(slotID int64) string {
	return "slot:" + strconv.FormatInt(slotID, 10)
}

// SlotLedger counts active reservations per (date, capacity bucket). The
// commit transaction increments it conditionally, which is what keeps a
// bucket from ever exceeding capacity.
type SlotLedger struct {
	ReservationDate string `gorm:"primaryKey;size:10"`
	SlotKey         string `gorm:"primaryKey;size:32"`
	Booked          int    `gorm:"not null"`
}
