package store

import (
	"errors"

	"restaurant-booking-backend/internal/model"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrDateClosed        = errors.New("date is closed")
	ErrSlotDisabled      = errors.New("time slot is disabled on this date")
	ErrSlotUnavailable   = errors.New("time slot is at capacity")
	ErrSlotNotOffered    = errors.New("selection is not offered on this date")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrSlotInUse         = errors.New("time slot is referenced by reservations")
	ErrInvalidOverride   = errors.New("invalid date override")
	ErrKeyReused         = errors.New("idempotency key already used for a different booking")
)

// SpecialDay is one special-hours day of a month.
type SpecialDay struct {
	Day   int    `json:"day"`
	Start string `json:"special_start"`
	End   string `json:"special_end"`
}

// CommitResult is the outcome of a successful commit.
type CommitResult struct {
	Reservation *model.Reservation
	// Replayed is set when the idempotency key matched an earlier commit and
	// no capacity was consumed.
	Replayed bool
}

// ReservationFilter narrows reservation listings. Zero fields match all.
type ReservationFilter struct {
	Date   string
	Status model.ReservationStatus
	Limit  int
}

// DashboardCounters summarizes one date for the staff dashboard.
type DashboardCounters struct {
	Date         string `json:"date"`
	Pending      int    `json:"pending"`
	Confirmed    int    `json:"confirmed"`
	Completed    int    `json:"completed"`
	Cancelled    int    `json:"cancelled"`
	ActiveGuests int    `json:"active_guests"`
}

// slotCount is one (date, bucket) active reservation count.
type slotCount struct {
	ReservationDate string
	TimeSlotID      *int64
	SpecialHours    bool
	Booked          int
}

func activeStatuses() []string {
	out := make([]string, 0, len(model.ActiveStatuses))
	for _, s := range model.ActiveStatuses {
		out = append(out, string(s))
	}
	return out
}
