package model

import "time"

// ReservationStatus is the lifecycle state of a reservation.
type ReservationStatus string

const (
	StatusPending   ReservationStatus = "pending"
	StatusConfirmed ReservationStatus = "confirmed"
	StatusCompleted ReservationStatus = "completed"
	StatusCancelled ReservationStatus = "cancelled"
)

// ActiveStatuses are the statuses that hold capacity.
var ActiveStatuses = []ReservationStatus{StatusPending, StatusConfirmed}

// Active reports whether the status holds capacity.
func (s ReservationStatus) Active() bool {
	return s == StatusPending || s == StatusConfirmed
}

// Terminal reports whether no further transition is possible.
func (s ReservationStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Reservation is a guest booking for one date and either a time slot or the
// date's special-hours window. Rows are never deleted, only re-statused.
type Reservation struct {
	ID              int64             `gorm:"primaryKey" json:"id"`
	FirstName       string            `gorm:"size:100;not null" json:"first_name"`
	LastName        string            `gorm:"size:100;not null" json:"last_name"`
	Email           string            `gorm:"size:254" json:"email"`
	Phone           string            `gorm:"size:20;not null" json:"phone"`
	GuestCount      int               `gorm:"not null" json:"guest_count"`
	ReservationDate string            `gorm:"size:10;not null;index:idx_reservations_date_status,priority:1" json:"reservation_date"`
	TimeSlotID      *int64            `gorm:"index" json:"time_slot_id"`
	SpecialHours    bool              `gorm:"not null" json:"special_hours"`
	SpecialStart    *string           `gorm:"size:5" json:"special_start,omitempty"`
	SpecialEnd      *string           `gorm:"size:5" json:"special_end,omitempty"`
	SpecialRequests string            `gorm:"type:text" json:"special_requests"`
	Status          ReservationStatus `gorm:"size:16;not null;index:idx_reservations_date_status,priority:2" json:"status"`
	Source          string            `gorm:"size:16;not null" json:"source"`
	IdempotencyKey  *string           `gorm:"size:128;uniqueIndex" json:"-"`
	ReminderSentAt  *time.Time        `json:"reminder_sent_at,omitempty"`
	CreatedAt       time.Time         `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time         `gorm:"not null" json:"updated_at"`

	// Associations
	TimeSlot *TimeSlot `gorm:"constraint:OnDelete:RESTRICT" json:"time_slot,omitempty"`
}

// LedgerKey is the capacity bucket the reservation counts toward.
func (r *Reservation) LedgerKey() string {
	if r.SpecialHours {
		return SpecialLedgerKey
	}
	return SlotLedgerKey(*r.TimeSlotID)
}

// StartTime returns the "HH:MM" start of the booked window, if known.
func (r *Reservation) StartTime() string {
	switch {
	case r.SpecialHours && r.SpecialStart != nil:
		return *r.SpecialStart
	case r.TimeSlot != nil:
		return r.TimeSlot.StartTime
	}
	return ""
}

// TimeLabel renders the booked window as "HH:MM - HH:MM".
func (r *Reservation) TimeLabel() string {
	switch {
	case r.SpecialHours && r.SpecialStart != nil && r.SpecialEnd != nil:
		return *r.SpecialStart + " - " + *r.SpecialEnd
	case r.TimeSlot != nil:
		return r.TimeSlot.StartTime + " - " + r.TimeSlot.EndTime
	}
	return ""
}
