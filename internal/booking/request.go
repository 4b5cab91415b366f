// Package booking holds the client-side half of the booking flow: the wire
// payload of a reservation request, its validator, and the immutable booking
// draft with the reducer that drives it.
package booking

import (
	"strings"

	"restaurant-booking-backend/internal/calendar"
)

// Flow identifies who is creating the reservation.
type Flow string

const (
	// FlowGuest is the public booking page.
	FlowGuest Flow = "guest"
	// FlowStaff is the staff quick-reservation screen.
	FlowStaff Flow = "staff"
)

// Rules are the settings-derived bounds every request is checked against.
type Rules struct {
	MinGuests      int
	MaxGuests      int
	MaxAdvanceDays int
}

// Request is the create-reservation payload. Exactly one of TimeSlotID and
// SpecialHours must be set.
type Request struct {
	Date            string `json:"reservation_date" validate:"required,datestr"`
	TimeSlotID      *int64 `json:"time_slot_id,omitempty" validate:"omitempty,gt=0"`
	SpecialHours    bool   `json:"special_hours"`
	GuestCount      int    `json:"guest_count"`
	FirstName       string `json:"first_name" validate:"required,max=100,personname"`
	LastName        string `json:"last_name" validate:"required,max=100,personname"`
	Email           string `json:"email" validate:"omitempty,max=254,basicemail"`
	Phone           string `json:"phone" validate:"required,phone"`
	SpecialRequests string `json:"special_requests" validate:"max=1000"`
	IdempotencyKey  string `json:"idempotency_key,omitempty" validate:"omitempty,max=128"`
}

// Selection returns the slot part of the request.
func (r Request) Selection() calendar.Selection {
	if r.SpecialHours {
		return calendar.SpecialSelection
	}
	if r.TimeSlotID != nil {
		return calendar.SlotSelection(*r.TimeSlotID)
	}
	return calendar.Selection{}
}

// Sanitize trims every free-text field and collapses runs of whitespace
// inside names.
func Sanitize(r Request) Request {
	r.Date = strings.TrimSpace(r.Date)
	r.FirstName = collapseSpaces(r.FirstName)
	r.LastName = collapseSpaces(r.LastName)
	r.Email = strings.TrimSpace(r.Email)
	r.Phone = strings.TrimSpace(r.Phone)
	r.SpecialRequests = strings.TrimSpace(r.SpecialRequests)
	r.IdempotencyKey = strings.TrimSpace(r.IdempotencyKey)
	return r
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
