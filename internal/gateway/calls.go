package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"restaurant-booking-backend/internal/booking"
	"restaurant-booking-backend/internal/calendar"
	"restaurant-booking-backend/internal/model"
)

// IdempotencyHeader carries the idempotency key of reservation creates.
const IdempotencyHeader = "Idempotency-Key"

// SpecialDay is a day of a month running special hours.
type SpecialDay struct {
	Day int `json:"day"`
	calendar.Window
}

// Counters are the dashboard counters of one date.
type Counters struct {
	Date         string `json:"date"`
	Pending      int    `json:"pending"`
	Confirmed    int    `json:"confirmed"`
	Completed    int    `json:"completed"`
	Cancelled    int    `json:"cancelled"`
	ActiveGuests int    `json:"active_guests"`
}

// Created is the result of a reservation create.
type Created struct {
	Reservation *model.Reservation
	// Replayed is set when the idempotency key matched an earlier commit.
	Replayed bool
}

// Transition is the result of a complete or cancel call.
type Transition struct {
	Reservation *model.Reservation
	// Changed is false when the reservation already had the target status.
	Changed bool
}

// Confirmation is the payload of a confirmation message request.
type Confirmation struct {
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	Date            string `json:"reservation_date"`
	Time            string `json:"time"`
	GuestCount      int    `json:"guest_count"`
	SpecialRequests string `json:"special_requests,omitempty"`
}

type dayEntry struct {
	Day int `json:"day"`
}

type slotEntry struct {
	SlotID int64 `json:"slot_id"`
}

type reservationResponse struct {
	Success     bool               `json:"success"`
	Message     string             `json:"message"`
	Replayed    bool               `json:"replayed"`
	Reservation *model.Reservation `json:"reservation"`
}

func monthQuery(path string, year int, month time.Month) string {
	return fmt.Sprintf("%s?month=%d&year=%d", path, int(month), year)
}

func dayNumbers(in []dayEntry) []int {
	out := make([]int, 0, len(in))
	for _, e := range in {
		out = append(out, e.Day)
	}
	return out
}

func slotIDs(in []slotEntry) []int64 {
	out := make([]int64, 0, len(in))
	for _, e := range in {
		out = append(out, e.SlotID)
	}
	return out
}

// FullyBookedDays lists the days of a month with no capacity left.
func (c *Client) FullyBookedDays(ctx context.Context, year int, month time.Month) ([]int, error) {
	var resp []dayEntry
	if err := c.cachedGet(ctx, monthQuery("/api/availability/fully-booked-dates", year, month), &resp); err != nil {
		return nil, err
	}
	return dayNumbers(resp), nil
}

// ClosedDays lists the closed days of a month.
func (c *Client) ClosedDays(ctx context.Context, year int, month time.Month) ([]int, error) {
	var resp []dayEntry
	if err := c.cachedGet(ctx, monthQuery("/api/availability/closed-dates", year, month), &resp); err != nil {
		return nil, err
	}
	return dayNumbers(resp), nil
}

// SpecialHoursDays lists the special-hours days of a month with their windows.
func (c *Client) SpecialHoursDays(ctx context.Context, year int, month time.Month) ([]SpecialDay, error) {
	var resp []SpecialDay
	if err := c.cachedGet(ctx, monthQuery("/api/availability/special-hours-dates", year, month), &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// OccupiedSlots lists the slot ids of date with no capacity left.
func (c *Client) OccupiedSlots(ctx context.Context, date string) ([]int64, error) {
	var resp []slotEntry
	if err := c.cachedGet(ctx, "/api/availability/occupied-time-slots?date="+url.QueryEscape(date), &resp); err != nil {
		return nil, err
	}
	return slotIDs(resp), nil
}

// DisabledSlots lists the slot ids an override disables on date.
func (c *Client) DisabledSlots(ctx context.Context, date string) ([]int64, error) {
	var resp []slotEntry
	if err := c.cachedGet(ctx, "/api/availability/disabled-time-slots?date="+url.QueryEscape(date), &resp); err != nil {
		return nil, err
	}
	return slotIDs(resp), nil
}

// TimeSlots returns the configured slots.
func (c *Client) TimeSlots(ctx context.Context) ([]calendar.Slot, error) {
	var resp []calendar.Slot
	if err := c.cachedGet(ctx, "/api/time-slots", &resp); err != nil {
		return nil, err
	}
	return calendar.SortSlots(resp), nil
}

// Settings returns the system settings.
func (c *Client) Settings(ctx context.Context) (*model.SystemSettings, error) {
	var resp model.SystemSettings
	if err := c.cachedGet(ctx, "/api/settings", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreateReservation books through the guest endpoint.
func (c *Client) CreateReservation(ctx context.Context, req booking.Request) (*Created, error) {
	return c.create(ctx, "/api/reservations", req)
}

// CreateStaffReservation books through the staff quick-reservation endpoint.
func (c *Client) CreateStaffReservation(ctx context.Context, req booking.Request) (*Created, error) {
	return c.create(ctx, "/api/staff/reservations", req)
}

// create sends one commit. A missing idempotency key is generated so a
// caller resubmitting the same Request is never booked twice.
func (c *Client) create(ctx context.Context, path string, req booking.Request) (*Created, error) {
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = uuid.NewString()
	}
	header := http.Header{}
	header.Set(IdempotencyHeader, req.IdempotencyKey)

	var resp reservationResponse
	if err := c.doJSON(ctx, http.MethodPost, path, req, &resp, header); err != nil {
		return nil, err
	}
	if !resp.Replayed {
		c.invalidate(ctx)
	}
	return &Created{Reservation: resp.Reservation, Replayed: resp.Replayed}, nil
}

// GetReservation loads one reservation.
func (c *Client) GetReservation(ctx context.Context, id int64) (*model.Reservation, error) {
	var resp model.Reservation
	if err := c.doGet(ctx, "/api/reservations/"+strconv.FormatInt(id, 10), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListReservations lists reservations. Empty filters are omitted.
func (c *Client) ListReservations(ctx context.Context, date string, status model.ReservationStatus, limit int) ([]model.Reservation, error) {
	q := url.Values{}
	if date != "" {
		q.Set("date", date)
	}
	if status != "" {
		q.Set("status", string(status))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := "/api/reservations"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var resp []model.Reservation
	if err := c.doGet(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// CompleteReservation marks a reservation completed.
func (c *Client) CompleteReservation(ctx context.Context, id int64) (*Transition, error) {
	return c.transition(ctx, id, "complete")
}

// CancelReservation cancels a reservation.
func (c *Client) CancelReservation(ctx context.Context, id int64) (*Transition, error) {
	return c.transition(ctx, id, "cancel")
}

func (c *Client) transition(ctx context.Context, id int64, action string) (*Transition, error) {
	var resp reservationResponse
	path := fmt.Sprintf("/api/reservations/%d/%s", id, action)
	if err := c.doJSON(ctx, http.MethodPatch, path, nil, &resp, nil); err != nil {
		return nil, err
	}
	changed := resp.Message == ""
	if changed {
		c.invalidate(ctx)
	}
	return &Transition{Reservation: resp.Reservation, Changed: changed}, nil
}

// SendConfirmation queues a confirmation message.
func (c *Client) SendConfirmation(ctx context.Context, msg Confirmation) error {
	return c.doJSON(ctx, http.MethodPost, "/api/send-reservation-confirmation", msg, nil, nil)
}

// Counters returns the dashboard counters of date, or of today when empty.
func (c *Client) Counters(ctx context.Context, date string) (*Counters, error) {
	path := "/api/dashboard/counters"
	if date != "" {
		path += "?date=" + url.QueryEscape(date)
	}
	var resp Counters
	if err := c.doGet(ctx, path, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Health checks the service's readiness endpoint.
func (c *Client) Health(ctx context.Context) error {
	return c.doGet(ctx, "/readyz", nil)
}
