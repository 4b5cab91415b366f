package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"restaurant-booking-backend/internal/apperr"
	"restaurant-booking-backend/internal/model"
	"restaurant-booking-backend/internal/parse"
)

type timeSlotRequest struct {
	StartTime string `json:"start_time" binding:"required"`
	EndTime   string `json:"end_time" binding:"required"`
}

func bindTimeSlot(c *gin.Context) (*model.TimeSlot, error) {
	var req timeSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, apperr.InvalidInput("start_time and end_time are required")
	}
	start, end, err := parse.Window(req.StartTime, req.EndTime)
	if err != nil {
		return nil, apperr.Validation(err.Error(), nil)
	}
	return &model.TimeSlot{StartTime: start, EndTime: end}, nil
}

func slotID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.InvalidInput("Invalid time slot ID")
	}
	return id, nil
}

// CreateTimeSlot handles POST /api/admin/time-slots.
func (h *Handler) CreateTimeSlot(c *gin.Context) {
	slot, err := bindTimeSlot(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if err := h.store.CreateTimeSlot(c.Request.Context(), slot); err != nil {
		h.respondError(c, scheduleError(err, "Time slot"))
		return
	}
	c.JSON(http.StatusCreated, slot)
}

// UpdateTimeSlot handles PUT /api/admin/time-slots/:id.
func (h *Handler) UpdateTimeSlot(c *gin.Context) {
	id, err := slotID(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	slot, err := bindTimeSlot(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	slot.ID = id
	if err := h.store.UpdateTimeSlot(c.Request.Context(), slot); err != nil {
		h.respondError(c, scheduleError(err, "Time slot"))
		return
	}
	c.JSON(http.StatusOK, slot)
}

// DeleteTimeSlot handles DELETE /api/admin/time-slots/:id.
func (h *Handler) DeleteTimeSlot(c *gin.Context) {
	id, err := slotID(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if err := h.store.DeleteTimeSlot(c.Request.Context(), id); err != nil {
		h.respondError(c, scheduleError(err, "Time slot"))
		return
	}
	c.Status(http.StatusNoContent)
}

// overrideKindNormal clears a date's override.
const overrideKindNormal = "normal"

type dateOverrideRequest struct {
	Kind            string  `json:"kind" binding:"required"`
	SpecialStart    string  `json:"special_start"`
	SpecialEnd      string  `json:"special_end"`
	DisabledSlotIDs []int64 `json:"disabled_slot_ids"`
}

type dateOverrideResponse struct {
	Date            string  `json:"date"`
	Kind            string  `json:"kind"`
	SpecialStart    *string `json:"special_start,omitempty"`
	SpecialEnd      *string `json:"special_end,omitempty"`
	DisabledSlotIDs []int64 `json:"disabled_slot_ids,omitempty"`
}

func overrideResponse(date string, o *model.DateOverride) dateOverrideResponse {
	if o == nil {
		return dateOverrideResponse{Date: date, Kind: overrideKindNormal}
	}
	return dateOverrideResponse{
		Date:            o.Date,
		Kind:            string(o.Kind),
		SpecialStart:    o.SpecialStart,
		SpecialEnd:      o.SpecialEnd,
		DisabledSlotIDs: o.DisabledSlotIDs(),
	}
}

func overrideDate(c *gin.Context) (string, error) {
	d, err := parse.Date(c.Param("date"))
	if err != nil {
		return "", apperr.InvalidInput(err.Error())
	}
	return parse.FormatDate(d), nil
}

// GetDateOverride handles GET /api/admin/date-overrides/:date.
func (h *Handler) GetDateOverride(c *gin.Context) {
	date, err := overrideDate(c)
	if err != nil {
		h.readError(c, err)
		return
	}
	o, err := h.store.Override(c.Request.Context(), date)
	if err != nil {
		h.readError(c, apperr.Internal("Failed to load date override", err))
		return
	}
	c.JSON(http.StatusOK, overrideResponse(date, o))
}

// PutDateOverride handles PUT /api/admin/date-overrides/:date. Kind
// "normal" removes the override. Reservations already on the date are kept.
func (h *Handler) PutDateOverride(c *gin.Context) {
	date, err := overrideDate(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	var req dateOverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, apperr.InvalidInput("kind is required"))
		return
	}

	o := &model.DateOverride{Date: date, Kind: model.OverrideKind(req.Kind)}
	switch o.Kind {
	case overrideKindNormal:
		if err := h.store.ClearOverride(c.Request.Context(), date); err != nil {
			h.respondError(c, scheduleError(err, "Date override"))
			return
		}
		c.JSON(http.StatusOK, overrideResponse(date, nil))
		return
	case model.OverrideSpecialHours:
		start, end, err := parse.Window(req.SpecialStart, req.SpecialEnd)
		if err != nil {
			h.respondError(c, apperr.Validation(err.Error(), nil))
			return
		}
		o.SpecialStart, o.SpecialEnd = &start, &end
	case model.OverrideDisabledSlots:
		for _, id := range req.DisabledSlotIDs {
			o.DisabledSlots = append(o.DisabledSlots, model.OverrideDisabledSlot{TimeSlotID: id})
		}
	case model.OverrideClosed:
	default:
		h.respondError(c, apperr.Validation(fmt.Sprintf("unknown override kind %q", req.Kind), nil))
		return
	}

	if err := h.store.SetOverride(c.Request.Context(), o); err != nil {
		h.respondError(c, scheduleError(err, "Time slot"))
		return
	}
	c.JSON(http.StatusOK, overrideResponse(date, o))
}

// DeleteDateOverride handles DELETE /api/admin/date-overrides/:date.
func (h *Handler) DeleteDateOverride(c *gin.Context) {
	date, err := overrideDate(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if err := h.store.ClearOverride(c.Request.Context(), date); err != nil {
		h.respondError(c, scheduleError(err, "Date override"))
		return
	}
	c.Status(http.StatusNoContent)
}

type settingsRequest struct {
	MaxAdvanceBookingDays int `json:"max_advance_booking_days" binding:"gte=0"`
	MinGuestSize          int `json:"min_guest_size" binding:"gte=1"`
	MaxGuestSize          int `json:"max_guest_size" binding:"gtefield=MinGuestSize"`
	ReminderHours         int `json:"reminder_hours" binding:"gte=0"`
	Capacity              int `json:"capacity" binding:"gte=1"`
}

// PutSettings handles PUT /api/admin/settings.
func (h *Handler) PutSettings(c *gin.Context) {
	var req settingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, apperr.Validation("Invalid settings", map[string]any{"error": err.Error()}))
		return
	}
	settings, err := h.store.UpdateSettings(c.Request.Context(), model.SystemSettings{
		MaxAdvanceBookingDays: req.MaxAdvanceBookingDays,
		MinGuestSize:          req.MinGuestSize,
		MaxGuestSize:          req.MaxGuestSize,
		ReminderHours:         req.ReminderHours,
		Capacity:              req.Capacity,
	})
	if err != nil {
		h.respondError(c, apperr.Internal("Failed to update settings", err))
		return
	}
	c.JSON(http.StatusOK, settings)
}
