package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"restaurant-booking-backend/internal/apperr"
	"restaurant-booking-backend/internal/parse"
	"restaurant-booking-backend/internal/store"
)

type dayEntry struct {
	Day int `json:"day"`
}

type slotEntry struct {
	SlotID int64 `json:"slot_id"`
}

func days(in []int) []dayEntry {
	out := make([]dayEntry, 0, len(in))
	for _, d := range in {
		out = append(out, dayEntry{Day: d})
	}
	return out
}

func slots(in []int64) []slotEntry {
	out := make([]slotEntry, 0, len(in))
	for _, id := range in {
		out = append(out, slotEntry{SlotID: id})
	}
	return out
}

// GetFullyBookedDates handles GET /api/availability/fully-booked-dates.
func (h *Handler) GetFullyBookedDates(c *gin.Context) {
	month, year, err := parse.MonthYear(c.Query("month"), c.Query("year"))
	if err != nil {
		h.readError(c, apperr.InvalidInput(err.Error()))
		return
	}
	out, err := h.store.FullyBookedDays(c.Request.Context(), month, year)
	if err != nil {
		h.readError(c, apperr.Internal("Failed to load fully booked dates", err))
		return
	}
	c.JSON(http.StatusOK, days(out))
}

// GetClosedDates handles GET /api/availability/closed-dates.
func (h *Handler) GetClosedDates(c *gin.Context) {
	month, year, err := parse.MonthYear(c.Query("month"), c.Query("year"))
	if err != nil {
		h.readError(c, apperr.InvalidInput(err.Error()))
		return
	}
	out, err := h.store.ClosedDays(c.Request.Context(), month, year)
	if err != nil {
		h.readError(c, apperr.Internal("Failed to load closed dates", err))
		return
	}
	c.JSON(http.StatusOK, days(out))
}

// GetSpecialHoursDates handles GET /api/availability/special-hours-dates.
func (h *Handler) GetSpecialHoursDates(c *gin.Context) {
	month, year, err := parse.MonthYear(c.Query("month"), c.Query("year"))
	if err != nil {
		h.readError(c, apperr.InvalidInput(err.Error()))
		return
	}
	out, err := h.store.SpecialHoursDays(c.Request.Context(), month, year)
	if err != nil {
		h.readError(c, apperr.Internal("Failed to load special hours dates", err))
		return
	}
	if out == nil {
		out = []store.SpecialDay{}
	}
	c.JSON(http.StatusOK, out)
}

// GetOccupiedTimeSlots handles GET /api/availability/occupied-time-slots.
func (h *Handler) GetOccupiedTimeSlots(c *gin.Context) {
	date, err := parse.Date(c.Query("date"))
	if err != nil {
		h.readError(c, apperr.InvalidInput(err.Error()))
		return
	}
	out, err := h.store.OccupiedSlots(c.Request.Context(), parse.FormatDate(date))
	if err != nil {
		h.readError(c, apperr.Internal("Failed to load occupied time slots", err))
		return
	}
	c.JSON(http.StatusOK, slots(out))
}

// GetDisabledTimeSlots handles GET /api/availability/disabled-time-slots.
func (h *Handler) GetDisabledTimeSlots(c *gin.Context) {
	date, err := parse.Date(c.Query("date"))
	if err != nil {
		h.readError(c, apperr.InvalidInput(err.Error()))
		return
	}
	out, err := h.store.DisabledSlots(c.Request.Context(), parse.FormatDate(date))
	if err != nil {
		h.readError(c, apperr.Internal("Failed to load disabled time slots", err))
		return
	}
	c.JSON(http.StatusOK, slots(out))
}

// GetTimeSlots handles GET /api/time-slots.
func (h *Handler) GetTimeSlots(c *gin.Context) {
	out, err := h.store.TimeSlots(c.Request.Context())
	if err != nil {
		h.readError(c, apperr.Internal("Failed to load time slots", err))
		return
	}
	c.JSON(http.StatusOK, out)
}

// GetSettings handles GET /api/settings.
func (h *Handler) GetSettings(c *gin.Context) {
	settings, err := h.store.Settings(c.Request.Context())
	if err != nil {
		h.readError(c, apperr.Internal("Failed to load settings", err))
		return
	}
	c.JSON(http.StatusOK, settings)
}
