package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"restaurant-booking-backend/internal/apperr"
	"restaurant-booking-backend/internal/booking"
	"restaurant-booking-backend/internal/model"
	"restaurant-booking-backend/internal/notification"
	"restaurant-booking-backend/internal/parse"
	"restaurant-booking-backend/internal/store"
)

// IdempotencyHeader carries the client's idempotency key for reservation
// creates. A key in the body takes precedence.
const IdempotencyHeader = "Idempotency-Key"

type reservationResponse struct {
	Success     bool               `json:"success"`
	Message     string             `json:"message,omitempty"`
	Replayed    bool               `json:"replayed,omitempty"`
	Reservation *model.Reservation `json:"reservation,omitempty"`
}

// CreateReservation handles POST /api/reservations (guest booking page).
func (h *Handler) CreateReservation(c *gin.Context) {
	h.createReservation(c, booking.FlowGuest)
}

// CreateStaffReservation handles POST /api/staff/reservations (quick reservation).
func (h *Handler) CreateStaffReservation(c *gin.Context) {
	h.createReservation(c, booking.FlowStaff)
}

func (h *Handler) createReservation(c *gin.Context, flow booking.Flow) {
	var req booking.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, apperr.InvalidInput("Invalid request body"))
		return
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = strings.TrimSpace(c.GetHeader(IdempotencyHeader))
	}

	r, replayed, err := h.reservations.Create(c.Request.Context(), req, flow)
	if err != nil {
		h.respondError(c, err)
		return
	}

	status := http.StatusCreated
	if replayed {
		status = http.StatusOK
	}
	c.JSON(status, reservationResponse{Success: true, Replayed: replayed, Reservation: r})
}

func reservationID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.InvalidInput("Invalid reservation ID")
	}
	return id, nil
}

// GetReservation handles GET /api/reservations/:id.
func (h *Handler) GetReservation(c *gin.Context) {
	id, err := reservationID(c)
	if err != nil {
		h.readError(c, err)
		return
	}
	r, err := h.reservations.Get(c.Request.Context(), id)
	if err != nil {
		h.readError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// ListReservations handles GET /api/reservations?date&status&limit.
func (h *Handler) ListReservations(c *gin.Context) {
	filter := store.ReservationFilter{
		Date:   c.Query("date"),
		Status: model.ReservationStatus(c.Query("status")),
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			h.readError(c, apperr.InvalidInput("Invalid limit"))
			return
		}
		filter.Limit = limit
	}

	out, err := h.reservations.List(c.Request.Context(), filter)
	if err != nil {
		h.readError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// CompleteReservation handles PATCH /api/reservations/:id/complete.
func (h *Handler) CompleteReservation(c *gin.Context) {
	h.transition(c, model.StatusCompleted)
}

// CancelReservation handles PATCH /api/reservations/:id/cancel.
func (h *Handler) CancelReservation(c *gin.Context) {
	h.transition(c, model.StatusCancelled)
}

func (h *Handler) transition(c *gin.Context, to model.ReservationStatus) {
	id, err := reservationID(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	var (
		r       *model.Reservation
		changed bool
	)
	if to == model.StatusCompleted {
		r, changed, err = h.reservations.Complete(c.Request.Context(), id)
	} else {
		r, changed, err = h.reservations.Cancel(c.Request.Context(), id)
	}
	if err != nil {
		h.respondError(c, err)
		return
	}

	resp := reservationResponse{Success: true, Reservation: r}
	if !changed {
		resp.Message = "Reservation is already " + string(to) + "."
	}
	c.JSON(http.StatusOK, resp)
}

type confirmationRequest struct {
	FirstName       string `json:"first_name" binding:"required"`
	LastName        string `json:"last_name"`
	Email           string `json:"email" binding:"required"`
	Phone           string `json:"phone"`
	Date            string `json:"reservation_date" binding:"required"`
	Time            string `json:"time" binding:"required"`
	GuestCount      int    `json:"guest_count" binding:"required,gt=0"`
	SpecialRequests string `json:"special_requests"`
}

// SendReservationConfirmation handles POST /api/send-reservation-confirmation.
// The confirmation is queued and the call returns at once.
func (h *Handler) SendReservationConfirmation(c *gin.Context) {
	var req confirmationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, apperr.InvalidInput("Invalid request body"))
		return
	}
	if _, err := parse.Date(req.Date); err != nil {
		h.respondError(c, apperr.InvalidInput(err.Error()))
		return
	}

	if h.notices != nil {
		h.notices.NotifyNotice(notification.Notice{
			FirstName:       req.FirstName,
			LastName:        req.LastName,
			Email:           req.Email,
			Phone:           req.Phone,
			Date:            req.Date,
			Time:            req.Time,
			GuestCount:      req.GuestCount,
			SpecialRequests: req.SpecialRequests,
		})
	}
	c.JSON(http.StatusAccepted, gin.H{"success": true})
}

// GetDashboardCounters handles GET /api/dashboard/counters?date. The date
// defaults to today.
func (h *Handler) GetDashboardCounters(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		date = parse.FormatDate(h.reservations.Today())
	}
	counters, err := h.reservations.Counters(c.Request.Context(), date)
	if err != nil {
		h.readError(c, err)
		return
	}
	c.JSON(http.StatusOK, counters)
}
