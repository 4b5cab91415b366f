package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"restaurant-booking-backend/internal/apperr"
	"restaurant-booking-backend/internal/model"
	"restaurant-booking-backend/internal/store"
)

type deviceRequest struct {
	Endpoint string `json:"endpoint" binding:"required,url"`
	Keys     struct {
		P256DH string `json:"p256dh" binding:"required"`
		Auth   string `json:"auth" binding:"required"`
	} `json:"keys"`
	Label string `json:"label" binding:"max=80"`
}

// RegisterDevice stores the push subscription of a staff browser so it
// receives dashboard counter updates. Registering a known endpoint again
// refreshes its keys and label.
func (h *Handler) RegisterDevice(c *gin.Context) {
	var req deviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, apperr.Validation("Invalid push subscription", map[string]any{"error": err.Error()}))
		return
	}

	device := model.PushSubscription{
		Endpoint: req.Endpoint,
		P256DH:   req.Keys.P256DH,
		Auth:     req.Keys.Auth,
		Label:    req.Label,
	}
	if err := h.store.UpsertSubscription(c.Request.Context(), &device); err != nil {
		h.respondError(c, apperr.Internal("Failed to register device", err))
		return
	}
	h.log.Info().Str("label", device.Label).Msg("staff device registered")

	c.JSON(http.StatusCreated, gin.H{"success": true, "device": device})
}

// UnregisterDevice stops pushes to the endpoint given in the query string.
// Unknown endpoints are not an error.
func (h *Handler) UnregisterDevice(c *gin.Context) {
	endpoint := c.Query("endpoint")
	if endpoint == "" {
		h.respondError(c, apperr.InvalidInput("endpoint is required"))
		return
	}
	if err := h.store.DeleteSubscription(c.Request.Context(), endpoint); err != nil {
		h.respondError(c, apperr.Internal("Failed to unregister device", err))
		return
	}
	c.Status(http.StatusNoContent)
}

// ListDevices returns every registered staff device, or the single device
// matching ?endpoint=.
func (h *Handler) ListDevices(c *gin.Context) {
	ctx := c.Request.Context()
	if endpoint := c.Query("endpoint"); endpoint != "" {
		device, err := h.store.Subscription(ctx, endpoint)
		if errors.Is(err, store.ErrNotFound) {
			h.readError(c, apperr.NotFound("Device"))
			return
		}
		if err != nil {
			h.readError(c, apperr.Internal("Failed to load device", err))
			return
		}
		c.JSON(http.StatusOK, device)
		return
	}

	devices, err := h.store.Subscriptions(ctx)
	if err != nil {
		h.readError(c, apperr.Internal("Failed to list devices", err))
		return
	}
	if devices == nil {
		devices = []model.PushSubscription{}
	}
	c.JSON(http.StatusOK, devices)
}

// GetPushKey returns the VAPID application server key.
func (h *Handler) GetPushKey(c *gin.Context) {
	if h.webpush == nil || h.webpush.VAPIDPublicKey == "" {
		h.readError(c, apperr.Unavailable("Dashboard push"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"public_key": h.webpush.VAPIDPublicKey})
}
