package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"restaurant-booking-backend/internal/apperr"
	"restaurant-booking-backend/internal/store"
)

// failure is the body of a rejected reservation or admin request.
type failure struct {
	Success bool           `json:"success"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// respondError writes err in the {success: false, ...} contract.
func (h *Handler) respondError(c *gin.Context, err error) {
	appErr := apperr.AsAppError(err)
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	}
	c.AbortWithStatusJSON(appErr.HTTPStatus, failure{
		Code:    appErr.Code,
		Message: appErr.Message,
		Details: appErr.Details,
	})
}

// readError writes err in the {error: message} shape of read endpoints.
func (h *Handler) readError(c *gin.Context, err error) {
	appErr := apperr.AsAppError(err)
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	}
	c.AbortWithStatusJSON(appErr.HTTPStatus, gin.H{"error": appErr.Message})
}

// scheduleError maps store errors of the admin schedule operations.
func scheduleError(err error, resource string) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return apperr.NotFound(resource)
	case errors.Is(err, store.ErrSlotInUse):
		return apperr.SlotInUse(err)
	case errors.Is(err, store.ErrInvalidOverride):
		return apperr.Validation(err.Error(), nil)
	}
	return apperr.Internal("Failed to update schedule", err)
}
