package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name:     "without underlying error",
			appErr:   NotFound("reservation"),
			expected: "NOT_FOUND: reservation not found",
		},
		{
			name:     "with underlying error",
			appErr:   Internal("internal error", errors.New("database connection failed")),
			expected: "INTERNAL_ERROR: internal error (caused by: database connection failed)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.appErr.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	sentinel := errors.New("slot is full")
	appErr := SlotUnavailable(sentinel)

	assert.ErrorIs(t, appErr, sentinel)
	assert.Equal(t, http.StatusConflict, appErr.StatusCode())
	assert.Equal(t, CodeSlotUnavailable, appErr.Code)
	assert.True(t, strings.Contains(appErr.Message, "unavailable"))
}

func TestAsAppError(t *testing.T) {
	appErr := DateClosed(nil)
	wrapped := fmt.Errorf("create reservation: %w", appErr)

	assert.True(t, IsAppError(wrapped))
	assert.Same(t, appErr, AsAppError(wrapped))

	plain := errors.New("boom")
	assert.False(t, IsAppError(plain))
	got := AsAppError(plain)
	assert.Equal(t, CodeInternal, got.Code)
	assert.Equal(t, http.StatusInternalServerError, got.HTTPStatus)
	assert.ErrorIs(t, got, plain)
}

func TestWithDetails(t *testing.T) {
	appErr := Validation("invalid reservation", nil).WithDetails(map[string]any{"field": "email"})
	assert.Equal(t, "email", appErr.Details["field"])
	assert.Equal(t, http.StatusUnprocessableEntity, appErr.HTTPStatus)
}
