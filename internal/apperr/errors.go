package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeNotFound     = "NOT_FOUND"
	CodeValidation   = "VALIDATION_ERROR"
	CodeConflict     = "CONFLICT"
	CodeInternal     = "INTERNAL_ERROR"
	CodeUnavailable  = "SERVICE_UNAVAILABLE"
	CodeInvalidInput = "INVALID_INPUT"
	CodeRateLimited  = "RATE_LIMITED"

	CodeSlotUnavailable   = "SLOT_UNAVAILABLE"
	CodeDateClosed        = "DATE_CLOSED"
	CodeSlotDisabled      = "SLOT_DISABLED"
	CodeDateUnavailable   = "DATE_UNAVAILABLE"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeSlotInUse         = "SLOT_IN_USE"
)

type AppError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Err        error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) StatusCode() int {
	return e.HTTPStatus
}

func New(code, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

func Wrap(err error, code, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

func (e *AppError) WithDetails(details map[string]any) *AppError {
	e.Details = details
	return e
}

func NotFound(resource string) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
	}
}

func Validation(message string, details map[string]any) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    details,
	}
}

func InvalidInput(message string) *AppError {
	return &AppError{
		Code:       CodeInvalidInput,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Code:       CodeConflict,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

func Internal(message string, err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func Unavailable(service string) *AppError {
	return &AppError{
		Code:       CodeUnavailable,
		Message:    fmt.Sprintf("%s is temporarily unavailable", service),
		HTTPStatus: http.StatusServiceUnavailable,
	}
}

func RateLimited() *AppError {
	return &AppError{
		Code:       CodeRateLimited,
		Message:    "Too many requests, please slow down",
		HTTPStatus: http.StatusTooManyRequests,
	}
}

// SlotUnavailable is the commit-time capacity rejection. Clients re-fetch
// availability and ask the guest to pick again.
func SlotUnavailable(err error) *AppError {
	return Wrap(err, CodeSlotUnavailable,
		"The selected time slot became unavailable. Please choose another time.",
		http.StatusConflict)
}

func DateClosed(err error) *AppError {
	return Wrap(err, CodeDateClosed,
		"The restaurant is closed on the selected date.",
		http.StatusConflict)
}

func SlotDisabled(err error) *AppError {
	return Wrap(err, CodeSlotDisabled,
		"The selected time slot is unavailable on this date.",
		http.StatusConflict)
}

func DateUnavailable(message string) *AppError {
	return New(CodeDateUnavailable, message, http.StatusUnprocessableEntity)
}

func InvalidTransition(message string, err error) *AppError {
	return Wrap(err, CodeInvalidTransition, message, http.StatusConflict)
}

func SlotInUse(err error) *AppError {
	return Wrap(err, CodeSlotInUse,
		"The time slot is referenced by reservations and cannot be deleted.",
		http.StatusConflict)
}

func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError returns the AppError in err's chain, or wraps err as an internal error.
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("An unexpected error occurred", err)
}
