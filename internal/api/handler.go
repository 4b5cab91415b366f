package api

import (
	"github.com/SherClockHolmes/webpush-go"
	"github.com/rs/zerolog"

	"restaurant-booking-backend/internal/notification"
	"restaurant-booking-backend/internal/reservation"
	"restaurant-booking-backend/internal/store"
)

// NoticeDispatcher queues a client-requested confirmation.
type NoticeDispatcher interface {
	NotifyNotice(n notification.Notice) bool
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store        store.Store
	reservations *reservation.Service
	notices      NoticeDispatcher
	webpush      *webpush.Options
	log          zerolog.Logger
}

// NewHandler creates a new API handler. notices and webpushOptions may be nil.
func NewHandler(s store.Store, reservations *reservation.Service, notices NoticeDispatcher, webpushOptions *webpush.Options, log zerolog.Logger) *Handler {
	return &Handler{
		store:        s,
		reservations: reservations,
		notices:      notices,
		webpush:      webpushOptions,
		log:          log.With().Str("component", "api").Logger(),
	}
}
