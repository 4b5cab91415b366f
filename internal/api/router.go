package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"restaurant-booking-backend/config"
	"restaurant-booking-backend/internal/mw"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(cfg *config.Config, handler *Handler, log zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), mw.Logger(log))

	limiter := mw.NewClientLimiter(rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateLimitBurst, 10*time.Minute)

	// Availability snapshots are flushed by every successful write below.
	snapshots := mw.NewSnapshots(cacheTTL(cfg.Server.CacheTTL))
	caching := snapshots.Serve()

	r.GET("/healthz", handler.Healthz)
	r.GET("/readyz", handler.Readyz)
	if cfg.Monitoring.MetricsEnabled {
		r.GET(cfg.Monitoring.MetricsPath, gin.WrapH(promhttp.Handler()))
	}

	api := r.Group("/api")
	api.Use(mw.Throttle(limiter), snapshots.Invalidate())
	{
		availability := api.Group("/availability", caching)
		availability.GET("/fully-booked-dates", handler.GetFullyBookedDates)
		availability.GET("/closed-dates", handler.GetClosedDates)
		availability.GET("/special-hours-dates", handler.GetSpecialHoursDates)
		availability.GET("/occupied-time-slots", handler.GetOccupiedTimeSlots)
		availability.GET("/disabled-time-slots", handler.GetDisabledTimeSlots)

		api.GET("/time-slots", caching, handler.GetTimeSlots)
		api.GET("/settings", caching, handler.GetSettings)

		api.POST("/reservations", handler.CreateReservation)
		api.GET("/reservations", handler.ListReservations)
		api.GET("/reservations/:id", handler.GetReservation)
		api.PATCH("/reservations/:id/complete", handler.CompleteReservation)
		api.PATCH("/reservations/:id/cancel", handler.CancelReservation)
		api.POST("/send-reservation-confirmation", handler.SendReservationConfirmation)
		api.GET("/dashboard/counters", handler.GetDashboardCounters)

		admin := api.Group("/admin")
		admin.POST("/time-slots", handler.CreateTimeSlot)
		admin.PUT("/time-slots/:id", handler.UpdateTimeSlot)
		admin.DELETE("/time-slots/:id", handler.DeleteTimeSlot)
		admin.GET("/date-overrides/:date", handler.GetDateOverride)
		admin.PUT("/date-overrides/:date", handler.PutDateOverride)
		admin.DELETE("/date-overrides/:date", handler.DeleteDateOverride)
		admin.PUT("/settings", handler.PutSettings)

		staff := api.Group("/staff")
		staff.POST("/reservations", handler.CreateStaffReservation)
		staff.GET("/devices", handler.ListDevices)
		staff.PUT("/devices", handler.RegisterDevice)
		staff.DELETE("/devices", handler.UnregisterDevice)
		staff.GET("/push-key", handler.GetPushKey)
	}

	return r
}

// cacheTTL keeps a zero TTL from disabling expiry entirely.
func cacheTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return 30 * time.Second
	}
	return d
}
