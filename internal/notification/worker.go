package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"restaurant-booking-backend/config"
	"restaurant-booking-backend/internal/events"
	"restaurant-booking-backend/internal/metrics"
	"restaurant-booking-backend/internal/model"
	"restaurant-booking-backend/internal/store"
)

// Kind is the kind of a notification job.
type Kind string

const (
	KindConfirmation Kind = "confirmation"
	KindReminder     Kind = "reminder"
	KindDashboard    Kind = "dashboard"
)

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// Store is what the workers read from the database.
type Store interface {
	DashboardCounters(ctx context.Context, date string) (*store.DashboardCounters, error)
	Subscriptions(ctx context.Context) ([]model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, endpoint string) error
}

// Notice is the guest-facing content of a confirmation or reminder.
type Notice struct {
	ReservationID   int64  `json:"reservation_id,omitempty"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	Date            string `json:"reservation_date"`
	Time            string `json:"time"`
	GuestCount      int    `json:"guest_count"`
	SpecialRequests string `json:"special_requests,omitempty"`
}

// NoticeFor builds the notice of a committed reservation.
func NoticeFor(r *model.Reservation) Notice {
	return Notice{
		ReservationID:   r.ID,
		FirstName:       r.FirstName,
		LastName:        r.LastName,
		Email:           r.Email,
		Phone:           r.Phone,
		Date:            r.ReservationDate,
		Time:            r.TimeLabel(),
		GuestCount:      r.GuestCount,
		SpecialRequests: r.SpecialRequests,
	}
}

// Job is one unit of work for the pool. Notice is set for confirmation and
// reminder jobs, Date for dashboard jobs.
type Job struct {
	Kind   Kind
	Notice Notice
	Date   string
}

func (j Job) dedupKey() string {
	switch j.Kind {
	case KindConfirmation, KindReminder:
		if j.Notice.ReservationID != 0 {
			return string(j.Kind) + ":" + strconv.FormatInt(j.Notice.ReservationID, 10)
		}
		contact := j.Notice.Email
		if contact == "" {
			contact = j.Notice.Phone
		}
		return strings.Join([]string{string(j.Kind), strings.ToLower(contact), j.Notice.Date, j.Notice.Time}, ":")
	}
	return ""
}

// WorkerPool manages a pool of workers for sending notifications. Dispatch
// never blocks: when the queue is full the job is dropped.
type WorkerPool struct {
	size      int
	jobs      chan Job
	store     Store
	publisher events.Publisher
	webpush   *webpush.Options
	sender    NotificationSender
	dedup     *cache.Cache
	log       zerolog.Logger
	wg        sync.WaitGroup
}

// NewWorkerPool creates a new worker pool. A nil webpushOptions disables
// staff push delivery.
func NewWorkerPool(cfg config.WorkerPoolConfig, s Store, publisher events.Publisher, webpushOptions *webpush.Options, log zerolog.Logger) *WorkerPool {
	size := cfg.Size
	if size <= 0 {
		size = 1
	}
	queue := cfg.QueueSize
	if queue <= 0 {
		queue = size
	}
	ttl := cfg.DedupTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &WorkerPool{
		size:      size,
		jobs:      make(chan Job, queue),
		store:     s,
		publisher: publisher,
		webpush:   webpushOptions,
		sender:    &WebPushSender{},
		dedup:     cache.New(ttl, 2*ttl),
		log:       log.With().Str("component", "notification").Logger(),
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		wp.wg.Add(1)
		go wp.worker(ctx, i)
	}
}

// Wait blocks until every worker has returned after ctx cancellation.
func (wp *WorkerPool) Wait() {
	wp.wg.Wait()
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	defer wp.wg.Done()
	wp.log.Debug().Int("worker", id).Msg("worker started")
	for {
		select {
		case job := <-wp.jobs:
			wp.process(ctx, job)
		case <-ctx.Done():
			wp.log.Debug().Int("worker", id).Msg("worker shutting down")
			return
		}
	}
}

// Dispatch queues a job. It reports false when the job was a duplicate of
// one already sent in this run or the queue was full.
func (wp *WorkerPool) Dispatch(job Job) bool {
	key := job.dedupKey()
	if key != "" {
		if err := wp.dedup.Add(key, struct{}{}, cache.DefaultExpiration); err != nil {
			metrics.IncNotification(string(job.Kind), "duplicate")
			return false
		}
	}

	select {
	case wp.jobs <- job:
		return true
	default:
		if key != "" {
			wp.dedup.Delete(key)
		}
		metrics.IncNotification(string(job.Kind), "dropped")
		wp.log.Warn().Str("kind", string(job.Kind)).Msg("notification queue full, job dropped")
		return false
	}
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan Job {
	return wp.jobs
}

// NotifyConfirmation queues the confirmation of a committed reservation.
func (wp *WorkerPool) NotifyConfirmation(r *model.Reservation) {
	wp.Dispatch(Job{Kind: KindConfirmation, Notice: NoticeFor(r)})
}

// NotifyNotice queues a confirmation built from client-supplied details.
func (wp *WorkerPool) NotifyNotice(n Notice) bool {
	return wp.Dispatch(Job{Kind: KindConfirmation, Notice: n})
}

// NotifyReminder queues the reminder of an upcoming reservation.
func (wp *WorkerPool) NotifyReminder(r *model.Reservation) bool {
	return wp.Dispatch(Job{Kind: KindReminder, Notice: NoticeFor(r)})
}

// NotifyDashboard queues a dashboard refresh for date.
func (wp *WorkerPool) NotifyDashboard(date string) {
	wp.Dispatch(Job{Kind: KindDashboard, Date: date})
}

func (wp *WorkerPool) process(ctx context.Context, job Job) {
	var err error
	switch job.Kind {
	case KindConfirmation:
		err = wp.publish(ctx, events.TypeConfirmation, noticeKey(job.Notice), job.Notice)
	case KindReminder:
		err = wp.publish(ctx, events.TypeReminder, noticeKey(job.Notice), job.Notice)
	case KindDashboard:
		err = wp.refreshDashboard(ctx, job.Date)
	default:
		err = fmt.Errorf("unknown job kind %q", job.Kind)
	}

	if err != nil {
		metrics.IncNotification(string(job.Kind), "failed")
		wp.log.Error().Err(err).Str("kind", string(job.Kind)).Msg("notification failed")
		return
	}
	metrics.IncNotification(string(job.Kind), "sent")
}

func (wp *WorkerPool) publish(ctx context.Context, eventType, key string, payload any) error {
	return wp.publisher.Publish(ctx, events.NewEvent(eventType, key, payload))
}

func noticeKey(n Notice) string {
	if n.ReservationID != 0 {
		return "reservation-" + strconv.FormatInt(n.ReservationID, 10)
	}
	return n.Date
}

// refreshDashboard publishes the date's counters and pushes them to every
// staff subscription.
func (wp *WorkerPool) refreshDashboard(ctx context.Context, date string) error {
	counters, err := wp.store.DashboardCounters(ctx, date)
	if err != nil {
		return err
	}
	if err := wp.publish(ctx, events.TypeDashboardChanged, date, counters); err != nil {
		return err
	}
	if wp.webpush == nil {
		return nil
	}

	subscriptions, err := wp.store.Subscriptions(ctx)
	if err != nil {
		return fmt.Errorf("fetch subscriptions: %w", err)
	}
	if len(subscriptions) == 0 {
		return nil
	}

	payload, err := json.Marshal(counters)
	if err != nil {
		return err
	}
	wp.log.Debug().Int("subscriptions", len(subscriptions)).Str("date", date).Msg("pushing dashboard counters")
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, payload)
	}
	return nil
}

// sendNotification sends a single web push notification.
func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	resp, err := wp.sender.Send(payload, sub.WebPush(), wp.webpush)
	if err != nil {
		wp.log.Warn().Err(err).Str("endpoint", sub.Endpoint).Msg("push failed")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		wp.log.Info().Str("endpoint", sub.Endpoint).Msg("subscription expired, deleting")
		if err := wp.store.DeleteSubscription(ctx, sub.Endpoint); err != nil {
			wp.log.Error().Err(err).Str("endpoint", sub.Endpoint).Msg("failed to delete expired subscription")
		}
	}
}
