package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	reservationsCommitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "booking",
			Name:      "reservations_committed_total",
			Help:      "Count of reservations committed by flow.",
		},
		[]string{"flow"},
	)

	commitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "booking",
			Name:      "commit_rejected_total",
			Help:      "Count of reservation commits rejected by reason.",
		},
		[]string{"reason"},
	)

	idempotentReplays = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "booking",
			Name:      "idempotent_replays_total",
			Help:      "Count of commits answered from an earlier request with the same idempotency key.",
		},
	)

	statusTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "booking",
			Name:      "status_transitions_total",
			Help:      "Count of reservation status transitions by target status.",
		},
		[]string{"status"},
	)

	notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "booking",
			Name:      "notifications_total",
			Help:      "Count of notification jobs by kind and result.",
		},
		[]string{"kind", "result"},
	)

	snapshotLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "booking",
			Name:      "snapshot_cache_lookups_total",
			Help:      "Count of availability snapshot cache lookups by result.",
		},
		[]string{"result"},
	)

	throttled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "booking",
			Name:      "throttled_requests_total",
			Help:      "Count of requests rejected by the per-client rate limit, by route.",
		},
		[]string{"route"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(reservationsCommitted, commitRejected, idempotentReplays, statusTransitions, notifications,
			snapshotLookups, throttled)
	})
}

func IncCommitted(flow string) {
	reservationsCommitted.WithLabelValues(flow).Inc()
}

func IncRejected(reason string) {
	commitRejected.WithLabelValues(reason).Inc()
}

func IncReplay() {
	idempotentReplays.Inc()
}

func IncTransition(status string) {
	statusTransitions.WithLabelValues(status).Inc()
}

func IncNotification(kind, result string) {
	notifications.WithLabelValues(kind, result).Inc()
}

func IncSnapshotLookup(result string) {
	snapshotLookups.WithLabelValues(result).Inc()
}

func IncThrottled(route string) {
	throttled.WithLabelValues(route).Inc()
}

// Committed returns the counter of committed reservations for flow.
func Committed(flow string) prometheus.Counter {
	return reservationsCommitted.WithLabelValues(flow)
}

// Rejected returns the counter of rejections for reason.
func Rejected(reason string) prometheus.Counter {
	return commitRejected.WithLabelValues(reason)
}

// Notifications returns the counter of notification jobs for kind and result.
func Notifications(kind, result string) prometheus.Counter {
	return notifications.WithLabelValues(kind, result)
}

// SnapshotLookups returns the counter of snapshot cache lookups for result.
func SnapshotLookups(result string) prometheus.Counter {
	return snapshotLookups.WithLabelValues(result)
}
