// Package metrics defines Prometheus metrics for the tracker.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Ledger Metrics
var (
	// PostsCreditedTotal tracks events accepted by the posting ledger
	PostsCreditedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tracker_posts_credited_total",
			Help: "Total posting events credited by the ledger",
		},
	)

	// DuplicatePostsTotal tracks same-day duplicate events
	DuplicatePostsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tracker_duplicate_posts_total",
			Help: "Total posting events rejected as same-day duplicates",
		},
	)

	// StoreErrorsTotal tracks persistence failures by operation
	StoreErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracker_store_errors_total",
			Help: "Total persistence failures by operation",
		},
		[]string{"operation"},
	)
)

// Reminder Metrics
var (
	// RemindersSentTotal tracks reminder intents handed to delivery
	RemindersSentTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tracker_reminders_sent_total",
			Help: "Total reminder intents emitted to delivery",
		},
	)

	// RemindersSuppressedTotal tracks reminders withheld by reason
	RemindersSuppressedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracker_reminders_suppressed_total",
			Help: "Total reminders suppressed by reason",
		},
		[]string{"reason"},
	)

	// ReminderDeliveryFailuresTotal tracks best-effort sends that failed
	ReminderDeliveryFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tracker_reminder_delivery_failures_total",
			Help: "Total reminder deliveries that failed",
		},
	)

	// SchedulerTickDuration tracks how long a full reminder pass takes
	SchedulerTickDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tracker_scheduler_tick_duration_seconds",
			Help:    "Duration of a full reminder evaluation pass",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
	)
)

// Classifier Metrics
var (
	// ClassifierMatchesTotal tracks messages that matched a posting marker
	ClassifierMatchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tracker_classifier_matches_total",
			Help: "Total messages in tracked channels that matched a posting marker",
		},
	)
)
