// Package metrics provides Prometheus metrics for the seat bot.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Resolutions counts seat lookups by resolver status
	Resolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "seatbot",
			Subsystem: "resolver",
			Name:      "resolutions_total",
			Help:      "Total number of seat lookups by status",
		},
		[]string{"status"},
	)

	// DeliveryAttempts counts individual send attempts by result
	DeliveryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "seatbot",
			Subsystem: "delivery",
			Name:      "attempts_total",
			Help:      "Total number of send attempts by result",
		},
		[]string{"result"},
	)

	// Deliveries counts finished deliveries by outcome
	Deliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "seatbot",
			Subsystem: "delivery",
			Name:      "deliveries_total",
			Help:      "Total number of deliveries by outcome",
		},
		[]string{"outcome"},
	)

	// Messages counts inbound messages by primary intent
	Messages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "seatbot",
			Subsystem: "handler",
			Name:      "messages_total",
			Help:      "Total number of inbound messages by intent",
		},
		[]string{"intent"},
	)

	// DroppedMessages counts messages rejected because the queue was full
	DroppedMessages = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "seatbot",
			Subsystem: "handler",
			Name:      "dropped_messages_total",
			Help:      "Total number of messages dropped because the task queue was full",
		},
	)

	// TaskFailures counts background tasks that ended in the apology reply
	TaskFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "seatbot",
			Subsystem: "handler",
			Name:      "task_failures_total",
			Help:      "Total number of background tasks that failed internally",
		},
	)

	// TasksInFlight tracks running background tasks
	TasksInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "seatbot",
			Subsystem: "handler",
			Name:      "tasks_in_flight",
			Help:      "Number of background tasks currently running",
		},
	)
)

// Delivery outcomes
const (
	OutcomeDelivered        = "delivered"
	OutcomeDeadLettered     = "dead_lettered"
	OutcomeDeadLetterFailed = "dead_letter_failed"
)
