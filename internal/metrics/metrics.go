package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	QueueGenerations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assignq_queue_generations_total",
			Help: "Total number of queue generation outcomes by event type",
		},
		[]string{"event_type"},
	)

	OfferTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assignq_offer_transitions_total",
			Help: "Total number of queue entry status transitions",
		},
		[]string{"status"},
	)

	GenerationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "assignq_generation_duration_seconds",
			Help: "Duration of queue generation in seconds",
		},
	)

	ReapedEntries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "assignq_reaped_entries_total",
			Help: "Total number of entries expired by the sweep",
		},
	)
)
