package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	inboundProcessedCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "conversation",
			Name:      "inbound_processed_total",
			Help:      "Total inbound messages processed, by outcome.",
		},
		[]string{"outcome"}, // "guard_stop", "routed", "error"
	)

	guardTripsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "conversation",
			Name:      "guard_trips_total",
			Help:      "Guard short-circuits, by guard.",
		},
		[]string{"guard"}, // "stop", "start", "help", "opt_out", "rate_limit"
	)

	intentRoutedCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "conversation",
			Name:      "intents_routed_total",
			Help:      "Classifier routings, by intent.",
		},
		[]string{"intent"},
	)

	repliesSentCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "conversation",
			Name:      "replies_sent_total",
			Help:      "Outbound replies recorded, by kind.",
		},
		[]string{"kind"}, // "sms", "mms"
	)

	processingDurationHist = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "conversation",
			Name:      "inbound_processing_duration_seconds",
			Help:      "Duration of inbound message processing.",
			Buckets:   prometheus.DefBuckets,
		},
	)
)
