package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Chat metrics
	MessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stayhub_messages_sent_total",
			Help: "Total chat messages sent",
		},
		[]string{"path"}, // "realtime" or "rest"
	)

	SendFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stayhub_send_failures_total",
			Help: "Total sends that failed on both the realtime and REST paths",
		},
	)

	PushEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stayhub_push_events_total",
			Help: "Total realtime push events received",
		},
		[]string{"type"},
	)

	// Transport metrics
	Reconnects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stayhub_ws_reconnects_total",
			Help: "Total websocket reconnect attempts",
		},
	)

	Disconnects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stayhub_ws_disconnects_total",
			Help: "Total unexpected websocket disconnects",
		},
	)

	// REST metrics
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stayhub_api_request_duration_seconds",
			Help:    "StayHub API request duration",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"method"},
	)
)
