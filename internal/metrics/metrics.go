package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Event connection metrics
	EventsReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gatherd_events_received_total",
			Help: "Inbound events by event name",
		},
		[]string{"event"},
	)

	EventsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gatherd_events_emitted_total",
			Help: "Outbound events by event name",
		},
		[]string{"event"},
	)

	EventsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gatherd_events_dropped_total",
			Help: "Inbound events dropped and why",
		},
		[]string{"reason"}, // "other_channel", "invalid_payload", "unhandled"
	)

	MessagesAppended = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gatherd_messages_appended_total",
			Help: "Messages appended to the open channel view",
		},
	)

	// Meeting tracker metrics
	MeetingsTracked = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gatherd_meetings_tracked",
			Help: "Meetings with a pending deadline",
		},
	)

	MeetingsEnded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gatherd_meetings_ended_total",
			Help: "Meetings removed from tracking and why",
		},
		[]string{"reason"}, // "max_duration_reached", "released"
	)
)
