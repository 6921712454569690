// Package metrics defines the soundbot's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// EventSub pipeline metrics
var (
	// FramesRead tracks frames read from the EventSub connection by frame kind.
	FramesRead = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventsub_frames_read_total",
			Help: "Total frames read from the EventSub websocket by kind",
		},
		[]string{"kind"},
	)

	// RedemptionsDispatched tracks redemption events handed to the worker pool.
	RedemptionsDispatched = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "redemptions_dispatched_total",
			Help: "Total redemption events dispatched to the handler pool",
		},
	)

	// RedemptionsDropped tracks redemption events dropped on queue overflow.
	RedemptionsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "redemptions_dropped_total",
			Help: "Total redemption events dropped because the dispatch queue was full",
		},
	)
)

// Playback metrics
var (
	// PlaybackResults tracks sound playback attempts by result
	// (played, no_match, error).
	PlaybackResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sound_playback_total",
			Help: "Total sound playback attempts by result",
		},
		[]string{"result"},
	)
)
