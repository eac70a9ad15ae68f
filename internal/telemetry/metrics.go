package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "wlanctl"

var (
	// FramesQueued tracks frames accepted for transmission per access category.
	FramesQueued = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_queued_total",
			Help:      "Total number of frames queued for transmission",
		},
		[]string{"radio", "ac"},
	)

	// FramesDropped tracks frames discarded before acknowledgement.
	FramesDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_dropped_total",
			Help:      "Total number of frames dropped",
		},
		[]string{"radio", "reason"},
	)

	// FramesReceived tracks Ethernet frames delivered upward.
	FramesReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_received_total",
			Help:      "Total number of frames delivered to the host",
		},
		[]string{"radio"},
	)

	AMPDUsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ampdus_sent_total",
			Help:      "Total number of A-MPDUs handed to the driver",
		},
		[]string{"radio", "ac"},
	)

	MPDUsAcked = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mpdus_acked_total",
			Help:      "Total number of MPDUs acknowledged by Block-Ack",
		},
		[]string{"radio"},
	)

	MPDUsRetried = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mpdus_retried_total",
			Help:      "Total number of MPDUs left unacknowledged and retried",
		},
		[]string{"radio"},
	)

	// RoamDecisions tracks roaming evaluations by outcome.
	RoamDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "roam_decisions_total",
			Help:      "Total number of roaming decisions",
		},
		[]string{"radio", "action", "reason"},
	)

	RateUpdates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_updates_total",
			Help:      "Total number of rate table recomputations",
		},
		[]string{"radio"},
	)

	// PowerState is 0 awake, 1 doze, 2 deep sleep.
	PowerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "power_state",
			Help:      "Current power state of the radio",
		},
		[]string{"radio"},
	)

	SignalStrength = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "signal_dbm",
			Help:      "Last beacon signal of the associated BSS",
		},
		[]string{"radio"},
	)
)

var initOnce sync.Once

// InitMetrics registers all metrics with the default registry.
func InitMetrics() {
	initOnce.Do(func() {
		collectors := []prometheus.Collector{
			FramesQueued,
			FramesDropped,
			FramesReceived,
			AMPDUsSent,
			MPDUsAcked,
			MPDUsRetried,
			RoamDecisions,
			RateUpdates,
			PowerState,
			SignalStrength,
		}
		for _, c := range collectors {
			// Ignore errors if already registered (e.g. tests)
			_ = prometheus.DefaultRegisterer.Register(c)
		}
	})
}
