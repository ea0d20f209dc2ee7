package bridge

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricBridgeWait = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "liveremote",
		Name:      "bridge_wait_seconds",
		Help:      "Time spent waiting for the host thread to complete a bridged operation.",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 9),
	})
	metricBridgeTimeouts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "liveremote",
		Name:      "bridge_timeouts_total",
		Help:      "Bridged operations that exceeded the wait bound.",
	})
	metricLateResults = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "liveremote",
		Name:      "bridge_late_results_total",
		Help:      "Results delivered by the host thread after the caller gave up.",
	})
)
