package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricActiveConns = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "liveremote",
		Name:      "connections_active",
		Help:      "Client connections currently being served.",
	})
	metricAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "liveremote",
		Name:      "connections_accepted_total",
		Help:      "Client connections accepted by the listener.",
	})
	metricRejected = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "liveremote",
		Name:      "connections_rejected_total",
		Help:      "Client connections closed immediately because the connection limit was reached.",
	})
	metricFramingErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "liveremote",
		Name:      "framing_errors_total",
		Help:      "Connections closed because a message could not be framed.",
	})
)
