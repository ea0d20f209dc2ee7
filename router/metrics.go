package router

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var metricCommands = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "liveremote",
	Name:      "commands_total",
	Help:      "Commands dispatched, by type and response status.",
}, []string{"type", "status"})
