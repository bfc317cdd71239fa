package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricBlocked = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_blocked_total",
		Help: "Speech requests blocked by the gate, by reason",
	}, []string{"reason"})

	metricDispatches = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_delivered_total",
		Help: "Speech requests admitted and successfully delivered",
	})

	metricDeliveryFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_delivery_failures_total",
		Help: "Admitted requests nami rejected or that failed to deliver",
	})

	metricContextFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_context_fetch_failures_total",
		Help: "Director context fetches that failed and degraded to empty context",
	})
)
