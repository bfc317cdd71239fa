package gate

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricInterrupts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gate_interrupts_total",
		Help: "Total interrupt requests processed",
	})

	metricTimeoutResets = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gate_speech_timeout_resets_total",
		Help: "Times the speaking lock was force-cleared by the timeout failsafe",
	})

	metricSpeechDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "gate_speech_duration_seconds",
		Help:    "Duration of completed utterances as reported by the TTS",
		Buckets: prometheus.ExponentialBuckets(0.5, 1.6, 10),
	})
)
