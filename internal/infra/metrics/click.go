package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		clickCallbacksTotal,
		clickCallbackDuration,
	)
}

var (
	clickCallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "click_callbacks_total",
			Help: "Click callbacks handled, labeled by action and outcome.",
		},
		[]string{"action", "outcome"}, // action: prepare|complete|unknown
	)

	clickCallbackDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "click_callback_duration_seconds",
			Help:    "Time spent handling a Click callback.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"action"},
	)
)

// ActionLabel names a Click action code for metric labels.
func ActionLabel(action int) string {
	switch action {
	case 0:
		return "prepare"
	case 1:
		return "complete"
	default:
		return "unknown_" + strconv.Itoa(action)
	}
}

func IncClickCallback(action, outcome string) {
	clickCallbacksTotal.WithLabelValues(norm(action), norm(outcome)).Inc()
}

func ObserveClickCallback(action string, d time.Duration) {
	clickCallbackDuration.WithLabelValues(norm(action)).Observe(d.Seconds())
}
