package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var dispatchCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "modcore_dispatch_requests",
	Help: "Number of action requests dispatched",
}, []string{"action"})

var targetOutcomeCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "modcore_dispatch_target_outcomes",
	Help: "Number of per-target action outcomes",
}, []string{"action", "outcome"})

var droppedTargetCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "modcore_dispatch_dropped_targets",
	Help: "Number of targets dropped for exceeding the per-request maximum",
}, []string{"action"})

var effectDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name: "modcore_dispatch_effect_duration_sec",
	Help: "Duration of individual effect calls",
}, []string{"action"})
