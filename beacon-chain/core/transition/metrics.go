package transition

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	epochsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "epoch_transitions_total",
		Help: "The number of epoch transitions that completed successfully.",
	})
	transitionFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "epoch_transition_failures_total",
		Help: "The number of epoch transitions that aborted with an error.",
	})
	stageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "epoch_transition_stage_duration_seconds",
		Help:    "Time spent in each stage of the epoch transition.",
		Buckets: []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"stage"})
	finalizedEpochGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "epoch_transition_finalized_epoch",
		Help: "Finalized epoch of the last processed state.",
	})
	justifiedEpochGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "epoch_transition_current_justified_epoch",
		Help: "Current justified epoch of the last processed state.",
	})
	activatedValidators = promauto.NewCounter(prometheus.CounterOpts{
		Name: "epoch_transition_activated_validators_total",
		Help: "The number of validators dequeued for activation.",
	})
	ejectedValidators = promauto.NewCounter(prometheus.CounterOpts{
		Name: "epoch_transition_ejected_validators_total",
		Help: "The number of validators whose exit was initiated for a low effective balance.",
	})
	droppedNotifications = promauto.NewCounter(prometheus.CounterOpts{
		Name: "epoch_transition_dropped_notifications_total",
		Help: "The number of state feed events dropped because subscribers did not drain them.",
	})
)
