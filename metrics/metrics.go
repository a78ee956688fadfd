package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ConditionsNormalized = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strategy_conditions_normalized_total",
			Help: "Total number of conditions normalized (by source format).",
		},
		[]string{"format"},
	)

	ConditionsEvaluated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strategy_conditions_evaluated_total",
			Help: "Total number of condition evaluations (by boolean result).",
		},
		[]string{"result"},
	)

	StagePasses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strategy_stage_passes_total",
			Help: "Total number of stage evaluations that passed (by side).",
		},
		[]string{"side"},
	)

	ConflictsDetected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strategy_conflicts_detected_total",
			Help: "Total number of strategy conflicts reported (by severity).",
		},
		[]string{"severity"},
	)
)

func init() {
	prometheus.MustRegister(ConditionsNormalized, ConditionsEvaluated, StagePasses, ConflictsDetected)
}
