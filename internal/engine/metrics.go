package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// statementsTotal counts executed statements by outcome status.
	statementsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "testsynth",
		Subsystem: "engine",
		Name:      "statements_total",
		Help:      "Statements executed by outcome status",
	}, []string{"status"})

	// executionDuration measures whole test case executions.
	executionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "testsynth",
		Subsystem: "engine",
		Name:      "execution_duration_seconds",
		Help:      "Duration of test case executions",
		Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
	})

	// gateOperations counts substitution gate installs and restores.
	// Labels: op (install, restore), result (ok, error)
	gateOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "testsynth",
		Subsystem: "engine",
		Name:      "gate_operations_total",
		Help:      "Substitution gate installs and restores",
	}, []string{"op", "result"})

	// abandonedWorkers counts workers replaced after a hard timeout.
	abandonedWorkers = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "testsynth",
		Subsystem: "engine",
		Name:      "abandoned_workers_total",
		Help:      "Workers abandoned because a statement ignored interruption",
	})

	// loaderReloads counts loaders reloaded after an abandoned statement.
	loaderReloads = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "testsynth",
		Subsystem: "engine",
		Name:      "loader_reloads_total",
		Help:      "Loaders reloaded because a statement was abandoned",
	})
)

func gateResult(err error) string {
	if err != nil {
		return "error"
	}

	return "ok"
}
