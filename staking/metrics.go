package staking

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	operations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meridian_staking_operations",
			Help: "Number of staking operations (per operation and status).",
		},
		[]string{"operation", "status"},
	)
	currentEraGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "meridian_staking_current_era",
			Help: "Current staking era.",
		},
	)

	stakingCollectors = []prometheus.Collector{
		operations,
		currentEraGauge,
	}

	metricsOnce sync.Once
)

func operationLabels(op, status string) prometheus.Labels {
	return prometheus.Labels{
		"operation": op,
		"status":    status,
	}
}

// initMetrics registers the staking prometheus collectors.
func initMetrics() {
	metricsOnce.Do(func() {
		prometheus.MustRegister(stakingCollectors...)
	})
}
