package rubric

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	allocationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rubric_allocations_total",
		Help: "Component allocations by outcome.",
	}, []string{"outcome"})

	ceilingRejectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rubric_ceiling_rejections_total",
		Help: "Operations rejected for exceeding the 100% weight ceiling.",
	})

	reconcileOpsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rubric_reconcile_operations_total",
		Help: "Category reconciliation operations by kind.",
	}, []string{"op"})
)
