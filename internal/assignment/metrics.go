package assignment

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	assignmentWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "roster",
		Subsystem: "assignment",
		Name:      "writes_total",
		Help:      "Assignment write operations broken down by operation and result code.",
	}, []string{"op", "result"})

	conflictRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "roster",
		Subsystem: "assignment",
		Name:      "conflicts_total",
		Help:      "Assignments rejected for overlapping an existing assignment, by the layer that caught it.",
	}, []string{"source"})

	autoAssignPlanned = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "roster",
		Subsystem: "auto_assign",
		Name:      "planned_assignments",
		Help:      "Number of assignments produced by one auto-assignment run.",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
	})
)
