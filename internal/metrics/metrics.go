// Package metrics exposes the process counters served at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AttendanceMarked counts successful marks by method.
	AttendanceMarked = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "attendance_marked_total",
		Help: "Successful attendance marks by verification method.",
	}, []string{"method"})

	// MarkFailures counts rejected marks by failure reason.
	MarkFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "attendance_mark_failures_total",
		Help: "Rejected attendance marks by reason.",
	}, []string{"reason"})

	// CodesIssued counts issued verification codes by kind.
	CodesIssued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "verification_codes_issued_total",
		Help: "Issued verification codes by kind.",
	}, []string{"kind"})
)
