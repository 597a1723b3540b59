package audit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auditoria_events_recorded_total",
			Help: "Total number of audit events persisted",
		},
		[]string{"action", "resource"},
	)

	RecorderFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "auditoria_recorder_failures_total",
			Help: "Total number of audit events lost to persistence failures",
		},
	)

	SnapshotFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "auditoria_snapshot_failures_total",
			Help: "Total number of pre-image fetch failures",
		},
	)
)
