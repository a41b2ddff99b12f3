package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Transitions counts attendance state transitions by kind
// (absent, on_duty, present_sweep, superpacc, override).
var Transitions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "rollcall",
	Name:      "attendance_transitions_total",
	Help:      "Attendance records created or updated, by transition kind.",
}, []string{"kind"})

// LastSweepSize holds the number of records the most recent present sweep inserted.
var LastSweepSize = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "rollcall",
	Name:      "last_present_sweep_size",
	Help:      "Records inserted by the most recent end-of-day present sweep.",
})

// CSVImports counts bulk roster import outcomes.
var CSVImports = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "rollcall",
	Name:      "csv_import_rows_total",
	Help:      "CSV roster import rows, by outcome (inserted, skipped).",
}, []string{"outcome"})
