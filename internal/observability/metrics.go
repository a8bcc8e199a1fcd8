// Package observability holds the roster metrics exported on /metrics.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for roster mutations.
const (
	OutcomeOK       = "ok"
	OutcomeNotFound = "not_found"
	OutcomeConflict = "conflict"
	OutcomeError    = "error"
)

var (
	signupCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "signup_service",
		Subsystem: "roster",
		Name:      "signups_total",
		Help:      "Signup attempts grouped by activity and outcome.",
	}, []string{"activity", "outcome"})

	unregisterCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "signup_service",
		Subsystem: "roster",
		Name:      "unregisters_total",
		Help:      "Unregister attempts grouped by activity and outcome.",
	}, []string{"activity", "outcome"})

	rosterSizeGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "signup_service",
		Subsystem: "roster",
		Name:      "participants",
		Help:      "Current number of participants on each activity roster.",
	}, []string{"activity"})

	lastMutationGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "signup_service",
		Subsystem: "roster",
		Name:      "last_mutation_timestamp_seconds",
		Help:      "Unix timestamp of the most recent successful roster mutation.",
	})
)

func init() {
	prometheus.MustRegister(signupCounter, unregisterCounter, rosterSizeGauge, lastMutationGauge)
}

// RecordSignup counts a signup attempt. Unknown activities are folded into one label
// value so arbitrary path input cannot grow the series set.
func RecordSignup(activity, outcome string) {
	signupCounter.WithLabelValues(activityLabel(activity, outcome), outcome).Inc()
}

// RecordUnregister counts an unregister attempt.
func RecordUnregister(activity, outcome string) {
	unregisterCounter.WithLabelValues(activityLabel(activity, outcome), outcome).Inc()
}

// RecordRosterSize sets the participant gauge for activity.
func RecordRosterSize(activity string, size int) {
	rosterSizeGauge.WithLabelValues(activity).Set(float64(size))
}

// RecordMutation updates the mutation watermark.
func RecordMutation(ts time.Time) {
	if ts.IsZero() {
		return
	}
	lastMutationGauge.Set(float64(ts.Unix()))
}

func activityLabel(activity, outcome string) string {
	if outcome == OutcomeNotFound {
		return "unknown"
	}
	return activity
}
