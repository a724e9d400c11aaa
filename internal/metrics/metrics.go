// Package metrics exposes Prometheus counters for ceremonies, clock events
// and the nightly pre-generation job.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const Namespace = "igaratrack"

const (
	CeremonyRegister     = "register"
	CeremonyAuthenticate = "authenticate"

	OutcomeSuccess = "success"

	ActionClockIn  = "clock_in"
	ActionClockOut = "clock_out"

	ResultCreated = "created"
	ResultSkipped = "skipped"
	ResultMissed  = "missed"
)

var (
	// CeremoniesTotal counts finished WebAuthn ceremonies. outcome is
	// "success" or the failure reason code.
	CeremoniesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "ceremonies_total",
			Help:      "WebAuthn ceremonies by kind and outcome",
		},
		[]string{"ceremony", "outcome"},
	)

	ClockEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "clock_events_total",
			Help:      "Recorded clock-in and clock-out events by status",
		},
		[]string{"action", "status"},
	)

	PregeneratedLogsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "pregenerated_logs_total",
			Help:      "Attendance rows touched by the nightly job",
		},
		[]string{"result"},
	)
)

// RecordCeremony counts one finished ceremony. outcome is OutcomeSuccess or
// the failure's reason code.
func RecordCeremony(ceremony, outcome string) {
	CeremoniesTotal.WithLabelValues(ceremony, outcome).Inc()
}

// RecordClockEvent counts an accepted clock-in or clock-out by status.
func RecordClockEvent(action, status string) {
	ClockEventsTotal.WithLabelValues(action, status).Inc()
}

// RecordPregenerated adds n rows to the pre-generation counter for result.
func RecordPregenerated(result string, n int) {
	if n <= 0 {
		return
	}
	PregeneratedLogsTotal.WithLabelValues(result).Add(float64(n))
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
