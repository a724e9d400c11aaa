package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordCeremony(t *testing.T) {
	before := testutil.ToFloat64(CeremoniesTotal.WithLabelValues(CeremonyAuthenticate, "SignatureInvalid"))
	RecordCeremony(CeremonyAuthenticate, "SignatureInvalid")
	after := testutil.ToFloat64(CeremoniesTotal.WithLabelValues(CeremonyAuthenticate, "SignatureInvalid"))
	if after-before != 1 {
		t.Errorf("counter moved by %v, want 1", after-before)
	}
}

func TestRecordPregenerated_IgnoresZero(t *testing.T) {
	before := testutil.ToFloat64(PregeneratedLogsTotal.WithLabelValues(ResultSkipped))
	RecordPregenerated(ResultSkipped, 0)
	RecordPregenerated(ResultSkipped, 3)
	after := testutil.ToFloat64(PregeneratedLogsTotal.WithLabelValues(ResultSkipped))
	if after-before != 3 {
		t.Errorf("counter moved by %v, want 3", after-before)
	}
}

func TestHandler(t *testing.T) {
	RecordClockEvent(ActionClockIn, "on_time")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "igaratrack_clock_events_total") {
		t.Error("clock event counter missing from /metrics output")
	}
}
