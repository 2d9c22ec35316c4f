package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	m := New()

	m.BillSplit("exact", true)
	m.BillSplit("exact", true)
	m.BillSplit("equal", false)
	m.ReminderFired()
	m.SplitSettlementChanged(false)

	if got := testutil.ToFloat64(m.billsSplit.WithLabelValues("exact", "true")); got != 2 {
		t.Errorf("exact normalized splits = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.billsSplit.WithLabelValues("equal", "false")); got != 1 {
		t.Errorf("equal splits = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.remindersFired); got != 1 {
		t.Errorf("reminders fired = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.splitsSettlement.WithLabelValues("false")); got != 1 {
		t.Errorf("unsettled = %v, want 1", got)
	}
}

func TestHandler(t *testing.T) {
	m := New()
	m.ReminderFired()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "tabsplit_reminders_fired_total 1") {
		t.Errorf("metrics output missing reminder counter:\n%s", rec.Body.String())
	}
}
