package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewCollector_DefaultNamespace(t *testing.T) {
	c := NewCollector("")
	c.ObserveRPC("sui_getObject", "ok", 10*time.Millisecond)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), `suiven_rpc_requests_total{method="sui_getObject",status="ok"} 1`) {
		t.Errorf("rpc counter missing from exposition:\n%s", rec.Body.String())
	}
}

func TestCollector_CacheAndParse(t *testing.T) {
	c := NewCollector("test")

	c.RecordCacheLookup("event", true)
	c.RecordCacheLookup("event", false)
	c.RecordCacheLookup("event", false)
	c.RecordInvalidation("tickets", 3)
	c.RecordInvalidation("tickets", 0)
	c.RecordParseRejection("ticket", "type_mismatch")

	if got := testutil.ToFloat64(c.cacheLookups.WithLabelValues("event", "miss")); got != 2 {
		t.Errorf("misses = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.cacheInvalidations.WithLabelValues("tickets")); got != 3 {
		t.Errorf("invalidations = %v, want 3", got)
	}
	if got := testutil.ToFloat64(c.parseRejections.WithLabelValues("ticket", "type_mismatch")); got != 1 {
		t.Errorf("rejections = %v, want 1", got)
	}
}

func TestCollector_Submissions(t *testing.T) {
	c := NewCollector("test")
	c.RecordSubmission("purchase_ticket", time.Second, nil)
	c.RecordSubmission("purchase_ticket", time.Second, errors.New("rejected"))

	if got := testutil.ToFloat64(c.submissions.WithLabelValues("purchase_ticket", "success")); got != 1 {
		t.Errorf("successes = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.submissions.WithLabelValues("purchase_ticket", "failure")); got != 1 {
		t.Errorf("failures = %v, want 1", got)
	}
}

func TestCollector_InstrumentHandler(t *testing.T) {
	c := NewCollector("test")
	h := c.InstrumentHandler("/events/{id}", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/events/0x1", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/events/0x2", nil))

	if got := testutil.ToFloat64(c.httpRequests.WithLabelValues("GET", "/events/{id}", "404")); got != 2 {
		t.Errorf("requests = %v, want 2", got)
	}
}
