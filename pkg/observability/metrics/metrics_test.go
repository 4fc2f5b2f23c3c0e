package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHandlerExposesCounters(t *testing.T) {
	before := documentsParsed.Load()
	ObserveParse(3*time.Millisecond, 4, 2)
	ObserveCacheHit()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("unexpected content type %s", ct)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "# TYPE medrecords_documents_parsed_total counter") {
		t.Fatalf("missing type line:\n%s", body)
	}
	if documentsParsed.Load() != before+1 {
		t.Fatalf("parse counter not incremented")
	}
	for _, s := range samples {
		if !strings.Contains(body, "\n"+s.name+" ") {
			t.Fatalf("missing sample %s", s.name)
		}
	}
}
