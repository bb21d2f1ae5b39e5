package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddleware(t *testing.T) {
	Init()
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/ok", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/missing", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	okCounter := httpRequestsTotal.WithLabelValues("GET", "200")
	missingCounter := httpRequestsTotal.WithLabelValues("GET", "404")
	beforeOK := testutil.ToFloat64(okCounter)
	beforeMissing := testutil.ToFloat64(missingCounter)

	for _, path := range []string{"/ok", "/missing"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	if val := testutil.ToFloat64(okCounter) - beforeOK; val != 1 {
		t.Errorf("Expected one 200 request, got %f", val)
	}
	if val := testutil.ToFloat64(missingCounter) - beforeMissing; val != 1 {
		t.Errorf("Expected one 404 request, got %f", val)
	}
	if val := testutil.CollectAndCount(httpRequestDurationSeconds); val <= 0 {
		t.Errorf("Expected httpRequestDurationSeconds to be observed, got %d", val)
	}
}
