package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSanitizeSite(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"standard http", "http://example.com/path", "example.com"},
		{"standard https", "https://Example.com/path", "example.com"},
		{"no scheme", "example.com/path", "example.com"},
		{"host with port", "example.com:8080", "example.com"},
		{"invalid url", "http://%", "unknown"},
		{"empty string", "", "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeSite(tc.input); got != tc.expected {
				t.Errorf("SanitizeSite(%q) = %q; want %q", tc.input, got, tc.expected)
			}
		})
	}
}

func TestInitIsIdempotent(t *testing.T) {
	Init()
	Init()

	if permissionChecksTotal == nil || scrapesTotal == nil || queriesTotal == nil ||
		httpRequestsTotal == nil || httpRequestDurationSeconds == nil {
		t.Fatal("Init() did not initialize metrics collectors")
	}
}

func TestObservePermission(t *testing.T) {
	Init()
	allowed := permissionChecksTotal.WithLabelValues("allowed.test", "allowed")
	denied := permissionChecksTotal.WithLabelValues("denied.test", "denied")
	beforeAllowed := testutil.ToFloat64(allowed)
	beforeDenied := testutil.ToFloat64(denied)

	ObservePermission("https://allowed.test/page", true)
	ObservePermission("https://denied.test/page", false)

	if got := testutil.ToFloat64(allowed) - beforeAllowed; got != 1 {
		t.Errorf("expected one allowed check, got %f", got)
	}
	if got := testutil.ToFloat64(denied) - beforeDenied; got != 1 {
		t.Errorf("expected one denied check, got %f", got)
	}
}

func TestObserveScrapeAndQuery(t *testing.T) {
	Init()
	success := scrapesTotal.WithLabelValues(ModeRendered, "success")
	failed := scrapesTotal.WithLabelValues(ModeDirect, "upstream_status")
	answered := queriesTotal.WithLabelValues("answered")
	beforeSuccess := testutil.ToFloat64(success)
	beforeFailed := testutil.ToFloat64(failed)
	beforeAnswered := testutil.ToFloat64(answered)

	ObserveScrape(ModeRendered, "success", 4096)
	ObserveScrape(ModeDirect, "upstream_status", 0)
	ObserveQuery("answered")

	if got := testutil.ToFloat64(success) - beforeSuccess; got != 1 {
		t.Errorf("expected one rendered success, got %f", got)
	}
	if got := testutil.ToFloat64(failed) - beforeFailed; got != 1 {
		t.Errorf("expected one direct failure, got %f", got)
	}
	if got := testutil.ToFloat64(answered) - beforeAnswered; got != 1 {
		t.Errorf("expected one answered query, got %f", got)
	}
	if n := testutil.CollectAndCount(scrapeTextBytes); n == 0 {
		t.Error("expected text size histogram to be observed")
	}
}

func TestObserveHTTPRequest(t *testing.T) {
	Init()
	counter := httpRequestsTotal.WithLabelValues("PATCH", "418")
	before := testutil.ToFloat64(counter)

	ObserveHTTPRequest("PATCH", "/teapot", 418, 10*time.Millisecond)

	if got := testutil.ToFloat64(counter) - before; got != 1 {
		t.Errorf("expected one request recorded, got %f", got)
	}
}

// Fuzz test for SanitizeSite.
func FuzzSanitizeSite(f *testing.F) {
	for _, tc := range []string{"http://example.com", "https://google.com", "ftp://example.com"} {
		f.Add(tc)
	}
	f.Fuzz(func(t *testing.T, orig string) {
		if SanitizeSite(orig) == "" {
			t.Errorf("SanitizeSite(%q) returned an empty string", orig)
		}
	})
}
