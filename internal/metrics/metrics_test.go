package metrics

import (
	"net/http/httptest"
	"strings"
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
		{"standard http", "http://repo.example.com/maven2/", "repo.example.com"},
		{"standard https", "https://Repo.Example.com/path", "repo.example.com"},
		{"no scheme", "repo.example.com/path", "repo.example.com"},
		{"just host", "example.com", "example.com"},
		{"host with port", "example.com:8080", "example.com"},
		{"ip address", "192.168.1.1", "192.168.1.1"},
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

func TestInit(t *testing.T) {
	// Call Init multiple times to test idempotency.
	Init()
	Init()

	if mirrorRequestsTotal == nil || mirrorBytesTotal == nil ||
		httpRequestsTotal == nil || httpRequestDurationSeconds == nil {
		t.Fatal("Init() did not initialize metrics collectors")
	}
}

func TestObservers(t *testing.T) {
	Init()
	before := testutil.ToFloat64(mirrorRequestsTotal.WithLabelValues("downloaded"))
	ObserveOutcome("downloaded")
	if got := testutil.ToFloat64(mirrorRequestsTotal.WithLabelValues("downloaded")); got != before+1 {
		t.Errorf("mirror_requests_total{downloaded} = %f; want %f", got, before+1)
	}

	bytesBefore := testutil.ToFloat64(mirrorBytesTotal.WithLabelValues("bytes.example"))
	ObserveBytes("https://bytes.example/a.jar", 128)
	ObserveBytes("https://bytes.example/b.jar", 0)
	if got := testutil.ToFloat64(mirrorBytesTotal.WithLabelValues("bytes.example")); got != bytesBefore+128 {
		t.Errorf("mirror_bytes_total = %f; want %f", got, bytesBefore+128)
	}

	SetQueueDepth(7)
	if got := testutil.ToFloat64(mirrorQueueDepth); got != 7 {
		t.Errorf("mirror_queue_depth = %f; want 7", got)
	}

	SetOutstandingFailures(3)
	if got := testutil.ToFloat64(mirrorOutstandingFailures); got != 3 {
		t.Errorf("mirror_outstanding_failures = %f; want 3", got)
	}

	ObserveRateLimitDelay("delay.example", 200*time.Millisecond)
	if n := testutil.CollectAndCount(mirrorRateLimitDelaysSeconds); n == 0 {
		t.Error("expected rate limit delay histogram to be observed")
	}
}

func TestHandlerExposesMirrorMetrics(t *testing.T) {
	ObserveFetch("https://handler.example/", "ok")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if !strings.Contains(rec.Body.String(), `mirror_fetches_total{site="handler.example",status="ok"}`) {
		t.Errorf("metrics output missing mirror_fetches_total sample")
	}
}

// Fuzz test for SanitizeSite.
func FuzzSanitizeSite(f *testing.F) {
	testcases := []string{"http://example.com", "https://repo1.maven.org/maven2/", "ftp://example.com"}
	for _, tc := range testcases {
		f.Add(tc)
	}
	f.Fuzz(func(t *testing.T, orig string) {
		sanitized := SanitizeSite(orig)
		if sanitized == "" {
			t.Errorf("SanitizeSite(%q) returned an empty string", orig)
		}
	})
}
