package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mockinterview/internal/domain"
	"mockinterview/internal/ports"
)

var (
	_ ports.Metrics = (*Metrics)(nil)
	_ ports.Metrics = Nop{}
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	server := httptest.NewServer(m.Handler())
	defer server.Close()

	resp, err := server.Client().Get(server.URL)
	if err != nil {
		t.Fatalf("scrape failed: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	return string(body)
}

func TestMetricsExposeSessionLifecycle(t *testing.T) {
	t.Parallel()

	m := New("test")
	m.SessionStarted()
	m.ResponseRecorded(domain.PhaseTechnical, false)
	m.ResponseRecorded(domain.PhaseTechnical, true)
	m.FallbackUsed("generate-questions")
	m.RecognitionRestarted(domain.RecognitionNoSpeech)
	m.MediaFailed(domain.MediaPermissionDenied)
	m.RemoteRequest("generate-feedback", "200", 1500*time.Millisecond)
	m.SessionFinished(true, 10*time.Minute)

	body := scrape(t, m)
	expected := []string{
		`test_sessions_active 0`,
		`test_sessions_total{status="started"} 1`,
		`test_sessions_total{status="completed"} 1`,
		`test_responses_total{phase="technical",skipped="false"} 1`,
		`test_responses_total{phase="technical",skipped="true"} 1`,
		`test_fallbacks_total{endpoint="generate-questions"} 1`,
		`test_recognition_restarts_total{kind="no-speech"} 1`,
		`test_media_failures_total{kind="permission-denied"} 1`,
		`test_remote_requests_total{endpoint="generate-feedback",status="200"} 1`,
		`test_remote_request_duration_seconds_count{endpoint="generate-feedback"} 1`,
		`test_session_duration_seconds_count 1`,
	}
	for _, line := range expected {
		if !strings.Contains(body, line) {
			t.Fatalf("expected %q in scrape output:\n%s", line, body)
		}
	}
}

func TestNewDefaultsNamespace(t *testing.T) {
	t.Parallel()

	m := New("")
	m.SessionStarted()
	if body := scrape(t, m); !strings.Contains(body, "mockinterview_sessions_active 1") {
		t.Fatalf("expected default namespace:\n%s", body)
	}
}
