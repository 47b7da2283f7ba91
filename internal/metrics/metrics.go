// Package metrics exposes session telemetry as Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mockinterview/internal/domain"
)

// Metrics holds all Prometheus collectors of the interview coach.
type Metrics struct {
	registry *prometheus.Registry

	SessionsActive   prometheus.Gauge
	SessionsTotal    *prometheus.CounterVec
	SessionDuration  prometheus.Histogram
	ResponsesTotal   *prometheus.CounterVec
	FallbacksTotal   *prometheus.CounterVec
	RemoteRequests   *prometheus.CounterVec
	RemoteDuration   *prometheus.HistogramVec
	RecognitionTotal *prometheus.CounterVec
	MediaFailures    *prometheus.CounterVec
}

// New creates a Metrics instance with every collector registered on a
// private registry.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "mockinterview"
	}

	registry := prometheus.NewRegistry()

	sessionsActive := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "sessions_active",
		Help:      "Number of interview sessions in progress",
	})
	sessionsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_total",
		Help:      "Interview sessions by outcome",
	}, []string{"status"})
	sessionDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "session_duration_seconds",
		Help:      "Interview session duration in seconds",
		Buckets:   []float64{30, 60, 300, 600, 900, 1200, 1800, 3600},
	})
	responsesTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "responses_total",
		Help:      "Recorded answers by phase",
	}, []string{"phase", "skipped"})
	fallbacksTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "fallbacks_total",
		Help:      "Remote failures masked by local fallback content",
	}, []string{"endpoint"})
	remoteRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "remote_requests_total",
		Help:      "Requests to the question service",
	}, []string{"endpoint", "status"})
	remoteDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "remote_request_duration_seconds",
		Help:      "Question service request duration in seconds",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"endpoint"})
	recognitionTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "recognition_restarts_total",
		Help:      "Automatic speech recognition restarts by error kind",
	}, []string{"kind"})
	mediaFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "media_failures_total",
		Help:      "Camera and microphone acquisition failures by kind",
	}, []string{"kind"})

	registry.MustRegister(
		sessionsActive,
		sessionsTotal,
		sessionDuration,
		responsesTotal,
		fallbacksTotal,
		remoteRequests,
		remoteDuration,
		recognitionTotal,
		mediaFailures,
	)

	return &Metrics{
		registry:         registry,
		SessionsActive:   sessionsActive,
		SessionsTotal:    sessionsTotal,
		SessionDuration:  sessionDuration,
		ResponsesTotal:   responsesTotal,
		FallbacksTotal:   fallbacksTotal,
		RemoteRequests:   remoteRequests,
		RemoteDuration:   remoteDuration,
		RecognitionTotal: recognitionTotal,
		MediaFailures:    mediaFailures,
	}
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) SessionStarted() {
	m.SessionsActive.Inc()
	m.SessionsTotal.WithLabelValues("started").Inc()
}

func (m *Metrics) SessionFinished(completed bool, duration time.Duration) {
	m.SessionsActive.Dec()
	status := "terminated"
	if completed {
		status = "completed"
	}
	m.SessionsTotal.WithLabelValues(status).Inc()
	m.SessionDuration.Observe(duration.Seconds())
}

func (m *Metrics) ResponseRecorded(phase domain.Phase, skipped bool) {
	m.ResponsesTotal.WithLabelValues(string(phase), strconv.FormatBool(skipped)).Inc()
}

func (m *Metrics) FallbackUsed(endpoint string) {
	m.FallbacksTotal.WithLabelValues(endpoint).Inc()
}

func (m *Metrics) RecognitionRestarted(kind domain.RecognitionErrorKind) {
	m.RecognitionTotal.WithLabelValues(string(kind)).Inc()
}

func (m *Metrics) MediaFailed(kind domain.MediaErrorKind) {
	m.MediaFailures.WithLabelValues(string(kind)).Inc()
}

func (m *Metrics) RemoteRequest(endpoint string, status string, duration time.Duration) {
	m.RemoteRequests.WithLabelValues(endpoint, status).Inc()
	m.RemoteDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// Nop discards every observation.
type Nop struct{}

func (Nop) SessionStarted()                                  {}
func (Nop) SessionFinished(bool, time.Duration)              {}
func (Nop) ResponseRecorded(domain.Phase, bool)              {}
func (Nop) FallbackUsed(string)                              {}
func (Nop) RecognitionRestarted(domain.RecognitionErrorKind) {}
func (Nop) MediaFailed(domain.MediaErrorKind)                {}
func (Nop) RemoteRequest(string, string, time.Duration)      {}
