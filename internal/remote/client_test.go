package remote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"mockinterview/internal/domain"
	"mockinterview/internal/logging"
	"mockinterview/internal/ports"
)

type recordingMetrics struct {
	mu       sync.Mutex
	requests []string
}

func (m *recordingMetrics) SessionStarted()                                  {}
func (m *recordingMetrics) SessionFinished(bool, time.Duration)              {}
func (m *recordingMetrics) ResponseRecorded(domain.Phase, bool)              {}
func (m *recordingMetrics) FallbackUsed(string)                              {}
func (m *recordingMetrics) RecognitionRestarted(domain.RecognitionErrorKind) {}
func (m *recordingMetrics) MediaFailed(domain.MediaErrorKind)                {}
func (m *recordingMetrics) RemoteRequest(endpoint string, status string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, endpoint+" "+status)
}

func (m *recordingMetrics) snapshot() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.requests...)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *recordingMetrics) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	metrics := &recordingMetrics{}
	return New(Config{BaseURL: server.URL + "/"}, server.Client(), logging.Discard(), metrics), metrics
}

func TestGenerateQuestionsSendsPhaseAndParsesBatch(t *testing.T) {
	t.Parallel()

	var got questionsRequest
	client, metrics := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate-questions" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = io.WriteString(w, `{"questions":[{"id":1,"text":"Q1","category":"technical"},{"question":"Q2"},{"id":3,"text":"  "}]}`)
	})

	questions, err := client.GenerateQuestions(context.Background(), ports.QuestionsRequest{
		JobDescription: "jd",
		Resume:         "cv",
		Phase:          domain.PhaseTechnical,
	})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if got.Phase != "technical" || got.JobDescription != "jd" || got.Resume != "cv" {
		t.Fatalf("unexpected request body: %+v", got)
	}
	if len(questions) != 2 {
		t.Fatalf("expected 2 questions, got %+v", questions)
	}
	if questions[1].Text != "Q2" || questions[1].ID != 2 || questions[1].Category != domain.CategoryTechnical {
		t.Fatalf("unexpected second question: %+v", questions[1])
	}
	if calls := metrics.snapshot(); len(calls) != 1 || calls[0] != "generate-questions 200" {
		t.Fatalf("unexpected metrics: %v", calls)
	}
}

func TestGenerateQuestionsNormalizesCategories(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"questions":[`+
			`{"id":4,"text":"Q1","category":"Behavioral"},`+
			`{"text":"Q2","category":"leadership"},`+
			`{"id":2,"text":"Q3","category":"follow-up"}]}`)
	})

	questions, err := client.GenerateQuestions(context.Background(), ports.QuestionsRequest{Phase: domain.PhaseBehavioral})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	want := []domain.Question{
		{ID: 4, Text: "Q1", Category: domain.CategoryBehavioral},
		{ID: 5, Text: "Q2", Category: domain.CategoryBehavioral},
		{ID: 2, Text: "Q3", Category: domain.CategoryFollowUp},
	}
	if len(questions) != len(want) {
		t.Fatalf("expected %d questions, got %+v", len(want), questions)
	}
	for i := range want {
		if questions[i] != want[i] {
			t.Fatalf("question %d: expected %+v, got %+v", i, want[i], questions[i])
		}
	}
}

func TestGenerateQuestionsErrors(t *testing.T) {
	t.Parallel()

	cases := map[string]http.HandlerFunc{
		"status": func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		},
		"empty body": func(w http.ResponseWriter, _ *http.Request) {},
		"empty list": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, `{"questions":[]}`)
		},
		"wrong shape": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, `{"questions":"nope"}`)
		},
	}
	for name, handler := range cases {
		client, _ := newTestClient(t, handler)
		if _, err := client.GenerateQuestions(context.Background(), ports.QuestionsRequest{Phase: domain.PhaseIntroduction}); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestStatusErrorIsTyped(t *testing.T) {
	t.Parallel()

	client, metrics := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	_, err := client.GenerateNextQuestion(context.Background(), ports.NextQuestionRequest{})
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if calls := metrics.snapshot(); len(calls) != 1 || calls[0] != "generate-next-question 502" {
		t.Fatalf("unexpected metrics: %v", calls)
	}
}

func TestGenerateNextQuestionSendsHistoryInMilliseconds(t *testing.T) {
	t.Parallel()

	var got nextQuestionRequest
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		// trailing comma is repaired before decoding
		_, _ = io.WriteString(w, `{"question": "What did you learn?",}`)
	})

	at := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	question, err := client.GenerateNextQuestion(context.Background(), ports.NextQuestionRequest{
		Responses: []domain.Response{{
			QuestionID:   2,
			QuestionText: "Q",
			Answer:       "A",
			Phase:        domain.PhaseIntroduction,
			Timestamp:    at,
			Duration:     1500 * time.Millisecond,
		}},
		CurrentPhase:  domain.PhaseIntroduction,
		QuestionCount: 2,
	})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if question != "What did you learn?" {
		t.Fatalf("unexpected question %q", question)
	}
	if got.CurrentPhase != "introduction" || got.QuestionCount != 2 || len(got.Responses) != 1 {
		t.Fatalf("unexpected request: %+v", got)
	}
	if got.Responses[0].DurationMS != 1500 || got.Responses[0].Timestamp != "2026-05-01T10:00:00Z" {
		t.Fatalf("unexpected wire response: %+v", got.Responses[0])
	}
}

func TestGenerateNextQuestionRejectsBlank(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"question":"   "}`)
	})
	if _, err := client.GenerateNextQuestion(context.Background(), ports.NextQuestionRequest{}); !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestGenerateFeedbackClampsScores(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{
			"overallScore": 140,
			"strengths": ["clear"],
			"improvements": ["depth"],
			"detailedFeedback": [{"question":"Q","answer":"A","score":12,"feedback":"ok"}],
			"recommendations": ["practice"]
		}`)
	})

	feedback, err := client.GenerateFeedback(context.Background(), ports.FeedbackRequest{})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if feedback.OverallScore != 100 || feedback.DetailedFeedback[0].Score != 10 {
		t.Fatalf("expected clamped scores, got %+v", feedback)
	}
	if len(feedback.Recommendations) != 1 {
		t.Fatalf("unexpected recommendations: %v", feedback.Recommendations)
	}
}

func TestGenerateFeedbackRejectsEmptyObject(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{}`)
	})
	if _, err := client.GenerateFeedback(context.Background(), ports.FeedbackRequest{}); !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestTransportErrorIsReturned(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client := New(Config{BaseURL: url, Timeout: time.Second}, nil, logging.Discard(), nil)
	if _, err := client.GenerateQuestions(context.Background(), ports.QuestionsRequest{}); err == nil {
		t.Fatalf("expected transport error")
	}
}
