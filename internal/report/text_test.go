package report

import (
	"strings"
	"testing"
	"time"

	"mockinterview/internal/domain"
)

func TestTextCompletedReport(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	r := domain.Report{
		SessionID: "s-1",
		StartedAt: start,
		EndedAt:   start.Add(12*time.Minute + 400*time.Millisecond),
		Completed: true,
		Responses: []domain.Response{
			{Phase: domain.PhaseIntroduction, QuestionText: "Tell me about yourself.", Answer: "I build APIs."},
			{Phase: domain.PhaseTechnical, QuestionText: "Explain caching.", Answer: domain.SkippedAnswer},
		},
		Feedback: &domain.Feedback{
			OverallScore: 64,
			Strengths:    []string{"Concise"},
			DetailedFeedback: []domain.QuestionFeedback{
				{Score: 7, Feedback: "Good."},
				{Score: 0, Feedback: "Skipped."},
			},
		},
		FeedbackSource: domain.FeedbackSourceFallback,
	}

	text := Text(r)
	for _, want := range []string{
		"Interview s-1",
		"Duration: 12m0s",
		"Status: completed",
		"Overall score: 64/100 (offline estimate)",
		"- Concise",
		"1. [introduction] Tell me about yourself.",
		"Score 0/10: Skipped.",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected %q in:\n%s", want, text)
		}
	}
	if strings.Contains(text, "Improvements") {
		t.Fatalf("empty sections should be omitted")
	}
}

func TestTextPartialReport(t *testing.T) {
	t.Parallel()

	text := Text(domain.Report{SessionID: "s-2"})
	if !strings.Contains(text, "Status: ended early") {
		t.Fatalf("unexpected status in:\n%s", text)
	}
	if strings.Contains(text, "Overall score") || strings.Contains(text, "Answers") {
		t.Fatalf("partial report without feedback rendered scores:\n%s", text)
	}
}
