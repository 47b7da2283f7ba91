package questionbank

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mockinterview/internal/domain"
)

func TestDefaultBankCoversBudgets(t *testing.T) {
	t.Parallel()

	bank := Default()
	for _, phase := range domain.QuestionPhases {
		questions := bank.Questions(phase, domain.DefaultBudgets.Get(phase))
		if len(questions) != domain.DefaultBudgets.Get(phase) {
			t.Fatalf("phase %s: expected %d questions, got %d", phase, domain.DefaultBudgets.Get(phase), len(questions))
		}
		for i, q := range questions {
			if q.ID != i+1 {
				t.Fatalf("phase %s: unexpected id %d at %d", phase, q.ID, i)
			}
			if q.Category != domain.CategoryFor(phase) {
				t.Fatalf("phase %s: unexpected category %s", phase, q.Category)
			}
		}
		if bank.NextQuestion(phase) == "" {
			t.Fatalf("phase %s: missing next question", phase)
		}
	}
	if bank.Transition(domain.PhaseTechnical) == "" || bank.Transition(domain.PhaseBehavioral) == "" {
		t.Fatalf("expected transitions for technical and behavioral")
	}
}

func TestQuestionsReturnsCopies(t *testing.T) {
	t.Parallel()

	bank := Default()
	first := bank.Questions(domain.PhaseIntroduction, 0)
	first[0].Asked = true
	second := bank.Questions(domain.PhaseIntroduction, 0)
	if second[0].Asked {
		t.Fatalf("expected fresh questions on every call")
	}
}

func TestParseRejectsShortPhase(t *testing.T) {
	t.Parallel()

	data := []byte(`
welcome: hi
closing: bye
transitions:
  technical: t
  behavioral: b
phases:
  introduction:
    questions: [a]
    next_question: n
  technical:
    questions: [a, b, c, d, e]
    next_question: n
  behavioral:
    questions: [a, b, c, d]
    next_question: n
feedback:
  overall_score: 50
`)
	_, err := Parse(data, domain.DefaultBudgets)
	if err == nil {
		t.Fatalf("expected validation error")
	}
	if !strings.Contains(err.Error(), "phase introduction has 1 questions") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bank.yaml")
	if err := os.WriteFile(path, defaultYAML, 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	bank, err := Load(path, domain.QuestionCounts{Introduction: 1, Technical: 1, Behavioral: 1})
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if bank.Welcome == "" {
		t.Fatalf("expected welcome text")
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), domain.DefaultBudgets); err == nil {
		t.Fatalf("expected missing file error")
	}
}

func TestFallbackFeedbackScoresSkips(t *testing.T) {
	t.Parallel()

	bank := Default()
	feedback := bank.FallbackFeedback([]domain.Response{
		{QuestionText: "q1", Answer: "an answer"},
		{QuestionText: "q2", Answer: domain.SkippedAnswer},
	})
	if len(feedback.DetailedFeedback) != 2 {
		t.Fatalf("expected 2 detail entries, got %d", len(feedback.DetailedFeedback))
	}
	if feedback.DetailedFeedback[1].Score != 0 {
		t.Fatalf("expected skipped answer to score 0")
	}
	if feedback.OverallScore != bank.Feedback.OverallScore {
		t.Fatalf("unexpected overall score %d", feedback.OverallScore)
	}
}
