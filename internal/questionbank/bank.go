// Package questionbank holds the static fallback content used whenever the
// question service cannot be reached: question tables per phase, one
// continuation question per phase, a generic feedback object and the
// scripted utterances.
package questionbank

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"mockinterview/internal/domain"
)

//go:embed default.yaml
var defaultYAML []byte

// Bank is the parsed fallback content.
type Bank struct {
	Welcome     string                  `yaml:"welcome"`
	Closing     string                  `yaml:"closing"`
	Transitions map[domain.Phase]string `yaml:"transitions"`
	Phases      map[domain.Phase]Phase  `yaml:"phases"`
	Feedback    domain.Feedback         `yaml:"feedback"`
}

// Phase is the fallback content of one question phase.
type Phase struct {
	Questions    []string `yaml:"questions"`
	NextQuestion string   `yaml:"next_question"`
}

// Default returns the embedded bank.
func Default() *Bank {
	bank, err := Parse(defaultYAML, domain.DefaultBudgets)
	if err != nil {
		panic(fmt.Sprintf("questionbank: embedded default is invalid: %v", err))
	}
	return bank
}

// Load reads a bank from path. An empty path returns the embedded default.
func Load(path string, budgets domain.QuestionCounts) (*Bank, error) {
	if strings.TrimSpace(path) == "" {
		return Parse(defaultYAML, budgets)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read question bank %s: %w", path, err)
	}
	bank, err := Parse(data, budgets)
	if err != nil {
		return nil, fmt.Errorf("question bank %s: %w", path, err)
	}
	return bank, nil
}

// Parse decodes and validates a bank. Each question phase needs at least as
// many questions as its budget so that a fully offline interview completes.
func Parse(data []byte, budgets domain.QuestionCounts) (*Bank, error) {
	var bank Bank
	if err := yaml.Unmarshal(data, &bank); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := bank.validate(budgets); err != nil {
		return nil, err
	}
	return &bank, nil
}

func (b *Bank) validate(budgets domain.QuestionCounts) error {
	var problems []string
	if strings.TrimSpace(b.Welcome) == "" {
		problems = append(problems, "welcome is required")
	}
	if strings.TrimSpace(b.Closing) == "" {
		problems = append(problems, "closing is required")
	}
	for i, phase := range domain.QuestionPhases {
		content, ok := b.Phases[phase]
		if !ok {
			problems = append(problems, fmt.Sprintf("phase %s is missing", phase))
			continue
		}
		if got, want := len(content.Questions), budgets.Get(phase); got < want {
			problems = append(problems, fmt.Sprintf("phase %s has %d questions, budget is %d", phase, got, want))
		}
		for j, q := range content.Questions {
			if strings.TrimSpace(q) == "" {
				problems = append(problems, fmt.Sprintf("phase %s question %d is empty", phase, j+1))
			}
		}
		if strings.TrimSpace(content.NextQuestion) == "" {
			problems = append(problems, fmt.Sprintf("phase %s next_question is required", phase))
		}
		if i > 0 && strings.TrimSpace(b.Transitions[phase]) == "" {
			problems = append(problems, fmt.Sprintf("transition into %s is required", phase))
		}
	}
	if b.Feedback.OverallScore < 0 || b.Feedback.OverallScore > 100 {
		problems = append(problems, "feedback overall_score must be between 0 and 100")
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// Questions returns a fresh copy of the fallback questions of a phase,
// truncated to limit when limit > 0.
func (b *Bank) Questions(phase domain.Phase, limit int) []domain.Question {
	texts := b.Phases[phase].Questions
	if limit > 0 && len(texts) > limit {
		texts = texts[:limit]
	}
	questions := make([]domain.Question, 0, len(texts))
	for i, text := range texts {
		questions = append(questions, domain.Question{
			ID:       i + 1,
			Text:     text,
			Category: domain.CategoryFor(phase),
		})
	}
	return questions
}

// NextQuestion returns the continuation question used for a phase.
func (b *Bank) NextQuestion(phase domain.Phase) string {
	return b.Phases[phase].NextQuestion
}

// Transition returns the utterance spoken when entering phase.
func (b *Bank) Transition(phase domain.Phase) string {
	return b.Transitions[phase]
}

// FallbackFeedback returns the generic feedback object with one detail
// entry per response.
func (b *Bank) FallbackFeedback(responses []domain.Response) domain.Feedback {
	feedback := domain.Feedback{
		OverallScore:    b.Feedback.OverallScore,
		Strengths:       append([]string(nil), b.Feedback.Strengths...),
		Improvements:    append([]string(nil), b.Feedback.Improvements...),
		Recommendations: append([]string(nil), b.Feedback.Recommendations...),
	}
	for _, r := range responses {
		detail := domain.QuestionFeedback{
			Question: r.QuestionText,
			Answer:   r.Answer,
			Score:    7,
			Feedback: "Good answer. Add specific examples and measurable outcomes to make it stronger.",
		}
		if r.Skipped() {
			detail.Score = 0
			detail.Feedback = "This question was skipped. Practice a short answer so you are ready next time."
		}
		feedback.DetailedFeedback = append(feedback.DetailedFeedback, detail)
	}
	return feedback
}
