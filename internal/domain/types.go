package domain

import "time"

// Phase is one stage of the scripted interview.
type Phase string

const (
	PhaseInstructions Phase = "instructions"
	PhaseVoiceIntro   Phase = "voice-intro"
	PhaseIntroduction Phase = "introduction"
	PhaseTechnical    Phase = "technical"
	PhaseBehavioral   Phase = "behavioral"
	PhaseEnding       Phase = "ending"
	PhaseFeedback     Phase = "feedback"
)

var phaseOrder = []Phase{
	PhaseInstructions,
	PhaseVoiceIntro,
	PhaseIntroduction,
	PhaseTechnical,
	PhaseBehavioral,
	PhaseEnding,
	PhaseFeedback,
}

// QuestionPhases lists the phases that carry a question budget, in order.
var QuestionPhases = []Phase{PhaseIntroduction, PhaseTechnical, PhaseBehavioral}

// Ordinal returns the position of the phase in the interview, or -1.
func (p Phase) Ordinal() int {
	for i, candidate := range phaseOrder {
		if candidate == p {
			return i
		}
	}
	return -1
}

// Next returns the phase that follows p. The last phase returns itself.
func (p Phase) Next() Phase {
	i := p.Ordinal()
	if i < 0 || i == len(phaseOrder)-1 {
		return p
	}
	return phaseOrder[i+1]
}

// HasQuestions reports whether questions are asked during the phase.
func (p Phase) HasQuestions() bool {
	switch p {
	case PhaseIntroduction, PhaseTechnical, PhaseBehavioral:
		return true
	default:
		return false
	}
}

// Valid reports whether p is a known phase.
func (p Phase) Valid() bool {
	return p.Ordinal() >= 0
}

// Category classifies a question.
type Category string

const (
	CategoryIntroduction Category = "introduction"
	CategoryTechnical    Category = "technical"
	CategoryBehavioral   Category = "behavioral"
	CategoryFollowUp     Category = "follow-up"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryIntroduction, CategoryTechnical, CategoryBehavioral, CategoryFollowUp:
		return true
	}
	return false
}

// CategoryFor returns the default question category of a phase.
func CategoryFor(p Phase) Category {
	switch p {
	case PhaseTechnical:
		return CategoryTechnical
	case PhaseBehavioral:
		return CategoryBehavioral
	default:
		return CategoryIntroduction
	}
}

// Question is a single interview question.
type Question struct {
	ID       int      `json:"id" yaml:"id" msgpack:"id"`
	Text     string   `json:"text" yaml:"text" msgpack:"text"`
	Category Category `json:"category" yaml:"category" msgpack:"category"`
	Asked    bool     `json:"asked" yaml:"-" msgpack:"asked"`
}

// SkippedAnswer is recorded when the candidate skips a question.
const SkippedAnswer = "User skipped this question"

// Response is the logged answer to one question.
type Response struct {
	QuestionID   int           `json:"questionId" msgpack:"question_id"`
	QuestionText string        `json:"question" msgpack:"question"`
	Answer       string        `json:"answer" msgpack:"answer"`
	Phase        Phase         `json:"phase" msgpack:"phase"`
	Timestamp    time.Time     `json:"timestamp" msgpack:"timestamp"`
	Duration     time.Duration `json:"duration" msgpack:"duration"`
}

// Skipped reports whether the response records a skip.
func (r Response) Skipped() bool {
	return r.Answer == SkippedAnswer
}

// QuestionCounts holds per-phase counters.
type QuestionCounts struct {
	Introduction int `json:"introduction" yaml:"introduction"`
	Technical    int `json:"technical" yaml:"technical"`
	Behavioral   int `json:"behavioral" yaml:"behavioral"`
}

// DefaultBudgets are the question targets per phase.
var DefaultBudgets = QuestionCounts{Introduction: 3, Technical: 5, Behavioral: 4}

// Get returns the counter for a phase; phases without questions report 0.
func (c QuestionCounts) Get(p Phase) int {
	switch p {
	case PhaseIntroduction:
		return c.Introduction
	case PhaseTechnical:
		return c.Technical
	case PhaseBehavioral:
		return c.Behavioral
	default:
		return 0
	}
}

// Inc returns a copy with the phase counter incremented.
func (c QuestionCounts) Inc(p Phase) QuestionCounts {
	switch p {
	case PhaseIntroduction:
		c.Introduction++
	case PhaseTechnical:
		c.Technical++
	case PhaseBehavioral:
		c.Behavioral++
	}
	return c
}

// Total sums all counters.
func (c QuestionCounts) Total() int {
	return c.Introduction + c.Technical + c.Behavioral
}

// Attention is an externally supplied posture/focus signal.
type Attention struct {
	Posture string    `json:"posture"`
	Focused bool      `json:"focused"`
	At      time.Time `json:"at"`
}

// Snapshot is the read-only session view consumed by the shell.
type Snapshot struct {
	SessionID       string         `json:"sessionId"`
	Phase           Phase          `json:"phase"`
	CurrentQuestion *Question      `json:"currentQuestion,omitempty"`
	Listening       bool           `json:"listening"`
	Speaking        bool           `json:"speaking"`
	Fetching        bool           `json:"fetching"`
	Counts          QuestionCounts `json:"counts"`
	Budgets         QuestionCounts `json:"budgets"`
	Responses       int            `json:"responses"`
	Interim         string         `json:"interim,omitempty"`
	MicEnabled      bool           `json:"micEnabled"`
	CameraEnabled   bool           `json:"cameraEnabled"`
	MediaReady      bool           `json:"mediaReady"`
	SpeechBanner    string         `json:"speechBanner,omitempty"`
	MediaBanner     string         `json:"mediaBanner,omitempty"`
	Attention       *Attention     `json:"attention,omitempty"`
	Terminated      bool           `json:"terminated"`
	StartedAt       time.Time      `json:"startedAt"`
}

// QuestionFeedback scores a single answer.
type QuestionFeedback struct {
	Question string `json:"question" msgpack:"question"`
	Answer   string `json:"answer" msgpack:"answer"`
	Score    int    `json:"score" msgpack:"score"`
	Feedback string `json:"feedback" msgpack:"feedback"`
}

// Feedback is the scored evaluation of an interview.
type Feedback struct {
	OverallScore     int                `json:"overallScore" yaml:"overall_score" msgpack:"overall_score"`
	Strengths        []string           `json:"strengths" yaml:"strengths" msgpack:"strengths"`
	Improvements     []string           `json:"improvements" yaml:"improvements" msgpack:"improvements"`
	DetailedFeedback []QuestionFeedback `json:"detailedFeedback" yaml:"-" msgpack:"detailed_feedback"`
	Recommendations  []string           `json:"recommendations" yaml:"recommendations" msgpack:"recommendations"`
}

// FeedbackSource tells where a report's feedback came from.
type FeedbackSource string

const (
	FeedbackSourceRemote   FeedbackSource = "remote"
	FeedbackSourceFallback FeedbackSource = "fallback"
)

// Report is the persisted outcome of a session.
type Report struct {
	SessionID      string         `json:"sessionId" msgpack:"session_id"`
	StartedAt      time.Time      `json:"startedAt" msgpack:"started_at"`
	EndedAt        time.Time      `json:"endedAt" msgpack:"ended_at"`
	Completed      bool           `json:"completed" msgpack:"completed"`
	JobDescription string         `json:"jobDescription" msgpack:"job_description"`
	Resume         string         `json:"resume" msgpack:"resume"`
	Responses      []Response     `json:"responses" msgpack:"responses"`
	Feedback       *Feedback      `json:"feedback,omitempty" msgpack:"feedback"`
	FeedbackSource FeedbackSource `json:"feedbackSource,omitempty" msgpack:"feedback_source"`
}

// TranscriptKind identifies whether a stream event is partial or final text.
type TranscriptKind string

const (
	TranscriptKindPartial TranscriptKind = "partial"
	TranscriptKindFinal   TranscriptKind = "final"
)

// TranscriptEvent represents incremental transcription output from a provider.
type TranscriptEvent struct {
	Kind          TranscriptKind `json:"kind"`
	Text          string         `json:"text"`
	IsSpeechFinal bool           `json:"isSpeechFinal"`
}
