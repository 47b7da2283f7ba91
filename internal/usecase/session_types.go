package usecase

import (
	"log/slog"
	"time"

	"mockinterview/internal/domain"
	"mockinterview/internal/ports"
	"mockinterview/internal/questionbank"
)

// Deps are the collaborators owned by a session. Speaker, Listener, Media
// and Events are required; the rest fall back to no-op or default values.
type Deps struct {
	Speaker   ports.SpeechOutput
	Listener  ports.SpeechInput
	Media     ports.MediaController
	Questions ports.QuestionService
	Bank      *questionbank.Bank
	Store     ports.ReportStore
	Events    ports.EventSink
	Metrics   ports.Metrics
	Attention ports.AttentionMonitor
	Clock     ports.Clock
	Logger    *slog.Logger
}

// Config controls interview pacing.
type Config struct {
	Budgets         domain.QuestionCounts
	SettleDelay     time.Duration
	ListenDelay     time.Duration
	TransitionPause time.Duration
	FeedbackTimeout time.Duration

	// NewID returns session identifiers. Defaults to random UUIDs.
	NewID func() string
	// Go runs background work. Defaults to a new goroutine.
	Go func(func())
	// OnTerminate receives the report of a session ended with End.
	OnTerminate func(report domain.Report)
}

// token ties a deferred callback to the session epoch it was issued in.
// Restart and End invalidate every outstanding token.
type token struct {
	epoch  uint64
	issued time.Time
}

const (
	endpointQuestions    = "generate-questions"
	endpointNextQuestion = "generate-next-question"
	endpointFeedback     = "generate-feedback"
)

const (
	bannerSpeechUnsupported = "Speech recognition is unavailable. Type your answers or skip questions."
	bannerSpeechDenied      = "Speech recognition was not allowed. Type your answers or skip questions."
	bannerSpeechCapture     = "Listening stopped. Toggle the microphone to try again."
	bannerMediaLost         = "A camera or microphone was disconnected. Retry media to reconnect."
)

type nopEvents struct{}

func (nopEvents) SessionChanged(domain.Snapshot)        {}
func (nopEvents) InterimTranscript(string)              {}
func (nopEvents) SessionError(domain.ErrorCode, string) {}
func (nopEvents) FeedbackReady(domain.Report)           {}
