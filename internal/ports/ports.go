package ports

import (
	"context"
	"io"
	"time"

	"mockinterview/internal/domain"
)

// Timer is a scheduled callback that can be cancelled.
type Timer interface {
	Stop() bool
}

// Clock abstracts time so that timelines can be driven in tests.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// TrackKind identifies a media track.
type TrackKind string

const (
	TrackAudio TrackKind = "audio"
	TrackVideo TrackKind = "video"
)

// DeviceConfig describes how a capture device should be opened. Zero
// values leave the choice to the device.
type DeviceConfig struct {
	Kind        TrackKind
	InputFormat string
	InputDevice string
	SampleRate  int
	Channels    int
	Width       int
	Height      int
	FrameRate   int
}

// DeviceSession is a live capture of one device.
type DeviceSession interface {
	io.ReadCloser
	Stop() error
}

// DeviceCapture opens capture sessions.
type DeviceCapture interface {
	Start(ctx context.Context, cfg DeviceConfig) (DeviceSession, error)
}

// AudioSource hands out microphone audio taps.
type AudioSource interface {
	OpenAudio(ctx context.Context) (io.ReadCloser, error)
}

// StreamingConfig describes provider-agnostic streaming settings.
type StreamingConfig struct {
	SampleRate     int
	Channels       int
	Encoding       string
	InterimResults bool
}

// StreamingSession is an active provider websocket session.
type StreamingSession interface {
	SendAudio(chunk []byte) error
	CloseSend() error
	Events() <-chan domain.TranscriptEvent
	Wait() error
	Close() error
}

// TranscriptionProvider starts streaming transcription sessions.
type TranscriptionProvider interface {
	StartStreaming(ctx context.Context, cfg StreamingConfig) (StreamingSession, error)
}

// RulesEngine transforms transcripts using deterministic rules.
type RulesEngine interface {
	Apply(text string) (string, error)
}

// Synthesizer turns text into 16-bit little-endian PCM audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (io.ReadCloser, error)
}

// AudioPlayer plays PCM audio until it ends or ctx is cancelled.
type AudioPlayer interface {
	Play(ctx context.Context, pcm io.Reader) error
}

// ListenHandlers receive speech input events. Each handler may be nil.
type ListenHandlers struct {
	OnInterim func(text string)
	OnResult  func(text string)
	OnError   func(err error)
}

// SpeechInput captures one spoken answer at a time.
type SpeechInput interface {
	Start(ctx context.Context, handlers ListenHandlers) error
	Stop()
	Listening() bool
}

// SpeechOutput speaks one utterance at a time. done receives nil on
// completion or cancellation and the failure on a hard error.
type SpeechOutput interface {
	Speak(ctx context.Context, text string, done func(err error))
	Cancel()
	Speaking() bool
}

// MediaController owns the camera/microphone stream of a session. Release
// frees the devices but allows a later Acquire; Stop is final.
type MediaController interface {
	AudioSource
	Acquire(ctx context.Context) error
	SetMicEnabled(enabled bool)
	SetCameraEnabled(enabled bool)
	LatestFrame() []byte
	ActiveTracks() int
	Release()
	Stop()
}

// QuestionsRequest asks for a phase's question batch.
type QuestionsRequest struct {
	JobDescription string
	Resume         string
	Phase          domain.Phase
}

// NextQuestionRequest asks for one continuation question.
type NextQuestionRequest struct {
	JobDescription string
	Resume         string
	Responses      []domain.Response
	CurrentPhase   domain.Phase
	QuestionCount  int
}

// FeedbackRequest asks for the evaluation of collected responses.
type FeedbackRequest struct {
	JobDescription string
	Resume         string
	Responses      []domain.Response
}

// QuestionService is the remote question/feedback generator.
type QuestionService interface {
	GenerateQuestions(ctx context.Context, req QuestionsRequest) ([]domain.Question, error)
	GenerateNextQuestion(ctx context.Context, req NextQuestionRequest) (string, error)
	GenerateFeedback(ctx context.Context, req FeedbackRequest) (domain.Feedback, error)
}

// ReportStore persists session reports.
type ReportStore interface {
	Save(ctx context.Context, report domain.Report) error
	Get(ctx context.Context, sessionID string) (domain.Report, error)
	List(ctx context.Context) ([]domain.Report, error)
}

// AttentionMonitor emits posture/focus signals until ctx is done.
type AttentionMonitor interface {
	Watch(ctx context.Context) <-chan domain.Attention
}

// Metrics records session telemetry.
type Metrics interface {
	SessionStarted()
	SessionFinished(completed bool, duration time.Duration)
	ResponseRecorded(phase domain.Phase, skipped bool)
	FallbackUsed(endpoint string)
	RecognitionRestarted(kind domain.RecognitionErrorKind)
	MediaFailed(kind domain.MediaErrorKind)
	RemoteRequest(endpoint string, status string, duration time.Duration)
}

// Clipboard writes text into the system clipboard.
type Clipboard interface {
	SetText(ctx context.Context, text string) error
}

// EventSink emits session state and events to the shell.
type EventSink interface {
	SessionChanged(snapshot domain.Snapshot)
	InterimTranscript(text string)
	SessionError(code domain.ErrorCode, detail string)
	FeedbackReady(report domain.Report)
}
