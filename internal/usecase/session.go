// Package usecase runs the interview session: phases, question queue,
// response log, and the turn-taking between the speaker, the listener and
// the media tracks.
package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"mockinterview/internal/clock"
	"mockinterview/internal/domain"
	"mockinterview/internal/metrics"
	"mockinterview/internal/ports"
	"mockinterview/internal/questionbank"
)

var (
	ErrSessionEnded     = errors.New("interview session has ended")
	ErrAlreadyStarted   = errors.New("interview already started")
	ErrNoActiveQuestion = errors.New("no active question")
	ErrEmptyAnswer      = errors.New("answer is empty")
)

// Session is one interview. Every state change runs as an action on a
// serial scheduler; deferred work carries a token and is dropped once the
// token's epoch is gone. Operations must not be called from EventSink
// callbacks.
type Session struct {
	deps      Deps
	cfg       Config
	base      *slog.Logger
	logger    *slog.Logger
	finalizer reportFinalizer
	sched     scheduler

	ended atomic.Bool

	// listenMu serializes listener starts; wantListen holds the listen
	// sequence a start is still wanted for, zero when none.
	listenMu   sync.Mutex
	wantListen atomic.Uint64

	mu     sync.Mutex
	parent context.Context
	halt   context.CancelFunc
	ctx    context.Context
	cancel context.CancelFunc
	epoch  uint64
	notify []func(ports.EventSink)

	timers   map[uint64]ports.Timer
	timerSeq uint64

	id             string
	jobDescription string
	resume         string
	started        bool
	startedAt      time.Time
	phase          domain.Phase

	questions  []domain.Question
	next       int
	current    int
	answerOpen bool
	askedAt    time.Time
	responses  []domain.Response
	counts     domain.QuestionCounts
	interim    string

	welcomeDone bool
	introReady  bool
	introBatch  []domain.Question

	speaking  bool
	listening bool
	fetching  bool
	speechSeq uint64
	listenSeq uint64

	micEnabled     bool
	cameraEnabled  bool
	mediaReady     bool
	mediaPending   bool
	speechDisabled bool
	speechBanner   string
	mediaBanner    string
	attention      *domain.Attention

	report *domain.Report
}

func New(ctx context.Context, deps Deps, cfg Config) *Session {
	if deps.Events == nil {
		deps.Events = nopEvents{}
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.Nop{}
	}
	if deps.Clock == nil {
		deps.Clock = clock.Real{}
	}
	if deps.Bank == nil {
		deps.Bank = questionbank.Default()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if cfg.Budgets.Total() == 0 {
		cfg.Budgets = domain.DefaultBudgets
	}
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = 300 * time.Millisecond
	}
	if cfg.ListenDelay <= 0 {
		cfg.ListenDelay = 500 * time.Millisecond
	}
	if cfg.TransitionPause <= 0 {
		cfg.TransitionPause = time.Second
	}
	if cfg.FeedbackTimeout <= 0 {
		cfg.FeedbackTimeout = time.Minute
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}
	if cfg.Go == nil {
		cfg.Go = func(f func()) { go f() }
	}
	if ctx == nil {
		ctx = context.Background()
	}

	logger := deps.Logger.With("component", "session")
	root, halt := context.WithCancel(ctx)
	s := &Session{
		deps:          deps,
		cfg:           cfg,
		base:          logger,
		logger:        logger,
		finalizer:     newReportFinalizer(deps.Questions, deps.Bank, deps.Store, deps.Metrics, logger),
		parent:        root,
		halt:          halt,
		timers:        make(map[uint64]ports.Timer),
		micEnabled:    true,
		cameraEnabled: true,
	}
	s.ctx, s.cancel = context.WithCancel(root)
	s.resetLocked()
	return s
}

// Start leaves the instructions phase: media is acquired, the introduction
// batch is fetched and the welcome is spoken.
func (s *Session) Start(jobDescription, resume string) error {
	return s.do(func(tok token) error {
		if s.started {
			return ErrAlreadyStarted
		}
		s.started = true
		s.id = s.cfg.NewID()
		s.startedAt = s.deps.Clock.Now()
		s.jobDescription = jobDescription
		s.resume = resume
		s.phase = domain.PhaseVoiceIntro
		s.logger = s.base.With("session", s.id)
		s.deps.Metrics.SessionStarted()
		s.logger.Info("interview started")

		s.acquireMediaLocked()
		s.watchAttentionLocked(tok)
		s.fetchBatchLocked(tok, domain.PhaseIntroduction, func(batch []domain.Question) {
			s.introBatch = batch
			s.introReady = true
			s.beginInterviewLocked(tok)
		})
		s.speakLocked(tok, s.deps.Bank.Welcome, func() {
			s.welcomeDone = true
			s.beginInterviewLocked(tok)
		})
		return nil
	})
}

// SubmitAnswer records text as the answer to the active question.
func (s *Session) SubmitAnswer(text string) error {
	return s.do(func(tok token) error {
		return s.submitLocked(tok, text)
	})
}

// Skip records the skip sentinel as the answer to the active question.
func (s *Session) Skip() error {
	return s.SubmitAnswer(domain.SkippedAnswer)
}

// ToggleMic mutes or unmutes the microphone and reports the new state.
func (s *Session) ToggleMic() (bool, error) {
	var enabled bool
	err := s.do(func(tok token) error {
		s.micEnabled = !s.micEnabled
		enabled = s.micEnabled
		s.deps.Media.SetMicEnabled(enabled)
		if !enabled {
			s.stopListeningLocked()
			return nil
		}
		if !s.speechDisabled {
			s.speechBanner = ""
		}
		s.maybeListenLocked(tok)
		return nil
	})
	return enabled, err
}

// ToggleCamera enables or disables the camera and reports the new state.
func (s *Session) ToggleCamera() (bool, error) {
	var enabled bool
	err := s.do(func(token) error {
		s.cameraEnabled = !s.cameraEnabled
		enabled = s.cameraEnabled
		s.deps.Media.SetCameraEnabled(enabled)
		return nil
	})
	return enabled, err
}

// RetryMedia re-runs device acquisition after a failure.
func (s *Session) RetryMedia() error {
	return s.do(func(token) error {
		if !s.started || s.phase == domain.PhaseFeedback {
			return nil
		}
		s.acquireMediaLocked()
		return nil
	})
}

// Restart drops every pending callback and returns to the instructions
// phase. Acquired media stays open.
func (s *Session) Restart() error {
	return s.do(func(token) error {
		if s.started && s.report == nil {
			s.deps.Metrics.SessionFinished(false, s.deps.Clock.Now().Sub(s.startedAt))
		}
		s.cancel()
		s.ctx, s.cancel = context.WithCancel(s.parent)
		s.epoch++
		s.cancelSpeechLocked()
		s.stopListeningLocked()
		s.stopTimersLocked()
		s.resetLocked()
		s.logger.Info("interview restarted")
		return nil
	})
}

// End terminates the session. The ended flag is raised before any teardown
// so callbacks racing with it no-op; then speech is cancelled, recognition
// and media are stopped, timers are cleared and OnTerminate receives the
// report. Safe to call repeatedly.
func (s *Session) End() {
	if !s.ended.CompareAndSwap(false, true) {
		return
	}
	// Aborts in-flight dials and requests before waiting on the state lock.
	s.halt()

	s.mu.Lock()
	s.cancel()
	s.cancelSpeechLocked()
	s.listenSeq++
	s.wantListen.Store(0)
	s.listening = false
	s.deps.Listener.Stop()
	s.deps.Media.Stop()
	s.mediaReady = false
	s.mediaPending = false
	s.stopTimersLocked()
	s.fetching = false

	var report domain.Report
	if s.report != nil {
		report = *s.report
	} else {
		report = s.reportLocked(false)
		if s.started {
			s.deps.Metrics.SessionFinished(false, report.EndedAt.Sub(report.StartedAt))
			if err := s.finalizer.Persist(context.Background(), report); err != nil {
				s.logger.Warn("failed to save terminated report", "error", err)
			}
		}
	}
	s.logger.Info("interview ended", "phase", s.phase, "responses", len(s.responses))
	snap := s.snapshotLocked()
	notify := s.takeNotifyLocked()
	s.mu.Unlock()

	s.flush(notify, snap)
	if s.cfg.OnTerminate != nil {
		s.cfg.OnTerminate(report)
	}
}

// Snapshot returns the current read-only state.
func (s *Session) Snapshot() domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Report returns the completed report once feedback is ready.
func (s *Session) Report() (domain.Report, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.report == nil {
		return domain.Report{}, false
	}
	return *s.report, true
}

// Responses returns a copy of the response log.
func (s *Session) Responses() []domain.Response {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Response(nil), s.responses...)
}

// PendingTimers counts scheduled session timers that have not fired.
func (s *Session) PendingTimers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Frame returns the latest camera frame, or nil.
func (s *Session) Frame() []byte {
	if s.ended.Load() {
		return nil
	}
	return s.deps.Media.LatestFrame()
}

// do runs op as a scheduler action and waits for its result.
func (s *Session) do(op func(tok token) error) error {
	if s.ended.Load() {
		return ErrSessionEnded
	}
	result := make(chan error, 1)
	s.sched.post(func() {
		if s.ended.Load() {
			result <- ErrSessionEnded
			return
		}
		s.mu.Lock()
		if s.ended.Load() {
			s.mu.Unlock()
			result <- ErrSessionEnded
			return
		}
		err := op(s.tokenLocked())
		snap := s.snapshotLocked()
		notify := s.takeNotifyLocked()
		s.mu.Unlock()
		s.flush(notify, snap)
		result <- err
	})
	return <-result
}

// post queues a deferred action that runs only while tok is valid.
func (s *Session) post(tok token, name string, action func()) {
	s.sched.post(func() {
		s.run(name, tok, true, action)
	})
}

// postAny queues a deferred action that only End invalidates.
func (s *Session) postAny(name string, action func()) {
	s.sched.post(func() {
		s.run(name, token{}, false, action)
	})
}

func (s *Session) run(name string, tok token, checkEpoch bool, action func()) {
	if s.ended.Load() {
		return
	}
	s.mu.Lock()
	if s.ended.Load() || (checkEpoch && tok.epoch != s.epoch) {
		s.logger.Debug("dropping stale callback", "action", name, "issued", tok.issued)
		s.mu.Unlock()
		return
	}
	action()
	snap := s.snapshotLocked()
	notify := s.takeNotifyLocked()
	s.mu.Unlock()
	s.flush(notify, snap)
}

func (s *Session) tokenLocked() token {
	return token{epoch: s.epoch, issued: s.deps.Clock.Now()}
}

// afterLocked schedules action on the session clock and tracks the timer
// until it fires or is cleared.
func (s *Session) afterLocked(tok token, d time.Duration, name string, action func()) {
	s.timerSeq++
	id := s.timerSeq
	s.timers[id] = s.deps.Clock.AfterFunc(d, func() {
		s.post(tok, name, func() {
			if _, ok := s.timers[id]; !ok {
				return
			}
			delete(s.timers, id)
			action()
		})
	})
}

func (s *Session) stopTimersLocked() {
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
}

// goLocked runs work in the background and posts its continuation.
func (s *Session) goLocked(tok token, name string, work func(ctx context.Context) func()) {
	ctx := s.ctx
	s.cfg.Go(func() {
		then := work(ctx)
		s.post(tok, name, then)
	})
}

func (s *Session) emitLocked(fn func(ports.EventSink)) {
	s.notify = append(s.notify, fn)
}

func (s *Session) takeNotifyLocked() []func(ports.EventSink) {
	notify := s.notify
	s.notify = nil
	return notify
}

func (s *Session) flush(notify []func(ports.EventSink), snap domain.Snapshot) {
	for _, fn := range notify {
		fn(s.deps.Events)
	}
	s.deps.Events.SessionChanged(snap)
}

func (s *Session) resetLocked() {
	s.logger = s.base
	s.id = ""
	s.jobDescription = ""
	s.resume = ""
	s.started = false
	s.startedAt = time.Time{}
	s.phase = domain.PhaseInstructions
	s.questions = nil
	s.next = 0
	s.current = -1
	s.answerOpen = false
	s.askedAt = time.Time{}
	s.responses = nil
	s.counts = domain.QuestionCounts{}
	s.interim = ""
	s.welcomeDone = false
	s.introReady = false
	s.introBatch = nil
	s.speaking = false
	s.listening = false
	s.fetching = false
	s.speechDisabled = false
	s.speechBanner = ""
	s.attention = nil
	s.report = nil
}

func (s *Session) snapshotLocked() domain.Snapshot {
	snap := domain.Snapshot{
		SessionID:     s.id,
		Phase:         s.phase,
		Listening:     s.listening,
		Speaking:      s.speaking,
		Fetching:      s.fetching,
		Counts:        s.counts,
		Budgets:       s.cfg.Budgets,
		Responses:     len(s.responses),
		Interim:       s.interim,
		MicEnabled:    s.micEnabled,
		CameraEnabled: s.cameraEnabled,
		MediaReady:    s.mediaReady,
		SpeechBanner:  s.speechBanner,
		MediaBanner:   s.mediaBanner,
		Terminated:    s.ended.Load(),
		StartedAt:     s.startedAt,
	}
	if s.current >= 0 && s.current < len(s.questions) {
		q := s.questions[s.current]
		snap.CurrentQuestion = &q
	}
	if s.attention != nil {
		a := *s.attention
		snap.Attention = &a
	}
	return snap
}

func (s *Session) reportLocked(completed bool) domain.Report {
	return domain.Report{
		SessionID:      s.id,
		StartedAt:      s.startedAt,
		EndedAt:        s.deps.Clock.Now(),
		Completed:      completed,
		JobDescription: s.jobDescription,
		Resume:         s.resume,
		Responses:      append([]domain.Response(nil), s.responses...),
	}
}
