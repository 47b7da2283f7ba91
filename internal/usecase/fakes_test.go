package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"mockinterview/internal/domain"
	"mockinterview/internal/metrics"
	"mockinterview/internal/ports"
)

// timeline records collaborator calls across fakes in the order they happen.
type timeline struct {
	mu     sync.Mutex
	events []string
}

func (t *timeline) add(event string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, event)
}

func (t *timeline) snapshot() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.events...)
}

func (t *timeline) index(event string) int {
	for i, e := range t.snapshot() {
		if e == event {
			return i
		}
	}
	return -1
}

func (t *timeline) count(event string) int {
	n := 0
	for _, e := range t.snapshot() {
		if e == event {
			n++
		}
	}
	return n
}

// fakeSpeaker completes utterances immediately unless manual is set, in
// which case finish completes the pending one.
type fakeSpeaker struct {
	mu      sync.Mutex
	log     *timeline
	manual  bool
	errs    map[string]error
	spoken  []string
	pending func(error)
	cancels int
	onSpeak func()
}

func (f *fakeSpeaker) Speak(_ context.Context, text string, done func(error)) {
	f.mu.Lock()
	f.spoken = append(f.spoken, text)
	prev := f.pending
	f.pending = nil
	err := f.errs[text]
	if f.manual {
		f.pending = done
	}
	onSpeak := f.onSpeak
	f.mu.Unlock()

	if f.log != nil {
		f.log.add("speak:" + text)
	}
	if onSpeak != nil {
		onSpeak()
	}
	if prev != nil {
		prev(nil)
	}
	if !f.manual {
		done(err)
	}
}

func (f *fakeSpeaker) Cancel() {
	f.mu.Lock()
	f.cancels++
	pending := f.pending
	f.pending = nil
	f.mu.Unlock()
	if pending != nil {
		pending(nil)
	}
}

func (f *fakeSpeaker) Speaking() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pending != nil
}

func (f *fakeSpeaker) finish(err error) bool {
	f.mu.Lock()
	pending := f.pending
	f.pending = nil
	f.mu.Unlock()
	if pending == nil {
		return false
	}
	pending(err)
	return true
}

func (f *fakeSpeaker) spokenTexts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.spoken...)
}

func (f *fakeSpeaker) cancelCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cancels
}

type fakeListener struct {
	mu       sync.Mutex
	log      *timeline
	startErr error
	starts   int
	stops    int
	active   bool
	handlers ports.ListenHandlers
	onStart  func()
	// dialing, when set, makes Start announce itself, block until its
	// context is done and announce its return, like a provider stuck in a
	// handshake.
	dialing chan struct{}
}

func (f *fakeListener) Start(ctx context.Context, handlers ports.ListenHandlers) error {
	f.mu.Lock()
	f.starts++
	if f.dialing != nil {
		dialing := f.dialing
		f.mu.Unlock()
		dialing <- struct{}{}
		<-ctx.Done()
		dialing <- struct{}{}
		return domain.NewRecognitionError(domain.RecognitionNetwork, ctx.Err())
	}
	onStart := f.onStart
	if f.startErr != nil {
		err := f.startErr
		f.mu.Unlock()
		return err
	}
	f.handlers = handlers
	f.active = true
	f.mu.Unlock()

	if f.log != nil {
		f.log.add("listen")
	}
	if onStart != nil {
		onStart()
	}
	return nil
}

func (f *fakeListener) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	f.active = false
}

func (f *fakeListener) Listening() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active
}

func (f *fakeListener) current() ports.ListenHandlers {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.handlers
}

// result delivers a final answer the way the listener does: capture stops
// before the handler runs.
func (f *fakeListener) result(text string) {
	f.mu.Lock()
	handlers := f.handlers
	f.active = false
	f.mu.Unlock()
	if handlers.OnResult != nil {
		handlers.OnResult(text)
	}
}

func (f *fakeListener) fail(err error) {
	f.mu.Lock()
	handlers := f.handlers
	f.active = false
	f.mu.Unlock()
	if handlers.OnError != nil {
		handlers.OnError(err)
	}
}

func (f *fakeListener) startCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts
}

type fakeMedia struct {
	mu       sync.Mutex
	errs     []error
	acquires int
	tracks   int
	mic      bool
	camera   bool
	releases int
	stops    int
	frame    []byte
}

func (f *fakeMedia) OpenAudio(context.Context) (io.ReadCloser, error) {
	return nil, errors.New("not used")
}

func (f *fakeMedia) Acquire(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acquires++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return err
		}
	}
	f.tracks = 2
	return nil
}

func (f *fakeMedia) SetMicEnabled(enabled bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mic = enabled
}

func (f *fakeMedia) SetCameraEnabled(enabled bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.camera = enabled
}

func (f *fakeMedia) LatestFrame() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.frame
}

func (f *fakeMedia) ActiveTracks() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tracks
}

func (f *fakeMedia) Release() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.releases++
	f.tracks = 0
}

func (f *fakeMedia) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	f.tracks = 0
}

// dropTrack simulates a device process exiting on its own.
func (f *fakeMedia) dropTrack() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tracks > 0 {
		f.tracks--
	}
}

func (f *fakeMedia) acquireCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.acquires
}

func (f *fakeMedia) micEnabled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mic
}

type fakeQuestions struct {
	mu          sync.Mutex
	log         *timeline
	batches     map[domain.Phase][]domain.Question
	batchErrs   map[domain.Phase]error
	next        []string
	nextErr     error
	feedback    domain.Feedback
	feedbackErr error

	batchCalls    []domain.Phase
	nextCalls     []ports.NextQuestionRequest
	feedbackCalls []ports.FeedbackRequest
}

func (f *fakeQuestions) GenerateQuestions(_ context.Context, req ports.QuestionsRequest) ([]domain.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batchCalls = append(f.batchCalls, req.Phase)
	if f.log != nil {
		f.log.add("batch:" + string(req.Phase))
	}
	if err := f.batchErrs[req.Phase]; err != nil {
		return nil, err
	}
	batch, ok := f.batches[req.Phase]
	if !ok {
		return nil, fmt.Errorf("no batch for %s", req.Phase)
	}
	return append([]domain.Question(nil), batch...), nil
}

func (f *fakeQuestions) GenerateNextQuestion(_ context.Context, req ports.NextQuestionRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextCalls = append(f.nextCalls, req)
	if f.nextErr != nil {
		return "", f.nextErr
	}
	if len(f.next) == 0 {
		return "", errors.New("no continuation question configured")
	}
	text := f.next[0]
	f.next = f.next[1:]
	return text, nil
}

func (f *fakeQuestions) GenerateFeedback(_ context.Context, req ports.FeedbackRequest) (domain.Feedback, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.feedbackCalls = append(f.feedbackCalls, req)
	if f.feedbackErr != nil {
		return domain.Feedback{}, f.feedbackErr
	}
	return f.feedback, nil
}

func (f *fakeQuestions) nextRequests() []ports.NextQuestionRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ports.NextQuestionRequest(nil), f.nextCalls...)
}

type fakeStore struct {
	mu      sync.Mutex
	err     error
	reports []domain.Report
}

func (f *fakeStore) Save(_ context.Context, report domain.Report) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.reports = append(f.reports, report)
	return nil
}

func (f *fakeStore) Get(_ context.Context, id string) (domain.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.reports {
		if r.SessionID == id {
			return r, nil
		}
	}
	return domain.Report{}, errors.New("not found")
}

func (f *fakeStore) List(context.Context) ([]domain.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Report(nil), f.reports...), nil
}

func (f *fakeStore) saved() []domain.Report {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Report(nil), f.reports...)
}

type errEvent struct {
	code   domain.ErrorCode
	detail string
}

type fakeEventSink struct {
	mu        sync.Mutex
	snapshots []domain.Snapshot
	interims  []string
	errors    []errEvent
	reports   []domain.Report
}

func (f *fakeEventSink) SessionChanged(snapshot domain.Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshots = append(f.snapshots, snapshot)
}

func (f *fakeEventSink) InterimTranscript(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.interims = append(f.interims, text)
}

func (f *fakeEventSink) SessionError(code domain.ErrorCode, detail string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors = append(f.errors, errEvent{code: code, detail: detail})
}

func (f *fakeEventSink) FeedbackReady(report domain.Report) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reports = append(f.reports, report)
}

func (f *fakeEventSink) snapshotStates() []domain.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Snapshot(nil), f.snapshots...)
}

func (f *fakeEventSink) snapshotErrors() []errEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]errEvent(nil), f.errors...)
}

func (f *fakeEventSink) snapshotReports() []domain.Report {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Report(nil), f.reports...)
}

func (f *fakeEventSink) snapshotInterims() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.interims...)
}

func (f *fakeEventSink) hasError(code domain.ErrorCode) bool {
	for _, e := range f.snapshotErrors() {
		if e.code == code {
			return true
		}
	}
	return false
}

type fakeMetrics struct {
	metrics.Nop

	mu        sync.Mutex
	fallbacks []string
	finished  []bool
	responses int
}

func (f *fakeMetrics) FallbackUsed(endpoint string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fallbacks = append(f.fallbacks, endpoint)
}

func (f *fakeMetrics) SessionFinished(completed bool, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finished = append(f.finished, completed)
}

func (f *fakeMetrics) ResponseRecorded(domain.Phase, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses++
}

func (f *fakeMetrics) snapshotFallbacks() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.fallbacks...)
}

func (f *fakeMetrics) snapshotFinished() []bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]bool(nil), f.finished...)
}

type fakeAttention struct {
	signals []domain.Attention
}

func (f *fakeAttention) Watch(context.Context) <-chan domain.Attention {
	ch := make(chan domain.Attention, len(f.signals))
	for _, s := range f.signals {
		ch <- s
	}
	close(ch)
	return ch
}
