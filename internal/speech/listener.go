// Package speech drives spoken interaction: a Listener that captures one
// answer at a time through a streaming recognizer and a Speaker that plays
// one synthesized utterance at a time.
package speech

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"mockinterview/internal/domain"
	"mockinterview/internal/ports"
)

// ErrNoProvider is returned when no recognition provider is configured.
var ErrNoProvider = errors.New("speech: no recognition provider configured")

// ListenerConfig controls recognition timing.
type ListenerConfig struct {
	Streaming       ports.StreamingConfig
	ChunkSize       int
	SilenceTimeout  time.Duration
	NoSpeechTimeout time.Duration
	RestartBackoff  time.Duration
}

// Listener captures spoken answers. Each final segment restarts the silence
// timer; when it expires the transcript is cleaned up, delivered once and
// capture stops. Transient failures restart capture while listening is
// wanted; permanent failures stop it and reach OnError.
type Listener struct {
	provider ports.TranscriptionProvider
	audio    ports.AudioSource
	rules    ports.RulesEngine
	clock    ports.Clock
	metrics  ports.Metrics
	logger   *slog.Logger
	cfg      ListenerConfig

	mu           sync.Mutex
	shouldListen bool
	listenID     int
	gen          int
	ctx          context.Context
	handlers     ports.ListenHandlers
	aggregator   *transcriptAggregator
	current      *recognition
	silence      ports.Timer
	noSpeech     ports.Timer
	restart      ports.Timer
}

type recognition struct {
	gen    int
	cancel context.CancelFunc
	audio  io.ReadCloser
	stream ports.StreamingSession
}

func NewListener(
	provider ports.TranscriptionProvider,
	audio ports.AudioSource,
	rules ports.RulesEngine,
	clock ports.Clock,
	metrics ports.Metrics,
	logger *slog.Logger,
	cfg ListenerConfig,
) *Listener {
	if cfg.SilenceTimeout <= 0 {
		cfg.SilenceTimeout = 1500 * time.Millisecond
	}
	if cfg.NoSpeechTimeout <= 0 {
		cfg.NoSpeechTimeout = 10 * time.Second
	}
	if cfg.RestartBackoff <= 0 {
		cfg.RestartBackoff = time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Listener{
		provider: provider,
		audio:    audio,
		rules:    rules,
		clock:    clock,
		metrics:  metrics,
		logger:   logger.With("component", "listener"),
		cfg:      cfg,
	}
}

// Start begins capturing one answer. A permanent failure to start is
// returned; transient failures are retried in the background.
func (l *Listener) Start(ctx context.Context, handlers ports.ListenHandlers) error {
	if l.provider == nil {
		return domain.NewRecognitionError(domain.RecognitionUnsupported, ErrNoProvider)
	}

	l.mu.Lock()
	l.stopLocked()
	l.shouldListen = true
	l.listenID++
	l.ctx = ctx
	l.handlers = handlers
	l.aggregator = newTranscriptAggregator()
	id := l.listenID
	l.mu.Unlock()

	err := l.begin(id)
	if err == nil {
		return nil
	}
	var recErr *domain.RecognitionError
	if errors.As(err, &recErr) && recErr.Transient() {
		l.scheduleRestart(id, recErr.Kind)
		return nil
	}

	l.mu.Lock()
	if l.listenID == id {
		l.shouldListen = false
	}
	l.mu.Unlock()
	return err
}

// Stop clears the listen flag, the timers and the active recognition.
func (l *Listener) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stopLocked()
}

// Listening reports whether capture is wanted.
func (l *Listener) Listening() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.shouldListen
}

func (l *Listener) stopLocked() {
	l.shouldListen = false
	l.listenID++
	stopTimer(&l.silence)
	stopTimer(&l.noSpeech)
	stopTimer(&l.restart)
	l.dropRecognitionLocked()
}

func (l *Listener) dropRecognitionLocked() {
	if l.current == nil {
		return
	}
	rec := l.current
	l.current = nil
	rec.cancel()
	_ = rec.audio.Close()
	_ = rec.stream.Close()
}

// begin opens a new recognition for listen session id.
func (l *Listener) begin(id int) error {
	l.mu.Lock()
	if l.listenID != id || !l.shouldListen {
		l.mu.Unlock()
		return nil
	}
	parent := l.ctx
	l.mu.Unlock()

	recCtx, cancel := context.WithCancel(parent)
	audio, err := l.audio.OpenAudio(recCtx)
	if err != nil {
		cancel()
		return domain.NewRecognitionError(domain.RecognitionAudioCapture, err)
	}
	stream, err := l.provider.StartStreaming(recCtx, l.cfg.Streaming)
	if err != nil {
		_ = audio.Close()
		cancel()
		var recErr *domain.RecognitionError
		if errors.As(err, &recErr) {
			return err
		}
		return domain.NewRecognitionError(domain.RecognitionNetwork, err)
	}

	l.mu.Lock()
	if l.listenID != id || !l.shouldListen {
		l.mu.Unlock()
		_ = audio.Close()
		_ = stream.Close()
		cancel()
		return nil
	}
	l.dropRecognitionLocked()
	l.gen++
	rec := &recognition{gen: l.gen, cancel: cancel, audio: audio, stream: stream}
	l.current = rec
	stopTimer(&l.noSpeech)
	if l.aggregator.Empty() {
		l.noSpeech = l.clock.AfterFunc(l.cfg.NoSpeechTimeout, func() {
			l.fail(rec.gen, domain.NewRecognitionError(domain.RecognitionNoSpeech, errors.New("no speech detected")))
		})
	}
	l.mu.Unlock()

	go l.consume(rec)
	go func() {
		if err := pumpAudioChunks(audio, stream, l.cfg.ChunkSize); err != nil {
			l.fail(rec.gen, err)
		}
	}()
	return nil
}

func (l *Listener) consume(rec *recognition) {
	for event := range rec.stream.Events() {
		l.onTranscript(rec.gen, event)
	}
	if err := rec.stream.Wait(); err != nil {
		l.fail(rec.gen, err)
		return
	}
	l.fail(rec.gen, domain.NewRecognitionError(domain.RecognitionNetwork, errors.New("recognition stream closed")))
}

func (l *Listener) onTranscript(gen int, event domain.TranscriptEvent) {
	if strings.TrimSpace(event.Text) == "" {
		return
	}

	l.mu.Lock()
	if l.current == nil || l.current.gen != gen {
		l.mu.Unlock()
		return
	}
	l.aggregator.Add(event)
	stopTimer(&l.noSpeech)
	if event.Kind == domain.TranscriptKindFinal {
		stopTimer(&l.silence)
		id := l.listenID
		l.silence = l.clock.AfterFunc(l.cfg.SilenceTimeout, func() { l.finalize(id) })
	}
	interim := l.aggregator.Interim()
	onInterim := l.handlers.OnInterim
	l.mu.Unlock()

	if onInterim != nil {
		onInterim(interim)
	}
}

// finalize delivers the accumulated answer after the silence timeout.
func (l *Listener) finalize(id int) {
	l.mu.Lock()
	if l.listenID != id || !l.shouldListen {
		l.mu.Unlock()
		return
	}
	raw := l.aggregator.Raw()
	onResult := l.handlers.OnResult
	l.silence = nil
	l.stopLocked()
	l.mu.Unlock()

	text := raw
	if l.rules != nil {
		cleaned, err := l.rules.Apply(raw)
		if err != nil {
			l.logger.Warn("transcript cleanup failed", "error", err)
		} else {
			text = cleaned
		}
	}
	text = strings.TrimSpace(text)
	if text == "" {
		text = strings.TrimSpace(raw)
	}
	if onResult != nil && text != "" {
		onResult(text)
	}
}

// fail handles an error raised by recognition gen.
func (l *Listener) fail(gen int, err error) {
	l.mu.Lock()
	if l.current == nil || l.current.gen != gen || !l.shouldListen {
		l.mu.Unlock()
		return
	}
	kind := domain.RecognitionKind(err)
	var recErr *domain.RecognitionError
	if !errors.As(err, &recErr) {
		recErr = &domain.RecognitionError{Kind: kind, Err: err}
	}
	stopTimer(&l.noSpeech)
	l.dropRecognitionLocked()

	if recErr.Transient() {
		id := l.listenID
		l.mu.Unlock()
		l.logger.Debug("recognition interrupted, restarting", "kind", kind, "error", err)
		l.scheduleRestart(id, kind)
		return
	}

	onError := l.handlers.OnError
	l.stopLocked()
	l.mu.Unlock()

	l.logger.Warn("recognition failed", "kind", kind, "error", err)
	if onError != nil {
		onError(recErr)
	}
}

func (l *Listener) scheduleRestart(id int, kind domain.RecognitionErrorKind) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.listenID != id || !l.shouldListen {
		return
	}
	if l.metrics != nil {
		l.metrics.RecognitionRestarted(kind)
	}
	stopTimer(&l.restart)
	l.restart = l.clock.AfterFunc(l.cfg.RestartBackoff, func() {
		l.mu.Lock()
		if l.listenID != id {
			l.mu.Unlock()
			return
		}
		l.restart = nil
		l.mu.Unlock()

		err := l.begin(id)
		if err == nil {
			return
		}
		var recErr *domain.RecognitionError
		if errors.As(err, &recErr) && recErr.Transient() {
			l.scheduleRestart(id, recErr.Kind)
			return
		}
		l.mu.Lock()
		if l.listenID != id {
			l.mu.Unlock()
			return
		}
		onError := l.handlers.OnError
		l.stopLocked()
		l.mu.Unlock()
		l.logger.Warn("recognition restart failed", "error", err)
		if onError != nil {
			onError(err)
		}
	})
}

func stopTimer(t *ports.Timer) {
	if *t != nil {
		(*t).Stop()
		*t = nil
	}
}
