// Package media owns the camera and microphone of an interview session.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"mockinterview/internal/ports"
)

var (
	// ErrStopped is returned once the manager has been torn down.
	ErrStopped = errors.New("media: manager stopped")
	// ErrNoAudio is returned when no microphone track is live.
	ErrNoAudio = errors.New("media: no audio track")
)

// Config holds the ideal device settings. Minimal settings are derived from
// them by dropping every optional constraint.
type Config struct {
	Audio     ports.DeviceConfig
	Video     ports.DeviceConfig
	ChunkSize int
	TapBuffer int
}

// Manager acquires the audio and video tracks, fans microphone audio out to
// taps and keeps the latest camera frame.
type Manager struct {
	capture ports.DeviceCapture
	cfg     Config
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu            sync.Mutex
	audio         ports.DeviceSession
	video         ports.DeviceSession
	micEnabled    bool
	cameraEnabled bool
	taps          map[int]*tap
	nextTap       int
	frame         []byte
	stopped       bool

	pumps sync.WaitGroup
}

func NewManager(capture ports.DeviceCapture, cfg Config, logger *slog.Logger) *Manager {
	if cfg.ChunkSize < 256 {
		cfg.ChunkSize = 4096
	}
	if cfg.TapBuffer <= 0 {
		cfg.TapBuffer = 64
	}
	cfg.Audio.Kind = ports.TrackAudio
	cfg.Video.Kind = ports.TrackVideo
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		capture:       capture,
		cfg:           cfg,
		logger:        logger.With("component", "media"),
		ctx:           ctx,
		cancel:        cancel,
		micEnabled:    true,
		cameraEnabled: true,
		taps:          make(map[int]*tap),
	}
}

// Acquire opens both tracks with the ideal settings and retries once with
// minimal settings. The returned error is a *domain.MediaError.
func (m *Manager) Acquire(ctx context.Context) error {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return ErrStopped
	}
	if m.audio != nil && m.video != nil {
		m.mu.Unlock()
		return nil
	}
	stale := []ports.DeviceSession{m.audio, m.video}
	m.audio, m.video = nil, nil
	m.mu.Unlock()
	for _, session := range stale {
		if session != nil {
			_ = session.Stop()
		}
	}

	audio, video, err := m.open(ctx, m.cfg.Audio, m.cfg.Video)
	if err != nil {
		m.logger.Info("ideal capture settings failed, retrying with minimal settings", "error", err)
		audio, video, err = m.open(ctx, minimal(m.cfg.Audio), minimal(m.cfg.Video))
	}
	if err != nil {
		classified := Classify(err)
		m.logger.Warn("media acquisition failed", "kind", classified.Kind, "error", err)
		return classified
	}

	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		_ = audio.Stop()
		_ = video.Stop()
		return ErrStopped
	}
	m.audio, m.video = audio, video
	m.pumps.Add(2)
	m.mu.Unlock()

	go m.pumpAudio(audio)
	go m.pumpVideo(video)
	m.logger.Info("media acquired")
	return nil
}

func (m *Manager) open(ctx context.Context, audioCfg, videoCfg ports.DeviceConfig) (ports.DeviceSession, ports.DeviceSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	audio, err := m.capture.Start(m.ctx, audioCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open microphone: %w", err)
	}
	if err := ctx.Err(); err != nil {
		_ = audio.Stop()
		return nil, nil, err
	}
	video, err := m.capture.Start(m.ctx, videoCfg)
	if err != nil {
		_ = audio.Stop()
		return nil, nil, fmt.Errorf("open camera: %w", err)
	}
	return audio, video, nil
}

func minimal(cfg ports.DeviceConfig) ports.DeviceConfig {
	out := ports.DeviceConfig{Kind: cfg.Kind, InputFormat: cfg.InputFormat}
	if cfg.Kind == ports.TrackAudio {
		// sample format is a conversion, not a device constraint
		out.SampleRate = cfg.SampleRate
		out.Channels = cfg.Channels
	}
	return out
}

func (m *Manager) pumpAudio(session ports.DeviceSession) {
	defer m.pumps.Done()
	buf := make([]byte, m.cfg.ChunkSize)
	for {
		n, err := session.Read(buf)
		if n > 0 {
			chunk := append([]byte(nil), buf[:n]...)
			m.mu.Lock()
			if m.micEnabled {
				for _, t := range m.taps {
					select {
					case t.ch <- chunk:
					default:
					}
				}
			}
			m.mu.Unlock()
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && m.ctx.Err() == nil {
				m.logger.Warn("microphone read failed", "error", err)
			}
			m.trackEnded(session)
			return
		}
	}
}

func (m *Manager) pumpVideo(session ports.DeviceSession) {
	defer m.pumps.Done()
	splitter := newFrameSplitter(session)
	for {
		frame, err := splitter.Next()
		if frame != nil {
			m.mu.Lock()
			if m.cameraEnabled {
				m.frame = frame
			}
			m.mu.Unlock()
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && m.ctx.Err() == nil {
				m.logger.Warn("camera read failed", "error", err)
			}
			m.trackEnded(session)
			return
		}
	}
}

// trackEnded forgets a track whose process went away on its own.
func (m *Manager) trackEnded(session ports.DeviceSession) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch session {
	case m.audio:
		m.audio = nil
		m.closeTapsLocked()
	case m.video:
		m.video = nil
		m.frame = nil
	}
}

// OpenAudio returns a reader of live microphone PCM. Chunks are dropped
// when the reader falls behind or the microphone is muted.
func (m *Manager) OpenAudio(ctx context.Context) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return nil, ErrStopped
	}
	if m.audio == nil {
		return nil, ErrNoAudio
	}
	m.nextTap++
	t := &tap{
		id:     m.nextTap,
		ch:     make(chan []byte, m.cfg.TapBuffer),
		closed: make(chan struct{}),
		ctx:    ctx,
		owner:  m,
	}
	m.taps[t.id] = t
	return t, nil
}

func (m *Manager) removeTap(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.taps, id)
}

func (m *Manager) closeTapsLocked() {
	for id, t := range m.taps {
		close(t.ch)
		delete(m.taps, id)
	}
}

func (m *Manager) SetMicEnabled(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.micEnabled = enabled
}

func (m *Manager) SetCameraEnabled(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cameraEnabled = enabled
	if !enabled {
		m.frame = nil
	}
}

// LatestFrame returns the most recent JPEG frame, or nil.
func (m *Manager) LatestFrame() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.frame
}

// ActiveTracks counts live tracks.
func (m *Manager) ActiveTracks() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	if m.audio != nil {
		count++
	}
	if m.video != nil {
		count++
	}
	return count
}

// Release stops every track and detaches taps but leaves the manager
// usable; a later Acquire reopens the devices.
func (m *Manager) Release() {
	m.teardown(false)
}

// Stop stops every track, detaches taps and drops the frame. Safe to call
// repeatedly. Acquire fails with ErrStopped afterwards.
func (m *Manager) Stop() {
	m.teardown(true)
}

func (m *Manager) teardown(final bool) {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.stopped = final
	audio, video := m.audio, m.video
	m.audio, m.video = nil, nil
	m.frame = nil
	m.closeTapsLocked()
	m.mu.Unlock()

	if final {
		m.cancel()
	}
	for _, session := range []ports.DeviceSession{audio, video} {
		if session == nil {
			continue
		}
		if err := session.Stop(); err != nil {
			m.logger.Debug("track stop failed", "error", err)
		}
	}
	m.pumps.Wait()
}

type tap struct {
	id     int
	ch     chan []byte
	closed chan struct{}
	once   sync.Once
	ctx    context.Context
	owner  *Manager
	buf    []byte
}

func (t *tap) Read(p []byte) (int, error) {
	if len(t.buf) == 0 {
		select {
		case chunk, ok := <-t.ch:
			if !ok {
				return 0, io.EOF
			}
			t.buf = chunk
		case <-t.closed:
			return 0, io.EOF
		case <-t.ctx.Done():
			return 0, t.ctx.Err()
		}
	}
	n := copy(p, t.buf)
	t.buf = t.buf[n:]
	return n, nil
}

func (t *tap) Close() error {
	t.once.Do(func() {
		close(t.closed)
		t.owner.removeTap(t.id)
	})
	return nil
}
