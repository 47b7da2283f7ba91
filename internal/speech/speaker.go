package speech

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"mockinterview/internal/ports"
)

// Speaker plays one utterance at a time. A new Speak cancels the utterance
// in flight.
type Speaker struct {
	synth  ports.Synthesizer
	player ports.AudioPlayer
	logger *slog.Logger

	mu     sync.Mutex
	seq    int
	cancel context.CancelFunc
	active bool
	wg     sync.WaitGroup
}

func NewSpeaker(synth ports.Synthesizer, player ports.AudioPlayer, logger *slog.Logger) *Speaker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Speaker{synth: synth, player: player, logger: logger.With("component", "speaker")}
}

// Speak synthesizes and plays text. done is called exactly once: with nil
// on completion or cancellation and with the failure otherwise.
func (s *Speaker) Speak(ctx context.Context, text string, done func(err error)) {
	if done == nil {
		done = func(error) {}
	}

	s.mu.Lock()
	s.cancelLocked()
	s.seq++
	id := s.seq
	uctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.active = strings.TrimSpace(text) != ""
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		err := s.play(uctx, text)
		cancelled := uctx.Err() != nil

		s.mu.Lock()
		if s.seq == id {
			s.active = false
			s.cancel = nil
		}
		s.mu.Unlock()
		cancel()

		if cancelled || errors.Is(err, context.Canceled) {
			done(nil)
			return
		}
		if err != nil {
			s.logger.Warn("utterance failed", "error", err)
		}
		done(err)
	}()
}

func (s *Speaker) play(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	pcm, err := s.synth.Synthesize(ctx, text)
	if err != nil {
		return fmt.Errorf("synthesize: %w", err)
	}
	defer pcm.Close()
	if err := s.player.Play(ctx, pcm); err != nil {
		return fmt.Errorf("play: %w", err)
	}
	return nil
}

// Cancel stops the utterance in flight, if any.
func (s *Speaker) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked()
}

func (s *Speaker) cancelLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.active = false
}

// Speaking reports whether an utterance is in flight.
func (s *Speaker) Speaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Wait blocks until every started utterance has reported completion.
func (s *Speaker) Wait() {
	s.wg.Wait()
}
