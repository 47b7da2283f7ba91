// Package device runs ffmpeg to capture microphone and camera input and to
// play synthesized speech.
package device

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"mockinterview/internal/ports"
)

// FFMPEGCapture streams raw PCM audio or MJPEG video using ffmpeg.
type FFMPEGCapture struct {
	command    string
	startGrace time.Duration
}

func NewFFMPEGCapture(command string) *FFMPEGCapture {
	if command == "" {
		command = "ffmpeg"
	}
	return &FFMPEGCapture{command: command, startGrace: 250 * time.Millisecond}
}

// Start launches ffmpeg for the device described by cfg. Errors include the
// tail of ffmpeg's stderr so callers can classify them.
func (c *FFMPEGCapture) Start(ctx context.Context, cfg ports.DeviceConfig) (ports.DeviceSession, error) {
	args, err := captureArgs(cfg)
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, c.command, args...)
	var stderr syncBuffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create ffmpeg stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	waitErr := make(chan error, 1)
	go func() {
		waitErr <- cmd.Wait()
		close(waitErr)
	}()

	select {
	case err := <-waitErr:
		if err != nil {
			return nil, fmt.Errorf("ffmpeg %s capture exited before start: %w: %s", cfg.Kind, err, trimSpace(stderr.String()))
		}
		return nil, fmt.Errorf("ffmpeg %s capture exited before start: %s", cfg.Kind, trimSpace(stderr.String()))
	case <-time.After(c.startGrace):
	}

	return &ffmpegSession{
		stdout:  stdout,
		stderr:  &stderr,
		process: cmd.Process,
		waitErr: waitErr,
	}, nil
}

func captureArgs(cfg ports.DeviceConfig) ([]string, error) {
	args := []string{"-nostdin", "-hide_banner", "-loglevel", "warning"}
	switch cfg.Kind {
	case ports.TrackAudio:
		format := firstNonEmpty(cfg.InputFormat, "pulse")
		device := firstNonEmpty(cfg.InputDevice, "default")
		args = append(args, "-f", format, "-i", device)
		if cfg.Channels > 0 {
			args = append(args, "-ac", strconv.Itoa(cfg.Channels))
		}
		if cfg.SampleRate > 0 {
			args = append(args, "-ar", strconv.Itoa(cfg.SampleRate))
		}
		args = append(args, "-f", "s16le", "-")
	case ports.TrackVideo:
		format := firstNonEmpty(cfg.InputFormat, "v4l2")
		device := firstNonEmpty(cfg.InputDevice, "/dev/video0")
		args = append(args, "-f", format)
		if cfg.FrameRate > 0 {
			args = append(args, "-framerate", strconv.Itoa(cfg.FrameRate))
		}
		if cfg.Width > 0 && cfg.Height > 0 {
			args = append(args, "-video_size", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height))
		}
		args = append(args, "-i", device, "-f", "mjpeg", "-q:v", "5", "-")
	default:
		return nil, fmt.Errorf("unsupported track kind %q", cfg.Kind)
	}
	return args, nil
}

type ffmpegSession struct {
	stdout io.ReadCloser
	stderr *syncBuffer

	process *os.Process
	waitErr <-chan error

	stopOnce sync.Once
	stopErr  error
}

func (s *ffmpegSession) Read(p []byte) (int, error) {
	return s.stdout.Read(p)
}

func (s *ffmpegSession) Close() error {
	return s.Stop()
}

func (s *ffmpegSession) Stop() error {
	s.stopOnce.Do(func() {
		if s.process != nil {
			_ = s.process.Signal(os.Interrupt)
		}

		select {
		case err, ok := <-s.waitErr:
			if ok {
				s.stopErr = normalizeStopErr(err)
			}
		case <-time.After(1200 * time.Millisecond):
			if s.process != nil {
				_ = s.process.Kill()
			}
			err, ok := <-s.waitErr
			if ok {
				s.stopErr = normalizeStopErr(err)
			}
		}

		if closeErr := s.stdout.Close(); closeErr != nil && !errors.Is(closeErr, os.ErrClosed) {
			if s.stopErr == nil {
				s.stopErr = closeErr
			}
		}

		if s.stopErr != nil && s.stderr != nil && s.stderr.Len() > 0 {
			s.stopErr = fmt.Errorf("%w: %s", s.stopErr, trimSpace(s.stderr.String()))
		}
	})

	return s.stopErr
}

func normalizeStopErr(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}

// syncBuffer guards stderr, which ffmpeg writes while Stop may read it.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *syncBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Len()
}

func trimSpace(input string) string {
	if input == "" {
		return input
	}
	return string(bytes.TrimSpace([]byte(input)))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
