package device

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"time"
)

// PlaybackConfig describes the PCM stream and the output device.
type PlaybackConfig struct {
	SampleRate   int
	Channels     int
	OutputFormat string
	OutputDevice string
}

// FFMPEGPlayer plays 16-bit little-endian PCM through ffmpeg.
type FFMPEGPlayer struct {
	command string
	cfg     PlaybackConfig
}

func NewFFMPEGPlayer(command string, cfg PlaybackConfig) *FFMPEGPlayer {
	if command == "" {
		command = "ffmpeg"
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 24000
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	cfg.OutputFormat = firstNonEmpty(cfg.OutputFormat, "pulse")
	cfg.OutputDevice = firstNonEmpty(cfg.OutputDevice, "default")
	return &FFMPEGPlayer{command: command, cfg: cfg}
}

func (p *FFMPEGPlayer) args() []string {
	return []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "warning",
		"-f", "s16le",
		"-ar", strconv.Itoa(p.cfg.SampleRate),
		"-ac", strconv.Itoa(p.cfg.Channels),
		"-i", "pipe:0",
		"-f", p.cfg.OutputFormat,
		p.cfg.OutputDevice,
	}
}

// Play blocks until pcm is fully played or ctx is cancelled. Cancellation
// interrupts ffmpeg and returns ctx.Err().
func (p *FFMPEGPlayer) Play(ctx context.Context, pcm io.Reader) error {
	cmd := exec.CommandContext(ctx, p.command, p.args()...)
	cmd.Stdin = pcm
	var stderr syncBuffer
	cmd.Stderr = &stderr
	cmd.Cancel = func() error {
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = time.Second

	err := cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if err != nil {
		return fmt.Errorf("ffmpeg playback failed: %w: %s", err, trimSpace(stderr.String()))
	}
	return nil
}
