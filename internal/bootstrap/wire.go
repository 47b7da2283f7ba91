package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"mockinterview/internal/attention"
	"mockinterview/internal/clock"
	"mockinterview/internal/config"
	"mockinterview/internal/device"
	"mockinterview/internal/domain"
	"mockinterview/internal/logging"
	"mockinterview/internal/media"
	"mockinterview/internal/metrics"
	"mockinterview/internal/ports"
	"mockinterview/internal/providers/deepgram"
	"mockinterview/internal/providers/openaitts"
	"mockinterview/internal/questionbank"
	"mockinterview/internal/remote"
	"mockinterview/internal/rules"
	"mockinterview/internal/speech"
	"mockinterview/internal/store"
	"mockinterview/internal/usecase"
)

const (
	attentionInterval = 2 * time.Second
	ttsSampleRate     = 24000
)

// Services is the assembled runtime graph. Sessions are created per
// interview because their media tracks cannot be reopened after End.
type Services struct {
	Config  config.Config
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	Store   *store.Reports
	Bank    *questionbank.Bank

	remote   *remote.Client
	rules    *rules.Engine
	provider *deepgram.Provider
	synth    *openaitts.Synthesizer
	capture  *device.FFMPEGCapture
	player   *device.FFMPEGPlayer
}

// Build loads configuration and wires all backend dependencies.
func Build() (*Services, error) {
	if err := config.LoadEnvFiles(); err != nil {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return BuildWithConfig(cfg, logging.New(cfg.Log))
}

// BuildWithConfig wires dependencies for an explicit configuration.
func BuildWithConfig(cfg config.Config, logger *slog.Logger) (*Services, error) {
	if logger == nil {
		logger = logging.New(cfg.Log)
	}

	rulesEngine, err := rules.NewEngine(cfg.Interview.RulesPath, cfg.Interview.RuleIterationLimit)
	if err != nil {
		return nil, err
	}
	bank, err := questionbank.Load(cfg.Interview.QuestionBankPath, cfg.Interview.Budgets)
	if err != nil {
		return nil, err
	}
	reports, err := store.Open(store.Options{
		Dir:      cfg.Store.Dir,
		InMemory: cfg.Store.InMemory,
		Logger:   logger,
	})
	if err != nil {
		return nil, err
	}

	m := metrics.New(cfg.Metrics.Namespace)
	services := &Services{
		Config:  cfg,
		Logger:  logger,
		Metrics: m,
		Store:   reports,
		Bank:    bank,
		remote: remote.New(remote.Config{
			BaseURL: cfg.Remote.BaseURL,
			Timeout: cfg.Remote.Timeout,
		}, nil, logger, m),
		rules: rulesEngine,
		provider: deepgram.NewProvider(deepgram.Config{
			APIKey:      cfg.Deepgram.APIKey,
			APIBaseURL:  cfg.Deepgram.APIBaseURL,
			Model:       cfg.Deepgram.Model,
			Language:    cfg.Deepgram.Language,
			SmartFormat: cfg.Deepgram.SmartFormat,
		}),
		synth: openaitts.New(openaitts.Config{
			APIKey:  cfg.Speech.APIKey,
			BaseURL: cfg.Speech.BaseURL,
			Model:   cfg.Speech.Model,
			Voice:   cfg.Speech.Voice,
		}),
		capture: device.NewFFMPEGCapture(cfg.Media.FFmpegCommand),
		player: device.NewFFMPEGPlayer(cfg.Media.FFmpegCommand, device.PlaybackConfig{
			SampleRate:   ttsSampleRate,
			Channels:     1,
			OutputFormat: cfg.Media.PlaybackFormat,
			OutputDevice: cfg.Media.PlaybackDevice,
		}),
	}

	logger.Info("services ready",
		"deepgram", cfg.Deepgram.APIKey != "",
		"tts", cfg.Speech.APIKey != "",
		"remote", cfg.Remote.BaseURL,
		"store", storeLabel(cfg.Store),
	)
	return services, nil
}

// SessionOptions are the per-interview collaborators supplied by a shell.
type SessionOptions struct {
	Events      ports.EventSink
	OnTerminate func(domain.Report)
}

// NewSession builds an interview session with its own media manager,
// listener and speaker.
func (s *Services) NewSession(ctx context.Context, opts SessionOptions) *usecase.Session {
	cfg := s.Config
	realClock := clock.Real{}

	manager := media.NewManager(s.capture, media.Config{
		Audio: ports.DeviceConfig{
			InputFormat: cfg.Media.AudioFormat,
			InputDevice: cfg.Media.AudioDevice,
			SampleRate:  cfg.Media.SampleRate,
			Channels:    cfg.Media.Channels,
		},
		Video: ports.DeviceConfig{
			InputFormat: cfg.Media.VideoFormat,
			InputDevice: cfg.Media.VideoDevice,
			Width:       cfg.Media.Width,
			Height:      cfg.Media.Height,
			FrameRate:   cfg.Media.FrameRate,
		},
		ChunkSize: cfg.Media.ChunkSize,
	}, s.Logger)

	listener := speech.NewListener(s.provider, manager, s.rules, realClock, s.Metrics, s.Logger, speech.ListenerConfig{
		Streaming: ports.StreamingConfig{
			SampleRate:     cfg.Media.SampleRate,
			Channels:       cfg.Media.Channels,
			Encoding:       "linear16",
			InterimResults: true,
		},
		ChunkSize:       cfg.Media.ChunkSize,
		SilenceTimeout:  cfg.Timing.SilenceTimeout,
		NoSpeechTimeout: cfg.Timing.NoSpeechTimeout,
		RestartBackoff:  cfg.Timing.RestartBackoff,
	})

	return usecase.New(ctx, usecase.Deps{
		Speaker:   speech.NewSpeaker(s.synth, s.player, s.Logger),
		Listener:  listener,
		Media:     manager,
		Questions: s.remote,
		Bank:      s.Bank,
		Store:     s.Store,
		Events:    opts.Events,
		Metrics:   s.Metrics,
		Attention: attention.New(realClock, attentionInterval, uint64(time.Now().UnixNano())),
		Clock:     realClock,
		Logger:    s.Logger,
	}, usecase.Config{
		Budgets:         cfg.Interview.Budgets,
		SettleDelay:     cfg.Timing.SettleDelay,
		ListenDelay:     cfg.Timing.ListenDelay,
		TransitionPause: cfg.Timing.TransitionPause,
		FeedbackTimeout: cfg.Timing.FeedbackDeadline,
		OnTerminate:     opts.OnTerminate,
	})
}

// Close releases the report store.
func (s *Services) Close() error {
	if s == nil || s.Store == nil {
		return nil
	}
	if err := s.Store.Close(); err != nil {
		return fmt.Errorf("close report store: %w", err)
	}
	return nil
}

func storeLabel(cfg config.StoreConfig) string {
	if cfg.InMemory {
		return "memory"
	}
	return cfg.Dir
}
