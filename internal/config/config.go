package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"mockinterview/internal/domain"
)

// Config stores runtime configuration for the interview coach.
type Config struct {
	Deepgram  DeepgramConfig
	Speech    SpeechConfig
	Media     MediaConfig
	Remote    RemoteConfig
	Interview InterviewConfig
	Timing    TimingConfig
	Store     StoreConfig
	Metrics   MetricsConfig
	Log       LogConfig
}

type DeepgramConfig struct {
	APIKey      string
	APIBaseURL  string
	Model       string
	Language    string
	SmartFormat bool
}

type SpeechConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Voice   string
}

type MediaConfig struct {
	FFmpegCommand  string
	AudioFormat    string
	AudioDevice    string
	VideoFormat    string
	VideoDevice    string
	PlaybackFormat string
	PlaybackDevice string
	Width          int
	Height         int
	FrameRate      int
	SampleRate     int
	Channels       int
	ChunkSize      int
}

type RemoteConfig struct {
	BaseURL string
	Timeout time.Duration
}

type InterviewConfig struct {
	Budgets            domain.QuestionCounts
	QuestionBankPath   string
	RulesPath          string
	RuleIterationLimit int
}

type TimingConfig struct {
	SilenceTimeout   time.Duration
	NoSpeechTimeout  time.Duration
	RestartBackoff   time.Duration
	SettleDelay      time.Duration
	ListenDelay      time.Duration
	TransitionPause  time.Duration
	StreamingGrace   time.Duration
	FeedbackDeadline time.Duration
}

type StoreConfig struct {
	Dir      string
	InMemory bool
}

type MetricsConfig struct {
	Namespace string
	Addr      string
}

type LogConfig struct {
	Level  string
	Format string
}

// LoadEnvFiles pre-loads .env files into the process environment. Variables
// already set win. Missing files are ignored.
func LoadEnvFiles(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	existing := make([]string, 0, len(paths))
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}

// Load resolves configuration from environment variables and sensible defaults.
func Load() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, errors.New("could not determine home directory")
	}
	configDir := filepath.Join(home, ".config", "mockinterview")

	rulesPath := strings.TrimSpace(os.Getenv("MOCKINTERVIEW_RULES_FILE"))
	if rulesPath == "" {
		rulesPath = firstExisting(filepath.Join(configDir, "cleanup.yaml"))
	}
	bankPath := strings.TrimSpace(os.Getenv("MOCKINTERVIEW_QUESTION_BANK"))
	if bankPath == "" {
		bankPath = firstExisting(filepath.Join(configDir, "questions.yaml"))
	}

	cfg := Config{
		Deepgram: DeepgramConfig{
			APIKey:      strings.TrimSpace(os.Getenv("DEEPGRAM_API_KEY")),
			APIBaseURL:  envOrDefault("DEEPGRAM_API_BASE", "https://api.deepgram.com/v1"),
			Model:       envOrDefault("DEEPGRAM_MODEL", "nova-2"),
			Language:    envOrDefault("DEEPGRAM_LANGUAGE", "en-US"),
			SmartFormat: envOrDefaultBool("DEEPGRAM_SMART_FORMAT", true),
		},
		Speech: SpeechConfig{
			APIKey:  strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
			BaseURL: strings.TrimSpace(os.Getenv("OPENAI_BASE_URL")),
			Model:   envOrDefault("MOCKINTERVIEW_TTS_MODEL", "gpt-4o-mini-tts"),
			Voice:   envOrDefault("MOCKINTERVIEW_TTS_VOICE", "alloy"),
		},
		Media: MediaConfig{
			FFmpegCommand:  envOrDefault("MOCKINTERVIEW_FFMPEG_COMMAND", "ffmpeg"),
			AudioFormat:    envOrDefault("MOCKINTERVIEW_AUDIO_INPUT_FORMAT", "pulse"),
			AudioDevice:    firstNonEmpty(os.Getenv("MOCKINTERVIEW_AUDIO_INPUT_DEVICE"), os.Getenv("DEEPGRAM_PULSE_SOURCE"), "default"),
			VideoFormat:    envOrDefault("MOCKINTERVIEW_VIDEO_INPUT_FORMAT", "v4l2"),
			VideoDevice:    envOrDefault("MOCKINTERVIEW_VIDEO_INPUT_DEVICE", "/dev/video0"),
			PlaybackFormat: envOrDefault("MOCKINTERVIEW_PLAYBACK_FORMAT", "pulse"),
			PlaybackDevice: envOrDefault("MOCKINTERVIEW_PLAYBACK_DEVICE", "default"),
			Width:          envOrDefaultInt("MOCKINTERVIEW_VIDEO_WIDTH", 1280),
			Height:         envOrDefaultInt("MOCKINTERVIEW_VIDEO_HEIGHT", 720),
			FrameRate:      envOrDefaultInt("MOCKINTERVIEW_VIDEO_FPS", 30),
			SampleRate:     envOrDefaultInt("MOCKINTERVIEW_SAMPLE_RATE", 16000),
			Channels:       envOrDefaultInt("MOCKINTERVIEW_CHANNELS", 1),
			ChunkSize:      envOrDefaultInt("MOCKINTERVIEW_AUDIO_CHUNK_SIZE", 4096),
		},
		Remote: RemoteConfig{
			BaseURL: strings.TrimRight(envOrDefault("MOCKINTERVIEW_API_BASE", "http://localhost:3000"), "/"),
			Timeout: envOrDefaultMillis("MOCKINTERVIEW_API_TIMEOUT_MS", 30*time.Second),
		},
		Interview: InterviewConfig{
			Budgets: domain.QuestionCounts{
				Introduction: envOrDefaultInt("MOCKINTERVIEW_INTRO_QUESTIONS", domain.DefaultBudgets.Introduction),
				Technical:    envOrDefaultInt("MOCKINTERVIEW_TECHNICAL_QUESTIONS", domain.DefaultBudgets.Technical),
				Behavioral:   envOrDefaultInt("MOCKINTERVIEW_BEHAVIORAL_QUESTIONS", domain.DefaultBudgets.Behavioral),
			},
			QuestionBankPath:   bankPath,
			RulesPath:          rulesPath,
			RuleIterationLimit: envOrDefaultInt("MOCKINTERVIEW_RULE_ITERATION_LIMIT", 30),
		},
		Timing: TimingConfig{
			SilenceTimeout:   envOrDefaultMillis("MOCKINTERVIEW_SILENCE_TIMEOUT_MS", 1500*time.Millisecond),
			NoSpeechTimeout:  envOrDefaultMillis("MOCKINTERVIEW_NO_SPEECH_TIMEOUT_MS", 10*time.Second),
			RestartBackoff:   envOrDefaultMillis("MOCKINTERVIEW_RESTART_BACKOFF_MS", time.Second),
			SettleDelay:      envOrDefaultMillis("MOCKINTERVIEW_SETTLE_DELAY_MS", 300*time.Millisecond),
			ListenDelay:      envOrDefaultMillis("MOCKINTERVIEW_LISTEN_DELAY_MS", 500*time.Millisecond),
			TransitionPause:  envOrDefaultMillis("MOCKINTERVIEW_TRANSITION_PAUSE_MS", time.Second),
			StreamingGrace:   envOrDefaultMillis("MOCKINTERVIEW_STREAMING_GRACE_MS", time.Second),
			FeedbackDeadline: envOrDefaultMillis("MOCKINTERVIEW_FEEDBACK_TIMEOUT_MS", 60*time.Second),
		},
		Store: StoreConfig{
			Dir:      envOrDefault("MOCKINTERVIEW_STORE_DIR", filepath.Join(configDir, "reports")),
			InMemory: envOrDefaultBool("MOCKINTERVIEW_STORE_IN_MEMORY", false),
		},
		Metrics: MetricsConfig{
			Namespace: envOrDefault("MOCKINTERVIEW_METRICS_NAMESPACE", "mockinterview"),
			Addr:      strings.TrimSpace(os.Getenv("MOCKINTERVIEW_METRICS_ADDR")),
		},
		Log: LogConfig{
			Level:  strings.ToLower(envOrDefault("MOCKINTERVIEW_LOG_LEVEL", "info")),
			Format: strings.ToLower(envOrDefault("MOCKINTERVIEW_LOG_FORMAT", "text")),
		},
	}

	normalize(&cfg)
	return cfg, nil
}

func normalize(cfg *Config) {
	if cfg.Media.SampleRate <= 0 {
		cfg.Media.SampleRate = 16000
	}
	if cfg.Media.Channels <= 0 {
		cfg.Media.Channels = 1
	}
	if cfg.Media.Width <= 0 || cfg.Media.Height <= 0 {
		cfg.Media.Width, cfg.Media.Height = 1280, 720
	}
	if cfg.Media.FrameRate <= 0 {
		cfg.Media.FrameRate = 30
	}
	if cfg.Media.ChunkSize < 256 {
		cfg.Media.ChunkSize = 4096
	}
	if cfg.Remote.Timeout <= 0 {
		cfg.Remote.Timeout = 30 * time.Second
	}
	if cfg.Interview.Budgets.Introduction <= 0 {
		cfg.Interview.Budgets.Introduction = domain.DefaultBudgets.Introduction
	}
	if cfg.Interview.Budgets.Technical <= 0 {
		cfg.Interview.Budgets.Technical = domain.DefaultBudgets.Technical
	}
	if cfg.Interview.Budgets.Behavioral <= 0 {
		cfg.Interview.Budgets.Behavioral = domain.DefaultBudgets.Behavioral
	}
	if cfg.Interview.RuleIterationLimit <= 0 {
		cfg.Interview.RuleIterationLimit = 30
	}
	if cfg.Timing.SilenceTimeout <= 0 {
		cfg.Timing.SilenceTimeout = 1500 * time.Millisecond
	}
	if cfg.Timing.NoSpeechTimeout <= 0 {
		cfg.Timing.NoSpeechTimeout = 10 * time.Second
	}
	if cfg.Timing.RestartBackoff <= 0 {
		cfg.Timing.RestartBackoff = time.Second
	}
	if cfg.Timing.FeedbackDeadline <= 0 {
		cfg.Timing.FeedbackDeadline = 60 * time.Second
	}
	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		cfg.Log.Level = "info"
	}
	switch cfg.Log.Format {
	case "text", "json":
	default:
		cfg.Log.Format = "text"
	}
}

func firstExisting(paths ...string) string {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func envOrDefault(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrDefaultInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

// envOrDefaultMillis reads a non-negative millisecond count.
func envOrDefaultMillis(key string, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 0 {
		return fallback
	}
	return time.Duration(parsed) * time.Millisecond
}

func envOrDefaultBool(key string, fallback bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
