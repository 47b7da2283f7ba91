// Package openaitts synthesizes interviewer speech with the OpenAI speech
// endpoint. Audio is returned as raw 24kHz mono 16-bit PCM.
package openaitts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// SampleRate is the rate of the PCM stream returned by the endpoint.
const SampleRate = 24000

// ErrMissingAPIKey is returned when no OpenAI key is configured.
var ErrMissingAPIKey = errors.New("OPENAI_API_KEY is not configured")

// Config controls the synthesizer.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Voice      string
	HTTPClient *http.Client
}

// Synthesizer implements ports.Synthesizer.
type Synthesizer struct {
	client *openai.Client
	model  string
	voice  string
	err    error
}

func New(cfg Config) *Synthesizer {
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini-tts"
	}
	if cfg.Voice == "" {
		cfg.Voice = "alloy"
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}

	s := &Synthesizer{model: cfg.Model, voice: cfg.Voice}
	if strings.TrimSpace(cfg.APIKey) == "" {
		s.err = ErrMissingAPIKey
		return s
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(cfg.HTTPClient),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	client := openai.NewClient(opts...)
	s.client = &client
	return s
}

// Synthesize requests speech for text. The caller closes the stream.
func (s *Synthesizer) Synthesize(ctx context.Context, text string) (io.ReadCloser, error) {
	if s.err != nil {
		return nil, s.err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return io.NopCloser(strings.NewReader("")), nil
	}

	resp, err := s.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Input:          text,
		Model:          openai.SpeechModel(s.model),
		Voice:          openai.AudioSpeechNewParamsVoice(s.voice),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatPCM,
	}, option.WithMaxRetries(1))
	if err != nil {
		return nil, fmt.Errorf("openai speech: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("openai speech: unexpected status %d", resp.StatusCode)
	}
	return resp.Body, nil
}
