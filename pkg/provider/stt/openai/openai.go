// Package openai provides a transcription backend using the OpenAI Audio API.
package openai

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/argus-ar/argus/pkg/audio"
	"github.com/argus-ar/argus/pkg/provider/stt"
)

// DefaultModel is the default OpenAI transcription model.
const DefaultModel = oai.AudioModelWhisper1

// Ensure Transcriber implements the stt.Transcriber interface.
var _ stt.Transcriber = (*Transcriber)(nil)

// Transcriber implements stt.Transcriber using the OpenAI Audio API.
type Transcriber struct {
	client     oai.Client
	model      string
	language   string
	sampleRate int
}

// config holds optional configuration for the transcriber.
type config struct {
	baseURL    string
	language   string
	sampleRate int
	timeout    time.Duration
}

// Option is a functional option for Transcriber.
type Option func(*config)

// WithBaseURL overrides the default OpenAI API base URL.
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

// WithLanguage sets the ISO-639-1 language hint (e.g. "en").
func WithLanguage(lang string) Option {
	return func(c *config) {
		c.language = lang
	}
}

// WithSampleRate sets the sample rate of PCM passed to Transcribe.
// Defaults to 16000.
func WithSampleRate(rate int) Option {
	return func(c *config) {
		c.sampleRate = rate
	}
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// New constructs a new OpenAI Transcriber.
// If model is empty, DefaultModel (whisper-1) is used.
func New(apiKey string, model string, opts ...Option) (*Transcriber, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai stt: apiKey must not be empty")
	}
	if model == "" {
		model = DefaultModel
	}

	cfg := &config{sampleRate: 16000}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{
			Timeout: cfg.timeout,
		}))
	}

	client := oai.NewClient(reqOpts...)
	return &Transcriber{
		client:     client,
		model:      model,
		language:   cfg.language,
		sampleRate: cfg.sampleRate,
	}, nil
}

// Transcribe implements stt.Transcriber. The utterance is wrapped in a WAV
// container and uploaded as a single transcription request.
func (t *Transcriber) Transcribe(ctx context.Context, pcm []byte) (string, error) {
	if len(pcm) == 0 {
		return "", stt.ErrNoSpeech
	}

	wav := audio.EncodeWAV(pcm, t.sampleRate, 1)

	params := oai.AudioTranscriptionNewParams{
		File:  oai.File(bytes.NewReader(wav), "audio.wav", "audio/wav"),
		Model: t.model,
	}
	if t.language != "" {
		params.Language = oai.String(t.language)
	}

	resp, err := t.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai stt: transcribe: %w", err)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", stt.ErrNoSpeech
	}
	return text, nil
}
