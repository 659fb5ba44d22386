// Package whisper provides whisper.cpp-backed transcription.
//
// Two implementations are available:
//
//   - [Transcriber] talks to a running whisper-server binary over its REST
//     API (POST /inference), submitting each utterance as a WAV file in a
//     multipart form.
//   - [NativeTranscriber] (native.go) uses the whisper.cpp CGO bindings
//     directly, eliminating the HTTP round trip at the cost of a link-time
//     dependency on libwhisper.
//
// Usage:
//
//	tr, err := whisper.New("http://localhost:8080",
//	    whisper.WithLanguage("en"),
//	)
//	text, err := tr.Transcribe(ctx, pcm)
package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/argus-ar/argus/pkg/audio"
	"github.com/argus-ar/argus/pkg/provider/stt"
)

const (
	defaultLanguage   = "en"
	defaultSampleRate = 16000
)

// Compile-time assertion that Transcriber implements stt.Transcriber.
var _ stt.Transcriber = (*Transcriber)(nil)

// Option is a functional option for configuring a Transcriber.
type Option func(*Transcriber)

// WithModel sets the model identifier forwarded to the whisper.cpp server
// (e.g., "base.en", "small"). When empty the server uses whichever model it
// was started with — this is the default.
func WithModel(model string) Option {
	return func(t *Transcriber) { t.model = model }
}

// WithLanguage sets the language code sent to the whisper.cpp server
// (e.g., "en", "de", "fr"). Defaults to "en".
func WithLanguage(lang string) Option {
	return func(t *Transcriber) { t.language = lang }
}

// WithSampleRate sets the audio sample rate in Hz. This must match the
// actual sample rate of PCM data passed to Transcribe. Defaults to 16000.
func WithSampleRate(rate int) Option {
	return func(t *Transcriber) { t.sampleRate = rate }
}

// WithHTTPClient overrides the HTTP client used for inference requests.
// Mainly useful for tests.
func WithHTTPClient(c *http.Client) Option {
	return func(t *Transcriber) { t.httpClient = c }
}

// Transcriber implements stt.Transcriber backed by a whisper.cpp HTTP
// server. It is safe for concurrent use; each Transcribe call is an
// independent request.
type Transcriber struct {
	serverURL  string
	model      string
	language   string
	sampleRate int
	httpClient *http.Client
}

// New creates a Transcriber that connects to the whisper.cpp HTTP server at
// serverURL (e.g., "http://localhost:8080"). serverURL must be non-empty.
func New(serverURL string, opts ...Option) (*Transcriber, error) {
	if serverURL == "" {
		return nil, errors.New("whisper: serverURL must not be empty")
	}
	t := &Transcriber{
		serverURL:  serverURL,
		language:   defaultLanguage,
		sampleRate: defaultSampleRate,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(t)
	}
	return t, nil
}

// Transcribe encodes pcm as a WAV file and POSTs it to the whisper.cpp
// /inference endpoint. An empty or whitespace-only recognition result is
// reported as [stt.ErrNoSpeech].
func (t *Transcriber) Transcribe(ctx context.Context, pcm []byte) (string, error) {
	if len(pcm) == 0 {
		return "", stt.ErrNoSpeech
	}

	wav := audio.EncodeWAV(pcm, t.sampleRate, 1)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("file", "audio.wav")
	if err != nil {
		return "", fmt.Errorf("whisper: create form file: %w", err)
	}
	if _, err := fw.Write(wav); err != nil {
		return "", fmt.Errorf("whisper: write wav data: %w", err)
	}

	if t.language != "" {
		if err := mw.WriteField("language", t.language); err != nil {
			return "", fmt.Errorf("whisper: write language field: %w", err)
		}
	}
	if t.model != "" {
		if err := mw.WriteField("model", t.model); err != nil {
			return "", fmt.Errorf("whisper: write model field: %w", err)
		}
	}

	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("whisper: close multipart writer: %w", err)
	}

	endpoint := t.serverURL + "/inference"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("whisper: create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("whisper: http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("whisper: server returned HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("whisper: read response body: %w", err)
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return "", fmt.Errorf("whisper: parse JSON response: %w", err)
	}

	text := strings.TrimSpace(result.Text)
	if text == "" {
		return "", stt.ErrNoSpeech
	}
	return text, nil
}
