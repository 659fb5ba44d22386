// This file contains the NativeTranscriber implementation backed by the
// whisper.cpp CGO bindings. The whisper.cpp static library (libwhisper.a)
// and headers (whisper.h) must be available at link time via LIBRARY_PATH
// and C_INCLUDE_PATH environment variables.

package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/argus-ar/argus/pkg/provider/stt"
	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
)

// Compile-time assertion that NativeTranscriber satisfies stt.Transcriber.
var _ stt.Transcriber = (*NativeTranscriber)(nil)

// NativeTranscriber implements stt.Transcriber using whisper.cpp Go bindings
// (CGO), eliminating HTTP overhead entirely. The model is loaded once at
// startup and shared across all Transcribe calls.
type NativeTranscriber struct {
	mu       sync.Mutex
	model    whisperlib.Model
	language string
	channels int
}

// NativeOption is a functional option for configuring a NativeTranscriber.
type NativeOption func(*NativeTranscriber)

// WithNativeLanguage sets the BCP-47 language code for transcription
// (e.g., "en", "de", "fr"). Defaults to "en".
func WithNativeLanguage(lang string) NativeOption {
	return func(t *NativeTranscriber) { t.language = lang }
}

// WithNativeChannels sets the channel count of PCM passed to Transcribe.
// Multi-channel audio is downmixed to mono before inference. Defaults to 1.
func WithNativeChannels(ch int) NativeOption {
	return func(t *NativeTranscriber) { t.channels = ch }
}

// NewNative creates a NativeTranscriber that loads the whisper.cpp model from
// the given file path. The caller must call Close when the transcriber is no
// longer needed.
func NewNative(modelPath string, opts ...NativeOption) (*NativeTranscriber, error) {
	if modelPath == "" {
		return nil, errors.New("whisper: modelPath must not be empty")
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("whisper: load model %q: %w", modelPath, err)
	}

	t := &NativeTranscriber{
		model:    model,
		language: defaultLanguage,
		channels: 1,
	}
	for _, o := range opts {
		o(t)
	}
	return t, nil
}

// Close releases the whisper model. Must be called when the transcriber is no
// longer needed.
func (t *NativeTranscriber) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.model != nil {
		err := t.model.Close()
		t.model = nil
		return err
	}
	return nil
}

// Transcribe runs whisper.cpp inference on one utterance of PCM audio. A
// whisper context is not thread-safe, so a fresh one is created per call
// under the transcriber lock; the loaded model is shared.
func (t *NativeTranscriber) Transcribe(ctx context.Context, pcm []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(pcm) == 0 {
		return "", stt.ErrNoSpeech
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.model == nil {
		return "", errors.New("whisper: transcriber is closed")
	}

	samples := pcmToFloat32Mono(pcm, t.channels)

	wctx, err := t.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("whisper: create context: %w", err)
	}

	if err := wctx.SetLanguage(t.language); err != nil {
		slog.Warn("whisper: failed to set language, using default", "language", t.language, "error", err)
	}

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return "", fmt.Errorf("whisper: process audio: %w", err)
	}

	var parts []string
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("whisper: read segment: %w", err)
		}
		text := strings.TrimSpace(segment.Text)
		if text != "" {
			parts = append(parts, text)
		}
	}

	text := strings.Join(parts, " ")
	if text == "" {
		return "", stt.ErrNoSpeech
	}
	return text, nil
}
