// Package voice ties microphone capture, scratch persistence, and
// transcription into the single round trip used by both the wake-word
// detector and the registration dialog.
package voice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/argus-ar/argus/internal/scratch"
	"github.com/argus-ar/argus/pkg/audio"
	"github.com/argus-ar/argus/pkg/provider/stt"
)

const (
	// DefaultClipDuration is how much audio a dialog prompt records.
	DefaultClipDuration = 3 * time.Second

	// DefaultClipTimeout bounds the whole recording attempt. A stalled
	// microphone yields a short clip rather than a hang.
	DefaultClipTimeout = 5 * time.Second
)

// Recorder captures utterances from a live session and turns them into text.
type Recorder struct {
	sess         audio.CaptureSession
	transcriber  stt.Transcriber
	scratch      *scratch.Store
	clipDuration time.Duration
	clipTimeout  time.Duration
	log          *slog.Logger
}

// NewRecorder assembles a Recorder. Zero durations select the defaults.
func NewRecorder(sess audio.CaptureSession, transcriber stt.Transcriber, store *scratch.Store, clipDuration, clipTimeout time.Duration, log *slog.Logger) *Recorder {
	if clipDuration <= 0 {
		clipDuration = DefaultClipDuration
	}
	if clipTimeout <= 0 {
		clipTimeout = DefaultClipTimeout
	}
	if log == nil {
		log = slog.Default()
	}
	return &Recorder{
		sess:         sess,
		transcriber:  transcriber,
		scratch:      store,
		clipDuration: clipDuration,
		clipTimeout:  clipTimeout,
		log:          log,
	}
}

// CaptureUtterance records one fixed-duration clip and transcribes it.
// An empty or silent clip is reported as [stt.ErrNoSpeech].
func (r *Recorder) CaptureUtterance(ctx context.Context) (string, error) {
	pcm, err := audio.RecordClip(ctx, r.sess, r.clipDuration, r.clipTimeout)
	if err != nil {
		return "", fmt.Errorf("voice: record clip: %w", err)
	}
	return r.TranscribePCM(ctx, pcm)
}

// TranscribePCM writes pcm to a scratch WAV, transcribes it, and removes the
// scratch file unless transcription failed. The retained file carries the
// audio that could not be processed, for later inspection.
func (r *Recorder) TranscribePCM(ctx context.Context, pcm []byte) (string, error) {
	if len(pcm) == 0 {
		return "", stt.ErrNoSpeech
	}

	cfg := r.sess.Config()
	wav := audio.EncodeWAV(pcm, cfg.SampleRate, cfg.Channels)

	path, err := r.scratch.Save(wav)
	if err != nil {
		// Transcription can proceed without the diagnostic copy.
		r.log.Warn("failed to persist scratch recording", "error", err)
		path = ""
	}

	text, err := r.transcriber.Transcribe(ctx, pcm)
	switch {
	case err == nil, errors.Is(err, stt.ErrNoSpeech):
		if path != "" {
			if rmErr := r.scratch.Remove(path); rmErr != nil {
				r.log.Warn("failed to remove scratch recording", "path", path, "error", rmErr)
			}
		}
	default:
		if path != "" {
			r.log.Warn("transcription failed, retaining scratch recording", "path", path, "error", err)
		}
	}
	return text, err
}

// StripPhrase removes every case-insensitive occurrence of phrase from text
// and collapses the leftover whitespace. Used to drop the wake phrase from
// dialog answers that were spoken in the same breath.
func StripPhrase(text, phrase string) string {
	if phrase == "" {
		return strings.TrimSpace(text)
	}
	var b strings.Builder
	for text != "" {
		start, end := foldIndex(text, phrase)
		if start < 0 {
			b.WriteString(text)
			break
		}
		b.WriteString(text[:start])
		text = text[end:]
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// foldIndex returns the byte bounds of the first case-insensitive occurrence
// of phrase in text, or (-1, -1). Matching folds rune by rune, so the bounds
// always index text itself; lowercasing the whole string would shift byte
// offsets for runes whose case pair has a different encoded length.
func foldIndex(text, phrase string) (start, end int) {
	for i := range text {
		if n := foldPrefixLen(text[i:], phrase); n >= 0 {
			return i, i + n
		}
	}
	return -1, -1
}

// foldPrefixLen returns the byte length of the prefix of text that matches
// phrase under simple case folding, or -1 when text does not start with the
// phrase.
func foldPrefixLen(text, phrase string) int {
	var n int
	for _, pr := range phrase {
		tr, size := utf8.DecodeRuneInString(text[n:])
		if size == 0 || unicode.ToLower(tr) != unicode.ToLower(pr) {
			return -1
		}
		n += size
	}
	return n
}
