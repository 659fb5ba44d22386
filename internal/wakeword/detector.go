package wakeword

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/argus-ar/argus/internal/voice"
	"github.com/argus-ar/argus/pkg/audio"
	"github.com/argus-ar/argus/pkg/provider/stt"
	"github.com/argus-ar/argus/pkg/provider/vad"
)

// DefaultListenWindow bounds a single listening attempt.
const DefaultListenWindow = 5 * time.Second

// Detector runs bounded listening windows over a capture session and
// reports whether the wake phrase was spoken.
type Detector struct {
	sess     audio.CaptureSession
	vad      vad.SessionHandle
	rec      *voice.Recorder
	phrase   string
	window   time.Duration
	phonetic *PhoneticMatcher
	log      *slog.Logger

	seg Segmenter
}

// Option is a functional option for configuring a Detector.
type Option func(*Detector)

// WithListenWindow overrides the listening window length.
func WithListenWindow(d time.Duration) Option {
	return func(det *Detector) {
		if d > 0 {
			det.window = d
		}
	}
}

// WithPhoneticMatch enables the Double Metaphone fallback match.
func WithPhoneticMatch() Option {
	return func(det *Detector) {
		det.phonetic = NewPhoneticMatcher(det.phrase)
	}
}

// WithLogger overrides the logger.
func WithLogger(log *slog.Logger) Option {
	return func(det *Detector) {
		if log != nil {
			det.log = log
		}
	}
}

// New creates a Detector. phrase must be non-empty.
func New(sess audio.CaptureSession, vadSess vad.SessionHandle, rec *voice.Recorder, phrase string, opts ...Option) (*Detector, error) {
	if strings.TrimSpace(phrase) == "" {
		return nil, errors.New("wakeword: phrase must not be empty")
	}
	d := &Detector{
		sess:   sess,
		vad:    vadSess,
		rec:    rec,
		phrase: phrase,
		window: DefaultListenWindow,
		log:    slog.Default(),
	}
	for _, o := range opts {
		o(d)
	}
	return d, nil
}

// Listen runs one bounded listening window. It returns true as soon as a
// transcribed segment contains the wake phrase, or false when the window
// expires without a match. The context is checked on every frame, so
// shutdown never waits for the full window.
//
// Segment transcription failures are logged and retried once; a segment
// that still fails is skipped. Segmenter state is cleared on every return
// path so the next window starts fresh.
func (d *Detector) Listen(ctx context.Context) (bool, error) {
	defer d.seg.Reset()
	d.vad.Reset()

	deadline := time.Now().Add(d.window)
	for time.Now().Before(deadline) {
		if err := ctx.Err(); err != nil {
			return false, err
		}

		// A timed-out read just shortens the window by one poll.
		frame, err := d.sess.ReadFrame(ctx, audio.FrameReadTimeout)
		if err != nil {
			if errors.Is(err, audio.ErrReadTimeout) || errors.Is(err, audio.ErrOverflow) {
				continue
			}
			return false, fmt.Errorf("wakeword: read frame: %w", err)
		}

		speech, err := d.vad.IsSpeech(frame.Data)
		if err != nil {
			d.log.Warn("vad classification failed, skipping frame", "error", err)
			continue
		}

		if segment := d.seg.Push(frame.Data, speech); segment != nil {
			if d.checkSegment(ctx, segment) {
				return true, nil
			}
		}
	}

	// Window expired mid-utterance: give the trailing speech one chance.
	if segment := d.seg.Flush(); segment != nil {
		if d.checkSegment(ctx, segment) {
			return true, nil
		}
	}
	return false, nil
}

// checkSegment transcribes one speech segment and matches it against the
// wake phrase.
func (d *Detector) checkSegment(ctx context.Context, segment []byte) bool {
	text, err := d.rec.TranscribePCM(ctx, segment)
	if err != nil && !errors.Is(err, stt.ErrNoSpeech) {
		d.log.Warn("segment transcription failed, retrying once", "error", err)
		text, err = d.rec.TranscribePCM(ctx, segment)
	}
	if err != nil {
		if !errors.Is(err, stt.ErrNoSpeech) {
			d.log.Warn("segment transcription failed, skipping segment", "error", err)
		}
		return false
	}
	if d.Matches(text) {
		d.log.Info("wake phrase detected", "transcript", text)
		return true
	}
	d.log.Debug("segment did not contain wake phrase", "transcript", text)
	return false
}

// Matches reports whether text contains the wake phrase, case-insensitively.
// When phonetic matching is enabled, a Double Metaphone alignment also
// counts as a match.
func (d *Detector) Matches(text string) bool {
	if strings.Contains(strings.ToLower(text), strings.ToLower(d.phrase)) {
		return true
	}
	return d.phonetic != nil && d.phonetic.Match(text)
}
