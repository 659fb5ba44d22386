package wakeword_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/argus-ar/argus/internal/scratch"
	"github.com/argus-ar/argus/internal/voice"
	"github.com/argus-ar/argus/internal/wakeword"
	"github.com/argus-ar/argus/pkg/audio"
	audiomock "github.com/argus-ar/argus/pkg/audio/mock"
	sttmock "github.com/argus-ar/argus/pkg/provider/stt/mock"
	vadmock "github.com/argus-ar/argus/pkg/provider/vad/mock"
)

const phrase = "register new face"

func newDetector(t *testing.T, sess *audiomock.Session, vadSess *vadmock.Session, tr *sttmock.Transcriber, opts ...wakeword.Option) *wakeword.Detector {
	t.Helper()
	store, err := scratch.New(t.TempDir())
	if err != nil {
		t.Fatalf("scratch.New: %v", err)
	}
	rec := voice.NewRecorder(sess, tr, store, 0, 0, nil)
	d, err := wakeword.New(sess, vadSess, rec, phrase, opts...)
	if err != nil {
		t.Fatalf("wakeword.New: %v", err)
	}
	return d
}

func speechFrames(n int) []audiomock.Step {
	cfg := audio.DefaultCaptureConfig()
	steps := make([]audiomock.Step, n)
	for i := range steps {
		steps[i] = audiomock.FrameStep(make([]byte, cfg.FrameBytes()))
	}
	return steps
}

func TestListen_DetectsWakePhrase(t *testing.T) {
	t.Parallel()

	cfg := audio.DefaultCaptureConfig()
	sess := audiomock.NewSession(cfg, speechFrames(3)...)
	vadSess := vadmock.NewSession(true, true, false)
	tr := sttmock.New(sttmock.Text("hey could you register new face please"))

	d := newDetector(t, sess, vadSess, tr, wakeword.WithListenWindow(time.Second))
	detected, err := d.Listen(context.Background())
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	if !detected {
		t.Fatal("wake phrase should have been detected")
	}
	if tr.CallCount() != 1 {
		t.Errorf("transcriber calls = %d, want 1", tr.CallCount())
	}
}

func TestListen_WindowExpiresWithoutSpeech(t *testing.T) {
	t.Parallel()

	sess := audiomock.NewSession(audio.DefaultCaptureConfig())
	vadSess := vadmock.NewSession()
	tr := sttmock.New()

	d := newDetector(t, sess, vadSess, tr, wakeword.WithListenWindow(30*time.Millisecond))
	detected, err := d.Listen(context.Background())
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	if detected {
		t.Fatal("nothing was spoken; no detection expected")
	}
	if tr.CallCount() != 0 {
		t.Errorf("transcriber calls = %d, want 0", tr.CallCount())
	}
}

func TestListen_FinalFlushCatchesTrailingSpeech(t *testing.T) {
	t.Parallel()

	// Speech right up to window expiry, never followed by a silence frame.
	cfg := audio.DefaultCaptureConfig()
	sess := audiomock.NewSession(cfg, speechFrames(2)...)
	vadSess := vadmock.NewSession(true, true)
	tr := sttmock.New(sttmock.Text("register new face"))

	d := newDetector(t, sess, vadSess, tr, wakeword.WithListenWindow(50*time.Millisecond))
	detected, err := d.Listen(context.Background())
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	if !detected {
		t.Fatal("flushed trailing speech should have been transcribed and matched")
	}
}

func TestListen_NonMatchingSegment_ContinuesToExpiry(t *testing.T) {
	t.Parallel()

	cfg := audio.DefaultCaptureConfig()
	sess := audiomock.NewSession(cfg, speechFrames(2)...)
	vadSess := vadmock.NewSession(true, false)
	tr := sttmock.New(sttmock.Text("nice weather today"))

	d := newDetector(t, sess, vadSess, tr, wakeword.WithListenWindow(50*time.Millisecond))
	detected, err := d.Listen(context.Background())
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	if detected {
		t.Fatal("unrelated speech must not trigger detection")
	}
}

func TestListen_TranscriptionFailure_RetriesOnce(t *testing.T) {
	t.Parallel()

	cfg := audio.DefaultCaptureConfig()
	sess := audiomock.NewSession(cfg, speechFrames(2)...)
	vadSess := vadmock.NewSession(true, false)
	boom := errors.New("backend down")
	tr := sttmock.New(sttmock.Err(boom), sttmock.Err(boom))

	d := newDetector(t, sess, vadSess, tr, wakeword.WithListenWindow(50*time.Millisecond))
	detected, err := d.Listen(context.Background())
	if err != nil {
		t.Fatalf("failed segment must not fail the window: %v", err)
	}
	if detected {
		t.Fatal("no detection expected")
	}
	if tr.CallCount() != 2 {
		t.Errorf("transcriber calls = %d, want 2 (original + one retry)", tr.CallCount())
	}
}

func TestListen_RetrySucceeds(t *testing.T) {
	t.Parallel()

	cfg := audio.DefaultCaptureConfig()
	sess := audiomock.NewSession(cfg, speechFrames(2)...)
	vadSess := vadmock.NewSession(true, false)
	tr := sttmock.New(sttmock.Err(errors.New("transient")), sttmock.Text("register new face"))

	d := newDetector(t, sess, vadSess, tr, wakeword.WithListenWindow(time.Second))
	detected, err := d.Listen(context.Background())
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	if !detected {
		t.Fatal("retry should have recovered the detection")
	}
}

func TestListen_NoSpeechTranscript_Continues(t *testing.T) {
	t.Parallel()

	cfg := audio.DefaultCaptureConfig()
	sess := audiomock.NewSession(cfg, speechFrames(2)...)
	vadSess := vadmock.NewSession(true, false)
	tr := sttmock.New(sttmock.NoSpeech())

	d := newDetector(t, sess, vadSess, tr, wakeword.WithListenWindow(50*time.Millisecond))
	detected, err := d.Listen(context.Background())
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	if detected {
		t.Fatal("no-speech segment must not match")
	}
	if tr.CallCount() != 1 {
		t.Errorf("no-speech must not be retried, calls = %d", tr.CallCount())
	}
}

func TestListen_ContextCancelled(t *testing.T) {
	t.Parallel()

	sess := audiomock.NewSession(audio.DefaultCaptureConfig())
	vadSess := vadmock.NewSession()
	tr := sttmock.New()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := newDetector(t, sess, vadSess, tr, wakeword.WithListenWindow(time.Minute))
	_, err := d.Listen(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
}

func TestListen_SessionClosed_ReturnsError(t *testing.T) {
	t.Parallel()

	cfg := audio.DefaultCaptureConfig()
	sess := audiomock.NewSession(cfg, audiomock.ErrStep(audio.ErrSessionClosed))
	vadSess := vadmock.NewSession()
	tr := sttmock.New()

	d := newDetector(t, sess, vadSess, tr, wakeword.WithListenWindow(time.Second))
	_, err := d.Listen(context.Background())
	if !errors.Is(err, audio.ErrSessionClosed) {
		t.Fatalf("want ErrSessionClosed, got %v", err)
	}
}

func TestMatches_CaseInsensitiveSubstring(t *testing.T) {
	t.Parallel()

	sess := audiomock.NewSession(audio.DefaultCaptureConfig())
	vadSess := vadmock.NewSession()
	tr := sttmock.New()
	d := newDetector(t, sess, vadSess, tr)

	if !d.Matches("Please REGISTER NEW FACE now") {
		t.Error("case-insensitive substring should match")
	}
	if d.Matches("register old face") {
		t.Error("partial phrase should not match")
	}
}

func TestMatches_PhoneticFallback(t *testing.T) {
	t.Parallel()

	sess := audiomock.NewSession(audio.DefaultCaptureConfig())
	vadSess := vadmock.NewSession()
	tr := sttmock.New()

	exact := newDetector(t, sess, vadSess, tr)
	if exact.Matches("register new phase") {
		t.Error("misspelling should not match without phonetic fallback")
	}

	phonetic := newDetector(t, sess, vadSess, tr, wakeword.WithPhoneticMatch())
	if !phonetic.Matches("register new phase") {
		t.Error("misspelling should match with phonetic fallback")
	}
}

// Guards against the transcriber being handed an empty flush at expiry.
func TestListen_EmptyFlush_NoTranscription(t *testing.T) {
	t.Parallel()

	cfg := audio.DefaultCaptureConfig()
	sess := audiomock.NewSession(cfg, speechFrames(1)...)
	vadSess := vadmock.NewSession(false)
	tr := sttmock.New()

	d := newDetector(t, sess, vadSess, tr, wakeword.WithListenWindow(30*time.Millisecond))
	if _, err := d.Listen(context.Background()); err != nil {
		t.Fatalf("Listen: %v", err)
	}
	if tr.CallCount() != 0 {
		t.Errorf("silence-only window should not transcribe, calls = %d", tr.CallCount())
	}
}
