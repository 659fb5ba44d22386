// Package webrtc provides a vad.Engine backed by the WebRTC voice activity
// detector via the go-webrtcvad CGO bindings.
//
// The WebRTC VAD is a binary classifier: each frame is either speech or not,
// with an aggressiveness knob (0–3) governing how strictly non-speech is
// filtered. It supports 8, 16, 32, and 48 kHz sample rates and frame sizes
// of 10, 20, or 30 ms.
package webrtc

import (
	"errors"
	"fmt"
	"sync"

	webrtcvad "github.com/maxhawkins/go-webrtcvad"

	"github.com/argus-ar/argus/pkg/provider/vad"
)

// Compile-time assertions.
var (
	_ vad.Engine        = (*Engine)(nil)
	_ vad.SessionHandle = (*session)(nil)
)

// Engine creates WebRTC VAD sessions. The zero value is ready to use.
type Engine struct{}

// New returns a WebRTC VAD engine.
func New() *Engine { return &Engine{} }

// NewSession creates a VAD session. Each session owns its own detector
// instance, so sessions are independent of each other.
func (e *Engine) NewSession(cfg vad.Config) (vad.SessionHandle, error) {
	if err := validate(cfg); err != nil {
		return nil, err
	}

	v, err := webrtcvad.New()
	if err != nil {
		return nil, fmt.Errorf("webrtc vad: create detector: %w", err)
	}
	if err := v.SetMode(cfg.Aggressiveness); err != nil {
		return nil, fmt.Errorf("webrtc vad: set mode %d: %w", cfg.Aggressiveness, err)
	}

	frameBytes := cfg.SampleRate * cfg.FrameSizeMs / 1000 * 2
	return &session{
		vad:        v,
		sampleRate: cfg.SampleRate,
		frameBytes: frameBytes,
	}, nil
}

func validate(cfg vad.Config) error {
	switch cfg.SampleRate {
	case 8000, 16000, 32000, 48000:
	default:
		return fmt.Errorf("webrtc vad: unsupported sample rate %d", cfg.SampleRate)
	}
	switch cfg.FrameSizeMs {
	case 10, 20, 30:
	default:
		return fmt.Errorf("webrtc vad: unsupported frame size %d ms", cfg.FrameSizeMs)
	}
	if cfg.Aggressiveness < 0 || cfg.Aggressiveness > 3 {
		return fmt.Errorf("webrtc vad: aggressiveness %d out of range [0, 3]", cfg.Aggressiveness)
	}
	return nil
}

// session wraps one webrtcvad detector instance. The detector itself is
// stateless per frame; the mutex guards the closed flag and serialises
// Process calls against the C library.
type session struct {
	mu         sync.Mutex
	vad        *webrtcvad.VAD
	sampleRate int
	frameBytes int
	closed     bool
}

func (s *session) IsSpeech(frame []byte) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false, errors.New("webrtc vad: session is closed")
	}
	if len(frame) != s.frameBytes {
		return false, fmt.Errorf("webrtc vad: frame size %d bytes, want %d", len(frame), s.frameBytes)
	}

	active, err := s.vad.Process(s.sampleRate, frame)
	if err != nil {
		return false, fmt.Errorf("webrtc vad: process frame: %w", err)
	}
	return active, nil
}

// Reset is a no-op: the WebRTC detector carries no cross-frame state.
func (s *session) Reset() {}

func (s *session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
