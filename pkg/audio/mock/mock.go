// Package mock provides test doubles for the audio package interfaces.
//
// Use Platform to verify device selection and session lifecycle. Use Session
// to script a sequence of frames (or errors) for ReadFrame to return.
//
// Example:
//
//	sess := mock.NewSession(cfg,
//	    mock.FrameStep(speechFrame),
//	    mock.ErrStep(audio.ErrReadTimeout),
//	)
//	plat := &mock.Platform{Session: sess}
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/argus-ar/argus/pkg/audio"
)

// Step is a single scripted ReadFrame outcome.
type Step struct {
	Frame audio.Frame
	Err   error
}

// FrameStep scripts a successful read returning a frame with the given PCM.
func FrameStep(data []byte) Step {
	return Step{Frame: audio.Frame{Data: data}}
}

// ErrStep scripts a failed read returning err.
func ErrStep(err error) Step {
	return Step{Err: err}
}

// Session is a mock implementation of audio.CaptureSession that replays a
// scripted sequence of steps. Once the script is exhausted every subsequent
// read returns [audio.ErrReadTimeout], mimicking a silent microphone.
type Session struct {
	mu sync.Mutex

	cfg   audio.CaptureConfig
	steps []Step
	next  int

	// ReadCalls counts ReadFrame invocations, including post-script reads.
	ReadCalls int

	// CloseCallCount is the number of times Close was called.
	CloseCallCount int

	// CloseErr, if non-nil, is returned by the first Close call.
	CloseErr error
}

// NewSession creates a Session that replays steps in order.
func NewSession(cfg audio.CaptureConfig, steps ...Step) *Session {
	return &Session{cfg: cfg, steps: steps}
}

// ReadFrame returns the next scripted step, or [audio.ErrReadTimeout] once
// the script is exhausted.
func (s *Session) ReadFrame(ctx context.Context, _ time.Duration) (audio.Frame, error) {
	if err := ctx.Err(); err != nil {
		return audio.Frame{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.ReadCalls++

	if s.next >= len(s.steps) {
		return audio.Frame{}, audio.ErrReadTimeout
	}
	step := s.steps[s.next]
	s.next++
	return step.Frame, step.Err
}

// Config returns the configured capture format.
func (s *Session) Config() audio.CaptureConfig { return s.cfg }

// Close records the call and returns CloseErr on the first invocation.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CloseCallCount++
	if s.CloseCallCount == 1 {
		return s.CloseErr
	}
	return nil
}

// Append adds further steps to the script. Useful for tests that feed audio
// across multiple listen windows.
func (s *Session) Append(steps ...Step) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.steps = append(s.steps, steps...)
}

// Compile-time interface check.
var _ audio.CaptureSession = (*Session)(nil)

// OpenCall records a single invocation of Platform.Open.
type OpenCall struct {
	DeviceName string
	Cfg        audio.CaptureConfig
}

// Platform is a mock implementation of audio.Platform.
type Platform struct {
	mu sync.Mutex

	// DeviceNames is returned by Devices.
	DeviceNames []string

	// Session is returned by Open. If nil, Open returns a new empty Session.
	Session audio.CaptureSession

	// OpenErr, if non-nil, is returned by Open.
	OpenErr error

	// OpenCalls records every call to Open in order.
	OpenCalls []OpenCall

	// CloseCallCount is the number of times Close was called.
	CloseCallCount int
}

// Devices returns DeviceNames.
func (p *Platform) Devices() ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.DeviceNames, nil
}

// Open records the call and returns Session, OpenErr.
func (p *Platform) Open(_ context.Context, deviceName string, cfg audio.CaptureConfig) (audio.CaptureSession, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.OpenCalls = append(p.OpenCalls, OpenCall{DeviceName: deviceName, Cfg: cfg})
	if p.OpenErr != nil {
		return nil, p.OpenErr
	}
	if p.Session != nil {
		return p.Session, nil
	}
	return NewSession(cfg), nil
}

// Close records the call.
func (p *Platform) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CloseCallCount++
	return nil
}

// Compile-time interface check.
var _ audio.Platform = (*Platform)(nil)
