// Package mock provides test doubles for the vad package interfaces.
//
// Use Engine to verify that sessions are created with the expected Config.
// Use Session to script per-frame speech classifications and inspect the
// frames that were submitted.
//
// Example:
//
//	sess := mock.NewSession(true, true, false)
//	eng := &mock.Engine{Session: sess}
//	handle, _ := eng.NewSession(cfg)
package mock

import (
	"sync"

	"github.com/argus-ar/argus/pkg/provider/vad"
)

// NewSessionCall records a single invocation of Engine.NewSession.
type NewSessionCall struct {
	// Cfg is the Config passed to NewSession.
	Cfg vad.Config
}

// Engine is a mock implementation of vad.Engine.
type Engine struct {
	mu sync.Mutex

	// Session is the SessionHandle returned by NewSession. If nil, NewSession
	// returns a new default Session.
	Session vad.SessionHandle

	// NewSessionErr, if non-nil, is returned as the error from NewSession.
	NewSessionErr error

	// NewSessionCalls records every call to NewSession in order.
	NewSessionCalls []NewSessionCall
}

// NewSession records the call and returns Session, NewSessionErr.
func (e *Engine) NewSession(cfg vad.Config) (vad.SessionHandle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.NewSessionCalls = append(e.NewSessionCalls, NewSessionCall{Cfg: cfg})
	if e.NewSessionErr != nil {
		return nil, e.NewSessionErr
	}
	if e.Session != nil {
		return e.Session, nil
	}
	return &Session{}, nil
}

// Ensure Engine implements vad.Engine at compile time.
var _ vad.Engine = (*Engine)(nil)

// Session is a mock implementation of vad.SessionHandle. It replays a
// scripted sequence of per-frame classifications; once the script runs out,
// every frame is classified using Default (false unless set).
type Session struct {
	mu sync.Mutex

	script []bool
	next   int

	// Default is the classification returned after the script is exhausted.
	Default bool

	// Err, if non-nil, is returned by every IsSpeech call.
	Err error

	// Frames records a copy of every frame passed to IsSpeech.
	Frames [][]byte

	// ResetCallCount is the number of times Reset was called.
	ResetCallCount int

	// CloseCallCount is the number of times Close was called.
	CloseCallCount int
}

// NewSession creates a Session that classifies frames per the script, in
// order.
func NewSession(script ...bool) *Session {
	return &Session{script: script}
}

// IsSpeech records the frame and returns the next scripted classification.
func (s *Session) IsSpeech(frame []byte) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := make([]byte, len(frame))
	copy(cp, frame)
	s.Frames = append(s.Frames, cp)

	if s.Err != nil {
		return false, s.Err
	}
	if s.next < len(s.script) {
		v := s.script[s.next]
		s.next++
		return v, nil
	}
	return s.Default, nil
}

// Append adds further classifications to the script.
func (s *Session) Append(script ...bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.script = append(s.script, script...)
}

// Reset records the call.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ResetCallCount++
}

// Close records the call.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CloseCallCount++
	return nil
}

// Ensure Session implements vad.SessionHandle at compile time.
var _ vad.SessionHandle = (*Session)(nil)
