// Package coordinate holds the shared state machine that hands a detected
// wake word from the background listener to the main recognition loop.
//
// All cross-goroutine flags live in a single [State] behind one mutex.
// Transitions are atomic check-and-set operations: a caller can never
// observe or produce a half-applied transition, and validation and mutation
// always happen under the same lock acquisition.
package coordinate

import (
	"sync"

	"github.com/argus-ar/argus/pkg/provider/facerec"
)

// RegistrationRequest is the payload handed from the coordinator to the main
// loop: a snapshot of the unknown face that triggered the wake word. It is
// consumed at most once.
type RegistrationRequest struct {
	Box      facerec.Box
	Encoding []float32
}

// State is the shared coordination state. The zero value is not ready;
// use [NewState].
//
// Invariants, maintained by every method:
//   - registrationInProgress implies !listeningEnabled.
//   - registrationRequested is only ever set while registrationInProgress.
//   - at most one registration is in progress at a time.
type State struct {
	mu sync.Mutex

	listeningEnabled       bool
	registrationInProgress bool
	registrationRequested  bool
	unknownFaces           []facerec.Detection
}

// NewState returns a State in the Idle configuration: listening enabled,
// no registration in progress, no unknown faces.
func NewState() *State {
	return &State{listeningEnabled: true}
}

// SetUnknownFaces replaces the current set of unknown faces. Called by the
// main loop once per frame with the detections that matched no enrolled
// identity.
func (s *State) SetUnknownFaces(faces []facerec.Detection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unknownFaces = faces
}

// ShouldListen reports whether the wake-word listener should run right now:
// listening is enabled, no registration is in progress, and at least one
// unknown face is on screen.
func (s *State) ShouldListen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listeningEnabled && !s.registrationInProgress && len(s.unknownFaces) > 0
}

// BeginRegistration attempts the Idle to Active transition after a wake-word
// detection. The preconditions are re-validated under the lock, because the
// world may have changed during the blocking listen: if a registration is
// already in progress or no unknown face remains, the detection is discarded
// and false is returned. On success listening is disabled, the registration
// is marked in progress, and the request flag is raised, all atomically.
func (s *State) BeginRegistration() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.registrationInProgress || len(s.unknownFaces) == 0 {
		return false
	}
	s.listeningEnabled = false
	s.registrationInProgress = true
	s.registrationRequested = true
	return true
}

// ConsumeRequest clears a pending registration request and snapshots the
// first unknown face as the payload. requested reports whether a request was
// pending at all; ok reports whether an unknown face was still available.
// requested && !ok is the abandoned-request case: the face left the frame
// between detection and handoff, and the caller must reset via
// [State.FinishRegistration] without running a dialog.
func (s *State) ConsumeRequest() (req RegistrationRequest, ok bool, requested bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.registrationRequested {
		return RegistrationRequest{}, false, false
	}
	s.registrationRequested = false
	if len(s.unknownFaces) == 0 {
		return RegistrationRequest{}, false, true
	}
	face := s.unknownFaces[0]
	enc := make([]float32, len(face.Encoding))
	copy(enc, face.Encoding)
	return RegistrationRequest{Box: face.Box, Encoding: enc}, true, true
}

// FinishRegistration performs the Active to Idle transition: registration is
// no longer in progress and listening is re-enabled. Called after dialog
// success, abort, and for abandoned requests alike.
func (s *State) FinishRegistration() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registrationInProgress = false
	s.registrationRequested = false
	s.listeningEnabled = true
}

// RegistrationInProgress reports whether a registration is active.
func (s *State) RegistrationInProgress() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registrationInProgress
}

// ListeningEnabled reports whether wake-word listening is enabled.
func (s *State) ListeningEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listeningEnabled
}
